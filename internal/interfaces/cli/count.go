package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/autofragment/internal/app"
	"github.com/turtacn/autofragment/pkg/types/molecule"
)

type countOptions struct {
	radius     int
	cumulative bool
	noCache    bool
}

func newCountCmd() *cobra.Command {
	opts := &countOptions{}

	cmd := &cobra.Command{
		Use:     "count SMILES",
		Short:   "Count the fragments of a single molecule",
		Example: "  autofrag count CCO -r 1\n  autofrag count 'c1ccccc1O' -r 2 --cumulative -f table",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.radius, "radius", "r", 1, "fragment radius in bonds")
	f.BoolVar(&opts.cumulative, "cumulative", false, "merge the fragments of every radius from 0 to --radius")
	f.BoolVar(&opts.noCache, "no-cache", false, "bypass the Redis fragment cache")
	return cmd
}

func runCount(cmd *cobra.Command, smiles string, opts *countOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	var appOpts []app.Option
	if opts.noCache {
		appOpts = append(appOpts, app.WithoutCache())
	}
	infra, err := newInfrastructure(cliCtx.Config, cliCtx.Logger, appOpts...)
	if err != nil {
		return err
	}
	defer infra.Close()

	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	req := &molecule.CountRequest{SMILES: smiles, Cumulative: opts.cumulative}
	if cmd.Flags().Changed("radius") {
		req.Radius = &opts.radius
	}
	resp, err := infra.Service.Count(ctx, req)
	if err != nil {
		return err
	}
	return PrintResult(cmd, fragmentTable{resp: resp})
}

// fragmentTable prints a CountResponse most frequent fragment first.
type fragmentTable struct {
	resp *molecule.CountResponse
}

func (t fragmentTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.resp)
}

func (t fragmentTable) sorted() []string {
	frags := make([]string, 0, len(t.resp.Fragments))
	for f := range t.resp.Fragments {
		frags = append(frags, f)
	}
	sort.Slice(frags, func(i, j int) bool {
		ci, cj := t.resp.Fragments[frags[i]], t.resp.Fragments[frags[j]]
		if ci != cj {
			return ci > cj
		}
		return frags[i] < frags[j]
	})
	return frags
}

func (t fragmentTable) String() string {
	var b strings.Builder
	for _, f := range t.sorted() {
		fmt.Fprintf(&b, "%d\t%s\n", t.resp.Fragments[f], f)
	}
	return b.String()
}

func (t fragmentTable) TableHeaders() []string {
	return []string{"Fragment", "Count"}
}

func (t fragmentTable) TableRows() [][]string {
	frags := t.sorted()
	rows := make([][]string, len(frags))
	for i, f := range frags {
		rows[i] = []string{f, strconv.Itoa(t.resp.Fragments[f])}
	}
	return rows
}

//Personal.AI order the ending
