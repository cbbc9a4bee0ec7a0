package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/autofragment/internal/app"
	"github.com/turtacn/autofragment/internal/export"
	"github.com/turtacn/autofragment/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/autofragment/pkg/errors"
	"github.com/turtacn/autofragment/pkg/types/molecule"
)

type decomposeOptions struct {
	input      string
	output     string
	matrix     string
	runID      string
	radius     int
	cumulative bool
	upload     bool
}

func newDecomposeCmd() *cobra.Command {
	opts := &decomposeOptions{}

	cmd := &cobra.Command{
		Use:   "decompose",
		Short: "Decompose a molecule table into fragment counts",
		Long: "Reads molecules from a JSON object ({\"id\": \"SMILES\"}), a CSV/TSV table\n" +
			"(id,smiles) or a .smi file, optionally gzip or zstd compressed, and writes\n" +
			"the fragment counts of every molecule.",
		Example: "  autofrag decompose -i molecules.json -r 2 -o out.json.zst\n" +
			"  autofrag decompose -i molecules.csv --cumulative --matrix features.csv --upload",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecompose(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "molecule table (.json, .csv, .tsv, .smi; optionally .gz or .zst)")
	f.StringVarP(&opts.output, "output", "o", "", "result file (.json, .json.gz, .json.zst); stdout when empty")
	f.StringVar(&opts.matrix, "matrix", "", "also write the molecule by fragment count matrix as CSV")
	f.StringVar(&opts.runID, "run-id", "", "run id (default: random uuid)")
	f.IntVarP(&opts.radius, "radius", "r", 1, "fragment radius in bonds")
	f.BoolVar(&opts.cumulative, "cumulative", false, "merge the fragments of every radius from 0 to --radius")
	f.BoolVar(&opts.upload, "upload", false, "upload the result to the configured MinIO bucket")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runDecompose(cmd *cobra.Command, opts *decomposeOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	logger := cliCtx.Logger

	molecules, err := export.ReadMolecules(opts.input)
	if err != nil {
		return err
	}
	logger.Debug("molecules loaded", logging.String("input", opts.input), logging.Int("count", len(molecules)))

	infra, err := newInfrastructure(cliCtx.Config, logger, app.WithUpload(opts.upload))
	if err != nil {
		return err
	}
	defer infra.Close()

	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	req := &molecule.DecomposeRequest{
		RunID:      opts.runID,
		Cumulative: opts.cumulative,
		Molecules:  molecules,
	}
	if cmd.Flags().Changed("radius") {
		req.Radius = &opts.radius
	}
	resp, err := infra.Service.Decompose(ctx, req)
	if err != nil {
		return err
	}

	if opts.matrix != "" {
		if err := writeMatrix(opts.matrix, resp.Result); err != nil {
			return err
		}
	}
	if opts.output == "" {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	if err := export.WriteFile(opts.output, resp.Result); err != nil {
		return err
	}

	if err := PrintResult(cmd, decomposeSummary{resp: resp, output: opts.output}); err != nil {
		return err
	}
	if resp.Stats.Failed > 0 && cliCtx.Verbose {
		FormatTable(cmd.ErrOrStderr(), []string{"Molecule", "Code", "Reason"}, failureRows(resp.Result.Failures))
	}
	PrintSuccess(cmd, fmt.Sprintf("run %s written to %s", resp.Result.RunID, opts.output))
	return nil
}

func writeMatrix(path string, result *molecule.DecompositionResult) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create matrix file").WithDetail(path)
	}
	if err := export.WriteMatrixCSV(f, result); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to close matrix file").WithDetail(path)
	}
	return nil
}

func failureRows(failures []molecule.Failure) [][]string {
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{f.ID, f.Code, f.Reason})
	}
	return rows
}

// decomposeSummary is the printed outcome of a decompose run written to a file.
type decomposeSummary struct {
	resp   *molecule.DecomposeResponse
	output string
}

func (s decomposeSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RunID    string         `json:"run_id"`
		Output   string         `json:"output"`
		Location string         `json:"location,omitempty"`
		Stats    molecule.Stats `json:"stats"`
		Failed   []string       `json:"failed_ids"`
	}{s.resp.Result.RunID, s.output, s.resp.Location, s.resp.Stats, s.resp.Result.FailedIDs})
}

func (s decomposeSummary) String() string {
	st := s.resp.Stats
	var b strings.Builder
	fmt.Fprintf(&b, "run:                %s\n", s.resp.Result.RunID)
	fmt.Fprintf(&b, "molecules:          %d\n", st.Molecules)
	fmt.Fprintf(&b, "succeeded:          %d\n", st.Succeeded)
	fmt.Fprintf(&b, "failed:             %d\n", st.Failed)
	fmt.Fprintf(&b, "distinct fragments: %d\n", st.DistinctFragments)
	if s.resp.Location != "" {
		fmt.Fprintf(&b, "uploaded to:        %s\n", s.resp.Location)
	}
	if len(s.resp.Result.FailedIDs) > 0 {
		fmt.Fprintf(&b, "failed ids:         %s\n", strings.Join(s.resp.Result.FailedIDs, ", "))
	}
	return b.String()
}

func (s decomposeSummary) TableHeaders() []string {
	return []string{"Run", "Molecules", "Succeeded", "Failed", "Distinct Fragments"}
}

func (s decomposeSummary) TableRows() [][]string {
	st := s.resp.Stats
	return [][]string{{
		s.resp.Result.RunID,
		strconv.Itoa(st.Molecules),
		strconv.Itoa(st.Succeeded),
		strconv.Itoa(st.Failed),
		strconv.Itoa(st.DistinctFragments),
	}}
}

//Personal.AI order the ending
