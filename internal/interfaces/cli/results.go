package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/autofragment/internal/export"
	"github.com/turtacn/autofragment/internal/infrastructure/storage/minio"
	"github.com/turtacn/autofragment/pkg/errors"
)

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Inspect results stored in MinIO",
	}

	var output string
	get := &cobra.Command{
		Use:   "get RUN_ID",
		Short: "Download a stored result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResultsGet(cmd, args[0], output)
		},
	}
	get.Flags().StringVarP(&output, "output", "o", "", "result file; stdout when empty")

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored run ids",
		Args:  cobra.NoArgs,
		RunE:  runResultsList,
	}

	cmd.AddCommand(get, list)
	return cmd
}

func openResultStore(cmd *cobra.Command) (*minio.ResultStore, func(), error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, nil, err
	}
	mc := cliCtx.Config.MinIO
	if !mc.Enabled {
		return nil, nil, errors.New(errors.ErrCodeFeatureDisabled, "minio result store is not enabled")
	}
	client, err := minio.NewMinIOClient(&mc.MinIOConfig, cliCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	store, err := minio.NewResultStore(client, cliCtx.Logger)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return store, func() { client.Close() }, nil
}

func runResultsGet(cmd *cobra.Command, runID, output string) error {
	store, closeFn, err := openResultStore(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	result, err := store.Get(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if output == "" {
		return printJSON(cmd.OutOrStdout(), result)
	}
	if err := export.WriteFile(output, result); err != nil {
		return err
	}
	PrintSuccess(cmd, fmt.Sprintf("run %s written to %s", runID, output))
	return nil
}

func runResultsList(cmd *cobra.Command, _ []string) error {
	store, closeFn, err := openResultStore(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	ids, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	return PrintResult(cmd, runList(ids))
}

// runList prints stored run ids one per line.
type runList []string

func (l runList) String() string {
	if len(l) == 0 {
		return ""
	}
	return strings.Join(l, "\n") + "\n"
}

func (l runList) TableHeaders() []string { return []string{"Run"} }

func (l runList) TableRows() [][]string {
	rows := make([][]string, len(l))
	for i, id := range l {
		rows[i] = []string{id}
	}
	return rows
}

//Personal.AI order the ending
