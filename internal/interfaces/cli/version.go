package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return PrintResult(cmd, versionInfo{BuildInfo{Version: Version, Commit: GitCommit, BuildDate: BuildDate}})
		},
	}
}

type versionInfo struct {
	BuildInfo
}

func (v versionInfo) String() string {
	return fmt.Sprintf("autofrag %s (commit: %s, built: %s, %s/%s)\n",
		v.Version, v.Commit, v.BuildDate, runtime.GOOS, runtime.GOARCH)
}

//Personal.AI order the ending
