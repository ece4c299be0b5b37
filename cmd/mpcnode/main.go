// Command mpcnode is the cluster node CLI: serve, pool-status, compile
// (SPEC_FULL.md §0, cmd/mpcnode). Grounded on
// orbas1-Synnergy/cmd/synnergy/main.go's root-command-plus-subcommand
// shape, generalized to cobra's RunE/SilenceUsage convention the way
// orbas1-Synnergy/cmd/cli's per-feature command files do.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "mpcnode",
		Short: "Run and inspect an MPC cluster node",
	}
	root.SilenceUsage = true
	root.AddCommand(serveCmd())
	root.AddCommand(poolStatusCmd())
	root.AddCommand(compileCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
