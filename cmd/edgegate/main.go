// Command edgegate runs and inspects the DevCollab route authorization gate.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "edgegate",
		Short: "Route authorization gate for the DevCollab web client",
		Long: `edgegate decides, before a page renders, whether a visitor may reach a
path. It reads the credential cookies, decodes the role claim without
verifying it, and either lets the request through or redirects.

Commands:

  serve    run the gate in front of the frontend
  decide   evaluate one path and credential pair
  decode   print the unverified claims of a token
  bench    measure decision throughput`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		decideCmd(),
		decodeCmd(),
		benchCmd(),
		versionCmd(),
	)
	return rootCmd
}
