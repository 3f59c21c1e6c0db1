package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the optfolio CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "optfolio version %s\n", version)
		fmt.Fprintln(out, "An options portfolio ledger")
		fmt.Fprintln(out, "https://github.com/rustyeddy/optfolio")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
