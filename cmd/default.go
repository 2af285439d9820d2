package cmd

import (
	"github.com/spf13/cobra"
)

// defaultCmd represents the command that runs when no subcommand is specified
var defaultCmd = &cobra.Command{
	Use:    "default",
	Short:  "Default command when no subcommand is provided",
	Long:   `Runs the update command with its default flags.`,
	Hidden: true,
	Run: func(cmd *cobra.Command, args []string) {
		updateCmd.Run(updateCmd, []string{})
	},
}

func init() {
	rootCmd.AddCommand(defaultCmd)
	// Running the binary without a subcommand updates
	rootCmd.Run = defaultCmd.Run
}
