package cmd

import (
	"context"
	"os"

	"vs-mods-updater/logger"
	"vs-mods-updater/updater"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var showChangelogs bool

// checkCmd lists available updates without changing anything.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Lists available updates without installing them",
	Long: `Scans the mods folder and resolves every mod against the mod database,
then prints the resulting plan. No backup is written and no file is changed.`,
	Run: func(_ *cobra.Command, _ []string) {
		logger.Log.Info("Running check command...")
		if !runCheck() {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&showChangelogs, "changelog", false, "Print the changelog of each available update")
}

func runCheck() bool {
	ctx := context.Background()
	a := bootstrap()
	defer a.close()
	requireModFiles(a.cfg.ModsDir)

	target, err := resolveTargetVersion(ctx, a.cfg, a.client)
	if err != nil {
		logger.Log.Errorw("Cannot determine target game version", zap.Error(err))
		printError(os.Stderr, err)
		return false
	}

	runner := &updater.Runner{
		Catalog: a.client,
		Log:     logger.Log,
		Options: runOptions(a.cfg, target, false, false, true),
	}
	res, err := runner.Run(ctx)
	if err != nil {
		logger.Log.Errorw("Check failed", zap.Error(err))
		printError(os.Stderr, err)
		return false
	}

	printPlan(os.Stdout, target, res, showChangelogs)
	return true
}
