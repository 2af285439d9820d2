package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"vs-mods-updater/logger"
	"vs-mods-updater/updater"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var acceptIncompatible bool

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Checks the mod database for updates and installs them",
	Long: `Scans the mods folder, looks every mod up on the Vintage Story mod database
and installs the newest release compatible with the target game version.
The files being replaced are backed up into a zip archive first.`,
	Run: func(cmd *cobra.Command, args []string) {
		logger.Log.Info("Running update command...")
		if !runUpdate() {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().BoolP("force", "f", false, "Reinstall mods even when no newer release exists")
	updateCmd.Flags().BoolVar(&acceptIncompatible, "accept-incompatible", false, "Continue when some mods have no release for the target game version")
	_ = viper.BindPFlag("FORCE_UPDATE", updateCmd.Flags().Lookup("force"))
}

// runUpdate performs one full update run and reports whether it succeeded.
func runUpdate() bool {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

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
		History: a.store,
		Log:     logger.Log,
		Options: runOptions(a.cfg, target, false, acceptIncompatible, false),
	}

	var res *updater.Result
	if term.IsTerminal(int(os.Stdout.Fd())) {
		res, err = runWithProgress(ctx, runner)
	} else {
		res, err = runner.Run(ctx)
	}

	if res != nil && (err == nil || errors.Is(err, updater.ErrIncompatibleMods) || len(res.Downloads) > 0) {
		printReport(os.Stdout, target, res)
	}
	switch {
	case errors.Is(err, updater.ErrIncompatibleMods):
		logger.Log.Warnw("Update aborted", zap.Error(err))
		printIncompatibleHint(os.Stderr)
		return false
	case err != nil:
		logger.Log.Errorw("Update run failed", zap.Error(err))
		printError(os.Stderr, err)
		return false
	}
	return res.Succeeded() == len(res.Downloads)
}
