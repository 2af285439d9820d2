package cmd

import (
	"errors"
	"fmt"
	"os"

	"vs-mods-updater/db"
	"vs-mods-updater/logger"
	"vs-mods-updater/updater"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rollbackCmd represents the rollback command
var rollbackCmd = &cobra.Command{
	Use:   "rollback [modid]",
	Short: "Rollback a mod to the version it had before its last update",
	Long: `Rollback a mod to the version it had before its last update.
Example: vs-mods-updater rollback carryon

The previous file is restored from the backup archive written by that
update and the file the update installed is removed.`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		if !rollbackMod(args[0]) {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
}

// rollbackMod handles the rollback process for a specific mod
func rollbackMod(modID string) bool {
	a := bootstrap()
	defer a.close()

	log := logger.Log.With(zap.String("modid", modID))
	log.Infow("Attempting rollback")

	u, err := updater.Rollback(a.store, modID, a.cfg.ModsDir, log)
	if errors.Is(err, db.ErrNotFound) {
		log.Warnw("No recorded update for mod")
		fmt.Printf("No recorded update found for %s\n", modID)
		return false
	}
	if err != nil {
		log.Errorw("Rollback failed", zap.Error(err))
		printError(os.Stderr, err)
		return false
	}

	log.Infow("Rollback successful",
		zap.String("restored_version", u.OldVersion),
		zap.String("restored_file", u.OldFileName))
	fmt.Printf("Successfully rolled back %s to version %s\n", u.Name, u.OldVersion)
	return true
}
