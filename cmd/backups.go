package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"vs-mods-updater/logger"
	"vs-mods-updater/mods"
	"vs-mods-updater/ui"
	"vs-mods-updater/updater"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// backupsCmd lists the backup archives kept in BACKUP_DIR.
var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Lists backup archives, newest first",
	Run: func(_ *cobra.Command, _ []string) {
		a := bootstrap()
		defer a.close()

		b := updater.NewBackups(a.cfg.BackupDir, a.cfg.ModsDir, a.cfg.MaxBackups, logger.Log)
		archives, err := b.List()
		if err != nil {
			logger.Log.Errorw("Failed to list backups", zap.String("dir", a.cfg.BackupDir), zap.Error(err))
			printError(os.Stderr, err)
			return
		}
		for i := range archives {
			if rec, err := a.store.BackupByPath(archives[i].Path); err == nil {
				for _, f := range rec.Files {
					archives[i].Files = append(archives[i].Files, f.FileName)
				}
			}
		}
		printBackups(os.Stdout, archives)
	},
}

func init() {
	rootCmd.AddCommand(backupsCmd)
}

func printBackups(w io.Writer, archives []mods.BackupArchive) {
	if len(archives) == 0 {
		fmt.Fprintln(w, "No backups found.")
		return
	}
	for _, a := range archives {
		fmt.Fprintf(w, "%s  %s\n", ui.Muted.Render(a.CreatedAt.Format("2006-01-02 15:04:05")), filepath.Base(a.Path))
		for _, f := range a.Files {
			fmt.Fprintf(w, "    %s\n", f)
		}
	}
}
