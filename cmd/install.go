package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"vs-mods-updater/config"
	"vs-mods-updater/logger"
	"vs-mods-updater/ui"
	"vs-mods-updater/updater"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// installCmd downloads every mod listed in a modlist.json file.
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Installs the mods listed in modlist.json",
	Long: `Reads modlist.json from MODLIST_DIR (the config directory by default) and
downloads every listed mod into the mods folder, creating the folder when it
does not exist yet. Installed mods are not checked for updates.`,
	Run: func(_ *cobra.Command, _ []string) {
		logger.Log.Info("Running install command...")
		if !runInstall() {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
	installCmd.Flags().String("modlist-dir", "", "Directory containing modlist.json (overrides MODLIST_DIR)")
	_ = viper.BindPFlag("MODLIST_DIR", installCmd.Flags().Lookup("modlist-dir"))
}

func modlistPath(cfg config.Config) string {
	return filepath.Join(cfg.ModlistDir, updater.ModlistFile)
}

func runInstall() bool {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := bootstrap(config.CreateModsDir())
	defer a.close()

	path := modlistPath(a.cfg)
	list, err := updater.ReadModlist(path)
	if err != nil {
		logger.Log.Errorw("Cannot read modlist", zap.String("path", path), zap.Error(err))
		printError(os.Stderr, err)
		return false
	}

	in := &updater.Installer{
		Client:  a.client,
		ModsDir: a.cfg.ModsDir,
		Workers: a.cfg.MaxWorkers,
		Log:     logger.Log,
	}
	res, err := in.Install(ctx, list)
	if res != nil {
		printInstallReport(os.Stdout, res)
	}
	if err != nil {
		logger.Log.Errorw("Install run failed", zap.Error(err))
		printError(os.Stderr, err)
		return false
	}
	return res.Failed() == 0
}

func printInstallReport(w io.Writer, res *updater.InstallResult) {
	var installed []string
	var failed []updater.DownloadResult
	for _, d := range res.Downloads {
		if d.Err == nil {
			installed = append(installed, d.Filename)
		} else {
			failed = append(failed, d)
		}
	}
	if len(installed) > 0 {
		fmt.Fprintln(w, ui.Success.Render("Installed:"))
		for _, f := range installed {
			fmt.Fprintf(w, "  • %s\n", f)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintln(w, ui.Failure.Render("Failed:"))
		for _, d := range failed {
			fmt.Fprintf(w, "  • %s: %v\n", d.Entry.Mod.Name, d.Err)
		}
	}
	if len(res.Skipped) > 0 {
		fmt.Fprintln(w, ui.Warning.Render("Skipped (no download link):"))
		for _, m := range res.Skipped {
			fmt.Fprintf(w, "  • %s\n", m.Name)
		}
	}
	if len(res.Downloads) == 0 && len(res.Skipped) == 0 {
		fmt.Fprintln(w, "The modlist is empty.")
	}
}
