package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configDir string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vs-mods-updater",
	Short: "Keeps Vintage Story mods up to date",
	Long: `Scans a Vintage Story mods folder, looks every mod up on the official
mod database and installs the newest release that is compatible with the
target game version. Mods are backed up before they are replaced.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configDir, "config-dir", ".", "Directory containing the .env file, database and default backup folder")
	flags.String("mods-dir", "", "Vintage Story mods folder (overrides MODS_DIR)")
	flags.String("game-version", "", "Target game version, x.y.z or latest (overrides GAME_VERSION)")
	flags.String("log-level", "", "Log level: debug, info, warn or error (overrides LOG_LEVEL)")

	_ = viper.BindPFlag("MODS_DIR", flags.Lookup("mods-dir"))
	_ = viper.BindPFlag("GAME_VERSION", flags.Lookup("game-version"))
	_ = viper.BindPFlag("LOG_LEVEL", flags.Lookup("log-level"))
}
