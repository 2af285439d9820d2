package updater

import (
	"os"
	"path/filepath"
	"strings"

	"vs-mods-updater/mods"

	"go.uber.org/zap"
)

// ExistingExclusions builds the exclusion set from configured filenames,
// keeping only those present in modsDir.
func ExistingExclusions(modsDir string, filenames []string, log *zap.SugaredLogger) mods.Exclusions {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	var kept []string
	for _, name := range filenames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(modsDir, name)); err != nil {
			log.Warnw("Excluded mod not found in mods directory", zap.String("file", name))
			continue
		}
		kept = append(kept, name)
	}
	return mods.NewExclusions(kept...)
}
