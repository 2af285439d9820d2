package cmd

import (
	"fmt"
	"io"
	"strings"

	"vs-mods-updater/mods"
	"vs-mods-updater/ui"
	"vs-mods-updater/updater"
)

// printPlan writes the plan of a check run, one row per installed mod.
func printPlan(w io.Writer, target string, res *updater.Result, changelogs bool) {
	fmt.Fprintf(w, "%s %s\n\n", ui.Header.Render("Target game version:"), target)

	for _, e := range res.Plan.Entries {
		line := fmt.Sprintf("  %-30s %-16s %s", e.Mod.Name, e.OldVersion, ui.Status(e.Status))
		if e.Status == mods.StatusUpdateAvailable && e.NewVersion != e.OldVersion {
			line += " -> " + e.NewVersion
		}
		if res.Excluded.Contains(e.Mod.Filename) {
			line += ui.Muted.Render(" (excluded)")
		}
		fmt.Fprintln(w, line)
		if changelogs && e.Status == mods.StatusUpdateAvailable && e.Changelog != "" {
			for _, l := range strings.Split(e.Changelog, "\n") {
				fmt.Fprintf(w, "      %s\n", ui.Muted.Render(l))
			}
		}
	}
	printInvalid(w, res.Invalid)

	fmt.Fprintf(w, "\n%d updates available, %d up to date, %d incompatible\n",
		len(res.Plan.Updates()), res.Plan.Count(mods.StatusUpToDate), len(res.Plan.Incompatible))
}

// printReport writes the outcome of an update run.
func printReport(w io.Writer, target string, res *updater.Result) {
	if len(res.Plan.Incompatible) > 0 {
		fmt.Fprintln(w, ui.Failure.Render(fmt.Sprintf("Mods without a release for game version %s:", target)))
		for _, e := range res.Plan.Incompatible {
			built := e.Mod.GameVersion
			if built == "" {
				built = "unknown"
			}
			fmt.Fprintf(w, "  • %s %s (built for %s)\n", e.Mod.Name, e.OldVersion, built)
		}
	}

	var updated, failed []updater.DownloadResult
	for _, d := range res.Downloads {
		if d.Err == nil {
			updated = append(updated, d)
		} else {
			failed = append(failed, d)
		}
	}
	if len(updated) > 0 {
		fmt.Fprintln(w, ui.Success.Render("Updated:"))
		for _, d := range updated {
			fmt.Fprintf(w, "  • %s %s -> %s\n", d.Entry.Mod.Name, d.Entry.OldVersion, d.Entry.NewVersion)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintln(w, ui.Failure.Render("Failed:"))
		for _, d := range failed {
			fmt.Fprintf(w, "  • %s: %v\n", d.Entry.Mod.Name, d.Err)
		}
	}
	printInvalid(w, res.Invalid)

	if res.Backup != nil {
		fmt.Fprintf(w, "Backup: %s\n", res.Backup.Path)
	}
	if len(res.Downloads) == 0 && len(res.Plan.Incompatible) == 0 {
		fmt.Fprintln(w, "All mods are up to date.")
	}
}

func printInvalid(w io.Writer, invalid []string) {
	if len(invalid) == 0 {
		return
	}
	fmt.Fprintln(w, ui.Warning.Render("Files that could not be read as mods:"))
	for _, f := range invalid {
		fmt.Fprintf(w, "  • %s\n", f)
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, ui.Failure.Render("Error: "+err.Error()))
}

func printIncompatibleHint(w io.Writer) {
	fmt.Fprintln(w, "Nothing was changed. Run with --accept-incompatible or set INCOMPATIBILITY_BEHAVIOR=continue to update the compatible mods anyway.")
}
