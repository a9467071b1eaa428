package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/sadopc/medlog/internal/export"
	"github.com/sadopc/medlog/internal/store"
	"github.com/sadopc/medlog/internal/tracker"
)

func (a *App) retention(args []string) error {
	switch len(args) {
	case 0:
		n := a.engine.RetentionMonths()
		if n == 0 {
			a.printf("Automatic cleanup is off.\n")
		} else {
			a.printf("History older than %d months is deleted automatically.\n", n)
		}
		return nil
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return usageErr("retention [months]: %q is not a number", args[0])
		}
		if err := a.engine.SetRetentionMonths(n); err != nil {
			return err
		}
		if n == 0 {
			a.printf("Automatic cleanup turned off.\n")
		} else {
			a.printf("Keeping %d months of history.\n", n)
		}
		return nil
	}
	return usageErr("retention [months]")
}

func (a *App) clear(args []string) error {
	fs := newFlagSet("clear")
	months := fs.Int("months", -1, "keep this many months (default: saved clear_months setting)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return usageErr("clear [-months N]")
	}

	n := *months
	if n < 0 {
		n = a.savedClearMonths()
	} else if err := a.backend.SetSetting(store.SettingClearMonths, strconv.Itoa(n)); err != nil {
		return fmt.Errorf("save setting: %w", err)
	}

	removed, err := a.engine.ClearOldHistory(n)
	if err != nil {
		return err
	}
	a.printf("Deleted %d entries older than %d months.\n", removed, n)
	return nil
}

func (a *App) savedClearMonths() int {
	v, err := a.backend.GetSetting(store.SettingClearMonths)
	if err != nil {
		return tracker.DefaultRetentionMonths
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return tracker.DefaultRetentionMonths
	}
	return n
}

func (a *App) exportDir() string {
	dir, err := a.backend.GetSetting(store.SettingExportDir)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		a.log.Warn(context.Background(), "read export dir", "err", err)
	}
	return dir
}

func (a *App) exportData(args []string) error {
	fs := newFlagSet("export")
	asCSV := fs.Bool("csv", false, "write the dose history as CSV instead of a JSON backup")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	ext := "json"
	if *asCSV {
		ext = "csv"
	}
	var path string
	switch fs.NArg() {
	case 0:
		path = export.PathIn(a.exportDir(), a.now(), ext)
	case 1:
		path = fs.Arg(0)
	default:
		return usageErr("export [-csv] [file]")
	}

	if *asCSV {
		if err := export.ToCSV(a.engine.History(), a.engine.Medications(), a.loc, path); err != nil {
			return err
		}
	} else if err := export.ToJSON(a.engine, path); err != nil {
		return err
	}
	a.printf("Exported to %s\n", path)
	return nil
}

func (a *App) importData(args []string) error {
	fs := newFlagSet("import")
	modeFlag := fs.String("mode", string(tracker.ImportMerge), "merge or overwrite")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageErr("import [-mode merge|overwrite] <file>")
	}
	mode, err := tracker.ParseImportMode(*modeFlag)
	if err != nil {
		return usageErr("%v", err)
	}

	res := export.FromJSON(a.engine, fs.Arg(0), mode)
	if !res.Success {
		return fmt.Errorf("import failed: %w", res.Err)
	}
	switch mode {
	case tracker.ImportOverwrite:
		a.printf("Replaced data: %d medications, %d history entries.\n", res.Medications, res.History)
	default:
		a.printf("Merged: %d new medications, %d new history entries.\n", res.Medications, res.History)
	}
	return nil
}
