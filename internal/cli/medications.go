package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/sadopc/medlog/internal/tracker"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageErr("%s: %v", fs.Name(), err)
	}
	return nil
}

// resolveMedication finds a medication by id, then by case-insensitive name.
func (a *App) resolveMedication(ref string) (tracker.Medication, error) {
	if m, ok := a.engine.Medication(ref); ok {
		return m, nil
	}
	var found []tracker.Medication
	for _, m := range a.engine.Medications() {
		if strings.EqualFold(m.Name, ref) {
			found = append(found, m)
		}
	}
	switch len(found) {
	case 0:
		return tracker.Medication{}, fmt.Errorf("no medication %q", ref)
	case 1:
		return found[0], nil
	}
	return tracker.Medication{}, fmt.Errorf("%d medications are named %q; use the id", len(found), ref)
}

func (a *App) add(args []string) error {
	fs := newFlagSet("add")
	name := fs.String("name", "", "medication name")
	interval := fs.Float64("interval", 0, "minimum hours between doses")
	category := fs.String("category", "", "category (default "+tracker.DefaultCategory+")")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *name == "" && fs.NArg() > 0 {
		*name = strings.Join(fs.Args(), " ")
	}

	m, err := a.engine.AddMedication(*name, *interval, *category)
	if err != nil {
		return err
	}
	a.printf("Added %s (%s, every %s) as %s\n", m.Name, m.Category, m.IntervalLabel(), m.ID)
	return nil
}

func (a *App) remove(args []string) error {
	if len(args) != 1 {
		return usageErr("rm <id|name>")
	}
	m, err := a.resolveMedication(args[0])
	if err != nil {
		return err
	}
	if m.IsPreset() {
		return fmt.Errorf("%s is built in and cannot be removed", m.Name)
	}
	if err := a.engine.RemoveMedication(m.ID); err != nil {
		return err
	}
	a.printf("Removed %s. Its history is kept.\n", m.Name)
	return nil
}

func (a *App) reset(args []string) error {
	fs := newFlagSet("reset")
	all := fs.Bool("all", false, "reset every medication")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *all {
		if fs.NArg() > 0 {
			return usageErr("reset -all takes no id")
		}
		if err := a.engine.ResetAllDoseCounts(); err != nil {
			return err
		}
		a.printf("Reset all dose counts.\n")
		return nil
	}

	if fs.NArg() != 1 {
		return usageErr("reset [-all] <id|name>")
	}
	m, err := a.resolveMedication(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := a.engine.ResetDoseCount(m.ID); err != nil {
		return err
	}
	a.printf("Reset dose count of %s.\n", m.Name)
	return nil
}
