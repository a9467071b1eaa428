package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/sadopc/medlog/internal/tracker"
	"github.com/sadopc/medlog/internal/tui"
)

func (a *App) dose(args []string) error {
	fs := newFlagSet("dose")
	at := fs.String("at", "", "time of the dose (default now)")
	force := fs.Bool("force", false, "record without confirmation")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return usageErr("dose [-at T] [-force] <id|name>")
	}
	m, err := a.resolveMedication(strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}

	when := a.now()
	if *at != "" {
		if when, err = parseTime(*at, a.now(), a.loc); err != nil {
			return err
		}
	}

	risk, err := a.engine.CheckDose(m.ID, when)
	if err != nil {
		return err
	}
	if risk.NeedsConfirmation() && !*force {
		if !a.isTerminal() {
			return fmt.Errorf("%w: %s (use -force)", ErrNeedsConfirmation, risk.Message(m))
		}
		ok, err := a.confirm("Record "+m.Name+"?", risk.Message(m))
		if err != nil {
			return err
		}
		if !ok {
			a.printf("Not recorded.\n")
			return nil
		}
	}

	h, err := a.engine.AddDoseAt(m.ID, when)
	if err != nil {
		return err
	}
	a.log.Debug(context.Background(), "dose recorded from cli", "medication", m.ID, "risk", risk)
	a.printf("Recorded %s at %s (entry %s)\n", h.DisplayName(), h.Timestamp.In(a.loc).Format(clockLayout), h.ID)
	return nil
}

func (a *App) history(args []string) error {
	fs := newFlagSet("history")
	limit := fs.Int("n", 20, "number of entries (0 for all)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var entries []tracker.HistoryEntry
	switch fs.NArg() {
	case 0:
		entries = a.engine.History()
	case 1:
		m, err := a.resolveMedication(fs.Arg(0))
		if err != nil {
			return err
		}
		entries = a.engine.HistoryFor(m.ID)
	default:
		return usageErr("history [-n N] [id|name]")
	}

	if len(entries) == 0 {
		a.printf("No doses recorded.\n")
		return nil
	}
	if *limit > 0 && len(entries) > *limit {
		entries = entries[:*limit]
	}

	t := newTable("ENTRY", "TAKEN AT", "MEDICATION")
	for _, h := range entries {
		t.Row(h.ID, h.Timestamp.In(a.loc).Format("2006-01-02 15:04"), h.DisplayName())
	}
	a.printf("%s\n", t.Render())
	return nil
}

func (a *App) undo(args []string) error {
	if len(args) != 1 {
		return usageErr("undo <entry-id>")
	}
	h, ok := a.engine.Entry(args[0])
	if !ok {
		return fmt.Errorf("no history entry %q", args[0])
	}
	if err := a.engine.RemoveDose(h.ID); err != nil {
		return err
	}
	a.printf("Deleted %s at %s.\n", h.DisplayName(), h.Timestamp.In(a.loc).Format(clockLayout))
	return nil
}

func (a *App) edit(args []string) error {
	if len(args) < 2 {
		return usageErr("edit <entry-id> <time>")
	}
	ts, err := parseTime(strings.Join(args[1:], " "), a.now(), a.loc)
	if err != nil {
		return err
	}
	if err := a.engine.UpdateDose(args[0], ts); err != nil {
		return err
	}
	a.printf("Entry %s now at %s.\n", args[0], ts.In(a.loc).Format(clockLayout))
	return nil
}

// ResetCountsJob is the scheduled dose-count reset. A running TUI is told to
// refresh afterwards.
func (a *App) ResetCountsJob() error {
	if err := a.engine.ResetAllDoseCounts(); err != nil {
		return err
	}
	a.mu.Lock()
	p := a.program
	a.mu.Unlock()
	if p != nil {
		p.Send(tui.RefreshMsg{})
	}
	return nil
}
