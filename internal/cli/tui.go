package cli

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/medlog/internal/schedule"
	"github.com/sadopc/medlog/internal/tui"
)

// runTUI starts the interactive interface and, for its lifetime, the
// dose-count reset schedule.
func (a *App) runTUI(ctx context.Context) error {
	sched, err := schedule.New(a.cfg.CountResetSchedule, a.log, func(context.Context) error {
		return a.ResetCountsJob()
	})
	if err != nil {
		return err
	}

	model := tui.NewApp(a.engine, a.backend,
		tui.WithRefreshInterval(a.cfg.RefreshInterval),
		tui.WithLocation(a.loc),
		tui.WithLogger(a.log),
		tui.WithScheduleInfo(sched.Spec(), sched.Next),
	)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	a.mu.Lock()
	a.program = p
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.program = nil
		a.mu.Unlock()
	}()

	sched.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sched.Stop(stopCtx)
	}()

	_, err = p.Run()
	return err
}
