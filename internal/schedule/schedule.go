// Package schedule runs a maintenance job on a cron spec.
package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sadopc/medlog/internal/logging"
)

// Job is the work run on every tick.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner with a single job. A nil *Scheduler is a
// disabled scheduler; all methods are no-ops on it.
type Scheduler struct {
	c    *cron.Cron
	id   cron.EntryID
	spec string
	log  logging.Logger
}

// Validate reports whether spec is a standard five-field cron expression or
// descriptor such as @daily. The empty spec is valid and means disabled.
func Validate(spec string) error {
	if strings.TrimSpace(spec) == "" {
		return nil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return nil
}

// New builds a scheduler that runs job on spec. It returns nil, nil when
// spec is empty.
func New(spec string, log logging.Logger, job Job) (*Scheduler, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	if err := Validate(spec); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Discard()
	}
	log = log.With("schedule", spec)

	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s := &Scheduler{c: c, spec: spec, log: log}

	id, err := c.AddFunc(spec, func() {
		ctx := context.Background()
		start := time.Now()
		if err := job(ctx); err != nil {
			log.Error(ctx, "scheduled job failed", "err", err)
			return
		}
		log.Info(ctx, "scheduled job finished", "took", time.Since(start))
	})
	if err != nil {
		return nil, fmt.Errorf("add schedule %q: %w", spec, err)
	}
	s.id = id
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	if s == nil {
		return
	}
	s.c.Start()
	s.log.Info(context.Background(), "scheduler started", "next", s.Next())
}

// Stop halts the scheduler and waits for a running job to finish or ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) {
	if s == nil {
		return
	}
	select {
	case <-s.c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info(context.Background(), "scheduler stopped")
}

// Next returns the next activation, or the zero time when disabled or not
// yet started.
func (s *Scheduler) Next() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.c.Entry(s.id).Next
}

func (s *Scheduler) Spec() string {
	if s == nil {
		return ""
	}
	return s.spec
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	log logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(context.Background(), "cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(context.Background(), "cron: "+msg, append(keysAndValues, "err", err)...)
}
