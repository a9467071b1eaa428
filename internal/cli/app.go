package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/sadopc/medlog/internal/config"
	"github.com/sadopc/medlog/internal/logging"
	"github.com/sadopc/medlog/internal/store"
	"github.com/sadopc/medlog/internal/tracker"
)

// ErrUsage marks a malformed command line.
var ErrUsage = errors.New("usage")

// ErrNeedsConfirmation is returned when a risky dose is recorded without a
// terminal to confirm on and without -force.
var ErrNeedsConfirmation = errors.New("confirmation required")

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// ConfirmFunc asks a yes/no question.
type ConfirmFunc func(title, description string) (bool, error)

type App struct {
	engine  *tracker.Engine
	backend store.Backend
	cfg     *config.Config
	log     logging.Logger
	loc     *time.Location

	out io.Writer

	isTerminal func() bool
	confirm    ConfirmFunc
	now        func() time.Time

	mu      sync.Mutex
	program *tea.Program
}

type Option func(*App)

func WithOutput(w io.Writer) Option {
	return func(a *App) { a.out = w }
}

// WithTerminal overrides terminal detection.
func WithTerminal(fn func() bool) Option {
	return func(a *App) { a.isTerminal = fn }
}

func WithConfirm(fn ConfirmFunc) Option {
	return func(a *App) { a.confirm = fn }
}

func WithLocation(loc *time.Location) Option {
	return func(a *App) { a.loc = loc }
}

func WithNow(fn func() time.Time) Option {
	return func(a *App) { a.now = fn }
}

func New(engine *tracker.Engine, backend store.Backend, cfg *config.Config, log logging.Logger, opts ...Option) *App {
	a := &App{
		engine:     engine,
		backend:    backend,
		cfg:        cfg,
		log:        log,
		loc:        time.Local,
		out:        os.Stdout,
		isTerminal: func() bool { return term.IsTerminal(int(os.Stdout.Fd())) },
		confirm:    huhConfirm,
		now:        time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = logging.Discard()
	}
	return a
}

// Run executes the command in args.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		if a.isTerminal() {
			return a.runTUI(ctx)
		}
		return a.status()
	}

	cmd, rest := args[0], args[1:]
	a.log.Debug(ctx, "command", "name", cmd, "args", rest)

	switch cmd {
	case "status":
		return a.status()
	case "list", "ls":
		return a.list()
	case "add":
		return a.add(rest)
	case "rm", "remove":
		return a.remove(rest)
	case "dose", "take":
		return a.dose(rest)
	case "history":
		return a.history(rest)
	case "undo":
		return a.undo(rest)
	case "edit":
		return a.edit(rest)
	case "reset":
		return a.reset(rest)
	case "retention":
		return a.retention(rest)
	case "clear":
		return a.clear(rest)
	case "export":
		return a.exportData(rest)
	case "import":
		return a.importData(rest)
	case "tui":
		return a.runTUI(ctx)
	case "help", "-h", "--help":
		a.printUsage()
		return nil
	}
	return usageErr("unknown command %q", cmd)
}

func (a *App) printUsage() {
	Usage(a.out)
}

// Usage writes the command summary to w.
func Usage(w io.Writer) {
	fmt.Fprint(w, `usage: medlog [global flags] <command> [args]

commands:
  status                     dose status of every medication
  list                       registered medications
  add -name N -interval H    register a medication (-category C)
  rm <id>                    remove a medication
  dose [-at T] [-force] <id|name>
  history [-n N] [id]        dose history, newest first
  undo <entry-id>            delete a history entry
  edit <entry-id> <time>     change the time of a history entry
  reset [-all] [id]          zero dose counters
  retention [months]         show or set automatic cleanup (0 disables)
  clear [-months N]          delete history older than N months
  export [-csv] [file]       write a JSON backup or CSV history
  import [-mode M] <file>    merge or overwrite from a JSON backup
  tui                        interactive interface

global flags:
  -config FILE  -db PATH  -backend sqlite|badger  -log-file FILE
  -log-level L  -refresh D  -count-reset CRON  -retention N
`)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
