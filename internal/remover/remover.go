// Package remover deletes an application bundle and its residual files.
//
// A removal runs Idle -> Checking -> Terminating (only when the app is
// running) -> Deleting -> Completed. Deletion is partial-failure tolerant:
// every path is attempted and yields exactly one Outcome, in attempt order.
// Once started a removal cannot be cancelled.
package remover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/lu-zhengda/appsweep/internal/logging"
	"github.com/lu-zhengda/appsweep/internal/process"
)

// DefaultGracePeriod is the wait after a quit request before deleting.
const DefaultGracePeriod = 2 * time.Second

// State is the phase of a removal.
type State int

const (
	Idle State = iota
	Checking
	Terminating
	Deleting
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Checking:
		return "Checking"
	case Terminating:
		return "Terminating"
	case Deleting:
		return "Deleting"
	case Completed:
		return "Completed"
	default:
		return "Unknown"
	}
}

// Outcome is the result of deleting one path. Err is nil on success.
type Outcome struct {
	Path string
	Err  error
}

// OK reports whether the path was deleted.
func (o Outcome) OK() bool { return o.Err == nil }

// Report collects the outcomes of one removal, in attempt order.
type Report struct {
	App      string
	Outcomes []Outcome
}

// Failed returns the outcomes whose deletion failed.
func (r Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Succeeded counts the successful deletions.
func (r Report) Succeeded() int {
	return len(r.Outcomes) - len(r.Failed())
}

// NeedsPrivilege reports whether any failure was a permission error.
func (r Report) NeedsPrivilege() bool {
	for _, o := range r.Failed() {
		if errors.Is(o.Err, fs.ErrPermission) {
			return true
		}
	}
	return false
}

// EventKind distinguishes the items of the progress stream.
type EventKind int

const (
	EventState EventKind = iota
	EventLine
	EventOutcome
	EventDone
)

// LineTone classifies an EventLine for display.
type LineTone int

const (
	ToneInfo LineTone = iota
	ToneOK
	ToneError
	ToneWarn
)

// Event is one item of the progress stream. EventDone is always last and
// carries the final Report.
type Event struct {
	Kind    EventKind
	State   State
	Line    string
	Tone    LineTone
	Outcome Outcome
	Report  *Report
}

// Request names what to remove. AppName drives the liveness check and quit
// request; leave it empty to skip that phase. BundlePath, when set, is
// deleted before the residuals.
type Request struct {
	AppName    string
	BundlePath string
	Residuals  []string
}

// Paths returns the deletion order: bundle first, then residuals as given.
func (req Request) Paths() []string {
	paths := make([]string, 0, len(req.Residuals)+1)
	if req.BundlePath != "" {
		paths = append(paths, req.BundlePath)
	}
	return append(paths, req.Residuals...)
}

// Remover runs removals against a process controller and the filesystem.
type Remover struct {
	proc   process.Controller
	grace  time.Duration
	sleep  func(time.Duration)
	remove func(string) error
	log    *slog.Logger
}

// Option configures a Remover.
type Option func(*Remover)

// WithGracePeriod sets the wait between a quit request and deletion.
func WithGracePeriod(d time.Duration) Option {
	return func(r *Remover) { r.grace = d }
}

// WithSleep replaces time.Sleep for the grace delay.
func WithSleep(fn func(time.Duration)) Option {
	return func(r *Remover) { r.sleep = fn }
}

// WithDeleteFunc replaces DeletePath.
func WithDeleteFunc(fn func(string) error) Option {
	return func(r *Remover) { r.remove = fn }
}

// WithLogger sets the logger; nil means slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(r *Remover) { r.log = l }
}

// New returns a Remover. A nil proc disables the liveness check.
func New(proc process.Controller, opts ...Option) *Remover {
	r := &Remover{
		proc:   proc,
		grace:  DefaultGracePeriod,
		sleep:  time.Sleep,
		remove: DeletePath,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = logging.OrDefault(r.log)
	return r
}

// DeletePath removes a directory tree or a single file. A path that no
// longer exists is an error. Symlinks are removed, not followed.
func DeletePath(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return os.RemoveAll(path)
	}
	return os.Remove(path)
}

// IsRunning reports whether appName appears in the process table.
func (r *Remover) IsRunning(ctx context.Context, appName string) bool {
	if r.proc == nil || appName == "" {
		return false
	}
	return r.proc.IsRunning(ctx, appName)
}

// Run performs the removal synchronously, passing progress to emit (which may
// be nil). Cancelling ctx after Run starts has no effect.
func (r *Remover) Run(ctx context.Context, req Request, emit func(Event)) Report {
	ctx = context.WithoutCancel(ctx)
	if emit == nil {
		emit = func(Event) {}
	}
	state := func(s State) {
		r.log.Debug("removal state", "app", req.AppName, "state", s)
		emit(Event{Kind: EventState, State: s})
	}
	line := func(tone LineTone, format string, a ...any) {
		emit(Event{Kind: EventLine, Line: fmt.Sprintf(format, a...), Tone: tone})
	}

	state(Checking)
	if r.IsRunning(ctx, req.AppName) {
		state(Terminating)
		line(ToneWarn, "%q is running, asking it to quit...", req.AppName)
		if err := r.proc.RequestQuit(ctx, req.AppName); err != nil {
			r.log.Warn("quit request failed", "app", req.AppName, "err", err)
		}
		r.sleep(r.grace)
	}

	state(Deleting)
	report := Report{App: req.AppName}
	for _, path := range req.Paths() {
		line(ToneInfo, "Removing %s...", path)
		outcome := Outcome{Path: path, Err: r.remove(path)}
		report.Outcomes = append(report.Outcomes, outcome)
		emit(Event{Kind: EventOutcome, Outcome: outcome})

		if outcome.OK() {
			line(ToneOK, "  %s - OK", path)
		} else {
			r.log.Warn("delete failed", "path", path, "err", outcome.Err)
			line(ToneError, "  %s - ERROR: %v", path, outcome.Err)
		}
	}

	state(Completed)
	label := "Selected files"
	if req.AppName != "" {
		label = fmt.Sprintf("%q", req.AppName)
	}
	if failed := len(report.Failed()); failed > 0 {
		line(ToneError, "%s removed with %d error(s).", label, failed)
	} else {
		line(ToneOK, "%s removed successfully.", label)
	}
	emit(Event{Kind: EventDone, State: Completed, Report: &report})
	return report
}

// Start runs the removal on its own goroutine. The returned channel delivers
// every Event in order and is closed after EventDone.
func (r *Remover) Start(ctx context.Context, req Request) <-chan Event {
	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		r.Run(ctx, req, func(e Event) { ch <- e })
	}()
	return ch
}
