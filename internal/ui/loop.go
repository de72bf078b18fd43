package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"releasekit/internal/diff"
	"releasekit/internal/logging"
	"releasekit/internal/release"
)

// ErrClosed is returned when posting to a loop that has been closed.
var ErrClosed = errors.New("ui loop closed")

// Action is the operator's choice for a pending run.
type Action int

const (
	ActionCancel Action = iota
	ActionRelease
	ActionUpdateOnly
)

func (a Action) String() string {
	switch a {
	case ActionRelease:
		return "release"
	case ActionUpdateOnly:
		return "update versions"
	default:
		return "cancel"
	}
}

// Request asks the operator to confirm a run.
type Request struct {
	Project           string
	Results           []diff.Result
	Repositories      []string
	DefaultRepository string
	UpdateOnly        bool
}

// Decision is the operator's answer. Overrides holds versions the operator
// changed; the diff results themselves are never edited.
type Decision struct {
	Action     Action
	Repository string
	Overrides  diff.Overrides
}

// Surface renders to the operator. Its methods are only ever called from
// the loop goroutine.
type Surface interface {
	Confirm(ctx context.Context, req Request) (Decision, error)
	ShowErrors(project string, phase release.Phase, records []release.ErrorRecord) error
	ShowSummary(summary release.Summary) error
}

type message struct {
	run   func(Surface) error
	reply chan error
}

// Loop serializes all surface access onto one goroutine.
type Loop struct {
	surface  Surface
	logger   *slog.Logger
	messages chan message
	quit     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// NewLoop starts the consumer goroutine. Call Close to stop it.
func NewLoop(surface Surface, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = logging.NewNop()
	}
	l := &Loop{
		surface:  surface,
		logger:   logging.NewComponentLogger(logger, "ui"),
		messages: make(chan message),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go l.consume()
	return l
}

func (l *Loop) consume() {
	defer close(l.done)
	for {
		select {
		case msg := <-l.messages:
			msg.reply <- l.handle(msg)
		case <-l.quit:
			return
		}
	}
}

func (l *Loop) handle(msg message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ui surface panic: %v", r)
		}
	}()
	return msg.run(l.surface)
}

// Close stops the loop and waits for the consumer to exit.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.quit) })
	<-l.done
}

func (l *Loop) post(ctx context.Context, run func(Surface) error) error {
	msg := message{run: run, reply: make(chan error, 1)}
	select {
	case l.messages <- msg:
	case <-l.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-msg.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Confirm asks the operator to confirm req and blocks for the answer.
func (l *Loop) Confirm(ctx context.Context, req Request) (Decision, error) {
	var decision Decision
	err := l.post(ctx, func(s Surface) error {
		var err error
		decision, err = s.Confirm(ctx, req)
		return err
	})
	if err != nil {
		return Decision{}, err
	}
	if decision.Overrides == nil {
		decision.Overrides = diff.Overrides{}
	}
	return decision, nil
}

// ShowErrors implements release.Presenter. It blocks until the report has
// been rendered.
func (l *Loop) ShowErrors(ctx context.Context, project string, phase release.Phase, records []release.ErrorRecord) {
	err := l.post(ctx, func(s Surface) error {
		return s.ShowErrors(project, phase, records)
	})
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, l.logger), "error report not shown", "ui_report_failed",
			logging.Error(err),
			logging.Int("records", len(records)),
		)
	}
}

// ShowSummary renders the end-of-run summary.
func (l *Loop) ShowSummary(ctx context.Context, summary release.Summary) error {
	return l.post(ctx, func(s Surface) error {
		return s.ShowSummary(summary)
	})
}
