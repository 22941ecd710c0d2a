// Package archive persists lap and session summaries and emitted events.
// Writes go through a circuit breaker, an unavailable database never slows
// down the live outputs.
package archive

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/mpapenbr/f1-race-engineer/log"
	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/pkg/utils/broadcast"
)

const (
	DefaultWriteTimeout = 5 * time.Second
	defaultTripAfter    = 5
	defaultOpenTimeout  = 30 * time.Second
)

type Store interface {
	SaveLap(ctx context.Context, l *model.LapSummary) error
	SaveSession(ctx context.Context, s *model.SessionSummary) error
	SaveEvent(ctx context.Context, ev *model.Event) error
}

type Source interface {
	Events() broadcast.BroadcastServer[model.Event]
	Laps() broadcast.BroadcastServer[model.LapSummary]
	Sessions() broadcast.BroadcastServer[model.SessionSummary]
}

type Stats struct {
	Written  int64
	Failed   int64
	Rejected int64
}

type (
	Archiver struct {
		store        Store
		l            *log.Logger
		settings     gobreaker.Settings
		breaker      *gobreaker.CircuitBreaker[struct{}]
		writeTimeout time.Duration
		events       bool
		written      atomic.Int64
		failed       atomic.Int64
		rejected     atomic.Int64
	}
	Option func(*Archiver)
)

func WithLogger(l *log.Logger) Option {
	return func(a *Archiver) {
		a.l = l
	}
}

// WithBreakerSettings replaces the circuit breaker configuration
func WithBreakerSettings(s gobreaker.Settings) Option {
	return func(a *Archiver) {
		a.settings = s
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(a *Archiver) {
		a.writeTimeout = d
	}
}

// WithEvents enables storing emitted events
func WithEvents(enabled bool) Option {
	return func(a *Archiver) {
		a.events = enabled
	}
}

func NewArchiver(store Store, opts ...Option) *Archiver {
	ret := &Archiver{
		store:        store,
		l:            log.Default().Named("archive"),
		writeTimeout: DefaultWriteTimeout,
		settings: gobreaker.Settings{
			Name:        "archive",
			MaxRequests: 1,
			Timeout:     defaultOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= defaultTripAfter
			},
		},
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.settings.OnStateChange == nil {
		ret.settings.OnStateChange = func(name string, from, to gobreaker.State) {
			ret.l.Warn("circuit breaker state changed",
				log.String("name", name),
				log.String("from", from.String()),
				log.String("to", to.String()))
		}
	}
	ret.breaker = gobreaker.NewCircuitBreaker[struct{}](ret.settings)
	return ret
}

func (a *Archiver) Stats() Stats {
	return Stats{
		Written:  a.written.Load(),
		Failed:   a.failed.Load(),
		Rejected: a.rejected.Load(),
	}
}

func (a *Archiver) State() gobreaker.State {
	return a.breaker.State()
}

// Subscription holds the source channels an archiver reads from.
// Subscribe before the source starts publishing, earlier items are lost.
type Subscription struct {
	src      Source
	laps     <-chan model.LapSummary
	sessions <-chan model.SessionSummary
	events   <-chan model.Event
}

func (a *Archiver) Subscribe(src Source) *Subscription {
	sub := &Subscription{
		src:      src,
		laps:     src.Laps().Subscribe(),
		sessions: src.Sessions().Subscribe(),
	}
	if a.events {
		sub.events = src.Events().Subscribe()
	}
	return sub
}

func (s *Subscription) cancel() {
	s.src.Laps().CancelSubscription(s.laps)
	s.src.Sessions().CancelSubscription(s.sessions)
	if s.events != nil {
		s.src.Events().CancelSubscription(s.events)
	}
}

// Run subscribes to src and consumes it
func (a *Archiver) Run(ctx context.Context, src Source) error {
	return a.Consume(ctx, a.Subscribe(src))
}

// Consume stores items until ctx is done or the source channels are closed.
// Items received after ctx is done are not stored.
//
//nolint:cyclop // by design
func (a *Archiver) Consume(ctx context.Context, sub *Subscription) error {
	defer sub.cancel()
	lapCh, sessCh, evCh := sub.laps, sub.sessions, sub.events

	for lapCh != nil || sessCh != nil || evCh != nil {
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lapCh:
			if !ok {
				lapCh = nil
				continue
			}
			a.write(ctx, "lap", func(ctx context.Context) error {
				return a.store.SaveLap(ctx, &l)
			})
		case s, ok := <-sessCh:
			if !ok {
				sessCh = nil
				continue
			}
			a.write(ctx, "session", func(ctx context.Context) error {
				return a.store.SaveSession(ctx, &s)
			})
		case ev, ok := <-evCh:
			if !ok {
				evCh = nil
				continue
			}
			a.write(ctx, "event", func(ctx context.Context) error {
				return a.store.SaveEvent(ctx, &ev)
			})
		}
	}
	return nil
}

func (a *Archiver) write(ctx context.Context, kind string, f func(context.Context) error) {
	_, err := a.breaker.Execute(func() (struct{}, error) {
		wCtx, cancel := context.WithTimeout(ctx, a.writeTimeout)
		defer cancel()
		return struct{}{}, f(wCtx)
	})
	switch {
	case err == nil:
		a.written.Add(1)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		a.rejected.Add(1)
		a.l.Debug("write rejected", log.String("kind", kind), log.ErrorField(err))
	default:
		a.failed.Add(1)
		a.l.Warn("write failed", log.String("kind", kind), log.ErrorField(err))
	}
}
