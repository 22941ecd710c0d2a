// Package session runs the ingestion loop and its lifecycle.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/mpapenbr/f1-race-engineer/log"
	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/pkg/network"
	"github.com/mpapenbr/f1-race-engineer/pkg/packet"
	"github.com/mpapenbr/f1-race-engineer/pkg/processing"
	"github.com/mpapenbr/f1-race-engineer/pkg/profile"
	"github.com/mpapenbr/f1-race-engineer/pkg/utils/broadcast"
)

const (
	DefaultQueueSize    = 256
	DefaultSilence      = 30 * time.Second
	DefaultOutputBuffer = 64

	minWatchInterval = 10 * time.Millisecond
	maxWatchInterval = time.Second
)

var (
	ErrRunning = errors.New("controller already running")
	ErrClosed  = errors.New("controller closed")
)

// View is an immutable copy of the controller state
type View struct {
	State      model.State
	Session    model.Session
	HasSession bool
	Snapshots  []model.DriverSnapshot
	UpdatedAt  time.Time
}

type Controller struct {
	log          *log.Logger
	listener     *network.Listener
	listenerOpts []network.Option
	proc         *processing.Processor
	profiles     profile.Provider
	queueSize    int
	silence      time.Duration
	now          func() time.Time
	metrics      *metrics
	running      atomic.Bool
	closed       atomic.Bool
	closeOnce    sync.Once
	view         atomic.Pointer[View]

	// owned by the processing goroutine while running
	queue        *Queue
	state        model.State
	lastDatagram time.Time
	resume       bool
	runCtx       context.Context
	profileCh    chan model.Profile

	eventSrc   chan model.Event
	statusSrc  chan model.StatusChange
	lapSrc     chan model.LapSummary
	sessionSrc chan model.SessionSummary
	events     broadcast.BroadcastServer[model.Event]
	status     broadcast.BroadcastServer[model.StatusChange]
	laps       broadcast.BroadcastServer[model.LapSummary]
	sessions   broadcast.BroadcastServer[model.SessionSummary]
}

type Option func(c *Controller)

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// WithListenerOptions configures the UDP listener
func WithListenerOptions(opts ...network.Option) Option {
	return func(c *Controller) {
		c.listenerOpts = append(c.listenerOpts, opts...)
	}
}

func WithProcessor(p *processing.Processor) Option {
	return func(c *Controller) {
		c.proc = p
	}
}

// WithProfiles sets the source of driver profiles, loaded on every new session
func WithProfiles(p profile.Provider) Option {
	return func(c *Controller) {
		c.profiles = p
	}
}

func WithQueueSize(n int) Option {
	return func(c *Controller) {
		c.queueSize = n
	}
}

// WithSilence sets the time without datagrams after which an active session stalls
func WithSilence(d time.Duration) Option {
	return func(c *Controller) {
		c.silence = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func New(opts ...Option) (*Controller, error) {
	c := &Controller{
		log:       log.Default().Named("session"),
		queueSize: DefaultQueueSize,
		silence:   DefaultSilence,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.metrics = newMetrics(c.log)
	c.listener = network.NewListener(append([]network.Option{
		network.WithLogger(c.log.Named("udp")),
		network.WithStats(c.metrics),
	}, c.listenerOpts...)...)
	if c.proc == nil {
		p, err := processing.NewProcessor(processing.WithLogger(c.log.Named("processor")))
		if err != nil {
			return nil, err
		}
		c.proc = p
	}
	c.eventSrc = make(chan model.Event, DefaultOutputBuffer)
	c.statusSrc = make(chan model.StatusChange, DefaultOutputBuffer)
	c.lapSrc = make(chan model.LapSummary, DefaultOutputBuffer)
	c.sessionSrc = make(chan model.SessionSummary, DefaultOutputBuffer)
	c.events = broadcast.NewBroadcastServer("events", c.eventSrc)
	c.status = broadcast.NewBroadcastServer("status", c.statusSrc)
	c.laps = broadcast.NewBroadcastServer("laps", c.lapSrc)
	c.sessions = broadcast.NewBroadcastServer("sessions", c.sessionSrc)
	c.publishView()
	return c, nil
}

func (c *Controller) Events() broadcast.BroadcastServer[model.Event] { return c.events }

func (c *Controller) Status() broadcast.BroadcastServer[model.StatusChange] { return c.status }

func (c *Controller) Laps() broadcast.BroadcastServer[model.LapSummary] { return c.laps }

func (c *Controller) Sessions() broadcast.BroadcastServer[model.SessionSummary] {
	return c.sessions
}

// View returns the state published after the last processed datagram
func (c *Controller) View() *View {
	return c.view.Load()
}

func (c *Controller) State() model.State {
	return c.view.Load().State
}

func (c *Controller) Snapshot(driverID string) (model.DriverSnapshot, bool) {
	return lo.Find(c.view.Load().Snapshots, func(s model.DriverSnapshot) bool {
		return s.DriverID == driverID
	})
}

// Close ends the outputs once pending items are delivered, subscriber
// channels are closed then. Call after Run returned.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.eventSrc)
		close(c.statusSrc)
		close(c.lapSrc)
		close(c.sessionSrc)
	})
}

// Run binds the socket and processes datagrams until ctx is done.
// Only a bind failure is returned as error. Pending datagrams are processed
// before Run returns to Idle.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer c.running.Store(false)
	if c.closed.Load() {
		return ErrClosed
	}
	if err := c.listener.Bind(); err != nil {
		return err
	}
	c.queue = NewQueue(c.queueSize)
	c.profileCh = make(chan model.Profile, len(c.proc.DriverIDs()))
	c.resume = false
	c.lastDatagram = c.now()
	c.transition(model.StateListening, model.StatusTransition)

	g, gctx := errgroup.WithContext(ctx)
	c.runCtx = gctx
	g.Go(func() error {
		defer c.queue.Close()
		defer c.listener.Close()
		return c.listener.Run(gctx, c.receive)
	})
	g.Go(c.process)
	err := g.Wait()

	for _, s := range c.proc.Flush() {
		publish(c, c.sessionSrc, s, "sessions")
	}
	c.transition(model.StateIdle, model.StatusTransition)
	return err
}

// receive runs on the listener goroutine
func (c *Controller) receive(data []byte) {
	if c.queue.Push(data) {
		c.metrics.queueDrops.Add(context.Background(), 1)
	}
}

func (c *Controller) process() error {
	ticker := time.NewTicker(c.watchInterval())
	defer ticker.Stop()
	for {
		select {
		case <-c.queue.Ready():
			for {
				data, ok := c.queue.Pop()
				if !ok {
					break
				}
				c.handle(data)
			}
			if c.queue.Done() {
				return nil
			}
		case p := <-c.profileCh:
			c.proc.SetProfile(p)
		case <-ticker.C:
			c.checkSilence()
		}
	}
}

func (c *Controller) watchInterval() time.Duration {
	return min(max(c.silence/4, minWatchInterval), maxWatchInterval)
}

//nolint:funlen // sequential steps
func (c *Controller) handle(data []byte) {
	now := c.now()
	c.lastDatagram = now
	if c.state == model.StateStalled {
		c.transition(model.StateListening, model.StatusTransition)
	}
	out, err := c.proc.ProcessDatagram(now, data)
	if err != nil {
		c.metrics.decodeError(decodeReason(err))
		c.log.Debug("datagram discarded", log.Int("len", len(data)), log.ErrorField(err))
		return
	}
	if out.Dropped {
		c.metrics.dropped(out.Kind)
	}
	for i := range out.Sessions {
		publish(c, c.sessionSrc, out.Sessions[i], "sessions")
	}
	if out.Rollover {
		c.log.Info("session started", log.Stringer("session", out.Session))
		c.loadProfiles()
	}
	for i := range out.Laps {
		publish(c, c.lapSrc, out.Laps[i], "laps")
	}
	if !out.Dropped && c.state == model.StateListening {
		kind := model.StatusTransition
		if c.resume {
			kind = model.StatusTelemetryResumed
			c.resume = false
		}
		c.transition(model.StateActive, kind)
	}
	if len(out.Deltas) > 0 || out.Rollover {
		c.publishView()
	}
	for i := range out.Events {
		c.metrics.event(string(out.Events[i].Rule))
		publish(c, c.eventSrc, out.Events[i], "events")
	}
}

func (c *Controller) checkSilence() {
	if c.state != model.StateActive || c.now().Sub(c.lastDatagram) < c.silence {
		return
	}
	c.resume = true
	c.transition(model.StateStalled, model.StatusTelemetryLost)
}

func (c *Controller) transition(to model.State, kind model.StatusKind) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	sess, _ := c.proc.Session()
	change := model.StatusChange{
		From:       from,
		To:         to,
		Kind:       kind,
		SessionUID: sess.UID,
		Timestamp:  c.now(),
	}
	c.log.Info("state changed",
		log.Stringer("from", from), log.Stringer("to", to),
		log.String("kind", string(kind)))
	publish(c, c.statusSrc, change, "status")
	c.publishView()
}

// loadProfiles fetches the profiles of all tracked drivers in the background.
// Results are applied on the processing goroutine.
func (c *Controller) loadProfiles() {
	ctx := log.AddToContext(c.runCtx, c.log.Named("profile"))
	for _, id := range c.proc.DriverIDs() {
		go func() {
			p, err := profile.LoadOrDefault(ctx, c.profiles, id)
			if err != nil {
				c.log.Debug("using default profile",
					log.String("driver", id), log.ErrorField(err))
			}
			select {
			case c.profileCh <- p:
			case <-ctx.Done():
			}
		}()
	}
}

func (c *Controller) publishView() {
	sess, ok := c.proc.Session()
	c.view.Store(&View{
		State:      c.state,
		Session:    sess,
		HasSession: ok,
		Snapshots:  c.proc.Snapshots(),
		UpdatedAt:  c.now(),
	})
}

func publish[T any](c *Controller, ch chan T, v T, output string) {
	select {
	case ch <- v:
	default:
		c.metrics.outputDropped(output)
		c.log.Debug("output dropped", log.String("output", output))
	}
}

func decodeReason(err error) string {
	switch {
	case errors.Is(err, packet.ErrShortHeader):
		return "short-header"
	case errors.Is(err, packet.ErrUnsupportedFormat):
		return "format"
	case errors.Is(err, packet.ErrSizeMismatch):
		return "size"
	}
	return "other"
}
