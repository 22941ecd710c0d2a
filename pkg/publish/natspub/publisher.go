// Package natspub forwards controller outputs to NATS subjects and answers
// snapshot requests.
package natspub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mpapenbr/f1-race-engineer/log"
	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/pkg/session"
	"github.com/mpapenbr/f1-race-engineer/pkg/utils/broadcast"
)

const DefaultPrefix = "fre"

var ErrSnapshotNotFound = errors.New("snapshot not found")

// Source is what the publisher reads from, usually a *session.Controller
type Source interface {
	Events() broadcast.BroadcastServer[model.Event]
	Status() broadcast.BroadcastServer[model.StatusChange]
	Laps() broadcast.BroadcastServer[model.LapSummary]
	Sessions() broadcast.BroadcastServer[model.SessionSummary]
	Snapshot(driverID string) (model.DriverSnapshot, bool)
	View() *session.View
}

type (
	Publisher struct {
		conn   *nats.Conn
		prefix string
		l      *log.Logger
		bucket string
		ttl    time.Duration
		kv     jetstream.KeyValue
	}
	Option func(*Publisher)

	//nolint:tagliatelle // consumer compatibility
	errorReply struct {
		Error string `json:"error"`
	}
)

func WithLogger(l *log.Logger) Option {
	return func(p *Publisher) {
		p.l = l
	}
}

// WithPrefix sets the first subject token
func WithPrefix(prefix string) Option {
	return func(p *Publisher) {
		p.prefix = prefix
	}
}

// WithKeyValue keeps the latest status and session summaries in a
// jetstream key value bucket
func WithKeyValue(bucket string, ttl time.Duration) Option {
	return func(p *Publisher) {
		p.bucket = bucket
		p.ttl = ttl
	}
}

func NewPublisher(conn *nats.Conn, opts ...Option) (*Publisher, error) {
	ret := &Publisher{
		conn:   conn,
		prefix: DefaultPrefix,
		l:      log.Default().Named("nats"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.bucket != "" {
		if err := ret.setupKV(); err != nil {
			return nil, fmt.Errorf("setup key value bucket %s: %w", ret.bucket, err)
		}
	}
	return ret, nil
}

func (p *Publisher) setupKV() error {
	js, err := jetstream.New(p.conn)
	if err != nil {
		return err
	}
	p.kv, err = js.CreateOrUpdateKeyValue(context.Background(), jetstream.KeyValueConfig{
		Bucket: p.bucket,
		TTL:    p.ttl,
	})
	return err
}

func (p *Publisher) EventSubject(driverID string) string {
	return p.subject("event", token(driverID))
}

func (p *Publisher) StatusSubject() string {
	return p.subject("status")
}

func (p *Publisher) LapSubject(driverID string) string {
	return p.subject("lap", token(driverID))
}

func (p *Publisher) SessionSubject(driverID string) string {
	return p.subject("session", token(driverID))
}

// SnapshotSubject answers requests with the current snapshot of the driver
func (p *Publisher) SnapshotSubject(driverID string) string {
	return p.subject("snapshot", token(driverID))
}

// ViewSubject answers requests with the full controller view
func (p *Publisher) ViewSubject() string {
	return p.subject("view")
}

// Subscription holds the source channels and request handlers of a publisher
type Subscription struct {
	src      Source
	requests []*nats.Subscription
	events   <-chan model.Event
	status   <-chan model.StatusChange
	laps     <-chan model.LapSummary
	sessions <-chan model.SessionSummary
}

// Subscribe registers the request handlers and subscribes to src.
// It must be called before src starts publishing.
func (p *Publisher) Subscribe(src Source) (*Subscription, error) {
	sub := &Subscription{src: src}
	for subject, handler := range map[string]nats.MsgHandler{
		p.subject("snapshot", "*"): func(msg *nats.Msg) { p.replySnapshot(src, msg) },
		p.ViewSubject():            func(msg *nats.Msg) { p.respond(msg, src.View()) },
	} {
		ns, err := p.conn.Subscribe(subject, handler)
		if err != nil {
			sub.unsubscribe()
			return nil, fmt.Errorf("subscribe %s: %w", subject, err)
		}
		sub.requests = append(sub.requests, ns)
	}
	if err := p.conn.Flush(); err != nil {
		sub.unsubscribe()
		return nil, fmt.Errorf("flush request subscriptions: %w", err)
	}
	sub.events = src.Events().Subscribe()
	sub.status = src.Status().Subscribe()
	sub.laps = src.Laps().Subscribe()
	sub.sessions = src.Sessions().Subscribe()
	return sub, nil
}

func (s *Subscription) unsubscribe() {
	for _, ns := range s.requests {
		ns.Unsubscribe() //nolint:errcheck // shutdown
	}
}

func (s *Subscription) cancel() {
	s.unsubscribe()
	s.src.Events().CancelSubscription(s.events)
	s.src.Status().CancelSubscription(s.status)
	s.src.Laps().CancelSubscription(s.laps)
	s.src.Sessions().CancelSubscription(s.sessions)
}

// Run subscribes to src and consumes it
func (p *Publisher) Run(ctx context.Context, src Source) error {
	sub, err := p.Subscribe(src)
	if err != nil {
		return err
	}
	return p.Consume(ctx, sub)
}

// Consume forwards outputs until ctx is done or all source channels are closed
//
//nolint:cyclop // by design
func (p *Publisher) Consume(ctx context.Context, sub *Subscription) error {
	defer sub.cancel()
	// local copies are set to nil once closed
	evCh, stCh, lapCh, sessCh := sub.events, sub.status, sub.laps, sub.sessions

	p.l.Info("publishing", log.String("prefix", p.prefix))
	for evCh != nil || stCh != nil || lapCh != nil || sessCh != nil {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-evCh:
			if !ok {
				evCh = nil
				continue
			}
			p.publish(p.EventSubject(ev.DriverID), ev)
		case st, ok := <-stCh:
			if !ok {
				stCh = nil
				continue
			}
			p.publish(p.StatusSubject(), st)
			p.put(ctx, "status", st)
		case lap, ok := <-lapCh:
			if !ok {
				lapCh = nil
				continue
			}
			p.publish(p.LapSubject(lap.DriverID), lap)
		case s, ok := <-sessCh:
			if !ok {
				sessCh = nil
				continue
			}
			p.publish(p.SessionSubject(s.DriverID), s)
			p.put(ctx, "session."+token(s.DriverID), s)
		}
	}
	return nil
}

func (p *Publisher) replySnapshot(src Source, msg *nats.Msg) {
	id := msg.Subject[strings.LastIndex(msg.Subject, ".")+1:]
	snap, ok := src.Snapshot(id)
	if !ok {
		p.respond(msg, errorReply{Error: ErrSnapshotNotFound.Error()})
		return
	}
	p.respond(msg, snap)
}

func (p *Publisher) respond(msg *nats.Msg, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		p.l.Error("error encoding reply", log.String("subject", msg.Subject),
			log.ErrorField(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		p.l.Debug("reply not sent", log.String("subject", msg.Subject),
			log.ErrorField(err))
	}
}

func (p *Publisher) publish(subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		p.l.Error("error encoding message", log.String("subject", subject),
			log.ErrorField(err))
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.l.Warn("publish failed", log.String("subject", subject), log.ErrorField(err))
	}
}

func (p *Publisher) put(ctx context.Context, key string, v any) {
	if p.kv == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	rev, err := p.kv.Put(ctx, key, data)
	p.l.Debug("kv put", log.String("key", key), log.Uint64("rev", rev),
		log.ErrorField(err))
}

// Latest returns the stored value of key from the key value bucket
func (p *Publisher) Latest(ctx context.Context, key string, v any) error {
	if p.kv == nil {
		return jetstream.ErrBucketNotFound
	}
	kve, err := p.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(kve.Value(), v)
}

func (p *Publisher) subject(parts ...string) string {
	return p.prefix + "." + strings.Join(parts, ".")
}

// token makes s usable as a single subject token
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}
