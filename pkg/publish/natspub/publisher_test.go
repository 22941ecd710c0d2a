//nolint:thelper,funlen,errcheck // ok for tests
package natspub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/pkg/session"
	"github.com/mpapenbr/f1-race-engineer/pkg/utils/broadcast"
	"github.com/mpapenbr/f1-race-engineer/testsupport/tcnats"
)

var (
	connOnce sync.Once
	testConn *nats.Conn
)

func natsConn() *nats.Conn {
	connOnce.Do(func() { testConn = tcnats.SetupNats() })
	return testConn
}

type fakeSource struct {
	eventSrc   chan model.Event
	statusSrc  chan model.StatusChange
	lapSrc     chan model.LapSummary
	sessionSrc chan model.SessionSummary
	events     broadcast.BroadcastServer[model.Event]
	status     broadcast.BroadcastServer[model.StatusChange]
	laps       broadcast.BroadcastServer[model.LapSummary]
	sessions   broadcast.BroadcastServer[model.SessionSummary]
	snapshots  map[string]model.DriverSnapshot
}

func newFakeSource() *fakeSource {
	f := &fakeSource{
		eventSrc:   make(chan model.Event),
		statusSrc:  make(chan model.StatusChange),
		lapSrc:     make(chan model.LapSummary),
		sessionSrc: make(chan model.SessionSummary),
		snapshots:  map[string]model.DriverSnapshot{},
	}
	f.events = broadcast.NewBroadcastServer("events", f.eventSrc)
	f.status = broadcast.NewBroadcastServer("status", f.statusSrc)
	f.laps = broadcast.NewBroadcastServer("laps", f.lapSrc)
	f.sessions = broadcast.NewBroadcastServer("sessions", f.sessionSrc)
	return f
}

func (f *fakeSource) Events() broadcast.BroadcastServer[model.Event] { return f.events }

func (f *fakeSource) Status() broadcast.BroadcastServer[model.StatusChange] {
	return f.status
}

func (f *fakeSource) Laps() broadcast.BroadcastServer[model.LapSummary] { return f.laps }

func (f *fakeSource) Sessions() broadcast.BroadcastServer[model.SessionSummary] {
	return f.sessions
}

func (f *fakeSource) Snapshot(id string) (model.DriverSnapshot, bool) {
	s, ok := f.snapshots[id]
	return s, ok
}

func (f *fakeSource) View() *session.View {
	return &session.View{State: model.StateActive}
}

func (f *fakeSource) close() {
	close(f.eventSrc)
	close(f.statusSrc)
	close(f.lapSrc)
	close(f.sessionSrc)
}

func TestToken(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "player", "player"},
		{"empty", "", "_"},
		{"dots", "team.one", "team_one"},
		{"wildcards", "a*b>c", "a_b_c"},
		{"spaces", "max verstappen", "max_verstappen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, token(tt.in))
		})
	}
}

func TestPublisher_Subjects(t *testing.T) {
	p := &Publisher{prefix: "x"}
	assert.Equal(t, "x.event.player", p.EventSubject("player"))
	assert.Equal(t, "x.status", p.StatusSubject())
	assert.Equal(t, "x.lap.car_3", p.LapSubject("car.3"))
	assert.Equal(t, "x.session.player", p.SessionSubject("player"))
	assert.Equal(t, "x.snapshot.player", p.SnapshotSubject("player"))
	assert.Equal(t, "x.view", p.ViewSubject())
}

func startPublisher(t *testing.T, src *fakeSource, opts ...Option) *Publisher {
	p, err := NewPublisher(natsConn(), append([]Option{WithPrefix(t.Name())}, opts...)...)
	require.NoError(t, err)
	sub, err := p.Subscribe(src)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Consume(ctx, sub) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return p
}

func TestPublisher_Events(t *testing.T) {
	src := newFakeSource()
	defer src.close()
	p := startPublisher(t, src)

	sub, err := natsConn().SubscribeSync(p.EventSubject("player"))
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, natsConn().Flush())

	ev := model.Event{
		ID:       uuid.New(),
		Rule:     model.RuleFuelCritical,
		DriverID: "player",
		Priority: 100,
		Payload:  model.Payload{"laps": 1.5},
	}
	src.eventSrc <- ev

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	var got model.Event
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, ev.Rule, got.Rule)
	assert.InDelta(t, 1.5, got.Payload["laps"], 1e-9)
}

func TestPublisher_SnapshotRequest(t *testing.T) {
	src := newFakeSource()
	defer src.close()
	snap := model.NewDriverSnapshot("player")
	snap.Lap.Position = 3
	src.snapshots["player"] = snap
	p := startPublisher(t, src)

	msg, err := natsConn().Request(p.SnapshotSubject("player"), nil, 2*time.Second)
	require.NoError(t, err)
	var got model.DriverSnapshot
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, uint8(3), got.Lap.Position)

	msg, err = natsConn().Request(p.SnapshotSubject("nobody"), nil, 2*time.Second)
	require.NoError(t, err)
	var reply errorReply
	require.NoError(t, json.Unmarshal(msg.Data, &reply))
	assert.Equal(t, ErrSnapshotNotFound.Error(), reply.Error)
}

func TestPublisher_KeyValue(t *testing.T) {
	src := newFakeSource()
	defer src.close()
	p := startPublisher(t, src, WithKeyValue("fre_test", time.Hour))

	src.statusSrc <- model.StatusChange{
		From: model.StateListening, To: model.StateActive,
		Kind: model.StatusTransition, SessionUID: 7,
	}
	src.sessionSrc <- model.SessionSummary{DriverID: "player", SessionUID: 7, FinalPosition: 2}

	assert.Eventually(t, func() bool {
		var s model.SessionSummary
		return p.Latest(context.Background(), "session.player", &s) == nil &&
			s.FinalPosition == 2
	}, 2*time.Second, 20*time.Millisecond)

	var st model.StatusChange
	require.NoError(t, p.Latest(context.Background(), "status", &st))
	assert.Equal(t, uint64(7), st.SessionUID)
	assert.Equal(t, model.StateActive, st.To)
}

func TestPublisher_SubscribeBeforeConsume(t *testing.T) {
	src := newFakeSource()
	defer src.close()
	p, err := NewPublisher(natsConn(), WithPrefix(t.Name()))
	require.NoError(t, err)
	sub, err := p.Subscribe(src)
	require.NoError(t, err)

	status, err := natsConn().SubscribeSync(p.StatusSubject())
	require.NoError(t, err)
	defer status.Unsubscribe()
	require.NoError(t, natsConn().Flush())

	// the first status change happens before the consumer runs
	sent := make(chan struct{})
	go func() {
		defer close(sent)
		src.statusSrc <- model.StatusChange{From: model.StateIdle, To: model.StateListening}
	}()
	<-sent
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Consume(ctx, sub) }()
	defer func() {
		cancel()
		<-done
	}()

	msg, err := status.NextMsg(2 * time.Second)
	require.NoError(t, err)
	var got model.StatusChange
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, model.StateListening, got.To)
}
