//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/pkg/network"
	"github.com/mpapenbr/f1-race-engineer/pkg/packet"
	"github.com/mpapenbr/f1-race-engineer/pkg/profile"
	"github.com/mpapenbr/f1-race-engineer/testsupport/f1packets"
)

const uid uint64 = 0xF125

type harness struct {
	ctrl   *Controller
	sock   *network.MockSocket
	cancel context.CancelFunc
	done   chan error
}

func newHarness(t *testing.T, opts ...Option) *harness {
	return newHarnessWithSocket(t, network.NewMockSocket(1024), opts...)
}

func newHarnessWithSocket(t *testing.T, sock *network.MockSocket, opts ...Option) *harness {
	all := append([]Option{
		WithListenerOptions(network.WithSocketFactory(&network.MockFactory{Socket: sock})),
	}, opts...)
	ctrl, err := New(all...)
	require.NoError(t, err)
	t.Cleanup(ctrl.Close)
	return &harness{ctrl: ctrl, sock: sock, done: make(chan error, 1)}
}

func (h *harness) start() {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.ctrl.Run(ctx) }()
}

func (h *harness) stop(t *testing.T) {
	h.cancel()
	select {
	case err := <-h.done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not stop")
	}
}

type transition struct {
	From, To model.State
	Kind     model.StatusKind
}

func expectStatus(t *testing.T, ch <-chan model.StatusChange, want ...transition) {
	for _, w := range want {
		select {
		case got := <-ch:
			assert.Equal(t, w, transition{got.From, got.To, got.Kind})
		case <-time.After(2 * time.Second):
			t.Fatalf("missing status change %v", w)
		}
	}
}

func waitEvent(t *testing.T, ch <-chan model.Event) model.Event {
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
	}
	return model.Event{}
}

func raceSession(frame uint32) []byte {
	return f1packets.Session(f1packets.Solo(uid, frame), f1packets.RaceSession(20))
}

func lapData(frame, lapTime uint32) []byte {
	return f1packets.LapData(f1packets.Solo(uid, frame), map[int]packet.LapEntry{
		0: {CarPosition: 4, CurrentLapNum: 3, CurrentLapTimeMS: lapTime},
	})
}

func wear(frame uint32, pct float32) []byte {
	return f1packets.CarDamage(f1packets.Solo(uid, frame), map[int]packet.DamageEntry{0: f1packets.Wear(pct)})
}

func TestController_Lifecycle(t *testing.T) {
	h := newHarness(t, WithSilence(100*time.Millisecond))
	status := h.ctrl.Status().Subscribe()
	assert.Equal(t, model.StateIdle, h.ctrl.State())

	h.start()
	expectStatus(t, status, transition{model.StateIdle, model.StateListening, model.StatusTransition})

	// garbage keeps the controller listening
	h.sock.Feed([]byte{1, 2, 3})
	h.sock.Feed(raceSession(1))
	expectStatus(t, status, transition{model.StateListening, model.StateActive, model.StatusTransition})

	expectStatus(t, status, transition{model.StateActive, model.StateStalled, model.StatusTelemetryLost})
	assert.Equal(t, model.StateStalled, h.ctrl.State())
	v := h.ctrl.View()
	assert.True(t, v.HasSession, "state is kept while stalled")
	assert.Equal(t, uid, v.Session.UID)

	h.sock.Feed(lapData(2, 1000))
	expectStatus(t, status,
		transition{model.StateStalled, model.StateListening, model.StatusTransition},
		transition{model.StateListening, model.StateActive, model.StatusTelemetryResumed})

	h.stop(t)
	for {
		select {
		case got := <-status:
			if got.To != model.StateIdle {
				continue
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no transition to idle")
		}
		break
	}
	assert.Equal(t, model.StateIdle, h.ctrl.State())
}

func TestController_EventsAndSnapshots(t *testing.T) {
	h := newHarness(t)
	events := h.ctrl.Events().Subscribe()
	sessions := h.ctrl.Sessions().Subscribe()
	h.start()

	h.sock.Feed(raceSession(1))
	h.sock.Feed(lapData(2, 1500))
	h.sock.Feed(wear(3, 50))
	h.sock.Feed(wear(4, 85))

	ev := waitEvent(t, events)
	assert.Equal(t, model.RuleTyreWearCritical, ev.Rule)
	assert.Equal(t, "player", ev.DriverID)
	assert.Equal(t, uid, ev.SessionUID)

	snap, ok := h.ctrl.Snapshot("player")
	require.True(t, ok)
	assert.Equal(t, uint8(4), snap.Lap.Position)
	assert.Equal(t, model.Corners{85, 85, 85, 85}, snap.Tyres.Wear)
	_, ok = h.ctrl.Snapshot("nobody")
	assert.False(t, ok)

	flushed := make(chan model.SessionSummary, 1)
	go func() {
		if s, ok := <-sessions; ok {
			flushed <- s
		}
	}()
	h.stop(t)
	select {
	case s := <-flushed:
		assert.Equal(t, uid, s.SessionUID, "shutdown flushes the running session")
		assert.Equal(t, uint8(4), s.FinalPosition)
	case <-time.After(2 * time.Second):
		t.Fatal("no session summary")
	}
}

func TestController_Backpressure(t *testing.T) {
	const (
		queueSize = 4
		burst     = 500
	)
	// processing stalls in the clock while hold is set
	var hold atomic.Bool
	release := make(chan struct{})
	clock := func() time.Time {
		if hold.Load() {
			<-release
		}
		return time.Now()
	}
	// the socket holds far less than the burst, so a blocked receiver blocks Feed
	h := newHarnessWithSocket(t, network.NewMockSocket(8), WithQueueSize(queueSize), WithClock(clock))
	status := h.ctrl.Status().Subscribe()
	h.start()
	h.sock.Feed(raceSession(1))
	expectStatus(t, status,
		transition{model.StateIdle, model.StateListening, model.StatusTransition},
		transition{model.StateListening, model.StateActive, model.StatusTransition})

	hold.Store(true)
	fed := make(chan struct{})
	go func() {
		defer close(fed)
		for i := uint32(1); i <= burst; i++ {
			h.sock.Feed(lapData(i+1, i))
		}
	}()
	select {
	case <-fed:
	case <-time.After(2 * time.Second):
		t.Fatal("receiver blocked")
	}
	// at most one datagram is in processing, the queue keeps the newest ones
	assert.Eventually(t, func() bool {
		return h.ctrl.queue.Dropped() >= burst-1-queueSize
	}, time.Second, 5*time.Millisecond, "full queue drops")

	hold.Store(false)
	close(release)
	assert.Eventually(t, func() bool {
		snap, ok := h.ctrl.Snapshot("player")
		return ok && snap.Lap.CurrentLapTimeMS == burst
	}, 2*time.Second, 10*time.Millisecond, "newest datagram is observed")
	h.stop(t)
}

func TestController_ProfilesOnSessionStart(t *testing.T) {
	var loaded atomic.Int32
	src := profile.ProviderFunc(func(ctx context.Context, id string) (model.Profile, error) {
		loaded.Add(1)
		return profile.Static{"player": {DrivingStyle: model.StyleAggressive}}.Load(ctx, id)
	})
	h := newHarness(t, WithProfiles(src))
	events := h.ctrl.Events().Subscribe()
	h.start()

	h.sock.Feed(raceSession(1))
	require.Eventually(t, func() bool { return loaded.Load() == 1 }, time.Second, 5*time.Millisecond)
	// let the processing loop pick up the loaded profile
	time.Sleep(100 * time.Millisecond)

	h.sock.Feed(wear(2, 40))
	h.sock.Feed(wear(3, 76))
	ev := waitEvent(t, events)
	assert.Equal(t, model.RuleTyreWearCritical, ev.Rule)
	assert.Equal(t, float32(75), ev.Payload["threshold"])
	h.stop(t)
}

func TestController_BindFailure(t *testing.T) {
	ctrl, err := New(WithListenerOptions(network.WithSocketFactory(&network.MockFactory{Err: errors.New("in use")})))
	require.NoError(t, err)
	defer ctrl.Close()
	assert.Error(t, ctrl.Run(context.Background()))
	assert.Equal(t, model.StateIdle, ctrl.State())
}

func TestController_RunTwice(t *testing.T) {
	h := newHarness(t)
	status := h.ctrl.Status().Subscribe()
	h.start()
	expectStatus(t, status, transition{model.StateIdle, model.StateListening, model.StatusTransition})
	assert.ErrorIs(t, h.ctrl.Run(context.Background()), ErrRunning)
	h.stop(t)
}

func TestController_CloseDrainsOutputs(t *testing.T) {
	h := newHarness(t)
	sessions := h.ctrl.Sessions().Subscribe()
	h.start()
	h.sock.Feed(raceSession(1))
	h.sock.Feed(lapData(2, 1500))
	require.Eventually(t, func() bool { return h.ctrl.State() == model.StateActive },
		2*time.Second, 5*time.Millisecond)
	collected := make(chan []model.SessionSummary, 1)
	go func() {
		var all []model.SessionSummary
		for s := range sessions {
			all = append(all, s)
		}
		collected <- all
	}()
	h.stop(t)
	h.ctrl.Close()

	var got []model.SessionSummary
	select {
	case got = <-collected:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed")
	}
	require.Len(t, got, 1, "flushed summary is delivered before the channel closes")
	assert.Equal(t, uid, got[0].SessionUID)
	assert.ErrorIs(t, h.ctrl.Run(context.Background()), ErrClosed)
}
