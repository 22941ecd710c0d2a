//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package processing

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/pkg/packet"
	"github.com/mpapenbr/f1-race-engineer/pkg/processing/state"
	"github.com/mpapenbr/f1-race-engineer/testsupport/f1packets"
)

const (
	uidA uint64 = 0xA1
	uidB uint64 = 0xB2
)

var t0 = time.Date(2025, 9, 7, 14, 0, 0, 0, time.UTC)

func newTestProcessor(t *testing.T, opts ...ProcessorOption) *Processor {
	p, err := NewProcessor(opts...)
	require.NoError(t, err)
	return p
}

func feed(t *testing.T, p *Processor, now time.Time, raw []byte) Output {
	out, err := p.ProcessDatagram(now, raw)
	require.NoError(t, err)
	return out
}

func ruleIDs(events []model.Event) []model.RuleID {
	ret := make([]model.RuleID, len(events))
	for i := range events {
		ret[i] = events[i].Rule
	}
	return ret
}

func startRace(t *testing.T, p *Processor, uid uint64) {
	feed(t, p, t0, f1packets.Session(f1packets.Solo(uid, 1), f1packets.RaceSession(20)))
	feed(t, p, t0, f1packets.LapData(f1packets.Solo(uid, 2), map[int]packet.LapEntry{
		0: {CarPosition: 3, CurrentLapNum: 2, Sector: 1},
	}))
}

func TestProcessor_TyreWearCriticalOnce(t *testing.T) {
	p := newTestProcessor(t)
	startRace(t, p, uidA)

	tests := []struct {
		name string
		at   time.Duration
		wear float32
		want []model.RuleID
	}{
		{"warning level", 1 * time.Second, 68, []model.RuleID{model.RuleTyreWearWarning}},
		{"critical level", 2 * time.Second, 82, []model.RuleID{model.RuleTyreWearCritical}},
		{"further wear already reported", 3 * time.Second, 90, []model.RuleID{}},
	}
	for i, tt := range tests {
		out := feed(t, p, t0.Add(tt.at), f1packets.CarDamage(
			f1packets.Solo(uidA, uint32(10+i)),
			map[int]packet.DamageEntry{0: f1packets.Wear(tt.wear)}))
		assert.Equal(t, packet.KindCarDamage, out.Kind, tt.name)
		require.Len(t, out.Deltas, 1, tt.name)
		assert.Equal(t, tt.want, ruleIDs(out.Events), tt.name)
	}

	snap, ok := p.Snapshot("player")
	require.True(t, ok)
	assert.Equal(t, model.Corners{90, 90, 90, 90}, snap.Tyres.Wear)
}

func TestProcessor_LevelLosingArbitrationFiresLater(t *testing.T) {
	p := newTestProcessor(t)
	startRace(t, p, uidA)
	tests := []struct {
		name string
		wear float32
		want []model.RuleID
	}{
		{"damage wins over the wear band", 65, []model.RuleID{model.RuleDamageNew}},
		{"wear band still pending", 66, []model.RuleID{model.RuleTyreWearWarning}},
		{"both reported", 67, []model.RuleID{}},
	}
	for i, tt := range tests {
		entry := f1packets.Wear(tt.wear)
		entry.FloorDamage = 30
		out := feed(t, p, t0.Add(time.Duration(i)*time.Second), f1packets.CarDamage(
			f1packets.Solo(uidA, uint32(10+i)), map[int]packet.DamageEntry{0: entry}))
		require.Len(t, out.Deltas, 1, tt.name)
		assert.Equal(t, tt.want, ruleIDs(out.Events), tt.name)
	}
}

func TestProcessor_EventPayload(t *testing.T) {
	p := newTestProcessor(t)
	startRace(t, p, uidA)
	feed(t, p, t0, f1packets.CarDamage(f1packets.Solo(uidA, 3), map[int]packet.DamageEntry{0: f1packets.Wear(70)}))
	out := feed(t, p, t0, f1packets.CarDamage(f1packets.Solo(uidA, 4), map[int]packet.DamageEntry{0: f1packets.Wear(81)}))
	require.Len(t, out.Events, 1)
	ev := out.Events[0]
	assert.Equal(t, "player", ev.DriverID)
	assert.Equal(t, uidA, ev.SessionUID)
	assert.Equal(t, uint8(2), ev.Lap)
	assert.Equal(t, 90, ev.Priority)
	assert.Equal(t, t0, ev.Timestamp)
	assert.Equal(t, float32(81), ev.Payload["wear"])
}

func TestProcessor_NoResidualStateAfterRollover(t *testing.T) {
	used := newTestProcessor(t)
	startRace(t, used, uidA)
	feed(t, used, t0, f1packets.CarDamage(f1packets.Solo(uidA, 3), map[int]packet.DamageEntry{0: f1packets.Wear(70)}))
	out := feed(t, used, t0, f1packets.CarDamage(f1packets.Solo(uidA, 4), map[int]packet.DamageEntry{0: f1packets.Wear(85)}))
	require.Equal(t, []model.RuleID{model.RuleTyreWearCritical}, ruleIDs(out.Events))

	second := []struct {
		now time.Time
		raw []byte
	}{
		{t0.Add(time.Second), f1packets.Session(f1packets.Solo(uidB, 1), f1packets.RaceSession(10))},
		{t0.Add(time.Second), f1packets.LapData(f1packets.Solo(uidB, 2), map[int]packet.LapEntry{
			0: {CarPosition: 7, CurrentLapNum: 1},
		})},
		{t0.Add(2 * time.Second), f1packets.CarDamage(f1packets.Solo(uidB, 3), map[int]packet.DamageEntry{0: f1packets.Wear(10)})},
		{t0.Add(3 * time.Second), f1packets.CarDamage(f1packets.Solo(uidB, 4), map[int]packet.DamageEntry{0: f1packets.Wear(85)})},
	}
	fresh := newTestProcessor(t)

	var usedEvents, freshEvents []model.RuleID
	for i, s := range second {
		u := feed(t, used, s.now, s.raw)
		f := feed(t, fresh, s.now, s.raw)
		if i == 0 {
			assert.True(t, u.Rollover)
			require.Len(t, u.Sessions, 1)
			assert.Equal(t, uidA, u.Sessions[0].SessionUID)
			assert.Equal(t, uint8(3), u.Sessions[0].FinalPosition)
		}
		usedEvents = append(usedEvents, ruleIDs(u.Events)...)
		freshEvents = append(freshEvents, ruleIDs(f.Events)...)
	}

	// the cooldown of the first session does not carry over
	assert.Equal(t, []model.RuleID{model.RuleTyreWearCritical}, usedEvents)
	assert.Equal(t, freshEvents, usedEvents)

	u, _ := used.Snapshot("player")
	f, _ := fresh.Snapshot("player")
	if diff := cmp.Diff(f, u); diff != "" {
		t.Errorf("residual state after rollover (-fresh +used):\n%s", diff)
	}
	assert.Equal(t, uidB, u.Session.UID)
	assert.Equal(t, uint8(7), u.Lap.Position)

	// late packet of the old session
	out = feed(t, used, t0.Add(4*time.Second), f1packets.LapData(f1packets.Solo(uidA, 100), map[int]packet.LapEntry{
		0: {CarPosition: 1, CurrentLapNum: 5},
	}))
	assert.True(t, out.Dropped)
	assert.Empty(t, out.Events)
}

func TestProcessor_ProfileThresholds(t *testing.T) {
	p := newTestProcessor(t)
	p.SetProfile(model.Profile{DriverID: "player", DrivingStyle: model.StyleAggressive})
	assert.InDelta(t, 75, p.Thresholds("player").TyreWearCritical, 0.001)
	assert.InDelta(t, 80, p.Thresholds("other").TyreWearCritical, 0.001)

	startRace(t, p, uidA)
	feed(t, p, t0, f1packets.CarDamage(f1packets.Solo(uidA, 3), map[int]packet.DamageEntry{0: f1packets.Wear(70)}))
	out := feed(t, p, t0, f1packets.CarDamage(f1packets.Solo(uidA, 4), map[int]packet.DamageEntry{0: f1packets.Wear(76)}))
	assert.Equal(t, []model.RuleID{model.RuleTyreWearCritical}, ruleIDs(out.Events))
}

func TestProcessor_DuoDriversAreIndependent(t *testing.T) {
	bindings, err := state.ParseBindings([]string{"alice=player", "bob=secondary"})
	require.NoError(t, err)
	p := newTestProcessor(t, WithAggregator(state.New(state.WithBindings(bindings))))
	assert.Equal(t, []string{"alice", "bob"}, p.DriverIDs())

	h := func(frame uint32) f1packets.Header {
		return f1packets.Header{SessionUID: uidA, Frame: frame, Player: 0, Secondary: 1}
	}
	feed(t, p, t0, f1packets.Session(h(1), f1packets.RaceSession(20)))
	feed(t, p, t0, f1packets.CarDamage(h(2), map[int]packet.DamageEntry{
		0: f1packets.Wear(70), 1: f1packets.Wear(70),
	}))
	out := feed(t, p, t0, f1packets.CarDamage(h(3), map[int]packet.DamageEntry{
		0: f1packets.Wear(82), 1: f1packets.Wear(83),
	}))
	require.Len(t, out.Events, 2)
	assert.Equal(t, "alice", out.Events[0].DriverID)
	assert.Equal(t, "bob", out.Events[1].DriverID)
	assert.Equal(t, model.RuleTyreWearCritical, out.Events[1].Rule)
}

func TestProcessor_DecodeErrors(t *testing.T) {
	p := newTestProcessor(t)
	_, err := p.ProcessDatagram(t0, []byte{0xe9, 0x07})
	assert.True(t, errors.Is(err, packet.ErrShortHeader))

	raw := f1packets.Session(f1packets.Solo(uidA, 1), f1packets.RaceSession(5))
	_, err = p.ProcessDatagram(t0, raw[:len(raw)-1])
	var de *packet.DecodeError
	require.True(t, errors.As(err, &de))
	assert.True(t, errors.Is(err, packet.ErrSizeMismatch))
	assert.Equal(t, packet.KindSession, de.PacketID)

	_, ok := p.Session()
	assert.False(t, ok, "failed decodes must not touch the state")
}
