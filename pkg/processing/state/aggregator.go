// Package state merges decoded packets into per driver snapshots.
package state

import (
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/f1-race-engineer/log"
	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/pkg/packet"
)

// Result is the outcome of applying a single packet
type Result struct {
	// Deltas holds one entry per tracked driver whose snapshot changed
	Deltas []model.Delta
	// Rollover is set when the packet started a new session
	Rollover bool
	// Laps completed by tracked drivers with this packet
	Laps []model.LapSummary
	// Sessions summarizes the previous session on rollover
	Sessions []model.SessionSummary
	// Dropped is set when the packet was ignored (stale, foreign session or no session yet)
	Dropped bool
}

type driverState struct {
	binding Binding
	snap    model.DriverSnapshot
	// stats of the running session
	lapsCompleted  uint8
	maxDamage      model.Damage
	lapStartDamage model.Damage
	pittedThisLap  bool
	aheadIdx       int
	behindIdx      int
}

func newDriverState(b Binding) *driverState {
	return &driverState{
		binding:   b,
		snap:      model.NewDriverSnapshot(b.DriverID),
		aheadIdx:  -1,
		behindIdx: -1,
	}
}

// values of all cars, used for gaps and rivals
type fieldCache struct {
	names    [packet.NumCars]string
	speeds   [packet.NumCars]uint16
	damage   [packet.NumCars]uint8
	lapData  *packet.LapData
	hasSpeed [packet.NumCars]bool
}

// Aggregator owns all race state. It is not safe for concurrent use.
type Aggregator struct {
	log        *log.Logger
	bindings   []Binding
	drivers    []*driverState
	session    model.Session
	hasSession bool
	lastFrame  [packet.NumKinds]uint32
	frameSeen  [packet.NumKinds]bool
	cache      fieldCache
	now        func() time.Time
	retired    []uint64 // uids of ended sessions, oldest first
}

// maxRetired bounds the remembered uids of ended sessions
const maxRetired = 8

type Option func(a *Aggregator)

func WithLogger(l *log.Logger) Option {
	return func(a *Aggregator) {
		a.log = l
	}
}

func WithBindings(bindings []Binding) Option {
	return func(a *Aggregator) {
		a.bindings = bindings
	}
}

// WithClock sets the time source for summary timestamps
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		log:      log.Default().Named("state"),
		bindings: DefaultBindings(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.Reset()
	return a
}

// Reset drops all state including the current session
func (a *Aggregator) Reset() {
	a.drivers = lo.Map(a.bindings, func(b Binding, _ int) *driverState {
		return newDriverState(b)
	})
	a.session = model.Session{}
	a.hasSession = false
	a.lastFrame = [packet.NumKinds]uint32{}
	a.frameSeen = [packet.NumKinds]bool{}
	a.cache = fieldCache{}
}

// retire remembers uid so late session packets cannot revive it
func (a *Aggregator) retire(uid uint64) {
	if a.isRetired(uid) {
		return
	}
	a.retired = append(a.retired, uid)
	if len(a.retired) > maxRetired {
		a.retired = a.retired[len(a.retired)-maxRetired:]
	}
}

func (a *Aggregator) isRetired(uid uint64) bool {
	return lo.Contains(a.retired, uid)
}

func (a *Aggregator) Bindings() []Binding {
	return a.bindings
}

// Session returns the current session
func (a *Aggregator) Session() (model.Session, bool) {
	return a.session, a.hasSession
}

func (a *Aggregator) Snapshot(driverID string) (model.DriverSnapshot, bool) {
	d, ok := lo.Find(a.drivers, func(d *driverState) bool {
		return d.binding.DriverID == driverID
	})
	if !ok {
		return model.DriverSnapshot{}, false
	}
	return d.snap, true
}

// Snapshots returns copies of all tracked driver snapshots in binding order
func (a *Aggregator) Snapshots() []model.DriverSnapshot {
	return lo.Map(a.drivers, func(d *driverState, _ int) model.DriverSnapshot {
		return d.snap
	})
}

// Flush returns the summaries of the running session without resetting it
func (a *Aggregator) Flush() []model.SessionSummary {
	if !a.hasSession {
		return nil
	}
	return a.sessionSummaries()
}

// Apply merges pkt into the tracked snapshots
//
//nolint:gocyclo,funlen // dispatch per variant
func (a *Aggregator) Apply(pkt packet.Packet) Result {
	h := pkt.PacketHeader()
	var res Result
	if _, ok := pkt.(*packet.Skip); ok {
		res.Dropped = true
		return res
	}

	if s, ok := pkt.(*packet.Session); ok {
		if a.isRetired(s.SessionUID) {
			a.log.Debug("packet of ended session dropped",
				log.Uint64("uid", s.SessionUID))
			res.Dropped = true
			return res
		}
		if !a.hasSession || s.SessionUID != a.session.UID {
			res.Rollover = true
			if a.hasSession {
				res.Sessions = a.sessionSummaries()
				a.log.Info("session rollover",
					log.Uint64("from", a.session.UID),
					log.Uint64("to", s.SessionUID))
				a.retire(a.session.UID)
			}
			a.Reset()
			a.hasSession = true
		}
	}
	if !a.hasSession || (h.SessionUID != a.session.UID && !res.Rollover) {
		res.Dropped = true
		return res
	}
	if !a.acceptFrame(&h) {
		a.log.Debug("stale packet dropped",
			log.Stringer("kind", h.PacketID),
			log.Uint32("frame", h.OverallFrameIdentifier),
			log.Uint32("last", a.lastFrame[h.PacketID]))
		res.Dropped = true
		return res
	}

	// cache updates independent of the tracked drivers
	switch p := pkt.(type) {
	case *packet.Session:
		a.session = deriveSession(p)
	case *packet.Participants:
		for i := range p.Cars {
			a.cache.names[i] = p.Cars[i].Name
		}
	case *packet.CarTelemetry:
		for i := range p.Cars {
			a.cache.speeds[i] = p.Cars[i].SpeedKmh
			a.cache.hasSpeed[i] = true
		}
	case *packet.CarDamage:
		for i := range p.Cars {
			a.cache.damage[i] = damageOf(&p.Cars[i]).Max()
		}
	case *packet.LapData:
		a.cache.lapData = p
	case *packet.Event:
		if p.Code == packet.EventFlashback {
			a.log.Debug("flashback",
				log.Uint32("frame", p.FlashbackFrame),
				log.Float32("sessionTime", p.FlashbackTime))
		}
	}

	for _, d := range a.drivers {
		idx, ok := d.binding.resolve(&h)
		if !ok {
			continue
		}
		prev := d.snap
		d.snap.CarIndex = idx
		d.snap.Frame = h.FrameIdentifier
		d.snap.SessionTime = h.SessionTime
		d.snap.Session = a.session
		d.snap.Seen |= model.FieldSession

		switch p := pkt.(type) {
		case *packet.LapData:
			if lap, ok := a.applyLapData(d, p, idx); ok {
				res.Laps = append(res.Laps, lap)
			}
		case *packet.Participants:
			d.snap.Name = p.Cars[idx].Name
			d.snap.Seen |= model.FieldParticipant
			a.refreshRivals(d)
		case *packet.CarTelemetry:
			applyTelemetry(d, &p.Cars[idx])
		case *packet.CarStatus:
			applyStatus(d, &p.Cars[idx])
		case *packet.CarDamage:
			applyDamage(d, &p.Cars[idx])
			a.refreshRivals(d)
		case *packet.TyreSets:
			applyTyreSets(d, p, idx)
		case *packet.Event:
			a.applyEvent(d, p, idx)
		}

		if fields := d.snap.Changes(&prev); fields != 0 {
			res.Deltas = append(res.Deltas, model.Delta{
				DriverID: d.binding.DriverID,
				Fields:   fields,
				Prev:     prev,
				Cur:      d.snap,
			})
		}
	}
	return res
}

// acceptFrame rejects packets older than the last applied one of the same kind
func (a *Aggregator) acceptFrame(h *packet.Header) bool {
	if int(h.PacketID) >= packet.NumKinds {
		return true
	}
	if a.frameSeen[h.PacketID] && h.OverallFrameIdentifier < a.lastFrame[h.PacketID] {
		return false
	}
	a.frameSeen[h.PacketID] = true
	a.lastFrame[h.PacketID] = h.OverallFrameIdentifier
	return true
}

func (a *Aggregator) sessionSummaries() []model.SessionSummary {
	now := a.now()
	ret := make([]model.SessionSummary, 0, len(a.drivers))
	for _, d := range a.drivers {
		if !d.snap.Seen.Has(model.FieldLap) {
			continue
		}
		ret = append(ret, model.SessionSummary{
			DriverID:       d.binding.DriverID,
			SessionUID:     a.session.UID,
			TrackID:        a.session.TrackID,
			SessionType:    a.session.SessionType,
			LapsCompleted:  d.lapsCompleted,
			BestLapMS:      d.snap.Bests.LapMS,
			FinalPosition:  d.snap.Lap.Position,
			PitStops:       d.snap.Lap.NumPitStops,
			PenaltySeconds: d.snap.Penalty.Seconds,
			MaxDamage:      d.maxDamage,
			Finished:       d.snap.RaceFinished,
			RecordedAt:     now,
		})
	}
	return ret
}
