// Package processing composes decoding, state aggregation and rule evaluation.
package processing

import (
	"time"

	"github.com/mpapenbr/f1-race-engineer/log"
	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/pkg/packet"
	"github.com/mpapenbr/f1-race-engineer/pkg/processing/state"
	"github.com/mpapenbr/f1-race-engineer/pkg/processing/trigger"
)

// Output collects everything a single datagram produced
type Output struct {
	Kind     packet.Kind
	Dropped  bool
	Rollover bool
	// Session is the session after applying the packet
	Session  model.Session
	Deltas   []model.Delta
	Events   []model.Event
	Laps     []model.LapSummary
	Sessions []model.SessionSummary
}

// Processor owns the aggregator and the trigger engine.
// It is not safe for concurrent use, callers run it on a single goroutine.
type Processor struct {
	log        *log.Logger
	aggregator *state.Aggregator
	engine     *trigger.Engine
	thOpts     []trigger.ThresholdOption
	thresholds map[string]trigger.Thresholds
}

type ProcessorOption func(proc *Processor)

func WithLogger(l *log.Logger) ProcessorOption {
	return func(proc *Processor) {
		proc.log = l
	}
}

func WithAggregator(a *state.Aggregator) ProcessorOption {
	return func(proc *Processor) {
		proc.aggregator = a
	}
}

func WithEngine(e *trigger.Engine) ProcessorOption {
	return func(proc *Processor) {
		proc.engine = e
	}
}

// WithThresholdOptions are applied whenever thresholds are derived from a profile
func WithThresholdOptions(opts ...trigger.ThresholdOption) ProcessorOption {
	return func(proc *Processor) {
		proc.thOpts = opts
	}
}

func NewProcessor(opts ...ProcessorOption) (*Processor, error) {
	ret := &Processor{
		log:        log.Default().Named("processor"),
		thresholds: make(map[string]trigger.Thresholds),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.aggregator == nil {
		ret.aggregator = state.New(state.WithLogger(ret.log.Named("state")))
	}
	if ret.engine == nil {
		e, err := trigger.New(trigger.WithLogger(ret.log.Named("trigger")))
		if err != nil {
			return nil, err
		}
		ret.engine = e
	}
	return ret, nil
}

// SetProfile derives the thresholds of the profile's driver.
// Drivers without a profile use the defaults.
//
//nolint:gocritic // profile is a small value type
func (p *Processor) SetProfile(profile model.Profile) {
	th := trigger.ForProfile(profile, p.thOpts...)
	p.thresholds[profile.DriverID] = th
	p.log.Info("profile applied",
		log.String("driver", profile.DriverID),
		log.String("style", string(profile.DrivingStyle)),
		log.String("ersMode", profile.ERSMode))
}

func (p *Processor) Thresholds(driverID string) trigger.Thresholds {
	if th, ok := p.thresholds[driverID]; ok {
		return th
	}
	th := trigger.DefaultThresholds()
	for _, opt := range p.thOpts {
		opt(&th)
	}
	return th
}

// ProcessDatagram decodes raw and processes the resulting packet.
// Decode errors are returned unchanged, the state is not touched then.
func (p *Processor) ProcessDatagram(now time.Time, raw []byte) (Output, error) {
	pkt, err := packet.Decode(raw)
	if err != nil {
		return Output{}, err
	}
	return p.ProcessPacket(now, pkt), nil
}

// ProcessPacket applies pkt and evaluates the rules for every changed driver
func (p *Processor) ProcessPacket(now time.Time, pkt packet.Packet) Output {
	res := p.aggregator.Apply(pkt)
	out := Output{
		Kind:     pkt.PacketHeader().PacketID,
		Dropped:  res.Dropped,
		Rollover: res.Rollover,
		Deltas:   res.Deltas,
		Laps:     res.Laps,
		Sessions: res.Sessions,
	}
	out.Session, _ = p.aggregator.Session()
	if res.Rollover {
		p.engine.Reset()
	}
	for i := range res.Deltas {
		d := &res.Deltas[i]
		th := p.Thresholds(d.DriverID)
		out.Events = append(out.Events, p.engine.Evaluate(now, d.DriverID, &d.Prev, &d.Cur, &th)...)
	}
	return out
}

func (p *Processor) Snapshot(driverID string) (model.DriverSnapshot, bool) {
	return p.aggregator.Snapshot(driverID)
}

func (p *Processor) Snapshots() []model.DriverSnapshot {
	return p.aggregator.Snapshots()
}

func (p *Processor) Session() (model.Session, bool) {
	return p.aggregator.Session()
}

// Flush returns the session summaries of the running session
func (p *Processor) Flush() []model.SessionSummary {
	return p.aggregator.Flush()
}

// DriverIDs returns the tracked drivers in binding order
func (p *Processor) DriverIDs() []string {
	bindings := p.aggregator.Bindings()
	ret := make([]string, len(bindings))
	for i := range bindings {
		ret[i] = bindings[i].DriverID
	}
	return ret
}
