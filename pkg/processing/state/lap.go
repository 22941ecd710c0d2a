package state

import (
	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/pkg/packet"
)

// below this speed (m/s) the distance based gap is not reliable
const minGapSpeed = 10.0

func (a *Aggregator) applyLapData(
	d *driverState, p *packet.LapData, idx uint8,
) (summary model.LapSummary, completed bool) {
	e := &p.Cars[idx]
	prev := d.snap.Lap
	seen := d.snap.Seen.Has(model.FieldLap)

	if seen && prev.LapNumber > 0 && e.CurrentLapNum > prev.LapNumber {
		summary = a.completeLap(d, e, &prev)
		completed = true
	}
	if e.PitStatus != 0 {
		d.pittedThisLap = true
	}
	if seen && e.NumPitStops > prev.NumPitStops {
		d.snap.Tyres.StintStartLap = e.CurrentLapNum
	}

	d.snap.Lap = model.LapState{
		Position:         e.CarPosition,
		LapNumber:        e.CurrentLapNum,
		CurrentLapTimeMS: e.CurrentLapTimeMS,
		LastLapTimeMS:    e.LastLapTimeMS,
		Sector:           e.Sector,
		Sector1MS:        e.Sector1MS,
		Sector2MS:        e.Sector2MS,
		LapValid:         !e.CurrentLapInvalid,
		LapDistance:      e.LapDistance,
		PitStatus:        e.PitStatus,
		NumPitStops:      e.NumPitStops,
		ResultStatus:     e.ResultStatus,
		DeltaToLeaderMS:  e.DeltaToLeaderMS,
	}
	d.snap.Penalty.Seconds = e.Penalties
	d.snap.Penalty.Warnings = e.TotalWarnings
	d.snap.Penalty.DriveThrough = e.UnservedDriveThrough
	d.snap.Penalty.StopGo = e.UnservedStopGo
	d.snap.Seen |= model.FieldLap | model.FieldPenalty

	boundary := !seen || e.Sector != prev.Sector || e.CurrentLapNum != prev.LapNumber
	a.updateGaps(d, p, idx, boundary)
	return summary, completed
}

// completeLap is called with the lap state seen last before the lap number changed.
// The sector times of the finished lap are only available there.
func (a *Aggregator) completeLap(
	d *driverState, e *packet.LapEntry, prev *model.LapState,
) model.LapSummary {
	lapTime := e.LastLapTimeMS
	s1, s2 := prev.Sector1MS, prev.Sector2MS
	var s3 uint32
	if s1 > 0 && s2 > 0 && lapTime > s1+s2 {
		s3 = lapTime - s1 - s2
	}
	valid := prev.LapValid
	if valid {
		d.snap.Bests = improveBests(d.snap.Bests, lapTime, s1, s2, s3)
	}
	d.lapsCompleted++
	incurred := damageIncrease(d.lapStartDamage, d.snap.Damage)
	d.lapStartDamage = d.snap.Damage
	pitted := d.pittedThisLap
	d.pittedThisLap = false

	return model.LapSummary{
		DriverID:       d.binding.DriverID,
		SessionUID:     a.session.UID,
		Lap:            prev.LapNumber,
		TrackID:        a.session.TrackID,
		LapTimeMS:      lapTime,
		Sector1MS:      s1,
		Sector2MS:      s2,
		Sector3MS:      s3,
		Valid:          valid,
		Position:       e.CarPosition,
		VisualCompound: d.snap.Tyres.VisualCompound,
		TyreWear:       d.snap.Tyres.Wear,
		FuelInTank:     d.snap.Car.FuelInTank,
		Pitted:         pitted,
		DamageIncurred: incurred,
		RecordedAt:     a.now(),
	}
}

func improveBests(b model.PersonalBests, lap, s1, s2, s3 uint32) model.PersonalBests {
	lower := func(best, v uint32) uint32 {
		if v > 0 && (best == 0 || v < best) {
			return v
		}
		return best
	}
	return model.PersonalBests{
		LapMS:     lower(b.LapMS, lap),
		Sector1MS: lower(b.Sector1MS, s1),
		Sector2MS: lower(b.Sector2MS, s2),
		Sector3MS: lower(b.Sector3MS, s3),
	}
}

func damageIncrease(from, to model.Damage) model.Damage {
	sub := func(a, b uint8) uint8 {
		if b > a {
			return b - a
		}
		return 0
	}
	return model.Damage{
		FrontLeftWing:  sub(from.FrontLeftWing, to.FrontLeftWing),
		FrontRightWing: sub(from.FrontRightWing, to.FrontRightWing),
		RearWing:       sub(from.RearWing, to.RearWing),
		Floor:          sub(from.Floor, to.Floor),
		Diffuser:       sub(from.Diffuser, to.Diffuser),
		Sidepod:        sub(from.Sidepod, to.Sidepod),
	}
}

// updateGaps recomputes the gaps on every LapData packet. The history gets a
// new sample at sector boundaries and restarts when the neighbour changes.
//
//nolint:whitespace // can't make both editor and linter happy
func (a *Aggregator) updateGaps(
	d *driverState, p *packet.LapData, idx uint8, boundary bool,
) {
	pos := p.Cars[idx].CarPosition
	ahead, behind := -1, -1
	if pos > 1 {
		ahead = findByPosition(p, pos-1)
	}
	if pos > 0 {
		behind = findByPosition(p, pos+1)
	}

	g := &d.snap.Gaps
	pushAhead, pushBehind := boundary, boundary
	if ahead != d.aheadIdx {
		g.AheadHistory = model.GapHistory{}
		d.aheadIdx = ahead
		pushAhead = true
	}
	if behind != d.behindIdx {
		g.BehindHistory = model.GapHistory{}
		d.behindIdx = behind
		pushBehind = true
	}
	g.Ahead, g.Behind = 0, 0
	if ahead >= 0 {
		g.Ahead = a.gapSeconds(p, ahead, int(idx))
		if pushAhead {
			g.AheadHistory.Push(g.Ahead)
		}
	}
	if behind >= 0 {
		g.Behind = a.gapSeconds(p, int(idx), behind)
		if pushBehind {
			g.BehindHistory.Push(g.Behind)
		}
	}
	d.snap.Seen |= model.FieldGaps
	a.refreshRivals(d)
}

// gapSeconds is the time the car at back needs to reach the position of front
func (a *Aggregator) gapSeconds(p *packet.LapData, front, back int) float32 {
	ef, eb := &p.Cars[front], &p.Cars[back]
	diff := raceDistance(ef, a.session.TrackLength) - raceDistance(eb, a.session.TrackLength)
	if a.cache.hasSpeed[back] && diff >= 0 {
		if mps := float64(a.cache.speeds[back]) / 3.6; mps > minGapSpeed {
			return float32(diff / mps)
		}
	}
	if eb.DeltaToLeaderMS > ef.DeltaToLeaderMS {
		return float32(eb.DeltaToLeaderMS-ef.DeltaToLeaderMS) / 1000
	}
	return 0
}

func raceDistance(e *packet.LapEntry, trackLength uint16) float64 {
	if trackLength > 0 && e.CurrentLapNum > 0 {
		return float64(e.CurrentLapNum-1)*float64(trackLength) + float64(e.LapDistance)
	}
	return float64(e.TotalDistance)
}

func findByPosition(p *packet.LapData, pos uint8) int {
	for i := range p.Cars {
		if p.Cars[i].CarPosition == pos {
			return i
		}
	}
	return -1
}

func (a *Aggregator) refreshRivals(d *driverState) {
	ld := a.cache.lapData
	if ld == nil {
		return
	}
	rival := func(idx int, gap float32) model.RivalSnapshot {
		if idx < 0 {
			return model.RivalSnapshot{}
		}
		return model.RivalSnapshot{
			Valid:     true,
			CarIndex:  uint8(idx),
			Name:      a.cache.names[idx],
			Position:  ld.Cars[idx].CarPosition,
			Gap:       gap,
			PitStatus: ld.Cars[idx].PitStatus,
			MaxDamage: a.cache.damage[idx],
		}
	}
	d.snap.Ahead = rival(d.aheadIdx, d.snap.Gaps.Ahead)
	d.snap.Behind = rival(d.behindIdx, d.snap.Gaps.Behind)
	d.snap.Seen |= model.FieldRivals
}
