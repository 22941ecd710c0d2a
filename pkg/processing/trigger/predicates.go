package trigger

import (
	"strconv"

	"github.com/samber/lo"

	"github.com/mpapenbr/f1-race-engineer/pkg/model"
)

// FIA flag values of the car status packet
const (
	flagBlue   int8 = 2
	flagYellow int8 = 3
	flagRed    int8 = 4
)

// both reports whether prev and cur carry the given fields.
// Transitions from a never seen value are no transitions.
func both(prev, cur *model.DriverSnapshot, f model.FieldSet) bool {
	return prev.Seen.Has(f) && cur.Seen.Has(f)
}

func fuelCritical(_, cur *model.DriverSnapshot, th *Thresholds) (model.Payload, bool) {
	if !cur.Seen.Has(model.FieldCarStatus) || cur.Car.FuelRemainingLaps >= th.FuelCriticalLaps {
		return nil, false
	}
	return model.Payload{
		"fuelRemainingLaps": cur.Car.FuelRemainingLaps,
		"fuelInTank":        cur.Car.FuelInTank,
	}, true
}

func fiaFlag(flag int8) Predicate {
	return func(prev, cur *model.DriverSnapshot, _ *Thresholds) (model.Payload, bool) {
		if !both(prev, cur, model.FieldCarStatus) ||
			prev.Car.FIAFlag == flag || cur.Car.FIAFlag != flag {
			return nil, false
		}
		payload := model.Payload{"flag": cur.Car.FIAFlag}
		if flag == flagYellow && cur.Session.YellowSector > 0 {
			payload["sector"] = cur.Session.YellowSector
		}
		return payload, true
	}
}

func wearPayload(cur *model.DriverSnapshot, limit float32) model.Payload {
	now, corner := cur.Tyres.Wear.Max()
	return model.Payload{
		"wear":      now,
		"corner":    corner,
		"threshold": limit,
		"compound":  cur.Tyres.VisualCompound,
		"ageLaps":   cur.Tyres.AgeLaps,
	}
}

// tyreWearCritical holds while the worst tyre is at or above the critical wear.
// A fresh set ends the level.
func tyreWearCritical(cur *model.DriverSnapshot, th *Thresholds) ([]Level, bool) {
	if !cur.Seen.Has(model.FieldTyres) {
		return nil, false
	}
	if w, _ := cur.Tyres.Wear.Max(); w < th.TyreWearCritical {
		return nil, true
	}
	return []Level{{Key: "critical", Payload: wearPayload(cur, th.TyreWearCritical)}}, true
}

// tyreWearWarning holds between warning and critical wear
func tyreWearWarning(cur *model.DriverSnapshot, th *Thresholds) ([]Level, bool) {
	if !cur.Seen.Has(model.FieldTyres) {
		return nil, false
	}
	if w, _ := cur.Tyres.Wear.Max(); w < th.TyreWearWarning || w >= th.TyreWearCritical {
		return nil, true
	}
	return []Level{{Key: "warning", Payload: wearPayload(cur, th.TyreWearWarning)}}, true
}

var safetyCarNames = map[uint8]string{
	model.SafetyCarFull:    "full",
	model.SafetyCarVirtual: "virtual",
}

// safetyCar fires on deployment and on the end of a safety car period
func safetyCar(prev, cur *model.DriverSnapshot, _ *Thresholds) (model.Payload, bool) {
	if !both(prev, cur, model.FieldSession) {
		return nil, false
	}
	from, to := prev.Session.SafetyCarStatus, cur.Session.SafetyCarStatus
	if from == to {
		return nil, false
	}
	if name, ok := safetyCarNames[to]; ok {
		return model.Payload{"status": name, "phase": "deployed"}, true
	}
	if name, ok := safetyCarNames[from]; ok && to == model.SafetyCarNone {
		return model.Payload{"status": name, "phase": "ending"}, true
	}
	return nil, false
}

// damageNew holds one level per damaged component. A repaired component
// is reported again once it is damaged again.
func damageNew(cur *model.DriverSnapshot, th *Thresholds) ([]Level, bool) {
	if !cur.Seen.Has(model.FieldDamage) {
		return nil, false
	}
	components := cur.Damage.Components()
	levels := lo.FilterMap(components, func(c model.ComponentDamage, _ int) (Level, bool) {
		return Level{
			Key:     c.Component,
			Payload: model.Payload{"component": c.Component, "level": c.Percent},
		}, c.Percent >= th.DamageComponent
	})
	return levels, true
}

// fuelLow holds between the low and the critical fuel margin
func fuelLow(cur *model.DriverSnapshot, th *Thresholds) ([]Level, bool) {
	if !cur.Seen.Has(model.FieldCarStatus) {
		return nil, false
	}
	laps := cur.Car.FuelRemainingLaps
	if laps >= th.FuelLowLaps || laps < th.FuelCriticalLaps {
		return nil, true
	}
	return []Level{{Key: "low", Payload: model.Payload{
		"fuelRemainingLaps": laps,
		"fuelInTank":        cur.Car.FuelInTank,
	}}}, true
}

// defend fires when the car behind is within DefendSeconds and the latest
// history sample shows it closing in by at least GapMinDelta
func defend(prev, cur *model.DriverSnapshot, th *Thresholds) (model.Payload, bool) {
	if !both(prev, cur, model.FieldGaps|model.FieldRivals) ||
		!cur.Behind.Valid || cur.Gaps.BehindHistory == prev.Gaps.BehindHistory {
		return nil, false
	}
	s := cur.Gaps.BehindHistory.Last(2)
	if len(s) < 2 {
		return nil, false
	}
	gap := cur.Gaps.Behind
	if gap <= 0 || gap >= th.DefendSeconds || s[0]-s[1] < th.GapMinDelta {
		return nil, false
	}
	return model.Payload{
		"gap":      gap,
		"change":   s[1] - s[0],
		"rival":    cur.Behind.Name,
		"carIndex": cur.Behind.CarIndex,
	}, true
}

// nearbyCarDamage holds while a damaged car runs close ahead, one level per car
func nearbyCarDamage(cur *model.DriverSnapshot, th *Thresholds) ([]Level, bool) {
	if !cur.Seen.Has(model.FieldRivals | model.FieldGaps) {
		return nil, false
	}
	a := cur.Ahead
	if !a.Valid || cur.Lap.Position <= 1 || a.MaxDamage < th.RivalDamage ||
		cur.Gaps.Ahead <= 0 || cur.Gaps.Ahead >= th.RivalDamageGap {
		return nil, true
	}
	return []Level{{
		Key: "car-" + strconv.Itoa(int(a.CarIndex)),
		Payload: model.Payload{
			"rival":    a.Name,
			"carIndex": a.CarIndex,
			"damage":   a.MaxDamage,
			"gap":      cur.Gaps.Ahead,
		},
	}}, true
}

// undercutWear is the tyre wear above which pitting before the car behind
// pays off. Shorter races need less wear.
func undercutWear(totalLaps uint8) float32 {
	return min(max(float32(totalLaps), 30), 50)
}

// overcutWear is the tyre wear below which staying out longer than the car
// ahead pays off
func overcutWear(totalLaps uint8) float32 {
	return min(max(0.8*float32(totalLaps), 20), 40)
}

func undercut(_, cur *model.DriverSnapshot, th *Thresholds) (model.Payload, bool) {
	if !cur.Seen.Has(model.FieldGaps|model.FieldRivals|model.FieldTyres) || !cur.Behind.Valid {
		return nil, false
	}
	gap := cur.Gaps.Behind
	limit := undercutWear(cur.Session.TotalLaps)
	w, _ := cur.Tyres.Wear.Max()
	if gap <= 0 || gap >= th.UndercutGap || w <= limit {
		return nil, false
	}
	return model.Payload{"gap": gap, "wear": w, "threshold": limit, "rival": cur.Behind.Name}, true
}

func overcut(_, cur *model.DriverSnapshot, th *Thresholds) (model.Payload, bool) {
	if !cur.Seen.Has(model.FieldGaps|model.FieldRivals|model.FieldTyres) || !cur.Ahead.Valid {
		return nil, false
	}
	gap := cur.Gaps.Ahead
	limit := overcutWear(cur.Session.TotalLaps)
	w, _ := cur.Tyres.Wear.Max()
	if gap <= 0 || gap >= th.OvercutGap || w >= limit {
		return nil, false
	}
	return model.Payload{"gap": gap, "wear": w, "threshold": limit, "rival": cur.Ahead.Name}, true
}

func rivalPit(prev, cur *model.DriverSnapshot, _ *Thresholds) (model.Payload, bool) {
	if !both(prev, cur, model.FieldRivals) {
		return nil, false
	}
	pitted := func(p, c *model.RivalSnapshot) bool {
		return p.Valid && c.Valid && p.CarIndex == c.CarIndex &&
			p.PitStatus == 0 && c.PitStatus != 0
	}
	for _, side := range []struct {
		name      string
		prev, cur *model.RivalSnapshot
	}{
		{"ahead", &prev.Ahead, &cur.Ahead},
		{"behind", &prev.Behind, &cur.Behind},
	} {
		if pitted(side.prev, side.cur) {
			return model.Payload{
				"side":     side.name,
				"rival":    side.cur.Name,
				"carIndex": side.cur.CarIndex,
				"position": side.cur.Position,
				"gap":      side.cur.Gap,
			}, true
		}
	}
	return nil, false
}

func penalty(prev, cur *model.DriverSnapshot, _ *Thresholds) (model.Payload, bool) {
	if !both(prev, cur, model.FieldPenalty) {
		return nil, false
	}
	p, c := &prev.Penalty, &cur.Penalty
	if c.Count <= p.Count && c.Seconds <= p.Seconds &&
		c.DriveThrough <= p.DriveThrough && c.StopGo <= p.StopGo {
		return nil, false
	}
	return model.Payload{
		"seconds":      c.Seconds,
		"driveThrough": c.DriveThrough,
		"stopGo":       c.StopGo,
		"type":         c.LastType,
		"infringement": c.LastInfringement,
	}, true
}

func pitWindow(prev, cur *model.DriverSnapshot, _ *Thresholds) (model.Payload, bool) {
	if !both(prev, cur, model.FieldLap) {
		return nil, false
	}
	ideal := cur.Session.PitWindowIdealLap
	if ideal == 0 || cur.Lap.NumPitStops > 0 ||
		prev.Lap.LapNumber >= ideal || cur.Lap.LapNumber < ideal {
		return nil, false
	}
	return model.Payload{
		"idealLap":  ideal,
		"latestLap": cur.Session.PitWindowLatestLap,
	}, true
}

func rainIncoming(_, cur *model.DriverSnapshot, _ *Thresholds) (model.Payload, bool) {
	if !cur.Seen.Has(model.FieldSession) || !cur.Session.RainIncoming {
		return nil, false
	}
	return model.Payload{
		"minutes":    cur.Session.RainInMinutes,
		"percentage": cur.Session.RainPercentage,
	}, true
}

type trend int

const (
	closing trend = iota
	opening
)

// sustained reports whether the last n+1 samples change by at least minDelta
// per step in the given direction
func sustained(h model.GapHistory, t trend, n int, minDelta float32) bool {
	s := h.Last(n + 1)
	if len(s) < n+1 {
		return false
	}
	for i := 1; i < len(s); i++ {
		step := s[i] - s[i-1]
		if t == closing {
			step = -step
		}
		if step < minDelta {
			return false
		}
	}
	return true
}

type gapSide struct {
	name      string
	gap       float32
	prev, cur model.GapHistory
	rival     model.RivalSnapshot
}

// gapTrend checks the gap to the car ahead first, then the gap to the car behind.
// Only updates which add a history sample are considered.
func gapTrend(t trend) Predicate {
	return func(prev, cur *model.DriverSnapshot, th *Thresholds) (model.Payload, bool) {
		if !both(prev, cur, model.FieldGaps) {
			return nil, false
		}
		sides := []gapSide{
			{"ahead", cur.Gaps.Ahead, prev.Gaps.AheadHistory, cur.Gaps.AheadHistory, cur.Ahead},
			{"behind", cur.Gaps.Behind, prev.Gaps.BehindHistory, cur.Gaps.BehindHistory, cur.Behind},
		}
		side, ok := lo.Find(sides, func(s gapSide) bool {
			return s.rival.Valid && s.cur != s.prev && s.gap > 0 &&
				s.gap <= th.GapMaxSeconds &&
				sustained(s.cur, t, th.GapSamples, th.GapMinDelta)
		})
		if !ok {
			return nil, false
		}
		samples := side.cur.Last(th.GapSamples + 1)
		return model.Payload{
			"side":   side.name,
			"gap":    side.gap,
			"change": samples[len(samples)-1] - samples[0],
			"rival":  side.rival.Name,
		}, true
	}
}

func ersLow(prev, cur *model.DriverSnapshot, th *Thresholds) (model.Payload, bool) {
	if !both(prev, cur, model.FieldCarStatus) ||
		prev.Car.ERSPercent < th.ERSLowPercent || cur.Car.ERSPercent >= th.ERSLowPercent {
		return nil, false
	}
	return model.Payload{
		"percent":    cur.Car.ERSPercent,
		"deployMode": cur.Car.ERSDeployMode,
	}, true
}

func positionLost(prev, cur *model.DriverSnapshot, _ *Thresholds) (model.Payload, bool) {
	if !both(prev, cur, model.FieldLap) || prev.Lap.Position == 0 ||
		cur.Lap.Position <= prev.Lap.Position {
		return nil, false
	}
	return model.Payload{"from": prev.Lap.Position, "to": cur.Lap.Position}, true
}

func positionGained(prev, cur *model.DriverSnapshot, _ *Thresholds) (model.Payload, bool) {
	if !both(prev, cur, model.FieldLap) || cur.Lap.Position == 0 ||
		cur.Lap.Position >= prev.Lap.Position {
		return nil, false
	}
	return model.Payload{"from": prev.Lap.Position, "to": cur.Lap.Position}, true
}

// personalBest fires on improvements, the first timed lap is no improvement
func personalBest(prev, cur *model.DriverSnapshot, _ *Thresholds) (model.Payload, bool) {
	if prev.Bests.LapMS == 0 || cur.Bests.LapMS >= prev.Bests.LapMS || cur.Bests.LapMS == 0 {
		return nil, false
	}
	return model.Payload{
		"lapMs":         cur.Bests.LapMS,
		"improvementMs": prev.Bests.LapMS - cur.Bests.LapMS,
	}, true
}

func finalLap(prev, cur *model.DriverSnapshot, _ *Thresholds) (model.Payload, bool) {
	total := cur.Session.TotalLaps
	if !both(prev, cur, model.FieldLap) || total == 0 ||
		prev.Lap.LapNumber >= total || cur.Lap.LapNumber != total {
		return nil, false
	}
	return model.Payload{"lap": total, "position": cur.Lap.Position}, true
}

func raceFinished(prev, cur *model.DriverSnapshot, _ *Thresholds) (model.Payload, bool) {
	if prev.RaceFinished || !cur.RaceFinished {
		return nil, false
	}
	return model.Payload{
		"position": cur.Lap.Position,
		"bestLap":  cur.Bests.LapMS,
	}, true
}
