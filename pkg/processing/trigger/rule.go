package trigger

import (
	"time"

	"github.com/mpapenbr/f1-race-engineer/pkg/model"
)

// Predicate decides whether a rule holds for the transition prev -> cur.
// Predicates must be pure.
type Predicate func(prev, cur *model.DriverSnapshot, th *Thresholds) (model.Payload, bool)

// Level is a condition held by a snapshot, identified by Key
type Level struct {
	Key     string
	Payload model.Payload
}

// LevelFunc lists the levels cur holds. known is false while the
// underlying fields were never seen.
type LevelFunc func(cur *model.DriverSnapshot, th *Thresholds) (levels []Level, known bool)

// Rule is a named predicate with firing constraints.
// A higher Priority wins among rules matching the same update.
// Rules with Levels instead of a Predicate report each level once until it
// stops holding.
type Rule struct {
	ID        model.RuleID
	Priority  int
	Cooldown  time.Duration
	Kinds     model.KindSet
	Predicate Predicate
	Levels    LevelFunc
}

func rule(
	id model.RuleID, priority int, cooldown time.Duration, kinds model.KindSet, p Predicate,
) Rule {
	return Rule{ID: id, Priority: priority, Cooldown: cooldown, Kinds: kinds, Predicate: p}
}

func levelRule(
	id model.RuleID, priority int, cooldown time.Duration, kinds model.KindSet, l LevelFunc,
) Rule {
	return Rule{ID: id, Priority: priority, Cooldown: cooldown, Kinds: kinds, Levels: l}
}

var (
	allKinds = model.KindsOf(model.KindPractice, model.KindQualifying,
		model.KindSprint, model.KindRace, model.KindTimeTrial)
	raceKinds   = model.KindsOf(model.KindSprint, model.KindRace)
	noTimeTrial = model.KindsOf(model.KindPractice, model.KindQualifying,
		model.KindSprint, model.KindRace)
	withFuel = model.KindsOf(model.KindPractice, model.KindSprint,
		model.KindRace, model.KindTimeTrial)
	withLapTimes = model.KindsOf(model.KindQualifying, model.KindSprint,
		model.KindRace, model.KindTimeTrial)
	fullRace = model.KindsOf(model.KindRace)
)

// BuiltinRules returns the default rule set ordered by priority
//
//nolint:funlen,mnd // rule table
func BuiltinRules() []Rule {
	return []Rule{
		rule(model.RuleFuelCritical, 100, 90*time.Second, withFuel, fuelCritical),
		rule(model.RuleRedFlag, 95, 5*time.Minute, noTimeTrial, fiaFlag(flagRed)),
		levelRule(model.RuleTyreWearCritical, 90, 60*time.Second, allKinds, tyreWearCritical),
		rule(model.RuleSafetyCar, 85, 60*time.Second, noTimeTrial, safetyCar),
		levelRule(model.RuleDamageNew, 80, 0, allKinds, damageNew),
		levelRule(model.RuleFuelLow, 70, 240*time.Second, raceKinds, fuelLow),
		rule(model.RuleDefend, 65, 60*time.Second, raceKinds, defend),
		rule(model.RuleRivalPit, 60, 120*time.Second, fullRace, rivalPit),
		rule(model.RulePenalty, 55, 45*time.Second, noTimeTrial, penalty),
		rule(model.RulePitWindow, 50, 180*time.Second, fullRace, pitWindow),
		levelRule(model.RuleNearbyCarDamage, 48, 180*time.Second, raceKinds, nearbyCarDamage),
		rule(model.RuleYellowFlag, 45, 120*time.Second, noTimeTrial, fiaFlag(flagYellow)),
		rule(model.RuleRainIncoming, 42, 300*time.Second, noTimeTrial, rainIncoming),
		rule(model.RuleGapClosing, 40, 60*time.Second, raceKinds, gapTrend(closing)),
		rule(model.RuleUndercut, 38, 120*time.Second, fullRace, undercut),
		rule(model.RuleOvercut, 37, 120*time.Second, fullRace, overcut),
		rule(model.RuleGapOpening, 35, 60*time.Second, raceKinds, gapTrend(opening)),
		levelRule(model.RuleTyreWearWarning, 32, 120*time.Second, allKinds, tyreWearWarning),
		rule(model.RuleBlueFlag, 30, 60*time.Second, noTimeTrial, fiaFlag(flagBlue)),
		rule(model.RuleERSLow, 28, 60*time.Second, raceKinds, ersLow),
		rule(model.RulePositionLost, 25, 30*time.Second, raceKinds, positionLost),
		rule(model.RulePositionGained, 20, 30*time.Second, raceKinds, positionGained),
		rule(model.RulePersonalBest, 15, 0, withLapTimes, personalBest),
		rule(model.RuleFinalLap, 10, 0, raceKinds, finalLap),
		rule(model.RuleRaceFinished, 5, 0, allKinds, raceFinished),
	}
}
