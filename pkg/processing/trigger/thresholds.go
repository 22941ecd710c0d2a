package trigger

import (
	"strings"

	"github.com/mpapenbr/f1-race-engineer/pkg/model"
)

// Thresholds parameterize the built-in predicates
type Thresholds struct {
	FuelCriticalLaps float32
	TyreWearWarning  float32
	TyreWearCritical float32
	DamageComponent  uint8
	ERSLowPercent    float32
	// GapSamples is the number of consecutive history updates a gap trend must hold
	GapSamples int
	// GapMinDelta is the minimum change in seconds per history update
	GapMinDelta float32
	// GapMaxSeconds ignores trends of cars further away
	GapMaxSeconds float32
	// FuelLowLaps warns ahead of FuelCriticalLaps
	FuelLowLaps float32
	// DefendSeconds is the gap behind which calls for defending
	DefendSeconds float32
	// RivalDamage is the damage of the car ahead worth a call within RivalDamageGap
	RivalDamage    uint8
	RivalDamageGap float32
	UndercutGap    float32
	OvercutGap     float32
}

// built-in defaults, used when no profile is available
const (
	DefaultFuelCriticalLaps = 0.5
	DefaultTyreWearWarning  = 60
	DefaultTyreWearCritical = 80
	DefaultDamageComponent  = 20
	DefaultERSLowPercent    = 20
	DefaultGapSamples       = 3
	DefaultGapMinDelta      = 0.05
	DefaultGapMaxSeconds    = 10
	DefaultFuelLowLaps      = 2
	DefaultDefendSeconds    = 1
	DefaultRivalDamage      = 40
	DefaultRivalDamageGap   = 3
	DefaultUndercutGap      = 2
	DefaultOvercutGap       = 2.5

	styleWearShift = 5
	ersLowEager    = 10
	ersLowSaving   = 30
)

func DefaultThresholds() Thresholds {
	return Thresholds{
		FuelCriticalLaps: DefaultFuelCriticalLaps,
		TyreWearWarning:  DefaultTyreWearWarning,
		TyreWearCritical: DefaultTyreWearCritical,
		DamageComponent:  DefaultDamageComponent,
		ERSLowPercent:    DefaultERSLowPercent,
		GapSamples:       DefaultGapSamples,
		GapMinDelta:      DefaultGapMinDelta,
		GapMaxSeconds:    DefaultGapMaxSeconds,
		FuelLowLaps:      DefaultFuelLowLaps,
		DefendSeconds:    DefaultDefendSeconds,
		RivalDamage:      DefaultRivalDamage,
		RivalDamageGap:   DefaultRivalDamageGap,
		UndercutGap:      DefaultUndercutGap,
		OvercutGap:       DefaultOvercutGap,
	}
}

type ThresholdOption func(th *Thresholds)

// WithGapTrend overrides the sustained gap definition
func WithGapTrend(samples int, minDelta float32) ThresholdOption {
	return func(th *Thresholds) {
		if samples > 0 {
			th.GapSamples = samples
		}
		if minDelta > 0 {
			th.GapMinDelta = minDelta
		}
	}
}

// ForProfile derives the thresholds for a driver profile.
// Aggressive drivers get tyre calls earlier, conservative ones later.
// The ERS mode moves the low battery call.
//
//nolint:gocritic // profile is a small value type
func ForProfile(p model.Profile, opts ...ThresholdOption) Thresholds {
	th := DefaultThresholds()
	switch p.DrivingStyle {
	case model.StyleAggressive:
		th.TyreWearWarning -= styleWearShift
		th.TyreWearCritical -= styleWearShift
	case model.StyleConservative:
		th.TyreWearWarning += styleWearShift
		th.TyreWearCritical += styleWearShift
	case model.StyleBalanced:
	}
	switch strings.ToLower(p.ERSMode) {
	case "overtake", "aggressive":
		th.ERSLowPercent = ersLowEager
	case "conservative":
		th.ERSLowPercent = ersLowSaving
	}
	for _, opt := range opts {
		opt(&th)
	}
	return th
}
