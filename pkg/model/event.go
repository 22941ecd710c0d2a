package model

import (
	"time"

	"github.com/google/uuid"
)

type RuleID string

const (
	RuleFuelCritical     RuleID = "fuel-critical"
	RuleRedFlag          RuleID = "red-flag"
	RuleTyreWearCritical RuleID = "tyre-wear-critical"
	RuleSafetyCar        RuleID = "safety-car"
	RuleDamageNew        RuleID = "damage-new"
	RuleRivalPit         RuleID = "rival-pit"
	RulePenalty          RuleID = "penalty"
	RulePitWindow        RuleID = "pit-window"
	RuleYellowFlag       RuleID = "yellow-flag"
	RuleRainIncoming     RuleID = "rain-incoming"
	RuleGapClosing       RuleID = "gap-closing"
	RuleGapOpening       RuleID = "gap-opening"
	RuleTyreWearWarning  RuleID = "tyre-wear-warning"
	RuleBlueFlag         RuleID = "blue-flag"
	RuleERSLow           RuleID = "ers-low"
	RulePositionLost     RuleID = "position-lost"
	RulePositionGained   RuleID = "position-gained"
	RulePersonalBest     RuleID = "personal-best"
	RuleFinalLap         RuleID = "final-lap"
	RuleRaceFinished     RuleID = "race-finished"
	RuleFuelLow          RuleID = "fuel-low"
	RuleDefend           RuleID = "defend"
	RuleNearbyCarDamage  RuleID = "nearby-car-damage"
	RuleUndercut         RuleID = "undercut"
	RuleOvercut          RuleID = "overcut"
)

// Payload carries rule specific values. It must not be modified after the
// event was emitted.
type Payload map[string]any

// Event is emitted by the trigger engine and handed over to consumers
//
//nolint:tagliatelle // consumer compatibility
type Event struct {
	ID         uuid.UUID `json:"id"`
	Rule       RuleID    `json:"rule"`
	DriverID   string    `json:"driverId"`
	Priority   int       `json:"priority"`
	SessionUID uint64    `json:"sessionUid"`
	Lap        uint8     `json:"lap"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    Payload   `json:"payload"`
}
