package model

import "time"

// LapSummary is written when a tracked driver completes a lap
//
//nolint:tagliatelle // consumer compatibility
type LapSummary struct {
	DriverID       string    `json:"driverId"`
	SessionUID     uint64    `json:"sessionUid"`
	Lap            uint8     `json:"lap"`
	TrackID        int8      `json:"trackId"`
	LapTimeMS      uint32    `json:"lapTimeMs"`
	Sector1MS      uint32    `json:"sector1Ms"`
	Sector2MS      uint32    `json:"sector2Ms"`
	Sector3MS      uint32    `json:"sector3Ms"`
	Valid          bool      `json:"valid"`
	Position       uint8     `json:"position"`
	VisualCompound uint8     `json:"visualCompound"`
	TyreWear       Corners   `json:"tyreWear"`
	FuelInTank     float32   `json:"fuelInTank"`
	Pitted         bool      `json:"pitted"`
	DamageIncurred Damage    `json:"damageIncurred"`
	RecordedAt     time.Time `json:"recordedAt"`
}

// SessionSummary is written when a session ends for a tracked driver
//
//nolint:tagliatelle // consumer compatibility
type SessionSummary struct {
	DriverID       string    `json:"driverId"`
	SessionUID     uint64    `json:"sessionUid"`
	TrackID        int8      `json:"trackId"`
	SessionType    uint8     `json:"sessionType"`
	LapsCompleted  uint8     `json:"lapsCompleted"`
	BestLapMS      uint32    `json:"bestLapMs"`
	FinalPosition  uint8     `json:"finalPosition"`
	PitStops       uint8     `json:"pitStops"`
	PenaltySeconds uint8     `json:"penaltySeconds"`
	MaxDamage      Damage    `json:"maxDamage"`
	Finished       bool      `json:"finished"`
	RecordedAt     time.Time `json:"recordedAt"`
}
