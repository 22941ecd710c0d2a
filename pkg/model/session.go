package model

import "fmt"

type SessionKind int

const (
	KindUnknown SessionKind = iota
	KindPractice
	KindQualifying
	KindSprint
	KindRace
	KindTimeTrial
)

func (k SessionKind) String() string {
	switch k {
	case KindPractice:
		return "practice"
	case KindQualifying:
		return "qualifying"
	case KindSprint:
		return "sprint"
	case KindRace:
		return "race"
	case KindTimeTrial:
		return "time-trial"
	case KindUnknown:
	}
	return "unknown"
}

// SessionKindOf maps the raw session type of the session packet.
// 10-12 are sprint shootouts in the current numbering.
func SessionKindOf(sessionType uint8) SessionKind {
	switch {
	case sessionType >= 1 && sessionType <= 4:
		return KindPractice
	case sessionType >= 5 && sessionType <= 12:
		return KindQualifying
	case sessionType == 13 || sessionType == 15:
		return KindRace
	case sessionType == 14:
		return KindSprint
	case sessionType == 16:
		return KindTimeTrial
	}
	return KindUnknown
}

// KindSet is a bitmask of session kinds
type KindSet uint8

func KindsOf(kinds ...SessionKind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s |= 1 << k
	}
	return s
}

func (s KindSet) Has(k SessionKind) bool {
	return s&(1<<k) != 0
}

const (
	SafetyCarNone      uint8 = 0
	SafetyCarFull      uint8 = 1
	SafetyCarVirtual   uint8 = 2
	SafetyCarFormation uint8 = 3
)

// Weather codes >= WeatherLightRain are wet conditions
const WeatherLightRain uint8 = 3

// Session holds the session wide values a driver snapshot is evaluated against.
//
//nolint:tagliatelle // consumer compatibility
type Session struct {
	UID                uint64      `json:"sessionUid"`
	TrackID            int8        `json:"trackId"`
	TrackName          string      `json:"trackName"`
	TrackLength        uint16      `json:"trackLength"`
	SessionType        uint8       `json:"sessionType"`
	Kind               SessionKind `json:"kind"`
	TotalLaps          uint8       `json:"totalLaps"`
	Weather            uint8       `json:"weather"`
	Wet                bool        `json:"wet"`
	TrackTemp          int8        `json:"trackTemp"`
	AirTemp            int8        `json:"airTemp"`
	SafetyCarStatus    uint8       `json:"safetyCarStatus"`
	PitWindowIdealLap  uint8       `json:"pitWindowIdealLap"`
	PitWindowLatestLap uint8       `json:"pitWindowLatestLap"`
	YellowSector       uint8       `json:"yellowSector"`
	RainIncoming       bool        `json:"rainIncoming"`
	RainInMinutes      uint8       `json:"rainInMinutes"`
	RainPercentage     uint8       `json:"rainPercentage"`
}

func (s Session) String() string {
	return fmt.Sprintf("%d/%s/%s", s.UID, s.TrackName, s.Kind)
}
