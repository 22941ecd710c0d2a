package model

// FieldSet is a bitmask of snapshot field groups
type FieldSet uint32

const (
	FieldSession FieldSet = 1 << iota
	FieldParticipant
	FieldLap
	FieldBests
	FieldPenalty
	FieldGaps
	FieldRivals
	FieldTelemetry
	FieldCarStatus
	FieldTyres
	FieldDamage
	FieldFinished
)

func (f FieldSet) Has(o FieldSet) bool {
	return f&o == o
}

// Tyre wear and similar per corner values, ordered RL, RR, FL, FR
type Corners [4]float32

var cornerNames = [4]string{"rear-left", "rear-right", "front-left", "front-right"}

// Max returns the highest value and the name of its corner
func (c Corners) Max() (value float32, corner string) {
	idx := 0
	for i := 1; i < len(c); i++ {
		if c[i] > c[idx] {
			idx = i
		}
	}
	return c[idx], cornerNames[idx]
}

//nolint:tagliatelle // consumer compatibility
type LapState struct {
	Position         uint8   `json:"position"`
	LapNumber        uint8   `json:"lapNumber"`
	CurrentLapTimeMS uint32  `json:"currentLapTimeMs"`
	LastLapTimeMS    uint32  `json:"lastLapTimeMs"`
	Sector           uint8   `json:"sector"`
	Sector1MS        uint32  `json:"sector1Ms"`
	Sector2MS        uint32  `json:"sector2Ms"`
	LapValid         bool    `json:"lapValid"`
	LapDistance      float32 `json:"lapDistance"`
	PitStatus        uint8   `json:"pitStatus"`
	NumPitStops      uint8   `json:"numPitStops"`
	ResultStatus     uint8   `json:"resultStatus"`
	DeltaToLeaderMS  uint32  `json:"deltaToLeaderMs"`
}

type PersonalBests struct {
	LapMS     uint32 `json:"lapMs"`
	Sector1MS uint32 `json:"sector1Ms"`
	Sector2MS uint32 `json:"sector2Ms"`
	Sector3MS uint32 `json:"sector3Ms"`
}

type PenaltyState struct {
	Seconds          uint8 `json:"seconds"`
	Warnings         uint8 `json:"warnings"`
	DriveThrough     uint8 `json:"driveThrough"`
	StopGo           uint8 `json:"stopGo"`
	Count            uint8 `json:"count"`
	LastType         uint8 `json:"lastType"`
	LastInfringement uint8 `json:"lastInfringement"`
}

//nolint:tagliatelle // consumer compatibility
type CarState struct {
	SpeedKmh          uint16  `json:"speedKmh"`
	Gear              int8    `json:"gear"`
	FuelInTank        float32 `json:"fuelInTank"`
	FuelRemainingLaps float32 `json:"fuelRemainingLaps"`
	ERSStore          float32 `json:"ersStore"`
	ERSPercent        float32 `json:"ersPercent"`
	ERSDeployMode     uint8   `json:"ersDeployMode"`
	FIAFlag           int8    `json:"fiaFlag"`
	DRSAllowed        bool    `json:"drsAllowed"`
	BrakeBias         uint8   `json:"brakeBias"`
}

type TyreState struct {
	Wear           Corners `json:"wear"`
	ActualCompound uint8   `json:"actualCompound"`
	VisualCompound uint8   `json:"visualCompound"`
	AgeLaps        uint8   `json:"ageLaps"`
	StintStartLap  uint8   `json:"stintStartLap"`
	SetUsableLife  uint8   `json:"setUsableLife"`
}

// Damage in percent per component
type Damage struct {
	FrontLeftWing  uint8 `json:"frontLeftWing"`
	FrontRightWing uint8 `json:"frontRightWing"`
	RearWing       uint8 `json:"rearWing"`
	Floor          uint8 `json:"floor"`
	Diffuser       uint8 `json:"diffuser"`
	Sidepod        uint8 `json:"sidepod"`
}

type ComponentDamage struct {
	Component string
	Percent   uint8
}

// Components reports the damage of the components narrated to a driver.
// The front wing is the worse of both sides.
func (d Damage) Components() []ComponentDamage {
	return []ComponentDamage{
		{"front-wing", max(d.FrontLeftWing, d.FrontRightWing)},
		{"rear-wing", d.RearWing},
		{"floor", d.Floor},
		{"diffuser", d.Diffuser},
		{"sidepod", d.Sidepod},
	}
}

func (d Damage) Max() uint8 {
	var m uint8
	for _, c := range d.Components() {
		m = max(m, c.Percent)
	}
	return m
}

// MaxOf combines two damage records component wise
func (d Damage) MaxOf(o Damage) Damage {
	return Damage{
		FrontLeftWing:  max(d.FrontLeftWing, o.FrontLeftWing),
		FrontRightWing: max(d.FrontRightWing, o.FrontRightWing),
		RearWing:       max(d.RearWing, o.RearWing),
		Floor:          max(d.Floor, o.Floor),
		Diffuser:       max(d.Diffuser, o.Diffuser),
		Sidepod:        max(d.Sidepod, o.Sidepod),
	}
}

// GapHistorySize is the capacity of the gap history ring
const GapHistorySize = 16

// GapHistory keeps the most recent gap samples, oldest first.
type GapHistory struct {
	Samples [GapHistorySize]float32 `json:"samples"`
	N       uint8                   `json:"n"`
}

func (h *GapHistory) Push(v float32) {
	if int(h.N) < GapHistorySize {
		h.Samples[h.N] = v
		h.N++
		return
	}
	copy(h.Samples[:], h.Samples[1:])
	h.Samples[GapHistorySize-1] = v
}

// Last returns the n most recent samples, oldest first
func (h GapHistory) Last(n int) []float32 {
	if n > int(h.N) {
		n = int(h.N)
	}
	return h.Samples[int(h.N)-n : h.N]
}

type Gaps struct {
	Ahead         float32    `json:"ahead"`
	Behind        float32    `json:"behind"`
	AheadHistory  GapHistory `json:"aheadHistory"`
	BehindHistory GapHistory `json:"behindHistory"`
}

// RivalSnapshot is the reduced view of the car directly ahead or behind
//
//nolint:tagliatelle // consumer compatibility
type RivalSnapshot struct {
	Valid     bool    `json:"valid"`
	CarIndex  uint8   `json:"carIndex"`
	Name      string  `json:"name"`
	Position  uint8   `json:"position"`
	Gap       float32 `json:"gap"`
	PitStatus uint8   `json:"pitStatus"`
	MaxDamage uint8   `json:"maxDamage"`
}

// DriverSnapshot is the live state of a tracked driver.
// All members are values, a plain assignment yields an independent copy.
//
//nolint:tagliatelle // consumer compatibility
type DriverSnapshot struct {
	DriverID     string        `json:"driverId"`
	CarIndex     uint8         `json:"carIndex"`
	Name         string        `json:"name"`
	Seen         FieldSet      `json:"seen"`
	Frame        uint32        `json:"frame"`
	SessionTime  float32       `json:"sessionTime"`
	Session      Session       `json:"session"`
	Lap          LapState      `json:"lap"`
	Bests        PersonalBests `json:"bests"`
	Penalty      PenaltyState  `json:"penalty"`
	Car          CarState      `json:"car"`
	Tyres        TyreState     `json:"tyres"`
	Damage       Damage        `json:"damage"`
	Gaps         Gaps          `json:"gaps"`
	Ahead        RivalSnapshot `json:"ahead"`
	Behind       RivalSnapshot `json:"behind"`
	RaceFinished bool          `json:"raceFinished"`
}

// NewDriverSnapshot returns the initial state of a driver
func NewDriverSnapshot(driverID string) DriverSnapshot {
	return DriverSnapshot{
		DriverID: driverID,
		Car:      CarState{FIAFlag: -1},
	}
}

// Changes reports the field groups that differ between s and o
func (s *DriverSnapshot) Changes(o *DriverSnapshot) FieldSet {
	var f FieldSet
	mark := func(changed bool, fs FieldSet) {
		if changed {
			f |= fs
		}
	}
	mark(s.Session != o.Session, FieldSession)
	mark(s.Name != o.Name || s.CarIndex != o.CarIndex, FieldParticipant)
	mark(s.Lap != o.Lap, FieldLap)
	mark(s.Bests != o.Bests, FieldBests)
	mark(s.Penalty != o.Penalty, FieldPenalty)
	mark(s.Gaps != o.Gaps, FieldGaps)
	mark(s.Ahead != o.Ahead || s.Behind != o.Behind, FieldRivals)
	mark(s.Car.SpeedKmh != o.Car.SpeedKmh || s.Car.Gear != o.Car.Gear, FieldTelemetry)
	mark(carStatusDiffers(s.Car, o.Car), FieldCarStatus)
	mark(s.Tyres != o.Tyres, FieldTyres)
	mark(s.Damage != o.Damage, FieldDamage)
	mark(s.RaceFinished != o.RaceFinished, FieldFinished)
	return f
}

func carStatusDiffers(a, b CarState) bool {
	a.SpeedKmh, a.Gear = 0, 0
	b.SpeedKmh, b.Gear = 0, 0
	return a != b
}

// Delta is the outcome of applying one packet to a driver snapshot
type Delta struct {
	DriverID string
	Fields   FieldSet
	Prev     DriverSnapshot
	Cur      DriverSnapshot
}
