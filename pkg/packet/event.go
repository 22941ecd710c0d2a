package packet

// native event codes
const (
	EventSessionStarted  = "SSTA"
	EventSessionEnded    = "SEND"
	EventFastestLap      = "FTLP"
	EventRetirement      = "RTMT"
	EventDRSEnabled      = "DRSE"
	EventDRSDisabled     = "DRSD"
	EventTeamMateInPits  = "TMPT"
	EventChequeredFlag   = "CHQF"
	EventRaceWinner      = "RCWN"
	EventPenalty         = "PENA"
	EventSpeedTrap       = "SPTP"
	EventStartLights     = "STLG"
	EventLightsOut       = "LGOT"
	EventDriveThroughSvd = "DTSV"
	EventStopGoServed    = "SGSV"
	EventFlashback       = "FLBK"
	EventButtons         = "BUTN"
	EventRedFlag         = "RDFL"
	EventOvertake        = "OVTK"
	EventSafetyCar       = "SCAR"
	EventCollision       = "COLL"
)

// Event is the native event packet. Only the detail members matching the
// code are populated.
type Event struct {
	Header
	Code string
	// HasVehicle reports whether VehicleIdx refers to a car
	HasVehicle       bool
	VehicleIdx       uint8
	OtherVehicleIdx  uint8
	LapTime          float32
	Speed            float32
	PenaltyType      uint8
	InfringementType uint8
	PenaltyTime      uint8
	LapNum           uint8
	PlacesGained     uint8
	SafetyCarType    uint8
	SafetyCarEvent   uint8
	FlashbackFrame   uint32
	FlashbackTime    float32
	ButtonStatus     uint32
	NumLights        uint8
}

func (*Event) Kind() Kind { return KindEvent }
func (*Event) isPacket()  {}

func decodeEvent(h Header, r reader) *Event {
	p := &Event{Header: h, Code: r.str(0, 4)}
	d := r.at(4)
	vehicle := func(idx uint8) {
		p.HasVehicle = true
		p.VehicleIdx = idx
	}
	switch p.Code {
	case EventFastestLap:
		vehicle(d.u8(0))
		p.LapTime = d.f32(1)
	case EventRetirement, EventTeamMateInPits, EventRaceWinner,
		EventDriveThroughSvd, EventStopGoServed:
		vehicle(d.u8(0))
	case EventPenalty:
		p.PenaltyType = d.u8(0)
		p.InfringementType = d.u8(1)
		vehicle(d.u8(2))
		p.OtherVehicleIdx = d.u8(3)
		p.PenaltyTime = d.u8(4)
		p.LapNum = d.u8(5)
		p.PlacesGained = d.u8(6)
	case EventSpeedTrap:
		vehicle(d.u8(0))
		p.Speed = d.f32(1)
	case EventStartLights:
		p.NumLights = d.u8(0)
	case EventFlashback:
		p.FlashbackFrame = d.u32(0)
		p.FlashbackTime = d.f32(4)
	case EventButtons:
		p.ButtonStatus = d.u32(0)
	case EventOvertake, EventCollision:
		vehicle(d.u8(0))
		p.OtherVehicleIdx = d.u8(1)
	case EventSafetyCar:
		p.SafetyCarType = d.u8(0)
		p.SafetyCarEvent = d.u8(1)
	}
	return p
}
