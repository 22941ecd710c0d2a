package packet

// Format is the only protocol version accepted by Decode
const Format uint16 = 2025

const (
	HeaderSize = 29
	NumCars    = 22
	// InvalidCarIndex marks an unused player slot in the header
	InvalidCarIndex uint8 = 255
)

// Kind is the packet identifier of the header
type Kind uint8

const (
	KindMotion Kind = iota
	KindSession
	KindLapData
	KindEvent
	KindParticipants
	KindCarSetups
	KindCarTelemetry
	KindCarStatus
	KindFinalClassification
	KindLobbyInfo
	KindCarDamage
	KindSessionHistory
	KindTyreSets
	KindMotionEx
	KindTimeTrial
	KindLapPositions
)

// NumKinds is one past the highest known packet identifier
const NumKinds = int(KindLapPositions) + 1

var kindNames = [NumKinds]string{
	"motion", "session", "lapdata", "event", "participants", "carsetups",
	"cartelemetry", "carstatus", "finalclassification", "lobbyinfo", "cardamage",
	"sessionhistory", "tyresets", "motionex", "timetrial", "lappositions",
}

func (k Kind) String() string {
	if int(k) < NumKinds {
		return kindNames[k]
	}
	return "unknown"
}

// expected datagram sizes including the header for the decoded kinds
var packetSizes = map[Kind]int{
	KindSession:      753,
	KindLapData:      1285,
	KindEvent:        45,
	KindParticipants: 1284,
	KindCarTelemetry: 1352,
	KindCarStatus:    1239,
	KindCarDamage:    1041,
	KindTyreSets:     231,
}

// Size returns the datagram size of k. ok is false for kinds which are not decoded.
func Size(k Kind) (size int, ok bool) {
	size, ok = packetSizes[k]
	return size, ok
}

type Header struct {
	PacketFormat            uint16
	GameYear                uint8
	GameMajorVersion        uint8
	GameMinorVersion        uint8
	PacketVersion           uint8
	PacketID                Kind
	SessionUID              uint64
	SessionTime             float32
	FrameIdentifier         uint32
	OverallFrameIdentifier  uint32
	PlayerCarIndex          uint8
	SecondaryPlayerCarIndex uint8
}

// PacketHeader gives access to the header of any packet variant
func (h Header) PacketHeader() Header {
	return h
}

func decodeHeader(r reader) Header {
	return Header{
		PacketFormat:            r.u16(0),
		GameYear:                r.u8(2),
		GameMajorVersion:        r.u8(3),
		GameMinorVersion:        r.u8(4),
		PacketVersion:           r.u8(5),
		PacketID:                Kind(r.u8(6)),
		SessionUID:              r.u64(7),
		SessionTime:             r.f32(15),
		FrameIdentifier:         r.u32(19),
		OverallFrameIdentifier:  r.u32(23),
		PlayerCarIndex:          r.u8(27),
		SecondaryPlayerCarIndex: r.u8(28),
	}
}
