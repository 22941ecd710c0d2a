package packet

// Packet is the closed set of decoded packet variants:
// *Session, *LapData, *Event, *Participants, *CarTelemetry, *CarStatus,
// *CarDamage, *TyreSets and *Skip.
type Packet interface {
	PacketHeader() Header
	Kind() Kind
	isPacket()
}

// Skip is returned for packet identifiers which are not decoded
type Skip struct {
	Header
}

func (p *Skip) Kind() Kind { return p.PacketID }
func (*Skip) isPacket()    {}

type MarshalZone struct {
	Start float32
	Flag  int8
}

type ForecastSample struct {
	SessionType      uint8
	TimeOffset       uint8
	Weather          uint8
	TrackTemperature int8
	AirTemperature   int8
	RainPercentage   uint8
}

type Session struct {
	Header
	Weather            uint8
	TrackTemperature   int8
	AirTemperature     int8
	TotalLaps          uint8
	TrackLength        uint16
	SessionType        uint8
	TrackID            int8
	Formula            uint8
	SessionTimeLeft    uint16
	SessionDuration    uint16
	PitSpeedLimit      uint8
	GamePaused         uint8
	IsSpectating       uint8
	NumMarshalZones    uint8
	MarshalZones       []MarshalZone
	SafetyCarStatus    uint8
	NetworkGame        uint8
	Forecast           []ForecastSample
	ForecastAccuracy   uint8
	AIDifficulty       uint8
	PitWindowIdealLap  uint8
	PitWindowLatestLap uint8
	PitRejoinPosition  uint8
}

func (*Session) Kind() Kind { return KindSession }
func (*Session) isPacket()  {}

type LapEntry struct {
	LastLapTimeMS         uint32
	CurrentLapTimeMS      uint32
	Sector1MS             uint32
	Sector2MS             uint32
	DeltaToCarInFrontMS   uint32
	DeltaToLeaderMS       uint32
	LapDistance           float32
	TotalDistance         float32
	SafetyCarDelta        float32
	CarPosition           uint8
	CurrentLapNum         uint8
	PitStatus             uint8
	NumPitStops           uint8
	Sector                uint8
	CurrentLapInvalid     bool
	Penalties             uint8
	TotalWarnings         uint8
	CornerCuttingWarnings uint8
	UnservedDriveThrough  uint8
	UnservedStopGo        uint8
	GridPosition          uint8
	DriverStatus          uint8
	ResultStatus          uint8
	PitLaneTimerActive    bool
	PitLaneTimeInLaneMS   uint16
	PitStopTimerMS        uint16
	SpeedTrapFastestSpeed float32
	SpeedTrapFastestLap   uint8
}

type LapData struct {
	Header
	Cars                 [NumCars]LapEntry
	TimeTrialPBCarIdx    uint8
	TimeTrialRivalCarIdx uint8
}

func (*LapData) Kind() Kind { return KindLapData }
func (*LapData) isPacket()  {}

type ParticipantEntry struct {
	AIControlled  bool
	DriverID      uint8
	NetworkID     uint8
	TeamID        uint8
	MyTeam        bool
	RaceNumber    uint8
	Nationality   uint8
	Name          string
	YourTelemetry uint8
	Platform      uint8
}

type Participants struct {
	Header
	NumActiveCars uint8
	Cars          [NumCars]ParticipantEntry
}

func (*Participants) Kind() Kind { return KindParticipants }
func (*Participants) isPacket()  {}

type TelemetryEntry struct {
	SpeedKmh          uint16
	Throttle          float32
	Steer             float32
	Brake             float32
	Clutch            uint8
	Gear              int8
	EngineRPM         uint16
	DRS               bool
	RevLightsPercent  uint8
	BrakesTemperature [4]uint16
	TyresSurfaceTemp  [4]uint8
	TyresInnerTemp    [4]uint8
	EngineTemperature uint16
	TyresPressure     [4]float32
	SurfaceType       [4]uint8
}

type CarTelemetry struct {
	Header
	Cars          [NumCars]TelemetryEntry
	SuggestedGear int8
}

func (*CarTelemetry) Kind() Kind { return KindCarTelemetry }
func (*CarTelemetry) isPacket()  {}

type StatusEntry struct {
	TractionControl       uint8
	AntiLockBrakes        bool
	FuelMix               uint8
	FrontBrakeBias        uint8
	PitLimiterStatus      bool
	FuelInTank            float32
	FuelCapacity          float32
	FuelRemainingLaps     float32
	MaxRPM                uint16
	IdleRPM               uint16
	MaxGears              uint8
	DRSAllowed            bool
	DRSActivationDistance uint16
	ActualTyreCompound    uint8
	VisualTyreCompound    uint8
	TyresAgeLaps          uint8
	FIAFlags              int8
	EnginePowerICE        float32
	EnginePowerMGUK       float32
	ERSStoreEnergy        float32
	ERSDeployMode         uint8
	ERSHarvestedMGUK      float32
	ERSHarvestedMGUH      float32
	ERSDeployedThisLap    float32
	NetworkPaused         bool
}

type CarStatus struct {
	Header
	Cars [NumCars]StatusEntry
}

func (*CarStatus) Kind() Kind { return KindCarStatus }
func (*CarStatus) isPacket()  {}

type DamageEntry struct {
	TyresWear            [4]float32
	TyresDamage          [4]uint8
	BrakesDamage         [4]uint8
	TyreBlisters         [4]uint8
	FrontLeftWingDamage  uint8
	FrontRightWingDamage uint8
	RearWingDamage       uint8
	FloorDamage          uint8
	DiffuserDamage       uint8
	SidepodDamage        uint8
	DRSFault             bool
	ERSFault             bool
	GearBoxDamage        uint8
	EngineDamage         uint8
	EngineBlown          bool
	EngineSeized         bool
}

type CarDamage struct {
	Header
	Cars [NumCars]DamageEntry
}

func (*CarDamage) Kind() Kind { return KindCarDamage }
func (*CarDamage) isPacket()  {}

const NumTyreSets = 20

type TyreSet struct {
	ActualCompound     uint8
	VisualCompound     uint8
	Wear               uint8
	Available          bool
	RecommendedSession uint8
	LifeSpan           uint8
	UsableLife         uint8
	LapDeltaTimeMS     int16
	Fitted             bool
}

type TyreSets struct {
	Header
	CarIdx      uint8
	Sets        [NumTyreSets]TyreSet
	FittedIndex uint8
}

func (*TyreSets) Kind() Kind { return KindTyreSets }
func (*TyreSets) isPacket()  {}

// Fitted returns the tyre set currently fitted to the car
func (p *TyreSets) Fitted() (TyreSet, bool) {
	if int(p.FittedIndex) >= NumTyreSets {
		return TyreSet{}, false
	}
	return p.Sets[p.FittedIndex], true
}
