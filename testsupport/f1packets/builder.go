// Package f1packets builds wire-format datagrams for tests.
package f1packets

import (
	"github.com/mpapenbr/f1-race-engineer/pkg/packet"
)

// Header carries the header values a test usually cares about.
// Player and Secondary default to car 0 and no secondary player.
type Header struct {
	SessionUID  uint64
	SessionTime float32
	Frame       uint32
	Player      uint8
	Secondary   uint8
	// Format overrides packet.Format when non-zero
	Format uint16
}

// Solo returns a header for a single player in car 0
func Solo(uid uint64, frame uint32) Header {
	return Header{
		SessionUID:  uid,
		SessionTime: float32(frame) / 60,
		Frame:       frame,
		Player:      0,
		Secondary:   packet.InvalidCarIndex,
	}
}

func newDatagram(kind packet.Kind, h Header) ([]byte, writer) {
	size, ok := packet.Size(kind)
	if !ok {
		size = packet.HeaderSize
	}
	buf := make([]byte, size)
	w := writer{buf: buf}
	format := h.Format
	if format == 0 {
		format = packet.Format
	}
	w.u16(0, format)
	w.u8(2, 25)
	w.u8(3, 1)
	w.u8(4, 0)
	w.u8(5, 1)
	w.u8(6, uint8(kind))
	w.u64(7, h.SessionUID)
	w.f32(15, h.SessionTime)
	w.u32(19, h.Frame)
	w.u32(23, h.Frame)
	w.u8(27, h.Player)
	w.u8(28, h.Secondary)
	return buf, w.at(packet.HeaderSize)
}

// Raw returns a header-only datagram for kind, used for kinds which are not decoded.
func Raw(kind packet.Kind, h Header, size int) []byte {
	buf, _ := newDatagram(kind, h)
	if size <= len(buf) {
		return buf[:size]
	}
	out := make([]byte, size)
	copy(out, buf)
	return out
}

// SessionData describes the session datagram content
type SessionData struct {
	Weather            uint8
	TrackTemperature   int8
	AirTemperature     int8
	TotalLaps          uint8
	TrackLength        uint16
	SessionType        uint8
	TrackID            int8
	SafetyCarStatus    uint8
	MarshalZones       []packet.MarshalZone
	Forecast           []packet.ForecastSample
	PitWindowIdealLap  uint8
	PitWindowLatestLap uint8
}

// RaceSession returns a dry race at Monza with the given lap count
func RaceSession(laps uint8) SessionData {
	return SessionData{
		Weather:          0,
		TrackTemperature: 32,
		AirTemperature:   24,
		TotalLaps:        laps,
		TrackLength:      5793,
		SessionType:      15,
		TrackID:          11,
	}
}

func Session(h Header, d SessionData) []byte {
	buf, w := newDatagram(packet.KindSession, h)
	w.u8(0, d.Weather)
	w.i8(1, d.TrackTemperature)
	w.i8(2, d.AirTemperature)
	w.u8(3, d.TotalLaps)
	w.u16(4, d.TrackLength)
	w.u8(6, d.SessionType)
	w.i8(7, d.TrackID)
	w.u8(18, uint8(len(d.MarshalZones)))
	for i, z := range d.MarshalZones {
		zw := w.at(19 + i*5)
		zw.f32(0, z.Start)
		zw.i8(4, z.Flag)
	}
	w.u8(124, d.SafetyCarStatus)
	w.u8(126, uint8(len(d.Forecast)))
	for i, f := range d.Forecast {
		fw := w.at(127 + i*8)
		fw.u8(0, f.SessionType)
		fw.u8(1, f.TimeOffset)
		fw.u8(2, f.Weather)
		fw.i8(3, f.TrackTemperature)
		fw.i8(5, f.AirTemperature)
		fw.u8(7, f.RainPercentage)
	}
	w.u8(653, d.PitWindowIdealLap)
	w.u8(654, d.PitWindowLatestLap)
	return buf
}

// LapData writes the given entries, all other cars stay zeroed
func LapData(h Header, cars map[int]packet.LapEntry) []byte {
	buf, w := newDatagram(packet.KindLapData, h)
	for idx, c := range cars {
		cw := w.at(idx * 57)
		cw.u32(0, c.LastLapTimeMS)
		cw.u32(4, c.CurrentLapTimeMS)
		cw.splitTime(8, c.Sector1MS)
		cw.splitTime(11, c.Sector2MS)
		cw.splitTime(14, c.DeltaToCarInFrontMS)
		cw.splitTime(17, c.DeltaToLeaderMS)
		cw.f32(20, c.LapDistance)
		cw.f32(24, c.TotalDistance)
		cw.f32(28, c.SafetyCarDelta)
		cw.u8(32, c.CarPosition)
		cw.u8(33, c.CurrentLapNum)
		cw.u8(34, c.PitStatus)
		cw.u8(35, c.NumPitStops)
		cw.u8(36, c.Sector)
		cw.bool(37, c.CurrentLapInvalid)
		cw.u8(38, c.Penalties)
		cw.u8(39, c.TotalWarnings)
		cw.u8(40, c.CornerCuttingWarnings)
		cw.u8(41, c.UnservedDriveThrough)
		cw.u8(42, c.UnservedStopGo)
		cw.u8(43, c.GridPosition)
		cw.u8(44, c.DriverStatus)
		cw.u8(45, c.ResultStatus)
		cw.bool(46, c.PitLaneTimerActive)
		cw.u16(47, c.PitLaneTimeInLaneMS)
		cw.u16(49, c.PitStopTimerMS)
		cw.f32(52, c.SpeedTrapFastestSpeed)
		cw.u8(56, c.SpeedTrapFastestLap)
	}
	t := w.at(22 * 57)
	t.u8(0, packet.InvalidCarIndex)
	t.u8(1, packet.InvalidCarIndex)
	return buf
}

// Event writes the code and the detail members relevant for it
//
//nolint:gocritic // value param is fine for tests
func Event(h Header, e packet.Event) []byte {
	buf, w := newDatagram(packet.KindEvent, h)
	w.code(e.Code)
	d := w.at(4)
	switch e.Code {
	case packet.EventFastestLap:
		d.u8(0, e.VehicleIdx)
		d.f32(1, e.LapTime)
	case packet.EventRetirement, packet.EventTeamMateInPits, packet.EventRaceWinner,
		packet.EventDriveThroughSvd, packet.EventStopGoServed:
		d.u8(0, e.VehicleIdx)
	case packet.EventPenalty:
		d.u8(0, e.PenaltyType)
		d.u8(1, e.InfringementType)
		d.u8(2, e.VehicleIdx)
		d.u8(3, e.OtherVehicleIdx)
		d.u8(4, e.PenaltyTime)
		d.u8(5, e.LapNum)
		d.u8(6, e.PlacesGained)
	case packet.EventSpeedTrap:
		d.u8(0, e.VehicleIdx)
		d.f32(1, e.Speed)
	case packet.EventStartLights:
		d.u8(0, e.NumLights)
	case packet.EventFlashback:
		d.u32(0, e.FlashbackFrame)
		d.f32(4, e.FlashbackTime)
	case packet.EventButtons:
		d.u32(0, e.ButtonStatus)
	case packet.EventOvertake, packet.EventCollision:
		d.u8(0, e.VehicleIdx)
		d.u8(1, e.OtherVehicleIdx)
	case packet.EventSafetyCar:
		d.u8(0, e.SafetyCarType)
		d.u8(1, e.SafetyCarEvent)
	}
	return buf
}

func Participants(h Header, active uint8, cars map[int]packet.ParticipantEntry) []byte {
	buf, w := newDatagram(packet.KindParticipants, h)
	w.u8(0, active)
	for idx, c := range cars {
		cw := w.at(1 + idx*57)
		cw.bool(0, c.AIControlled)
		cw.u8(1, c.DriverID)
		cw.u8(2, c.NetworkID)
		cw.u8(3, c.TeamID)
		cw.bool(4, c.MyTeam)
		cw.u8(5, c.RaceNumber)
		cw.u8(6, c.Nationality)
		cw.str(7, 32, c.Name)
		cw.u8(39, c.YourTelemetry)
		cw.u8(43, c.Platform)
	}
	return buf
}

func CarTelemetry(h Header, cars map[int]packet.TelemetryEntry) []byte {
	buf, w := newDatagram(packet.KindCarTelemetry, h)
	for idx, c := range cars {
		cw := w.at(idx * 60)
		cw.u16(0, c.SpeedKmh)
		cw.f32(2, c.Throttle)
		cw.f32(6, c.Steer)
		cw.f32(10, c.Brake)
		cw.u8(14, c.Clutch)
		cw.i8(15, c.Gear)
		cw.u16(16, c.EngineRPM)
		cw.bool(18, c.DRS)
		cw.u8(19, c.RevLightsPercent)
		for i, v := range c.BrakesTemperature {
			cw.u16(22+2*i, v)
		}
		cw.corners8(30, c.TyresSurfaceTemp)
		cw.corners8(34, c.TyresInnerTemp)
		cw.u16(38, c.EngineTemperature)
		cw.cornersF32(40, c.TyresPressure)
		cw.corners8(56, c.SurfaceType)
	}
	w.at(22*60).u8(0, 255)
	w.at(22*60).u8(1, 255)
	return buf
}

func CarStatus(h Header, cars map[int]packet.StatusEntry) []byte {
	buf, w := newDatagram(packet.KindCarStatus, h)
	for idx, c := range cars {
		cw := w.at(idx * 55)
		cw.u8(0, c.TractionControl)
		cw.bool(1, c.AntiLockBrakes)
		cw.u8(2, c.FuelMix)
		cw.u8(3, c.FrontBrakeBias)
		cw.bool(4, c.PitLimiterStatus)
		cw.f32(5, c.FuelInTank)
		cw.f32(9, c.FuelCapacity)
		cw.f32(13, c.FuelRemainingLaps)
		cw.u16(17, c.MaxRPM)
		cw.u16(19, c.IdleRPM)
		cw.u8(21, c.MaxGears)
		cw.bool(22, c.DRSAllowed)
		cw.u16(23, c.DRSActivationDistance)
		cw.u8(25, c.ActualTyreCompound)
		cw.u8(26, c.VisualTyreCompound)
		cw.u8(27, c.TyresAgeLaps)
		cw.i8(28, c.FIAFlags)
		cw.f32(29, c.EnginePowerICE)
		cw.f32(33, c.EnginePowerMGUK)
		cw.f32(37, c.ERSStoreEnergy)
		cw.u8(41, c.ERSDeployMode)
		cw.f32(42, c.ERSHarvestedMGUK)
		cw.f32(46, c.ERSHarvestedMGUH)
		cw.f32(50, c.ERSDeployedThisLap)
		cw.bool(54, c.NetworkPaused)
	}
	return buf
}

func CarDamage(h Header, cars map[int]packet.DamageEntry) []byte {
	buf, w := newDatagram(packet.KindCarDamage, h)
	for idx, c := range cars {
		cw := w.at(idx * 46)
		cw.cornersF32(0, c.TyresWear)
		cw.corners8(16, c.TyresDamage)
		cw.corners8(20, c.BrakesDamage)
		cw.corners8(24, c.TyreBlisters)
		cw.u8(28, c.FrontLeftWingDamage)
		cw.u8(29, c.FrontRightWingDamage)
		cw.u8(30, c.RearWingDamage)
		cw.u8(31, c.FloorDamage)
		cw.u8(32, c.DiffuserDamage)
		cw.u8(33, c.SidepodDamage)
		cw.bool(34, c.DRSFault)
		cw.bool(35, c.ERSFault)
		cw.u8(36, c.GearBoxDamage)
		cw.u8(37, c.EngineDamage)
		cw.bool(44, c.EngineBlown)
		cw.bool(45, c.EngineSeized)
	}
	return buf
}

//nolint:gocritic // value param is fine for tests
func TyreSets(h Header, p packet.TyreSets) []byte {
	buf, w := newDatagram(packet.KindTyreSets, h)
	w.u8(0, p.CarIdx)
	for i, s := range p.Sets {
		sw := w.at(1 + i*10)
		sw.u8(0, s.ActualCompound)
		sw.u8(1, s.VisualCompound)
		sw.u8(2, s.Wear)
		sw.bool(3, s.Available)
		sw.u8(4, s.RecommendedSession)
		sw.u8(5, s.LifeSpan)
		sw.u8(6, s.UsableLife)
		sw.i16(7, s.LapDeltaTimeMS)
		sw.bool(9, s.Fitted)
	}
	w.u8(201, p.FittedIndex)
	return buf
}

// Wear returns a damage entry with equal wear on all corners
func Wear(pct float32) packet.DamageEntry {
	return packet.DamageEntry{TyresWear: [4]float32{pct, pct, pct, pct}}
}
