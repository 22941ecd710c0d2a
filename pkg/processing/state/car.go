package state

import (
	"github.com/mpapenbr/f1-race-engineer/log"
	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/pkg/packet"
)

// ERSCapacity is the energy store capacity in joules
const ERSCapacity = 4_000_000.0

const (
	rainLookahead  = 15 // minutes
	flagYellow     = 3
	sectorOneLimit = 0.35
	sectorTwoLimit = 0.67
)

func applyTelemetry(d *driverState, e *packet.TelemetryEntry) {
	d.snap.Car.SpeedKmh = e.SpeedKmh
	d.snap.Car.Gear = e.Gear
	d.snap.Seen |= model.FieldTelemetry
}

func applyStatus(d *driverState, e *packet.StatusEntry) {
	c := &d.snap.Car
	c.FuelInTank = e.FuelInTank
	c.FuelRemainingLaps = e.FuelRemainingLaps
	c.ERSStore = e.ERSStoreEnergy
	c.ERSPercent = float32(float64(e.ERSStoreEnergy) / ERSCapacity * 100)
	c.ERSDeployMode = e.ERSDeployMode
	c.FIAFlag = e.FIAFlags
	c.DRSAllowed = e.DRSAllowed
	c.BrakeBias = e.FrontBrakeBias

	t := &d.snap.Tyres
	if d.snap.Seen.Has(model.FieldCarStatus) && t.VisualCompound != e.VisualTyreCompound {
		t.StintStartLap = d.snap.Lap.LapNumber
	}
	t.ActualCompound = e.ActualTyreCompound
	t.VisualCompound = e.VisualTyreCompound
	t.AgeLaps = e.TyresAgeLaps
	d.snap.Seen |= model.FieldCarStatus | model.FieldTyres
}

func damageOf(e *packet.DamageEntry) model.Damage {
	return model.Damage{
		FrontLeftWing:  e.FrontLeftWingDamage,
		FrontRightWing: e.FrontRightWingDamage,
		RearWing:       e.RearWingDamage,
		Floor:          e.FloorDamage,
		Diffuser:       e.DiffuserDamage,
		Sidepod:        e.SidepodDamage,
	}
}

func applyDamage(d *driverState, e *packet.DamageEntry) {
	d.snap.Tyres.Wear = model.Corners(e.TyresWear)
	d.snap.Damage = damageOf(e)
	d.maxDamage = d.maxDamage.MaxOf(d.snap.Damage)
	d.snap.Seen |= model.FieldDamage | model.FieldTyres
}

func applyTyreSets(d *driverState, p *packet.TyreSets, idx uint8) {
	if p.CarIdx != idx {
		return
	}
	if set, ok := p.Fitted(); ok {
		d.snap.Tyres.SetUsableLife = set.UsableLife
		d.snap.Seen |= model.FieldTyres
	}
}

func (a *Aggregator) applyEvent(d *driverState, p *packet.Event, idx uint8) {
	switch p.Code {
	case packet.EventChequeredFlag, packet.EventSessionEnded, packet.EventRaceWinner:
		d.snap.RaceFinished = true
		d.snap.Seen |= model.FieldFinished
	case packet.EventPenalty:
		if !p.HasVehicle || p.VehicleIdx != idx {
			return
		}
		d.snap.Penalty.Count++
		d.snap.Penalty.LastType = p.PenaltyType
		d.snap.Penalty.LastInfringement = p.InfringementType
		d.snap.Seen |= model.FieldPenalty
		a.log.Debug("penalty recorded",
			log.String("driver", d.binding.DriverID),
			log.Uint8("type", p.PenaltyType),
			log.Uint8("infringement", p.InfringementType))
	}
}

func deriveSession(p *packet.Session) model.Session {
	s := model.Session{
		UID:                p.SessionUID,
		TrackID:            p.TrackID,
		TrackName:          model.TrackName(p.TrackID),
		TrackLength:        p.TrackLength,
		SessionType:        p.SessionType,
		Kind:               model.SessionKindOf(p.SessionType),
		TotalLaps:          p.TotalLaps,
		Weather:            p.Weather,
		Wet:                p.Weather >= model.WeatherLightRain,
		TrackTemp:          p.TrackTemperature,
		AirTemp:            p.AirTemperature,
		SafetyCarStatus:    p.SafetyCarStatus,
		PitWindowIdealLap:  p.PitWindowIdealLap,
		PitWindowLatestLap: p.PitWindowLatestLap,
	}
	for _, z := range p.MarshalZones {
		if z.Flag == flagYellow {
			s.YellowSector = sectorOf(z.Start)
			break
		}
	}
	if !s.Wet {
		for _, f := range p.Forecast {
			if f.SessionType == p.SessionType &&
				f.Weather >= model.WeatherLightRain &&
				f.TimeOffset <= rainLookahead {
				s.RainIncoming = true
				s.RainInMinutes = f.TimeOffset
				s.RainPercentage = f.RainPercentage
				break
			}
		}
	}
	return s
}

// sectorOf maps the fraction of the lap where a marshal zone starts to a sector
func sectorOf(start float32) uint8 {
	switch {
	case start < sectorOneLimit:
		return 1
	case start < sectorTwoLimit:
		return 2
	default:
		return 3
	}
}
