package packet

const (
	maxMarshalZones   = 21
	maxForecasts      = 64
	lapEntrySize      = 57
	participantSize   = 57
	telemetryEntrySz  = 60
	statusEntrySize   = 55
	damageEntrySize   = 46
	tyreSetEntrySize  = 10
	marshalZoneSize   = 5
	forecastEntrySize = 8
)

func decodeSession(h Header, r reader) *Session {
	p := &Session{
		Header:             h,
		Weather:            r.u8(0),
		TrackTemperature:   r.i8(1),
		AirTemperature:     r.i8(2),
		TotalLaps:          r.u8(3),
		TrackLength:        r.u16(4),
		SessionType:        r.u8(6),
		TrackID:            r.i8(7),
		Formula:            r.u8(8),
		SessionTimeLeft:    r.u16(9),
		SessionDuration:    r.u16(11),
		PitSpeedLimit:      r.u8(13),
		GamePaused:         r.u8(14),
		IsSpectating:       r.u8(15),
		NumMarshalZones:    r.u8(18),
		SafetyCarStatus:    r.u8(124),
		NetworkGame:        r.u8(125),
		ForecastAccuracy:   r.u8(639),
		AIDifficulty:       r.u8(640),
		PitWindowIdealLap:  r.u8(653),
		PitWindowLatestLap: r.u8(654),
		PitRejoinPosition:  r.u8(655),
	}
	numZones := min(int(p.NumMarshalZones), maxMarshalZones)
	p.MarshalZones = make([]MarshalZone, numZones)
	for i := range numZones {
		z := r.at(19 + i*marshalZoneSize)
		p.MarshalZones[i] = MarshalZone{Start: z.f32(0), Flag: z.i8(4)}
	}
	numForecast := min(int(r.u8(126)), maxForecasts)
	p.Forecast = make([]ForecastSample, numForecast)
	for i := range numForecast {
		f := r.at(127 + i*forecastEntrySize)
		p.Forecast[i] = ForecastSample{
			SessionType:      f.u8(0),
			TimeOffset:       f.u8(1),
			Weather:          f.u8(2),
			TrackTemperature: f.i8(3),
			AirTemperature:   f.i8(5),
			RainPercentage:   f.u8(7),
		}
	}
	return p
}

func decodeLapData(h Header, r reader) *LapData {
	p := &LapData{Header: h}
	for i := range NumCars {
		c := r.at(i * lapEntrySize)
		p.Cars[i] = LapEntry{
			LastLapTimeMS:         c.u32(0),
			CurrentLapTimeMS:      c.u32(4),
			Sector1MS:             splitTime(c.u16(8), c.u8(10)),
			Sector2MS:             splitTime(c.u16(11), c.u8(13)),
			DeltaToCarInFrontMS:   splitTime(c.u16(14), c.u8(16)),
			DeltaToLeaderMS:       splitTime(c.u16(17), c.u8(19)),
			LapDistance:           c.f32(20),
			TotalDistance:         c.f32(24),
			SafetyCarDelta:        c.f32(28),
			CarPosition:           c.u8(32),
			CurrentLapNum:         c.u8(33),
			PitStatus:             c.u8(34),
			NumPitStops:           c.u8(35),
			Sector:                c.u8(36),
			CurrentLapInvalid:     c.u8(37) == 1,
			Penalties:             c.u8(38),
			TotalWarnings:         c.u8(39),
			CornerCuttingWarnings: c.u8(40),
			UnservedDriveThrough:  c.u8(41),
			UnservedStopGo:        c.u8(42),
			GridPosition:          c.u8(43),
			DriverStatus:          c.u8(44),
			ResultStatus:          c.u8(45),
			PitLaneTimerActive:    c.u8(46) == 1,
			PitLaneTimeInLaneMS:   c.u16(47),
			PitStopTimerMS:        c.u16(49),
			SpeedTrapFastestSpeed: c.f32(52),
			SpeedTrapFastestLap:   c.u8(56),
		}
	}
	t := r.at(NumCars * lapEntrySize)
	p.TimeTrialPBCarIdx = t.u8(0)
	p.TimeTrialRivalCarIdx = t.u8(1)
	return p
}

// times are split into a millisecond part and a minute part
func splitTime(ms uint16, minutes uint8) uint32 {
	return uint32(minutes)*60_000 + uint32(ms)
}

func decodeParticipants(h Header, r reader) *Participants {
	p := &Participants{Header: h, NumActiveCars: r.u8(0)}
	for i := range NumCars {
		c := r.at(1 + i*participantSize)
		p.Cars[i] = ParticipantEntry{
			AIControlled:  c.u8(0) == 1,
			DriverID:      c.u8(1),
			NetworkID:     c.u8(2),
			TeamID:        c.u8(3),
			MyTeam:        c.u8(4) == 1,
			RaceNumber:    c.u8(5),
			Nationality:   c.u8(6),
			Name:          c.str(7, 32),
			YourTelemetry: c.u8(39),
			Platform:      c.u8(43),
		}
	}
	return p
}

func decodeCarTelemetry(h Header, r reader) *CarTelemetry {
	p := &CarTelemetry{Header: h}
	for i := range NumCars {
		c := r.at(i * telemetryEntrySz)
		p.Cars[i] = TelemetryEntry{
			SpeedKmh:         c.u16(0),
			Throttle:         c.f32(2),
			Steer:            c.f32(6),
			Brake:            c.f32(10),
			Clutch:           c.u8(14),
			Gear:             c.i8(15),
			EngineRPM:        c.u16(16),
			DRS:              c.u8(18) == 1,
			RevLightsPercent: c.u8(19),
			BrakesTemperature: [4]uint16{
				c.u16(22), c.u16(24), c.u16(26), c.u16(28),
			},
			TyresSurfaceTemp:  c.corners8(30),
			TyresInnerTemp:    c.corners8(34),
			EngineTemperature: c.u16(38),
			TyresPressure:     c.cornersF32(40),
			SurfaceType:       c.corners8(56),
		}
	}
	p.SuggestedGear = r.at(NumCars*telemetryEntrySz).i8(2)
	return p
}

func decodeCarStatus(h Header, r reader) *CarStatus {
	p := &CarStatus{Header: h}
	for i := range NumCars {
		c := r.at(i * statusEntrySize)
		p.Cars[i] = StatusEntry{
			TractionControl:       c.u8(0),
			AntiLockBrakes:        c.u8(1) == 1,
			FuelMix:               c.u8(2),
			FrontBrakeBias:        c.u8(3),
			PitLimiterStatus:      c.u8(4) == 1,
			FuelInTank:            c.f32(5),
			FuelCapacity:          c.f32(9),
			FuelRemainingLaps:     c.f32(13),
			MaxRPM:                c.u16(17),
			IdleRPM:               c.u16(19),
			MaxGears:              c.u8(21),
			DRSAllowed:            c.u8(22) == 1,
			DRSActivationDistance: c.u16(23),
			ActualTyreCompound:    c.u8(25),
			VisualTyreCompound:    c.u8(26),
			TyresAgeLaps:          c.u8(27),
			FIAFlags:              c.i8(28),
			EnginePowerICE:        c.f32(29),
			EnginePowerMGUK:       c.f32(33),
			ERSStoreEnergy:        c.f32(37),
			ERSDeployMode:         c.u8(41),
			ERSHarvestedMGUK:      c.f32(42),
			ERSHarvestedMGUH:      c.f32(46),
			ERSDeployedThisLap:    c.f32(50),
			NetworkPaused:         c.u8(54) == 1,
		}
	}
	return p
}

func decodeCarDamage(h Header, r reader) *CarDamage {
	p := &CarDamage{Header: h}
	for i := range NumCars {
		c := r.at(i * damageEntrySize)
		p.Cars[i] = DamageEntry{
			TyresWear:            c.cornersF32(0),
			TyresDamage:          c.corners8(16),
			BrakesDamage:         c.corners8(20),
			TyreBlisters:         c.corners8(24),
			FrontLeftWingDamage:  c.u8(28),
			FrontRightWingDamage: c.u8(29),
			RearWingDamage:       c.u8(30),
			FloorDamage:          c.u8(31),
			DiffuserDamage:       c.u8(32),
			SidepodDamage:        c.u8(33),
			DRSFault:             c.u8(34) == 1,
			ERSFault:             c.u8(35) == 1,
			GearBoxDamage:        c.u8(36),
			EngineDamage:         c.u8(37),
			EngineBlown:          c.u8(44) == 1,
			EngineSeized:         c.u8(45) == 1,
		}
	}
	return p
}

func decodeTyreSets(h Header, r reader) *TyreSets {
	p := &TyreSets{Header: h, CarIdx: r.u8(0)}
	for i := range NumTyreSets {
		s := r.at(1 + i*tyreSetEntrySize)
		p.Sets[i] = TyreSet{
			ActualCompound:     s.u8(0),
			VisualCompound:     s.u8(1),
			Wear:               s.u8(2),
			Available:          s.u8(3) == 1,
			RecommendedSession: s.u8(4),
			LifeSpan:           s.u8(5),
			UsableLife:         s.u8(6),
			LapDeltaTimeMS:     s.i16(7),
			Fitted:             s.u8(9) == 1,
		}
	}
	p.FittedIndex = r.u8(1 + NumTyreSets*tyreSetEntrySize)
	return p
}
