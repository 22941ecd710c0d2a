//nolint:whitespace // can't make both editor and linter happy
package lap

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/pkg/repository"
)

const selectColumns = `
	driver_id, session_uid, lap, track_id, lap_time_ms,
	sector1_ms, sector2_ms, sector3_ms, valid, position, visual_compound,
	tyre_wear, fuel_in_tank, pitted, damage, recorded_at`

// Create stores a completed lap. A lap already stored for the driver and
// session is left untouched, the returned count is 0 then.
func Create(ctx context.Context, conn repository.Querier, l *model.LapSummary) (
	int, error,
) {
	cmdTag, err := conn.Exec(ctx, `
	insert into lap_history (`+selectColumns+`
	) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	on conflict (driver_id, session_uid, lap) do nothing
	`,
		l.DriverID, repository.SessionUID(l.SessionUID), l.Lap, l.TrackID, l.LapTimeMS,
		l.Sector1MS, l.Sector2MS, l.Sector3MS, l.Valid, l.Position, l.VisualCompound,
		l.TyreWear[:], l.FuelInTank, l.Pitted, l.DamageIncurred, l.RecordedAt,
	)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// LoadBySession returns the laps of the driver ordered by lap number
func LoadBySession(
	ctx context.Context,
	conn repository.Querier,
	driverID string,
	sessionUID uint64,
) ([]model.LapSummary, error) {
	rows, err := conn.Query(ctx, `
	select `+selectColumns+`
	from lap_history where driver_id=$1 and session_uid=$2
	order by lap asc
	`, driverID, repository.SessionUID(sessionUID))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanLap)
}

// BestLap returns the fastest valid lap of the driver on the track
func BestLap(
	ctx context.Context,
	conn repository.Querier,
	driverID string,
	trackID int8,
) (*model.LapSummary, error) {
	rows, err := conn.Query(ctx, `
	select `+selectColumns+`
	from lap_history
	where driver_id=$1 and track_id=$2 and valid and lap_time_ms > 0
	order by lap_time_ms asc limit 1
	`, driverID, trackID)
	if err != nil {
		return nil, err
	}
	item, err := pgx.CollectExactlyOneRow(rows, scanLap)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteBySession removes the laps of a session, returns number of rows deleted.
func DeleteBySession(ctx context.Context, conn repository.Querier, sessionUID uint64) (
	int, error,
) {
	cmdTag, err := conn.Exec(ctx, "delete from lap_history where session_uid=$1",
		repository.SessionUID(sessionUID))
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

func scanLap(row pgx.CollectableRow) (model.LapSummary, error) {
	var item model.LapSummary
	var uid int64
	var wear []float32
	if err := row.Scan(
		&item.DriverID, &uid, &item.Lap, &item.TrackID, &item.LapTimeMS,
		&item.Sector1MS, &item.Sector2MS, &item.Sector3MS,
		&item.Valid, &item.Position, &item.VisualCompound,
		&wear, &item.FuelInTank, &item.Pitted, &item.DamageIncurred, &item.RecordedAt,
	); err != nil {
		return item, err
	}
	item.SessionUID = repository.FromSessionUID(uid)
	copy(item.TyreWear[:], wear)
	return item, nil
}
