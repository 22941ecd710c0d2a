//nolint:whitespace // can't make both editor and linter happy
package summary

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/pkg/repository"
)

const selectColumns = `
	driver_id, session_uid, track_id, session_type, laps_completed,
	best_lap_ms, final_position, pit_stops, penalty_seconds, max_damage,
	finished, recorded_at`

// Upsert stores the summary of a session. A summary written again for the
// same driver and session replaces the former one and keeps its id.
func Upsert(ctx context.Context, conn repository.Querier, s *model.SessionSummary) (
	uuid.UUID, error,
) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, err
	}
	row := conn.QueryRow(ctx, `
	insert into session_summary (id, `+selectColumns+`
	) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	on conflict (driver_id, session_uid) do update set
		track_id=excluded.track_id,
		session_type=excluded.session_type,
		laps_completed=excluded.laps_completed,
		best_lap_ms=excluded.best_lap_ms,
		final_position=excluded.final_position,
		pit_stops=excluded.pit_stops,
		penalty_seconds=excluded.penalty_seconds,
		max_damage=excluded.max_damage,
		finished=excluded.finished,
		recorded_at=excluded.recorded_at
	returning id
	`,
		id, s.DriverID, repository.SessionUID(s.SessionUID), s.TrackID, s.SessionType,
		s.LapsCompleted, s.BestLapMS, s.FinalPosition, s.PitStops, s.PenaltySeconds,
		s.MaxDamage, s.Finished, s.RecordedAt,
	)
	var ret uuid.UUID
	if err := row.Scan(&ret); err != nil {
		return uuid.Nil, err
	}
	return ret, nil
}

func LoadBySession(
	ctx context.Context,
	conn repository.Querier,
	driverID string,
	sessionUID uint64,
) (*model.SessionSummary, error) {
	rows, err := conn.Query(ctx, `
	select `+selectColumns+`
	from session_summary where driver_id=$1 and session_uid=$2
	`, driverID, repository.SessionUID(sessionUID))
	if err != nil {
		return nil, err
	}
	item, err := pgx.CollectExactlyOneRow(rows, scanSummary)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByDriver returns the latest summaries of the driver, newest first
func ListByDriver(
	ctx context.Context,
	conn repository.Querier,
	driverID string,
	limit int,
) ([]model.SessionSummary, error) {
	rows, err := conn.Query(ctx, `
	select `+selectColumns+`
	from session_summary where driver_id=$1
	order by recorded_at desc limit $2
	`, driverID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanSummary)
}

func scanSummary(row pgx.CollectableRow) (model.SessionSummary, error) {
	var item model.SessionSummary
	var uid int64
	err := row.Scan(
		&item.DriverID, &uid, &item.TrackID, &item.SessionType, &item.LapsCompleted,
		&item.BestLapMS, &item.FinalPosition, &item.PitStops, &item.PenaltySeconds,
		&item.MaxDamage, &item.Finished, &item.RecordedAt,
	)
	item.SessionUID = repository.FromSessionUID(uid)
	return item, err
}
