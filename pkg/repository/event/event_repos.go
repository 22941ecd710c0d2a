//nolint:whitespace // can't make both editor and linter happy
package event

import (
	"context"

	gofrs "github.com/gofrs/uuid/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/pkg/repository"
)

// Create stores an emitted event. Storing the same event twice is a no-op.
func Create(ctx context.Context, conn repository.Querier, ev *model.Event) error {
	payload := ev.Payload
	if payload == nil {
		payload = model.Payload{}
	}
	_, err := conn.Exec(ctx, `
	insert into engineer_event (
		id, rule, driver_id, priority, session_uid, lap, ts, payload
	) values ($1,$2,$3,$4,$5,$6,$7,$8)
	on conflict (id) do nothing
	`,
		gofrs.UUID(ev.ID), string(ev.Rule), ev.DriverID, ev.Priority,
		repository.SessionUID(ev.SessionUID), ev.Lap, ev.Timestamp, payload,
	)
	return err
}

// LoadBySession returns the events of the driver in emission order
func LoadBySession(
	ctx context.Context,
	conn repository.Querier,
	driverID string,
	sessionUID uint64,
) ([]model.Event, error) {
	rows, err := conn.Query(ctx, `
	select id, rule, driver_id, priority, session_uid, lap, ts, payload
	from engineer_event where driver_id=$1 and session_uid=$2
	order by ts asc
	`, driverID, repository.SessionUID(sessionUID))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Event, error) {
		var item model.Event
		var id gofrs.UUID
		var rule string
		var uid int64
		err := row.Scan(&id, &rule, &item.DriverID, &item.Priority, &uid,
			&item.Lap, &item.Timestamp, &item.Payload)
		item.ID = uuid.UUID(id)
		item.Rule = model.RuleID(rule)
		item.SessionUID = repository.FromSessionUID(uid)
		return item, err
	})
}

// CountByRule returns the number of stored events per rule for a session
func CountByRule(ctx context.Context, conn repository.Querier, sessionUID uint64) (
	map[model.RuleID]int, error,
) {
	rows, err := conn.Query(ctx, `
	select rule, count(*) from engineer_event where session_uid=$1 group by rule
	`, repository.SessionUID(sessionUID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := map[model.RuleID]int{}
	for rows.Next() {
		var rule string
		var n int
		if err := rows.Scan(&rule, &n); err != nil {
			return nil, err
		}
		ret[model.RuleID(rule)] = n
	}
	return ret, rows.Err()
}
