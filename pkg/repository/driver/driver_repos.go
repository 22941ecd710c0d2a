//nolint:whitespace // can't make both editor and linter happy
package driver

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/pkg/repository"
)

// Upsert creates or replaces the profile of p.DriverID
func Upsert(ctx context.Context, conn repository.Querier, p *model.Profile) error {
	_, err := conn.Exec(ctx, `
	insert into driver_profile (
		driver_id, name, driving_style, preferred_tyre, brake_bias, ers_mode
	) values ($1,$2,$3,$4,$5,$6)
	on conflict (driver_id) do update set
		name=excluded.name,
		driving_style=excluded.driving_style,
		preferred_tyre=excluded.preferred_tyre,
		brake_bias=excluded.brake_bias,
		ers_mode=excluded.ers_mode
	`,
		p.DriverID, p.Name, string(p.DrivingStyle), p.PreferredTyre, p.BrakeBias, p.ERSMode,
	)
	return err
}

// LoadByID returns pgx.ErrNoRows for unknown drivers
func LoadByID(ctx context.Context, conn repository.Querier, driverID string) (
	*model.Profile, error,
) {
	row := conn.QueryRow(ctx, `
	select driver_id, name, driving_style, preferred_tyre, brake_bias, ers_mode
	from driver_profile where driver_id=$1
	`, driverID)
	var item model.Profile
	var style string
	if err := row.Scan(
		&item.DriverID, &item.Name, &style, &item.PreferredTyre,
		&item.BrakeBias, &item.ERSMode,
	); err != nil {
		return nil, err
	}
	item.DrivingStyle = model.DrivingStyle(style)
	return &item, nil
}

func LoadAll(ctx context.Context, conn repository.Querier) ([]model.Profile, error) {
	rows, err := conn.Query(ctx, `
	select driver_id, name, driving_style, preferred_tyre, brake_bias, ers_mode
	from driver_profile order by driver_id
	`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[model.Profile])
}

// deletes an entry from the database, returns number of rows deleted.
func DeleteByID(ctx context.Context, conn repository.Querier, driverID string) (int, error) {
	cmdTag, err := conn.Exec(ctx, "delete from driver_profile where driver_id=$1", driverID)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}
