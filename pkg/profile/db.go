package profile

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/f1-race-engineer/log"
	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/pkg/repository"
	"github.com/mpapenbr/f1-race-engineer/pkg/repository/driver"
)

// DBProvider reads profiles from the driver_profile table
type DBProvider struct {
	conn repository.Querier
}

func NewDBProvider(conn repository.Querier) *DBProvider {
	return &DBProvider{conn: conn}
}

func (d *DBProvider) Load(ctx context.Context, driverID string) (model.Profile, error) {
	p, err := driver.LoadByID(ctx, d.conn, driverID)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Profile{}, ErrNotFound
	}
	if err != nil {
		return model.Profile{}, err
	}
	log.GetFromContext(ctx).Debug("profile loaded from database",
		log.String("driver", driverID))
	return *p, nil
}
