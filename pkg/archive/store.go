package archive

import (
	"context"

	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/pkg/repository"
	"github.com/mpapenbr/f1-race-engineer/pkg/repository/event"
	"github.com/mpapenbr/f1-race-engineer/pkg/repository/lap"
	"github.com/mpapenbr/f1-race-engineer/pkg/repository/summary"
)

// PostgresStore writes via the repository packages
type PostgresStore struct {
	conn repository.Querier
}

func NewPostgresStore(conn repository.Querier) *PostgresStore {
	return &PostgresStore{conn: conn}
}

func (p *PostgresStore) SaveLap(ctx context.Context, l *model.LapSummary) error {
	_, err := lap.Create(ctx, p.conn, l)
	return err
}

func (p *PostgresStore) SaveSession(ctx context.Context, s *model.SessionSummary) error {
	_, err := summary.Upsert(ctx, p.conn, s)
	return err
}

func (p *PostgresStore) SaveEvent(ctx context.Context, ev *model.Event) error {
	return event.Create(ctx, p.conn, ev)
}
