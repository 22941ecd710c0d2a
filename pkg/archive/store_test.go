package archive

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gotest.tools/v3/assert"

	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/pkg/repository/event"
	"github.com/mpapenbr/f1-race-engineer/pkg/repository/lap"
	"github.com/mpapenbr/f1-race-engineer/pkg/repository/summary"
	"github.com/mpapenbr/f1-race-engineer/testsupport/testdb"
)

func TestPostgresStore(t *testing.T) {
	pool := testdb.InitTestDb()
	ctx := context.Background()
	store := NewPostgresStore(pool)
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	l := model.LapSummary{DriverID: "player", SessionUID: 9, Lap: 1, LapTimeMS: 90000, RecordedAt: now}
	assert.NilError(t, store.SaveLap(ctx, &l))
	assert.NilError(t, store.SaveLap(ctx, &l), "saving a lap twice is fine")
	s := model.SessionSummary{DriverID: "player", SessionUID: 9, LapsCompleted: 1, RecordedAt: now}
	assert.NilError(t, store.SaveSession(ctx, &s))
	ev := model.Event{ID: uuid.New(), Rule: model.RulePitWindow, DriverID: "player", SessionUID: 9, Timestamp: now}
	assert.NilError(t, store.SaveEvent(ctx, &ev))

	laps, err := lap.LoadBySession(ctx, pool, "player", 9)
	assert.NilError(t, err)
	assert.Equal(t, len(laps), 1)
	got, err := summary.LoadBySession(ctx, pool, "player", 9)
	assert.NilError(t, err)
	assert.Equal(t, got.LapsCompleted, uint8(1))
	events, err := event.LoadBySession(ctx, pool, "player", 9)
	assert.NilError(t, err)
	assert.Equal(t, len(events), 1)
}
