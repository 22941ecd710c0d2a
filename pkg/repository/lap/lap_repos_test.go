//nolint:dupl,funlen,errcheck //ok for this test code
package lap

import (
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"gotest.tools/v3/assert"

	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/testsupport/testdb"
)

// above max int64 to cover the bigint mapping
const sessionUID uint64 = 0xF125_0000_0000_0001

var recorded = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

func sampleLap(lap uint8, lapTime uint32) model.LapSummary {
	return model.LapSummary{
		DriverID:       "player",
		SessionUID:     sessionUID,
		Lap:            lap,
		TrackID:        10,
		LapTimeMS:      lapTime,
		Sector1MS:      30000,
		Sector2MS:      31000,
		Sector3MS:      lapTime - 61000,
		Valid:          true,
		Position:       4,
		VisualCompound: 17,
		TyreWear:       model.Corners{10.5, 11, 9, 9.5},
		FuelInTank:     42.5,
		DamageIncurred: model.Damage{FrontLeftWing: 5},
		RecordedAt:     recorded,
	}
}

func createSampleEntries(db *pgxpool.Pool, laps ...model.LapSummary) {
	err := pgx.BeginFunc(context.Background(), db, func(tx pgx.Tx) error {
		for i := range laps {
			if _, err := Create(context.Background(), tx, &laps[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("createSampleEntries: %v\n", err)
	}
}

func TestCreate(t *testing.T) {
	pool := testdb.InitTestDb()
	createSampleEntries(pool, sampleLap(1, 92000))

	tests := []struct {
		name string
		lap  model.LapSummary
		want int
	}{
		{name: "new lap", lap: sampleLap(2, 91000), want: 1},
		{name: "duplicate is ignored", lap: sampleLap(1, 80000), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Create(context.Background(), pool, &tt.lap)
			assert.NilError(t, err)
			assert.Equal(t, got, tt.want)
		})
	}
}

func TestLoadBySession(t *testing.T) {
	pool := testdb.InitTestDb()
	want := []model.LapSummary{sampleLap(1, 92000), sampleLap(2, 91000)}
	createSampleEntries(pool, want[1], want[0])

	got, err := LoadBySession(context.Background(), pool, "player", sessionUID)
	assert.NilError(t, err)
	// timestamps come back in the local zone
	for i := range got {
		got[i].RecordedAt = got[i].RecordedAt.UTC()
	}
	assert.DeepEqual(t, got, want)

	got, err = LoadBySession(context.Background(), pool, "secondary", sessionUID)
	assert.NilError(t, err)
	assert.Equal(t, len(got), 0)
}

func TestBestLap(t *testing.T) {
	pool := testdb.InitTestDb()
	invalid := sampleLap(3, 85000)
	invalid.Valid = false
	createSampleEntries(pool, sampleLap(1, 92000), sampleLap(2, 91000), invalid)

	got, err := BestLap(context.Background(), pool, "player", 10)
	assert.NilError(t, err)
	if diff := cmp.Diff(uint8(2), got.Lap); diff != "" {
		t.Errorf("BestLap() mismatch (-want +got):\n%s", diff)
	}

	_, err = BestLap(context.Background(), pool, "player", 11)
	assert.Assert(t, errors.Is(err, pgx.ErrNoRows))
}

func TestDeleteBySession(t *testing.T) {
	pool := testdb.InitTestDb()
	createSampleEntries(pool, sampleLap(1, 92000), sampleLap(2, 91000))

	got, err := DeleteBySession(context.Background(), pool, sessionUID)
	assert.NilError(t, err)
	assert.Equal(t, got, 2)
}
