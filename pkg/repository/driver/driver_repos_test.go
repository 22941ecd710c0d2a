//nolint:dupl,funlen,errcheck //ok for this test code
package driver

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"gotest.tools/v3/assert"

	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/testsupport/testdb"
)

var sampleProfile = model.Profile{
	DriverID:      "player",
	Name:          "Lando",
	DrivingStyle:  model.StyleAggressive,
	PreferredTyre: "soft",
	BrakeBias:     54,
	ERSMode:       "overtake",
}

func TestUpsertAndLoad(t *testing.T) {
	pool := testdb.InitTestDb()
	ctx := context.Background()
	assert.NilError(t, Upsert(ctx, pool, &sampleProfile))

	got, err := LoadByID(ctx, pool, "player")
	assert.NilError(t, err)
	assert.DeepEqual(t, *got, sampleProfile)

	changed := sampleProfile
	changed.DrivingStyle = model.StyleConservative
	assert.NilError(t, Upsert(ctx, pool, &changed))
	got, err = LoadByID(ctx, pool, "player")
	assert.NilError(t, err)
	assert.Equal(t, got.DrivingStyle, model.StyleConservative)
}

func TestLoadByID(t *testing.T) {
	pool := testdb.InitTestDb()
	_, err := LoadByID(context.Background(), pool, "unknown")
	assert.Assert(t, errors.Is(err, pgx.ErrNoRows))
}

func TestLoadAllAndDelete(t *testing.T) {
	pool := testdb.InitTestDb()
	ctx := context.Background()
	other := model.DefaultProfile("secondary")
	assert.NilError(t, Upsert(ctx, pool, &other))
	assert.NilError(t, Upsert(ctx, pool, &sampleProfile))

	all, err := LoadAll(ctx, pool)
	assert.NilError(t, err)
	assert.DeepEqual(t, all, []model.Profile{sampleProfile, other})

	n, err := DeleteByID(ctx, pool, "secondary")
	assert.NilError(t, err)
	assert.Equal(t, n, 1)
}
