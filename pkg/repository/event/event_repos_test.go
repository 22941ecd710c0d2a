//nolint:dupl,funlen,errcheck //ok for this test code
package event

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"gotest.tools/v3/assert"

	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/testsupport/testdb"
)

var t0 = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

func sampleEvent(rule model.RuleID, offset time.Duration) model.Event {
	return model.Event{
		ID:         uuid.New(),
		Rule:       rule,
		DriverID:   "player",
		Priority:   90,
		SessionUID: 42,
		Lap:        5,
		Timestamp:  t0.Add(offset),
		Payload:    model.Payload{"corner": "front-left", "wear": 81.5},
	}
}

func TestCreateAndLoad(t *testing.T) {
	pool := testdb.InitTestDb()
	ctx := context.Background()
	first := sampleEvent(model.RuleTyreWearCritical, 0)
	second := sampleEvent(model.RuleFuelCritical, time.Second)
	for _, ev := range []*model.Event{&second, &first, &first} {
		assert.NilError(t, Create(ctx, pool, ev))
	}

	got, err := LoadBySession(ctx, pool, "player", 42)
	assert.NilError(t, err)
	assert.Equal(t, len(got), 2)
	for i := range got {
		got[i].Timestamp = got[i].Timestamp.UTC()
	}
	if diff := cmp.Diff([]model.Event{first, second}, got); diff != "" {
		t.Errorf("LoadBySession() mismatch (-want +got):\n%s", diff)
	}
}

func TestCountByRule(t *testing.T) {
	pool := testdb.InitTestDb()
	ctx := context.Background()
	for i, r := range []model.RuleID{
		model.RuleGapClosing, model.RuleGapClosing, model.RuleRivalPit,
	} {
		ev := sampleEvent(r, time.Duration(i)*time.Second)
		assert.NilError(t, Create(ctx, pool, &ev))
	}
	got, err := CountByRule(ctx, pool, 42)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, map[model.RuleID]int{
		model.RuleGapClosing: 2,
		model.RuleRivalPit:   1,
	})
}
