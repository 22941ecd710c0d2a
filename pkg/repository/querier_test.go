package repository

import (
	"math"
	"testing"

	"gotest.tools/v3/assert"
)

func TestSessionUID(t *testing.T) {
	for _, uid := range []uint64{0, 1, 0xF125, math.MaxInt64, math.MaxInt64 + 1, math.MaxUint64} {
		assert.Equal(t, uid, FromSessionUID(SessionUID(uid)))
	}
	assert.Equal(t, int64(-1), SessionUID(math.MaxUint64))
}
