package listen

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/f1-race-engineer/pkg/config"
	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/pkg/processing/state"
	"github.com/mpapenbr/f1-race-engineer/pkg/profile"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"valid", "2s", 2 * time.Second},
		{"invalid", "soon", time.Minute},
		{"negative", "-1s", time.Minute},
		{"zero", "0s", time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDuration("test", tt.value, time.Minute))
		})
	}
}

func TestSetupProcessor(t *testing.T) {
	bindings, err := state.ParseBindings([]string{"player=player", "rival=car:5"})
	require.NoError(t, err)
	p, err := setupProcessor(bindings)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"player", "rival"}, p.DriverIDs())
}

func TestSetupProfiles(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		config.ProfileFile = ""
		p, watch, err := setupProfiles(context.Background(), nil)
		require.NoError(t, err)
		assert.Nil(t, p)
		assert.Nil(t, watch)
	})
	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profiles.yml")
		require.NoError(t, os.WriteFile(path, []byte("profiles: []\n"), 0o600))
		config.ProfileFile = path
		t.Cleanup(func() { config.ProfileFile = "" })

		p, watch, err := setupProfiles(context.Background(), nil)
		require.NoError(t, err)
		assert.NotNil(t, watch)
		// unknown drivers fall back to the default
		got, _ := profile.LoadOrDefault(context.Background(), p, "player")
		assert.Equal(t, model.DefaultProfile("player"), got)
	})
	t.Run("missing file", func(t *testing.T) {
		config.ProfileFile = filepath.Join(t.TempDir(), "missing.yml")
		t.Cleanup(func() { config.ProfileFile = "" })
		_, _, err := setupProfiles(context.Background(), nil)
		assert.Error(t, err)
	})
}
