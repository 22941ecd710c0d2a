//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package profile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/f1-race-engineer/pkg/model"
)

const profilesYAML = `profiles:
  - driverId: alice
    name: Alice
    drivingStyle: aggressive
    preferredTyre: soft
    brakeBias: 54
    ersMode: overtake
  - driverId: bob
    drivingStyle: conservative
`

func writeFile(t *testing.T, path, content string) {
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestFileProvider_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yml")
	writeFile(t, path, profilesYAML)
	f, err := NewFileProvider(path)
	require.NoError(t, err)

	tests := []struct {
		name    string
		driver  string
		want    model.Profile
		wantErr error
	}{
		{
			name:   "full entry",
			driver: "alice",
			want: model.Profile{
				DriverID: "alice", Name: "Alice", DrivingStyle: model.StyleAggressive,
				PreferredTyre: "soft", BrakeBias: 54, ERSMode: "overtake",
			},
		},
		{
			name:   "partial entry",
			driver: "bob",
			want:   model.Profile{DriverID: "bob", DrivingStyle: model.StyleConservative},
		},
		{name: "unknown", driver: "carol", wantErr: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.Load(context.Background(), tt.driver)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewFileProvider_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := NewFileProvider(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yml")
	writeFile(t, bad, "profiles: [")
	_, err = NewFileProvider(bad)
	assert.Error(t, err)

	noID := filepath.Join(dir, "noid.yml")
	writeFile(t, noID, "profiles:\n  - name: x\n")
	_, err = NewFileProvider(noID)
	assert.Error(t, err)
}

func TestFileProvider_WatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yml")
	writeFile(t, path, profilesYAML)
	var changes atomic.Int32
	f, err := NewFileProvider(path, WithOnChange(func() { changes.Add(1) }))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Watch(ctx) }()
	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)

	writeFile(t, path, "profiles:\n  - driverId: carol\n    ersMode: conservative\n")
	assert.Eventually(t, func() bool {
		p, err := f.Load(context.Background(), "carol")
		return err == nil && p.ERSMode == "conservative"
	}, 2*time.Second, 20*time.Millisecond)
	assert.Positive(t, changes.Load())

	_, err = f.Load(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestCached(t *testing.T) {
	var calls atomic.Int32
	src := ProviderFunc(func(_ context.Context, id string) (model.Profile, error) {
		calls.Add(1)
		if id == "ghost" {
			return model.Profile{}, ErrNotFound
		}
		return model.Profile{DriverID: id, ERSMode: "balanced"}, nil
	})
	c := NewCached(src, time.Minute)
	ctx := context.Background()

	p, err := c.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.DriverID)
	_, _ = c.Load(ctx, "alice")
	assert.Equal(t, int32(1), calls.Load())

	c.Invalidate(ctx)
	_, _ = c.Load(ctx, "alice")
	assert.Equal(t, int32(2), calls.Load())

	_, err = c.Load(ctx, "ghost")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoadOrDefault(t *testing.T) {
	ctx := context.Background()
	static := Static{"alice": {DrivingStyle: model.StyleAggressive}}

	p, err := LoadOrDefault(ctx, static, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.DriverID, "driver id is filled in")
	assert.Equal(t, model.StyleAggressive, p.DrivingStyle)

	p, err = LoadOrDefault(ctx, static, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, model.DefaultProfile("bob"), p)

	p, err = LoadOrDefault(ctx, nil, "bob")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultProfile("bob"), p)
}
