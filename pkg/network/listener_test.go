//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package network

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStats struct {
	datagrams atomic.Int64
	bytes     atomic.Int64
	errors    atomic.Int64
}

func (s *countingStats) AddDatagram(n int) {
	s.datagrams.Add(1)
	s.bytes.Add(int64(n))
}
func (s *countingStats) AddReadError() { s.errors.Add(1) }

func TestListener_Bind(t *testing.T) {
	tests := []struct {
		name    string
		factory *MockFactory
		addr    string
		wantErr bool
	}{
		{"mock socket", &MockFactory{Socket: NewMockSocket(1)}, DefaultAddr, false},
		{"listen fails", &MockFactory{Err: errors.New("address in use")}, DefaultAddr, true},
		{"bad address", &MockFactory{Socket: NewMockSocket(1)}, "not-an-addr:xx", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewListener(WithSocketFactory(tt.factory), WithAddr(tt.addr), WithReadBuffer(4096))
			err := l.Bind()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, l.LocalAddr())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 4096, tt.factory.Socket.ReadBuffer())
			assert.Equal(t, "127.0.0.1:20777", l.LocalAddr().String())
		})
	}
}

func TestListener_RunNotBound(t *testing.T) {
	l := NewListener()
	assert.ErrorIs(t, l.Run(context.Background(), func([]byte) {}), ErrNotBound)
}

func TestListener_Run(t *testing.T) {
	sock := NewMockSocket(8)
	stats := &countingStats{}
	l := NewListener(WithSocketFactory(&MockFactory{Socket: sock}), WithStats(stats))
	require.NoError(t, l.Bind())

	var (
		mu  sync.Mutex
		got [][]byte
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- l.Run(ctx, func(data []byte) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, data)
		})
	}()

	sock.Feed([]byte{1, 2, 3})
	sock.Feed([]byte{4, 5})
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 10*time.Millisecond)

	// idle reads time out and keep the loop alive
	time.Sleep(250 * time.Millisecond)
	sock.Feed([]byte{6})
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
	assert.Equal(t, [][]byte{{1, 2, 3}, {4, 5}, {6}}, got)
	assert.Equal(t, int64(3), stats.datagrams.Load())
	assert.Equal(t, int64(6), stats.bytes.Load())
	assert.Equal(t, int64(0), stats.errors.Load())
}

func TestListener_CloseStopsRun(t *testing.T) {
	sock := NewMockSocket(1)
	l := NewListener(WithSocketFactory(&MockFactory{Socket: sock}))
	require.NoError(t, l.Bind())
	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background(), func([]byte) {}) }()

	require.NoError(t, l.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
}
