package utils

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFromDBURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"with port", "postgresql://user:pw@db:6543/fre", "db:6543"},
		{"default port", "postgresql://user:pw@db/fre", "db:5432"},
		{"postgres scheme", "postgres://user@localhost:5432/fre?sslmode=disable", "localhost:5432"},
		{"no credentials", "postgresql://db/fre", "db:5432"},
		{"invalid", "mysql://db/fre", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFromDBURL(tt.url))
		})
	}
}

func TestExtractFromNatsURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"with port", "nats://localhost:4223", "localhost:4223"},
		{"default port", "nats://nats", "nats:4222"},
		{"credentials", "nats://user:pw@nats:4222", "nats:4222"},
		{"list", "nats://a:1,nats://b:2", "a:1"},
		{"tls", "tls://secure", "secure:4222"},
		{"invalid", "http://nats", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFromNatsURL(tt.url))
		})
	}
}

func TestWaitForTCP(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	assert.NoError(t, WaitForTCP(context.Background(), addr, time.Second))

	l.Close()
	assert.Error(t, WaitForTCP(context.Background(), addr, 300*time.Millisecond))
}
