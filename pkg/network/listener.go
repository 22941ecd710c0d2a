// Package network receives telemetry datagrams via UDP.
package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/mpapenbr/f1-race-engineer/log"
)

const (
	DefaultAddr   = ":20777"
	DefaultRcvBuf = 1 << 20
	// the largest game packet is below 1500 bytes
	maxDatagram  = 2048
	readInterval = 100 * time.Millisecond
)

var ErrNotBound = errors.New("listener not bound")

// Stats receives counters of the read loop
type Stats interface {
	AddDatagram(bytes int)
	AddReadError()
}

type noopStats struct{}

func (noopStats) AddDatagram(int) {}
func (noopStats) AddReadError()   {}

// Handler receives a datagram. The slice is owned by the handler.
type Handler func(data []byte)

type Listener struct {
	log     *log.Logger
	addr    string
	rcvBuf  int
	factory SocketFactory
	stats   Stats
	sock    Socket
}

type Option func(l *Listener)

func WithLogger(l *log.Logger) Option {
	return func(li *Listener) {
		li.log = l
	}
}

func WithAddr(addr string) Option {
	return func(l *Listener) {
		l.addr = addr
	}
}

func WithReadBuffer(bytes int) Option {
	return func(l *Listener) {
		l.rcvBuf = bytes
	}
}

func WithSocketFactory(f SocketFactory) Option {
	return func(l *Listener) {
		l.factory = f
	}
}

func WithStats(s Stats) Option {
	return func(l *Listener) {
		l.stats = s
	}
}

func NewListener(opts ...Option) *Listener {
	ret := &Listener{
		log:     log.Default().Named("udp"),
		addr:    DefaultAddr,
		rcvBuf:  DefaultRcvBuf,
		factory: udpFactory{},
		stats:   noopStats{},
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Bind opens the socket. A failing receive buffer setting is not fatal.
func (l *Listener) Bind() error {
	addr, err := net.ResolveUDPAddr("udp", l.addr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", l.addr, err)
	}
	sock, err := l.factory.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", l.addr, err)
	}
	if l.rcvBuf > 0 {
		if err := sock.SetReadBuffer(l.rcvBuf); err != nil {
			l.log.Warn("could not set receive buffer",
				log.Int("bytes", l.rcvBuf), log.ErrorField(err))
		}
	}
	l.sock = sock
	l.log.Info("listening", log.String("addr", sock.LocalAddr().String()))
	return nil
}

func (l *Listener) LocalAddr() net.Addr {
	if l.sock == nil {
		return nil
	}
	return l.sock.LocalAddr()
}

// Run reads datagrams until ctx is done or the socket is closed.
// The read deadline is renewed every 100ms to observe ctx.
func (l *Listener) Run(ctx context.Context, handle Handler) error {
	if l.sock == nil {
		return ErrNotBound
	}
	buf := make([]byte, maxDatagram)
	for {
		if ctx.Err() != nil {
			return nil
		}
		//nolint:errcheck // deadline errors surface on read
		l.sock.SetReadDeadline(time.Now().Add(readInterval))
		n, _, err := l.sock.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			l.stats.AddReadError()
			l.log.Debug("read error", log.ErrorField(err))
			continue
		}
		l.stats.AddDatagram(n)
		data := make([]byte, n)
		copy(data, buf[:n])
		handle(data)
	}
}

func (l *Listener) Close() error {
	if l.sock == nil {
		return nil
	}
	return l.sock.Close()
}
