package network

import (
	"net"
	"sync"
	"time"
)

// Socket is the part of *net.UDPConn the listener uses
type Socket interface {
	ReadFromUDP(b []byte) (n int, addr *net.UDPAddr, err error)
	SetReadBuffer(bytes int) error
	SetReadDeadline(t time.Time) error
	Close() error
	LocalAddr() net.Addr
}

type SocketFactory interface {
	ListenUDP(network string, laddr *net.UDPAddr) (Socket, error)
}

type udpFactory struct{}

func (udpFactory) ListenUDP(network string, laddr *net.UDPAddr) (Socket, error) {
	conn, err := net.ListenUDP(network, laddr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// MockSocket is an in-memory Socket. Datagrams passed to Feed are returned by
// ReadFromUDP in order. A read without pending datagram times out at the
// read deadline.
type MockSocket struct {
	mu       sync.Mutex
	data     chan []byte
	closed   chan struct{}
	once     sync.Once
	deadline time.Time
	rcvBuf   int
	addr     *net.UDPAddr
	from     *net.UDPAddr
}

func NewMockSocket(capacity int) *MockSocket {
	return &MockSocket{
		data:   make(chan []byte, capacity),
		closed: make(chan struct{}),
		addr:   &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 20777},
		from:   &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 50000},
	}
}

// Feed queues a copy of b. It blocks if the mock buffer is full.
func (m *MockSocket) Feed(b []byte) {
	m.data <- append([]byte(nil), b...)
}

func (m *MockSocket) ReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	m.mu.Lock()
	deadline := m.deadline
	m.mu.Unlock()

	var timeout <-chan time.Time
	if !deadline.IsZero() {
		t := time.NewTimer(time.Until(deadline))
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-m.closed:
		return 0, nil, net.ErrClosed
	case d := <-m.data:
		return copy(b, d), m.from, nil
	case <-timeout:
		return 0, nil, &net.OpError{Op: "read", Net: "udp", Err: timeoutError{}}
	}
}

func (m *MockSocket) SetReadBuffer(bytes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rcvBuf = bytes
	return nil
}

func (m *MockSocket) ReadBuffer() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rcvBuf
}

func (m *MockSocket) SetReadDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadline = t
	return nil
}

func (m *MockSocket) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}

func (m *MockSocket) LocalAddr() net.Addr {
	return m.addr
}

// MockFactory hands out a prepared socket or fails with Err
type MockFactory struct {
	Socket *MockSocket
	Err    error
}

func (f *MockFactory) ListenUDP(_ string, _ *net.UDPAddr) (Socket, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Socket, nil
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
