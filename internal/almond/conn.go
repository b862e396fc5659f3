package almond

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Default timeouts for hub communication.
const (
	// defaultConnectTimeout is the maximum time to wait for the
	// websocket handshake.
	defaultConnectTimeout = 10 * time.Second

	// defaultCloseGrace is how long a graceful close waits for the hub
	// to acknowledge before the socket is discarded.
	defaultCloseGrace = 5 * time.Second

	// writeTimeout is the deadline for individual frame writes.
	writeTimeout = 5 * time.Second

	// frameBufferSize is the buffer of the inbound frame channel. The
	// read loop blocks when the consumer falls this far behind.
	frameBufferSize = 32
)

// State is the connection lifecycle state.
type State int32

const (
	StateClosed State = iota
	StateOpening
	StateOpen
	StateClosing
)

// String returns the lowercase state name for logging.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// ConnConfig holds hub connection configuration.
type ConnConfig struct {
	// Host is the hub's address or hostname.
	Host string

	// Port is the hub's websocket port. Default: 7681.
	Port int

	// Username and Password are the hub's local web credentials. They
	// travel in the URL path; the hub has no other auth mechanism.
	Username string
	Password string

	// ConnectTimeout is the maximum time to wait for the handshake.
	// Default: 10 seconds.
	ConnectTimeout time.Duration

	// CloseGrace is how long Close waits for the hub's close
	// acknowledgement. Default: 5 seconds.
	CloseGrace time.Duration
}

// url builds the hub endpoint. Credentials are path segments; this is
// the hub's protocol, not a choice.
func (c ConnConfig) url() string {
	port := c.Port
	if port == 0 {
		port = 7681
	}
	addr := net.JoinHostPort(c.Host, strconv.Itoa(port))
	return fmt.Sprintf("ws://%s/%s/%s", addr, c.Username, c.Password)
}

// ConnStats holds operational statistics.
type ConnStats struct {
	FramesTx     uint64
	FramesRx     uint64
	ErrorsTotal  uint64
	LastActivity time.Time
	State        State
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// nopLogger discards everything. Used when no logger is configured.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Conn manages a single websocket connection to the hub.
//
// Lifecycle: Closed → Opening → Open → Closing → Closed. Open returns
// a fresh inbound frame channel for each connection cycle; the channel
// is closed when the connection ends, however it ends. A closed stream
// is never restarted; call Open again for a new one.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Send serialises frame writes internally.
type Conn struct {
	cfg ConnConfig

	// Connection state
	mu     sync.Mutex
	state  State
	ws     *websocket.Conn
	frames chan []byte

	// Write serialisation (gorilla permits one concurrent writer)
	writeMu sync.Mutex

	// Per-cycle shutdown coordination
	readDone chan struct{}
	stop     *closeOnce

	logger Logger

	// Statistics (atomic for performance)
	framesTx     atomic.Uint64
	framesRx     atomic.Uint64
	errorsTotal  atomic.Uint64
	lastActivity atomic.Int64 // Unix timestamp
}

// NewConn returns an unopened connection manager for the given hub.
func NewConn(cfg ConnConfig, logger Logger) *Conn {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.CloseGrace == 0 {
		cfg.CloseGrace = defaultCloseGrace
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Conn{
		cfg:    cfg,
		state:  StateClosed,
		logger: logger,
	}
}

// Open dials the hub and starts the receive loop.
//
// On success it returns the inbound frame channel for this connection
// cycle. The channel is closed when the connection drops or Close
// completes; each successful Open yields a new channel.
//
// Parameters:
//   - ctx: Context for cancellation during the handshake
//
// Returns:
//   - <-chan []byte: Inbound frames, closed when the connection ends
//   - error: ErrAlreadyConnected, or ErrConnectionFailed wrapping the cause
func (c *Conn) Open(ctx context.Context) (<-chan []byte, error) {
	c.mu.Lock()
	if c.state != StateClosed {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: state %s", ErrAlreadyConnected, c.state)
	}
	c.state = StateOpening
	c.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.ConnectTimeout}
	ws, resp, err := dialer.DialContext(dialCtx, c.cfg.url(), nil)
	if err != nil {
		c.setState(StateClosed)
		if resp != nil {
			return nil, fmt.Errorf("%w: dial %s:%d: %s: %w",
				ErrConnectionFailed, c.cfg.Host, c.cfg.Port, resp.Status, err)
		}
		return nil, fmt.Errorf("%w: dial %s:%d: %w",
			ErrConnectionFailed, c.cfg.Host, c.cfg.Port, err)
	}

	frames := make(chan []byte, frameBufferSize)
	readDone := make(chan struct{})
	stop := newCloseOnce()

	c.mu.Lock()
	c.ws = ws
	c.frames = frames
	c.readDone = readDone
	c.stop = stop
	c.state = StateOpen
	c.mu.Unlock()

	c.lastActivity.Store(time.Now().Unix())
	c.logger.Info("hub connection open", "host", c.cfg.Host, "port", c.cfg.Port)

	go c.receiveLoop(ws, frames, readDone, stop)

	return frames, nil
}

// receiveLoop reads frames until the socket fails or closes. It owns
// the frame channel: nothing else sends on it, and it closes it on
// exit so consumers see a definite end of stream.
func (c *Conn) receiveLoop(ws *websocket.Conn, frames chan []byte, readDone chan struct{}, stop *closeOnce) {
	defer close(readDone)
	defer close(frames)

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			c.handleReadEnd(err)
			return
		}

		c.framesRx.Add(1)
		c.lastActivity.Store(time.Now().Unix())

		// stop unblocks the send during a forced teardown; a stalled
		// consumer must not be able to wedge Close.
		select {
		case frames <- msg:
		case <-stop.Done():
			c.handleReadEnd(nil)
			return
		}
	}
}

// handleReadEnd records why the read loop ended and moves the
// connection to Closed unless a graceful Close is already in charge.
func (c *Conn) handleReadEnd(err error) {
	c.mu.Lock()
	closing := c.state == StateClosing
	if !closing {
		c.state = StateClosed
		if c.ws != nil {
			c.ws.Close()
			c.ws = nil
		}
	}
	c.mu.Unlock()

	switch {
	case closing:
		c.logger.Debug("hub read loop ended during close", "reason", err)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		c.logger.Info("hub closed the connection", "reason", err)
	default:
		c.errorsTotal.Add(1)
		c.logger.Error("hub connection lost", "error", err)
	}
}

// Send writes one text frame to the hub.
//
// Returns ErrNotConnected unless the connection is open.
func (c *Conn) Send(payload []byte) error {
	c.mu.Lock()
	if c.state != StateOpen {
		c.mu.Unlock()
		return fmt.Errorf("%w: state %s", ErrNotConnected, c.state)
	}
	ws := c.ws
	c.mu.Unlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("almond: set write deadline: %w", err)
	}
	if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.errorsTotal.Add(1)
		return fmt.Errorf("almond: write frame: %w", err)
	}

	c.framesTx.Add(1)
	c.lastActivity.Store(time.Now().Unix())
	return nil
}

// Close performs a graceful websocket close.
//
// It sends a close frame and waits up to the configured grace period
// for the hub to acknowledge. On timeout the socket is discarded
// anyway and ErrCloseTimeout is returned; either way the connection
// ends Closed and the frame channel is closed.
//
// Returns ErrNotConnected if there is no open connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.state != StateOpen {
		c.mu.Unlock()
		return fmt.Errorf("%w: state %s", ErrNotConnected, c.state)
	}
	c.state = StateClosing
	ws := c.ws
	readDone := c.readDone
	stop := c.stop
	c.mu.Unlock()

	// One deadline covers the whole handshake: a stalled close frame
	// write eats into the wait for the acknowledgement, not on top of it.
	deadline := time.Now().Add(c.cfg.CloseGrace)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")

	c.writeMu.Lock()
	err := ws.WriteControl(websocket.CloseMessage, msg, deadline)
	c.writeMu.Unlock()
	if err != nil {
		c.logger.Warn("close frame write failed", "error", err)
	}

	// The hub's close acknowledgement surfaces as a CloseError on the
	// read loop, which then exits.
	timedOut := false
	select {
	case <-readDone:
	case <-time.After(time.Until(deadline)):
		timedOut = true
		c.logger.Warn("close not acknowledged, discarding socket",
			"grace", c.cfg.CloseGrace.String())
	}

	stop.Close()
	ws.Close()
	if timedOut {
		// Socket torn down; the read loop exits promptly now.
		<-readDone
	}

	c.mu.Lock()
	c.state = StateClosed
	c.ws = nil
	c.mu.Unlock()

	if timedOut {
		return ErrCloseTimeout
	}
	c.logger.Info("hub connection closed")
	return nil
}

// Frames returns the inbound frame channel of the current connection
// cycle, or nil when no Open has succeeded yet. The channel is the
// same one the matching Open returned.
func (c *Conn) Frames() <-chan []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the connection is open.
func (c *Conn) IsConnected() bool {
	return c.State() == StateOpen
}

// Stats returns current operational statistics.
func (c *Conn) Stats() ConnStats {
	return ConnStats{
		FramesTx:     c.framesTx.Load(),
		FramesRx:     c.framesRx.Load(),
		ErrorsTotal:  c.errorsTotal.Load(),
		LastActivity: time.Unix(c.lastActivity.Load(), 0),
		State:        c.State(),
	}
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
