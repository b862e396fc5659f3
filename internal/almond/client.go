package almond

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/almondlink/almond-link/internal/capability"
)

// defaultEventBuffer is the buffer of the unsolicited event channel.
// Events beyond this are dropped, never queued unboundedly.
const defaultEventBuffer = 64

// transport is what the client needs from the connection layer.
type transport interface {
	Send(payload []byte) error
}

// Response is the final outcome of one correlated request. Exactly one
// Response is ever delivered per request, whichever of reply, cancel,
// timeout, or connection loss gets there first.
type Response struct {
	// MII is the request's correlation identifier.
	MII string

	// Sent is the command as the caller supplied it, without the
	// correlation field.
	Sent Command

	// Received is the matched reply frame, nil unless Err is nil.
	Received *Frame

	// Cancelled reports an explicit cancellation.
	Cancelled bool

	// Err is nil on a matched reply; otherwise ErrCancelled,
	// ErrRequestTimeout, or ErrConnectionClosed.
	Err error

	SentAt     time.Time
	ReceivedAt time.Time
}

// PendingCall is the handle for one in-flight request.
type PendingCall struct {
	// MII is the correlation identifier stamped onto the request.
	MII string

	sent   Command
	sentAt time.Time
	done   chan Response
	timer  *time.Timer
}

// Done delivers the request's single Response.
func (p *PendingCall) Done() <-chan Response {
	return p.done
}

// complete delivers the response. Callers must have removed the entry
// from the pending map first; that removal is what makes completion
// single-fire.
func (p *PendingCall) complete(r Response) {
	if p.timer != nil {
		p.timer.Stop()
	}
	r.MII = p.MII
	r.Sent = p.sent
	r.SentAt = p.sentAt
	p.done <- r
}

// ClientOptions tunes the correlation engine.
type ClientOptions struct {
	// RequestTimeout fails a pending request after this long without a
	// reply. 0 disables the timeout; some hub commands legitimately
	// take a long time and the hub never forgets a request.
	RequestTimeout time.Duration

	// EventBuffer is the unsolicited event channel depth.
	// Default: 64.
	EventBuffer int
}

// ClientStats holds correlation engine statistics.
type ClientStats struct {
	Pending          int
	EventsDropped    uint64
	UnmatchedReplies uint64
}

// Client correlates hub requests with replies and routes unsolicited
// frames to an event channel.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - One mutex guards the pending map and the device-scan memory;
//     both are touched from the send path and the dispatch goroutine.
type Client struct {
	tx     transport
	logger Logger
	opts   ClientOptions

	mu       sync.Mutex
	pending  map[string]*PendingCall
	listCall *sharedList

	events chan *Frame

	eventsDropped    atomic.Uint64
	unmatchedReplies atomic.Uint64

	wg sync.WaitGroup
}

// NewClient returns a client sending on tx. Call Start with the
// connection's frame channel before expecting any replies.
func NewClient(tx transport, logger Logger, opts ClientOptions) *Client {
	if logger == nil {
		logger = nopLogger{}
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	return &Client{
		tx:      tx,
		logger:  logger,
		opts:    opts,
		pending: make(map[string]*PendingCall),
		events:  make(chan *Frame, opts.EventBuffer),
	}
}

// Start consumes inbound frames until the channel closes. When it
// does, every still-pending request completes with ErrConnectionClosed
// and the event channel is closed.
func (c *Client) Start(frames <-chan []byte) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for raw := range frames {
			c.dispatch(raw)
		}
		c.failAll(ErrConnectionClosed)
		close(c.events)
	}()
}

// Wait blocks until the dispatch loop has finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Events returns the unsolicited frame channel. It is closed when the
// connection's frame stream ends.
func (c *Client) Events() <-chan *Frame {
	return c.events
}

// Stats returns current correlation statistics.
func (c *Client) Stats() ClientStats {
	c.mu.Lock()
	pending := len(c.pending)
	c.mu.Unlock()
	return ClientStats{
		Pending:          pending,
		EventsDropped:    c.eventsDropped.Load(),
		UnmatchedReplies: c.unmatchedReplies.Load(),
	}
}

// SendRequest stamps a fresh correlation identifier onto cmd, records
// the request as pending, and sends it. The returned handle's Done
// channel delivers exactly one Response.
//
// The command must not carry the correlation field itself; the client
// owns it.
func (c *Client) SendRequest(cmd Command) (*PendingCall, error) {
	c.mu.Lock()
	call, payload, err := c.registerLocked(cmd)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if err := c.tx.Send(payload); err != nil {
		c.unregister(call.MII)
		return nil, err
	}

	c.logger.Debug("request sent", "mii", call.MII, "command", cmd.CommandType())
	return call, nil
}

// registerLocked allocates a unique identifier, builds the wire
// payload, and records the pending entry. Caller holds c.mu.
func (c *Client) registerLocked(cmd Command) (*PendingCall, []byte, error) {
	var mii string
	for {
		m, err := generateMII()
		if err != nil {
			return nil, nil, err
		}
		if _, taken := c.pending[m]; !taken {
			mii = m
			break
		}
		// Collision against a live request. With 10^24 identifiers
		// this is effectively unreachable, but the set is right here.
	}

	payload := make(map[string]any, len(cmd)+1)
	for k, v := range cmd {
		payload[k] = v
	}
	payload[FieldMII] = mii

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("almond: encode command: %w", err)
	}

	call := &PendingCall{
		MII:    mii,
		sent:   cmd,
		sentAt: time.Now(),
		done:   make(chan Response, 1),
	}
	if c.opts.RequestTimeout > 0 {
		call.timer = time.AfterFunc(c.opts.RequestTimeout, func() {
			c.expire(mii)
		})
	}
	c.pending[mii] = call
	return call, data, nil
}

// unregister drops a pending entry without completing it. Used when
// the send itself failed, so no response path exists.
func (c *Client) unregister(mii string) {
	c.mu.Lock()
	call, ok := c.pending[mii]
	delete(c.pending, mii)
	c.mu.Unlock()
	if ok && call.timer != nil {
		call.timer.Stop()
	}
}

// Cancel completes a pending request as cancelled. Returns false when
// the identifier is unknown or already resolved; there is nothing to
// cancel and that is not an error.
func (c *Client) Cancel(mii string) bool {
	c.mu.Lock()
	call, ok := c.pending[mii]
	delete(c.pending, mii)
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("nothing to cancel", "mii", mii)
		return false
	}

	call.complete(Response{Cancelled: true, Err: ErrCancelled})
	c.logger.Debug("request cancelled", "mii", mii)
	return true
}

// expire is the per-request timeout path.
func (c *Client) expire(mii string) {
	c.mu.Lock()
	call, ok := c.pending[mii]
	delete(c.pending, mii)
	c.mu.Unlock()

	if !ok {
		return
	}
	c.logger.Warn("request timed out", "mii", mii,
		"timeout", c.opts.RequestTimeout.String())
	call.complete(Response{Err: ErrRequestTimeout})
}

// dispatch routes one inbound frame. Replies resolve their pending
// request; everything else goes to the event channel. Unparsable
// frames and unmatched replies are logged and dropped; neither can
// fail a request.
func (c *Client) dispatch(raw []byte) {
	frame, err := ParseFrame(raw)
	if err != nil {
		c.logger.Warn("dropping unparsable frame", "error", err)
		return
	}

	if frame.IsReply() {
		c.resolve(frame)
		return
	}

	select {
	case c.events <- frame:
	default:
		c.eventsDropped.Add(1)
		c.logger.Warn("event channel full, dropping frame",
			"command", frame.CommandType,
			"dropped_total", c.eventsDropped.Load())
	}
}

// resolve matches a reply to its pending request. Removal from the map
// happens before completion, so a racing Cancel or timeout loses
// cleanly: whoever finds the entry first owns the completion.
func (c *Client) resolve(frame *Frame) {
	c.mu.Lock()
	call, ok := c.pending[frame.MII]
	delete(c.pending, frame.MII)
	c.mu.Unlock()

	if !ok {
		c.unmatchedReplies.Add(1)
		c.logger.Warn("reply without pending request",
			"mii", frame.MII, "command", frame.CommandType)
		return
	}

	call.complete(Response{Received: frame, ReceivedAt: time.Now()})
}

// failAll completes every pending request with err. Called once, when
// the frame stream ends.
func (c *Client) failAll(err error) {
	c.mu.Lock()
	remaining := c.pending
	c.pending = make(map[string]*PendingCall)
	c.mu.Unlock()

	for _, call := range remaining {
		call.complete(Response{Err: err})
	}
	if len(remaining) > 0 {
		c.logger.Warn("connection closed with requests pending",
			"count", len(remaining))
	}
}

// Device is one hub device with its translated capability record.
type Device struct {
	ID           string
	Name         string
	Capabilities *capability.Record
}

// SkippedDevice records a device the translator could not map.
type SkippedDevice struct {
	ID       string
	TypeCode string
	Name     string
}

// DeviceListResult is the outcome of one device scan.
type DeviceListResult struct {
	Devices []Device
	Skipped []SkippedDevice
}

// sharedList is the single-instance memory for the device scan. All
// callers that arrive while the scan is outstanding wait on the same
// result.
type sharedList struct {
	mii    string
	done   chan struct{}
	result *DeviceListResult
	err    error
}

// ListDevices runs a device scan and translates the result.
//
// At most one scan is in flight at a time: callers arriving while one
// is outstanding share its result rather than issuing a second
// command. ctx cancellation abandons this caller's wait only; the scan
// itself keeps running for any other waiters. Use CancelListDevices to
// abort the scan.
//
// Devices whose type code the capability table does not know are
// skipped and reported, never fabricated. Results are ordered by
// device ID.
func (c *Client) ListDevices(ctx context.Context) (*DeviceListResult, error) {
	c.mu.Lock()
	if c.listCall != nil {
		shared := c.listCall
		c.mu.Unlock()
		c.logger.Debug("joining device scan in flight", "mii", shared.mii)
		return c.awaitList(ctx, shared)
	}

	call, payload, err := c.registerLocked(NewCommand(CommandDeviceList))
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	shared := &sharedList{mii: call.MII, done: make(chan struct{})}
	c.listCall = shared
	c.mu.Unlock()

	if err := c.tx.Send(payload); err != nil {
		c.unregister(call.MII)
		c.mu.Lock()
		if c.listCall == shared {
			c.listCall = nil
		}
		shared.err = err
		c.mu.Unlock()
		// Joiners that attached before the failure are waiting on done.
		close(shared.done)
		return nil, err
	}

	c.logger.Info("device scan started", "mii", call.MII)
	go c.watchList(shared, call)

	return c.awaitList(ctx, shared)
}

// CancelListDevices aborts the in-flight device scan, if any. Every
// waiter receives ErrCancelled. Returns false when no scan is running.
func (c *Client) CancelListDevices() bool {
	c.mu.Lock()
	shared := c.listCall
	c.mu.Unlock()

	if shared == nil {
		c.logger.Debug("no device scan in flight")
		return false
	}
	return c.Cancel(shared.mii)
}

// watchList turns the scan's raw response into the shared result and
// clears the single-instance memory.
func (c *Client) watchList(shared *sharedList, call *PendingCall) {
	resp := <-call.Done()
	shared.result, shared.err = c.buildDeviceList(resp)

	c.mu.Lock()
	if c.listCall == shared {
		c.listCall = nil
	}
	c.mu.Unlock()

	close(shared.done)
}

func (c *Client) awaitList(ctx context.Context, shared *sharedList) (*DeviceListResult, error) {
	select {
	case <-shared.done:
		return shared.result, shared.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// buildDeviceList parses and translates a DeviceList reply.
func (c *Client) buildDeviceList(resp Response) (*DeviceListResult, error) {
	if resp.Err != nil {
		return nil, resp.Err
	}

	records, err := ParseDeviceList(resp.Received.Raw)
	if err != nil {
		return nil, err
	}

	result := &DeviceListResult{}
	for _, rec := range records {
		caps, warnings, err := capability.Translate(rec)
		if err != nil {
			c.logger.Warn("skipping device with unsupported type",
				"device_id", rec.ID, "type", rec.TypeCode, "name", rec.Name)
			result.Skipped = append(result.Skipped, SkippedDevice{
				ID: rec.ID, TypeCode: rec.TypeCode, Name: rec.Name,
			})
			continue
		}
		for _, w := range warnings {
			c.logger.Warn("device value did not match declared type",
				"device_id", rec.ID, "index", w.Index,
				"raw", w.Raw, "want", string(w.Type))
		}
		result.Devices = append(result.Devices, Device{
			ID:           rec.ID,
			Name:         rec.Name,
			Capabilities: caps,
		})
	}

	sort.Slice(result.Devices, func(i, j int) bool {
		return result.Devices[i].ID < result.Devices[j].ID
	})
	sort.Slice(result.Skipped, func(i, j int) bool {
		return result.Skipped[i].ID < result.Skipped[j].ID
	})

	c.logger.Info("device scan complete",
		"devices", len(result.Devices), "skipped", len(result.Skipped))
	return result, nil
}

// SetDeviceValue asks the hub to change one device value index. The
// hub's acknowledgement arrives on the returned handle; the confirmed
// new value arrives separately as an unsolicited event.
func (c *Client) SetDeviceValue(deviceID, index, value string) (*PendingCall, error) {
	cmd := NewCommand(CommandUpdateIndex)
	cmd["ID"] = deviceID
	cmd["Index"] = index
	cmd["Value"] = value
	return c.SendRequest(cmd)
}
