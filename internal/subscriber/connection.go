// Package subscriber implements the per-peer state machine described in
// §4.4: command channel framing, the Accepted→Connected→ModesSet→Subscribed
// lifecycle, cipher rotation, ping/timeout, and the data-packet send path.
package subscriber

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/gridprotectionalliance/gep-publisher/internal/cipher"
	"github.com/gridprotectionalliance/gep-publisher/internal/compact"
	"github.com/gridprotectionalliance/gep-publisher/internal/signalindex"
	"github.com/gridprotectionalliance/gep-publisher/internal/transport"
	"github.com/gridprotectionalliance/gep-publisher/internal/wire"
)

// pingInterval is how often the ping loop checks for inbound commands; a
// NoOP heartbeat is sent at each tick where no command has arrived since the
// previous one, and missedPingLimit consecutive such intervals terminate the
// connection (§4.4, §5).
const (
	pingInterval    = 5 * time.Second
	missedPingLimit = 3
	maxDataPacketSize = 32768
)

var (
	// ErrNotSubscribed is returned when an operation needs the signal-index
	// cache and the connection has none, such as PublishCommandMeasurements
	// before Subscribe. PublishMeasurements on a connection that is not
	// subscribed returns nil instead.
	ErrNotSubscribed = errors.New("subscriber: connection is not subscribed")
	// ErrModesNotSet is returned when Subscribe arrives before
	// DefineOperationalModes, which §4.4 requires to precede it.
	ErrModesNotSet = errors.New("subscriber: operational modes must be defined before subscribing")
)

// Connection is one subscriber's TCP command channel plus optional UDP data
// channel, and all state negotiated over it.
type Connection struct {
	parent Publisher

	subscriberID Guid
	connectionID string
	ipAddress    string
	hostName     string

	operationalModes         atomic.Uint32
	encoding                 wire.StringEncoding
	useCompactMeasurementFmt bool
	includeTime              bool
	useMillisecondResolution bool
	isNaNFiltered            bool
	usePayloadCompression    bool

	negotiationMu sync.RWMutex // guards the six fields above past initial defaults

	state atomic.Int32 // State

	cacheMu         sync.RWMutex
	signalIndexCache *signalindex.Cache
	baseTimes        *compact.BaseTimeOffsets

	startTimeSent atomic.Bool
	lastPublishTime atomic.Int64 // unix nanos
	processingInterval atomic.Int64 // ms, as set by UpdateProcessingInterval; the send path does not read it

	pendingMu       sync.Mutex
	pendingNotify   map[uint32]string
	pendingBuffer   map[uint32][]byte

	cipherEngine   *cipher.Engine
	encryptPayload atomic.Bool

	cmd        *transport.CommandChannel
	data       *transport.DataChannel
	dataMu     sync.Mutex
	sendMu     sync.Mutex

	stopped    atomic.Bool
	lastActive atomic.Int64 // unix nanos of last inbound command

	bytesSent         atomic.Int64
	measurementsSent  atomic.Int64

	cancel context.CancelFunc
}

// Guid is a local alias so callers of this package don't need to import
// wire for the one type exposed on Connection's identity fields.
type Guid = wire.Guid

// New wraps an accepted command channel as a fresh, unauthenticated
// connection. The caller is expected to add it to the publisher's
// connection set and call Start.
func New(parent Publisher, cmd *transport.CommandChannel) (*Connection, error) {
	id, err := newSubscriberID()
	if err != nil {
		return nil, fmt.Errorf("subscriber: generate subscriber id: %w", err)
	}

	engine, err := cipher.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("subscriber: initialize cipher engine: %w", err)
	}

	c := &Connection{
		parent:                   parent,
		subscriberID:             id,
		encoding:                 wire.UTF8,
		useCompactMeasurementFmt: true,
		includeTime:              true,
		cipherEngine:             engine,
		cmd:                      cmd,
		pendingNotify:            make(map[uint32]string),
		pendingBuffer:            make(map[uint32][]byte),
	}
	c.state.Store(int32(StateAccepted))

	if addr, ok := cmd.RemoteAddr().(*net.TCPAddr); ok {
		c.ipAddress = addr.IP.String()
		c.connectionID = fmt.Sprintf("%s:%d", addr.IP.String(), addr.Port)
	} else if cmd.RemoteAddr() != nil {
		c.connectionID = cmd.RemoteAddr().String()
	}
	c.hostName = c.ipAddress

	return c, nil
}

func newSubscriberID() (wire.Guid, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return wire.Guid{}, err
	}
	return wire.NewGuid(raw), nil
}

// SubscriberID returns the connection's randomly assigned identity.
func (c *Connection) SubscriberID() wire.Guid { return c.subscriberID }

// ConnectionID returns the "host:port" (or resolved hostname) label used in
// logging.
func (c *Connection) ConnectionID() string { return c.connectionID }

// State returns the connection's current lifecycle state.
func (c *Connection) State() State { return State(c.state.Load()) }

// IsSubscribed reports whether the connection has an active subscription.
func (c *Connection) IsSubscribed() bool { return c.State() == StateSubscribed }

// BytesSent and MeasurementsSent report this connection's lifetime counters.
func (c *Connection) BytesSent() int64        { return c.bytesSent.Load() }
func (c *Connection) MeasurementsSent() int64 { return c.measurementsSent.Load() }

// Start launches the connection's read loop, ping timer, and cipher
// rotation timer on their own goroutines, returning once they're running.
// It blocks the caller's goroutine not at all; use ctx to bound the
// connection's entire lifetime (cancelling ctx stops the connection).
func (c *Connection) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state.Store(int32(StateConnected))
	c.touch()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); c.readLoop(ctx) }()
	go func() { defer wg.Done(); c.pingLoop(ctx) }()
	go func() { defer wg.Done(); c.cipherRotationLoop(ctx) }()

	go func() {
		wg.Wait()
		c.finalize()
	}()
}

// Stop cancels the connection's context, closes its sockets, and removes it
// from the publisher's connection set. Safe to call more than once.
func (c *Connection) Stop() {
	if !c.stopped.CompareAndSwap(false, true) {
		return
	}
	if c.cancel != nil {
		c.cancel()
	}
	_ = c.cmd.Close()
	c.dataMu.Lock()
	if c.data != nil {
		_ = c.data.Close()
	}
	c.dataMu.Unlock()
}

// finalize runs once, after all of the connection's goroutines have
// returned, to remove it from the publisher's set.
func (c *Connection) finalize() {
	c.state.Store(int32(StateTerminated))
	c.parent.Remove(c.subscriberID)
}

func (c *Connection) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

func (c *Connection) readLoop(ctx context.Context) {
	defer c.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		command, payload, err := c.cmd.ReadCommand(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			c.parent.DispatchError(fmt.Sprintf("error reading from client %q command channel: %v", c.connectionID, err))
			return
		}

		c.touch()
		if err := c.handleCommand(ctx, command, payload); err != nil {
			c.parent.DispatchError(fmt.Sprintf("error processing command %#x from %q: %v", command, c.connectionID, err))
		}
	}
}

func (c *Connection) pingLoop(ctx context.Context) {
	interval := c.parent.PingInterval()
	if interval <= 0 {
		interval = pingInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	missed := 0
	lastSeen := c.lastActive.Load()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seen := c.lastActive.Load()
			if seen == lastSeen {
				missed++
			} else {
				missed = 0
				lastSeen = seen
			}

			if missed >= missedPingLimit {
				c.parent.DispatchStatus(fmt.Sprintf("client %q missed %d consecutive pings, disconnecting", c.connectionID, missedPingLimit))
				c.Stop()
				return
			}

			c.advanceBaseTimes(ctx)

			if missed > 0 {
				if err := c.cmd.WriteNoOP(ctx); err != nil {
					return
				}
			}
		}
	}
}

func (c *Connection) cipherRotationLoop(ctx context.Context) {
	period := c.parent.CipherRotationPeriod()
	if period <= 0 {
		return
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.rotateCipherKeys(ctx); err != nil {
				c.parent.DispatchError(fmt.Sprintf("automatic cipher rotation failed for %q: %v", c.connectionID, err))
			}
		}
	}
}
