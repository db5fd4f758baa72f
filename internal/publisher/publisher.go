// Package publisher implements the Data Publisher described in §4.5: the
// accept loop, subscriber-connection set, metadata ownership, measurement
// fan-out, and the serialized callback-dispatcher goroutine.
package publisher

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/gridprotectionalliance/gep-publisher/internal/measurement"
	"github.com/gridprotectionalliance/gep-publisher/internal/subscriber"
	"github.com/gridprotectionalliance/gep-publisher/internal/transport"
	"github.com/gridprotectionalliance/gep-publisher/internal/wire"
)

// SecurityMode selects how the publisher authorizes subscriber filter
// expressions against the catalog. Only SecurityOpen is enforced by this
// implementation; SecurityTLS is accepted as configuration, but the
// transport does not negotiate TLS.
type SecurityMode int

const (
	SecurityOpen SecurityMode = iota
	SecurityTLS
)

const (
	minCipherRotationPeriod = 1000 * time.Millisecond
	maxCipherRotationPeriod = 86_400_000 * time.Millisecond

	// eventQueueDepth bounds the callback dispatcher's buffered channel; once
	// it is full, dispatch drops and logs further events rather than blocking
	// the producing goroutine or growing without bound.
	eventQueueDepth = 1024

	acceptRetryFloor = 100 * time.Millisecond
	acceptRetryCap   = 5 * time.Second
)

// eventKind tags one entry on the callback dispatcher's queue.
type eventKind int

const (
	eventStatus eventKind = iota
	eventError
	eventClientConnected
	eventClientDisconnected
)

type event struct {
	kind    eventKind
	message string
	id      wire.Guid
}

// Config holds the publisher settings sourced from the YAML configuration
// file (internal/config).
type Config struct {
	ListenAddress        string
	Security             SecurityMode
	AllowMetadataRefresh bool
	AllowNaNFilter       bool
	ForceNaNFilter       bool
	CipherRotationPeriod time.Duration
	PingInterval         time.Duration
}

// DataPublisher accepts subscriber connections, owns the metadata catalog,
// and fans outbound measurements out to every active connection's own
// filtered encoding.
type DataPublisher struct {
	nodeID wire.Guid
	cfg    Config

	catalog atomic.Pointer[Catalog]

	connsMu sync.RWMutex
	conns   map[wire.Guid]*subscriber.Connection

	listener *transport.Listener
	ready    chan struct{}

	events chan event

	stopped atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup // dispatcher goroutine
	connWG  sync.WaitGroup // in-flight subscriber connections

	// StatusMessageFunc, ErrorMessageFunc, ClientConnectedFunc, and
	// ClientDisconnectedFunc are optional callbacks invoked serially by the
	// dispatcher goroutine; registration replaces, nil clears (§9).
	StatusMessageFunc      func(message string)
	ErrorMessageFunc       func(message string)
	ClientConnectedFunc    func(subscriberID wire.Guid)
	ClientDisconnectedFunc func(subscriberID wire.Guid)
}

// New creates a publisher with an empty metadata catalog. Call DefineMetadata
// before accepting connections that need to resolve filter expressions.
func New(cfg Config) (*DataPublisher, error) {
	if cfg.CipherRotationPeriod < minCipherRotationPeriod {
		cfg.CipherRotationPeriod = minCipherRotationPeriod
	} else if cfg.CipherRotationPeriod > maxCipherRotationPeriod {
		cfg.CipherRotationPeriod = maxCipherRotationPeriod
	}

	id, err := newNodeID()
	if err != nil {
		return nil, fmt.Errorf("publisher: generate node id: %w", err)
	}

	p := &DataPublisher{
		nodeID: id,
		cfg:    cfg,
		conns:  make(map[wire.Guid]*subscriber.Connection),
		events: make(chan event, eventQueueDepth),
		ready:  make(chan struct{}),
	}
	p.catalog.Store(NewCatalog())
	return p, nil
}

func newNodeID() (wire.Guid, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return wire.Guid{}, err
	}
	return wire.NewGuid(raw), nil
}

// NodeID returns the publisher's randomly assigned identity.
func (p *DataPublisher) NodeID() wire.Guid { return p.nodeID }

// Addr blocks until Serve has bound its listener, then returns its address.
// Intended for tests and for callers that bind to an ephemeral port (":0")
// and need to discover the assigned port afterward.
func (p *DataPublisher) Addr() net.Addr {
	<-p.ready
	return p.listener.Addr()
}

// DefineMetadata atomically replaces the authoritative metadata catalog.
// Existing subscriptions keep their already-compiled signal-index caches
// until the peer requests a refresh.
func (p *DataPublisher) DefineMetadata(catalog *Catalog) {
	p.catalog.Store(catalog)
	p.dispatch(event{kind: eventStatus, message: "metadata catalog replaced"})
}

// Serve binds the listen address and runs the accept loop until ctx is
// cancelled or Stop is called. It starts the callback dispatcher goroutine
// on first call.
func (p *DataPublisher) Serve(ctx context.Context) error {
	listener, err := transport.Listen(p.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("publisher: listen on %q: %w", p.cfg.ListenAddress, err)
	}
	p.listener = listener
	close(p.ready)

	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() { defer p.wg.Done(); p.dispatchLoop() }()

	retry := acceptRetryFloor
	for {
		cmd, err := listener.Accept(p.ctx)
		if err != nil {
			if p.ctx.Err() != nil {
				return nil
			}
			p.dispatch(event{kind: eventError, message: fmt.Sprintf("publisher: accept error: %v; retrying in %v", err, retry)})
			select {
			case <-p.ctx.Done():
				return nil
			case <-time.After(retry):
			}
			retry *= 2
			if retry > acceptRetryCap {
				retry = acceptRetryCap
			}
			continue
		}
		retry = acceptRetryFloor
		p.acceptConnection(cmd)
	}
}

func (p *DataPublisher) acceptConnection(cmd *transport.CommandChannel) {
	conn, err := subscriber.New(p, cmd)
	if err != nil {
		p.dispatch(event{kind: eventError, message: fmt.Sprintf("publisher: initialize connection: %v", err)})
		_ = cmd.Close()
		return
	}

	p.connsMu.Lock()
	p.conns[conn.SubscriberID()] = conn
	p.connsMu.Unlock()
	p.connWG.Add(1)

	p.dispatch(event{kind: eventClientConnected, id: conn.SubscriberID()})
	conn.Start(p.ctx)
}

// Stop closes the listener and stops every active connection, then waits for
// the dispatcher goroutine to drain. Safe to call more than once.
func (p *DataPublisher) Stop() {
	if !p.stopped.CompareAndSwap(false, true) {
		return
	}
	if p.cancel != nil {
		p.cancel()
	}
	if p.listener != nil {
		_ = p.listener.Close()
	}

	p.connsMu.RLock()
	conns := make([]*subscriber.Connection, 0, len(p.conns))
	for _, c := range p.conns {
		conns = append(conns, c)
	}
	p.connsMu.RUnlock()

	for _, c := range conns {
		c.Stop()
	}
	p.connWG.Wait()

	close(p.events)
	p.wg.Wait()
}

// PublishMeasurements fans batch out to every active connection under a
// read lock. Each connection independently filters by its own signal-index
// cache; failures on one connection never fail the call or affect any
// other connection (§7, §8 invariant 6).
func (p *DataPublisher) PublishMeasurements(ctx context.Context, batch []measurement.Measurement) {
	if len(batch) == 0 {
		return
	}

	p.connsMu.RLock()
	defer p.connsMu.RUnlock()

	for _, c := range p.conns {
		if !c.IsSubscribed() {
			continue
		}
		if err := c.PublishMeasurements(ctx, batch); err != nil {
			p.dispatch(event{kind: eventError, message: fmt.Sprintf("publish to %q failed: %v", c.ConnectionID(), err)})
		}
	}
}

// ConnectionCount reports the number of subscriber connections currently
// tracked by the publisher, subscribed or not.
func (p *DataPublisher) ConnectionCount() int {
	p.connsMu.RLock()
	defer p.connsMu.RUnlock()
	return len(p.conns)
}

func (p *DataPublisher) dispatch(e event) {
	select {
	case p.events <- e:
	default:
		log.Printf("publisher: event queue full, dropping %v event", e.kind)
	}
}

// dispatchLoop is the single goroutine draining the event queue and invoking
// user callbacks serially (§4.5, §5): the idiomatic Go equivalent of the
// source's lock-free MPSC callback queue.
func (p *DataPublisher) dispatchLoop() {
	for e := range p.events {
		switch e.kind {
		case eventStatus:
			log.Printf("publisher: %s", e.message)
			if p.StatusMessageFunc != nil {
				p.StatusMessageFunc(e.message)
			}
		case eventError:
			log.Printf("publisher: error: %s", e.message)
			if p.ErrorMessageFunc != nil {
				p.ErrorMessageFunc(e.message)
			}
		case eventClientConnected:
			log.Printf("publisher: client %s connected", e.id)
			if p.ClientConnectedFunc != nil {
				p.ClientConnectedFunc(e.id)
			}
		case eventClientDisconnected:
			log.Printf("publisher: client %s disconnected", e.id)
			if p.ClientDisconnectedFunc != nil {
				p.ClientDisconnectedFunc(e.id)
			}
		}
	}
}

// --- subscriber.Publisher interface -------------------------------------

// CompileFilter implements subscriber.Publisher by compiling expression
// against the current metadata catalog.
func (p *DataPublisher) CompileFilter(expression string) ([]subscriber.SignalEntry, error) {
	return p.catalog.Load().Compile(expression)
}

// SerializeMetadata implements subscriber.Publisher.
func (p *DataPublisher) SerializeMetadata(enc wire.StringEncoding) ([]byte, error) {
	return p.catalog.Load().SerializeMetadata(enc)
}

// AllowMetadataRefresh implements subscriber.Publisher.
func (p *DataPublisher) AllowMetadataRefresh() bool {
	return p.cfg.AllowMetadataRefresh
}

// NaNFilterPolicy implements subscriber.Publisher.
func (p *DataPublisher) NaNFilterPolicy() (allow, force bool) {
	return p.cfg.AllowNaNFilter, p.cfg.ForceNaNFilter
}

// CipherRotationPeriod implements subscriber.Publisher.
func (p *DataPublisher) CipherRotationPeriod() time.Duration {
	return p.cfg.CipherRotationPeriod
}

// PingInterval implements subscriber.Publisher.
func (p *DataPublisher) PingInterval() time.Duration {
	return p.cfg.PingInterval
}

// DispatchStatus implements subscriber.Publisher.
func (p *DataPublisher) DispatchStatus(message string) {
	p.dispatch(event{kind: eventStatus, message: message})
}

// DispatchError implements subscriber.Publisher.
func (p *DataPublisher) DispatchError(message string) {
	p.dispatch(event{kind: eventError, message: message})
}

// Remove implements subscriber.Publisher, dropping a terminated connection
// from the active set and notifying ClientDisconnectedFunc.
func (p *DataPublisher) Remove(subscriberID wire.Guid) {
	p.connsMu.Lock()
	_, existed := p.conns[subscriberID]
	delete(p.conns, subscriberID)
	p.connsMu.Unlock()

	p.dispatch(event{kind: eventClientDisconnected, id: subscriberID})
	if existed {
		p.connWG.Done()
	}
}
