// Package metrics provides lightweight atomic counters for the publisher's
// accept loop, subscriber connections, and data path, in the same spirit as
// the teacher corpus's observability package but scoped to a GEP publisher.
package metrics

import "go.uber.org/atomic"

// Metrics holds atomic counters updated from many goroutines (the accept
// loop, every subscriber connection's send path, the callback dispatcher)
// and read by the metrics HTTP handler.
type Metrics struct {
	connectionsAccepted atomic.Int64
	connectionsActive   atomic.Int64
	subscriptions       atomic.Int64
	measurementsSent    atomic.Int64
	bytesSent           atomic.Int64
	cipherRotations     atomic.Int64
	protocolErrors      atomic.Int64
	acceptErrors        atomic.Int64
}

// New returns a zero-initialized Metrics.
func New() *Metrics {
	return &Metrics{}
}

func (m *Metrics) ConnectionAccepted() {
	m.connectionsAccepted.Add(1)
	m.connectionsActive.Add(1)
}

func (m *Metrics) ConnectionClosed() { m.connectionsActive.Add(-1) }
func (m *Metrics) SubscriptionOpened() { m.subscriptions.Add(1) }
func (m *Metrics) SubscriptionClosed() { m.subscriptions.Add(-1) }
func (m *Metrics) CipherRotated()      { m.cipherRotations.Add(1) }
func (m *Metrics) ProtocolError()      { m.protocolErrors.Add(1) }
func (m *Metrics) AcceptError()        { m.acceptErrors.Add(1) }

// RecordSend accumulates one outbound data packet's measurement count and
// wire-byte length.
func (m *Metrics) RecordSend(measurements, bytes int) {
	m.measurementsSent.Add(int64(measurements))
	m.bytesSent.Add(int64(bytes))
}

// Snapshot is a point-in-time copy of every counter, suitable for rendering
// or comparing in tests without racing the live counters.
type Snapshot struct {
	ConnectionsAccepted int64
	ConnectionsActive   int64
	Subscriptions       int64
	MeasurementsSent    int64
	BytesSent           int64
	CipherRotations     int64
	ProtocolErrors      int64
	AcceptErrors        int64
}

// Snapshot takes a consistent-enough read of every counter. Individual
// fields may be torn relative to each other under concurrent updates, which
// is acceptable for a metrics endpoint.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		ConnectionsAccepted: m.connectionsAccepted.Load(),
		ConnectionsActive:   m.connectionsActive.Load(),
		Subscriptions:       m.subscriptions.Load(),
		MeasurementsSent:    m.measurementsSent.Load(),
		BytesSent:           m.bytesSent.Load(),
		CipherRotations:     m.cipherRotations.Load(),
		ProtocolErrors:      m.protocolErrors.Load(),
		AcceptErrors:        m.acceptErrors.Load(),
	}
}
