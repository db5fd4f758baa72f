package subscriber

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gridprotectionalliance/gep-publisher/internal/measurement"
	"github.com/gridprotectionalliance/gep-publisher/internal/transport"
	"github.com/gridprotectionalliance/gep-publisher/internal/wire"
)

// fakePublisher is a minimal Publisher implementation for connection tests.
type fakePublisher struct {
	mu       sync.Mutex
	entries  []SignalEntry
	removed  chan wire.Guid
	statuses []string
	errors   []string
}

func newFakePublisher(entries []SignalEntry) *fakePublisher {
	return &fakePublisher{entries: entries, removed: make(chan wire.Guid, 1)}
}

func (f *fakePublisher) CompileFilter(expression string) ([]SignalEntry, error) {
	return f.entries, nil
}

func (f *fakePublisher) SerializeMetadata(enc wire.StringEncoding) ([]byte, error) {
	return []byte("metadata"), nil
}

func (f *fakePublisher) AllowMetadataRefresh() bool { return true }

func (f *fakePublisher) NaNFilterPolicy() (allow, force bool) { return true, false }

func (f *fakePublisher) CipherRotationPeriod() time.Duration { return 0 }

func (f *fakePublisher) PingInterval() time.Duration { return 0 }

func (f *fakePublisher) DispatchStatus(message string) {
	f.mu.Lock()
	f.statuses = append(f.statuses, message)
	f.mu.Unlock()
}

func (f *fakePublisher) DispatchError(message string) {
	f.mu.Lock()
	f.errors = append(f.errors, message)
	f.mu.Unlock()
}

func (f *fakePublisher) Remove(id wire.Guid) {
	select {
	case f.removed <- id:
	default:
	}
}

func newTestConnection(t *testing.T, pub Publisher) (*Connection, net.Conn) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	server := transport.NewCommandChannel(serverConn)

	conn, err := New(pub, server)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return conn, clientConn
}

func sendAndAwaitResponse(t *testing.T, client net.Conn, command byte, payload []byte) (byte, []byte) {
	t.Helper()

	if err := wire.WriteCommandFrame(client, command, payload); err != nil {
		t.Fatalf("WriteCommandFrame: %v", err)
	}
	respCode, _, respPayload, err := wire.ReadResponseFrame(client)
	if err != nil {
		t.Fatalf("ReadResponseFrame: %v", err)
	}
	return respCode, respPayload
}

func encodeDefineOperationalModes(modes uint32) []byte {
	buf := wire.NewBuffer(4)
	buf.WriteUint32(modes)
	return buf.Bytes()
}

func encodeSubscribe(connectionString string, enc wire.StringEncoding) []byte {
	buf := wire.NewBuffer(16 + len(connectionString))
	buf.WriteUint8(0)
	buf.WriteString(connectionString, enc)
	return buf.Bytes()
}

func TestConnectionDefineOperationalModesThenSubscribe(t *testing.T) {
	signalID := wire.NewGuid([16]byte{1, 2, 3, 4})
	pub := newFakePublisher([]SignalEntry{
		{SignalID: signalID, Source: "PPA", ID: 1, Tag: "PPA:1"},
	})
	conn, client := newTestConnection(t, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn.Start(ctx)
	defer conn.Stop()

	respCode, _ := sendAndAwaitResponse(t, client, wire.CommandDefineOperationalModes, encodeDefineOperationalModes(wire.OperationalEncodingUTF8))
	if respCode != wire.ResponseSucceeded {
		t.Fatalf("DefineOperationalModes response = %#x, want Succeeded", respCode)
	}
	if conn.State() != StateModesSet {
		t.Fatalf("state = %v, want ModesSet", conn.State())
	}

	respCode, payload := sendAndAwaitResponse(t, client, wire.CommandSubscribe, encodeSubscribe("filterExpression={FILTER ActiveMeasurements WHERE SignalType='FREQ'}", wire.UTF8))
	if respCode != wire.ResponseUpdateSignalIndexCache {
		t.Fatalf("Subscribe response = %#x, want UpdateSignalIndexCache", respCode)
	}
	if conn.State() != StateSubscribed {
		t.Fatalf("state = %v, want Subscribed", conn.State())
	}
	if len(payload) == 0 {
		t.Fatalf("expected non-empty signal-index-cache payload")
	}
}

func TestConnectionSubscribeBeforeModesFails(t *testing.T) {
	pub := newFakePublisher(nil)
	conn, client := newTestConnection(t, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn.Start(ctx)
	defer conn.Stop()

	respCode, _ := sendAndAwaitResponse(t, client, wire.CommandSubscribe, encodeSubscribe("filterExpression={}", wire.UTF8))
	if respCode != wire.ResponseFailed {
		t.Fatalf("Subscribe response = %#x, want Failed", respCode)
	}
}

func TestConnectionPublishMeasurementsFiltersBySignalIndexCache(t *testing.T) {
	subscribedID := wire.NewGuid([16]byte{1})
	unsubscribedID := wire.NewGuid([16]byte{2})
	pub := newFakePublisher([]SignalEntry{
		{SignalID: subscribedID, Source: "PPA", ID: 1, Tag: "PPA:1"},
	})
	conn, client := newTestConnection(t, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn.Start(ctx)
	defer conn.Stop()

	sendAndAwaitResponse(t, client, wire.CommandDefineOperationalModes, encodeDefineOperationalModes(wire.OperationalEncodingUTF8))
	sendAndAwaitResponse(t, client, wire.CommandSubscribe, encodeSubscribe("filterExpression={}", wire.UTF8))
	if respCode, _, _, err := wire.ReadResponseFrame(client); err != nil || respCode != wire.ResponseUpdateBaseTimes {
		t.Fatalf("expected UpdateBaseTimes after Subscribe, got %#x, err %v", respCode, err)
	}

	batch := []measurement.Measurement{
		{SignalID: subscribedID, Value: 60.0, Multiplier: 1, Timestamp: 1000},
		{SignalID: unsubscribedID, Value: 1.0, Multiplier: 1, Timestamp: 1000},
	}

	errCh := make(chan error, 1)
	go func() { errCh <- conn.PublishMeasurements(context.Background(), batch) }()

	// DataStartTime first.
	respCode, _, _, err := wire.ReadResponseFrame(client)
	if err != nil {
		t.Fatalf("ReadResponseFrame (start time): %v", err)
	}
	if respCode != wire.ResponseDataStartTime {
		t.Fatalf("first response = %#x, want DataStartTime", respCode)
	}

	respCode, _, payload, err := wire.ReadResponseFrame(client)
	if err != nil {
		t.Fatalf("ReadResponseFrame (data packet): %v", err)
	}
	if respCode != wire.ResponseDataPacket {
		t.Fatalf("second response = %#x, want DataPacket", respCode)
	}

	r := wire.NewReader(payload)
	flags, _ := r.ReadUint8()
	count, _ := r.ReadUint32()
	if flags&wire.DataPacketCompact == 0 {
		t.Fatalf("expected compact flag set")
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1 (unsubscribed signal must be dropped)", count)
	}

	if err := <-errCh; err != nil {
		t.Fatalf("PublishMeasurements: %v", err)
	}
}

func TestConnectionRotateCipherKeys(t *testing.T) {
	pub := newFakePublisher(nil)
	conn, client := newTestConnection(t, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn.Start(ctx)
	defer conn.Stop()

	if err := wire.WriteCommandFrame(client, wire.CommandRotateCipherKeys, nil); err != nil {
		t.Fatalf("WriteCommandFrame: %v", err)
	}
	respCode, _, payload, err := wire.ReadResponseFrame(client)
	if err != nil {
		t.Fatalf("ReadResponseFrame: %v", err)
	}
	if respCode != wire.ResponseUpdateCipherKeys {
		t.Fatalf("response = %#x, want UpdateCipherKeys", respCode)
	}
	if len(payload) != 1+32+16 {
		t.Fatalf("payload length = %d, want %d", len(payload), 1+32+16)
	}
}

func TestConnectionUnrecognizedCommand(t *testing.T) {
	pub := newFakePublisher(nil)
	conn, client := newTestConnection(t, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn.Start(ctx)
	defer conn.Stop()

	respCode, _ := sendAndAwaitResponse(t, client, 0x50, nil)
	if respCode != wire.ResponseFailed {
		t.Fatalf("response = %#x, want Failed", respCode)
	}
}

func TestConnectionUserCommand(t *testing.T) {
	pub := newFakePublisher(nil)
	conn, client := newTestConnection(t, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn.Start(ctx)
	defer conn.Stop()

	respCode, _ := sendAndAwaitResponse(t, client, wire.UserCommandLow, []byte("payload"))
	if respCode != wire.ResponseSucceeded {
		t.Fatalf("response = %#x, want Succeeded", respCode)
	}
}

func TestConnectionStopRemovesFromPublisher(t *testing.T) {
	pub := newFakePublisher(nil)
	conn, _ := newTestConnection(t, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn.Start(ctx)
	conn.Stop()

	select {
	case id := <-pub.removed:
		if id != conn.SubscriberID() {
			t.Fatalf("removed id = %v, want %v", id, conn.SubscriberID())
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("connection was not removed from publisher")
	}
}
