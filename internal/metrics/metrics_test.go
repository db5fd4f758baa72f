package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCountersAccumulate(t *testing.T) {
	m := New()
	m.ConnectionAccepted()
	m.ConnectionAccepted()
	m.ConnectionClosed()
	m.SubscriptionOpened()
	m.RecordSend(3, 128)
	m.CipherRotated()
	m.ProtocolError()
	m.AcceptError()

	snap := m.Snapshot()
	if snap.ConnectionsAccepted != 2 {
		t.Errorf("ConnectionsAccepted = %d, want 2", snap.ConnectionsAccepted)
	}
	if snap.ConnectionsActive != 1 {
		t.Errorf("ConnectionsActive = %d, want 1", snap.ConnectionsActive)
	}
	if snap.Subscriptions != 1 {
		t.Errorf("Subscriptions = %d, want 1", snap.Subscriptions)
	}
	if snap.MeasurementsSent != 3 || snap.BytesSent != 128 {
		t.Errorf("MeasurementsSent/BytesSent = %d/%d, want 3/128", snap.MeasurementsSent, snap.BytesSent)
	}
	if snap.CipherRotations != 1 || snap.ProtocolErrors != 1 || snap.AcceptErrors != 1 {
		t.Errorf("CipherRotations/ProtocolErrors/AcceptErrors = %d/%d/%d, want 1/1/1",
			snap.CipherRotations, snap.ProtocolErrors, snap.AcceptErrors)
	}
}

func TestHandlerExposesPrometheusFormat(t *testing.T) {
	m := New()
	m.ConnectionAccepted()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler()(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "gep_connections_accepted_total 1") {
		t.Errorf("body missing accepted-connections sample:\n%s", body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain prefix", ct)
	}
}
