package metrics

import (
	"fmt"
	"net/http"
)

// Handler returns an http.HandlerFunc that exports the publisher's counters
// in Prometheus text exposition format, following the teacher corpus's
// observability.PrometheusHandler pattern.
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		snap := m.Snapshot()

		fmt.Fprintf(w, "# HELP gep_connections_accepted_total Total subscriber connections accepted.\n")
		fmt.Fprintf(w, "# TYPE gep_connections_accepted_total counter\n")
		fmt.Fprintf(w, "gep_connections_accepted_total %d\n\n", snap.ConnectionsAccepted)

		fmt.Fprintf(w, "# HELP gep_connections_active Current active subscriber connections.\n")
		fmt.Fprintf(w, "# TYPE gep_connections_active gauge\n")
		fmt.Fprintf(w, "gep_connections_active %d\n\n", snap.ConnectionsActive)

		fmt.Fprintf(w, "# HELP gep_subscriptions_active Current active subscriptions.\n")
		fmt.Fprintf(w, "# TYPE gep_subscriptions_active gauge\n")
		fmt.Fprintf(w, "gep_subscriptions_active %d\n\n", snap.Subscriptions)

		fmt.Fprintf(w, "# HELP gep_measurements_sent_total Total measurements sent to subscribers.\n")
		fmt.Fprintf(w, "# TYPE gep_measurements_sent_total counter\n")
		fmt.Fprintf(w, "gep_measurements_sent_total %d\n\n", snap.MeasurementsSent)

		fmt.Fprintf(w, "# HELP gep_bytes_sent_total Total data-packet bytes sent to subscribers.\n")
		fmt.Fprintf(w, "# TYPE gep_bytes_sent_total counter\n")
		fmt.Fprintf(w, "gep_bytes_sent_total %d\n\n", snap.BytesSent)

		fmt.Fprintf(w, "# HELP gep_cipher_rotations_total Total cipher-key rotations performed.\n")
		fmt.Fprintf(w, "# TYPE gep_cipher_rotations_total counter\n")
		fmt.Fprintf(w, "gep_cipher_rotations_total %d\n\n", snap.CipherRotations)

		fmt.Fprintf(w, "# HELP gep_protocol_errors_total Total protocol violations observed.\n")
		fmt.Fprintf(w, "# TYPE gep_protocol_errors_total counter\n")
		fmt.Fprintf(w, "gep_protocol_errors_total %d\n\n", snap.ProtocolErrors)

		fmt.Fprintf(w, "# HELP gep_accept_errors_total Total accept-loop errors observed.\n")
		fmt.Fprintf(w, "# TYPE gep_accept_errors_total counter\n")
		fmt.Fprintf(w, "gep_accept_errors_total %d\n", snap.AcceptErrors)
	}
}
