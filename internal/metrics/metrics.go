// Package metrics provides Prometheus metrics for picmp.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "picmp"
)

// Discard reasons used as the "reason" label of DatagramsDiscarded.
const (
	ReasonTruncated = "truncated"
	ReasonMismatch  = "mismatch"
)

// Metrics contains all Prometheus metrics for the prober.
type Metrics struct {
	ProbesSent         prometheus.Counter
	RepliesReceived    prometheus.Counter
	ProbeTimeouts      prometheus.Counter
	SendErrors         prometheus.Counter
	DatagramsDiscarded *prometheus.CounterVec
	RTT                prometheus.Histogram
}

// NewMetricsWithRegistry creates a new Metrics instance with a custom registry.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ProbesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_sent_total",
			Help:      "Total echo requests sent",
		}),
		RepliesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_received_total",
			Help:      "Total matching echo replies received",
		}),
		ProbeTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_timeouts_total",
			Help:      "Total probes that got no reply within the timeout",
		}),
		SendErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_errors_total",
			Help:      "Total echo requests that failed to send",
		}),
		DatagramsDiscarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_discarded_total",
			Help:      "Total received datagrams discarded by reason",
		}, []string{"reason"}),
		RTT: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rtt_seconds",
			Help:      "Histogram of echo round-trip time in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
	}
}

// RecordProbeSent records an echo request leaving the socket.
func (m *Metrics) RecordProbeSent() {
	m.ProbesSent.Inc()
}

// RecordSendError records a failed send.
func (m *Metrics) RecordSendError() {
	m.SendErrors.Inc()
}

// RecordReply records a matched reply and its round-trip time.
func (m *Metrics) RecordReply(rtt time.Duration) {
	m.RepliesReceived.Inc()
	m.RTT.Observe(rtt.Seconds())
}

// RecordTimeout records a probe that got no reply.
func (m *Metrics) RecordTimeout() {
	m.ProbeTimeouts.Inc()
}

// RecordDiscard records a received datagram that was not the awaited reply.
func (m *Metrics) RecordDiscard(reason string) {
	m.DatagramsDiscarded.WithLabelValues(reason).Inc()
}

// Handler returns an HTTP handler exposing the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Serve exposes the metrics of g on addr at path until ctx is done.
func Serve(ctx context.Context, addr, path string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle(path, Handler(g))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
