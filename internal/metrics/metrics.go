package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	MetricsEndpoint = "0.0.0.0:9090"
)

var (
	APIRequestCounter        *prometheus.CounterVec
	APIRequestRunTimeSummary *prometheus.SummaryVec

	LookupErrorCounter *prometheus.CounterVec

	TargetCounter        *prometheus.CounterVec
	TargetRunTimeSummary *prometheus.SummaryVec

	PowerStateUnmappedCounter prometheus.Counter
)

func init() {
	APIRequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powerctl_api_requests_total",
			Help: "A counter metric to measure the total count of Intersight API requests, by method and response status",
		},
		[]string{"method", "status"},
	)

	APIRequestRunTimeSummary = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "powerctl_api_request_duration_seconds",
			Help: "A summary metric to measure the time spent on each Intersight API request",
		},
		[]string{"method"},
	)

	LookupErrorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powerctl_lookup_errors_total",
			Help: "A counter metric to measure the total count of failed object lookups",
		},
		[]string{"objectType"},
	)

	TargetCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powerctl_targets_total",
			Help: "A counter metric to measure the total count of target servers processed, by final state",
		},
		[]string{"powerState", "state"},
	)

	TargetRunTimeSummary = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "powerctl_target_duration_seconds",
			Help: "A summary metric to measure the time spent on each target server",
		},
		[]string{"powerState", "state"},
	)

	PowerStateUnmappedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "powerctl_power_state_unmapped_total",
			Help: "A counter metric to measure power state values passed through to Intersight unmapped",
		},
	)
}

// ListenAndServe exposes prometheus metrics as /metrics
func ListenAndServe() {
	go func() {
		http.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              MetricsEndpoint,
			ReadHeaderTimeout: 2 * time.Second, // nolint:gomnd // time duration value is clear as is.
		}

		if err := server.ListenAndServe(); err != nil {
			log.Println(err)
		}
	}()
}
