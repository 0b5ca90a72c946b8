// Package metrics exposes Prometheus counters for submissions and
// navigation outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ChannelDirect  = "direct"
	ChannelSession = "session"

	OutcomeStored  = "stored"
	OutcomeInvalid = "invalid"
	OutcomeFailed  = "failed"
)

var (
	// submissionsTotal counts submissions by channel and outcome
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quickforms_submissions_total",
		Help: "Total form submissions by channel and outcome",
	}, []string{"channel", "outcome"})

	// navigationEffectsTotal counts effects emitted by the navigator
	navigationEffectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quickforms_navigation_effects_total",
		Help: "Total navigation effects by kind",
	}, []string{"effect"})

	attachmentUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quickforms_attachment_uploads_total",
		Help: "Total attachment uploads by outcome",
	}, []string{"outcome"})

	attachmentBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quickforms_attachment_bytes",
		Help:    "Size of uploaded attachments in bytes",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8), // 1KiB to 16MiB
	})
)

func Submission(channel, outcome string) {
	submissionsTotal.WithLabelValues(channel, outcome).Inc()
}

func NavigationEffect(kind string) {
	navigationEffectsTotal.WithLabelValues(kind).Inc()
}

func AttachmentUpload(size int, err error) {
	if err != nil {
		attachmentUploadsTotal.WithLabelValues(OutcomeFailed).Inc()
		return
	}
	attachmentUploadsTotal.WithLabelValues(OutcomeStored).Inc()
	attachmentBytes.Observe(float64(size))
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
