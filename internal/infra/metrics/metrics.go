package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sticker_generations_total",
			Help: "Completed sticker generation requests per provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sticker_generation_duration_seconds",
			Help:    "Wall-clock duration of one full generation pipeline.",
			Buckets: []float64{1, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"provider"},
	)

	pollAttempts = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_poll_attempts",
			Help:    "Number of status fetches needed to reach a terminal job state.",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 60},
		},
		[]string{"provider", "model"},
	)

	rateLimitRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_rate_limit_retries_total",
			Help: "Submissions that hit provider throttling and slept before retrying.",
		},
		[]string{"provider"},
	)
)

// Register installs all collectors exactly once on the given registerer.
func Register(reg prometheus.Registerer) {
	once.Do(func() {
		reg.MustRegister(
			generationsTotal,
			generationDuration,
			pollAttempts,
			rateLimitRetries,
		)
	})
}

// ObserveGeneration records one finished pipeline run.
func ObserveGeneration(provider, outcome string, elapsed time.Duration) {
	generationsTotal.WithLabelValues(provider, outcome).Inc()
	generationDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObservePoll records how many fetches a job needed.
func ObservePoll(provider, model string, attempts int) {
	pollAttempts.WithLabelValues(provider, model).Observe(float64(attempts))
}

// IncRateLimitRetry counts a bounded throttling retry.
func IncRateLimitRetry(provider string) {
	rateLimitRetries.WithLabelValues(provider).Inc()
}
