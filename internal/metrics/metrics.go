package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sectools/secrules/internal/rulestore"
)

var (
	ControlOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secrules_control_ops_total",
			Help: "Control channel operations by op and outcome",
		},
		[]string{"op", "outcome"},
	)

	HTTPOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secrules_http_ops_total",
			Help: "HTTP API operations by op and outcome",
		},
		[]string{"op", "outcome"},
	)

	StoredRules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "secrules_stored_rules",
			Help: "Rules currently held in the store",
		},
	)

	ExportBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "secrules_export_bytes",
			Help:    "Size of formatted exports served to readers",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		},
	)
)

var registerOnce sync.Once

// Register installs the collectors on the default registry. Safe to call
// more than once; servers constructed side by side in tests share them.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ControlOps,
			HTTPOps,
			StoredRules,
			ExportBytes,
		)
	})
}

// OutcomeOf maps a store or decode error to a stable outcome label.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, rulestore.ErrRuleTooLong):
		return "rule_too_long"
	case errors.Is(err, rulestore.ErrInvalidRule):
		return "invalid_rule"
	case errors.Is(err, rulestore.ErrCapacityExceeded):
		return "capacity_exceeded"
	default:
		return "error"
	}
}
