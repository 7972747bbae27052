package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowdeck_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// PermissionChecks counts permission evaluations by action and outcome (allow|deny|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowdeck_permission_checks_total",
			Help: "Total number of folder permission checks",
		},
		[]string{"action", "result"},
	)

	// FolderMutations counts folder tree mutations by kind (create|update|delete).
	FolderMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowdeck_folder_mutations_total",
			Help: "Total number of folder create/update/delete operations",
		},
		[]string{"kind"},
	)

	// TreeIntegrityIssues tracks problems found by the maintenance sweep.
	TreeIntegrityIssues = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flowdeck_tree_integrity_issues",
			Help: "Folder tree issues detected by the last integrity sweep",
		},
		[]string{"kind"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowdeck_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
