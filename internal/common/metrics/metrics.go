// internal/common/metrics/metrics.go
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	BuyerGroupsComposed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buyer_groups_composed_total",
			Help: "Buyer groups composed, by validity",
		},
		[]string{"valid"},
	)

	RoleAssignments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buyer_group_role_assignments_total",
			Help: "Role assignments produced by the classifier",
		},
		[]string{"role"},
	)

	CandidatesRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "buyer_group_candidates_rejected_total",
			Help: "Malformed candidates dropped before classification",
		},
	)

	CandidateCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buyer_group_candidate_cache_lookups_total",
			Help: "Candidate cache lookups, by result",
		},
		[]string{"result"},
	)

	EnrichmentCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_calls_total",
			Help: "Calls to the enrichment provider, by status",
		},
		[]string{"provider", "status"},
	)
)

// Recorder receives the same job and enrichment events as the prometheus
// collectors. *observability.Observability implements it.
type Recorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
	RecordEnrichmentCall(ctx context.Context, provider, status string)
}

var (
	recorderMu sync.RWMutex
	recorder   Recorder
)

// SetRecorder installs r for every later event; nil removes it.
func SetRecorder(r Recorder) {
	recorderMu.Lock()
	defer recorderMu.Unlock()
	recorder = r
}

func currentRecorder() Recorder {
	recorderMu.RLock()
	defer recorderMu.RUnlock()
	return recorder
}

// JobTracker measures a single job. Call Done exactly once.
type JobTracker struct {
	taskType string
	start    time.Time
}

func StartJob(taskType string) *JobTracker {
	WorkerJobsActive.WithLabelValues(taskType).Inc()
	return &JobTracker{taskType: taskType, start: time.Now()}
}

// Done records the outcome. An empty errorCode counts as completed.
func (t *JobTracker) Done(errorCode string) {
	elapsed := time.Since(t.start)
	WorkerJobsActive.WithLabelValues(t.taskType).Dec()
	WorkerJobDuration.WithLabelValues(t.taskType).Observe(elapsed.Seconds())

	status := "completed"
	if errorCode == "" {
		WorkerJobsCompleted.WithLabelValues(t.taskType).Inc()
	} else {
		status = "failed"
		WorkerJobsFailed.WithLabelValues(t.taskType, errorCode).Inc()
	}

	if r := currentRecorder(); r != nil {
		ctx := context.Background()
		r.RecordJobProcessed(ctx, t.taskType, status)
		r.RecordJobDuration(ctx, t.taskType, elapsed, status)
	}
}

// ObserveEnrichmentCall counts one provider call by outcome.
func ObserveEnrichmentCall(ctx context.Context, provider, status string) {
	EnrichmentCalls.WithLabelValues(provider, status).Inc()
	if r := currentRecorder(); r != nil {
		r.RecordEnrichmentCall(ctx, provider, status)
	}
}

// ObserveGroup records a composed group and its role mix.
func ObserveGroup(valid bool, roleCounts map[string]int) {
	label := "false"
	if valid {
		label = "true"
	}
	BuyerGroupsComposed.WithLabelValues(label).Inc()
	for role, n := range roleCounts {
		RoleAssignments.WithLabelValues(role).Add(float64(n))
	}
}
