// internal/common/camunda/worker.go
package camunda

import (
	"sync"
	"time"

	"buyer-group-workers/internal/common/config"
	"buyer-group-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Registrar opens job workers. zbc.Client satisfies it.
type Registrar interface {
	NewJobWorker() worker.JobWorkerBuilderStep1
}

var _ Registrar = (zbc.Client)(nil)

// WorkerSet tracks opened job workers so they can be closed together.
type WorkerSet struct {
	mu      sync.Mutex
	workers map[string]worker.JobWorker
	log     logger.Logger
}

func NewWorkerSet(log logger.Logger) *WorkerSet {
	return &WorkerSet{workers: make(map[string]worker.JobWorker), log: log}
}

// StartWorker opens a job worker for taskType unless it is disabled.
func (s *WorkerSet) StartWorker(client Registrar, taskType string, wcfg config.WorkerConfig, handler worker.JobHandler) bool {
	if !wcfg.Enabled {
		s.log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return false
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Name(taskType).
		Open()

	s.mu.Lock()
	s.workers[taskType] = jw
	s.mu.Unlock()

	s.log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return true
}

// TaskTypes lists the running workers.
func (s *WorkerSet) TaskTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.workers))
	for taskType := range s.workers {
		out = append(out, taskType)
	}
	return out
}

// Close stops every worker and waits for in-flight jobs, up to timeout.
func (s *WorkerSet) Close(timeout time.Duration) {
	s.mu.Lock()
	workers := s.workers
	s.workers = make(map[string]worker.JobWorker)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for taskType, jw := range workers {
			jw.Close()
			jw.AwaitClose()
			s.log.Info("worker stopped", map[string]interface{}{"taskType": taskType})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		s.log.Warn("timed out waiting for workers to stop", map[string]interface{}{"timeout": timeout.String()})
	}
}
