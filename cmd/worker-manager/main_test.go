package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"buyer-group-workers/internal/common/metrics"
	"buyer-group-workers/internal/common/observability"
	"buyer-group-workers/internal/workers/buyer-group/compose"
	synccrm "buyer-group-workers/internal/workers/buyer-group/sync-crm"
)

func TestCheckRegistry(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := zap.New(core)

	checkRegistry("../../configs/activity-registry.json", []string{compose.TaskType, synccrm.TaskType}, log)
	assert.Zero(t, logs.Len())

	checkRegistry("../../configs/activity-registry.json", []string{compose.TaskType, "buyer-group.unknown"}, log)
	entries := logs.TakeAll()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "Workers missing from activity registry", entries[0].Message)
	}

	checkRegistry("does-not-exist.json", nil, log)
	assert.Equal(t, "Activity registry not loaded", logs.TakeAll()[0].Message)

	checkRegistry("", nil, log)
	assert.Zero(t, logs.Len())
}

func TestRetryWithBackoff(t *testing.T) {
	attempts := 0
	err := retryWithBackoff(func() error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("not yet")
		}
		return nil
	}, 5, time.Millisecond, zap.NewNop(), "test")
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)

	err = retryWithBackoff(func() error { return fmt.Errorf("down") }, 2, time.Millisecond, zap.NewNop(), "test")
	assert.Error(t, err)
}

func TestMetricsEndpoint_SingleTypePerFamily(t *testing.T) {
	obs, err := observability.New(observability.Options{ServiceName: "buyer-group-test"})
	require.NoError(t, err)
	defer obs.Shutdown(context.Background())
	metrics.SetRecorder(obs)
	defer metrics.SetRecorder(nil)

	ctx := context.Background()
	metrics.ObserveGroup(true, map[string]int{"decision_maker": 1})
	obs.RecordGroupComposed(ctx, true, 4)
	metrics.ObserveEnrichmentCall(ctx, "coresignal", "ok")
	metrics.StartJob(compose.TaskType).Done("")

	rec := httptest.NewRecorder()
	newHealthMux(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	types := map[string]int{}
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "# TYPE ") {
			types[strings.Fields(line)[2]]++
		}
	}
	for name, n := range types {
		assert.Equal(t, 1, n, "# TYPE %s repeated", name)
	}
	assert.Contains(t, types, "buyer_groups_composed_total")
	assert.Contains(t, types, "enrichment_calls_total")
	assert.Contains(t, body, "otel_buyer_groups_composed")
	assert.Contains(t, body, "otel_jobs_processed")
	assert.Contains(t, body, "otel_enrichment_calls")
}
