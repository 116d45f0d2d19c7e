package observability

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRecordMetrics(t *testing.T) {
	reg := promclient.NewRegistry()
	obs, err := New(Options{ServiceName: "buyer-group-test", Registerer: reg})
	require.NoError(t, err)
	defer obs.Shutdown(context.Background())

	ctx := context.Background()
	obs.RecordJobProcessed(ctx, "buyer-group.compose", "completed")
	obs.RecordJobDuration(ctx, "buyer-group.compose", 12*time.Millisecond, "completed")
	obs.RecordGroupComposed(ctx, true, 40)
	obs.RecordEnrichmentCall(ctx, "coresignal", "ok")

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	joined := strings.Join(names, ",")
	assert.Contains(t, joined, "otel_jobs_processed")
	assert.Contains(t, joined, "otel_jobs_duration")
	assert.Contains(t, joined, "otel_buyer_groups_composed")
	assert.Contains(t, joined, "otel_enrichment_calls")
	assert.NotContains(t, joined, "jobs.processed")
}

func TestRecordMetrics_NoClashWithCollectors(t *testing.T) {
	reg := promclient.NewRegistry()
	composed := promclient.NewCounterVec(promclient.CounterOpts{Name: "buyer_groups_composed_total", Help: "h"}, []string{"valid"})
	calls := promclient.NewCounterVec(promclient.CounterOpts{Name: "enrichment_calls_total", Help: "h"}, []string{"provider", "status"})
	reg.MustRegister(composed, calls)

	obs, err := New(Options{ServiceName: "buyer-group-test", Registerer: reg})
	require.NoError(t, err)
	defer obs.Shutdown(context.Background())

	ctx := context.Background()
	composed.WithLabelValues("true").Inc()
	calls.WithLabelValues("coresignal", "ok").Inc()
	obs.RecordGroupComposed(ctx, true, 3)
	obs.RecordEnrichmentCall(ctx, "coresignal", "ok")

	families, err := reg.Gather()
	require.NoError(t, err)

	seen := map[string]int{}
	for _, f := range families {
		seen[f.GetName()]++
	}
	for name, n := range seen {
		assert.Equal(t, 1, n, "family %s gathered twice", name)
	}
	assert.Equal(t, 1, seen["buyer_groups_composed_total"])
	assert.Equal(t, 1, seen["enrichment_calls_total"])
}

func TestStartSpan_NoExporter(t *testing.T) {
	obs, err := New(Options{ServiceName: "buyer-group-test", Registerer: promclient.NewRegistry()})
	require.NoError(t, err)

	ctx, span := obs.StartSpan(context.Background(), "compose")
	assert.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())
	EndSpan(span, nil)
}

func TestStartSpan_WithExporter(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	obs, err := New(Options{
		ServiceName:  "buyer-group-test",
		Registerer:   promclient.NewRegistry(),
		SpanExporter: exporter,
	})
	require.NoError(t, err)

	_, span := obs.StartSpan(context.Background(), "compose", attribute.String("companyId", "acme"))
	assert.True(t, span.SpanContext().IsValid())
	EndSpan(span, fmt.Errorf("index unavailable"))

	require.NoError(t, obs.tracerProvider.ForceFlush(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "compose", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)

	require.NoError(t, obs.Shutdown(context.Background()))
}
