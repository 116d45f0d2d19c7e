package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"buyer-group-workers/internal/buyergroup"
	"buyer-group-workers/internal/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient(config.EnrichmentConfig{
		Provider: "coresignal",
		BaseURL:  server.URL + "/",
		APIKey:   "secret",
		Timeout:  1000,
	})
	c.now = func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) }
	return c
}

func TestLookup(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/people/lookup", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("apikey"))

		var req LookupRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		switch req.PersonID {
		case "p1":
			w.Write([]byte(`{"decisionMaker":true,"salaryFloor":180000,"confidence":0.7}`))
		case "p2":
			w.WriteHeader(http.StatusNotFound)
		case "p3":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	})
	ctx := context.Background()

	result, err := client.Lookup(ctx, LookupRequest{PersonID: "p1", FullName: "Jane Doe"})
	require.NoError(t, err)
	assert.True(t, result.Found)
	require.NotNil(t, result.DecisionMaker)
	assert.True(t, *result.DecisionMaker)
	assert.Equal(t, 180000.0, *result.SalaryFloor)

	result, err = client.Lookup(ctx, LookupRequest{PersonID: "p2"})
	require.NoError(t, err)
	assert.False(t, result.Found)

	_, err = client.Lookup(ctx, LookupRequest{PersonID: "p3"})
	assert.True(t, errors.Is(err, ErrRateLimited))

	_, err = client.Lookup(ctx, LookupRequest{PersonID: "p4"})
	assert.ErrorContains(t, err, "status 502")
}

func TestApply(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	dm := true
	salary := 150000.0
	result := LookupResult{Found: true, DecisionMaker: &dm, SalaryFloor: &salary, Confidence: 0.6}

	t.Run("fills missing fields with provenance", func(t *testing.T) {
		candidate := buyergroup.PersonCandidate{ID: "p1", JobTitle: "Head of Ops"}
		assert.True(t, NeedsEnrichment(candidate))

		got, changed := client.Apply(candidate, result)
		assert.True(t, changed)
		assert.True(t, got.IsFlaggedDecisionMaker())
		assert.Equal(t, 150000.0, *got.SalaryFloor)
		require.Len(t, got.Extensions.Provenance, 2)
		assert.Equal(t, FieldDecisionMaker, got.Extensions.Provenance[0].Field)
		assert.Equal(t, "coresignal", got.Extensions.Provenance[0].Source)
		assert.False(t, NeedsEnrichment(got))

		// the input is not mutated
		assert.Nil(t, candidate.ExternalDecisionMakerFlag)
	})

	t.Run("keeps existing values", func(t *testing.T) {
		notDM := false
		existing := 90000.0
		candidate := buyergroup.PersonCandidate{ID: "p1", ExternalDecisionMakerFlag: &notDM, SalaryFloor: &existing}

		got, changed := client.Apply(candidate, result)
		assert.False(t, changed)
		assert.False(t, got.IsFlaggedDecisionMaker())
		assert.Equal(t, 90000.0, *got.SalaryFloor)
		assert.Empty(t, got.Extensions.Provenance)
	})

	t.Run("not found", func(t *testing.T) {
		candidate := buyergroup.PersonCandidate{ID: "p1"}
		got, changed := client.Apply(candidate, LookupResult{})
		assert.False(t, changed)
		assert.Equal(t, candidate, got)
	})
}
