package enrichcandidates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"buyer-group-workers/internal/buyergroup"
	"buyer-group-workers/internal/common/config"
	"buyer-group-workers/internal/common/errors"
	"buyer-group-workers/internal/common/logger"
	"buyer-group-workers/internal/enrichment"
	"buyer-group-workers/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListCandidates(ctx context.Context, scope buyergroup.Scope) ([]buyergroup.PersonCandidate, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]buyergroup.PersonCandidate), args.Error(1)
}

func (m *MockStore) UpdateEnrichment(ctx context.Context, scope buyergroup.Scope, update store.EnrichmentUpdate) error {
	return m.Called(ctx, scope, update).Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Invalidate(ctx context.Context, scope buyergroup.Scope) error {
	return m.Called(ctx, scope).Error(0)
}

var acme = buyergroup.Scope{WorkspaceID: "ws-1", CompanyID: "acme"}

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }

// providerStub answers lookups by person id: "dm" is a decision maker,
// "missing" is unknown, "broken" fails and "throttled" is rate limited.
func providerStub(t *testing.T) *enrichment.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req enrichment.LookupRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		switch req.PersonID {
		case "dm":
			json.NewEncoder(w).Encode(map[string]interface{}{"decisionMaker": true, "salaryFloor": 250000, "confidence": 0.8})
		case "ic":
			json.NewEncoder(w).Encode(map[string]interface{}{"decisionMaker": false})
		case "missing":
			w.WriteHeader(http.StatusNotFound)
		case "throttled":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	t.Cleanup(server.Close)

	return enrichment.NewClient(config.EnrichmentConfig{Provider: "coresignal", BaseURL: server.URL, Timeout: 1000})
}

func newTestService(st CandidateStore, enricher Enricher, cache CacheInvalidator) *Service {
	deps := ServiceDependencies{Logger: logger.NewNoOpLogger(), Store: st, Enricher: enricher}
	if cache != nil {
		deps.Cache = cache
	}
	return NewService(deps, DefaultConfig())
}

func TestService_Execute(t *testing.T) {
	st := &MockStore{}
	cache := &MockCache{}
	st.On("ListCandidates", mock.Anything, acme).Return([]buyergroup.PersonCandidate{
		{ID: "dm", FullName: "Ana Ruiz", JobTitle: "Sales Associate"},
		{ID: "ic", FullName: "Ben Ode", SalaryFloor: floatPtr(90000)},
		{ID: "done", ExternalDecisionMakerFlag: boolPtr(false), SalaryFloor: floatPtr(1)},
		{ID: "missing"},
		{ID: "broken"},
		{FullName: "No Id"},
	}, nil)
	st.On("UpdateEnrichment", mock.Anything, acme, mock.MatchedBy(func(u store.EnrichmentUpdate) bool {
		return u.PersonID == "dm" && *u.DecisionMakerFlag && *u.SalaryFloor == 250000 &&
			len(u.Extensions.Provenance) == 2 && !u.EnrichedAt.IsZero()
	})).Return(nil).Once()
	st.On("UpdateEnrichment", mock.Anything, acme, mock.MatchedBy(func(u store.EnrichmentUpdate) bool {
		return u.PersonID == "ic" && !*u.DecisionMakerFlag && *u.SalaryFloor == 90000
	})).Return(nil).Once()
	cache.On("Invalidate", mock.Anything, acme).Return(nil).Once()

	out, err := newTestService(st, providerStub(t), cache).Execute(context.Background(), &Input{WorkspaceID: "ws-1", CompanyID: "acme"})
	require.NoError(t, err)

	assert.Equal(t, "coresignal", out.Provider)
	assert.Equal(t, 4, out.Considered)
	assert.Equal(t, 2, out.Enriched)
	assert.Equal(t, 1, out.NotFound)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, 2, out.Skipped)
	assert.False(t, out.RateLimited)

	st.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestService_Execute_Limit(t *testing.T) {
	st := &MockStore{}
	st.On("ListCandidates", mock.Anything, acme).Return([]buyergroup.PersonCandidate{
		{ID: "missing"}, {ID: "dm"}, {ID: "ic"},
	}, nil)

	out, err := newTestService(st, providerStub(t), nil).Execute(context.Background(), &Input{
		WorkspaceID: "ws-1", CompanyID: "acme", MaxCandidates: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Considered)
	assert.Equal(t, 1, out.NotFound)
	assert.Equal(t, 2, out.Skipped)
	st.AssertNotCalled(t, "UpdateEnrichment", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Execute_RateLimited(t *testing.T) {
	t.Run("partial progress is kept", func(t *testing.T) {
		st := &MockStore{}
		st.On("ListCandidates", mock.Anything, acme).Return([]buyergroup.PersonCandidate{
			{ID: "dm"}, {ID: "throttled"}, {ID: "ic"},
		}, nil)
		st.On("UpdateEnrichment", mock.Anything, acme, mock.Anything).Return(nil).Once()

		out, err := newTestService(st, providerStub(t), nil).Execute(context.Background(), &Input{WorkspaceID: "ws-1", CompanyID: "acme"})
		require.NoError(t, err)
		assert.True(t, out.RateLimited)
		assert.Equal(t, 1, out.Enriched)
		assert.Equal(t, 1, out.Skipped)
		st.AssertExpectations(t)
	})

	t.Run("nothing done", func(t *testing.T) {
		st := &MockStore{}
		st.On("ListCandidates", mock.Anything, acme).Return([]buyergroup.PersonCandidate{{ID: "throttled"}, {ID: "dm"}}, nil)

		_, err := newTestService(st, providerStub(t), nil).Execute(context.Background(), &Input{WorkspaceID: "ws-1", CompanyID: "acme"})
		assert.True(t, errors.HasCode(err, errors.ErrCodeEnrichmentRateLimited))
	})
}

func TestService_Execute_Errors(t *testing.T) {
	t.Run("every lookup fails", func(t *testing.T) {
		st := &MockStore{}
		st.On("ListCandidates", mock.Anything, acme).Return([]buyergroup.PersonCandidate{{ID: "broken"}}, nil)

		_, err := newTestService(st, providerStub(t), nil).Execute(context.Background(), &Input{WorkspaceID: "ws-1", CompanyID: "acme"})
		assert.True(t, errors.HasCode(err, errors.ErrCodeEnrichmentFailed))
	})

	t.Run("store read fails", func(t *testing.T) {
		st := &MockStore{}
		st.On("ListCandidates", mock.Anything, acme).Return(nil, fmt.Errorf("connection refused"))

		_, err := newTestService(st, providerStub(t), nil).Execute(context.Background(), &Input{WorkspaceID: "ws-1", CompanyID: "acme"})
		assert.True(t, errors.HasCode(err, errors.ErrCodeCandidateSourceFailed))
	})

	t.Run("store write fails", func(t *testing.T) {
		st := &MockStore{}
		st.On("ListCandidates", mock.Anything, acme).Return([]buyergroup.PersonCandidate{{ID: "dm"}}, nil)
		st.On("UpdateEnrichment", mock.Anything, acme, mock.Anything).Return(store.ErrCandidateNotFound)

		_, err := newTestService(st, providerStub(t), nil).Execute(context.Background(), &Input{WorkspaceID: "ws-1", CompanyID: "acme"})
		assert.True(t, errors.HasCode(err, errors.ErrCodePersistenceFailed))
	})

	t.Run("cache invalidation failure is ignored", func(t *testing.T) {
		st := &MockStore{}
		cache := &MockCache{}
		st.On("ListCandidates", mock.Anything, acme).Return([]buyergroup.PersonCandidate{{ID: "dm"}}, nil)
		st.On("UpdateEnrichment", mock.Anything, acme, mock.Anything).Return(nil)
		cache.On("Invalidate", mock.Anything, acme).Return(fmt.Errorf("redis down"))

		out, err := newTestService(st, providerStub(t), cache).Execute(context.Background(), &Input{WorkspaceID: "ws-1", CompanyID: "acme"})
		require.NoError(t, err)
		assert.Equal(t, 1, out.Enriched)
	})
}

func TestService_Execute_PartialWriteInvalidatesCache(t *testing.T) {
	st := &MockStore{}
	cache := &MockCache{}
	st.On("ListCandidates", mock.Anything, acme).Return([]buyergroup.PersonCandidate{
		{ID: "dm"}, {ID: "ic"},
	}, nil)
	st.On("UpdateEnrichment", mock.Anything, acme, mock.MatchedBy(func(u store.EnrichmentUpdate) bool {
		return u.PersonID == "dm"
	})).Return(nil).Once()
	st.On("UpdateEnrichment", mock.Anything, acme, mock.MatchedBy(func(u store.EnrichmentUpdate) bool {
		return u.PersonID == "ic"
	})).Return(fmt.Errorf("connection reset")).Once()
	cache.On("Invalidate", mock.Anything, acme).Return(nil).Once()

	out, err := newTestService(st, providerStub(t), cache).Execute(context.Background(), &Input{WorkspaceID: "ws-1", CompanyID: "acme"})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, errors.HasCode(err, errors.ErrCodePersistenceFailed))

	st.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestService_Execute_FirstWriteFailsSkipsInvalidate(t *testing.T) {
	st := &MockStore{}
	cache := &MockCache{}
	st.On("ListCandidates", mock.Anything, acme).Return([]buyergroup.PersonCandidate{{ID: "dm"}}, nil)
	st.On("UpdateEnrichment", mock.Anything, acme, mock.Anything).Return(fmt.Errorf("connection reset"))

	_, err := newTestService(st, providerStub(t), cache).Execute(context.Background(), &Input{WorkspaceID: "ws-1", CompanyID: "acme"})
	require.Error(t, err)
	cache.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

func TestHandler_NewHandler(t *testing.T) {
	_, err := NewHandler(HandlerOptions{Logger: logger.NewNoOpLogger()})
	assert.ErrorContains(t, err, "candidate store and enricher are required")

	_, err = NewHandler(HandlerOptions{
		CustomConfig: &Config{Timeout: 1, MaxJobsActive: 1},
		Dependencies: ServiceDependencies{Store: &MockStore{}, Enricher: providerStub(t)},
	})
	assert.ErrorContains(t, err, "max_candidates must be positive")

	handler, err := NewHandler(HandlerOptions{
		Logger:       logger.NewNoOpLogger(),
		Dependencies: ServiceDependencies{Store: &MockStore{}, Enricher: providerStub(t)},
	})
	require.NoError(t, err)
	assert.Equal(t, TaskType, handler.GetTaskType())
}
