package compose

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"buyer-group-workers/internal/buyergroup"
	"buyer-group-workers/internal/common/aws"
	"buyer-group-workers/internal/common/config"
	"buyer-group-workers/internal/common/errors"
	"buyer-group-workers/internal/common/logger"
	"buyer-group-workers/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Dependencies
// ==========================

type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Load(ctx context.Context, scope buyergroup.Scope) ([]buyergroup.PersonCandidate, string, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).([]buyergroup.PersonCandidate), args.String(1), args.Error(2)
}

type MockGroups struct {
	mock.Mock
}

func (m *MockGroups) SaveBuyerGroup(ctx context.Context, scope buyergroup.Scope, group buyergroup.BuyerGroup, assignments []buyergroup.RoleAssignment) (string, error) {
	args := m.Called(ctx, scope, group, assignments)
	return args.String(0), args.Error(1)
}

type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) IndexBuyerGroup(ctx context.Context, doc store.GroupDocument) error {
	return m.Called(ctx, doc).Error(0)
}

type MockRemediator struct {
	mock.Mock
}

func (m *MockRemediator) Publish(ctx context.Context, req aws.RemediationRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// ==========================
// Mock Job Helper
// ==========================

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)

	activatedJob := &pb.ActivatedJob{
		Key:                      key,
		Type:                     TaskType,
		ProcessInstanceKey:       key * 10,
		BpmnProcessId:            "buyer-group-process",
		ProcessDefinitionVersion: 1,
		ProcessDefinitionKey:     1,
		ElementId:                "Activity_ComposeBuyerGroup",
		ElementInstanceKey:       1,
		CustomHeaders:            "{}",
		Worker:                   "test-worker",
		Retries:                  3,
		Deadline:                 0,
		Variables:                string(variablesJSON),
	}

	return entities.Job{ActivatedJob: activatedJob}
}

// ==========================
// Test Helpers
// ==========================

func createValidConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
		Constraints:   buyergroup.DefaultConstraints(),
	}
}

func boolPtr(b bool) *bool { return &b }

func stored() []buyergroup.PersonCandidate {
	return []buyergroup.PersonCandidate{
		{ID: "p1", FullName: "Ana Ruiz", JobTitle: "Chief Financial Officer"},
		{ID: "p2", FullName: "Ben Ode", JobTitle: "VP Sales", ExternalDecisionMakerFlag: boolPtr(true)},
		{ID: "p3", FullName: "Cy Lam", JobTitle: "Senior Software Engineer"},
		{ID: "p4", FullName: "Di Moss", JobTitle: "Procurement Manager"},
		{ID: "p5", FullName: "Ed Zhu", JobTitle: "Office Manager"},
	}
}

func noDecisionMakers() []buyergroup.PersonCandidate {
	return []buyergroup.PersonCandidate{
		{ID: "p1", FullName: "Cy Lam", JobTitle: "Engineer"},
		{ID: "p2", FullName: "Fay Orr", JobTitle: "Analyst"},
	}
}

var acme = buyergroup.Scope{WorkspaceID: "ws-1", CompanyID: "acme"}

func newTestService(deps ServiceDependencies, cfg *Config) *Service {
	deps.Logger = logger.NewNoOpLogger()
	s := NewService(deps, cfg)
	s.now = func() time.Time { return time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

// ==========================
// Handler Creation Tests
// ==========================

func TestHandler_NewHandler(t *testing.T) {
	groups := &MockGroups{}

	tests := []struct {
		name    string
		opts    HandlerOptions
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid configuration",
			opts: HandlerOptions{
				CustomConfig: createValidConfig(),
				Logger:       logger.NewTestLogger(t),
				Dependencies: ServiceDependencies{Groups: groups},
			},
		},
		{
			name: "from app config",
			opts: HandlerOptions{
				AppConfig: &config.Config{
					Workers: map[string]config.WorkerConfig{
						ConfigKey: {Enabled: true, MaxJobsActive: 2, Timeout: 1000},
					},
					BuyerGroup: config.BuyerGroupConfig{
						MaxTotal: 10,
						RoleCaps: map[string]int{"DecisionMaker": 2},
					},
				},
				Dependencies: ServiceDependencies{Groups: groups},
			},
		},
		{
			name: "missing group store",
			opts: HandlerOptions{
				CustomConfig: createValidConfig(),
			},
			wantErr: true,
			errMsg:  "group store is required",
		},
		{
			name: "invalid timeout",
			opts: HandlerOptions{
				CustomConfig: &Config{
					MaxJobsActive: 5,
					Timeout:       -1 * time.Second,
					Constraints:   buyergroup.DefaultConstraints(),
				},
				Dependencies: ServiceDependencies{Groups: groups},
			},
			wantErr: true,
			errMsg:  "timeout must be positive",
		},
		{
			name: "invalid constraints",
			opts: HandlerOptions{
				CustomConfig: &Config{
					MaxJobsActive: 5,
					Timeout:       time.Second,
					Constraints:   buyergroup.GroupConstraints{MaxTotal: 0},
				},
				Dependencies: ServiceDependencies{Groups: groups},
			},
			wantErr: true,
			errMsg:  "maxTotal must be at least 1",
		},
		{
			name: "unknown role in app config caps",
			opts: HandlerOptions{
				AppConfig: &config.Config{
					BuyerGroup: config.BuyerGroupConfig{MaxTotal: 10, RoleCaps: map[string]int{"gatekeeper": 1}},
				},
				Dependencies: ServiceDependencies{Groups: groups},
			},
			wantErr: true,
			errMsg:  "role_caps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, err := NewHandler(tt.opts)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, handler)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, handler.service)
			assert.Equal(t, TaskType, handler.GetTaskType())
			assert.True(t, handler.IsEnabled())
		})
	}
}

func TestHandler_NewHandler_AppConfigValues(t *testing.T) {
	handler, err := NewHandler(HandlerOptions{
		AppConfig: &config.Config{
			Workers: map[string]config.WorkerConfig{
				ConfigKey: {Enabled: true, MaxJobsActive: 2, Timeout: 1500},
			},
			BuyerGroup: config.BuyerGroupConfig{
				MaxTotal:         10,
				RoleCaps:         map[string]int{"DecisionMaker": 2, "champion": 1},
				RemediateInvalid: true,
			},
		},
		Logger:       logger.NewNoOpLogger(),
		Dependencies: ServiceDependencies{Groups: &MockGroups{}},
	})
	require.NoError(t, err)

	cfg := handler.GetConfig()
	assert.Equal(t, 2, cfg.MaxJobsActive)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 10, cfg.Constraints.MaxTotal)
	assert.Equal(t, 2, cfg.Constraints.RoleCaps[buyergroup.RoleDecisionMaker])
	assert.True(t, cfg.RemediateInvalid)
}

// ==========================
// Input Parsing Tests
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	handler := &Handler{config: createValidConfig(), logger: logger.NewNoOpLogger()}

	tests := []struct {
		name      string
		variables map[string]interface{}
		errCode   errors.ErrorCode
		validate  func(*testing.T, *Input)
	}{
		{
			name:      "scope only",
			variables: map[string]interface{}{"workspaceId": "ws-1", "companyId": "acme"},
			validate: func(t *testing.T, input *Input) {
				assert.Equal(t, acme, input.Scope())
				assert.Nil(t, input.Candidates)
				assert.Nil(t, input.MaxTotal)
			},
		},
		{
			name: "inline candidates and overrides",
			variables: map[string]interface{}{
				"workspaceId": "ws-1",
				"companyId":   "acme",
				"maxTotal":    3,
				"roleCaps":    map[string]interface{}{"champion": 1},
				"remediate":   true,
				"candidates": []interface{}{
					map[string]interface{}{"id": "p1", "fullName": "Ana", "jobTitle": "CEO", "salaryFloor": 300000},
				},
			},
			validate: func(t *testing.T, input *Input) {
				require.Len(t, input.Candidates, 1)
				assert.Equal(t, 300000.0, *input.Candidates[0].SalaryFloor)
				assert.Equal(t, 3, *input.MaxTotal)
				assert.Equal(t, 1, input.RoleCaps["champion"])
				assert.True(t, *input.Remediate)
			},
		},
		{
			name:      "missing company",
			variables: map[string]interface{}{"workspaceId": "ws-1"},
			errCode:   errors.ErrCodeValidationFailed,
		},
		{
			name:      "empty workspace",
			variables: map[string]interface{}{"workspaceId": "", "companyId": "acme"},
			errCode:   errors.ErrCodeValidationFailed,
		},
		{
			name:      "max total zero",
			variables: map[string]interface{}{"workspaceId": "ws-1", "companyId": "acme", "maxTotal": 0},
			errCode:   errors.ErrCodeValidationFailed,
		},
		{
			name:      "negative role cap",
			variables: map[string]interface{}{"workspaceId": "ws-1", "companyId": "acme", "roleCaps": map[string]interface{}{"blocker": -1}},
			errCode:   errors.ErrCodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := handler.parseInput(createMockJob(12345, tt.variables))

			if tt.errCode != "" {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, tt.errCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			tt.validate(t, input)
		})
	}
}

func TestHandler_ParseInput_BadJSON(t *testing.T) {
	handler := &Handler{config: createValidConfig(), logger: logger.NewNoOpLogger()}
	job := createMockJob(1, nil)
	job.Variables = "{not json"

	_, err := handler.parseInput(job)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInputParsingFailed))
}

// ==========================
// Service Tests
// ==========================

func TestService_Execute_ValidGroup(t *testing.T) {
	loader := &MockLoader{}
	groups := &MockGroups{}
	index := &MockIndex{}
	remediator := &MockRemediator{}

	loader.On("Load", mock.Anything, acme).Return(stored(), store.SourceCache, nil)
	groups.On("SaveBuyerGroup", mock.Anything, acme, mock.MatchedBy(func(g buyergroup.BuyerGroup) bool {
		return g.Valid && len(g.Members) == 5
	}), mock.Anything).Return("group-1", nil)
	index.On("IndexBuyerGroup", mock.Anything, mock.MatchedBy(func(doc store.GroupDocument) bool {
		return doc.DocumentID() == "ws-1:acme" && doc.Valid
	})).Return(nil)

	svc := newTestService(ServiceDependencies{Loader: loader, Groups: groups, Index: index, Remediator: remediator}, createValidConfig())

	out, err := svc.Execute(context.Background(), &Input{WorkspaceID: "ws-1", CompanyID: "acme"})
	require.NoError(t, err)

	assert.Equal(t, "group-1", out.BuyerGroupID)
	assert.True(t, out.Valid)
	assert.Equal(t, store.SourceCache, out.CandidateSource)
	assert.Equal(t, 2, out.RoleCounts[buyergroup.RoleDecisionMaker])
	assert.Equal(t, 1, out.RoleCounts[buyergroup.RoleChampion])
	assert.Equal(t, 1, out.RoleCounts[buyergroup.RoleBlocker])
	// the flagged VP beats the title-matched CFO on confidence
	assert.Equal(t, "p2", out.PrimaryDecisionMaker)
	assert.Equal(t, buyergroup.StrategyExecutiveSponsor, out.EngagementStrategy)
	assert.False(t, out.RemediationRequested)

	loader.AssertExpectations(t)
	groups.AssertExpectations(t)
	index.AssertExpectations(t)
	remediator.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestService_Execute_InvalidGroupRequestsRemediation(t *testing.T) {
	groups := &MockGroups{}
	remediator := &MockRemediator{}

	groups.On("SaveBuyerGroup", mock.Anything, acme, mock.MatchedBy(func(g buyergroup.BuyerGroup) bool {
		return !g.Valid && len(g.Members) == 0
	}), mock.Anything).Return("group-2", nil)
	remediator.On("Publish", mock.Anything, mock.MatchedBy(func(req aws.RemediationRequest) bool {
		return req.CompanyID == "acme" && req.Reason == buyergroup.InvalidReasonNoDecisionMaker && req.CandidateCount == 2
	})).Return("msg-9", nil)

	cfg := createValidConfig()
	cfg.RemediateInvalid = true
	svc := newTestService(ServiceDependencies{Groups: groups, Remediator: remediator}, cfg)

	out, err := svc.Execute(context.Background(), &Input{WorkspaceID: "ws-1", CompanyID: "acme", Candidates: noDecisionMakers()})
	require.NoError(t, err)

	assert.False(t, out.Valid)
	assert.Equal(t, buyergroup.InvalidReasonNoDecisionMaker, out.InvalidReason)
	assert.Equal(t, CandidateSourceInline, out.CandidateSource)
	assert.Empty(t, out.PrimaryDecisionMaker)
	assert.True(t, out.RemediationRequested)
	assert.Equal(t, "msg-9", out.RemediationMessageID)
	remediator.AssertExpectations(t)
}

func TestService_Execute_RemediationOverride(t *testing.T) {
	groups := &MockGroups{}
	remediator := &MockRemediator{}
	groups.On("SaveBuyerGroup", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("group-3", nil)

	cfg := createValidConfig()
	cfg.RemediateInvalid = true
	svc := newTestService(ServiceDependencies{Groups: groups, Remediator: remediator}, cfg)

	out, err := svc.Execute(context.Background(), &Input{
		WorkspaceID: "ws-1", CompanyID: "acme", Candidates: noDecisionMakers(), Remediate: boolPtr(false),
	})
	require.NoError(t, err)
	assert.False(t, out.RemediationRequested)
	remediator.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestService_Execute_ConstraintOverrides(t *testing.T) {
	groups := &MockGroups{}
	groups.On("SaveBuyerGroup", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("group-4", nil)
	svc := newTestService(ServiceDependencies{Groups: groups}, createValidConfig())

	maxTotal := 2
	out, err := svc.Execute(context.Background(), &Input{
		WorkspaceID: "ws-1", CompanyID: "acme", Candidates: stored(), MaxTotal: &maxTotal,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.MemberCount)
	assert.Equal(t, 3, out.DroppedCount)
	assert.Equal(t, 2, out.RoleCounts[buyergroup.RoleDecisionMaker])

	_, err = svc.Execute(context.Background(), &Input{
		WorkspaceID: "ws-1", CompanyID: "acme", Candidates: stored(), RoleCaps: map[string]int{"gatekeeper": 1},
	})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
}

func TestService_Execute_MalformedCandidates(t *testing.T) {
	groups := &MockGroups{}
	groups.On("SaveBuyerGroup", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("group-5", nil)
	svc := newTestService(ServiceDependencies{Groups: groups}, createValidConfig())

	mixed := append(stored(), buyergroup.PersonCandidate{FullName: "No Id", JobTitle: "CEO"})
	out, err := svc.Execute(context.Background(), &Input{WorkspaceID: "ws-1", CompanyID: "acme", Candidates: mixed})
	require.NoError(t, err)
	assert.Equal(t, 1, out.RejectedCount)
	assert.Equal(t, 5, out.MemberCount)

	_, err = svc.Execute(context.Background(), &Input{
		WorkspaceID: "ws-1", CompanyID: "acme",
		Candidates: []buyergroup.PersonCandidate{{FullName: "No Id"}, {FullName: "Also None"}},
	})
	require.Error(t, err)
	stdErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeMalformedCandidate, stdErr.Code)
	assert.Equal(t, 2, stdErr.Metadata["rejected"])
	groups.AssertNumberOfCalls(t, "SaveBuyerGroup", 1)
}

func TestService_Execute_DependencyFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*MockLoader, *MockGroups, *MockIndex, *MockRemediator)
		input   *Input
		errCode errors.ErrorCode
	}{
		{
			name: "loader fails",
			setup: func(l *MockLoader, g *MockGroups, i *MockIndex, r *MockRemediator) {
				l.On("Load", mock.Anything, acme).Return(nil, "", fmt.Errorf("connection refused"))
			},
			input:   &Input{WorkspaceID: "ws-1", CompanyID: "acme"},
			errCode: errors.ErrCodeCandidateSourceFailed,
		},
		{
			name: "save fails",
			setup: func(l *MockLoader, g *MockGroups, i *MockIndex, r *MockRemediator) {
				g.On("SaveBuyerGroup", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", fmt.Errorf("deadlock"))
			},
			input:   &Input{WorkspaceID: "ws-1", CompanyID: "acme", Candidates: stored()},
			errCode: errors.ErrCodePersistenceFailed,
		},
		{
			name: "index fails",
			setup: func(l *MockLoader, g *MockGroups, i *MockIndex, r *MockRemediator) {
				g.On("SaveBuyerGroup", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("group-6", nil)
				i.On("IndexBuyerGroup", mock.Anything, mock.Anything).Return(fmt.Errorf("cluster red"))
			},
			input:   &Input{WorkspaceID: "ws-1", CompanyID: "acme", Candidates: stored()},
			errCode: errors.ErrCodeIndexFailed,
		},
		{
			name: "remediation publish fails",
			setup: func(l *MockLoader, g *MockGroups, i *MockIndex, r *MockRemediator) {
				g.On("SaveBuyerGroup", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("group-7", nil)
				i.On("IndexBuyerGroup", mock.Anything, mock.Anything).Return(nil)
				r.On("Publish", mock.Anything, mock.Anything).Return("", fmt.Errorf("throttled"))
			},
			input:   &Input{WorkspaceID: "ws-1", CompanyID: "acme", Candidates: noDecisionMakers(), Remediate: boolPtr(true)},
			errCode: errors.ErrCodeRemediationPublishFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader, groups, index, remediator := &MockLoader{}, &MockGroups{}, &MockIndex{}, &MockRemediator{}
			tt.setup(loader, groups, index, remediator)

			svc := newTestService(ServiceDependencies{Loader: loader, Groups: groups, Index: index, Remediator: remediator}, createValidConfig())

			_, err := svc.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.errCode), "got %v", err)

			stdErr, _ := errors.As(err)
			assert.True(t, stdErr.Retryable)
		})
	}
}

func TestInput_Constraints(t *testing.T) {
	base := buyergroup.DefaultConstraints()
	maxTotal := 8
	in := &Input{MaxTotal: &maxTotal, RoleCaps: map[string]int{"Champion": 5}}

	got, err := in.Constraints(base)
	require.NoError(t, err)
	assert.Equal(t, 8, got.MaxTotal)
	assert.Equal(t, 5, got.RoleCaps[buyergroup.RoleChampion])
	assert.Equal(t, 4, got.RoleCaps[buyergroup.RoleDecisionMaker])
	// the base is not modified
	assert.Equal(t, 2, base.RoleCaps[buyergroup.RoleChampion])

	_, err = (&Input{RoleCaps: map[string]int{"decision_maker": 0}}).Constraints(base)
	assert.Error(t, err)
}
