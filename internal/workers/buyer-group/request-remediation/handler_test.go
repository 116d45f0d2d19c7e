package requestremediation

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"buyer-group-workers/internal/buyergroup"
	"buyer-group-workers/internal/common/aws"
	"buyer-group-workers/internal/common/errors"
	"buyer-group-workers/internal/common/logger"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: awssdk.String("msg-42")}, nil
}

func newTestService(api *fakeSNS) *Service {
	publisher := aws.NewRemediationPublisher(aws.NewSNSClientWithAPI(api), "arn:aws:sns:eu-west-1:123:remediation")
	s := NewService(ServiceDependencies{Publisher: publisher}, DefaultConfig())
	s.now = func() time.Time { return time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestService_Execute(t *testing.T) {
	api := &fakeSNS{}
	svc := newTestService(api)

	out, err := svc.Execute(context.Background(), &Input{WorkspaceID: "ws-1", CompanyID: "acme", CandidateCount: 4})
	require.NoError(t, err)
	assert.True(t, out.RemediationRequested)
	assert.Equal(t, "msg-42", out.RemediationMessageID)

	require.Len(t, api.inputs, 1)
	var req aws.RemediationRequest
	require.NoError(t, json.Unmarshal([]byte(*api.inputs[0].Message), &req))
	assert.Equal(t, "acme", req.CompanyID)
	assert.Equal(t, buyergroup.InvalidReasonNoDecisionMaker, req.Reason)
	assert.Equal(t, 4, req.CandidateCount)
	assert.Equal(t, time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC), req.RequestedAt)
}

func TestService_Execute_KeepsReason(t *testing.T) {
	api := &fakeSNS{}
	_, err := newTestService(api).Execute(context.Background(), &Input{
		WorkspaceID: "ws-1", CompanyID: "acme", Reason: "decision maker left company",
	})
	require.NoError(t, err)
	assert.Equal(t, "decision maker left company", *api.inputs[0].MessageAttributes["reason"].StringValue)
}

func TestService_Execute_Errors(t *testing.T) {
	_, err := newTestService(&fakeSNS{}).Execute(context.Background(), &Input{WorkspaceID: "ws-1"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))

	_, err = newTestService(&fakeSNS{err: fmt.Errorf("throttled")}).Execute(context.Background(), &Input{
		WorkspaceID: "ws-1", CompanyID: "acme",
	})
	require.Error(t, err)
	stdErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeRemediationPublishFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Equal(t, "acme", stdErr.Metadata["companyId"])
}

func TestHandler_NewHandler_RequiresPublisher(t *testing.T) {
	_, err := NewHandler(HandlerOptions{Logger: logger.NewNoOpLogger()})
	assert.ErrorContains(t, err, "remediation publisher is required")
}

func TestHandler_ParseInput(t *testing.T) {
	handler, err := NewHandler(HandlerOptions{
		Logger:       logger.NewNoOpLogger(),
		Dependencies: ServiceDependencies{Publisher: aws.NewRemediationPublisher(aws.NewSNSClientWithAPI(&fakeSNS{}), "arn")},
	})
	require.NoError(t, err)

	vars, _ := json.Marshal(map[string]interface{}{
		"workspaceId": "ws-1", "companyId": "acme", "invalidReason": "no decision maker", "candidateCount": 3,
	})
	input, err := handler.parseInput(entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Variables: string(vars)}})
	require.NoError(t, err)
	assert.Equal(t, 3, input.CandidateCount)

	vars, _ = json.Marshal(map[string]interface{}{"workspaceId": "ws-1", "companyId": "acme", "candidateCount": -1})
	_, err = handler.parseInput(entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 2, Variables: string(vars)}})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
}
