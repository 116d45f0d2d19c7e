// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSAPI is the subset of *sns.Client used here.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSClient struct {
	client SNSAPI
}

func NewSNSClient(ctx context.Context, region string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SNSClient{client: sns.NewFromConfig(cfg)}, nil
}

func NewSNSClientWithAPI(api SNSAPI) *SNSClient {
	return &SNSClient{client: api}
}

func (s *SNSClient) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	return s.client.Publish(ctx, input)
}

// RemediationRequest asks the upstream enrichment pipeline to find a
// decision maker for a company whose buyer group came out invalid.
type RemediationRequest struct {
	WorkspaceID    string    `json:"workspaceId"`
	CompanyID      string    `json:"companyId"`
	Reason         string    `json:"reason"`
	CandidateCount int       `json:"candidateCount"`
	RequestedAt    time.Time `json:"requestedAt"`
}

type RemediationPublisher struct {
	sns      *SNSClient
	topicARN string
}

func NewRemediationPublisher(client *SNSClient, topicARN string) *RemediationPublisher {
	return &RemediationPublisher{sns: client, topicARN: topicARN}
}

// Publish sends req as JSON and returns the SNS message id.
func (p *RemediationPublisher) Publish(ctx context.Context, req RemediationRequest) (string, error) {
	if p.topicARN == "" {
		return "", fmt.Errorf("remediation topic ARN is not configured")
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal remediation request: %w", err)
	}

	out, err := p.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String("buyer-group remediation"),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"workspaceId": {DataType: aws.String("String"), StringValue: aws.String(req.WorkspaceID)},
			"companyId":   {DataType: aws.String("String"), StringValue: aws.String(req.CompanyID)},
			"reason":      {DataType: aws.String("String"), StringValue: aws.String(req.Reason)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("publish remediation for %s: %w", req.CompanyID, err)
	}
	return aws.ToString(out.MessageId), nil
}
