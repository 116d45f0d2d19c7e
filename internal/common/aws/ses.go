// internal/common/aws/ses.go
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the subset of *ses.Client used here.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESClient struct {
	client SESAPI
}

func NewSESClient(ctx context.Context, region string) (*SESClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SESClient{client: ses.NewFromConfig(cfg)}, nil
}

func NewSESClientWithAPI(api SESAPI) *SESClient {
	return &SESClient{client: api}
}

func (s *SESClient) SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	return s.client.SendEmail(ctx, input)
}

// Report is a rendered email.
type Report struct {
	Subject  string
	TextBody string
	HTMLBody string
}

// ReportMailer sends reports from a fixed address.
type ReportMailer struct {
	ses  *SESClient
	from string
}

func NewReportMailer(client *SESClient, from string) *ReportMailer {
	return &ReportMailer{ses: client, from: from}
}

// Send mails report to recipients and returns the SES message id.
func (m *ReportMailer) Send(ctx context.Context, recipients []string, report Report) (string, error) {
	if m.from == "" {
		return "", fmt.Errorf("report sender address is not configured")
	}
	if len(recipients) == 0 {
		return "", fmt.Errorf("no report recipients")
	}

	body := &types.Body{
		Text: &types.Content{Data: aws.String(report.TextBody), Charset: aws.String("UTF-8")},
	}
	if report.HTMLBody != "" {
		body.Html = &types.Content{Data: aws.String(report.HTMLBody), Charset: aws.String("UTF-8")}
	}

	out, err := m.ses.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(m.from),
		Destination: &types.Destination{ToAddresses: recipients},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(report.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
	})
	if err != nil {
		return "", fmt.Errorf("send report: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
