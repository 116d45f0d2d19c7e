// Package enrichment looks people up at an external data provider to fill in
// the decision-maker flag and salary floor.
package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"buyer-group-workers/internal/buyergroup"
	"buyer-group-workers/internal/common/config"
	commonhttp "buyer-group-workers/internal/common/http"
	"buyer-group-workers/internal/common/metrics"
)

// ErrRateLimited is returned when the provider answers 429.
var ErrRateLimited = errors.New("enrichment provider rate limited")

// Provenance field names written by Apply.
const (
	FieldDecisionMaker = "externalDecisionMakerFlag"
	FieldSalaryFloor   = "salaryFloor"
)

type LookupRequest struct {
	PersonID  string `json:"personId"`
	CompanyID string `json:"companyId"`
	FullName  string `json:"fullName"`
	Email     string `json:"email,omitempty"`
	JobTitle  string `json:"jobTitle,omitempty"`
}

// LookupResult is the provider's answer. Found is false when the provider
// has no record of the person.
type LookupResult struct {
	Found         bool     `json:"found"`
	DecisionMaker *bool    `json:"decisionMaker,omitempty"`
	SalaryFloor   *float64 `json:"salaryFloor,omitempty"`
	Confidence    float64  `json:"confidence,omitempty"`
}

type Client struct {
	provider   string
	baseURL    string
	apiKey     string
	httpClient *commonhttp.Client
	now        func() time.Time
}

func NewClient(cfg config.EnrichmentConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		provider:   cfg.Provider,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: commonhttp.NewRateLimitedClient(timeout, cfg.RequestsPerSecond, cfg.Burst),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (c *Client) Provider() string {
	return c.provider
}

// Lookup posts one person to {base}/v1/people/lookup.
func (c *Client) Lookup(ctx context.Context, req LookupRequest) (LookupResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return LookupResult{}, fmt.Errorf("marshal lookup: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/people/lookup", bytes.NewReader(payload))
	if err != nil {
		return LookupResult{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.DoWithContext(ctx, httpReq)
	if err != nil {
		metrics.ObserveEnrichmentCall(ctx, c.provider, "error")
		return LookupResult{}, fmt.Errorf("lookup %s: %w", req.PersonID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		metrics.ObserveEnrichmentCall(ctx, c.provider, "not_found")
		return LookupResult{Found: false}, nil
	case http.StatusTooManyRequests:
		metrics.ObserveEnrichmentCall(ctx, c.provider, "rate_limited")
		return LookupResult{}, ErrRateLimited
	default:
		metrics.ObserveEnrichmentCall(ctx, c.provider, "error")
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return LookupResult{}, fmt.Errorf("lookup %s (status %d): %s", req.PersonID, resp.StatusCode, body)
	}

	var result LookupResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		metrics.ObserveEnrichmentCall(ctx, c.provider, "error")
		return LookupResult{}, fmt.Errorf("decode lookup %s: %w", req.PersonID, err)
	}
	result.Found = true
	metrics.ObserveEnrichmentCall(ctx, c.provider, "ok")
	return result, nil
}

// NeedsEnrichment reports whether the provider may add anything for c.
func NeedsEnrichment(c buyergroup.PersonCandidate) bool {
	return c.ExternalDecisionMakerFlag == nil || c.SalaryFloor == nil
}

// Apply merges result into c and records provenance for every field it set.
// Values already present on c are kept.
func (c *Client) Apply(candidate buyergroup.PersonCandidate, result LookupResult) (buyergroup.PersonCandidate, bool) {
	if !result.Found {
		return candidate, false
	}
	fetchedAt := c.now()
	changed := false
	candidate.Extensions.Provenance = append([]buyergroup.Provenance(nil), candidate.Extensions.Provenance...)

	if candidate.ExternalDecisionMakerFlag == nil && result.DecisionMaker != nil {
		v := *result.DecisionMaker
		candidate.ExternalDecisionMakerFlag = &v
		candidate.Extensions.AddProvenance(buyergroup.Provenance{
			Source: c.provider, Field: FieldDecisionMaker, Confidence: result.Confidence, FetchedAt: fetchedAt,
		})
		changed = true
	}
	if candidate.SalaryFloor == nil && result.SalaryFloor != nil {
		v := *result.SalaryFloor
		candidate.SalaryFloor = &v
		candidate.Extensions.AddProvenance(buyergroup.Provenance{
			Source: c.provider, Field: FieldSalaryFloor, Confidence: result.Confidence, FetchedAt: fetchedAt,
		})
		changed = true
	}
	return candidate, changed
}
