package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	commonhttp "buyer-group-workers/internal/common/http"
)

const DefaultBaseURL = "https://www.zohoapis.com/crm/v2"

// maxRecordsPerUpdate is Zoho's limit for a bulk record update.
const maxRecordsPerUpdate = 100

type CRMClient struct {
	apiKey     string
	oauthToken string
	baseURL    string
	httpClient *commonhttp.Client
}

type Contact struct {
	ID                   string   `json:"id,omitempty"`
	Email                string   `json:"Email,omitempty"`
	FirstName            string   `json:"First_Name,omitempty"`
	LastName             string   `json:"Last_Name,omitempty"`
	Title                string   `json:"Title,omitempty"`
	BuyerGroupRole       string   `json:"Buyer_Group_Role,omitempty"`
	BuyerGroupConfidence *float64 `json:"Buyer_Group_Confidence,omitempty"`
}

// RoleUpdate sets the buyer group fields of one contact.
type RoleUpdate struct {
	ContactID  string
	Role       string
	Confidence float64
}

// UpdateResult is Zoho's per-record outcome for a bulk update.
type UpdateResult struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
	Details struct {
		ID string `json:"id"`
	} `json:"details"`
}

func NewCRMClient(baseURL, apiKey, oauthToken string, httpClient *commonhttp.Client) *CRMClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = commonhttp.NewClient(30 * time.Second)
	}
	return &CRMClient{
		apiKey:     apiKey,
		oauthToken: oauthToken,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *CRMClient) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.oauthToken)
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// SearchContacts searches contacts by email. No match is an empty slice.
func (c *CRMClient) SearchContacts(ctx context.Context, email string) ([]Contact, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/Contacts/search?email="+url.QueryEscape(email), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.DoWithContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	// Zoho answers an empty search with 204 and no body.
	if resp.StatusCode == http.StatusNoContent {
		return []Contact{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to search contacts (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Data []Contact `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Data == nil {
		result.Data = []Contact{}
	}
	return result.Data, nil
}

// UpdateContactRoles writes Buyer_Group_Role and Buyer_Group_Confidence in
// batches of at most 100 records. Results are returned in input order.
func (c *CRMClient) UpdateContactRoles(ctx context.Context, updates []RoleUpdate) ([]UpdateResult, error) {
	results := make([]UpdateResult, 0, len(updates))
	for start := 0; start < len(updates); start += maxRecordsPerUpdate {
		end := start + maxRecordsPerUpdate
		if end > len(updates) {
			end = len(updates)
		}
		batch, err := c.updateBatch(ctx, updates[start:end])
		if err != nil {
			return results, err
		}
		results = append(results, batch...)
	}
	return results, nil
}

func (c *CRMClient) updateBatch(ctx context.Context, updates []RoleUpdate) ([]UpdateResult, error) {
	records := make([]Contact, len(updates))
	for i, u := range updates {
		confidence := u.Confidence
		records[i] = Contact{ID: u.ContactID, BuyerGroupRole: u.Role, BuyerGroupConfidence: &confidence}
	}

	jsonData, err := json.Marshal(map[string]interface{}{"data": records})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal contacts: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, "/Contacts", bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.DoWithContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	// 202 is a partial success: some records failed and carry their own status.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("failed to update contacts (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Data []UpdateResult `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(result.Data) != len(updates) {
		return nil, fmt.Errorf("expected %d results, got %d", len(updates), len(result.Data))
	}
	return result.Data, nil
}
