// internal/store/index.go
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"buyer-group-workers/internal/buyergroup"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const groupIndexMapping = `{
	"mappings": {
		"properties": {
			"workspaceId":        {"type": "keyword"},
			"companyId":          {"type": "keyword"},
			"valid":              {"type": "boolean"},
			"invalidReason":      {"type": "keyword"},
			"memberCount":        {"type": "integer"},
			"candidateCount":     {"type": "integer"},
			"coverageScore":      {"type": "float"},
			"engagementStrategy": {"type": "keyword"},
			"priority":           {"type": "keyword"},
			"roleCounts":         {"type": "object"},
			"members": {
				"type": "nested",
				"properties": {
					"personId":   {"type": "keyword"},
					"role":       {"type": "keyword"},
					"confidence": {"type": "float"}
				}
			},
			"composedAt": {"type": "date"}
		}
	}
}`

// GroupDocument is the search view of a buyer group, one per company.
type GroupDocument struct {
	WorkspaceID        string                      `json:"workspaceId"`
	CompanyID          string                      `json:"companyId"`
	Valid              bool                        `json:"valid"`
	InvalidReason      string                      `json:"invalidReason,omitempty"`
	MemberCount        int                         `json:"memberCount"`
	CandidateCount     int                         `json:"candidateCount"`
	CoverageScore      float64                     `json:"coverageScore"`
	EngagementStrategy string                      `json:"engagementStrategy"`
	Priority           string                      `json:"priority"`
	RoleCounts         map[buyergroup.Role]int     `json:"roleCounts"`
	Members            []buyergroup.RoleAssignment `json:"members"`
	ComposedAt         time.Time                   `json:"composedAt"`
}

func NewGroupDocument(scope buyergroup.Scope, group buyergroup.BuyerGroup, summary buyergroup.Summary, composedAt time.Time) GroupDocument {
	return GroupDocument{
		WorkspaceID:        scope.WorkspaceID,
		CompanyID:          scope.CompanyID,
		Valid:              group.Valid,
		InvalidReason:      group.InvalidReason,
		MemberCount:        len(group.Members),
		CandidateCount:     summary.CandidateCount,
		CoverageScore:      summary.CoverageScore,
		EngagementStrategy: summary.EngagementStrategy,
		Priority:           summary.Priority,
		RoleCounts:         summary.RoleCounts,
		Members:            group.Members,
		ComposedAt:         composedAt,
	}
}

// DocumentID is stable per company so reindexing overwrites.
func (d GroupDocument) DocumentID() string {
	return d.WorkspaceID + ":" + d.CompanyID
}

// GroupIndex writes buyer group documents to Elasticsearch.
type GroupIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewGroupIndex(es *elasticsearch.Client, index string) *GroupIndex {
	return &GroupIndex{es: es, index: index}
}

func (g *GroupIndex) Name() string {
	return g.index
}

// EnsureIndex creates the index with its mapping when missing.
func (g *GroupIndex) EnsureIndex(ctx context.Context) error {
	res, err := g.es.Indices.Exists([]string{g.index}, g.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", g.index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("check index %s: %s", g.index, res.Status())
	}

	res, err = g.es.Indices.Create(g.index,
		g.es.Indices.Create.WithContext(ctx),
		g.es.Indices.Create.WithBody(strings.NewReader(groupIndexMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", g.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		// Another worker may have created it first.
		if bytes.Contains(body, []byte("resource_already_exists_exception")) {
			return nil
		}
		return fmt.Errorf("create index %s: %s: %s", g.index, res.Status(), body)
	}
	return nil
}

// IndexBuyerGroup upserts doc under its company document id.
func (g *GroupIndex) IndexBuyerGroup(ctx context.Context, doc GroupDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal group document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      g.index,
		DocumentID: doc.DocumentID(),
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, g.es)
	if err != nil {
		return fmt.Errorf("index buyer group %s: %w", doc.DocumentID(), err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index buyer group %s: %s: %s", doc.DocumentID(), res.Status(), msg)
	}
	return nil
}
