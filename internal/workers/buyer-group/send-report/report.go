package sendreport

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"buyer-group-workers/internal/buyergroup"
	"buyer-group-workers/internal/common/aws"
	"buyer-group-workers/internal/store"
)

type reportData struct {
	Company         string
	Valid           bool
	InvalidReason   string
	Strategy        string
	Priority        string
	Coverage        string
	Dropped         int
	Roles           []roleLine
	Members         []memberLine
	Recommendations []buyergroup.Recommendation
	GeneratedFrom   string
}

type roleLine struct {
	Role  string
	Count int
}

type memberLine struct {
	Name       string
	Title      string
	Email      string
	Role       string
	Confidence string
}

var funcs = map[string]interface{}{"upper": strings.ToUpper}

var textReport = texttemplate.Must(texttemplate.New("text").Funcs(funcs).Parse(
	`Buyer group for {{.Company}}
{{if .Valid}}Status: valid{{else}}Status: INVALID ({{.InvalidReason}}){{end}}
Strategy: {{.Strategy}}  Priority: {{.Priority}}  Coverage: {{.Coverage}}
{{if .Dropped}}Trimmed by size limits: {{.Dropped}}
{{end}}
Roles:
{{range .Roles}}  {{.Role}}: {{.Count}}
{{end}}
Members:
{{range .Members}}  - {{.Name}}{{if .Title}}, {{.Title}}{{end}} [{{.Role}} {{.Confidence}}]{{if .Email}} <{{.Email}}>{{end}}
{{else}}  (none)
{{end}}{{if .Recommendations}}
Next steps:
{{range .Recommendations}}  [{{upper .Priority}}] {{.Action}}: {{.Rationale}}
{{end}}{{end}}
Snapshot {{.GeneratedFrom}}
`))

var htmlReport = htmltemplate.Must(htmltemplate.New("html").Funcs(funcs).Parse(
	`<h2>Buyer group for {{.Company}}</h2>
{{if .Valid}}<p>Status: valid</p>{{else}}<p><strong>Status: invalid</strong> ({{.InvalidReason}})</p>{{end}}
<p>Strategy: {{.Strategy}} &middot; Priority: {{.Priority}} &middot; Coverage: {{.Coverage}}</p>
<table>
<tr><th>Name</th><th>Title</th><th>Role</th><th>Confidence</th><th>Email</th></tr>
{{range .Members}}<tr><td>{{.Name}}</td><td>{{.Title}}</td><td>{{.Role}}</td><td>{{.Confidence}}</td><td>{{.Email}}</td></tr>
{{end}}</table>
{{if .Recommendations}}<ul>
{{range .Recommendations}}<li><strong>{{upper .Priority}}</strong> {{.Action}}: {{.Rationale}}</li>
{{end}}</ul>{{end}}
<p><small>Snapshot {{.GeneratedFrom}}</small></p>
`))

// renderReport builds the email for a stored group snapshot.
func renderReport(g *store.StoredGroup) (aws.Report, error) {
	data := reportData{
		Company:         g.Scope.CompanyID,
		Valid:           g.Group.Valid,
		InvalidReason:   g.Group.InvalidReason,
		Strategy:        g.Summary.EngagementStrategy,
		Priority:        g.Summary.Priority,
		Coverage:        fmt.Sprintf("%.0f%%", g.Summary.CoverageScore*100),
		Dropped:         g.Group.Dropped,
		Recommendations: g.Summary.Recommendations,
		GeneratedFrom:   fmt.Sprintf("%s (%s)", g.ID, g.CreatedAt.Format("2006-01-02 15:04 MST")),
	}
	for _, role := range buyergroup.RolesByPriority {
		data.Roles = append(data.Roles, roleLine{Role: role.DisplayName(), Count: g.Summary.RoleCounts[role]})
	}
	for _, m := range g.Members {
		name := m.FullName
		if name == "" {
			name = m.PersonID
		}
		data.Members = append(data.Members, memberLine{
			Name:       name,
			Title:      m.JobTitle,
			Email:      m.Email,
			Role:       m.Role.DisplayName(),
			Confidence: fmt.Sprintf("%.2f", m.Confidence),
		})
	}

	var text, html bytes.Buffer
	if err := textReport.Execute(&text, data); err != nil {
		return aws.Report{}, fmt.Errorf("render text report: %w", err)
	}
	if err := htmlReport.Execute(&html, data); err != nil {
		return aws.Report{}, fmt.Errorf("render html report: %w", err)
	}

	subject := fmt.Sprintf("Buyer group for %s: %d members", data.Company, len(g.Members))
	if !g.Group.Valid {
		subject = fmt.Sprintf("Buyer group for %s needs attention: %s", data.Company, g.Group.InvalidReason)
	}
	return aws.Report{Subject: subject, TextBody: text.String(), HTMLBody: html.String()}, nil
}
