package render

import (
	"fmt"
	"html/template"
	"strings"
)

// htmlPage is a self-contained export page. Styling stays inline so the
// file can be mailed around without assets.
var htmlPage = template.Must(template.New("prd").Funcs(template.FuncMap{
	"percent": func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; max-width: 860px; margin: 2rem auto; padding: 0 1rem; color: #1a1a1a; }
h1 { border-bottom: 2px solid #e0e0e0; padding-bottom: .4rem; }
h2 { margin-top: 2rem; color: #234; }
.meta { color: #777; font-size: .9rem; }
.req { border: 1px solid #e0e0e0; border-radius: 6px; padding: .8rem 1rem; margin: .8rem 0; }
.req h4 { margin: 0 0 .4rem; }
.badge { display: inline-block; font-size: .75rem; padding: .1rem .5rem; border-radius: 9px; background: #eef; margin-right: .4rem; }
blockquote { color: #666; border-left: 3px solid #ddd; margin: .4rem 0; padding-left: .8rem; font-size: .9rem; }
.section-content { white-space: pre-wrap; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">Generated {{.GeneratedAt.Format "2006-01-02"}}{{if gt .Confidence 0.0}} · Confidence {{percent .Confidence}}{{end}}</p>

{{with .Body.Overview}}
<h2>Overview</h2>
{{if .Background}}<p>{{.Background}}</p>{{end}}
{{if .Goals}}<h3>Goals</h3><ul>{{range .Goals}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{if .Scope}}<h3>Scope</h3><p>{{.Scope}}</p>{{end}}
{{if .OutOfScope}}<h3>Out of Scope</h3><ul>{{range .OutOfScope}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{if .TargetUsers}}<h3>Target Users</h3><ul>{{range .TargetUsers}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{if .SuccessMetrics}}<h3>Success Metrics</h3><ul>{{range .SuccessMetrics}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{end}}

{{range .Groups}}
<h2>{{.Title}}</h2>
{{range .Requirements}}
<div class="req">
<h4>{{.Title}}</h4>
<p><span class="badge">{{.Priority}}</span><span class="badge">{{percent .Confidence}}</span></p>
<p>{{.Description}}</p>
{{if .AcceptanceCriteria}}<ul>{{range .AcceptanceCriteria}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{if .SourceExcerpt}}<blockquote>{{.SourceExcerpt}}</blockquote>{{end}}
</div>
{{end}}
{{end}}

{{if .Body.Milestones}}
<h2>Milestones</h2>
<ol>
{{range .Body.Milestones}}<li><strong>{{.Name}}</strong>: {{.Description}}</li>
{{end}}</ol>
{{end}}

{{if .Body.UnresolvedItems}}
<h2>Unresolved Items</h2>
<ul>
{{range .Body.UnresolvedItems}}<li><strong>{{.Type}}</strong>: {{.Description}}</li>
{{end}}</ul>
{{end}}

{{range .Body.Sections}}
<h2>{{.Title}}</h2>
<div class="section-content">{{.Content}}</div>
{{end}}

{{if .Body.SourceDocuments}}
<h2>Source Documents</h2>
<ul>
{{range .Body.SourceDocuments}}<li>{{.}}</li>
{{end}}</ul>
{{end}}
</body>
</html>
`))

type htmlView struct {
	*View
	Groups []requirementGroup
}

// HTML renders the view as a standalone HTML page.
func HTML(v *View) (string, error) {
	var b strings.Builder
	err := htmlPage.Execute(&b, htmlView{View: v, Groups: requirementsByKind(v.Requirements)})
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return b.String(), nil
}
