package render

import (
	"fmt"
	"strings"
)

// Markdown renders the view as a markdown document.
func Markdown(v *View) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", v.Title)
	fmt.Fprintf(&b, "Generated: %s", v.GeneratedAt.Format("2006-01-02"))
	if v.Confidence > 0 {
		fmt.Fprintf(&b, " · Confidence: %.0f%%", v.Confidence*100)
	}
	b.WriteString("\n\n")

	if v.Body.Overview != nil {
		writeOverview(&b, v)
	}

	for _, group := range requirementsByKind(v.Requirements) {
		fmt.Fprintf(&b, "## %s\n\n", group.Title)
		for i, r := range group.Requirements {
			fmt.Fprintf(&b, "### %d. %s\n\n", i+1, r.Title)
			fmt.Fprintf(&b, "%s\n\n", r.Description)
			fmt.Fprintf(&b, "- Priority: %s\n", r.Priority)
			fmt.Fprintf(&b, "- Confidence: %.0f%%\n", r.Confidence*100)
			if len(r.AcceptanceCriteria) > 0 {
				b.WriteString("- Acceptance criteria:\n")
				for _, ac := range r.AcceptanceCriteria {
					fmt.Fprintf(&b, "  - %s\n", ac)
				}
			}
			if r.SourceExcerpt != "" {
				fmt.Fprintf(&b, "- Source: %q\n", r.SourceExcerpt)
			}
			b.WriteString("\n")
		}
	}

	if len(v.Body.Milestones) > 0 {
		b.WriteString("## Milestones\n\n")
		for _, m := range v.Body.Milestones {
			fmt.Fprintf(&b, "### M%d: %s\n\n%s\n\n", m.Order, m.Name, m.Description)
			if len(m.Deliverables) > 0 {
				b.WriteString("Deliverables:\n")
				for _, d := range m.Deliverables {
					fmt.Fprintf(&b, "- %s\n", d)
				}
				b.WriteString("\n")
			}
		}
	}

	if len(v.Body.UnresolvedItems) > 0 {
		b.WriteString("## Unresolved Items\n\n")
		for _, item := range v.Body.UnresolvedItems {
			fmt.Fprintf(&b, "- **%s**: %s", item.Type, item.Description)
			if item.SuggestedAction != "" {
				fmt.Fprintf(&b, " (suggested: %s)", item.SuggestedAction)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	// Derivative documents carry free-form sections
	for _, section := range v.Body.Sections {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", section.Title, section.Content)
	}

	if len(v.Body.SourceDocuments) > 0 {
		b.WriteString("## Source Documents\n\n")
		for _, name := range v.Body.SourceDocuments {
			fmt.Fprintf(&b, "- %s\n", name)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeOverview(b *strings.Builder, v *View) {
	o := v.Body.Overview
	b.WriteString("## Overview\n\n")
	if o.Background != "" {
		fmt.Fprintf(b, "%s\n\n", o.Background)
	}
	if len(o.Goals) > 0 {
		b.WriteString("### Goals\n\n")
		for _, g := range o.Goals {
			fmt.Fprintf(b, "- %s\n", g)
		}
		b.WriteString("\n")
	}
	if o.Scope != "" {
		fmt.Fprintf(b, "### Scope\n\n%s\n\n", o.Scope)
	}
	if len(o.OutOfScope) > 0 {
		b.WriteString("### Out of Scope\n\n")
		for _, s := range o.OutOfScope {
			fmt.Fprintf(b, "- %s\n", s)
		}
		b.WriteString("\n")
	}
	if len(o.TargetUsers) > 0 {
		b.WriteString("### Target Users\n\n")
		for _, u := range o.TargetUsers {
			fmt.Fprintf(b, "- %s\n", u)
		}
		b.WriteString("\n")
	}
	if len(o.SuccessMetrics) > 0 {
		b.WriteString("### Success Metrics\n\n")
		for _, m := range o.SuccessMetrics {
			fmt.Fprintf(b, "- %s\n", m)
		}
		b.WriteString("\n")
	}
}
