// Package render turns a stored run into an operator-readable markdown or HTML document.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"intakegate/domain/intake"
	"intakegate/ports"
)

// maxExclusionRows bounds the exclusion table; the full log stays in the JSON report
const maxExclusionRows = 200

// Markdown renders the report of a stored run
func Markdown(run *ports.StoredRun) []byte {
	r := &run.Report
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Intake readiness: %s\n\n", strings.ToUpper(string(r.Verdict)))
	fmt.Fprintf(&b, "- Run: `%s`\n", run.ID)
	fmt.Fprintf(&b, "- Generated: %s\n", r.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- Fingerprint: `%s`\n", r.Fingerprint.Short())
	fmt.Fprintf(&b, "- Engine: %s (report schema %s)\n\n", r.EngineVersion, r.SchemaVersion)

	if f := r.Failure; f != nil {
		b.WriteString("## Halt\n\n")
		fmt.Fprintf(&b, "**%s** at stage `%s` (%s file)\n\n", f.Reason, f.Stage, f.AffectedFile)
		fmt.Fprintf(&b, "%s\n\n", escape(f.Message))
		if len(f.Fields) > 0 {
			fmt.Fprintf(&b, "Fields: %s\n\n", strings.Join(f.Fields, ", "))
		}
		if f.RowRef != nil {
			fmt.Fprintf(&b, "Row: %s\n\n", f.RowRef)
		}
		if len(f.RemediationSteps) > 0 {
			b.WriteString("Remediation:\n\n")
			for i, step := range f.RemediationSteps {
				fmt.Fprintf(&b, "%d. %s\n", i+1, escape(step))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Inputs\n\n")
	b.WriteString("| File | Name | Format | Encoding | Rows | SHA-256 |\n|---|---|---|---|---|---|\n")
	for _, f := range []*intake.FileIdentity{r.Files.Incident, r.Files.Consequence} {
		if f == nil {
			continue
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %d | `%s` |\n", f.Role, cell(f.Name), f.Format, f.Encoding, f.RowCount, f.SHA256.Short())
	}
	b.WriteString("\n")

	aliases := [][]intake.AliasEntry{}
	for _, m := range []*intake.AliasMap{r.AliasMaps.Incident, r.AliasMaps.Consequence} {
		if m != nil {
			aliases = append(aliases, m.Entries)
		}
	}
	if len(aliases) > 0 {
		b.WriteString("## Column mapping\n\n")
		b.WriteString("| Field | Header | Method | Score | Confirmed by |\n|---|---|---|---|---|\n")
		for _, entries := range aliases {
			for _, e := range entries {
				fmt.Fprintf(&b, "| %s | %s | %s | %.4f | %s |\n", e.Field, cell(e.Header), e.Method, e.Score, cell(e.ConfirmedBy))
			}
		}
		b.WriteString("\n")
	}
	if unmatched := append(append([]string{}, r.UnmatchedHeaders.Incident...), r.UnmatchedHeaders.Consequence...); len(unmatched) > 0 {
		fmt.Fprintf(&b, "Unmapped headers: %s\n\n", escape(strings.Join(unmatched, ", ")))
	}

	c := r.Counts
	b.WriteString("## Counts\n\n")
	b.WriteString("| Measure | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total incidents | %d |\n", c.TotalIncidents)
	fmt.Fprintf(&b, "| Total consequences | %d |\n", c.TotalConsequences)
	fmt.Fprintf(&b, "| Matched incidents | %d |\n", c.MatchedIncidents)
	fmt.Fprintf(&b, "| Unmatched incidents | %d |\n", c.UnmatchedIncidents)
	fmt.Fprintf(&b, "| Duplicate-excluded incidents | %d |\n", c.DuplicateExcludedIncidents)
	fmt.Fprintf(&b, "| Joined records | %d |\n", c.JoinedRecords)
	fmt.Fprintf(&b, "| Join success rate | %s (gate %.0f%%) |\n\n", rate(r.JoinSuccessRate), r.JoinThreshold*100)

	if total := r.ExclusionCounts.Total(); total > 0 {
		b.WriteString("## Exclusions\n\n")
		b.WriteString("| Reason | Rows |\n|---|---|\n")
		for _, reason := range intake.ExclusionReasons() {
			if n := r.ExclusionCounts.Of(reason); n > 0 {
				fmt.Fprintf(&b, "| %s | %d |\n", reason, n)
			}
		}
		b.WriteString("\n| Row | Reason | Stage | Field | Value |\n|---|---|---|---|---|\n")
		for i, e := range r.Exclusions {
			if i == maxExclusionRows {
				fmt.Fprintf(&b, "\n%d more exclusions are listed in the JSON report.\n", len(r.Exclusions)-i)
				break
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", e.Ref, e.Reason, e.Stage, e.Field, cell(e.Value))
		}
		b.WriteString("\n")
	}

	if !r.Halted() {
		m := r.Minutes
		b.WriteString("## Instructional minutes lost\n\n")
		fmt.Fprintf(&b, "Total: **%d** minutes (%d explicit, %d date-derived)\n\n", m.TotalMinutes, m.Explicit, m.DateDerived)
		if s := m.Summary; s != nil {
			fmt.Fprintf(&b, "Per record: mean %.2f, median %.2f, p90 %.2f, max %.0f\n\n", s.Mean, s.Median, s.P90, s.Max)
		}
		if len(m.ByConsequenceType) > 0 {
			b.WriteString("| Consequence type | Records | Minutes |\n|---|---|---|\n")
			for _, t := range m.ByConsequenceType {
				fmt.Fprintf(&b, "| %s | %d | %d |\n", t.Type, t.Records, t.Minutes)
			}
			b.WriteString("\n")
		}
		if n := len(m.IgnoredExplicitMinutes); n > 0 {
			fmt.Fprintf(&b, "%d explicit-minutes values were not whole numbers and were ignored.\n\n", n)
		}
	}

	b.WriteString("## Assumptions\n\n")
	for _, a := range r.Assumptions {
		fmt.Fprintf(&b, "- %s\n", a)
	}
	if len(r.Transformations) > 0 {
		fmt.Fprintf(&b, "\n%d values were normalized on load (see the JSON report for each change).\n", len(r.Transformations))
	}
	return b.Bytes()
}

// HTML renders the markdown form as a standalone page
func HTML(run *ports.StoredRun) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: fmt.Sprintf("Intake readiness %s", run.ID),
	})
	return markdown.ToHTML(Markdown(run), p, renderer)
}

func rate(r *float64) string {
	if r == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *r*100)
}

var mdEscaper = strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`, "`", "'", "\n", " ")

func escape(s string) string { return mdEscaper.Replace(s) }

func cell(s string) string {
	if s == "" {
		return "-"
	}
	return escape(s)
}
