// Package report turns the model's final free-text assessment into a StructuredReport.
package report

import (
	"errors"
	"fmt"
	"strings"
)

// ErrReportParse is returned when the text carries no recognisable risk level.
var ErrReportParse = errors.New("report has no recognised risk level")

type RiskLevel string

const (
	RiskProhibited RiskLevel = "PROHIBITED"
	RiskHigh       RiskLevel = "HIGH_RISK"
	RiskLimited    RiskLevel = "LIMITED"
	RiskMinimal    RiskLevel = "MINIMAL"
	RiskUnknown    RiskLevel = "UNKNOWN"
)

// Label is the human-facing spelling used in rendered reports.
func (r RiskLevel) Label() string {
	switch r {
	case RiskHigh:
		return "HIGH-RISK"
	case RiskLimited:
		return "LIMITED RISK"
	case RiskMinimal:
		return "MINIMAL RISK"
	case "":
		return string(RiskUnknown)
	default:
		return string(r)
	}
}

type Violation struct {
	ArticleRef  string `json:"article_ref"`
	Description string `json:"description"`
}

type StructuredReport struct {
	RiskLevel          RiskLevel   `json:"risk_level"`
	Confidence         *float64    `json:"confidence,omitempty"`
	Rationale          string      `json:"rationale"`
	Violations         []Violation `json:"violations"`
	ApplicableArticles []string    `json:"applicable_articles"`
	Penalties          string      `json:"penalties"`
	Roadmap            []string    `json:"roadmap"`
	Recommendations    []string    `json:"recommendations"`

	// Degraded is set when classification failed and the report is a fallback.
	Degraded bool `json:"degraded"`
}

// Degraded builds the fallback report kept when classification cannot be parsed.
// The raw text is preserved so nothing the model said is hidden.
func Degraded(raw string) *StructuredReport {
	return &StructuredReport{
		RiskLevel: RiskUnknown,
		Rationale: strings.TrimSpace(raw),
		Degraded:  true,
	}
}

// Clone returns a deep copy.
func (r *StructuredReport) Clone() *StructuredReport {
	if r == nil {
		return nil
	}
	c := *r
	if r.Confidence != nil {
		v := *r.Confidence
		c.Confidence = &v
	}
	c.Violations = append([]Violation(nil), r.Violations...)
	c.ApplicableArticles = append([]string(nil), r.ApplicableArticles...)
	c.Roadmap = append([]string(nil), r.Roadmap...)
	c.Recommendations = append([]string(nil), r.Recommendations...)
	return &c
}

// Render produces the markdown shown to the user as the final assistant message.
func Render(r *StructuredReport) string {
	var b strings.Builder

	b.WriteString("# AI ACT COMPLIANCE ASSESSMENT\n\n")
	if r.Degraded {
		b.WriteString("> Automated classification could not be completed. Legal review required.\n\n")
	}

	b.WriteString("## 1. RISK CLASSIFICATION\n")
	fmt.Fprintf(&b, "**Risk Level:** %s\n", r.RiskLevel.Label())
	if r.Confidence != nil {
		fmt.Fprintf(&b, "**Confidence:** %.2f\n", *r.Confidence)
	}
	if r.Rationale != "" {
		fmt.Fprintf(&b, "**Rationale:** %s\n", r.Rationale)
	}

	b.WriteString("\n## 2. IDENTIFIED VIOLATIONS & CONCERNS\n")
	if len(r.Violations) == 0 {
		b.WriteString("None identified.\n")
	}
	for _, v := range r.Violations {
		if v.ArticleRef != "" && !strings.Contains(v.Description, v.ArticleRef) {
			fmt.Fprintf(&b, "- %s: %s\n", v.ArticleRef, v.Description)
		} else {
			fmt.Fprintf(&b, "- %s\n", v.Description)
		}
	}

	b.WriteString("\n## 3. APPLICABLE ARTICLES\n")
	for _, a := range r.ApplicableArticles {
		fmt.Fprintf(&b, "- %s\n", a)
	}

	b.WriteString("\n## 4. PENALTIES (Article 99)\n")
	if r.Penalties != "" {
		b.WriteString(r.Penalties)
		b.WriteString("\n")
	}

	b.WriteString("\n## 5. COMPLIANCE ROADMAP\n")
	writeNumbered(&b, r.Roadmap)

	b.WriteString("\n## 6. TECHNICAL RECOMMENDATIONS\n")
	writeNumbered(&b, r.Recommendations)

	return b.String()
}

func writeNumbered(b *strings.Builder, items []string) {
	for i, item := range items {
		fmt.Fprintf(b, "%d. %s\n", i+1, item)
	}
}
