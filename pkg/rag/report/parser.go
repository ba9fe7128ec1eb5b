package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const sectionCount = 6

// Section indexes, in the order the report prompt asks for them.
const (
	secClassification = iota
	secViolations
	secArticles
	secPenalties
	secRoadmap
	secRecommendations
)

var sectionKeywords = [sectionCount]string{
	`RISK|CLASSIFICATION`,
	`VIOLATION|CONCERN`,
	`ARTICLE`,
	`PENALT|FINE`,
	`ROADMAP|ACTION|PLAN`,
	`RECOMMENDATION|TECHNICAL|MEASURE`,
}

// markerPattern lists the accepted spellings of one section heading, most
// specific first.
type markerPattern []*regexp.Regexp

var sectionMarkers = buildMarkers()

func buildMarkers() [sectionCount]markerPattern {
	var out [sectionCount]markerPattern
	for i, kw := range sectionKeywords {
		n := i + 1
		out[i] = markerPattern{
			// "## 1. Risk classification"
			regexp.MustCompile(fmt.Sprintf(
				`(?im)^[ \t]*#{1,6}[ \t]*(?:section[ \t]+)?%d[.):]?[ \t]+[^\n]*?(?:%s)[^\n]*$`, n, kw)),
			// "**1. Risk classification**"
			regexp.MustCompile(fmt.Sprintf(
				`(?im)^[ \t]*\*\*[ \t]*(?:section[ \t]+)?%d[.):]?[ \t]+[^\n]*?(?:%s)[^\n]*$`, n, kw)),
			// "1. RISK CLASSIFICATION" on its own line
			regexp.MustCompile(fmt.Sprintf(
				`(?m)^[ \t]*%d[.)][ \t]+[A-Z0-9 &/,()\-]*?(?:%s)[A-Z0-9 &/,()\-]*[ \t]*$`, n, kw)),
		}
	}
	return out
}

var (
	riskLabelRe = regexp.MustCompile(
		`(?i)risk[ \t]*level[\s*_:\-\[]*(PROHIBITED|HIGH[\s_\-]?RISK|LIMITED|MINIMAL)\b`)
	riskTokenRe = regexp.MustCompile(
		`(?i)\b(PROHIBITED|HIGH[\s_\-]RISK|LIMITED|MINIMAL)\b`)
	confidenceNumRe = regexp.MustCompile(
		`(?i)confidence(?:[ \t]+(?:level|score))?[\s*_:\-]*([0-9]+(?:\.[0-9]+)?|\.[0-9]+)[ \t]*(%)?`)
	confidenceWordRe = regexp.MustCompile(
		`(?i)confidence(?:[ \t]+(?:level|score))?[\s*_:\-]*(very[ \t]+high|high|medium|moderate|low)\b`)
	rationaleRe = regexp.MustCompile(`(?is)rationale[\s*_:\-]*(.*)$`)
	negationRe  = regexp.MustCompile(`(?i)\b(?:not|no|never|nor|neither|isn't|isn’t|aren't|cannot|rather than|instead of)\b`)
	clauseRe    = regexp.MustCompile(`(?i)[.;:!?,\n]|\bbut\b`)
	labelLineRe = regexp.MustCompile(`(?i)^\W*(risk[ \t]*level|confidence)\b`)
	bulletRe    = regexp.MustCompile(`^[ \t]*(?:[-*•+]|\d+[.)])[ \t]+(.*)$`)
	subHeadRe   = regexp.MustCompile(`^[ \t]*#{3,6}[ \t]+(.*)$`)
	noneItemRe  = regexp.MustCompile(`(?i)^(none|no (?:violations?|concerns?)|n/a)\b`)
)

type section struct {
	found      bool
	markStart  int
	start, end int // body bounds in the raw text
}

// Parse extracts a StructuredReport from the model's free text. It fails with
// ErrReportParse only when no risk level token exists; any missing section is
// left empty.
func Parse(raw string) (*StructuredReport, error) {
	sections := locateSections(raw)
	body := func(i int) string {
		if !sections[i].found {
			return ""
		}
		return raw[sections[i].start:sections[i].end]
	}

	// Scope used for classification fields: section 1 when present, else the
	// text ahead of the first heading found (the whole text when there is none).
	classScope := body(secClassification)
	if !sections[secClassification].found {
		classScope = raw[:preambleEnd(raw, sections)]
	}

	level, ok := findRiskLevel(raw, classScope)
	if !ok {
		return nil, ErrReportParse
	}

	r := &StructuredReport{
		RiskLevel:  level,
		Confidence: findConfidence(classScope),
		Rationale:  findRationale(classScope, sections[secClassification].found),
	}

	for _, item := range listItems(body(secViolations)) {
		if noneItemRe.MatchString(item) {
			continue
		}
		v := Violation{Description: item}
		if refs := ExtractArticleRefs(item); len(refs) > 0 {
			v.ArticleRef = refs[0]
		}
		r.Violations = append(r.Violations, v)
	}

	r.ApplicableArticles = ExtractArticleRefs(body(secArticles))
	r.Penalties = cleanBlock(body(secPenalties))
	r.Roadmap = listItems(body(secRoadmap))
	r.Recommendations = listItems(body(secRecommendations))

	return r, nil
}

// locateSections finds the six markers in order; each search starts after the
// previous marker that was found, so numbered list items inside earlier
// sections cannot be mistaken for later headings.
func locateSections(raw string) [sectionCount]section {
	var out [sectionCount]section
	type hit struct{ idx, markStart, markEnd int }
	var hits []hit

	cursor := 0
	for i, m := range sectionMarkers {
		loc := firstMatch(raw[cursor:], m)
		if loc == nil {
			continue
		}
		hits = append(hits, hit{idx: i, markStart: cursor + loc[0], markEnd: cursor + loc[1]})
		cursor += loc[1]
	}

	for k, h := range hits {
		end := len(raw)
		if k+1 < len(hits) {
			end = hits[k+1].markStart
		}
		out[h.idx] = section{found: true, markStart: h.markStart, start: h.markEnd, end: end}
	}
	return out
}

func preambleEnd(raw string, sections [sectionCount]section) int {
	for _, s := range sections {
		if s.found {
			return s.markStart
		}
	}
	return len(raw)
}

// firstMatch returns the match of the most specific pattern that matches at all.
func firstMatch(s string, patterns markerPattern) []int {
	for _, re := range patterns {
		if loc := re.FindStringIndex(s); loc != nil {
			return loc
		}
	}
	return nil
}

func findRiskLevel(raw, scope string) (RiskLevel, bool) {
	if m := riskLabelRe.FindStringSubmatch(raw); m != nil {
		return normaliseRisk(m[1]), true
	}
	if level, ok := assertedRisk(scope); ok {
		return level, true
	}
	return assertedRisk(raw)
}

// assertedRisk returns the first risk token not negated within its clause, so
// "not prohibited; it is HIGH-RISK" reads as HIGH-RISK. A text holding only
// negated tokens names no level.
func assertedRisk(text string) (RiskLevel, bool) {
	for _, m := range riskTokenRe.FindAllStringSubmatchIndex(text, -1) {
		if negated(text[:m[0]]) {
			continue
		}
		return normaliseRisk(text[m[2]:m[3]]), true
	}
	return RiskUnknown, false
}

// negated looks at the few words of the current clause ahead of a token.
func negated(before string) bool {
	if len(before) > 60 {
		before = before[len(before)-60:]
	}
	if breaks := clauseRe.FindAllStringIndex(before, -1); len(breaks) > 0 {
		before = before[breaks[len(breaks)-1][1]:]
	}
	return negationRe.MatchString(before)
}

func normaliseRisk(token string) RiskLevel {
	t := strings.ToUpper(token)
	switch {
	case strings.HasPrefix(t, "PROHIBITED"):
		return RiskProhibited
	case strings.HasPrefix(t, "HIGH"):
		return RiskHigh
	case strings.HasPrefix(t, "LIMITED"):
		return RiskLimited
	case strings.HasPrefix(t, "MINIMAL"):
		return RiskMinimal
	}
	return RiskUnknown
}

func findConfidence(scope string) *float64 {
	if m := confidenceNumRe.FindStringSubmatch(scope); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			if m[2] == "%" || v > 1 {
				v /= 100
			}
			if v >= 0 && v <= 1 {
				return &v
			}
		}
	}
	if m := confidenceWordRe.FindStringSubmatch(scope); m != nil {
		var v float64
		switch w := strings.ToLower(strings.Join(strings.Fields(m[1]), " ")); w {
		case "very high":
			v = 0.95
		case "high":
			v = 0.9
		case "medium", "moderate":
			v = 0.6
		default:
			v = 0.3
		}
		return &v
	}
	return nil
}

func findRationale(scope string, sectionFound bool) string {
	if m := rationaleRe.FindStringSubmatch(scope); m != nil {
		return cleanBlock(m[1])
	}
	if !sectionFound {
		return ""
	}
	var kept []string
	for _, line := range strings.Split(scope, "\n") {
		if labelLineRe.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return cleanBlock(strings.Join(kept, "\n"))
}

// listItems splits a section body into items. Bullets, numbered lines and
// sub-headings open a new item; following plain lines continue it.
func listItems(body string) []string {
	var (
		items   []string
		current []string
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		item := cleanInline(strings.Join(current, " "))
		if item != "" {
			items = append(items, item)
		}
		current = nil
	}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "" || isRule(trimmed):
			flush()
		case bulletRe.MatchString(line):
			flush()
			current = append(current, bulletRe.FindStringSubmatch(line)[1])
		case subHeadRe.MatchString(line):
			flush()
			current = append(current, subHeadRe.FindStringSubmatch(line)[1])
		default:
			current = append(current, trimmed)
		}
	}
	flush()
	return items
}

func isRule(s string) bool {
	return strings.Trim(s, "-=*_ ") == "" && len(s) >= 3
}

func cleanInline(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	return strings.Join(strings.Fields(s), " ")
}

func cleanBlock(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if isRule(strings.TrimSpace(l)) {
			continue
		}
		out = append(out, strings.TrimRight(strings.ReplaceAll(l, "**", ""), " \t"))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
