// Package screen flags descriptions that match practices prohibited outright
// by Article 5, before any question is asked.
package screen

import (
	"sort"
	"strings"
)

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
)

// Finding is a keyword-level suspicion, not a legal conclusion.
type Finding struct {
	Practice   string              `json:"practice"`
	Article    string              `json:"article"`
	Severity   Severity            `json:"severity"`
	Evidence   string              `json:"evidence"`
	Criteria   string              `json:"criteria"`
	Indicators map[string][]string `json:"indicators,omitempty"`
}

var (
	realtimePhrases = []string{
		"real-time identification", "real time identification",
		"real-time recognition", "real time recognition",
		"real-time biometric", "real time biometric",
		"live identification", "live recognition", "live biometric",
		"continuous surveillance", "continuous identification",
		"continuous tracking", "continuous biometric",
		"ongoing surveillance", "ongoing identification",
	}
	realtimeWords  = []string{"real-time", "real time", "live"}
	biometricTerms = []string{
		"facial recognition", "face recognition", "biometric identification",
		"biometric", "face id", "facial id",
	}
	publicTerms = []string{
		"public space", "publicly accessible", "public area", "street",
		"transport hub", "shopping center", "urban space", "crowd",
	}
	technicalMonitoring = []string{
		"continuous monitoring", "dashboard", "audit", "metric",
		"weekly", "quarterly", "logging", "performance monitoring",
		"drift detection", "accuracy monitoring",
	}
	surveillanceContext = []string{"surveillance", "tracking", "identification", "general public"}

	sensitiveAttributes = []string{
		"race", "ethnicity", "ethnic", "political opinion", "religious belief",
		"sexual orientation", "philosophical belief",
	}
	inferenceTerms   = []string{"infer", "deduce", "predict", "categorize", "categorise", "classify"}
	complianceEscape = []string{
		"balanced across", "balance across", "balanced for",
		"no demographic classification", "excluded scope",
		"does not infer", "does not classify", "does not categorize",
		"no inference", "no classification", "no categorization",
		"prevent bias", "avoid bias", "mitigate bias",
		"diversity in training", "representative dataset",
	}

	socialScoring = []string{
		"social scoring", "social credit", "trustworthiness score",
		"citizen score", "social ranking", "reputation score",
	}
	authorities = []string{"government", "public authority", "state", "municipality", "agency"}

	manipulation = []string{
		"subliminal", "subconscious", "manipulate behavior", "manipulative technique",
		"exploit psychological",
	}
	vulnerabilityExploit = []string{
		"exploit vulnerability", "exploit disabilities", "exploit age",
		"target vulnerable", "exploit economic situation",
	}

	predictivePolicing = []string{"predictive policing", "crime prediction", "risk assessment", "recidivism prediction"}
	profiling          = []string{"profiling", "personality trait", "behavioral pattern", "individual characteristic"}
)

// Screen runs the Article 5 heuristics over a free-text system description.
// Findings are ordered CRITICAL first, then by article.
func Screen(description string) []Finding {
	d := strings.ToLower(description)
	var out []Finding

	biometric := matches(d, biometricTerms)

	if f, ok := realtimeBiometric(d, biometric); ok {
		out = append(out, f)
	}

	sensitive := matches(d, sensitiveAttributes)
	inference := matches(d, inferenceTerms)
	if len(biometric) > 0 && len(sensitive) > 0 &&
		(len(inference) > 0 || strings.Contains(d, "attribute")) &&
		len(matches(d, complianceEscape)) == 0 {
		out = append(out, Finding{
			Practice: "Biometric categorisation based on sensitive attributes",
			Article:  "Article 5(1)(e)",
			Severity: SeverityCritical,
			Evidence: "System infers sensitive attributes: " + strings.Join(sensitive, ", "),
			Criteria: "Biometric categorisation to infer race, political opinions, religion or sexual orientation is prohibited",
			Indicators: map[string][]string{
				"sensitive_attributes": sensitive,
				"inference_method":     inference,
			},
		})
	}

	scoring := matches(d, socialScoring)
	if len(scoring) > 0 || (len(matches(d, authorities)) > 0 && strings.Contains(d, "trustworthiness")) {
		out = append(out, Finding{
			Practice:   "Social scoring",
			Article:    "Article 5(1)(c)",
			Severity:   SeverityCritical,
			Evidence:   "System evaluates trustworthiness or social behaviour of persons",
			Criteria:   "Social scoring leading to detrimental or unfavourable treatment is prohibited",
			Indicators: indicators("social_scoring", scoring),
		})
	}

	if m := matches(d, manipulation); len(m) > 0 {
		out = append(out, Finding{
			Practice:   "Subliminal or manipulative techniques",
			Article:    "Article 5(1)(a)",
			Severity:   SeverityCritical,
			Evidence:   "System uses subliminal or manipulative techniques",
			Criteria:   "Techniques beyond a person's consciousness that materially distort behaviour are prohibited",
			Indicators: indicators("manipulation", m),
		})
	}

	if m := matches(d, vulnerabilityExploit); len(m) > 0 {
		out = append(out, Finding{
			Practice:   "Exploitation of vulnerabilities",
			Article:    "Article 5(1)(b)",
			Severity:   SeverityCritical,
			Evidence:   "System exploits vulnerabilities of specific groups",
			Criteria:   "Exploiting vulnerabilities due to age, disability or socio-economic situation is prohibited",
			Indicators: indicators("vulnerability", m),
		})
	}

	predictive := matches(d, predictivePolicing)
	profiled := matches(d, profiling)
	if len(predictive) > 0 && len(profiled) > 0 {
		out = append(out, Finding{
			Practice: "Predictive policing based on profiling",
			Article:  "Article 5(1)(g)",
			Severity: SeverityHigh,
			Evidence: "System predicts criminal behaviour based on profiling",
			Criteria: "Risk assessment of offending based solely on profiling or personality traits is prohibited",
			Indicators: map[string][]string{
				"predictive": predictive,
				"profiling":  profiled,
			},
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i].Severity) < rank(out[j].Severity)
	})
	return out
}

func realtimeBiometric(d string, biometric []string) (Finding, bool) {
	realtime := matches(d, realtimePhrases)
	if len(realtime) == 0 {
		realtime = matches(d, realtimeWords)
	}

	// Continuous model monitoring is not continuous surveillance.
	if len(realtime) > 0 && strings.Contains(d, "continuous") &&
		len(matches(d, technicalMonitoring)) > 0 && len(matches(d, surveillanceContext)) == 0 {
		realtime = nil
	}

	public := matches(d, publicTerms)
	if len(realtime) == 0 || len(biometric) == 0 || len(public) == 0 {
		return Finding{}, false
	}
	return Finding{
		Practice: "Real-time remote biometric identification in public spaces",
		Article:  "Article 5(1)(d)",
		Severity: SeverityCritical,
		Evidence: "System uses real-time biometric identification in publicly accessible spaces",
		Criteria: "Prohibited except for narrowly defined law-enforcement cases with prior judicial authorisation",
		Indicators: map[string][]string{
			"real_time": realtime,
			"biometric": biometric,
			"public":    public,
		},
	}, true
}

// HasCritical reports whether any finding is CRITICAL.
func HasCritical(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

func matches(d string, terms []string) []string {
	var out []string
	for _, t := range terms {
		if strings.Contains(d, t) {
			out = append(out, t)
		}
	}
	return out
}

func indicators(key string, terms []string) map[string][]string {
	if len(terms) == 0 {
		return nil
	}
	return map[string][]string{key: terms}
}

func rank(s Severity) int {
	if s == SeverityCritical {
		return 0
	}
	return 1
}
