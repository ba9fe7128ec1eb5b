package schema

import "strings"

// Topic is one information category the interview must cover before a
// classification is attempted.
type Topic struct {
	Key      string   // snake_case identifier
	Title    string   // human label used in prompts and progress
	Fields   []string // required keys in Session.CollectedFields
	Question string   // scripted question used when generation is rejected
	Hint     string   // retrieval query steering passages towards this topic
}

// Field descriptions are fed to the extraction prompt so the model knows what
// each key means.
var fieldDescriptions = map[string]string{
	"intended_purpose":      "what the system is for and the decision or task it supports",
	"system_outputs":        "what the system produces (scores, classifications, recommendations, content)",
	"deployers":             "who operates the system (company type, public authority, sector)",
	"affected_persons":      "who is affected by the outputs (employees, applicants, citizens, children)",
	"deployment_context":    "where and in which EU member states the system is used",
	"data_categories":       "kinds of input data processed (personal, biometric, behavioural, financial)",
	"special_category_data": "whether sensitive data (health, ethnicity, religion, biometrics) is processed",
	"autonomy_level":        "fully automated, human-in-the-loop or advisory only",
	"decision_impact":       "consequences of a wrong output for the affected person",
	"human_oversight":       "how humans can monitor, override or stop the system",
	"safeguards":            "bias testing, accuracy monitoring, logging and documentation in place",
	"techniques":            "AI techniques used (machine learning, deep learning, rules, LLMs, biometrics)",
}

var defaultTopics = []Topic{
	{
		Key:      "purpose",
		Title:    "Purpose",
		Fields:   []string{"intended_purpose", "system_outputs"},
		Question: "What is the intended purpose of your AI system, and what outputs does it produce?",
		Hint:     "intended purpose of the AI system, high-risk use cases Annex III",
	},
	{
		Key:      "users_context",
		Title:    "Users and context",
		Fields:   []string{"deployers", "affected_persons", "deployment_context"},
		Question: "Who deploys the system, who is affected by its outputs, and in which EU member states will it be used?",
		Hint:     "obligations of deployers, affected persons, placing on the market in the Union",
	},
	{
		Key:      "data_categories",
		Title:    "Data categories",
		Fields:   []string{"data_categories", "special_category_data"},
		Question: "What specific types of personal data does your AI system process, including any biometric or sensitive data?",
		Hint:     "data and data governance, training validation and testing data sets, special categories of personal data",
	},
	{
		Key:      "autonomy",
		Title:    "Autonomy level",
		Fields:   []string{"autonomy_level", "decision_impact"},
		Question: "Is the decision-making process fully automated or human-reviewed, and what are the consequences of an incorrect decision?",
		Hint:     "automated decision-making, significant harm to health safety or fundamental rights",
	},
	{
		Key:      "oversight",
		Title:    "Oversight and safeguards",
		Fields:   []string{"human_oversight", "safeguards"},
		Question: "What human oversight exists, and what measures ensure accuracy and prevent bias?",
		Hint:     "human oversight, accuracy robustness and cybersecurity, record-keeping, risk management system",
	},
	{
		Key:      "techniques",
		Title:    "Techniques",
		Fields:   []string{"techniques"},
		Question: "Which AI techniques does the system use (for example machine learning models, large language models, biometric recognition)?",
		Hint:     "definition of AI system, general-purpose AI models, biometric identification techniques",
	},
}

type Schema struct {
	topics []Topic
}

// Default returns the six-topic interview schema.
func Default() Schema {
	return New(defaultTopics)
}

func New(topics []Topic) Schema {
	return Schema{topics: append([]Topic(nil), topics...)}
}

// Topics returns the topics in interview order.
func (s Schema) Topics() []Topic {
	return append([]Topic(nil), s.topics...)
}

// Fields returns every required field in schema order.
func (s Schema) Fields() []string {
	var out []string
	for _, t := range s.topics {
		out = append(out, t.Fields...)
	}
	return out
}

// Describe returns the extraction hint for a field, or "" for unknown keys.
func Describe(field string) string {
	return fieldDescriptions[field]
}

// Has reports whether field belongs to the schema.
func (s Schema) Has(field string) bool {
	for _, t := range s.topics {
		for _, f := range t.Fields {
			if f == field {
				return true
			}
		}
	}
	return false
}

// Missing returns the schema fields with no value yet, in schema order.
func (s Schema) Missing(fields map[string]string) []string {
	var out []string
	for _, f := range s.Fields() {
		if !IsSet(fields, f) {
			out = append(out, f)
		}
	}
	return out
}

// Coverage is the fraction of the topic's fields that hold a value.
func (t Topic) Coverage(fields map[string]string) float64 {
	if len(t.Fields) == 0 {
		return 1
	}
	set := 0
	for _, f := range t.Fields {
		if IsSet(fields, f) {
			set++
		}
	}
	return float64(set) / float64(len(t.Fields))
}

// Covered reports whether the topic reaches threshold. A threshold outside
// (0,1] is treated as 1.
func (t Topic) Covered(fields map[string]string, threshold float64) bool {
	return t.Coverage(fields) >= normalise(threshold)
}

// NextUncovered returns the first topic in schema order that is not covered.
func (s Schema) NextUncovered(fields map[string]string, threshold float64) (Topic, bool) {
	for _, t := range s.topics {
		if !t.Covered(fields, threshold) {
			return t, true
		}
	}
	return Topic{}, false
}

// Complete reports whether every topic is covered.
func (s Schema) Complete(fields map[string]string, threshold float64) bool {
	_, ok := s.NextUncovered(fields, threshold)
	return !ok
}

// CoveredCount counts topics that reach threshold.
func (s Schema) CoveredCount(fields map[string]string, threshold float64) int {
	n := 0
	for _, t := range s.topics {
		if t.Covered(fields, threshold) {
			n++
		}
	}
	return n
}

// Last returns the final topic, used when every topic is already covered.
func (s Schema) Last() Topic {
	if len(s.topics) == 0 {
		return Topic{}
	}
	return s.topics[len(s.topics)-1]
}

func (s Schema) Len() int {
	return len(s.topics)
}

// IsSet reports whether fields holds a non-blank value for key.
func IsSet(fields map[string]string, key string) bool {
	return strings.TrimSpace(fields[key]) != ""
}

func normalise(threshold float64) float64 {
	if threshold <= 0 || threshold > 1 {
		return 1
	}
	return threshold
}
