package prompt

import (
	"fmt"
	"sort"
	"strings"

	"ai-act-advisor-be/pkg/rag/index"
	"ai-act-advisor-be/pkg/rag/schema"
	"ai-act-advisor-be/pkg/store"
)

const (
	passageRunes        = 600
	questionHistorySize = 6
)

// Builder assembles every prompt the interview sends to the model. It holds
// no per-session state; each method depends only on its arguments.
type Builder struct {
	schema       schema.Schema
	threshold    float64
	maxQuestions int
}

// NewBuilder creates a prompt builder over the given schema
func NewBuilder(s schema.Schema, threshold float64, maxQuestions int) Builder {
	return Builder{schema: s, threshold: threshold, maxQuestions: maxQuestions}
}

func (b Builder) Schema() schema.Schema {
	return b.schema
}

// NextTopic returns the topic the next question must address. When every
// topic is covered it falls back to the last one so callers always get a
// topic from the schema.
func (b Builder) NextTopic(session *store.Session) schema.Topic {
	if t, ok := b.schema.NextUncovered(session.CollectedFields, b.threshold); ok {
		return t
	}
	return b.schema.Last()
}

// QuestionPrompt asks for one question about the next uncovered topic.
func (b Builder) QuestionPrompt(session *store.Session, retrieval index.Result) string {
	topic := b.NextTopic(session)
	var prompt strings.Builder

	writeRole(&prompt)
	writePassages(&prompt, retrieval)
	writeDescription(&prompt, session)
	writeHistory(&prompt, session.Turns, questionHistorySize)
	b.writeFacts(&prompt, session)

	prompt.WriteString("<progress>\n")
	fmt.Fprintf(&prompt, "Questions asked: %d/%d\n", session.QuestionsAsked, b.maxQuestions)
	fmt.Fprintf(&prompt, "Topics covered: %d/%d\n", b.schema.CoveredCount(session.CollectedFields, b.threshold), b.schema.Len())
	prompt.WriteString("</progress>\n\n")

	prompt.WriteString("<task>\n")
	fmt.Fprintf(&prompt, "Ask exactly ONE question about the topic \"%s\".\n", topic.Title)
	prompt.WriteString("The answer must let us fill these missing facts:\n")
	for _, f := range topic.Fields {
		if schema.IsSet(session.CollectedFields, f) {
			continue
		}
		fmt.Fprintf(&prompt, "- %s: %s\n", f, schema.Describe(f))
	}
	prompt.WriteString("</task>\n\n")

	prompt.WriteString("<guidelines>\n")
	prompt.WriteString("1. Ask only about this topic; never introduce another subject\n")
	prompt.WriteString("2. Do not repeat a question already present in the interview history\n")
	prompt.WriteString("3. Be specific and technical, one or two sentences\n")
	prompt.WriteString("4. Use the reference passages to focus on what matters legally\n")
	prompt.WriteString("5. Output the question text only, without numbering, preamble or JSON\n")
	prompt.WriteString("</guidelines>\n\n")

	prompt.WriteString("Now write the next question:")
	return prompt.String()
}

// ClassificationPrompt asks for the final six-section assessment.
func (b Builder) ClassificationPrompt(session *store.Session, retrieval index.Result) string {
	var prompt strings.Builder

	prompt.WriteString("<role>\n")
	prompt.WriteString("You are an EU AI Act compliance expert writing the FINAL ASSESSMENT REPORT.\n")
	prompt.WriteString("</role>\n\n")

	writePassages(&prompt, retrieval)
	writeDescription(&prompt, session)
	b.writeFacts(&prompt, session)
	writeHistory(&prompt, session.Turns, 0)

	if len(session.Alerts) > 0 {
		prompt.WriteString("<prescreen_alerts>\n")
		for _, a := range session.Alerts {
			fmt.Fprintf(&prompt, "- %s (%s, %s): %s\n", a.Practice, a.Article, a.Severity, a.Evidence)
		}
		prompt.WriteString("Verify each alert against the facts; classify PROHIBITED only if the practice is confirmed.\n")
		prompt.WriteString("</prescreen_alerts>\n\n")
	}

	prompt.WriteString("<citation_rules>\n")
	prompt.WriteString("1. Article 5 (prohibited practices): cite ONLY if the system explicitly matches a prohibited practice\n")
	prompt.WriteString("2. Annex III (high-risk): cite ONLY if the system is used in a listed high-risk context\n")
	prompt.WriteString("3. Article 50 (transparency): cite for systems interacting directly with people\n")
	prompt.WriteString("4. Cite only articles supported by the reference passages or the interview facts\n")
	prompt.WriteString("</citation_rules>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString(reportFormat)
	prompt.WriteString("</output_format>\n\n")

	prompt.WriteString("Now write the complete report using exactly these six numbered sections:")
	return prompt.String()
}

const reportFormat = `# AI ACT COMPLIANCE ASSESSMENT

## 1. RISK CLASSIFICATION
**Risk Level:** [PROHIBITED / HIGH-RISK / LIMITED / MINIMAL]
**Confidence:** [a number between 0 and 1]
**Rationale:** why this classification applies

## 2. IDENTIFIED VIOLATIONS & CONCERNS
- one item per violation, starting with its article reference

## 3. APPLICABLE ARTICLES
- one article per line, e.g. Article 10(2)

## 4. PENALTIES
applicable fines under Article 99

## 5. COMPLIANCE ROADMAP
1. prioritised actions

## 6. TECHNICAL RECOMMENDATIONS
1. concrete technical measures
`

// CorrectiveInstruction is appended to the classification prompt after a
// response that could not be parsed.
func (b Builder) CorrectiveInstruction() string {
	return "\n\n<correction>\n" +
		"Your previous answer could not be processed. Reply again following the output format exactly.\n" +
		"The first section MUST contain a line \"Risk Level: X\" where X is one of PROHIBITED, HIGH-RISK, LIMITED, MINIMAL.\n" +
		"Keep the six numbered section headings.\n" +
		"</correction>"
}

// ExtractionPrompt asks the model to pull still-unset schema fields out of
// one user utterance as a flat JSON object.
func (b Builder) ExtractionPrompt(session *store.Session, utterance string) string {
	missing := b.schema.Missing(session.CollectedFields)
	var prompt strings.Builder

	prompt.WriteString("<task>\n")
	prompt.WriteString("Extract facts about an AI system from the user's message.\n")
	prompt.WriteString("</task>\n\n")

	if q := session.LastAssistant(1); len(q) > 0 {
		prompt.WriteString("<question_asked>\n")
		prompt.WriteString(q[0])
		prompt.WriteString("\n</question_asked>\n\n")
	}

	prompt.WriteString("<user_message>\n")
	prompt.WriteString(utterance)
	prompt.WriteString("\n</user_message>\n\n")

	prompt.WriteString("<fields>\n")
	for _, f := range missing {
		fmt.Fprintf(&prompt, "- %s: %s\n", f, schema.Describe(f))
	}
	prompt.WriteString("</fields>\n\n")

	prompt.WriteString("<rules>\n")
	prompt.WriteString("1. Respond with a single JSON object and nothing else\n")
	prompt.WriteString("2. Use only the field names listed above as keys\n")
	prompt.WriteString("3. Values are short plain-text summaries of what the user actually said\n")
	prompt.WriteString("4. Omit any field the message does not answer; never guess\n")
	prompt.WriteString("5. Respond with {} if nothing applies\n")
	prompt.WriteString("</rules>\n\n")

	prompt.WriteString("JSON:")
	return prompt.String()
}

func writeRole(prompt *strings.Builder) {
	prompt.WriteString("<role>\n")
	prompt.WriteString("You are an EU AI Act compliance analyst conducting a structured interview.\n")
	prompt.WriteString("Risk tiers: PROHIBITED (Article 5), HIGH-RISK (Article 6 and Annex III), ")
	prompt.WriteString("LIMITED (transparency duties, Article 50), MINIMAL (no specific obligations).\n")
	prompt.WriteString("</role>\n\n")
}

func writePassages(prompt *strings.Builder, retrieval index.Result) {
	if len(retrieval) == 0 {
		return
	}
	prompt.WriteString("<reference_passages>\n")
	for i, h := range retrieval {
		label := "passage"
		if len(h.Articles) > 0 {
			label = strings.Join(h.Articles, ", ")
		}
		fmt.Fprintf(prompt, "[%d] (%s, relevance %.2f)\n%s\n\n", i+1, label, h.Score, truncate(h.Text, passageRunes))
	}
	prompt.WriteString("</reference_passages>\n\n")
}

func writeDescription(prompt *strings.Builder, session *store.Session) {
	desc := Description(session)
	if desc == "" {
		return
	}
	prompt.WriteString("<system_description>\n")
	prompt.WriteString(desc)
	prompt.WriteString("\n</system_description>\n\n")
}

// writeHistory renders the last n turns, or all of them when n <= 0.
func writeHistory(prompt *strings.Builder, turns []store.Turn, n int) {
	if len(turns) == 0 {
		return
	}
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	prompt.WriteString("<interview_history>\n")
	for _, t := range turns {
		role := "User"
		if t.Role == "assistant" {
			role = "Advisor"
		}
		fmt.Fprintf(prompt, "%s: %s\n", role, t.Content)
	}
	prompt.WriteString("</interview_history>\n\n")
}

func (b Builder) writeFacts(prompt *strings.Builder, session *store.Session) {
	if len(session.CollectedFields) == 0 {
		return
	}
	prompt.WriteString("<collected_facts>\n")
	keys := make([]string, 0, len(session.CollectedFields))
	for k := range session.CollectedFields {
		keys = append(keys, k)
	}
	// Schema fields first in schema order, anything else alphabetically after.
	order := make(map[string]int)
	for i, f := range b.schema.Fields() {
		order[f] = i + 1
	}
	sort.Slice(keys, func(i, j int) bool {
		oi, oj := order[keys[i]], order[keys[j]]
		if oi != oj && oi != 0 && oj != 0 {
			return oi < oj
		}
		if (oi == 0) != (oj == 0) {
			return oi != 0
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		if !schema.IsSet(session.CollectedFields, k) {
			continue
		}
		fmt.Fprintf(prompt, "- %s: %s\n", k, session.CollectedFields[k])
	}
	prompt.WriteString("</collected_facts>\n\n")
}

// Description is the user's first message, which describes the system.
func Description(session *store.Session) string {
	for _, t := range session.Turns {
		if t.Role == "user" {
			return t.Content
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
