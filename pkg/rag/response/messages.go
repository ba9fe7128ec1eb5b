package response

import (
	"fmt"
	"strings"

	"ai-act-advisor-be/pkg/rag/screen"
)

// Opening is the first assistant message of every session.
func Opening(maxQuestions int) string {
	var b strings.Builder
	b.WriteString("Welcome to the AI Act compliance advisor.\n\n")
	b.WriteString("Describe the AI system you want assessed: what it does, who uses it, what data it processes ")
	b.WriteString("and how its outputs are used. ")
	fmt.Fprintf(&b, "I will ask up to %d follow-up questions and then produce a risk classification with a compliance report.\n\n", maxQuestions)
	b.WriteString("Type 'reset' at any time to start over.")
	return b.String()
}

// Question prefixes a generated question with its position, e.g. "[Q3/15] ...".
func Question(n, maxQuestions int, question string) string {
	return fmt.Sprintf("[Q%d/%d] %s", n, maxQuestions, strings.TrimSpace(question))
}

// Alerts renders prescreen findings shown ahead of the first question.
// An empty slice renders the all-clear notice.
func Alerts(findings []screen.Finding) string {
	if len(findings) == 0 {
		return "No obvious Article 5 prohibited practice detected in the description. Proceeding with the detailed assessment."
	}

	var b strings.Builder
	writeFindings(&b, findings)
	b.WriteString("The interview continues, but these indicators will weigh on the final classification. ")
	b.WriteString("Consult legal counsel before deploying this system.")
	return b.String()
}

func writeFindings(b *strings.Builder, findings []screen.Finding) {
	fmt.Fprintf(b, "WARNING: %d possible Article 5 prohibited practice(s) detected:\n", len(findings))
	for _, f := range findings {
		fmt.Fprintf(b, "- %s (%s, severity %s): %s\n", f.Practice, f.Article, f.Severity, f.Evidence)
	}
}

// ConfirmProhibited stops the interview on a CRITICAL finding until the user
// decides whether to go on.
func ConfirmProhibited(findings []screen.Finding) string {
	var b strings.Builder
	writeFindings(&b, findings)
	b.WriteString("\nPractices listed in Article 5 are banned outright, whatever the answers to further questions.\n\n")
	b.WriteString(confirmQuestion)
	return b.String()
}

// ConfirmAgain repeats the choice after an unclear reply.
func ConfirmAgain() string {
	return "I did not understand your reply. " + confirmQuestion
}

const confirmQuestion = "Continue the detailed assessment anyway? Reply 'yes' to continue or 'no' to close the assessment with the prohibited-system report."

// WithAlerts joins the alert block and the first question.
func WithAlerts(findings []screen.Finding, message string) string {
	return Alerts(findings) + "\n\n" + message
}

// Done is shown when a finished session receives another message.
func Done() string {
	return "This assessment is complete. Type 'reset' to assess another system."
}

// Reset confirms a restart and repeats the opening prompt.
func Reset(maxQuestions int) string {
	return "Session reset.\n\n" + Opening(maxQuestions)
}
