package response

import (
	"testing"

	"ai-act-advisor-be/pkg/rag/screen"

	"github.com/stretchr/testify/assert"
)

func TestQuestionFormat(t *testing.T) {
	assert.Equal(t, "[Q3/15] Who uses it?", Question(3, 15, "  Who uses it?\n"))
}

func TestAlerts(t *testing.T) {
	assert.Contains(t, Alerts(nil), "No obvious Article 5")

	msg := Alerts([]screen.Finding{{
		Practice: "Social scoring", Article: "Article 5(1)(c)", Severity: screen.SeverityCritical, Evidence: "citizen score",
	}})
	assert.Contains(t, msg, "1 possible Article 5")
	assert.Contains(t, msg, "Social scoring (Article 5(1)(c), severity CRITICAL): citizen score")
}

func TestConfirmProhibited(t *testing.T) {
	msg := ConfirmProhibited([]screen.Finding{{
		Practice: "Social scoring", Article: "Article 5(1)(c)", Severity: screen.SeverityCritical, Evidence: "citizen score",
	}})
	assert.Contains(t, msg, "Social scoring (Article 5(1)(c), severity CRITICAL)")
	assert.Contains(t, msg, "Reply 'yes' to continue or 'no'")
	assert.NotContains(t, msg, "The interview continues")
	assert.Contains(t, ConfirmAgain(), "Reply 'yes'")
}

func TestOpeningMentionsLimit(t *testing.T) {
	assert.Contains(t, Opening(12), "up to 12 follow-up questions")
	assert.Contains(t, Reset(12), "Session reset.")
}
