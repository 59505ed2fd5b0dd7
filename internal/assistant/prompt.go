package assistant

import (
	"fmt"
	"strings"

	"github.com/kalambet/bankassist/internal/session"
)

// HistoryTurns is the number of previous turns quoted in the answer prompt.
const HistoryTurns = 3

// BuildAnswerPrompt renders the generation prompt for one turn.
func BuildAnswerPrompt(userName, query, context string, history []session.Turn) string {
	if userName == "" {
		userName = "a customer"
	}

	var sb strings.Builder
	sb.WriteString("You are a highly informative and polite banking assistant for HDFC Bank.\n\n")
	sb.WriteString("Always provide structured, clear responses of **at least 4–6 sentences**, using the provided document context.\n")
	sb.WriteString("Be professional, friendly, and helpful in tone.\n\n")
	fmt.Fprintf(&sb, "User: %s\nQuery: %q\n\n", userName, query)

	if len(history) > 0 {
		sb.WriteString("🕘 Previous conversation:\n")
		for i, t := range history {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			fmt.Fprintf(&sb, "User: %s\nBot: %s", t.Query, t.Response)
		}
		sb.WriteString("\n\n")
	}

	fmt.Fprintf(&sb, "📄 Document Context:\n%s\n\n", context)
	sb.WriteString("Please now generate a detailed, helpful response addressing the query.")
	return sb.String()
}
