package intent

import (
	"fmt"
	"strings"

	"github.com/kalambet/bankassist/internal/usecase"
)

const systemPrompt = `You are a helpful banking assistant that routes customer queries. You never answer the query yourself.

Reply with exactly two lines and nothing else:
Intent: <short snake_case action, e.g. check_status, raise_dispute, download_file>
Use Case: <one label copied verbatim from the list, or Unclear if none fits>`

// BuildPrompt renders the user message for a classification request.
func BuildPrompt(query string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "A user asked:\n%q\n\nUse cases:\n", query)
	for _, uc := range usecase.All {
		fmt.Fprintf(&sb, "- %s\n", uc)
	}
	return sb.String()
}

// ParseResponse extracts the intent and use case from a two-line reply.
// Missing lines yield "unknown"; a use case outside the label set yields
// Unclear.
func ParseResponse(raw string) (string, usecase.UseCase) {
	intent := ""
	uc := usecase.Unknown
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*-"))
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(strings.Trim(key, "*"))) {
		case "intent":
			intent = strings.TrimSpace(strings.Trim(val, "*"))
		case "use case", "use_case", "usecase":
			uc = usecase.Parse(strings.Trim(val, "*"))
		}
	}
	if intent == "" {
		intent = "unknown"
	}
	return intent, uc
}
