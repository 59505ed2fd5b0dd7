package planner

import (
	"encoding/json"
	"fmt"
	"strings"
)

type example struct {
	Query string
	Tools Plan
}

var examples = []example{
	{"What is the latest RBI repo rate?", Plan{Search, Scrape, Validate}},
	{"How to block my HDFC credit card?", Plan{LinkResolver}},
	{"Download Form 16B", Plan{Search, Scrape, Validate}},
	{"List some HDFC credit cards", Plan{Search, Scrape, Validate}},
	{"Update address in HDFC account", Plan{Search, Scrape, Validate}},
	{"Show me FD rates", Plan{Search, Scrape}},
	{"Open an NPS account", Plan{Search, Scrape}},
	{"Apply for personal loan EMI calculator", Plan{Search, Scrape}},
	{"Mutual fund tax benefits for salaried", Plan{None}},
	{"KYC norms for NRIs", Plan{Search, Scrape, Validate}},
	{"Where is HDFC headquarters", Plan{Search, Scrape}},
	{"What are the features of HDFC website?", Plan{Search, Navigate, Scrape}},
}

const systemPrompt = `You plan retrieval for a banking assistant. Choose the ordered list of tools needed to answer the query.

Tools:
- search: find candidate web pages
- navigate: render a JavaScript-heavy page in a browser
- scrape: extract text, tables and links from a page
- validate: check that the extracted data fits the request
- link_resolver: return one official self-service link
- none: answer from stored documents only

Respond with one JSON object and nothing else: {"tools": [...]}`

// BuildPrompt renders the few-shot user message for query.
func BuildPrompt(query string) string {
	var sb strings.Builder
	sb.WriteString("Examples:\n")
	for _, ex := range examples {
		tools, _ := json.Marshal(planReply{Tools: toStrings(ex.Tools)})
		fmt.Fprintf(&sb, "Query: %s\nOutput: %s\n\n", ex.Query, tools)
	}
	fmt.Fprintf(&sb, "Query: %s\nOutput:", query)
	return sb.String()
}

func toStrings(p Plan) []string {
	out := make([]string, len(p))
	for i, t := range p {
		out[i] = string(t)
	}
	return out
}
