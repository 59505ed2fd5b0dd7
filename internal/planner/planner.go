// Package planner chooses which retrieval tools to chain for a query.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/bankassist/internal/errx"
	"github.com/kalambet/bankassist/internal/logx"
)

// Tool names one retrieval capability.
type Tool string

const (
	Search       Tool = "search"
	Navigate     Tool = "navigate"
	Scrape       Tool = "scrape"
	Validate     Tool = "validate"
	LinkResolver Tool = "link_resolver"
	None         Tool = "none"
)

// Vocabulary is the closed set of plannable tools.
var Vocabulary = []Tool{Search, Navigate, Scrape, Validate, LinkResolver, None}

const planTimeout = 20 * time.Second

// Plan is an ordered tool chain. [none] is a terminal singleton.
type Plan []Tool

// NonePlan sends the query straight to document retrieval.
func NonePlan() Plan { return Plan{None} }

// IsNone reports whether p is the [none] plan.
func (p Plan) IsNone() bool { return len(p) == 1 && p[0] == None }

func (p Plan) String() string {
	names := make([]string, len(p))
	for i, t := range p {
		names[i] = string(t)
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// Completer is the LLM call used for planning.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Planner builds tool plans with a few-shot prompt.
type Planner struct {
	llm Completer
}

func New(llm Completer) *Planner {
	return &Planner{llm: llm}
}

// Plan never fails: backend errors, malformed replies and parse panics all
// yield [none].
func (p *Planner) Plan(ctx context.Context, query string) (plan Plan) {
	defer func() {
		if r := recover(); r != nil {
			logx.Warn().Interface("panic", r).Str("query", query).Msg("planner panicked, using [none]")
			plan = NonePlan()
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, planTimeout)
	defer cancel()

	raw, err := p.llm.Complete(ctx, systemPrompt, BuildPrompt(query))
	if err != nil {
		logx.Warn().Err(err).Str("query", query).Msg("planner call failed, using [none]")
		return NonePlan()
	}

	plan, err = Parse(raw)
	if err != nil {
		logx.Warn().Err(err).Str("raw", raw).Msg("planner reply rejected, using [none]")
		return NonePlan()
	}
	logx.Debug().Str("query", query).Str("plan", plan.String()).Msg("tools planned")
	return plan
}

type planReply struct {
	Tools []string `json:"tools"`
}

// Parse reads a {"tools": [...]} reply and checks it against Vocabulary.
// A plan mixing none with real tools collapses to [none].
func Parse(raw string) (Plan, error) {
	const op = "planner.Parse"

	body := strings.TrimSpace(raw)
	if start, end := strings.Index(body, "{"), strings.LastIndex(body, "}"); start >= 0 && end > start {
		body = body[start : end+1]
	}
	var reply planReply
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		return nil, errx.Wrap(errx.Parse, op, err)
	}
	if len(reply.Tools) == 0 {
		return nil, errx.New(errx.Parse, op, "empty tool list")
	}

	plan := make(Plan, 0, len(reply.Tools))
	hasNone := false
	for _, name := range reply.Tools {
		t := Tool(strings.ToLower(strings.TrimSpace(name)))
		if !known(t) {
			return nil, errx.New(errx.Parse, op, fmt.Sprintf("unknown tool %q", name))
		}
		if t == None {
			hasNone = true
		}
		plan = append(plan, t)
	}
	if hasNone && len(plan) > 1 {
		logx.Warn().Str("plan", plan.String()).Msg("inconsistent plan: none combined with other tools")
		return NonePlan(), nil
	}
	return plan, nil
}

func known(t Tool) bool {
	for _, v := range Vocabulary {
		if v == t {
			return true
		}
	}
	return false
}
