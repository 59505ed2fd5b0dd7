package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/kalambet/bankassist/internal/docstore"
	"github.com/kalambet/bankassist/internal/errx"
	"github.com/kalambet/bankassist/internal/logx"
	"github.com/kalambet/bankassist/internal/planner"
	"github.com/kalambet/bankassist/internal/scrape"
	"github.com/kalambet/bankassist/internal/usecase"
)

// MsgUnexpected prefixes a recovered panic.
const MsgUnexpected = "⚠️ Unexpected error while retrieving information"

// Planner chooses the tool chain for a query.
type Planner interface {
	Plan(ctx context.Context, query string) planner.Plan
}

// Documents is the static document fallback.
type Documents interface {
	Load(ctx context.Context, uc usecase.UseCase) string
}

// Outcome is the result of one orchestrated retrieval.
type Outcome struct {
	Status    Status       `json:"status"`
	Plan      planner.Plan `json:"plan"`
	Context   string       `json:"context,omitempty"`
	Source    string       `json:"source,omitempty"`
	Validated bool         `json:"validated"`
	Warning   string       `json:"warning,omitempty"`
	Steps     []string     `json:"steps,omitempty"`
}

// Orchestrator interprets tool plans.
type Orchestrator struct {
	planner Planner
	docs    Documents
	tools   map[planner.Tool]Tool
}

func New(p Planner, docs Documents, tools ...Tool) *Orchestrator {
	o := &Orchestrator{planner: p, docs: docs, tools: make(map[planner.Tool]Tool, len(tools))}
	for _, t := range tools {
		o.tools[t.Name()] = t
	}
	return o
}

// Run plans and executes a retrieval for query. It never panics: an
// unexpected failure comes back as a FAILED outcome with a warning.
func (o *Orchestrator) Run(ctx context.Context, query string, uc usecase.UseCase) (out Outcome) {
	st := &State{Query: query, UseCase: uc, Status: StatusPlanning}
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Interface("panic", r).Str("query", query).Msg("orchestrator panicked")
			st.Status = StatusFailed
			out = outcome(st)
			out.Warning = fmt.Sprintf("%s: %v", MsgUnexpected, r)
			out.Context = ""
		}
	}()

	st.Plan = o.planner.Plan(ctx, query)
	st.step("plan: %s", st.Plan)
	if st.Plan.IsNone() {
		return o.fallback(ctx, st, "planner chose documents")
	}

	st.Status = StatusExecuting
	for _, name := range st.Plan {
		tool, ok := o.tools[name]
		if !ok {
			return o.failed(st, fail(name, fmt.Sprintf("⚠️ Tool %s is not available.", name), nil))
		}
		if err := tool.Execute(ctx, st); err != nil {
			if errx.Is(err, errx.Validation) {
				logx.Warn().Err(err).Str("query", query).Msg("validation failed, falling back to documents")
				return o.fallback(ctx, st, err.Error())
			}
			return o.failed(st, err)
		}
		if st.Terminal {
			break
		}
	}

	if !st.Terminal && !st.Validated {
		if st.Payload.Empty() {
			return o.fallback(ctx, st, "no validated result")
		}
		st.step("validate: implicit")
		if err := (ValidateTool{}).Execute(ctx, st); err != nil {
			logx.Warn().Err(err).Str("query", query).Msg("validation failed, falling back to documents")
			return o.fallback(ctx, st, err.Error())
		}
	}

	st.Status = StatusComplete
	if st.Context == "" {
		st.Context = validatedContext(st)
	}
	return outcome(st)
}

func (o *Orchestrator) fallback(ctx context.Context, st *State, reason string) Outcome {
	st.Status = StatusFallbackRAG
	st.step("fallback_rag: %s", reason)
	st.Context = o.docs.Load(ctx, st.UseCase)
	st.Source = SourceRAG
	st.Validated = false
	return outcome(st)
}

func (o *Orchestrator) failed(st *State, err error) Outcome {
	st.Status = StatusFailed
	warning := MsgUnexpected
	var se *StepError
	if errors.As(err, &se) {
		warning = se.Warning
	}
	logx.Warn().Err(err).Str("query", st.Query).Msg("tool chain failed")
	st.step("failed: %v", err)
	out := outcome(st)
	out.Warning = warning
	out.Context = ""
	return out
}

// validatedContext renders only the sections that passed validation.
func validatedContext(st *State) string {
	p := scrape.Payload{
		Title:  st.Payload.Title,
		Text:   st.Sections.Text,
		Tables: st.Sections.Tables,
		Links:  st.Sections.Links,
	}
	return docstore.Truncate(p.Context(), docstore.MaxChars)
}

func outcome(st *State) Outcome {
	return Outcome{
		Status:    st.Status,
		Plan:      st.Plan,
		Context:   st.Context,
		Source:    st.Source,
		Validated: st.Validated,
		Steps:     st.Steps,
	}
}
