// Package agent executes a tool plan against a query and produces the
// context the answer is generated from.
package agent

import (
	"fmt"

	"github.com/kalambet/bankassist/internal/errx"
	"github.com/kalambet/bankassist/internal/planner"
	"github.com/kalambet/bankassist/internal/scrape"
	"github.com/kalambet/bankassist/internal/search"
	"github.com/kalambet/bankassist/internal/usecase"
	"github.com/kalambet/bankassist/internal/validate"
)

// Status is the orchestrator state.
type Status string

const (
	StatusPlanning    Status = "PLANNING"
	StatusExecuting   Status = "EXECUTING"
	StatusComplete    Status = "COMPLETE"
	StatusFailed      Status = "FAILED"
	StatusFallbackRAG Status = "FALLBACK_RAG"
)

const (
	SourceRAG  = "rag"
	SourceLink = "link"
)

// State is threaded through every tool in a plan. Each tool reads what the
// previous ones produced and records its own output.
type State struct {
	Query   string
	UseCase usecase.UseCase
	Plan    planner.Plan
	Status  Status

	Results  []search.Result
	URL      string
	HTML     string
	Payload  scrape.Payload
	Sections validate.Sections

	Validated bool
	Source    string
	Context   string

	// Terminal stops the chain after the current tool.
	Terminal bool
	Steps    []string
}

func (s *State) step(format string, args ...any) {
	s.Steps = append(s.Steps, fmt.Sprintf(format, args...))
}

// StepError is a tool failure carrying the warning shown to the user.
type StepError struct {
	Tool    planner.Tool
	Warning string
	Err     error
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Tool, e.Warning, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Tool, e.Warning)
}

func (e *StepError) Unwrap() error { return e.Err }

func fail(tool planner.Tool, warning string, cause error) error {
	return errx.Wrap(errx.ToolChain, "agent."+string(tool), &StepError{Tool: tool, Warning: warning, Err: cause})
}
