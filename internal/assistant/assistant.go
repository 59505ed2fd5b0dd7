// Package assistant runs one conversational turn: classify the query,
// gather context for its use case, generate an answer and record the turn.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/bankassist/internal/agent"
	"github.com/kalambet/bankassist/internal/cache"
	"github.com/kalambet/bankassist/internal/docstore"
	"github.com/kalambet/bankassist/internal/intent"
	"github.com/kalambet/bankassist/internal/logx"
	"github.com/kalambet/bankassist/internal/session"
	"github.com/kalambet/bankassist/internal/storage"
	"github.com/kalambet/bankassist/internal/usecase"
)

const (
	SourceCache        = "cache"
	SourceTransactions = "transactions"
	SourceCanned       = "canned"
	SourceFraud        = "fraud"
	SourceDocuments    = "documents"
)

type Classifier interface {
	Classify(ctx context.Context, query string, history intent.History) intent.Result
}

type Documents interface {
	HasDocuments(uc usecase.UseCase) bool
	Load(ctx context.Context, uc usecase.UseCase) string
}

type Retriever interface {
	Run(ctx context.Context, query string, uc usecase.UseCase) agent.Outcome
}

type Generator interface {
	Generate(ctx context.Context, prompt string) string
}

type ResponseCache interface {
	Get(ctx context.Context, query string, uc usecase.UseCase) (cache.Entry, bool)
	Set(ctx context.Context, e cache.Entry)
}

type TurnLog interface {
	AppendTurn(ctx context.Context, t storage.TurnRow) error
}

// Deps wires an Assistant. Cache, Turns and Debug are optional.
type Deps struct {
	Classifier Classifier
	Documents  Documents
	Retriever  Retriever
	Generator  Generator
	Cache      ResponseCache
	Turns      TurnLog
	Debug      *DebugLog
	Now        func() time.Time
}

// Assistant answers queries for loaded sessions.
type Assistant struct {
	Deps
}

func New(d Deps) *Assistant {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Debug == nil {
		d.Debug = NewDebugLog(DebugSize)
	}
	return &Assistant{Deps: d}
}

// Answer is the outcome of one turn.
type Answer struct {
	Turn       session.Turn `json:"turn"`
	Source     string       `json:"source,omitempty"`
	Validated  bool         `json:"validated"`
	FromMemory bool         `json:"from_memory,omitempty"`
	Steps      []string     `json:"steps,omitempty"`
}

// turn accumulates what a Handle call learns before it is recorded.
type turn struct {
	query     string
	res       intent.Result
	context   string
	response  string
	source    string
	validated bool
	cached    bool
	weak      bool
	recorded  bool
	steps     []string
}

func (t *turn) step(format string, args ...any) {
	t.steps = append(t.steps, fmt.Sprintf(format, args...))
}

// Handle runs a full turn for sess. It never returns an error: every
// failure ends up as warning text in the response, and the turn is still
// recorded.
func (a *Assistant) Handle(ctx context.Context, sess *session.Session, query string) (ans Answer) {
	t := &turn{
		query: strings.TrimSpace(query),
		res:   intent.Result{Intent: string(usecase.Unknown), UseCase: usecase.Unknown},
	}
	defer func() {
		if r := recover(); r != nil && !t.recorded {
			logx.Error().Interface("panic", r).Str("query", query).Msg("turn panicked")
			t.response = fmt.Sprintf("⚠️ Unexpected error: %v", r)
			t.step("panic: %v", r)
			ans = a.record(ctx, sess, t)
		}
	}()

	t.res = a.Classifier.Classify(ctx, t.query, sess)
	t.step("classify: intent=%q use_case=%q from_memory=%t", t.res.Intent, t.res.UseCase, t.res.FromMemory)
	uc := t.res.UseCase

	if uc.IsPublic() && a.Cache != nil {
		if hit, ok := a.Cache.Get(ctx, t.query, uc); ok {
			t.response, t.source, t.validated, t.cached = hit.Response, SourceCache, hit.Validated, true
			t.step("cache: hit %q", hit.Query)
			return a.record(ctx, sess, t)
		}
		t.step("cache: miss")
	}

	if done := a.gather(ctx, sess, t); !done {
		prompt := BuildAnswerPrompt(sess.Name, t.query, t.context, sess.Recent(HistoryTurns))
		t.response = a.Generator.Generate(ctx, prompt)
		t.step("generate: %d chars", len(t.response))
	}

	ans = a.record(ctx, sess, t)
	if uc.IsPublic() && a.Cache != nil && !t.weak && !isWarning(t.response) {
		a.Cache.Set(ctx, cache.Entry{
			Query:     t.query,
			Response:  t.response,
			Source:    t.source,
			UseCase:   uc,
			Validated: t.validated,
		})
	}
	return ans
}

// gather fills t.context for the use case. It returns true when the
// response is already final and generation must be skipped.
func (a *Assistant) gather(ctx context.Context, sess *session.Session, t *turn) bool {
	uc := t.res.UseCase
	switch {
	case uc == usecase.TransactionHistory:
		t.context, t.source = sess.TransactionContext(), SourceTransactions
		t.step("context: %d ledger rows", session.TailRows)

	case uc == usecase.MutualFunds:
		t.context, t.source = MutualFundsContext, SourceCanned
		t.step("context: canned mutual fund summary")

	case uc == usecase.FraudComplaint:
		fc, ok := fraudContext(sess, a.Now())
		if !ok {
			t.response = MsgNoFraudHistory
			t.step("fraud: no transaction history turn")
			return true
		}
		t.context, t.source = fc, SourceFraud
		t.step("fraud: complaint raised")

	case a.Documents != nil && a.Documents.HasDocuments(uc):
		docs := a.Documents.Load(ctx, uc)
		t.step("documents: %d chars", len(docs))
		if !docstore.IsWeak(docs) {
			t.context, t.source = docs, SourceDocuments
			return false
		}
		logx.Warn().Str("use_case", string(uc)).Msg("weak document context, running agent")
		return a.retrieve(ctx, t)

	default:
		return a.retrieve(ctx, t)
	}
	return false
}

func (a *Assistant) retrieve(ctx context.Context, t *turn) bool {
	out := a.Retriever.Run(ctx, t.query, t.res.UseCase)
	t.steps = append(t.steps, out.Steps...)
	t.step("agent: %s", out.Status)
	if out.Status == agent.StatusFailed {
		t.response = out.Warning
		return true
	}
	t.context, t.source, t.validated = out.Context, out.Source, out.Validated
	if out.Status == agent.StatusFallbackRAG && docstore.IsWeak(out.Context) {
		t.weak = true
		t.step("agent: weak fallback context, answer not cached")
	}
	return false
}

func (a *Assistant) record(ctx context.Context, sess *session.Session, t *turn) Answer {
	t.recorded = true
	stored := sess.Append(session.Turn{
		ID:       uuid.NewString(),
		Query:    t.query,
		Intent:   t.res.Intent,
		UseCase:  t.res.UseCase,
		Context:  t.context,
		Response: t.response,
		Cached:   t.cached,
		At:       a.Now().UTC(),
	})

	if a.Turns != nil {
		err := a.Turns.AppendTurn(ctx, storage.TurnRow{
			ID:        stored.ID,
			SessionID: sess.ID,
			UserID:    sess.UserID,
			Query:     stored.Query,
			Intent:    stored.Intent,
			UseCase:   string(stored.UseCase),
			Context:   stored.Context,
			Response:  stored.Response,
			Cached:    stored.Cached,
			CreatedAt: stored.At,
		})
		if err != nil {
			logx.Warn().Err(err).Str("turn", stored.ID).Msg("turn log write failed")
		}
	}

	a.Debug.Add(DebugRecord{
		TurnID:    stored.ID,
		SessionID: sess.ID,
		Query:     stored.Query,
		UseCase:   stored.UseCase,
		Steps:     t.steps,
		At:        stored.At,
	})

	return Answer{
		Turn:       stored,
		Source:     t.source,
		Validated:  t.validated,
		FromMemory: t.res.FromMemory,
		Steps:      t.steps,
	}
}

func isWarning(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.HasPrefix(s, "⚠️") || strings.HasPrefix(s, "❌")
}
