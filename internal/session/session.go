// Package session holds the per-user conversation state: the user's
// transaction ledger and the chronological memory of answered turns.
package session

import (
	"sync"
	"time"

	"github.com/kalambet/bankassist/internal/usecase"
)

const (
	// MaxContextChars bounds the context stored with each turn.
	MaxContextChars = 500
	// TailRows is the number of ledger rows used as transaction context.
	TailRows = 5
)

// Turn is one answered query. Turns are immutable once appended.
type Turn struct {
	ID       string          `json:"id"`
	Query    string          `json:"query"`
	Intent   string          `json:"intent"`
	UseCase  usecase.UseCase `json:"use_case"`
	Context  string          `json:"context"`
	Response string          `json:"response"`
	Cached   bool            `json:"cached,omitempty"`
	At       time.Time       `json:"at"`
}

// Session is a logged-in user's state for one interactive session.
type Session struct {
	ID           string
	UserID       string
	Name         string
	Transactions *Ledger
	StartedAt    time.Time

	mu     sync.RWMutex
	memory []Turn
}

// Append records t, truncating its context to MaxContextChars.
func (s *Session) Append(t Turn) Turn {
	t.Context = truncate(t.Context, MaxContextChars)
	if t.At.IsZero() {
		t.At = time.Now().UTC()
	}
	s.mu.Lock()
	s.memory = append(s.memory, t)
	s.mu.Unlock()
	return t
}

// Memory returns a copy of the turns in chronological order.
func (s *Session) Memory() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.memory))
	copy(out, s.memory)
	return out
}

// Len returns the number of recorded turns.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.memory)
}

// Recent returns up to n of the latest turns, oldest first.
func (s *Session) Recent(n int) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.memory) - n
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(s.memory)-start)
	copy(out, s.memory[start:])
	return out
}

// LastUseCase returns the use case of the most recent turn.
func (s *Session) LastUseCase() (usecase.UseCase, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.memory) == 0 {
		return "", false
	}
	return s.memory[len(s.memory)-1].UseCase, true
}

// LastTurnFor scans memory from the end for a turn labelled uc.
func (s *Session) LastTurnFor(uc usecase.UseCase) (Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.memory) - 1; i >= 0; i-- {
		if s.memory[i].UseCase == uc {
			return s.memory[i], true
		}
	}
	return Turn{}, false
}

// TransactionContext renders the last TailRows ledger rows.
func (s *Session) TransactionContext() string {
	if s.Transactions == nil {
		return ""
	}
	return s.Transactions.Tail(TailRows).Table()
}

func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
