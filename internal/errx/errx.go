// Package errx carries typed failures through the retrieval and orchestration
// chain. Errors only become user-facing strings at the turn boundary.
package errx

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure by the stage that produced it.
type Kind int

const (
	Internal Kind = iota
	Classification
	Retrieval
	ToolChain
	Validation
	Generation
	Parse
	Storage
	NotFound
	BadRequest
)

func (k Kind) String() string {
	switch k {
	case Classification:
		return "classification"
	case Retrieval:
		return "retrieval"
	case ToolChain:
		return "tool_chain"
	case Validation:
		return "validation"
	case Generation:
		return "generation"
	case Parse:
		return "parse"
	case Storage:
		return "storage"
	case NotFound:
		return "not_found"
	case BadRequest:
		return "bad_request"
	default:
		return "internal"
	}
}

// Status maps a Kind onto the HTTP status the API layer reports.
func (k Kind) Status() int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case BadRequest, Parse:
		return http.StatusBadRequest
	case Generation, ToolChain, Retrieval:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error wraps an underlying error with its Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Msg == "":
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error without an underlying cause.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap attaches kind and op to err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(kind Kind, op string, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of the outermost *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether any *Error in err's chain has the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
