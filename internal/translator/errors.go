package translator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/basaa-mt/translator-api/internal/model"
)

type ErrorKind int

const (
	ErrValidation ErrorKind = iota
	ErrModelNotLoaded
	ErrGeneration
	ErrUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case ErrValidation:
		return "Validation"
	case ErrModelNotLoaded:
		return "ModelNotLoaded"
	case ErrGeneration:
		return "Generation"
	default:
		return "Unknown"
	}
}

// Error is returned by the pipeline. Its message is what clients see in the
// fallback payload, so it stays close to the cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Context map[string]any
	Cause   error
}

func NewError(kind ErrorKind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Context: make(map[string]any),
	}
}

func WrapError(err error, kind ErrorKind, message string) *Error {
	e := NewError(kind, message)
	e.Cause = err
	return e
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Kind, e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, "context: "+strings.Join(ctxParts, ", "))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}
	return strings.Join(parts, " | ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}

// IsKind reports whether err wraps an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == kind
	}
	return false
}

// classify wraps an adapter error with the matching kind.
func classify(err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	if errors.Is(err, model.ErrNotLoaded) {
		return WrapError(err, ErrModelNotLoaded, "model is not loaded")
	}
	return WrapError(err, ErrGeneration, "model generation failed")
}

// SafeExecute runs fn and turns a panic into an ErrUnknown error.
func SafeExecute(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError(ErrUnknown, fmt.Sprintf("runtime error: %v", r))
		}
	}()

	return fn()
}
