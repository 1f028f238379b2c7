// internal/catalog/errors.go
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalid        = errors.New("validation failed")
	ErrIntegrity      = errors.New("data integrity fault")
	ErrUnknownKind    = errors.New("unknown entity kind")
	ErrPhotosDisabled = errors.New("photo storage is not configured")
)

// ValidationError carries field-level failures collected before any write.
type ValidationError struct {
	Kind   Kind
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e.Errors[field])
	}
	return fmt.Sprintf("invalid %s: %s", e.Kind.Singular(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// IntegrityError reports a stored record whose required reference does not
// resolve. It means an earlier write bypassed the mutation checks.
type IntegrityError struct {
	Kind  Kind
	ID    int64
	Field string
	Ref   Kind
	RefID int64
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s %d: %s references missing %s %d",
		e.Kind.Singular(), e.ID, e.Field, e.Ref.Singular(), e.RefID)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

// Outcome tags the result of a core operation for the adapter layer.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeEmpty
	OutcomeNotFound
	OutcomeInvalid
	OutcomeFault
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeEmpty:
		return "no_content"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeInvalid:
		return "validation_failed"
	}
	return "server_error"
}

// Classify maps an error returned by the service to its outcome tag.
// Unknown errors are faults.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrInvalid), errors.Is(err, ErrUnknownKind):
		return OutcomeInvalid
	}
	return OutcomeFault
}
