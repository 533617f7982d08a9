// Package validation implements the request validation pipeline. Validators
// never fail on validation-level problems: they report every violation in a
// Result and only return an error when a collaborator (e.g. a repository)
// could not be reached.
package validation

import (
	"context"

	apperrors "github.com/spec-kit/support-hub/pkg/util"
)

// Error is a single field-scoped violation.
type Error struct {
	Property string `json:"property"`
	Message  string `json:"message"`
	Code     string `json:"code"`
}

// Result is the outcome of running a validator.
type Result struct {
	Errors []Error
}

// Valid reports whether no violation was recorded.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// Add records a violation.
func (r *Result) Add(property, code, message string) {
	r.Errors = append(r.Errors, Error{Property: property, Message: message, Code: code})
}

// Merge appends every violation of other, preserving order.
func (r *Result) Merge(other Result) {
	r.Errors = append(r.Errors, other.Errors...)
}

// Codes lists the codes of all violations in order.
func (r Result) Codes() []string {
	codes := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		codes = append(codes, e.Code)
	}
	return codes
}

// HasCode reports whether any violation carries code.
func (r Result) HasCode(code string) bool {
	for _, e := range r.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}

// Validator checks a typed value.
type Validator[T any] interface {
	Validate(ctx context.Context, in T) (Result, error)
}

// Func adapts a plain function to Validator.
type Func[T any] func(ctx context.Context, in T) (Result, error)

// Validate calls f.
func (f Func[T]) Validate(ctx context.Context, in T) (Result, error) {
	return f(ctx, in)
}

// Run validates in and converts a failed result into a validation DomainError.
// Collaborator failures are returned untouched.
func Run[T any](ctx context.Context, v Validator[T], in T) error {
	res, err := v.Validate(ctx, in)
	if err != nil {
		return err
	}
	if res.Valid() {
		return nil
	}
	return apperrors.NewValidationFailure(ToFieldErrors(res.Errors))
}

// ToFieldErrors converts violations to the transport error shape.
func ToFieldErrors(errs []Error) []apperrors.FieldError {
	out := make([]apperrors.FieldError, 0, len(errs))
	for _, e := range errs {
		out = append(out, apperrors.FieldError{Property: e.Property, Message: e.Message, Code: e.Code})
	}
	return out
}
