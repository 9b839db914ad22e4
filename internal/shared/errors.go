package shared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation indicates malformed or incomplete input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a uniqueness or state conflict.
	ErrConflict = errors.New("conflict")
	// ErrBudgetExceeded indicates a request would overdraw its cost area.
	ErrBudgetExceeded = errors.New("budget exceeded")
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError lists every problem found in one submission.
type ValidationError struct {
	Missing  []string
	Problems []string
}

// NewValidationError builds a ValidationError from free-form problems.
func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

// AddMissing records a mandatory field left empty.
func (e *ValidationError) AddMissing(label string) {
	e.Missing = append(e.Missing, label)
}

// Add records a problem with a supplied value.
func (e *ValidationError) Add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Empty reports whether no problem was recorded.
func (e *ValidationError) Empty() bool {
	return e == nil || (len(e.Missing) == 0 && len(e.Problems) == 0)
}

// OrNil returns nil when nothing was recorded, so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + e.Detail()
}

// Detail renders the recorded problems without the class prefix.
func (e *ValidationError) Detail() string {
	parts := make([]string, 0, len(e.Problems)+1)
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	parts = append(parts, e.Problems...)
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// BudgetExceededError carries the balance a request was checked against.
type BudgetExceededError struct {
	CostArea  string
	Requested float64
	Remaining float64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("%s: cost area %s has %s remaining, request needs %s",
		ErrBudgetExceeded.Error(), e.CostArea, FormatAmount(e.Remaining), FormatAmount(e.Requested))
}

func (e *BudgetExceededError) Unwrap() error {
	return ErrBudgetExceeded
}

// Conflictf wraps ErrConflict with a description.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a description.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
