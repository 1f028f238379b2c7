// Package validator accumulates field-level validation failures.
package validator

import (
	"net/mail"
	"strings"
)

// Validator maps field names to the first failure recorded for them.
// A Validator with no errors is valid.
type Validator struct {
	Errors map[string]string
}

func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError records message for key unless key already failed, so the first
// failure for a field is the one reported.
func (v *Validator) AddError(key, message string) {
	if _, exists := v.Errors[key]; !exists {
		v.Errors[key] = message
	}
}

// Check adds an error for key when ok is false:
//
//	v.Check(validator.NotBlank(title), "title", "must be provided")
func (v *Validator) Check(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

// Failed reports whether key already has an error.
func (v *Validator) Failed(key string) bool {
	_, exists := v.Errors[key]
	return exists
}

func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

func MaxLen(value string, n int) bool {
	return len([]rune(value)) <= n
}

func In(value string, list ...string) bool {
	for _, item := range list {
		if value == item {
			return true
		}
	}
	return false
}

// Email accepts a bare address (no display name).
func Email(value string) bool {
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Address == value
}

// Unique reports whether every string in values is distinct.
func Unique(values []string) bool {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}
