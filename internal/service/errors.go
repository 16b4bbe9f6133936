package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a row that does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")
)

// LimitError reports a plan-limit denial. Upgrade distinguishes "upgrade your
// plan" denials from "fix your billing" ones so the client can route the user
// to the right screen.
type LimitError struct {
	Resource string
	Limit    int
	Upgrade  bool
}

func (e *LimitError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("monthly %s limit of %d reached", e.Resource, e.Limit)
	}
	return fmt.Sprintf("%s not available on current subscription", e.Resource)
}

// ValidationError carries a field-level rejection message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
