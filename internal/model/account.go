// Package model defines the core domain types for balance tracking.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Account is a real-world account whose balance history is tracked.
// An account is owned by exactly one user regardless of visibility.
type Account struct {
	CreatedAt time.Time
	ID        string
	OwnerID   string
	Name      string
	Visible   bool
}

// NewAccountID returns a fresh account identifier.
func NewAccountID() string {
	return uuid.NewString()
}

// IsAccountRef reports whether a paid-by value references an account.
// Older records carry free-text "who paid" labels which are not account ids.
func IsAccountRef(paidBy string) bool {
	_, ok := AccountRef(paidBy)
	return ok
}

// AccountRef returns the canonical account id a paid-by value refers to.
// Any spelling of a UUID (uppercase, braced, urn:uuid:, undashed) maps to
// the lowercase dashed form accounts are stored under.
func AccountRef(paidBy string) (string, bool) {
	if paidBy == "" {
		return "", false
	}
	id, err := uuid.Parse(paidBy)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// AutomationPreference is the per-user "auto-adjust balances from income" flag.
type AutomationPreference struct {
	UpdatedAt time.Time
	UserID    string
	Enabled   bool
}
