package domain

import (
	"fmt"
	"strings"
	"time"
)

// Expense is a single spending entry. Amount is in whole KRW.
type Expense struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"userId"`
	Date      time.Time `json:"date"`
	Category  string    `json:"category"`
	Amount    int64     `json:"amount"`
	Memo      string    `json:"memo,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the invariants of a new expense
func (e *Expense) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	if e.Category == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidInput)
	}
	if e.Amount < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}
	return nil
}

// DateRange is an inclusive time window
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls within the range, bounds included
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}
