package domain

import (
	"fmt"
	"strings"
	"time"
)

// Plan is a titled savings plan made of dated targets
type Plan struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Targets   []Target  `json:"targets"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Target is a single goal inside a plan
type Target struct {
	Name    string    `json:"name" bson:"name"`
	Amount  float64   `json:"amount" bson:"amount"`
	DueDate time.Time `json:"dueDate" bson:"dueDate"`
}

// Validate checks the invariants of a plan
func (p *Plan) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if p.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	for i, t := range p.Targets {
		if t.Name == "" {
			return fmt.Errorf("%w: target %d: name is required", ErrInvalidInput, i)
		}
		if t.Amount < 0 {
			return fmt.Errorf("%w: target %d: amount must not be negative", ErrInvalidInput, i)
		}
		if t.DueDate.IsZero() {
			return fmt.Errorf("%w: target %d: due date is required", ErrInvalidInput, i)
		}
	}
	return nil
}
