package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// Returned by stores and services; the HTTP layer maps them to status codes.
// -----------------------------------------------------------------------------

// User errors
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already registered")
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
)

// Expense errors
var (
	ErrExpenseNotFound = errors.New("expense not found")
)

// Plan errors
var (
	ErrPlanNotFound = errors.New("plan not found")
)

// General errors
var (
	ErrInvalidInput = errors.New("invalid input")
)
