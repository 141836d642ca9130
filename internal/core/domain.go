package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Profile holds the user-editable fields of an account.
	Profile struct {
		Name          string          `json:"name"`
		Age           string          `json:"age"`
		Gender        string          `json:"gender"`
		MaritalStatus string          `json:"maritalStatus"`
		Phone         string          `json:"phone"`
		Email         string          `json:"email"`
		MonthlySalary decimal.Decimal `json:"monthlySalary"`
	}

	// User is a registered account and the expenses it owns.
	User struct {
		ID string `json:"id"`
		Profile
		Expenses     []Expense `json:"expenses"`
		PasswordHash string    `json:"passwordHash,omitempty"`
	}

	Expense struct {
		ID        string          `json:"id"`
		Category  string          `json:"category"`
		Amount    decimal.Decimal `json:"amount"`
		Timestamp time.Time       `json:"timestamp"`
	}
)

var (
	ErrDuplicateEmail     = errors.New("an account with this email already exists")
	ErrNotFound           = errors.New("no account found for this email")
	ErrValidation         = errors.New("validation failed")
	ErrNotReady           = errors.New("record store is not ready")
	ErrNoCurrentUser      = errors.New("no user is signed in")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrBiometricRejected  = errors.New("biometric verification failed")
)

// ValidationError reports a rejected entry-point field. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Clone returns a copy of u that shares no expense storage with it.
func (u User) Clone() User {
	if u.Expenses != nil {
		u.Expenses = append([]Expense(nil), u.Expenses...)
	}
	return u
}

// LastExpense returns the most recently appended expense.
func (u User) LastExpense() (Expense, bool) {
	if len(u.Expenses) == 0 {
		return Expense{}, false
	}
	return u.Expenses[len(u.Expenses)-1], true
}
