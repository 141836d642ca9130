// Package core provides the domain model and entry-point parsing.
//
// This file contains helpers for turning user-typed numbers into decimals.
// Both dot (12.34) and comma (12,34) decimal separators are accepted.
package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAge is the largest age accepted at registration.
const MaxAge = 150

// ParseAmount converts a decimal string to an amount.
//
// The sign is not constrained: "-12.50" parses to a negative amount.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("1.2.3") -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, invalid("amount", "must not be empty")
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "eE") {
		// decimal accepts exponents, the entry form does not
		return decimal.Zero, invalid("amount", "must be a decimal number")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, invalid("amount", "must be a decimal number")
	}
	return d, nil
}

// ParseSalary parses a monthly salary, which must not be negative.
func ParseSalary(s string) (decimal.Decimal, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero, invalid("monthly salary", "must be a decimal number")
	}
	if d.IsNegative() {
		return decimal.Zero, invalid("monthly salary", "must not be negative")
	}
	return d, nil
}

// ParseAge checks that s is a whole number of years and returns it normalized.
func ParseAge(s string) (string, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return "", invalid("age", "must be a whole number")
	}
	if n < 0 || n > MaxAge {
		return "", invalid("age", "out of range")
	}
	return strconv.Itoa(n), nil
}
