// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing signed monetary amounts from
// strings and converting between cents and decimal representations.
package core

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmount bounds a single entry so sums over any realistic ledger stay within int64 cents.
var maxAmount = decimal.New(1, 13)

var (
	amountChars = regexp.MustCompile(`^[+-]?[0-9.,]+$`)
	grouped     = regexp.MustCompile(`^[0-9]{1,3}(,[0-9]{3})+(\.[0-9]+)?$`)
)

// ParseAmount converts a decimal string to signed cents.
//
// It accepts an optional sign, a dot decimal separator and comma thousands
// grouping (1,234.50). A lone comma not followed by exactly three digits is
// read as a decimal separator (12,34). Other mixes such as 1.234,56 and
// exponent forms are rejected. Values are rounded half away from zero to two
// places. Empty, non-numeric, zero and out-of-range values return
// ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> Money{1234}, nil
//	ParseAmount("-12,34") -> Money{-1234}, nil
//	ParseAmount("1,000")  -> Money{100000}, nil
//	ParseAmount("1.005")  -> Money{101}, nil
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if !amountChars.MatchString(s) {
		return Money{}, ErrInvalidAmount
	}
	negative := s[0] == '-'
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	switch {
	case grouped.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") == 1 && !strings.Contains(s, "."):
		s = strings.Replace(s, ",", ".", 1)
	case strings.Contains(s, ","):
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if negative {
		d = d.Neg()
	}
	d = d.Round(2)
	if d.IsZero() || d.Abs().GreaterThan(maxAmount) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: d.Shift(2).IntPart()}, nil
}

func (m Money) Validate() error {
	if m.Cents == 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Neg() Money { return Money{Cents: -m.Cents} }

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return m.Neg()
	}
	return m
}

// WithKind returns the magnitude of m signed for the given category kind:
// negative for expenses, positive for income.
func (m Money) WithKind(k Kind) Money {
	abs := m.Abs()
	if k == Expense {
		return abs.Neg()
	}
	return abs
}

// Decimal returns the exact decimal value.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float returns the value as a float64 for display purposes.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// String renders the amount with two decimals and no grouping, e.g. "-1234.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.Cents, 10)), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	c, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return ErrInvalidAmount
	}
	m.Cents = c
	return nil
}
