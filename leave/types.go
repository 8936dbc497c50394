/*
Package leave computes pro-rated leave entitlements.

PURPOSE:
  When a user is provisioned, the directory stores how many casual and sick
  days they may take in the current fiscal year. Users who joined in an
  earlier calendar year get the full annual policy; users joining in the
  current (or a later) year get a share based on the months left in the
  fiscal year.

KEY CONCEPTS IN THIS FILE (types.go):
  - Date: A calendar date (year, month, day) with no time-of-day
  - AnnualPolicy: Casual and sick days granted for a full fiscal year
  - Entitlement: The computed balances handed back to the caller

FISCAL YEAR:
  April 1 of year Y to March 31 of year Y+1.

PRECISION:
  Values are decimal.Decimal so that half days (x.5) survive exactly and
  the rounding rules compare against exact fractions.

SEE ALSO:
  - accrual.go: The calculator and its rounding rules
  - factory/policy.go: Loads AnnualPolicy from JSON/env
*/
package leave

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DATE - Calendar date without time-of-day
// =============================================================================

// DateLayout is the wire format for dates (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// Date is a calendar date. The zero value is not a valid date.
type Date struct {
	t time.Time
}

// NewDate validates and builds a date. Out of range days or months
// (e.g. February 30) are rejected instead of being normalized.
func NewDate(year int, month time.Month, day int) (Date, error) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Date{}, fmt.Errorf("invalid date %04d-%02d-%02d", year, int(month), day)
	}
	return Date{t: t}, nil
}

// MustDate is NewDate for literals known to be valid.
func MustDate(year int, month time.Month, day int) Date {
	d, err := NewDate(year, month, day)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return Date{t: t}, nil
}

func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }
func (d Date) IsZero() bool      { return d.t.IsZero() }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// =============================================================================
// POLICY AND RESULT
// =============================================================================

// AnnualPolicy holds the days granted for a complete fiscal year.
type AnnualPolicy struct {
	AnnualCasualLeave decimal.Decimal
	AnnualSickLeave   decimal.Decimal
}

// NewAnnualPolicy is a convenience constructor for whole or fractional days.
func NewAnnualPolicy(casual, sick float64) AnnualPolicy {
	return AnnualPolicy{
		AnnualCasualLeave: decimal.NewFromFloat(casual),
		AnnualSickLeave:   decimal.NewFromFloat(sick),
	}
}

// Entitlement is the leave a user may take in the current fiscal year.
// Both values are always >= 0.
type Entitlement struct {
	Casual decimal.Decimal
	Sick   decimal.Decimal
}

func (e Entitlement) String() string {
	return fmt.Sprintf("casual=%s sick=%s", e.Casual, e.Sick)
}
