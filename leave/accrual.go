/*
accrual.go - Fiscal-year leave proration

PURPOSE:
  Turns a joining date and an annual policy into the casual/sick leave a
  user is entitled to for the fiscal year they join in.

PRORATION:
  A user joining on or before the 15th earns that month; joining after the
  15th forfeits it. Months are counted from the joining month up to March:

    Joined            Months remaining
    Apr 1..15         12
    Apr 16..30        11
    Dec 1..15          4
    Jan 1..15          3
    Mar 16..31         0

  Entitlement = annual / 12 * months remaining.

ROUNDING:
  Applied separately to casual and sick:
    - Whole numbers and exact half days (x.5) are kept as computed.
    - Casual: any other fraction is dropped.
    - Sick: any other fraction is dropped, except that a fraction above
      0.90 rounds up to the next whole day. Casual leave never rounds up.

  Example (10 days/year, 7 months): raw 5.8333 -> casual 5, sick 5.
  Example (11.9 days/year, 6 months): raw 5.95 -> casual 5, sick 6.

CURRENT YEAR:
  The reference year is a parameter. Callers read their clock once and
  pass the year in, so Compute stays deterministic.

SEE ALSO:
  - types.go: Date, AnnualPolicy, Entitlement
  - identity/service.go: Calls Compute when provisioning users
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// FiscalYearStart is the first month of the leave cycle.
const FiscalYearStart = time.April

// MidMonthCutoff is the last day of a month that still earns that month.
const MidMonthCutoff = 15

var (
	monthsPerYear = decimal.NewFromInt(12)
	halfDay       = decimal.New(5, -1)
	sickRoundUp   = decimal.New(90, -2)
)

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator computes leave entitlements. It holds no state and is safe for
// concurrent use.
type Calculator struct{}

// NewCalculator returns a Calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Compute returns the entitlement for a user who joined on joined, evaluated
// in referenceYear.
func (c *Calculator) Compute(joined Date, referenceYear int, policy AnnualPolicy) Entitlement {
	if joined.Year() < referenceYear {
		return Entitlement{
			Casual: nonNegative(policy.AnnualCasualLeave),
			Sick:   nonNegative(policy.AnnualSickLeave),
		}
	}

	months := decimal.NewFromInt(int64(MonthsRemaining(joined.Month(), joined.Day())))
	casual := prorate(policy.AnnualCasualLeave, months)
	sick := prorate(policy.AnnualSickLeave, months)

	return Entitlement{
		Casual: nonNegative(roundCasual(casual)),
		Sick:   nonNegative(roundSick(sick)),
	}
}

// MonthsRemaining returns how many months of the fiscal year a user joining
// on the given month/day is credited with.
func MonthsRemaining(month time.Month, day int) int {
	m := int(month)
	if month >= FiscalYearStart {
		if day <= MidMonthCutoff {
			return 12 - (m - 4)
		}
		return 12 - (m - 3)
	}
	if day <= MidMonthCutoff {
		return 12 - (m + 8)
	}
	return 12 - (m + 9)
}

// =============================================================================
// ROUNDING
// =============================================================================

// prorate multiplies before dividing so terminating results (x.5, whole
// days) come out exact.
func prorate(annual, months decimal.Decimal) decimal.Decimal {
	return annual.Mul(months).Div(monthsPerYear)
}

func fraction(v decimal.Decimal) decimal.Decimal {
	return v.Sub(v.Floor())
}

func keepAsIs(frac decimal.Decimal) bool {
	return frac.IsZero() || frac.Equal(halfDay)
}

func roundCasual(v decimal.Decimal) decimal.Decimal {
	if keepAsIs(fraction(v)) {
		return v
	}
	return v.Truncate(0)
}

func roundSick(v decimal.Decimal) decimal.Decimal {
	frac := fraction(v)
	if keepAsIs(frac) {
		return v
	}
	floored := v.Floor()
	if frac.GreaterThan(sickRoundUp) {
		return floored.Add(decimal.NewFromInt(1))
	}
	return floored
}

func nonNegative(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
