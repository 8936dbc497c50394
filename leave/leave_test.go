package leave_test

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/identity-engine/leave"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func days(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	w := decimal.RequireFromString(want)
	assert.Truef(t, w.Equal(got), "expected %s days, got %s", want, got)
}

func date(year int, month time.Month, day int) leave.Date {
	return leave.MustDate(year, month, day)
}

// =============================================================================
// MONTHS REMAINING
// =============================================================================

func TestMonthsRemaining(t *testing.T) {
	tests := []struct {
		name  string
		month time.Month
		day   int
		want  int
	}{
		{"april first half", time.April, 1, 12},
		{"april cutoff day", time.April, 15, 12},
		{"april second half", time.April, 20, 11},
		{"october first half", time.October, 1, 6},
		{"december second half", time.December, 31, 3},
		{"january first half", time.January, 10, 3},
		{"january second half", time.January, 16, 2},
		{"march first half", time.March, 15, 1},
		{"march second half", time.March, 31, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, leave.MonthsRemaining(tt.month, tt.day))
		})
	}
}

func TestMonthsRemaining_NeverNegative(t *testing.T) {
	for m := time.January; m <= time.December; m++ {
		for _, d := range []int{1, 15, 16, 31} {
			assert.GreaterOrEqual(t, leave.MonthsRemaining(m, d), 0, "month %s day %d", m, d)
		}
	}
}

// =============================================================================
// COMPUTE
// =============================================================================

func TestCompute_PriorYearIsFullyVested(t *testing.T) {
	// GIVEN: A user who joined in an earlier calendar year
	// WHEN: Computing in the reference year
	// THEN: The annual policy comes back unchanged, whatever the month

	calc := leave.NewCalculator()
	policy := leave.NewAnnualPolicy(14, 7)

	for _, joined := range []leave.Date{
		date(2019, time.March, 31),
		date(2025, time.December, 20),
		date(2025, time.April, 1),
	} {
		got := calc.Compute(joined, 2026, policy)
		days(t, "14", got.Casual)
		days(t, "7", got.Sick)
	}
}

func TestCompute_WholeDaysUnchanged(t *testing.T) {
	// 12 days/year, joined October 1 -> 6 months -> 6 days each
	got := leave.NewCalculator().Compute(date(2026, time.October, 1), 2026, leave.NewAnnualPolicy(12, 12))

	days(t, "6", got.Casual)
	days(t, "6", got.Sick)
}

func TestCompute_JanuaryFirstHalf(t *testing.T) {
	// Jan 10 -> 12 - (1 + 8) = 3 months of a 12 day policy
	got := leave.NewCalculator().Compute(date(2026, time.January, 10), 2026, leave.NewAnnualPolicy(12, 12))

	days(t, "3", got.Casual)
	days(t, "3", got.Sick)
}

func TestCompute_AprilSecondHalf(t *testing.T) {
	// Apr 20 -> 12 - (4 - 3) = 11 months
	got := leave.NewCalculator().Compute(date(2026, time.April, 20), 2026, leave.NewAnnualPolicy(12, 24))

	days(t, "11", got.Casual)
	days(t, "22", got.Sick)
}

func TestCompute_FractionDropped(t *testing.T) {
	// GIVEN: 10 days/year and 7 months remaining (joined Sep 10)
	// WHEN: raw = 70/12 = 5.8333
	// THEN: casual truncates to 5, sick floors to 5 (0.83 is not above 0.90)

	got := leave.NewCalculator().Compute(date(2026, time.September, 10), 2026, leave.NewAnnualPolicy(10, 10))

	days(t, "5", got.Casual)
	days(t, "5", got.Sick)
}

func TestCompute_SickRoundsUpAboveNinetyPercent(t *testing.T) {
	// GIVEN: 11.9 days/year and 6 months remaining (joined Oct 1)
	// WHEN: raw = 5.95
	// THEN: sick rounds up to 6, casual still drops the fraction

	got := leave.NewCalculator().Compute(date(2026, time.October, 1), 2026, leave.NewAnnualPolicy(11.9, 11.9))

	days(t, "5", got.Casual)
	days(t, "6", got.Sick)
}

func TestCompute_HalfDayKept(t *testing.T) {
	// 11 days/year, 6 months -> 5.5 for both
	got := leave.NewCalculator().Compute(date(2026, time.October, 15), 2026, leave.NewAnnualPolicy(11, 11))

	days(t, "5.5", got.Casual)
	days(t, "5.5", got.Sick)
}

func TestCompute_HalfDayExactAfterRepeatingDivision(t *testing.T) {
	// 14 days/year, 9 months -> 14/12 repeats but 126/12 = 10.5 exactly
	got := leave.NewCalculator().Compute(date(2026, time.July, 1), 2026, leave.NewAnnualPolicy(14, 14))

	days(t, "10.5", got.Casual)
	days(t, "10.5", got.Sick)
}

func TestCompute_FutureYearIsProrated(t *testing.T) {
	// Joining years after the reference year follow the proration branch.
	got := leave.NewCalculator().Compute(date(2030, time.April, 1), 2026, leave.NewAnnualPolicy(12, 6))

	days(t, "12", got.Casual)
	days(t, "6", got.Sick)
}

func TestCompute_LateMarchEarnsNothing(t *testing.T) {
	got := leave.NewCalculator().Compute(date(2026, time.March, 20), 2026, leave.NewAnnualPolicy(12, 12))

	days(t, "0", got.Casual)
	days(t, "0", got.Sick)
}

func TestCompute_NeverNegative(t *testing.T) {
	// A misconfigured negative policy still yields no negative balance.
	policy := leave.AnnualPolicy{
		AnnualCasualLeave: decimal.NewFromInt(-12),
		AnnualSickLeave:   decimal.NewFromInt(-6),
	}
	calc := leave.NewCalculator()

	prorated := calc.Compute(date(2026, time.May, 1), 2026, policy)
	vested := calc.Compute(date(2020, time.May, 1), 2026, policy)

	for _, e := range []leave.Entitlement{prorated, vested} {
		assert.False(t, e.Casual.IsNegative(), e.String())
		assert.False(t, e.Sick.IsNegative(), e.String())
	}
}

func TestCompute_ConcurrentCallsAgree(t *testing.T) {
	calc := leave.NewCalculator()
	policy := leave.NewAnnualPolicy(10, 10)
	joined := date(2026, time.September, 10)

	var wg sync.WaitGroup
	results := make([]leave.Entitlement, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = calc.Compute(joined, 2026, policy)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		days(t, "5", r.Casual)
		days(t, "5", r.Sick)
	}
}

// =============================================================================
// DATE
// =============================================================================

func TestNewDate_RejectsOutOfRange(t *testing.T) {
	_, err := leave.NewDate(2026, time.February, 30)
	require.Error(t, err)

	_, err = leave.NewDate(2026, time.Month(13), 1)
	require.Error(t, err)

	d, err := leave.NewDate(2024, time.February, 29)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d.String())
}

func TestParseDate(t *testing.T) {
	d, err := leave.ParseDate("2026-04-16")
	require.NoError(t, err)
	assert.Equal(t, 2026, d.Year())
	assert.Equal(t, time.April, d.Month())
	assert.Equal(t, 16, d.Day())

	_, err = leave.ParseDate("16/04/2026")
	assert.Error(t, err)
}
