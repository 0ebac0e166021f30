package amortization

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]interface{}{"want %s, got %s", want, got}, msgAndArgs...)...)
}

func TestGenerate_ZeroRateStraightLine(t *testing.T) {
	schedule, err := Generate(LoanTerms{
		Principal:         d("1000"),
		AnnualRatePercent: decimal.Zero,
		TermMonths:        12,
		PaymentsPerYear:   12,
		DisbursementDate:  day(2024, time.January, 1),
	})
	require.NoError(t, err)
	require.Len(t, schedule, 12)

	for i, inst := range schedule {
		assert.Equal(t, i+1, inst.Period)
		assertDecimal(t, "83.33", inst.ScheduledPayment)
		assert.True(t, inst.Interest.IsZero(), "period %d interest %s", inst.Period, inst.Interest)
		assertDecimal(t, "83.33", inst.Principal)
	}
	assert.Equal(t, day(2024, time.February, 1), schedule[0].DueDate)
	assert.Equal(t, day(2025, time.January, 1), schedule[11].DueDate)
	assertDecimal(t, "916.67", schedule[0].Balance)
	assertDecimal(t, "0.04", schedule[11].Balance)
}

func TestGenerate_AnnuityFirstPeriod(t *testing.T) {
	schedule, err := Generate(LoanTerms{
		Principal:         d("1200"),
		AnnualRatePercent: d("12"),
		TermMonths:        12,
		PaymentsPerYear:   12,
		DisbursementDate:  day(2024, time.January, 1),
	})
	require.NoError(t, err)
	require.Len(t, schedule, 12)

	first := schedule[0]
	assertDecimal(t, "106.62", first.ScheduledPayment)
	assertDecimal(t, "12.00", first.Interest)
	assertDecimal(t, "94.62", first.Principal)
	assertDecimal(t, "1105.38", first.Balance)

	second := schedule[1]
	assertDecimal(t, "11.05", second.Interest)
	assertDecimal(t, "95.57", second.Principal)
	assertDecimal(t, "1009.81", second.Balance)

	assert.True(t, schedule[11].Balance.IsZero(), "final balance %s", schedule[11].Balance)
	for _, inst := range schedule {
		assert.True(t, inst.Interest.Add(inst.Principal).Equal(inst.ScheduledPayment))
	}
}

func TestGenerate_Quarterly(t *testing.T) {
	schedule, err := Generate(LoanTerms{
		Principal:         d("5000"),
		AnnualRatePercent: d("10"),
		TermMonths:        12,
		PaymentsPerYear:   4,
		DisbursementDate:  day(2024, time.January, 15),
	})
	require.NoError(t, err)
	require.Len(t, schedule, 4)

	assertDecimal(t, "1329.09", schedule[0].ScheduledPayment)
	assertDecimal(t, "125.00", schedule[0].Interest)
	assertDecimal(t, "3795.91", schedule[0].Balance)
	assert.Equal(t, day(2024, time.April, 15), schedule[0].DueDate)
	assert.Equal(t, day(2024, time.July, 15), schedule[1].DueDate)
	assert.Equal(t, day(2025, time.January, 15), schedule[3].DueDate)
	assert.True(t, schedule[3].Balance.IsZero())
}

func TestGenerate_BalanceNonIncreasing(t *testing.T) {
	cases := []LoanTerms{
		{Principal: d("1000"), AnnualRatePercent: d("0"), TermMonths: 12, PaymentsPerYear: 12},
		{Principal: d("10000"), AnnualRatePercent: d("8"), TermMonths: 12, PaymentsPerYear: 12},
		{Principal: d("2500.50"), AnnualRatePercent: d("36"), TermMonths: 24, PaymentsPerYear: 2},
		{Principal: d("750"), AnnualRatePercent: d("18.5"), TermMonths: 60, PaymentsPerYear: 1},
		{Principal: d("100000"), AnnualRatePercent: d("5"), TermMonths: 360, PaymentsPerYear: 12},
	}
	for _, terms := range cases {
		terms.DisbursementDate = day(2023, time.March, 10)
		t.Run(terms.Principal.String()+"@"+terms.AnnualRatePercent.String(), func(t *testing.T) {
			schedule, err := Generate(terms)
			require.NoError(t, err)
			require.Len(t, schedule, TotalPayments(terms.TermMonths, terms.PaymentsPerYear))

			prev := terms.Principal
			for _, inst := range schedule {
				assert.True(t, inst.Balance.LessThanOrEqual(prev), "period %d balance %s > %s", inst.Period, inst.Balance, prev)
				assert.False(t, inst.Balance.IsNegative())
				prev = inst.Balance
			}
			tolerance := decimal.NewFromFloat(0.01).Mul(decimal.NewFromInt(int64(len(schedule))))
			assert.True(t, schedule[len(schedule)-1].Balance.LessThanOrEqual(tolerance),
				"final balance %s exceeds drift tolerance %s", schedule[len(schedule)-1].Balance, tolerance)
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	terms := LoanTerms{
		Principal:         d("8765.43"),
		AnnualRatePercent: d("14.25"),
		TermMonths:        18,
		PaymentsPerYear:   12,
		DisbursementDate:  day(2024, time.May, 31),
	}
	a, err := Generate(terms)
	require.NoError(t, err)
	b, err := Generate(terms)
	require.NoError(t, err)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].DueDate, b[i].DueDate)
		assert.Equal(t, a[i].ScheduledPayment.String(), b[i].ScheduledPayment.String())
		assert.Equal(t, a[i].Interest.String(), b[i].Interest.String())
		assert.Equal(t, a[i].Principal.String(), b[i].Principal.String())
		assert.Equal(t, a[i].Balance.String(), b[i].Balance.String())
	}
}

func TestGenerate_MonthEndClamping(t *testing.T) {
	schedule, err := Generate(LoanTerms{
		Principal:         d("300"),
		AnnualRatePercent: decimal.Zero,
		TermMonths:        3,
		PaymentsPerYear:   12,
		DisbursementDate:  time.Date(2024, time.January, 31, 15, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, schedule, 3)
	assert.Equal(t, day(2024, time.February, 29), schedule[0].DueDate)
	assert.Equal(t, day(2024, time.March, 31), schedule[1].DueDate)
	assert.Equal(t, day(2024, time.April, 30), schedule[2].DueDate)
}

func TestGenerate_DueDatePolicies(t *testing.T) {
	terms := LoanTerms{
		Principal:         d("1000"),
		AnnualRatePercent: d("6"),
		TermMonths:        12,
		PaymentsPerYear:   2,
		DisbursementDate:  day(2023, time.January, 1),
	}

	calendar, err := GenerateWithOptions(terms, Options{DueDates: CalendarMonths})
	require.NoError(t, err)
	fixed, err := GenerateWithOptions(terms, Options{DueDates: FixedDays365})
	require.NoError(t, err)

	assert.Equal(t, day(2023, time.July, 1), calendar[0].DueDate)
	assert.Equal(t, day(2024, time.January, 1), calendar[1].DueDate)
	assert.Equal(t, day(2023, time.July, 2), fixed[0].DueDate)
	assert.Equal(t, day(2024, time.January, 1), fixed[1].DueDate)

	for i := range calendar {
		assert.True(t, calendar[i].ScheduledPayment.Equal(fixed[i].ScheduledPayment))
		assert.True(t, calendar[i].Balance.Equal(fixed[i].Balance))
	}
}

func TestGenerate_FixedDaysAcceptsAnyFrequency(t *testing.T) {
	schedule, err := GenerateWithOptions(LoanTerms{
		Principal:         d("520"),
		AnnualRatePercent: decimal.Zero,
		TermMonths:        3,
		PaymentsPerYear:   52,
		DisbursementDate:  day(2024, time.January, 1),
	}, Options{DueDates: FixedDays365})
	require.NoError(t, err)
	require.Len(t, schedule, 13)
	assert.Equal(t, day(2024, time.January, 8), schedule[0].DueDate)
	assertDecimal(t, "40", schedule[0].ScheduledPayment)
}

func TestGenerate_InvalidInput(t *testing.T) {
	valid := LoanTerms{
		Principal:         d("1000"),
		AnnualRatePercent: d("10"),
		TermMonths:        12,
		PaymentsPerYear:   12,
		DisbursementDate:  day(2024, time.January, 1),
	}
	tests := []struct {
		name   string
		mutate func(*LoanTerms)
		field  string
	}{
		{"zero principal", func(l *LoanTerms) { l.Principal = decimal.Zero }, "principal"},
		{"negative principal", func(l *LoanTerms) { l.Principal = d("-5") }, "principal"},
		{"negative rate", func(l *LoanTerms) { l.AnnualRatePercent = d("-1") }, "annual_rate_percent"},
		{"zero term", func(l *LoanTerms) { l.TermMonths = 0 }, "term_months"},
		{"term over a century", func(l *LoanTerms) { l.TermMonths = MaxTermMonths + 1 }, "term_months"},
		{"huge term", func(l *LoanTerms) { l.TermMonths = 2000000000 }, "term_months"},
		{"frequency above daily", func(l *LoanTerms) { l.PaymentsPerYear = 1 << 40 }, "payments_per_year"},
		{"zero frequency", func(l *LoanTerms) { l.PaymentsPerYear = 0 }, "payments_per_year"},
		{"non calendar frequency", func(l *LoanTerms) { l.PaymentsPerYear = 24 }, "payments_per_year"},
		{"missing disbursement", func(l *LoanTerms) { l.DisbursementDate = time.Time{} }, "disbursement_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms := valid
			tt.mutate(&terms)
			schedule, err := Generate(terms)
			assert.Nil(t, schedule)
			var inputErr *InvalidInputError
			require.True(t, errors.As(err, &inputErr), "got %v", err)
			assert.Equal(t, tt.field, inputErr.Field)
		})
	}
}

func TestGenerate_LongestTerm(t *testing.T) {
	schedule, err := GenerateWithOptions(LoanTerms{
		Principal:         d("1000"),
		AnnualRatePercent: d("10"),
		TermMonths:        MaxTermMonths,
		PaymentsPerYear:   MaxPaymentsPerYear,
		DisbursementDate:  day(2024, time.January, 1),
	}, Options{DueDates: FixedDays365})
	require.NoError(t, err)
	assert.Len(t, schedule, MaxTermMonths*MaxPaymentsPerYear/12)
}

func TestValidate_CalendarFrequencyPointsToFixedDays(t *testing.T) {
	err := Validate(LoanTerms{
		Principal:         d("1000"),
		AnnualRatePercent: d("10"),
		TermMonths:        12,
		PaymentsPerYear:   52,
		DisbursementDate:  day(2024, time.January, 1),
	})
	var inputErr *InvalidInputError
	require.True(t, errors.As(err, &inputErr), "got %v", err)
	assert.Contains(t, inputErr.Reason, "fixed_365")
}

func TestGenerate_InvalidTerm(t *testing.T) {
	tests := []struct {
		term, perYear int
	}{
		{term: 1, perYear: 1},
		{term: 2, perYear: 4},
		{term: 5, perYear: 2},
	}
	for _, tt := range tests {
		schedule, err := Generate(LoanTerms{
			Principal:         d("1000"),
			AnnualRatePercent: d("10"),
			TermMonths:        tt.term,
			PaymentsPerYear:   tt.perYear,
			DisbursementDate:  day(2024, time.January, 1),
		})
		assert.Nil(t, schedule)
		var termErr *InvalidTermError
		require.True(t, errors.As(err, &termErr), "got %v", err)
		assert.Equal(t, tt.term, termErr.TermMonths)
		assert.Equal(t, tt.perYear, termErr.PaymentsPerYear)
	}
}

func TestParseDueDatePolicy(t *testing.T) {
	p, ok := ParseDueDatePolicy("")
	assert.True(t, ok)
	assert.Equal(t, CalendarMonths, p)

	p, ok = ParseDueDatePolicy("fixed_365")
	assert.True(t, ok)
	assert.Equal(t, FixedDays365, p)
	assert.Equal(t, "fixed_365", p.String())

	_, ok = ParseDueDatePolicy("weekly")
	assert.False(t, ok)
}

func TestSchedule_Totals(t *testing.T) {
	schedule, err := Generate(LoanTerms{
		Principal:         d("1200"),
		AnnualRatePercent: d("12"),
		TermMonths:        12,
		PaymentsPerYear:   12,
		DisbursementDate:  day(2024, time.January, 1),
	})
	require.NoError(t, err)
	assertDecimal(t, "1279.44", schedule.TotalScheduled())
	assert.True(t, schedule.TotalInterest().Add(schedule.TotalPrincipal()).Equal(schedule.TotalScheduled()))
	assert.True(t, schedule.TotalPrincipal().Sub(d("1200")).Abs().LessThanOrEqual(d("0.12")))
}
