package finance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxTermMonths is the longest repayment term offered, ten years.
const MaxTermMonths = 120

// compoundPrecision bounds the digits kept while compounding the monthly rate.
const compoundPrecision = 24

// InvalidLoanParametersError is returned for a non-positive principal or
// term, or a negative rate.
type InvalidLoanParametersError struct {
	Field  string
	Reason string
}

func (e *InvalidLoanParametersError) Error() string {
	return fmt.Sprintf("invalid loan parameters: %s %s", e.Field, e.Reason)
}

// Installment is one row of the repayment schedule.
type Installment struct {
	Month     int
	EMI       decimal.Decimal
	Interest  decimal.Decimal
	Principal decimal.Decimal
	Balance   decimal.Decimal
}

// LoanSchedule is the amortization of a fixed-rate loan.
type LoanSchedule struct {
	Principal      decimal.Decimal
	AnnualRate     decimal.Decimal
	TermMonths     int
	MonthlyRate    decimal.Decimal
	EMI            decimal.Decimal
	TotalRepayment decimal.Decimal
	TotalInterest  decimal.Decimal
	Installments   []Installment
}

// Amortize computes the equated monthly installment for principal at
// annualRate (a fraction, 0.12 for 12%) over months, and the month-by-month
// split of each installment into interest and principal.
func Amortize(principal, annualRate decimal.Decimal, months int) (LoanSchedule, error) {
	switch {
	case !principal.IsPositive():
		return LoanSchedule{}, &InvalidLoanParametersError{Field: "principal", Reason: "must be positive"}
	case annualRate.IsNegative():
		return LoanSchedule{}, &InvalidLoanParametersError{Field: "annualRate", Reason: "must not be negative"}
	case months <= 0:
		return LoanSchedule{}, &InvalidLoanParametersError{Field: "termMonths", Reason: "must be positive"}
	case months > MaxTermMonths:
		return LoanSchedule{}, &InvalidLoanParametersError{Field: "termMonths", Reason: fmt.Sprintf("must not exceed %d", MaxTermMonths)}
	}

	n := decimal.NewFromInt(int64(months))
	monthlyRate := annualRate.Div(decimal.NewFromInt(12))

	var emi decimal.Decimal
	if monthlyRate.IsZero() {
		emi = principal.Div(n)
	} else {
		growth := decimal.NewFromInt(1)
		onePlus := monthlyRate.Add(decimal.NewFromInt(1))
		for range months {
			growth = growth.Mul(onePlus).Round(compoundPrecision)
		}
		emi = principal.Mul(monthlyRate).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1)))
	}

	total := emi.Mul(n)
	schedule := LoanSchedule{
		Principal:      principal,
		AnnualRate:     annualRate,
		TermMonths:     months,
		MonthlyRate:    monthlyRate,
		EMI:            emi,
		TotalRepayment: total,
		TotalInterest:  total.Sub(principal),
		Installments:   make([]Installment, 0, months),
	}

	balance := principal
	for m := 1; m <= months; m++ {
		interest := balance.Mul(monthlyRate)
		part := emi.Sub(interest)
		balance = balance.Sub(part)
		if m == months {
			// Absorb the rounding residue so the loan closes at zero.
			part = part.Add(balance)
			balance = decimal.Zero
		}
		schedule.Installments = append(schedule.Installments, Installment{
			Month:     m,
			EMI:       emi,
			Interest:  interest,
			Principal: part,
			Balance:   balance,
		})
	}

	return schedule, nil
}
