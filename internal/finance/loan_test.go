package finance_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/grainvault/internal/finance"
)

func TestAmortize_TwelvePercentOverAYear(t *testing.T) {
	s, err := finance.Amortize(decimal.NewFromInt(36000), decimal.RequireFromString("0.12"), 12)
	if err != nil {
		t.Fatalf("Amortize: %v", err)
	}

	if !s.MonthlyRate.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("MonthlyRate = %s, want 0.01", s.MonthlyRate)
	}
	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"EMI", s.EMI, "3198.56"},
		{"TotalRepayment", s.TotalRepayment, "38382.68"},
		{"TotalInterest", s.TotalInterest, "2382.68"},
	}
	for _, c := range checks {
		if got := c.got.StringFixed(2); got != c.want {
			t.Errorf("%s = %s, want %s", c.name, got, c.want)
		}
	}

	if len(s.Installments) != 12 {
		t.Fatalf("got %d installments, want 12", len(s.Installments))
	}
	first := s.Installments[0]
	if got := first.Interest.StringFixed(2); got != "360.00" {
		t.Errorf("first interest = %s, want 360.00", got)
	}
	last := s.Installments[11]
	if !last.Balance.IsZero() {
		t.Errorf("final balance = %s, want 0", last.Balance)
	}

	paid := decimal.Zero
	for _, in := range s.Installments {
		paid = paid.Add(in.Principal)
	}
	if got := paid.StringFixed(2); got != "36000.00" {
		t.Errorf("principal repaid = %s, want 36000.00", got)
	}
}

func TestAmortize_ZeroRate(t *testing.T) {
	s, err := finance.Amortize(decimal.NewFromInt(1200), decimal.Zero, 12)
	if err != nil {
		t.Fatalf("Amortize: %v", err)
	}
	if !s.EMI.Equal(decimal.NewFromInt(100)) {
		t.Errorf("EMI = %s, want 100", s.EMI)
	}
	if !s.TotalInterest.IsZero() {
		t.Errorf("TotalInterest = %s, want 0", s.TotalInterest)
	}
}

func TestAmortize_InvalidParameters(t *testing.T) {
	cases := []struct {
		name      string
		principal decimal.Decimal
		rate      decimal.Decimal
		months    int
		field     string
	}{
		{"zero principal", decimal.Zero, decimal.RequireFromString("0.1"), 12, "principal"},
		{"negative principal", decimal.NewFromInt(-5), decimal.RequireFromString("0.1"), 12, "principal"},
		{"negative rate", decimal.NewFromInt(100), decimal.RequireFromString("-0.01"), 12, "annualRate"},
		{"zero term", decimal.NewFromInt(100), decimal.RequireFromString("0.1"), 0, "termMonths"},
		{"term too long", decimal.NewFromInt(100), decimal.RequireFromString("0.1"), 121, "termMonths"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := finance.Amortize(tc.principal, tc.rate, tc.months)
			var loanErr *finance.InvalidLoanParametersError
			if !errors.As(err, &loanErr) {
				t.Fatalf("expected InvalidLoanParametersError, got %v", err)
			}
			if loanErr.Field != tc.field {
				t.Errorf("Field = %q, want %q", loanErr.Field, tc.field)
			}
		})
	}
}

func TestAmortize_LongestTerm(t *testing.T) {
	s, err := finance.Amortize(decimal.NewFromInt(100000), decimal.RequireFromString("0.09"), finance.MaxTermMonths)
	if err != nil {
		t.Fatalf("Amortize() error = %v", err)
	}
	if len(s.Installments) != finance.MaxTermMonths {
		t.Errorf("len(Installments) = %d, want %d", len(s.Installments), finance.MaxTermMonths)
	}
	if last := s.Installments[len(s.Installments)-1]; !last.Balance.IsZero() {
		t.Errorf("final balance = %s, want 0", last.Balance)
	}
}
