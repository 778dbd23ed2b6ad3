package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/grainvault/internal/domain"
	"github.com/neomorfeo/grainvault/internal/finance"
)

// ValuationService values a customer's stored grain and prices the storage
// and loans built on it.
type ValuationService struct {
	slots  domain.SlotRepository
	prices domain.PriceBook
	now    func() time.Time
}

func NewValuationService(slots domain.SlotRepository, prices domain.PriceBook) *ValuationService {
	return &ValuationService{
		slots:  slots,
		prices: prices,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Holdings lists the customer's allocations across active warehouses in
// grid order.
func (s *ValuationService) Holdings(ctx context.Context, customerID string) ([]domain.Holding, error) {
	if customerID == "" {
		return nil, &domain.InvalidRequestError{Field: "customerId", Reason: "must not be empty"}
	}
	holdings, err := s.slots.CustomerHoldings(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("loading holdings: %w", err)
	}
	return holdings, nil
}

// Customer values everything the customer stores. A non-nil price overrides
// the price book for the dominant grain type.
func (s *ValuationService) Customer(ctx context.Context, customerID string, price *decimal.Decimal) (finance.Valuation, error) {
	holdings, err := s.Holdings(ctx, customerID)
	if err != nil {
		return finance.Valuation{}, err
	}

	allocs := make([]domain.Allocation, 0, len(holdings))
	for _, h := range holdings {
		allocs = append(allocs, h.Allocation)
	}

	var book domain.PriceBook = s.prices
	if price != nil {
		if price.IsNegative() {
			return finance.Valuation{}, &domain.InvalidRequestError{Field: "pricePerQuintal", Reason: "must not be negative"}
		}
		book = finance.FixedPrice(*price)
	}
	return finance.Valuate(ctx, allocs, book)
}

// ChargeLine is the storage bill of one holding.
type ChargeLine struct {
	Holding domain.Holding
	Charges finance.Charges
}

// CustomerCharges is the storage bill across all of a customer's holdings.
type CustomerCharges struct {
	AsOf  time.Time
	Lines []ChargeLine
	Total finance.Charges
}

// Charges bills each holding with its warehouse's pricing up to asOf. A
// zero asOf means now.
func (s *ValuationService) Charges(ctx context.Context, customerID string, asOf time.Time) (CustomerCharges, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}

	holdings, err := s.Holdings(ctx, customerID)
	if err != nil {
		return CustomerCharges{}, err
	}

	out := CustomerCharges{AsOf: asOf, Total: finance.ZeroCharges()}
	for _, h := range holdings {
		c, err := finance.StorageCharges(h.Pricing, h.Allocation.EffectiveWeightKg(), h.Allocation.EntryDate, asOf)
		if err != nil {
			return CustomerCharges{}, fmt.Errorf("charging slot %s: %w", h.Slot.Ref, err)
		}
		out.Lines = append(out.Lines, ChargeLine{Holding: h, Charges: c})
		out.Total = out.Total.Add(c)
	}
	return out, nil
}

// LoanOffer is a repayment schedule for the largest loan the customer's
// grain supports.
type LoanOffer struct {
	Valuation finance.Valuation
	Schedule  finance.LoanSchedule
}

// Quote amortizes an arbitrary principal.
func (s *ValuationService) Quote(principal, annualRate decimal.Decimal, months int) (finance.LoanSchedule, error) {
	return finance.Amortize(principal, annualRate, months)
}

// Offer values the customer's grain and amortizes the eligible loan amount.
func (s *ValuationService) Offer(ctx context.Context, customerID string, annualRate decimal.Decimal, months int, price *decimal.Decimal) (LoanOffer, error) {
	v, err := s.Customer(ctx, customerID, price)
	if err != nil {
		return LoanOffer{}, err
	}
	schedule, err := finance.Amortize(v.EligibleLoanAmount, annualRate, months)
	if err != nil {
		return LoanOffer{}, err
	}
	return LoanOffer{Valuation: v, Schedule: schedule}, nil
}
