// Package finance derives money figures from stored grain: market valuation,
// storage charges and loan amortization. All amounts are in rupees.
package finance

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/grainvault/internal/domain"
)

// LoanToValue is the fraction of market value offered as a loan ceiling.
var LoanToValue = decimal.RequireFromString("0.60")

var kgPerQuintal = decimal.NewFromInt(100)

// GrainTotal is the bag count held for one grain type.
type GrainTotal struct {
	GrainType string
	Bags      int
	WeightKg  decimal.Decimal
}

// Valuation is the market view of a set of allocations.
type Valuation struct {
	TotalBags             int
	ByGrain               []GrainTotal
	DominantGrainType     string
	TotalWeightKg         decimal.Decimal
	TotalQuintals         decimal.Decimal
	MarketValuePerQuintal decimal.Decimal
	TotalMarketValue      decimal.Decimal
	EligibleLoanAmount    decimal.Decimal
}

// Valuate values allocations at the market price of their dominant grain
// type. The dominant type is the one with the most bags; on a tie the type
// encountered first in allocs wins. No price is looked up for an empty set.
func Valuate(ctx context.Context, allocs []domain.Allocation, prices domain.PriceBook) (Valuation, error) {
	v := Valuation{
		TotalWeightKg:         decimal.Zero,
		TotalQuintals:         decimal.Zero,
		MarketValuePerQuintal: decimal.Zero,
		TotalMarketValue:      decimal.Zero,
		EligibleLoanAmount:    decimal.Zero,
	}

	index := make(map[string]int)
	for _, a := range allocs {
		w := a.EffectiveWeightKg()
		v.TotalBags += a.Bags
		v.TotalWeightKg = v.TotalWeightKg.Add(w)

		i, ok := index[a.GrainType]
		if !ok {
			i = len(v.ByGrain)
			index[a.GrainType] = i
			v.ByGrain = append(v.ByGrain, GrainTotal{GrainType: a.GrainType, WeightKg: decimal.Zero})
		}
		v.ByGrain[i].Bags += a.Bags
		v.ByGrain[i].WeightKg = v.ByGrain[i].WeightKg.Add(w)
	}

	if len(v.ByGrain) == 0 {
		return v, nil
	}

	dominant := v.ByGrain[0]
	for _, g := range v.ByGrain[1:] {
		if g.Bags > dominant.Bags {
			dominant = g
		}
	}
	v.DominantGrainType = dominant.GrainType

	price, err := prices.PricePerQuintal(ctx, dominant.GrainType)
	if err != nil {
		return Valuation{}, err
	}

	v.TotalQuintals = v.TotalWeightKg.Div(kgPerQuintal)
	v.MarketValuePerQuintal = price
	v.TotalMarketValue = v.TotalQuintals.Mul(price)
	v.EligibleLoanAmount = v.TotalMarketValue.Mul(LoanToValue)
	return v, nil
}

// FixedPrice is a PriceBook quoting one price for every grain type. Callers
// use it when the loan officer supplies the market value directly.
type FixedPrice decimal.Decimal

func (p FixedPrice) PricePerQuintal(context.Context, string) (decimal.Decimal, error) {
	return decimal.Decimal(p), nil
}
