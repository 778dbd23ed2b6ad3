package memory

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/grainvault/internal/domain"
)

var _ domain.PriceBook = PriceBook(nil)

// PriceBook is a fixed table of market prices in rupees per quintal, keyed
// by lower-case grain type.
type PriceBook map[string]decimal.Decimal

// DefaultPrices returns the reference market prices.
func DefaultPrices() PriceBook {
	return PriceBook{
		"rice":    decimal.NewFromInt(1500),
		"wheat":   decimal.NewFromInt(1200),
		"maize":   decimal.NewFromInt(1100),
		"barley":  decimal.NewFromInt(1300),
		"millet":  decimal.NewFromInt(1400),
		"sorghum": decimal.NewFromInt(1250),
		"pulses":  decimal.NewFromInt(1800),
		"other":   decimal.NewFromInt(1000),
	}
}

func (p PriceBook) PricePerQuintal(_ context.Context, grainType string) (decimal.Decimal, error) {
	price, ok := p[strings.ToLower(strings.TrimSpace(grainType))]
	if !ok {
		return decimal.Zero, &domain.PriceNotFoundError{GrainType: grainType}
	}
	return price, nil
}
