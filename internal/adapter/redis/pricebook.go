// Package redis serves market prices from Redis so operators can update them
// without a redeploy.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/neomorfeo/grainvault/internal/domain"
)

const keyPrefix = "grainvault:price:"

var _ domain.PriceBook = (*PriceBook)(nil)

// PriceBook reads rupees per quintal from keys of the form
// grainvault:price:<grain>. Grains without a key are looked up in the
// fallback book, if any.
type PriceBook struct {
	client   goredis.UniversalClient
	fallback domain.PriceBook
}

// NewPriceBook wraps an existing client. fallback may be nil.
func NewPriceBook(client goredis.UniversalClient, fallback domain.PriceBook) *PriceBook {
	return &PriceBook{client: client, fallback: fallback}
}

// NewClient connects to addr and checks the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}

func priceKey(grainType string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(grainType))
}

func (b *PriceBook) PricePerQuintal(ctx context.Context, grainType string) (decimal.Decimal, error) {
	raw, err := b.client.Get(ctx, priceKey(grainType)).Result()
	if errors.Is(err, goredis.Nil) {
		if b.fallback != nil {
			return b.fallback.PricePerQuintal(ctx, grainType)
		}
		return decimal.Zero, &domain.PriceNotFoundError{GrainType: grainType}
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("reading price for %q: %w", grainType, err)
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing price for %q: %w", grainType, err)
	}
	return price, nil
}

// SetPrice stores the price for a grain type. Negative prices are rejected.
func (b *PriceBook) SetPrice(ctx context.Context, grainType string, price decimal.Decimal) error {
	if price.IsNegative() {
		return &domain.InvalidRequestError{Field: "price", Reason: "must not be negative"}
	}
	if err := b.client.Set(ctx, priceKey(grainType), price.String(), 0).Err(); err != nil {
		return fmt.Errorf("storing price for %q: %w", grainType, err)
	}
	return nil
}
