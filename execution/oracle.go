package execution

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNoPrice is returned when the venue has no reference price for a symbol.
var ErrNoPrice = errors.New("no reference price")

// PriceOracle resolves a symbol's current reference price.
type PriceOracle interface {
	ReferencePrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// MidsOracle prices symbols from the venue's allMids snapshot.
type MidsOracle struct {
	client *Client
}

func NewMidsOracle(client *Client) *MidsOracle {
	return &MidsOracle{client: client}
}

func (o *MidsOracle) ReferencePrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var mids map[string]string
	if err := o.client.Info(ctx, infoRequest{Type: "allMids"}, &mids); err != nil {
		return decimal.Zero, err
	}
	raw, ok := mids[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w for %s", ErrNoPrice, symbol)
	}
	px, err := decimal.NewFromString(raw)
	if err != nil || !px.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w for %s: %q", ErrNoPrice, symbol, raw)
	}
	return px, nil
}
