package execution

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// spotAssetOffset is added to a spot pair index to form its asset id.
const spotAssetOffset = 10000

var (
	// ErrUnknownAsset is returned for symbols the venue does not list.
	ErrUnknownAsset = errors.New("unknown asset")

	errUnexpectedShape = errors.New("unexpected response shape")
)

// AssetInfo is the venue metadata needed to build an order for one symbol.
type AssetInfo struct {
	Symbol      string
	Index       int
	SzDecimals  int
	MaxLeverage int
	IsDelisted  bool
	Spot        bool
}

// ID is the asset id used in exchange actions.
func (a AssetInfo) ID() int {
	if a.Spot {
		return spotAssetOffset + a.Index
	}
	return a.Index
}

func isSpotSymbol(symbol string) bool {
	return strings.Contains(symbol, "/") || strings.HasPrefix(symbol, "@")
}

// AssetDirectory lazily loads and caches perp and spot metadata.
type AssetDirectory struct {
	client *Client

	mu    sync.Mutex
	perps map[string]AssetInfo
	spot  map[string]AssetInfo
}

func NewAssetDirectory(client *Client) *AssetDirectory {
	return &AssetDirectory{client: client}
}

// Lookup resolves symbol to its asset metadata. Spot pairs are addressed by
// their pair name ("PURR/USDC") or "@index".
func (d *AssetDirectory) Lookup(ctx context.Context, symbol string) (AssetInfo, error) {
	if isSpotSymbol(symbol) {
		return d.lookupSpot(ctx, symbol)
	}
	return d.lookupPerp(ctx, symbol)
}

func (d *AssetDirectory) lookupPerp(ctx context.Context, symbol string) (AssetInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.perps == nil {
		var meta perpMetaWire
		if err := d.client.Info(ctx, infoRequest{Type: "meta"}, &meta); err != nil {
			return AssetInfo{}, err
		}
		perps := make(map[string]AssetInfo, len(meta.Universe))
		for i, a := range meta.Universe {
			perps[a.Name] = AssetInfo{
				Symbol:      a.Name,
				Index:       i,
				SzDecimals:  a.SzDecimals,
				MaxLeverage: a.MaxLeverage,
				IsDelisted:  a.IsDelisted,
			}
		}
		d.perps = perps
	}

	info, ok := d.perps[symbol]
	if !ok {
		return AssetInfo{}, fmt.Errorf("%w: %s", ErrUnknownAsset, symbol)
	}
	return info, nil
}

func (d *AssetDirectory) lookupSpot(ctx context.Context, symbol string) (AssetInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.spot == nil {
		var meta spotMetaWire
		if err := d.client.Info(ctx, infoRequest{Type: "spotMeta"}, &meta); err != nil {
			return AssetInfo{}, err
		}
		tokens := make(map[int]spotTokenWire, len(meta.Tokens))
		for _, t := range meta.Tokens {
			tokens[t.Index] = t
		}
		spot := make(map[string]AssetInfo, 2*len(meta.Universe))
		for _, p := range meta.Universe {
			base := tokens[p.Tokens[0]]
			quote := tokens[p.Tokens[1]]
			info := AssetInfo{
				Symbol:     p.Name,
				Index:      p.Index,
				SzDecimals: base.SzDecimals,
				Spot:       true,
			}
			spot["@"+strconv.Itoa(p.Index)] = info
			spot[p.Name] = info
			if base.Name != "" && quote.Name != "" {
				spot[base.Name+"/"+quote.Name] = info
			}
		}
		d.spot = spot
	}

	info, ok := d.spot[symbol]
	if !ok {
		return AssetInfo{}, fmt.Errorf("%w: %s", ErrUnknownAsset, symbol)
	}
	return info, nil
}
