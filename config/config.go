// Package config loads the per-process configuration: endpoints, signing
// credential and the local risk limits.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL = "https://api.hyperliquid-testnet.xyz"
	DefaultWSURL  = "wss://api.hyperliquid-testnet.xyz/ws"

	// DefaultMaxLeverage applies to symbols without configured limits.
	DefaultMaxLeverage = 10
)

// ErrMissingPrivateKey is returned when no signing credential is configured.
var ErrMissingPrivateKey = errors.New("HYPERLIQUID_PRIVATE_KEY environment variable is required")

// SymbolLimits are the risk limits for one tradable symbol.
type SymbolLimits struct {
	MaxLeverage int             `json:"max_leverage"`
	MaxNotional decimal.Decimal `json:"max_notional"`
	Enabled     bool            `json:"enabled"`
}

// RiskLimits are the global ceilings plus per-symbol overrides. Symbols
// missing from Symbols fall back to DefaultMaxLeverage and
// MaxNotionalPerSymbol, enabled.
type RiskLimits struct {
	MaxNotionalPerOrder  decimal.Decimal         `json:"max_notional_per_order"`
	MaxNotionalPerSymbol decimal.Decimal         `json:"max_notional_per_symbol"`
	Symbols              map[string]SymbolLimits `json:"symbols"`
}

// Config is an immutable snapshot built once at startup.
type Config struct {
	APIURL        string
	WSURL         string
	PrivateKeyHex string
	VaultAddress  string
	RiskLimits    RiskLimits
}

// DefaultRiskLimits returns the built-in limits.
func DefaultRiskLimits() RiskLimits {
	sym := func(lev int, notional int64) SymbolLimits {
		return SymbolLimits{MaxLeverage: lev, MaxNotional: decimal.NewFromInt(notional), Enabled: true}
	}
	return RiskLimits{
		MaxNotionalPerOrder:  decimal.NewFromInt(10000),
		MaxNotionalPerSymbol: decimal.NewFromInt(25000),
		Symbols: map[string]SymbolLimits{
			"BTC":  sym(10, 50000),
			"ETH":  sym(15, 30000),
			"SOL":  sym(20, 20000),
			"ARB":  sym(25, 15000),
			"AVAX": sym(20, 15000),
		},
	}
}

// SymbolLimits returns the configured limits for symbol or the synthesized
// default when the symbol is not configured.
func (r RiskLimits) SymbolLimits(symbol string) SymbolLimits {
	if l, ok := r.Symbols[symbol]; ok {
		return l
	}
	return SymbolLimits{
		MaxLeverage: DefaultMaxLeverage,
		MaxNotional: r.MaxNotionalPerSymbol,
		Enabled:     true,
	}
}

func (r RiskLimits) IsSymbolEnabled(symbol string) bool {
	return r.SymbolLimits(symbol).Enabled
}

func (r RiskLimits) MaxLeverage(symbol string) int {
	return r.SymbolLimits(symbol).MaxLeverage
}

func (r RiskLimits) MaxNotional(symbol string) decimal.Decimal {
	return r.SymbolLimits(symbol).MaxNotional
}

// Validate checks that every limit is usable.
func (r RiskLimits) Validate() error {
	if !r.MaxNotionalPerOrder.IsPositive() {
		return fmt.Errorf("max_notional_per_order must be greater than 0, got %s", r.MaxNotionalPerOrder)
	}
	if !r.MaxNotionalPerSymbol.IsPositive() {
		return fmt.Errorf("max_notional_per_symbol must be greater than 0, got %s", r.MaxNotionalPerSymbol)
	}
	for _, symbol := range r.SymbolNames() {
		l := r.Symbols[symbol]
		if l.MaxLeverage < 1 {
			return fmt.Errorf("%s: max_leverage must be at least 1, got %d", symbol, l.MaxLeverage)
		}
		if !l.MaxNotional.IsPositive() {
			return fmt.Errorf("%s: max_notional must be greater than 0, got %s", symbol, l.MaxNotional)
		}
	}
	return nil
}

// SymbolNames returns the configured symbols in sorted order.
func (r RiskLimits) SymbolNames() []string {
	names := make([]string, 0, len(r.Symbols))
	for s := range r.Symbols {
		names = append(names, s)
	}
	sort.Strings(names)
	return names
}

func (c *Config) SymbolLimits(symbol string) SymbolLimits {
	return c.RiskLimits.SymbolLimits(symbol)
}

func (c *Config) IsSymbolEnabled(symbol string) bool {
	return c.RiskLimits.IsSymbolEnabled(symbol)
}

func (c *Config) MaxLeverage(symbol string) int {
	return c.RiskLimits.MaxLeverage(symbol)
}

func (c *Config) MaxNotional(symbol string) decimal.Decimal {
	return c.RiskLimits.MaxNotional(symbol)
}

// IsMainnet reports whether the API URL points at mainnet.
func (c *Config) IsMainnet() bool {
	return !strings.Contains(strings.ToLower(c.APIURL), "testnet")
}

// Load reads .env (if present) and builds the configuration from the process
// environment.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Overload()
	return LoadFromEnv(os.Getenv)
}

// LoadFromEnv builds the configuration from getenv.
func LoadFromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		APIURL:       envOr(getenv, "HYPERLIQUID_API_URL", DefaultAPIURL),
		WSURL:        envOr(getenv, "HYPERLIQUID_WS_URL", DefaultWSURL),
		VaultAddress: trimSecret(getenv("HYPERLIQUID_VAULT_ADDRESS")),
		RiskLimits:   DefaultRiskLimits(),
	}

	cfg.PrivateKeyHex = trimSecret(getenv("HYPERLIQUID_PRIVATE_KEY"))
	if cfg.PrivateKeyHex == "" {
		cfg.PrivateKeyHex = trimSecret(getenv("PRIVATE_KEY"))
	}
	if cfg.PrivateKeyHex == "" {
		return nil, ErrMissingPrivateKey
	}

	if path := strings.TrimSpace(getenv("RISK_LIMITS_FILE")); path != "" {
		limits, err := LoadRiskLimitsFile(path)
		if err != nil {
			return nil, err
		}
		cfg.RiskLimits = limits
	}

	if err := cfg.RiskLimits.Validate(); err != nil {
		return nil, fmt.Errorf("invalid risk limits: %w", err)
	}
	return cfg, nil
}

type symbolLimitsFile struct {
	MaxLeverage int     `yaml:"max_leverage"`
	MaxNotional float64 `yaml:"max_notional"`
	Enabled     *bool   `yaml:"enabled"`
}

type riskLimitsFile struct {
	MaxNotionalPerOrder  *float64                    `yaml:"max_notional_per_order"`
	MaxNotionalPerSymbol *float64                    `yaml:"max_notional_per_symbol"`
	Symbols              map[string]symbolLimitsFile `yaml:"symbols"`
}

// LoadRiskLimitsFile reads a YAML limits file. Global values missing from the
// file keep their built-in defaults; a symbols section replaces the built-in
// symbol table. Symbols without an explicit enabled flag are enabled.
func LoadRiskLimitsFile(path string) (RiskLimits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RiskLimits{}, fmt.Errorf("failed to read risk limits file: %w", err)
	}
	return ParseRiskLimits(data)
}

// ParseRiskLimits decodes YAML limits on top of DefaultRiskLimits.
func ParseRiskLimits(data []byte) (RiskLimits, error) {
	var raw riskLimitsFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return RiskLimits{}, fmt.Errorf("failed to parse risk limits: %w", err)
	}

	limits := DefaultRiskLimits()
	if raw.MaxNotionalPerOrder != nil {
		limits.MaxNotionalPerOrder = decimal.NewFromFloat(*raw.MaxNotionalPerOrder)
	}
	if raw.MaxNotionalPerSymbol != nil {
		limits.MaxNotionalPerSymbol = decimal.NewFromFloat(*raw.MaxNotionalPerSymbol)
	}
	if raw.Symbols != nil {
		limits.Symbols = make(map[string]SymbolLimits, len(raw.Symbols))
		for symbol, l := range raw.Symbols {
			enabled := true
			if l.Enabled != nil {
				enabled = *l.Enabled
			}
			// Venue symbols are case-sensitive (kPEPE), so keys are kept as written.
			key := strings.TrimSpace(symbol)
			if key == "" {
				return RiskLimits{}, errors.New("risk limits: empty symbol key")
			}
			if _, dup := limits.Symbols[key]; dup {
				return RiskLimits{}, fmt.Errorf("risk limits: duplicate symbol %q", key)
			}
			limits.Symbols[key] = SymbolLimits{
				MaxLeverage: l.MaxLeverage,
				MaxNotional: decimal.NewFromFloat(l.MaxNotional),
				Enabled:     enabled,
			}
		}
	}
	return limits, nil
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return fallback
}

// trimSecret strips whitespace and surrounding quotes left by .env editors.
func trimSecret(v string) string {
	v = strings.TrimSpace(v)
	v = strings.Trim(v, `"'`)
	return strings.TrimSpace(v)
}
