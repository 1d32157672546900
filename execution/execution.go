// Package execution talks to the Hyperliquid REST API: signed /exchange
// actions, /info queries and the order gateway built on top of them.
package execution

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"hyperliquid-trader/config"
	"hyperliquid-trader/metrics"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Config configures the REST client.
type Config struct {
	BaseURL       string
	PrivateKeyHex string
	VaultAddress  string
	IsMainnet     bool
	Timeout       time.Duration
	RetryCount    int
}

// DefaultConfig returns client defaults for the testnet API.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    config.DefaultAPIURL,
		Timeout:    30 * time.Second,
		RetryCount: 2,
	}
}

// ConfigFrom derives the client configuration from the process config.
func ConfigFrom(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.BaseURL = cfg.APIURL
	c.PrivateKeyHex = cfg.PrivateKeyHex
	c.VaultAddress = cfg.VaultAddress
	c.IsMainnet = cfg.IsMainnet()
	return c
}

type exchangeRequest struct {
	Action       interface{} `json:"action"`
	Nonce        uint64      `json:"nonce"`
	Signature    Signature   `json:"signature"`
	VaultAddress *string     `json:"vaultAddress"`
}

// Client is the REST client for /info and /exchange.
type Client struct {
	info     *resty.Client
	exchange *resty.Client
	signer   *Signer
	vault    *common.Address
	logger   *zap.Logger

	lastNonce atomic.Uint64
	now       func() time.Time
}

// NewClient builds a client. Info queries are retried; exchange actions are
// not, since a retried action would carry a stale nonce.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg.PrivateKeyHex == "" {
		return nil, config.ErrMissingPrivateKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	signer, err := NewSigner(cfg.PrivateKeyHex, cfg.IsMainnet)
	if err != nil {
		return nil, err
	}

	var vault *common.Address
	if cfg.VaultAddress != "" {
		if !common.IsHexAddress(cfg.VaultAddress) {
			return nil, errors.Errorf("invalid vault address: %s", cfg.VaultAddress)
		}
		addr := common.HexToAddress(cfg.VaultAddress)
		vault = &addr
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	info := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return resp != nil && resp.StatusCode() == 429
		}).
		SetHeader("Content-Type", "application/json")

	exchange := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	logger.Info("Hyperliquid client ready",
		zap.String("base_url", baseURL),
		zap.String("address", signer.Address().Hex()),
		zap.Bool("mainnet", cfg.IsMainnet))

	return &Client{
		info:     info,
		exchange: exchange,
		signer:   signer,
		vault:    vault,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Address is the signing wallet's address.
func (c *Client) Address() common.Address {
	return c.signer.Address()
}

// AccountAddress is the account whose state is queried: the vault when one
// is configured, otherwise the signer.
func (c *Client) AccountAddress() common.Address {
	if c.vault != nil {
		return *c.vault
	}
	return c.signer.Address()
}

// Info posts req to /info and decodes the response into out.
func (c *Client) Info(ctx context.Context, req interface{}, out interface{}) (err error) {
	defer func(started time.Time) { metrics.RecordInfoRequest(err, started) }(time.Now())

	resp, err := c.info.R().
		SetContext(ctx).
		SetBody(req).
		Post("/info")
	if err != nil {
		return errors.Wrap(err, "info request failed")
	}
	if resp.IsError() {
		return errors.Errorf("info request failed: http %d: %s", resp.StatusCode(), resp.String())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return errors.Wrap(err, "failed to parse info response")
	}
	return nil
}

// Exchange signs action and posts it to /exchange. A decoded envelope with
// status "err" is not an error here; callers decide how to treat it.
func (c *Client) Exchange(ctx context.Context, action interface{}) (*ExchangeResponse, error) {
	nonce := c.nextNonce()

	sig, err := c.signer.SignL1Action(action, nonce, c.vault)
	if err != nil {
		return nil, err
	}

	req := exchangeRequest{
		Action:    action,
		Nonce:     nonce,
		Signature: sig,
	}
	if c.vault != nil {
		v := strings.ToLower(c.vault.Hex())
		req.VaultAddress = &v
	}

	resp, err := c.exchange.R().
		SetContext(ctx).
		SetBody(req).
		Post("/exchange")
	if err != nil {
		return nil, errors.Wrap(err, "exchange request failed")
	}
	if resp.IsError() {
		return nil, errors.Errorf("exchange request failed: http %d: %s", resp.StatusCode(), resp.String())
	}

	env, err := decodeEnvelope(resp.Body())
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Exchange response",
		zap.Uint64("nonce", nonce),
		zap.String("status", env.Status))
	return env, nil
}

// nextNonce returns the current unix millis, bumped when needed so nonces
// are strictly increasing within the process.
func (c *Client) nextNonce() uint64 {
	for {
		last := c.lastNonce.Load()
		next := uint64(c.now().UnixMilli())
		if next <= last {
			next = last + 1
		}
		if c.lastNonce.CompareAndSwap(last, next) {
			return next
		}
	}
}
