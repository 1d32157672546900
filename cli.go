package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"hyperliquid-trader/config"
	"hyperliquid-trader/execution"
	"hyperliquid-trader/marketdata"
	"hyperliquid-trader/models"
	"hyperliquid-trader/risk"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var errUnknownCommand = errors.New("unknown command")

const usage = `Hyperliquid Trader

Usage: hl <command> [arguments]

Commands:
  status                    Get exchange status
  balances                  Get account balances
  spot                      Get spot markets
  orders                    List open orders
  stream <symbol>           Stream live trades
    -duration <secs>        Stream duration (default: 30)
  buy <symbol> <qty>        Place buy order
    -limit <price>          Limit price (market order if not specified)
    -leverage <n>           Leverage multiplier
    -reduce-only            Reduce only order
    -tif <Gtc|Ioc|Alo>      Time in force (default: Gtc)
    -slippage <frac>        Slippage tolerance for market orders (0.01 = 1%, max 0.1)
    -tick-size <size>       Custom price tick size
  sell <symbol> <qty>       Place sell order (same options as buy)
  cancel <symbol> <id>      Cancel order
  serve                     Start HTTP API server
    -port <port>            Server port (default: 8080)
`

// invocation is a fully validated command line. Building one never touches
// the network.
type invocation struct {
	command  string
	intent   models.OrderIntent
	symbol   string
	orderID  uint64
	duration time.Duration
	port     int
}

func parseCommand(name string, args []string) (invocation, error) {
	inv := invocation{command: name}
	var err error

	switch name {
	case "status", "balances", "spot", "orders":
		_, err = parseFlags(newFlagSet(name), args, 0)
	case "stream":
		inv.symbol, inv.duration, err = parseStreamArgs(args)
	case "buy":
		inv.intent, err = parseOrderArgs(models.SideBuy, args)
		inv.symbol = inv.intent.Symbol
	case "sell":
		inv.intent, err = parseOrderArgs(models.SideSell, args)
		inv.symbol = inv.intent.Symbol
	case "cancel":
		inv.symbol, inv.orderID, err = parseCancelArgs(args)
	case "serve":
		inv.port, err = parseServeArgs(args)
	default:
		return inv, fmt.Errorf("%w: %s", errUnknownCommand, name)
	}
	return inv, err
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parseFlags parses fs allowing flags before, between and after positional
// arguments, and checks the positional count.
func parseFlags(fs *flag.FlagSet, args []string, want int) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			break
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}

	if len(positional) != want {
		return nil, fmt.Errorf("%s expects %d argument(s), got %d", fs.Name(), want, len(positional))
	}
	return positional, nil
}

func parseStreamArgs(args []string) (string, time.Duration, error) {
	fs := newFlagSet("stream")
	seconds := fs.Int("duration", 30, "stream duration in seconds")
	fs.IntVar(seconds, "d", 30, "stream duration in seconds")

	positional, err := parseFlags(fs, args, 1)
	if err != nil {
		return "", 0, err
	}
	if *seconds <= 0 {
		return "", 0, fmt.Errorf("duration must be greater than 0, got %d", *seconds)
	}
	return positional[0], time.Duration(*seconds) * time.Second, nil
}

func parseOrderArgs(side models.Side, args []string) (models.OrderIntent, error) {
	fs := newFlagSet(string(side))
	limit := fs.String("limit", "", "limit price")
	leverage := fs.Int("leverage", 0, "leverage multiplier")
	reduceOnly := fs.Bool("reduce-only", false, "reduce only order")
	tif := fs.String("tif", "Gtc", "time in force")
	slippage := fs.String("slippage", "", "slippage tolerance for market orders")
	tickSize := fs.String("tick-size", "", "price tick size")

	positional, err := parseFlags(fs, args, 2)
	if err != nil {
		return models.OrderIntent{}, err
	}

	qty, err := decimal.NewFromString(positional[1])
	if err != nil {
		return models.OrderIntent{}, fmt.Errorf("invalid quantity %q", positional[1])
	}
	if !qty.IsPositive() {
		return models.OrderIntent{}, fmt.Errorf("quantity must be greater than 0, got %s", qty)
	}
	if *leverage < 0 {
		return models.OrderIntent{}, fmt.Errorf("leverage must be positive, got %d", *leverage)
	}

	timeInForce, err := models.ParseTimeInForce(*tif)
	if err != nil {
		return models.OrderIntent{}, err
	}

	intent := models.OrderIntent{
		Symbol:      positional[0],
		Side:        side,
		Quantity:    qty,
		Leverage:    *leverage,
		ReduceOnly:  *reduceOnly,
		TimeInForce: timeInForce,
	}

	if intent.LimitPrice, err = optionalDecimal("limit", *limit); err != nil {
		return models.OrderIntent{}, err
	}
	if intent.LimitPrice != nil && !intent.LimitPrice.IsPositive() {
		return models.OrderIntent{}, fmt.Errorf("limit price must be greater than 0, got %s", intent.LimitPrice)
	}
	if intent.Slippage, err = optionalDecimal("slippage", *slippage); err != nil {
		return models.OrderIntent{}, err
	}
	if err := models.ValidateSlippage(intent.Slippage); err != nil {
		return models.OrderIntent{}, err
	}
	if intent.TickSize, err = optionalDecimal("tick-size", *tickSize); err != nil {
		return models.OrderIntent{}, err
	}
	if err := models.ValidateTickSize(intent.TickSize); err != nil {
		return models.OrderIntent{}, err
	}
	return intent, nil
}

func optionalDecimal(name, raw string) (*decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid -%s value %q", name, raw)
	}
	return &d, nil
}

func parseCancelArgs(args []string) (string, uint64, error) {
	positional, err := parseFlags(newFlagSet("cancel"), args, 2)
	if err != nil {
		return "", 0, err
	}
	oid, err := strconv.ParseUint(positional[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid order id %q", positional[1])
	}
	return positional[0], oid, nil
}

func parseServeArgs(args []string) (int, error) {
	fs := newFlagSet("serve")
	port := fs.Int("port", 8080, "server port")
	if _, err := parseFlags(fs, args, 0); err != nil {
		return 0, err
	}
	if *port <= 0 || *port > 65535 {
		return 0, fmt.Errorf("invalid port %d", *port)
	}
	return *port, nil
}

// app wires the services one invocation needs.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	out     io.Writer
	info    *execution.InfoService
	gateway *execution.OrderGateway
}

func newApp(cfg *config.Config, logger *zap.Logger, out io.Writer) (*app, error) {
	client, err := execution.NewClient(execution.ConfigFrom(cfg), logger)
	if err != nil {
		return nil, err
	}
	policy := risk.NewPolicy(cfg.RiskLimits, logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		out:     out,
		info:    execution.NewInfoService(client, logger),
		gateway: execution.NewOrderGateway(client, policy, nil, logger),
	}, nil
}

func (a *app) execute(ctx context.Context, inv invocation) error {
	switch inv.command {
	case "status":
		fmt.Fprintln(a.out, "Fetching exchange status...")
		report, err := a.info.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}
		renderStatus(a.out, report, a.cfg.IsMainnet())

	case "balances":
		fmt.Fprintln(a.out, "Fetching account balances...")
		report, err := a.info.Balances(ctx)
		if err != nil {
			return fmt.Errorf("failed to get balances: %w", err)
		}
		renderBalances(a.out, report)

	case "spot":
		fmt.Fprintln(a.out, "Fetching spot markets...")
		report, err := a.info.Spot(ctx)
		if err != nil {
			return fmt.Errorf("failed to get spot markets: %w", err)
		}
		renderSpot(a.out, report)

	case "orders":
		fmt.Fprintln(a.out, "Fetching open orders...")
		orders, err := a.info.OpenOrders(ctx)
		if err != nil {
			return fmt.Errorf("failed to get open orders: %w", err)
		}
		renderOpenOrders(a.out, orders)

	case "stream":
		printer := newStreamPrinter(a.out, a.cfg.IsMainnet())
		session := marketdata.NewStreamSession(marketdata.DefaultStreamConfig(a.cfg.WSURL), printer, a.logger)
		if _, err := session.Run(ctx, inv.symbol, inv.duration); err != nil {
			return fmt.Errorf("stream failed: %w", err)
		}

	case "buy", "sell":
		return a.placeOrder(ctx, inv.intent)

	case "cancel":
		fmt.Fprintf(a.out, "Cancelling order %d for %s\n", inv.orderID, inv.symbol)
		if err := a.gateway.Cancel(ctx, inv.symbol, inv.orderID); err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}
		fmt.Fprintf(a.out, "Order %d cancelled successfully\n", inv.orderID)

	case "serve":
		return runServer(ctx, inv.port, a.info, a.logger, a.out)

	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, inv.command)
	}
	return nil
}

func (a *app) placeOrder(ctx context.Context, intent models.OrderIntent) error {
	if intent.TickSize != nil {
		fmt.Fprintf(a.out, "Using custom tick size: %s\n", intent.TickSize)
	}
	fmt.Fprintf(a.out, "Placing %s order for %s %s\n", orderTypeLabel(intent), intent.Quantity, intent.Symbol)

	outcome, err := a.gateway.Place(ctx, intent)
	if err != nil {
		return fmt.Errorf("failed to place %s order: %w", strings.ToUpper(string(intent.Side)), err)
	}
	renderOutcome(a.out, intent, outcome)
	return nil
}

func orderTypeLabel(intent models.OrderIntent) string {
	if intent.IsMarket() {
		return "MARKET"
	}
	return "LIMIT"
}
