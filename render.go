package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"hyperliquid-trader/marketdata"
	"hyperliquid-trader/models"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
)

// Rows shown per table before the "... and N more" line.
const maxRows = 10

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	buyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	sellStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("238"))).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func box(title string, lines ...string) string {
	body := append([]string{titleStyle.Render(title)}, lines...)
	return boxStyle.Render(strings.Join(body, "\n"))
}

func networkName(mainnet bool) string {
	if mainnet {
		return "MAINNET"
	}
	return "TESTNET"
}

func usd(d decimal.Decimal, places int32) string {
	return "$" + d.StringFixed(places)
}

func moreLine(w io.Writer, total int, noun string) {
	if total > maxRows {
		fmt.Fprintf(w, "... and %d more %s\n", total-maxRows, noun)
	}
}

func renderStatus(w io.Writer, report *models.StatusReport, mainnet bool) {
	fmt.Fprintln(w, box(
		fmt.Sprintf("HYPERLIQUID %s STATUS", networkName(mainnet)),
		fmt.Sprintf("Available Markets: %d", report.TotalMarkets),
	))

	t := newTable("SYMBOL", "MARK PRICE", "24H VOLUME", "FUNDING", "MAX LEV", "OPEN INTEREST")
	for i, m := range report.Markets {
		if i == maxRows {
			break
		}
		t.Row(
			m.Symbol,
			usd(m.MarkPrice, 4),
			usd(m.Volume24h, 0),
			m.FundingRate.StringFixed(6),
			strconv.Itoa(m.MaxLeverage)+"x",
			m.OpenInterest.StringFixed(2),
		)
	}
	fmt.Fprintln(w, t.String())
	moreLine(w, len(report.Markets), "markets")
	fmt.Fprintln(w, successStyle.Render("Status retrieved successfully!"))
}

func renderBalances(w io.Writer, report *models.BalanceReport) {
	fmt.Fprintln(w, box("ACCOUNT SUMMARY",
		"Account Value: "+usd(report.AccountValue, 2),
		"Withdrawable: "+usd(report.Withdrawable, 2),
		"Cross Margin Used: "+usd(report.CrossMarginUsed, 2),
	))

	if len(report.Positions) == 0 {
		fmt.Fprintln(w, "No open positions")
	} else {
		t := newTable("SYMBOL", "SIZE", "ENTRY", "LEV", "VALUE", "UNREALIZED PNL")
		for _, p := range report.Positions {
			pnl := usd(p.UnrealizedPnL, 2)
			if p.UnrealizedPnL.IsNegative() {
				pnl = sellStyle.Render(pnl)
			} else {
				pnl = buyStyle.Render(pnl)
			}
			t.Row(
				p.Symbol,
				p.Size.String(),
				usd(p.EntryPrice, 4),
				strconv.Itoa(p.Leverage)+"x",
				usd(p.PositionValue, 2),
				pnl,
			)
		}
		fmt.Fprintln(w, t.String())
	}
	fmt.Fprintln(w, successStyle.Render("Balances retrieved successfully!"))
}

func renderSpot(w io.Writer, report *models.SpotReport) {
	fmt.Fprintln(w, box("SPOT MARKETS",
		fmt.Sprintf("Available Tokens: %d", len(report.Tokens)),
		fmt.Sprintf("Trading Pairs: %d", len(report.Pairs)),
	))

	tokens := newTable("NAME", "DECIMALS", "TOKEN ID")
	for i, tok := range report.Tokens {
		if i == maxRows {
			break
		}
		tokens.Row(tok.Name, strconv.Itoa(tok.Decimals), tok.TokenID)
	}
	fmt.Fprintln(w, tokens.String())
	moreLine(w, len(report.Tokens), "tokens")

	pairs := newTable("PAIR", "MARK PRICE", "MID PRICE", "24H VOLUME")
	for i, p := range report.Pairs {
		if i == maxRows {
			break
		}
		pairs.Row(p.Name, usd(p.MarkPrice, 6), usd(p.MidPrice, 6), usd(p.Volume24h, 0))
	}
	fmt.Fprintln(w, pairs.String())
	moreLine(w, len(report.Pairs), "pairs")
	fmt.Fprintln(w, successStyle.Render("Spot markets retrieved successfully!"))
}

func renderOpenOrders(w io.Writer, orders []models.OpenOrder) {
	if len(orders) == 0 {
		fmt.Fprintln(w, "No open orders")
		return
	}

	t := newTable("ORDER ID", "SYMBOL", "SIDE", "PRICE", "SIZE", "PLACED")
	for _, o := range orders {
		t.Row(
			strconv.FormatUint(o.OrderID, 10),
			o.Symbol,
			sideLabel(o.Side),
			usd(o.Price, 4),
			o.Size.String(),
			o.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		)
	}
	fmt.Fprintln(w, t.String())
	fmt.Fprintf(w, "%d open order(s)\n", len(orders))
}

func sideLabel(side models.Side) string {
	if side.IsBuy() {
		return buyStyle.Render("BUY")
	}
	return sellStyle.Render("SELL")
}

func renderOutcome(w io.Writer, intent models.OrderIntent, outcome models.OrderOutcome) {
	lines := []string{
		fmt.Sprintf("Type: %s %s", orderTypeLabel(intent), strings.ToUpper(string(intent.Side))),
		"Symbol: " + intent.Symbol,
		"Quantity: " + intent.Quantity.String(),
		"Status: " + string(outcome.Status),
	}

	switch outcome.Kind {
	case models.OutcomeFilled:
		if outcome.OrderID != 0 {
			lines = append(lines, fmt.Sprintf("Order ID: %d", outcome.OrderID))
		}
		avg := "n/a"
		if outcome.AvgPrice != nil {
			avg = usd(*outcome.AvgPrice, 4)
		}
		lines = append(lines, successStyle.Render(fmt.Sprintf("Filled: %s @ %s", outcome.FilledQty, avg)))
	case models.OutcomeResting:
		lines = append(lines, fmt.Sprintf("Order ID: %d", outcome.OrderID))
		if intent.IsMarket() {
			lines = append(lines, warningStyle.Render("Market order resting (low liquidity)"))
		} else {
			lines = append(lines, "Limit order resting on book")
		}
	case models.OutcomeRejected:
		lines = append(lines, errorStyle.Render("Error: "+outcome.Reason))
	}
	lines = append(lines, "Timestamp: "+outcome.Timestamp.UTC().Format(time.RFC3339))

	fmt.Fprintln(w, box("ORDER CONFIRMATION", lines...))
	if outcome.IsRejected() {
		fmt.Fprintln(w, errorStyle.Render("Order rejected"))
		return
	}
	fmt.Fprintln(w, successStyle.Render("Order submitted successfully!"))
}

// streamPrinter renders a trade stream to the terminal.
type streamPrinter struct {
	out     io.Writer
	mainnet bool
}

func newStreamPrinter(out io.Writer, mainnet bool) *streamPrinter {
	return &streamPrinter{out: out, mainnet: mainnet}
}

const streamRule = "═══════════════════════════════════════════════"

func (p *streamPrinter) OnSubscribed(symbol string, duration time.Duration) {
	fmt.Fprintf(p.out, "\n%s\n", streamRule)
	fmt.Fprintln(p.out, titleStyle.Render(fmt.Sprintf("  HYPERLIQUID %s TRADE STREAM", networkName(p.mainnet))))
	fmt.Fprintln(p.out, streamRule)
	fmt.Fprintf(p.out, "Symbol: %s\n", symbol)
	fmt.Fprintln(p.out, "Type: TRADES")
	fmt.Fprintf(p.out, "Duration: %ds\n", int(duration.Seconds()))
	fmt.Fprintf(p.out, "Started: %s\n", time.Now().UTC().Format("15:04:05 UTC"))
	fmt.Fprintln(p.out, streamRule)
	fmt.Fprintf(p.out, "%-12s %-6s %-12s %-12s %-10s %-8s\n", "TIME", "SIDE", "PRICE", "SIZE", "TRADE_ID", "HASH")
	fmt.Fprintln(p.out, strings.Repeat("─", 69))
}

func (p *streamPrinter) OnConfirmed(symbol string) {
	fmt.Fprintln(p.out, successStyle.Render("Subscription confirmed for "+symbol))
}

func (p *streamPrinter) OnTrade(t models.TradeEvent) {
	side := buyStyle.Render(fmt.Sprintf("%-6s", "BUY"))
	if !t.Side.IsBuy() {
		side = sellStyle.Render(fmt.Sprintf("%-6s", "SELL"))
	}
	fmt.Fprintf(p.out, "%-12s %s $%-11s %-12s %-10d %-8s\n",
		t.Time.UTC().Format("15:04:05"),
		side,
		t.Price.StringFixed(4),
		t.Size.StringFixed(4),
		t.TradeID,
		t.ShortHash(),
	)
}

func (p *streamPrinter) OnProgress(remaining time.Duration) {
	fmt.Fprintf(p.out, "\rWaiting for trades... (%ds remaining)", int(remaining.Seconds()))
}

func (p *streamPrinter) OnQuiet(idle time.Duration) {
	fmt.Fprintln(p.out, warningStyle.Render(fmt.Sprintf(
		"\nNo trades received for %ds+. Market might be quiet or connection issue.", int(idle.Seconds()))))
}

func (p *streamPrinter) OnSummary(s marketdata.Summary) {
	fmt.Fprintf(p.out, "\n%s\n", streamRule)
	switch s.Exit {
	case marketdata.ExitRemoteClose:
		fmt.Fprintln(p.out, "WebSocket connection closed by server")
	case marketdata.ExitTransportError:
		fmt.Fprintln(p.out, errorStyle.Render(fmt.Sprintf("WebSocket error: %v", s.Err)))
	}
	fmt.Fprintln(p.out, "Stream completed!")
	fmt.Fprintf(p.out, "Duration: %ds\n", int(s.Elapsed.Seconds()))
	fmt.Fprintf(p.out, "Total WebSocket messages: %d\n", s.Frames)
	fmt.Fprintf(p.out, "Total trades received: %d\n", s.Trades)

	if s.Trades == 0 {
		fmt.Fprintln(p.out, "No trades received - this could mean:")
		fmt.Fprintf(p.out, "   • Market is quiet for %s right now\n", s.Symbol)
		fmt.Fprintln(p.out, "   • Symbol might not exist (try: ETH, BTC, SOL, etc.)")
		fmt.Fprintln(p.out, "   • Try a longer duration (-duration 60)")
		return
	}

	st := s.Stats
	t := newTable("STAT", "VALUE")
	t.Row("Buy volume", strconv.FormatFloat(st.BuyVolume, 'f', 4, 64))
	t.Row("Sell volume", strconv.FormatFloat(st.SellVolume, 'f', 4, 64))
	t.Row("VWAP", fmt.Sprintf("$%.4f", st.VWAP))
	t.Row("Last", fmt.Sprintf("$%.4f", st.Last))
	t.Row("High / Low", fmt.Sprintf("$%.4f / $%.4f", st.High, st.Low))
	t.Row(fmt.Sprintf("Last %d high / low", st.Window), fmt.Sprintf("$%.4f / $%.4f", st.WindowHigh, st.WindowLow))
	t.Row("Volatility", fmt.Sprintf("$%.4f", st.Volatility))
	if st.SMAReady {
		t.Row("SMA", fmt.Sprintf("$%.4f", st.SMA))
	}
	if st.EMAReady {
		t.Row("EMA", fmt.Sprintf("$%.4f", st.EMA))
	}
	fmt.Fprintln(p.out, t.String())
}
