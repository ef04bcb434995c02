// Package paper implements the simulated execution backend: a cash+equity
// accounting ledger with realistic fill pricing.
//
// The central contract: equity = balance + sum of unrealized PnL over open
// positions, and balance moves only when a position closes. An OPEN reserves
// nothing and debits nothing; all costs of a round trip are booked against
// balance at CLOSE.
package paper

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"papertrade/internal/cost"
	"papertrade/internal/logger"
	"papertrade/internal/order"
	"papertrade/internal/tradelog"
)

// MarketStats are optional depth hints for the realistic cost model.
type MarketStats struct {
	Volume24h  float64
	Volatility float64
}

// Config configures a Ledger. When CostModel is nil the flat SlippageRate
// and CommissionRate are used; otherwise the model prices every fill.
type Config struct {
	StartingBalance float64
	SlippageRate    float64
	CommissionRate  float64
	CostModel       *cost.RealisticExecutionModel
	Market          MarketStats
	LogPath         string
}

// Ledger is the paper-trading accounting engine. It is single-owner by
// design: one sequential order flow per instance, no internal locking.
type Ledger struct {
	cfg          Config
	balance      float64
	realizedPnL  float64
	positions    map[string]*order.Position
	sessionStart time.Time

	wins        int
	losses      int
	totalTrades int

	writer *tradelog.Writer
	rows   []tradelog.Row
}

// New creates a ledger and writes the INIT trade-log row.
func New(cfg Config) (*Ledger, error) {
	if cfg.StartingBalance <= 0 {
		return nil, fmt.Errorf("starting balance must be positive, got %v", cfg.StartingBalance)
	}
	l := &Ledger{
		cfg:          cfg,
		balance:      cfg.StartingBalance,
		positions:    make(map[string]*order.Position),
		sessionStart: time.Now(),
	}
	if cfg.LogPath != "" {
		w, err := tradelog.NewWriter(cfg.LogPath)
		if err != nil {
			return nil, err
		}
		l.writer = w
	}
	l.appendRow(tradelog.Row{
		Timestamp:    l.sessionStart,
		SessionStart: l.sessionStart,
		Action:       tradelog.ActionInit,
		Balance:      l.balance,
		Equity:       l.balance,
	})
	return l, nil
}

// Balance is the cash balance. It changes only on CLOSE actions.
func (l *Ledger) Balance() float64 { return l.balance }

// RealizedPnL is the cumulative net realized profit of the session.
func (l *Ledger) RealizedPnL() float64 { return l.realizedPnL }

// Wins and Losses count closed round trips by sign of their net PnL.
func (l *Ledger) Wins() int   { return l.wins }
func (l *Ledger) Losses() int { return l.losses }

// TotalTrades counts closed round trips.
func (l *Ledger) TotalTrades() int { return l.totalTrades }

// Equity is balance plus mark-to-market PnL of all open positions, computed
// on demand and never cached.
func (l *Ledger) Equity() float64 {
	eq := l.balance
	for _, p := range l.positions {
		eq += p.UnrealizedPnL()
	}
	return eq
}

// OpenPositions returns a copy of the open position set.
func (l *Ledger) OpenPositions() map[string]order.Position {
	out := make(map[string]order.Position, len(l.positions))
	for sym, p := range l.positions {
		out[sym] = *p
	}
	return out
}

// TradeLog returns the in-memory rows of the session, INIT row included.
func (l *Ledger) TradeLog() []tradelog.Row {
	return append([]tradelog.Row(nil), l.rows...)
}

// Close releases the trade-log file handle.
func (l *Ledger) Close() error {
	if l.writer == nil {
		return nil
	}
	return l.writer.Close()
}

// SubmitOrder matches one order against the ledger at currentPrice and
// returns the execution result. Domain-level failures (insufficient balance,
// duplicate open) come back as REJECTED results, never as panics or errors.
func (l *Ledger) SubmitOrder(req order.Request, currentPrice float64) order.ExecutionResult {
	if req.Quantity <= 0 {
		return order.FailureResult(order.StatusRejected, fmt.Sprintf("Invalid quantity: %v", req.Quantity))
	}
	if currentPrice <= 0 {
		return order.FailureResult(order.StatusRejected, fmt.Sprintf("Invalid price: %v", currentPrice))
	}
	orderID := uuid.NewString()
	pos, exists := l.positions[req.Symbol]
	if exists && req.Side.Opposes(pos.Side) {
		return l.closePosition(orderID, pos, currentPrice)
	}
	if exists {
		return order.FailureResult(order.StatusRejected,
			fmt.Sprintf("Position already open for %s", req.Symbol))
	}
	return l.openPosition(orderID, req, currentPrice)
}

// quote prices one fill leg. The returned fill price embeds slippage; the
// extra component is any cost not embedded in the price (spread crossing
// when the realistic model is active).
func (l *Ledger) quote(value, price float64, isBuy bool) (fill, commission, impact, extra float64) {
	if l.cfg.CostModel != nil {
		m := l.cfg.CostModel
		bid, ask := m.Spread.BidAsk(price, l.cfg.Market.Volatility, 1)
		spreadFrac := 0.0
		if price > 0 {
			spreadFrac = (ask - bid) / price
		}
		slipFrac := m.Slippage.Estimate(value, l.cfg.Market.Volume24h, l.cfg.Market.Volatility, spreadFrac)
		if isBuy {
			fill = price * (1 + slipFrac)
		} else {
			fill = price * (1 - slipFrac)
		}
		// Slippage is embedded in the fill price; crossing the spread is the
		// explicit extra cost booked at close.
		return fill, m.Fees.Commission(value, false), value * slipFrac, value * spreadFrac / 2
	}
	slip := l.cfg.SlippageRate
	if isBuy {
		fill = price * (1 + slip)
	} else {
		fill = price * (1 - slip)
	}
	// Flat path: commission and impact depend on the fill value, which the
	// caller derives from the returned fill price.
	return fill, 0, 0, 0
}

func (l *Ledger) openPosition(orderID string, req order.Request, currentPrice float64) order.ExecutionResult {
	isBuy := req.Side.IsBuySide()
	value := currentPrice * req.Quantity
	fillPrice, commission, impact, _ := l.quote(value, currentPrice, isBuy)
	fillValue := fillPrice * req.Quantity
	if l.cfg.CostModel == nil {
		commission = fillValue * l.cfg.CommissionRate
		impact = absF(fillPrice-currentPrice) * req.Quantity
	}

	if fillValue > l.balance {
		logger.Warnf("[paper] reject %s %s qty=%v: need %.2f, balance %.2f",
			req.Side, req.Symbol, req.Quantity, fillValue, l.balance)
		return order.FailureResult(order.StatusRejected, "Insufficient balance")
	}

	pos := &order.Position{
		Symbol:          req.Symbol,
		Side:            req.Side.Direction(),
		Quantity:        req.Quantity,
		EntryPrice:      fillPrice,
		CurrentPrice:    currentPrice,
		OpenedAt:        time.Now(),
		EntryCommission: commission,
	}
	l.positions[req.Symbol] = pos

	l.appendRow(tradelog.Row{
		Timestamp:    time.Now(),
		SessionStart: l.sessionStart,
		OrderID:      orderID,
		Symbol:       req.Symbol,
		Action:       tradelog.ActionOpen,
		Side:         string(pos.Side),
		Quantity:     req.Quantity,
		EntryPrice:   fillPrice,
		FillPrice:    fillPrice,
		FillValue:    fillValue,
		Commission:   commission,
		Slippage:     impact,
		Balance:      l.balance,
		Equity:       l.Equity(),
	})
	logger.Debugf("[paper] open %s %s qty=%v fill=%.4f", pos.Side, req.Symbol, req.Quantity, fillPrice)
	return order.SuccessResult(orderID, order.Fill{
		Symbol:     req.Symbol,
		Side:       req.Side,
		Quantity:   req.Quantity,
		FillPrice:  fillPrice,
		Commission: commission,
		Slippage:   impact,
	})
}

func (l *Ledger) closePosition(orderID string, pos *order.Position, currentPrice float64) order.ExecutionResult {
	// Closing a long sells; closing a short buys back.
	exitIsBuy := pos.Side.Direction() == order.SideShort
	value := currentPrice * pos.Quantity
	fillPrice, exitCommission, _, extra := l.quote(value, currentPrice, exitIsBuy)
	fillValue := fillPrice * pos.Quantity
	if l.cfg.CostModel == nil {
		exitCommission = fillValue * l.cfg.CommissionRate
		extra = 0
	}

	grossPnL := (fillPrice - pos.EntryPrice) * pos.Quantity
	if pos.Side.Direction() == order.SideShort {
		grossPnL = (pos.EntryPrice - fillPrice) * pos.Quantity
	}
	commission := pos.EntryCommission + exitCommission
	l.balance = applyTradeResult(l.balance, grossPnL, commission, extra)

	netPnL := grossPnL - commission - extra
	l.realizedPnL += netPnL
	l.totalTrades++
	if netPnL >= 0 {
		l.wins++
	} else {
		l.losses++
	}
	delete(l.positions, pos.Symbol)

	pnlPct := 0.0
	if notional := pos.Notional(); notional > 0 {
		pnlPct = netPnL / notional
	}
	closeSide := order.SideSell
	if exitIsBuy {
		closeSide = order.SideBuy
	}
	l.appendRow(tradelog.Row{
		Timestamp:    time.Now(),
		SessionStart: l.sessionStart,
		OrderID:      orderID,
		Symbol:       pos.Symbol,
		Action:       tradelog.ActionClose,
		Side:         string(pos.Side),
		Quantity:     pos.Quantity,
		EntryPrice:   pos.EntryPrice,
		FillPrice:    fillPrice,
		FillValue:    fillValue,
		Commission:   commission,
		Slippage:     extra,
		RealizedPnL:  netPnL,
		PnLPct:       pnlPct,
		Balance:      l.balance,
		Equity:       l.Equity(),
	})
	logger.Debugf("[paper] close %s %s qty=%v fill=%.4f net=%.4f", pos.Side, pos.Symbol, pos.Quantity, fillPrice, netPnL)
	return order.SuccessResult(orderID, order.Fill{
		Symbol:     pos.Symbol,
		Side:       closeSide,
		Quantity:   pos.Quantity,
		FillPrice:  fillPrice,
		Commission: commission,
		Slippage:   extra,
	})
}

// applyTradeResult books one closed round trip into balance.
func applyTradeResult(balance, pnl, commission, slippage float64) float64 {
	return balance + pnl - commission - slippage
}

// UpdatePositions marks current prices for every open position whose symbol
// is present. Balance and the trade log are untouched.
func (l *Ledger) UpdatePositions(prices map[string]float64) {
	for sym, price := range prices {
		if pos, ok := l.positions[sym]; ok && price > 0 {
			pos.CurrentPrice = price
		}
	}
}

// CloseAllPositions flattens the book. The provider supplies exit prices;
// when it fails for a symbol the position's last known price is used so the
// flatten never aborts midway. Every close goes through the standard CLOSE
// path, so balance and log invariants hold identically to a normal close.
func (l *Ledger) CloseAllPositions(priceProvider func(symbol string) (float64, error)) []order.ExecutionResult {
	symbols := make([]string, 0, len(l.positions))
	for sym := range l.positions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	results := make([]order.ExecutionResult, 0, len(symbols))
	for _, sym := range symbols {
		pos := l.positions[sym]
		price := pos.CurrentPrice
		if priceProvider != nil {
			if p, err := priceProvider(sym); err == nil && p > 0 {
				price = p
			} else if err != nil {
				logger.Warnf("[paper] flatten %s: price lookup failed (%v), using last known %.4f", sym, err, price)
			}
		}
		orderID := "FLATTEN_" + uuid.NewString()
		results = append(results, l.closePosition(orderID, pos, price))
	}
	return results
}

func (l *Ledger) appendRow(row tradelog.Row) {
	if row.Action != tradelog.ActionInit {
		row.OpenPositions = len(l.positions)
	}
	unrealized := row.Equity - row.Balance
	row.UnrealizedPnL = &unrealized
	l.rows = append(l.rows, row)
	if l.writer != nil {
		if err := l.writer.Append(row); err != nil {
			logger.Errorf("[paper] trade log append failed: %v", err)
		}
	}
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
