// Package router validates order intents and dispatches them to the active
// execution backend: the paper ledger, or an exchange client in dry-run or
// (gated) live mode.
package router

import (
	"context"
	"fmt"
	"strings"

	"papertrade/internal/gateway/exchange"
	"papertrade/internal/logger"
	"papertrade/internal/order"
	"papertrade/internal/paper"
)

// Mode is the execution mode the router was constructed for.
type Mode string

const (
	ModePaper  Mode = "paper"
	ModeLive   Mode = "live"
	ModeDryRun Mode = "dry_run"
)

// Config wires the router to its backend.
type Config struct {
	Mode   Mode
	Ledger *paper.Ledger
	Client exchange.Client
}

// Router converts external strategy and risk output into orders and routes
// them. Counters track total/successful/rejected submissions.
type Router struct {
	mode   Mode
	ledger *paper.Ledger
	client exchange.Client

	totalOrders      int
	successfulOrders int
	rejectedOrders   int
}

// New fails fast when live mode is requested without a configured exchange
// client: that is a wiring bug, not a runtime condition.
func New(cfg Config) (*Router, error) {
	switch cfg.Mode {
	case ModePaper:
		if cfg.Ledger == nil {
			return nil, fmt.Errorf("paper mode requires a ledger")
		}
	case ModeLive, ModeDryRun:
		if cfg.Client == nil {
			return nil, fmt.Errorf("%s mode requires an exchange client", cfg.Mode)
		}
	default:
		return nil, fmt.Errorf("unknown execution mode %q", cfg.Mode)
	}
	return &Router{mode: cfg.Mode, ledger: cfg.Ledger, client: cfg.Client}, nil
}

// Counters returns (total, successful, rejected).
func (r *Router) Counters() (int, int, int) {
	return r.totalOrders, r.successfulOrders, r.rejectedOrders
}

// SubmitOrder validates and dispatches one order.
//
// Two failure tiers: a non-positive quantity (when validate is set) is a
// market-level rejection returned as a REJECTED result; an empty or
// sentinel symbol is an upstream wiring defect and comes back as an error
// the caller must not swallow.
func (r *Router) SubmitOrder(ctx context.Context, req order.Request, currentPrice float64, validate bool) (order.ExecutionResult, error) {
	sym := strings.TrimSpace(req.Symbol)
	if sym == "" || strings.EqualFold(sym, order.SymbolUnknown) {
		return order.ExecutionResult{}, fmt.Errorf("invalid symbol %q: upstream signal did not resolve a real symbol", req.Symbol)
	}
	r.totalOrders++
	if validate && req.Quantity <= 0 {
		r.rejectedOrders++
		return order.FailureResult(order.StatusRejected, fmt.Sprintf("Invalid quantity: %v", req.Quantity)), nil
	}

	var res order.ExecutionResult
	switch r.mode {
	case ModePaper:
		res = r.ledger.SubmitOrder(req, currentPrice)
	default:
		var err error
		res, err = r.client.SubmitOrder(ctx, req)
		if err != nil {
			r.rejectedOrders++
			return order.ExecutionResult{}, err
		}
	}
	if res.Success {
		r.successfulOrders++
	} else {
		r.rejectedOrders++
		logger.Debugf("[router] order rejected: %s", res.Error)
	}
	return res, nil
}

// OrderFromSignal builds an order request from a strategy direction string.
func (r *Router) OrderFromSignal(signal, symbol string, quantity, stopLoss, takeProfit float64) (order.Request, error) {
	req, err := order.NewRequest(symbol, order.SideFromSignal(signal), order.TypeMarket, quantity)
	if err != nil {
		return order.Request{}, err
	}
	req.StopLoss = stopLoss
	req.TakeProfit = takeProfit
	return req, nil
}
