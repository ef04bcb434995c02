// Package order holds the value types shared by the execution core: order
// requests, fills, execution results and open positions.
package order

import (
	"fmt"
	"strings"
)

// SymbolUnknown is the sentinel a broken upstream signal leaves behind when
// it failed to resolve a real symbol. The router rejects it hard.
const SymbolUnknown = "UNKNOWN"

// Side is the direction of an order. LONG/BUY enter or exit on the buy side
// of the book, SHORT/SELL on the sell side.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
	SideBuy   Side = "BUY"
	SideSell  Side = "SELL"
)

// SideFromSignal maps a strategy direction string to a Side. Unrecognized
// input falls back to LONG; the router's symbol validation is the hard gate,
// so the lenient default is visible but not fatal.
func SideFromSignal(signal string) Side {
	switch strings.ToUpper(strings.TrimSpace(signal)) {
	case "LONG":
		return SideLong
	case "SHORT":
		return SideShort
	case "BUY":
		return SideBuy
	case "SELL":
		return SideSell
	default:
		return SideLong
	}
}

// IsBuySide reports whether the order pays the ask side markup.
func (s Side) IsBuySide() bool {
	return s == SideLong || s == SideBuy
}

// Direction collapses the four sides into the two position directions.
func (s Side) Direction() Side {
	if s.IsBuySide() {
		return SideLong
	}
	return SideShort
}

// Opposes reports whether an order of side s closes a position of side other.
func (s Side) Opposes(other Side) bool {
	return s.Direction() != other.Direction()
}

// Type is the order type.
type Type string

const (
	TypeMarket Type = "MARKET"
	TypeLimit  Type = "LIMIT"
)

// Status is the terminal (or pending) state of a submitted order.
type Status string

const (
	StatusNew      Status = "NEW"
	StatusFilled   Status = "FILLED"
	StatusRejected Status = "REJECTED"
	StatusCanceled Status = "CANCELED"
)

// Request is an immutable order intent. It is owned solely by the caller
// until submitted.
type Request struct {
	Symbol     string
	Side       Side
	Type       Type
	Quantity   float64
	Price      float64
	StopLoss   float64
	TakeProfit float64
}

// NewRequest validates quantity at construction. Symbol validation is left
// to the router so fixtures can build transiently invalid requests.
func NewRequest(symbol string, side Side, typ Type, quantity float64) (Request, error) {
	if quantity <= 0 {
		return Request{}, fmt.Errorf("order quantity must be positive, got %v", quantity)
	}
	return Request{
		Symbol:   strings.ToUpper(strings.TrimSpace(symbol)),
		Side:     side,
		Type:     typ,
		Quantity: quantity,
	}, nil
}

// Fill is the realized result of matching an order.
type Fill struct {
	OrderID    string
	Symbol     string
	Side       Side
	Quantity   float64
	FillPrice  float64
	Commission float64
	Slippage   float64
}

// ExecutionResult is what every backend returns for a submitted order.
type ExecutionResult struct {
	Success bool
	Status  Status
	Fill    *Fill
	Error   string
	DryRun  bool
}

// SuccessResult wraps a fill into a successful result.
func SuccessResult(orderID string, fill Fill) ExecutionResult {
	fill.OrderID = orderID
	return ExecutionResult{Success: true, Status: StatusFilled, Fill: &fill}
}

// FailureResult builds a rejected/failed result carrying the reason.
func FailureResult(status Status, errMsg string) ExecutionResult {
	return ExecutionResult{Success: false, Status: status, Error: errMsg}
}
