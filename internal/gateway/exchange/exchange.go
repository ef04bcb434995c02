// Package exchange defines the backend contract for order placement. The
// core works against this interface so the paper ledger, the dry-run stub
// and a future real exchange client are interchangeable.
package exchange

import (
	"context"
	"time"

	"papertrade/internal/order"
)

// Client is the full capability set an execution backend must provide.
// Every method takes a context because a real backend performs network I/O.
type Client interface {
	SubmitOrder(ctx context.Context, req order.Request) (order.ExecutionResult, error)

	CancelOrder(ctx context.Context, orderID string) error

	GetBalance(ctx context.Context) (Balance, error)

	GetOpenPositions(ctx context.Context) ([]order.Position, error)

	GetOrderStatus(ctx context.Context, orderID string) (order.Status, error)

	GetTickerPrice(ctx context.Context, symbol string) (float64, error)

	Close(ctx context.Context) error
}

// Balance is the account balance reported by a backend.
type Balance struct {
	Asset     string
	Total     float64
	Available float64
	UpdatedAt time.Time
	IsDryRun  bool
}
