// Package binance provides the dry-run Binance client: every operation is
// simulated locally, logged, and returned with a dry-run flag. It performs
// no network I/O at any point.
package binance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"papertrade/internal/gateway/exchange"
	"papertrade/internal/logger"
	"papertrade/internal/order"
	"papertrade/internal/safety"
)

// Config configures the dry-run client. SeedTickers is an optional JSON
// document of symbol -> price used to answer GetTickerPrice.
type Config struct {
	APIKey      string
	APISecret   string
	Mode        safety.Mode
	Asset       string
	Balance     float64
	SeedTickers []byte
}

// DryRunClient implements exchange.Client with synthetic results.
type DryRunClient struct {
	cfg  Config
	seed []byte

	mu        sync.Mutex
	orders    map[string]order.Status
	positions map[string]order.Position
	closed    bool
}

var _ exchange.Client = (*DryRunClient)(nil)

// New validates credentials against the safety gate before constructing the
// client: live-looking keys in a safe mode abort construction with a fatal
// gate error.
func New(cfg Config) (*DryRunClient, error) {
	if err := safety.ValidateNoLiveKeysInSafeMode(cfg.APIKey, cfg.APISecret, cfg.Mode); err != nil {
		return nil, err
	}
	if cfg.Asset == "" {
		cfg.Asset = "USDT"
	}
	if cfg.Balance <= 0 {
		cfg.Balance = 10_000
	}
	logger.Infof("[binance] dry-run client ready (mode=%s, no network I/O)", cfg.Mode)
	return &DryRunClient{
		cfg:       cfg,
		seed:      cfg.SeedTickers,
		orders:    make(map[string]order.Status),
		positions: make(map[string]order.Position),
	}, nil
}

// sideOf maps our order side onto the wire enums a live futures client
// would submit, so dry-run logs mirror real request shapes.
func sideOf(s order.Side) (futures.SideType, futures.PositionSideType) {
	if s.IsBuySide() {
		return futures.SideTypeBuy, futures.PositionSideTypeLong
	}
	return futures.SideTypeSell, futures.PositionSideTypeShort
}

func (c *DryRunClient) SubmitOrder(ctx context.Context, req order.Request) (order.ExecutionResult, error) {
	if err := c.tick(ctx); err != nil {
		return order.ExecutionResult{}, err
	}
	if req.Quantity <= 0 {
		res := order.FailureResult(order.StatusRejected, fmt.Sprintf("Invalid quantity: %v", req.Quantity))
		res.DryRun = true
		return res, nil
	}
	price := req.Price
	if price <= 0 {
		if p, err := c.GetTickerPrice(ctx, req.Symbol); err == nil {
			price = p
		}
	}
	orderID := uuid.NewString()
	side, posSide := sideOf(req.Side)
	logger.Infof("[binance] DRY RUN order: %s %s %s qty=%v price=%v (%s/%s)",
		req.Type, req.Side, req.Symbol, req.Quantity, price, side, posSide)

	c.mu.Lock()
	c.orders[orderID] = order.Status(futures.OrderStatusTypeFilled)
	c.positions[req.Symbol] = order.Position{
		Symbol:       req.Symbol,
		Side:         req.Side.Direction(),
		Quantity:     req.Quantity,
		EntryPrice:   price,
		CurrentPrice: price,
		OpenedAt:     time.Now(),
	}
	c.mu.Unlock()

	res := order.SuccessResult(orderID, order.Fill{
		Symbol:    req.Symbol,
		Side:      req.Side,
		Quantity:  req.Quantity,
		FillPrice: price,
	})
	res.DryRun = true
	return res, nil
}

func (c *DryRunClient) CancelOrder(ctx context.Context, orderID string) error {
	if err := c.tick(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.orders[orderID]; !ok {
		return fmt.Errorf("unknown order %s", orderID)
	}
	c.orders[orderID] = order.StatusCanceled
	logger.Infof("[binance] DRY RUN cancel order %s", orderID)
	return nil
}

func (c *DryRunClient) GetBalance(ctx context.Context) (exchange.Balance, error) {
	if err := c.tick(ctx); err != nil {
		return exchange.Balance{}, err
	}
	return exchange.Balance{
		Asset:     c.cfg.Asset,
		Total:     c.cfg.Balance,
		Available: c.cfg.Balance,
		UpdatedAt: time.Now(),
		IsDryRun:  true,
	}, nil
}

func (c *DryRunClient) GetOpenPositions(ctx context.Context) ([]order.Position, error) {
	if err := c.tick(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]order.Position, 0, len(c.positions))
	for _, p := range c.positions {
		out = append(out, p)
	}
	return out, nil
}

func (c *DryRunClient) GetOrderStatus(ctx context.Context, orderID string) (order.Status, error) {
	if err := c.tick(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	status, ok := c.orders[orderID]
	if !ok {
		return "", fmt.Errorf("unknown order %s", orderID)
	}
	return status, nil
}

// GetTickerPrice answers from the seeded ticker book; unseeded symbols get
// a fixed synthetic quote so dry runs stay deterministic.
func (c *DryRunClient) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	if err := c.tick(ctx); err != nil {
		return 0, err
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return 0, fmt.Errorf("symbol is required")
	}
	if len(c.seed) > 0 {
		if v := gjson.GetBytes(c.seed, symbol); v.Exists() && v.Float() > 0 {
			return v.Float(), nil
		}
	}
	return 1000, nil
}

func (c *DryRunClient) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	logger.Infof("[binance] dry-run client closed")
	return nil
}

// tick simulates the latency of a network round trip without performing one.
func (c *DryRunClient) tick(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Millisecond):
		return nil
	}
}
