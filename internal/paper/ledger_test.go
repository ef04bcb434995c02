package paper

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrade/internal/cost"
	"papertrade/internal/order"
	"papertrade/internal/tradelog"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := New(Config{
		StartingBalance: 10_000,
		SlippageRate:    0.001,
		CommissionRate:  0.001,
		LogPath:         filepath.Join(t.TempDir(), "trades.csv"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func mustOpen(t *testing.T, l *Ledger, symbol string, side order.Side, qty, price float64) order.ExecutionResult {
	t.Helper()
	req, err := order.NewRequest(symbol, side, order.TypeMarket, qty)
	require.NoError(t, err)
	res := l.SubmitOrder(req, price)
	require.True(t, res.Success, "submit failed: %s", res.Error)
	return res
}

func TestLedgerRoundTripLong(t *testing.T) {
	l := newTestLedger(t)

	res := mustOpen(t, l, "BTCUSDT", order.SideLong, 0.1, 50_000)
	// Buy side pays slippage upward.
	assert.InDelta(t, 50_050.0, res.Fill.FillPrice, 1e-9)
	assert.InDelta(t, 5.005, res.Fill.Commission, 1e-9)

	// OPEN leaves cash untouched; the entry cost shows up in equity only.
	assert.InDelta(t, 10_000.0, l.Balance(), 1e-9)
	assert.InDelta(t, 9_995.0, l.Equity(), 1e-6)
	assert.Len(t, l.OpenPositions(), 1)

	closeReq, err := order.NewRequest("BTCUSDT", order.SideSell, order.TypeMarket, 0.1)
	require.NoError(t, err)
	closeRes := l.SubmitOrder(closeReq, 51_000)
	require.True(t, closeRes.Success)

	// gross 89.90, entry+exit commission 10.0999, no extra spread cost.
	assert.InDelta(t, 10_079.80, l.Balance(), 1e-2)
	assert.InDelta(t, l.Balance(), l.Equity(), 1e-9)
	assert.Empty(t, l.OpenPositions())
	assert.Equal(t, 1, l.TotalTrades())
	assert.Equal(t, 1, l.Wins())
	assert.Equal(t, 0, l.Losses())
	assert.InDelta(t, l.Balance()-10_000, l.RealizedPnL(), 1e-9)
}

func TestLedgerRoundTripShort(t *testing.T) {
	l := newTestLedger(t)

	res := mustOpen(t, l, "ETHUSDT", order.SideShort, 1, 3_000)
	// Sell side fills below the mark.
	assert.InDelta(t, 2_997.0, res.Fill.FillPrice, 1e-9)

	// Price drops, short profits.
	closeReq, err := order.NewRequest("ETHUSDT", order.SideBuy, order.TypeMarket, 1)
	require.NoError(t, err)
	closeRes := l.SubmitOrder(closeReq, 2_900)
	require.True(t, closeRes.Success)
	assert.Equal(t, order.SideBuy, closeRes.Fill.Side)

	assert.Greater(t, l.Balance(), 10_000.0)
	assert.InDelta(t, l.Balance(), l.Equity(), 1e-9)
	assert.Equal(t, 1, l.Wins())
}

func TestLedgerRejectsInsufficientBalance(t *testing.T) {
	l := newTestLedger(t)

	req, err := order.NewRequest("BTCUSDT", order.SideLong, order.TypeMarket, 1)
	require.NoError(t, err)
	res := l.SubmitOrder(req, 50_000) // needs ~50k against 10k cash
	assert.False(t, res.Success)
	assert.Equal(t, order.StatusRejected, res.Status)
	assert.Equal(t, "Insufficient balance", res.Error)

	// A rejection must not touch state or the log beyond INIT.
	assert.InDelta(t, 10_000.0, l.Balance(), 1e-9)
	assert.Empty(t, l.OpenPositions())
	assert.Len(t, l.TradeLog(), 1)
}

func TestLedgerRejectsDuplicateOpen(t *testing.T) {
	l := newTestLedger(t)
	mustOpen(t, l, "BTCUSDT", order.SideLong, 0.01, 50_000)

	req, err := order.NewRequest("BTCUSDT", order.SideLong, order.TypeMarket, 0.01)
	require.NoError(t, err)
	res := l.SubmitOrder(req, 50_500)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Position already open")
	assert.Len(t, l.OpenPositions(), 1)
}

func TestLedgerRejectsBadInput(t *testing.T) {
	l := newTestLedger(t)

	res := l.SubmitOrder(order.Request{Symbol: "BTCUSDT", Side: order.SideLong, Quantity: 0}, 50_000)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Invalid quantity")

	res = l.SubmitOrder(order.Request{Symbol: "BTCUSDT", Side: order.SideLong, Quantity: 1}, 0)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Invalid price")
}

func TestLedgerOpposingOrderClosesFullPosition(t *testing.T) {
	l := newTestLedger(t)
	mustOpen(t, l, "BTCUSDT", order.SideLong, 0.1, 50_000)

	// An opposing order closes the whole position regardless of its quantity.
	req, err := order.NewRequest("BTCUSDT", order.SideShort, order.TypeMarket, 0.02)
	require.NoError(t, err)
	res := l.SubmitOrder(req, 50_000)
	require.True(t, res.Success)
	assert.InDelta(t, 0.1, res.Fill.Quantity, 1e-12)
	assert.Empty(t, l.OpenPositions())
}

func TestLedgerUpdatePositions(t *testing.T) {
	l := newTestLedger(t)
	mustOpen(t, l, "BTCUSDT", order.SideLong, 0.1, 50_000)

	l.UpdatePositions(map[string]float64{"BTCUSDT": 52_000, "ETHUSDT": 3_000})
	pos := l.OpenPositions()["BTCUSDT"]
	assert.InDelta(t, 52_000.0, pos.CurrentPrice, 1e-9)
	assert.InDelta(t, 10_000.0+pos.UnrealizedPnL(), l.Equity(), 1e-9)

	// Zero and negative prices are ignored.
	l.UpdatePositions(map[string]float64{"BTCUSDT": 0})
	assert.InDelta(t, 52_000.0, l.OpenPositions()["BTCUSDT"].CurrentPrice, 1e-9)
}

func TestLedgerCloseAllPositions(t *testing.T) {
	l := newTestLedger(t)
	mustOpen(t, l, "BTCUSDT", order.SideLong, 0.1, 50_000)
	mustOpen(t, l, "ETHUSDT", order.SideShort, 1, 3_000)

	results := l.CloseAllPositions(func(symbol string) (float64, error) {
		if symbol == "BTCUSDT" {
			return 51_000, nil
		}
		return 0, errors.New("feed down")
	})
	require.Len(t, results, 2)
	for _, res := range results {
		assert.True(t, res.Success)
	}
	assert.Empty(t, l.OpenPositions())
	assert.InDelta(t, l.Balance(), l.Equity(), 1e-9)
	assert.Equal(t, 2, l.TotalTrades())
}

func TestLedgerFlattenSurvivesDeadPriceFeed(t *testing.T) {
	l := newTestLedger(t)
	mustOpen(t, l, "BTCUSDT", order.SideLong, 0.1, 50_000)
	l.UpdatePositions(map[string]float64{"BTCUSDT": 50_500})

	// Every lookup fails; flatten falls back to the last mark and completes.
	results := l.CloseAllPositions(func(string) (float64, error) {
		return 0, errors.New("exchange unreachable")
	})
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.InDelta(t, 50_500*(1-0.001), results[0].Fill.FillPrice, 1e-6)
	assert.Empty(t, l.OpenPositions())
}

func TestLedgerWithCostModel(t *testing.T) {
	l, err := New(Config{
		StartingBalance: 10_000,
		CostModel:       cost.NewRealisticExecutionModel(nil, cost.DynamicSlippageModel{}, cost.SpreadModel{}),
		Market:          MarketStats{Volume24h: 1_000_000_000, Volatility: 0.02},
		LogPath:         filepath.Join(t.TempDir(), "trades.csv"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	res := mustOpen(t, l, "BTCUSDT", order.SideLong, 0.1, 50_000)
	assert.Greater(t, res.Fill.FillPrice, 50_000.0)
	assert.Greater(t, res.Fill.Commission, 0.0)

	closeReq, err := order.NewRequest("BTCUSDT", order.SideSell, order.TypeMarket, 0.1)
	require.NoError(t, err)
	closeRes := l.SubmitOrder(closeReq, 50_000)
	require.True(t, closeRes.Success)
	// Spread crossing shows up as an explicit cost on the close.
	assert.Greater(t, closeRes.Fill.Slippage, 0.0)

	// A flat round trip still loses money to costs, and the close identity
	// balance == equity holds.
	assert.Less(t, l.Balance(), 10_000.0)
	assert.InDelta(t, l.Balance(), l.Equity(), 1e-9)
}

func TestLedgerTradeLogBalanceConservation(t *testing.T) {
	l := newTestLedger(t)
	mustOpen(t, l, "BTCUSDT", order.SideLong, 0.1, 50_000)
	closeReq, err := order.NewRequest("BTCUSDT", order.SideSell, order.TypeMarket, 0.1)
	require.NoError(t, err)
	require.True(t, l.SubmitOrder(closeReq, 51_000).Success)
	mustOpen(t, l, "ETHUSDT", order.SideShort, 1, 3_000)
	l.CloseAllPositions(nil)

	rows := l.TradeLog()
	require.NotEmpty(t, rows)
	assert.Equal(t, tradelog.ActionInit, rows[0].Action)

	sum := 0.0
	for _, row := range rows {
		if row.Action == tradelog.ActionClose {
			sum += row.RealizedPnL
		}
	}
	assert.InDelta(t, rows[0].Balance+sum, l.Balance(), 1e-6)

	// Balance in the log only moves on CLOSE rows.
	prev := rows[0].Balance
	for _, row := range rows[1:] {
		if row.Action == tradelog.ActionOpen {
			assert.InDelta(t, prev, row.Balance, 1e-9)
		}
		prev = row.Balance
	}
}
