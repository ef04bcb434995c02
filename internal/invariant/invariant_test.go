package invariant

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrade/internal/order"
	"papertrade/internal/paper"
	"papertrade/internal/tradelog"
)

// liveSessionRows runs a real paper session and returns its log: the checks
// must pass on anything the ledger produces.
func liveSessionRows(t *testing.T) []tradelog.Row {
	t.Helper()
	l, err := paper.New(paper.Config{
		StartingBalance: 10_000,
		SlippageRate:    0.001,
		CommissionRate:  0.001,
		LogPath:         filepath.Join(t.TempDir(), "trades.csv"),
	})
	require.NoError(t, err)
	defer l.Close()

	submit := func(symbol string, side order.Side, qty, price float64) {
		req, err := order.NewRequest(symbol, side, order.TypeMarket, qty)
		require.NoError(t, err)
		res := l.SubmitOrder(req, price)
		require.True(t, res.Success, res.Error)
	}
	submit("BTCUSDT", order.SideLong, 0.1, 50_000)
	submit("BTCUSDT", order.SideSell, 0.1, 51_000)
	submit("ETHUSDT", order.SideShort, 1, 3_000)
	submit("ETHUSDT", order.SideBuy, 1, 2_900)
	submit("SOLUSDT", order.SideLong, 10, 150) // left open

	return l.TradeLog()
}

func TestRunAllOnLiveSession(t *testing.T) {
	rows := liveSessionRows(t)

	report := RunAll(rows, 10_000, RiskConfig{MaxExposure: 1.0})
	assert.True(t, report.OK(), report.Banner())
	assert.Empty(t, report.Banner())

	// Pure functions: a second pass over the same log agrees with the first.
	again := RunAll(rows, 10_000, RiskConfig{MaxExposure: 1.0})
	assert.Equal(t, report, again)
}

func TestAccountingCatchesDoctoredBalance(t *testing.T) {
	rows := liveSessionRows(t)
	// Shift balance and equity together so the per-row identity still holds
	// and the aggregate conservation check is what fires.
	rows[len(rows)-1].Balance += 500
	rows[len(rows)-1].Equity += 500

	err := CheckAccountingInvariants(rows, 10_000, 0)
	require.Error(t, err)
	var v *ViolationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "accounting", v.Check)
	assert.Contains(t, v.Detail, "final balance")
	assert.InDelta(t, 500.0, v.Actual-v.Expected, 1e-6)
}

func TestAccountingCatchesBrokenEquityIdentity(t *testing.T) {
	rows := liveSessionRows(t)
	// Find an OPEN row and break equity = balance + unrealized.
	for i := range rows {
		if rows[i].Action == tradelog.ActionOpen {
			rows[i].Equity += 123
			break
		}
	}
	err := CheckAccountingInvariants(rows, 10_000, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "equity != balance + unrealized")
}

func TestAccountingCatchesPnLOutsideClose(t *testing.T) {
	rows := liveSessionRows(t)
	for i := range rows {
		if rows[i].Action == tradelog.ActionOpen {
			rows[i].RealizedPnL = 42
			break
		}
	}
	// Keep the final-balance identity satisfied so the CLOSE-sum check is
	// the one that fires.
	rows[len(rows)-1].Balance += 42
	rows[len(rows)-1].Equity += 42

	err := CheckAccountingInvariants(rows, 10_000, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-CLOSE rows carry nonzero realized pnl")
}

func TestAccountingRejectsEmptyLog(t *testing.T) {
	err := CheckAccountingInvariants(nil, 10_000, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestRiskCatchesOversizedOpen(t *testing.T) {
	rows := []tradelog.Row{
		{Action: tradelog.ActionInit, Balance: 10_000, Equity: 10_000},
		{Action: tradelog.ActionOpen, Symbol: "BTCUSDT", Side: "LONG",
			Quantity: 1, FillPrice: 50_000, FillValue: 50_000,
			Balance: 10_000, Equity: 10_000},
	}
	err := CheckRiskInvariants(rows, RiskConfig{MaxExposure: 1.0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds equity")
}

func TestRiskEnforcesExposureLimit(t *testing.T) {
	rows := []tradelog.Row{
		{Action: tradelog.ActionInit, Balance: 10_000, Equity: 10_000},
		{Action: tradelog.ActionOpen, Symbol: "BTCUSDT", Side: "LONG",
			Quantity: 0.1, FillValue: 5_000, Balance: 10_000, Equity: 10_000},
		{Action: tradelog.ActionOpen, Symbol: "ETHUSDT", Side: "LONG",
			Quantity: 1, FillValue: 3_000, Balance: 10_000, Equity: 10_000},
	}
	// Fine at 100% exposure, violated at 50%.
	assert.NoError(t, CheckRiskInvariants(rows, RiskConfig{MaxExposure: 1.0}))
	err := CheckRiskInvariants(rows, RiskConfig{MaxExposure: 0.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total open notional")
}

func TestPositionInvariants(t *testing.T) {
	assert.NoError(t, CheckPositionInvariants([]PositionRecord{
		{Symbol: "BTCUSDT", Side: "LONG", Quantity: 0.1},
		{Symbol: "ETHUSDT", Side: "SHORT", Quantity: -1},
	}))

	err := CheckPositionInvariants([]PositionRecord{{Symbol: "BTCUSDT", Side: "LONG", Quantity: 0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zero quantity")

	err = CheckPositionInvariants([]PositionRecord{{Symbol: "BTCUSDT", Side: "SHORT", Quantity: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive quantity")

	err = CheckPositionInvariants([]PositionRecord{
		{Symbol: "BTCUSDT", Side: "LONG", Quantity: 0.1},
		{Symbol: "BTCUSDT", Side: "LONG", Quantity: 0.2},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already open")
}

func TestValidateTradeSequence(t *testing.T) {
	openRow := tradelog.Row{Action: tradelog.ActionOpen, Symbol: "BTCUSDT"}
	closeRow := tradelog.Row{Action: tradelog.ActionClose, Symbol: "BTCUSDT"}

	assert.NoError(t, ValidateTradeSequence([]tradelog.Row{openRow, closeRow, openRow}, false))

	err := ValidateTradeSequence([]tradelog.Row{closeRow}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a matching OPEN")

	err = ValidateTradeSequence([]tradelog.Row{openRow, openRow}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "second OPEN")

	assert.NoError(t, ValidateTradeSequence([]tradelog.Row{openRow, openRow}, true))
}

func TestRunAllCollectsEveryViolation(t *testing.T) {
	rows := liveSessionRows(t)
	rows[len(rows)-1].Balance += 500
	rows = append(rows, tradelog.Row{Action: tradelog.ActionClose, Symbol: "NEVEROPENED"})

	report := RunAll(rows, 10_000, RiskConfig{MaxExposure: 1.0})
	assert.False(t, report.OK())
	assert.GreaterOrEqual(t, len(report.Violations), 2)
	assert.Contains(t, report.Banner(), "INVARIANT VIOLATIONS")
}
