package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeeScheduleTierSelection(t *testing.T) {
	fees := NewFeeSchedule(nil, 0)

	assert.Equal(t, TierRegular, fees.UpdateTier(0))
	assert.Equal(t, TierRegular, fees.UpdateTier(999_999))
	assert.Equal(t, TierSilver, fees.UpdateTier(1_000_000))
	assert.Equal(t, TierGold, fees.UpdateTier(5_000_000))
	assert.Equal(t, TierPlatinum, fees.UpdateTier(20_000_000))
	assert.Equal(t, TierVIP, fees.UpdateTier(250_000_000))
	assert.Equal(t, TierVIP, fees.CurrentTier())
}

func TestFeeScheduleRates(t *testing.T) {
	fees := NewFeeSchedule(nil, 0)
	fees.UpdateTier(5_000_000) // gold

	assert.InDelta(t, 0.0008, fees.Rate(true), 1e-12)
	assert.InDelta(t, 0.0009, fees.Rate(false), 1e-12)
	assert.InDelta(t, 9.0, fees.Commission(10_000, false), 1e-9)

	discounted := NewFeeSchedule(nil, 0.75)
	discounted.UpdateTier(0)
	assert.InDelta(t, 0.00075, discounted.Rate(false), 1e-12)
}

func TestSlippageEstimateClamped(t *testing.T) {
	m := DefaultSlippageModel()

	// Small order in a deep market stays near the base.
	small := m.Estimate(5_000, 1_000_000_000, 0.01, 0)
	assert.InDelta(t, 0.0002+5_000.0/1_000_000_000*0.1+0.01*0.05, small, 1e-12)
	assert.Less(t, small, 0.001)

	// A whale order hits the clamp.
	huge := m.Estimate(500_000_000, 1_000_000_000, 0.05, 0.001)
	assert.Equal(t, m.MaxSlippage, huge)

	// Zero market volume disables the impact term instead of dividing by zero.
	noDepth := m.Estimate(5_000, 0, 0, 0)
	assert.InDelta(t, m.Base, noDepth, 1e-12)
}

func TestSpreadModel(t *testing.T) {
	m := DefaultSpreadModel()

	calm := m.SpreadBps(0.01, 1)
	volatile := m.SpreadBps(0.10, 1)
	assert.Greater(t, volatile, calm)

	// Heavy volume tightens the spread.
	busy := m.SpreadBps(0.10, 2)
	assert.InDelta(t, volatile/2, busy, 1e-9)

	// Clamp holds at both ends.
	assert.Equal(t, m.MaxBps, m.SpreadBps(10, 1))
	assert.Equal(t, m.MinBps, SpreadModel{BaseBps: 0, MinBps: 0.5, MaxBps: 50}.SpreadBps(0, 1))
}

func TestSpreadBidAsk(t *testing.T) {
	m := DefaultSpreadModel()
	bid, ask := m.BidAsk(50_000, 0.01, 1)
	assert.Less(t, bid, 50_000.0)
	assert.Greater(t, ask, 50_000.0)
	// Symmetric around mid.
	assert.InDelta(t, 50_000.0, (bid+ask)/2, 1e-6)
}

func TestRealisticExecutionModel(t *testing.T) {
	m := NewRealisticExecutionModel(nil, DynamicSlippageModel{}, SpreadModel{})

	buy := m.CalculateExecutionCosts(10_000, 50_000, true, false, 1_000_000_000, 0.02)
	assert.Greater(t, buy.Commission, 0.0)
	assert.Greater(t, buy.SlippageCost, 0.0)
	assert.Greater(t, buy.SpreadCost, 0.0)
	assert.InDelta(t, buy.Commission+buy.SlippageCost+buy.SpreadCost, buy.TotalCost, 1e-9)
	assert.Greater(t, buy.EffectivePrice, 50_000.0)

	sell := m.CalculateExecutionCosts(10_000, 50_000, false, false, 1_000_000_000, 0.02)
	assert.Less(t, sell.EffectivePrice, 50_000.0)

	// Makers do not cross the spread.
	maker := m.CalculateExecutionCosts(10_000, 50_000, true, true, 1_000_000_000, 0.02)
	assert.Zero(t, maker.SpreadCost)
	assert.Less(t, maker.Commission, buy.Commission+1e-12)
}
