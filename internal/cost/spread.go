package cost

import "github.com/shopspring/decimal"

// SpreadModel derives a bid/ask spread in basis points from volatility and
// relative volume. High volume tightens the spread, volatility widens it.
type SpreadModel struct {
	BaseBps        float64
	VolatilityMult float64
	MinBps         float64
	MaxBps         float64
}

// DefaultSpreadModel is calibrated for liquid crypto majors.
func DefaultSpreadModel() SpreadModel {
	return SpreadModel{BaseBps: 1.0, VolatilityMult: 0.5, MinBps: 0.5, MaxBps: 50.0}
}

// SpreadBps returns the spread in basis points. volumeRatio is current
// volume relative to its recent average; ratios above 1 tighten the spread.
func (m SpreadModel) SpreadBps(volatility, volumeRatio float64) float64 {
	bps := clamp(m.BaseBps+volatility*m.VolatilityMult*100, m.MinBps, m.MaxBps)
	if volumeRatio > 1 {
		bps /= volumeRatio
	}
	return bps
}

// BidAsk splits the spread symmetrically around price.
func (m SpreadModel) BidAsk(price, volatility, volumeRatio float64) (bid, ask float64) {
	frac := m.SpreadBps(volatility, volumeRatio) / 10000
	p := decimal.NewFromFloat(price)
	half := p.Mul(decimal.NewFromFloat(frac)).Div(decimal.NewFromInt(2))
	bid, _ = p.Sub(half).Float64()
	ask, _ = p.Add(half).Float64()
	return bid, ask
}
