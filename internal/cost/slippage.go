package cost

// DynamicSlippageModel estimates slippage as a fraction of price from order
// size relative to market depth plus a volatility and spread component.
type DynamicSlippageModel struct {
	Base           float64 // floor slippage fraction
	ImpactScale    float64 // scales orderValue / marketVolume24h
	VolatilityMult float64 // scales the volatility term
	MaxSlippage    float64 // hard clamp
}

// DefaultSlippageModel mirrors the flat 10bps-ish profile used by the paper
// ledger when no market depth data is available.
func DefaultSlippageModel() DynamicSlippageModel {
	return DynamicSlippageModel{
		Base:           0.0002,
		ImpactScale:    0.1,
		VolatilityMult: 0.05,
		MaxSlippage:    0.01,
	}
}

// Estimate returns the slippage fraction for an order of orderValue against
// a market trading marketVolume24h, at the given volatility and quoted
// spread (fraction of price). Clamped to [0, MaxSlippage].
func (m DynamicSlippageModel) Estimate(orderValue, marketVolume24h, volatility, spreadPct float64) float64 {
	slip := m.Base
	if marketVolume24h > 0 {
		slip += orderValue / marketVolume24h * m.ImpactScale
	}
	slip += volatility * m.VolatilityMult
	slip += spreadPct / 2
	return clamp(slip, 0, m.MaxSlippage)
}

// EstimateSimple is the variant for callers without live market-depth data:
// orderSizeRatio is orderValue / marketVolume24h precomputed or guessed.
func (m DynamicSlippageModel) EstimateSimple(orderSizeRatio, volatility float64) float64 {
	slip := m.Base + orderSizeRatio*m.ImpactScale + volatility*m.VolatilityMult
	return clamp(slip, 0, m.MaxSlippage)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
