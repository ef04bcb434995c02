package cost

// ExecutionCosts is the full cost breakdown for one order.
type ExecutionCosts struct {
	Commission     float64
	SlippageCost   float64
	SpreadCost     float64
	TotalCost      float64
	EffectivePrice float64 // ask for buys, bid for sells, slippage applied
}

// RealisticExecutionModel composes fees, slippage and spread into the
// pluggable cost source the paper ledger can use instead of flat rates.
type RealisticExecutionModel struct {
	Fees     *FeeSchedule
	Slippage DynamicSlippageModel
	Spread   SpreadModel
}

// NewRealisticExecutionModel wires the three sub-models with defaults for
// any zero-valued part.
func NewRealisticExecutionModel(fees *FeeSchedule, slip DynamicSlippageModel, spread SpreadModel) *RealisticExecutionModel {
	if fees == nil {
		fees = NewFeeSchedule(nil, 0)
	}
	if slip == (DynamicSlippageModel{}) {
		slip = DefaultSlippageModel()
	}
	if spread == (SpreadModel{}) {
		spread = DefaultSpreadModel()
	}
	return &RealisticExecutionModel{Fees: fees, Slippage: slip, Spread: spread}
}

// CalculateExecutionCosts prices one order. marketVolume24h and volatility
// may be zero when the caller has no live depth data; the model degrades to
// its base components.
func (m *RealisticExecutionModel) CalculateExecutionCosts(orderValue, price float64, isBuy, isMaker bool, marketVolume24h, volatility float64) ExecutionCosts {
	bid, ask := m.Spread.BidAsk(price, volatility, 1)
	spreadFrac := 0.0
	if price > 0 {
		spreadFrac = (ask - bid) / price
	}
	slipFrac := m.Slippage.Estimate(orderValue, marketVolume24h, volatility, spreadFrac)

	quote := bid
	if isBuy {
		quote = ask
	}
	effective := quote * (1 - slipFrac)
	if isBuy {
		effective = quote * (1 + slipFrac)
	}

	commission := m.Fees.Commission(orderValue, isMaker)
	slippageCost := orderValue * slipFrac
	// Takers cross half the spread per fill.
	spreadCost := orderValue * spreadFrac / 2
	if isMaker {
		spreadCost = 0
	}
	return ExecutionCosts{
		Commission:     commission,
		SlippageCost:   slippageCost,
		SpreadCost:     spreadCost,
		TotalCost:      commission + slippageCost + spreadCost,
		EffectivePrice: effective,
	}
}
