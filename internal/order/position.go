package order

import "time"

// Position is one open position. A symbol has at most one open Position at a
// time; the ledger enforces that, not the type.
type Position struct {
	Symbol       string
	Side         Side
	Quantity     float64
	EntryPrice   float64
	CurrentPrice float64
	OpenedAt     time.Time

	// EntryCommission is the commission incurred on the opening fill. The
	// cash+equity model leaves balance untouched on OPEN, so it is booked
	// against balance only when the position closes.
	EntryCommission float64
}

// UnrealizedPnL is the mark-to-market profit of the position at CurrentPrice.
func (p Position) UnrealizedPnL() float64 {
	if p.Side.Direction() == SideShort {
		return (p.EntryPrice - p.CurrentPrice) * p.Quantity
	}
	return (p.CurrentPrice - p.EntryPrice) * p.Quantity
}

// UnrealizedPnLPct is UnrealizedPnL relative to the entry notional.
func (p Position) UnrealizedPnLPct() float64 {
	notional := p.EntryPrice * p.Quantity
	if notional == 0 {
		return 0
	}
	return p.UnrealizedPnL() / notional
}

// Notional is the entry value of the position.
func (p Position) Notional() float64 {
	return p.EntryPrice * p.Quantity
}
