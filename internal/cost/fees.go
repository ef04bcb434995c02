// Package cost models realistic execution costs: tiered exchange fees,
// order-size dependent slippage and a volatility driven bid/ask spread.
package cost

import (
	"sort"

	"github.com/shopspring/decimal"
)

// VolumeTier keys the maker/taker fee table.
type VolumeTier int

const (
	TierRegular VolumeTier = iota
	TierSilver
	TierGold
	TierPlatinum
	TierVIP
)

func (t VolumeTier) String() string {
	switch t {
	case TierSilver:
		return "silver"
	case TierGold:
		return "gold"
	case TierPlatinum:
		return "platinum"
	case TierVIP:
		return "vip"
	default:
		return "regular"
	}
}

// TierRate is one row of the fee table.
type TierRate struct {
	MinVolume float64
	Maker     float64
	Taker     float64
}

// FeeSchedule holds the tiered maker/taker rates plus an optional flat
// discount multiplier (exchange-token style rebates).
type FeeSchedule struct {
	tiers    map[VolumeTier]TierRate
	current  VolumeTier
	discount float64
}

// DefaultTiers mirrors a typical spot fee ladder.
func DefaultTiers() map[VolumeTier]TierRate {
	return map[VolumeTier]TierRate{
		TierRegular:  {MinVolume: 0, Maker: 0.0010, Taker: 0.0010},
		TierSilver:   {MinVolume: 1_000_000, Maker: 0.0009, Taker: 0.0010},
		TierGold:     {MinVolume: 5_000_000, Maker: 0.0008, Taker: 0.0009},
		TierPlatinum: {MinVolume: 20_000_000, Maker: 0.0006, Taker: 0.0008},
		TierVIP:      {MinVolume: 100_000_000, Maker: 0.0004, Taker: 0.0006},
	}
}

// NewFeeSchedule builds a schedule from the given tier table. A nil table
// selects DefaultTiers. discount <= 0 or > 1 means no discount.
func NewFeeSchedule(tiers map[VolumeTier]TierRate, discount float64) *FeeSchedule {
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	if discount <= 0 || discount > 1 {
		discount = 1
	}
	return &FeeSchedule{tiers: tiers, current: TierRegular, discount: discount}
}

// UpdateTier selects the highest tier whose minimum monthly volume is met,
// scanning from the highest tier down, and returns the selection.
func (f *FeeSchedule) UpdateTier(monthlyVolume float64) VolumeTier {
	keys := make([]int, 0, len(f.tiers))
	for tier := range f.tiers {
		keys = append(keys, int(tier))
	}
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))
	for _, k := range keys {
		tier := VolumeTier(k)
		if monthlyVolume >= f.tiers[tier].MinVolume {
			f.current = tier
			return tier
		}
	}
	f.current = TierRegular
	return f.current
}

// CurrentTier returns the tier selected by the last UpdateTier call.
func (f *FeeSchedule) CurrentTier() VolumeTier {
	return f.current
}

// Rate returns the effective maker or taker rate with discount applied.
func (f *FeeSchedule) Rate(isMaker bool) float64 {
	row := f.tiers[f.current]
	rate := row.Taker
	if isMaker {
		rate = row.Maker
	}
	out, _ := decimal.NewFromFloat(rate).
		Mul(decimal.NewFromFloat(f.discount)).
		Float64()
	return out
}

// Commission computes the fee for an order of the given notional value.
func (f *FeeSchedule) Commission(orderValue float64, isMaker bool) float64 {
	out, _ := decimal.NewFromFloat(orderValue).
		Mul(decimal.NewFromFloat(f.Rate(isMaker))).
		Float64()
	return out
}
