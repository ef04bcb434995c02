// Package invariant re-derives expected accounting, risk and position state
// from a trade log and asserts consistency. All checks are pure functions:
// running one twice on the same log produces the same result.
//
// Violations come back as *ViolationError naming the offending row and the
// expected-vs-actual delta. Reporting callers log the violation and
// continue; anything driving live money must treat it as fatal.
package invariant

import (
	"fmt"
	"math"

	"papertrade/internal/tradelog"
)

// ViolationError describes one failed invariant.
type ViolationError struct {
	Check    string
	RowIndex int // -1 when the violation is aggregate, not row-local
	Detail   string
	Expected float64
	Actual   float64
}

func (e *ViolationError) Error() string {
	loc := "aggregate"
	if e.RowIndex >= 0 {
		loc = fmt.Sprintf("row %d", e.RowIndex)
	}
	return fmt.Sprintf("%s violated at %s: %s (expected %.8f, actual %.8f, delta %.8f)",
		e.Check, loc, e.Detail, e.Expected, e.Actual, e.Actual-e.Expected)
}

func violation(check string, row int, detail string, expected, actual float64) *ViolationError {
	return &ViolationError{Check: check, RowIndex: row, Detail: detail, Expected: expected, Actual: actual}
}

// CheckAccountingInvariants asserts the cash+equity model over the log:
//
//	final_balance ≈ starting_balance + Σ realized_pnl
//	equity ≈ balance + unrealized_pnl   (per row, where unrealized is known)
//	Σ realized_pnl over CLOSE rows == Σ over all rows
func CheckAccountingInvariants(rows []tradelog.Row, startingBalance, epsilon float64) error {
	if len(rows) == 0 {
		return violation("accounting", -1, "trade log is empty", 0, 0)
	}
	if epsilon <= 0 {
		epsilon = 1e-6
	}
	var sumAll, sumClose float64
	for i, row := range rows {
		sumAll += row.RealizedPnL
		if row.Action == tradelog.ActionClose {
			sumClose += row.RealizedPnL
		}
		if row.UnrealizedPnL != nil {
			expected := row.Balance + *row.UnrealizedPnL
			if math.Abs(row.Equity-expected) > epsilon {
				return violation("accounting", i,
					fmt.Sprintf("equity != balance + unrealized for %s %s", row.Action, row.Symbol),
					expected, row.Equity)
			}
		}
	}
	finalBalance := rows[len(rows)-1].Balance
	expectedFinal := startingBalance + sumAll
	if math.Abs(finalBalance-expectedFinal) > epsilon {
		return violation("accounting", len(rows)-1,
			"final balance != starting balance + total realized pnl",
			expectedFinal, finalBalance)
	}
	if math.Abs(sumClose-sumAll) > epsilon {
		return violation("accounting", -1,
			"non-CLOSE rows carry nonzero realized pnl",
			sumClose, sumAll)
	}
	return nil
}

// RiskConfig parameterizes CheckRiskInvariants.
type RiskConfig struct {
	MaxExposure float64 // max Σ open notional as a fraction of equity
	Epsilon     float64
}

// CheckRiskInvariants asserts that no OPEN exceeded equity at entry and
// that total open notional stayed within the exposure limit at every row.
func CheckRiskInvariants(rows []tradelog.Row, cfg RiskConfig) error {
	if cfg.MaxExposure <= 0 {
		cfg.MaxExposure = 1.0
	}
	eps := cfg.Epsilon
	if eps <= 0 {
		eps = 1e-9
	}
	openNotional := make(map[string]float64)
	for i, row := range rows {
		switch row.Action {
		case tradelog.ActionOpen:
			limit := row.Equity * (1 + eps)
			if row.FillValue > limit {
				return violation("risk", i,
					fmt.Sprintf("OPEN %s notional exceeds equity at entry", row.Symbol),
					limit, row.FillValue)
			}
			openNotional[row.Symbol] = row.FillValue
		case tradelog.ActionClose:
			delete(openNotional, row.Symbol)
		}
		if len(openNotional) == 0 {
			continue
		}
		var total float64
		for _, n := range openNotional {
			total += n
		}
		limit := cfg.MaxExposure*row.Equity + eps
		if total > limit {
			return violation("risk", i,
				fmt.Sprintf("total open notional exceeds %.2f of equity", cfg.MaxExposure),
				limit, total)
		}
	}
	return nil
}

// PositionRecord is the minimal shape CheckPositionInvariants needs. Signed
// quantity convention: long positive, short negative.
type PositionRecord struct {
	Symbol   string
	Side     string
	Quantity float64
}

// CheckPositionInvariants asserts the position book is well formed: no zero
// quantities, sign matches side, one open position per symbol.
func CheckPositionInvariants(positions []PositionRecord) error {
	seen := make(map[string]int)
	for i, p := range positions {
		if p.Quantity == 0 {
			return violation("position", i,
				fmt.Sprintf("%s has zero quantity", p.Symbol), 0, p.Quantity)
		}
		switch p.Side {
		case "LONG":
			if p.Quantity < 0 {
				return violation("position", i,
					fmt.Sprintf("LONG %s has negative quantity", p.Symbol), 0, p.Quantity)
			}
		case "SHORT":
			if p.Quantity > 0 {
				return violation("position", i,
					fmt.Sprintf("SHORT %s has positive quantity", p.Symbol), 0, p.Quantity)
			}
		}
		if prev, ok := seen[p.Symbol]; ok {
			return violation("position", i,
				fmt.Sprintf("%s already open at row %d", p.Symbol, prev), 1, 2)
		}
		seen[p.Symbol] = i
	}
	return nil
}

// ValidateTradeSequence asserts the open/close lifecycle: every CLOSE must
// match an unmatched prior OPEN, and a second OPEN before a matching CLOSE
// is rejected unless allowMultiple is set.
func ValidateTradeSequence(rows []tradelog.Row, allowMultiple bool) error {
	open := make(map[string]int)
	for i, row := range rows {
		switch row.Action {
		case tradelog.ActionOpen:
			if n := open[row.Symbol]; n > 0 && !allowMultiple {
				return violation("sequence", i,
					fmt.Sprintf("second OPEN for %s before matching CLOSE", row.Symbol),
					0, float64(n))
			}
			open[row.Symbol]++
		case tradelog.ActionClose:
			if open[row.Symbol] == 0 {
				return violation("sequence", i,
					fmt.Sprintf("CLOSE for %s without a matching OPEN", row.Symbol),
					1, 0)
			}
			open[row.Symbol]--
		}
	}
	return nil
}
