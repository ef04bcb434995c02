package invariant

import (
	"strings"

	"golang.org/x/sync/errgroup"

	"papertrade/internal/tradelog"
)

// Report aggregates the outcome of a full validation pass.
type Report struct {
	Violations []error
}

// OK reports whether every check passed.
func (r Report) OK() bool { return len(r.Violations) == 0 }

// Banner renders the violations as a block suitable for a loud warning.
func (r Report) Banner() string {
	if r.OK() {
		return ""
	}
	var b strings.Builder
	b.WriteString("!!! INVARIANT VIOLATIONS DETECTED !!!\n")
	for _, v := range r.Violations {
		b.WriteString("  - " + v.Error() + "\n")
	}
	return b.String()
}

// RunAll runs the four validators over the log. The checks are independent
// pure functions, so they fan out on an errgroup; every violation is
// collected rather than short-circuiting, since reporting callers want the
// full picture.
func RunAll(rows []tradelog.Row, startingBalance float64, riskCfg RiskConfig) Report {
	positions := openPositionsFromLog(rows)

	var g errgroup.Group
	results := make([]error, 4)
	g.Go(func() error {
		results[0] = CheckAccountingInvariants(rows, startingBalance, riskCfg.Epsilon)
		return nil
	})
	g.Go(func() error {
		results[1] = CheckRiskInvariants(rows, riskCfg)
		return nil
	})
	g.Go(func() error {
		results[2] = CheckPositionInvariants(positions)
		return nil
	})
	g.Go(func() error {
		results[3] = ValidateTradeSequence(rows, false)
		return nil
	})
	_ = g.Wait()

	var report Report
	for _, err := range results {
		if err != nil {
			report.Violations = append(report.Violations, err)
		}
	}
	return report
}

// openPositionsFromLog reconstructs the open position book from unmatched
// OPEN rows, using the signed quantity convention of PositionRecord.
func openPositionsFromLog(rows []tradelog.Row) []PositionRecord {
	open := make(map[string]PositionRecord)
	var orderKeys []string
	for _, row := range rows {
		switch row.Action {
		case tradelog.ActionOpen:
			qty := row.Quantity
			if row.Side == "SHORT" {
				qty = -qty
			}
			if _, ok := open[row.Symbol]; !ok {
				orderKeys = append(orderKeys, row.Symbol)
			}
			open[row.Symbol] = PositionRecord{Symbol: row.Symbol, Side: row.Side, Quantity: qty}
		case tradelog.ActionClose:
			delete(open, row.Symbol)
		}
	}
	out := make([]PositionRecord, 0, len(open))
	for _, sym := range orderKeys {
		if rec, ok := open[sym]; ok {
			out = append(out, rec)
		}
	}
	return out
}
