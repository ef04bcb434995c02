// Package tradelog implements the append-only trade log: one CSV row per
// INIT/OPEN/CLOSE action, the single durable artifact of a trading session.
// The invariant validator and reporting tools consume it read-only.
package tradelog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Action labels a log row.
type Action string

const (
	ActionInit  Action = "INIT"
	ActionOpen  Action = "OPEN"
	ActionClose Action = "CLOSE"
)

// Row is one trade-log entry. UnrealizedPnL is populated by the live ledger
// but is not part of the CSV schema; rows parsed from disk leave it nil.
type Row struct {
	Timestamp     time.Time
	SessionStart  time.Time
	OrderID       string
	Symbol        string
	Action        Action
	Side          string
	Quantity      float64
	EntryPrice    float64
	FillPrice     float64
	FillValue     float64
	Commission    float64
	Slippage      float64
	RealizedPnL   float64
	PnLPct        float64
	Balance       float64
	Equity        float64
	OpenPositions int

	UnrealizedPnL *float64
}

var header = []string{
	"timestamp", "session_start", "order_id", "symbol", "action", "side",
	"quantity", "entry_price", "fill_price", "fill_value", "commission",
	"slippage", "realized_pnl", "pnl_pct", "balance", "equity",
	"open_positions",
}

// Writer appends rows to a CSV file. One writer per ledger instance; each
// Append is flushed before returning so a log write is atomic with the
// balance mutation it records.
type Writer struct {
	f   *os.File
	csv *csv.Writer
}

// NewWriter opens (or creates) the log at path in append mode, writing the
// header only when the file is new.
func NewWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat trade log: %w", err)
	}
	w := &Writer{f: f, csv: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := w.csv.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write trade log header: %w", err)
		}
		w.csv.Flush()
		if err := w.csv.Error(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return w, nil
}

// Append writes one row and flushes it.
func (w *Writer) Append(row Row) error {
	rec := []string{
		row.Timestamp.UTC().Format(time.RFC3339Nano),
		row.SessionStart.UTC().Format(time.RFC3339Nano),
		row.OrderID,
		row.Symbol,
		string(row.Action),
		row.Side,
		formatFloat(row.Quantity),
		formatFloat(row.EntryPrice),
		formatFloat(row.FillPrice),
		formatFloat(row.FillValue),
		formatFloat(row.Commission),
		formatFloat(row.Slippage),
		formatFloat(row.RealizedPnL),
		formatFloat(row.PnLPct),
		formatFloat(row.Balance),
		formatFloat(row.Equity),
		strconv.Itoa(row.OpenPositions),
	}
	if err := w.csv.Write(rec); err != nil {
		return err
	}
	w.csv.Flush()
	return w.csv.Error()
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ReadFile parses a trade-log CSV back into rows.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read trade log: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("trade log row %d: %w", i+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRecord(rec []string) (Row, error) {
	if len(rec) != len(header) {
		return Row{}, fmt.Errorf("expected %d fields, got %d", len(header), len(rec))
	}
	ts, err := time.Parse(time.RFC3339Nano, rec[0])
	if err != nil {
		return Row{}, fmt.Errorf("timestamp: %w", err)
	}
	session, err := time.Parse(time.RFC3339Nano, rec[1])
	if err != nil {
		return Row{}, fmt.Errorf("session_start: %w", err)
	}
	floats := make([]float64, 10)
	for i, idx := range []int{6, 7, 8, 9, 10, 11, 12, 13, 14, 15} {
		v, err := strconv.ParseFloat(rec[idx], 64)
		if err != nil {
			return Row{}, fmt.Errorf("%s: %w", header[idx], err)
		}
		floats[i] = v
	}
	openPositions, err := strconv.Atoi(rec[16])
	if err != nil {
		return Row{}, fmt.Errorf("open_positions: %w", err)
	}
	return Row{
		Timestamp:     ts,
		SessionStart:  session,
		OrderID:       rec[2],
		Symbol:        rec[3],
		Action:        Action(rec[4]),
		Side:          rec[5],
		Quantity:      floats[0],
		EntryPrice:    floats[1],
		FillPrice:     floats[2],
		FillValue:     floats[3],
		Commission:    floats[4],
		Slippage:      floats[5],
		RealizedPnL:   floats[6],
		PnLPct:        floats[7],
		Balance:       floats[8],
		Equity:        floats[9],
		OpenPositions: openPositions,
	}, nil
}
