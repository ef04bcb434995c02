package router

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"papertrade/internal/order"
)

// RiskOrderSpec is the typed boundary for the external risk engine's
// output. The loose map it sends is decoded and validated here before it
// can become an order.
type RiskOrderSpec struct {
	Symbol       string  `mapstructure:"symbol"`
	Side         string  `mapstructure:"side"`
	EntryPrice   float64 `mapstructure:"entry_price"`
	PositionSize float64 `mapstructure:"position_size"`
	StopLoss     float64 `mapstructure:"stop_loss"`
	TakeProfit   float64 `mapstructure:"take_profit"`
	RiskUSD      float64 `mapstructure:"risk_usd"`
}

const riskOutputSchema = `{
	"type": "object",
	"required": ["side", "entry_price", "position_size"],
	"properties": {
		"symbol": {"type": "string"},
		"side": {"type": "string"},
		"entry_price": {"type": "number"},
		"position_size": {"type": "number", "exclusiveMinimum": 0},
		"stop_loss": {"type": "number"},
		"take_profit": {"type": "number"},
		"risk_usd": {"type": "number"}
	}
}`

var riskSchema = jsonschema.MustCompileString("risk_output.json", riskOutputSchema)

// DecodeRiskOutput turns the raw risk-engine payload into a RiskOrderSpec.
// fallbackSymbol is used when the payload itself carries no symbol.
func DecodeRiskOutput(raw map[string]any, fallbackSymbol string) (RiskOrderSpec, error) {
	if err := riskSchema.Validate(normalizeForSchema(raw)); err != nil {
		return RiskOrderSpec{}, fmt.Errorf("risk output failed schema validation: %w", err)
	}
	var spec RiskOrderSpec
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &spec,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return RiskOrderSpec{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return RiskOrderSpec{}, fmt.Errorf("decoding risk output failed: %w", err)
	}
	if spec.Symbol == "" {
		spec.Symbol = fallbackSymbol
	}
	sym := strings.TrimSpace(spec.Symbol)
	if sym == "" || strings.EqualFold(sym, order.SymbolUnknown) {
		return RiskOrderSpec{}, fmt.Errorf("risk output missing valid symbol (got %q)", spec.Symbol)
	}
	spec.Symbol = strings.ToUpper(sym)
	return spec, nil
}

// OrderFromRiskOutput converts a risk-engine payload into an order request.
func (r *Router) OrderFromRiskOutput(raw map[string]any, fallbackSymbol string) (order.Request, error) {
	spec, err := DecodeRiskOutput(raw, fallbackSymbol)
	if err != nil {
		return order.Request{}, err
	}
	req, err := order.NewRequest(spec.Symbol, order.SideFromSignal(spec.Side), order.TypeMarket, spec.PositionSize)
	if err != nil {
		return order.Request{}, err
	}
	req.Price = spec.EntryPrice
	req.StopLoss = spec.StopLoss
	req.TakeProfit = spec.TakeProfit
	return req, nil
}

// normalizeForSchema round-trips the payload through JSON typing so the
// schema sees plain numbers even when callers pass ints.
func normalizeForSchema(raw map[string]any) any {
	data, err := json.Marshal(raw)
	if err != nil {
		return raw
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return raw
	}
	return out
}
