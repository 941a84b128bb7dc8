package market

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// ExecutionRecord is the flat wire form of an Execution. The field names
// match the venue's getexecutions payload so the same type decodes pages and
// is handed to the external loader.
type ExecutionRecord struct {
	ID          int64       `json:"id"`
	Side        string      `json:"side"`
	Price       json.Number `json:"price"`
	Size        json.Number `json:"size"`
	ExecDate    string      `json:"exec_date"`
	BuyOrderID  string      `json:"buy_child_order_acceptance_id,omitempty"`
	SellOrderID string      `json:"sell_child_order_acceptance_id,omitempty"`
}

// Record converts e to its flat form.
func (e Execution) Record() ExecutionRecord {
	return ExecutionRecord{
		ID:          e.ID,
		Side:        e.Side.String(),
		Price:       json.Number(e.Price.String()),
		Size:        json.Number(e.Size.String()),
		ExecDate:    FormatExecTime(e.Time),
		BuyOrderID:  e.BuyOrderID,
		SellOrderID: e.SellOrderID,
	}
}

// Execution parses and validates the record.
func (r ExecutionRecord) Execution() (Execution, error) {
	side, err := ParseSide(r.Side)
	if err != nil {
		return Execution{}, fmt.Errorf("execution %d: %w", r.ID, err)
	}
	price, err := parseDecimal("price", r.Price)
	if err != nil {
		return Execution{}, fmt.Errorf("execution %d: %w", r.ID, err)
	}
	size, err := parseDecimal("size", r.Size)
	if err != nil {
		return Execution{}, fmt.Errorf("execution %d: %w", r.ID, err)
	}
	ts, err := ParseTime(r.ExecDate)
	if err != nil {
		return Execution{}, fmt.Errorf("execution %d: %w", r.ID, err)
	}
	e := Execution{
		ID:          r.ID,
		Side:        side,
		Price:       price,
		Size:        size,
		Time:        ts,
		BuyOrderID:  r.BuyOrderID,
		SellOrderID: r.SellOrderID,
	}
	if err := e.Validate(); err != nil {
		return Execution{}, err
	}
	return e, nil
}

// ExecutionRecords converts a batch, preserving order.
func ExecutionRecords(execs []Execution) []ExecutionRecord {
	out := make([]ExecutionRecord, len(execs))
	for i, e := range execs {
		out[i] = e.Record()
	}
	return out
}

// ExecutionsFromRecords parses a batch, stopping at the first bad record.
func ExecutionsFromRecords(recs []ExecutionRecord) ([]Execution, error) {
	out := make([]Execution, 0, len(recs))
	for i, r := range recs {
		e, err := r.Execution()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// CandleRecord is the flat wire form of a Candle.
type CandleRecord struct {
	Minute string      `json:"minute"`
	Open   json.Number `json:"open"`
	High   json.Number `json:"high"`
	Low    json.Number `json:"low"`
	Close  json.Number `json:"close"`
	Volume json.Number `json:"volume"`
	VWAP   json.Number `json:"vwap"`
	Trades int         `json:"trades"`
}

// Record converts c to its flat form.
func (c Candle) Record() CandleRecord {
	return CandleRecord{
		Minute: FormatMinute(c.Start),
		Open:   json.Number(c.Open.String()),
		High:   json.Number(c.High.String()),
		Low:    json.Number(c.Low.String()),
		Close:  json.Number(c.Close.String()),
		Volume: json.Number(c.Volume.String()),
		VWAP:   json.Number(c.VWAP.String()),
		Trades: c.Trades,
	}
}

// Candle parses the record.
func (r CandleRecord) Candle() (Candle, error) {
	start, err := ParseTime(r.Minute)
	if err != nil {
		return Candle{}, fmt.Errorf("candle: %w", err)
	}
	c := Candle{Start: start, Trades: r.Trades}
	for _, f := range []struct {
		name string
		raw  json.Number
		dst  *decimal.Decimal
	}{
		{"open", r.Open, &c.Open},
		{"high", r.High, &c.High},
		{"low", r.Low, &c.Low},
		{"close", r.Close, &c.Close},
		{"volume", r.Volume, &c.Volume},
		{"vwap", r.VWAP, &c.VWAP},
	} {
		d, err := parseDecimal(f.name, f.raw)
		if err != nil {
			return Candle{}, fmt.Errorf("candle %s: %w", r.Minute, err)
		}
		*f.dst = d
	}
	return c, nil
}

// CandleRecords converts a candle sequence, preserving order.
func CandleRecords(candles []Candle) []CandleRecord {
	out := make([]CandleRecord, len(candles))
	for i, c := range candles {
		out[i] = c.Record()
	}
	return out
}

// CandlesFromRecords parses a candle sequence.
func CandlesFromRecords(recs []CandleRecord) ([]Candle, error) {
	out := make([]Candle, 0, len(recs))
	for _, r := range recs {
		c, err := r.Candle()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func parseDecimal(name string, raw json.Number) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: missing %s", ErrInvalidInput, name)
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: bad %s %q", ErrInvalidInput, name, raw)
	}
	return d, nil
}
