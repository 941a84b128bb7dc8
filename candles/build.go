package candles

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/execfeed/market"
)

// Build turns ascending buckets into candles. An empty bucket becomes a flat
// zero-volume candle at the previous close; seed stands in for the previous
// close before the first bucket.
func Build(buckets []Bucket, seed decimal.Decimal) []market.Candle {
	out := make([]market.Candle, 0, len(buckets))
	lastClose := seed
	for _, b := range buckets {
		var c market.Candle
		if b.Empty() {
			c = market.FlatCandle(b.Start, lastClose)
		} else {
			c = summarize(b)
		}
		out = append(out, c)
		lastClose = c.Close
	}
	return out
}

func summarize(b Bucket) market.Candle {
	first := b.Executions[0]
	c := market.Candle{
		Start:  b.Start,
		Open:   first.Price,
		High:   first.Price,
		Low:    first.Price,
		Close:  b.Executions[len(b.Executions)-1].Price,
		Volume: decimal.Zero,
		Trades: len(b.Executions),
	}

	notional := decimal.Zero
	for _, e := range b.Executions {
		if e.Price.GreaterThan(c.High) {
			c.High = e.Price
		}
		if e.Price.LessThan(c.Low) {
			c.Low = e.Price
		}
		c.Volume = c.Volume.Add(e.Size)
		notional = notional.Add(e.Notional())
	}

	if c.Volume.IsZero() {
		// zero-size prints carry no weight
		c.VWAP = c.Close
	} else {
		c.VWAP = notional.Div(c.Volume)
	}
	return c
}

// InitialClose is the open of the first non-empty bucket, used as the seed
// when none is configured. ok=false when every bucket is empty.
func InitialClose(buckets []Bucket) (decimal.Decimal, bool) {
	for _, b := range buckets {
		if !b.Empty() {
			return b.Executions[0].Price, true
		}
	}
	return decimal.Zero, false
}

// Aggregate buckets execs and builds their candles. A nil seed falls back to
// InitialClose.
func Aggregate(execs []market.Execution, opts Options, seed *decimal.Decimal) []market.Candle {
	buckets := Bucketize(execs, opts)
	s := decimal.Zero
	if seed != nil {
		s = *seed
	} else if first, ok := InitialClose(buckets); ok {
		s = first
	}
	return Build(buckets, s)
}
