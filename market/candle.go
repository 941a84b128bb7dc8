package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is the OHLCV summary of one time bucket.
type Candle struct {
	Start  time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
	VWAP   decimal.Decimal
	Trades int
}

// Empty reports whether the candle was carried forward from a previous close.
func (c Candle) Empty() bool {
	return c.Trades == 0 && c.Volume.IsZero()
}

// FlatCandle is a zero-volume candle pinned to price.
func FlatCandle(start time.Time, price decimal.Decimal) Candle {
	return Candle{
		Start:  start,
		Open:   price,
		High:   price,
		Low:    price,
		Close:  price,
		Volume: decimal.Zero,
		VWAP:   price,
	}
}
