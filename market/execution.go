package market

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Execution is one matched trade reported by the venue.
type Execution struct {
	ID          int64
	Side        Side
	Price       decimal.Decimal
	Size        decimal.Decimal
	Time        time.Time
	BuyOrderID  string
	SellOrderID string
}

// Validate checks the invariants every execution must satisfy.
func (e Execution) Validate() error {
	if e.Side != Buy && e.Side != Sell {
		return fmt.Errorf("%w: execution %d: unknown side %q", ErrInvalidInput, e.ID, e.Side)
	}
	if e.Price.IsNegative() {
		return fmt.Errorf("%w: execution %d: negative price %s", ErrInvalidInput, e.ID, e.Price)
	}
	if e.Size.IsNegative() {
		return fmt.Errorf("%w: execution %d: negative size %s", ErrInvalidInput, e.ID, e.Size)
	}
	if e.Time.IsZero() {
		return fmt.Errorf("%w: execution %d: missing timestamp", ErrInvalidInput, e.ID)
	}
	return nil
}

// Notional is price times size.
func (e Execution) Notional() decimal.Decimal {
	return e.Price.Mul(e.Size)
}

// MinID returns the smallest id in execs, ok=false when execs is empty.
func MinID(execs []Execution) (id int64, ok bool) {
	for i, e := range execs {
		if i == 0 || e.ID < id {
			id = e.ID
		}
	}
	return id, len(execs) > 0
}

// MaxID returns the largest id in execs, ok=false when execs is empty.
func MaxID(execs []Execution) (id int64, ok bool) {
	for i, e := range execs {
		if i == 0 || e.ID > id {
			id = e.ID
		}
	}
	return id, len(execs) > 0
}
