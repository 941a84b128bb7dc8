package sink

import (
	"github.com/parquet-go/parquet-go"

	"github.com/rustyeddy/execfeed/market"
)

// Decimals are kept as their exact text so the loader decides the SQL type.
type executionRow struct {
	ID          int64  `parquet:"id"`
	Side        string `parquet:"side,dict"`
	Price       string `parquet:"price"`
	Size        string `parquet:"size"`
	ExecDate    string `parquet:"exec_date"`
	BuyOrderID  string `parquet:"buy_child_order_acceptance_id,optional"`
	SellOrderID string `parquet:"sell_child_order_acceptance_id,optional"`
}

type candleRow struct {
	Minute string `parquet:"minute"`
	Open   string `parquet:"open"`
	High   string `parquet:"high"`
	Low    string `parquet:"low"`
	Close  string `parquet:"close"`
	Volume string `parquet:"volume"`
	VWAP   string `parquet:"vwap"`
	Trades int64  `parquet:"trades"`
}

// ParquetSaver writes one row group per file.
type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

func (ParquetSaver) SaveExecutions(path string, execs []market.Execution) error {
	rows := make([]executionRow, len(execs))
	for i, e := range execs {
		r := e.Record()
		rows[i] = executionRow{
			ID:          r.ID,
			Side:        r.Side,
			Price:       r.Price.String(),
			Size:        r.Size.String(),
			ExecDate:    r.ExecDate,
			BuyOrderID:  r.BuyOrderID,
			SellOrderID: r.SellOrderID,
		}
	}
	return parquet.WriteFile(path, rows)
}

func (ParquetSaver) SaveCandles(path string, candles []market.Candle) error {
	rows := make([]candleRow, len(candles))
	for i, c := range candles {
		r := c.Record()
		rows[i] = candleRow{
			Minute: r.Minute,
			Open:   r.Open.String(),
			High:   r.High.String(),
			Low:    r.Low.String(),
			Close:  r.Close.String(),
			Volume: r.Volume.String(),
			VWAP:   r.VWAP.String(),
			Trades: int64(r.Trades),
		}
	}
	return parquet.WriteFile(path, rows)
}
