package sink

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rustyeddy/execfeed/market"
)

var (
	executionHeader = []string{"id", "side", "price", "size", "exec_date",
		"buy_child_order_acceptance_id", "sell_child_order_acceptance_id"}
	candleHeader = []string{"minute", "open", "high", "low", "close", "volume", "vwap", "trades"}
)

// CSVSaver writes one header row and one row per record.
type CSVSaver struct {
	Compress bool
}

func (s CSVSaver) Extension() string { return extension("csv", s.Compress) }

func (s CSVSaver) SaveExecutions(path string, execs []market.Execution) error {
	return writeFile(path, s.Compress, func(w io.Writer) error {
		rows := make([][]string, 0, len(execs)+1)
		rows = append(rows, executionHeader)
		for _, e := range execs {
			r := e.Record()
			rows = append(rows, []string{
				strconv.FormatInt(r.ID, 10),
				r.Side,
				r.Price.String(),
				r.Size.String(),
				r.ExecDate,
				r.BuyOrderID,
				r.SellOrderID,
			})
		}
		return csv.NewWriter(w).WriteAll(rows)
	})
}

func (s CSVSaver) SaveCandles(path string, candles []market.Candle) error {
	return writeFile(path, s.Compress, func(w io.Writer) error {
		rows := make([][]string, 0, len(candles)+1)
		rows = append(rows, candleHeader)
		for _, c := range candles {
			r := c.Record()
			rows = append(rows, []string{
				r.Minute,
				r.Open.String(),
				r.High.String(),
				r.Low.String(),
				r.Close.String(),
				r.Volume.String(),
				r.VWAP.String(),
				strconv.Itoa(r.Trades),
			})
		}
		return csv.NewWriter(w).WriteAll(rows)
	})
}
