package sink

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/rustyeddy/execfeed/market"
)

// FormatOf infers the format from a file name, ignoring a trailing .xz.
func FormatOf(path string) (format string, compressed bool) {
	compressed = strings.HasSuffix(path, xzSuffix)
	base := strings.TrimSuffix(path, xzSuffix)
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(base)), "."), compressed
}

// LoadExecutions reads a file written by any Saver. Every record is
// validated; a bad record is market.ErrInvalidInput.
func LoadExecutions(path string) ([]market.Execution, error) {
	var (
		recs []market.ExecutionRecord
		err  error
	)
	switch format, _ := FormatOf(path); format {
	case "json":
		err = readJSON(path, &recs)
	case "csv":
		recs, err = readExecutionCSV(path)
	case "parquet":
		recs, err = readExecutionParquet(path)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("load executions %s: %w", path, err)
	}
	execs, err := market.ExecutionsFromRecords(recs)
	if err != nil {
		return nil, fmt.Errorf("load executions %s: %w", path, err)
	}
	return execs, nil
}

// LoadCandles reads a candle file written by any Saver.
func LoadCandles(path string) ([]market.Candle, error) {
	var (
		recs []market.CandleRecord
		err  error
	)
	switch format, _ := FormatOf(path); format {
	case "json":
		err = readJSON(path, &recs)
	case "csv":
		recs, err = readCandleCSV(path)
	case "parquet":
		recs, err = readCandleParquet(path)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("load candles %s: %w", path, err)
	}
	candles, err := market.CandlesFromRecords(recs)
	if err != nil {
		return nil, fmt.Errorf("load candles %s: %w", path, err)
	}
	return candles, nil
}

func readJSON(path string, v any) error {
	r, err := open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", market.ErrInvalidInput, err)
	}
	return nil
}

func readCSV(path string, header []string) ([][]string, error) {
	r, err := open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", market.ErrInvalidInput, err)
	}
	if len(rows) == 0 || !slices.Equal(rows[0], header) {
		return nil, fmt.Errorf("%w: missing or unexpected header", market.ErrInvalidInput)
	}
	return rows[1:], nil
}

func readExecutionCSV(path string) ([]market.ExecutionRecord, error) {
	rows, err := readCSV(path, executionHeader)
	if err != nil {
		return nil, err
	}
	recs := make([]market.ExecutionRecord, 0, len(rows))
	for i, row := range rows {
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: bad id %q", market.ErrInvalidInput, i+2, row[0])
		}
		recs = append(recs, market.ExecutionRecord{
			ID:          id,
			Side:        row[1],
			Price:       json.Number(row[2]),
			Size:        json.Number(row[3]),
			ExecDate:    row[4],
			BuyOrderID:  row[5],
			SellOrderID: row[6],
		})
	}
	return recs, nil
}

func readCandleCSV(path string) ([]market.CandleRecord, error) {
	rows, err := readCSV(path, candleHeader)
	if err != nil {
		return nil, err
	}
	recs := make([]market.CandleRecord, 0, len(rows))
	for i, row := range rows {
		trades, err := strconv.Atoi(row[7])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: bad trades %q", market.ErrInvalidInput, i+2, row[7])
		}
		recs = append(recs, market.CandleRecord{
			Minute: row[0],
			Open:   json.Number(row[1]),
			High:   json.Number(row[2]),
			Low:    json.Number(row[3]),
			Close:  json.Number(row[4]),
			Volume: json.Number(row[5]),
			VWAP:   json.Number(row[6]),
			Trades: trades,
		})
	}
	return recs, nil
}

func readExecutionParquet(path string) ([]market.ExecutionRecord, error) {
	rows, err := parquet.ReadFile[executionRow](path)
	if err != nil {
		return nil, err
	}
	recs := make([]market.ExecutionRecord, len(rows))
	for i, r := range rows {
		recs[i] = market.ExecutionRecord{
			ID:          r.ID,
			Side:        r.Side,
			Price:       json.Number(r.Price),
			Size:        json.Number(r.Size),
			ExecDate:    r.ExecDate,
			BuyOrderID:  r.BuyOrderID,
			SellOrderID: r.SellOrderID,
		}
	}
	return recs, nil
}

func readCandleParquet(path string) ([]market.CandleRecord, error) {
	rows, err := parquet.ReadFile[candleRow](path)
	if err != nil {
		return nil, err
	}
	recs := make([]market.CandleRecord, len(rows))
	for i, r := range rows {
		recs[i] = market.CandleRecord{
			Minute: r.Minute,
			Open:   json.Number(r.Open),
			High:   json.Number(r.High),
			Low:    json.Number(r.Low),
			Close:  json.Number(r.Close),
			Volume: json.Number(r.Volume),
			VWAP:   json.Number(r.VWAP),
			Trades: int(r.Trades),
		}
	}
	return recs, nil
}
