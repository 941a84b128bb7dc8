package sink

import (
	"encoding/json"
	"io"

	"github.com/rustyeddy/execfeed/market"
)

// JSONSaver writes an indented JSON array of flat records.
type JSONSaver struct {
	Compress bool
}

func (s JSONSaver) Extension() string { return extension("json", s.Compress) }

func (s JSONSaver) SaveExecutions(path string, execs []market.Execution) error {
	return writeJSON(path, s.Compress, market.ExecutionRecords(execs))
}

func (s JSONSaver) SaveCandles(path string, candles []market.Candle) error {
	return writeJSON(path, s.Compress, market.CandleRecords(candles))
}

func writeJSON(path string, compress bool, v any) error {
	return writeFile(path, compress, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}
