package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/execfeed/candles"
	"github.com/rustyeddy/execfeed/market"
	"github.com/rustyeddy/execfeed/sink"
)

// AggregateFile reads an executions file, builds candles and writes them to
// out. It is the second stage of Run on its own.
func AggregateFile(in, out string, saver sink.Saver, opts candles.Options, seed *decimal.Decimal) ([]market.Candle, error) {
	execs, err := sink.LoadExecutions(in)
	if err != nil {
		return nil, err
	}
	result := candles.Aggregate(execs, opts, seed)
	if err := saver.SaveCandles(out, result); err != nil {
		return nil, fmt.Errorf("save candles: %w", err)
	}
	return result, nil
}

// CandlesPathFor names the candle file for an executions file:
// out/executions_X.json becomes out/candles_X.<ext>.
func CandlesPathFor(in string, saver sink.Saver) string {
	dir, name := filepath.Split(in)
	name = strings.TrimSuffix(name, ".xz")
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if strings.HasPrefix(name, "executions") {
		name = "candles" + strings.TrimPrefix(name, "executions")
	} else {
		name = "candles_" + name
	}
	return filepath.Join(dir, name+"."+saver.Extension())
}
