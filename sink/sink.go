package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/rustyeddy/execfeed/market"
)

// ErrUnknownFormat is returned for a format other than json, csv or parquet.
var ErrUnknownFormat = errors.New("unknown output format")

const xzSuffix = ".xz"

// Saver writes executions and candles to one file per call. The crawler and
// aggregator depend only on this interface.
type Saver interface {
	SaveExecutions(path string, execs []market.Execution) error
	SaveCandles(path string, candles []market.Candle) error
	// Extension is the file suffix without the leading dot, e.g. "json.xz".
	Extension() string
}

// NewSaver returns the saver for format. compress adds xz and is only
// accepted for json and csv.
func NewSaver(format string, compress bool) (Saver, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return JSONSaver{Compress: compress}, nil
	case "csv":
		return CSVSaver{Compress: compress}, nil
	case "parquet":
		if compress {
			return nil, fmt.Errorf("parquet is already compressed; drop compress")
		}
		return ParquetSaver{}, nil
	default:
		return nil, fmt.Errorf("%w %q (use json, csv or parquet)", ErrUnknownFormat, format)
	}
}

// MustSaver is like NewSaver but panics on a bad format.
func MustSaver(format string, compress bool) Saver {
	s, err := NewSaver(format, compress)
	if err != nil {
		panic(fmt.Sprintf("sink: %v", err))
	}
	return s
}

func extension(base string, compress bool) string {
	if compress {
		return base + xzSuffix
	}
	return base
}

// create opens path for writing and layers an xz stream on top when asked.
// Closing the returned writer flushes the compressor before the file.
func create(path string, compress bool) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if !compress {
		return f, nil
	}
	zw, err := xz.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("xz writer: %w", err)
	}
	return &stackedWriter{Writer: zw, closers: []io.Closer{zw, f}}, nil
}

// open reads path, transparently decompressing a .xz file.
func open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, xzSuffix) {
		return f, nil
	}
	zr, err := xz.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("xz reader: %w", err)
	}
	return struct {
		io.Reader
		io.Closer
	}{zr, f}, nil
}

type stackedWriter struct {
	io.Writer
	closers []io.Closer
}

func (w *stackedWriter) Close() error {
	var errs []error
	for _, c := range w.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// writeFile runs fn against a fresh file and reports the first error from
// fn or from closing.
func writeFile(path string, compress bool, fn func(io.Writer) error) (err error) {
	w, err := create(path, compress)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(w)
}
