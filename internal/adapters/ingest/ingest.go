// Package ingest reads position logs as a stream of bounded chunks.
//
// Readers never reject individual rows: unparsable numbers become NaN and
// the chunk processor drops the row. Only I/O and header problems are
// errors.
package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/okian/spoofwatch/internal/domain/model"
)

// Input formats.
const (
	FormatCSV    = "csv"
	FormatNDJSON = "ndjson"
)

// ctxCheckEvery is how many rows are read between context checks.
const ctxCheckEvery = 4096

// Source yields chunks until it returns io.EOF.
type Source interface {
	Next(ctx context.Context) (model.Chunk, error)
	Close() error
}

// Open opens path and returns a reader for format.
func Open(path, format string, opts ...Option) (Source, error) {
	if format != FormatCSV && format != FormatNDJSON {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	f, err := os.Open(path) //nolint:gosec // path is operator supplied
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}

	if format == FormatNDJSON {
		return NewNDJSONReader(f, opts...), nil
	}
	r, err := NewCSVReader(f, opts...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

// CSVReader reads a CSV position log with a header row.
type CSVReader struct {
	r      *csv.Reader
	closer io.Closer
	opts   options
	schema model.Schema

	ts, mmsi, lat, lon, sog, cog int

	next int
	eof  bool
}

// NewCSVReader reads the header from r and maps the configured columns.
// The timestamp, MMSI, latitude and longitude columns are required; SOG and
// COG are optional and their presence is reported in every chunk's Schema.
func NewCSVReader(r io.Reader, opts ...Option) (*CSVReader, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	pos := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}
	col := func(name string) int {
		if i, ok := pos[name]; ok {
			return i
		}
		return -1
	}

	c := &CSVReader{
		r:    cr,
		opts: o,
		ts:   col(o.columns.Timestamp),
		mmsi: col(o.columns.MMSI),
		lat:  col(o.columns.Latitude),
		lon:  col(o.columns.Longitude),
		sog:  col(o.columns.SOG),
		cog:  col(o.columns.COG),
	}
	for name, i := range map[string]int{
		o.columns.Timestamp: c.ts,
		o.columns.MMSI:      c.mmsi,
		o.columns.Latitude:  c.lat,
		o.columns.Longitude: c.lon,
	} {
		if i < 0 {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}
	c.schema = model.Schema{HasSOG: c.sog >= 0, HasCOG: c.cog >= 0}
	if closer, ok := r.(io.Closer); ok {
		c.closer = closer
	}
	return c, nil
}

// Schema reports which optional columns the header carries.
func (c *CSVReader) Schema() model.Schema { return c.schema }

// Next returns the next chunk of at most the configured size, or io.EOF.
func (c *CSVReader) Next(ctx context.Context) (model.Chunk, error) {
	if c.eof {
		return model.Chunk{}, io.EOF
	}

	recs := make([]model.Record, 0, min(c.opts.chunkSize, ctxCheckEvery))
	for len(recs) < c.opts.chunkSize {
		if len(recs)%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return model.Chunk{}, err
			}
		}
		row, err := c.r.Read()
		if errors.Is(err, io.EOF) {
			c.eof = true
			break
		}
		if err != nil {
			return model.Chunk{}, fmt.Errorf("read chunk %d: %w", c.next, err)
		}
		recs = append(recs, model.Record{
			MMSI:      cell(row, c.mmsi),
			Latitude:  float(cell(row, c.lat)),
			Longitude: float(cell(row, c.lon)),
			Timestamp: cell(row, c.ts),
			SOG:       float(cell(row, c.sog)),
			COG:       float(cell(row, c.cog)),
		})
	}
	if len(recs) == 0 {
		return model.Chunk{}, io.EOF
	}

	chunk := model.Chunk{Index: c.next, Schema: c.schema, Records: recs}
	c.next++
	return chunk, nil
}

// Close closes the underlying reader when it is closable.
func (c *CSVReader) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// NDJSONReader reads one JSON object per line. A chunk's schema reports SOG
// or COG when any record in the chunk carries the field.
type NDJSONReader struct {
	sc     *bufio.Scanner
	closer io.Closer
	opts   options
	next   int
	eof    bool
}

// NewNDJSONReader wraps r.
func NewNDJSONReader(r io.Reader, opts ...Option) *NDJSONReader {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	n := &NDJSONReader{sc: sc, opts: o}
	if closer, ok := r.(io.Closer); ok {
		n.closer = closer
	}
	return n
}

// Next returns the next chunk of at most the configured size, or io.EOF.
func (n *NDJSONReader) Next(ctx context.Context) (model.Chunk, error) {
	if n.eof {
		return model.Chunk{}, io.EOF
	}

	cols := n.opts.columns
	var schema model.Schema
	recs := make([]model.Record, 0, min(n.opts.chunkSize, ctxCheckEvery))
	for len(recs) < n.opts.chunkSize {
		if len(recs)%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return model.Chunk{}, err
			}
		}
		if !n.sc.Scan() {
			if err := n.sc.Err(); err != nil {
				return model.Chunk{}, fmt.Errorf("read chunk %d: %w", n.next, err)
			}
			n.eof = true
			break
		}
		line := n.sc.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		rec := model.Record{Latitude: math.NaN(), Longitude: math.NaN(), SOG: math.NaN(), COG: math.NaN()}
		gjson.ParseBytes(line).ForEach(func(key, value gjson.Result) bool {
			switch key.String() {
			case cols.Timestamp:
				rec.Timestamp = value.String()
			case cols.MMSI:
				rec.MMSI = value.String()
			case cols.Latitude:
				rec.Latitude = number(value)
			case cols.Longitude:
				rec.Longitude = number(value)
			case cols.SOG:
				rec.SOG = number(value)
				schema.HasSOG = true
			case cols.COG:
				rec.COG = number(value)
				schema.HasCOG = true
			}
			return true
		})
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return model.Chunk{}, io.EOF
	}

	chunk := model.Chunk{Index: n.next, Schema: schema, Records: recs}
	n.next++
	return chunk, nil
}

// Close closes the underlying reader when it is closable.
func (n *NDJSONReader) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer.Close()
}

// SliceReader serves in-memory records in chunks.
type SliceReader struct {
	records   []model.Record
	schema    model.Schema
	chunkSize int
	next      int
}

// NewSliceReader chunks records by chunkSize; a size below one selects
// DefaultChunkSize.
func NewSliceReader(records []model.Record, schema model.Schema, chunkSize int) *SliceReader {
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}
	return &SliceReader{records: records, schema: schema, chunkSize: chunkSize}
}

// Next returns the next chunk or io.EOF.
func (s *SliceReader) Next(ctx context.Context) (model.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return model.Chunk{}, err
	}
	start := s.next * s.chunkSize
	if start >= len(s.records) {
		return model.Chunk{}, io.EOF
	}
	end := min(start+s.chunkSize, len(s.records))

	chunk := model.Chunk{Index: s.next, Schema: s.schema, Records: s.records[start:end:end]}
	s.next++
	return chunk, nil
}

// Close is a no-op.
func (s *SliceReader) Close() error { return nil }

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func float(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func number(v gjson.Result) float64 {
	switch v.Type {
	case gjson.Number:
		return v.Float()
	case gjson.String:
		return float(v.Str)
	default:
		return math.NaN()
	}
}
