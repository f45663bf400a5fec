// Package benchmark measures how computation time scales with corpus size
// and backend, and persists one record per measurement.
package benchmark

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/multierr"
)

// Header is the column layout of the benchmark table.
var Header = []string{"nstrings", "ncores", "spark", "type", "min_ld", "max_ld", "dt"}

// Record is one timed computation.
type Record struct {
	NStrings    int
	NCores      int
	Distributed bool
	Type        string
	MinLD       int
	MaxLD       int
	Elapsed     time.Duration
}

// Row renders r in Header order; dt is in seconds.
func (r Record) Row() []string {
	return []string{
		strconv.Itoa(r.NStrings),
		strconv.Itoa(r.NCores),
		strconv.FormatBool(r.Distributed),
		r.Type,
		strconv.Itoa(r.MinLD),
		strconv.Itoa(r.MaxLD),
		strconv.FormatFloat(r.Elapsed.Seconds(), 'f', 6, 64),
	}
}

// Sink persists records.
type Sink interface {
	Write(ctx context.Context, r Record) error
	Close() error
}

// CSVSink writes records to a delimited table file that stays open for the
// whole run. Each row is flushed as it is written.
type CSVSink struct {
	f *os.File
	w *csv.Writer
}

// OpenCSV opens the table at path. In append mode an existing non-empty
// table is extended without a new header; otherwise the file is truncated
// and the header written first.
func OpenCSV(path string, appendMode bool) (*CSVSink, error) {
	writeHeader := true
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			writeHeader = false
			flags = os.O_WRONLY | os.O_APPEND
		}
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open benchmark table: %w", err)
	}

	s := &CSVSink{f: f, w: csv.NewWriter(f)}
	if writeHeader {
		if err := s.writeRow(Header); err != nil {
			f.Close()
			return nil, err
		}
	}
	return s, nil
}

// Write appends one row.
func (s *CSVSink) Write(_ context.Context, r Record) error {
	return s.writeRow(r.Row())
}

func (s *CSVSink) writeRow(row []string) error {
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("failed to write benchmark row: %w", err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("failed to flush benchmark row: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (s *CSVSink) Close() error {
	s.w.Flush()
	return multierr.Append(s.w.Error(), s.f.Close())
}

// MultiSink fans records out to several sinks in order.
type MultiSink []Sink

// Write stops at the first failing sink.
func (m MultiSink) Write(ctx context.Context, r Record) error {
	for _, s := range m {
		if err := s.Write(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and combines their errors.
func (m MultiSink) Close() error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.Close())
	}
	return err
}
