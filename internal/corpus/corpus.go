// Package corpus loads CDR3 string collections from files and directories.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrColumnNotFound is returned when the requested column is not in the header.
var ErrColumnNotFound = errors.New("column not found")

// CountLines counts the lines in r and rewinds it to the start, so the
// caller's next read sees the same content. A final line without a trailing
// newline is counted.
func CountLines(r io.ReadSeeker) (int64, error) {
	buf := make([]byte, 64*1024)
	var count int64
	var last byte = '\n'

	for {
		n, err := r.Read(buf)
		if n > 0 {
			count += int64(bytes.Count(buf[:n], []byte{'\n'}))
			last = buf[n-1]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to count lines: %w", err)
		}
	}
	if last != '\n' {
		count++
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to rewind after counting: %w", err)
	}
	return count, nil
}

// CountFileLines opens path and counts its lines.
func CountFileLines(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return CountLines(f)
}

// Read returns the sequences in r. With an empty column every line is one
// sequence. Otherwise the first line is a header, the delimiter is a tab if
// the header has one and a comma if not, and the named column is returned
// with empty cells skipped.
func Read(r io.Reader, column string) ([]string, error) {
	if column == "" {
		return readLines(r)
	}

	br := bufio.NewReader(r)
	header, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if header == "" {
		return []string{}, nil
	}

	cr := csv.NewReader(io.MultiReader(strings.NewReader(header), br))
	cr.Comma = ','
	if strings.Contains(header, "\t") {
		cr.Comma = '\t'
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	fields, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	idx := -1
	for i, f := range fields {
		if strings.TrimSpace(f) == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}

	var out []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse row: %w", err)
		}
		if idx >= len(rec) {
			continue
		}
		if v := strings.TrimSpace(rec[idx]); v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		out = append(out, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lines: %w", err)
	}
	return out, nil
}

// Load opens path and reads the named column.
func Load(path, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seqs, err := Read(f, column)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seqs, nil
}

// ListFiles returns the non-directory entries of dir, in name order.
// Subdirectories are not descended into.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// BaseName returns the file name of path without its extension.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
