package network

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// GraphPath names the graph output for base inside dir.
func GraphPath(dir, base string) string {
	return filepath.Join(dir, base+"_graph.tsv")
}

// DegreesPath names the degree output for base inside dir.
func DegreesPath(dir, base string) string {
	return filepath.Join(dir, base+"_degrees.tsv")
}

// WriteGraph writes g as a tab-separated edge list with a header.
func WriteGraph(w io.Writer, g *Graph) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write([]string{"source", "target", "distance"}); err != nil {
		return err
	}
	for _, e := range g.Edges {
		if err := cw.Write([]string{g.Strings[e.Source], g.Strings[e.Target], strconv.Itoa(e.Distance)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDegrees writes one row per string with its degree.
func WriteDegrees(w io.Writer, strs []string, deg []int) error {
	if len(strs) != len(deg) {
		return fmt.Errorf("degree count %d does not match corpus size %d", len(deg), len(strs))
	}
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write([]string{"cdr3", "degree"}); err != nil {
		return err
	}
	for i, s := range strs {
		if err := cw.Write([]string{s, strconv.Itoa(deg[i])}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteGraphFile writes g to path, replacing any existing file.
func WriteGraphFile(path string, g *Graph) error {
	return writeFile(path, func(w io.Writer) error { return WriteGraph(w, g) })
}

// WriteDegreesFile writes the degrees to path, replacing any existing file.
func WriteDegreesFile(path string, strs []string, deg []int) error {
	return writeFile(path, func(w io.Writer) error { return WriteDegrees(w, strs, deg) })
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return bw.Flush()
}
