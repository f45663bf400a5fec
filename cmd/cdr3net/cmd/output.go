package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"

	"github.com/dbsmedya/cdr3net/internal/benchmark"
	"github.com/dbsmedya/cdr3net/internal/workflow"
)

// printTable writes rows under header with columns padded to their display width.
func printTable(w io.Writer, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	line := func(cells []string) string {
		padded := make([]string, len(cells))
		for i, c := range cells {
			padded[i] = runewidth.FillRight(c, widths[i])
		}
		return strings.TrimRight(strings.Join(padded, "  "), " ")
	}

	fmt.Fprintln(w, color.Bold.Sprint(line(header)))
	for _, row := range rows {
		fmt.Fprintln(w, line(row))
	}
}

func printTitle(w io.Writer, title string) {
	fmt.Fprintln(w, color.Cyan.Sprint(title))
}

func backendName(distributed bool) string {
	if distributed {
		return "distributed"
	}
	return "local"
}

func outcomeRow(o *workflow.Outcome) []string {
	return []string{
		o.Name,
		strconv.FormatInt(o.Lines, 10),
		backendName(o.Distributed),
		o.Duration.Round(time.Millisecond).String(),
	}
}

var outcomeHeader = []string{"INPUT", "STRINGS", "BACKEND", "DURATION"}

func printOutcomes(w io.Writer, title string, outcomes ...*workflow.Outcome) {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, outcomeRow(o))
	}
	printTitle(w, title)
	printTable(w, outcomeHeader, rows)
}

func printRecords(w io.Writer, records []benchmark.Record) {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.Itoa(r.NStrings),
			r.Type,
			backendName(r.Distributed),
			r.Elapsed.Round(time.Millisecond).String(),
		})
	}
	printTitle(w, fmt.Sprintf("Benchmark: %d measurement(s)", len(records)))
	printTable(w, []string{"STRINGS", "TYPE", "BACKEND", "DT"}, rows)
}

// collectOutcomes flattens a directory result in processing order.
func collectOutcomes(m *orderedmap.OrderedMap[string, *workflow.Outcome]) []*workflow.Outcome {
	out := make([]*workflow.Outcome, 0, m.Len())
	for el := m.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}
