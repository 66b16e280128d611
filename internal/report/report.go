// Package report renders a run summary for the console.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/menta2k/vehicle-counter/pkg/pipeline"
	"github.com/menta2k/vehicle-counter/pkg/types"
)

// NotApplicable is printed for values that are undefined, such as the
// average time of a run with no frames
const NotApplicable = "n/a"

// CountLine returns the one-line count report, e.g.
// "Cars: 3 Bikes: 0 Pedestrian: 1 Bus: 0"
func CountLine(s *pipeline.Summary) string {
	parts := make([]string, 0, len(s.Counts))
	for _, e := range s.Counts {
		parts = append(parts, fmt.Sprintf("%s: %d", countLabel(e.Category), e.Count))
	}
	return strings.Join(parts, " ")
}

func countLabel(c types.Category) string {
	switch c {
	case types.Car:
		return "Cars"
	case types.Bike:
		return "Bikes"
	}
	return c.Title()
}

// Average formats the mean time per frame in seconds, or NotApplicable
func Average(s *pipeline.Summary) string {
	avg, err := s.Average()
	if errors.Is(err, pipeline.ErrDivisionUndefined) {
		return NotApplicable
	}
	return fmt.Sprintf("%.4f seconds", avg.Seconds())
}

// Table renders the per-category counts and the timing totals
func Table(s *pipeline.Summary) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Category", "Count"})
	for _, e := range s.Counts {
		t.AppendRow(table.Row{e.Category.Title(), e.Count})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"Total objects", s.Objects()})
	t.AppendRow(table.Row{"Frames", s.Frames})
	t.AppendRow(table.Row{"Total time", fmt.Sprintf("%.2f seconds", s.Total.Seconds())})
	t.AppendRow(table.Row{"Average per frame", Average(s)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	return t.Render()
}

// Write prints the full report to w
func Write(w io.Writer, s *pipeline.Summary) error {
	_, err := fmt.Fprintf(w, "Processing complete. Results:\n%s\n%s\n", CountLine(s), Table(s))
	return err
}
