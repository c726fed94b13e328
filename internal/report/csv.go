package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ppiankov/gradelens/internal/flagging"
	"github.com/ppiankov/gradelens/internal/model"
)

// Review queue extra columns
const (
	ColPriority = "priority"
	ColReasons  = "reasons"
)

// CSVOptions controls delimited exports
type CSVOptions struct {
	Delimiter    rune // ',' when zero
	OriginalOnly bool // omit abs_error, percent_error, flag
}

// DelimiterFor maps the configured delimiter name onto a rune.
func DelimiterFor(name string) rune {
	if name == "tab" || name == "\t" {
		return '\t'
	}
	return ','
}

// Columns returns the export header for opts.
func (o CSVOptions) Columns() []string {
	cols := append([]string(nil), model.OriginalColumns...)
	if !o.OriginalOnly {
		cols = append(cols, model.DerivedColumns...)
	}
	return cols
}

// WriteCSV writes ds as a delimited table with a fixed column order.
// Numbers use the shortest representation that parses back to the same
// float64, so the output re-validates to identical records.
func WriteCSV(w io.Writer, ds model.Dataset, opts CSVOptions) error {
	cw := newWriter(w, opts)
	if err := cw.Write(opts.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, rec := range ds.Records {
		if err := cw.Write(row(rec, opts)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteReviewQueue writes queue items in queue order with their priority
// and the reasons they were flagged.
func WriteReviewQueue(w io.Writer, items []flagging.ReviewItem, opts CSVOptions) error {
	cw := newWriter(w, opts)
	if err := cw.Write(append(opts.Columns(), ColPriority, ColReasons)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, item := range items {
		reasons := make([]string, len(item.Reasons))
		for j, r := range item.Reasons {
			reasons[j] = string(r)
		}
		cells := append(row(item.Record, opts), string(item.Priority), strings.Join(reasons, ";"))
		if err := cw.Write(cells); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func newWriter(w io.Writer, opts CSVOptions) *csv.Writer {
	cw := csv.NewWriter(w)
	if opts.Delimiter != 0 {
		cw.Comma = opts.Delimiter
	}
	return cw
}

func row(rec model.GradingRecord, opts CSVOptions) []string {
	cells := []string{
		rec.StudentID,
		rec.QuestionID,
		num(rec.TAScore),
		num(rec.LLMScore),
		num(rec.MaxPoints),
		num(rec.Confidence),
		strconv.FormatBool(rec.Flags),
	}
	if opts.OriginalOnly {
		return cells
	}

	absErr := math.Abs(rec.LLMScore - rec.TAScore)
	pct := ""
	if rec.MaxPoints > 0 {
		pct = num(flagging.PercentError(absErr, rec.MaxPoints))
	}
	return append(cells, num(absErr), pct, strconv.FormatBool(rec.Flags))
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
