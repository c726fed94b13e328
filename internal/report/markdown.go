package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/ppiankov/gradelens/internal/flagging"
	"github.com/ppiankov/gradelens/internal/model"
)

// DefaultTitle is the report heading when none is configured
const DefaultTitle = "Grading Analysis Report"

// StudentTableLimit caps the highest-error and best-agreement student tables
const StudentTableLimit = 10

// MarkdownOptions controls the structured text report
type MarkdownOptions struct {
	Title         string
	Rule          flagging.Rule // thresholds quoted in the flag summary
	Findings      bool          // key findings and recommendations sections
	IncludeFooter bool
}

// Markdown renders the snapshot as a fixed-structure Markdown report. The
// heading timestamp is the snapshot's generation time.
func Markdown(snap model.Snapshot, opts MarkdownOptions) string {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = DefaultTitle
	}
	rule := opts.Rule
	if rule == (flagging.Rule{}) {
		rule = flagging.DefaultRule()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", title)
	fmt.Fprintf(&b, "Generated: %s\n\n", snap.GeneratedAt.Format(HeadingTimestamp))

	b.WriteString("## Executive Summary\n")
	fmt.Fprintf(&b, "- Total Items Analyzed: %d\n", snap.TotalItems)
	fmt.Fprintf(&b, "- Students: %d, Questions: %d\n", snap.TotalStudents, snap.TotalQuestions)
	fmt.Fprintf(&b, "- Mean Absolute Error: %s\n", snap.MAE.Format(2))
	fmt.Fprintf(&b, "- Correlation: %s\n", snap.PearsonR.Format(3))
	fmt.Fprintf(&b, "- Items Flagged for Review: %d (%s%%)\n\n", snap.FlagCount, snap.FlagPercent.Format(1))

	b.WriteString("## Global Metrics\n\n")
	b.WriteString(markdownTable([]string{"Metric", "Value"}, globalRows(snap)))
	b.WriteString("\n")

	b.WriteString("## Per-Question Summary\n\n")
	if len(snap.Questions) == 0 {
		b.WriteString("No records in view.\n\n")
	} else {
		b.WriteString(markdownTable(
			[]string{"Question", "Items", "MAE", "Std Abs Error", "Max Abs Error", "Mean Confidence", "Flagged", "Flag %", "Pearson r"},
			questionRows(snap.Questions),
		))
		b.WriteString("\n")
	}

	writeStudents(&b, snap.Students)

	b.WriteString("## Flag Summary\n")
	fmt.Fprintf(&b, "- Flagged: %d of %d (%s%%)\n", snap.FlagCount, snap.TotalItems, snap.FlagPercent.Format(1))
	fmt.Fprintf(&b, "- Low confidence (< %s): %d\n", trim(rule.ConfidenceThreshold), snap.LowConfidenceCount)
	fmt.Fprintf(&b, "- High percent error (> %s%%): %d\n\n", trim(rule.PercentErrorThreshold), snap.HighErrorCount)

	if opts.Findings {
		writeFindings(&b, snap)
	}

	if opts.IncludeFooter {
		b.WriteString("---\n")
		b.WriteString("*Generated by gradelens. Metrics describe agreement between LLM and TA scores; flags mark items for human review and do not change any grade.*\n")
	}

	return b.String()
}

func globalRows(s model.Snapshot) [][]string {
	loa := "N/A"
	if s.LowerLoA.Defined() && s.UpperLoA.Defined() {
		loa = fmt.Sprintf("[%s, %s]", s.LowerLoA.Format(2), s.UpperLoA.Format(2))
	}
	return [][]string{
		{"MAE", s.MAE.Format(3)},
		{"RMSE", s.RMSE.Format(3)},
		{"MAPE (%)", s.MAPE.Format(2)},
		{"Max Error", s.MaxError.Format(3)},
		{"Mean Bias (LLM - TA)", s.Bias.Format(3)},
		{"Std of Error", s.StdError.Format(3)},
		{"Limits of Agreement (95%)", loa},
		{"Pearson r", withP(s.PearsonR, s.PearsonP)},
		{"Spearman rho", withP(s.SpearmanR, s.SpearmanP)},
		{"Mean Confidence", s.MeanConfidence.Format(3)},
	}
}

func questionRows(qs []model.QuestionSummary) [][]string {
	rows := make([][]string, len(qs))
	for i, q := range qs {
		rows[i] = []string{
			q.QuestionID,
			strconv.Itoa(q.Count),
			q.MAE.Format(3),
			q.StdAbsError.Format(3),
			q.MaxAbsError.Format(3),
			q.MeanConfidence.Format(2),
			strconv.Itoa(q.FlagCount),
			q.FlagPercent.Format(1),
			q.PearsonR.Format(3),
		}
	}
	return rows
}

// writeStudents lists the students needing review most, then the best
// agreeing students from the tail. The two tables never share a student.
func writeStudents(b *strings.Builder, students []model.StudentSummary) {
	if len(students) == 0 {
		return
	}
	header := []string{"Student", "Items", "MAE", "Mean % Error", "Flagged"}

	highest := students[:min(StudentTableLimit, len(students))]
	b.WriteString("## Per-Student Agreement\n\n")
	b.WriteString("### Highest Error Students\n\n")
	b.WriteString(markdownTable(header, studentRows(highest)))
	b.WriteString("\n")

	rest := students[len(highest):]
	if len(rest) == 0 {
		return
	}
	best := make([]model.StudentSummary, 0, StudentTableLimit)
	for i := len(rest) - 1; i >= 0 && len(best) < StudentTableLimit; i-- {
		best = append(best, rest[i])
	}
	b.WriteString("### Best Agreement Students\n\n")
	b.WriteString(markdownTable(header, studentRows(best)))
	b.WriteString("\n")
}

func studentRows(ss []model.StudentSummary) [][]string {
	rows := make([][]string, len(ss))
	for i, st := range ss {
		rows[i] = []string{
			st.StudentID,
			strconv.Itoa(st.Count),
			st.MAE.Format(2),
			st.MeanPercentError.Format(2),
			strconv.Itoa(st.FlagCount),
		}
	}
	return rows
}

func withP(r, p model.Value) string {
	if !r.Defined() {
		return "N/A"
	}
	return fmt.Sprintf("%s (p = %s)", r.Format(3), p.Format(4))
}

func writeFindings(b *strings.Builder, s model.Snapshot) {
	b.WriteString("## Key Findings\n")
	fmt.Fprintf(b, "- Average model confidence: %s\n", s.MeanConfidence.Format(2))
	if s.Bias.Defined() {
		direction := "higher"
		if s.Bias < 0 {
			direction = "lower"
		}
		fmt.Fprintf(b, "- Bias: LLM scores are on average %s points %s than TA scores\n", model.Value(math.Abs(s.Bias.Float())).Format(2), direction)
	}
	for _, sig := range s.Signals {
		fmt.Fprintf(b, "- %s\n", sig.Description)
	}
	b.WriteString("\n")

	b.WriteString("## Recommendations\n")
	for _, rec := range Recommendations(s) {
		fmt.Fprintf(b, "- %s\n", rec)
	}
	b.WriteString("\n")
}

// Recommendations derives follow-up actions from the snapshot.
func Recommendations(s model.Snapshot) []string {
	var out []string
	switch {
	case !s.PearsonR.Defined():
		out = append(out, "Not enough variation to judge agreement. Collect more graded items before drawing conclusions.")
	case s.PearsonR > 0.7:
		out = append(out, "Model shows good agreement with TAs. Consider expanding automated grading.")
	default:
		out = append(out, "Model needs improvement before wider deployment.")
	}
	if s.FlagCount > 0 {
		out = append(out, "Review flagged items to identify patterns for prompt improvement.")
	}
	if s.MAE.Defined() && s.MAE > 2 {
		msg := "Focus on questions with highest error rates for prompt refinement."
		if worst, ok := worstQuestion(s.Questions); ok {
			msg = fmt.Sprintf("Focus on questions with highest error rates for prompt refinement, starting with %s (MAE %s).", worst.QuestionID, worst.MAE.Format(2))
		}
		out = append(out, msg)
	}
	return out
}

func worstQuestion(qs []model.QuestionSummary) (model.QuestionSummary, bool) {
	var worst model.QuestionSummary
	found := false
	for _, q := range qs {
		if !q.MAE.Defined() {
			continue
		}
		if !found || q.MAE > worst.MAE {
			worst, found = q, true
		}
	}
	return worst, found
}

func markdownTable(header []string, rows [][]string) string {
	var buf strings.Builder
	table := tablewriter.NewWriter(&buf)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.AppendBulk(rows)
	table.Render()
	return buf.String()
}

func trim(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
