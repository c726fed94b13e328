package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/ppiankov/gradelens/internal/model"
)

var (
	headerColor    = color.New(color.FgCyan, color.Bold)
	labelColor     = color.New(color.FgWhite)
	severityColors = map[model.SignalSeverity]*color.Color{
		model.SeverityInfo:     color.New(color.FgGreen),
		model.SeverityWarning:  color.New(color.FgYellow),
		model.SeverityCritical: color.New(color.FgRed, color.Bold),
	}
)

// PrintSummary writes a colored overview of the snapshot for terminals.
// Color is dropped automatically when w is not a TTY (color.NoColor).
func PrintSummary(w io.Writer, source string, snap model.Snapshot) {
	separator := "════════════════════════════════════════════════════════════"

	headerColor.Fprintln(w, separator)
	headerColor.Fprintf(w, "  Grading agreement: %s\n", source)
	headerColor.Fprintln(w, separator)

	line := func(label, value string) {
		labelColor.Fprintf(w, "  %-22s", label)
		fmt.Fprintln(w, value)
	}
	line("Items", fmt.Sprintf("%d (%d students, %d questions)", snap.TotalItems, snap.TotalStudents, snap.TotalQuestions))
	line("MAE / RMSE", fmt.Sprintf("%s / %s", snap.MAE.Format(3), snap.RMSE.Format(3)))
	line("MAPE", snap.MAPE.Format(2)+"%")
	line("Mean bias", snap.Bias.Format(3))
	line("Pearson / Spearman", fmt.Sprintf("%s / %s", snap.PearsonR.Format(3), snap.SpearmanR.Format(3)))
	line("Flagged", fmt.Sprintf("%d (%s%%)", snap.FlagCount, snap.FlagPercent.Format(1)))
	fmt.Fprintln(w)

	for _, sig := range snap.Signals {
		c, ok := severityColors[sig.Severity]
		if !ok {
			c = labelColor
		}
		c.Fprintf(w, "  [%s] ", sig.Severity)
		fmt.Fprintln(w, sig.Description)
	}

	if len(snap.Questions) > 0 {
		fmt.Fprintln(w)
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Question", "Items", "MAE", "Max", "Flagged"})
		table.SetAutoFormatHeaders(false)
		for _, q := range snap.Questions {
			table.Append([]string{
				q.QuestionID,
				strconv.Itoa(q.Count),
				q.MAE.Format(2),
				q.MaxAbsError.Format(2),
				fmt.Sprintf("%d (%s%%)", q.FlagCount, q.FlagPercent.Format(0)),
			})
		}
		table.Render()
	}
	headerColor.Fprintln(w, separator)
}
