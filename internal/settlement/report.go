package settlement

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// EmptyMessage is shown instead of a table when a period has no rows
const EmptyMessage = "No settlement data available for this period."

var printer = message.NewPrinter(language.Korean)

// FormatWon renders an amount with won sign and thousands grouping
func FormatWon(d decimal.Decimal) string {
	d = d.Round(2)
	whole := d.Truncate(0)
	s := printer.Sprintf("%d", whole.IntPart())
	if d.IsNegative() && whole.IsZero() {
		s = "-" + s
	}
	if frac := d.Sub(whole).Abs(); !frac.IsZero() {
		s += strings.TrimPrefix(frac.StringFixed(2), "0")
	}
	return "₩" + s
}

// WriteReport renders the summary cards and the per-instructor table.
// Failed and empty periods render the empty-state message, never an error.
func WriteReport(w io.Writer, snap Snapshot) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Settlement report %s\n", snap.Period)
	if snap.State == StateLoading {
		b.WriteString("Loading...\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "Gross expenditure   %s\n", FormatWon(snap.Summary.TotalPayout))
	fmt.Fprintf(&b, "Volume delivered    %s sessions\n", printer.Sprintf("%d", snap.Summary.TotalSessions))
	fmt.Fprintf(&b, "Active partners     %d\n\n", snap.Summary.PartnerCount)

	if snap.Empty() {
		b.WriteString(EmptyMessage + "\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ID\tPARTNER\tVOLUME\tBASE\tCOMMISSION\tNET PAYOUT\t")
	for _, row := range snap.Rows {
		commission := Breakdown(row, snap.Summary).Commission
		fmt.Fprintf(tw, "%d\t%s\t%d cls\t%s\t%s\t%s\t\n",
			row.InstructorID,
			row.Name,
			row.SessionCount,
			FormatWon(row.BasicPay),
			FormatWon(commission),
			FormatWon(row.TotalSalary),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteDetail renders one instructor's payout breakdown
func WriteDetail(w io.Writer, d Detail) error {
	_, err := fmt.Fprintf(w,
		"%s (#%d)\n"+
			"  Base pay        %s\n"+
			"  Sessions        %d x %s\n"+
			"  Commission      %s\n"+
			"  Net payout      %s\n"+
			"  Share of total  %s%%\n",
		d.Row.Name, d.Row.InstructorID,
		FormatWon(d.Row.BasicPay),
		d.Row.SessionCount, FormatWon(d.Row.PerSessionRate),
		FormatWon(d.Commission),
		FormatWon(d.Row.TotalSalary),
		d.SharePct.StringFixed(1),
	)
	return err
}
