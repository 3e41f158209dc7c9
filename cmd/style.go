package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/simonvc/fundledger/internal/ledger"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// header prints a table header row.
func header(format string, a ...any) {
	fmt.Println(headerStyle.Render(fmt.Sprintf(format, a...)))
}

// statusText colours an event status by where it sits in the workflow.
// The text is padded before styling so tables stay aligned.
func statusText(s ledger.EventStatus, width int) string {
	text := fmt.Sprintf("%-*s", width, s)
	switch s {
	case ledger.StatusApproved:
		return successStyle.Render(text)
	case ledger.StatusRejected:
		return errorStyle.Render(text)
	case ledger.StatusSubmitted, ledger.StatusPendingRevision:
		return pendingStyle.Render(text)
	case ledger.StatusCancelled:
		return dimStyle.Render(text)
	}
	return text
}

// amountText right-aligns an amount and shows negatives in red.
func amountText(d decimal.Decimal, width int) string {
	text := fmt.Sprintf("%*s", width, ledger.FormatAmount(d))
	if d.IsNegative() {
		return errorStyle.Render(text)
	}
	return text
}

// PrintError reports a command failure with the ledger error kind when
// there is one.
func PrintError(w io.Writer, err error) {
	msg := err.Error()
	if kind := ledger.KindOf(err); kind != "" {
		msg = fmt.Sprintf("%s (%s)", msg, kind)
	}
	fmt.Fprintln(w, errorStyle.Render("error: "+msg))
}
