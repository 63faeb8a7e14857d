// Package export renders completed-session summaries as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/nhohoai/study-engine/internal/domain"
)

// SummarySheet is the name of the sheet holding the summary table.
const SummarySheet = "Summary"

// ContentType is the media type of WriteSummary output.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var summaryHeader = []any{"Term", "Meaning", "Note", "Correct", "Wrong", "Hard", "Carry over"}

// WriteSummary writes summary as an xlsx workbook to w. Rows keep the
// summary's order; carry-over cards are flagged in the last column.
func WriteSummary(w io.Writer, deckTitle string, summary domain.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", SummarySheet)

	if deckTitle != "" {
		f.SetDocProps(&excelize.DocProperties{Title: deckTitle})
	}

	if err := f.SetSheetRow(SummarySheet, "A1", &summaryHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "G1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	carry := make(map[int64]bool, len(summary.CarryOver))
	for _, id := range summary.CarryOver {
		carry[id] = true
	}

	for i, r := range summary.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{r.Term, r.Meaning, r.Note, r.CorrectCount, r.WrongCount, flag(r.Hard), flag(carry[r.CardID])}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("write row %s: %w", strconv.FormatInt(r.CardID, 10), err)
		}
	}

	if err := f.SetColWidth(SummarySheet, "A", "C", 24); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func flag(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
