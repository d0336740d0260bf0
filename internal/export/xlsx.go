// Package export renders confirmed assignments as an xlsx workbook for the
// tournament office.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/fairwaylive/draw-backend/internal/store"
)

const sheet = "Assignments"

// WriteAssignments writes one row per confirmed assignment, ordered as
// confirmed (which is how the records come back from the store).
func WriteAssignments(w io.Writer, recs []store.AssignmentRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	headers := []any{"Group", "Position", "Nickname", "Candidate ID", "Confirmed At"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("header row: %w", err)
	}

	for i, rec := range recs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		row := []any{rec.GroupNo, rec.Position, rec.Nickname, rec.CandidateID, rec.ConfirmedAt.Format("2006-01-02 15:04:05")}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
