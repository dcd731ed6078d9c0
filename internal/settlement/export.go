package settlement

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

var exportHeaders = []string{"Instructor ID", "Partner", "Sessions", "Base Pay", "Per Session", "Commission", "Net Payout"}

// SheetName is the worksheet name used for a period's export
func SheetName(p Period) string {
	return "Settlement " + p.String()
}

// ExportXLSX writes the snapshot's rows and totals as an xlsx workbook
func ExportXLSX(w io.Writer, snap Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(snap.Period)
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	rowIndex := 2
	for _, row := range snap.Rows {
		commission := Breakdown(row, snap.Summary).Commission
		values := []interface{}{
			row.InstructorID,
			row.Name,
			row.SessionCount,
			row.BasicPay.InexactFloat64(),
			row.PerSessionRate.InexactFloat64(),
			commission.InexactFloat64(),
			row.TotalSalary.InexactFloat64(),
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowIndex)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowIndex, err)
		}
		rowIndex++
	}

	f.SetCellValue(sheet, fmt.Sprintf("B%d", rowIndex), "Total")
	f.SetCellValue(sheet, fmt.Sprintf("C%d", rowIndex), snap.Summary.TotalSessions)
	f.SetCellValue(sheet, fmt.Sprintf("G%d", rowIndex), snap.Summary.TotalPayout.InexactFloat64())

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		f.SetCellStyle(sheet, "A1", "G1", style)
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", rowIndex), fmt.Sprintf("G%d", rowIndex), style)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
