// Package export renders session pricing results as xlsx cost reports.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/stemlabtz/stemquote/internal/models"
	"github.com/stemlabtz/stemquote/internal/pricing"
)

const (
	summarySheet   = "Summary"
	breakdownSheet = "Breakdown"
)

// CostReport builds the two-sheet workbook for a priced session. All figures
// are taken from the engine result as-is; nothing is recomputed here, so the
// report can never drift from what the API served.
func CostReport(session *models.Session, result *pricing.Result) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := writeSummary(f, session, result); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeBreakdown(f, result); err != nil {
		_ = f.Close()
		return nil, err
	}

	idx, err := f.GetSheetIndex(summarySheet)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	f.SetActiveSheet(idx)
	return f, nil
}

func writeSummary(f *excelize.File, session *models.Session, result *pricing.Result) error {
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	rows := [][]any{
		{"Session", session.Name},
		{"Client", session.ClientName},
		{"Contact", session.ClientContact},
		{"Students", session.StudentCount},
		{"Margin %", session.MarginPct},
		{"Status", session.Status},
		{"Created", time.Unix(session.CreatedAt, 0).Format("2006-01-02")},
		{},
		{"Total cost (TZS)", result.TotalCost},
		{"Price (TZS)", result.Price},
		{"Profit (TZS)", result.Profit},
		{"Price per student (TZS)", result.PricePerStudent},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}

	if err := f.SetColWidth(summarySheet, "A", "A", 24); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "B", "B", 32)
}

func writeBreakdown(f *excelize.File, result *pricing.Result) error {
	if _, err := f.NewSheet(breakdownSheet); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}

	header := []any{"Activity", "Material", "Unit", "Qty", "Unit cost", "Mode", "Multiplier", "Waste %", "Line total (TZS)"}
	if err := f.SetSheetRow(breakdownSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := 2
	for _, act := range result.Breakdown {
		for _, line := range act.Lines {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			values := []any{
				act.ActivityName,
				line.MaterialName,
				line.UnitType,
				line.QtyUsed,
				line.UnitCost,
				string(line.Mode),
				line.Multiplier,
				line.WastePct,
				line.ItemTotal,
			}
			if err := f.SetSheetRow(breakdownSheet, cell, &values); err != nil {
				return fmt.Errorf("write line row: %w", err)
			}
			row++
		}

		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		subtotal := []any{act.ActivityName + " subtotal", "", "", "", "", "", "", "", act.ActivityTotal}
		if err := f.SetSheetRow(breakdownSheet, cell, &subtotal); err != nil {
			return fmt.Errorf("write subtotal row: %w", err)
		}
		row++
	}

	if err := f.SetColWidth(breakdownSheet, "A", "B", 28); err != nil {
		return err
	}
	return f.SetColWidth(breakdownSheet, "C", "I", 14)
}
