package reporter

import (
	"fmt"
	"io"

	"sales-reconciliation-service/internal/channel"

	"github.com/xuri/excelize/v2"
)

const (
	sheetPivot = "Pivot"
	sheetKPIs  = "KPIs"
	sheetDiffs = "Diffs"
	sheetAudit = "Audit"
)

// writeWorkbook renders the payload as an xlsx workbook with one sheet
// per report surface.
func writeWorkbook(p *Payload, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writePivotSheet(f, p); err != nil {
		return err
	}
	if err := writeKPISheet(f, p); err != nil {
		return err
	}
	if err := writeDiffSheet(f, p); err != nil {
		return err
	}
	if err := writeAuditSheet(f, p); err != nil {
		return err
	}

	// The default sheet excelize creates is replaced by the pivot.
	idx, err := f.GetSheetIndex(sheetPivot)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writePivotSheet(f *excelize.File, p *Payload) error {
	if err := f.SetSheetName("Sheet1", sheetPivot); err != nil {
		return err
	}

	header := []interface{}{fmt.Sprintf("Month (%s)", p.Window.Label)}
	for _, code := range channel.All() {
		header = append(header, code.String())
	}
	header = append(header, "TOTAL")
	if err := setRow(f, sheetPivot, 1, header); err != nil {
		return err
	}

	for i, row := range p.Rows {
		cells := []interface{}{row.Month.String()}
		for _, code := range channel.All() {
			cells = append(cells, row.Amounts[code.String()].InexactFloat64())
		}
		cells = append(cells, row.Total.InexactFloat64())
		if err := setRow(f, sheetPivot, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func writeKPISheet(f *excelize.File, p *Payload) error {
	if _, err := f.NewSheet(sheetKPIs); err != nil {
		return err
	}
	if err := setRow(f, sheetKPIs, 1, []interface{}{"Month", "Total", "MoM", "YTD", "Target", "Achievement %"}); err != nil {
		return err
	}
	for i, k := range p.KPIs {
		cells := []interface{}{k.Month.String(), k.Total.InexactFloat64()}
		if k.MonthOverMonth != nil {
			cells = append(cells, k.MonthOverMonth.InexactFloat64())
		} else {
			cells = append(cells, nil)
		}
		cells = append(cells, k.YearToDate.InexactFloat64(), k.Target.InexactFloat64())
		if k.Achievement != nil {
			cells = append(cells, k.Achievement.InexactFloat64())
		} else {
			cells = append(cells, nil)
		}
		if err := setRow(f, sheetKPIs, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func writeDiffSheet(f *excelize.File, p *Payload) error {
	if _, err := f.NewSheet(sheetDiffs); err != nil {
		return err
	}
	if err := setRow(f, sheetDiffs, 1, []interface{}{"Comparison", "Month", "Channel", "Delta"}); err != nil {
		return err
	}
	row := 2
	for _, r := range p.StoredUnifiedDiff {
		if err := setRow(f, sheetDiffs, row, []interface{}{"unified_vs_resolved", r.Month.String(), r.Channel, r.Delta.InexactFloat64()}); err != nil {
			return err
		}
		row++
	}
	for _, r := range p.PipelineDiff {
		if err := setRow(f, sheetDiffs, row, []interface{}{"final_vs_computed", r.Month.String(), r.Channel, r.Delta.InexactFloat64()}); err != nil {
			return err
		}
		row++
	}
	return nil
}

func writeAuditSheet(f *excelize.File, p *Payload) error {
	if _, err := f.NewSheet(sheetAudit); err != nil {
		return err
	}
	if err := setRow(f, sheetAudit, 1, []interface{}{"Source", "Raw label", "First seen", "Last seen", "Total", "Rows"}); err != nil {
		return err
	}
	for i, u := range p.Unclassified {
		cells := []interface{}{u.Source.String(), u.RawLabel, u.FirstSeen.String(), u.LastSeen.String(), u.Total.InexactFloat64(), u.Rows}
		if err := setRow(f, sheetAudit, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &cells)
}
