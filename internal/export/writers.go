package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary   = "Summary"
	SheetDetailed  = "Detailed Responses"
	SheetReference = "Question Reference"
)

// WriteCSV writes the detailed responses table only.
func WriteCSV(w io.Writer, t *Tables) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.Detailed.Headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range t.Detailed.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

// WriteWorkbook renders the three sheets into an xlsx document.
func WriteWorkbook(t *Tables) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// the default sheet becomes the summary
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Metric", "Value"},
		{"Survey", t.Summary.SurveyType},
		{"Total Submissions", t.Summary.Total},
		{"Completed", t.Summary.Completed},
		{"In Progress", t.Summary.InProgress},
		{"Completion Rate (%)", fmt.Sprintf("%.1f", t.Summary.CompletionRate)},
		{"Submissions in Last 7 Days", t.Summary.RecentActivity},
		{"Exported At", t.Summary.ExportedAt.UTC().Format(TimestampLayout)},
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return nil, err
	}

	for _, sheet := range []struct {
		name  string
		table Table
	}{
		{SheetDetailed, t.Detailed},
		{SheetReference, t.Reference},
	} {
		if _, err := f.NewSheet(sheet.name); err != nil {
			return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
		}
		if err := writeRows(f, sheet.name, tableRows(sheet.table)); err != nil {
			return nil, err
		}
	}

	index, err := f.GetSheetIndex(SheetSummary)
	if err != nil {
		return nil, fmt.Errorf("failed to select Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func tableRows(t Table) [][]interface{} {
	rows := make([][]interface{}, 0, len(t.Rows)+1)
	rows = append(rows, toInterfaces(t.Headers))
	for _, r := range t.Rows {
		rows = append(rows, toInterfaces(r))
	}
	return rows
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("failed to address cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write cell %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
