package spreadsheet

import (
	"fmt"
	"strings"

	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/xuri/excelize/v2"
)

const workOrderSheet = "Work orders"

var workOrderHeaders = []string{
	"Scheduled", "Duration (min)", "Status", "Client", "Address",
	"Technician", "Description", "Required skills", "Completed",
}

// WorkOrdersXLSX writes work orders into a single-sheet workbook.
func WorkOrdersXLSX(orders []model.WorkOrderDetail) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", workOrderSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(workOrderHeaders))
	for i, h := range workOrderHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(workOrderSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DEEBF4"}},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(workOrderHeaders))
	if err := f.SetCellStyle(workOrderSheet, "A1", lastCol+"1", bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 22})
	if err != nil {
		return nil, fmt.Errorf("create date style: %w", err)
	}

	for i, wo := range orders {
		row := i + 2
		technician := ""
		if wo.TechnicianName != nil {
			technician = *wo.TechnicianName
		}
		var completed interface{}
		if wo.CompletedAt != nil {
			completed = *wo.CompletedAt
		}

		values := []interface{}{
			wo.ScheduledFor,
			wo.DurationMinutes,
			string(wo.Status),
			wo.ClientName,
			wo.ClientAddress,
			technician,
			wo.Description,
			strings.Join(wo.RequiredSkills, ", "),
			completed,
		}

		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(workOrderSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(values), row)
		_ = f.SetCellStyle(workOrderSheet, first, first, dateStyle)
		_ = f.SetCellStyle(workOrderSheet, last, last, dateStyle)
	}

	if err := f.SetColWidth(workOrderSheet, "A", lastCol, 18); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetPanes(workOrderSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
