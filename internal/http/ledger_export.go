package httpapi

import (
	"bytes"
	"fmt"
	"time"

	"dental-ledger/internal/domain"

	"github.com/xuri/excelize/v2"
)

const statementSheet = "Statement"

// StatementHeader payment table columns
var StatementHeader = []string{
	"Payment Date",
	"Amount",
	"Payment Method",
	"Applied To",
	"Notes",
	"Payment ID",
}

var statementColumnWidths = []float64{14, 14, 16, 44, 40, 38}

// GeneratePatientStatement one-sheet workbook: summary block, then payments newest first
func GeneratePatientStatement(sum *domain.PaymentSummary, payments []*domain.Payment, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(statementSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create bold style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// summary block: rows 1-6
	summaryRows := [][2]string{
		{"Patient", sum.PatientID},
		{"Total Cost", domain.FormatAmount(sum.TotalCost)},
		{"Total Paid", domain.FormatAmount(sum.TotalPaid)},
		{"Balance", domain.FormatAmount(sum.Balance)},
		{"Status", sum.Status()},
		{"Generated", generatedAt.UTC().Format(time.RFC3339)},
	}
	for i, kv := range summaryRows {
		row := i + 1
		if err := setRow(f, row, kv[0], kv[1]); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(statementSheet, cellName(1, row), cellName(1, row), boldStyle); err != nil {
			return nil, fmt.Errorf("failed to set summary style: %w", err)
		}
	}

	headerRow := len(summaryRows) + 2
	for col, header := range StatementHeader {
		cell := cellName(col+1, headerRow)
		if err := f.SetCellValue(statementSheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(statementSheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}
	for i, width := range statementColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(statementSheet, col, col, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, p := range payments {
		notes := ""
		if p.Notes != nil {
			notes = *p.Notes
		}
		// amounts stay text so the sheet shows exactly what the ledger holds
		if err := setRow(f, headerRow+1+i,
			p.PaymentDate.Format(dateLayout),
			domain.FormatAmount(p.Amount),
			p.Method,
			appliedTo(p),
			notes,
			p.ID,
		); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func appliedTo(p *domain.Payment) string {
	switch {
	case p.TreatmentID != nil:
		return "treatment " + *p.TreatmentID
	case p.LabWorkID != nil:
		return "lab work " + *p.LabWorkID
	default:
		return "account"
	}
}

func setRow(f *excelize.File, row int, values ...string) error {
	for col, v := range values {
		cell := cellName(col+1, row)
		if err := f.SetCellStr(statementSheet, cell, v); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
