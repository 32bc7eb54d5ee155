package export

import (
	"fmt"
	"io"

	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/dvloznov/pfm-ledger/internal/query"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Transactions"

var xlsxHeaders = []string{"ID", "Date", "Type", "Category", "Description", "Amount", "Currency", "Source", "Needs review"}

// WriteXLSX writes records to a single sheet workbook followed by an
// income/expense summary.
func WriteXLSX(w io.Writer, records []domain.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("WriteXLSX: rename sheet: %w", err)
	}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return fmt.Errorf("WriteXLSX: header style: %w", err)
	}
	amountFormat := "#,##0.00"
	amountStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &amountFormat, Border: border})
	if err != nil {
		return fmt.Errorf("WriteXLSX: amount style: %w", err)
	}
	summaryStyle, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true, Size: 11},
		Fill:         excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		CustomNumFmt: &amountFormat,
		Border:       border,
	})
	if err != nil {
		return fmt.Errorf("WriteXLSX: summary style: %w", err)
	}

	widths := map[string]float64{"A": 8, "B": 12, "C": 10, "D": 16, "E": 36, "F": 16, "G": 10, "H": 10, "I": 14}
	for col, width := range widths {
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return fmt.Errorf("WriteXLSX: column width: %w", err)
		}
	}

	for i, header := range xlsxHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("WriteXLSX: header: %w", err)
		}
	}
	if err := f.SetCellStyle(sheetName, "A1", "I1", headerStyle); err != nil {
		return fmt.Errorf("WriteXLSX: header style: %w", err)
	}

	for i, tx := range records {
		row := i + 2
		values := []any{
			tx.ID,
			tx.Date.String(),
			string(tx.Type),
			string(tx.Category),
			tx.Description,
			tx.Amount.InexactFloat64(),
			tx.Currency,
			string(tx.Source),
			tx.NeedsReview,
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, start, &values); err != nil {
			return fmt.Errorf("WriteXLSX: row %d: %w", row, err)
		}
		amountCell, _ := excelize.CoordinatesToCellName(6, row)
		if err := f.SetCellStyle(sheetName, amountCell, amountCell, amountStyle); err != nil {
			return fmt.Errorf("WriteXLSX: amount style: %w", err)
		}
	}

	totals, err := query.CalculateTotals(records, query.TotalsFilter{})
	if err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}
	summaryRow := len(records) + 3
	summary := []struct {
		label string
		value float64
	}{
		{"Income", totals.Income.InexactFloat64()},
		{"Expense", totals.Expense.InexactFloat64()},
		{"Balance", totals.Balance.InexactFloat64()},
	}
	for i, s := range summary {
		row := summaryRow + i
		labelCell, _ := excelize.CoordinatesToCellName(5, row)
		valueCell, _ := excelize.CoordinatesToCellName(6, row)
		if err := f.SetCellValue(sheetName, labelCell, s.label); err != nil {
			return fmt.Errorf("WriteXLSX: summary: %w", err)
		}
		if err := f.SetCellValue(sheetName, valueCell, s.value); err != nil {
			return fmt.Errorf("WriteXLSX: summary: %w", err)
		}
		if err := f.SetCellStyle(sheetName, labelCell, valueCell, summaryStyle); err != nil {
			return fmt.Errorf("WriteXLSX: summary style: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("WriteXLSX: write workbook: %w", err)
	}
	return nil
}
