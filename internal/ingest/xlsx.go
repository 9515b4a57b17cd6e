package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ConvertXLSXToCSV writes one sheet of a workbook as CSV. A sheet named after
// the file's kind ("sales", "daily_inventory", ...) wins over the first
// sheet. Blank rows before the header and between records are dropped.
func ConvertXLSXToCSV(xlsxPath, csvPath string) error {
	f, err := excelize.OpenFile(xlsxPath)
	if err != nil {
		return fmt.Errorf("open workbook %s: %w", xlsxPath, err)
	}
	defer f.Close()

	sheet, err := pickSheet(f.GetSheetList(), xlsxPath)
	if err != nil {
		return err
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return fmt.Errorf("read sheet %q of %s: %w", sheet, xlsxPath, err)
	}
	defer rows.Close()

	out, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", csvPath, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	width := 0
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("read row from %s: %w", xlsxPath, err)
		}
		if blankRecord(record) {
			continue
		}
		// excelize trims trailing empty cells
		if width == 0 {
			width = len(record)
		}
		for len(record) < width {
			record = append(record, "")
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write %s: %w", csvPath, err)
		}
	}
	if err := rows.Error(); err != nil {
		return fmt.Errorf("iterate rows of %s: %w", xlsxPath, err)
	}

	w.Flush()
	return w.Error()
}

func pickSheet(sheets []string, path string) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook %s has no sheets", path)
	}
	if kind, err := DetectKind(path); err == nil {
		for _, name := range sheets {
			if k, ok := kindAliases[normalizeHeader(name)]; ok && k == kind {
				return name, nil
			}
		}
	}
	return sheets[0], nil
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
