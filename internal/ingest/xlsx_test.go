package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestConvertXLSXPrefersKindSheet(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "inventory_may.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "notes"))
	_, err := f.NewSheet("Daily Inventory")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Daily Inventory", "A2", &[]interface{}{"product_id", "market_id", "inventory_date", "leftover_qty"}))
	require.NoError(t, f.SetSheetRow("Daily Inventory", "A3", &[]interface{}{"bagel", "m1", "2024-05-01"}))
	require.NoError(t, f.SaveAs(src))
	require.NoError(t, f.Close())

	dst := filepath.Join(dir, "out.csv")
	require.NoError(t, ConvertXLSXToCSV(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "product_id,market_id,inventory_date,leftover_qty\nbagel,m1,2024-05-01,\n", string(data))
}

func TestPickSheetFallsBackToFirst(t *testing.T) {
	name, err := pickSheet([]string{"Data", "Other"}, "/tmp/sales/may.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "Data", name)

	_, err = pickSheet(nil, "empty.xlsx")
	assert.Error(t, err)
}
