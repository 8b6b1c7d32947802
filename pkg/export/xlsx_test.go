package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/climatehealth/platform/pkg/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWorkbookRoundTrip(t *testing.T) {
	frame, err := tabular.Read(strings.NewReader("MemberID,Plan_zip,Age,risk_percentage\nM1,02134,70,41.27\nM2,10001,40,\n"))
	require.NoError(t, err)

	data, err := Workbook(frame, "ANALYSIS_20230701_patients.csv")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	sheet := "ANALYSIS_20230701_patients"
	assert.Equal(t, []string{sheet}, f.GetSheetList())

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"MemberID", "Plan_zip", "Age", "risk_percentage"}, rows[0])
	assert.Equal(t, []string{"M1", "02134", "70", "41.27"}, rows[1])

	typ, err := f.GetCellType(sheet, "C2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
	typ, err = f.GetCellType(sheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, excelize.CellTypeSharedString, typ)

	panes, err := f.GetPanes(sheet)
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, 1, panes.YSplit)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "patients", SheetName("patients.csv"))
	assert.Equal(t, "a_b", SheetName("a:b.csv"))
	assert.Equal(t, "Sheet1", SheetName(""))
	assert.Len(t, SheetName(strings.Repeat("x", 50)+".csv"), 31)
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, 70.0, cellValue("70"))
	assert.Equal(t, "02134", cellValue("02134"))
	assert.Equal(t, "", cellValue(""))
	assert.Equal(t, "NaN", cellValue("NaN"))
}
