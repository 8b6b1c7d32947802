package tabular

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadStripsBOMAndPadsRows(t *testing.T) {
	frame, err := Read(strings.NewReader("\ufeffa,b,c\n1,2\n4,5,6\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, frame.Header)
	assert.Equal(t, [][]string{{"1", "2", ""}, {"4", "5", "6"}}, frame.Rows)
}

func TestReadRejectsRowsWiderThanHeader(t *testing.T) {
	_, err := Read(strings.NewReader("a,b,c\n1,2,3\n4,5,6,7\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read row 3: expected 3 fields, saw 4")
}

func TestReadEmpty(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.Error(t, err)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReadFileHead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n1\n2\n3\n"), 0o644))
	frame, err := ReadFileHead(path, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, frame.Len())
}

func TestColumnOps(t *testing.T) {
	frame := &Frame{Header: []string{"a", "b", "c"}, Rows: [][]string{{"1", "2", "3"}, {"4", "5", "6"}}}

	frame.DropColumns("b", "missing")
	assert.Equal(t, []string{"a", "c"}, frame.Header)
	assert.Equal(t, []string{"3", "6"}, frame.Column("c"))

	assert.True(t, frame.Rename("c", "z"))
	assert.False(t, frame.Rename("c", "y"))
	require.NoError(t, frame.AppendColumn("n", []string{"x", "y"}))
	assert.Error(t, frame.AppendColumn("bad", []string{"x"}))

	frame.Filter(func(_ int, row []string) bool { return row[0] != "1" })
	assert.Equal(t, [][]string{{"4", "6", "y"}}, frame.Rows)

	out, err := frame.CSV()
	require.NoError(t, err)
	assert.Equal(t, "a,z,n\n4,6,y\n", out)
}

func TestInnerJoinSuffixesAndOrder(t *testing.T) {
	left := &Frame{Header: []string{"id", "zip", "date"}, Rows: [][]string{
		{"p1", "10001", "x"},
		{"p2", "99999", "x"},
		{"p3", "10002", "x"},
		{"p4", "10001", "x"},
	}}
	right := &Frame{Header: []string{"date", "zipcode", "AQI"}, Rows: [][]string{
		{"20230701", "10002", "40"},
		{"20230701", "10001", "120"},
	}}

	joined := InnerJoin(left, left.Column("zip"), right, right.Column("zipcode"))
	assert.Equal(t, []string{"id", "zip", "date_x", "date_y", "zipcode", "AQI"}, joined.Header)
	require.Equal(t, 3, joined.Len())
	assert.LessOrEqual(t, joined.Len(), left.Len())
	assert.Equal(t, []string{"p1", "p3", "p4"}, joined.Column("id"))
	assert.Equal(t, []string{"120", "40", "120"}, joined.Column("AQI"))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "10001", FormatNumber(10001))
	assert.Equal(t, "42.17", FormatNumber(42.17))
}
