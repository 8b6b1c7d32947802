// Package tabular holds CSV files in memory as string cells with a header.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Frame is a header plus rows of cells. Every row has len(Header) cells.
type Frame struct {
	Header []string
	Rows   [][]string
}

func New(header []string) *Frame {
	return &Frame{Header: append([]string(nil), header...)}
}

// ReadFile loads a whole CSV file. A missing file yields an error matching os.ErrNotExist.
func ReadFile(path string) (*Frame, error) {
	return readFile(path, -1)
}

// ReadFileHead loads the header and at most n data rows.
func ReadFileHead(path string, n int) (*Frame, error) {
	return readFile(path, n)
}

func readFile(path string, limit int) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	frame, err := read(file, limit)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return frame, nil
}

func Read(r io.Reader) (*Frame, error) {
	return read(r, -1)
}

func read(r io.Reader, limit int) (*Frame, error) {
	bufReader := bufio.NewReaderSize(r, 256*1024)

	// Skip UTF-8 BOM if present
	bom, err := bufReader.Peek(3)
	if err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty csv: no header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	frame := New(header)
	for limit < 0 || len(frame.Rows) < limit {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(frame.Rows)+2, err)
		}
		if isBlank(record) {
			continue
		}
		if len(record) > len(header) {
			return nil, fmt.Errorf("read row %d: expected %d fields, saw %d", len(frame.Rows)+2, len(header), len(record))
		}
		frame.Rows = append(frame.Rows, fit(record, len(header)))
	}
	return frame, nil
}

func isBlank(record []string) bool {
	return len(record) == 1 && record[0] == ""
}

// fit pads short records to the header width.
func fit(record []string, width int) []string {
	if len(record) == width {
		return record
	}
	out := make([]string, width)
	copy(out, record)
	return out
}

func (f *Frame) Len() int {
	return len(f.Rows)
}

// Index returns the position of the first column named name, or -1.
func (f *Frame) Index(name string) int {
	for i, h := range f.Header {
		if h == name {
			return i
		}
	}
	return -1
}

func (f *Frame) Has(name string) bool {
	return f.Index(name) >= 0
}

// Column returns a copy of the named column's cells; nil when absent.
func (f *Frame) Column(name string) []string {
	idx := f.Index(name)
	if idx < 0 {
		return nil
	}
	values := make([]string, len(f.Rows))
	for i, row := range f.Rows {
		values[i] = row[idx]
	}
	return values
}

func (f *Frame) SetColumn(name string, values []string) error {
	idx := f.Index(name)
	if idx < 0 {
		return fmt.Errorf("column %q not found", name)
	}
	if len(values) != len(f.Rows) {
		return fmt.Errorf("column %q: %d values for %d rows", name, len(values), len(f.Rows))
	}
	for i, row := range f.Rows {
		row[idx] = values[i]
	}
	return nil
}

func (f *Frame) AppendColumn(name string, values []string) error {
	if len(values) != len(f.Rows) {
		return fmt.Errorf("column %q: %d values for %d rows", name, len(values), len(f.Rows))
	}
	f.Header = append(f.Header, name)
	for i := range f.Rows {
		f.Rows[i] = append(f.Rows[i], values[i])
	}
	return nil
}

// DropColumns removes every column whose name is listed. Unknown names are ignored.
func (f *Frame) DropColumns(names ...string) {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	keep := make([]int, 0, len(f.Header))
	for i, h := range f.Header {
		if _, ok := drop[h]; !ok {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(f.Header) {
		return
	}
	f.Header = pick(f.Header, keep)
	for i, row := range f.Rows {
		f.Rows[i] = pick(row, keep)
	}
}

func pick(values []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}

func (f *Frame) Rename(from, to string) bool {
	idx := f.Index(from)
	if idx < 0 {
		return false
	}
	f.Header[idx] = to
	return true
}

// Filter keeps rows for which keep returns true, preserving order.
func (f *Frame) Filter(keep func(i int, row []string) bool) {
	kept := f.Rows[:0]
	for i, row := range f.Rows {
		if keep(i, row) {
			kept = append(kept, row)
		}
	}
	f.Rows = kept
}

// Head returns a frame sharing the first n rows.
func (f *Frame) Head(n int) *Frame {
	if n < 0 || n > len(f.Rows) {
		n = len(f.Rows)
	}
	return &Frame{Header: f.Header, Rows: f.Rows[:n]}
}

func (f *Frame) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(f.Header); err != nil {
		return err
	}
	if err := writer.WriteAll(f.Rows); err != nil {
		return err
	}
	return writer.Error()
}

func (f *Frame) WriteFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := f.Write(file); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}

func (f *Frame) CSV() (string, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FormatNumber renders integral values without a fractional part.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
