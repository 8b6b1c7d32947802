// Package weather reads the daily AQI reference table.
package weather

import (
	"context"
	"errors"
	"os"

	"github.com/climatehealth/platform/pkg/common/apperr"
	"github.com/climatehealth/platform/pkg/common/logger"
	"github.com/climatehealth/platform/pkg/normalizer"
	"github.com/climatehealth/platform/pkg/tabular"
)

// Column names of the reference table.
const (
	ColumnDate     = "date"
	ColumnZIP      = "zipcode"
	ColumnAQI      = "AQI"
	ColumnCategory = "aqi_category"
)

type Record struct {
	Date     string `json:"date"`
	ZIP      string `json:"zipcode"`
	AQI      string `json:"AQI"`
	Category string `json:"aqi_category"`
}

// Lookup re-reads the table on every call; nothing is cached.
type Lookup struct {
	path string
}

func NewLookup(path string) *Lookup {
	return &Lookup{path: path}
}

// ForDate returns the date, zipcode, AQI and aqi_category columns for one date.
// A missing table is KindNotFound; a date without rows is KindNoData.
func (l *Lookup) ForDate(ctx context.Context, date string) (*tabular.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, err := tabular.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.New(apperr.KindNotFound, "weather data file not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, err, "reading weather data")
	}

	var missing []string
	for _, col := range []string{ColumnDate, ColumnZIP, ColumnAQI} {
		if !table.Has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.MissingColumns(missing)
	}

	dateIdx := table.Index(ColumnDate)
	table.Filter(func(_ int, row []string) bool {
		return normalizer.MatchDate(row[dateIdx], date)
	})

	logger.Log.WithFields(map[string]interface{}{
		"date": date,
		"rows": table.Len(),
	}).Debug("weather rows for date")

	if table.Len() == 0 {
		return nil, apperr.New(apperr.KindNoData, "no weather data found for date %s", date)
	}
	return project(table), nil
}

// Records is ForDate shaped for JSON responses.
func (l *Lookup) Records(ctx context.Context, date string) ([]Record, error) {
	frame, err := l.ForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	dateIdx, zipIdx, aqiIdx, catIdx := frame.Index(ColumnDate), frame.Index(ColumnZIP), frame.Index(ColumnAQI), frame.Index(ColumnCategory)
	records := make([]Record, 0, frame.Len())
	for _, row := range frame.Rows {
		records = append(records, Record{
			Date:     row[dateIdx],
			ZIP:      row[zipIdx],
			AQI:      row[aqiIdx],
			Category: row[catIdx],
		})
	}
	return records, nil
}

// project keeps the four reference columns; a table without aqi_category gets an empty one.
func project(table *tabular.Frame) *tabular.Frame {
	cols := []string{ColumnDate, ColumnZIP, ColumnAQI, ColumnCategory}
	idx := make([]int, len(cols))
	for i, c := range cols {
		idx[i] = table.Index(c)
	}
	out := tabular.New(cols)
	out.Rows = make([][]string, 0, table.Len())
	for _, row := range table.Rows {
		projected := make([]string, len(cols))
		for i, j := range idx {
			if j >= 0 {
				projected[i] = row[j]
			}
		}
		out.Rows = append(out.Rows, projected)
	}
	return out
}
