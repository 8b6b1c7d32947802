package weather

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/climatehealth/platform/pkg/common/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWeather(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weather_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestForDateFilters(t *testing.T) {
	path := writeWeather(t, "date,zipcode,AQI,aqi_category,temp\n"+
		"20230701,10001,120,unhealthy,30\n"+
		"20230702,10001,50,good,25\n"+
		"20230701,10002,40,good,28\n")

	frame, err := NewLookup(path).ForDate(context.Background(), "20230701")
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "zipcode", "AQI", "aqi_category"}, frame.Header)
	assert.Equal(t, []string{"10001", "10002"}, frame.Column("zipcode"))
	assert.Equal(t, []string{"unhealthy", "good"}, frame.Column("aqi_category"))
}

func TestMissingFileAndMissingDateAreDistinct(t *testing.T) {
	_, err := NewLookup(filepath.Join(t.TempDir(), "absent.csv")).ForDate(context.Background(), "20230701")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "weather data file not found")

	path := writeWeather(t, "date,zipcode,AQI,aqi_category\n20230701,10001,120,unhealthy\n")
	_, err = NewLookup(path).ForDate(context.Background(), "19990101")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNoData, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "19990101")
}

func TestMissingCategoryTolerated(t *testing.T) {
	path := writeWeather(t, "date,zipcode,AQI\n20230701,10001,120\n")
	records, err := NewLookup(path).Records(context.Background(), "20230701")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, Record{Date: "20230701", ZIP: "10001", AQI: "120"}, records[0])
}

func TestMissingRequiredColumn(t *testing.T) {
	path := writeWeather(t, "date,zip,AQI\n20230701,10001,120\n")
	_, err := NewLookup(path).ForDate(context.Background(), "20230701")
	require.Error(t, err)
	assert.Equal(t, apperr.KindSchemaMismatch, apperr.KindOf(err))
	assert.Equal(t, []string{"zipcode"}, apperr.FieldsOf(err))
}
