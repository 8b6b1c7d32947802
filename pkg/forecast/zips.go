package forecast

import (
	"fmt"

	"github.com/climatehealth/platform/pkg/normalizer"
	"github.com/climatehealth/platform/pkg/tabular"
)

// Columns of the ZIP centroid table.
const (
	ColumnZIP       = "zip"
	ColumnLatitude  = "latitude"
	ColumnLongitude = "longitude"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ZIPDirectory maps ZIP codes to centroid coordinates. Keys are normalized
// the same way as the weather join, so "02108" and "2108" agree.
type ZIPDirectory struct {
	coords map[normalizer.ZIP]Coordinates
}

func LoadZIPDirectory(path string) (*ZIPDirectory, error) {
	frame, err := tabular.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load zip centroids: %w", err)
	}
	for _, col := range []string{ColumnZIP, ColumnLatitude, ColumnLongitude} {
		if !frame.Has(col) {
			return nil, fmt.Errorf("zip centroids %s: missing column %s", path, col)
		}
	}

	zi, lat, lon := frame.Index(ColumnZIP), frame.Index(ColumnLatitude), frame.Index(ColumnLongitude)
	dir := &ZIPDirectory{coords: make(map[normalizer.ZIP]Coordinates, frame.Len())}
	for i, row := range frame.Rows {
		zip, ok := normalizer.NormalizeZIP(row[zi])
		latitude, latOK := normalizer.ParseNumber(row[lat])
		longitude, lonOK := normalizer.ParseNumber(row[lon])
		if !ok || !latOK || !lonOK {
			return nil, fmt.Errorf("zip centroids %s: bad row %d", path, i+2)
		}
		dir.coords[zip] = Coordinates{Latitude: latitude, Longitude: longitude}
	}
	return dir, nil
}

// Lookup reports false for unknown or non-numeric ZIPs.
func (d *ZIPDirectory) Lookup(raw string) (Coordinates, bool) {
	zip, ok := normalizer.NormalizeZIP(raw)
	if !ok {
		return Coordinates{}, false
	}
	c, ok := d.coords[zip]
	return c, ok
}

func (d *ZIPDirectory) Len() int {
	return len(d.coords)
}
