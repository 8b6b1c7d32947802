package pipeline

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/climatehealth/platform/pkg/storage"
)

// derivedRe matches one ANALYSIS_<date>_ or ANALYSIS_TOP<pct>_ prefix.
var derivedRe = regexp.MustCompile(`^` + storage.DerivedPrefix + `(?:TOP)?\d+_`)

// BaseFilename strips every leading derivation prefix, so re-analysing a
// derived artifact points back at the original upload.
func BaseFilename(name string) string {
	for {
		loc := derivedRe.FindStringIndex(name)
		if loc == nil || loc[1] == len(name) {
			return name
		}
		name = name[loc[1]:]
	}
}

// AnalysisFilename is ANALYSIS_<date>_<base>.
func AnalysisFilename(date, filename string) string {
	return fmt.Sprintf("%s%s_%s", storage.DerivedPrefix, date, filepath.Base(BaseFilename(filename)))
}

// TopRiskFilename is ANALYSIS_TOP<pct>_<source>, where pct is the share of rows
// kept, truncated toward zero. Floating point error makes p=0.9 yield TOP9.
func TopRiskFilename(percentile float64, source string) string {
	pct := int((1 - percentile) * 100)
	return fmt.Sprintf("%sTOP%d_%s", storage.DerivedPrefix, pct, source)
}
