package dlp

import (
	"regexp"
	"sort"
	"strings"

	"github.com/climatehealth/platform/pkg/tabular"
)

const redacted = "[REDACTED]"

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

// Report describes what a masking pass changed.
type Report struct {
	Detected    bool     `json:"detected"`
	PHITypes    []string `json:"phi_types"`
	MaskedCells int      `json:"masked_cells"`
}

type Detector struct {
	rules   []compiledRule
	columns map[string]struct{}
}

func NewDetector(cfg RulesConfig) (*Detector, error) {
	var compiled []compiledRule
	for _, rule := range cfg.Rules {
		if !rule.Enabled {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledRule{rule: rule, re: re})
	}
	columns := make(map[string]struct{}, len(cfg.Columns))
	for _, c := range cfg.Columns {
		columns[strings.ToLower(c)] = struct{}{}
	}
	return &Detector{rules: compiled, columns: columns}, nil
}

// MaskText applies every rule to text and returns the masked text plus the
// types that matched.
func (d *Detector) MaskText(text string) (string, []string) {
	if d == nil {
		return text, nil
	}
	var types []string
	for _, rule := range d.rules {
		if !rule.re.MatchString(text) {
			continue
		}
		types = append(types, rule.rule.Type)
		text = rule.re.ReplaceAllString(text, rule.rule.Mask)
	}
	return text, types
}

// MaskFrame returns a masked copy of frame; the input is not modified.
func (d *Detector) MaskFrame(frame *tabular.Frame) (*tabular.Frame, Report) {
	out := tabular.New(append([]string(nil), frame.Header...))
	out.Rows = make([][]string, len(frame.Rows))
	if d == nil {
		for i, row := range frame.Rows {
			out.Rows[i] = append([]string(nil), row...)
		}
		return out, Report{}
	}

	wholeColumn := make([]bool, len(frame.Header))
	for i, h := range frame.Header {
		_, wholeColumn[i] = d.columns[strings.ToLower(strings.TrimSpace(h))]
	}

	found := make(map[string]struct{})
	masked := 0
	for i, row := range frame.Rows {
		copied := make([]string, len(row))
		for j, cell := range row {
			switch {
			case cell == "":
				copied[j] = cell
			case j < len(wholeColumn) && wholeColumn[j]:
				copied[j] = redacted
				found["column"] = struct{}{}
				masked++
			default:
				text, types := d.MaskText(cell)
				copied[j] = text
				if len(types) > 0 {
					masked++
					for _, t := range types {
						found[t] = struct{}{}
					}
				}
			}
		}
		out.Rows[i] = copied
	}

	report := Report{Detected: masked > 0, MaskedCells: masked, PHITypes: make([]string, 0, len(found))}
	for t := range found {
		report.PHITypes = append(report.PHITypes, t)
	}
	sort.Strings(report.PHITypes)
	return out, report
}
