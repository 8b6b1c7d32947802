// Package schema maps loosely spelled CSV headers onto the canonical patient schema.
package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/climatehealth/platform/pkg/common/apperr"
	"github.com/climatehealth/platform/pkg/tabular"
	"gopkg.in/yaml.v3"
)

// Logical field names.
const (
	FieldMemberID         = "member_id"
	FieldPayer            = "payer"
	FieldZIP              = "zip"
	FieldAge              = "age"
	FieldGender           = "gender"
	FieldDiabetes         = "diabetes"
	FieldHypertension     = "hypertension"
	FieldChronicKidney    = "chronic_kidney"
	FieldLiverDisease     = "liver_disease"
	FieldCOPD             = "copd"
	FieldHeartDisease     = "heart_disease"
	FieldComorbidityCount = "comorbidity_count"
	FieldAQI              = "aqi"
	FieldFakeName         = "fake_name"
	FieldFakeEmail        = "fake_email"
	FieldFakePhone        = "fake_phone"
)

// ConditionFields are the binary comorbidity flags, in reporting order.
var ConditionFields = []string{
	FieldDiabetes, FieldHypertension, FieldChronicKidney,
	FieldLiverDisease, FieldCOPD, FieldHeartDisease,
}

type Field struct {
	Name       string   `yaml:"name" json:"name"`
	Canonical  string   `yaml:"canonical" json:"canonical"`
	Candidates []string `yaml:"candidates" json:"candidates"`
}

// Mapping is an immutable lookup table; build it with NewMapping or Load.
type Mapping struct {
	fields []Field
	index  map[string]int
}

type mappingFile struct {
	Fields []Field `yaml:"fields"`
}

func Load(path string) (*Mapping, error) {
	if path == "" {
		return Default(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read schema map: %w", err)
	}
	var file mappingFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parse schema map: %w", err)
	}
	if len(file.Fields) == 0 {
		return nil, fmt.Errorf("schema map %s defines no fields", path)
	}
	return NewMapping(file.Fields)
}

// NewMapping validates the table. The canonical spelling is always tried first,
// and no spelling may belong to two fields.
func NewMapping(fields []Field) (*Mapping, error) {
	m := &Mapping{index: make(map[string]int, len(fields))}
	owner := make(map[string]string)
	for _, f := range fields {
		if f.Name == "" || f.Canonical == "" {
			return nil, fmt.Errorf("schema field needs name and canonical: %+v", f)
		}
		if _, dup := m.index[f.Name]; dup {
			return nil, fmt.Errorf("schema field %q defined twice", f.Name)
		}
		candidates := []string{f.Canonical}
		for _, c := range f.Candidates {
			if c != f.Canonical {
				candidates = append(candidates, c)
			}
		}
		for _, c := range candidates {
			if prev, taken := owner[c]; taken {
				return nil, fmt.Errorf("header %q claimed by fields %q and %q", c, prev, f.Name)
			}
			owner[c] = f.Name
		}
		m.index[f.Name] = len(m.fields)
		m.fields = append(m.fields, Field{Name: f.Name, Canonical: f.Canonical, Candidates: candidates})
	}
	return m, nil
}

func (m *Mapping) Field(name string) (Field, bool) {
	i, ok := m.index[name]
	if !ok {
		return Field{}, false
	}
	return m.fields[i], true
}

// Canonical returns the canonical header for a logical field, or the name itself.
func (m *Mapping) Canonical(name string) string {
	if f, ok := m.Field(name); ok {
		return f.Canonical
	}
	return name
}

// Candidates lists every accepted spelling for a logical field.
func (m *Mapping) Candidates(name string) []string {
	if f, ok := m.Field(name); ok {
		return append([]string(nil), f.Candidates...)
	}
	return nil
}

// Resolution is the outcome of matching one header row against the mapping.
type Resolution struct {
	mapping *Mapping
	// Columns maps logical field name to the header actually present.
	Columns map[string]string
	// Missing lists logical fields with no matching header, in table order.
	Missing []string
}

// Resolve takes, per field, the first candidate present in headers.
func (m *Mapping) Resolve(headers []string) Resolution {
	present := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		present[h] = struct{}{}
	}
	res := Resolution{mapping: m, Columns: make(map[string]string)}
	for _, f := range m.fields {
		matched := false
		for _, c := range f.Candidates {
			if _, ok := present[c]; ok {
				res.Columns[f.Name] = c
				matched = true
				break
			}
		}
		if !matched {
			res.Missing = append(res.Missing, f.Name)
		}
	}
	return res
}

func (r Resolution) Column(field string) (string, bool) {
	c, ok := r.Columns[field]
	return c, ok
}

// Require fails with a schema mismatch naming the canonical header of every
// unresolved field among those given.
func (r Resolution) Require(fields ...string) error {
	var missing []string
	for _, f := range fields {
		if _, ok := r.Columns[f]; !ok {
			missing = append(missing, r.mapping.Canonical(f))
		}
	}
	if len(missing) > 0 {
		return apperr.MissingColumns(missing)
	}
	return nil
}

// Canonicalize renames every resolved header in frame to its canonical spelling.
func (r Resolution) Canonicalize(frame *tabular.Frame) {
	for field, actual := range r.Columns {
		canonical := r.mapping.Canonical(field)
		if actual != canonical {
			frame.Rename(actual, canonical)
			r.Columns[field] = canonical
		}
	}
}
