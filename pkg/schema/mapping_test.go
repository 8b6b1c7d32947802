package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/climatehealth/platform/pkg/common/apperr"
	"github.com/climatehealth/platform/pkg/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrefersFirstCandidate(t *testing.T) {
	res := Default().Resolve([]string{"age", "Age", "Plan Zip"})
	col, ok := res.Column(FieldAge)
	require.True(t, ok)
	assert.Equal(t, "Age", col)
	col, _ = res.Column(FieldZIP)
	assert.Equal(t, "Plan Zip", col)
	assert.Contains(t, res.Missing, FieldDiabetes)
}

func TestResolveIsExactMatchOnly(t *testing.T) {
	res := Default().Resolve([]string{"Plan  Zip", "agee"})
	_, ok := res.Column(FieldZIP)
	assert.False(t, ok)
	_, ok = res.Column(FieldAge)
	assert.False(t, ok)
}

func TestRequireNamesUnresolvedFields(t *testing.T) {
	res := Default().Resolve([]string{"Plan_zip", "Age"})
	err := res.Require(FieldZIP, FieldAge, FieldDiabetes, FieldHeartDisease)
	require.Error(t, err)
	assert.Equal(t, apperr.KindSchemaMismatch, apperr.KindOf(err))
	assert.Equal(t, []string{"diabetes", "heart_disease"}, apperr.FieldsOf(err))
	assert.NoError(t, res.Require(FieldZIP, FieldAge))
}

func TestCanonicalizeMakesHeadersIdentical(t *testing.T) {
	variant := &tabular.Frame{Header: []string{"MEMBER_ID", "Plan Zip", "AGE", "Heart Disease"}}
	canonical := &tabular.Frame{Header: []string{"MemberID", "Plan_zip", "Age", "heart_disease"}}

	m := Default()
	for _, frame := range []*tabular.Frame{variant, canonical} {
		res := m.Resolve(frame.Header)
		res.Canonicalize(frame)
		col, _ := res.Column(FieldZIP)
		assert.Equal(t, "Plan_zip", col)
	}
	assert.Equal(t, canonical.Header, variant.Header)
}

func TestNewMappingRejectsSharedSpelling(t *testing.T) {
	_, err := NewMapping([]Field{
		{Name: "a", Canonical: "A", Candidates: []string{"x"}},
		{Name: "b", Canonical: "B", Candidates: []string{"x"}},
	})
	assert.Error(t, err)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	content := `fields:
  - name: zip
    canonical: Plan_zip
    candidates: ["Postal Code"]
  - name: age
    canonical: Age
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Plan_zip", "Postal Code"}, m.Candidates(FieldZIP))

	res := m.Resolve([]string{"Postal Code"})
	col, ok := res.Column(FieldZIP)
	assert.True(t, ok)
	assert.Equal(t, "Postal Code", col)
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	m, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "Plan_zip", m.Canonical(FieldZIP))
}
