package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/climatehealth/platform/pkg/common/apperr"
	"github.com/climatehealth/platform/pkg/common/logger"
	"github.com/climatehealth/platform/pkg/common/models"
	"github.com/climatehealth/platform/pkg/normalizer"
	"github.com/climatehealth/platform/pkg/schema"
	"github.com/climatehealth/platform/pkg/serving/predictor"
	"github.com/climatehealth/platform/pkg/storage"
	"github.com/climatehealth/platform/pkg/tabular"
	"github.com/climatehealth/platform/pkg/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const weatherCSV = `date,zipcode,AQI,aqi_category
20230701,10001,120,Unhealthy for Sensitive Groups
20230701,10002,45,Good
20230702,10001,80,Moderate
`

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	data   []map[string]interface{}
}

func (p *recordingPublisher) PublishEvent(_ context.Context, eventType, _ string, data map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	p.data = append(p.data, data)
	return nil
}

type fixture struct {
	store     *storage.UploadStore
	analyzer  *Analyzer
	extractor *Extractor
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger.Silence()
	dir := t.TempDir()

	store, err := storage.NewUploadStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)
	weatherPath := filepath.Join(dir, "weather_data.csv")
	require.NoError(t, os.WriteFile(weatherPath, []byte(weatherCSV), 0o644))

	model, err := predictor.Load(filepath.Join("..", "serving", "predictor", "testdata", "climate_health_model.json"))
	require.NoError(t, err)

	pub := &recordingPublisher{}
	analyzer, err := NewAnalyzer(store, weather.NewLookup(weatherPath), schema.Default(), model, pub)
	require.NoError(t, err)
	return &fixture{store: store, analyzer: analyzer, extractor: NewExtractor(store, pub), publisher: pub}
}

func (f *fixture) upload(t *testing.T, name, content string) {
	t.Helper()
	_, err := f.store.Save(name, strings.NewReader(content))
	require.NoError(t, err)
}

func (f *fixture) output(t *testing.T, name string) *tabular.Frame {
	t.Helper()
	frame, err := f.store.ReadFrame(name)
	require.NoError(t, err)
	return frame
}

func TestAnalyzeExampleRecord(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "patients.csv", "MemberID,Plan Zip,Age,diabetes,hypertension,heart_disease\nM1,10001,70,1,0,1\n")

	result, err := f.analyzer.Analyze(context.Background(), AnalyzeRequest{Filename: "patients.csv", Date: "20230701"})
	require.NoError(t, err)
	assert.Equal(t, "ANALYSIS_20230701_patients.csv", result.OutputFile)
	assert.Equal(t, 1, result.RecordsProcessed)
	assert.Equal(t, 1, result.WeatherMatches)
	require.NotNil(t, result.AverageRisk)
	assert.False(t, result.RowFallback)

	out := f.output(t, result.OutputFile)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, []string{"120"}, out.Column("AQI"))
	assert.Equal(t, []string{"10001"}, out.Column(schema.Default().Canonical(schema.FieldZIP)))
	assert.False(t, out.Has(weather.ColumnZIP))

	risk, ok := normalizer.ParseNumber(out.Column(ColumnRisk)[0])
	require.True(t, ok)
	assert.GreaterOrEqual(t, risk, 0.0)
	assert.LessOrEqual(t, risk, 100.0)
	assert.InDelta(t, *result.AverageRisk, risk, 1e-9)

	require.Equal(t, []string{models.EventAnalysisCompleted}, f.publisher.events)
	assert.Equal(t, "ANALYSIS_20230701_patients.csv", f.publisher.data[0]["output_file"])
}

func TestAnalyzeIsStrictInnerJoin(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "patients.csv", strings.Join([]string{
		"MemberID,Plan_zip,Age,diabetes,hypertension,heart_disease",
		"M1,10001.0,70,1,0,1",
		"M2,10002,40,0,1,0",
		"M3,99999,55,0,0,0",
		"M4,abc,60,1,1,1",
		"M5,,61,1,1,1",
	}, "\n")+"\n")

	result, err := f.analyzer.Analyze(context.Background(), AnalyzeRequest{Filename: "patients.csv", Date: "20230701"})
	require.NoError(t, err)

	out := f.output(t, result.OutputFile)
	assert.Equal(t, 2, out.Len())
	assert.LessOrEqual(t, out.Len(), 5)
	assert.Equal(t, []string{"M1", "M2"}, out.Column("MemberID"))
	for _, zip := range out.Column("Plan_zip") {
		assert.Contains(t, []string{"10001", "10002"}, zip)
	}
	for _, col := range []string{"Age", "AQI", "diabetes", "hypertension", "heart_disease"} {
		for _, v := range out.Column(col) {
			assert.NotEmpty(t, v, col)
		}
	}
}

func TestAnalyzeReplacesPatientAQI(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "patients.csv", "Plan_zip,Age,aqi,diabetes,hypertension,heart_disease\n10001,70,999,1,0,1\n")

	result, err := f.analyzer.Analyze(context.Background(), AnalyzeRequest{Filename: "patients.csv", Date: "20230701"})
	require.NoError(t, err)

	out := f.output(t, result.OutputFile)
	assert.Equal(t, []string{"120"}, out.Column("AQI"))
	assert.False(t, out.Has("aqi"))
	assert.False(t, out.Has("AQI_x"))
	assert.False(t, out.Has("AQI_y"))
}

func TestAnalyzeZIPSpellingsProduceIdenticalOutput(t *testing.T) {
	body := "Age,diabetes,hypertension,heart_disease,%s\n70,1,0,1,10001\n40,0,1,0,10002\n"

	a := newFixture(t)
	a.upload(t, "p.csv", strings.Replace(body, "%s", "Plan Zip", 1))
	ra, err := a.analyzer.Analyze(context.Background(), AnalyzeRequest{Filename: "p.csv", Date: "20230701"})
	require.NoError(t, err)

	b := newFixture(t)
	b.upload(t, "p.csv", strings.Replace(body, "%s", "Plan_zip", 1))
	rb, err := b.analyzer.Analyze(context.Background(), AnalyzeRequest{Filename: "p.csv", Date: "20230701"})
	require.NoError(t, err)

	contentA, err := os.ReadFile(filepath.Join(a.store.Dir(), ra.OutputFile))
	require.NoError(t, err)
	contentB, err := os.ReadFile(filepath.Join(b.store.Dir(), rb.OutputFile))
	require.NoError(t, err)
	assert.Equal(t, string(contentA), string(contentB))
}

func TestAnalyzeStripsDerivedPrefix(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "patients.csv", "Plan_zip,Age,diabetes,hypertension,heart_disease\n10001,70,1,0,1\n")

	first, err := f.analyzer.Analyze(context.Background(), AnalyzeRequest{Filename: "patients.csv", Date: "20230701"})
	require.NoError(t, err)

	second, err := f.analyzer.Analyze(context.Background(), AnalyzeRequest{Filename: first.OutputFile, Date: "20230702"})
	require.NoError(t, err)
	assert.Equal(t, "ANALYSIS_20230702_patients.csv", second.OutputFile)
	assert.Equal(t, "patients.csv", second.SourceFile)
}

func TestAnalyzeFallsBackToRequestedName(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "ANALYSIS_1_x.csv", "Plan_zip,Age,diabetes,hypertension,heart_disease\n10001,70,1,0,1\n")

	result, err := f.analyzer.Analyze(context.Background(), AnalyzeRequest{Filename: "ANALYSIS_1_x.csv", Date: "20230701"})
	require.NoError(t, err)
	assert.Equal(t, "ANALYSIS_1_x.csv", result.SourceFile)
	assert.Equal(t, "ANALYSIS_20230701_x.csv", result.OutputFile)
}

func TestAnalyzeRefusesToOverwriteSource(t *testing.T) {
	f := newFixture(t)
	content := "Plan_zip,Age,diabetes,hypertension,heart_disease\n10001,70,1,0,1\n"
	f.upload(t, "ANALYSIS_20230701_x.csv", content)

	_, err := f.analyzer.Analyze(context.Background(), AnalyzeRequest{Filename: "ANALYSIS_20230701_x.csv", Date: "20230701"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	path, err := f.store.Path("ANALYSIS_20230701_x.csv")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
	assert.Empty(t, f.publisher.events)
}

func TestAnalyzeDistinguishesEmptyOutcomes(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "nomatch.csv", "Plan_zip,Age,diabetes,hypertension,heart_disease\n99999,70,1,0,1\n")
	f.upload(t, "incomplete.csv", "Plan_zip,Age,diabetes,hypertension,heart_disease\n10001,,1,0,1\n10002,40,x,0,1\n")

	_, err := f.analyzer.Analyze(context.Background(), AnalyzeRequest{Filename: "nomatch.csv", Date: "20230701"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNoData, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "no patients matched")

	_, err = f.analyzer.Analyze(context.Background(), AnalyzeRequest{Filename: "incomplete.csv", Date: "20230701"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNoData, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "all rows dropped")
}

func TestAnalyzeErrorKinds(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "patients.csv", "Plan_zip,Age,hypertension,heart_disease\n10001,70,0,1\n")
	f.upload(t, "nozip.csv", "Age,diabetes,hypertension,heart_disease\n70,1,0,1\n")

	_, err := f.analyzer.Analyze(context.Background(), AnalyzeRequest{Filename: "patients.csv", Date: "19990101"})
	assert.Equal(t, apperr.KindNoData, apperr.KindOf(err))

	_, err = f.analyzer.Analyze(context.Background(), AnalyzeRequest{Filename: "ghost.csv", Date: "20230701"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.analyzer.Analyze(context.Background(), AnalyzeRequest{Filename: "patients.csv", Date: "20230701"})
	assert.Equal(t, apperr.KindSchemaMismatch, apperr.KindOf(err))
	assert.Equal(t, []string{"diabetes"}, apperr.FieldsOf(err))

	_, err = f.analyzer.Analyze(context.Background(), AnalyzeRequest{Filename: "nozip.csv", Date: "20230701"})
	assert.Equal(t, apperr.KindSchemaMismatch, apperr.KindOf(err))
	assert.Equal(t, []string{"Plan_zip"}, apperr.FieldsOf(err))

	assert.Empty(t, f.publisher.events)
}

func TestNewAnalyzerRequiresModel(t *testing.T) {
	_, err := NewAnalyzer(nil, nil, schema.Default(), nil, nil)
	assert.ErrorIs(t, err, apperr.ErrModelNotLoaded)
}

func TestBaseFilename(t *testing.T) {
	cases := map[string]string{
		"patients.csv":                                 "patients.csv",
		"ANALYSIS_20230701_patients.csv":               "patients.csv",
		"ANALYSIS_TOP10_ANALYSIS_20230701_patients.csv": "patients.csv",
		"ANALYSIS_20230701_":                           "ANALYSIS_20230701_",
		"ANALYSIS_abc_patients.csv":                    "ANALYSIS_abc_patients.csv",
	}
	for in, want := range cases {
		assert.Equal(t, want, BaseFilename(in), in)
	}
}

func TestTopRiskFilename(t *testing.T) {
	assert.Equal(t, "ANALYSIS_TOP9_a.csv", TopRiskFilename(0.9, "a.csv"))
	assert.Equal(t, "ANALYSIS_TOP50_a.csv", TopRiskFilename(0.5, "a.csv"))
	assert.Equal(t, "ANALYSIS_TOP25_a.csv", TopRiskFilename(0.75, "a.csv"))
	assert.Equal(t, "ANALYSIS_TOP100_a.csv", TopRiskFilename(0, "a.csv"))
}

func TestAnalyzeRowFallbackLeavesUnscoredRowsEmpty(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "p.csv", "Plan_zip,Age,diabetes,hypertension,heart_disease\n10001,70,1,0,1\n10002,inf,0,1,0\n")

	result, err := f.analyzer.Analyze(context.Background(), AnalyzeRequest{Filename: "p.csv", Date: "20230701"})
	require.NoError(t, err)
	assert.True(t, result.RowFallback)
	assert.Equal(t, 2, result.RecordsProcessed)
	assert.Equal(t, 1, result.UnscoredRows)

	risks := f.output(t, result.OutputFile).Column(ColumnRisk)
	assert.NotEmpty(t, risks[0])
	assert.Empty(t, risks[1])
}
