package pipeline

import (
	"context"
	"time"

	"github.com/climatehealth/platform/pkg/common/apperr"
	"github.com/climatehealth/platform/pkg/common/logger"
	"github.com/climatehealth/platform/pkg/common/models"
	"github.com/climatehealth/platform/pkg/normalizer"
	"github.com/climatehealth/platform/pkg/observability/metrics"
	"github.com/climatehealth/platform/pkg/schema"
	"github.com/climatehealth/platform/pkg/serving/predictor"
	"github.com/climatehealth/platform/pkg/storage"
	"github.com/climatehealth/platform/pkg/tabular"
	"github.com/climatehealth/platform/pkg/weather"
)

const ColumnRisk = "risk_percentage"

// Publisher is satisfied by kafka.Producer.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type AnalyzeRequest struct {
	Filename string
	Date     string
}

type AnalysisResult struct {
	Message          string   `json:"message"`
	OutputFile       string   `json:"output_file"`
	SourceFile       string   `json:"source_file"`
	RecordsProcessed int      `json:"records_processed"`
	WeatherMatches   int      `json:"weather_matches"`
	AverageRisk      *float64 `json:"average_risk"`
	RowFallback      bool     `json:"row_fallback"`
	UnscoredRows     int      `json:"unscored_rows"`
}

// Analyzer runs merge-and-score. It cannot exist without a loaded model.
type Analyzer struct {
	store     *storage.UploadStore
	weather   *weather.Lookup
	mapping   *schema.Mapping
	model     *predictor.RiskModel
	publisher Publisher
}

func NewAnalyzer(store *storage.UploadStore, lookup *weather.Lookup, mapping *schema.Mapping, model *predictor.RiskModel, publisher Publisher) (*Analyzer, error) {
	if model == nil {
		return nil, apperr.ErrModelNotLoaded
	}
	return &Analyzer{store: store, weather: lookup, mapping: mapping, model: model, publisher: publisher}, nil
}

func (a *Analyzer) Analyze(ctx context.Context, req AnalyzeRequest) (result *AnalysisResult, err error) {
	start := time.Now()
	log := logger.Log.WithFields(map[string]interface{}{
		"date":     req.Date,
		"filename": req.Filename,
	})
	defer func() {
		if err != nil {
			metrics.AnalysisFailed()
			log.WithError(err).WithField("kind", apperr.KindOf(err)).Warn("risk analysis failed")
		}
	}()

	weatherRows, err := a.weather.ForDate(ctx, req.Date)
	if err != nil {
		return nil, err
	}

	base := BaseFilename(req.Filename)
	source := base
	if !a.store.Exists(source) {
		source = req.Filename
	}
	if !a.store.Exists(source) {
		return nil, apperr.New(apperr.KindNotFound, "patient file not found: %s or %s", base, req.Filename)
	}
	output := AnalysisFilename(req.Date, base)
	if output == source {
		return nil, apperr.New(apperr.KindInvalidInput, "analysis would overwrite its source %s", source)
	}
	patients, err := a.store.ReadFrame(source)
	if err != nil {
		return nil, err
	}
	log.WithFields(map[string]interface{}{
		"source":       source,
		"patient_rows": patients.Len(),
		"weather_rows": weatherRows.Len(),
	}).Info("risk analysis started")

	// AQI belongs to the weather join; a stale patient-side AQI must not survive.
	patients.DropColumns(a.mapping.Candidates(schema.FieldAQI)...)

	resolution := a.mapping.Resolve(patients.Header)
	if err := resolution.Require(schema.FieldZIP); err != nil {
		return nil, err
	}
	resolution.Canonicalize(patients)
	zipColumn, _ := resolution.Column(schema.FieldZIP)

	patientCount, weatherCount := patients.Len(), weatherRows.Len()
	patientKeys := normalizeZIPColumn(patients, zipColumn)
	weatherKeys := normalizeZIPColumn(weatherRows, weather.ColumnZIP)
	log.WithFields(map[string]interface{}{
		"patients_before": patientCount,
		"patients_after":  patients.Len(),
		"weather_before":  weatherCount,
		"weather_after":   weatherRows.Len(),
	}).Debug("dropped non-numeric zips")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	joined := tabular.InnerJoin(patients, patientKeys, weatherRows, weatherKeys)
	joinedCount := joined.Len()
	if err := settleAQIColumn(joined); err != nil {
		return nil, err
	}
	joined.DropColumns(weather.ColumnZIP)

	required := a.requiredColumns()
	var missing []string
	for _, col := range required {
		if !joined.Has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.MissingColumns(missing)
	}

	matrix := coerceRequired(joined, required)
	log.WithFields(map[string]interface{}{
		"joined_rows": joinedCount,
		"kept_rows":   joined.Len(),
	}).Debug("rows after dropping incomplete required columns")
	if joined.Len() == 0 {
		if joinedCount == 0 {
			return nil, apperr.New(apperr.KindNoData, "no patients matched weather ZIPs for date %s", req.Date)
		}
		return nil, apperr.New(apperr.KindNoData, "all rows dropped after filtering: missing values in required columns")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores, fellBack := a.model.ScoreWithFallback(matrix)
	cells := make([]string, len(scores))
	var sum float64
	scored := 0
	for i, s := range scores {
		if s == nil {
			continue
		}
		cells[i] = tabular.FormatNumber(*s)
		sum += *s
		scored++
	}
	if err := joined.AppendColumn(ColumnRisk, cells); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "attach risk scores")
	}

	if _, err := a.store.WriteFrame(output, joined); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "write %s", output)
	}

	result = &AnalysisResult{
		Message:          "Risk analysis completed",
		OutputFile:       output,
		SourceFile:       source,
		RecordsProcessed: joined.Len(),
		WeatherMatches:   countNonEmpty(joined.Column(predictor.FeatureAQI)),
		RowFallback:      fellBack,
		UnscoredRows:     joined.Len() - scored,
	}
	if scored > 0 {
		avg := sum / float64(scored)
		result.AverageRisk = &avg
	}

	elapsed := time.Since(start)
	metrics.AnalysisCompleted(result.RecordsProcessed, fellBack)
	log.WithFields(map[string]interface{}{
		"output":      output,
		"records":     result.RecordsProcessed,
		"fallback":    fellBack,
		"duration_ms": elapsed.Milliseconds(),
	}).Info("risk analysis completed")

	a.publish(ctx, models.EventAnalysisCompleted, map[string]interface{}{
		"date":              req.Date,
		"source_file":       source,
		"output_file":       output,
		"records_processed": result.RecordsProcessed,
		"unscored_rows":     result.UnscoredRows,
		"average_risk":      result.AverageRisk,
		"row_fallback":      fellBack,
		"duration_ms":       elapsed.Milliseconds(),
	})
	return result, nil
}

func (a *Analyzer) requiredColumns() []string {
	return []string{
		a.mapping.Canonical(schema.FieldAge),
		predictor.FeatureAQI,
		a.mapping.Canonical(schema.FieldDiabetes),
		a.mapping.Canonical(schema.FieldHypertension),
		a.mapping.Canonical(schema.FieldHeartDisease),
	}
}

func (a *Analyzer) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	publish(ctx, a.publisher, eventType, data)
}

func publish(ctx context.Context, publisher Publisher, eventType string, data map[string]interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.PublishEvent(ctx, eventType, models.SourceRiskService, data); err != nil {
		logger.Log.WithError(err).WithField("event_type", eventType).Warn("failed to publish analysis event")
	}
}

// normalizeZIPColumn rewrites the column to its numeric form, drops rows that
// do not parse and returns the join key of every surviving row.
func normalizeZIPColumn(frame *tabular.Frame, column string) []string {
	keys, ok := normalizer.ZIPKeys(frame.Column(column))
	idx := frame.Index(column)
	kept := make([]string, 0, len(keys))
	frame.Filter(func(i int, row []string) bool {
		if !ok[i] {
			return false
		}
		row[idx] = keys[i]
		kept = append(kept, keys[i])
		return true
	})
	return kept
}

// settleAQIColumn resolves join suffixes so that exactly one AQI column, the
// weather one, remains.
func settleAQIColumn(frame *tabular.Frame) error {
	aqi := predictor.FeatureAQI
	if frame.Has(aqi + tabular.LeftSuffix) {
		frame.DropColumns(aqi + tabular.LeftSuffix)
	}
	if frame.Has(aqi + tabular.RightSuffix) {
		frame.Rename(aqi+tabular.RightSuffix, aqi)
	}
	count := 0
	for _, h := range frame.Header {
		if h == aqi {
			count++
		}
	}
	if count != 1 {
		return &apperr.Error{Kind: apperr.KindSchemaMismatch, Message: "AQI missing after merge", Fields: []string{aqi}}
	}
	return nil
}

// coerceRequired drops rows where any required cell is not numeric, rewrites
// kept cells in numeric form and returns the feature matrix in column order.
func coerceRequired(frame *tabular.Frame, columns []string) [][]float64 {
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = frame.Index(c)
	}
	matrix := make([][]float64, 0, frame.Len())
	frame.Filter(func(_ int, row []string) bool {
		values := make([]float64, len(idx))
		for j, col := range idx {
			v, ok := normalizer.ParseNumber(row[col])
			if !ok {
				return false
			}
			values[j] = v
		}
		for j, col := range idx {
			row[col] = tabular.FormatNumber(values[j])
		}
		matrix = append(matrix, values)
		return true
	})
	return matrix
}

func countNonEmpty(values []string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}
