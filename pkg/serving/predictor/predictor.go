package predictor

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/climatehealth/platform/pkg/common/logger"
	"github.com/climatehealth/platform/pkg/ml/linear"
)

// Model input columns, in the order Features.Vector emits them.
const (
	FeatureAge          = "Age"
	FeatureAQI          = "AQI"
	FeatureDiabetes     = "diabetes"
	FeatureHypertension = "hypertension"
	FeatureHeartDisease = "heart_disease"
)

var FeatureNames = []string{FeatureAge, FeatureAQI, FeatureDiabetes, FeatureHypertension, FeatureHeartDisease}

// Artifact is the serialized scaler + classifier bundle.
type Artifact struct {
	Name         string         `json:"name"`
	Version      string         `json:"version"`
	FeatureNames []string       `json:"feature_names"`
	Scaler       linear.Scaler  `json:"scaler"`
	Classifier   linear.Weights `json:"classifier"`
}

type Features struct {
	Age          float64 `json:"age"`
	AQI          float64 `json:"aqi"`
	Diabetes     float64 `json:"diabetes"`
	Hypertension float64 `json:"hypertension"`
	HeartDisease float64 `json:"heart_disease"`
}

func (f Features) Vector() []float64 {
	return []float64{f.Age, f.AQI, f.Diabetes, f.Hypertension, f.HeartDisease}
}

// RiskModel is immutable after construction and safe for concurrent use.
type RiskModel struct {
	name    string
	version string
	scaler  linear.Scaler
	weights linear.Weights
}

func Load(path string) (*RiskModel, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	return New(artifact)
}

// New reorders the artifact's vectors into FeatureNames order.
func New(artifact Artifact) (*RiskModel, error) {
	width := len(FeatureNames)
	if len(artifact.FeatureNames) != width {
		return nil, fmt.Errorf("artifact has %d features, want %v", len(artifact.FeatureNames), FeatureNames)
	}
	scaler := linear.Scaler{
		Mean:  append([]float64(nil), artifact.Scaler.Mean...),
		Scale: append([]float64(nil), artifact.Scaler.Scale...),
	}
	if err := linear.Validate(&scaler, artifact.Classifier, width); err != nil {
		return nil, err
	}

	position := make(map[string]int, width)
	for i, name := range artifact.FeatureNames {
		position[name] = i
	}
	model := &RiskModel{
		name:    artifact.Name,
		version: artifact.Version,
		scaler:  linear.Scaler{Mean: make([]float64, width), Scale: make([]float64, width)},
		weights: linear.Weights{Bias: artifact.Classifier.Bias, Coefficients: make([]float64, width)},
	}
	for j, name := range FeatureNames {
		i, ok := position[name]
		if !ok {
			return nil, fmt.Errorf("artifact missing feature %s", name)
		}
		model.scaler.Mean[j] = scaler.Mean[i]
		model.scaler.Scale[j] = scaler.Scale[i]
		model.weights.Coefficients[j] = artifact.Classifier.Coefficients[i]
	}
	return model, nil
}

func (m *RiskModel) Name() string    { return m.name }
func (m *RiskModel) Version() string { return m.version }

// Score returns the risk percentage for one record, rounded to 2 decimals.
func (m *RiskModel) Score(f Features) (float64, error) {
	sample := f.Vector()
	for j, v := range sample {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("feature %s is not finite", FeatureNames[j])
		}
	}
	return percentage(linear.Predict(m.weights, m.scaler.Transform(sample))), nil
}

// ScoreBatch scores all rows in one scaling + inference pass. NaN cells are
// treated as zero; infinite cells fail the whole batch.
func (m *RiskModel) ScoreBatch(rows [][]float64) ([]float64, error) {
	samples := make([][]float64, len(rows))
	for i, row := range rows {
		sample := make([]float64, len(row))
		for j, v := range row {
			switch {
			case math.IsNaN(v):
				sample[j] = 0
			case math.IsInf(v, 0):
				return nil, fmt.Errorf("row %d: feature %d is infinite", i, j)
			default:
				sample[j] = v
			}
		}
		samples[i] = sample
	}
	probs, err := linear.PredictBatch(m.scaler, m.weights, samples)
	if err != nil {
		return nil, err
	}
	for i, p := range probs {
		probs[i] = percentage(p)
	}
	return probs, nil
}

// ScoreWithFallback runs ScoreBatch and, if it fails, scores row by row.
// Rows that fail individually get a nil score. The bool reports a fallback.
func (m *RiskModel) ScoreWithFallback(rows [][]float64) ([]*float64, bool) {
	scores := make([]*float64, len(rows))
	batch, err := m.ScoreBatch(rows)
	if err == nil {
		for i := range batch {
			scores[i] = &batch[i]
		}
		return scores, false
	}

	logger.Log.WithError(err).WithField("rows", len(rows)).Warn("batch scoring failed, falling back to row-by-row")
	failed := 0
	for i, row := range rows {
		if len(row) != len(FeatureNames) {
			failed++
			continue
		}
		score, err := m.Score(Features{Age: row[0], AQI: row[1], Diabetes: row[2], Hypertension: row[3], HeartDisease: row[4]})
		if err != nil {
			failed++
			continue
		}
		s := score
		scores[i] = &s
	}
	if failed > 0 {
		logger.Log.WithField("failed_rows", failed).Warn("rows left without a risk score")
	}
	return scores, true
}

func percentage(p float64) float64 {
	return math.Round(p*100*100) / 100
}
