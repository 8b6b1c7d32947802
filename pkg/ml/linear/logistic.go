package linear

import (
	"errors"
	"fmt"
	"math"
)

type Weights struct {
	Bias         float64   `json:"bias"`
	Coefficients []float64 `json:"coefficients"`
}

// Scaler standardizes features as (x - mean) / scale.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

var ErrWidth = errors.New("feature width mismatch")

// Validate checks that scaler and weights agree on the feature count.
// Zero scale entries are replaced by 1, as standard scalers do for constant features.
func Validate(scaler *Scaler, weights Weights, width int) error {
	if len(weights.Coefficients) != width {
		return fmt.Errorf("%w: %d coefficients for %d features", ErrWidth, len(weights.Coefficients), width)
	}
	if len(scaler.Mean) != width || len(scaler.Scale) != width {
		return fmt.Errorf("%w: scaler has %d means and %d scales for %d features", ErrWidth, len(scaler.Mean), len(scaler.Scale), width)
	}
	for i, s := range scaler.Scale {
		if s == 0 {
			scaler.Scale[i] = 1
		}
	}
	return nil
}

func Predict(weights Weights, sample []float64) float64 {
	return sigmoid(dot(weights.Coefficients, sample) + weights.Bias)
}

func (s Scaler) Transform(sample []float64) []float64 {
	out := make([]float64, len(sample))
	for j, v := range sample {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out
}

// PredictBatch scores a row-major matrix column by column: each feature is
// scaled and accumulated into the logits for all rows before moving on.
func PredictBatch(scaler Scaler, weights Weights, samples [][]float64) ([]float64, error) {
	width := len(weights.Coefficients)
	logits := make([]float64, len(samples))
	for i, sample := range samples {
		if len(sample) != width {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrWidth, i, len(sample), width)
		}
		logits[i] = weights.Bias
	}
	for j := 0; j < width; j++ {
		mean, scale, coeff := scaler.Mean[j], scaler.Scale[j], weights.Coefficients[j]
		for i, sample := range samples {
			logits[i] += coeff * (sample[j] - mean) / scale
		}
	}
	for i, z := range logits {
		logits[i] = sigmoid(z)
	}
	return logits, nil
}

func dot(weights []float64, sample []float64) float64 {
	var sum float64
	for i := 0; i < len(weights); i++ {
		sum += weights[i] * sample[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
