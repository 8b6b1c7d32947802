// Package summary computes descriptive statistics over an uploaded patient file.
package summary

import (
	"context"
	"fmt"
	"math"

	"github.com/climatehealth/platform/pkg/common/logger"
	"github.com/climatehealth/platform/pkg/normalizer"
	"github.com/climatehealth/platform/pkg/observability/metrics"
	"github.com/climatehealth/platform/pkg/schema"
	"github.com/climatehealth/platform/pkg/storage"
	"github.com/climatehealth/platform/pkg/tabular"
)

type Summary struct {
	TotalRecords         int                `json:"total_records"`
	AverageAge           *float64           `json:"average_age"`
	PercentFemale        *float64           `json:"percent_female"`
	ConditionPercentages map[string]float64 `json:"condition_percentages"`
	PayerDistribution    map[string]float64 `json:"payer_distribution"`
}

type Summarizer struct {
	store   *storage.UploadStore
	mapping *schema.Mapping
	cache   Cache
}

// NewSummarizer accepts a nil cache.
func NewSummarizer(store *storage.UploadStore, mapping *schema.Mapping, cache Cache) *Summarizer {
	return &Summarizer{store: store, mapping: mapping, cache: cache}
}

func (s *Summarizer) Summarize(ctx context.Context, filename string) (*Summary, error) {
	info, err := s.store.Stat(filename)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("summary:%s:%d:%d", info.Name, info.ModTime.UnixNano(), info.Size)

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			logger.Log.WithError(err).WithField("key", key).Warn("summary cache read failed")
		}
		if ok {
			metrics.SummaryCache(true)
			return cached, nil
		}
		metrics.SummaryCache(false)
	}

	frame, err := s.store.ReadFrame(filename)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	summary := Compute(frame, s.mapping)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary); err != nil {
			logger.Log.WithError(err).WithField("key", key).Warn("summary cache write failed")
		}
	}
	return summary, nil
}

// Compute derives the summary from a loaded frame. Percentages are over all
// rows, blanks included.
func Compute(frame *tabular.Frame, mapping *schema.Mapping) *Summary {
	res := mapping.Resolve(frame.Header)
	total := frame.Len()
	summary := &Summary{
		TotalRecords:         total,
		ConditionPercentages: map[string]float64{},
		PayerDistribution:    map[string]float64{},
	}
	if total == 0 {
		return summary
	}

	if col, ok := res.Column(schema.FieldAge); ok {
		var sum float64
		n := 0
		for _, v := range frame.Column(col) {
			if age, ok := normalizer.ParseNumber(v); ok {
				sum += age
				n++
			}
		}
		if n > 0 {
			avg := round1(sum / float64(n))
			summary.AverageAge = &avg
		}
	}

	if col, ok := res.Column(schema.FieldGender); ok {
		pct := round1(percentFemale(frame.Column(col)))
		summary.PercentFemale = &pct
	}

	for _, field := range schema.ConditionFields {
		col, ok := res.Column(field)
		if !ok {
			continue
		}
		positive := 0
		for _, v := range frame.Column(col) {
			if f, ok := normalizer.ParseNumber(v); ok && f == 1 {
				positive++
			}
		}
		summary.ConditionPercentages[mapping.Canonical(field)] = round1(share(positive, total))
	}

	if col, ok := res.Column(schema.FieldPayer); ok {
		counts := map[string]int{}
		for _, v := range frame.Column(col) {
			if v != "" {
				counts[v]++
			}
		}
		for payer, n := range counts {
			summary.PayerDistribution[payer] = round1(share(n, total))
		}
	}
	return summary
}

// percentFemale counts "F" when the column holds text, or 0 when every
// non-blank value is numeric.
func percentFemale(values []string) float64 {
	numeric := true
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := normalizer.ParseNumber(v); !ok {
			numeric = false
			break
		}
	}
	female := 0
	for _, v := range values {
		if numeric {
			if f, ok := normalizer.ParseNumber(v); ok && f == 0 {
				female++
			}
		} else if v == "F" {
			female++
		}
	}
	return share(female, len(values))
}

func share(n, total int) float64 {
	return float64(n) / float64(total) * 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

