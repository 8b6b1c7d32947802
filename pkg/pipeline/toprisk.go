package pipeline

import (
	"context"
	"math"
	"sort"

	"github.com/climatehealth/platform/pkg/common/apperr"
	"github.com/climatehealth/platform/pkg/common/logger"
	"github.com/climatehealth/platform/pkg/common/models"
	"github.com/climatehealth/platform/pkg/normalizer"
	"github.com/climatehealth/platform/pkg/observability/metrics"
	"github.com/climatehealth/platform/pkg/storage"
	"github.com/climatehealth/platform/pkg/tabular"
)

type TopRiskRequest struct {
	Filename   string
	Percentile float64
	Rows       int
	WriteFile  bool
}

type TopRiskResult struct {
	Count      int      `json:"count"`
	Threshold  *float64 `json:"threshold"`
	CSVPreview string   `json:"csv_preview"`
	OutputFile string   `json:"output_file,omitempty"`
}

// Extractor selects the highest-risk rows of an analysed file. It needs no model.
type Extractor struct {
	store     *storage.UploadStore
	publisher Publisher
}

func NewExtractor(store *storage.UploadStore, publisher Publisher) *Extractor {
	return &Extractor{store: store, publisher: publisher}
}

func (e *Extractor) TopRisk(ctx context.Context, req TopRiskRequest) (*TopRiskResult, error) {
	if math.IsNaN(req.Percentile) || req.Percentile < 0 || req.Percentile > 1 {
		return nil, apperr.New(apperr.KindInvalidInput, "percentile must be between 0 and 1")
	}
	frame, err := e.store.ReadFrame(req.Filename)
	if err != nil {
		return nil, err
	}
	if !frame.Has(ColumnRisk) {
		return nil, &apperr.Error{
			Kind:    apperr.KindSchemaMismatch,
			Message: "risk_percentage column not found. Run analysis first.",
			Fields:  []string{ColumnRisk},
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	riskIdx := frame.Index(ColumnRisk)
	scores := make([]float64, 0, frame.Len())
	for _, row := range frame.Rows {
		if v, ok := normalizer.ParseNumber(row[riskIdx]); ok {
			scores = append(scores, v)
		}
	}

	result := &TopRiskResult{}
	selected := tabular.New(frame.Header)
	if threshold, ok := Quantile(scores, req.Percentile); ok {
		result.Threshold = &threshold
		type scoredRow struct {
			row  []string
			risk float64
		}
		var picked []scoredRow
		for _, row := range frame.Rows {
			v, ok := normalizer.ParseNumber(row[riskIdx])
			if ok && v >= threshold {
				picked = append(picked, scoredRow{row: row, risk: v})
			}
		}
		sort.SliceStable(picked, func(i, j int) bool { return picked[i].risk > picked[j].risk })
		for _, p := range picked {
			selected.Rows = append(selected.Rows, p.row)
		}
	}
	result.Count = selected.Len()

	rows := req.Rows
	if rows < 0 {
		rows = 0
	}
	preview, err := selected.Head(rows).CSV()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "render preview")
	}
	result.CSVPreview = preview

	if req.WriteFile {
		output := TopRiskFilename(req.Percentile, req.Filename)
		if _, err := e.store.WriteFrame(output, selected); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "write %s", output)
		}
		result.OutputFile = output
	}

	metrics.TopRiskCompleted()
	logger.Log.WithFields(map[string]interface{}{
		"filename":   req.Filename,
		"percentile": req.Percentile,
		"count":      result.Count,
		"output":     result.OutputFile,
	}).Info("top-risk extraction completed")

	publish(ctx, e.publisher, models.EventTopRiskCompleted, map[string]interface{}{
		"source_file": req.Filename,
		"output_file": result.OutputFile,
		"percentile":  req.Percentile,
		"threshold":   result.Threshold,
		"count":       result.Count,
	})
	return result, nil
}

// Quantile is the linearly interpolated p-quantile of values. It reports false
// when values is empty.
func Quantile(values []float64, p float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo], true
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo)), true
}
