package audit

import (
	"context"
	"fmt"

	"github.com/climatehealth/platform/pkg/common/logger"
	"github.com/climatehealth/platform/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Recorder is a kafka.EventHandler that stores analysis events.
type Recorder struct {
	repo *Repository
}

func NewRecorder(repo *Repository) *Recorder {
	return &Recorder{repo: repo}
}

func (rec *Recorder) Handle(ctx context.Context, event models.Event) error {
	switch event.Type {
	case models.EventAnalysisCompleted, models.EventTopRiskCompleted:
	default:
		logger.Log.WithFields(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).Debug("ignoring event")
		return nil
	}

	run := RunFromEvent(event)
	if err := rec.repo.Record(ctx, run); err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	logger.Log.WithFields(map[string]interface{}{
		"run_id":      run.ID,
		"event_type":  run.EventType,
		"output_file": run.OutputFile,
	}).Info("analysis run recorded")
	return nil
}

// RunFromEvent maps event data onto a Run. Unknown keys stay in Details.
func RunFromEvent(event models.Event) *Run {
	id, err := uuid.Parse(event.ID)
	if err != nil {
		id = uuid.New()
	}
	data := event.Data
	run := &Run{
		ID:          id,
		EventType:   event.Type,
		Source:      event.Source,
		SourceFile:  stringField(data, "source_file"),
		OutputFile:  stringField(data, "output_file"),
		Date:        stringField(data, "date"),
		RowFallback: boolField(data, "row_fallback"),
		Details:     datatypes.JSONMap(data),
		OccurredAt:  event.Timestamp.UTC(),
	}
	if n, ok := numberField(data, "records_processed"); ok {
		run.Records = int(n)
	} else if n, ok := numberField(data, "count"); ok {
		run.Records = int(n)
	}
	if avg, ok := numberField(data, "average_risk"); ok {
		run.AverageRisk = &avg
	}
	return run
}

func stringField(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}

func boolField(data map[string]interface{}, key string) bool {
	b, _ := data[key].(bool)
	return b
}

func numberField(data map[string]interface{}, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
