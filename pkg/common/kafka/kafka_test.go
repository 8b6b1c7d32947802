package kafka

import (
	"testing"

	"github.com/climatehealth/platform/pkg/common/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageDecodesBackToEvent(t *testing.T) {
	event := NewEvent(models.EventAnalysisCompleted, models.SourceRiskService, map[string]interface{}{
		"output_file":       "ANALYSIS_20230701_p.csv",
		"records_processed": 12,
	})

	message, err := Message(event)
	require.NoError(t, err)
	assert.Equal(t, event.ID, string(message.Key))
	assert.Equal(t, []kafka.Header{
		{Key: "event-type", Value: []byte(models.EventAnalysisCompleted)},
		{Key: "source", Value: []byte(models.SourceRiskService)},
	}, message.Headers)

	decoded, err := Decode(message)
	require.NoError(t, err)
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, event.Type, decoded.Type)
	assert.Equal(t, "ANALYSIS_20230701_p.csv", decoded.Data["output_file"])
	assert.Equal(t, float64(12), decoded.Data["records_processed"])
	assert.True(t, event.Timestamp.Equal(decoded.Timestamp))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}
