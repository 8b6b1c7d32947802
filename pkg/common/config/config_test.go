package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("UPLOAD_DIR", "")
	t.Setenv("ANALYSIS_EVENTS_TOPIC", "")

	cfg := Load()
	assert.Equal(t, "2003", cfg.ServerPort)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, "data/weather_data.csv", cfg.WeatherDataPath)
	assert.Empty(t, cfg.AnalysisEventsTopic)
	assert.False(t, cfg.ModelRequired)
	assert.Equal(t, 10*time.Minute, cfg.SummaryCacheTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("PREVIEW_MASK_PHI", "true")
	t.Setenv("SUMMARY_CACHE_TTL", "30s")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()
	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.True(t, cfg.PreviewMaskPHI)
	assert.Equal(t, 30*time.Second, cfg.SummaryCacheTTL)
	assert.Equal(t, 0, cfg.RedisDB)
}
