package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	analysesCompleted atomic.Int64
	analysesFailed    atomic.Int64
	rowsScored        atomic.Int64
	rowFallbacks      atomic.Int64
	topRiskRuns       atomic.Int64
	uploadsAccepted   atomic.Int64
	summaryCacheHits  atomic.Int64
	summaryCacheMiss  atomic.Int64
	forecastFailures  atomic.Int64
)

func AnalysisCompleted(rows int, fallback bool) {
	analysesCompleted.Add(1)
	rowsScored.Add(int64(rows))
	if fallback {
		rowFallbacks.Add(1)
	}
}

func AnalysisFailed() { analysesFailed.Add(1) }

func TopRiskCompleted() { topRiskRuns.Add(1) }

func UploadAccepted() { uploadsAccepted.Add(1) }

func SummaryCache(hit bool) {
	if hit {
		summaryCacheHits.Add(1)
		return
	}
	summaryCacheMiss.Add(1)
}

func ForecastFailed() { forecastFailures.Add(1) }

type counter struct {
	name string
	help string
	v    *atomic.Int64
}

func counters() []counter {
	return []counter{
		{"climate_health_analyses_completed_total", "Merge-and-score runs that wrote an output file.", &analysesCompleted},
		{"climate_health_analyses_failed_total", "Merge-and-score runs that returned an error.", &analysesFailed},
		{"climate_health_rows_scored_total", "Rows written with a risk score column.", &rowsScored},
		{"climate_health_row_fallbacks_total", "Runs where batch scoring failed and rows were scored one by one.", &rowFallbacks},
		{"climate_health_top_risk_runs_total", "Top-risk extractions served.", &topRiskRuns},
		{"climate_health_uploads_total", "Patient CSV uploads accepted.", &uploadsAccepted},
		{"climate_health_summary_cache_hits_total", "Data summaries served from cache.", &summaryCacheHits},
		{"climate_health_summary_cache_misses_total", "Data summaries computed from the file.", &summaryCacheMiss},
		{"climate_health_forecast_failures_total", "Upstream forecast requests that failed.", &forecastFailures},
	}
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	for _, c := range counters() {
		fmt.Fprintf(w, "# HELP %s %s\n", c.name, c.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", c.name)
		fmt.Fprintf(w, "%s %d\n", c.name, c.v.Load())
	}
}
