package forecast

import (
	"github.com/climatehealth/platform/pkg/serving/predictor"
)

type HourRisk struct {
	Time           string   `json:"time"`
	USAQI          *float64 `json:"us_aqi"`
	Temperature    *float64 `json:"temperature_2m"`
	RiskPercentage *float64 `json:"risk_percentage"`
}

// RiskCurve scores every hour of the forecast for one patient profile, using
// that hour's AQI. Hours without AQI keep a nil risk.
func RiskCurve(model *predictor.RiskModel, hourly *Hourly, patient predictor.Features) []HourRisk {
	curve := make([]HourRisk, len(hourly.Time))
	for i, t := range hourly.Time {
		hr := HourRisk{Time: t, USAQI: hourly.USAQI[i], Temperature: hourly.Temperature[i]}
		if hr.USAQI != nil {
			features := patient
			features.AQI = *hr.USAQI
			if risk, err := model.Score(features); err == nil {
				hr.RiskPercentage = &risk
			}
		}
		curve[i] = hr
	}
	return curve
}

// Peak returns the hour with the highest risk, or nil when nothing was scored.
func Peak(curve []HourRisk) *HourRisk {
	var peak *HourRisk
	for i := range curve {
		r := curve[i].RiskPercentage
		if r == nil {
			continue
		}
		if peak == nil || *r > *peak.RiskPercentage {
			peak = &curve[i]
		}
	}
	return peak
}
