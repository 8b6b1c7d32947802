// Package forecast fetches hourly air-quality and temperature forecasts from
// Open-Meteo and turns them into an hourly risk curve.
package forecast

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/climatehealth/platform/pkg/common/apperr"
	"github.com/climatehealth/platform/pkg/common/logger"
	"github.com/climatehealth/platform/pkg/observability/metrics"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultAirQualityURL = "https://air-quality-api.open-meteo.com/v1/air-quality"
	DefaultWeatherURL    = "https://api.open-meteo.com/v1/forecast"

	DefaultDays = 5
	maxDays     = 7
)

// Hourly is the merged hourly series. Missing upstream values are nil.
type Hourly struct {
	Time        []string   `json:"time"`
	USAQI       []*float64 `json:"us_aqi"`
	Temperature []*float64 `json:"temperature_2m"`
}

type hourlyResponse struct {
	Hourly struct {
		Time          []string   `json:"time"`
		USAQI         []*float64 `json:"us_aqi"`
		Temperature2m []*float64 `json:"temperature_2m"`
	} `json:"hourly"`
}

type Client struct {
	http          *resty.Client
	airQualityURL string
	weatherURL    string
}

func NewClient(airQualityURL, weatherURL string, timeout time.Duration) *Client {
	if airQualityURL == "" {
		airQualityURL = DefaultAirQualityURL
	}
	if weatherURL == "" {
		weatherURL = DefaultWeatherURL
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{http: client, airQualityURL: airQualityURL, weatherURL: weatherURL}
}

// HourlyForecast fetches both series concurrently and aligns temperature to
// the air-quality timeline.
func (c *Client) HourlyForecast(ctx context.Context, latitude, longitude float64, days int) (*Hourly, error) {
	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return nil, apperr.New(apperr.KindInvalidInput, "latitude/longitude out of range")
	}
	if days <= 0 {
		days = DefaultDays
	}
	if days > maxDays {
		days = maxDays
	}

	params := map[string]string{
		"latitude":      strconv.FormatFloat(latitude, 'f', -1, 64),
		"longitude":     strconv.FormatFloat(longitude, 'f', -1, 64),
		"forecast_days": strconv.Itoa(days),
		"timezone":      "auto",
	}

	var (
		wg               sync.WaitGroup
		aqi, temperature hourlyResponse
		aqiErr, tempErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		aqiErr = c.get(ctx, c.airQualityURL, params, map[string]string{"hourly": "us_aqi"}, &aqi)
	}()
	go func() {
		defer wg.Done()
		tempErr = c.get(ctx, c.weatherURL, params, map[string]string{
			"hourly":           "temperature_2m",
			"temperature_unit": "fahrenheit",
		}, &temperature)
	}()
	wg.Wait()

	for _, err := range []error{aqiErr, tempErr} {
		if err != nil {
			metrics.ForecastFailed()
			logger.Log.WithError(err).WithFields(map[string]interface{}{
				"latitude":  latitude,
				"longitude": longitude,
			}).Warn("forecast fetch failed")
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to fetch forecast")
		}
	}

	return merge(aqi, temperature), nil
}

func (c *Client) get(ctx context.Context, url string, base, extra map[string]string, out *hourlyResponse) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(base).
		SetQueryParams(extra).
		SetResult(out).
		Get(url)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("request %s: status %d", url, resp.StatusCode())
	}
	return nil
}

func merge(aqi, temperature hourlyResponse) *Hourly {
	byTime := make(map[string]*float64, len(temperature.Hourly.Time))
	for i, t := range temperature.Hourly.Time {
		if i < len(temperature.Hourly.Temperature2m) {
			byTime[t] = temperature.Hourly.Temperature2m[i]
		}
	}
	h := &Hourly{
		Time:        aqi.Hourly.Time,
		USAQI:       make([]*float64, len(aqi.Hourly.Time)),
		Temperature: make([]*float64, len(aqi.Hourly.Time)),
	}
	for i, t := range aqi.Hourly.Time {
		if i < len(aqi.Hourly.USAQI) {
			h.USAQI[i] = aqi.Hourly.USAQI[i]
		}
		h.Temperature[i] = byTime[t]
	}
	return h
}
