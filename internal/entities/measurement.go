// Package entities contains the core domain objects for the danube-cote application
package entities

import (
	"time"
)

// Trend is the direction of a water level, derived from its delta
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// DeriveTrend classifies a water-level delta. A missing delta is stable.
func DeriveTrend(delta *int) Trend {
	switch {
	case delta == nil:
		return TrendStable
	case *delta > 0:
		return TrendRising
	case *delta < 0:
		return TrendFalling
	default:
		return TrendStable
	}
}

// Symbol returns the arrow used when displaying the trend
func (t Trend) Symbol() string {
	switch t {
	case TrendRising:
		return "▲"
	case TrendFalling:
		return "▼"
	default:
		return "●"
	}
}

// MeasurementRecord is the canonical per-station reading produced by one scrape run.
// Optional values are nil when the source text could not be parsed.
type MeasurementRecord struct {
	ID         int64  `json:"-"`
	RunID      string `json:"run_id,omitempty"`
	StationID  int    `json:"station_id"`
	Station    string `json:"station"`
	Km         *int   `json:"km,omitempty"`
	WaterLevel *int   `json:"water_level_cm,omitempty"` // Water level in cm
	WaterDelta *int   `json:"water_delta_cm,omitempty"` // Change vs. previous reading in cm
	Trend      Trend  `json:"trend"`

	WaterTemp     *float64 `json:"water_temp_c,omitempty"`
	AirTemp       *float64 `json:"air_temp_c,omitempty"`
	Pressure      *float64 `json:"pressure_hpa,omitempty"`
	Precipitation *float64 `json:"precipitation_mm,omitempty"`

	MeasuredAt time.Time `json:"measured_at"`

	Forecast24h  string     `json:"forecast_24h,omitempty"`
	Forecast48h  string     `json:"forecast_48h,omitempty"`
	Forecast72h  string     `json:"forecast_72h,omitempty"`
	Forecast96h  string     `json:"forecast_96h,omitempty"`
	Forecast120h string     `json:"forecast_120h,omitempty"`
	ForecastDate *time.Time `json:"forecast_date,omitempty"`

	Layout     Layout    `json:"layout"`
	Source     string    `json:"source"`
	SourceURL  string    `json:"source_url,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// Date returns the measurement calendar date as YYYY-MM-DD
func (r MeasurementRecord) Date() string {
	return r.MeasuredAt.Format("2006-01-02")
}

// Clock returns the measurement local clock time as HH:MM
func (r MeasurementRecord) Clock() string {
	return r.MeasuredAt.Format("15:04")
}

// Forecasts returns the forecast texts in +24h..+120h order
func (r MeasurementRecord) Forecasts() []string {
	return []string{r.Forecast24h, r.Forecast48h, r.Forecast72h, r.Forecast96h, r.Forecast120h}
}
