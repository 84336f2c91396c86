// Package export writes scraped records to JSON, CSV and Excel files
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/abelzeko/danube-cote/internal/entities"
	"go.uber.org/zap"
)

// Format is an output file format
type Format string

const (
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

// AllFormats lists every supported format in the order files are written
var AllFormats = []Format{FormatJSON, FormatCSV, FormatExcel}

// BaseName is the file name, without extension, of every export
const BaseName = "cote_dunare"

// Extension returns the file extension of the format
func (f Format) Extension() string {
	if f == FormatExcel {
		return "xlsx"
	}
	return string(f)
}

// ParseFormats reads a comma separated list such as "json,csv" or "all"
func ParseFormats(s string) ([]Format, error) {
	var formats []Format
	seen := make(map[Format]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		switch part {
		case "":
			continue
		case "all":
			return AllFormats, nil
		case "xlsx":
			part = string(FormatExcel)
		case string(FormatJSON), string(FormatCSV), string(FormatExcel):
		default:
			return nil, fmt.Errorf("unknown export format %q", part)
		}
		if f := Format(part); !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	return formats, nil
}

// Envelope is the JSON document wrapping one run's records
type Envelope struct {
	Source    string                       `json:"source"`
	URL       string                       `json:"url"`
	Timestamp time.Time                    `json:"timestamp"`
	Count     int                          `json:"count"`
	Ports     []entities.MeasurementRecord `json:"ports"`
}

// NewEnvelope wraps records scraped from url at timestamp
func NewEnvelope(source, url string, timestamp time.Time, records []entities.MeasurementRecord) Envelope {
	if records == nil {
		records = []entities.MeasurementRecord{}
	}
	return Envelope{Source: source, URL: url, Timestamp: timestamp, Count: len(records), Ports: records}
}

// Exporter writes envelopes to files in a directory
type Exporter struct {
	dir     string
	formats []Format
	logger  *zap.SugaredLogger
}

// NewExporter creates an exporter writing formats into dir
func NewExporter(dir string, formats []Format, logger *zap.SugaredLogger) *Exporter {
	return &Exporter{dir: dir, formats: formats, logger: logger}
}

// Export writes one file per configured format and returns their paths
func (e *Exporter) Export(env Envelope) ([]string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var paths []string
	for _, f := range e.formats {
		path := filepath.Join(e.dir, BaseName+"."+f.Extension())
		if err := e.writeFile(path, f, env); err != nil {
			return paths, err
		}
		e.logger.Infof("Data saved to: %s", path)
		paths = append(paths, path)
	}
	return paths, nil
}

func (e *Exporter) writeFile(path string, f Format, env Envelope) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	switch f {
	case FormatJSON:
		err = WriteJSON(file, env)
	case FormatCSV:
		err = WriteCSV(file, env.Ports)
	case FormatExcel:
		err = WriteExcel(file, env.Ports)
	default:
		err = fmt.Errorf("unknown export format %q", f)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

// columns is the fixed header shared by the CSV and Excel exports
var columns = []string{
	"station_id", "station", "km", "water_level_cm", "water_delta_cm", "trend",
	"water_temp_c", "air_temp_c", "pressure_hpa", "precipitation_mm",
	"date", "time",
	"forecast_24h", "forecast_48h", "forecast_72h", "forecast_96h", "forecast_120h", "forecast_date",
	"layout", "source", "source_url", "captured_at", "run_id",
}

// values returns a record's cells in column order; absent values are nil
func values(rec entities.MeasurementRecord) []any {
	forecastDate := any(nil)
	if rec.ForecastDate != nil {
		forecastDate = rec.ForecastDate.Format("2006-01-02")
	}
	return []any{
		rec.StationID, rec.Station, intValue(rec.Km), intValue(rec.WaterLevel), intValue(rec.WaterDelta), string(rec.Trend),
		floatValue(rec.WaterTemp), floatValue(rec.AirTemp), floatValue(rec.Pressure), floatValue(rec.Precipitation),
		rec.Date(), rec.Clock(),
		rec.Forecast24h, rec.Forecast48h, rec.Forecast72h, rec.Forecast96h, rec.Forecast120h, forecastDate,
		string(rec.Layout), rec.Source, rec.SourceURL, rec.CapturedAt.Format(time.RFC3339), rec.RunID,
	}
}

func intValue(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatValue(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// text renders a cell value for text formats
func text(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
