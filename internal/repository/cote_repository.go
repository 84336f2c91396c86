// Package repository provides data access implementations
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abelzeko/danube-cote/internal/entities"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// timeLayout is how timestamps are stored. UTC RFC3339 text sorts chronologically.
const timeLayout = time.RFC3339

// CoteRepository defines the interface for measurement persistence operations
type CoteRepository interface {
	SaveRecords(records []entities.MeasurementRecord) error
	GetLatestByStation(station string) (*entities.MeasurementRecord, error)
	GetLatestAll() ([]entities.MeasurementRecord, error)
	GetStationHistory(stationID int, since time.Time) ([]entities.MeasurementRecord, error)
	GetLastUpdateTime() (time.Time, error)
	Close() error
}

// SQLiteCoteRepository implements CoteRepository using SQLite
type SQLiteCoteRepository struct {
	db     *sql.DB
	DBPath string
	logger *zap.SugaredLogger
}

const schema = `
CREATE TABLE IF NOT EXISTS cote_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT,
	station_id INTEGER NOT NULL,
	station TEXT NOT NULL,
	km INTEGER,
	water_level INTEGER,
	water_delta INTEGER,
	trend TEXT NOT NULL,
	water_temp REAL,
	air_temp REAL,
	pressure REAL,
	precipitation REAL,
	forecast_24h TEXT,
	forecast_48h TEXT,
	forecast_72h TEXT,
	forecast_96h TEXT,
	forecast_120h TEXT,
	forecast_date TEXT,
	layout TEXT,
	source TEXT NOT NULL,
	source_url TEXT,
	measured_at TEXT NOT NULL,
	captured_at TEXT NOT NULL,
	UNIQUE(station_id, measured_at, source)
);
CREATE INDEX IF NOT EXISTS idx_cote_station ON cote_records(station_id, measured_at);
CREATE INDEX IF NOT EXISTS idx_cote_captured ON cote_records(captured_at);`

// Rows of different layouts for the same station and time are merged: a
// meteo row must not erase the level read from the cote table.
const upsertSQL = `
INSERT INTO cote_records(
	run_id, station_id, station, km, water_level, water_delta, trend,
	water_temp, air_temp, pressure, precipitation,
	forecast_24h, forecast_48h, forecast_72h, forecast_96h, forecast_120h, forecast_date,
	layout, source, source_url, measured_at, captured_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(station_id, measured_at, source) DO UPDATE SET
	run_id=excluded.run_id,
	km=COALESCE(excluded.km, km),
	water_level=COALESCE(excluded.water_level, water_level),
	water_delta=COALESCE(excluded.water_delta, water_delta),
	trend=CASE WHEN excluded.water_delta IS NULL THEN trend ELSE excluded.trend END,
	water_temp=COALESCE(excluded.water_temp, water_temp),
	air_temp=COALESCE(excluded.air_temp, air_temp),
	pressure=COALESCE(excluded.pressure, pressure),
	precipitation=COALESCE(excluded.precipitation, precipitation),
	forecast_24h=COALESCE(NULLIF(excluded.forecast_24h, ''), forecast_24h),
	forecast_48h=COALESCE(NULLIF(excluded.forecast_48h, ''), forecast_48h),
	forecast_72h=COALESCE(NULLIF(excluded.forecast_72h, ''), forecast_72h),
	forecast_96h=COALESCE(NULLIF(excluded.forecast_96h, ''), forecast_96h),
	forecast_120h=COALESCE(NULLIF(excluded.forecast_120h, ''), forecast_120h),
	forecast_date=COALESCE(excluded.forecast_date, forecast_date),
	layout=excluded.layout,
	source_url=excluded.source_url,
	captured_at=excluded.captured_at`

const selectColumns = `
	id, run_id, station_id, station, km, water_level, water_delta, trend,
	water_temp, air_temp, pressure, precipitation,
	forecast_24h, forecast_48h, forecast_72h, forecast_96h, forecast_120h, forecast_date,
	layout, source, source_url, measured_at, captured_at`

// NewSQLiteCoteRepository creates and initializes a new SQLite repository
func NewSQLiteCoteRepository(dbPath string, logger *zap.SugaredLogger) (*SQLiteCoteRepository, error) {
	if dbPath == "" {
		dbDir := "data"
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dbPath = filepath.Join(dbDir, "cote.db")
	}

	logger.Infof("Opening database at %s", dbPath)
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteCoteRepository{
		db:     db,
		DBPath: dbPath,
		logger: logger,
	}, nil
}

// Close closes the database connection
func (r *SQLiteCoteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveRecords upserts records in a single transaction
func (r *SQLiteCoteRepository) SaveRecords(records []entities.MeasurementRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(upsertSQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.Exec(
			rec.RunID,
			rec.StationID,
			rec.Station,
			nullInt(rec.Km),
			nullInt(rec.WaterLevel),
			nullInt(rec.WaterDelta),
			string(rec.Trend),
			nullFloat(rec.WaterTemp),
			nullFloat(rec.AirTemp),
			nullFloat(rec.Pressure),
			nullFloat(rec.Precipitation),
			rec.Forecast24h,
			rec.Forecast48h,
			rec.Forecast72h,
			rec.Forecast96h,
			rec.Forecast120h,
			nullTime(rec.ForecastDate),
			string(rec.Layout),
			rec.Source,
			rec.SourceURL,
			formatTime(rec.MeasuredAt),
			formatTime(rec.CapturedAt),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert record for %s at %s: %w", rec.Station, formatTime(rec.MeasuredAt), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Infof("Successfully saved %d cote records", len(records))
	return nil
}

// GetLatestByStation returns the most recent record of a station by its
// canonical name, preferring records that carry a water level. Returns nil
// when the station has none
func (r *SQLiteCoteRepository) GetLatestByStation(station string) (*entities.MeasurementRecord, error) {
	query := `SELECT` + selectColumns + `
		FROM cote_records
		WHERE station = ?
		ORDER BY (water_level IS NULL), measured_at DESC, captured_at DESC, id DESC
		LIMIT 1`

	records, err := r.query(query, station)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest record for %s: %w", station, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// GetLatestAll returns the most recent record of every station, in catalog
// order. As in GetLatestByStation, a newer meteo-only row does not hide the
// latest water level.
func (r *SQLiteCoteRepository) GetLatestAll() ([]entities.MeasurementRecord, error) {
	query := `SELECT` + selectColumns + `
		FROM cote_records c
		WHERE id = (
			SELECT id FROM cote_records
			WHERE station_id = c.station_id
			ORDER BY (water_level IS NULL), measured_at DESC, captured_at DESC, id DESC
			LIMIT 1
		)
		ORDER BY station_id`

	records, err := r.query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest records: %w", err)
	}
	return records, nil
}

// GetStationHistory returns a station's records measured at or after since, oldest first
func (r *SQLiteCoteRepository) GetStationHistory(stationID int, since time.Time) ([]entities.MeasurementRecord, error) {
	query := `SELECT` + selectColumns + `
		FROM cote_records
		WHERE station_id = ? AND measured_at >= ?
		ORDER BY measured_at, id`

	records, err := r.query(query, stationID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query history for station %d: %w", stationID, err)
	}
	return records, nil
}

// GetLastUpdateTime returns the most recent capture time in the database,
// or the zero time when it is empty
func (r *SQLiteCoteRepository) GetLastUpdateTime() (time.Time, error) {
	var last sql.NullString
	if err := r.db.QueryRow("SELECT MAX(captured_at) FROM cote_records").Scan(&last); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to get last update time: %w", err)
	}
	if !last.Valid || last.String == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(timeLayout, last.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': %w", last.String, err)
	}
	return t, nil
}

func (r *SQLiteCoteRepository) query(query string, args ...any) ([]entities.MeasurementRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []entities.MeasurementRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return result, nil
}

func scanRecord(rows *sql.Rows) (entities.MeasurementRecord, error) {
	var (
		rec                                         entities.MeasurementRecord
		runID, sourceURL, layout                    sql.NullString
		f24, f48, f72, f96, f120, forecastDate      sql.NullString
		km, level, delta                            sql.NullInt64
		waterTemp, airTemp, pressure, precipitation sql.NullFloat64
		trend, measuredAt, capturedAt               string
	)
	if err := rows.Scan(
		&rec.ID, &runID, &rec.StationID, &rec.Station, &km, &level, &delta, &trend,
		&waterTemp, &airTemp, &pressure, &precipitation,
		&f24, &f48, &f72, &f96, &f120, &forecastDate,
		&layout, &rec.Source, &sourceURL, &measuredAt, &capturedAt,
	); err != nil {
		return rec, err
	}

	rec.RunID = runID.String
	rec.Km = intPtr(km)
	rec.WaterLevel = intPtr(level)
	rec.WaterDelta = intPtr(delta)
	rec.Trend = entities.Trend(trend)
	rec.WaterTemp = floatPtr(waterTemp)
	rec.AirTemp = floatPtr(airTemp)
	rec.Pressure = floatPtr(pressure)
	rec.Precipitation = floatPtr(precipitation)
	rec.Forecast24h = f24.String
	rec.Forecast48h = f48.String
	rec.Forecast72h = f72.String
	rec.Forecast96h = f96.String
	rec.Forecast120h = f120.String
	rec.Layout = entities.Layout(layout.String)
	rec.SourceURL = sourceURL.String

	var err error
	if rec.MeasuredAt, err = time.Parse(timeLayout, measuredAt); err != nil {
		return rec, err
	}
	if rec.CapturedAt, err = time.Parse(timeLayout, capturedAt); err != nil {
		return rec, err
	}
	if forecastDate.Valid {
		t, err := time.Parse(timeLayout, forecastDate.String)
		if err != nil {
			return rec, err
		}
		rec.ForecastDate = &t
	}
	return rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
