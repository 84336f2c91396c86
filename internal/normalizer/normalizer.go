// Package normalizer turns raw table rows from the HTML page or the PDF
// bulletin into canonical measurement records.
//
// Parsing is best-effort: a cell that does not hold the expected number
// leaves its field nil and the record is still produced. Only a row whose
// station cannot be resolved against the catalog is dropped.
package normalizer

import (
	"strings"
	"time"

	"github.com/abelzeko/danube-cote/internal/entities"
	"github.com/abelzeko/danube-cote/internal/stations"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// SkipReason tells why a row produced no record
type SkipReason string

const (
	SkipNone           SkipReason = ""
	SkipEmptyRow       SkipReason = "empty_row"
	SkipUnknownStation SkipReason = "unknown_station"
	SkipUnknownLayout  SkipReason = "unknown_layout"
)

// Result is the outcome of normalizing one row: a record, or the reason there is none
type Result struct {
	Record *entities.MeasurementRecord
	Skip   SkipReason
	Text   string // station cell text, kept for logging skipped rows
}

// OK reports whether the row produced a record
func (r Result) OK() bool {
	return r.Record != nil
}

// Skipped describes one dropped row of a table
type Skipped struct {
	Row    int
	Reason SkipReason
	Text   string
}

// Batch holds the records and skipped rows of one table
type Batch struct {
	Layout  entities.Layout
	Records []entities.MeasurementRecord
	Skipped []Skipped
}

// Normalizer converts raw rows into measurement records.
// It holds no mutable state and never returns errors.
type Normalizer struct {
	catalog *stations.Catalog
	clock   clockwork.Clock
	loc     *time.Location
	runID   string
	logger  *zap.SugaredLogger
}

// Option configures a Normalizer
type Option func(*Normalizer)

// WithClock sets the time source used for capture timestamps
func WithClock(c clockwork.Clock) Option {
	return func(n *Normalizer) { n.clock = c }
}

// WithLocation sets the zone measurement dates are interpreted in
func WithLocation(loc *time.Location) Option {
	return func(n *Normalizer) { n.loc = loc }
}

// WithRunID stamps every record with the identifier of the scrape run
func WithRunID(id string) Option {
	return func(n *Normalizer) { n.runID = id }
}

// WithLogger sets the logger used to report skipped rows
func WithLogger(l *zap.SugaredLogger) Option {
	return func(n *Normalizer) { n.logger = l }
}

// New creates a normalizer resolving stations against catalog
func New(catalog *stations.Catalog, opts ...Option) *Normalizer {
	n := &Normalizer{
		catalog: catalog,
		clock:   clockwork.NewRealClock(),
		loc:     DefaultLocation(),
		logger:  zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// DefaultLocation returns Europe/Bucharest, or UTC when zone data is missing
func DefaultLocation() *time.Location {
	loc, err := time.LoadLocation("Europe/Bucharest")
	if err != nil {
		return time.UTC
	}
	return loc
}

// rowContext carries what a row cannot tell by itself
type rowContext struct {
	header entities.RawRow
	source entities.Source
}

// Normalize converts one row laid out as layout into a record
func (n *Normalizer) Normalize(row entities.RawRow, layout entities.Layout) Result {
	return n.normalize(row, layout, rowContext{})
}

// NormalizeTable normalizes every row of a table. Header dates are applied to
// pdf-cote rows and the table source is recorded as provenance. A bad row
// never stops the rest of the table.
func (n *Normalizer) NormalizeTable(t entities.Table, layout entities.Layout) Batch {
	batch := Batch{Layout: layout}
	ctx := rowContext{header: t.Header, source: t.Source}

	for i, row := range t.Rows {
		res := n.normalize(row, layout, ctx)
		if !res.OK() {
			batch.Skipped = append(batch.Skipped, Skipped{Row: i, Reason: res.Skip, Text: res.Text})
			continue
		}
		batch.Records = append(batch.Records, *res.Record)
	}

	n.logger.Infof("Normalized %s table from %s: %d records, %d rows skipped",
		layout, t.Source.Name, len(batch.Records), len(batch.Skipped))
	return batch
}

func (n *Normalizer) normalize(row entities.RawRow, layout entities.Layout, ctx rowContext) Result {
	cols, ok := layoutColumns[layout]
	if !ok {
		return Result{Skip: SkipUnknownLayout}
	}

	name := strings.TrimSpace(lastStacked(cellText(row, cols.station)))
	if name == "" {
		return Result{Skip: SkipEmptyRow}
	}

	station, ok := n.catalog.Resolve(name)
	if !ok {
		n.logger.Infof("Skipping row: station %q not in catalog", name)
		return Result{Skip: SkipUnknownStation, Text: name}
	}

	now := n.clock.Now()
	rec := entities.MeasurementRecord{
		RunID:     n.runID,
		StationID: station.ID,
		Station:   station.Name,
		Layout:    layout,
		Source:    ctx.source.Name,
		SourceURL: ctx.source.URL,
	}

	rec.Km = parseIntCell(cellText(row, cols.km))
	if rec.Km == nil {
		km := station.Km
		rec.Km = &km
	}

	dateText := cellText(row, cols.date)
	if cols.levelSeries != none {
		var col int
		rec.WaterLevel, rec.WaterDelta, col = levelSeries(row, cols.levelSeries)
		if col >= 0 {
			dateText = lastStacked(cellText(ctx.header, col))
		}
	} else {
		rec.WaterLevel = parseIntCell(cellText(row, cols.level))
		rec.WaterDelta = parseIntCell(cellText(row, cols.delta))
	}
	rec.Trend = entities.DeriveTrend(rec.WaterDelta)

	rec.WaterTemp = parseFloatCell(cellText(row, cols.waterTemp))
	rec.AirTemp = parseFloatCell(cellText(row, cols.airTemp))
	rec.Pressure = parseFloatCell(cellText(row, cols.pressure))
	rec.Precipitation = parseFloatCell(cellText(row, cols.precipitation))

	rec.MeasuredAt = n.measuredAt(dateText, now)

	rec.Forecast24h = lastStacked(cellText(row, cols.forecasts[0]))
	rec.Forecast48h = lastStacked(cellText(row, cols.forecasts[1]))
	rec.Forecast72h = lastStacked(cellText(row, cols.forecasts[2]))
	rec.Forecast96h = lastStacked(cellText(row, cols.forecasts[3]))
	rec.Forecast120h = lastStacked(cellText(row, cols.forecasts[4]))
	if d, ok := parseDate(cellText(row, cols.forecastDate), now, n.loc); ok {
		t := d.t
		rec.ForecastDate = &t
	}

	rec.CapturedAt = n.clock.Now()
	return Result{Record: &rec, Text: name}
}

// measuredAt stamps a record from its own date text, falling back to the
// capture time. A date without a clock time takes the capture clock time.
func (n *Normalizer) measuredAt(dateText string, now time.Time) time.Time {
	local := now.In(n.loc)
	d, ok := parseDate(dateText, now, n.loc)
	if !ok {
		return local.Truncate(time.Minute)
	}
	if d.hasTime {
		return d.t
	}
	return time.Date(d.t.Year(), d.t.Month(), d.t.Day(), local.Hour(), local.Minute(), 0, 0, n.loc)
}

// levelSeries reads the daily level columns of a pdf-cote row, oldest first.
// The level is the last value that parses, the delta its difference to the
// reading of the day before. A blank day in between leaves the delta nil.
// col is the column the level came from, -1 if none.
func levelSeries(row entities.RawRow, first int) (level, delta *int, col int) {
	type reading struct {
		value int
		col   int
	}
	var readings []reading
	for i := first; i < len(row); i++ {
		for _, line := range stackedValues(row[i]) {
			if v := parseIntText(line); v != nil {
				readings = append(readings, reading{value: *v, col: i})
			}
		}
	}
	if len(readings) == 0 {
		return nil, nil, none
	}

	last := readings[len(readings)-1]
	level = &last.value
	if len(readings) > 1 {
		prev := readings[len(readings)-2]
		if prev.col == last.col || prev.col == last.col-1 {
			d := last.value - prev.value
			delta = &d
		}
	}
	return level, delta, last.col
}
