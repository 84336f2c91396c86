// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abelzeko/danube-cote/internal/entities"
	"github.com/abelzeko/danube-cote/internal/export"
	"github.com/abelzeko/danube-cote/internal/integration/openai"
	"github.com/abelzeko/danube-cote/internal/normalizer"
	"github.com/abelzeko/danube-cote/internal/observability"
	"github.com/abelzeko/danube-cote/internal/repository"
	"github.com/abelzeko/danube-cote/internal/stations"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ErrNoRecords is returned when no source yielded a single record
var ErrNoRecords = errors.New("no records scraped from any source")

// TableSource fetches the candidate tables published at a URL
type TableSource interface {
	Kind() string
	FetchTables(ctx context.Context, url string) ([]entities.Table, error)
}

// SourceTarget is a source with the mirror URLs it is tried on, in order
type SourceTarget struct {
	Source TableSource
	URLs   []string
}

// Exporter writes a run's records to files
type Exporter interface {
	Export(env export.Envelope) ([]string, error)
}

// RecordSink receives a run's records, such as a remote REST table or a Kafka topic
type RecordSink interface {
	Name() string
	Write(ctx context.Context, records []entities.MeasurementRecord) error
}

// AlertNotifier delivers alerts to people
type AlertNotifier interface {
	NotifyAlerts(ctx context.Context, alerts []entities.Alert) error
}

// RunSummary reports what one refresh produced
type RunSummary struct {
	RunID      string
	Records    []entities.MeasurementRecord
	Skipped    int
	SourceURLs []string
	Files      []string
	Alerts     []entities.Alert
}

// CoteUseCase handles business logic related to Danube water levels
type CoteUseCase struct {
	repo          repository.CoteRepository
	catalog       *stations.Catalog
	detector      *normalizer.LayoutDetector
	logger        *zap.SugaredLogger
	clock         clockwork.Clock
	loc           *time.Location
	metrics       *observability.Metrics
	openAIService openai.OpenAIService

	targets     []SourceTarget
	exporter    Exporter
	required    []RecordSink
	optional    []RecordSink
	notifier    AlertNotifier
	variationCM int
}

// Option configures a CoteUseCase
type Option func(*CoteUseCase)

// WithSources sets the sources a refresh scrapes, each on its mirrors
func WithSources(targets ...SourceTarget) Option {
	return func(uc *CoteUseCase) { uc.targets = targets }
}

// WithExporter writes every run to files
func WithExporter(e Exporter) Option {
	return func(uc *CoteUseCase) { uc.exporter = e }
}

// WithRequiredSink adds a sink whose failure fails the run
func WithRequiredSink(s RecordSink) Option {
	return func(uc *CoteUseCase) { uc.required = append(uc.required, s) }
}

// WithOptionalSink adds a sink whose failure is only logged
func WithOptionalSink(s RecordSink) Option {
	return func(uc *CoteUseCase) { uc.optional = append(uc.optional, s) }
}

// WithNotifier sends alerts raised by a run
func WithNotifier(n AlertNotifier) Option {
	return func(uc *CoteUseCase) { uc.notifier = n }
}

// WithOpenAI enables free-text query interpretation
func WithOpenAI(s openai.OpenAIService) Option {
	return func(uc *CoteUseCase) { uc.openAIService = s }
}

// WithMetrics records run metrics
func WithMetrics(m *observability.Metrics) Option {
	return func(uc *CoteUseCase) { uc.metrics = m }
}

// WithClock sets the time source for runs and capture timestamps
func WithClock(c clockwork.Clock) Option {
	return func(uc *CoteUseCase) { uc.clock = c }
}

// WithLocation sets the zone measurement dates are read and shown in
func WithLocation(loc *time.Location) Option {
	return func(uc *CoteUseCase) { uc.loc = loc }
}

// WithVariationThreshold sets the daily change that raises a variation alert
func WithVariationThreshold(cm int) Option {
	return func(uc *CoteUseCase) { uc.variationCM = cm }
}

// NewCoteUseCase creates a new cote use case
func NewCoteUseCase(repo repository.CoteRepository, catalog *stations.Catalog, logger *zap.SugaredLogger, opts ...Option) *CoteUseCase {
	uc := &CoteUseCase{
		repo:        repo,
		catalog:     catalog,
		detector:    normalizer.NewLayoutDetector(),
		logger:      logger,
		clock:       clockwork.NewRealClock(),
		loc:         normalizer.DefaultLocation(),
		metrics:     observability.NewMetrics(),
		variationCM: DefaultVariationCM,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// RefreshCoteData scrapes every source, stores and exports the records,
// then raises alerts. Mirrors of a source are tried in order and the first
// URL yielding at least one record wins.
func (uc *CoteUseCase) RefreshCoteData(ctx context.Context) (*RunSummary, error) {
	start := uc.clock.Now()
	summary := &RunSummary{RunID: uuid.NewString()}
	uc.logger.Infof("Starting cote refresh run %s", summary.RunID)
	defer func() {
		uc.metrics.RunDuration.Set(uc.clock.Since(start).Seconds())
	}()

	n := normalizer.New(uc.catalog,
		normalizer.WithClock(uc.clock),
		normalizer.WithLocation(uc.loc),
		normalizer.WithRunID(summary.RunID),
		normalizer.WithLogger(uc.logger),
	)

	for _, target := range uc.targets {
		records, skipped, url := uc.scrapeTarget(ctx, n, target)
		if url == "" {
			uc.logger.Warnf("No %s mirror yielded any record", target.Source.Kind())
			continue
		}
		summary.Records = append(summary.Records, records...)
		summary.Skipped += skipped
		summary.SourceURLs = append(summary.SourceURLs, url)
	}

	if len(summary.Records) == 0 {
		return summary, ErrNoRecords
	}
	uc.logger.Infof("Scraped %d records (%d rows skipped)", len(summary.Records), summary.Skipped)

	if err := uc.repo.SaveRecords(summary.Records); err != nil {
		uc.metrics.SinkErrors.WithLabelValues("sqlite").Inc()
		return summary, fmt.Errorf("failed to save data to repository: %w", err)
	}

	if uc.exporter != nil {
		env := export.NewEnvelope(summary.Records[0].Source, summary.SourceURLs[0], start, summary.Records)
		files, err := uc.exporter.Export(env)
		summary.Files = files
		if err != nil {
			uc.metrics.SinkErrors.WithLabelValues("export").Inc()
			return summary, fmt.Errorf("failed to export records: %w", err)
		}
	}

	for _, sink := range uc.required {
		if err := sink.Write(ctx, summary.Records); err != nil {
			uc.metrics.SinkErrors.WithLabelValues(sink.Name()).Inc()
			return summary, fmt.Errorf("failed to write records to %s: %w", sink.Name(), err)
		}
	}
	for _, sink := range uc.optional {
		if err := sink.Write(ctx, summary.Records); err != nil {
			uc.metrics.SinkErrors.WithLabelValues(sink.Name()).Inc()
			uc.logger.Warnf("Failed to write records to %s: %v", sink.Name(), err)
		}
	}

	summary.Alerts = EvaluateAlerts(summary.Records, uc.catalog, uc.variationCM)
	uc.reportAlerts(ctx, summary.Alerts)

	uc.metrics.LastSuccess.Set(float64(uc.clock.Now().Unix()))
	uc.logger.Infof("Finished cote refresh run %s", summary.RunID)
	return summary, nil
}

// scrapeTarget tries a source's mirrors in order and returns the records
// of the first URL that yields any, with the URL used
func (uc *CoteUseCase) scrapeTarget(ctx context.Context, n *normalizer.Normalizer, target SourceTarget) ([]entities.MeasurementRecord, int, string) {
	kind := target.Source.Kind()
	for _, url := range target.URLs {
		tables, err := target.Source.FetchTables(ctx, url)
		if err != nil {
			uc.metrics.SourceErrors.WithLabelValues(kind).Inc()
			uc.logger.Warnf("Failed to fetch %s source %s: %v", kind, url, err)
			continue
		}

		records, skipped := uc.normalizeTables(n, tables)
		if len(records) > 0 {
			uc.logger.Infof("Fetched %d records from %s", len(records), url)
			return records, skipped, url
		}
		uc.logger.Warnf("No records found at %s, trying next mirror", url)
	}
	return nil, 0, ""
}

// normalizeTables detects each table's layout and normalizes its rows.
// Tables matching no layout are ignored.
func (uc *CoteUseCase) normalizeTables(n *normalizer.Normalizer, tables []entities.Table) ([]entities.MeasurementRecord, int) {
	var (
		records []entities.MeasurementRecord
		skipped int
	)
	for _, t := range tables {
		layout, ok := uc.detector.Detect(t)
		if !ok {
			uc.logger.Debugf("Ignoring table with %d rows from %s: no known layout", len(t.Rows), t.Source.URL)
			continue
		}

		batch := n.NormalizeTable(t, layout)
		uc.metrics.RowsProcessed.WithLabelValues(string(layout)).Add(float64(len(t.Rows)))
		uc.metrics.RecordsProduced.WithLabelValues(string(layout)).Add(float64(len(batch.Records)))
		for _, s := range batch.Skipped {
			uc.metrics.RowsSkipped.WithLabelValues(string(s.Reason)).Inc()
		}
		records = append(records, batch.Records...)
		skipped += len(batch.Skipped)
	}
	return records, skipped
}

func (uc *CoteUseCase) reportAlerts(ctx context.Context, alerts []entities.Alert) {
	if len(alerts) == 0 {
		uc.logger.Infof("No alerts: all levels within normal limits")
		return
	}
	for _, a := range alerts {
		uc.metrics.AlertsRaised.WithLabelValues(string(a.Level)).Inc()
		uc.logger.Warnf("Alert %s: %s at %d cm (threshold %d cm, trend %s)", a.Level, a.Station, a.Current, a.Threshold, a.Trend)
	}
	if uc.notifier == nil {
		return
	}
	if err := uc.notifier.NotifyAlerts(ctx, alerts); err != nil {
		uc.metrics.SinkErrors.WithLabelValues("telegram").Inc()
		uc.logger.Warnf("Failed to send alert notification: %v", err)
	}
}

type namedSink struct {
	name  string
	write func(context.Context, []entities.MeasurementRecord) error
}

func (s namedSink) Name() string { return s.name }

func (s namedSink) Write(ctx context.Context, records []entities.MeasurementRecord) error {
	return s.write(ctx, records)
}

// NewSink adapts a write function, such as a REST insert or a Kafka publish, to a RecordSink
func NewSink(name string, write func(context.Context, []entities.MeasurementRecord) error) RecordSink {
	return namedSink{name: name, write: write}
}
