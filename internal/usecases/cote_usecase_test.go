package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abelzeko/danube-cote/internal/entities"
	"github.com/abelzeko/danube-cote/internal/observability"
	"github.com/abelzeko/danube-cote/internal/stations"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	primaryURL = "https://www.afdj.ro/ro/cotele-dunarii"
	mirrorURL  = "https://www.cotele-dunarii.ro"
	pdfURL     = "https://www.afdj.ro/sites/default/files/bhcote.pdf"
)

func htmlTable(url string, rows ...entities.RawRow) entities.Table {
	return entities.Table{
		Header: entities.RawRow{"Localitatea", "Km", "Cota", "Variația", "Temperatura"},
		Rows:   rows,
		Source: entities.Source{Name: "AFDJ", URL: url},
	}
}

type testEnv struct {
	uc       *CoteUseCase
	repo     *fakeRepo
	exporter *fakeExporter
	notifier *fakeNotifier
	metrics  *observability.Metrics
}

func newTestUseCase(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:     &fakeRepo{},
		exporter: &fakeExporter{},
		notifier: &fakeNotifier{},
		metrics:  observability.NewMetrics(),
	}
	loc := time.FixedZone("EET", 2*60*60)
	base := []Option{
		WithClock(clockwork.NewFakeClockAt(time.Date(2026, 1, 28, 10, 30, 0, 0, loc))),
		WithLocation(loc),
		WithExporter(env.exporter),
		WithNotifier(env.notifier),
		WithMetrics(env.metrics),
	}
	env.uc = NewCoteUseCase(env.repo, stations.Default(), zaptest.NewLogger(t).Sugar(), append(base, opts...)...)
	return env
}

func TestRefreshCoteData_FullRun(t *testing.T) {
	html := &fakeSource{kind: "html", tables: map[string][]entities.Table{
		primaryURL: {
			htmlTable(primaryURL,
				entities.RawRow{"Galați", "159", "189", "-6", "2,0"},
				entities.RawRow{"Unknown Place", "10", "50"},
				entities.RawRow{"Tulcea", "71", "610", "+25", "1,5"},
			),
			{Header: entities.RawRow{"Meniu"}, Rows: []entities.RawRow{{"Acasă"}}},
		},
	}}
	var restWrites, kafkaWrites int
	env := newTestUseCase(t,
		WithSources(SourceTarget{Source: html, URLs: []string{primaryURL, mirrorURL}}),
		WithRequiredSink(NewSink("rest", func(context.Context, []entities.MeasurementRecord) error { restWrites++; return nil })),
		WithOptionalSink(NewSink("kafka", func(context.Context, []entities.MeasurementRecord) error { kafkaWrites++; return nil })),
	)

	summary, err := env.uc.RefreshCoteData(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	require.Len(t, summary.Records, 2)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, []string{primaryURL}, summary.SourceURLs)
	assert.Equal(t, []string{primaryURL}, html.calls, "mirrors are not tried after a success")

	galati := summary.Records[0]
	assert.Equal(t, 4, galati.StationID)
	assert.Equal(t, 189, *galati.WaterLevel)
	assert.Equal(t, entities.TrendFalling, galati.Trend)
	assert.Equal(t, summary.RunID, galati.RunID)

	assert.Len(t, env.repo.saved, 2)
	require.Len(t, env.exporter.envs, 1)
	assert.Equal(t, "AFDJ", env.exporter.envs[0].Source)
	assert.Equal(t, primaryURL, env.exporter.envs[0].URL)
	assert.Equal(t, 2, env.exporter.envs[0].Count)
	assert.Equal(t, 1, restWrites)
	assert.Equal(t, 1, kafkaWrites)

	// Tulcea 610 cm is over its 600 cm flood level and rose 25 cm.
	require.Len(t, summary.Alerts, 2)
	assert.Equal(t, entities.AlertCritical, summary.Alerts[0].Level)
	assert.Equal(t, entities.AlertVariation, summary.Alerts[1].Level)
	assert.Equal(t, summary.Alerts, env.notifier.alerts)

	assert.Equal(t, 3.0, testutil.ToFloat64(env.metrics.RowsProcessed.WithLabelValues("html-cote")))
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.RecordsProduced.WithLabelValues("html-cote")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.RowsSkipped.WithLabelValues("unknown_station")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.AlertsRaised.WithLabelValues("critical")))
	assert.Positive(t, testutil.ToFloat64(env.metrics.LastSuccess))
}

func TestRefreshCoteData_MirrorFallback(t *testing.T) {
	html := &fakeSource{kind: "html", tables: map[string][]entities.Table{
		// primary answers but holds no usable rows
		primaryURL: {htmlTable(primaryURL, entities.RawRow{"Unknown Place", "1", "2"})},
		mirrorURL:  {htmlTable(mirrorURL, entities.RawRow{"Brăila", "170", "300", "0"})},
	}}
	env := newTestUseCase(t, WithSources(SourceTarget{Source: html, URLs: []string{"https://down.example", primaryURL, mirrorURL}}))

	summary, err := env.uc.RefreshCoteData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://down.example", primaryURL, mirrorURL}, html.calls)
	assert.Equal(t, []string{mirrorURL}, summary.SourceURLs)
	require.Len(t, summary.Records, 1)
	assert.Equal(t, mirrorURL, summary.Records[0].SourceURL)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.SourceErrors.WithLabelValues("html")))
}

func TestRefreshCoteData_HTMLAndPDF(t *testing.T) {
	html := &fakeSource{kind: "html", tables: map[string][]entities.Table{
		primaryURL: {htmlTable(primaryURL, entities.RawRow{"Sulina", "0", "80", "+2"})},
	}}
	pdf := &fakeSource{kind: "pdf", tables: map[string][]entities.Table{
		pdfURL: {
			{
				Header: entities.RawRow{"Localitate", "km", "27.01", "28.01"},
				Rows:   []entities.RawRow{{"Isaccea", "103", "300", "305"}},
			},
			{
				Header: entities.RawRow{"Localități", "Temperatura minimă atmosferică", "Temperatura apei", "Presiune", "Precipitații"},
				Rows:   []entities.RawRow{{"Sulina", "-3,2", "2,0", "1018", "0"}},
			},
		},
	}}
	env := newTestUseCase(t, WithSources(
		SourceTarget{Source: html, URLs: []string{primaryURL}},
		SourceTarget{Source: pdf, URLs: []string{pdfURL}},
	))

	summary, err := env.uc.RefreshCoteData(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Records, 3)
	assert.Equal(t, []string{primaryURL, pdfURL}, summary.SourceURLs)
	assert.Equal(t, entities.LayoutPDFCote, summary.Records[1].Layout)
	assert.Equal(t, entities.LayoutPDFMeteo, summary.Records[2].Layout)
	assert.Equal(t, -3.2, *summary.Records[2].AirTemp)
}

func TestRefreshCoteData_NoRecords(t *testing.T) {
	html := &fakeSource{kind: "html"}
	env := newTestUseCase(t, WithSources(SourceTarget{Source: html, URLs: []string{primaryURL, mirrorURL}}))

	_, err := env.uc.RefreshCoteData(context.Background())
	assert.ErrorIs(t, err, ErrNoRecords)
	assert.Empty(t, env.repo.saved)
	assert.Empty(t, env.exporter.envs)
}

func TestRefreshCoteData_SinkFailures(t *testing.T) {
	newSource := func() *fakeSource {
		return &fakeSource{kind: "html", tables: map[string][]entities.Table{
			primaryURL: {htmlTable(primaryURL, entities.RawRow{"Galați", "150", "189", "-6"})},
		}}
	}
	failing := func(context.Context, []entities.MeasurementRecord) error { return errors.New("boom") }

	t.Run("repository failure fails the run", func(t *testing.T) {
		env := newTestUseCase(t, WithSources(SourceTarget{Source: newSource(), URLs: []string{primaryURL}}))
		env.repo.saveErr = errors.New("disk full")
		_, err := env.uc.RefreshCoteData(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})

	t.Run("required sink failure fails the run", func(t *testing.T) {
		env := newTestUseCase(t,
			WithSources(SourceTarget{Source: newSource(), URLs: []string{primaryURL}}),
			WithRequiredSink(NewSink("rest", failing)),
		)
		_, err := env.uc.RefreshCoteData(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rest")
		assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.SinkErrors.WithLabelValues("rest")))
	})

	t.Run("optional sink and notifier failures are logged", func(t *testing.T) {
		env := newTestUseCase(t,
			WithSources(SourceTarget{Source: newSource(), URLs: []string{primaryURL}}),
			WithOptionalSink(NewSink("kafka", failing)),
			WithVariationThreshold(5),
		)
		env.notifier.err = errors.New("telegram down")

		summary, err := env.uc.RefreshCoteData(context.Background())
		require.NoError(t, err)
		assert.Len(t, summary.Alerts, 1)
		assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.SinkErrors.WithLabelValues("kafka")))
		assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.SinkErrors.WithLabelValues("telegram")))
	})
}
