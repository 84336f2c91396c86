package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/abelzeko/danube-cote/internal/entities"
	"github.com/abelzeko/danube-cote/internal/export"
	"github.com/abelzeko/danube-cote/internal/integration/openai"
)

type fakeRepo struct {
	saved        []entities.MeasurementRecord
	latest       []entities.MeasurementRecord
	history      []entities.MeasurementRecord
	historyErr   error
	saveErr      error
	queried      string
	historyID    int
	historySince time.Time
}

func (r *fakeRepo) SaveRecords(records []entities.MeasurementRecord) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, records...)
	return nil
}

func (r *fakeRepo) GetLatestByStation(station string) (*entities.MeasurementRecord, error) {
	r.queried = station
	for i := range r.latest {
		if r.latest[i].Station == station {
			return &r.latest[i], nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) GetLatestAll() ([]entities.MeasurementRecord, error) {
	return r.latest, nil
}

func (r *fakeRepo) GetStationHistory(stationID int, since time.Time) ([]entities.MeasurementRecord, error) {
	r.historyID, r.historySince = stationID, since
	return r.history, r.historyErr
}

func (r *fakeRepo) GetLastUpdateTime() (time.Time, error) {
	return time.Time{}, nil
}

func (r *fakeRepo) Close() error { return nil }

// fakeSource serves tables per URL; URLs missing from the map fail
type fakeSource struct {
	kind   string
	tables map[string][]entities.Table
	calls  []string
}

func (s *fakeSource) Kind() string { return s.kind }

func (s *fakeSource) FetchTables(_ context.Context, url string) ([]entities.Table, error) {
	s.calls = append(s.calls, url)
	t, ok := s.tables[url]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return t, nil
}

type fakeExporter struct {
	envs []export.Envelope
	err  error
}

func (e *fakeExporter) Export(env export.Envelope) ([]string, error) {
	e.envs = append(e.envs, env)
	if e.err != nil {
		return nil, e.err
	}
	return []string{"cote_dunare.json"}, nil
}

type fakeNotifier struct {
	alerts []entities.Alert
	err    error
}

func (n *fakeNotifier) NotifyAlerts(_ context.Context, alerts []entities.Alert) error {
	n.alerts = alerts
	return n.err
}

type fakeAgent struct {
	resp *openai.AgentResponse
	err  error
}

func (a *fakeAgent) InterpretUserQuery(context.Context, string, []string) (*openai.AgentResponse, error) {
	return a.resp, a.err
}
