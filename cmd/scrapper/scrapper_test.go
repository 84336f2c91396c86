package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/abelzeko/danube-cote/internal/config"
	"github.com/abelzeko/danube-cote/internal/export"
	"github.com/abelzeko/danube-cote/internal/repository"
	"github.com/abelzeko/danube-cote/internal/usecases"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const levelsPage = `
<html><body>
<table class="views-table">
  <tbody>
    <tr>
      <td class="views-field views-field-field-localitatea">Sulina</td>
      <td class="views-field views-field-field-km">0</td>
      <td class="views-field views-field-field-cota">80</td>
      <td class="views-field views-field-field-variatia">-12</td>
      <td class="views-field views-field-field-temperatura-masurata">2,0</td>
      <td class="views-field views-field-field-field-data-actualiz-cote">28/01/2026</td>
    </tr>
    <tr>
      <td class="views-field views-field-field-localitatea">Galați</td>
      <td class="views-field views-field-field-km">150</td>
      <td class="views-field views-field-field-cota">189</td>
      <td class="views-field views-field-field-variatia">-6</td>
      <td class="views-field views-field-field-temperatura-masurata">2,1</td>
      <td class="views-field views-field-field-field-data-actualiz-cote">28/01/2026</td>
    </tr>
  </tbody>
</table>
</body></html>`

// isolateEnv points every setting at test values so the host environment
// and any .env file in the working directory cannot leak in
func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	for _, key := range []string{
		"API_URL", "API_KEY", "KAFKA_BROKERS", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
		"OPENAI_API_KEY", "PUSHGATEWAY_URL", "PDF_URL", "HTML_URLS", "SOURCE_MODE",
		"EXPORT_FORMATS", "OUTPUT_DIR",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DB_PATH", filepath.Join(dir, "cote.db"))
	return dir
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantSource  string
		wantOut     string
		wantFormats []export.Format
		wantErr     bool
	}{
		{
			name:        "defaults keep config",
			args:        nil,
			wantSource:  config.SourceAll,
			wantOut:     ".",
			wantFormats: export.AllFormats,
		},
		{
			name:        "overrides",
			args:        []string{"-source", "pdf", "-export", "json,csv", "-out", "exports"},
			wantSource:  config.SourcePDF,
			wantOut:     "exports",
			wantFormats: []export.Format{export.FormatJSON, export.FormatCSV},
		},
		{name: "invalid source", args: []string{"-source", "ftp"}, wantErr: true},
		{name: "invalid format", args: []string{"-export", "xml"}, wantErr: true},
		{name: "unknown flag", args: []string{"-verbose"}, wantErr: true},
		{name: "stray argument", args: []string{"now"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{SourceMode: config.SourceAll, OutputDir: ".", ExportFormats: export.AllFormats}

			err := applyFlags(cfg, tc.args)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantSource, cfg.SourceMode)
			assert.Equal(t, tc.wantOut, cfg.OutputDir)
			assert.Equal(t, tc.wantFormats, cfg.ExportFormats)
		})
	}
}

func TestBuildSources(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	tests := []struct {
		mode  string
		kinds []string
	}{
		{config.SourceHTML, []string{"html"}},
		{config.SourcePDF, []string{"pdf"}},
		{config.SourceAll, []string{"html", "pdf"}},
	}

	for _, tc := range tests {
		t.Run(tc.mode, func(t *testing.T) {
			cfg := &config.Config{
				SourceMode: tc.mode,
				HTMLURLs:   []string{"https://a.example", "https://b.example"},
				PDFURL:     "https://c.example/bhcote.pdf",
			}

			targets := buildSources(cfg, http.DefaultClient, logger)

			var kinds []string
			for _, target := range targets {
				kinds = append(kinds, target.Source.Kind())
				if target.Source.Kind() == "html" {
					assert.Equal(t, cfg.HTMLURLs, target.URLs)
				} else {
					assert.Equal(t, []string{cfg.PDFURL}, target.URLs)
				}
			}
			assert.Equal(t, tc.kinds, kinds)
		})
	}
}

func TestRun_ScrapesStoresAndExports(t *testing.T) {
	dir := isolateEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, levelsPage)
	}))
	defer srv.Close()
	t.Setenv("HTML_URLS", srv.URL)

	out := filepath.Join(dir, "out")
	err := run(context.Background(), []string{"-source", "html", "-export", "json", "-out", out})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(out, export.BaseName+".json"))
	require.NoError(t, err)

	var env struct {
		Source string `json:"source"`
		URL    string `json:"url"`
		Count  int    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "AFDJ", env.Source)
	assert.Equal(t, srv.URL, env.URL)
	assert.Equal(t, 2, env.Count)

	_, err = os.Stat(filepath.Join(out, export.BaseName+".csv"))
	assert.True(t, os.IsNotExist(err), "only the requested format is written")

	repo, err := repository.NewSQLiteCoteRepository(filepath.Join(dir, "cote.db"), zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer repo.Close()

	latest, err := repo.GetLatestAll()
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "Sulina", latest[0].Station)
	assert.Equal(t, "Galați", latest[1].Station)
}

func TestRun_NoSourceAvailable(t *testing.T) {
	isolateEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	t.Setenv("HTML_URLS", srv.URL)

	err := run(context.Background(), []string{"-source", "html", "-export", "json"})
	assert.ErrorIs(t, err, usecases.ErrNoRecords)
}

func TestRun_InvalidConfig(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SOURCE_MODE", "ftp")

	err := run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}
