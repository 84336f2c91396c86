// Package cotesapi inserts scraped records into the remote cote table over REST
package cotesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/abelzeko/danube-cote/internal/entities"
	"go.uber.org/zap"
)

// Row is one element of the insert payload
type Row struct {
	StationID   int      `json:"station_id"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	WaterLevel  *int     `json:"water_level"`
	Temperature *float64 `json:"temperature"`
	Trend       string   `json:"trend"`
}

// NewRow converts a record into its payload form
func NewRow(rec entities.MeasurementRecord) Row {
	return Row{
		StationID:   rec.StationID,
		Date:        rec.Date(),
		Time:        rec.Clock(),
		WaterLevel:  rec.WaterLevel,
		Temperature: rec.WaterTemp,
		Trend:       string(rec.Trend),
	}
}

// Client posts records to <baseURL>/cote
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.SugaredLogger
}

// NewClient creates a new REST insert client
func NewClient(baseURL, apiKey string, httpClient *http.Client, logger *zap.SugaredLogger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, http: httpClient, logger: logger}
}

// Insert posts all records in one request. Any non-2xx answer is an error.
func (c *Client) Insert(ctx context.Context, records []entities.MeasurementRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]Row, len(records))
	for i, rec := range records {
		rows[i] = NewRow(rec)
	}
	body, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode insert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cote", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build insert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to insert records: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("insert rejected: %d %s: %s", res.StatusCode, http.StatusText(res.StatusCode), bytes.TrimSpace(msg))
	}

	c.logger.Infof("Inserted %d records into %s/cote", len(rows), c.baseURL)
	return nil
}
