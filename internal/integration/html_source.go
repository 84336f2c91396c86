package integration

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/abelzeko/danube-cote/internal/entities"
	"go.uber.org/zap"
)

// drupalFields are the view field classes of the AFDJ levels page, in
// html-cote column order
var drupalFields = []string{
	"views-field-field-localitatea",
	"views-field-field-km",
	"views-field-field-cota",
	"views-field-field-variatia",
	"views-field-field-temperatura-masurata",
	"views-field-field-field-data-actualiz-cote",
	"views-field-field-tendinta-24h",
	"views-field-field-tendinta-48h",
	"views-field-field-tendinta-72h",
	"views-field-field-tendinta-96h",
	"views-field-field-tendinta-120h",
	"views-field-field-data-actualizare-prognoze",
}

// drupalHeader labels the columns read from drupalFields
var drupalHeader = entities.RawRow{
	"Localitatea", "Km", "Cota", "Variația", "Temperatura", "Data",
	"Tendința 24h", "Tendința 48h", "Tendința 72h", "Tendința 96h", "Tendința 120h", "Data prognoze",
}

// HTMLSource scrapes water level tables from HTML pages
type HTMLSource struct {
	client *http.Client
	logger *zap.SugaredLogger
}

// NewHTMLSource creates a new HTML table source
func NewHTMLSource(client *http.Client, logger *zap.SugaredLogger) *HTMLSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTMLSource{client: client, logger: logger}
}

// Kind names the source in logs and metrics
func (s *HTMLSource) Kind() string {
	return "html"
}

// FetchTables downloads a page and returns every table found on it
func (s *HTMLSource) FetchTables(ctx context.Context, url string) ([]entities.Table, error) {
	s.logger.Infof("Sending HTTP request to %s", url)
	body, err := fetch(ctx, s.client, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse the webpage: %w", err)
	}

	tables := ExtractTables(doc, entities.Source{Name: SourceName, URL: url})
	s.logger.Infof("Extracted %d tables from %s", len(tables), url)
	return tables, nil
}

// ExtractTables reads the AFDJ drupal view when present, and every other
// <table> of the document as a generic table.
func ExtractTables(doc *goquery.Document, src entities.Source) []entities.Table {
	var tables []entities.Table

	if view := extractDrupalView(doc); len(view) > 0 {
		tables = append(tables, entities.Table{Header: drupalHeader, Rows: view, Source: src})
	}

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		if table.Find("td." + drupalFields[0]).Length() > 0 {
			return
		}
		t := entities.Table{Source: src}
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			if tr.Closest("table").Get(0) != table.Get(0) {
				return
			}
			tds := tr.ChildrenFiltered("td")
			if ths := tr.ChildrenFiltered("th"); ths.Length() > 0 && tds.Length() == 0 {
				if t.Header == nil {
					t.Header = cellTexts(ths)
				}
				return
			}
			if tds.Length() > 0 {
				t.Rows = append(t.Rows, cellTexts(tds))
			}
		})
		if len(t.Rows) > 0 {
			tables = append(tables, t)
		}
	})

	return tables
}

// extractDrupalView reads the rows that carry the station field class,
// placing each field at its html-cote column
func extractDrupalView(doc *goquery.Document) []entities.RawRow {
	var rows []entities.RawRow
	doc.Find("td." + drupalFields[0]).Each(func(_ int, station *goquery.Selection) {
		tr := station.Closest("tr")
		row := make(entities.RawRow, len(drupalFields))
		for i, class := range drupalFields {
			row[i] = cellText(tr.Find("td." + class).First())
		}
		rows = append(rows, row)
	})
	return rows
}

func cellTexts(cells *goquery.Selection) entities.RawRow {
	row := make(entities.RawRow, 0, cells.Length())
	cells.Each(func(_ int, c *goquery.Selection) {
		row = append(row, cellText(c))
	})
	return row
}

// cellText keeps line breaks so stacked values survive extraction
func cellText(c *goquery.Selection) string {
	if c.Length() == 0 {
		return ""
	}
	c.Find("br").ReplaceWithHtml("\n")
	return strings.TrimSpace(c.Text())
}
