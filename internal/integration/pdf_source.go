package integration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/abelzeko/danube-cote/internal/entities"
	"github.com/dslipak/pdf"
	"go.uber.org/zap"
)

// DefaultPDFURL is the daily hydrological bulletin published by AFDJ
const DefaultPDFURL = "https://www.afdj.ro/sites/default/files/bhcote.pdf"

const (
	// rowTolerance is how far apart two baselines may be and still form one row
	rowTolerance = 2.0
	// cellGap is the horizontal gap, in font sizes, that starts a new cell
	cellGap = 1.2
	// wordGap is the gap, in font sizes, that inserts a space inside a cell
	wordGap = 0.2
	// extractTimeout bounds text extraction of one bulletin
	extractTimeout = 30 * time.Second
)

// HeadingDetector recognises the header row that opens a table
type HeadingDetector interface {
	DetectHeading(row entities.RawRow) (entities.Layout, bool)
}

// PDFSource reads level and meteo tables from the AFDJ PDF bulletin
type PDFSource struct {
	client         *http.Client
	headings       HeadingDetector
	logger         *zap.SugaredLogger
	extractTimeout time.Duration
}

// NewPDFSource creates a new PDF bulletin source
func NewPDFSource(client *http.Client, headings HeadingDetector, logger *zap.SugaredLogger) *PDFSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &PDFSource{client: client, headings: headings, logger: logger, extractTimeout: extractTimeout}
}

// Kind names the source in logs and metrics
func (s *PDFSource) Kind() string {
	return "pdf"
}

// FetchTables downloads the bulletin and splits its pages into tables
func (s *PDFSource) FetchTables(ctx context.Context, url string) ([]entities.Table, error) {
	s.logger.Infof("Downloading PDF bulletin from %s", url)
	body, err := fetch(ctx, s.client, url)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.extractTimeout)
	defer cancel()
	rows, err := ReadPDFRows(ctx, body)
	if err != nil {
		return nil, err
	}
	tables := SplitTables(rows, s.headings, entities.Source{Name: SourceName, URL: url})
	s.logger.Infof("Read %d rows and %d tables from PDF bulletin", len(rows), len(tables))
	return tables, nil
}

// ReadPDFRows returns the text rows of every page, top to bottom. A
// malformed bulletin is reported as an error, and extraction is abandoned
// when ctx is done.
func ReadPDFRows(ctx context.Context, data []byte) ([]entities.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	type result struct {
		rows []entities.RawRow
		err  error
	}
	done := make(chan result, 1)
	go func() {
		rows, err := readPages(data)
		done <- result{rows: rows, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to read PDF: %w", ctx.Err())
	case r := <-done:
		return r.rows, r.err
	}
}

// readPages extracts every page. The PDF library panics on content it
// cannot interpret, so panics are turned into errors here.
func readPages(data []byte) (rows []entities.RawRow, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("failed to read PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		if err := checkPageContent(p); err != nil {
			return nil, fmt.Errorf("failed to read PDF page %d: %w", i, err)
		}
		rows = append(rows, GroupRows(p.Content().Text)...)
	}
	return rows, nil
}

// checkPageContent scans the content streams of a page before they are
// interpreted. The PDF library loops forever on an unterminated string.
func checkPageContent(p pdf.Page) error {
	contents := p.V.Key("Contents")
	streams := []pdf.Value{contents}
	if contents.Len() > 0 {
		streams = streams[:0]
		for i := 0; i < contents.Len(); i++ {
			streams = append(streams, contents.Index(i))
		}
	}

	for _, strm := range streams {
		if strm.Kind() != pdf.Stream {
			continue
		}
		rc := strm.Reader()
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("failed to read content stream: %w", err)
		}
		if err := scanContent(data); err != nil {
			return err
		}
	}
	return nil
}

var (
	errUnterminatedString    = errors.New("unterminated string in content stream")
	errUnterminatedHexString = errors.New("unterminated hex string in content stream")
)

// scanContent checks that every literal and hex string in a content stream
// is closed, reading comments and escapes the way the content lexer does.
func scanContent(data []byte) error {
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '%':
			for i < len(data) && data[i] != '\r' && data[i] != '\n' {
				i++
			}
		case '(':
			depth := 1
			for i++; i < len(data) && depth > 0; i++ {
				switch data[i] {
				case '\\':
					i++
				case '(':
					depth++
				case ')':
					depth--
				}
			}
			if depth > 0 {
				return errUnterminatedString
			}
			i--
		case '<':
			if i+1 < len(data) && data[i+1] == '<' {
				i++
				continue
			}
			end := bytes.IndexByte(data[i+1:], '>')
			if end < 0 {
				return errUnterminatedHexString
			}
			i += end + 1
		}
	}
	return nil
}

// GroupRows groups positioned text fragments into rows by baseline and
// into cells by horizontal gaps. PDF coordinates grow upwards, so rows are
// returned in descending Y order. Fragments are sorted by exact Y first,
// then clustered into rows while they stay within rowTolerance of the
// row's first baseline.
func GroupRows(texts []pdf.Text) []entities.RawRow {
	frags := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t.S) != "" {
			frags = append(frags, t)
		}
	}
	sort.SliceStable(frags, func(i, j int) bool {
		if frags[i].Y != frags[j].Y {
			return frags[i].Y > frags[j].Y
		}
		return frags[i].X < frags[j].X
	})

	var (
		rows []entities.RawRow
		line []pdf.Text
	)
	for _, f := range frags {
		if len(line) > 0 && math.Abs(line[0].Y-f.Y) > rowTolerance {
			rows = append(rows, splitCells(line))
			line = nil
		}
		line = append(line, f)
	}
	if len(line) > 0 {
		rows = append(rows, splitCells(line))
	}
	return rows
}

func splitCells(line []pdf.Text) entities.RawRow {
	sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })

	var (
		row  entities.RawRow
		cell strings.Builder
		end  float64
	)
	for i, f := range line {
		size := f.FontSize
		if size <= 0 {
			size = 10
		}
		if i > 0 {
			gap := f.X - end
			switch {
			case gap > cellGap*size:
				row = append(row, strings.TrimSpace(cell.String()))
				cell.Reset()
			case gap > wordGap*size:
				cell.WriteByte(' ')
			}
		}
		cell.WriteString(f.S)
		end = f.X + f.W
	}
	return append(row, strings.TrimSpace(cell.String()))
}

// SplitTables starts a new table at every heading row. Rows before the
// first heading are page titles and are dropped.
func SplitTables(rows []entities.RawRow, headings HeadingDetector, src entities.Source) []entities.Table {
	var (
		tables  []entities.Table
		current *entities.Table
	)
	for _, row := range rows {
		if _, ok := headings.DetectHeading(row); ok {
			if current != nil && len(current.Rows) > 0 {
				tables = append(tables, *current)
			}
			current = &entities.Table{Header: row, Source: src}
			continue
		}
		if current != nil {
			current.Rows = append(current.Rows, row)
		}
	}
	if current != nil && len(current.Rows) > 0 {
		tables = append(tables, *current)
	}
	return tables
}
