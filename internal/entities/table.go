package entities

// Layout identifies the column schema of a source table
type Layout string

const (
	LayoutHTMLCote  Layout = "html-cote"
	LayoutPDFCote   Layout = "pdf-cote"
	LayoutPDFMeteo  Layout = "pdf-meteo"
	LayoutUndefined Layout = ""
)

// RawRow is one table row as extracted text cells. Cells may contain
// newline-stacked values when the PDF extractor merges several readings.
type RawRow []string

// Source describes where a table was fetched from
type Source struct {
	Name string // Short site name, e.g. "AFDJ"
	URL  string
}

// Table is a layout-agnostic table handed over by an HTML or PDF collaborator
type Table struct {
	Header RawRow
	Rows   []RawRow
	Source Source
}
