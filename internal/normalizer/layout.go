package normalizer

import (
	"strings"

	"github.com/abelzeko/danube-cote/internal/entities"
	"github.com/abelzeko/danube-cote/internal/stations"
)

// none marks a field a layout does not carry
const none = -1

// columns pins which cell index holds which field for one layout
type columns struct {
	station       int
	km            int
	level         int
	levelSeries   int // first of the daily level columns, pdf-cote only
	delta         int
	waterTemp     int
	airTemp       int
	pressure      int
	precipitation int
	date          int
	forecasts     [5]int // +24h, +48h, +72h, +96h, +120h
	forecastDate  int
}

var layoutColumns = map[entities.Layout]columns{
	// Localitate | Km | Cota | Variatia | Temperatura | Data | Tendinta 24h..120h | Data prognoze
	entities.LayoutHTMLCote: {
		station: 0, km: 1, level: 2, levelSeries: none, delta: 3, waterTemp: 4,
		airTemp: none, pressure: none, precipitation: none,
		date: 5, forecasts: [5]int{6, 7, 8, 9, 10}, forecastDate: 11,
	},
	// Localitate | km | 25.01 | 26.01 | 27.01 | 28.01
	entities.LayoutPDFCote: {
		station: 0, km: 1, level: none, levelSeries: 2, delta: none, waterTemp: none,
		airTemp: none, pressure: none, precipitation: none,
		date: none, forecasts: [5]int{none, none, none, none, none}, forecastDate: none,
	},
	// Localitati | Temp min atmosferica | Temp apei | Presiune atm | Precipitatii
	entities.LayoutPDFMeteo: {
		station: 0, km: none, level: none, levelSeries: none, delta: none, waterTemp: 2,
		airTemp: 1, pressure: 3, precipitation: 4,
		date: none, forecasts: [5]int{none, none, none, none, none}, forecastDate: none,
	},
}

// LayoutRule selects a layout when every required substring occurs in a table.
// Heading rules also recognise a single header row, which the PDF source uses
// to split a page into tables.
type LayoutRule struct {
	Require []string
	Layout  entities.Layout
	Heading bool
}

// DefaultLayoutRules are evaluated in order; the first match wins.
// The meteo table mentions water temperature too, so it is checked first.
var DefaultLayoutRules = []LayoutRule{
	{Require: []string{"temperatura", "atmosferic"}, Layout: entities.LayoutPDFMeteo, Heading: true},
	{Require: []string{"variat"}, Layout: entities.LayoutHTMLCote, Heading: true},
	{Require: []string{"localitate", "km"}, Layout: entities.LayoutPDFCote, Heading: true},
	{Require: []string{"galati"}, Layout: entities.LayoutHTMLCote},
}

// LayoutDetector picks the column schema of extracted tables
type LayoutDetector struct {
	rules []LayoutRule
}

// NewLayoutDetector creates a detector, using DefaultLayoutRules when none are given
func NewLayoutDetector(rules ...LayoutRule) *LayoutDetector {
	if len(rules) == 0 {
		rules = DefaultLayoutRules
	}
	folded := make([]LayoutRule, len(rules))
	for i, r := range rules {
		req := make([]string, len(r.Require))
		for j, s := range r.Require {
			req[j] = stations.Fold(s)
		}
		folded[i] = LayoutRule{Require: req, Layout: r.Layout, Heading: r.Heading}
	}
	return &LayoutDetector{rules: folded}
}

// Detect returns the layout of a table, looking at its header and rows
func (d *LayoutDetector) Detect(t entities.Table) (entities.Layout, bool) {
	var b strings.Builder
	b.WriteString(strings.Join(t.Header, " "))
	for _, row := range t.Rows {
		b.WriteByte(' ')
		b.WriteString(strings.Join(row, " "))
	}
	return d.match(b.String(), false)
}

// DetectHeading reports whether a single row is a table header and which layout it opens
func (d *LayoutDetector) DetectHeading(row entities.RawRow) (entities.Layout, bool) {
	return d.match(strings.Join(row, " "), true)
}

func (d *LayoutDetector) match(text string, headingOnly bool) (entities.Layout, bool) {
	text = stations.Fold(text)
	for _, r := range d.rules {
		if headingOnly && !r.Heading {
			continue
		}
		if containsAll(text, r.Require) {
			return r.Layout, true
		}
	}
	return entities.LayoutUndefined, false
}

func containsAll(text string, subs []string) bool {
	for _, s := range subs {
		if !strings.Contains(text, s) {
			return false
		}
	}
	return len(subs) > 0
}
