// Package stations holds the immutable catalog of Danube ports and resolves
// the many spellings used by the upstream sources to a canonical station.
package stations

import (
	"strings"
	"unicode"

	"github.com/abelzeko/danube-cote/internal/entities"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// minReverseMatch is the shortest folded text allowed to match as a
// fragment of a catalog name, so stray cells like "a" do not resolve.
const minReverseMatch = 3

// Catalog maps station name variants to canonical stations.
// It is safe for concurrent reads and never changes after New.
type Catalog struct {
	stations []entities.Station
	keys     [][]string // folded name + variants, per station
}

// New builds a catalog. Order matters: the first station matching a name wins.
func New(stations []entities.Station) *Catalog {
	c := &Catalog{
		stations: make([]entities.Station, len(stations)),
		keys:     make([][]string, len(stations)),
	}
	copy(c.stations, stations)

	for i, s := range c.stations {
		s.Variants = append([]string(nil), s.Variants...)
		c.stations[i] = s

		keys := []string{Fold(s.Name)}
		for _, v := range s.Variants {
			if k := Fold(v); k != "" {
				keys = append(keys, k)
			}
		}
		c.keys[i] = keys
	}
	return c
}

// Resolve finds the station named by raw text. Matching is case and diacritic
// insensitive and tolerates truncation: either the text contains a catalog
// name or a catalog name contains the text.
func (c *Catalog) Resolve(raw string) (entities.Station, bool) {
	text := Fold(raw)
	if text == "" {
		return entities.Station{}, false
	}
	allowReverse := len([]rune(text)) >= minReverseMatch

	for i, keys := range c.keys {
		for _, key := range keys {
			if strings.Contains(text, key) || (allowReverse && strings.Contains(key, text)) {
				return c.stations[i], true
			}
		}
	}
	return entities.Station{}, false
}

// ByID returns the station with the given identifier
func (c *Catalog) ByID(id int) (entities.Station, bool) {
	for _, s := range c.stations {
		if s.ID == id {
			return s, true
		}
	}
	return entities.Station{}, false
}

// Stations returns a copy of the catalog in order
func (c *Catalog) Stations() []entities.Station {
	out := make([]entities.Station, len(c.stations))
	copy(out, c.stations)
	return out
}

// Fold lower-cases text, strips diacritics and collapses punctuation and
// whitespace, so "Galați", "GALATI" and "galați " compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.Map(func(r rune) rune {
		switch r {
		case '.', '-', '_', ',', ' ':
			return ' '
		}
		return unicode.ToLower(r)
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}
