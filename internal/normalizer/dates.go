package normalizer

import (
	"strconv"
	"strings"
	"time"

	"github.com/abelzeko/danube-cote/internal/stations"
)

// monthAbbreviations maps Romanian short month names to months.
// Full names ("ianuarie", "noiembrie") match on their first three letters.
var monthAbbreviations = map[string]time.Month{
	"ian": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"mai": time.May,
	"iun": time.June,
	"iul": time.July,
	"aug": time.August,
	"sep": time.September,
	"oct": time.October,
	"noi": time.November,
	"dec": time.December,
}

// parsedDate is a date read from a table cell
type parsedDate struct {
	t       time.Time
	hasTime bool
}

// parseDate reads dates such as "28/01/2026", "28.01.2026 09:00", "28.01",
// "28 ian 2026" or "Miercuri, 28 ianuarie". A missing year is taken from ref,
// stepping back one year when the result would lie far in ref's future.
func parseDate(text string, ref time.Time, loc *time.Location) (parsedDate, bool) {
	text = lastStacked(text)
	if t, err := time.ParseInLocation("2006-01-02 15:04", text, loc); err == nil {
		return parsedDate{t: t, hasTime: true}, true
	}
	if t, err := time.ParseInLocation("2006-01-02", text, loc); err == nil {
		return parsedDate{t: t}, true
	}

	text = strings.ReplaceAll(text, "/", " ")
	tokens := strings.Fields(stations.Fold(text))

	var (
		day, year    int
		month        time.Month
		hour, minute int
		hasTime      bool
	)

	for _, tok := range tokens {
		if strings.Contains(tok, ":") {
			if h, m, ok := parseClock(tok); ok && !hasTime {
				hour, minute, hasTime = h, m, true
			}
			continue
		}
		n, err := strconv.Atoi(strings.Trim(tok, ",;()"))
		isNumber := err == nil

		switch {
		case day == 0:
			if isNumber && n >= 1 && n <= 31 {
				day = n
			}
		case month == 0:
			if isNumber {
				if n < 1 || n > 12 {
					return parsedDate{}, false
				}
				month = time.Month(n)
			} else if m, ok := lookupMonth(tok); ok {
				month = m
			} else {
				return parsedDate{}, false
			}
		case year == 0:
			if isNumber {
				year = n
				if year < 100 {
					year += 2000
				}
			}
		}
	}

	if day == 0 || month == 0 {
		return parsedDate{}, false
	}

	ref = ref.In(loc)
	inferYear := year == 0
	if inferYear {
		year = ref.Year()
	}

	t := time.Date(year, month, day, hour, minute, 0, 0, loc)
	if t.Day() != day || t.Month() != month {
		return parsedDate{}, false
	}
	if inferYear && t.Sub(ref) > 180*24*time.Hour {
		t = t.AddDate(-1, 0, 0)
	}
	return parsedDate{t: t, hasTime: hasTime}, true
}

func lookupMonth(word string) (time.Month, bool) {
	r := []rune(strings.Trim(word, ",;."))
	if len(r) < 3 {
		return 0, false
	}
	m, ok := monthAbbreviations[string(r[:3])]
	return m, ok
}

func parseClock(tok string) (int, int, bool) {
	parts := strings.SplitN(strings.Trim(tok, "(),;"), ":", 3)
	if len(parts) < 2 {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}
