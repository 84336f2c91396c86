package normalizer

import (
	"math"
	"strconv"
	"strings"
)

// lastStacked returns the last non-blank line of a cell. PDF extraction
// stacks several dated readings in one cell; the last one is the most recent.
func lastStacked(cell string) string {
	lines := stackedValues(cell)
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

// stackedValues splits a cell into its non-blank, trimmed lines
func stackedValues(cell string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(cell, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// cleanNumber keeps digits, decimal separators and a leading minus sign,
// with comma separators turned into dots: "2,0 °C" -> "2.0", "80 cm" -> "80".
func cleanNumber(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == ',':
			b.WriteByte('.')
		case (r == '-' || r == '−' || r == '–') && b.Len() == 0:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// parseFloatCell returns the cell's most recent value as a float, or nil
func parseFloatCell(cell string) *float64 {
	s := cleanNumber(lastStacked(cell))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseIntCell returns the cell's most recent value as an int, or nil.
// Integral decimals such as "189.0" are accepted.
func parseIntCell(cell string) *int {
	return parseIntText(lastStacked(cell))
}

func parseIntText(text string) *int {
	s := cleanNumber(text)
	if s == "" {
		return nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		return &v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return nil
	}
	v := int(f)
	return &v
}

// cellText returns the trimmed text at index i, or "" when the column is
// not mapped or the row is too short
func cellText(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
