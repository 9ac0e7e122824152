package textutil

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"
)

// fullwidthDigits is U+FF10 (０) through U+FF19 (９).
var fullwidthDigits = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0xff10, Hi: 0xff19, Stride: 1}},
}

// Digits folds full-width digits into their ASCII form, every other rune is
// left alone (full-width katakana and symbols in particular).
func Digits(s string) string {
	t := runes.If(runes.In(fullwidthDigits), width.Fold, nil)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize collapses every run of whitespace (ideographic space U+3000
// included) into a single ASCII space, trims the ends and folds full-width
// digits.
func Normalize(s string) string {
	return Digits(strings.Join(strings.Fields(s), " "))
}

// Compact removes all whitespace from s.
func Compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

var (
	intRegex   = regexp.MustCompile(`-?\d+`)
	floatRegex = regexp.MustCompile(`-?\d+(?:\.\d+)?|-?\.\d+`)
)

// ParseInt parses s as a base 10 integer after normalizing it, commas used
// as thousands separators are ignored.
func ParseInt(s string) (int, bool) {
	s = strings.ReplaceAll(Normalize(s), ",", "")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseFloat parses s as a decimal number after normalizing it.
func ParseFloat(s string) (float64, bool) {
	s = Normalize(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FirstInt returns the first integer found anywhere in s.
func FirstInt(s string) (int, bool) {
	m := intRegex.FindString(Digits(s))
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FirstFloat returns the first decimal number found anywhere in s.
func FirstFloat(s string) (float64, bool) {
	m := floatRegex.FindString(Digits(s))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
