// Package coerce turns the raw string fields of a loan record into typed values.
//
// Each coercion comes in two forms: a scalar function over one string, and a
// column function mapping an Arrow utf8 array to the typed array. Column
// functions keep nulls as nulls and return an already-typed column unchanged,
// so running them twice is harmless.
package coerce

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	Term36 uint8 = 36
	Term60 uint8 = 60

	term36Months = "36 months"
	term60Months = "60 months"

	lessThanOneYear = "< 1 year"
)

// Month-level date layouts seen in the loan files. Two-digit years from 69 on
// are read as 19xx, the rest as 20xx.
const (
	LayoutYearMonth     = "06-Jan"
	LayoutMonthYear     = "Jan-06"
	LayoutMonthLongYear = "Jan-2006"

	// yearMonthWidth is the length of a zero-padded LayoutYearMonth value.
	yearMonthWidth = 6
)

var digitsPattern = regexp.MustCompile(`\d+`)

// Rate parses a percentage string such as "16.37%" into 16.37.
func Rate(s string) (float32, error) {
	trimmed := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), "%"))
	rate, err := strconv.ParseFloat(trimmed, 32)
	if err != nil {
		return 0, &ParseError{Value: s, Err: err}
	}
	return float32(rate), nil
}

// Term maps "36 months" to 36 and every other value to 60.
func Term(s string) uint8 {
	if strings.TrimSpace(s) == term36Months {
		return Term36
	}
	return Term60
}

// TermStrict maps "36 months" to 36 and "60 months" to 60, rejecting anything else.
func TermStrict(s string) (uint8, error) {
	switch strings.TrimSpace(s) {
	case term36Months:
		return Term36, nil
	case term60Months:
		return Term60, nil
	default:
		return 0, &ParseError{Value: s}
	}
}

// EmploymentLength reads "< 1 year" as 0 and otherwise the first run of digits,
// so "10+ years" is 10. It reports false when s holds no digits.
func EmploymentLength(s string) (float32, bool) {
	if s == lessThanOneYear {
		return 0, true
	}
	digits := digitsPattern.FindString(s)
	if digits == "" {
		return 0, false
	}
	years, err := strconv.ParseFloat(digits, 32)
	if err != nil {
		return 0, false
	}
	return float32(years), true
}

// Date parses a month-level date into the first day of that month, UTC.
//
// Values starting with a digit are read as "YY-Mon" after left-padding with
// zeros to six characters, so "5-Dec" is December 2005. Values starting with a
// letter are read as "Mon-YY", then as "Mon-YYYY".
func Date(s string) (time.Time, error) {
	value := strings.TrimSpace(s)
	first, _ := utf8.DecodeRuneInString(value)

	var layouts []string
	switch {
	case value == "":
		return time.Time{}, &DateParseError{Value: s}
	case unicode.IsDigit(first):
		value = padLeft(value, yearMonthWidth, '0')
		layouts = []string{LayoutYearMonth}
	case unicode.IsLetter(first):
		layouts = []string{LayoutMonthYear, LayoutMonthLongYear}
	default:
		return time.Time{}, &DateParseError{Value: s}
	}

	for _, layout := range layouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, &DateParseError{Value: s, Layouts: layouts}
}

func padLeft(s string, width int, pad byte) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(string(pad), width-len(s)) + s
}
