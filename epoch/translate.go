// Package epoch converts GalNet in-universe dates into real calendar dates.
//
// GalNet stamps every article with a game date that runs a fixed number of
// years ahead of the real world. Dates at or past Threshold are shifted back
// by the offset; earlier years are taken as real dates.
package epoch

import (
	"fmt"
	"time"
)

const (
	// Threshold is the first in-universe year that carries the offset.
	Threshold = 3300
	// DefaultOffset is the number of years between game time and real time
	// (3307 is 2021).
	DefaultOffset = 1286
	// TokenLayout matches listing tokens such as "01-Jan-3307".
	TokenLayout = "2-Jan-2006"
)

// FormatError is returned when a date token does not match
// day-MonthAbbrev-Year.
type FormatError struct {
	Token string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed date token %q: %v", e.Token, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Translator applies the epoch-offset rule. The zero value uses Threshold
// and DefaultOffset.
type Translator struct {
	Threshold int
	Offset    int
}

// Translate converts token with the default threshold and offset.
func Translate(token string) (Date, error) {
	return Translator{}.Translate(token)
}

// Translate parses token and, when its year is at or past the threshold,
// subtracts the offset from the year. Month and day are kept; a 29 February
// that does not exist in the target year becomes 28 February.
func (tr Translator) Translate(token string) (Date, error) {
	parsed, err := time.Parse(TokenLayout, token)
	if err != nil {
		return Date{}, &FormatError{Token: token, Err: err}
	}

	date := DateOf(parsed)
	if date.Year < tr.threshold() {
		return date, nil
	}

	year := date.Year - tr.offset()
	day := date.Day
	if last := daysIn(date.Month, year); day > last {
		day = last
	}

	return Date{Year: year, Month: date.Month, Day: day}, nil
}

func (tr Translator) threshold() int {
	if tr.Threshold == 0 {
		return Threshold
	}
	return tr.Threshold
}

func (tr Translator) offset() int {
	if tr.Offset == 0 {
		return DefaultOffset
	}
	return tr.Offset
}

// daysIn returns the number of days in month m of year.
func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
