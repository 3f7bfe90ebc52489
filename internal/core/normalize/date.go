package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"reconciliation-service/internal/domain"

	"cloud.google.com/go/civil"
	"github.com/xuri/excelize/v2"
)

var (
	dayFirstRegex = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})(?:\s|T|$)`)
	isoDateRegex  = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:\s|T|$)`)
	serialRegex   = regexp.MustCompile(`^\d+(?:[.,]\d+)?$`)
)

// layouts tried after the explicit day-first and ISO patterns.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02.01.2006",
	"2.1.2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02-Jan-2006",
	"02-Jan-06",
	"20060102",
}

// Date normalizes a raw cell into a calendar date; time of day is dropped.
// The second result is false when no date could be recognized.
func Date(c domain.Cell) (civil.Date, bool) {
	switch c.Kind {
	case domain.CellEmpty:
		return civil.Date{}, false
	case domain.CellDate:
		if c.Time.IsZero() {
			return civil.Date{}, false
		}
		return civil.DateOf(c.Time), true
	case domain.CellNumber:
		return SerialDate(c.Number)
	}
	return DateText(c.Text)
}

// DateText parses dd/mm/yyyy, dd-mm-yy, ISO dates, a handful of common
// layouts and finally Excel serial numbers written as text.
func DateText(raw string) (civil.Date, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return civil.Date{}, false
	}

	if m := dayFirstRegex.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		return buildDate(year, month, day)
	}

	if m := isoDateRegex.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return buildDate(year, month, day)
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := civil.DateOf(t)
			if d.Year > 1900 && d.Year < 2100 {
				return d, true
			}
		}
	}

	if serialRegex.MatchString(s) {
		if f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
			return SerialDate(f)
		}
	}

	return civil.Date{}, false
}

// SerialDate converts an Excel serial date (1900 date system).
func SerialDate(serial float64) (civil.Date, bool) {
	if serial <= 0 {
		return civil.Date{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return civil.Date{}, false
	}
	d := civil.DateOf(t)
	if d.Year <= 1900 || d.Year >= 2100 {
		return civil.Date{}, false
	}
	return d, true
}

// buildDate validates ranges and rejects dates time.Date would silently
// overflow, such as 29/02 on a non-leap year.
func buildDate(year, month, day int) (civil.Date, bool) {
	if day < 1 || day > 31 || month < 1 || month > 12 || year <= 1900 || year >= 2100 {
		return civil.Date{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return civil.Date{}, false
	}
	return civil.DateOf(t), true
}
