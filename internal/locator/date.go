package locator

import (
	"regexp"
	"strconv"
	"time"
)

// filenameDate matches D{1,2}<sep>M{1,2}, optionally followed by <sep>Y{2,4},
// where sep is one of ". , -".
var filenameDate = regexp.MustCompile(`(\d{1,2})[.,-](\d{1,2})(?:[.,-](\d{2,4}))?`)

// ExtractDate finds the first date embedded in a file name. A missing year
// defaults to now's year and two-digit years are taken as 20YY. When no date
// is present or the date does not exist on the calendar it returns the zero
// time, which sorts before every real date, and false.
func ExtractDate(name string, now time.Time) (time.Time, bool) {
	m := filenameDate.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year := now.Year()
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
	}
	if year < 100 {
		year += 2000
	}

	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (31.02 → 03.03); reject instead.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
