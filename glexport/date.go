package glexport

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DateSeparator joins the fields of displayed dates.
const DateSeparator = "·"

var rxDate = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)

// Date is a calendar date parsed by [ParseDate].
type Date struct {
	Month, Day, Year int
	// Unix is the date at 12:00 UTC in seconds since the epoch.
	Unix int64
	// Display is the date as engraved, "mm·dd·yyyy".
	Display string
}

// ParseDate parses a "mm-dd-yyyy" date. Months must be in 1..12, days in 1..31
// and years in 1..3000. Days past the end of a month roll over to the next month
// as with [time.Date].
func ParseDate(s string) (Date, error) {
	m := rxDate.FindStringSubmatch(s)
	if m == nil {
		return Date{}, fmt.Errorf("%w: %q does not match mm-dd-yyyy", ErrInvalidDate, s)
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	switch {
	case month < 1 || month > 12:
		return Date{}, fmt.Errorf("%w: month %d out of range", ErrInvalidDate, month)
	case day < 1 || day > 31:
		return Date{}, fmt.Errorf("%w: day %d out of range", ErrInvalidDate, day)
	case year < 1 || year > 3000:
		return Date{}, fmt.Errorf("%w: year %d out of range", ErrInvalidDate, year)
	}
	t := time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)
	return Date{
		Month:   month,
		Day:     day,
		Year:    year,
		Unix:    t.Unix(),
		Display: fmt.Sprintf("%02d%s%02d%s%s", month, DateSeparator, day, DateSeparator, m[3]),
	}, nil
}

// String returns the date in "mm-dd-yyyy" form.
func (d Date) String() string {
	return fmt.Sprintf("%02d-%02d-%04d", d.Month, d.Day, d.Year)
}
