package utils

import (
	"fmt"
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30).
var IST *time.Location

func init() {
	var err error
	IST, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback: create fixed zone if tz database is not available
		IST = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// NowIST returns the current time in IST.
func NowIST() time.Time {
	return time.Now().In(IST)
}

// ToIST converts a time.Time to IST.
func ToIST(t time.Time) time.Time {
	return t.In(IST)
}

// StartOfDayIST truncates t to midnight IST of the same calendar day.
func StartOfDayIST(t time.Time) time.Time {
	d := t.In(IST)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, IST)
}

// MandiOpenTime returns the start of the regular auction session (6:00 AM IST).
func MandiOpenTime(date time.Time) time.Time {
	d := date.In(IST)
	return time.Date(d.Year(), d.Month(), d.Day(), 6, 0, 0, 0, IST)
}

// MandiCloseTime returns the end of the regular auction session (6:00 PM IST).
func MandiCloseTime(date time.Time) time.Time {
	d := date.In(IST)
	return time.Date(d.Year(), d.Month(), d.Day(), 18, 0, 0, 0, IST)
}

// IsMandiHoliday checks if the given date is a national holiday on which
// regulated markets do not hold auctions.
func IsMandiHoliday(t time.Time) bool {
	_, ok := mandiHolidays[t.In(IST).Format("2006-01-02")]
	return ok
}

// National holidays observed by APMC markets (update annually).
var mandiHolidays = map[string]string{
	"2026-01-26": "Republic Day",
	"2026-08-15": "Independence Day",
	"2026-10-02": "Mahatma Gandhi Jayanti",
	"2026-11-09": "Diwali",
}

// MandiStatusAt returns the market session status at the given time.
// Markets auction every day except Sunday and national holidays.
func MandiStatusAt(t time.Time) string {
	t = t.In(IST)

	if t.Weekday() == time.Sunday {
		return "CLOSED (Sunday)"
	}
	if holiday, ok := mandiHolidays[t.Format("2006-01-02")]; ok {
		return "CLOSED (" + holiday + ")"
	}

	switch {
	case t.Before(MandiOpenTime(t)):
		return "PRE-AUCTION"
	case t.Before(MandiCloseTime(t)):
		return "OPEN"
	default:
		return "CLOSED"
	}
}

// ParseDateIST parses a date string in "2006-01-02" format and returns it in IST.
func ParseDateIST(dateStr string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", dateStr, IST)
}

// ParseAsOf accepts RFC3339 timestamps or plain "2006-01-02" dates.
// An empty string returns the zero time.
func ParseAsOf(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(IST), nil
	}
	t, err := ParseDateIST(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("as_of %q: want RFC3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDateIST formats a time.Time to "2006-01-02" in IST.
func FormatDateIST(t time.Time) string {
	return t.In(IST).Format("2006-01-02")
}

// FormatDateTimeIST formats a time.Time to "2006-01-02 15:04:05 IST".
func FormatDateTimeIST(t time.Time) string {
	return t.In(IST).Format("2006-01-02 15:04:05 IST")
}
