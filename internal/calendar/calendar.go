/**
 * @description
 * US equity trading calendar.
 * Answers "is this date a trading day", "is the session open right now",
 * and walks forward/backward to the nearest trading day.
 *
 * Session hours are 09:30–16:00 America/New_York. A date is a non-trading
 * day if it falls on a weekend or appears in the per-year holiday table
 * (holidays.go). Dates in years outside the maintained table still work,
 * but only the weekend exclusion applies — out-of-table holidays are not
 * reflected. Known limitation, not an error.
 *
 * @dependencies
 * - standard "time"
 */

package calendar

import "time"

// SessionState describes the exchange session at a given instant
type SessionState int

const (
	// SessionOpen means the instant falls within regular trading hours on a trading day
	SessionOpen SessionState = iota
	// SessionClosedPreOpen means a trading day, before the opening bell
	SessionClosedPreOpen
	// SessionClosedPostClose means a trading day, after the closing bell
	SessionClosedPostClose
	// SessionClosedWeekend means a Saturday or Sunday
	SessionClosedWeekend
	// SessionClosedHoliday means an exchange holiday
	SessionClosedHoliday
)

// String implements fmt.Stringer
func (s SessionState) String() string {
	switch s {
	case SessionOpen:
		return "open"
	case SessionClosedPreOpen:
		return "closed (pre-open)"
	case SessionClosedPostClose:
		return "closed (post-close)"
	case SessionClosedWeekend:
		return "closed (weekend)"
	case SessionClosedHoliday:
		return "closed (holiday)"
	}
	return "unknown"
}

const (
	openMinute  = 9*60 + 30 // 09:30 ET
	closeMinute = 16 * 60   // 16:00 ET
)

var eastern *time.Location

func init() {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// Fall back to a fixed offset; DST transitions will be off by an hour
		loc = time.FixedZone("EST", -5*3600)
	}
	eastern = loc
}

// IsTradingDay reports whether the given instant falls on a trading day
// (evaluated in exchange-local time)
func IsTradingDay(t time.Time) bool {
	et := t.In(eastern)
	if et.Weekday() == time.Saturday || et.Weekday() == time.Sunday {
		return false
	}
	return !isHoliday(et)
}

// SessionStatus classifies the instant against the exchange session
func SessionStatus(t time.Time) SessionState {
	et := t.In(eastern)
	if et.Weekday() == time.Saturday || et.Weekday() == time.Sunday {
		return SessionClosedWeekend
	}
	if isHoliday(et) {
		return SessionClosedHoliday
	}

	minute := et.Hour()*60 + et.Minute()
	switch {
	case minute < openMinute:
		return SessionClosedPreOpen
	case minute < closeMinute:
		return SessionOpen
	default:
		return SessionClosedPostClose
	}
}

// NextTradingDay returns the first trading day strictly after the given instant,
// at midnight exchange time. Walks one calendar day at a time.
func NextTradingDay(t time.Time) time.Time {
	et := t.In(eastern)
	d := time.Date(et.Year(), et.Month(), et.Day(), 0, 0, 0, 0, eastern)
	for {
		d = d.AddDate(0, 0, 1)
		if IsTradingDay(d) {
			return d
		}
	}
}

// PreviousTradingDay returns the last trading day strictly before the given
// instant, at midnight exchange time
func PreviousTradingDay(t time.Time) time.Time {
	et := t.In(eastern)
	d := time.Date(et.Year(), et.Month(), et.Day(), 0, 0, 0, 0, eastern)
	for {
		d = d.AddDate(0, 0, -1)
		if IsTradingDay(d) {
			return d
		}
	}
}

// Location returns the exchange time zone
func Location() *time.Location {
	return eastern
}
