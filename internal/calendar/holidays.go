/**
 * @description
 * NYSE holiday tables, one per year.
 * Dates are keyed "YYYY-MM-DD" in exchange-local time.
 *
 * @notes
 * - Years not listed here fall back to weekend-only exclusion.
 * - Half-days (early closes) are treated as full trading days.
 */

package calendar

import "time"

var holidays = map[string]string{
	// 2024
	"2024-01-01": "New Year's Day",
	"2024-01-15": "Martin Luther King Jr. Day",
	"2024-02-19": "Washington's Birthday",
	"2024-03-29": "Good Friday",
	"2024-05-27": "Memorial Day",
	"2024-06-19": "Juneteenth",
	"2024-07-04": "Independence Day",
	"2024-09-02": "Labor Day",
	"2024-11-28": "Thanksgiving Day",
	"2024-12-25": "Christmas Day",

	// 2025
	"2025-01-01": "New Year's Day",
	"2025-01-09": "National Day of Mourning",
	"2025-01-20": "Martin Luther King Jr. Day",
	"2025-02-17": "Washington's Birthday",
	"2025-04-18": "Good Friday",
	"2025-05-26": "Memorial Day",
	"2025-06-19": "Juneteenth",
	"2025-07-04": "Independence Day",
	"2025-09-01": "Labor Day",
	"2025-11-27": "Thanksgiving Day",
	"2025-12-25": "Christmas Day",

	// 2026
	"2026-01-01": "New Year's Day",
	"2026-01-19": "Martin Luther King Jr. Day",
	"2026-02-16": "Washington's Birthday",
	"2026-04-03": "Good Friday",
	"2026-05-25": "Memorial Day",
	"2026-06-19": "Juneteenth",
	"2026-07-03": "Independence Day (observed)",
	"2026-09-07": "Labor Day",
	"2026-11-26": "Thanksgiving Day",
	"2026-12-25": "Christmas Day",
}

// isHoliday expects t already in exchange-local time
func isHoliday(t time.Time) bool {
	_, ok := holidays[t.Format("2006-01-02")]
	return ok
}

// HolidayName returns the holiday name for the instant's date, if any
func HolidayName(t time.Time) (string, bool) {
	name, ok := holidays[t.In(eastern).Format("2006-01-02")]
	return name, ok
}
