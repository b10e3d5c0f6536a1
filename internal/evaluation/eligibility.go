/**
 * @description
 * Eligibility rules deciding when a forecast horizon becomes judgeable
 * against realized prices. Pure functions over the trading calendar state;
 * no I/O.
 *
 * @dependencies
 * - backend/internal/calendar
 * - backend/internal/models
 */

package evaluation

import (
	"time"

	"github.com/stockpulse-project/backend/internal/calendar"
	"github.com/stockpulse-project/backend/internal/models"
)

const (
	// sameSessionDelay is the minimum age before a one-day forecast made on
	// the session day itself may be judged once the market has closed
	sameSessionDelay = 30 * time.Minute

	oneDay   = 24 * time.Hour
	oneWeek  = 7 * 24 * time.Hour
	oneMonth = 30 * 24 * time.Hour
)

// IsDue reports whether the given horizon of a forecast created at createdAt
// may be evaluated at `now` under the given session state.
//
// Every horizon waits for the session to be closed post-close: judging against
// an intraday price would score the forecast against a number the market has
// not settled on, and would flap the verdict during a volatile session.
//
// Elapsed-time checks use wall-clock deltas, not trading-day counts, even when
// createdAt falls outside trading hours. Intentional; do not "fix".
func IsDue(horizon models.Horizon, createdAt, now time.Time, status calendar.SessionState) bool {
	if status != calendar.SessionClosedPostClose {
		return false
	}

	elapsed := now.Sub(createdAt)
	if elapsed < 0 {
		return false
	}

	switch horizon {
	case models.HorizonOneDay:
		if elapsed >= oneDay {
			return true
		}
		// Same-session evaluation: the forecast was made earlier today and the
		// market has since closed. A small minimum age avoids judging a
		// forecast seconds after it was made.
		return elapsed >= sameSessionDelay
	case models.HorizonOneWeek:
		return elapsed >= oneWeek
	case models.HorizonOneMonth:
		return elapsed >= oneMonth
	}
	return false
}

// TickInterval returns how long the evaluation worker should wait before the
// next pass given the current session state. Most horizons become due right
// after the close, so the worker ticks faster in that window to keep
// evaluation latency low while bounding quote-API call volume.
func TickInterval(status calendar.SessionState) time.Duration {
	if status == calendar.SessionClosedPostClose {
		return 30 * time.Minute
	}
	return 2 * time.Hour
}
