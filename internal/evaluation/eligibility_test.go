package evaluation

import (
	"testing"
	"time"

	"github.com/stockpulse-project/backend/internal/calendar"
	"github.com/stockpulse-project/backend/internal/models"
)

var baseCreated = time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)

func TestIsDue(t *testing.T) {
	tests := []struct {
		name    string
		horizon models.Horizon
		elapsed time.Duration
		status  calendar.SessionState
		want    bool
	}{
		{"one day, market open", models.HorizonOneDay, 48 * time.Hour, calendar.SessionOpen, false},
		{"one day, pre-open", models.HorizonOneDay, 48 * time.Hour, calendar.SessionClosedPreOpen, false},
		{"one day, weekend", models.HorizonOneDay, 48 * time.Hour, calendar.SessionClosedWeekend, false},
		{"one day, post-close, full day elapsed", models.HorizonOneDay, 25 * time.Hour, calendar.SessionClosedPostClose, true},
		{"one day, post-close, same session after 30m", models.HorizonOneDay, 45 * time.Minute, calendar.SessionClosedPostClose, true},
		{"one day, post-close, too fresh", models.HorizonOneDay, 10 * time.Minute, calendar.SessionClosedPostClose, false},
		{"one day, exactly 30m", models.HorizonOneDay, 30 * time.Minute, calendar.SessionClosedPostClose, true},
		{"one week, 6 days", models.HorizonOneWeek, 6 * 24 * time.Hour, calendar.SessionClosedPostClose, false},
		{"one week, 7 days", models.HorizonOneWeek, 7 * 24 * time.Hour, calendar.SessionClosedPostClose, true},
		{"one week, 8 days but open", models.HorizonOneWeek, 8 * 24 * time.Hour, calendar.SessionOpen, false},
		{"one month, 29 days", models.HorizonOneMonth, 29 * 24 * time.Hour, calendar.SessionClosedPostClose, false},
		{"one month, 30 days", models.HorizonOneMonth, 30 * 24 * time.Hour, calendar.SessionClosedPostClose, true},
		{"one month, 30 days but holiday", models.HorizonOneMonth, 30 * 24 * time.Hour, calendar.SessionClosedHoliday, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := baseCreated.Add(tt.elapsed)
			if got := IsDue(tt.horizon, baseCreated, now, tt.status); got != tt.want {
				t.Errorf("IsDue(%s, +%s, %s) = %v, want %v", tt.horizon, tt.elapsed, tt.status, got, tt.want)
			}
		})
	}
}

func TestIsDueFutureCreatedAt(t *testing.T) {
	// Clock skew: a forecast "created" after now is never due
	now := baseCreated.Add(-time.Hour)
	for _, h := range models.AllHorizons() {
		if IsDue(h, baseCreated, now, calendar.SessionClosedPostClose) {
			t.Errorf("IsDue(%s) = true for createdAt after now", h)
		}
	}
}

// Once due, a horizon stays due as now increases (for fixed session state):
// the engine relies on this so a missed tick never loses an evaluation.
func TestIsDueMonotonic(t *testing.T) {
	for _, h := range models.AllHorizons() {
		seen := false
		for minutes := 0; minutes <= 45*24*60; minutes += 15 {
			now := baseCreated.Add(time.Duration(minutes) * time.Minute)
			due := IsDue(h, baseCreated, now, calendar.SessionClosedPostClose)
			if seen && !due {
				t.Fatalf("IsDue(%s) flipped back to false at +%dm", h, minutes)
			}
			if due {
				seen = true
			}
		}
		if !seen {
			t.Fatalf("IsDue(%s) never became due within 45 days", h)
		}
	}
}

func TestTickInterval(t *testing.T) {
	if got := TickInterval(calendar.SessionClosedPostClose); got != 30*time.Minute {
		t.Errorf("TickInterval(post-close) = %s, want 30m", got)
	}
	for _, status := range []calendar.SessionState{
		calendar.SessionOpen,
		calendar.SessionClosedPreOpen,
		calendar.SessionClosedWeekend,
		calendar.SessionClosedHoliday,
	} {
		if got := TickInterval(status); got != 2*time.Hour {
			t.Errorf("TickInterval(%s) = %s, want 2h", status, got)
		}
	}
}
