package rules

import (
	"time"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
)

// IsDayTemporallyUnlocked reports whether the calendar date has reached the
// given day. Only the month and day-of-month of now are inspected: every day
// up to today is open during December, every day is open from December 26
// onward, and nothing is open in any other month. Whether a January date
// belongs to the following period is a year question; UnlockPolicy answers
// it with the calendar's season.
//
// day must be in [1,25]; callers validate it with ValidateDayNumber. Days
// outside that range are never reported as unlocked.
func IsDayTemporallyUnlocked(day int, now time.Time) bool {
	if day < model.FirstDay || day > model.LastDay {
		return false
	}
	if now.Month() != time.December {
		return false
	}
	if now.Day() > model.LastDay {
		return true
	}
	return now.Day() >= day
}

// UnlockPolicy evaluates the temporal gate in a fixed timezone and, when
// YearBounded is set, against a single calendar season instead of any year.
type UnlockPolicy struct {
	Location    *time.Location
	YearBounded bool
}

// DayUnlocked applies the policy for a calendar whose season is the given
// year. With YearBounded, dates before the season's December are locked and
// dates in any later year, the following January included, are fully open.
// Without it, or for a zero season, the year-agnostic rule applies as is.
func (p UnlockPolicy) DayUnlocked(day, season int, now time.Time) bool {
	if day < model.FirstDay || day > model.LastDay {
		return false
	}
	local := localTime(now, p.Location)
	if !p.YearBounded || season <= 0 {
		return IsDayTemporallyUnlocked(day, local)
	}

	switch year := local.Year(); {
	case year < season:
		return false
	case year > season:
		return true
	default:
		return IsDayTemporallyUnlocked(day, local)
	}
}

// SeasonOf is the season cal's doors count toward. Calendars stored without
// one fall back to the season of now.
func (p UnlockPolicy) SeasonOf(cal model.Calendar, now time.Time) int {
	if cal.Season > 0 {
		return cal.Season
	}
	return SeasonFor(now, p.Location)
}

// SeasonFor returns the season a calendar created at t belongs to. Calendars
// created after Christmas count toward the next December.
func SeasonFor(t time.Time, loc *time.Location) int {
	local := localTime(t, loc)
	if local.Month() == time.December && local.Day() > model.LastDay {
		return local.Year() + 1
	}
	return local.Year()
}

func localTime(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc)
}

// UnlockDate is midnight of the given December day in the season year.
func UnlockDate(day, season int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(season, time.December, day, 0, 0, 0, 0, loc)
}
