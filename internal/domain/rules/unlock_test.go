package rules

import (
	"testing"
	"time"
)

func TestIsDayTemporallyUnlockedOutsideDecember(t *testing.T) {
	for month := time.January; month < time.December; month++ {
		for _, dom := range []int{1, 10, 25, 28} {
			now := time.Date(2025, month, dom, 12, 0, 0, 0, time.UTC)
			for day := 1; day <= 25; day++ {
				if IsDayTemporallyUnlocked(day, now) {
					t.Fatalf("day %d unexpectedly unlocked on %s", day, now.Format("2006-01-02"))
				}
			}
		}
	}
}

func TestIsDayTemporallyUnlockedDecemberTenth(t *testing.T) {
	now := time.Date(2025, time.December, 10, 8, 0, 0, 0, time.UTC)
	for day := 1; day <= 25; day++ {
		got := IsDayTemporallyUnlocked(day, now)
		want := day <= 10
		if got != want {
			t.Fatalf("day %d on Dec 10: got %v want %v", day, got, want)
		}
	}
}

func TestIsDayTemporallyUnlockedAfterChristmas(t *testing.T) {
	for _, dom := range []int{26, 31} {
		now := time.Date(2025, time.December, dom, 0, 0, 0, 0, time.UTC)
		for day := 1; day <= 25; day++ {
			if !IsDayTemporallyUnlocked(day, now) {
				t.Fatalf("day %d should be unlocked on Dec %d", day, dom)
			}
		}
	}
}

func TestIsDayTemporallyUnlockedIgnoresYear(t *testing.T) {
	a := IsDayTemporallyUnlocked(5, time.Date(2019, time.December, 5, 0, 0, 0, 0, time.UTC))
	b := IsDayTemporallyUnlocked(5, time.Date(2031, time.December, 5, 0, 0, 0, 0, time.UTC))
	if !a || !b {
		t.Fatalf("expected year-agnostic unlock, got %v and %v", a, b)
	}
}

func TestUnlockPolicyYearBoundedFollowingJanuary(t *testing.T) {
	policy := UnlockPolicy{YearBounded: true}
	now := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)

	for day := 1; day <= 25; day++ {
		if !policy.DayUnlocked(day, 2025, now) {
			t.Fatalf("day %d should be unlocked on Jan 5 after the 2025 season", day)
		}
	}
}

func TestUnlockPolicyYearBoundedBeforeSeason(t *testing.T) {
	policy := UnlockPolicy{YearBounded: true}

	// December of an earlier year must not open a later season.
	now := time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)
	if policy.DayUnlocked(1, 2025, now) {
		t.Fatalf("day 1 of 2025 season should stay locked in 2024")
	}

	now = time.Date(2025, time.November, 30, 23, 0, 0, 0, time.UTC)
	if policy.DayUnlocked(1, 2025, now) {
		t.Fatalf("day 1 should stay locked in November")
	}
}

func TestUnlockPolicyUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	policy := UnlockPolicy{Location: loc}

	now := time.Date(2025, time.November, 30, 16, 0, 0, 0, time.UTC) // Dec 1 01:00 local
	if !policy.DayUnlocked(1, 0, now) {
		t.Fatalf("day 1 should be unlocked at local midnight")
	}
	if (UnlockPolicy{}).DayUnlocked(1, 0, now) {
		t.Fatalf("day 1 should still be locked in UTC")
	}
}

func TestSeasonFor(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{name: "november", at: time.Date(2025, time.November, 20, 0, 0, 0, 0, time.UTC), want: 2025},
		{name: "christmas", at: time.Date(2025, time.December, 25, 23, 0, 0, 0, time.UTC), want: 2025},
		{name: "after christmas", at: time.Date(2025, time.December, 27, 0, 0, 0, 0, time.UTC), want: 2026},
		{name: "january", at: time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC), want: 2026},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SeasonFor(tt.at, nil); got != tt.want {
				t.Fatalf("unexpected season: got %d want %d", got, tt.want)
			}
		})
	}
}

func TestDayOutsideRangeNeverUnlocked(t *testing.T) {
	now := time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)
	policies := []UnlockPolicy{{}, {YearBounded: true}}

	for _, day := range []int{-1, 0, 26} {
		if IsDayTemporallyUnlocked(day, now) {
			t.Fatalf("day %d reported unlocked", day)
		}
		for _, policy := range policies {
			if policy.DayUnlocked(day, 2025, now) {
				t.Fatalf("day %d reported unlocked by %+v", day, policy)
			}
		}
	}
}

func TestUnlockPolicyYearBoundedSeasonLifecycle(t *testing.T) {
	policy := UnlockPolicy{YearBounded: true}
	tests := []struct {
		name string
		now  time.Time
		day  int
		want bool
	}{
		{name: "season december before day", now: time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), day: 20, want: false},
		{name: "season december on day", now: time.Date(2025, time.December, 20, 0, 0, 0, 0, time.UTC), day: 20, want: true},
		{name: "following january", now: time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), day: 25, want: true},
		{name: "following summer", now: time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC), day: 1, want: true},
		{name: "season summer", now: time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), day: 1, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.DayUnlocked(tt.day, 2025, tt.now); got != tt.want {
				t.Fatalf("day %d at %s: got %v want %v", tt.day, tt.now.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}
