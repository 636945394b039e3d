package gamification

import (
	"sort"
	"time"
)

const dayLayout = "2006-01-02"

// Calendar pins day boundaries to the server's reference time zone.
type Calendar struct {
	loc *time.Location
}

// NewCalendar builds a calendar for the location; nil means UTC.
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

// Location returns the reference zone.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// StartOfDay returns midnight of t's calendar day.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	local := t.In(c.Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.Location())
}

// DayKey formats t's calendar day as YYYY-MM-DD.
func (c Calendar) DayKey(t time.Time) string {
	return t.In(c.Location()).Format(dayLayout)
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func (c Calendar) IsWeekend(t time.Time) bool {
	switch t.In(c.Location()).Weekday() {
	case time.Saturday, time.Sunday:
		return true
	default:
		return false
	}
}

// CurrentStreak walks back from yesterday counting consecutive active days and
// adds today when there is activity today.
func (c Calendar) CurrentStreak(activity []time.Time, now time.Time) int {
	days := make(map[string]struct{}, len(activity))
	for _, at := range activity {
		days[c.DayKey(at)] = struct{}{}
	}

	streak := 0
	cursor := c.StartOfDay(now).AddDate(0, 0, -1)
	for {
		if _, ok := days[c.DayKey(cursor)]; !ok {
			break
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}

	if _, ok := days[c.DayKey(now)]; ok {
		streak++
	}
	return streak
}

// LongestStreak finds the longest run of consecutive active days.
func (c Calendar) LongestStreak(activity []time.Time) int {
	if len(activity) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, len(activity))
	days := make([]time.Time, 0, len(activity))
	for _, at := range activity {
		key := c.DayKey(at)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		days = append(days, c.StartOfDay(at))
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if c.DayKey(days[i-1].AddDate(0, 0, 1)) == c.DayKey(days[i]) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}
