package gamification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStreakBonusIsMarginal(t *testing.T) {
	catalog := DefaultPointsCatalog()

	cases := []struct {
		streak int
		bonus  int
	}{
		{streak: 1, bonus: 0},
		{streak: 4, bonus: 0},
		{streak: 5, bonus: 5},
		{streak: 9, bonus: 5},
		{streak: 10, bonus: 10},
		{streak: 25, bonus: 25},
		{streak: 60, bonus: 25},
	}
	previous := 0
	for _, tc := range cases {
		bonus := catalog.StreakBonus(tc.streak)
		require.Equal(t, tc.bonus, bonus, "streak %d", tc.streak)
		total := catalog.DailyLogin + bonus
		require.GreaterOrEqual(t, total, previous)
		previous = total
	}

	require.Equal(t, 10, catalog.DailyLogin+catalog.StreakBonus(5))
}

func TestWinnerPointsScaleByRank(t *testing.T) {
	catalog := DefaultPointsCatalog()
	require.Equal(t, 500, catalog.WinnerPoints(1))
	require.Equal(t, 350, catalog.WinnerPoints(2))
	require.Equal(t, 250, catalog.WinnerPoints(3))
	require.Equal(t, 150, catalog.WinnerPoints(4))

	catalog.ChallengeWinnerBase = 333
	require.Equal(t, 233, catalog.WinnerPoints(2))
}

func TestIsEarlyReview(t *testing.T) {
	catalog := DefaultPointsCatalog()
	submitted := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.True(t, catalog.IsEarlyReview(submitted, submitted.Add(24*time.Hour)))
	require.False(t, catalog.IsEarlyReview(submitted, submitted.Add(24*time.Hour+time.Second)))
}

func TestIsFirstHalf(t *testing.T) {
	require.True(t, IsFirstHalf(1, 2))
	require.False(t, IsFirstHalf(2, 2))
	require.True(t, IsFirstHalf(2, 3))
	require.False(t, IsFirstHalf(3, 4))
	require.True(t, IsFirstHalf(1, 1))
	require.False(t, IsFirstHalf(0, 4))
}

func TestCurrentStreakCountsConsecutiveDays(t *testing.T) {
	cal := NewCalendar(time.UTC)
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	var logins []time.Time
	for i := 0; i < 5; i++ {
		logins = append(logins, now.AddDate(0, 0, -i).Add(-time.Hour))
	}
	require.Equal(t, 5, cal.CurrentStreak(logins, now))

	require.Equal(t, 4, cal.CurrentStreak(logins[1:], now), "streak up to yesterday stays alive")

	gap := []time.Time{now, now.AddDate(0, 0, -2)}
	require.Equal(t, 1, cal.CurrentStreak(gap, now))
	require.Equal(t, 0, cal.CurrentStreak(nil, now))
}

func TestCurrentStreakUsesReferenceZone(t *testing.T) {
	almaty := time.FixedZone("Asia/Almaty", 5*60*60)
	cal := NewCalendar(almaty)
	now := time.Date(2026, 3, 10, 1, 0, 0, 0, almaty)
	today := time.Date(2026, 3, 9, 19, 30, 0, 0, time.UTC)
	yesterday := time.Date(2026, 3, 9, 2, 0, 0, 0, time.UTC)

	require.Equal(t, "2026-03-10", cal.DayKey(today))
	require.Equal(t, "2026-03-09", cal.DayKey(yesterday))
	require.Equal(t, 2, cal.CurrentStreak([]time.Time{today, yesterday}, now))
	require.Equal(t, 1, NewCalendar(time.UTC).CurrentStreak([]time.Time{today, yesterday}, now))
}

func TestLongestStreak(t *testing.T) {
	cal := NewCalendar(time.UTC)
	day := func(d int) time.Time { return time.Date(2026, 1, d, 8, 0, 0, 0, time.UTC) }

	logins := []time.Time{day(1), day(2), day(2), day(3), day(7), day(8), day(9), day(10), day(12)}
	require.Equal(t, 4, cal.LongestStreak(logins))
	require.Equal(t, 0, cal.LongestStreak(nil))
	require.Equal(t, 1, cal.LongestStreak([]time.Time{day(5)}))
}

func TestIsWeekend(t *testing.T) {
	cal := NewCalendar(time.UTC)
	require.True(t, cal.IsWeekend(time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)))
	require.True(t, cal.IsWeekend(time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)))
	require.False(t, cal.IsWeekend(time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)))
}

func TestDefaultCatalogLoads(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)
	require.NotEmpty(t, catalog.Definitions())

	def, ok := catalog.Lookup("first_idea")
	require.True(t, ok)
	require.Equal(t, MetricIdeaCount, def.ProgressMetric)
	require.Contains(t, catalog.Metrics(), MetricLoginStreak)
}

func TestLoadCatalogRejectsInvalidDocuments(t *testing.T) {
	_, err := LoadCatalog([]byte(`{"achievements":[{"key":"x","display_name":"X","badge_tier":"diamond","points_bonus":1,"progress_metric":"idea_count","threshold":1}]}`))
	require.Error(t, err)

	_, err = LoadCatalog([]byte(`{"achievements":[{"key":"x","display_name":"X","badge_tier":"gold","points_bonus":1,"progress_metric":"idea_count","threshold":0}]}`))
	require.Error(t, err)

	dup := `{"achievements":[
		{"key":"x","display_name":"X","badge_tier":"gold","points_bonus":1,"progress_metric":"idea_count","threshold":1},
		{"key":"x","display_name":"Y","badge_tier":"gold","points_bonus":1,"progress_metric":"idea_count","threshold":2}]}`
	_, err = LoadCatalog([]byte(dup))
	require.ErrorContains(t, err, "duplicate")
}

func TestLoadCatalogValidatesNumbersExactly(t *testing.T) {
	_, err := LoadCatalog([]byte(`{"achievements":[{"key":"x","display_name":"X","badge_tier":"gold","points_bonus":1,"progress_metric":"idea_count","threshold":1.5}]}`))
	require.ErrorContains(t, err, "invalid achievement catalog")

	_, err = LoadCatalog([]byte(`{"achievements":[`))
	require.ErrorContains(t, err, "parse achievement catalog")

	catalog, err := LoadCatalog([]byte(`{"achievements":[{"key":"big","display_name":"Big","badge_tier":"gold","points_bonus":0,"progress_metric":"total_points","threshold":100000}]}`))
	require.NoError(t, err)
	def, ok := catalog.Lookup("big")
	require.True(t, ok)
	require.Equal(t, 100000, def.Threshold)
}
