package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, "postgres", cfg.DatabaseDriver)
	require.Equal(t, time.UTC, cfg.Location)
	require.Equal(t, 2, cfg.ReviewPolicy.MinReviews)
	require.Equal(t, 70.0, cfg.ReviewPolicy.ApproveThreshold)
	require.Equal(t, 50.0, cfg.ReviewPolicy.RejectThreshold)
	require.Equal(t, 5, cfg.Points.DailyLogin)
	require.Equal(t, 24*time.Hour, cfg.Points.EarlyReviewWindow)
	require.Equal(t, 2*time.Minute, cfg.SummaryCacheTTL)
	require.Equal(t, 100, cfg.LeaderboardSize)
}

func TestLoadReadsEnvironmentOverrides(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "secret")
	t.Setenv("GEMA_DATABASE_DRIVER", "sqlite")
	t.Setenv("GEMA_TIMEZONE", "Asia/Jakarta")
	t.Setenv("GEMA_REVIEW_MIN_REVIEWS", "3")
	t.Setenv("GEMA_POINTS_SIGNUP", "75")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "sqlite", cfg.DatabaseDriver)
	require.Equal(t, "Asia/Jakarta", cfg.Location.String())
	require.Equal(t, 3, cfg.ReviewPolicy.MinReviews)
	require.Equal(t, 75, cfg.Points.Signup)
}

func TestLoadReadsTierTablesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gema.yaml")
	content := `
points:
  streak_tiers:
    - days: 3
      reward: 8
  winner_rank_percent:
    1: 100
    2: 60
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("GEMA_JWT_SECRET", "secret")
	t.Setenv("GEMA_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Points.StreakTiers, 1)
	require.Equal(t, 3, cfg.Points.StreakBonus(3))
	require.Equal(t, 300, cfg.Points.WinnerPoints(2))
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("GEMA_JWT_SECRET", "secret")
	t.Setenv("GEMA_DATABASE_DRIVER", "oracle")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("GEMA_DATABASE_DRIVER", "sqlite")
	t.Setenv("GEMA_REVIEW_REJECT_THRESHOLD", "90")
	_, err = Load()
	require.Error(t, err)
}
