package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noah-isme/gema-innovation-api/internal/gamification"
	"github.com/noah-isme/gema-innovation-api/internal/workflow"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	DatabaseDriver     string
	DatabaseURL        string
	RedisURL           string
	NATSURL            string
	RealtimeChannel    string
	JWTSecret          string
	CORSAllowOrigins   string
	Location           *time.Location
	ReviewPolicy       workflow.Policy
	Points             gamification.PointsCatalog
	AchievementsFile   string
	DispatchWorkers    int
	DispatchBuffer     int
	DispatchJobTimeout time.Duration
	SummaryCacheTTL    time.Duration
	LeaderboardSize    int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables, an optional .env
// file and an optional config file named by GEMA_CONFIG_FILE.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if file := strings.TrimSpace(v.GetString("config.file")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	points := gamification.DefaultPointsCatalog()
	policy := workflow.DefaultPolicy()

	v.SetDefault("app.name", "GEMA Innovation API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("realtime.channel", "gema")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("review.min_reviews", policy.MinReviews)
	v.SetDefault("review.approve_threshold", policy.ApproveThreshold)
	v.SetDefault("review.reject_threshold", policy.RejectThreshold)
	v.SetDefault("dispatch.workers", 4)
	v.SetDefault("dispatch.buffer", 256)
	v.SetDefault("dispatch.job_timeout", "10s")
	v.SetDefault("summary.cache_ttl", "2m")
	v.SetDefault("leaderboard.size", 100)

	v.SetDefault("points.signup", points.Signup)
	v.SetDefault("points.daily_login", points.DailyLogin)
	v.SetDefault("points.weekend_bonus", points.WeekendBonus)
	v.SetDefault("points.idea_submitted", points.IdeaSubmitted)
	v.SetDefault("points.idea_approved", points.IdeaApproved)
	v.SetDefault("points.idea_implemented", points.IdeaImplemented)
	v.SetDefault("points.review_completed", points.ReviewCompleted)
	v.SetDefault("points.early_review_bonus", points.EarlyReviewBonus)
	v.SetDefault("points.early_review_window", points.EarlyReviewWindow.String())
	v.SetDefault("points.first_half_reviewer_bonus", points.FirstHalfReviewerBonus)
	v.SetDefault("points.collaboration_joined", points.CollaborationJoined)
	v.SetDefault("points.invitation_accepted", points.InvitationAccepted)
	v.SetDefault("points.challenge_winner_base", points.ChallengeWinnerBase)
	v.SetDefault("points.winner_default_percent", points.WinnerDefaultPercent)
}

func fromViper(v *viper.Viper) (Config, error) {
	location, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid timezone: %w", err)
	}

	cacheTTL, err := parseDuration(v, "summary.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	jobTimeout, err := parseDuration(v, "dispatch.job_timeout")
	if err != nil {
		return Config{}, err
	}

	points, err := loadPoints(v)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseDriver:   strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		RealtimeChannel:  v.GetString("realtime.channel"),
		JWTSecret:        v.GetString("jwt.secret"),
		CORSAllowOrigins: v.GetString("cors.allow_origins"),
		Location:         location,
		ReviewPolicy: workflow.Policy{
			MinReviews:       v.GetInt("review.min_reviews"),
			ApproveThreshold: v.GetFloat64("review.approve_threshold"),
			RejectThreshold:  v.GetFloat64("review.reject_threshold"),
		},
		Points:             points,
		AchievementsFile:   v.GetString("achievements.file"),
		DispatchWorkers:    v.GetInt("dispatch.workers"),
		DispatchBuffer:     v.GetInt("dispatch.buffer"),
		DispatchJobTimeout: jobTimeout,
		SummaryCacheTTL:    cacheTTL,
		LeaderboardSize:    v.GetInt("leaderboard.size"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("jwt secret must be provided")
	}
	if cfg.DatabaseDriver != "postgres" && cfg.DatabaseDriver != "sqlite" {
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
	if cfg.ReviewPolicy.MinReviews <= 0 {
		return Config{}, errors.New("review.min_reviews must be positive")
	}
	if cfg.ReviewPolicy.RejectThreshold > cfg.ReviewPolicy.ApproveThreshold {
		return Config{}, errors.New("review.reject_threshold must not exceed review.approve_threshold")
	}
	if cfg.LeaderboardSize <= 0 {
		cfg.LeaderboardSize = 100
	}

	return cfg, nil
}

func loadPoints(v *viper.Viper) (gamification.PointsCatalog, error) {
	points := gamification.DefaultPointsCatalog()

	window, err := parseDuration(v, "points.early_review_window")
	if err != nil {
		return points, err
	}

	points.Signup = v.GetInt("points.signup")
	points.DailyLogin = v.GetInt("points.daily_login")
	points.WeekendBonus = v.GetInt("points.weekend_bonus")
	points.IdeaSubmitted = v.GetInt("points.idea_submitted")
	points.IdeaApproved = v.GetInt("points.idea_approved")
	points.IdeaImplemented = v.GetInt("points.idea_implemented")
	points.ReviewCompleted = v.GetInt("points.review_completed")
	points.EarlyReviewBonus = v.GetInt("points.early_review_bonus")
	points.EarlyReviewWindow = window
	points.FirstHalfReviewerBonus = v.GetInt("points.first_half_reviewer_bonus")
	points.CollaborationJoined = v.GetInt("points.collaboration_joined")
	points.InvitationAccepted = v.GetInt("points.invitation_accepted")
	points.ChallengeWinnerBase = v.GetInt("points.challenge_winner_base")
	points.WinnerDefaultPercent = v.GetInt("points.winner_default_percent")

	// Tier and rank tables only come from a config file.
	if v.IsSet("points.streak_tiers") {
		var tiers []gamification.StreakTier
		if err := v.UnmarshalKey("points.streak_tiers", &tiers); err != nil {
			return points, fmt.Errorf("invalid points.streak_tiers: %w", err)
		}
		points.StreakTiers = tiers
	}
	if v.IsSet("points.winner_rank_percent") {
		ranks := map[int]int{}
		if err := v.UnmarshalKey("points.winner_rank_percent", &ranks); err != nil {
			return points, fmt.Errorf("invalid points.winner_rank_percent: %w", err)
		}
		points.WinnerRankPercent = ranks
	}

	return points, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
