package gamification

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Metric names a derived per-user progress value an achievement is measured on.
type Metric string

const (
	MetricIdeaCount             Metric = "idea_count"
	MetricCollaborationCount    Metric = "collaboration_count"
	MetricFastReviewCount       Metric = "fast_review_count"
	MetricChallengeWins         Metric = "challenge_wins"
	MetricImplementedIdeas      Metric = "implemented_ideas"
	MetricSuccessfulInvitations Metric = "successful_invitations"
	MetricLoginStreak           Metric = "login_streak"
	MetricWeekendActivity       Metric = "weekend_activity"
	MetricReviewCount           Metric = "review_count"
	MetricTotalPoints           Metric = "total_points"
)

// AchievementDefinition is one read-only entry of the achievement catalog.
type AchievementDefinition struct {
	Key            string `json:"key"`
	DisplayName    string `json:"display_name"`
	BadgeTier      string `json:"badge_tier"`
	PointsBonus    int    `json:"points_bonus"`
	ProgressMetric Metric `json:"progress_metric"`
	Threshold      int    `json:"threshold"`
}

// Catalog is the immutable set of achievement definitions.
type Catalog struct {
	definitions []AchievementDefinition
	byKey       map[string]AchievementDefinition
}

//go:embed catalog/achievements.json
var defaultCatalogJSON []byte

//go:embed catalog/achievements.schema.json
var catalogSchemaJSON string

const catalogSchemaURL = "achievements.schema.json"

// DefaultCatalog loads the catalog shipped with the binary.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(defaultCatalogJSON)
}

// LoadCatalogFile loads a catalog override from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read achievement catalog: %w", err)
	}
	return LoadCatalog(data)
}

// LoadCatalog validates the document against the catalog schema and decodes it.
func LoadCatalog(data []byte) (*Catalog, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(catalogSchemaURL, strings.NewReader(catalogSchemaJSON)); err != nil {
		return nil, fmt.Errorf("load achievement schema: %w", err)
	}
	schema, err := compiler.Compile(catalogSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile achievement schema: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var document interface{}
	if err := decoder.Decode(&document); err != nil {
		return nil, fmt.Errorf("parse achievement catalog: %w", err)
	}
	if err := schema.Validate(document); err != nil {
		return nil, fmt.Errorf("invalid achievement catalog: %w", err)
	}

	var payload struct {
		Achievements []AchievementDefinition `json:"achievements"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode achievement catalog: %w", err)
	}

	catalog := &Catalog{
		definitions: make([]AchievementDefinition, 0, len(payload.Achievements)),
		byKey:       make(map[string]AchievementDefinition, len(payload.Achievements)),
	}
	for _, def := range payload.Achievements {
		if _, exists := catalog.byKey[def.Key]; exists {
			return nil, fmt.Errorf("duplicate achievement key %q", def.Key)
		}
		catalog.byKey[def.Key] = def
		catalog.definitions = append(catalog.definitions, def)
	}
	return catalog, nil
}

// Definitions returns a copy of every definition in catalog order.
func (c *Catalog) Definitions() []AchievementDefinition {
	return append([]AchievementDefinition(nil), c.definitions...)
}

// Lookup finds a definition by key.
func (c *Catalog) Lookup(key string) (AchievementDefinition, bool) {
	def, ok := c.byKey[key]
	return def, ok
}

// Metrics lists the distinct metrics referenced by the catalog.
func (c *Catalog) Metrics() []Metric {
	seen := map[Metric]struct{}{}
	out := make([]Metric, 0)
	for _, def := range c.definitions {
		if _, ok := seen[def.ProgressMetric]; ok {
			continue
		}
		seen[def.ProgressMetric] = struct{}{}
		out = append(out, def.ProgressMetric)
	}
	return out
}
