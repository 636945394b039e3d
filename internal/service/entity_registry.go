package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/noah-isme/gema-innovation-api/internal/repository"
)

// Related entity types known to the ledger.
const (
	EntitySubmission  = "submission"
	EntityReview      = "review"
	EntityAchievement = "achievement"
	EntityUser        = "user"
)

// RelatedEntity points a ledger entry at the thing it was earned for.
type RelatedEntity struct {
	Type string
	ID   string
}

func relatedSubmission(id uint) *RelatedEntity {
	return &RelatedEntity{Type: EntitySubmission, ID: strconv.FormatUint(uint64(id), 10)}
}

func relatedReview(id uint) *RelatedEntity {
	return &RelatedEntity{Type: EntityReview, ID: strconv.FormatUint(uint64(id), 10)}
}

// EntityResolver loads a summary of the entity with the given id.
type EntityResolver func(ctx context.Context, store repository.Store, id string) (interface{}, error)

// EntityRegistry maps related entity types to their resolvers.
type EntityRegistry struct {
	mu        sync.RWMutex
	resolvers map[string]EntityResolver
}

// NewEntityRegistry returns an empty registry.
func NewEntityRegistry() *EntityRegistry {
	return &EntityRegistry{resolvers: map[string]EntityResolver{}}
}

// Register binds a resolver to an entity type, replacing any previous one.
func (r *EntityRegistry) Register(entityType string, resolver EntityResolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[strings.ToLower(entityType)] = resolver
}

// Knows reports whether the entity type has a resolver.
func (r *EntityRegistry) Knows(entityType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.resolvers[strings.ToLower(entityType)]
	return ok
}

// Types lists the registered entity types.
func (r *EntityRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.resolvers))
	for key := range r.resolvers {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Resolve loads the referenced entity.
func (r *EntityRegistry) Resolve(ctx context.Context, store repository.Store, ref RelatedEntity) (interface{}, error) {
	r.mu.RLock()
	resolver, ok := r.resolvers[strings.ToLower(ref.Type)]
	r.mu.RUnlock()
	if !ok {
		return nil, &ValidationError{Field: "related_type", Reason: fmt.Sprintf("unknown related entity type %q", ref.Type)}
	}
	return resolver(ctx, store, ref.ID)
}

func parseEntityID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, &ValidationError{Field: "related_id", Reason: "invalid related entity id"}
	}
	return uint(id), nil
}

func (c *Core) defaultEntityRegistry() *EntityRegistry {
	registry := NewEntityRegistry()

	registry.Register(EntitySubmission, func(ctx context.Context, store repository.Store, raw string) (interface{}, error) {
		id, err := parseEntityID(raw)
		if err != nil {
			return nil, err
		}
		submission, err := store.Submissions().GetByID(ctx, id)
		if err != nil {
			return nil, storeError(err, EntitySubmission, id)
		}
		return map[string]interface{}{
			"id":       submission.ID,
			"title":    submission.Title,
			"workflow": submission.Workflow,
			"stage":    submission.CurrentStage,
		}, nil
	})

	registry.Register(EntityReview, func(ctx context.Context, store repository.Store, raw string) (interface{}, error) {
		id, err := parseEntityID(raw)
		if err != nil {
			return nil, err
		}
		review, err := store.Reviews().GetByID(ctx, id)
		if err != nil {
			return nil, storeError(err, EntityReview, id)
		}
		return map[string]interface{}{
			"id":            review.ID,
			"submission_id": review.SubmissionID,
			"stage":         review.Stage,
			"decision":      review.Decision,
		}, nil
	})

	registry.Register(EntityAchievement, func(ctx context.Context, store repository.Store, key string) (interface{}, error) {
		def, ok := c.achievements.Lookup(key)
		if !ok {
			return nil, &NotFoundError{Entity: EntityAchievement, ID: key}
		}
		return map[string]interface{}{
			"key":          def.Key,
			"display_name": def.DisplayName,
			"badge_tier":   def.BadgeTier,
		}, nil
	})

	registry.Register(EntityUser, func(ctx context.Context, store repository.Store, raw string) (interface{}, error) {
		id, err := parseEntityID(raw)
		if err != nil {
			return nil, err
		}
		user, err := store.Users().GetByID(ctx, id)
		if err != nil {
			return nil, storeError(err, EntityUser, id)
		}
		return map[string]interface{}{"id": user.ID, "name": user.Name}, nil
	})

	return registry
}
