package service

import (
	"context"
	"time"

	"github.com/twinforge/shell-registry/internal/domain"
	"github.com/twinforge/shell-registry/internal/storage"
)

// RuleSource adapts the storage layer to the access engine's rule store
// interface, binding the deployment's wildcard marker so the engine fetches
// wildcard-targeted rules alongside tenant-targeted ones.
type RuleSource struct {
	store          storage.Storage
	wildcardMarker string
}

// NewRuleSource creates a rule source for the access engine.
func NewRuleSource(store storage.Storage, wildcardMarker string) *RuleSource {
	return &RuleSource{store: store, wildcardMarker: wildcardMarker}
}

// FetchValidRules implements access.RuleStore.
func (r *RuleSource) FetchValidRules(ctx context.Context, tenant string, now time.Time) ([]domain.AccessRule, error) {
	return r.store.FetchValidRules(ctx, tenant, r.wildcardMarker, now)
}
