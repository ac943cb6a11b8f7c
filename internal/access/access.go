// Package access decides what a requesting tenant may see of a shell.
//
// Two modes exist behind the same interface: the granular engine evaluates
// declarative access rules per (shell, requester) pair, while the legacy
// handler reads tenant markers attached directly to shell attributes.
// Callers are mode-agnostic.
package access

import (
	"context"
	"time"

	"github.com/twinforge/shell-registry/internal/domain"
)

// Handler filters shells and lookup results for a requesting tenant.
// Implementations must be safe for concurrent use; every call is a pure
// function of (rules, shell, requester) with no retained state.
type Handler interface {
	// FilterShell returns a redacted copy of the shell, the unmodified shell
	// for the owning tenant, or domain.ErrDenyAccess when the shell must not
	// be visible to the requester at all. It never mutates its input.
	FilterShell(ctx context.Context, shell *domain.Shell, tenant string) (*domain.Shell, error)

	// FilterShells applies FilterShell across a batch. Shells the requester
	// may not see are omitted; a tenant with no applicable rules gets an
	// empty result, not an error. Order is preserved.
	FilterShells(ctx context.Context, shells []*domain.Shell, tenant string) ([]*domain.Shell, error)

	// FilterVisibleIDs returns the external ids of the candidates that both
	// match the exact-match query and are visible to the requester. The
	// result is a stable filter of the candidate order. A requester with no
	// applicable rules fails the whole call with domain.ErrDenyAccess.
	FilterVisibleIDs(ctx context.Context, query []domain.AttributePair, candidates []domain.ShellContext, tenant string) ([]string, error)
}

// RuleStore supplies the access rules for a target tenant, pre-filtered to
// those within their validity window at the given instant. Rules targeting
// the deployment's wildcard marker are included for every tenant.
type RuleStore interface {
	FetchValidRules(ctx context.Context, tenant string, now time.Time) ([]domain.AccessRule, error)
}

// containsAllPairs reports whether every wanted (name, value) pair is
// present in the attribute set.
func containsAllPairs(attrs []domain.Attribute, wanted []domain.AttributePair) bool {
	if len(wanted) == 0 {
		return true
	}
	present := make(map[domain.AttributePair]struct{}, len(attrs))
	for _, a := range attrs {
		present[domain.AttributePair{Name: a.Name, Value: a.Value}] = struct{}{}
	}
	for _, w := range wanted {
		if _, ok := present[w]; !ok {
			return false
		}
	}
	return true
}
