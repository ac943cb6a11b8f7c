package storage

import (
	"context"
	"time"

	"github.com/twinforge/shell-registry/internal/domain"
)

// Storage defines the interface for the storage layer.
// Implementations must be safe for concurrent use.
//
// All listing methods order by (created_at, external_id) so keyset
// pagination can resume deterministically from an anchor row.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// Shells
	CreateShell(ctx context.Context, shell *domain.Shell) error
	GetShellByExternalID(ctx context.Context, externalID string) (*domain.Shell, error)
	DeleteShell(ctx context.Context, externalID string) error
	CountShells(ctx context.Context) (int, error)

	// GetShellCreatedAt resolves the creation timestamp of a cursor anchor
	// row. Returns domain.ErrNotFound when the row no longer exists.
	GetShellCreatedAt(ctx context.Context, externalID string) (time.Time, error)

	// ListShellsAfter returns up to limit shells strictly after the anchor
	// position: created_at > after, or created_at == after and
	// external_id > afterID.
	ListShellsAfter(ctx context.Context, after time.Time, afterID string, limit int) ([]*domain.Shell, error)

	// FindShellsByAttributes returns lookup candidates strictly after the
	// anchor position whose attribute sets contain every queried pair. An
	// empty query matches every shell.
	FindShellsByAttributes(ctx context.Context, pairs []domain.AttributePair, after time.Time, afterID string, limit int) ([]domain.ShellContext, error)

	// Access rules
	CreateAccessRule(ctx context.Context, rule *domain.AccessRule) error
	GetAccessRule(ctx context.Context, id string) (*domain.AccessRule, error)
	ListAccessRules(ctx context.Context) ([]*domain.AccessRule, error)
	UpdateAccessRule(ctx context.Context, rule *domain.AccessRule) error
	DeleteAccessRule(ctx context.Context, id string) error

	// FetchValidRules returns the rules targeting the tenant or the wildcard
	// marker whose validity window contains now.
	FetchValidRules(ctx context.Context, tenant, wildcardMarker string, now time.Time) ([]domain.AccessRule, error)
}
