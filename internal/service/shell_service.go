package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/twinforge/shell-registry/internal/access"
	"github.com/twinforge/shell-registry/internal/cursor"
	"github.com/twinforge/shell-registry/internal/domain"
	"github.com/twinforge/shell-registry/internal/storage"
	"github.com/twinforge/shell-registry/internal/validation"
)

// ShellService orchestrates shell reads and writes. All visibility decisions
// are delegated to the access handler; the service only owns pagination and
// persistence plumbing.
type ShellService struct {
	store           storage.Storage
	access          access.Handler
	owningTenant    string
	fetchSize       int
	defaultPageSize int
	maxPageSize     int
}

// NewShellService creates a shell service. fetchSize bounds how many rows a
// filtered listing pulls from the store per round-trip; it should exceed the
// page size so sparse visibility does not degenerate into row-at-a-time
// fetching.
func NewShellService(store storage.Storage, handler access.Handler, owningTenant string, fetchSize, defaultPageSize, maxPageSize int) *ShellService {
	return &ShellService{
		store:           store,
		access:          handler,
		owningTenant:    owningTenant,
		fetchSize:       fetchSize,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

func (s *ShellService) pageSize(requested int) int {
	if requested <= 0 {
		return s.defaultPageSize
	}
	if requested > s.maxPageSize {
		return s.maxPageSize
	}
	return requested
}

// anchorFor resolves a decoded cursor to its (timestamp, id) scan position.
// A cursor whose anchor row has been deleted is stale and rejected; silently
// restarting from the beginning would re-emit already-consumed records.
func (s *ShellService) anchorFor(ctx context.Context, cur cursor.Cursor) (time.Time, string, error) {
	if cur.Empty() {
		return time.Time{}, "", nil
	}
	createdAt, err := s.store.GetShellCreatedAt(ctx, cur.LastID())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return time.Time{}, "", fmt.Errorf("%w: anchor record no longer exists", domain.ErrInvalidCursor)
		}
		return time.Time{}, "", err
	}
	return createdAt, cur.LastID(), nil
}

// ListShells returns one page of shells visible to the tenant, ordered by
// (creation timestamp, external id). It probes for pageSize+1 visible items
// and keeps fetching store batches until the probe is satisfied or the scan
// is exhausted, so heavily filtered tenants still get full pages.
func (s *ShellService) ListShells(ctx context.Context, pageSize int, cursorToken, tenant string) (*domain.ShellPage, error) {
	pageSize = s.pageSize(pageSize)
	cur, err := cursor.Decode(cursorToken)
	if err != nil {
		return nil, err
	}
	after, afterID, err := s.anchorFor(ctx, cur)
	if err != nil {
		return nil, err
	}

	found := make([]*domain.Shell, 0, pageSize+1)
	for len(found) < pageSize+1 {
		batch, err := s.store.ListShellsAfter(ctx, after, afterID, s.fetchSize)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		visible, err := s.access.FilterShells(ctx, batch, tenant)
		if err != nil {
			return nil, err
		}
		for _, shell := range visible {
			found = append(found, shell)
			if len(found) == pageSize+1 {
				break
			}
		}
		if len(batch) < s.fetchSize {
			break
		}
		last := batch[len(batch)-1]
		after, afterID = last.CreatedAt, last.ExternalID
	}

	items, next := cursor.Page(found, pageSize, func(shell *domain.Shell) string { return shell.ExternalID })
	return &domain.ShellPage{Items: items, Cursor: next}, nil
}

// GetShell returns the tenant's view of one shell. A shell the tenant may
// not see is indistinguishable from a missing one.
func (s *ShellService) GetShell(ctx context.Context, externalID, tenant string) (*domain.Shell, error) {
	shell, err := s.store.GetShellByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	filtered, err := s.access.FilterShell(ctx, shell, tenant)
	if err != nil {
		if errors.Is(err, domain.ErrDenyAccess) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return filtered, nil
}

// LookupShellIDs returns one page of external shell ids matching the
// exact-match query and visible to the tenant. A tenant without any
// applicable rule gets an empty result, never an error.
func (s *ShellService) LookupShellIDs(ctx context.Context, query []domain.AttributePair, pageSize int, cursorToken, tenant string) (*domain.LookupPage, error) {
	pageSize = s.pageSize(pageSize)
	cur, err := cursor.Decode(cursorToken)
	if err != nil {
		return nil, err
	}
	after, afterID, err := s.anchorFor(ctx, cur)
	if err != nil {
		return nil, err
	}

	found := make([]string, 0, pageSize+1)
	for len(found) < pageSize+1 {
		candidates, err := s.store.FindShellsByAttributes(ctx, query, after, afterID, s.fetchSize)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			break
		}
		visible, err := s.access.FilterVisibleIDs(ctx, query, candidates, tenant)
		if err != nil {
			if errors.Is(err, domain.ErrDenyAccess) {
				return &domain.LookupPage{IDs: []string{}}, nil
			}
			return nil, err
		}
		for _, id := range visible {
			found = append(found, id)
			if len(found) == pageSize+1 {
				break
			}
		}
		if len(candidates) < s.fetchSize {
			break
		}
		last := candidates[len(candidates)-1]
		after, afterID = last.CreatedAt, last.ExternalID
	}

	ids, next := cursor.Page(found, pageSize, func(id string) string { return id })
	return &domain.LookupPage{IDs: ids, Cursor: next}, nil
}

// CreateShell registers a new shell. Only the owning tenant may write.
func (s *ShellService) CreateShell(ctx context.Context, req *domain.CreateShellRequest, tenant string) (*domain.Shell, error) {
	if tenant != s.owningTenant {
		return nil, domain.ErrUnauthorized
	}
	if errs := validation.ValidateShell(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, errs.Error())
	}
	shell := &domain.Shell{
		ID:         uuid.New().String(),
		ExternalID: req.ExternalID,
		IDShort:    req.IDShort,
		CreatedAt:  time.Now().UTC(),
		Attributes: req.Attributes,
		Submodels:  req.Submodels,
	}
	for i := range shell.Submodels {
		if shell.Submodels[i].ID == "" {
			shell.Submodels[i].ID = uuid.New().String()
		}
	}
	if err := s.store.CreateShell(ctx, shell); err != nil {
		return nil, err
	}
	return shell, nil
}

// DeleteShell removes a shell. Only the owning tenant may write.
func (s *ShellService) DeleteShell(ctx context.Context, externalID, tenant string) error {
	if tenant != s.owningTenant {
		return domain.ErrUnauthorized
	}
	return s.store.DeleteShell(ctx, externalID)
}
