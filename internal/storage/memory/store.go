// Package memory provides an in-memory implementation of the storage
// interface for testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/twinforge/shell-registry/internal/domain"
)

// Store is an in-memory implementation of the storage interface.
type Store struct {
	mu sync.RWMutex

	shells map[string]*domain.Shell     // key: external id
	rules  map[string]*domain.AccessRule // key: id
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		shells: make(map[string]*domain.Shell),
		rules:  make(map[string]*domain.AccessRule),
	}
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

func (s *Store) CreateShell(_ context.Context, shell *domain.Shell) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.shells[shell.ExternalID]; exists {
		return domain.ErrAlreadyExists
	}
	s.shells[shell.ExternalID] = cloneShell(shell)
	return nil
}

func (s *Store) GetShellByExternalID(_ context.Context, externalID string) (*domain.Shell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shell, ok := s.shells[externalID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneShell(shell), nil
}

func (s *Store) DeleteShell(_ context.Context, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shells[externalID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.shells, externalID)
	return nil
}

func (s *Store) CountShells(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.shells), nil
}

func (s *Store) GetShellCreatedAt(_ context.Context, externalID string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shell, ok := s.shells[externalID]
	if !ok {
		return time.Time{}, domain.ErrNotFound
	}
	return shell.CreatedAt, nil
}

func (s *Store) ListShellsAfter(_ context.Context, after time.Time, afterID string, limit int) ([]*domain.Shell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ordered := s.orderedShells()
	result := make([]*domain.Shell, 0, limit)
	for _, shell := range ordered {
		if !afterAnchor(shell.CreatedAt, shell.ExternalID, after, afterID) {
			continue
		}
		result = append(result, cloneShell(shell))
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *Store) FindShellsByAttributes(_ context.Context, pairs []domain.AttributePair, after time.Time, afterID string, limit int) ([]domain.ShellContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ordered := s.orderedShells()
	result := make([]domain.ShellContext, 0, limit)
	for _, shell := range ordered {
		if !afterAnchor(shell.CreatedAt, shell.ExternalID, after, afterID) {
			continue
		}
		if !hasAllPairs(shell, pairs) {
			continue
		}
		clone := cloneShell(shell)
		result = append(result, domain.ShellContext{
			ExternalID: clone.ExternalID,
			CreatedAt:  clone.CreatedAt,
			Attributes: clone.Attributes,
		})
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *Store) CreateAccessRule(_ context.Context, rule *domain.AccessRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rules[rule.ID]; exists {
		return domain.ErrAlreadyExists
	}
	clone := *rule
	s.rules[rule.ID] = &clone
	return nil
}

func (s *Store) GetAccessRule(_ context.Context, id string) (*domain.AccessRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.rules[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *rule
	return &clone, nil
}

func (s *Store) ListAccessRules(_ context.Context) ([]*domain.AccessRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rules := make([]*domain.AccessRule, 0, len(s.rules))
	for _, rule := range s.rules {
		clone := *rule
		rules = append(rules, &clone)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].CreatedAt.Before(rules[j].CreatedAt) })
	return rules, nil
}

func (s *Store) UpdateAccessRule(_ context.Context, rule *domain.AccessRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[rule.ID]; !ok {
		return domain.ErrNotFound
	}
	clone := *rule
	s.rules[rule.ID] = &clone
	return nil
}

func (s *Store) DeleteAccessRule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.rules, id)
	return nil
}

func (s *Store) FetchValidRules(_ context.Context, tenant, wildcardMarker string, now time.Time) ([]domain.AccessRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var valid []domain.AccessRule
	for _, rule := range s.rules {
		if rule.TargetTenant != tenant && rule.TargetTenant != wildcardMarker {
			continue
		}
		if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
			continue
		}
		if rule.ValidTo != nil && now.After(*rule.ValidTo) {
			continue
		}
		valid = append(valid, *rule)
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].ID < valid[j].ID })
	return valid, nil
}

// orderedShells returns all shells sorted by (created_at, external_id).
func (s *Store) orderedShells() []*domain.Shell {
	ordered := make([]*domain.Shell, 0, len(s.shells))
	for _, shell := range s.shells {
		ordered = append(ordered, shell)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ExternalID < ordered[j].ExternalID
	})
	return ordered
}

func afterAnchor(createdAt time.Time, externalID string, after time.Time, afterID string) bool {
	if createdAt.After(after) {
		return true
	}
	return createdAt.Equal(after) && externalID > afterID
}

func hasAllPairs(shell *domain.Shell, pairs []domain.AttributePair) bool {
	for _, pair := range pairs {
		found := false
		for _, attr := range shell.Attributes {
			if attr.Name == pair.Name && attr.Value == pair.Value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func cloneShell(shell *domain.Shell) *domain.Shell {
	clone := *shell
	clone.Attributes = make([]domain.Attribute, len(shell.Attributes))
	for i, attr := range shell.Attributes {
		clone.Attributes[i] = attr
		if attr.ExternalSubjectIDs != nil {
			clone.Attributes[i].ExternalSubjectIDs = append([]string(nil), attr.ExternalSubjectIDs...)
		}
	}
	clone.Submodels = append([]domain.Submodel(nil), shell.Submodels...)
	return &clone
}
