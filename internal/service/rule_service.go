package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/twinforge/shell-registry/internal/domain"
	"github.com/twinforge/shell-registry/internal/storage"
	"github.com/twinforge/shell-registry/internal/validation"
)

// RuleService manages access rule administration. Rules are created by and
// owned by the owning tenant; the visibility engine only ever reads them.
type RuleService struct {
	store        storage.Storage
	owningTenant string
}

// NewRuleService creates a rule service.
func NewRuleService(store storage.Storage, owningTenant string) *RuleService {
	return &RuleService{store: store, owningTenant: owningTenant}
}

// CreateRule validates and persists a new access rule.
func (s *RuleService) CreateRule(ctx context.Context, req *domain.CreateAccessRuleRequest, tenant string) (*domain.AccessRule, error) {
	if tenant != s.owningTenant {
		return nil, domain.ErrUnauthorized
	}
	now := time.Now().UTC()
	rule := &domain.AccessRule{
		ID:           uuid.New().String(),
		OwnerTenant:  s.owningTenant,
		TargetTenant: req.TargetTenant,
		PolicyType:   req.PolicyType,
		Policy:       req.Policy,
		Description:  req.Description,
		ValidFrom:    req.ValidFrom,
		ValidTo:      req.ValidTo,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if errs := validation.ValidateAccessRule(rule); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, errs.Error())
	}
	if err := s.store.CreateAccessRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// GetRule returns one rule by id.
func (s *RuleService) GetRule(ctx context.Context, id, tenant string) (*domain.AccessRule, error) {
	if tenant != s.owningTenant {
		return nil, domain.ErrUnauthorized
	}
	return s.store.GetAccessRule(ctx, id)
}

// ListRules returns all rules.
func (s *RuleService) ListRules(ctx context.Context, tenant string) ([]*domain.AccessRule, error) {
	if tenant != s.owningTenant {
		return nil, domain.ErrUnauthorized
	}
	return s.store.ListAccessRules(ctx)
}

// UpdateRule applies a partial update to an existing rule.
func (s *RuleService) UpdateRule(ctx context.Context, id string, req *domain.UpdateAccessRuleRequest, tenant string) (*domain.AccessRule, error) {
	if tenant != s.owningTenant {
		return nil, domain.ErrUnauthorized
	}
	rule, err := s.store.GetAccessRule(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.TargetTenant != "" {
		rule.TargetTenant = req.TargetTenant
	}
	if req.Policy != nil {
		rule.Policy = *req.Policy
	}
	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.ValidFrom != nil {
		rule.ValidFrom = req.ValidFrom
	}
	if req.ValidTo != nil {
		rule.ValidTo = req.ValidTo
	}
	rule.UpdatedAt = time.Now().UTC()
	if errs := validation.ValidateAccessRule(rule); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, errs.Error())
	}
	if err := s.store.UpdateAccessRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// DeleteRule removes a rule.
func (s *RuleService) DeleteRule(ctx context.Context, id, tenant string) error {
	if tenant != s.owningTenant {
		return domain.ErrUnauthorized
	}
	return s.store.DeleteAccessRule(ctx, id)
}
