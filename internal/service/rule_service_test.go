package service

import (
	"context"
	"errors"
	"testing"

	"github.com/twinforge/shell-registry/internal/domain"
	"github.com/twinforge/shell-registry/internal/storage/memory"
)

func newRuleService() (*RuleService, *memory.Store) {
	store := memory.New()
	return NewRuleService(store, testOwner), store
}

func validRuleRequest() *domain.CreateAccessRuleRequest {
	return &domain.CreateAccessRuleRequest{
		TargetTenant: testPartner,
		PolicyType:   domain.PolicyTypeAAS,
		Policy: domain.AccessRulePolicy{
			BPN:                   testPartner,
			MandatoryAttributes:   []domain.AttributePair{{Name: "partType", Value: "gearbox"}},
			VisibleAttributeNames: []string{"manufacturerPartId"},
		},
	}
}

func TestCreateRuleOwnerOnly(t *testing.T) {
	svc, _ := newRuleService()

	if _, err := svc.CreateRule(context.Background(), validRuleRequest(), testPartner); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("non-owner create must be unauthorized, got %v", err)
	}

	rule, err := svc.CreateRule(context.Background(), validRuleRequest(), testOwner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rule.ID == "" {
		t.Error("created rule must carry a generated id")
	}
	if rule.OwnerTenant != testOwner {
		t.Errorf("owner tenant must be stamped, got %q", rule.OwnerTenant)
	}
}

func TestCreateRuleValidatesPolicy(t *testing.T) {
	svc, _ := newRuleService()
	req := validRuleRequest()
	req.Policy.MandatoryAttributes = nil

	_, err := svc.CreateRule(context.Background(), req, testOwner)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("rule without mandatory attributes must be rejected, got %v", err)
	}
}

func TestUpdateRulePartial(t *testing.T) {
	svc, _ := newRuleService()
	ctx := context.Background()

	rule, err := svc.CreateRule(ctx, validRuleRequest(), testOwner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	desc := "partner gearbox visibility"
	updated, err := svc.UpdateRule(ctx, rule.ID, &domain.UpdateAccessRuleRequest{Description: &desc}, testOwner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Description != desc {
		t.Errorf("description not updated, got %q", updated.Description)
	}
	if updated.TargetTenant != testPartner {
		t.Errorf("untouched fields must survive a partial update, got %q", updated.TargetTenant)
	}
	if !updated.UpdatedAt.After(rule.UpdatedAt) && !updated.UpdatedAt.Equal(rule.UpdatedAt) {
		t.Error("updated timestamp should advance")
	}
}

func TestUpdateRuleRevalidates(t *testing.T) {
	svc, _ := newRuleService()
	ctx := context.Background()

	rule, err := svc.CreateRule(ctx, validRuleRequest(), testOwner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.UpdateRule(ctx, rule.ID, &domain.UpdateAccessRuleRequest{
		Policy: &domain.AccessRulePolicy{BPN: testPartner},
	}, testOwner)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("update removing mandatory attributes must be rejected, got %v", err)
	}
}

func TestRuleCRUDRoundTrip(t *testing.T) {
	svc, _ := newRuleService()
	ctx := context.Background()

	rule, err := svc.CreateRule(ctx, validRuleRequest(), testOwner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.GetRule(ctx, rule.ID, testOwner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TargetTenant != testPartner {
		t.Errorf("want %s, got %s", testPartner, got.TargetTenant)
	}

	rules, err := svc.ListRules(ctx, testOwner)
	if err != nil || len(rules) != 1 {
		t.Fatalf("want 1 rule, got %d (%v)", len(rules), err)
	}

	if err := svc.DeleteRule(ctx, rule.ID, testOwner); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetRule(ctx, rule.ID, testOwner); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestRuleReadsOwnerOnly(t *testing.T) {
	svc, _ := newRuleService()
	ctx := context.Background()

	if _, err := svc.ListRules(ctx, testPartner); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if _, err := svc.GetRule(ctx, "any", testPartner); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if err := svc.DeleteRule(ctx, "any", testPartner); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}
