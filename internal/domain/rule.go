package domain

import "time"

// PolicyType identifies the resource kind a rule policy applies to.
type PolicyType string

// PolicyTypeAAS is the only policy type currently supported.
const PolicyTypeAAS PolicyType = "AAS"

// AccessRulePolicy is the condition set of a rule, stored as typed fields so
// malformed policies are caught structurally instead of at evaluation time.
//
// MandatoryAttributes are ANDed: every pair must be present on a shell for
// the rule to apply. VisibleAttributeNames and VisibleSemanticIDs widen what
// the target tenant may see once the rule applies.
type AccessRulePolicy struct {
	BPN                   string          `json:"bpn"`
	MandatoryAttributes   []AttributePair `json:"mandatorySpecificAssetIds"`
	VisibleAttributeNames []string        `json:"visibleSpecificAssetIdNames"`
	VisibleSemanticIDs    []string        `json:"visibleSemanticIds"`
}

// AccessRule is a declarative grant from the owning tenant to a target
// tenant. ValidFrom/ValidTo bound the validity window; a nil bound is
// open-ended.
type AccessRule struct {
	ID           string           `json:"id" db:"id"`
	OwnerTenant  string           `json:"ownerTenant" db:"owner_tenant"`
	TargetTenant string           `json:"targetTenant" db:"target_tenant"`
	PolicyType   PolicyType       `json:"policyType" db:"policy_type"`
	Policy       AccessRulePolicy `json:"policy" db:"-"`
	Description  string           `json:"description,omitempty" db:"description"`
	ValidFrom    *time.Time       `json:"validFrom,omitempty" db:"valid_from"`
	ValidTo      *time.Time       `json:"validTo,omitempty" db:"valid_to"`
	CreatedAt    time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time        `json:"updatedAt" db:"updated_at"`
}

// CreateAccessRuleRequest is the request body for creating a rule.
type CreateAccessRuleRequest struct {
	TargetTenant string           `json:"targetTenant"`
	PolicyType   PolicyType       `json:"policyType"`
	Policy       AccessRulePolicy `json:"policy"`
	Description  string           `json:"description,omitempty"`
	ValidFrom    *time.Time       `json:"validFrom,omitempty"`
	ValidTo      *time.Time       `json:"validTo,omitempty"`
}

// UpdateAccessRuleRequest is the request body for updating a rule.
type UpdateAccessRuleRequest struct {
	TargetTenant string            `json:"targetTenant,omitempty"`
	Policy       *AccessRulePolicy `json:"policy,omitempty"`
	Description  *string           `json:"description,omitempty"`
	ValidFrom    *time.Time        `json:"validFrom,omitempty"`
	ValidTo      *time.Time        `json:"validTo,omitempty"`
}
