// Package validation provides write-time validation for shells and access
// rules. The engine assumes rules reaching it already passed these checks;
// anything that slips through is refused at evaluation time instead of
// silently granting access.
package validation

import (
	"fmt"

	"github.com/twinforge/shell-registry/internal/domain"
)

const tenantIDPrefix = "BPNL"
const tenantIDLength = 16

// isAlphaNum returns true if the byte is an ASCII letter or digit.
func isAlphaNum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// ValidateTenantID validates a business partner number. Tenant ids must be
// in the format BPNL followed by twelve alphanumeric characters.
func ValidateTenantID(id string) error {
	if len(id) != tenantIDLength {
		return fmt.Errorf("tenant id must be %d characters long", tenantIDLength)
	}
	if id[:len(tenantIDPrefix)] != tenantIDPrefix {
		return fmt.Errorf("tenant id must start with %q", tenantIDPrefix)
	}
	for _, b := range []byte(id[len(tenantIDPrefix):]) {
		if !isAlphaNum(b) {
			return fmt.Errorf("tenant id can only contain letters and digits after %q", tenantIDPrefix)
		}
	}
	return nil
}

// ValidateShell validates a shell creation request.
func ValidateShell(req *domain.CreateShellRequest) ValidationErrors {
	var errs ValidationErrors
	if req.ExternalID == "" {
		errs = append(errs, ValidationError{Field: "externalId", Message: "must not be empty"})
	}
	for i, attr := range req.Attributes {
		if attr.Name == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("specificAssetIds[%d].name", i),
				Message: "must not be empty",
			})
		}
	}
	for i, submodel := range req.Submodels {
		if submodel.SemanticID == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("submodelDescriptors[%d].semanticId", i),
				Message: "must not be empty",
			})
		}
	}
	return errs
}

// ValidateAccessRule validates a rule before it is persisted.
func ValidateAccessRule(rule *domain.AccessRule) ValidationErrors {
	var errs ValidationErrors
	if rule.TargetTenant == "" {
		errs = append(errs, ValidationError{Field: "targetTenant", Message: "must not be empty"})
	}
	if rule.PolicyType != domain.PolicyTypeAAS {
		errs = append(errs, ValidationError{
			Field:   "policyType",
			Value:   string(rule.PolicyType),
			Message: fmt.Sprintf("must be %q", domain.PolicyTypeAAS),
		})
	}
	if rule.Policy.BPN == "" {
		errs = append(errs, ValidationError{Field: "policy.bpn", Message: "must not be empty"})
	}
	// A rule with no mandatory conditions can never be safely evaluated.
	if len(rule.Policy.MandatoryAttributes) == 0 {
		errs = append(errs, ValidationError{
			Field:   "policy.mandatorySpecificAssetIds",
			Message: "must contain at least one entry",
		})
	}
	for i, mandatory := range rule.Policy.MandatoryAttributes {
		if mandatory.Name == "" || mandatory.Value == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("policy.mandatorySpecificAssetIds[%d]", i),
				Message: "name and value must not be empty",
			})
		}
	}
	for i, name := range rule.Policy.VisibleAttributeNames {
		if name == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("policy.visibleSpecificAssetIdNames[%d]", i),
				Message: "must not be empty",
			})
		}
	}
	if rule.ValidFrom != nil && rule.ValidTo != nil && !rule.ValidFrom.Before(*rule.ValidTo) {
		errs = append(errs, ValidationError{
			Field:   "validFrom",
			Message: "must be before validTo",
		})
	}
	return errs
}
