package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twinforge/shell-registry/internal/domain"
)

// Config carries the deployment-wide identity settings of the engine.
type Config struct {
	// OwningTenantID is the single tenant with unconditional full visibility.
	OwningTenantID string
	// WildcardMarker is the sentinel tenant used by rules that grant limited
	// public visibility.
	WildcardMarker string
	// WildcardAllowedTypes is the allow-list of attribute names a wildcard
	// rule may expose. Wildcard rules can never broaden visibility beyond it.
	WildcardAllowedTypes []string
}

// Engine is the granular, rule-based visibility implementation of Handler.
type Engine struct {
	rules                RuleStore
	owningTenant         string
	wildcardMarker       string
	wildcardAllowedTypes map[string]struct{}
	now                  func() time.Time
}

// NewEngine creates a granular access engine backed by the given rule store.
func NewEngine(rules RuleStore, cfg Config) *Engine {
	allowed := make(map[string]struct{}, len(cfg.WildcardAllowedTypes))
	for _, name := range cfg.WildcardAllowedTypes {
		allowed[name] = struct{}{}
	}
	return &Engine{
		rules:                rules,
		owningTenant:         cfg.OwningTenantID,
		wildcardMarker:       cfg.WildcardMarker,
		wildcardAllowedTypes: allowed,
		now:                  time.Now,
	}
}

// candidatePolicies fetches the requester's currently valid rules and
// prepares their policies for evaluation. Rules targeting the wildcard
// marker have their visible-name set intersected with the allow-list so a
// wildcard rule can only expose allow-listed attribute names.
//
// A store failure resolves to a deny: the engine never answers "visible"
// without having proven it.
func (e *Engine) candidatePolicies(ctx context.Context, tenant string) ([]domain.AccessRulePolicy, error) {
	rules, err := e.rules.FetchValidRules(ctx, tenant, e.now())
	if err != nil {
		return nil, fmt.Errorf("%w: fetching rules: %v", domain.ErrDenyAccess, err)
	}
	if len(rules) == 0 {
		return nil, domain.ErrNoRulesForTenant
	}
	policies := make([]domain.AccessRulePolicy, 0, len(rules))
	for _, rule := range rules {
		if len(rule.Policy.MandatoryAttributes) == 0 {
			return nil, fmt.Errorf("%w: rule %s has no mandatory attributes", domain.ErrInvalidPolicy, rule.ID)
		}
		policy := rule.Policy
		if rule.TargetTenant == e.wildcardMarker {
			policy.VisibleAttributeNames = e.intersectAllowedTypes(policy.VisibleAttributeNames)
		}
		policies = append(policies, policy)
	}
	return policies, nil
}

func (e *Engine) intersectAllowedTypes(names []string) []string {
	kept := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := e.wildcardAllowedTypes[name]; ok {
			kept = append(kept, name)
		}
	}
	return kept
}

// matchingPolicies narrows candidate policies to those whose mandatory
// attribute set is fully present on the shell.
func matchingPolicies(policies []domain.AccessRulePolicy, attrs []domain.Attribute) []domain.AccessRulePolicy {
	present := make(map[domain.AttributePair]struct{}, len(attrs))
	for _, a := range attrs {
		present[domain.AttributePair{Name: a.Name, Value: a.Value}] = struct{}{}
	}
	matching := make([]domain.AccessRulePolicy, 0, len(policies))
	for _, policy := range policies {
		satisfied := true
		for _, mandatory := range policy.MandatoryAttributes {
			if _, ok := present[mandatory]; !ok {
				satisfied = false
				break
			}
		}
		if satisfied {
			matching = append(matching, policy)
		}
	}
	return matching
}

// compileCriteria merges the matching policies into one visibility decision.
//
// A name that is both mandatory and declared visible in the same rule is not
// unconditionally visible: it becomes value-restricted to the mandatory
// value, so a rule cannot expose other values of an attribute it only
// required a specific value of.
func compileCriteria(matching []domain.AccessRulePolicy, tenant string) *domain.VisibilityCriteria {
	criteria := domain.NewVisibilityCriteria()
	publicOnly := true
	for _, policy := range matching {
		mandatoryNames := make(map[string]struct{}, len(policy.MandatoryAttributes))
		for _, mandatory := range policy.MandatoryAttributes {
			mandatoryNames[mandatory.Name] = struct{}{}
		}
		visibleNames := make(map[string]struct{}, len(policy.VisibleAttributeNames))
		for _, name := range policy.VisibleAttributeNames {
			visibleNames[name] = struct{}{}
			if _, restricted := mandatoryNames[name]; !restricted {
				criteria.VisibleAttributeNames[name] = struct{}{}
			}
		}
		for _, mandatory := range policy.MandatoryAttributes {
			if _, ok := visibleNames[mandatory.Name]; ok {
				criteria.AllowValue(mandatory.Name, mandatory.Value)
			}
		}
		for _, semanticID := range policy.VisibleSemanticIDs {
			criteria.VisibleSemanticIDs[semanticID] = struct{}{}
		}
		if policy.BPN == tenant {
			publicOnly = false
		}
	}
	criteria.PublicOnly = publicOnly
	return criteria
}

// visibilityCriteria computes the merged criteria for one shell from
// already-fetched candidate policies.
func visibilityCriteria(policies []domain.AccessRulePolicy, attrs []domain.Attribute, tenant string) (*domain.VisibilityCriteria, error) {
	matching := matchingPolicies(policies, attrs)
	if len(matching) == 0 {
		return nil, domain.ErrNoMatchingRules
	}
	return compileCriteria(matching, tenant), nil
}

// FilterShell implements Handler.
func (e *Engine) FilterShell(ctx context.Context, shell *domain.Shell, tenant string) (*domain.Shell, error) {
	if tenant == e.owningTenant {
		return shell, nil
	}
	policies, err := e.candidatePolicies(ctx, tenant)
	if err != nil {
		return nil, err
	}
	criteria, err := visibilityCriteria(policies, shell.Attributes, tenant)
	if err != nil {
		return nil, err
	}
	return redactShell(shell, criteria), nil
}

// redactShell produces a new shell value holding only the attributes and
// submodels the criteria allow. The reserved globalAssetId attribute always
// passes unless the decision is public-only; a public-tier viewer must never
// see the canonical global identifier.
func redactShell(shell *domain.Shell, criteria *domain.VisibilityCriteria) *domain.Shell {
	out := *shell
	attrs := make([]domain.Attribute, 0, len(shell.Attributes))
	for _, attr := range shell.Attributes {
		if attr.Name == domain.GlobalAssetIDKey {
			if !criteria.PublicOnly {
				attrs = append(attrs, attr)
			}
			continue
		}
		if criteria.AttributeVisible(attr.Name, attr.Value) {
			attrs = append(attrs, attr)
		}
	}
	submodels := make([]domain.Submodel, 0, len(shell.Submodels))
	for _, submodel := range shell.Submodels {
		if criteria.SemanticIDVisible(submodel.SemanticID) {
			submodels = append(submodels, submodel)
		}
	}
	out.Attributes = attrs
	out.Submodels = submodels
	return &out
}

// FilterShells implements Handler. The rule fetch happens once for the whole
// batch; each shell is then an independent, pure evaluation, so denied
// shells are dropped without aborting the rest.
func (e *Engine) FilterShells(ctx context.Context, shells []*domain.Shell, tenant string) ([]*domain.Shell, error) {
	if tenant == e.owningTenant {
		return shells, nil
	}
	policies, err := e.candidatePolicies(ctx, tenant)
	if err != nil {
		if errors.Is(err, domain.ErrNoRulesForTenant) {
			return []*domain.Shell{}, nil
		}
		return nil, err
	}
	visible := make([]*domain.Shell, 0, len(shells))
	for _, shell := range shells {
		criteria, err := visibilityCriteria(policies, shell.Attributes, tenant)
		if err != nil {
			continue
		}
		visible = append(visible, redactShell(shell, criteria))
	}
	return visible, nil
}

// FilterVisibleIDs implements Handler. A candidate id is included iff the
// shell's full attribute set contains every queried pair and every queried
// attribute name is visible under that shell's criteria. The relative order
// of candidates is preserved.
func (e *Engine) FilterVisibleIDs(ctx context.Context, query []domain.AttributePair, candidates []domain.ShellContext, tenant string) ([]string, error) {
	if tenant == e.owningTenant {
		ids := make([]string, 0, len(candidates))
		for _, candidate := range candidates {
			ids = append(ids, candidate.ExternalID)
		}
		return ids, nil
	}
	policies, err := e.candidatePolicies(ctx, tenant)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if !containsAllPairs(candidate.Attributes, query) {
			continue
		}
		matching := matchingPolicies(policies, candidate.Attributes)
		if len(matching) == 0 {
			continue
		}
		criteria := compileCriteria(matching, tenant)
		queryVisible := true
		for _, pair := range query {
			if !criteria.AttributeVisible(pair.Name, pair.Value) {
				queryVisible = false
				break
			}
		}
		if queryVisible {
			ids = append(ids, candidate.ExternalID)
		}
	}
	return ids, nil
}
