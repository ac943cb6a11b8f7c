package access

import (
	"context"

	"github.com/twinforge/shell-registry/internal/domain"
)

// LegacyHandler is the rule-free visibility mode. Each attribute carries its
// own set of tenant markers; an attribute is visible to a requester that is
// the owning tenant, appears in the marker set, or qualifies through the
// wildcard marker for an allow-listed attribute name.
//
// Unlike the granular engine, this mode never hides a shell entirely: a
// requester without any marker still sees the shell with its attributes
// stripped down.
type LegacyHandler struct {
	owningTenant         string
	wildcardMarker       string
	wildcardAllowedTypes map[string]struct{}
}

// NewLegacyHandler creates the non-granular fallback handler.
func NewLegacyHandler(cfg Config) *LegacyHandler {
	allowed := make(map[string]struct{}, len(cfg.WildcardAllowedTypes))
	for _, name := range cfg.WildcardAllowedTypes {
		allowed[name] = struct{}{}
	}
	return &LegacyHandler{
		owningTenant:         cfg.OwningTenantID,
		wildcardMarker:       cfg.WildcardMarker,
		wildcardAllowedTypes: allowed,
	}
}

// FilterShell implements Handler.
func (h *LegacyHandler) FilterShell(_ context.Context, shell *domain.Shell, tenant string) (*domain.Shell, error) {
	if tenant == h.owningTenant {
		return shell, nil
	}

	out := *shell
	attrs := make([]domain.Attribute, 0, len(shell.Attributes))
	directAccess := false
	for _, attr := range shell.Attributes {
		if attr.Name == domain.GlobalAssetIDKey {
			attrs = append(attrs, attr)
			continue
		}
		markers := h.matchingMarkers(attr, tenant)
		if len(markers) == 0 {
			continue
		}
		for _, marker := range markers {
			if marker == tenant {
				directAccess = true
			}
		}
		redacted := attr
		redacted.ExternalSubjectIDs = markers
		attrs = append(attrs, redacted)
	}

	// A requester that qualified only through the wildcard path must not see
	// the canonical global identifier.
	if !directAccess {
		withoutGlobal := attrs[:0]
		for _, attr := range attrs {
			if attr.Name != domain.GlobalAssetIDKey {
				withoutGlobal = append(withoutGlobal, attr)
			}
		}
		attrs = withoutGlobal
	}
	out.Attributes = attrs
	return &out, nil
}

// matchingMarkers returns the subset of the attribute's tenant markers that
// grant visibility to the requester.
func (h *LegacyHandler) matchingMarkers(attr domain.Attribute, tenant string) []string {
	var markers []string
	for _, marker := range attr.ExternalSubjectIDs {
		if marker == tenant {
			markers = append(markers, marker)
			continue
		}
		if marker == h.wildcardMarker {
			if _, ok := h.wildcardAllowedTypes[attr.Name]; ok {
				markers = append(markers, marker)
			}
		}
	}
	return markers
}

// FilterShells implements Handler.
func (h *LegacyHandler) FilterShells(ctx context.Context, shells []*domain.Shell, tenant string) ([]*domain.Shell, error) {
	if tenant == h.owningTenant {
		return shells, nil
	}
	filtered := make([]*domain.Shell, 0, len(shells))
	for _, shell := range shells {
		redacted, err := h.FilterShell(ctx, shell, tenant)
		if err != nil {
			return nil, err
		}
		filtered = append(filtered, redacted)
	}
	return filtered, nil
}

// FilterVisibleIDs implements Handler. A candidate matches when its full
// attribute set contains every queried pair and every queried attribute is
// visible to the requester through its markers.
func (h *LegacyHandler) FilterVisibleIDs(_ context.Context, query []domain.AttributePair, candidates []domain.ShellContext, tenant string) ([]string, error) {
	ids := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if !containsAllPairs(candidate.Attributes, query) {
			continue
		}
		if tenant == h.owningTenant {
			ids = append(ids, candidate.ExternalID)
			continue
		}
		allVisible := true
		for _, pair := range query {
			if !h.pairVisible(candidate.Attributes, pair, tenant) {
				allVisible = false
				break
			}
		}
		if allVisible {
			ids = append(ids, candidate.ExternalID)
		}
	}
	return ids, nil
}

func (h *LegacyHandler) pairVisible(attrs []domain.Attribute, pair domain.AttributePair, tenant string) bool {
	for _, attr := range attrs {
		if attr.Name != pair.Name || attr.Value != pair.Value {
			continue
		}
		if attr.Name == domain.GlobalAssetIDKey {
			return true
		}
		if len(h.matchingMarkers(attr, tenant)) > 0 {
			return true
		}
	}
	return false
}
