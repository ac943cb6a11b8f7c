package domain

// VisibilityCriteria is the merged visibility decision for one
// (shell, requester) pair. It is computed on demand and never persisted.
//
// An attribute name in VisibleAttributeNames is visible with any value.
// A name only present in VisibleAttributeValues is value-restricted: it is
// visible solely with one of the listed values. PublicOnly is set when none
// of the matching rules names the requester directly, i.e. visibility was
// granted only through the wildcard mechanism.
type VisibilityCriteria struct {
	VisibleAttributeNames  map[string]struct{}
	VisibleAttributeValues map[string]map[string]struct{}
	VisibleSemanticIDs     map[string]struct{}
	PublicOnly             bool
}

// NewVisibilityCriteria returns empty criteria ready to be merged into.
func NewVisibilityCriteria() *VisibilityCriteria {
	return &VisibilityCriteria{
		VisibleAttributeNames:  make(map[string]struct{}),
		VisibleAttributeValues: make(map[string]map[string]struct{}),
		VisibleSemanticIDs:     make(map[string]struct{}),
	}
}

// AttributeVisible reports whether the attribute passes the criteria, either
// by unrestricted name visibility or by a value-restricted allowance.
func (c *VisibilityCriteria) AttributeVisible(name, value string) bool {
	if _, ok := c.VisibleAttributeNames[name]; ok {
		return true
	}
	values, ok := c.VisibleAttributeValues[name]
	if !ok {
		return false
	}
	_, ok = values[value]
	return ok
}

// AllowValue records a value-restricted allowance for an attribute name.
func (c *VisibilityCriteria) AllowValue(name, value string) {
	values, ok := c.VisibleAttributeValues[name]
	if !ok {
		values = make(map[string]struct{})
		c.VisibleAttributeValues[name] = values
	}
	values[value] = struct{}{}
}

// SemanticIDVisible reports whether submodels carrying the semantic id pass.
func (c *VisibilityCriteria) SemanticIDVisible(semanticID string) bool {
	_, ok := c.VisibleSemanticIDs[semanticID]
	return ok
}
