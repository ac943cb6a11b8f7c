package domain

import "time"

// GlobalAssetIDKey is the reserved attribute name carrying the canonical
// global identifier of a shell.
const GlobalAssetIDKey = "globalAssetId"

// Attribute is a specific asset id attached to a shell: a named value pair.
// ExternalSubjectIDs carries the tenant markers consumed by the legacy
// (non-granular) access mode; the granular mode ignores it.
type Attribute struct {
	Name               string   `json:"name" db:"name"`
	Value              string   `json:"value" db:"value"`
	ExternalSubjectIDs []string `json:"externalSubjectIds,omitempty" db:"-"`
}

// AttributePair is a bare (name, value) pair, used for mandatory rule
// conditions and for exact-match lookup queries.
type AttributePair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Submodel is a sub-resource of a shell. Visibility of a submodel is gated
// by its semantic id.
type Submodel struct {
	ID         string `json:"id" db:"id"`
	IDShort    string `json:"idShort,omitempty" db:"id_short"`
	SemanticID string `json:"semanticId" db:"semantic_id"`
}

// Shell is one registry record. CreatedAt is assigned once at creation and
// never changes; together with ExternalID it forms the pagination order.
type Shell struct {
	ID         string      `json:"id" db:"id"`
	ExternalID string      `json:"externalId" db:"external_id"`
	IDShort    string      `json:"idShort,omitempty" db:"id_short"`
	CreatedAt  time.Time   `json:"createdAt" db:"created_at"`
	Attributes []Attribute `json:"specificAssetIds" db:"-"`
	Submodels  []Submodel  `json:"submodelDescriptors" db:"-"`
}

// ShellContext is the minimal projection of a shell needed for a visibility
// decision during bulk lookup.
type ShellContext struct {
	ExternalID string
	CreatedAt  time.Time
	Attributes []Attribute
}

// ShellPage is one page of a keyset-paginated shell listing. Cursor is empty
// when no further rows exist.
type ShellPage struct {
	Items  []*Shell `json:"items"`
	Cursor string   `json:"cursor,omitempty"`
}

// LookupPage is one page of a lookup result.
type LookupPage struct {
	IDs    []string `json:"result"`
	Cursor string   `json:"cursor,omitempty"`
}

// CreateShellRequest is the request body for registering a shell.
type CreateShellRequest struct {
	ExternalID string      `json:"externalId"`
	IDShort    string      `json:"idShort,omitempty"`
	Attributes []Attribute `json:"specificAssetIds"`
	Submodels  []Submodel  `json:"submodelDescriptors,omitempty"`
}

// LookupRequest is the request body for an exact-match lookup.
type LookupRequest struct {
	AssetIDs []AttributePair `json:"assetIds"`
	PageSize int             `json:"pageSize,omitempty"`
	Cursor   string          `json:"cursor,omitempty"`
}
