// Package cursor implements the opaque keyset pagination token used by the
// registry's listing and lookup endpoints.
//
// The token only encodes the tie-break key (the external id) of the last
// item emitted on the prior page. The creation timestamp half of the page
// predicate is re-derived by querying that anchor row, so a token never goes
// stale just because timestamps drift between encoder and store.
package cursor

import (
	"encoding/base64"

	"github.com/twinforge/shell-registry/internal/domain"
)

// Cursor is a decoded scan position. The zero value means "start from the
// beginning".
type Cursor struct {
	lastID string
}

// Decode parses an opaque token. An empty token yields the start-of-scan
// cursor; anything unparseable is domain.ErrInvalidCursor.
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil || len(decoded) == 0 {
		return Cursor{}, domain.ErrInvalidCursor
	}
	return Cursor{lastID: string(decoded)}, nil
}

// Encode produces the opaque token for the given tie-break id.
func Encode(lastID string) string {
	return base64.StdEncoding.EncodeToString([]byte(lastID))
}

// Empty reports whether the cursor marks the start of the scan.
func (c Cursor) Empty() bool {
	return c.lastID == ""
}

// LastID returns the tie-break external id of the anchor row.
func (c Cursor) LastID() string {
	return c.lastID
}

// Page trims a pageSize+1 probe result to the page and derives the next
// token. Callers fetch one extra item beyond the page size; the presence of
// that item is the only signal that a further page exists.
func Page[T any](items []T, pageSize int, idOf func(T) string) ([]T, string) {
	if len(items) <= pageSize {
		return items, ""
	}
	page := items[:pageSize]
	return page, Encode(idOf(page[len(page)-1]))
}
