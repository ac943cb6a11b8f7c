package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/twinforge/shell-registry/internal/validation"
)

type contextKey string

const tenantContextKey contextKey = "tenant_id"

// TokenVerifier validates a raw bearer token and returns the tenant id it
// carries.
type TokenVerifier interface {
	TenantFromToken(ctx context.Context, rawToken string) (string, error)
}

// Tenant creates middleware resolving the requester tenant identity. With a
// verifier configured the tenant comes from a verified bearer token claim;
// otherwise it is read from the trusted header set by an authenticating
// gateway. Requests without a well-formed tenant id are rejected.
func Tenant(verifier TokenVerifier, trustedHeader string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tenant string

			if verifier != nil {
				authHeader := r.Header.Get("Authorization")
				if authHeader == "" {
					http.Error(w, `{"code":401,"message":"missing authorization header"}`, http.StatusUnauthorized)
					return
				}
				rawToken, ok := strings.CutPrefix(authHeader, "Bearer ")
				if !ok || rawToken == "" {
					http.Error(w, `{"code":401,"message":"invalid authorization header format"}`, http.StatusUnauthorized)
					return
				}
				verified, err := verifier.TenantFromToken(r.Context(), rawToken)
				if err != nil {
					http.Error(w, `{"code":401,"message":"invalid token"}`, http.StatusUnauthorized)
					return
				}
				tenant = verified
			} else {
				tenant = r.Header.Get(trustedHeader)
				if tenant == "" {
					http.Error(w, `{"code":401,"message":"missing tenant id header"}`, http.StatusUnauthorized)
					return
				}
			}

			if err := validation.ValidateTenantID(tenant); err != nil {
				http.Error(w, `{"code":401,"message":"malformed tenant id"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), tenantContextKey, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetTenantFromContext retrieves the requester tenant id from the request
// context.
func GetTenantFromContext(ctx context.Context) string {
	tenant, _ := ctx.Value(tenantContextKey).(string)
	return tenant
}
