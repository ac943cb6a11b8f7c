// Package auth resolves the requester tenant identity from bearer tokens.
package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// TenantVerifier validates bearer tokens against an OIDC issuer and extracts
// the tenant id (business partner number) claim.
type TenantVerifier struct {
	verifier    *oidc.IDTokenVerifier
	tenantClaim string
}

// NewTenantVerifier creates a verifier using OIDC discovery.
func NewTenantVerifier(ctx context.Context, issuerURL, clientID, tenantClaim string) (*TenantVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{
		ClientID: clientID,
	})
	return &TenantVerifier{verifier: verifier, tenantClaim: tenantClaim}, nil
}

// TenantFromToken verifies the raw bearer token and returns the tenant id
// claim.
func (v *TenantVerifier) TenantFromToken(ctx context.Context, rawToken string) (string, error) {
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return "", fmt.Errorf("failed to verify token: %w", err)
	}
	var claims map[string]any
	if err := token.Claims(&claims); err != nil {
		return "", fmt.Errorf("failed to parse claims: %w", err)
	}
	tenant, ok := claims[v.tenantClaim].(string)
	if !ok || tenant == "" {
		return "", fmt.Errorf("token is missing the %q claim", v.tenantClaim)
	}
	return tenant, nil
}
