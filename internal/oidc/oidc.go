package oidc

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/qanda/qanda/backend/go-services/pkg/middleware"
)

// Verifier checks IdP-issued ID tokens against the issuer's published keys.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the issuer and builds a verifier for clientID.
// IdPs whose ID tokens carry the app client id as audience work unchanged.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return NewVerifierFromProvider(provider, clientID), nil
}

// NewVerifierFromProvider builds a Verifier from an already discovered provider.
func NewVerifierFromProvider(provider *oidc.Provider, clientID string) *Verifier {
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}
}

// Verify verifies the raw ID token and returns it as a middleware.Token
func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}
