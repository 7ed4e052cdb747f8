// Package identity verifies third-party identity tokens.
package identity

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
)

const googleIssuer = "https://accounts.google.com"

// Claims are the profile claims extracted from a verified ID token.
type Claims struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

type Verifier interface {
	Verify(ctx context.Context, rawIDToken string) (*Claims, error)
}

// Google verifies Google Identity Services ID tokens against the issuer's
// published keys, checking signature, expiry and audience.
type Google struct {
	verifier *oidc.IDTokenVerifier
}

var _ Verifier = (*Google)(nil)

// NewGoogle fetches the Google OIDC discovery document, so it needs network
// access at construction time.
func NewGoogle(ctx context.Context, clientID string) (*Google, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, err
	}
	return &Google{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (g *Google) Verify(ctx context.Context, rawIDToken string) (*Claims, error) {
	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}

	var profile struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&profile); err != nil {
		return nil, err
	}

	return &Claims{
		Subject: idToken.Subject,
		Email:   profile.Email,
		Name:    profile.Name,
		Picture: profile.Picture,
	}, nil
}
