package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/scy"
	"github.com/viant/scy/auth/jwt/signer"
	"github.com/viant/scy/auth/jwt/verifier"
)

// TokenService mints and verifies the signed tokens embedded in approval
// links, so that a reviewer following the link is bound to one application.
type TokenService struct {
	signer   *signer.Service
	verifier *verifier.Service
	ttl      time.Duration
}

// NewTokenService creates a token service keyed by an HMAC secret resource.
func NewTokenService(ctx context.Context, hmacKeyURL string, ttl time.Duration) (*TokenService, error) {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	resource := &scy.Resource{URL: hmacKeyURL}

	jwtSigner := signer.New(&signer.Config{HMAC: resource})
	if err := jwtSigner.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize approval token signer: %w", err)
	}
	jwtVerifier := verifier.New(&verifier.Config{HMAC: resource})
	if err := jwtVerifier.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize approval token verifier: %w", err)
	}
	return &TokenService{signer: jwtSigner, verifier: jwtVerifier, ttl: ttl}, nil
}

// Create mints an approval token scoped to one application.
func (t *TokenService) Create(applicationID string) (string, error) {
	return t.signer.Create(t.ttl, map[string]interface{}{
		"sub":           applicationID,
		"applicationId": applicationID,
	})
}

// Verify checks a token and returns the application it is scoped to.
func (t *TokenService) Verify(ctx context.Context, token string) (string, error) {
	claims, err := t.verifier.VerifyClaims(ctx, token)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("approval token has no subject")
	}
	return claims.Subject, nil
}
