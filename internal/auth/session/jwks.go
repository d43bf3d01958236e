package session

import (
	"context"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/smallbiznis/creditdesk/internal/auth/domain"
	"go.uber.org/zap"
)

// JWKSVerifier checks RS256 session tokens against the directory's published keys.
type JWKSVerifier struct {
	verifier *oidc.IDTokenVerifier
	log      *zap.Logger
}

// NewJWKSVerifier does not fetch the key set; keys are loaded on first use and
// refreshed when an unknown kid shows up.
func NewJWKSVerifier(ctx context.Context, jwksURL, issuer string, log *zap.Logger) *JWKSVerifier {
	keySet := oidc.NewRemoteKeySet(ctx, strings.TrimSpace(jwksURL))
	issuer = strings.TrimSpace(issuer)
	return &JWKSVerifier{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{
			SkipClientIDCheck: true,
			SkipIssuerCheck:   issuer == "",
		}),
		log: log.Named("session.jwks"),
	}
}

func (v *JWKSVerifier) Verify(ctx context.Context, raw string) (domain.Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.Claims{}, domain.ErrMissingSession
	}
	token, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		v.log.Debug("session token rejected", zap.Error(err))
		return domain.Claims{}, domain.ErrInvalidSession
	}

	var claims domain.TokenClaims
	if err := token.Claims(&claims); err != nil {
		return domain.Claims{}, domain.ErrInvalidSession
	}
	return claims.Claims()
}
