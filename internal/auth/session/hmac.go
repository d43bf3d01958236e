package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/creditdesk/internal/auth/domain"
)

// HMACVerifier checks HS256 session tokens signed with a shared secret. It is
// meant for local development and tests where no JWKS endpoint exists.
type HMACVerifier struct {
	secret []byte
	issuer string
}

func NewHMACVerifier(secret, issuer string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret), issuer: strings.TrimSpace(issuer)}
}

type hmacClaims struct {
	Role           string         `json:"role"`
	Metadata       map[string]any `json:"metadata"`
	PublicMetadata map[string]any `json:"public_metadata"`
	jwt.RegisteredClaims
}

func (v *HMACVerifier) Verify(ctx context.Context, raw string) (domain.Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.Claims{}, domain.ErrMissingSession
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}

	var parsed hmacClaims
	token, err := jwt.ParseWithClaims(raw, &parsed, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, options...)
	if err != nil || !token.Valid {
		return domain.Claims{}, domain.ErrInvalidSession
	}

	return domain.TokenClaims{
		Subject:        parsed.Subject,
		Role:           parsed.Role,
		Metadata:       parsed.Metadata,
		PublicMetadata: parsed.PublicMetadata,
	}.Claims()
}
