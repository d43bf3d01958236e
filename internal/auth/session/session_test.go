package session

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/creditdesk/internal/auth/domain"
	"github.com/smallbiznis/creditdesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestHMACVerifier(t *testing.T) {
	verifier := NewHMACVerifier("dev-secret", "https://issuer.test")
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).Unix()

	t.Run("role from public metadata", func(t *testing.T) {
		raw := signHS256(t, "dev-secret", jwt.MapClaims{
			"sub":             "user_admin",
			"iss":             "https://issuer.test",
			"exp":             exp,
			"public_metadata": map[string]any{"role": "admin"},
		})
		claims, err := verifier.Verify(ctx, raw)
		require.NoError(t, err)
		assert.Equal(t, "user_admin", claims.Subject)
		assert.True(t, claims.HasRole("ADMIN"))
	})

	t.Run("no role claim", func(t *testing.T) {
		raw := signHS256(t, "dev-secret", jwt.MapClaims{
			"sub": "user_1",
			"iss": "https://issuer.test",
			"exp": exp,
		})
		claims, err := verifier.Verify(ctx, raw)
		require.NoError(t, err)
		assert.Empty(t, claims.Role)
	})

	t.Run("wrong secret", func(t *testing.T) {
		raw := signHS256(t, "other-secret", jwt.MapClaims{"sub": "user_1", "iss": "https://issuer.test", "exp": exp})
		_, err := verifier.Verify(ctx, raw)
		assert.ErrorIs(t, err, domain.ErrInvalidSession)
	})

	t.Run("expired", func(t *testing.T) {
		raw := signHS256(t, "dev-secret", jwt.MapClaims{
			"sub": "user_1",
			"iss": "https://issuer.test",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		_, err := verifier.Verify(ctx, raw)
		assert.ErrorIs(t, err, domain.ErrInvalidSession)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		raw := signHS256(t, "dev-secret", jwt.MapClaims{"sub": "user_1", "iss": "https://elsewhere", "exp": exp})
		_, err := verifier.Verify(ctx, raw)
		assert.ErrorIs(t, err, domain.ErrInvalidSession)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := verifier.Verify(ctx, " ")
		assert.ErrorIs(t, err, domain.ErrMissingSession)
	})
}

func TestJWKSVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"kid": "key-1",
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
			"e":   "AQAB",
		}},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks)
	}))
	t.Cleanup(server.Close)

	sign := func(signer *rsa.PrivateKey, claims jwt.MapClaims) string {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		token.Header["kid"] = "key-1"
		raw, err := token.SignedString(signer)
		require.NoError(t, err)
		return raw
	}

	ctx := context.Background()
	verifier := NewJWKSVerifier(ctx, server.URL, "https://clerk.test", zaptest.NewLogger(t))

	raw := sign(key, jwt.MapClaims{
		"sub":      "user_admin",
		"iss":      "https://clerk.test",
		"exp":      time.Now().Add(time.Hour).Unix(),
		"iat":      time.Now().Unix(),
		"metadata": map[string]any{"role": "admin"},
	})
	claims, err := verifier.Verify(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, "user_admin", claims.Subject)
	assert.Equal(t, "admin", claims.Role)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	forged := sign(other, jwt.MapClaims{
		"sub": "user_admin",
		"iss": "https://clerk.test",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, err = verifier.Verify(ctx, forged)
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestNewVerifierWithoutConfiguration(t *testing.T) {
	verifier := NewVerifier(config.Config{}, zaptest.NewLogger(t))

	_, err := verifier.Verify(context.Background(), "token")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestManagerReadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	manager := NewManager(config.Config{})

	newContext := func(req *http.Request) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = req
		return c
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "cookie-token"})
	token, ok := manager.ReadToken(newContext(req))
	require.True(t, ok)
	assert.Equal(t, "header-token", token)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "cookie-token"})
	token, ok = manager.ReadToken(newContext(req))
	require.True(t, ok)
	assert.Equal(t, "cookie-token", token)

	_, ok = manager.ReadToken(newContext(httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.False(t, ok)
}
