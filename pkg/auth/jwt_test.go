package auth

import (
	"context"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

func TestNewValidator_BadURL(t *testing.T) {
	if _, err := NewValidator("http://127.0.0.1:1/jwks.json", "", ""); err == nil {
		t.Fatalf("expected error for unreachable JWKS URL")
	}
}

func TestValidateToken(t *testing.T) {
	validator, privateKey, issuer, audience := setupTestValidator(t)
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		tokenString := signTestJWT(t, privateKey, issuer, audience, "alice", map[string]interface{}{
			"email": "alice@example.com",
			"role":  "admin",
		})

		claims, err := validator.ValidateToken(ctx, tokenString)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if claims.Subject != "alice" {
			t.Errorf("subject = %q, want alice", claims.Subject)
		}
		if claims.Email != "alice@example.com" {
			t.Errorf("email = %q", claims.Email)
		}
		if claims.Role != "admin" {
			t.Errorf("role = %q", claims.Role)
		}
	})

	t.Run("wrong issuer", func(t *testing.T) {
		tokenString := signTestJWT(t, privateKey, "https://evil.example", audience, "alice", nil)
		if _, err := validator.ValidateToken(ctx, tokenString); err == nil {
			t.Errorf("expected issuer mismatch to fail")
		}
	})

	t.Run("wrong audience", func(t *testing.T) {
		tokenString := signTestJWT(t, privateKey, issuer, "someone-else", "alice", nil)
		if _, err := validator.ValidateToken(ctx, tokenString); err == nil {
			t.Errorf("expected audience mismatch to fail")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		token := jwt.New()
		_ = token.Set(jwt.IssuerKey, issuer)
		_ = token.Set(jwt.AudienceKey, audience)
		_ = token.Set(jwt.SubjectKey, "alice")
		_ = token.Set(jwt.ExpirationKey, time.Now().Add(-time.Hour))

		key, err := jwk.FromRaw(privateKey)
		if err != nil {
			t.Fatalf("failed to build key: %v", err)
		}
		_ = key.Set(jwk.KeyIDKey, testKeyID)

		signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256, key))
		if err != nil {
			t.Fatalf("failed to sign: %v", err)
		}

		if _, err := validator.ValidateToken(ctx, string(signed)); err == nil {
			t.Errorf("expected expired token to fail")
		}
	})

	t.Run("unsigned garbage", func(t *testing.T) {
		if _, err := validator.ValidateToken(ctx, "not.a.token"); err == nil {
			t.Errorf("expected parse failure")
		}
	})

	t.Run("token signed by unknown key", func(t *testing.T) {
		otherKey := generateRSAKeyPair(t)
		tokenString := signTestJWT(t, otherKey, issuer, audience, "alice", nil)
		if _, err := validator.ValidateToken(ctx, tokenString); err == nil {
			t.Errorf("expected signature verification to fail")
		}
	})
}
