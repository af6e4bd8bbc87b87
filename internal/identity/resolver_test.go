package identity_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carechat/backend/internal/identity"
)

// tokenWithPayload builds a signed-token-shaped string whose middle segment
// is the given JSON. The signature is garbage on purpose: the peek resolver
// must not care.
func tokenWithPayload(payload string) string {
	return "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString([]byte(payload)) + ".sig"
}

func TestClaimPeekResolver(t *testing.T) {
	r := identity.ClaimPeekResolver{}

	tests := []struct {
		name string
		h    identity.Handshake
		want string
	}{
		{
			name: "direct id wins over token",
			h:    identity.Handshake{UserID: "u-1", Token: tokenWithPayload(`{"sub":"other"}`)},
			want: "u-1",
		},
		{
			name: "subject claim",
			h:    identity.Handshake{Token: tokenWithPayload(`{"sub":"u-42"}`)},
			want: "u-42",
		},
		{
			name: "numeric subject keeps canonical form",
			h:    identity.Handshake{Token: tokenWithPayload(`{"sub":42}`)},
			want: "42",
		},
		{
			name: "explicit user id",
			h:    identity.Handshake{Token: tokenWithPayload(`{"userId":"u-7"}`)},
			want: "u-7",
		},
		{
			name: "nested user id",
			h:    identity.Handshake{Token: tokenWithPayload(`{"user":{"id":"u-8"}}`)},
			want: "u-8",
		},
		{
			name: "email fallback",
			h:    identity.Handshake{Token: tokenWithPayload(`{"email":"a@b.example"}`)},
			want: "a@b.example",
		},
		{
			name: "nested data id fallback",
			h:    identity.Handshake{Token: tokenWithPayload(`{"data":{"id":"u-9"}}`)},
			want: "u-9",
		},
		{
			name: "subject outranks the other claims",
			h:    identity.Handshake{Token: tokenWithPayload(`{"email":"a@b.example","sub":"u-1","userId":"u-2"}`)},
			want: "u-1",
		},
		{
			name: "no recognized claims",
			h:    identity.Handshake{Token: tokenWithPayload(`{"iat":123}`)},
			want: "",
		},
		{
			name: "undecodable middle segment",
			h:    identity.Handshake{Token: "aaa.!!!.ccc"},
			want: "",
		},
		{
			name: "middle segment is not json",
			h:    identity.Handshake{Token: tokenWithPayload(`not-json`)},
			want: "",
		},
		{
			name: "non-token-shaped string used verbatim",
			h:    identity.Handshake{Token: "plain-user-id"},
			want: "plain-user-id",
		},
		{
			name: "four segments are still not token-shaped",
			h:    identity.Handshake{Token: "a.b.c.d"},
			want: "a.b.c.d",
		},
		{
			name: "empty handshake",
			h:    identity.Handshake{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.h))
		})
	}
}

func TestVerifyingResolver(t *testing.T) {
	secret := "test-secret"
	r := identity.NewVerifyingResolver(secret)

	sign := func(secret string, claims jwt.MapClaims) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		s, err := token.SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}

	t.Run("valid signature", func(t *testing.T) {
		tok := sign(secret, jwt.MapClaims{
			"sub": "u-11",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		assert.Equal(t, "u-11", r.Resolve(identity.Handshake{Token: tok}))
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		tok := sign("other-secret", jwt.MapClaims{
			"sub": "u-11",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		assert.Empty(t, r.Resolve(identity.Handshake{Token: tok}))
	})

	t.Run("expired token rejected", func(t *testing.T) {
		tok := sign(secret, jwt.MapClaims{
			"sub": "u-11",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		assert.Empty(t, r.Resolve(identity.Handshake{Token: tok}))
	})

	t.Run("plain string is not accepted", func(t *testing.T) {
		assert.Empty(t, r.Resolve(identity.Handshake{Token: "plain-user-id"}))
	})

	t.Run("direct id still honored", func(t *testing.T) {
		assert.Equal(t, "u-1", r.Resolve(identity.Handshake{UserID: "u-1"}))
	})
}
