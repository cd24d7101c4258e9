package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGroups(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want []string
	}{
		{"nil", nil, nil},
		{"empty", "", []string{}},
		{"comma separated", "admins, readers", []string{"admins", "readers"}},
		{"gateway flattened", "[admins readers]", []string{"admins", "readers"}},
		{"json array", []any{"admins", "readers"}, []string{"admins", "readers"}},
		{"string slice", []string{"admins"}, []string{"admins"}},
		{"quoted", `["admins","x"]`, []string{"admins", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseGroups(tt.raw))
		})
	}
}

func TestIdentityFromClaims(t *testing.T) {
	id := IdentityFromClaims(map[string]any{
		"sub":            "user-1",
		"email":          "a@example.com",
		"cognito:groups": "admins",
	})

	assert.True(t, id.Authenticated())
	assert.True(t, id.InGroup(DefaultAdminGroup))
	assert.Equal(t, "a@example.com", id.Email)

	anon := IdentityFromClaims(map[string]any{})
	assert.False(t, anon.Authenticated())
	assert.False(t, anon.InGroup(DefaultAdminGroup))
}

func TestIdentityContext(t *testing.T) {
	ctx := WithIdentity(context.Background(), Identity{UserID: "u"})
	assert.Equal(t, "u", FromContext(ctx).UserID)
	assert.False(t, FromContext(context.Background()).Authenticated())
}

func TestJWT_RoundTrip(t *testing.T) {
	cfg := JWTConfig{SecretKey: "secret", Issuer: "books-library"}
	gen, err := NewJWTGenerator(cfg, time.Hour)
	require.NoError(t, err)
	val, err := NewJWTValidator(cfg)
	require.NoError(t, err)

	token, err := gen.GenerateToken(Identity{UserID: "u1", Email: "e@x", Groups: []string{"admins"}})
	require.NoError(t, err)

	claims, err := val.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	id := claims.Identity()
	assert.Equal(t, "u1", id.UserID)
	assert.True(t, id.InGroup("admins"))
}

func TestJWT_Rejections(t *testing.T) {
	cfg := JWTConfig{SecretKey: "secret", Issuer: "books-library"}
	val, err := NewJWTValidator(cfg)
	require.NoError(t, err)

	_, err = val.ValidateToken("")
	assert.ErrorIs(t, err, ErrMissingToken)

	other, _ := NewJWTGenerator(JWTConfig{SecretKey: "other", Issuer: "books-library"}, time.Hour)
	token, _ := other.GenerateToken(Identity{UserID: "u1"})
	_, err = val.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	expired, _ := NewJWTGenerator(cfg, -time.Minute)
	token, _ = expired.GenerateToken(Identity{UserID: "u1"})
	_, err = val.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	gen, _ := NewJWTGenerator(cfg, time.Hour)
	token, _ = gen.GenerateToken(Identity{})
	_, err = val.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidClaims)

	_, err = NewJWTValidator(JWTConfig{})
	assert.Error(t, err)
}
