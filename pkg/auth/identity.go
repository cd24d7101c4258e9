package auth

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// DefaultAdminGroup is the identity-provider group allowed to manage books
const DefaultAdminGroup = "admins"

// Claim names issued by the identity provider
const (
	ClaimSubject = "sub"
	ClaimEmail   = "email"
	ClaimGroups  = "cognito:groups"
)

// Identity is the caller as asserted by pre-verified identity claims.
type Identity struct {
	UserID string
	Email  string
	Groups []string
}

// Authenticated reports whether the identity carries a subject
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// InGroup reports whether the identity belongs to group
func (i Identity) InGroup(group string) bool {
	return slices.Contains(i.Groups, group)
}

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity stores the caller identity in ctx
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the caller identity, or the zero Identity when none
// was attached.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey).(Identity)
	return id
}

// IdentityFromClaims builds an Identity from a claim map as delivered by an
// API Gateway authorizer. Values may be strings or, for groups, lists.
func IdentityFromClaims(claims map[string]any) Identity {
	return Identity{
		UserID: claimString(claims[ClaimSubject]),
		Email:  claimString(claims[ClaimEmail]),
		Groups: ParseGroups(claims[ClaimGroups]),
	}
}

// ParseGroups normalises the group claim. API Gateway flattens list claims
// to strings such as "[admins readers]", while other sources send
// "admins,readers" or a JSON array.
func ParseGroups(raw any) []string {
	var parts []string
	switch v := raw.(type) {
	case nil:
		return nil
	case []string:
		parts = v
	case []any:
		for _, item := range v {
			parts = append(parts, claimString(item))
		}
	case string:
		s := strings.TrimSpace(v)
		s = strings.TrimPrefix(s, "[")
		s = strings.TrimSuffix(s, "]")
		parts = strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || r == ' '
		})
	default:
		parts = []string{claimString(v)}
	}

	groups := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `"`)
		if p != "" {
			groups = append(groups, p)
		}
	}
	return groups
}

func claimString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
