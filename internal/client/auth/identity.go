// Package auth resolves the identity of the owner on whose behalf weeks are
// read and written. Identities come from signed tokens, verified locally so
// that resolution works without network access.
package auth

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/weeklog/internal/common"
)

// IdentityProvider resolves the current owner id. Failures wrap
// common.ErrNotAuthenticated.
type IdentityProvider interface {
	ResolveCallerID(ctx context.Context) (string, error)
}

// TokenSource yields the raw token of the signed-in owner.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource always returns the same token.
type StaticTokenSource string

func (s StaticTokenSource) Token(context.Context) (string, error) {
	return string(s), nil
}

// JWTProvider reads a token from its source and validates it with secret.
type JWTProvider struct {
	tokens TokenSource
	secret []byte
}

func NewJWTProvider(tokens TokenSource, secret []byte) *JWTProvider {
	return &JWTProvider{tokens: tokens, secret: secret}
}

func (p *JWTProvider) ResolveCallerID(ctx context.Context) (string, error) {
	tok, err := p.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrNotAuthenticated, err)
	}
	if tok == "" {
		return "", common.ErrNotAuthenticated
	}

	id, err := GetUserIDFromToken(tok, p.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrNotAuthenticated, err)
	}
	return id, nil
}
