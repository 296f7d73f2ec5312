package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/weeklog/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokens struct {
	tok string
	err error
}

func (f fakeTokens) Token(context.Context) (string, error) { return f.tok, f.err }

func TestJWTProvider_ResolveCallerID(t *testing.T) {
	secret := []byte("secret")
	valid, err := GenerateToken("owner-7", secret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		src     TokenSource
		want    string
		wantErr error
	}{
		{name: "valid static token", src: StaticTokenSource(valid), want: "owner-7"},
		{name: "empty token", src: StaticTokenSource(""), wantErr: common.ErrNotAuthenticated},
		{name: "source failure", src: fakeTokens{err: errors.New("keyring locked")}, wantErr: common.ErrNotAuthenticated},
		{name: "tampered token", src: StaticTokenSource(valid + "x"), wantErr: common.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewJWTProvider(tt.src, secret)
			got, err := p.ResolveCallerID(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, common.ErrNotAuthenticated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
