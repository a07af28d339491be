package auth

import (
	"context"
	"fmt"
	"net/http"

	sdkauth "github.com/modelcontextprotocol/go-sdk/auth"
)

const principalExtraKey = "principal"

// NewMCPTokenVerifier adapts our Verifier to the SDK's auth.TokenVerifier
// function type. The Principal travels in TokenInfo.Extra; PrincipalFromTokenInfo
// recovers it inside tool calls.
func NewMCPTokenVerifier(v *Verifier) sdkauth.TokenVerifier {
	return func(ctx context.Context, token string, _ *http.Request) (*sdkauth.TokenInfo, error) {
		principal, expiry, err := v.VerifyToken(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", sdkauth.ErrInvalidToken, err)
		}

		scopes := make([]string, 0, len(principal.Scopes))
		for s := range principal.Scopes {
			scopes = append(scopes, s)
		}

		return &sdkauth.TokenInfo{
			UserID:     principal.Sub,
			Scopes:     scopes,
			Expiration: expiry,
			Extra: map[string]any{
				principalExtraKey: principal,
			},
		}, nil
	}
}

// PrincipalFromTokenInfo returns the Principal stored by NewMCPTokenVerifier.
func PrincipalFromTokenInfo(info *sdkauth.TokenInfo) (*Principal, bool) {
	if info == nil {
		return nil, false
	}
	p, ok := info.Extra[principalExtraKey].(*Principal)
	return p, ok && p != nil
}
