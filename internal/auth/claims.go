package auth

import "context"

// AccountClaims identifies the authenticated account for a request.
type AccountClaims struct {
	AccountID string
	Source    string // "jwt" or "api_key"
}

type claimsKey struct{}

// SetAccountClaims stores the claims on the request context.
func SetAccountClaims(ctx context.Context, claims *AccountClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// GetAccountClaims reads the claims from the request context. Returns nil
// when the request was not authenticated.
func GetAccountClaims(ctx context.Context) *AccountClaims {
	claims, ok := ctx.Value(claimsKey{}).(*AccountClaims)
	if !ok {
		return nil
	}
	return claims
}
