package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"wayfarer/tripdesk/internal/auth"

	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware resolves the calling account. Web clients send an HS256
// bearer token whose subject is the account ID; internal tooling sends the
// shared API key plus an explicit X-Account-Id header.
func AuthMiddleware(jwtSecret []byte, serviceAPIKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

			authHeader := r.Header.Get("Authorization")
			apiKey := r.Header.Get("X-API-Key")

			var claims *auth.AccountClaims

			switch {
			case strings.HasPrefix(authHeader, "Bearer "):
				tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

				token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
					if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
					}
					return jwtSecret, nil
				})
				if err != nil || !token.Valid {
					http.Error(w, "Unauthorized. Invalid token", http.StatusUnauthorized)
					return
				}

				registered, ok := token.Claims.(*jwt.RegisteredClaims)
				if !ok || registered.Subject == "" {
					http.Error(w, "Unauthorized. Token missing subject", http.StatusUnauthorized)
					return
				}

				claims = &auth.AccountClaims{AccountID: registered.Subject, Source: "jwt"}

			case apiKey != "":
				if serviceAPIKey == "" || apiKey != serviceAPIKey {
					http.Error(w, "Unauthorized. Invalid API Key", http.StatusUnauthorized)
					return
				}

				accountID := r.Header.Get("X-Account-Id")
				if accountID == "" {
					http.Error(w, "Unauthorized. Missing X-Account-Id", http.StatusUnauthorized)
					return
				}

				claims = &auth.AccountClaims{AccountID: accountID, Source: "api_key"}

			default:
				http.Error(w, "Unauthorized. Missing credentials", http.StatusUnauthorized)
				return
			}

			ctx := auth.SetAccountClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
