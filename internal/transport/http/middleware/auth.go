package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"bhandaraboard/internal/httputil"
	"bhandaraboard/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// IdentityKey is the context key for the authenticated identity
	IdentityKey contextKey = "identity"
)

// AuthMiddleware creates a middleware that validates bearer tokens minted by
// the identity provider. The provider owns sign-in; this server only
// verifies the HMAC signature and lifts the subject claims into the request
// context.
func AuthMiddleware(authSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, code, message := identityFromRequest(r, authSecret)
			if ident == nil {
				httputil.WriteUnauthorizedWithCode(w, code, message)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// identityFromRequest extracts and verifies the bearer token. Returns a nil
// identity plus an error code and message when verification fails.
func identityFromRequest(r *http.Request, authSecret string) (*model.Identity, string, string) {
	var tokenString string

	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			tokenString = parts[1]
		}
	}

	if tokenString == "" {
		cookie, err := r.Cookie("access_token")
		if err == nil && cookie.Value != "" {
			tokenString = cookie.Value
		}
	}

	if tokenString == "" {
		return nil, httputil.ErrCodeUnauthorized, "Missing authentication token"
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(authSecret), nil
	})

	if err != nil {
		if strings.Contains(err.Error(), "expired") {
			return nil, model.CodeTokenExpired, "Access token has expired"
		}
		return nil, model.CodeTokenInvalid, "Invalid authentication token"
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, model.CodeTokenInvalid, "Invalid authentication token"
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, model.CodeTokenInvalid, "Invalid token claims"
	}

	ident := &model.Identity{ID: sub}
	if name, ok := claims["name"].(string); ok {
		ident.Name = name
	}
	if email, ok := claims["email"].(string); ok {
		ident.Email = email
	}
	return ident, "", ""
}

// GetIdentityFromContext extracts the authenticated identity from the
// request context. Returns nil when the request was not authenticated.
func GetIdentityFromContext(ctx context.Context) *model.Identity {
	ident, _ := ctx.Value(IdentityKey).(*model.Identity)
	return ident
}
