package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/pbias-leaderboard/pbias-go/internal/domain"
)

// OIDCConfig holds OIDC authentication settings.
type OIDCConfig struct {
	IssuerURL string
	Audience  string
	Enabled   bool
}

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxRequestID contextKey = "request_id"
)

// UserFromContext extracts the user ID from the request context.
func UserFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxUserID).(string)
	return v
}

// publicPaths bypass authentication.
var publicPaths = map[string]bool{
	"/api/v1/health": true,
	"/metrics":       true,
}

// identityClaims are the token claims that name the caller.
type identityClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
}

func (c identityClaims) userID() string {
	if c.Sub != "" {
		return c.Sub
	}
	return c.Email
}

// bearerToken returns the raw token from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "missing Authorization header"
	}
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
		return "", "invalid Authorization header format"
	}
	return strings.TrimSpace(raw), ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="pbias"`)
	writeError(w, http.StatusUnauthorized, domain.KindInvalidRequest, msg)
}

// oidcAuth verifies bearer tokens against the discovered issuer and stores
// the caller's sub (or email) in the request context. Public paths and
// CORS preflights pass through.
func oidcAuth(provider *oidc.Provider, audience string) func(http.Handler) http.Handler {
	verifier := provider.Verifier(&oidc.Config{ClientID: audience})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			raw, problem := bearerToken(r)
			if problem != "" {
				unauthorized(w, problem)
				return
			}

			token, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				unauthorized(w, "invalid token: "+err.Error())
				return
			}

			var claims identityClaims
			if err := token.Claims(&claims); err != nil {
				unauthorized(w, "invalid token claims")
				return
			}

			ctx := r.Context()
			if id := claims.userID(); id != "" {
				ctx = context.WithValue(ctx, ctxUserID, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
