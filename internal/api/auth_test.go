package api

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbias-leaderboard/pbias-go/internal/scoring"
)

const testAudience = "pbias-leaderboard"

// issuer is a fake OIDC provider that signs tokens with one RSA key.
type issuer struct {
	t   *testing.T
	key *rsa.PrivateKey
	srv *httptest.Server
}

func newIssuer(t *testing.T) *issuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	iss := &issuer{t: t, key: key}
	keys := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{
		{Key: &key.PublicKey, KeyID: "k1", Algorithm: "RS256", Use: "sig"},
	}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":   iss.srv.URL,
			"jwks_uri": iss.srv.URL + "/keys",
		})
	})
	mux.HandleFunc("GET /keys", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(keys)
	})
	iss.srv = httptest.NewServer(mux)
	t.Cleanup(iss.srv.Close)
	return iss
}

// token signs a valid token for sub, then applies overrides. A nil
// override value removes the claim.
func (i *issuer) token(overrides map[string]any) string {
	i.t.Helper()
	now := time.Now()
	claims := map[string]any{
		"iss": i.srv.URL,
		"aud": testAudience,
		"sub": "participant-7",
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	for k, v := range overrides {
		if v == nil {
			delete(claims, k)
			continue
		}
		claims[k] = v
	}

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: i.key},
		(&jose.SignerOptions{}).WithHeader("kid", "k1"),
	)
	require.NoError(i.t, err)
	raw, err := jwt.Signed(signer).Claims(claims).Serialize()
	require.NoError(i.t, err)
	return raw
}

func (i *issuer) middleware() func(http.Handler) http.Handler {
	i.t.Helper()
	provider, err := oidc.NewProvider(context.Background(), i.srv.URL)
	require.NoError(i.t, err)
	return oidcAuth(provider, testAudience)
}

func whoAmI() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserFromContext(r.Context())))
	})
}

func TestOIDCAuth_Tokens(t *testing.T) {
	iss := newIssuer(t)
	handler := iss.middleware()(whoAmI())

	tests := []struct {
		name      string
		overrides map[string]any
		wantCode  int
		wantUser  string
	}{
		{name: "valid", wantCode: http.StatusOK, wantUser: "participant-7"},
		{
			name:      "email used without sub",
			overrides: map[string]any{"sub": nil, "email": "ana@example.org"},
			wantCode:  http.StatusOK,
			wantUser:  "ana@example.org",
		},
		{
			name:      "expired",
			overrides: map[string]any{"exp": time.Now().Add(-time.Hour).Unix()},
			wantCode:  http.StatusUnauthorized,
		},
		{
			name:      "other audience",
			overrides: map[string]any{"aud": "someone-else"},
			wantCode:  http.StatusUnauthorized,
		},
		{
			name:      "other issuer",
			overrides: map[string]any{"iss": "https://issuer.invalid"},
			wantCode:  http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/score", nil)
			req.Header.Set("Authorization", "Bearer "+iss.token(tt.overrides))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, tt.wantUser, w.Body.String())
			} else {
				assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")
			}
		})
	}
}

func TestOIDCAuth_Headers(t *testing.T) {
	iss := newIssuer(t)
	handler := iss.middleware()(whoAmI())

	for name, header := range map[string]string{
		"missing":      "",
		"basic scheme": "Basic dXNlcjpwYXNz",
		"empty bearer": "Bearer ",
		"garbage":      "Bearer not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/batches", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			var body errorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "invalid_request", string(body.Kind))
		})
	}
}

func TestOIDCAuth_Bypass(t *testing.T) {
	iss := newIssuer(t)
	handler := iss.middleware()(whoAmI())

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/v1/health", nil),
		httptest.NewRequest(http.MethodGet, "/metrics", nil),
		httptest.NewRequest(http.MethodOptions, "/api/v1/score", nil),
	} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "%s %s", req.Method, req.URL.Path)
	}
}

func TestNew_WithOIDC(t *testing.T) {
	iss := newIssuer(t)
	eng, err := scoring.New(scoring.DefaultOptions())
	require.NoError(t, err)

	srv, err := New(context.Background(), Deps{Engine: eng}, Options{
		OIDC: OIDCConfig{IssuerURL: iss.srv.URL, Audience: testAudience, Enabled: true},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/batches", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Authenticated, then rejected because no Temporal client is wired.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/batches", nil)
	req.Header.Set("Authorization", "Bearer "+iss.token(nil))
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestNew_OIDCDiscoveryFailure(t *testing.T) {
	eng, err := scoring.New(scoring.DefaultOptions())
	require.NoError(t, err)

	unreachable := httptest.NewServer(http.NotFoundHandler())
	unreachable.Close()

	_, err = New(context.Background(), Deps{Engine: eng}, Options{
		OIDC: OIDCConfig{IssuerURL: unreachable.URL, Enabled: true},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oidc discovery")
}
