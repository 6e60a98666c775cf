package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testIssuer = "https://issuer.growcoach.test"

type fakeGoogle struct {
	key       *rsa.PrivateKey
	challenge string
	nonce     string
	email     string
}

func (f *fakeGoogle) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/token" {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if pkceChallenge(r.PostForm.Get("code_verifier")) != f.challenge {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
		return
	}

	now := time.Now()
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":            testIssuer,
		"aud":            "client-id",
		"sub":            "google-sub-1",
		"exp":            now.Add(time.Hour).Unix(),
		"iat":            now.Unix(),
		"nonce":          f.nonce,
		"email":          f.email,
		"email_verified": true,
		"name":           "Alice Martin",
	}).SignedString(f.key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": "access",
		"token_type":   "Bearer",
		"expires_in":   3600,
		"id_token":     idToken,
	})
}

func newTestGoogleOAuth(t *testing.T) (*GoogleOAuth, *fakeGoogle) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	fake := &fakeGoogle{key: key, email: "Alice@Example.com"}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	verifier := oidc.NewVerifier(testIssuer, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}}, &oidc.Config{ClientID: "client-id"})
	g, err := newGoogleOAuth(GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:5000/auth/oauth/google/callback",
		StateKey:     []byte("0123456789abcdef0123456789abcdef"),
		HTTPClient:   server.Client(),
	}, oauth2.Endpoint{AuthURL: server.URL + "/auth", TokenURL: server.URL + "/token"}, verifier)
	require.NoError(t, err)
	return g, fake
}

func beginParams(t *testing.T, g *GoogleOAuth) url.Values {
	t.Helper()
	redirect, err := g.Begin()
	require.NoError(t, err)
	parsed, err := url.Parse(redirect)
	require.NoError(t, err)
	return parsed.Query()
}

func TestGoogleOAuthBeginIncludesPKCEAndNonce(t *testing.T) {
	g, _ := newTestGoogleOAuth(t)
	params := beginParams(t, g)

	require.Equal(t, "client-id", params.Get("client_id"))
	require.Equal(t, "S256", params.Get("code_challenge_method"))
	require.NotEmpty(t, params.Get("code_challenge"))
	require.NotEmpty(t, params.Get("nonce"))
	require.NotEmpty(t, params.Get("state"))
}

func TestGoogleOAuthCallbackReturnsIdentity(t *testing.T) {
	g, fake := newTestGoogleOAuth(t)
	params := beginParams(t, g)
	fake.challenge = params.Get("code_challenge")
	fake.nonce = params.Get("nonce")

	identity, err := g.Callback(context.Background(), params.Get("state"), "auth-code")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", identity.Email)
	require.Equal(t, "google-sub-1", identity.Subject)
	require.Equal(t, "Alice", identity.GivenName)
	require.Equal(t, "Martin", identity.FamilyName)
	require.True(t, identity.EmailVerified)
}

func TestGoogleOAuthCallbackRejectsNonceMismatch(t *testing.T) {
	g, fake := newTestGoogleOAuth(t)
	params := beginParams(t, g)
	fake.challenge = params.Get("code_challenge")
	fake.nonce = "someone-else"

	_, err := g.Callback(context.Background(), params.Get("state"), "auth-code")
	require.ErrorContains(t, err, "nonce mismatch")
}

func TestGoogleOAuthCallbackRejectsTamperedState(t *testing.T) {
	g, _ := newTestGoogleOAuth(t)

	_, err := g.Callback(context.Background(), "not-a-state", "auth-code")
	require.True(t, errors.Is(err, ErrStateInvalid))
}

func TestGoogleOAuthCallbackRequiresCode(t *testing.T) {
	g, _ := newTestGoogleOAuth(t)
	params := beginParams(t, g)

	_, err := g.Callback(context.Background(), params.Get("state"), "")
	require.ErrorContains(t, err, "authorization code missing")
}

func TestNewGoogleOAuthValidatesConfig(t *testing.T) {
	_, err := NewGoogleOAuth(context.Background(), GoogleConfig{})
	require.ErrorContains(t, err, "client id")
	_, err = NewGoogleOAuth(context.Background(), GoogleConfig{ClientID: "id"})
	require.ErrorContains(t, err, "client secret")
	_, err = NewGoogleOAuth(context.Background(), GoogleConfig{ClientID: "id", ClientSecret: "s"})
	require.ErrorContains(t, err, "redirect url")
}

func TestStateCodecRoundTrip(t *testing.T) {
	codec, err := NewStateCodec([]byte("0123456789abcdef0123456789abcdef"), time.Minute, nil)
	require.NoError(t, err)

	token, err := codec.Encode(StatePayload{Provider: "Google", Nonce: "nonce", Verifier: "verifier"})
	require.NoError(t, err)

	payload, err := codec.Decode(token)
	require.NoError(t, err)
	require.Equal(t, "google", payload.Provider)
	require.Equal(t, "nonce", payload.Nonce)
	require.Equal(t, "verifier", payload.Verifier)
}

func TestStateCodecExpired(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	codec, err := NewStateCodec([]byte("0123456789abcdef"), time.Minute, func() time.Time { return current })
	require.NoError(t, err)

	token, err := codec.Encode(StatePayload{Provider: "google"})
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)
	_, err = codec.Decode(token)
	require.True(t, errors.Is(err, ErrStateExpired))
}

func TestStateCodecRejectsBadKey(t *testing.T) {
	_, err := NewStateCodec([]byte("short"), time.Minute, nil)
	require.Error(t, err)
}

func TestGeneratePKCE(t *testing.T) {
	pair, err := GeneratePKCE()
	require.NoError(t, err)
	require.NotEmpty(t, pair.Verifier)
	require.Equal(t, pkceChallenge(pair.Verifier), pair.Challenge)
}
