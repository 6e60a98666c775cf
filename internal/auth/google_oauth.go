package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/growcoach/jobboard/pkg/crypto"
)

// GoogleIssuer is the OpenID issuer used for Google sign-in.
const GoogleIssuer = "https://accounts.google.com"

const providerGoogle = "google"

// GoogleConfig configures Google sign-in.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Issuer       string
	StateKey     []byte
	StateTTL     time.Duration
	HTTPClient   *http.Client
	Timeout      time.Duration
}

// GoogleIdentity is the verified identity extracted from the ID token.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
	Name          string
}

// GoogleOAuth runs the authorization-code flow with nonce and PKCE.
type GoogleOAuth struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	codec    *StateCodec
	client   *http.Client
	timeout  time.Duration
}

// NewGoogleOAuth discovers the issuer metadata and builds the client.
func NewGoogleOAuth(ctx context.Context, cfg GoogleConfig) (*GoogleOAuth, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("google oauth: client id is required")
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("google oauth: client secret is required")
	}
	if strings.TrimSpace(cfg.RedirectURL) == "" {
		return nil, errors.New("google oauth: redirect url is required")
	}
	issuerURL := strings.TrimSpace(cfg.Issuer)
	if issuerURL == "" {
		issuerURL = GoogleIssuer
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	discoveryCtx := ctx
	if cfg.HTTPClient != nil {
		discoveryCtx = oidc.ClientContext(discoveryCtx, cfg.HTTPClient)
	}
	discoveryCtx, cancel := context.WithTimeout(discoveryCtx, cfg.Timeout)
	defer cancel()

	issuer, err := oidc.NewProvider(discoveryCtx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("google oauth: discovery failed: %w", err)
	}

	return newGoogleOAuth(cfg, issuer.Endpoint(), issuer.Verifier(&oidc.Config{ClientID: cfg.ClientID}))
}

func newGoogleOAuth(cfg GoogleConfig, endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier) (*GoogleOAuth, error) {
	codec, err := NewStateCodec(cfg.StateKey, cfg.StateTTL, nil)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &GoogleOAuth{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: verifier,
		codec:    codec,
		client:   cfg.HTTPClient,
		timeout:  cfg.Timeout,
	}, nil
}

// Begin returns the Google consent URL carrying sealed state.
func (g *GoogleOAuth) Begin() (string, error) {
	nonce, err := crypto.GenerateToken(24)
	if err != nil {
		return "", fmt.Errorf("google oauth: nonce: %w", err)
	}
	pkce, err := GeneratePKCE()
	if err != nil {
		return "", err
	}

	state, err := g.codec.Encode(StatePayload{Provider: providerGoogle, Nonce: nonce, Verifier: pkce.Verifier})
	if err != nil {
		return "", err
	}

	return g.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("code_challenge", pkce.Challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	), nil
}

// Callback validates state, exchanges the code and verifies the ID token.
func (g *GoogleOAuth) Callback(ctx context.Context, state, code string) (*GoogleIdentity, error) {
	payload, err := g.codec.Decode(state)
	if err != nil {
		return nil, err
	}
	if payload.Provider != providerGoogle {
		return nil, ErrStateInvalid
	}
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("google oauth: authorization code missing")
	}

	tokenCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if g.client != nil {
		tokenCtx = context.WithValue(tokenCtx, oauth2.HTTPClient, g.client)
	}

	token, err := g.oauth.Exchange(tokenCtx, code, oauth2.SetAuthURLParam("code_verifier", payload.Verifier))
	if err != nil {
		return nil, fmt.Errorf("google oauth: exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("google oauth: id token missing")
	}

	idToken, err := g.verifier.Verify(tokenCtx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("google oauth: verify id token: %w", err)
	}
	if idToken.Nonce != payload.Nonce {
		return nil, errors.New("google oauth: nonce mismatch")
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("google oauth: decode claims: %w", err)
	}
	if strings.TrimSpace(claims.Email) == "" {
		return nil, errors.New("google oauth: email claim missing")
	}

	identity := &GoogleIdentity{
		Subject:       idToken.Subject,
		Email:         strings.ToLower(strings.TrimSpace(claims.Email)),
		EmailVerified: claims.EmailVerified,
		GivenName:     claims.GivenName,
		FamilyName:    claims.FamilyName,
		Name:          claims.Name,
	}
	if identity.GivenName == "" && identity.FamilyName == "" && identity.Name != "" {
		parts := strings.Fields(identity.Name)
		identity.GivenName = parts[0]
		identity.FamilyName = strings.Join(parts[1:], " ")
	}
	return identity, nil
}

func pkceChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
