package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/growcoach/jobboard/pkg/crypto"
)

var (
	ErrStateExpired = errors.New("oauth state: expired")
	ErrStateInvalid = errors.New("oauth state: invalid")
)

// StateCodec seals OAuth state so the callback can be verified without
// server-side storage.
type StateCodec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// StatePayload carries what the callback needs to finish the login.
type StatePayload struct {
	Provider string    `json:"p"`
	Nonce    string    `json:"n"`
	Verifier string    `json:"v"`
	IssuedAt time.Time `json:"iat"`
}

// NewStateCodec constructs a StateCodec from an AES key and lifetime.
func NewStateCodec(key []byte, ttl time.Duration, now func() time.Time) (*StateCodec, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("oauth state: key must be 16, 24, or 32 bytes, got %d", len(key))
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &StateCodec{key: key, ttl: ttl, now: now}, nil
}

// Encode encrypts the payload into a URL-safe state string.
func (c *StateCodec) Encode(payload StatePayload) (string, error) {
	payload.Provider = strings.ToLower(strings.TrimSpace(payload.Provider))
	if payload.Provider == "" {
		return "", errors.New("oauth state: provider is required")
	}
	payload.IssuedAt = c.now().UTC()

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("oauth state: marshal payload: %w", err)
	}

	encoded, err := crypto.Encrypt(raw, c.key)
	if err != nil {
		return "", fmt.Errorf("oauth state: encrypt payload: %w", err)
	}
	return encoded, nil
}

// Decode decrypts a state string and enforces its lifetime.
func (c *StateCodec) Decode(token string) (StatePayload, error) {
	var payload StatePayload
	if strings.TrimSpace(token) == "" {
		return payload, ErrStateInvalid
	}

	raw, err := crypto.Decrypt(token, c.key)
	if err != nil {
		return payload, ErrStateInvalid
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, ErrStateInvalid
	}
	if payload.Provider == "" || payload.IssuedAt.IsZero() {
		return payload, ErrStateInvalid
	}
	if c.now().UTC().After(payload.IssuedAt.Add(c.ttl)) {
		return payload, ErrStateExpired
	}
	return payload, nil
}

// PKCEPair represents the verifier/challenge material required for PKCE flows.
type PKCEPair struct {
	Verifier  string
	Challenge string
}

// GeneratePKCE produces a PKCE verifier and associated S256 challenge.
func GeneratePKCE() (PKCEPair, error) {
	verifier, err := crypto.GenerateToken(48)
	if err != nil {
		return PKCEPair{}, fmt.Errorf("pkce: generate verifier: %w", err)
	}
	return PKCEPair{Verifier: verifier, Challenge: pkceChallenge(verifier)}, nil
}
