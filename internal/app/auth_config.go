package app

import (
	"fmt"
	"strings"

	"github.com/growcoach/jobboard/internal/auth"
	"github.com/growcoach/jobboard/internal/database"
)

const defaultResetCodeLength = 6

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// ResetCodeLength returns the configured number of digits in a reset code.
func (c AuthConfig) ResetCodeLength() int {
	if c.PasswordReset.CodeLength <= 0 {
		return defaultResetCodeLength
	}
	return c.PasswordReset.CodeLength
}

// GoogleConfig converts the Google OAuth settings, decoding the state key.
func (c AuthConfig) GoogleConfig() (auth.GoogleConfig, error) {
	google := c.OAuth.Google
	key, err := DecodeKey(google.StateKey)
	if err != nil {
		return auth.GoogleConfig{}, fmt.Errorf("auth.oauth.google.state_key: %w", err)
	}
	return auth.GoogleConfig{
		ClientID:     strings.TrimSpace(google.ClientID),
		ClientSecret: google.ClientSecret,
		RedirectURL:  strings.TrimSpace(google.RedirectURL),
		Issuer:       strings.TrimSpace(google.Issuer),
		StateKey:     key,
		StateTTL:     google.StateTTL,
		Timeout:      google.Timeout,
	}, nil
}

// AdminSeed converts the admin settings into the seed applied at start-up.
func (c AuthConfig) AdminSeed() database.AdminSeed {
	return database.AdminSeed{
		Email:    strings.ToLower(strings.TrimSpace(c.Admin.Email)),
		Password: c.Admin.Password,
	}
}
