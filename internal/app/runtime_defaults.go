package app

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/growcoach/jobboard/pkg/crypto"
)

const (
	jwtSecretBytes     = 48
	oauthStateKeyBytes = 32
)

// ApplyRuntimeDefaults ensures critical secrets are populated even when no configuration file is supplied.
// It returns a map describing which keys were generated so callers can log the event without exposing values.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated["auth.jwt.secret"] = true
	}

	// A generated state key only lives as long as the process; pending
	// sign-ins fail after a restart.
	if cfg.Auth.OAuth.Google.Enabled && strings.TrimSpace(cfg.Auth.OAuth.Google.StateKey) == "" {
		key, err := generateHexKey(oauthStateKeyBytes)
		if err != nil {
			return nil, fmt.Errorf("generate oauth state key: %w", err)
		}
		cfg.Auth.OAuth.Google.StateKey = key
		generated["auth.oauth.google.state_key"] = true
	}

	return generated, nil
}

func generateHexKey(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
