package credential

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

const developerKeySize = 2048

// loadDeveloperKey reads the RSA key persisted as a private JWK at path,
// generating and saving one on first use. The key is for signing only and
// never has a certificate.
func loadDeveloperKey(path string) (*SigningCredential, error) {
	if path == "" {
		path = "tempkey.jwk"
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return generateDeveloperKey(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read developer key %s: %w", path, err)
	}

	key, err := jwk.ParseKey(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse developer key %s: %w", path, err)
	}
	var raw rsa.PrivateKey
	if err := key.Raw(&raw); err != nil {
		return nil, fmt.Errorf("developer key %s is not an RSA private key: %w", path, err)
	}

	slog.Info("Loaded developer signing key", "path", path, "kid", key.KeyID())
	return newSigningCredential(key.KeyID(), &raw, nil)
}

func generateDeveloperKey(path string) (*SigningCredential, error) {
	slog.Warn("Developer signing key not found, generating a temporary key", "path", path)

	private, err := rsa.GenerateKey(rand.Reader, developerKeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}
	key, err := jwk.FromRaw(private)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWK: %w", err)
	}

	thumbprint, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("failed to compute JWK thumbprint: %w", err)
	}
	kid := base64.RawURLEncoding.EncodeToString(thumbprint)
	if err := key.Set(jwk.KeyIDKey, kid); err != nil {
		return nil, err
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
		return nil, err
	}

	data, err := json.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize developer key: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create key directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write developer key %s: %w", path, err)
	}

	slog.Info("Developer signing key generated", "path", path, "kid", kid, "key_size", developerKeySize)
	return newSigningCredential(kid, private, nil)
}
