package jwks

import (
	"crypto"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/cert"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// PublicKey is the public half of a signing or validation credential
type PublicKey struct {
	KeyID       string
	Algorithm   string
	Key         crypto.PublicKey
	Certificate *x509.Certificate
}

// ToJWK converts the key to a public JWK with kid, alg and use=sig set.
// Certificates add x5c and x5t.
func (p PublicKey) ToJWK() (jwk.Key, error) {
	key, err := jwk.PublicKeyOf(p.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWK for %s: %w", p.KeyID, err)
	}

	fields := map[string]interface{}{
		jwk.KeyIDKey:     p.KeyID,
		jwk.AlgorithmKey: p.Algorithm,
		jwk.KeyUsageKey:  "sig",
	}
	if p.Certificate != nil {
		var chain cert.Chain
		if err := chain.AddString(base64.StdEncoding.EncodeToString(p.Certificate.Raw)); err != nil {
			return nil, fmt.Errorf("failed to add certificate of %s: %w", p.KeyID, err)
		}
		thumbprint := sha1.Sum(p.Certificate.Raw)
		fields[jwk.X509CertChainKey] = &chain
		fields[jwk.X509CertThumbprintKey] = base64.RawURLEncoding.EncodeToString(thumbprint[:])
	}
	for name, value := range fields {
		if err := key.Set(name, value); err != nil {
			return nil, fmt.Errorf("failed to set %s on %s: %w", name, p.KeyID, err)
		}
	}
	return key, nil
}

// BuildJWKS publishes the signing key followed by the validation keys.
// Keys sharing a kid are published once.
func BuildJWKS(signing PublicKey, validation ...PublicKey) (jwk.Set, error) {
	set := jwk.NewSet()
	seen := make(map[string]bool)
	for _, p := range append([]PublicKey{signing}, validation...) {
		if p.Key == nil || seen[p.KeyID] {
			continue
		}
		seen[p.KeyID] = true
		key, err := p.ToJWK()
		if err != nil {
			return nil, err
		}
		if err := set.AddKey(key); err != nil {
			return nil, fmt.Errorf("failed to add %s to key set: %w", p.KeyID, err)
		}
	}
	return set, nil
}

// NewKeyRecord builds the Key record for a credential. Data holds the public JWK.
func NewKeyRecord(p PublicKey, use string) (*Key, error) {
	key, err := p.ToJWK()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s: %w", p.KeyID, err)
	}
	return &Key{
		ID:                p.KeyID,
		Version:           1,
		Created:           time.Now().UTC(),
		Use:               use,
		Algorithm:         p.Algorithm,
		IsX509Certificate: p.Certificate != nil,
		Data:              string(data),
	}, nil
}
