// Package credential resolves the token signing credential and the extra
// validation keys of the authorization server.
//
// Sources are tried in a fixed order: the certificate store by thumbprint,
// Azure Key Vault, a PFX file, and finally a developer key persisted to
// tempkey.jwk. Resolution failures are fatal at startup.
package credential

import (
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/tendant/identity-admin/pkg/jwks"
)

type Source string

const (
	SourceStore     Source = "store"
	SourceAzure     Source = "azure_key_vault"
	SourcePfx       Source = "pfx"
	SourceDeveloper Source = "developer"
)

var (
	ErrSigningCredentialNotSpecified = errors.New("Signing credential is not specified")
	ErrCertificateNotFound           = errors.New("Certificate not found")
)

const (
	msgSigningThumbprintNotFound       = "Signing certificate thumbprint not found"
	msgSigningPathNotSpecified         = "Signing certificate file path is not specified"
	msgValidationThumbprintNotFound    = "Validation certificate thumbprint not found"
	msgValidationPathNotSpecified      = "Validation certificate file path is not specified"
	msgSigningKeyFileError             = "There was an error adding the key file - during the creation of the signing key"
	msgValidationKeyFileError          = "There was an error adding the key file - during the creation of the validation key"
	msgAzureKeyVaultEndpointNotDefined = "Azure Key Vault endpoint is not specified"
)

// SigningCredential signs tokens. Certificate is nil for the developer key.
type SigningCredential struct {
	KeyID       string
	Algorithm   string
	Signer      crypto.Signer
	Certificate *x509.Certificate
}

func newSigningCredential(keyID string, signer crypto.Signer, certificate *x509.Certificate) (*SigningCredential, error) {
	alg, err := jwks.AlgorithmFor(signer.Public())
	if err != nil {
		return nil, err
	}
	return &SigningCredential{KeyID: keyID, Algorithm: alg, Signer: signer, Certificate: certificate}, nil
}

// SigningMethod maps the credential algorithm onto golang-jwt
func (s *SigningCredential) SigningMethod() jwt.SigningMethod {
	return jwt.GetSigningMethod(s.Algorithm)
}

func (s *SigningCredential) PublicKey() jwks.PublicKey {
	return jwks.PublicKey{
		KeyID:       s.KeyID,
		Algorithm:   s.Algorithm,
		Key:         s.Signer.Public(),
		Certificate: s.Certificate,
	}
}

// SignToken signs claims and sets the kid header
func (s *SigningCredential) SignToken(claims jwt.Claims) (string, error) {
	method := s.SigningMethod()
	if method == nil {
		return "", fmt.Errorf("no signing method for algorithm %s", s.Algorithm)
	}
	token := jwt.NewWithClaims(method, claims)
	token.Header["kid"] = s.KeyID
	return token.SignedString(s.Signer)
}

// ValidationKey is published in the JWKS so tokens signed by a previous
// credential keep validating during rollover.
type ValidationKey struct {
	KeyID       string
	Algorithm   string
	Key         crypto.PublicKey
	Certificate *x509.Certificate
}

func newValidationKey(certificate *x509.Certificate) (*ValidationKey, error) {
	alg, err := jwks.AlgorithmFor(certificate.PublicKey)
	if err != nil {
		return nil, err
	}
	return &ValidationKey{
		KeyID:       Thumbprint(certificate),
		Algorithm:   alg,
		Key:         certificate.PublicKey,
		Certificate: certificate,
	}, nil
}

func (v *ValidationKey) PublicKey() jwks.PublicKey {
	return jwks.PublicKey{KeyID: v.KeyID, Algorithm: v.Algorithm, Key: v.Key, Certificate: v.Certificate}
}

type Credentials struct {
	Signing    *SigningCredential
	Validation []*ValidationKey
	Source     Source
}

func (c *Credentials) validationPublicKeys() []jwks.PublicKey {
	keys := make([]jwks.PublicKey, 0, len(c.Validation))
	for _, v := range c.Validation {
		keys = append(keys, v.PublicKey())
	}
	return keys
}

// JWKS returns the public signing key followed by the validation keys
func (c *Credentials) JWKS() (jwk.Set, error) {
	return jwks.BuildJWKS(c.Signing.PublicKey(), c.validationPublicKeys()...)
}

// KeyRecords describes every resolved key as a stored Key record
func (c *Credentials) KeyRecords() ([]*jwks.Key, error) {
	signing, err := jwks.NewKeyRecord(c.Signing.PublicKey(), jwks.UseSigning)
	if err != nil {
		return nil, err
	}
	records := []*jwks.Key{signing}
	for _, p := range c.validationPublicKeys() {
		if p.KeyID == signing.ID {
			continue
		}
		record, err := jwks.NewKeyRecord(p, jwks.UseValidation)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
