package jwks

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selfSigned(t *testing.T, key *rsa.PrivateKey) *x509.Certificate {
	t.Helper()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "identity-admin test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	c, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return c
}

func TestBuildJWKS(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	signing := PublicKey{KeyID: "sig", Algorithm: "RS256", Key: &rsaKey.PublicKey, Certificate: selfSigned(t, rsaKey)}
	validation := PublicKey{KeyID: "val", Algorithm: "ES256", Key: &ecKey.PublicKey}

	set, err := BuildJWKS(signing, validation, signing)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())

	first, ok := set.Key(0)
	require.True(t, ok)
	assert.Equal(t, "sig", first.KeyID())
	assert.Equal(t, "sig", first.KeyUsage())
	assert.NotEmpty(t, first.X509CertThumbprint())

	raw, err := json.Marshal(set)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"d":`, "private parameters never leave")
	assert.Contains(t, string(raw), `"x5c"`)

	parsed, err := jwk.Parse(raw)
	require.NoError(t, err)
	_, found := parsed.LookupKeyID("val")
	assert.True(t, found)
}

func TestBuildJWKS_PrivateKeyIsReducedToPublic(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	set, err := BuildJWKS(PublicKey{KeyID: "dev", Algorithm: "RS256", Key: rsaKey})
	require.NoError(t, err)
	raw, err := json.Marshal(set)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"d":`)
}

func TestNewKeyRecord(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	record, err := NewKeyRecord(PublicKey{KeyID: "k1", Algorithm: "ES256", Key: &ecKey.PublicKey}, UseSigning)
	require.NoError(t, err)
	assert.Equal(t, "k1", record.ID)
	assert.Equal(t, UseSigning, record.Use)
	assert.False(t, record.IsX509Certificate)
	assert.Contains(t, record.Data, `"kty":"EC"`)
}

func TestPEMRoundTripAndAlgorithm(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)

	encoded, err := EncodePrivateKeyToPEM(ecKey)
	require.NoError(t, err)
	decoded, err := DecodePrivateKeyFromPEM([]byte(encoded))
	require.NoError(t, err)

	alg, err := AlgorithmFor(decoded.Public())
	require.NoError(t, err)
	assert.Equal(t, "ES384", alg)

	_, err = DecodePrivateKeyFromPEM([]byte("not pem"))
	assert.Error(t, err)
}
