package credential

import (
	"crypto"
	"crypto/sha1"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/pkcs12"

	"github.com/tendant/identity-admin/pkg/jwks"
)

type StoreLocation string

const (
	LocalMachine StoreLocation = "LocalMachine"
	CurrentUser  StoreLocation = "CurrentUser"
)

// ParseStoreLocation accepts a location name or its number (1 CurrentUser,
// 2 LocalMachine). Anything else falls back to LocalMachine and forces
// validOnly on.
func ParseStoreLocation(value string, validOnly bool) (StoreLocation, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "currentuser", "1":
		return CurrentUser, validOnly
	case "localmachine", "2":
		return LocalMachine, validOnly
	default:
		return LocalMachine, true
	}
}

// Thumbprint is the uppercase hex SHA-1 of the DER certificate
func Thumbprint(certificate *x509.Certificate) string {
	sum := sha1.Sum(certificate.Raw)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func normalizeThumbprint(thumbprint string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'F':
			return r
		case r >= 'a' && r <= 'f':
			return r - 'a' + 'A'
		}
		return -1
	}, thumbprint)
}

// StoredCertificate is a certificate and, when available, its private key
type StoredCertificate struct {
	Certificate *x509.Certificate
	PrivateKey  crypto.Signer
	Thumbprint  string
	Path        string
}

// CertificateStore is a directory of certificates per location, laid out
// as <root>/<location>/My. Files are .pfx/.p12 bundles opened with the store
// password, or PEM files with an optional sibling .key file.
type CertificateStore struct {
	root     string
	password string
	now      func() time.Time
}

func NewCertificateStore(root, password string) *CertificateStore {
	return &CertificateStore{root: root, password: password, now: time.Now}
}

func (s *CertificateStore) dir(location StoreLocation) string {
	return filepath.Join(s.root, string(location), "My")
}

// Find returns the certificate with the thumbprint, or nil when the store
// has none. validOnly skips certificates outside their validity period.
func (s *CertificateStore) Find(location StoreLocation, thumbprint string, validOnly bool) (*StoredCertificate, error) {
	want := normalizeThumbprint(thumbprint)
	entries, err := os.ReadDir(s.dir(location))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open certificate store %s: %w", location, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.dir(location), entry.Name())
		stored, err := s.load(path)
		if err != nil {
			slog.Warn("Skipping unreadable certificate", "path", path, "err", err)
			continue
		}
		if stored == nil || stored.Thumbprint != want {
			continue
		}
		if validOnly && !s.valid(stored.Certificate) {
			slog.Info("Certificate is outside its validity period", "thumbprint", want,
				"not_before", stored.Certificate.NotBefore, "not_after", stored.Certificate.NotAfter)
			continue
		}
		return stored, nil
	}
	return nil, nil
}

func (s *CertificateStore) valid(certificate *x509.Certificate) bool {
	now := s.now()
	return !now.Before(certificate.NotBefore) && !now.After(certificate.NotAfter)
}

func (s *CertificateStore) load(path string) (*StoredCertificate, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pfx", ".p12":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		stored, err := decodePfx(data, s.password)
		if err != nil {
			return nil, err
		}
		stored.Path = path
		return stored, nil
	case ".pem", ".crt", ".cer":
		return loadPEM(path)
	default:
		return nil, nil
	}
}

func decodePfx(data []byte, password string) (*StoredCertificate, error) {
	key, certificate, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PKCS#12: %w", err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("PKCS#12 key %T cannot sign", key)
	}
	return &StoredCertificate{
		Certificate: certificate,
		PrivateKey:  signer,
		Thumbprint:  Thumbprint(certificate),
	}, nil
}

func loadPEM(path string) (*StoredCertificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	stored, err := decodePEM(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	stored.Path = path

	if stored.PrivateKey == nil {
		keyPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".key"
		if keyData, err := os.ReadFile(keyPath); err == nil {
			if stored.PrivateKey, err = jwks.DecodePrivateKeyFromPEM(keyData); err != nil {
				return nil, err
			}
		}
	}
	return stored, nil
}

// decodePEM takes the first certificate and the first private key found
func decodePEM(data []byte) (*StoredCertificate, error) {
	stored := &StoredCertificate{}
	for rest := data; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch {
		case block.Type == "CERTIFICATE" && stored.Certificate == nil:
			certificate, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("failed to parse certificate: %w", err)
			}
			stored.Certificate = certificate
		case strings.HasSuffix(block.Type, "PRIVATE KEY") && stored.PrivateKey == nil:
			key, err := jwks.DecodePrivateKeyFromPEM(pem.EncodeToMemory(block))
			if err != nil {
				return nil, err
			}
			stored.PrivateKey = key
		}
	}
	if stored.Certificate == nil {
		return nil, errors.New("no certificate found")
	}
	stored.Thumbprint = Thumbprint(stored.Certificate)
	return stored, nil
}
