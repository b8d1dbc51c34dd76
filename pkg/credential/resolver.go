package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tendant/identity-admin/pkg/config"
	apperrors "github.com/tendant/identity-admin/pkg/errors"
)

type Option func(*resolver)

// WithVaultClient replaces the Key Vault client built from the Azure config
func WithVaultClient(client VaultClient) Option {
	return func(r *resolver) {
		r.vault = client
	}
}

// WithCertificateStore replaces the store rooted at CertificateStoreRoot
func WithCertificateStore(store *CertificateStore) Option {
	return func(r *resolver) {
		r.store = store
	}
}

type resolver struct {
	cfg   config.SigningCredentialConfig
	azure config.AzureKeyVaultConfig
	store *CertificateStore
	vault VaultClient

	vaultCerts *vaultCertificates
}

// Resolve picks the signing credential and the validation keys. Every
// failure is wrapped as a fatal error; callers abort startup.
func Resolve(ctx context.Context, cfg config.SigningCredentialConfig, azure config.AzureKeyVaultConfig, opts ...Option) (*Credentials, error) {
	r := &resolver{
		cfg:   cfg,
		azure: azure,
		store: NewCertificateStore(cfg.CertificateStoreRoot, cfg.CertificateStorePassword),
	}
	for _, opt := range opts {
		opt(r)
	}

	signing, source, err := r.signing(ctx)
	if err != nil {
		return nil, apperrors.Fatal(err, "failed to add signing credential")
	}
	validation, err := r.validation(ctx)
	if err != nil {
		return nil, apperrors.Fatal(err, "failed to add validation key")
	}

	slog.Info("Signing credential resolved", "source", source, "kid", signing.KeyID,
		"alg", signing.Algorithm, "validation_keys", len(validation))
	return &Credentials{Signing: signing, Validation: validation, Source: source}, nil
}

func (r *resolver) signing(ctx context.Context) (*SigningCredential, Source, error) {
	switch {
	case r.cfg.UseSigningCertificateThumbprint:
		if strings.TrimSpace(r.cfg.SigningCertificateThumbprint) == "" {
			return nil, "", errors.New(msgSigningThumbprintNotFound)
		}
		location, validOnly := ParseStoreLocation(r.cfg.CertificateStoreLocation, r.cfg.CertificateValidOnly)
		stored, err := r.store.Find(location, r.cfg.SigningCertificateThumbprint, validOnly)
		if err != nil {
			return nil, "", err
		}
		if stored == nil {
			return nil, "", ErrCertificateNotFound
		}
		credential, err := signingFromCertificate(stored)
		return credential, SourceStore, err

	case r.cfg.UseSigningCertificateForAzureKeyVault:
		certs, err := r.vaultCertificates(ctx)
		if err != nil {
			return nil, "", err
		}
		credential, err := signingFromCertificate(certs.Active)
		return credential, SourceAzure, err

	case r.cfg.UseSigningCertificatePfxFile:
		if strings.TrimSpace(r.cfg.SigningCertificatePfxFilePath) == "" {
			return nil, "", errors.New(msgSigningPathNotSpecified)
		}
		stored, err := loadPfxFile(r.cfg.SigningCertificatePfxFilePath, r.cfg.SigningCertificatePfxFilePassword,
			"Signing", msgSigningKeyFileError)
		if err != nil {
			return nil, "", err
		}
		credential, err := signingFromCertificate(stored)
		return credential, SourcePfx, err

	case r.cfg.UseTemporarySigningKeyForDevelopment:
		credential, err := loadDeveloperKey(r.cfg.DeveloperKeyFile)
		return credential, SourceDeveloper, err

	default:
		return nil, "", ErrSigningCredentialNotSpecified
	}
}

// validation mirrors the signing order minus the developer key. The Azure
// source adds the secondary certificate only when the vault has one.
func (r *resolver) validation(ctx context.Context) ([]*ValidationKey, error) {
	var stored *StoredCertificate
	switch {
	case r.cfg.UseValidationCertificateThumbprint:
		if strings.TrimSpace(r.cfg.ValidationCertificateThumbprint) == "" {
			return nil, errors.New(msgValidationThumbprintNotFound)
		}
		found, err := r.store.Find(LocalMachine, r.cfg.ValidationCertificateThumbprint, false)
		if err != nil {
			return nil, err
		}
		if found == nil {
			return nil, ErrCertificateNotFound
		}
		stored = found

	case r.cfg.UseValidationCertificateForAzureKeyVault:
		certs, err := r.vaultCertificates(ctx)
		if err != nil {
			return nil, err
		}
		if certs.Secondary == nil {
			return nil, nil
		}
		stored = certs.Secondary

	case r.cfg.UseValidationCertificatePfxFile:
		if strings.TrimSpace(r.cfg.ValidationCertificatePfxFilePath) == "" {
			return nil, errors.New(msgValidationPathNotSpecified)
		}
		found, err := loadPfxFile(r.cfg.ValidationCertificatePfxFilePath, r.cfg.ValidationCertificatePfxFilePassword,
			"Validation", msgValidationKeyFileError)
		if err != nil {
			return nil, err
		}
		stored = found

	default:
		return nil, nil
	}

	key, err := newValidationKey(stored.Certificate)
	if err != nil {
		return nil, err
	}
	return []*ValidationKey{key}, nil
}

func (r *resolver) vaultCertificates(ctx context.Context) (*vaultCertificates, error) {
	if r.vaultCerts != nil {
		return r.vaultCerts, nil
	}
	if r.azure.AzureKeyVaultEndpoint == "" && r.vault == nil {
		return nil, errors.New(msgAzureKeyVaultEndpointNotDefined)
	}
	if r.vault == nil {
		client, err := NewAzureVaultClient(r.azure)
		if err != nil {
			return nil, err
		}
		r.vault = client
	}

	certs, err := getVaultCertificates(ctx, r.vault, r.azure.IdentityServerCertificateName)
	if err != nil {
		return nil, err
	}
	r.vaultCerts = certs
	return certs, nil
}

func signingFromCertificate(stored *StoredCertificate) (*SigningCredential, error) {
	if stored.PrivateKey == nil {
		return nil, fmt.Errorf("certificate %s has no private key", stored.Thumbprint)
	}
	return newSigningCredential(stored.Thumbprint, stored.PrivateKey, stored.Certificate)
}

// loadPfxFile reads a PFX bundle; kind is "Signing" or "Validation"
func loadPfxFile(path, password, kind, decodeMessage string) (*StoredCertificate, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s key file: %s not found", kind, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", decodeMessage, err)
	}
	stored, err := decodePfx(data, password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", decodeMessage, err)
	}
	stored.Path = path
	return stored, nil
}
