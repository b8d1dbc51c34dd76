package credential

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/tendant/identity-admin/pkg/config"
)

//go:generate mockgen -destination=mock_vault_test.go -package=credential -source=azure.go VaultClient

// SecretVersion describes one version of a Key Vault secret
type SecretVersion struct {
	Version string
	Enabled bool
	Created time.Time
}

// VaultClient is the part of Key Vault the resolver needs. A certificate
// stored in Key Vault is readable as a secret holding either the base64 PFX
// or the PEM bundle, depending on its content type.
type VaultClient interface {
	ListSecretVersions(ctx context.Context, name string) ([]SecretVersion, error)
	GetSecret(ctx context.Context, name, version string) (string, error)
}

type azsecretsClient struct {
	client *azsecrets.Client
}

// NewAzureVaultClient authenticates with the client secret when
// UseClientCredentials is set, and with the default Azure credential chain
// otherwise.
func NewAzureVaultClient(cfg config.AzureKeyVaultConfig) (VaultClient, error) {
	var (
		cred azcore.TokenCredential
		err  error
	)
	if cfg.UseClientCredentials {
		cred, err = azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
	} else {
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	client, err := azsecrets.NewClient(cfg.AzureKeyVaultEndpoint, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}
	return &azsecretsClient{client: client}, nil
}

func (c *azsecretsClient) ListSecretVersions(ctx context.Context, name string) ([]SecretVersion, error) {
	var versions []SecretVersion
	pager := c.client.NewListSecretPropertiesVersionsPager(name, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list versions of %s: %w", name, err)
		}
		for _, props := range page.Value {
			if props == nil || props.ID == nil {
				continue
			}
			v := SecretVersion{Version: props.ID.Version()}
			if props.Attributes != nil {
				v.Enabled = props.Attributes.Enabled != nil && *props.Attributes.Enabled
				if props.Attributes.Created != nil {
					v.Created = *props.Attributes.Created
				}
			}
			versions = append(versions, v)
		}
	}
	return versions, nil
}

func (c *azsecretsClient) GetSecret(ctx context.Context, name, version string) (string, error) {
	resp, err := c.client.GetSecret(ctx, name, version, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s/%s: %w", name, version, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret %s/%s has no value", name, version)
	}
	return *resp.Value, nil
}

// vaultCertificates holds the newest enabled certificate version and the
// one before it. Secondary is nil when the vault has a single version.
type vaultCertificates struct {
	Active    *StoredCertificate
	Secondary *StoredCertificate
}

func getVaultCertificates(ctx context.Context, client VaultClient, name string) (*vaultCertificates, error) {
	versions, err := client.ListSecretVersions(ctx, name)
	if err != nil {
		return nil, err
	}

	enabled := versions[:0:0]
	for _, v := range versions {
		if v.Enabled {
			enabled = append(enabled, v)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool { return enabled[i].Created.After(enabled[j].Created) })
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no enabled version of certificate %s in Key Vault: %w", name, ErrCertificateNotFound)
	}

	certs := &vaultCertificates{}
	if certs.Active, err = fetchVaultCertificate(ctx, client, name, enabled[0].Version); err != nil {
		return nil, err
	}
	if len(enabled) > 1 {
		if certs.Secondary, err = fetchVaultCertificate(ctx, client, name, enabled[1].Version); err != nil {
			return nil, err
		}
	}
	slog.Info("Loaded certificates from Key Vault", "name", name,
		"active", enabled[0].Version, "has_secondary", certs.Secondary != nil)
	return certs, nil
}

func fetchVaultCertificate(ctx context.Context, client VaultClient, name, version string) (*StoredCertificate, error) {
	value, err := client.GetSecret(ctx, name, version)
	if err != nil {
		return nil, err
	}
	var stored *StoredCertificate
	if strings.HasPrefix(strings.TrimSpace(value), "-----BEGIN") {
		stored, err = decodePEM([]byte(value))
	} else {
		var data []byte
		if data, err = base64.StdEncoding.DecodeString(value); err != nil {
			return nil, fmt.Errorf("certificate %s/%s is neither PEM nor base64 PFX: %w", name, version, err)
		}
		stored, err = decodePfx(data, "")
	}
	if err != nil {
		return nil, fmt.Errorf("certificate %s/%s: %w", name, version, err)
	}
	return stored, nil
}
