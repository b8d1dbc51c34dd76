package config

// SigningCredentialConfig selects where the token signing and validation
// certificates come from. Sources are checked in order: certificate store,
// Azure Key Vault, PFX file, then the temporary developer key.
type SigningCredentialConfig struct {
	UseTemporarySigningKeyForDevelopment bool   `env:"CERT_USE_TEMPORARY_SIGNING_KEY" env-default:"false"`
	DeveloperKeyFile                     string `env:"CERT_DEVELOPER_KEY_FILE" env-default:"tempkey.jwk"`

	CertificateStoreRoot     string `env:"CERT_STORE_ROOT" env-default:"certs"`
	CertificateStoreLocation string `env:"CERT_STORE_LOCATION" env-default:"LocalMachine"`
	CertificateStorePassword string `env:"CERT_STORE_PASSWORD"`
	CertificateValidOnly     bool   `env:"CERT_VALID_ONLY" env-default:"false"`

	UseSigningCertificateThumbprint bool   `env:"CERT_USE_SIGNING_THUMBPRINT" env-default:"false"`
	SigningCertificateThumbprint    string `env:"CERT_SIGNING_THUMBPRINT"`

	UseSigningCertificatePfxFile      bool   `env:"CERT_USE_SIGNING_PFX" env-default:"false"`
	SigningCertificatePfxFilePath     string `env:"CERT_SIGNING_PFX_PATH"`
	SigningCertificatePfxFilePassword string `env:"CERT_SIGNING_PFX_PASSWORD"`

	UseValidationCertificateThumbprint bool   `env:"CERT_USE_VALIDATION_THUMBPRINT" env-default:"false"`
	ValidationCertificateThumbprint    string `env:"CERT_VALIDATION_THUMBPRINT"`

	UseValidationCertificatePfxFile      bool   `env:"CERT_USE_VALIDATION_PFX" env-default:"false"`
	ValidationCertificatePfxFilePath     string `env:"CERT_VALIDATION_PFX_PATH"`
	ValidationCertificatePfxFilePassword string `env:"CERT_VALIDATION_PFX_PASSWORD"`

	UseSigningCertificateForAzureKeyVault    bool `env:"CERT_USE_SIGNING_AZURE_KEY_VAULT" env-default:"false"`
	UseValidationCertificateForAzureKeyVault bool `env:"CERT_USE_VALIDATION_AZURE_KEY_VAULT" env-default:"false"`
}

// AzureKeyVaultConfig points at the vault holding the signing certificate
// as a PKCS#12 secret.
type AzureKeyVaultConfig struct {
	AzureKeyVaultEndpoint         string `env:"AZURE_KEY_VAULT_ENDPOINT"`
	TenantID                      string `env:"AZURE_KEY_VAULT_TENANT_ID"`
	ClientID                      string `env:"AZURE_KEY_VAULT_CLIENT_ID"`
	ClientSecret                  string `env:"AZURE_KEY_VAULT_CLIENT_SECRET"`
	UseClientCredentials          bool   `env:"AZURE_KEY_VAULT_USE_CLIENT_CREDENTIALS" env-default:"false"`
	IdentityServerCertificateName string `env:"AZURE_KEY_VAULT_CERTIFICATE_NAME"`
}

func (a AzureKeyVaultConfig) validate(c SigningCredentialConfig) ValidationErrors {
	if !c.UseSigningCertificateForAzureKeyVault && !c.UseValidationCertificateForAzureKeyVault {
		return nil
	}
	return CollectErrors(
		RequireValidURL("AZURE_KEY_VAULT_ENDPOINT", a.AzureKeyVaultEndpoint),
		RequireNonEmpty("AZURE_KEY_VAULT_CERTIFICATE_NAME", a.IdentityServerCertificateName),
	)
}
