// Package seed applies migrations and inserts the initial roles, users and
// authorization server configuration read from a seed file.
package seed

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// File is the seed document. JSON and YAML are accepted, picked by extension.
type File struct {
	IdentityData       IdentityData       `json:"IdentityData" yaml:"IdentityData"`
	IdentityServerData IdentityServerData `json:"IdentityServerData" yaml:"IdentityServerData"`
}

type IdentityData struct {
	Roles []Role `json:"Roles" yaml:"Roles"`
	Users []User `json:"Users" yaml:"Users"`
}

type IdentityServerData struct {
	IdentityResources []IdentityResource `json:"IdentityResources" yaml:"IdentityResources"`
	ApiScopes         []ApiScope         `json:"ApiScopes" yaml:"ApiScopes"`
	ApiResources      []ApiResource      `json:"ApiResources" yaml:"ApiResources"`
	Clients           []Client           `json:"Clients" yaml:"Clients"`
}

type Claim struct {
	Type  string `json:"Type" yaml:"Type"`
	Value string `json:"Value" yaml:"Value"`
}

type Role struct {
	Name   string  `json:"Name" yaml:"Name"`
	Claims []Claim `json:"Claims" yaml:"Claims"`
}

// User is created with a confirmed email. Password may be empty.
type User struct {
	Username string   `json:"Username" yaml:"Username"`
	Password string   `json:"Password" yaml:"Password"`
	Email    string   `json:"Email" yaml:"Email"`
	Roles    []string `json:"Roles" yaml:"Roles"`
	Claims   []Claim  `json:"Claims" yaml:"Claims"`
}

type IdentityResource struct {
	Name                    string   `json:"Name" yaml:"Name"`
	DisplayName             string   `json:"DisplayName" yaml:"DisplayName"`
	Description             string   `json:"Description" yaml:"Description"`
	Enabled                 *bool    `json:"Enabled" yaml:"Enabled"`
	Required                bool     `json:"Required" yaml:"Required"`
	Emphasize               bool     `json:"Emphasize" yaml:"Emphasize"`
	ShowInDiscoveryDocument *bool    `json:"ShowInDiscoveryDocument" yaml:"ShowInDiscoveryDocument"`
	UserClaims              []string `json:"UserClaims" yaml:"UserClaims"`
}

type ApiScope struct {
	Name                    string   `json:"Name" yaml:"Name"`
	DisplayName             string   `json:"DisplayName" yaml:"DisplayName"`
	Description             string   `json:"Description" yaml:"Description"`
	Enabled                 *bool    `json:"Enabled" yaml:"Enabled"`
	Required                bool     `json:"Required" yaml:"Required"`
	Emphasize               bool     `json:"Emphasize" yaml:"Emphasize"`
	ShowInDiscoveryDocument *bool    `json:"ShowInDiscoveryDocument" yaml:"ShowInDiscoveryDocument"`
	UserClaims              []string `json:"UserClaims" yaml:"UserClaims"`
}

// Secret values are plain text in the file and hashed before they are stored
type Secret struct {
	Value       string     `json:"Value" yaml:"Value"`
	Description string     `json:"Description" yaml:"Description"`
	Type        string     `json:"Type" yaml:"Type"`
	Expiration  *time.Time `json:"Expiration" yaml:"Expiration"`
}

type ApiResource struct {
	Name        string   `json:"Name" yaml:"Name"`
	DisplayName string   `json:"DisplayName" yaml:"DisplayName"`
	Description string   `json:"Description" yaml:"Description"`
	Enabled     *bool    `json:"Enabled" yaml:"Enabled"`
	Scopes      []string `json:"Scopes" yaml:"Scopes"`
	UserClaims  []string `json:"UserClaims" yaml:"UserClaims"`
	ApiSecrets  []Secret `json:"ApiSecrets" yaml:"ApiSecrets"`
}

type Client struct {
	ClientId                    string   `json:"ClientId" yaml:"ClientId"`
	ClientName                  string   `json:"ClientName" yaml:"ClientName"`
	Description                 string   `json:"Description" yaml:"Description"`
	ClientUri                   string   `json:"ClientUri" yaml:"ClientUri"`
	LogoUri                     string   `json:"LogoUri" yaml:"LogoUri"`
	Enabled                     *bool    `json:"Enabled" yaml:"Enabled"`
	RequireClientSecret         *bool    `json:"RequireClientSecret" yaml:"RequireClientSecret"`
	RequirePkce                 bool     `json:"RequirePkce" yaml:"RequirePkce"`
	RequireConsent              bool     `json:"RequireConsent" yaml:"RequireConsent"`
	AllowOfflineAccess          bool     `json:"AllowOfflineAccess" yaml:"AllowOfflineAccess"`
	AllowAccessTokensViaBrowser bool     `json:"AllowAccessTokensViaBrowser" yaml:"AllowAccessTokensViaBrowser"`
	AccessTokenLifetime         int      `json:"AccessTokenLifetime" yaml:"AccessTokenLifetime"`
	FrontChannelLogoutUri       string   `json:"FrontChannelLogoutUri" yaml:"FrontChannelLogoutUri"`
	BackChannelLogoutUri        string   `json:"BackChannelLogoutUri" yaml:"BackChannelLogoutUri"`
	AllowedGrantTypes           []string `json:"AllowedGrantTypes" yaml:"AllowedGrantTypes"`
	RedirectUris                []string `json:"RedirectUris" yaml:"RedirectUris"`
	PostLogoutRedirectUris      []string `json:"PostLogoutRedirectUris" yaml:"PostLogoutRedirectUris"`
	AllowedCorsOrigins          []string `json:"AllowedCorsOrigins" yaml:"AllowedCorsOrigins"`
	AllowedScopes               []string `json:"AllowedScopes" yaml:"AllowedScopes"`
	ClientSecrets               []Secret `json:"ClientSecrets" yaml:"ClientSecrets"`
	ClientClaims                []Claim  `json:"ClientClaims" yaml:"ClientClaims"`
}

// Load reads the seed file at path
func Load(path string) (*File, error) {
	var file File
	if err := cleanenv.ReadConfig(path, &file); err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	return &file, nil
}

func boolOr(value *bool, def bool) bool {
	if value == nil {
		return def
	}
	return *value
}
