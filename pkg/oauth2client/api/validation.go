package api

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tendant/identity-admin/pkg/oauth2client"
	"github.com/tendant/identity-admin/pkg/secrets"
)

var validSecretTypes = map[string]bool{}

func init() {
	for _, t := range oauth2client.SecretTypes() {
		validSecretTypes[t] = true
	}
}

// ValidationError represents a client request validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("multiple validation errors: %s", strings.Join(messages, "; "))
}

// Details renders the errors as field -> message for the error response
func (e ValidationErrors) Details() map[string]interface{} {
	details := make(map[string]interface{}, len(e))
	for _, err := range e {
		details[err.Field] = err.Message
	}
	return details
}

// ValidateClientRequest checks the identifiers, URIs and grant types of a client
func ValidateClientRequest(req *ClientRequest) ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(req.ClientID) == "" {
		errs = append(errs, ValidationError{Field: "clientId", Message: "clientId is required"})
	}
	if _, err := oauth2client.ParseClientType(req.ClientType); err != nil {
		errs = append(errs, ValidationError{Field: "clientType", Message: err.Error()})
	}

	known := map[string]bool{}
	for _, gt := range oauth2client.GrantTypes("", 0) {
		known[gt] = true
	}
	for i, gt := range req.AllowedGrantTypes {
		if !known[gt] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("allowedGrantTypes[%d]", i),
				Message: fmt.Sprintf("invalid grant type: %s", gt),
			})
		}
	}

	for i, uri := range req.RedirectURIs {
		if err := validateRedirectURI(uri); err != nil {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("redirectUris[%d]", i), Message: err.Error()})
		}
	}
	for i, uri := range req.PostLogoutRedirectURIs {
		if err := validateRedirectURI(uri); err != nil {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("postLogoutRedirectUris[%d]", i), Message: err.Error()})
		}
	}
	for i, origin := range req.AllowedCorsOrigins {
		if err := validateOrigin(origin); err != nil {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("allowedCorsOrigins[%d]", i), Message: err.Error()})
		}
	}

	for field, uri := range map[string]string{
		"clientUri":             req.ClientURI,
		"logoUri":               req.LogoURI,
		"frontChannelLogoutUri": req.FrontChannelLogoutURI,
		"backChannelLogoutUri":  req.BackChannelLogoutURI,
	} {
		if uri == "" {
			continue
		}
		if err := validateURI(uri); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: err.Error()})
		}
	}

	return errs
}

// ValidateSecretRequest checks the value, type and hash type of a new secret
func ValidateSecretRequest(req *ClientSecretRequest) (secrets.HashType, ValidationErrors) {
	var errs ValidationErrors

	if req.Value == "" {
		errs = append(errs, ValidationError{Field: "value", Message: "value is required"})
	}
	if req.Type != "" && !validSecretTypes[req.Type] {
		errs = append(errs, ValidationError{Field: "type", Message: fmt.Sprintf("invalid secret type: %s", req.Type)})
	}
	hashType, err := secrets.ParseHashType(req.HashType)
	if err != nil {
		errs = append(errs, ValidationError{Field: "hashType", Message: err.Error()})
	}
	return hashType, errs
}

func validateRedirectURI(uri string) error {
	if uri == "" {
		return fmt.Errorf("redirect URI cannot be empty")
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid URI format: %v", err)
	}
	if parsed.Scheme == "" {
		return fmt.Errorf("redirect URI must be absolute")
	}
	if parsed.Fragment != "" {
		return fmt.Errorf("redirect URI must not contain a fragment")
	}
	if parsed.Scheme == "http" && !isLocalhost(parsed.Hostname()) {
		return fmt.Errorf("http redirect URIs are only allowed for localhost")
	}
	return nil
}

func validateOrigin(origin string) error {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("origin must be scheme://host[:port]")
	}
	if parsed.Path != "" && parsed.Path != "/" {
		return fmt.Errorf("origin must not contain a path")
	}
	return nil
}

func validateURI(uri string) error {
	parsed, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid URI format: %v", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URI must use http or https")
	}
	return nil
}

func isLocalhost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
