package oauth2client

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/tendant/identity-admin/pkg/audit"
	apperrors "github.com/tendant/identity-admin/pkg/errors"
	"github.com/tendant/identity-admin/pkg/paging"
	"github.com/tendant/identity-admin/pkg/secrets"
	"github.com/tendant/identity-admin/pkg/utils"
)

const auditResource = "client"

// ClientService applies the admin rules for client registrations on top of a ClientRepository
type ClientService struct {
	repository ClientRepository
	auditor    audit.Auditor
}

// Option configures a ClientService
type Option func(*ClientService)

// WithAuditor records client mutations on auditor
func WithAuditor(auditor audit.Auditor) Option {
	return func(s *ClientService) {
		if auditor != nil {
			s.auditor = auditor
		}
	}
}

// NewClientService creates a new client service with the provided repository
func NewClientService(repository ClientRepository, opts ...Option) *ClientService {
	s := &ClientService{
		repository: repository,
		auditor:    audit.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ClientService) record(ctx context.Context, action string, id int, before, after interface{}) {
	s.auditor.Record(ctx, audit.AuditEvent{
		Action:     action,
		Resource:   auditResource,
		ResourceID: strconv.Itoa(id),
		Before:     before,
		After:      after,
	})
}

func (s *ClientService) GetClients(ctx context.Context, search string, page, pageSize int) (paging.PagedList[Client], error) {
	return s.repository.GetClients(ctx, search, page, pageSize)
}

// GetClient returns the client with its collections. Secret values are redacted.
func (s *ClientService) GetClient(ctx context.Context, id int) (*Client, error) {
	client, err := s.repository.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, apperrors.DoesNotExist(apperrors.ErrCodeClientDoesNotExist, "Client with id %d doesn't exist", id)
	}
	client.ClientSecrets = redactSecrets(client.ClientSecrets)
	return client, nil
}

func (s *ClientService) CanInsertClient(ctx context.Context, client *Client, isCloned bool) (bool, error) {
	return s.repository.CanInsertClient(ctx, client, isCloned)
}

// clientExists echoes the candidate without secret values
func (s *ClientService) clientExists(client Client) error {
	if client.ClientSecrets != nil {
		client.ClientSecrets = redactSecrets(client.ClientSecrets)
	}
	return apperrors.NewConflict(apperrors.ErrCodeClientExistsKey, client, "Client %s already exists", client.ClientID)
}

func (s *ClientService) duplicatePropertyKey(client Client) error {
	if client.ClientSecrets != nil {
		client.ClientSecrets = redactSecrets(client.ClientSecrets)
	}
	key, _ := repeatedPropertyKey(client.Properties)
	return apperrors.NewConflict(apperrors.ErrCodeClientPropertyExistsKey, client,
		"Client property %s is listed more than once", key)
}

// AddClient stores a new client. The ClientID must be unused, then the
// ClientType defaults are applied. Inline SharedSecrets are hashed.
func (s *ClientService) AddClient(ctx context.Context, client *Client) (int, error) {
	ok, err := s.repository.CanInsertClient(ctx, client, false)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, s.clientExists(*client)
	}
	if _, dup := repeatedPropertyKey(client.Properties); dup {
		return 0, s.duplicatePropertyKey(*client)
	}

	if err := ApplyClientTypeDefaults(client); err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "invalid client type")
	}
	for i := range client.ClientSecrets {
		protectSecret(&client.ClientSecrets[i])
	}

	id, err := s.repository.AddClient(ctx, client)
	if errors.Is(err, ErrDuplicateClientID) {
		return 0, s.clientExists(*client)
	}
	if errors.Is(err, ErrDuplicatePropertyKey) {
		return 0, s.duplicatePropertyKey(*client)
	}
	if err != nil {
		return 0, err
	}

	slog.Info("Client added", "id", id, "client_id", client.ClientID, "client_type", client.ClientType.String())
	s.record(ctx, "client.add", id, nil, client)
	return id, nil
}

// UpdateClient replaces the client's settings and string collections.
// Claims and properties are replaced only when their flag is set.
func (s *ClientService) UpdateClient(ctx context.Context, client *Client, updateClaims, updateProperties bool) (int, error) {
	ok, err := s.repository.CanInsertClient(ctx, client, false)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, s.clientExists(*client)
	}
	if updateProperties {
		if _, dup := repeatedPropertyKey(client.Properties); dup {
			return 0, s.duplicatePropertyKey(*client)
		}
	}

	before, err := s.GetClient(ctx, client.ID)
	if err != nil {
		return 0, err
	}

	affected, err := s.repository.UpdateClient(ctx, client, updateClaims, updateProperties)
	if errors.Is(err, ErrDuplicateClientID) {
		return 0, s.clientExists(*client)
	}
	if errors.Is(err, ErrDuplicatePropertyKey) {
		return 0, s.duplicatePropertyKey(*client)
	}
	if err != nil {
		return 0, err
	}

	s.record(ctx, "client.update", client.ID, before, client)
	return affected, nil
}

// RemoveClient deletes the client and its children, returning
// utils.RowNotFound when it does not exist
func (s *ClientService) RemoveClient(ctx context.Context, id int) (int, error) {
	affected, err := s.repository.RemoveClient(ctx, id)
	if err != nil {
		return 0, err
	}
	if affected != utils.RowNotFound {
		s.record(ctx, "client.remove", id, nil, nil)
	}
	return affected, nil
}

// CloneClient copies the client originalID under a new ClientID
func (s *ClientService) CloneClient(ctx context.Context, originalID int, client *Client, opts CloneOptions) (int, error) {
	ok, err := s.repository.CanInsertClient(ctx, client, true)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, s.clientExists(*client)
	}

	if _, _, found, err := s.repository.GetClientID(ctx, originalID); err != nil {
		return 0, err
	} else if !found {
		return 0, apperrors.DoesNotExist(apperrors.ErrCodeClientDoesNotExist, "Client with id %d doesn't exist", originalID)
	}

	id, err := s.repository.CloneClient(ctx, originalID, client, opts)
	if errors.Is(err, ErrDuplicateClientID) {
		return 0, s.clientExists(*client)
	}
	if err != nil {
		return 0, err
	}

	s.record(ctx, "client.clone", id, originalID, client)
	return id, nil
}

// GetClientDisplayName returns "clientId (clientName)" for id
func (s *ClientService) GetClientDisplayName(ctx context.Context, id int) (string, error) {
	clientID, clientName, err := s.clientName(ctx, id)
	if err != nil {
		return "", err
	}
	return DisplayName(clientID, clientName), nil
}

func (s *ClientService) clientName(ctx context.Context, id int) (string, string, error) {
	clientID, clientName, found, err := s.repository.GetClientID(ctx, id)
	if err != nil {
		return "", "", err
	}
	if !found {
		return "", "", apperrors.DoesNotExist(apperrors.ErrCodeClientDoesNotExist, "Client with id %d doesn't exist", id)
	}
	return clientID, clientName, nil
}

func (s *ClientService) GetClientSecrets(ctx context.Context, clientID, page, pageSize int) (*SecretsView, error) {
	id, name, err := s.clientName(ctx, clientID)
	if err != nil {
		return nil, err
	}
	list, err := s.repository.GetClientSecrets(ctx, clientID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &SecretsView{
		ClientID:   clientID,
		ClientName: DisplayName(id, name),
		Secrets:    redactSecrets(list.Data),
		TotalCount: list.TotalCount,
		PageSize:   list.PageSize,
	}, nil
}

func (s *ClientService) GetClientSecret(ctx context.Context, id int) (*ClientSecret, error) {
	secret, err := s.repository.GetClientSecret(ctx, id)
	if err != nil {
		return nil, err
	}
	if secret == nil {
		return nil, apperrors.DoesNotExist(apperrors.ErrCodeClientSecretDoesNotExist, "Client secret with id %d doesn't exist", id)
	}
	secret.Value = ""
	return secret, nil
}

// AddClientSecret hashes SharedSecret values before they are stored
func (s *ClientService) AddClientSecret(ctx context.Context, clientID int, secret *ClientSecret) (int, error) {
	if _, _, err := s.clientName(ctx, clientID); err != nil {
		return 0, err
	}
	protectSecret(secret)

	affected, err := s.repository.AddClientSecret(ctx, clientID, secret)
	if err != nil {
		return 0, err
	}
	s.record(ctx, "client.secret.add", clientID, nil, secret.ID)
	return affected, nil
}

func (s *ClientService) DeleteClientSecret(ctx context.Context, id int) (int, error) {
	affected, err := s.repository.DeleteClientSecret(ctx, id)
	if err != nil {
		return 0, err
	}
	if affected != utils.RowNotFound {
		s.record(ctx, "client.secret.delete", id, nil, nil)
	}
	return affected, nil
}

func (s *ClientService) GetClientClaims(ctx context.Context, clientID, page, pageSize int) (*ClaimsView, error) {
	id, name, err := s.clientName(ctx, clientID)
	if err != nil {
		return nil, err
	}
	list, err := s.repository.GetClientClaims(ctx, clientID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &ClaimsView{
		ClientID:   clientID,
		ClientName: DisplayName(id, name),
		Claims:     list.Data,
		TotalCount: list.TotalCount,
		PageSize:   list.PageSize,
	}, nil
}

func (s *ClientService) GetClientClaim(ctx context.Context, id int) (*ClientClaim, error) {
	claim, err := s.repository.GetClientClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, apperrors.DoesNotExist(apperrors.ErrCodeClientClaimDoesNotExist, "Client claim with id %d doesn't exist", id)
	}
	return claim, nil
}

func (s *ClientService) AddClientClaim(ctx context.Context, clientID int, claim *ClientClaim) (int, error) {
	if _, _, err := s.clientName(ctx, clientID); err != nil {
		return 0, err
	}
	affected, err := s.repository.AddClientClaim(ctx, clientID, claim)
	if err != nil {
		return 0, err
	}
	s.record(ctx, "client.claim.add", clientID, nil, claim)
	return affected, nil
}

func (s *ClientService) DeleteClientClaim(ctx context.Context, id int) (int, error) {
	return s.repository.DeleteClientClaim(ctx, id)
}

func (s *ClientService) GetClientProperties(ctx context.Context, clientID, page, pageSize int) (*PropertiesView, error) {
	id, name, err := s.clientName(ctx, clientID)
	if err != nil {
		return nil, err
	}
	list, err := s.repository.GetClientProperties(ctx, clientID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &PropertiesView{
		ClientID:   clientID,
		ClientName: DisplayName(id, name),
		Properties: list.Data,
		TotalCount: list.TotalCount,
		PageSize:   list.PageSize,
	}, nil
}

func (s *ClientService) GetClientProperty(ctx context.Context, id int) (*ClientProperty, error) {
	property, err := s.repository.GetClientProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, apperrors.DoesNotExist(apperrors.ErrCodeClientPropertyDoesNotExist, "Client property with id %d doesn't exist", id)
	}
	return property, nil
}

// AddClientProperty rejects a key the client already owns. The conflict
// carries the first page of the client's properties and the candidate.
func (s *ClientService) AddClientProperty(ctx context.Context, clientID int, property *ClientProperty) (int, error) {
	if _, _, err := s.clientName(ctx, clientID); err != nil {
		return 0, err
	}
	property.ClientID = clientID

	ok, err := s.repository.CanInsertClientProperty(ctx, property)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, s.propertyExists(ctx, clientID, *property)
	}

	affected, err := s.repository.AddClientProperty(ctx, clientID, property)
	if errors.Is(err, ErrDuplicatePropertyKey) {
		return 0, s.propertyExists(ctx, clientID, *property)
	}
	if err != nil {
		return 0, err
	}
	s.record(ctx, "client.property.add", clientID, nil, property)
	return affected, nil
}

func (s *ClientService) propertyExists(ctx context.Context, clientID int, candidate ClientProperty) error {
	view, err := s.GetClientProperties(ctx, clientID, paging.DefaultPage, paging.DefaultPageSize)
	if err != nil {
		return err
	}
	view.Property = candidate
	return apperrors.NewConflict(apperrors.ErrCodeClientPropertyExistsKey, *view,
		"Client property with key %s already exists", candidate.Key)
}

func (s *ClientService) DeleteClientProperty(ctx context.Context, id int) (int, error) {
	return s.repository.DeleteClientProperty(ctx, id)
}

func (s *ClientService) GetScopes(ctx context.Context, search string, limit int) ([]string, error) {
	return s.repository.GetScopes(ctx, search, limit)
}

func (s *ClientService) GetGrantTypes(search string, limit int) []string {
	return GrantTypes(search, limit)
}

func (s *ClientService) GetStandardClaims(search string, limit int) []string {
	return StandardClaims(search, limit)
}

func (s *ClientService) GetSigningAlgorithms(search string, limit int) []string {
	return SigningAlgorithms(search, limit)
}

func protectSecret(secret *ClientSecret) {
	if secret.Type == "" {
		secret.Type = secrets.SharedSecret
	}
	secret.Value = secrets.Protect(secret.Type, secret.Value, secret.HashType)
}

func redactSecrets(list []ClientSecret) []ClientSecret {
	out := make([]ClientSecret, len(list))
	for i, s := range list {
		s.Value = ""
		out[i] = s
	}
	return out
}
