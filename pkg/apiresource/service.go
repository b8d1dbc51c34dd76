package apiresource

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

// ApiResourceService applies the admin rules for API resources
type ApiResourceService struct {
	repository ApiResourceRepository
	auditor    audit.Auditor
}

type Option func(*ApiResourceService)

func WithAuditor(auditor audit.Auditor) Option {
	return func(s *ApiResourceService) {
		if auditor != nil {
			s.auditor = auditor
		}
	}
}

func NewApiResourceService(repository ApiResourceRepository, opts ...Option) *ApiResourceService {
	s := &ApiResourceService{
		repository: repository,
		auditor:    audit.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ApiResourceService) record(ctx context.Context, action string, id int, before, after interface{}) {
	s.auditor.Record(ctx, audit.AuditEvent{
		Action:     action,
		Resource:   "api_resource",
		ResourceID: strconv.Itoa(id),
		Before:     before,
		After:      after,
	})
}

func (s *ApiResourceService) GetApiResources(ctx context.Context, search string, page, pageSize int) (paging.PagedList[ApiResource], error) {
	return s.repository.GetApiResources(ctx, search, page, pageSize)
}

func (s *ApiResourceService) GetApiResource(ctx context.Context, id int) (*ApiResource, error) {
	res, err := s.repository.GetApiResource(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, apperrors.DoesNotExist(apperrors.ErrCodeApiResourceDoesNotExist, "Api resource with id %d doesn't exist", id)
	}
	return res, nil
}

func (s *ApiResourceService) CanInsertApiResource(ctx context.Context, resource *ApiResource) (bool, error) {
	return s.repository.CanInsertApiResource(ctx, resource)
}

// resourceExists echoes the candidate without secret values
func (s *ApiResourceService) resourceExists(resource ApiResource) error {
	if resource.Secrets != nil {
		redacted := make([]ApiSecret, len(resource.Secrets))
		for i, secret := range resource.Secrets {
			secret.Value = ""
			redacted[i] = secret
		}
		resource.Secrets = redacted
	}
	return apperrors.NewConflict(apperrors.ErrCodeApiResourceExistsKey, resource, "Api resource %s already exists", resource.Name)
}

// AddApiResource stores a new resource. Inline SharedSecrets are hashed.
func (s *ApiResourceService) AddApiResource(ctx context.Context, resource *ApiResource) (int, error) {
	ok, err := s.repository.CanInsertApiResource(ctx, resource)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, s.resourceExists(*resource)
	}
	for i := range resource.Secrets {
		protectSecret(&resource.Secrets[i])
	}

	id, err := s.repository.AddApiResource(ctx, resource)
	if errors.Is(err, ErrDuplicateName) {
		return 0, s.resourceExists(*resource)
	}
	if err != nil {
		return 0, err
	}
	slog.Info("Api resource added", "id", id, "name", resource.Name)
	s.record(ctx, "api_resource.add", id, nil, resource)
	return id, nil
}

func (s *ApiResourceService) UpdateApiResource(ctx context.Context, resource *ApiResource) (int, error) {
	before, err := s.GetApiResource(ctx, resource.ID)
	if err != nil {
		return 0, err
	}
	ok, err := s.repository.CanInsertApiResource(ctx, resource)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, s.resourceExists(*resource)
	}

	affected, err := s.repository.UpdateApiResource(ctx, resource)
	if errors.Is(err, ErrDuplicateName) {
		return 0, s.resourceExists(*resource)
	}
	if err != nil {
		return 0, err
	}
	s.record(ctx, "api_resource.update", resource.ID, before, resource)
	return affected, nil
}

func (s *ApiResourceService) DeleteApiResource(ctx context.Context, id int) (int, error) {
	affected, err := s.repository.DeleteApiResource(ctx, id)
	if err != nil {
		return 0, err
	}
	if affected != utils.RowNotFound {
		s.record(ctx, "api_resource.delete", id, nil, nil)
	}
	return affected, nil
}

func (s *ApiResourceService) resourceName(ctx context.Context, id int) (string, error) {
	name, found, err := s.repository.GetApiResourceName(ctx, id)
	if err != nil {
		return "", err
	}
	if !found {
		return "", apperrors.DoesNotExist(apperrors.ErrCodeApiResourceDoesNotExist, "Api resource with id %d doesn't exist", id)
	}
	return name, nil
}

func (s *ApiResourceService) GetApiSecrets(ctx context.Context, resourceID, page, pageSize int) (*SecretsView, error) {
	name, err := s.resourceName(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	list, err := s.repository.GetApiSecrets(ctx, resourceID, page, pageSize)
	if err != nil {
		return nil, err
	}
	for i := range list.Data {
		list.Data[i].Value = ""
	}
	return &SecretsView{
		ApiResourceID:   resourceID,
		ApiResourceName: name,
		Secrets:         list.Data,
		TotalCount:      list.TotalCount,
		PageSize:        list.PageSize,
	}, nil
}

func (s *ApiResourceService) GetApiSecret(ctx context.Context, id int) (*ApiSecret, error) {
	secret, err := s.repository.GetApiSecret(ctx, id)
	if err != nil {
		return nil, err
	}
	if secret == nil {
		return nil, apperrors.DoesNotExist(apperrors.ErrCodeApiSecretDoesNotExist, "Api secret with id %d doesn't exist", id)
	}
	secret.Value = ""
	return secret, nil
}

// AddApiSecret hashes SharedSecret values before they are stored
func (s *ApiResourceService) AddApiSecret(ctx context.Context, resourceID int, secret *ApiSecret) (int, error) {
	if _, err := s.resourceName(ctx, resourceID); err != nil {
		return 0, err
	}
	protectSecret(secret)

	affected, err := s.repository.AddApiSecret(ctx, resourceID, secret)
	if err != nil {
		return 0, err
	}
	s.record(ctx, "api_resource.secret.add", resourceID, nil, secret.ID)
	return affected, nil
}

func (s *ApiResourceService) DeleteApiSecret(ctx context.Context, id int) (int, error) {
	return s.repository.DeleteApiSecret(ctx, id)
}

func (s *ApiResourceService) GetApiResourceProperties(ctx context.Context, resourceID, page, pageSize int) (*PropertiesView, error) {
	name, err := s.resourceName(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	list, err := s.repository.GetApiResourceProperties(ctx, resourceID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &PropertiesView{
		ApiResourceID:   resourceID,
		ApiResourceName: name,
		Properties:      list.Data,
		TotalCount:      list.TotalCount,
		PageSize:        list.PageSize,
	}, nil
}

func (s *ApiResourceService) GetApiResourceProperty(ctx context.Context, id int) (*ApiResourceProperty, error) {
	property, err := s.repository.GetApiResourceProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, apperrors.DoesNotExist(apperrors.ErrCodeApiResourcePropertyDoesNotExist, "Api resource property with id %d doesn't exist", id)
	}
	return property, nil
}

// AddApiResourceProperty rejects a key the resource already owns. The
// conflict carries the first page of properties and the candidate.
func (s *ApiResourceService) AddApiResourceProperty(ctx context.Context, resourceID int, property *ApiResourceProperty) (int, error) {
	if _, err := s.resourceName(ctx, resourceID); err != nil {
		return 0, err
	}
	property.ApiResourceID = resourceID

	ok, err := s.repository.CanInsertApiResourceProperty(ctx, property)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, s.propertyExists(ctx, resourceID, *property)
	}

	affected, err := s.repository.AddApiResourceProperty(ctx, resourceID, property)
	if errors.Is(err, ErrDuplicatePropertyKey) {
		return 0, s.propertyExists(ctx, resourceID, *property)
	}
	if err != nil {
		return 0, err
	}
	s.record(ctx, "api_resource.property.add", resourceID, nil, property)
	return affected, nil
}

func (s *ApiResourceService) propertyExists(ctx context.Context, resourceID int, candidate ApiResourceProperty) error {
	view, err := s.GetApiResourceProperties(ctx, resourceID, paging.DefaultPage, paging.DefaultPageSize)
	if err != nil {
		return err
	}
	view.Property = candidate
	return apperrors.NewConflict(apperrors.ErrCodeApiResourcePropertyExistsKey, *view,
		"Api resource property with key %s already exists", candidate.Key)
}

func (s *ApiResourceService) DeleteApiResourceProperty(ctx context.Context, id int) (int, error) {
	return s.repository.DeleteApiResourceProperty(ctx, id)
}

func protectSecret(secret *ApiSecret) {
	if secret.Type == "" {
		secret.Type = secrets.SharedSecret
	}
	secret.Value = secrets.Protect(secret.Type, secret.Value, secret.HashType)
}
