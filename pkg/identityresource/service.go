package identityresource

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/tendant/identity-admin/pkg/audit"
	apperrors "github.com/tendant/identity-admin/pkg/errors"
	"github.com/tendant/identity-admin/pkg/paging"
	"github.com/tendant/identity-admin/pkg/utils"
)

type IdentityResourceService struct {
	repository IdentityResourceRepository
	auditor    audit.Auditor
}

type Option func(*IdentityResourceService)

func WithAuditor(auditor audit.Auditor) Option {
	return func(s *IdentityResourceService) {
		if auditor != nil {
			s.auditor = auditor
		}
	}
}

func NewIdentityResourceService(repository IdentityResourceRepository, opts ...Option) *IdentityResourceService {
	s := &IdentityResourceService{repository: repository, auditor: audit.Nop{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *IdentityResourceService) record(ctx context.Context, action string, id int, before, after interface{}) {
	s.auditor.Record(ctx, audit.AuditEvent{
		Action:     action,
		Resource:   "identity_resource",
		ResourceID: strconv.Itoa(id),
		Before:     before,
		After:      after,
	})
}

func notFound(id int) error {
	return apperrors.DoesNotExist(apperrors.ErrCodeIdentityResourceDoesNotExist, "Identity resource with id %d doesn't exist", id)
}

func resourceExists(resource IdentityResource) error {
	return apperrors.NewConflict(apperrors.ErrCodeIdentityResourceExistsKey, resource,
		"Identity resource %s already exists", resource.Name)
}

func (s *IdentityResourceService) GetIdentityResources(ctx context.Context, search string, page, pageSize int) (paging.PagedList[IdentityResource], error) {
	return s.repository.GetIdentityResources(ctx, search, page, pageSize)
}

func (s *IdentityResourceService) GetIdentityResource(ctx context.Context, id int) (*IdentityResource, error) {
	res, err := s.repository.GetIdentityResource(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, notFound(id)
	}
	return res, nil
}

func (s *IdentityResourceService) GetIdentityResourcesName(ctx context.Context, search string, limit int) ([]string, error) {
	return s.repository.GetIdentityResourcesName(ctx, search, limit)
}

func (s *IdentityResourceService) CanInsertIdentityResource(ctx context.Context, resource *IdentityResource) (bool, error) {
	return s.repository.CanInsertIdentityResource(ctx, resource)
}

func (s *IdentityResourceService) AddIdentityResource(ctx context.Context, resource *IdentityResource) (int, error) {
	ok, err := s.repository.CanInsertIdentityResource(ctx, resource)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, resourceExists(*resource)
	}

	id, err := s.repository.AddIdentityResource(ctx, resource)
	if errors.Is(err, ErrDuplicateName) {
		return 0, resourceExists(*resource)
	}
	if err != nil {
		return 0, err
	}
	slog.Info("Identity resource added", "id", id, "name", resource.Name)
	s.record(ctx, "identity_resource.add", id, nil, resource)
	return id, nil
}

func (s *IdentityResourceService) UpdateIdentityResource(ctx context.Context, resource *IdentityResource) (int, error) {
	before, err := s.GetIdentityResource(ctx, resource.ID)
	if err != nil {
		return 0, err
	}
	ok, err := s.repository.CanInsertIdentityResource(ctx, resource)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, resourceExists(*resource)
	}

	affected, err := s.repository.UpdateIdentityResource(ctx, resource)
	if errors.Is(err, ErrDuplicateName) {
		return 0, resourceExists(*resource)
	}
	if err != nil {
		return 0, err
	}
	s.record(ctx, "identity_resource.update", resource.ID, before, resource)
	return affected, nil
}

func (s *IdentityResourceService) DeleteIdentityResource(ctx context.Context, id int) (int, error) {
	affected, err := s.repository.DeleteIdentityResource(ctx, id)
	if err != nil {
		return 0, err
	}
	if affected != utils.RowNotFound {
		s.record(ctx, "identity_resource.delete", id, nil, nil)
	}
	return affected, nil
}

func (s *IdentityResourceService) GetIdentityResourceProperties(ctx context.Context, resourceID, page, pageSize int) (*PropertiesView, error) {
	name, found, err := s.repository.GetIdentityResourceName(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, notFound(resourceID)
	}
	list, err := s.repository.GetIdentityResourceProperties(ctx, resourceID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &PropertiesView{
		IdentityResourceID:   resourceID,
		IdentityResourceName: name,
		Properties:           list.Data,
		TotalCount:           list.TotalCount,
		PageSize:             list.PageSize,
	}, nil
}

func (s *IdentityResourceService) GetIdentityResourceProperty(ctx context.Context, id int) (*IdentityResourceProperty, error) {
	p, err := s.repository.GetIdentityResourceProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.DoesNotExist(apperrors.ErrCodeIdentityResourcePropertyDoesNotExist,
			"Identity resource property with id %d doesn't exist", id)
	}
	return p, nil
}

func (s *IdentityResourceService) AddIdentityResourceProperty(ctx context.Context, resourceID int, property *IdentityResourceProperty) (int, error) {
	_, found, err := s.repository.GetIdentityResourceName(ctx, resourceID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, notFound(resourceID)
	}
	property.IdentityResourceID = resourceID

	ok, err := s.repository.CanInsertIdentityResourceProperty(ctx, property)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, s.propertyExists(ctx, resourceID, *property)
	}

	affected, err := s.repository.AddIdentityResourceProperty(ctx, resourceID, property)
	if errors.Is(err, ErrDuplicatePropertyKey) {
		return 0, s.propertyExists(ctx, resourceID, *property)
	}
	if err != nil {
		return 0, err
	}
	s.record(ctx, "identity_resource.property.add", resourceID, nil, property)
	return affected, nil
}

func (s *IdentityResourceService) propertyExists(ctx context.Context, resourceID int, candidate IdentityResourceProperty) error {
	view, err := s.GetIdentityResourceProperties(ctx, resourceID, paging.DefaultPage, paging.DefaultPageSize)
	if err != nil {
		return err
	}
	view.Property = candidate
	return apperrors.NewConflict(apperrors.ErrCodeIdentityResourcePropertyExistsKey, *view,
		"Identity resource property with key %s already exists", candidate.Key)
}

func (s *IdentityResourceService) DeleteIdentityResourceProperty(ctx context.Context, id int) (int, error) {
	return s.repository.DeleteIdentityResourceProperty(ctx, id)
}
