package apiscope

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

type ApiScopeService struct {
	repository ApiScopeRepository
	auditor    audit.Auditor
}

type Option func(*ApiScopeService)

func WithAuditor(auditor audit.Auditor) Option {
	return func(s *ApiScopeService) {
		if auditor != nil {
			s.auditor = auditor
		}
	}
}

func NewApiScopeService(repository ApiScopeRepository, opts ...Option) *ApiScopeService {
	s := &ApiScopeService{
		repository: repository,
		auditor:    audit.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ApiScopeService) record(ctx context.Context, action string, id int, before, after interface{}) {
	s.auditor.Record(ctx, audit.AuditEvent{
		Action:     action,
		Resource:   "api_scope",
		ResourceID: strconv.Itoa(id),
		Before:     before,
		After:      after,
	})
}

func (s *ApiScopeService) GetApiScopes(ctx context.Context, search string, page, pageSize int) (paging.PagedList[ApiScope], error) {
	return s.repository.GetApiScopes(ctx, search, page, pageSize)
}

func (s *ApiScopeService) GetApiScope(ctx context.Context, id int) (*ApiScope, error) {
	scope, err := s.repository.GetApiScope(ctx, id)
	if err != nil {
		return nil, err
	}
	if scope == nil {
		return nil, apperrors.DoesNotExist(apperrors.ErrCodeApiScopeDoesNotExist, "Api scope with id %d doesn't exist", id)
	}
	return scope, nil
}

func (s *ApiScopeService) GetApiScopesName(ctx context.Context, scope string, limit int) ([]string, error) {
	return s.repository.GetApiScopesName(ctx, scope, limit)
}

func (s *ApiScopeService) CanInsertApiScope(ctx context.Context, scope *ApiScope) (bool, error) {
	return s.repository.CanInsertApiScope(ctx, scope)
}

func (s *ApiScopeService) scopeExists(scope ApiScope) error {
	return apperrors.NewConflict(apperrors.ErrCodeApiScopeExistsKey, scope, "Api scope %s already exists", scope.Name)
}

func (s *ApiScopeService) AddApiScope(ctx context.Context, scope *ApiScope) (int, error) {
	ok, err := s.repository.CanInsertApiScope(ctx, scope)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, s.scopeExists(*scope)
	}

	id, err := s.repository.AddApiScope(ctx, scope)
	if errors.Is(err, ErrDuplicateName) {
		return 0, s.scopeExists(*scope)
	}
	if err != nil {
		return 0, err
	}
	slog.Info("Api scope added", "id", id, "name", scope.Name)
	s.record(ctx, "api_scope.add", id, nil, scope)
	return id, nil
}

// UpdateApiScope replaces the scope's settings and user claims
func (s *ApiScopeService) UpdateApiScope(ctx context.Context, scope *ApiScope) (int, error) {
	before, err := s.GetApiScope(ctx, scope.ID)
	if err != nil {
		return 0, err
	}
	ok, err := s.repository.CanInsertApiScope(ctx, scope)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, s.scopeExists(*scope)
	}

	affected, err := s.repository.UpdateApiScope(ctx, scope)
	if errors.Is(err, ErrDuplicateName) {
		return 0, s.scopeExists(*scope)
	}
	if err != nil {
		return 0, err
	}
	s.record(ctx, "api_scope.update", scope.ID, before, scope)
	return affected, nil
}

func (s *ApiScopeService) DeleteApiScope(ctx context.Context, id int) (int, error) {
	affected, err := s.repository.DeleteApiScope(ctx, id)
	if err != nil {
		return 0, err
	}
	if affected != utils.RowNotFound {
		s.record(ctx, "api_scope.delete", id, nil, nil)
	}
	return affected, nil
}

func (s *ApiScopeService) scopeName(ctx context.Context, id int) (string, error) {
	name, found, err := s.repository.GetApiScopeName(ctx, id)
	if err != nil {
		return "", err
	}
	if !found {
		return "", apperrors.DoesNotExist(apperrors.ErrCodeApiScopeDoesNotExist, "Api scope with id %d doesn't exist", id)
	}
	return name, nil
}

func (s *ApiScopeService) GetApiScopeProperties(ctx context.Context, scopeID, page, pageSize int) (*PropertiesView, error) {
	name, err := s.scopeName(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	list, err := s.repository.GetApiScopeProperties(ctx, scopeID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &PropertiesView{
		ApiScopeID:   scopeID,
		ApiScopeName: name,
		Properties:   list.Data,
		TotalCount:   list.TotalCount,
		PageSize:     list.PageSize,
	}, nil
}

func (s *ApiScopeService) GetApiScopeProperty(ctx context.Context, id int) (*ApiScopeProperty, error) {
	property, err := s.repository.GetApiScopeProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, apperrors.DoesNotExist(apperrors.ErrCodeApiScopePropertyDoesNotExist, "Api scope property with id %d doesn't exist", id)
	}
	return property, nil
}

// AddApiScopeProperty rejects a key the scope already owns. The conflict
// carries the first page of the scope's properties and the candidate.
func (s *ApiScopeService) AddApiScopeProperty(ctx context.Context, scopeID int, property *ApiScopeProperty) (int, error) {
	if _, err := s.scopeName(ctx, scopeID); err != nil {
		return 0, err
	}
	property.ApiScopeID = scopeID

	ok, err := s.repository.CanInsertApiScopeProperty(ctx, property)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, s.propertyExists(ctx, scopeID, *property)
	}

	affected, err := s.repository.AddApiScopeProperty(ctx, scopeID, property)
	if errors.Is(err, ErrDuplicatePropertyKey) {
		return 0, s.propertyExists(ctx, scopeID, *property)
	}
	if err != nil {
		return 0, err
	}
	s.record(ctx, "api_scope.property.add", scopeID, nil, property)
	return affected, nil
}

func (s *ApiScopeService) propertyExists(ctx context.Context, scopeID int, candidate ApiScopeProperty) error {
	view, err := s.GetApiScopeProperties(ctx, scopeID, paging.DefaultPage, paging.DefaultPageSize)
	if err != nil {
		return err
	}
	view.Property = candidate
	return apperrors.NewConflict(apperrors.ErrCodeApiScopePropertyExistsKey, *view,
		"Api scope property with key %s already exists", candidate.Key)
}

func (s *ApiScopeService) DeleteApiScopeProperty(ctx context.Context, id int) (int, error) {
	return s.repository.DeleteApiScopeProperty(ctx, id)
}
