package persistedgrant

import (
	"context"
	"log/slog"

	"github.com/tendant/identity-admin/pkg/audit"
	apperrors "github.com/tendant/identity-admin/pkg/errors"
	"github.com/tendant/identity-admin/pkg/paging"
)

type PersistedGrantService struct {
	repository PersistedGrantRepository
	auditor    audit.Auditor
}

type Option func(*PersistedGrantService)

func WithAuditor(auditor audit.Auditor) Option {
	return func(s *PersistedGrantService) {
		if auditor != nil {
			s.auditor = auditor
		}
	}
}

func NewPersistedGrantService(repository PersistedGrantRepository, opts ...Option) *PersistedGrantService {
	s := &PersistedGrantService{repository: repository, auditor: audit.Nop{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func grantNotFound(key string) error {
	return apperrors.DoesNotExist(apperrors.ErrCodePersistedGrantDoesNotExist,
		"Persisted grant with id %s doesn't exist", key)
}

func subjectNotFound(subjectID string) error {
	return apperrors.DoesNotExist(apperrors.ErrCodePersistedGrantWithSubjectIdDoesNotExist,
		"Persisted grant with subject id %s doesn't exist", subjectID)
}

func (s *PersistedGrantService) GetPersistedGrantsByUsers(ctx context.Context, search string, page, pageSize int) (paging.PagedList[Subject], error) {
	return s.repository.GetPersistedGrantsByUsers(ctx, search, page, pageSize)
}

// GetPersistedGrantsByUser fails when the subject holds no grants
func (s *PersistedGrantService) GetPersistedGrantsByUser(ctx context.Context, subjectID string, page, pageSize int) (paging.PagedList[PersistedGrant], error) {
	exists, err := s.repository.ExistsPersistedGrants(ctx, subjectID)
	if err != nil {
		return paging.PagedList[PersistedGrant]{}, err
	}
	if !exists {
		return paging.PagedList[PersistedGrant]{}, subjectNotFound(subjectID)
	}
	return s.repository.GetPersistedGrantsByUser(ctx, subjectID, page, pageSize)
}

func (s *PersistedGrantService) GetPersistedGrant(ctx context.Context, key string) (*PersistedGrant, error) {
	grant, err := s.repository.GetPersistedGrant(ctx, key)
	if err != nil {
		return nil, err
	}
	if grant == nil {
		return nil, grantNotFound(key)
	}
	return grant, nil
}

func (s *PersistedGrantService) AddPersistedGrant(ctx context.Context, grant *PersistedGrant) error {
	return s.repository.AddPersistedGrant(ctx, grant)
}

func (s *PersistedGrantService) DeletePersistedGrant(ctx context.Context, key string) (int, error) {
	exists, err := s.repository.ExistsPersistedGrant(ctx, key)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, grantNotFound(key)
	}
	affected, err := s.repository.DeletePersistedGrant(ctx, key)
	if err != nil {
		return 0, err
	}
	s.auditor.Record(ctx, audit.AuditEvent{Action: "persisted_grant.delete", Resource: "persisted_grant", ResourceID: key})
	return affected, nil
}

// DeletePersistedGrants revokes every grant of a subject
func (s *PersistedGrantService) DeletePersistedGrants(ctx context.Context, subjectID string) (int, error) {
	exists, err := s.repository.ExistsPersistedGrants(ctx, subjectID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, subjectNotFound(subjectID)
	}
	affected, err := s.repository.DeletePersistedGrants(ctx, subjectID)
	if err != nil {
		return 0, err
	}
	slog.Info("Persisted grants revoked", "subject_id", subjectID, "count", affected)
	s.auditor.Record(ctx, audit.AuditEvent{Action: "persisted_grant.delete_subject", Resource: "persisted_grant", ResourceID: subjectID})
	return affected, nil
}
