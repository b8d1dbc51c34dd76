package jwks

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tendant/identity-admin/pkg/audit"
	apperrors "github.com/tendant/identity-admin/pkg/errors"
	"github.com/tendant/identity-admin/pkg/paging"
)

// KeyService handles key record administration
type KeyService struct {
	repository KeyRepository
	auditor    audit.Auditor
}

type Option func(*KeyService)

func WithAuditor(auditor audit.Auditor) Option {
	return func(s *KeyService) {
		if auditor != nil {
			s.auditor = auditor
		}
	}
}

func NewKeyService(repository KeyRepository, opts ...Option) *KeyService {
	s := &KeyService{repository: repository, auditor: audit.Nop{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *KeyService) GetKeys(ctx context.Context, page, pageSize int) (paging.PagedList[Key], error) {
	return s.repository.GetKeys(ctx, page, pageSize)
}

func (s *KeyService) GetKey(ctx context.Context, id string) (*Key, error) {
	key, err := s.repository.GetKey(ctx, id)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, apperrors.DoesNotExist(apperrors.ErrCodeKeyDoesNotExist, "Key with id %s doesn't exist", id)
	}
	return key, nil
}

func (s *KeyService) ExistsKey(ctx context.Context, id string) (bool, error) {
	return s.repository.ExistsKey(ctx, id)
}

// AddKey records a key. An existing id is left untouched and reported as false.
func (s *KeyService) AddKey(ctx context.Context, key *Key) (bool, error) {
	exists, err := s.repository.ExistsKey(ctx, key.ID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := s.repository.AddKey(ctx, key); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return false, nil
		}
		return false, err
	}
	slog.Info("Key recorded", "kid", key.ID, "use", key.Use, "alg", key.Algorithm)
	return true, nil
}

// DeleteKey re-reads the key and fails with KeyDoesNotExist when it is gone
func (s *KeyService) DeleteKey(ctx context.Context, id string) (int, error) {
	key, err := s.GetKey(ctx, id)
	if err != nil {
		return 0, err
	}
	affected, err := s.repository.DeleteKey(ctx, key.ID)
	if err != nil {
		return 0, err
	}
	s.auditor.Record(ctx, audit.AuditEvent{
		Action:     "key.delete",
		Resource:   "key",
		ResourceID: key.ID,
		Before:     key,
	})
	return affected, nil
}
