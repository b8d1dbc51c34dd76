package jwks

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/tendant/identity-admin/pkg/paging"
	"github.com/tendant/identity-admin/pkg/utils"
)

var ErrDuplicateKey = errors.New("key already exists")

// KeyRepository defines data access for key records
type KeyRepository interface {
	// GetKeys pages keys ordered by creation time, then id
	GetKeys(ctx context.Context, page, pageSize int) (paging.PagedList[Key], error)
	GetKey(ctx context.Context, id string) (*Key, error)
	ExistsKey(ctx context.Context, id string) (bool, error)
	AddKey(ctx context.Context, key *Key) error
	DeleteKey(ctx context.Context, id string) (int, error)
}

type InMemoryKeyRepository struct {
	mu   sync.RWMutex
	keys map[string]Key
}

func NewInMemoryKeyRepository() *InMemoryKeyRepository {
	return &InMemoryKeyRepository{keys: make(map[string]Key)}
}

func (r *InMemoryKeyRepository) GetKeys(ctx context.Context, page, pageSize int) (paging.PagedList[Key], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]Key, 0, len(r.keys))
	for _, k := range r.keys {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].Created.Equal(keys[j].Created) {
			return keys[i].Created.Before(keys[j].Created)
		}
		return keys[i].ID < keys[j].ID
	})
	return paging.Slice(keys, page, pageSize), nil
}

func (r *InMemoryKeyRepository) GetKey(ctx context.Context, id string) (*Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[id]
	if !ok {
		return nil, nil
	}
	return &k, nil
}

func (r *InMemoryKeyRepository) ExistsKey(ctx context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.keys[id]
	return ok, nil
}

func (r *InMemoryKeyRepository) AddKey(ctx context.Context, key *Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[key.ID]; ok {
		return ErrDuplicateKey
	}
	if key.Version == 0 {
		key.Version = 1
	}
	r.keys[key.ID] = *key
	return nil
}

func (r *InMemoryKeyRepository) DeleteKey(ctx context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[id]; !ok {
		return utils.RowNotFound, nil
	}
	delete(r.keys, id)
	return 1, nil
}
