package persistedgrant

import (
	"context"
	"sort"
	"sync"

	"github.com/tendant/identity-admin/pkg/paging"
	"github.com/tendant/identity-admin/pkg/utils"
)

// PersistedGrantRepository defines data access for persisted grants
type PersistedGrantRepository interface {
	// GetPersistedGrantsByUsers pages the distinct subjects whose id or name contains search
	GetPersistedGrantsByUsers(ctx context.Context, search string, page, pageSize int) (paging.PagedList[Subject], error)
	GetPersistedGrantsByUser(ctx context.Context, subjectID string, page, pageSize int) (paging.PagedList[PersistedGrant], error)
	GetPersistedGrant(ctx context.Context, key string) (*PersistedGrant, error)
	ExistsPersistedGrants(ctx context.Context, subjectID string) (bool, error)
	ExistsPersistedGrant(ctx context.Context, key string) (bool, error)
	AddPersistedGrant(ctx context.Context, grant *PersistedGrant) error
	DeletePersistedGrant(ctx context.Context, key string) (int, error)
	DeletePersistedGrants(ctx context.Context, subjectID string) (int, error)
}

type InMemoryPersistedGrantRepository struct {
	mu     sync.RWMutex
	grants map[string]PersistedGrant
}

func NewInMemoryPersistedGrantRepository() *InMemoryPersistedGrantRepository {
	return &InMemoryPersistedGrantRepository{grants: make(map[string]PersistedGrant)}
}

func (r *InMemoryPersistedGrantRepository) GetPersistedGrantsByUsers(ctx context.Context, search string, page, pageSize int) (paging.PagedList[Subject], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bySubject := make(map[string]Subject)
	for _, g := range r.grants {
		if g.SubjectID == "" {
			continue
		}
		if search != "" && !utils.ContainsFold(g.SubjectID, search) && !utils.ContainsFold(g.SubjectName, search) {
			continue
		}
		if s, ok := bySubject[g.SubjectID]; !ok || s.SubjectName == "" {
			bySubject[g.SubjectID] = Subject{SubjectID: g.SubjectID, SubjectName: g.SubjectName}
		}
	}
	subjects := make([]Subject, 0, len(bySubject))
	for _, s := range bySubject {
		subjects = append(subjects, s)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].SubjectID < subjects[j].SubjectID })
	return paging.Slice(subjects, page, pageSize), nil
}

func (r *InMemoryPersistedGrantRepository) GetPersistedGrantsByUser(ctx context.Context, subjectID string, page, pageSize int) (paging.PagedList[PersistedGrant], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []PersistedGrant
	for _, g := range r.grants {
		if g.SubjectID == subjectID {
			out = append(out, g)
		}
	}
	sortGrants(out)
	return paging.Slice(out, page, pageSize), nil
}

// newest first, key breaks ties
func sortGrants(grants []PersistedGrant) {
	sort.Slice(grants, func(i, j int) bool {
		if !grants[i].CreationTime.Equal(grants[j].CreationTime) {
			return grants[i].CreationTime.After(grants[j].CreationTime)
		}
		return grants[i].Key < grants[j].Key
	})
}

func (r *InMemoryPersistedGrantRepository) GetPersistedGrant(ctx context.Context, key string) (*PersistedGrant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.grants[key]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (r *InMemoryPersistedGrantRepository) ExistsPersistedGrants(ctx context.Context, subjectID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.grants {
		if g.SubjectID == subjectID {
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryPersistedGrantRepository) ExistsPersistedGrant(ctx context.Context, key string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.grants[key]
	return ok, nil
}

func (r *InMemoryPersistedGrantRepository) AddPersistedGrant(ctx context.Context, grant *PersistedGrant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grants[grant.Key] = *grant
	return nil
}

func (r *InMemoryPersistedGrantRepository) DeletePersistedGrant(ctx context.Context, key string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.grants[key]; !ok {
		return utils.RowNotFound, nil
	}
	delete(r.grants, key)
	return 1, nil
}

func (r *InMemoryPersistedGrantRepository) DeletePersistedGrants(ctx context.Context, subjectID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	affected := 0
	for key, g := range r.grants {
		if g.SubjectID == subjectID {
			delete(r.grants, key)
			affected++
		}
	}
	if affected == 0 {
		return utils.RowNotFound, nil
	}
	return affected, nil
}
