package identityresource

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/tendant/identity-admin/pkg/paging"
	"github.com/tendant/identity-admin/pkg/utils"
)

var (
	ErrDuplicateName        = errors.New("identity resource name already exists")
	ErrDuplicatePropertyKey = errors.New("identity resource property key already exists")
)

type IdentityResourceRepository interface {
	GetIdentityResources(ctx context.Context, search string, page, pageSize int) (paging.PagedList[IdentityResource], error)
	GetIdentityResource(ctx context.Context, id int) (*IdentityResource, error)
	GetIdentityResourceName(ctx context.Context, id int) (string, bool, error)
	// GetIdentityResourcesName lists names containing search, at most limit (0 = all)
	GetIdentityResourcesName(ctx context.Context, search string, limit int) ([]string, error)
	CanInsertIdentityResource(ctx context.Context, resource *IdentityResource) (bool, error)
	AddIdentityResource(ctx context.Context, resource *IdentityResource) (int, error)
	UpdateIdentityResource(ctx context.Context, resource *IdentityResource) (int, error)
	DeleteIdentityResource(ctx context.Context, id int) (int, error)

	GetIdentityResourceProperties(ctx context.Context, resourceID, page, pageSize int) (paging.PagedList[IdentityResourceProperty], error)
	GetIdentityResourceProperty(ctx context.Context, id int) (*IdentityResourceProperty, error)
	CanInsertIdentityResourceProperty(ctx context.Context, property *IdentityResourceProperty) (bool, error)
	AddIdentityResourceProperty(ctx context.Context, resourceID int, property *IdentityResourceProperty) (int, error)
	DeleteIdentityResourceProperty(ctx context.Context, id int) (int, error)
}

type InMemoryIdentityResourceRepository struct {
	mu         sync.RWMutex
	resources  map[int]*IdentityResource
	properties map[int]*IdentityResourceProperty
	nextID     int
	now        func() time.Time
}

func NewInMemoryIdentityResourceRepository() *InMemoryIdentityResourceRepository {
	return &InMemoryIdentityResourceRepository{
		resources:  make(map[int]*IdentityResource),
		properties: make(map[int]*IdentityResourceProperty),
		now:        time.Now,
	}
}

func (r *InMemoryIdentityResourceRepository) GetIdentityResources(ctx context.Context, search string, page, pageSize int) (paging.PagedList[IdentityResource], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []IdentityResource
	for _, res := range r.resources {
		if search == "" || utils.ContainsFold(res.Name, search) {
			matches = append(matches, *copyResource(res))
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })
	return paging.Slice(matches, page, pageSize), nil
}

func (r *InMemoryIdentityResourceRepository) GetIdentityResource(ctx context.Context, id int) (*IdentityResource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if res, ok := r.resources[id]; ok {
		return copyResource(res), nil
	}
	return nil, nil
}

func (r *InMemoryIdentityResourceRepository) GetIdentityResourceName(ctx context.Context, id int) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if res, ok := r.resources[id]; ok {
		return res.Name, true, nil
	}
	return "", false, nil
}

func (r *InMemoryIdentityResourceRepository) GetIdentityResourcesName(ctx context.Context, search string, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for _, res := range r.resources {
		if search == "" || utils.ContainsFold(res.Name, search) {
			names = append(names, res.Name)
		}
	}
	sort.Strings(names)
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names, nil
}

func (r *InMemoryIdentityResourceRepository) CanInsertIdentityResource(ctx context.Context, resource *IdentityResource) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.canInsert(resource.ID, resource.Name), nil
}

func (r *InMemoryIdentityResourceRepository) canInsert(id int, name string) bool {
	for _, existing := range r.resources {
		if existing.Name == name && (id == 0 || existing.ID != id) {
			return false
		}
	}
	return true
}

func (r *InMemoryIdentityResourceRepository) AddIdentityResource(ctx context.Context, resource *IdentityResource) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.canInsert(0, resource.Name) {
		return 0, ErrDuplicateName
	}
	r.nextID++
	stored := copyResource(resource)
	stored.ID = r.nextID
	stored.Created = r.now().UTC()
	stored.Updated = nil
	r.resources[stored.ID] = stored
	for _, p := range resource.Properties {
		r.putProperty(stored.ID, p)
	}
	resource.ID = stored.ID
	resource.Created = stored.Created
	return stored.ID, nil
}

func (r *InMemoryIdentityResourceRepository) UpdateIdentityResource(ctx context.Context, resource *IdentityResource) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.resources[resource.ID]
	if !ok {
		return 0, nil
	}
	if !r.canInsert(resource.ID, resource.Name) {
		return 0, ErrDuplicateName
	}
	stored := copyResource(resource)
	stored.Created = existing.Created
	updated := r.now().UTC()
	stored.Updated = &updated
	r.resources[resource.ID] = stored
	return 1, nil
}

func (r *InMemoryIdentityResourceRepository) DeleteIdentityResource(ctx context.Context, id int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.resources[id]; !ok {
		return utils.RowNotFound, nil
	}
	delete(r.resources, id)
	for pid, p := range r.properties {
		if p.IdentityResourceID == id {
			delete(r.properties, pid)
		}
	}
	return 1, nil
}

func (r *InMemoryIdentityResourceRepository) GetIdentityResourceProperties(ctx context.Context, resourceID, page, pageSize int) (paging.PagedList[IdentityResourceProperty], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []IdentityResourceProperty
	for _, p := range r.properties {
		if p.IdentityResourceID == resourceID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paging.Slice(out, page, pageSize), nil
}

func (r *InMemoryIdentityResourceRepository) GetIdentityResourceProperty(ctx context.Context, id int) (*IdentityResourceProperty, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.properties[id]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (r *InMemoryIdentityResourceRepository) CanInsertIdentityResourceProperty(ctx context.Context, property *IdentityResourceProperty) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.canInsertProperty(property.IdentityResourceID, property.Key), nil
}

func (r *InMemoryIdentityResourceRepository) canInsertProperty(resourceID int, key string) bool {
	for _, p := range r.properties {
		if p.IdentityResourceID == resourceID && p.Key == key {
			return false
		}
	}
	return true
}

func (r *InMemoryIdentityResourceRepository) AddIdentityResourceProperty(ctx context.Context, resourceID int, property *IdentityResourceProperty) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.resources[resourceID]; !ok {
		return 0, nil
	}
	if !r.canInsertProperty(resourceID, property.Key) {
		return 0, ErrDuplicatePropertyKey
	}
	property.ID = r.putProperty(resourceID, *property)
	property.IdentityResourceID = resourceID
	return 1, nil
}

func (r *InMemoryIdentityResourceRepository) DeleteIdentityResourceProperty(ctx context.Context, id int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.properties[id]; !ok {
		return utils.RowNotFound, nil
	}
	delete(r.properties, id)
	return 1, nil
}

func (r *InMemoryIdentityResourceRepository) putProperty(resourceID int, p IdentityResourceProperty) int {
	r.nextID++
	p.ID = r.nextID
	p.IdentityResourceID = resourceID
	r.properties[p.ID] = &p
	return p.ID
}

func copyResource(res *IdentityResource) *IdentityResource {
	out := *res
	out.UserClaims = append([]string(nil), res.UserClaims...)
	out.Properties = nil
	return &out
}
