package apiresource

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
	// ErrDuplicateName is returned when the storage rejects a taken resource name
	ErrDuplicateName = errors.New("api resource name already exists")
	// ErrDuplicatePropertyKey is returned when the resource already owns the key
	ErrDuplicatePropertyKey = errors.New("api resource property key already exists")
)

// ApiResourceRepository defines data access for API resources.
// Getters return nil and no error for missing rows; deletes of missing rows
// return utils.RowNotFound.
type ApiResourceRepository interface {
	GetApiResources(ctx context.Context, search string, page, pageSize int) (paging.PagedList[ApiResource], error)
	GetApiResource(ctx context.Context, id int) (*ApiResource, error)
	GetApiResourceName(ctx context.Context, id int) (string, bool, error)
	CanInsertApiResource(ctx context.Context, resource *ApiResource) (bool, error)
	AddApiResource(ctx context.Context, resource *ApiResource) (int, error)
	// UpdateApiResource replaces the user claims and scopes of the resource
	UpdateApiResource(ctx context.Context, resource *ApiResource) (int, error)
	DeleteApiResource(ctx context.Context, id int) (int, error)

	GetApiSecrets(ctx context.Context, resourceID, page, pageSize int) (paging.PagedList[ApiSecret], error)
	GetApiSecret(ctx context.Context, id int) (*ApiSecret, error)
	AddApiSecret(ctx context.Context, resourceID int, secret *ApiSecret) (int, error)
	DeleteApiSecret(ctx context.Context, id int) (int, error)

	GetApiResourceProperties(ctx context.Context, resourceID, page, pageSize int) (paging.PagedList[ApiResourceProperty], error)
	GetApiResourceProperty(ctx context.Context, id int) (*ApiResourceProperty, error)
	CanInsertApiResourceProperty(ctx context.Context, property *ApiResourceProperty) (bool, error)
	AddApiResourceProperty(ctx context.Context, resourceID int, property *ApiResourceProperty) (int, error)
	DeleteApiResourceProperty(ctx context.Context, id int) (int, error)
}

// InMemoryApiResourceRepository keeps API resources in process memory
type InMemoryApiResourceRepository struct {
	mu         sync.RWMutex
	resources  map[int]*ApiResource
	secrets    map[int]*ApiSecret
	properties map[int]*ApiResourceProperty
	nextID     int
}

func NewInMemoryApiResourceRepository() *InMemoryApiResourceRepository {
	return &InMemoryApiResourceRepository{
		resources:  make(map[int]*ApiResource),
		secrets:    make(map[int]*ApiSecret),
		properties: make(map[int]*ApiResourceProperty),
	}
}

func (r *InMemoryApiResourceRepository) id() int {
	r.nextID++
	return r.nextID
}

func (r *InMemoryApiResourceRepository) GetApiResources(ctx context.Context, search string, page, pageSize int) (paging.PagedList[ApiResource], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []ApiResource
	for _, res := range r.resources {
		if search == "" || utils.ContainsFold(res.Name, search) {
			matches = append(matches, *copyHeader(res))
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })
	return paging.Slice(matches, page, pageSize), nil
}

func (r *InMemoryApiResourceRepository) GetApiResource(ctx context.Context, id int) (*ApiResource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resources[id]
	if !ok {
		return nil, nil
	}
	return copyHeader(res), nil
}

func (r *InMemoryApiResourceRepository) GetApiResourceName(ctx context.Context, id int) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resources[id]
	if !ok {
		return "", false, nil
	}
	return res.Name, true, nil
}

func (r *InMemoryApiResourceRepository) CanInsertApiResource(ctx context.Context, resource *ApiResource) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.canInsert(resource), nil
}

func (r *InMemoryApiResourceRepository) canInsert(resource *ApiResource) bool {
	for _, existing := range r.resources {
		if existing.Name == resource.Name && (resource.ID == 0 || existing.ID != resource.ID) {
			return false
		}
	}
	return true
}

func (r *InMemoryApiResourceRepository) AddApiResource(ctx context.Context, resource *ApiResource) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.canInsert(&ApiResource{Name: resource.Name}) {
		return 0, ErrDuplicateName
	}
	stored := copyHeader(resource)
	stored.ID = r.id()
	stored.Created = time.Now().UTC()
	r.resources[stored.ID] = stored

	for _, s := range resource.Secrets {
		r.putSecret(stored.ID, s)
	}
	for _, p := range resource.Properties {
		r.putProperty(stored.ID, p)
	}
	resource.ID = stored.ID
	resource.Created = stored.Created
	return stored.ID, nil
}

func (r *InMemoryApiResourceRepository) UpdateApiResource(ctx context.Context, resource *ApiResource) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.resources[resource.ID]
	if !ok {
		return 0, nil
	}
	if !r.canInsert(resource) {
		return 0, ErrDuplicateName
	}
	updated := copyHeader(resource)
	updated.Created = existing.Created
	now := time.Now().UTC()
	updated.Updated = &now
	r.resources[resource.ID] = updated
	return 1, nil
}

func (r *InMemoryApiResourceRepository) DeleteApiResource(ctx context.Context, id int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.resources[id]; !ok {
		return utils.RowNotFound, nil
	}
	delete(r.resources, id)
	for sid, s := range r.secrets {
		if s.ApiResourceID == id {
			delete(r.secrets, sid)
		}
	}
	for pid, p := range r.properties {
		if p.ApiResourceID == id {
			delete(r.properties, pid)
		}
	}
	return 1, nil
}

func (r *InMemoryApiResourceRepository) GetApiSecrets(ctx context.Context, resourceID, page, pageSize int) (paging.PagedList[ApiSecret], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ApiSecret
	for _, s := range r.secrets {
		if s.ApiResourceID == resourceID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paging.Slice(out, page, pageSize), nil
}

func (r *InMemoryApiResourceRepository) GetApiSecret(ctx context.Context, id int) (*ApiSecret, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.secrets[id]
	if !ok {
		return nil, nil
	}
	out := *s
	return &out, nil
}

func (r *InMemoryApiResourceRepository) AddApiSecret(ctx context.Context, resourceID int, secret *ApiSecret) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.resources[resourceID]; !ok {
		return 0, nil
	}
	secret.ID = r.putSecret(resourceID, *secret)
	secret.ApiResourceID = resourceID
	return 1, nil
}

func (r *InMemoryApiResourceRepository) DeleteApiSecret(ctx context.Context, id int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.secrets[id]; !ok {
		return utils.RowNotFound, nil
	}
	delete(r.secrets, id)
	return 1, nil
}

func (r *InMemoryApiResourceRepository) GetApiResourceProperties(ctx context.Context, resourceID, page, pageSize int) (paging.PagedList[ApiResourceProperty], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ApiResourceProperty
	for _, p := range r.properties {
		if p.ApiResourceID == resourceID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paging.Slice(out, page, pageSize), nil
}

func (r *InMemoryApiResourceRepository) GetApiResourceProperty(ctx context.Context, id int) (*ApiResourceProperty, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.properties[id]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (r *InMemoryApiResourceRepository) CanInsertApiResourceProperty(ctx context.Context, property *ApiResourceProperty) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.canInsertProperty(property.ApiResourceID, property.Key), nil
}

func (r *InMemoryApiResourceRepository) canInsertProperty(resourceID int, key string) bool {
	for _, p := range r.properties {
		if p.ApiResourceID == resourceID && p.Key == key {
			return false
		}
	}
	return true
}

func (r *InMemoryApiResourceRepository) AddApiResourceProperty(ctx context.Context, resourceID int, property *ApiResourceProperty) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.resources[resourceID]; !ok {
		return 0, nil
	}
	if !r.canInsertProperty(resourceID, property.Key) {
		return 0, ErrDuplicatePropertyKey
	}
	property.ID = r.putProperty(resourceID, *property)
	property.ApiResourceID = resourceID
	return 1, nil
}

func (r *InMemoryApiResourceRepository) DeleteApiResourceProperty(ctx context.Context, id int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.properties[id]; !ok {
		return utils.RowNotFound, nil
	}
	delete(r.properties, id)
	return 1, nil
}

func (r *InMemoryApiResourceRepository) putSecret(resourceID int, s ApiSecret) int {
	s.ID = r.id()
	s.ApiResourceID = resourceID
	if s.Created.IsZero() {
		s.Created = time.Now().UTC()
	}
	r.secrets[s.ID] = &s
	return s.ID
}

func (r *InMemoryApiResourceRepository) putProperty(resourceID int, p ApiResourceProperty) int {
	p.ID = r.id()
	p.ApiResourceID = resourceID
	r.properties[p.ID] = &p
	return p.ID
}

// copyHeader copies the resource with its claims, scopes and algorithms.
// Secrets and properties are loaded through their own calls.
func copyHeader(res *ApiResource) *ApiResource {
	out := *res
	out.AllowedAccessTokenSigningAlgorithms = append([]string(nil), res.AllowedAccessTokenSigningAlgorithms...)
	out.UserClaims = append([]string(nil), res.UserClaims...)
	out.Scopes = append([]string(nil), res.Scopes...)
	out.Secrets = nil
	out.Properties = nil
	return &out
}
