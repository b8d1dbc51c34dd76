package apiscope

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/tendant/identity-admin/pkg/paging"
	"github.com/tendant/identity-admin/pkg/utils"
)

var (
	ErrDuplicateName        = errors.New("api scope name already exists")
	ErrDuplicatePropertyKey = errors.New("api scope property key already exists")
)

// ApiScopeRepository defines data access for API scopes
type ApiScopeRepository interface {
	// GetApiScopes pages scopes whose name contains search, ordered by name
	GetApiScopes(ctx context.Context, search string, page, pageSize int) (paging.PagedList[ApiScope], error)
	GetApiScope(ctx context.Context, id int) (*ApiScope, error)
	GetApiScopeName(ctx context.Context, id int) (string, bool, error)
	// GetApiScopesName lists scope names containing scope, at most limit (0 = all)
	GetApiScopesName(ctx context.Context, scope string, limit int) ([]string, error)
	CanInsertApiScope(ctx context.Context, scope *ApiScope) (bool, error)
	AddApiScope(ctx context.Context, scope *ApiScope) (int, error)
	UpdateApiScope(ctx context.Context, scope *ApiScope) (int, error)
	DeleteApiScope(ctx context.Context, id int) (int, error)

	GetApiScopeProperties(ctx context.Context, scopeID, page, pageSize int) (paging.PagedList[ApiScopeProperty], error)
	GetApiScopeProperty(ctx context.Context, id int) (*ApiScopeProperty, error)
	CanInsertApiScopeProperty(ctx context.Context, property *ApiScopeProperty) (bool, error)
	AddApiScopeProperty(ctx context.Context, scopeID int, property *ApiScopeProperty) (int, error)
	DeleteApiScopeProperty(ctx context.Context, id int) (int, error)
}

type InMemoryApiScopeRepository struct {
	mu         sync.RWMutex
	scopes     map[int]*ApiScope
	properties map[int]*ApiScopeProperty
	nextID     int
}

func NewInMemoryApiScopeRepository() *InMemoryApiScopeRepository {
	return &InMemoryApiScopeRepository{
		scopes:     make(map[int]*ApiScope),
		properties: make(map[int]*ApiScopeProperty),
	}
}

func (r *InMemoryApiScopeRepository) GetApiScopes(ctx context.Context, search string, page, pageSize int) (paging.PagedList[ApiScope], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []ApiScope
	for _, s := range r.scopes {
		if search == "" || utils.ContainsFold(s.Name, search) {
			matches = append(matches, *copyScope(s))
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })
	return paging.Slice(matches, page, pageSize), nil
}

func (r *InMemoryApiScopeRepository) GetApiScope(ctx context.Context, id int) (*ApiScope, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.scopes[id]
	if !ok {
		return nil, nil
	}
	return copyScope(s), nil
}

func (r *InMemoryApiScopeRepository) GetApiScopeName(ctx context.Context, id int) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.scopes[id]
	if !ok {
		return "", false, nil
	}
	return s.Name, true, nil
}

func (r *InMemoryApiScopeRepository) GetApiScopesName(ctx context.Context, scope string, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for _, s := range r.scopes {
		if scope == "" || utils.ContainsFold(s.Name, scope) {
			names = append(names, s.Name)
		}
	}
	sort.Strings(names)
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names, nil
}

func (r *InMemoryApiScopeRepository) CanInsertApiScope(ctx context.Context, scope *ApiScope) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.canInsert(scope), nil
}

func (r *InMemoryApiScopeRepository) canInsert(scope *ApiScope) bool {
	for _, existing := range r.scopes {
		if existing.Name == scope.Name && (scope.ID == 0 || existing.ID != scope.ID) {
			return false
		}
	}
	return true
}

func (r *InMemoryApiScopeRepository) AddApiScope(ctx context.Context, scope *ApiScope) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.canInsert(&ApiScope{Name: scope.Name}) {
		return 0, ErrDuplicateName
	}
	r.nextID++
	stored := copyScope(scope)
	stored.ID = r.nextID
	r.scopes[stored.ID] = stored
	for _, p := range scope.Properties {
		r.putProperty(stored.ID, p)
	}
	scope.ID = stored.ID
	return stored.ID, nil
}

func (r *InMemoryApiScopeRepository) UpdateApiScope(ctx context.Context, scope *ApiScope) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.scopes[scope.ID]; !ok {
		return 0, nil
	}
	if !r.canInsert(scope) {
		return 0, ErrDuplicateName
	}
	r.scopes[scope.ID] = copyScope(scope)
	return 1, nil
}

func (r *InMemoryApiScopeRepository) DeleteApiScope(ctx context.Context, id int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.scopes[id]; !ok {
		return utils.RowNotFound, nil
	}
	delete(r.scopes, id)
	for pid, p := range r.properties {
		if p.ApiScopeID == id {
			delete(r.properties, pid)
		}
	}
	return 1, nil
}

func (r *InMemoryApiScopeRepository) GetApiScopeProperties(ctx context.Context, scopeID, page, pageSize int) (paging.PagedList[ApiScopeProperty], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ApiScopeProperty
	for _, p := range r.properties {
		if p.ApiScopeID == scopeID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paging.Slice(out, page, pageSize), nil
}

func (r *InMemoryApiScopeRepository) GetApiScopeProperty(ctx context.Context, id int) (*ApiScopeProperty, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.properties[id]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (r *InMemoryApiScopeRepository) CanInsertApiScopeProperty(ctx context.Context, property *ApiScopeProperty) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.canInsertProperty(property.ApiScopeID, property.Key), nil
}

func (r *InMemoryApiScopeRepository) canInsertProperty(scopeID int, key string) bool {
	for _, p := range r.properties {
		if p.ApiScopeID == scopeID && p.Key == key {
			return false
		}
	}
	return true
}

func (r *InMemoryApiScopeRepository) AddApiScopeProperty(ctx context.Context, scopeID int, property *ApiScopeProperty) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.scopes[scopeID]; !ok {
		return 0, nil
	}
	if !r.canInsertProperty(scopeID, property.Key) {
		return 0, ErrDuplicatePropertyKey
	}
	property.ID = r.putProperty(scopeID, *property)
	property.ApiScopeID = scopeID
	return 1, nil
}

func (r *InMemoryApiScopeRepository) DeleteApiScopeProperty(ctx context.Context, id int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.properties[id]; !ok {
		return utils.RowNotFound, nil
	}
	delete(r.properties, id)
	return 1, nil
}

func (r *InMemoryApiScopeRepository) putProperty(scopeID int, p ApiScopeProperty) int {
	r.nextID++
	p.ID = r.nextID
	p.ApiScopeID = scopeID
	r.properties[p.ID] = &p
	return p.ID
}

func copyScope(s *ApiScope) *ApiScope {
	out := *s
	out.UserClaims = append([]string(nil), s.UserClaims...)
	out.Properties = nil
	return &out
}
