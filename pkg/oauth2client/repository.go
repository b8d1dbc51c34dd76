package oauth2client

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/tendant/identity-admin/pkg/paging"
	"github.com/tendant/identity-admin/pkg/utils"
)

// ErrDuplicateClientID is returned by AddClient and UpdateClient when the
// storage rejects a ClientID that is already taken
var ErrDuplicateClientID = errors.New("client id already exists")

// ErrDuplicatePropertyKey is returned when a client would own two
// properties with the same key
var ErrDuplicatePropertyKey = errors.New("client property key already exists")

// repeatedPropertyKey reports the first key listed twice in properties
func repeatedPropertyKey(properties []ClientProperty) (string, bool) {
	seen := make(map[string]struct{}, len(properties))
	for _, p := range properties {
		if _, ok := seen[p.Key]; ok {
			return p.Key, true
		}
		seen[p.Key] = struct{}{}
	}
	return "", false
}

// ClientRepository defines data access for client registrations.
// Getters return a nil entity and no error when the row is missing.
// Deletes return utils.RowNotFound when the target does not exist.
type ClientRepository interface {
	GetClients(ctx context.Context, search string, page, pageSize int) (paging.PagedList[Client], error)
	// GetClient loads the client with all of its collections
	GetClient(ctx context.Context, id int) (*Client, error)
	// GetClientID returns ClientID and ClientName for id
	GetClientID(ctx context.Context, id int) (clientID string, clientName string, found bool, err error)
	CanInsertClient(ctx context.Context, client *Client, isCloned bool) (bool, error)
	AddClient(ctx context.Context, client *Client) (int, error)
	// CloneClient stores client as a new row, copying the collections of
	// originalID that opts selects
	CloneClient(ctx context.Context, originalID int, client *Client, opts CloneOptions) (int, error)
	UpdateClient(ctx context.Context, client *Client, updateClaims, updateProperties bool) (int, error)
	RemoveClient(ctx context.Context, id int) (int, error)

	GetClientSecrets(ctx context.Context, clientID, page, pageSize int) (paging.PagedList[ClientSecret], error)
	GetClientSecret(ctx context.Context, id int) (*ClientSecret, error)
	AddClientSecret(ctx context.Context, clientID int, secret *ClientSecret) (int, error)
	DeleteClientSecret(ctx context.Context, id int) (int, error)

	GetClientClaims(ctx context.Context, clientID, page, pageSize int) (paging.PagedList[ClientClaim], error)
	GetClientClaim(ctx context.Context, id int) (*ClientClaim, error)
	AddClientClaim(ctx context.Context, clientID int, claim *ClientClaim) (int, error)
	DeleteClientClaim(ctx context.Context, id int) (int, error)

	GetClientProperties(ctx context.Context, clientID, page, pageSize int) (paging.PagedList[ClientProperty], error)
	GetClientProperty(ctx context.Context, id int) (*ClientProperty, error)
	CanInsertClientProperty(ctx context.Context, property *ClientProperty) (bool, error)
	AddClientProperty(ctx context.Context, clientID int, property *ClientProperty) (int, error)
	DeleteClientProperty(ctx context.Context, id int) (int, error)

	// GetScopes lists identity resource and API scope names matching search
	GetScopes(ctx context.Context, search string, limit int) ([]string, error)
}

// InMemoryClientRepository keeps clients in process memory
type InMemoryClientRepository struct {
	mu         sync.RWMutex
	clients    map[int]*Client
	secrets    map[int]*ClientSecret
	claims     map[int]*ClientClaim
	properties map[int]*ClientProperty
	scopes     []string
	nextID     int
	now        func() time.Time
}

// NewInMemoryClientRepository creates an empty in-memory repository
func NewInMemoryClientRepository() *InMemoryClientRepository {
	return &InMemoryClientRepository{
		clients:    make(map[int]*Client),
		secrets:    make(map[int]*ClientSecret),
		claims:     make(map[int]*ClientClaim),
		properties: make(map[int]*ClientProperty),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetKnownScopes sets the names returned by GetScopes
func (r *InMemoryClientRepository) SetKnownScopes(scopes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scopes = append([]string(nil), scopes...)
}

func (r *InMemoryClientRepository) id() int {
	r.nextID++
	return r.nextID
}

func (r *InMemoryClientRepository) GetClients(ctx context.Context, search string, page, pageSize int) (paging.PagedList[Client], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []Client
	for _, c := range r.clients {
		if search == "" || utils.ContainsFold(c.ClientID, search) || utils.ContainsFold(c.ClientName, search) {
			matches = append(matches, *copyClientHeader(c))
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return paging.Slice(matches, page, pageSize), nil
}

func (r *InMemoryClientRepository) GetClient(ctx context.Context, id int) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[id]
	if !ok {
		return nil, nil
	}
	return r.loadClient(c), nil
}

func (r *InMemoryClientRepository) GetClientID(ctx context.Context, id int) (string, string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[id]
	if !ok {
		return "", "", false, nil
	}
	return c.ClientID, c.ClientName, true, nil
}

func (r *InMemoryClientRepository) CanInsertClient(ctx context.Context, client *Client, isCloned bool) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.canInsert(client, isCloned), nil
}

func (r *InMemoryClientRepository) canInsert(client *Client, isCloned bool) bool {
	for _, existing := range r.clients {
		if existing.ClientID != client.ClientID {
			continue
		}
		if client.ID == 0 || isCloned || existing.ID != client.ID {
			return false
		}
	}
	return true
}

func (r *InMemoryClientRepository) AddClient(ctx context.Context, client *Client) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.canInsert(&Client{ClientID: client.ClientID}, false) {
		return 0, ErrDuplicateClientID
	}
	if _, dup := repeatedPropertyKey(client.Properties); dup {
		return 0, ErrDuplicatePropertyKey
	}
	return r.insert(client), nil
}

func (r *InMemoryClientRepository) insert(client *Client) int {
	stored := copyClientHeader(client)
	stored.ID = r.id()
	stored.Created = r.now()
	stored.Updated = nil
	r.clients[stored.ID] = stored

	for _, s := range client.ClientSecrets {
		r.putSecret(stored.ID, s)
	}
	for _, c := range client.Claims {
		r.putClaim(stored.ID, c)
	}
	for _, p := range client.Properties {
		r.putProperty(stored.ID, p)
	}
	client.ID = stored.ID
	client.Created = stored.Created
	return stored.ID
}

func (r *InMemoryClientRepository) CloneClient(ctx context.Context, originalID int, client *Client, opts CloneOptions) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	original, ok := r.clients[originalID]
	if !ok {
		return 0, nil
	}
	if !r.canInsert(&Client{ClientID: client.ClientID}, true) {
		return 0, ErrDuplicateClientID
	}

	clone := cloneOf(r.loadClient(original), client, opts)
	return r.insert(clone), nil
}

func (r *InMemoryClientRepository) UpdateClient(ctx context.Context, client *Client, updateClaims, updateProperties bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.clients[client.ID]
	if !ok {
		return 0, nil
	}
	if !r.canInsert(client, false) {
		return 0, ErrDuplicateClientID
	}
	if _, dup := repeatedPropertyKey(client.Properties); updateProperties && dup {
		return 0, ErrDuplicatePropertyKey
	}

	updated := copyClientHeader(client)
	updated.Created = existing.Created
	now := r.now()
	updated.Updated = &now
	r.clients[client.ID] = updated

	if updateClaims {
		for id, c := range r.claims {
			if c.ClientID == client.ID {
				delete(r.claims, id)
			}
		}
		for _, c := range client.Claims {
			r.putClaim(client.ID, c)
		}
	}
	if updateProperties {
		for id, p := range r.properties {
			if p.ClientID == client.ID {
				delete(r.properties, id)
			}
		}
		for _, p := range client.Properties {
			r.putProperty(client.ID, p)
		}
	}
	return 1, nil
}

func (r *InMemoryClientRepository) RemoveClient(ctx context.Context, id int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[id]; !ok {
		return utils.RowNotFound, nil
	}
	delete(r.clients, id)
	for sid, s := range r.secrets {
		if s.ClientID == id {
			delete(r.secrets, sid)
		}
	}
	for cid, c := range r.claims {
		if c.ClientID == id {
			delete(r.claims, cid)
		}
	}
	for pid, p := range r.properties {
		if p.ClientID == id {
			delete(r.properties, pid)
		}
	}
	return 1, nil
}

func (r *InMemoryClientRepository) GetClientSecrets(ctx context.Context, clientID, page, pageSize int) (paging.PagedList[ClientSecret], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return paging.Slice(r.secretsOf(clientID), page, pageSize), nil
}

func (r *InMemoryClientRepository) GetClientSecret(ctx context.Context, id int) (*ClientSecret, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.secrets[id]
	if !ok {
		return nil, nil
	}
	out := *s
	return &out, nil
}

func (r *InMemoryClientRepository) AddClientSecret(ctx context.Context, clientID int, secret *ClientSecret) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[clientID]; !ok {
		return 0, nil
	}
	id := r.putSecret(clientID, *secret)
	secret.ID = id
	secret.ClientID = clientID
	return 1, nil
}

func (r *InMemoryClientRepository) DeleteClientSecret(ctx context.Context, id int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.secrets[id]; !ok {
		return utils.RowNotFound, nil
	}
	delete(r.secrets, id)
	return 1, nil
}

func (r *InMemoryClientRepository) GetClientClaims(ctx context.Context, clientID, page, pageSize int) (paging.PagedList[ClientClaim], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return paging.Slice(r.claimsOf(clientID), page, pageSize), nil
}

func (r *InMemoryClientRepository) GetClientClaim(ctx context.Context, id int) (*ClientClaim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.claims[id]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (r *InMemoryClientRepository) AddClientClaim(ctx context.Context, clientID int, claim *ClientClaim) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[clientID]; !ok {
		return 0, nil
	}
	claim.ID = r.putClaim(clientID, *claim)
	claim.ClientID = clientID
	return 1, nil
}

func (r *InMemoryClientRepository) DeleteClientClaim(ctx context.Context, id int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.claims[id]; !ok {
		return utils.RowNotFound, nil
	}
	delete(r.claims, id)
	return 1, nil
}

func (r *InMemoryClientRepository) GetClientProperties(ctx context.Context, clientID, page, pageSize int) (paging.PagedList[ClientProperty], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return paging.Slice(r.propertiesOf(clientID), page, pageSize), nil
}

func (r *InMemoryClientRepository) GetClientProperty(ctx context.Context, id int) (*ClientProperty, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.properties[id]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (r *InMemoryClientRepository) CanInsertClientProperty(ctx context.Context, property *ClientProperty) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.canInsertProperty(property), nil
}

func (r *InMemoryClientRepository) canInsertProperty(property *ClientProperty) bool {
	for _, p := range r.properties {
		if p.ClientID == property.ClientID && p.Key == property.Key {
			return false
		}
	}
	return true
}

func (r *InMemoryClientRepository) AddClientProperty(ctx context.Context, clientID int, property *ClientProperty) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[clientID]; !ok {
		return 0, nil
	}
	if !r.canInsertProperty(&ClientProperty{ClientID: clientID, Key: property.Key}) {
		return 0, ErrDuplicatePropertyKey
	}
	property.ID = r.putProperty(clientID, *property)
	property.ClientID = clientID
	return 1, nil
}

func (r *InMemoryClientRepository) DeleteClientProperty(ctx context.Context, id int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.properties[id]; !ok {
		return utils.RowNotFound, nil
	}
	delete(r.properties, id)
	return 1, nil
}

func (r *InMemoryClientRepository) GetScopes(ctx context.Context, search string, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, s := range r.scopes {
		if search == "" || utils.ContainsFold(s, search) {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemoryClientRepository) putSecret(clientID int, s ClientSecret) int {
	s.ID = r.id()
	s.ClientID = clientID
	if s.Created.IsZero() {
		s.Created = r.now()
	}
	r.secrets[s.ID] = &s
	return s.ID
}

func (r *InMemoryClientRepository) putClaim(clientID int, c ClientClaim) int {
	c.ID = r.id()
	c.ClientID = clientID
	r.claims[c.ID] = &c
	return c.ID
}

func (r *InMemoryClientRepository) putProperty(clientID int, p ClientProperty) int {
	p.ID = r.id()
	p.ClientID = clientID
	r.properties[p.ID] = &p
	return p.ID
}

func (r *InMemoryClientRepository) loadClient(c *Client) *Client {
	out := copyClientHeader(c)
	out.ClientSecrets = r.secretsOf(c.ID)
	out.Claims = r.claimsOf(c.ID)
	out.Properties = r.propertiesOf(c.ID)
	return out
}

func (r *InMemoryClientRepository) secretsOf(clientID int) []ClientSecret {
	var out []ClientSecret
	for _, s := range r.secrets {
		if s.ClientID == clientID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *InMemoryClientRepository) claimsOf(clientID int) []ClientClaim {
	var out []ClientClaim
	for _, c := range r.claims {
		if c.ClientID == clientID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *InMemoryClientRepository) propertiesOf(clientID int) []ClientProperty {
	var out []ClientProperty
	for _, p := range r.properties {
		if p.ClientID == clientID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// copyClientHeader copies the client and its string collections, leaving
// secrets, claims and properties empty
func copyClientHeader(c *Client) *Client {
	out := *c
	out.AllowedGrantTypes = append([]string(nil), c.AllowedGrantTypes...)
	out.RedirectURIs = append([]string(nil), c.RedirectURIs...)
	out.PostLogoutRedirectURIs = append([]string(nil), c.PostLogoutRedirectURIs...)
	out.AllowedCorsOrigins = append([]string(nil), c.AllowedCorsOrigins...)
	out.AllowedScopes = append([]string(nil), c.AllowedScopes...)
	out.IdentityProviderRestrictions = append([]string(nil), c.IdentityProviderRestrictions...)
	out.ClientSecrets = nil
	out.Claims = nil
	out.Properties = nil
	return &out
}

// cloneOf builds the row stored by CloneClient: the original's settings
// under the new ClientID/ClientName with the selected collections. Secrets
// are never cloned.
func cloneOf(original, target *Client, opts CloneOptions) *Client {
	clone := copyClientHeader(original)
	clone.ID = 0
	clone.ClientID = target.ClientID
	clone.ClientName = target.ClientName

	if !opts.CloneClientCorsOrigins {
		clone.AllowedCorsOrigins = nil
	}
	if !opts.CloneClientGrantTypes {
		clone.AllowedGrantTypes = nil
	}
	if !opts.CloneClientIdPRestrictions {
		clone.IdentityProviderRestrictions = nil
	}
	if !opts.CloneClientPostLogoutRedirectUris {
		clone.PostLogoutRedirectURIs = nil
	}
	if !opts.CloneClientRedirectUris {
		clone.RedirectURIs = nil
	}
	if !opts.CloneClientScopes {
		clone.AllowedScopes = nil
	}
	if opts.CloneClientClaims {
		for _, c := range original.Claims {
			clone.Claims = append(clone.Claims, ClientClaim{Type: c.Type, Value: c.Value})
		}
	}
	if opts.CloneClientProperties {
		for _, p := range original.Properties {
			clone.Properties = append(clone.Properties, ClientProperty{Key: p.Key, Value: p.Value})
		}
	}
	return clone
}
