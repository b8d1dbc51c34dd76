package identity

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/tendant/identity-admin/pkg/errors"
	"github.com/tendant/identity-admin/pkg/paging"
	"github.com/tendant/identity-admin/pkg/utils"
)

// IdentityRepository is the user store. Getters return nil without an error
// when the row is missing; deletes return utils.RowNotFound.
type IdentityRepository interface {
	// GetUsers pages users whose user name or email contains search, ordered by user name
	GetUsers(ctx context.Context, search string, page, pageSize int) (paging.PagedList[User], error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	FindUserByName(ctx context.Context, userName string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
	UpdateUser(ctx context.Context, user *User) (int, error)
	DeleteUser(ctx context.Context, id uuid.UUID) (int, error)
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash, securityStamp string) (int, error)

	GetRoles(ctx context.Context, search string, page, pageSize int) (paging.PagedList[Role], error)
	GetRole(ctx context.Context, id uuid.UUID) (*Role, error)
	FindRoleByName(ctx context.Context, name string) (*Role, error)
	CreateRole(ctx context.Context, role *Role) error
	UpdateRole(ctx context.Context, role *Role) (int, error)
	DeleteRole(ctx context.Context, id uuid.UUID) (int, error)

	GetRoleUsers(ctx context.Context, roleID uuid.UUID, search string, page, pageSize int) (paging.PagedList[User], error)
	GetUserRoles(ctx context.Context, userID uuid.UUID, page, pageSize int) (paging.PagedList[Role], error)
	AddUserToRole(ctx context.Context, userID, roleID uuid.UUID) (int, error)
	RemoveUserFromRole(ctx context.Context, userID, roleID uuid.UUID) (int, error)

	GetUserClaims(ctx context.Context, userID uuid.UUID, page, pageSize int) (paging.PagedList[UserClaim], error)
	GetUserClaim(ctx context.Context, userID uuid.UUID, claimID int) (*UserClaim, error)
	AddUserClaim(ctx context.Context, claim *UserClaim) error
	DeleteUserClaim(ctx context.Context, userID uuid.UUID, claimID int) (int, error)

	GetRoleClaims(ctx context.Context, roleID uuid.UUID, page, pageSize int) (paging.PagedList[RoleClaim], error)
	GetRoleClaim(ctx context.Context, roleID uuid.UUID, claimID int) (*RoleClaim, error)
	AddRoleClaim(ctx context.Context, claim *RoleClaim) error
	DeleteRoleClaim(ctx context.Context, roleID uuid.UUID, claimID int) (int, error)

	GetUserProviders(ctx context.Context, userID uuid.UUID) ([]UserLogin, error)
	GetUserProvider(ctx context.Context, userID uuid.UUID, provider, providerKey string) (*UserLogin, error)
	DeleteUserProvider(ctx context.Context, userID uuid.UUID, provider, providerKey string) (int, error)
}

type membership struct {
	userID uuid.UUID
	roleID uuid.UUID
}

// InMemoryIdentityRepository keeps the user store in maps. External logins
// are not tracked, so provider operations fail with NotImplemented.
type InMemoryIdentityRepository struct {
	mu          sync.RWMutex
	users       map[uuid.UUID]*User
	roles       map[uuid.UUID]*Role
	memberships map[membership]struct{}
	userClaims  map[int]*UserClaim
	roleClaims  map[int]*RoleClaim
	nextClaimID int
}

func NewInMemoryIdentityRepository() *InMemoryIdentityRepository {
	return &InMemoryIdentityRepository{
		users:       make(map[uuid.UUID]*User),
		roles:       make(map[uuid.UUID]*Role),
		memberships: make(map[membership]struct{}),
		userClaims:  make(map[int]*UserClaim),
		roleClaims:  make(map[int]*RoleClaim),
	}
}

func matchesUser(u *User, search string) bool {
	return search == "" || utils.ContainsFold(u.UserName, search) || utils.ContainsFold(u.Email, search)
}

func sortUsers(users []User) {
	sort.Slice(users, func(i, j int) bool { return users[i].UserName < users[j].UserName })
}

func (r *InMemoryIdentityRepository) GetUsers(ctx context.Context, search string, page, pageSize int) (paging.PagedList[User], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []User
	for _, u := range r.users {
		if matchesUser(u, search) {
			matches = append(matches, *u)
		}
	}
	sortUsers(matches)
	return paging.Slice(matches, page, pageSize), nil
}

func (r *InMemoryIdentityRepository) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	out := *u
	return &out, nil
}

func (r *InMemoryIdentityRepository) FindUserByName(ctx context.Context, userName string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findUser(func(u *User) bool { return Normalize(u.UserName) == Normalize(userName) }), nil
}

func (r *InMemoryIdentityRepository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findUser(func(u *User) bool { return Normalize(u.Email) == Normalize(email) }), nil
}

func (r *InMemoryIdentityRepository) findUser(match func(*User) bool) *User {
	for _, u := range r.users {
		if match(u) {
			out := *u
			return &out
		}
	}
	return nil
}

func (r *InMemoryIdentityRepository) userNameTaken(user *User) bool {
	for _, existing := range r.users {
		if existing.ID != user.ID && Normalize(existing.UserName) == Normalize(user.UserName) {
			return true
		}
	}
	return false
}

func (r *InMemoryIdentityRepository) CreateUser(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.userNameTaken(user) {
		return ErrDuplicateUserName
	}
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

// UpdateUser keeps the stored password hash and security stamp
func (r *InMemoryIdentityRepository) UpdateUser(ctx context.Context, user *User) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return 0, nil
	}
	if r.userNameTaken(user) {
		return 0, ErrDuplicateUserName
	}
	stored := *user
	stored.PasswordHash = existing.PasswordHash
	stored.SecurityStamp = existing.SecurityStamp
	r.users[user.ID] = &stored
	return 1, nil
}

func (r *InMemoryIdentityRepository) DeleteUser(ctx context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return utils.RowNotFound, nil
	}
	delete(r.users, id)
	for m := range r.memberships {
		if m.userID == id {
			delete(r.memberships, m)
		}
	}
	for cid, c := range r.userClaims {
		if c.UserID == id {
			delete(r.userClaims, cid)
		}
	}
	return 1, nil
}

func (r *InMemoryIdentityRepository) SetPasswordHash(ctx context.Context, id uuid.UUID, hash, securityStamp string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return 0, nil
	}
	u.PasswordHash = hash
	u.SecurityStamp = securityStamp
	return 1, nil
}

func (r *InMemoryIdentityRepository) GetRoles(ctx context.Context, search string, page, pageSize int) (paging.PagedList[Role], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []Role
	for _, role := range r.roles {
		if search == "" || utils.ContainsFold(role.Name, search) {
			matches = append(matches, *role)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })
	return paging.Slice(matches, page, pageSize), nil
}

func (r *InMemoryIdentityRepository) GetRole(ctx context.Context, id uuid.UUID) (*Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	role, ok := r.roles[id]
	if !ok {
		return nil, nil
	}
	out := *role
	return &out, nil
}

func (r *InMemoryIdentityRepository) FindRoleByName(ctx context.Context, name string) (*Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, role := range r.roles {
		if Normalize(role.Name) == Normalize(name) {
			out := *role
			return &out, nil
		}
	}
	return nil, nil
}

func (r *InMemoryIdentityRepository) roleNameTaken(role *Role) bool {
	for _, existing := range r.roles {
		if existing.ID != role.ID && Normalize(existing.Name) == Normalize(role.Name) {
			return true
		}
	}
	return false
}

func (r *InMemoryIdentityRepository) CreateRole(ctx context.Context, role *Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.roleNameTaken(role) {
		return ErrDuplicateRoleName
	}
	stored := *role
	r.roles[role.ID] = &stored
	return nil
}

func (r *InMemoryIdentityRepository) UpdateRole(ctx context.Context, role *Role) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roles[role.ID]; !ok {
		return 0, nil
	}
	if r.roleNameTaken(role) {
		return 0, ErrDuplicateRoleName
	}
	stored := *role
	r.roles[role.ID] = &stored
	return 1, nil
}

func (r *InMemoryIdentityRepository) DeleteRole(ctx context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roles[id]; !ok {
		return utils.RowNotFound, nil
	}
	delete(r.roles, id)
	for m := range r.memberships {
		if m.roleID == id {
			delete(r.memberships, m)
		}
	}
	for cid, c := range r.roleClaims {
		if c.RoleID == id {
			delete(r.roleClaims, cid)
		}
	}
	return 1, nil
}

func (r *InMemoryIdentityRepository) GetRoleUsers(ctx context.Context, roleID uuid.UUID, search string, page, pageSize int) (paging.PagedList[User], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []User
	for m := range r.memberships {
		if m.roleID != roleID {
			continue
		}
		if u, ok := r.users[m.userID]; ok && matchesUser(u, search) {
			matches = append(matches, *u)
		}
	}
	sortUsers(matches)
	return paging.Slice(matches, page, pageSize), nil
}

func (r *InMemoryIdentityRepository) GetUserRoles(ctx context.Context, userID uuid.UUID, page, pageSize int) (paging.PagedList[Role], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var roles []Role
	for m := range r.memberships {
		if m.userID != userID {
			continue
		}
		if role, ok := r.roles[m.roleID]; ok {
			roles = append(roles, *role)
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return paging.Slice(roles, page, pageSize), nil
}

// AddUserToRole is idempotent; an existing membership counts as one row
func (r *InMemoryIdentityRepository) AddUserToRole(ctx context.Context, userID, roleID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, userOK := r.users[userID]
	_, roleOK := r.roles[roleID]
	if !userOK || !roleOK {
		return 0, nil
	}
	r.memberships[membership{userID: userID, roleID: roleID}] = struct{}{}
	return 1, nil
}

func (r *InMemoryIdentityRepository) RemoveUserFromRole(ctx context.Context, userID, roleID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := membership{userID: userID, roleID: roleID}
	if _, ok := r.memberships[key]; !ok {
		return utils.RowNotFound, nil
	}
	delete(r.memberships, key)
	return 1, nil
}

func (r *InMemoryIdentityRepository) GetUserClaims(ctx context.Context, userID uuid.UUID, page, pageSize int) (paging.PagedList[UserClaim], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var claims []UserClaim
	for _, c := range r.userClaims {
		if c.UserID == userID {
			claims = append(claims, *c)
		}
	}
	sort.Slice(claims, func(i, j int) bool { return claims[i].ID < claims[j].ID })
	return paging.Slice(claims, page, pageSize), nil
}

func (r *InMemoryIdentityRepository) GetUserClaim(ctx context.Context, userID uuid.UUID, claimID int) (*UserClaim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.userClaims[claimID]
	if !ok || c.UserID != userID {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (r *InMemoryIdentityRepository) AddUserClaim(ctx context.Context, claim *UserClaim) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextClaimID++
	claim.ID = r.nextClaimID
	stored := *claim
	r.userClaims[claim.ID] = &stored
	return nil
}

func (r *InMemoryIdentityRepository) DeleteUserClaim(ctx context.Context, userID uuid.UUID, claimID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.userClaims[claimID]
	if !ok || c.UserID != userID {
		return utils.RowNotFound, nil
	}
	delete(r.userClaims, claimID)
	return 1, nil
}

func (r *InMemoryIdentityRepository) GetRoleClaims(ctx context.Context, roleID uuid.UUID, page, pageSize int) (paging.PagedList[RoleClaim], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var claims []RoleClaim
	for _, c := range r.roleClaims {
		if c.RoleID == roleID {
			claims = append(claims, *c)
		}
	}
	sort.Slice(claims, func(i, j int) bool { return claims[i].ID < claims[j].ID })
	return paging.Slice(claims, page, pageSize), nil
}

func (r *InMemoryIdentityRepository) GetRoleClaim(ctx context.Context, roleID uuid.UUID, claimID int) (*RoleClaim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.roleClaims[claimID]
	if !ok || c.RoleID != roleID {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (r *InMemoryIdentityRepository) AddRoleClaim(ctx context.Context, claim *RoleClaim) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextClaimID++
	claim.ID = r.nextClaimID
	stored := *claim
	r.roleClaims[claim.ID] = &stored
	return nil
}

func (r *InMemoryIdentityRepository) DeleteRoleClaim(ctx context.Context, roleID uuid.UUID, claimID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.roleClaims[claimID]
	if !ok || c.RoleID != roleID {
		return utils.RowNotFound, nil
	}
	delete(r.roleClaims, claimID)
	return 1, nil
}

func (r *InMemoryIdentityRepository) GetUserProviders(ctx context.Context, userID uuid.UUID) ([]UserLogin, error) {
	return nil, apperrors.NotImplemented("GetUserProviders")
}

func (r *InMemoryIdentityRepository) GetUserProvider(ctx context.Context, userID uuid.UUID, provider, providerKey string) (*UserLogin, error) {
	return nil, apperrors.NotImplemented("GetUserProvider")
}

func (r *InMemoryIdentityRepository) DeleteUserProvider(ctx context.Context, userID uuid.UUID, provider, providerKey string) (int, error) {
	return 0, apperrors.NotImplemented("DeleteUserProvider")
}
