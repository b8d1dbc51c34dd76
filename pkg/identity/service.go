package identity

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/tendant/identity-admin/pkg/audit"
	apperrors "github.com/tendant/identity-admin/pkg/errors"
	"github.com/tendant/identity-admin/pkg/eventbus"
	"github.com/tendant/identity-admin/pkg/paging"
	"github.com/tendant/identity-admin/pkg/utils"
)

type IdentityService struct {
	repository IdentityRepository
	hasher     PasswordHasher
	publisher  eventbus.Publisher
	auditor    audit.Auditor
}

type Option func(*IdentityService)

func WithAuditor(auditor audit.Auditor) Option {
	return func(s *IdentityService) {
		if auditor != nil {
			s.auditor = auditor
		}
	}
}

// WithPublisher sends account integration events to publisher
func WithPublisher(publisher eventbus.Publisher) Option {
	return func(s *IdentityService) {
		if publisher != nil {
			s.publisher = publisher
		}
	}
}

func WithPasswordHasher(hasher PasswordHasher) Option {
	return func(s *IdentityService) {
		if hasher != nil {
			s.hasher = hasher
		}
	}
}

func NewIdentityService(repository IdentityRepository, opts ...Option) *IdentityService {
	s := &IdentityService{
		repository: repository,
		hasher:     NewBcryptHasher(),
		publisher:  eventbus.Nop{},
		auditor:    audit.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *IdentityService) record(ctx context.Context, action, resource, id string, before, after interface{}) {
	s.auditor.Record(ctx, audit.AuditEvent{
		Action:     action,
		Resource:   resource,
		ResourceID: id,
		Before:     before,
		After:      after,
	})
}

// publish never fails the mutation that raised the event
func (s *IdentityService) publish(ctx context.Context, name string, payload interface{}) {
	event, err := eventbus.NewEvent(name, payload)
	if err == nil {
		err = s.publisher.Publish(ctx, event)
	}
	if err != nil {
		slog.Error("Failed to publish integration event", "event", name, "err", err)
	}
}

// redact keeps secrets out of audit records
func redact(u *User) *User {
	if u == nil {
		return nil
	}
	out := *u
	out.PasswordHash = ""
	out.SecurityStamp = ""
	return &out
}

func userDoesNotExist(id uuid.UUID) error {
	return apperrors.DoesNotExist(apperrors.ErrCodeUserDoesNotExist, "User with id %s doesn't exist", id)
}

func roleDoesNotExist(id uuid.UUID) error {
	return apperrors.DoesNotExist(apperrors.ErrCodeRoleDoesNotExist, "Role with id %s doesn't exist", id)
}

func userExists(user User) error {
	return apperrors.NewConflict(apperrors.ErrCodeUserExistsKey, *redact(&user), "User %s already exists", user.UserName)
}

func roleExists(role Role) error {
	return apperrors.NewConflict(apperrors.ErrCodeRoleExistsKey, role, "Role %s already exists", role.Name)
}

func (s *IdentityService) GetUsers(ctx context.Context, search string, page, pageSize int) (paging.PagedList[User], error) {
	return s.repository.GetUsers(ctx, search, page, pageSize)
}

func (s *IdentityService) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.repository.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, userDoesNotExist(id)
	}
	return user, nil
}

func (s *IdentityService) ExistsUser(ctx context.Context, id uuid.UUID) (bool, error) {
	user, err := s.repository.GetUser(ctx, id)
	return user != nil, err
}

func (s *IdentityService) FindUserByName(ctx context.Context, userName string) (*User, error) {
	return s.repository.FindUserByName(ctx, userName)
}

func (s *IdentityService) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.repository.FindUserByEmail(ctx, email)
}

func (s *IdentityService) checkUserName(ctx context.Context, user *User) error {
	if strings.TrimSpace(user.UserName) == "" {
		return apperrors.ValidationFailed(map[string]interface{}{"userName": "user name is required"})
	}
	existing, err := s.repository.FindUserByName(ctx, user.UserName)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != user.ID {
		return userExists(*user)
	}
	return nil
}

// CreateUser stores a new user with a fresh id. The password is optional;
// without one the user can only sign in through an external provider.
func (s *IdentityService) CreateUser(ctx context.Context, user *User, password string) (uuid.UUID, error) {
	user.ID = uuid.Nil
	if err := s.checkUserName(ctx, user); err != nil {
		return uuid.Nil, err
	}

	user.ID = uuid.New()
	user.SecurityStamp = uuid.NewString()
	user.PasswordHash = ""
	if password != "" {
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return uuid.Nil, err
		}
		user.PasswordHash = hash
	}

	err := s.repository.CreateUser(ctx, user)
	if errors.Is(err, ErrDuplicateUserName) {
		return uuid.Nil, userExists(*user)
	}
	if err != nil {
		return uuid.Nil, err
	}

	slog.Info("User created", "id", user.ID, "user_name", user.UserName)
	s.record(ctx, "user.create", "user", user.ID.String(), nil, redact(user))
	s.publish(ctx, eventbus.AccountCreated, eventbus.AccountCreatedPayload{UserName: user.UserName, Email: user.Email})
	return user.ID, nil
}

func (s *IdentityService) UpdateUser(ctx context.Context, user *User) (int, error) {
	before, err := s.GetUser(ctx, user.ID)
	if err != nil {
		return 0, err
	}
	if err := s.checkUserName(ctx, user); err != nil {
		return 0, err
	}

	affected, err := s.repository.UpdateUser(ctx, user)
	if errors.Is(err, ErrDuplicateUserName) {
		return 0, userExists(*user)
	}
	if err != nil {
		return 0, err
	}

	s.record(ctx, "user.update", "user", user.ID.String(), redact(before), redact(user))
	s.publish(ctx, eventbus.AccountUpdated, eventbus.AccountUpdatedPayload{
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
		Name:        user.UserName,
	})
	return affected, nil
}

func (s *IdentityService) DeleteUser(ctx context.Context, id uuid.UUID) (int, error) {
	affected, err := s.repository.DeleteUser(ctx, id)
	if err != nil {
		return 0, err
	}
	if affected != utils.RowNotFound {
		slog.Info("User deleted", "id", id)
		s.record(ctx, "user.delete", "user", id.String(), nil, nil)
	}
	return affected, nil
}

// UserChangePassword replaces the hash and rotates the security stamp
func (s *IdentityService) UserChangePassword(ctx context.Context, id uuid.UUID, password string) (int, error) {
	if _, err := s.GetUser(ctx, id); err != nil {
		return 0, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return 0, apperrors.ValidationFailed(map[string]interface{}{"password": err.Error()})
	}
	affected, err := s.repository.SetPasswordHash(ctx, id, hash, uuid.NewString())
	if err != nil {
		return 0, err
	}
	s.record(ctx, "user.change_password", "user", id.String(), nil, nil)
	return affected, nil
}

// VerifyPassword reports whether password matches the user's stored hash
func (s *IdentityService) VerifyPassword(ctx context.Context, id uuid.UUID, password string) (bool, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return false, err
	}
	if user.PasswordHash == "" || password == "" {
		return false, nil
	}
	return s.hasher.Verify(password, user.PasswordHash)
}

func (s *IdentityService) GetRoles(ctx context.Context, search string, page, pageSize int) (paging.PagedList[Role], error) {
	return s.repository.GetRoles(ctx, search, page, pageSize)
}

func (s *IdentityService) GetRole(ctx context.Context, id uuid.UUID) (*Role, error) {
	role, err := s.repository.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, roleDoesNotExist(id)
	}
	return role, nil
}

func (s *IdentityService) ExistsRole(ctx context.Context, id uuid.UUID) (bool, error) {
	role, err := s.repository.GetRole(ctx, id)
	return role != nil, err
}

func (s *IdentityService) FindRoleByName(ctx context.Context, name string) (*Role, error) {
	return s.repository.FindRoleByName(ctx, name)
}

func (s *IdentityService) checkRoleName(ctx context.Context, role *Role) error {
	if strings.TrimSpace(role.Name) == "" {
		return apperrors.ValidationFailed(map[string]interface{}{"name": "role name is required"})
	}
	existing, err := s.repository.FindRoleByName(ctx, role.Name)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != role.ID {
		return roleExists(*role)
	}
	return nil
}

func (s *IdentityService) CreateRole(ctx context.Context, role *Role) (uuid.UUID, error) {
	role.ID = uuid.Nil
	if err := s.checkRoleName(ctx, role); err != nil {
		return uuid.Nil, err
	}
	role.ID = uuid.New()

	err := s.repository.CreateRole(ctx, role)
	if errors.Is(err, ErrDuplicateRoleName) {
		return uuid.Nil, roleExists(*role)
	}
	if err != nil {
		return uuid.Nil, err
	}
	slog.Info("Role created", "id", role.ID, "name", role.Name)
	s.record(ctx, "role.create", "role", role.ID.String(), nil, role)
	return role.ID, nil
}

func (s *IdentityService) UpdateRole(ctx context.Context, role *Role) (int, error) {
	before, err := s.GetRole(ctx, role.ID)
	if err != nil {
		return 0, err
	}
	if err := s.checkRoleName(ctx, role); err != nil {
		return 0, err
	}
	affected, err := s.repository.UpdateRole(ctx, role)
	if errors.Is(err, ErrDuplicateRoleName) {
		return 0, roleExists(*role)
	}
	if err != nil {
		return 0, err
	}
	s.record(ctx, "role.update", "role", role.ID.String(), before, role)
	return affected, nil
}

func (s *IdentityService) DeleteRole(ctx context.Context, id uuid.UUID) (int, error) {
	affected, err := s.repository.DeleteRole(ctx, id)
	if err != nil {
		return 0, err
	}
	if affected != utils.RowNotFound {
		s.record(ctx, "role.delete", "role", id.String(), nil, nil)
	}
	return affected, nil
}

func (s *IdentityService) GetRoleUsers(ctx context.Context, roleID uuid.UUID, search string, page, pageSize int) (paging.PagedList[User], error) {
	if _, err := s.GetRole(ctx, roleID); err != nil {
		return paging.PagedList[User]{}, err
	}
	return s.repository.GetRoleUsers(ctx, roleID, search, page, pageSize)
}

func (s *IdentityService) GetUserRoles(ctx context.Context, userID uuid.UUID, page, pageSize int) (paging.PagedList[Role], error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return paging.PagedList[Role]{}, err
	}
	return s.repository.GetUserRoles(ctx, userID, page, pageSize)
}

func (s *IdentityService) AddUserToRole(ctx context.Context, userID, roleID uuid.UUID) (int, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return 0, err
	}
	if _, err := s.GetRole(ctx, roleID); err != nil {
		return 0, err
	}
	affected, err := s.repository.AddUserToRole(ctx, userID, roleID)
	if err != nil {
		return 0, err
	}
	s.record(ctx, "user.role.add", "user", userID.String(), nil, map[string]string{"roleId": roleID.String()})
	return affected, nil
}

func (s *IdentityService) RemoveUserFromRole(ctx context.Context, userID, roleID uuid.UUID) (int, error) {
	affected, err := s.repository.RemoveUserFromRole(ctx, userID, roleID)
	if err != nil {
		return 0, err
	}
	if affected != utils.RowNotFound {
		s.record(ctx, "user.role.remove", "user", userID.String(), map[string]string{"roleId": roleID.String()}, nil)
	}
	return affected, nil
}

func (s *IdentityService) GetUserClaims(ctx context.Context, userID uuid.UUID, page, pageSize int) (paging.PagedList[UserClaim], error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return paging.PagedList[UserClaim]{}, err
	}
	return s.repository.GetUserClaims(ctx, userID, page, pageSize)
}

func (s *IdentityService) GetUserClaim(ctx context.Context, userID uuid.UUID, claimID int) (*UserClaim, error) {
	claim, err := s.repository.GetUserClaim(ctx, userID, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, apperrors.DoesNotExist(apperrors.ErrCodeUserClaimDoesNotExist,
			"User claim with id %d doesn't exist for user %s", claimID, userID)
	}
	return claim, nil
}

func validateClaim(claimType, value string) error {
	details := map[string]interface{}{}
	if strings.TrimSpace(claimType) == "" {
		details["claimType"] = "claim type is required"
	}
	if strings.TrimSpace(value) == "" {
		details["claimValue"] = "claim value is required"
	}
	if len(details) > 0 {
		return apperrors.ValidationFailed(details)
	}
	return nil
}

func (s *IdentityService) CreateUserClaim(ctx context.Context, claim *UserClaim) (int, error) {
	if err := validateClaim(claim.Type, claim.Value); err != nil {
		return 0, err
	}
	if _, err := s.GetUser(ctx, claim.UserID); err != nil {
		return 0, err
	}
	if err := s.repository.AddUserClaim(ctx, claim); err != nil {
		return 0, err
	}
	s.record(ctx, "user.claim.add", "user", claim.UserID.String(), nil, claim)
	return claim.ID, nil
}

func (s *IdentityService) DeleteUserClaim(ctx context.Context, userID uuid.UUID, claimID int) (int, error) {
	affected, err := s.repository.DeleteUserClaim(ctx, userID, claimID)
	if err != nil {
		return 0, err
	}
	if affected != utils.RowNotFound {
		s.record(ctx, "user.claim.delete", "user", userID.String(), map[string]string{"claimId": strconv.Itoa(claimID)}, nil)
	}
	return affected, nil
}

func (s *IdentityService) GetRoleClaims(ctx context.Context, roleID uuid.UUID, page, pageSize int) (paging.PagedList[RoleClaim], error) {
	if _, err := s.GetRole(ctx, roleID); err != nil {
		return paging.PagedList[RoleClaim]{}, err
	}
	return s.repository.GetRoleClaims(ctx, roleID, page, pageSize)
}

func (s *IdentityService) GetRoleClaim(ctx context.Context, roleID uuid.UUID, claimID int) (*RoleClaim, error) {
	claim, err := s.repository.GetRoleClaim(ctx, roleID, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, apperrors.DoesNotExist(apperrors.ErrCodeRoleClaimDoesNotExist,
			"Role claim with id %d doesn't exist for role %s", claimID, roleID)
	}
	return claim, nil
}

func (s *IdentityService) CreateRoleClaim(ctx context.Context, claim *RoleClaim) (int, error) {
	if err := validateClaim(claim.Type, claim.Value); err != nil {
		return 0, err
	}
	if _, err := s.GetRole(ctx, claim.RoleID); err != nil {
		return 0, err
	}
	if err := s.repository.AddRoleClaim(ctx, claim); err != nil {
		return 0, err
	}
	s.record(ctx, "role.claim.add", "role", claim.RoleID.String(), nil, claim)
	return claim.ID, nil
}

func (s *IdentityService) DeleteRoleClaim(ctx context.Context, roleID uuid.UUID, claimID int) (int, error) {
	affected, err := s.repository.DeleteRoleClaim(ctx, roleID, claimID)
	if err != nil {
		return 0, err
	}
	if affected != utils.RowNotFound {
		s.record(ctx, "role.claim.delete", "role", roleID.String(), map[string]string{"claimId": strconv.Itoa(claimID)}, nil)
	}
	return affected, nil
}

func (s *IdentityService) GetUserProviders(ctx context.Context, userID uuid.UUID) ([]UserLogin, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.repository.GetUserProviders(ctx, userID)
}

// DeleteUserProvider unlinks an external login from the user
func (s *IdentityService) DeleteUserProvider(ctx context.Context, userID uuid.UUID, provider, providerKey string) (int, error) {
	login, err := s.repository.GetUserProvider(ctx, userID, provider, providerKey)
	if err != nil {
		return 0, err
	}
	if login == nil {
		return 0, apperrors.DoesNotExist(apperrors.ErrCodeUserProviderDoesNotExist,
			"User provider %s with key %s doesn't exist for user %s", provider, providerKey, userID)
	}
	affected, err := s.repository.DeleteUserProvider(ctx, userID, provider, providerKey)
	if err != nil {
		return 0, err
	}
	s.record(ctx, "user.provider.delete", "user", userID.String(), login, nil)
	return affected, nil
}
