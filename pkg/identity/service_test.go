package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/identity-admin/pkg/audit"
	apperrors "github.com/tendant/identity-admin/pkg/errors"
	"github.com/tendant/identity-admin/pkg/eventbus"
	"github.com/tendant/identity-admin/pkg/utils"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type recordingAuditor struct {
	events []audit.AuditEvent
}

func (a *recordingAuditor) Record(ctx context.Context, event audit.AuditEvent) {
	a.events = append(a.events, event)
}

// lowCost keeps bcrypt fast in tests
func lowCost() Option {
	return WithPasswordHasher(&BcryptHasher{Cost: 4})
}

func newTestService(opts ...Option) *IdentityService {
	return NewIdentityService(NewInMemoryIdentityRepository(), append([]Option{lowCost()}, opts...)...)
}

func TestCreateUser_HashesPasswordAndPublishes(t *testing.T) {
	ctx := context.Background()
	publisher := &recordingPublisher{}
	auditor := &recordingAuditor{}
	svc := newTestService(WithPublisher(publisher), WithAuditor(auditor))

	id, err := svc.CreateUser(ctx, &User{UserName: "alice", Email: "alice@example.com"}, "Pa$$word123")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	stored, err := svc.GetUser(ctx, id)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "Pa$$word123", stored.PasswordHash)
	assert.NotEmpty(t, stored.SecurityStamp)

	ok, err := svc.VerifyPassword(ctx, id, "Pa$$word123")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.VerifyPassword(ctx, id, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, eventbus.AccountCreated, publisher.events[0].Name)
	var payload eventbus.AccountCreatedPayload
	require.NoError(t, publisher.events[0].Decode(&payload))
	assert.Equal(t, "alice", payload.UserName)
	assert.Equal(t, "alice@example.com", payload.Email)

	require.Len(t, auditor.events, 1)
	assert.Equal(t, "user.create", auditor.events[0].Action)
	assert.Empty(t, auditor.events[0].After.(*User).PasswordHash)
}

func TestCreateUser_DuplicateNameIsConflict(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.CreateUser(ctx, &User{UserName: "alice"}, "")
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, &User{UserName: "ALICE", Email: "other@example.com"}, "")
	conflict, ok := apperrors.AsConflict[User](err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeUserExistsKey, conflict.Code)
	assert.Equal(t, "User ALICE already exists", conflict.Message)
	assert.Equal(t, "other@example.com", conflict.Candidate.Email)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUserExistsKey))

	_, err = svc.CreateUser(ctx, &User{UserName: " "}, "")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidationFailed))
}

func TestCreateUser_PublishFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(WithPublisher(&recordingPublisher{err: errors.New("broker down")}))

	id, err := svc.CreateUser(ctx, &User{UserName: "bob"}, "")
	require.NoError(t, err)
	exists, err := svc.ExistsUser(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	publisher := &recordingPublisher{}
	svc := newTestService(WithPublisher(publisher))

	aliceID, err := svc.CreateUser(ctx, &User{UserName: "alice"}, "secret-1")
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, &User{UserName: "bob"}, "")
	require.NoError(t, err)

	affected, err := svc.UpdateUser(ctx, &User{ID: aliceID, UserName: "alice", Email: "a@example.com", PhoneNumber: "555"})
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	stored, err := svc.GetUser(ctx, aliceID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", stored.Email)
	assert.NotEmpty(t, stored.PasswordHash, "update keeps the password")

	require.Len(t, publisher.events, 3)
	assert.Equal(t, eventbus.AccountUpdated, publisher.events[2].Name)
	var payload eventbus.AccountUpdatedPayload
	require.NoError(t, publisher.events[2].Decode(&payload))
	assert.Equal(t, "a@example.com", payload.Email)
	assert.Equal(t, "555", payload.PhoneNumber)

	_, err = svc.UpdateUser(ctx, &User{ID: aliceID, UserName: "Bob"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUserExistsKey))

	_, err = svc.UpdateUser(ctx, &User{ID: uuid.New(), UserName: "carol"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUserDoesNotExist))
}

func TestUserChangePassword(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	id, err := svc.CreateUser(ctx, &User{UserName: "alice"}, "old-password")
	require.NoError(t, err)
	before, err := svc.GetUser(ctx, id)
	require.NoError(t, err)

	_, err = svc.UserChangePassword(ctx, id, "new-password")
	require.NoError(t, err)

	after, err := svc.GetUser(ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, before.SecurityStamp, after.SecurityStamp)
	ok, err := svc.VerifyPassword(ctx, id, "new-password")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.UserChangePassword(ctx, id, "")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidationFailed))

	_, err = svc.UserChangePassword(ctx, uuid.New(), "x")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUserDoesNotExist))
}

func TestDeleteUser_Sentinel(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	id, err := svc.CreateUser(ctx, &User{UserName: "alice"}, "")
	require.NoError(t, err)

	affected, err := svc.DeleteUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	affected, err = svc.DeleteUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, utils.RowNotFound, affected)
}

func TestRoles(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	adminID, err := svc.CreateRole(ctx, &Role{Name: "Admin"})
	require.NoError(t, err)
	_, err = svc.CreateRole(ctx, &Role{Name: "Reader"})
	require.NoError(t, err)

	_, err = svc.CreateRole(ctx, &Role{Name: "admin"})
	conflict, ok := apperrors.AsConflict[Role](err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeRoleExistsKey, conflict.Code)

	list, err := svc.GetRoles(ctx, "ad", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, list.TotalCount)

	_, err = svc.UpdateRole(ctx, &Role{ID: adminID, Name: "Reader"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeRoleExistsKey))

	_, err = svc.UpdateRole(ctx, &Role{ID: adminID, Name: "Administrator"})
	require.NoError(t, err)
	found, err := svc.FindRoleByName(ctx, "ADMINISTRATOR")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, adminID, found.ID)

	exists, err := svc.ExistsRole(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)

	affected, err := svc.DeleteRole(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, utils.RowNotFound, affected)
}

func TestMembership(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	alice, err := svc.CreateUser(ctx, &User{UserName: "alice"}, "")
	require.NoError(t, err)
	bob, err := svc.CreateUser(ctx, &User{UserName: "bob"}, "")
	require.NoError(t, err)
	admin, err := svc.CreateRole(ctx, &Role{Name: "Admin"})
	require.NoError(t, err)

	for _, id := range []uuid.UUID{alice, bob} {
		_, err := svc.AddUserToRole(ctx, id, admin)
		require.NoError(t, err)
	}

	users, err := svc.GetRoleUsers(ctx, admin, "ali", 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, users.TotalCount)
	assert.Equal(t, "alice", users.Data[0].UserName)

	roles, err := svc.GetUserRoles(ctx, bob, 1, 10)
	require.NoError(t, err)
	require.Len(t, roles.Data, 1)
	assert.Equal(t, "Admin", roles.Data[0].Name)

	_, err = svc.AddUserToRole(ctx, alice, uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeRoleDoesNotExist))

	affected, err := svc.RemoveUserFromRole(ctx, bob, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)
	affected, err = svc.RemoveUserFromRole(ctx, bob, admin)
	require.NoError(t, err)
	assert.Equal(t, utils.RowNotFound, affected)

	_, err = svc.DeleteRole(ctx, admin)
	require.NoError(t, err)
	roles, err = svc.GetUserRoles(ctx, alice, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, roles.Data)
}

func TestClaims(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	userID, err := svc.CreateUser(ctx, &User{UserName: "alice"}, "")
	require.NoError(t, err)
	roleID, err := svc.CreateRole(ctx, &Role{Name: "Admin"})
	require.NoError(t, err)

	claimID, err := svc.CreateUserClaim(ctx, &UserClaim{UserID: userID, Type: "department", Value: "eng"})
	require.NoError(t, err)
	claims, err := svc.GetUserClaims(ctx, userID, 1, 10)
	require.NoError(t, err)
	require.Len(t, claims.Data, 1)
	assert.Equal(t, "department", claims.Data[0].Type)

	_, err = svc.CreateUserClaim(ctx, &UserClaim{UserID: userID, Type: "department"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidationFailed))

	_, err = svc.GetUserClaim(ctx, uuid.New(), claimID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUserClaimDoesNotExist))

	affected, err := svc.DeleteUserClaim(ctx, userID, claimID)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)
	affected, err = svc.DeleteUserClaim(ctx, userID, claimID)
	require.NoError(t, err)
	assert.Equal(t, utils.RowNotFound, affected)

	roleClaimID, err := svc.CreateRoleClaim(ctx, &RoleClaim{RoleID: roleID, Type: "permission", Value: "clients.write"})
	require.NoError(t, err)
	roleClaim, err := svc.GetRoleClaim(ctx, roleID, roleClaimID)
	require.NoError(t, err)
	assert.Equal(t, "clients.write", roleClaim.Value)

	_, err = svc.GetRoleClaims(ctx, uuid.New(), 1, 10)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeRoleDoesNotExist))

	affected, err = svc.DeleteRoleClaim(ctx, roleID, roleClaimID)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)
}

func TestProviders_InMemoryNotImplemented(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	userID, err := svc.CreateUser(ctx, &User{UserName: "alice"}, "")
	require.NoError(t, err)

	_, err = svc.GetUserProviders(ctx, userID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotImplemented))

	_, err = svc.DeleteUserProvider(ctx, userID, "Google", "123")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotImplemented))
}

func TestGetUsers_SearchesNameAndEmail(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	for _, u := range []User{
		{UserName: "alice", Email: "alice@corp.example"},
		{UserName: "bob", Email: "bob@home.example"},
		{UserName: "carol", Email: "carol@corp.example"},
	} {
		u := u
		_, err := svc.CreateUser(ctx, &u, "")
		require.NoError(t, err)
	}

	list, err := svc.GetUsers(ctx, "CORP", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, list.TotalCount)
	assert.Equal(t, 1, list.PageSize)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "alice", list.Data[0].UserName)

	list, err = svc.GetUsers(ctx, "CORP", 2, 1)
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "carol", list.Data[0].UserName)

	byEmail, err := svc.FindUserByEmail(ctx, "BOB@home.example")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, "bob", byEmail.UserName)
}
