package identityresource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tendant/identity-admin/pkg/errors"
	"github.com/tendant/identity-admin/pkg/utils"
)

func newService() (*IdentityResourceService, *InMemoryIdentityResourceRepository) {
	repo := NewInMemoryIdentityResourceRepository()
	repo.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return NewIdentityResourceService(repo), repo
}

func TestIdentityResourceService_AddAndConflict(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	profile := NewIdentityResource("profile")
	profile.UserClaims = []string{"name", "family_name"}
	id, err := svc.AddIdentityResource(ctx, profile)
	require.NoError(t, err)

	stored, err := svc.GetIdentityResource(ctx, id)
	require.NoError(t, err)
	assert.True(t, stored.Enabled)
	assert.Equal(t, []string{"name", "family_name"}, stored.UserClaims)
	assert.False(t, stored.Created.IsZero())
	assert.Nil(t, stored.Updated)

	_, err = svc.AddIdentityResource(ctx, NewIdentityResource("profile"))
	conflict, ok := apperrors.AsConflict[IdentityResource](err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeIdentityResourceExistsKey, conflict.Code)
	assert.Equal(t, "profile", conflict.Candidate.Name)

	_, err = svc.GetIdentityResource(ctx, 42)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeIdentityResourceDoesNotExist))
}

func TestIdentityResourceService_Update(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	openid, err := svc.AddIdentityResource(ctx, NewIdentityResource("openid"))
	require.NoError(t, err)
	_, err = svc.AddIdentityResource(ctx, NewIdentityResource("email"))
	require.NoError(t, err)

	_, err = svc.UpdateIdentityResource(ctx, &IdentityResource{ID: openid, Name: "email"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeIdentityResourceExistsKey))

	affected, err := svc.UpdateIdentityResource(ctx, &IdentityResource{ID: openid, Name: "openid", Required: true, UserClaims: []string{"sub"}})
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	stored, err := svc.GetIdentityResource(ctx, openid)
	require.NoError(t, err)
	assert.True(t, stored.Required)
	assert.Equal(t, []string{"sub"}, stored.UserClaims)
	assert.NotNil(t, stored.Updated)
}

func TestIdentityResourceService_Properties(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	id, err := svc.AddIdentityResource(ctx, NewIdentityResource("profile"))
	require.NoError(t, err)

	_, err = svc.AddIdentityResourceProperty(ctx, id, &IdentityResourceProperty{Key: "dept", Value: "eng"})
	require.NoError(t, err)
	_, err = svc.AddIdentityResourceProperty(ctx, id, &IdentityResourceProperty{Key: "dept", Value: "ops"})
	conflict, ok := apperrors.AsConflict[PropertiesView](err)
	require.True(t, ok)
	assert.Equal(t, 1, conflict.Candidate.TotalCount)
	assert.Equal(t, "ops", conflict.Candidate.Property.Value)
	assert.Equal(t, "eng", conflict.Candidate.Properties[0].Value)

	affected, err := svc.DeleteIdentityResource(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	_, err = svc.GetIdentityResourceProperties(ctx, id, 1, 10)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeIdentityResourceDoesNotExist))

	affected, err = svc.DeleteIdentityResourceProperty(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, utils.RowNotFound, affected)
}

func TestIdentityResourceService_SearchAndNames(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	for _, name := range []string{"profile", "openid", "email", "phone"} {
		_, err := svc.AddIdentityResource(ctx, NewIdentityResource(name))
		require.NoError(t, err)
	}

	list, err := svc.GetIdentityResources(ctx, "", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, list.TotalCount)
	require.Len(t, list.Data, 3)
	assert.Equal(t, "email", list.Data[0].Name)

	names, err := svc.GetIdentityResourcesName(ctx, "P", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"openid", "phone", "profile"}, names)
}
