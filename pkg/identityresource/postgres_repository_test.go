package identityresource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tendant/identity-admin/pkg/errors"
	"github.com/tendant/identity-admin/pkg/testutil"
	"github.com/tendant/identity-admin/pkg/utils"
)

func TestPostgresIdentityResourceRepository(t *testing.T) {
	pool, cleanup := testutil.SetupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewPostgresIdentityResourceRepository(pool)
	svc := NewIdentityResourceService(repo)

	profile := NewIdentityResource("profile")
	profile.UserClaims = []string{"name", "website"}
	profile.Properties = []IdentityResourceProperty{{Key: "tier", Value: "gold"}}
	id, err := svc.AddIdentityResource(ctx, profile)
	require.NoError(t, err)

	t.Run("read back", func(t *testing.T) {
		stored, err := svc.GetIdentityResource(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{"name", "website"}, stored.UserClaims)
		assert.False(t, stored.Created.IsZero())

		view, err := svc.GetIdentityResourceProperties(ctx, id, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, view.TotalCount)
	})

	t.Run("update sets updated", func(t *testing.T) {
		profile.UserClaims = []string{"name"}
		_, err := svc.UpdateIdentityResource(ctx, profile)
		require.NoError(t, err)
		stored, err := svc.GetIdentityResource(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{"name"}, stored.UserClaims)
		assert.NotNil(t, stored.Updated)
	})

	t.Run("duplicates", func(t *testing.T) {
		_, err := repo.AddIdentityResource(ctx, NewIdentityResource("profile"))
		assert.ErrorIs(t, err, ErrDuplicateName)

		_, err = svc.AddIdentityResourceProperty(ctx, id, &IdentityResourceProperty{Key: "tier", Value: "x"})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeIdentityResourcePropertyExistsKey))
	})

	t.Run("delete cascades", func(t *testing.T) {
		affected, err := svc.DeleteIdentityResource(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, affected)
		affected, err = svc.DeleteIdentityResource(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, utils.RowNotFound, affected)
	})
}
