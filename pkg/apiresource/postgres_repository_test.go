package apiresource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tendant/identity-admin/pkg/errors"
	"github.com/tendant/identity-admin/pkg/secrets"
	"github.com/tendant/identity-admin/pkg/testutil"
	"github.com/tendant/identity-admin/pkg/utils"
)

func TestPostgresApiResourceRepository(t *testing.T) {
	pool, cleanup := testutil.SetupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewPostgresApiResourceRepository(pool)
	svc := NewApiResourceService(repo)

	res := NewApiResource("orders")
	res.AllowedAccessTokenSigningAlgorithms = []string{"RS256", "ES256"}
	res.UserClaims = []string{"email"}
	res.Scopes = []string{"orders.read", "orders.write"}
	res.Secrets = []ApiSecret{{Value: "inline"}}

	id, err := svc.AddApiResource(ctx, res)
	require.NoError(t, err)

	t.Run("get loads claims and scopes", func(t *testing.T) {
		stored, err := svc.GetApiResource(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{"RS256", "ES256"}, stored.AllowedAccessTokenSigningAlgorithms)
		assert.Equal(t, []string{"email"}, stored.UserClaims)
		assert.Equal(t, []string{"orders.read", "orders.write"}, stored.Scopes)
	})

	t.Run("inline secrets are hashed", func(t *testing.T) {
		list, err := repo.GetApiSecrets(ctx, id, 1, 10)
		require.NoError(t, err)
		require.Len(t, list.Data, 1)
		assert.Equal(t, secrets.ToSha256("inline"), list.Data[0].Value)
	})

	t.Run("unique name", func(t *testing.T) {
		_, err := svc.AddApiResource(ctx, NewApiResource("orders"))
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeApiResourceExistsKey))

		_, err = repo.AddApiResource(ctx, NewApiResource("orders"))
		assert.ErrorIs(t, err, ErrDuplicateName)
	})

	t.Run("update replaces scopes", func(t *testing.T) {
		stored, err := svc.GetApiResource(ctx, id)
		require.NoError(t, err)
		stored.Scopes = []string{"orders.all"}
		for i := 0; i < 2; i++ {
			_, err = svc.UpdateApiResource(ctx, stored)
			require.NoError(t, err)
		}
		stored, err = svc.GetApiResource(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{"orders.all"}, stored.Scopes)
	})

	t.Run("property key unique per resource", func(t *testing.T) {
		_, err := svc.AddApiResourceProperty(ctx, id, &ApiResourceProperty{Key: "dept", Value: "eng"})
		require.NoError(t, err)

		_, err = repo.AddApiResourceProperty(ctx, id, &ApiResourceProperty{Key: "dept", Value: "ops"})
		assert.ErrorIs(t, err, ErrDuplicatePropertyKey)

		_, err = svc.AddApiResourceProperty(ctx, id, &ApiResourceProperty{Key: "dept", Value: "ops"})
		conflict, ok := apperrors.AsConflict[PropertiesView](err)
		require.True(t, ok)
		assert.Equal(t, 1, conflict.Candidate.TotalCount)
	})

	t.Run("delete cascades", func(t *testing.T) {
		affected, err := svc.DeleteApiResource(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, affected)

		affected, err = svc.DeleteApiResource(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, utils.RowNotFound, affected)

		list, err := repo.GetApiSecrets(ctx, id, 1, 10)
		require.NoError(t, err)
		assert.Zero(t, list.TotalCount)
	})
}
