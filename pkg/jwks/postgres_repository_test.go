package jwks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/identity-admin/pkg/testutil"
	"github.com/tendant/identity-admin/pkg/utils"
)

func TestPostgresKeyRepository(t *testing.T) {
	pool, cleanup := testutil.SetupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewPostgresKeyRepository(pool)
	seedKeys(t, repo)

	list, err := repo.GetKeys(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, list.Data, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{list.Data[0].ID, list.Data[1].ID, list.Data[2].ID})

	assert.ErrorIs(t, repo.AddKey(ctx, &Key{ID: "a", Algorithm: "RS256"}), ErrDuplicateKey)

	key, err := repo.GetKey(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, UseValidation, key.Use)

	missing, err := repo.GetKey(ctx, "zzz")
	require.NoError(t, err)
	assert.Nil(t, missing)

	affected, err := repo.DeleteKey(ctx, "zzz")
	require.NoError(t, err)
	assert.Equal(t, utils.RowNotFound, affected)
}
