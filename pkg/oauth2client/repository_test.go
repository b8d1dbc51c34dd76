package oauth2client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/identity-admin/pkg/utils"
)

func TestInMemoryClientRepository_ReturnsCopies(t *testing.T) {
	repo := NewInMemoryClientRepository()
	ctx := context.Background()

	client := NewClient("copy-test", "", ClientTypeEmpty)
	client.AllowedScopes = []string{"openid"}
	id, err := repo.AddClient(ctx, client)
	require.NoError(t, err)

	client.AllowedScopes[0] = "mutated"

	stored, err := repo.GetClient(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"openid"}, stored.AllowedScopes)

	stored.AllowedScopes[0] = "mutated again"
	again, err := repo.GetClient(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"openid"}, again.AllowedScopes)
}

func TestInMemoryClientRepository_MissingRows(t *testing.T) {
	repo := NewInMemoryClientRepository()
	ctx := context.Background()

	client, err := repo.GetClient(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, client)

	_, _, found, err := repo.GetClientID(ctx, 1)
	require.NoError(t, err)
	assert.False(t, found)

	for name, del := range map[string]func(context.Context, int) (int, error){
		"client":   repo.RemoveClient,
		"secret":   repo.DeleteClientSecret,
		"claim":    repo.DeleteClientClaim,
		"property": repo.DeleteClientProperty,
	} {
		affected, err := del(ctx, 7)
		require.NoError(t, err, name)
		assert.Equal(t, utils.RowNotFound, affected, name)
	}
}

func TestInMemoryClientRepository_DuplicateGuards(t *testing.T) {
	repo := NewInMemoryClientRepository()
	ctx := context.Background()

	id, err := repo.AddClient(ctx, NewClient("dup", "", ClientTypeEmpty))
	require.NoError(t, err)

	_, err = repo.AddClient(ctx, NewClient("dup", "", ClientTypeEmpty))
	assert.ErrorIs(t, err, ErrDuplicateClientID)

	_, err = repo.AddClientProperty(ctx, id, &ClientProperty{Key: "k", Value: "1"})
	require.NoError(t, err)
	_, err = repo.AddClientProperty(ctx, id, &ClientProperty{Key: "k", Value: "2"})
	assert.ErrorIs(t, err, ErrDuplicatePropertyKey)
}

func TestInMemoryClientRepository_RemoveCascades(t *testing.T) {
	repo := NewInMemoryClientRepository()
	ctx := context.Background()

	id, err := repo.AddClient(ctx, NewClient("cascade", "", ClientTypeEmpty))
	require.NoError(t, err)
	secret := &ClientSecret{Value: "v"}
	_, err = repo.AddClientSecret(ctx, id, secret)
	require.NoError(t, err)

	affected, err := repo.RemoveClient(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	stored, err := repo.GetClientSecret(ctx, secret.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}
