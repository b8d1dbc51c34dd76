package persistedgrant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tendant/identity-admin/pkg/errors"
)

func seedGrants(t *testing.T, repo PersistedGrantRepository) {
	t.Helper()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, g := range []PersistedGrant{
		{Key: HashKey("a1", "refresh_token"), SubjectID: "alice-id", SubjectName: "alice", ClientID: "spa"},
		{Key: HashKey("a2", "user_consent"), SubjectID: "alice-id", SubjectName: "alice", ClientID: "web"},
		{Key: HashKey("b1", "refresh_token"), SubjectID: "bob-id", SubjectName: "bob", ClientID: "spa"},
		{Key: HashKey("d1", "device_code"), ClientID: "tv"},
	} {
		g := g
		g.Type = "refresh_token"
		g.Data = "{}"
		g.CreationTime = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.AddPersistedGrant(context.Background(), &g))
	}
}

func TestPersistedGrantService_Subjects(t *testing.T) {
	repo := NewInMemoryPersistedGrantRepository()
	seedGrants(t, repo)
	svc := NewPersistedGrantService(repo)

	list, err := svc.GetPersistedGrantsByUsers(context.Background(), "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, list.TotalCount)
	assert.Equal(t, "alice-id", list.Data[0].SubjectID)

	list, err = svc.GetPersistedGrantsByUsers(context.Background(), "BOB", 1, 10)
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "bob", list.Data[0].SubjectName)
}

func TestPersistedGrantService_ByUser(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryPersistedGrantRepository()
	seedGrants(t, repo)
	svc := NewPersistedGrantService(repo)

	grants, err := svc.GetPersistedGrantsByUser(ctx, "alice-id", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, grants.TotalCount)
	assert.Equal(t, HashKey("a2", "user_consent"), grants.Data[0].Key, "newest first")

	_, err = svc.GetPersistedGrantsByUser(ctx, "nobody", 1, 10)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePersistedGrantWithSubjectIdDoesNotExist))
}

func TestPersistedGrantService_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryPersistedGrantRepository()
	seedGrants(t, repo)
	svc := NewPersistedGrantService(repo)

	key := HashKey("b1", "refresh_token")
	grant, err := svc.GetPersistedGrant(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "bob-id", grant.SubjectID)

	affected, err := svc.DeletePersistedGrant(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	_, err = svc.DeletePersistedGrant(ctx, key)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePersistedGrantDoesNotExist))
	_, err = svc.GetPersistedGrant(ctx, key)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePersistedGrantDoesNotExist))

	affected, err = svc.DeletePersistedGrants(ctx, "alice-id")
	require.NoError(t, err)
	assert.Equal(t, 2, affected)

	_, err = svc.DeletePersistedGrants(ctx, "alice-id")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePersistedGrantWithSubjectIdDoesNotExist))
}
