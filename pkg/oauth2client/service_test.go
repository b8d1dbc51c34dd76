package oauth2client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/identity-admin/pkg/audit"
	apperrors "github.com/tendant/identity-admin/pkg/errors"
	"github.com/tendant/identity-admin/pkg/secrets"
	"github.com/tendant/identity-admin/pkg/utils"
)

type recordingAuditor struct {
	events []audit.AuditEvent
}

func (a *recordingAuditor) Record(_ context.Context, event audit.AuditEvent) {
	a.events = append(a.events, event)
}

func newTestService(t *testing.T) (*ClientService, *InMemoryClientRepository) {
	t.Helper()
	repo := NewInMemoryClientRepository()
	return NewClientService(repo), repo
}

func TestAddClient_WebDefaultsThenConflict(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	client := NewClient("app1", "App One", ClientTypeWeb)
	id, err := svc.AddClient(ctx, client)
	require.NoError(t, err)
	require.NotZero(t, id)

	stored, err := svc.GetClient(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{GrantTypeCode}, stored.AllowedGrantTypes)
	assert.True(t, stored.RequirePkce)
	assert.True(t, stored.RequireClientSecret)

	_, err = svc.AddClient(ctx, NewClient("app1", "Another", ClientTypeWeb))
	require.Error(t, err)

	conflict, ok := apperrors.AsConflict[Client](err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeClientExistsKey, conflict.Code)
	assert.Contains(t, conflict.Message, "app1")
	assert.Equal(t, "Another", conflict.Candidate.ClientName)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeClientExistsKey))
}

func TestAddClient_TypeDefaults(t *testing.T) {
	tests := []struct {
		name          string
		clientType    ClientType
		grantTypes    []string
		requirePkce   bool
		requireSecret bool
		offline       bool
	}{
		{"empty", ClientTypeEmpty, nil, false, true, false},
		{"spa", ClientTypeSpa, []string{GrantTypeCode}, true, false, false},
		{"native", ClientTypeNative, []string{GrantTypeCode}, true, false, false},
		{"machine", ClientTypeMachine, []string{GrantTypeClientCredentials}, false, true, false},
		{"device", ClientTypeDevice, []string{GrantTypeDeviceFlow}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, _ := newTestService(t)

			id, err := svc.AddClient(ctx, NewClient("c-"+tt.name, "", tt.clientType))
			require.NoError(t, err)

			stored, err := svc.GetClient(ctx, id)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.grantTypes, stored.AllowedGrantTypes)
			assert.Equal(t, tt.requirePkce, stored.RequirePkce)
			assert.Equal(t, tt.requireSecret, stored.RequireClientSecret)
			assert.Equal(t, tt.offline, stored.AllowOfflineAccess)
		})
	}
}

func TestCanInsertClient(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	id, err := svc.AddClient(ctx, NewClient("unique", "", ClientTypeEmpty))
	require.NoError(t, err)

	ok, err := svc.CanInsertClient(ctx, &Client{ClientID: "unique"}, false)
	require.NoError(t, err)
	assert.False(t, ok, "new client with a taken id")

	ok, err = svc.CanInsertClient(ctx, &Client{ID: id, ClientID: "unique"}, false)
	require.NoError(t, err)
	assert.True(t, ok, "update excludes itself")

	ok, err = svc.CanInsertClient(ctx, &Client{ID: id, ClientID: "unique"}, true)
	require.NoError(t, err)
	assert.False(t, ok, "clone never excludes itself")

	affected, err := svc.RemoveClient(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	ok, err = svc.CanInsertClient(ctx, &Client{ClientID: "unique"}, false)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdateClient(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryClientRepository()
	auditor := &recordingAuditor{}
	svc := NewClientService(repo, WithAuditor(auditor))

	first, err := svc.AddClient(ctx, NewClient("first", "", ClientTypeEmpty))
	require.NoError(t, err)
	_, err = svc.AddClient(ctx, NewClient("second", "", ClientTypeEmpty))
	require.NoError(t, err)

	t.Run("replaces redirect uris without duplicates", func(t *testing.T) {
		client, err := svc.GetClient(ctx, first)
		require.NoError(t, err)
		client.RedirectURIs = []string{"https://a.example/cb", "https://b.example/cb"}

		for i := 0; i < 2; i++ {
			affected, err := svc.UpdateClient(ctx, client, false, false)
			require.NoError(t, err)
			assert.Equal(t, 1, affected)
		}

		stored, err := svc.GetClient(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, []string{"https://a.example/cb", "https://b.example/cb"}, stored.RedirectURIs)
		assert.NotNil(t, stored.Updated)
	})

	t.Run("records the before state", func(t *testing.T) {
		last := auditor.events[len(auditor.events)-1]
		assert.Equal(t, "client.update", last.Action)
		require.IsType(t, &Client{}, last.Before)
	})

	t.Run("rejects a client id owned by another client", func(t *testing.T) {
		client, err := svc.GetClient(ctx, first)
		require.NoError(t, err)
		client.ClientID = "second"

		_, err = svc.UpdateClient(ctx, client, false, false)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeClientExistsKey))
	})

	t.Run("missing client", func(t *testing.T) {
		_, err := svc.UpdateClient(ctx, &Client{ID: 999, ClientID: "ghost"}, false, false)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeClientDoesNotExist))
	})

	t.Run("claims only replaced with the flag", func(t *testing.T) {
		_, err := svc.AddClientClaim(ctx, first, &ClientClaim{Type: "dept", Value: "eng"})
		require.NoError(t, err)

		client, err := svc.GetClient(ctx, first)
		require.NoError(t, err)
		client.Claims = nil

		_, err = svc.UpdateClient(ctx, client, false, false)
		require.NoError(t, err)
		stored, err := svc.GetClient(ctx, first)
		require.NoError(t, err)
		assert.Len(t, stored.Claims, 1)

		_, err = svc.UpdateClient(ctx, client, true, false)
		require.NoError(t, err)
		stored, err = svc.GetClient(ctx, first)
		require.NoError(t, err)
		assert.Empty(t, stored.Claims)
	})

	t.Run("rejects repeated property keys", func(t *testing.T) {
		_, err := svc.AddClientProperty(ctx, first, &ClientProperty{Key: "tier", Value: "gold"})
		require.NoError(t, err)

		client, err := svc.GetClient(ctx, first)
		require.NoError(t, err)
		client.Properties = []ClientProperty{{Key: "dept", Value: "eng"}, {Key: "dept", Value: "ops"}}

		_, err = svc.UpdateClient(ctx, client, false, true)
		conflict, ok := apperrors.AsConflict[Client](err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeClientPropertyExistsKey, conflict.Code)
		assert.Contains(t, conflict.Message, "dept")

		stored, err := svc.GetClient(ctx, first)
		require.NoError(t, err)
		require.Len(t, stored.Properties, 1)
		assert.Equal(t, "tier", stored.Properties[0].Key)

		_, err = repo.UpdateClient(ctx, client, false, true)
		assert.ErrorIs(t, err, ErrDuplicatePropertyKey)

		_, err = svc.UpdateClient(ctx, client, false, false)
		assert.NoError(t, err)
	})
}

func TestAddClient_RepeatedPropertyKeys(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	client := NewClient("props", "", ClientTypeEmpty)
	client.Properties = []ClientProperty{{Key: "k", Value: "1"}, {Key: "k", Value: "2"}}

	_, err := svc.AddClient(ctx, client)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeClientPropertyExistsKey))

	_, err = repo.AddClient(ctx, client)
	assert.ErrorIs(t, err, ErrDuplicatePropertyKey)

	free, err := svc.CanInsertClient(ctx, &Client{ClientID: "props"}, false)
	require.NoError(t, err)
	assert.True(t, free)
}

func TestAddClient_ConflictOmitsSecretValues(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.AddClient(ctx, NewClient("taken", "", ClientTypeMachine))
	require.NoError(t, err)

	candidate := NewClient("taken", "Retry", ClientTypeMachine)
	candidate.ClientSecrets = []ClientSecret{{Value: "plain-text", Type: secrets.SharedSecret, Description: "ci"}}

	_, err = svc.AddClient(ctx, candidate)
	conflict, ok := apperrors.AsConflict[Client](err)
	require.True(t, ok)
	assert.Equal(t, "Retry", conflict.Candidate.ClientName)
	require.Len(t, conflict.Candidate.ClientSecrets, 1)
	assert.Empty(t, conflict.Candidate.ClientSecrets[0].Value)
	assert.Equal(t, "ci", conflict.Candidate.ClientSecrets[0].Description)
	assert.Equal(t, "plain-text", candidate.ClientSecrets[0].Value)
}

func TestClientSecrets(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	clientID, err := svc.AddClient(ctx, NewClient("secretive", "Secretive", ClientTypeWeb))
	require.NoError(t, err)

	sha256Secret := &ClientSecret{Value: "s3cret", Type: secrets.SharedSecret, HashType: secrets.Sha256}
	_, err = svc.AddClientSecret(ctx, clientID, sha256Secret)
	require.NoError(t, err)

	sha512Secret := &ClientSecret{Value: "s3cret", Type: secrets.SharedSecret, HashType: secrets.Sha512}
	_, err = svc.AddClientSecret(ctx, clientID, sha512Secret)
	require.NoError(t, err)

	thumbprint := &ClientSecret{Value: "ABCDEF", Type: "X509Thumbprint"}
	_, err = svc.AddClientSecret(ctx, clientID, thumbprint)
	require.NoError(t, err)

	t.Run("stored hashed", func(t *testing.T) {
		stored, err := repo.GetClientSecret(ctx, sha256Secret.ID)
		require.NoError(t, err)
		assert.Equal(t, secrets.ToSha256("s3cret"), stored.Value)

		stored, err = repo.GetClientSecret(ctx, sha512Secret.ID)
		require.NoError(t, err)
		assert.Equal(t, secrets.ToSha512("s3cret"), stored.Value)

		stored, err = repo.GetClientSecret(ctx, thumbprint.ID)
		require.NoError(t, err)
		assert.Equal(t, "ABCDEF", stored.Value)
	})

	t.Run("read opaque", func(t *testing.T) {
		view, err := svc.GetClientSecrets(ctx, clientID, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 3, view.TotalCount)
		assert.Equal(t, "secretive (Secretive)", view.ClientName)
		for _, s := range view.Secrets {
			assert.Empty(t, s.Value)
		}

		secret, err := svc.GetClientSecret(ctx, sha256Secret.ID)
		require.NoError(t, err)
		assert.Empty(t, secret.Value)

		client, err := svc.GetClient(ctx, clientID)
		require.NoError(t, err)
		for _, s := range client.ClientSecrets {
			assert.Empty(t, s.Value)
		}
	})

	t.Run("delete sentinel", func(t *testing.T) {
		affected, err := svc.DeleteClientSecret(ctx, sha256Secret.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, affected)

		_, err = svc.GetClientSecret(ctx, sha256Secret.ID)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeClientSecretDoesNotExist))

		affected, err = svc.DeleteClientSecret(ctx, sha256Secret.ID)
		require.NoError(t, err)
		assert.Equal(t, utils.RowNotFound, affected)
	})

	t.Run("parent must exist", func(t *testing.T) {
		_, err := svc.AddClientSecret(ctx, 12345, &ClientSecret{Value: "x"})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeClientDoesNotExist))
	})
}

func TestAddClientProperty_ConflictCarriesSiblings(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	clientID, err := svc.AddClient(ctx, NewClient("props", "", ClientTypeEmpty))
	require.NoError(t, err)

	_, err = svc.AddClientProperty(ctx, clientID, &ClientProperty{Key: "dept", Value: "eng"})
	require.NoError(t, err)

	_, err = svc.AddClientProperty(ctx, clientID, &ClientProperty{Key: "dept", Value: "ops"})
	conflict, ok := apperrors.AsConflict[PropertiesView](err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeClientPropertyExistsKey, conflict.Code)
	assert.Equal(t, 1, conflict.Candidate.TotalCount)
	require.Len(t, conflict.Candidate.Properties, 1)
	assert.Equal(t, "eng", conflict.Candidate.Properties[0].Value)
	assert.Equal(t, "ops", conflict.Candidate.Property.Value)

	affected, err := svc.DeleteClientProperty(ctx, conflict.Candidate.Properties[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	affected, err = svc.DeleteClientProperty(ctx, conflict.Candidate.Properties[0].ID)
	require.NoError(t, err)
	assert.Equal(t, utils.RowNotFound, affected)
}

func TestCloneClient(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	original := NewClient("orig", "Original", ClientTypeWeb)
	original.RedirectURIs = []string{"https://orig.example/cb"}
	original.AllowedScopes = []string{"openid", "profile"}
	originalID, err := svc.AddClient(ctx, original)
	require.NoError(t, err)
	_, err = svc.AddClientProperty(ctx, originalID, &ClientProperty{Key: "tier", Value: "gold"})
	require.NoError(t, err)
	_, err = svc.AddClientSecret(ctx, originalID, &ClientSecret{Value: "pw"})
	require.NoError(t, err)

	opts := CloneAll()
	opts.CloneClientRedirectUris = false

	cloneID, err := svc.CloneClient(ctx, originalID, &Client{ClientID: "copy", ClientName: "Copy"}, opts)
	require.NoError(t, err)

	clone, err := svc.GetClient(ctx, cloneID)
	require.NoError(t, err)
	assert.Equal(t, "copy", clone.ClientID)
	assert.Empty(t, clone.RedirectURIs)
	assert.Equal(t, []string{"openid", "profile"}, clone.AllowedScopes)
	assert.Equal(t, []string{GrantTypeCode}, clone.AllowedGrantTypes)
	require.Len(t, clone.Properties, 1)
	assert.Empty(t, clone.ClientSecrets)

	_, err = svc.CloneClient(ctx, originalID, &Client{ClientID: "orig"}, opts)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeClientExistsKey))

	_, err = svc.CloneClient(ctx, 999, &Client{ClientID: "other"}, opts)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeClientDoesNotExist))
}

func TestGetClients_Paging(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	for _, id := range []string{"alpha", "beta", "alphabet", "gamma"} {
		_, err := svc.AddClient(ctx, NewClient(id, "", ClientTypeEmpty))
		require.NoError(t, err)
	}

	page, err := svc.GetClients(ctx, "ALPHA", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, "alpha", page.Data[0].ClientID)

	page, err = svc.GetClients(ctx, "", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, page.TotalCount)
	assert.Len(t, page.Data, 1)
}

func TestGetClient_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetClient(context.Background(), 42)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeClientDoesNotExist))
}

func TestLookups(t *testing.T) {
	svc, repo := newTestService(t)
	repo.SetKnownScopes("openid", "profile", "orders.read")

	scopes, err := svc.GetScopes(context.Background(), "o", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"openid", "orders.read"}, scopes)

	assert.Contains(t, svc.GetGrantTypes("", 0), GrantTypeDeviceFlow)
	assert.Equal(t, []string{"email", "email_verified"}, svc.GetStandardClaims("email", 0))
	assert.Equal(t, []string{"ES256", "ES384", "ES512"}, svc.GetSigningAlgorithms("ES", 0))
}
