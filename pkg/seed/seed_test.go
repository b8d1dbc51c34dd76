package seed

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/identity-admin/pkg/apiresource"
	"github.com/tendant/identity-admin/pkg/apiscope"
	"github.com/tendant/identity-admin/pkg/config"
	"github.com/tendant/identity-admin/pkg/identity"
	"github.com/tendant/identity-admin/pkg/identityresource"
	"github.com/tendant/identity-admin/pkg/oauth2client"
	"github.com/tendant/identity-admin/pkg/secrets"
)

type fixture struct {
	services     Services
	clientRepo   *oauth2client.InMemoryClientRepository
	resourceRepo *apiresource.InMemoryApiResourceRepository
}

func newFixture() fixture {
	clientRepo := oauth2client.NewInMemoryClientRepository()
	resourceRepo := apiresource.NewInMemoryApiResourceRepository()
	return fixture{
		services: Services{
			Identity: identity.NewIdentityService(identity.NewInMemoryIdentityRepository(),
				identity.WithPasswordHasher(&identity.BcryptHasher{Cost: 4})),
			IdentityResources: identityresource.NewIdentityResourceService(identityresource.NewInMemoryIdentityResourceRepository()),
			ApiScopes:         apiscope.NewApiScopeService(apiscope.NewInMemoryApiScopeRepository()),
			ApiResources:      apiresource.NewApiResourceService(resourceRepo),
			Clients:           oauth2client.NewClientService(clientRepo),
		},
		clientRepo:   clientRepo,
		resourceRepo: resourceRepo,
	}
}

func TestApply_SeedsEverythingOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	file, err := Load(filepath.Join("testdata", "identitydata.json"))
	require.NoError(t, err)

	result := &Result{}
	require.NoError(t, Apply(ctx, file, f.services, result))

	assert.Equal(t, 1, result.Created(KindRole))
	assert.Equal(t, 1, result.Created(KindUser), "the second user shares the first one's email")
	assert.Equal(t, 2, result.Created(KindIdentityResource))
	assert.Equal(t, 1, result.Created(KindApiScope))
	assert.Equal(t, 1, result.Created(KindApiResource))
	assert.Equal(t, 1, result.Created(KindClient))

	admin, err := f.services.Identity.FindUserByName(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.True(t, admin.EmailConfirmed)
	ok, err := f.services.Identity.VerifyPassword(ctx, admin.ID, "Pa$$word123")
	require.NoError(t, err)
	assert.True(t, ok)

	roles, err := f.services.Identity.GetUserRoles(ctx, admin.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, roles.Data, 1)
	assert.Equal(t, "IdentityAdminAdministrator", roles.Data[0].Name)

	claims, err := f.services.Identity.GetUserClaims(ctx, admin.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, claims.Data, 1)
	assert.Equal(t, "Administrator", claims.Data[0].Value)

	clientSecrets, err := f.clientRepo.GetClientSecrets(ctx, 1, 1, 10)
	require.NoError(t, err)
	require.Len(t, clientSecrets.Data, 1)
	assert.Equal(t, secrets.ToSha256("client-secret"), clientSecrets.Data[0].Value)

	clientClaims, err := f.clientRepo.GetClientClaims(ctx, 1, 1, 10)
	require.NoError(t, err)
	require.Len(t, clientClaims.Data, 1)
	assert.Equal(t, "tenant", clientClaims.Data[0].Type)

	apiSecrets, err := f.resourceRepo.GetApiSecrets(ctx, 1, 1, 10)
	require.NoError(t, err)
	require.Len(t, apiSecrets.Data, 1)
	assert.Equal(t, secrets.ToSha256("api-secret"), apiSecrets.Data[0].Value)

	second := &Result{}
	require.NoError(t, Apply(ctx, file, f.services, second))
	for _, item := range second.Items {
		assert.False(t, item.Created, "%s %s seeded twice", item.Kind, item.Name)
	}
}

func TestRun_Gates(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	result, err := Run(ctx, config.SeedConfig{}, nil, f.services)
	require.NoError(t, err)
	assert.False(t, result.Seeded)
	assert.Zero(t, result.MigrationsApplied)

	_, err = Run(ctx, config.SeedConfig{ApplySeed: true, SeedFile: filepath.Join(t.TempDir(), "missing.json")}, nil, f.services)
	assert.Error(t, err)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
IdentityData:
  Roles:
    - Name: Reader
IdentityServerData:
  ApiScopes:
    - Name: orders.read
      Enabled: false
`), 0o600))

	file, err := Load(path)
	require.NoError(t, err)
	require.Len(t, file.IdentityData.Roles, 1)
	assert.Equal(t, "Reader", file.IdentityData.Roles[0].Name)
	require.Len(t, file.IdentityServerData.ApiScopes, 1)
	assert.False(t, boolOr(file.IdentityServerData.ApiScopes[0].Enabled, true))
}

func TestApply_RequiresServices(t *testing.T) {
	err := Apply(context.Background(), &File{}, Services{}, &Result{})
	assert.Error(t, err)
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	result := &Result{Seeded: true, MigrationsApplied: 3}
	result.add(KindClient, "identity_admin", true)
	result.add(KindRole, "Reader", false)

	PrintResult(&buf, result)
	out := buf.String()
	assert.Contains(t, out, "Migrations applied: 3")
	assert.Contains(t, out, "identity_admin (created)")
	assert.Contains(t, out, "Reader (already existed)")
}
