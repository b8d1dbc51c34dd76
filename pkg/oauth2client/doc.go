// Package oauth2client manages OAuth2/OIDC client registrations.
//
// A client owns six string collections (grant types, redirect URIs,
// post-logout redirect URIs, CORS origins, scopes, identity provider
// restrictions) and three child collections (secrets, claims, properties).
// Updates replace the string collections wholesale; claims and properties
// are replaced only when asked to.
//
//	repo := oauth2client.NewPostgresClientRepository(pool)
//	svc := oauth2client.NewClientService(repo, oauth2client.WithAuditor(auditor))
//
//	id, err := svc.AddClient(ctx, oauth2client.NewClient("app1", "App One", oauth2client.ClientTypeWeb))
//	if c, ok := errors.AsConflict[oauth2client.Client](err); ok {
//		// c.Candidate is the rejected client
//	}
//
// SharedSecret values are hashed before they are stored and are never
// returned by reads. Deletes of missing rows return utils.RowNotFound.
package oauth2client
