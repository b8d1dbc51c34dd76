package oauth2client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/identity-admin/pkg/paging"
	"github.com/tendant/identity-admin/pkg/utils"
)

const (
	clientIDConstraint    = "clients_client_id_key"
	clientPropertyKeyName = "client_properties_client_id_key_key"
)

const clientColumns = `id, client_id, client_name, description, client_uri, logo_uri, enabled,
	protocol_type, require_client_secret, require_pkce, allow_plain_text_pkce, require_consent,
	allow_remember_consent, allow_offline_access, allow_access_tokens_via_browser,
	always_include_user_claims_in_id_token, identity_token_lifetime, access_token_lifetime,
	authorization_code_lifetime, absolute_refresh_token_lifetime, sliding_refresh_token_lifetime,
	device_code_lifetime, client_claims_prefix, front_channel_logout_uri, back_channel_logout_uri,
	created, updated`

// stringCollection maps one of the string child tables of clients
type stringCollection struct {
	table  string
	column string
	field  func(*Client) *[]string
}

var stringCollections = []stringCollection{
	{"client_grant_types", "grant_type", func(c *Client) *[]string { return &c.AllowedGrantTypes }},
	{"client_redirect_uris", "redirect_uri", func(c *Client) *[]string { return &c.RedirectURIs }},
	{"client_post_logout_redirect_uris", "post_logout_redirect_uri", func(c *Client) *[]string { return &c.PostLogoutRedirectURIs }},
	{"client_cors_origins", "origin", func(c *Client) *[]string { return &c.AllowedCorsOrigins }},
	{"client_scopes", "scope", func(c *Client) *[]string { return &c.AllowedScopes }},
	{"client_idp_restrictions", "provider", func(c *Client) *[]string { return &c.IdentityProviderRestrictions }},
}

// PostgresClientRepository implements ClientRepository on PostgreSQL
type PostgresClientRepository struct {
	db *pgxpool.Pool
}

// NewPostgresClientRepository creates a new PostgreSQL-backed client repository
func NewPostgresClientRepository(db *pgxpool.Pool) *PostgresClientRepository {
	return &PostgresClientRepository{db: db}
}

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	var clientName, description, clientURI, logoURI *string
	var prefix, frontChannelLogout, backChannelLogout *string
	err := row.Scan(
		&c.ID, &c.ClientID, &clientName, &description, &clientURI, &logoURI, &c.Enabled,
		&c.ProtocolType, &c.RequireClientSecret, &c.RequirePkce, &c.AllowPlainTextPkce, &c.RequireConsent,
		&c.AllowRememberConsent, &c.AllowOfflineAccess, &c.AllowAccessTokensViaBrowser,
		&c.AlwaysIncludeUserClaimsInIdToken, &c.IdentityTokenLifetime, &c.AccessTokenLifetime,
		&c.AuthorizationCodeLifetime, &c.AbsoluteRefreshTokenLifetime, &c.SlidingRefreshTokenLifetime,
		&c.DeviceCodeLifetime, &prefix, &frontChannelLogout, &backChannelLogout,
		&c.Created, &c.Updated,
	)
	if err != nil {
		return nil, err
	}
	c.ClientName = utils.StringValue(clientName)
	c.Description = utils.StringValue(description)
	c.ClientURI = utils.StringValue(clientURI)
	c.LogoURI = utils.StringValue(logoURI)
	c.ClientClaimsPrefix = utils.StringValue(prefix)
	c.FrontChannelLogoutURI = utils.StringValue(frontChannelLogout)
	c.BackChannelLogoutURI = utils.StringValue(backChannelLogout)
	return &c, nil
}

func (r *PostgresClientRepository) GetClients(ctx context.Context, search string, page, pageSize int) (paging.PagedList[Client], error) {
	page, pageSize = paging.Normalize(page, pageSize)
	pattern := utils.ContainsPattern(search)

	var total int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM clients WHERE $1 = '' OR client_id ILIKE $2 OR client_name ILIKE $2`,
		search, pattern).Scan(&total)
	if err != nil {
		return paging.PagedList[Client]{}, fmt.Errorf("failed to count clients: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+clientColumns+` FROM clients
		WHERE $1 = '' OR client_id ILIKE $2 OR client_name ILIKE $2
		ORDER BY id LIMIT $3 OFFSET $4`,
		search, pattern, pageSize, paging.Offset(page, pageSize))
	if err != nil {
		return paging.PagedList[Client]{}, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return paging.PagedList[Client]{}, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	if err := rows.Err(); err != nil {
		return paging.PagedList[Client]{}, fmt.Errorf("failed to list clients: %w", err)
	}
	return paging.New(clients, total, pageSize), nil
}

func (r *PostgresClientRepository) GetClient(ctx context.Context, id int) (*Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	if err := r.loadCollections(ctx, r.db, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PostgresClientRepository) loadCollections(ctx context.Context, db utils.DBTX, c *Client) error {
	for _, col := range stringCollections {
		values, err := queryStrings(ctx, db,
			fmt.Sprintf(`SELECT %s FROM %s WHERE client_id = $1 ORDER BY id`, col.column, col.table), c.ID)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", col.table, err)
		}
		*col.field(c) = values
	}

	secrets, err := r.listSecrets(ctx, db, c.ID, 0, 0)
	if err != nil {
		return err
	}
	c.ClientSecrets = secrets

	claims, err := r.listClaims(ctx, db, c.ID, 0, 0)
	if err != nil {
		return err
	}
	c.Claims = claims

	properties, err := r.listProperties(ctx, db, c.ID, 0, 0)
	if err != nil {
		return err
	}
	c.Properties = properties
	return nil
}

func queryStrings(ctx context.Context, db utils.DBTX, sql string, args ...interface{}) ([]string, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *PostgresClientRepository) GetClientID(ctx context.Context, id int) (string, string, bool, error) {
	var clientID string
	var clientName *string
	err := r.db.QueryRow(ctx, `SELECT client_id, client_name FROM clients WHERE id = $1`, id).Scan(&clientID, &clientName)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, fmt.Errorf("failed to get client id: %w", err)
	}
	return clientID, utils.StringValue(clientName), true, nil
}

func (r *PostgresClientRepository) CanInsertClient(ctx context.Context, client *Client, isCloned bool) (bool, error) {
	var exists bool
	var err error
	if client.ID == 0 || isCloned {
		err = r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM clients WHERE client_id = $1)`, client.ClientID).Scan(&exists)
	} else {
		err = r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM clients WHERE client_id = $1 AND id <> $2)`, client.ClientID, client.ID).Scan(&exists)
	}
	if err != nil {
		return false, fmt.Errorf("failed to check client id: %w", err)
	}
	return !exists, nil
}

func (r *PostgresClientRepository) AddClient(ctx context.Context, client *Client) (int, error) {
	if _, dup := repeatedPropertyKey(client.Properties); dup {
		return 0, ErrDuplicatePropertyKey
	}
	err := utils.InTx(ctx, r.db, func(tx pgx.Tx) error {
		return r.insertClient(ctx, tx, client)
	})
	if utils.IsUniqueViolation(err, clientIDConstraint) {
		return 0, ErrDuplicateClientID
	}
	if utils.IsUniqueViolation(err, clientPropertyKeyName) {
		return 0, ErrDuplicatePropertyKey
	}
	if err != nil {
		return 0, err
	}
	return client.ID, nil
}

func (r *PostgresClientRepository) insertClient(ctx context.Context, tx pgx.Tx, client *Client) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO clients (client_id, client_name, description, client_uri, logo_uri, enabled,
			protocol_type, require_client_secret, require_pkce, allow_plain_text_pkce, require_consent,
			allow_remember_consent, allow_offline_access, allow_access_tokens_via_browser,
			always_include_user_claims_in_id_token, identity_token_lifetime, access_token_lifetime,
			authorization_code_lifetime, absolute_refresh_token_lifetime, sliding_refresh_token_lifetime,
			device_code_lifetime, client_claims_prefix, front_channel_logout_uri, back_channel_logout_uri)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		RETURNING id, created`,
		client.ClientID, utils.NullString(client.ClientName), utils.NullString(client.Description),
		utils.NullString(client.ClientURI), utils.NullString(client.LogoURI), client.Enabled,
		client.ProtocolType, client.RequireClientSecret, client.RequirePkce, client.AllowPlainTextPkce, client.RequireConsent,
		client.AllowRememberConsent, client.AllowOfflineAccess, client.AllowAccessTokensViaBrowser,
		client.AlwaysIncludeUserClaimsInIdToken, client.IdentityTokenLifetime, client.AccessTokenLifetime,
		client.AuthorizationCodeLifetime, client.AbsoluteRefreshTokenLifetime, client.SlidingRefreshTokenLifetime,
		client.DeviceCodeLifetime, utils.NullString(client.ClientClaimsPrefix),
		utils.NullString(client.FrontChannelLogoutURI), utils.NullString(client.BackChannelLogoutURI),
	).Scan(&client.ID, &client.Created)
	if err != nil {
		return fmt.Errorf("failed to insert client: %w", err)
	}

	if err := insertStringCollections(ctx, tx, client); err != nil {
		return err
	}
	for i := range client.ClientSecrets {
		if err := insertSecret(ctx, tx, client.ID, &client.ClientSecrets[i]); err != nil {
			return err
		}
	}
	for i := range client.Claims {
		if err := insertClaim(ctx, tx, client.ID, &client.Claims[i]); err != nil {
			return err
		}
	}
	for i := range client.Properties {
		if err := insertProperty(ctx, tx, client.ID, &client.Properties[i]); err != nil {
			return err
		}
	}
	return nil
}

func insertStringCollections(ctx context.Context, tx pgx.Tx, client *Client) error {
	for _, col := range stringCollections {
		for _, value := range *col.field(client) {
			_, err := tx.Exec(ctx,
				fmt.Sprintf(`INSERT INTO %s (client_id, %s) VALUES ($1, $2)`, col.table, col.column),
				client.ID, value)
			if err != nil {
				return fmt.Errorf("failed to insert into %s: %w", col.table, err)
			}
		}
	}
	return nil
}

func (r *PostgresClientRepository) CloneClient(ctx context.Context, originalID int, client *Client, opts CloneOptions) (int, error) {
	original, err := r.GetClient(ctx, originalID)
	if err != nil || original == nil {
		return 0, err
	}
	clone := cloneOf(original, client, opts)
	id, err := r.AddClient(ctx, clone)
	if err != nil {
		return 0, err
	}
	client.ID = id
	return id, nil
}

func (r *PostgresClientRepository) UpdateClient(ctx context.Context, client *Client, updateClaims, updateProperties bool) (int, error) {
	var affected int
	err := utils.InTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE clients SET client_id = $2, client_name = $3, description = $4, client_uri = $5,
				logo_uri = $6, enabled = $7, protocol_type = $8, require_client_secret = $9,
				require_pkce = $10, allow_plain_text_pkce = $11, require_consent = $12,
				allow_remember_consent = $13, allow_offline_access = $14,
				allow_access_tokens_via_browser = $15, always_include_user_claims_in_id_token = $16,
				identity_token_lifetime = $17, access_token_lifetime = $18,
				authorization_code_lifetime = $19, absolute_refresh_token_lifetime = $20,
				sliding_refresh_token_lifetime = $21, device_code_lifetime = $22,
				client_claims_prefix = $23, front_channel_logout_uri = $24,
				back_channel_logout_uri = $25, updated = $26
			WHERE id = $1`,
			client.ID, client.ClientID, utils.NullString(client.ClientName), utils.NullString(client.Description),
			utils.NullString(client.ClientURI), utils.NullString(client.LogoURI), client.Enabled,
			client.ProtocolType, client.RequireClientSecret, client.RequirePkce, client.AllowPlainTextPkce,
			client.RequireConsent, client.AllowRememberConsent, client.AllowOfflineAccess,
			client.AllowAccessTokensViaBrowser, client.AlwaysIncludeUserClaimsInIdToken,
			client.IdentityTokenLifetime, client.AccessTokenLifetime, client.AuthorizationCodeLifetime,
			client.AbsoluteRefreshTokenLifetime, client.SlidingRefreshTokenLifetime, client.DeviceCodeLifetime,
			utils.NullString(client.ClientClaimsPrefix), utils.NullString(client.FrontChannelLogoutURI),
			utils.NullString(client.BackChannelLogoutURI), time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to update client: %w", err)
		}
		affected = utils.RowsAffected(tag)
		if affected == 0 {
			return nil
		}

		// Child collections are replaced wholesale
		for _, col := range stringCollections {
			if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE client_id = $1`, col.table), client.ID); err != nil {
				return fmt.Errorf("failed to clear %s: %w", col.table, err)
			}
		}
		if err := insertStringCollections(ctx, tx, client); err != nil {
			return err
		}

		if updateClaims {
			if _, err := tx.Exec(ctx, `DELETE FROM client_claims WHERE client_id = $1`, client.ID); err != nil {
				return fmt.Errorf("failed to clear client claims: %w", err)
			}
			for i := range client.Claims {
				if err := insertClaim(ctx, tx, client.ID, &client.Claims[i]); err != nil {
					return err
				}
			}
		}
		if updateProperties {
			if _, err := tx.Exec(ctx, `DELETE FROM client_properties WHERE client_id = $1`, client.ID); err != nil {
				return fmt.Errorf("failed to clear client properties: %w", err)
			}
			for i := range client.Properties {
				if err := insertProperty(ctx, tx, client.ID, &client.Properties[i]); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if utils.IsUniqueViolation(err, clientIDConstraint) {
		return 0, ErrDuplicateClientID
	}
	if utils.IsUniqueViolation(err, clientPropertyKeyName) {
		return 0, ErrDuplicatePropertyKey
	}
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (r *PostgresClientRepository) RemoveClient(ctx context.Context, id int) (int, error) {
	return r.deleteByID(ctx, `DELETE FROM clients WHERE id = $1`, id)
}

func (r *PostgresClientRepository) deleteByID(ctx context.Context, sql string, id int) (int, error) {
	tag, err := r.db.Exec(ctx, sql, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return utils.RowNotFound, nil
	}
	return utils.RowsAffected(tag), nil
}

func (r *PostgresClientRepository) GetClientSecrets(ctx context.Context, clientID, page, pageSize int) (paging.PagedList[ClientSecret], error) {
	page, pageSize = paging.Normalize(page, pageSize)
	total, err := r.count(ctx, `SELECT COUNT(*) FROM client_secrets WHERE client_id = $1`, clientID)
	if err != nil {
		return paging.PagedList[ClientSecret]{}, err
	}
	secrets, err := r.listSecrets(ctx, r.db, clientID, pageSize, paging.Offset(page, pageSize))
	if err != nil {
		return paging.PagedList[ClientSecret]{}, err
	}
	return paging.New(secrets, total, pageSize), nil
}

func (r *PostgresClientRepository) count(ctx context.Context, sql string, args ...interface{}) (int, error) {
	var total int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return total, nil
}

const secretColumns = `id, client_id, description, value, expiration, type, created`

func scanSecret(row pgx.Row) (*ClientSecret, error) {
	var s ClientSecret
	var description *string
	if err := row.Scan(&s.ID, &s.ClientID, &description, &s.Value, &s.Expiration, &s.Type, &s.Created); err != nil {
		return nil, err
	}
	s.Description = utils.StringValue(description)
	return &s, nil
}

// listSecrets returns all secrets of a client when limit is 0
func (r *PostgresClientRepository) listSecrets(ctx context.Context, db utils.DBTX, clientID, limit, offset int) ([]ClientSecret, error) {
	rows, err := db.Query(ctx,
		`SELECT `+secretColumns+` FROM client_secrets WHERE client_id = $1
		ORDER BY id LIMIT NULLIF($2, 0) OFFSET $3`, clientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list client secrets: %w", err)
	}
	defer rows.Close()

	var out []ClientSecret
	for rows.Next() {
		s, err := scanSecret(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client secret: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *PostgresClientRepository) GetClientSecret(ctx context.Context, id int) (*ClientSecret, error) {
	s, err := scanSecret(r.db.QueryRow(ctx, `SELECT `+secretColumns+` FROM client_secrets WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client secret: %w", err)
	}
	return s, nil
}

func insertSecret(ctx context.Context, db utils.DBTX, clientID int, s *ClientSecret) error {
	secretType := s.Type
	if secretType == "" {
		secretType = "SharedSecret"
	}
	err := db.QueryRow(ctx,
		`INSERT INTO client_secrets (client_id, description, value, expiration, type)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created`,
		clientID, utils.NullString(s.Description), s.Value, s.Expiration, secretType,
	).Scan(&s.ID, &s.Created)
	if err != nil {
		return fmt.Errorf("failed to insert client secret: %w", err)
	}
	s.ClientID = clientID
	s.Type = secretType
	return nil
}

func (r *PostgresClientRepository) AddClientSecret(ctx context.Context, clientID int, secret *ClientSecret) (int, error) {
	if err := insertSecret(ctx, r.db, clientID, secret); err != nil {
		return 0, err
	}
	return 1, nil
}

func (r *PostgresClientRepository) DeleteClientSecret(ctx context.Context, id int) (int, error) {
	return r.deleteByID(ctx, `DELETE FROM client_secrets WHERE id = $1`, id)
}

func (r *PostgresClientRepository) GetClientClaims(ctx context.Context, clientID, page, pageSize int) (paging.PagedList[ClientClaim], error) {
	page, pageSize = paging.Normalize(page, pageSize)
	total, err := r.count(ctx, `SELECT COUNT(*) FROM client_claims WHERE client_id = $1`, clientID)
	if err != nil {
		return paging.PagedList[ClientClaim]{}, err
	}
	claims, err := r.listClaims(ctx, r.db, clientID, pageSize, paging.Offset(page, pageSize))
	if err != nil {
		return paging.PagedList[ClientClaim]{}, err
	}
	return paging.New(claims, total, pageSize), nil
}

func (r *PostgresClientRepository) listClaims(ctx context.Context, db utils.DBTX, clientID, limit, offset int) ([]ClientClaim, error) {
	rows, err := db.Query(ctx,
		`SELECT id, client_id, type, value FROM client_claims WHERE client_id = $1
		ORDER BY id LIMIT NULLIF($2, 0) OFFSET $3`, clientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list client claims: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ClientClaim, error) {
		var c ClientClaim
		err := row.Scan(&c.ID, &c.ClientID, &c.Type, &c.Value)
		return c, err
	})
}

func (r *PostgresClientRepository) GetClientClaim(ctx context.Context, id int) (*ClientClaim, error) {
	var c ClientClaim
	err := r.db.QueryRow(ctx, `SELECT id, client_id, type, value FROM client_claims WHERE id = $1`, id).
		Scan(&c.ID, &c.ClientID, &c.Type, &c.Value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client claim: %w", err)
	}
	return &c, nil
}

func insertClaim(ctx context.Context, db utils.DBTX, clientID int, c *ClientClaim) error {
	err := db.QueryRow(ctx,
		`INSERT INTO client_claims (client_id, type, value) VALUES ($1, $2, $3) RETURNING id`,
		clientID, c.Type, c.Value).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to insert client claim: %w", err)
	}
	c.ClientID = clientID
	return nil
}

func (r *PostgresClientRepository) AddClientClaim(ctx context.Context, clientID int, claim *ClientClaim) (int, error) {
	if err := insertClaim(ctx, r.db, clientID, claim); err != nil {
		return 0, err
	}
	return 1, nil
}

func (r *PostgresClientRepository) DeleteClientClaim(ctx context.Context, id int) (int, error) {
	return r.deleteByID(ctx, `DELETE FROM client_claims WHERE id = $1`, id)
}

func (r *PostgresClientRepository) GetClientProperties(ctx context.Context, clientID, page, pageSize int) (paging.PagedList[ClientProperty], error) {
	page, pageSize = paging.Normalize(page, pageSize)
	total, err := r.count(ctx, `SELECT COUNT(*) FROM client_properties WHERE client_id = $1`, clientID)
	if err != nil {
		return paging.PagedList[ClientProperty]{}, err
	}
	properties, err := r.listProperties(ctx, r.db, clientID, pageSize, paging.Offset(page, pageSize))
	if err != nil {
		return paging.PagedList[ClientProperty]{}, err
	}
	return paging.New(properties, total, pageSize), nil
}

func (r *PostgresClientRepository) listProperties(ctx context.Context, db utils.DBTX, clientID, limit, offset int) ([]ClientProperty, error) {
	rows, err := db.Query(ctx,
		`SELECT id, client_id, key, value FROM client_properties WHERE client_id = $1
		ORDER BY id LIMIT NULLIF($2, 0) OFFSET $3`, clientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list client properties: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ClientProperty, error) {
		var p ClientProperty
		err := row.Scan(&p.ID, &p.ClientID, &p.Key, &p.Value)
		return p, err
	})
}

func (r *PostgresClientRepository) GetClientProperty(ctx context.Context, id int) (*ClientProperty, error) {
	var p ClientProperty
	err := r.db.QueryRow(ctx, `SELECT id, client_id, key, value FROM client_properties WHERE id = $1`, id).
		Scan(&p.ID, &p.ClientID, &p.Key, &p.Value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client property: %w", err)
	}
	return &p, nil
}

func (r *PostgresClientRepository) CanInsertClientProperty(ctx context.Context, property *ClientProperty) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM client_properties WHERE client_id = $1 AND key = $2)`,
		property.ClientID, property.Key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check client property: %w", err)
	}
	return !exists, nil
}

func insertProperty(ctx context.Context, db utils.DBTX, clientID int, p *ClientProperty) error {
	err := db.QueryRow(ctx,
		`INSERT INTO client_properties (client_id, key, value) VALUES ($1, $2, $3) RETURNING id`,
		clientID, p.Key, p.Value).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to insert client property: %w", err)
	}
	p.ClientID = clientID
	return nil
}

func (r *PostgresClientRepository) AddClientProperty(ctx context.Context, clientID int, property *ClientProperty) (int, error) {
	err := insertProperty(ctx, r.db, clientID, property)
	if utils.IsUniqueViolation(err, clientPropertyKeyName) {
		return 0, ErrDuplicatePropertyKey
	}
	if err != nil {
		return 0, err
	}
	return 1, nil
}

func (r *PostgresClientRepository) DeleteClientProperty(ctx context.Context, id int) (int, error) {
	return r.deleteByID(ctx, `DELETE FROM client_properties WHERE id = $1`, id)
}

func (r *PostgresClientRepository) GetScopes(ctx context.Context, search string, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT name FROM (
			SELECT name FROM identity_resources
			UNION
			SELECT name FROM api_scopes
		) scopes
		WHERE $1 = '' OR name ILIKE $2
		ORDER BY name LIMIT NULLIF($3, 0)`,
		search, utils.ContainsPattern(search), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scopes: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
