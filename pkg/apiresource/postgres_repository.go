package apiresource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/identity-admin/pkg/paging"
	"github.com/tendant/identity-admin/pkg/utils"
)

const (
	nameConstraint        = "api_resources_name_key"
	propertyKeyConstraint = "api_resource_properties_api_resource_id_key_key"
)

const resourceColumns = `id, name, display_name, description, enabled, show_in_discovery_document,
	require_resource_indicator, allowed_access_token_signing_algorithms, created, updated`

// PostgresApiResourceRepository implements ApiResourceRepository on PostgreSQL
type PostgresApiResourceRepository struct {
	db *pgxpool.Pool
}

func NewPostgresApiResourceRepository(db *pgxpool.Pool) *PostgresApiResourceRepository {
	return &PostgresApiResourceRepository{db: db}
}

func scanResource(row pgx.Row) (*ApiResource, error) {
	var res ApiResource
	var displayName, description, algorithms *string
	err := row.Scan(&res.ID, &res.Name, &displayName, &description, &res.Enabled,
		&res.ShowInDiscoveryDocument, &res.RequireResourceIndicator, &algorithms,
		&res.Created, &res.Updated)
	if err != nil {
		return nil, err
	}
	res.DisplayName = utils.StringValue(displayName)
	res.Description = utils.StringValue(description)
	res.AllowedAccessTokenSigningAlgorithms = splitList(utils.StringValue(algorithms))
	return &res, nil
}

// Signing algorithms are kept as one comma separated column
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}

func (r *PostgresApiResourceRepository) GetApiResources(ctx context.Context, search string, page, pageSize int) (paging.PagedList[ApiResource], error) {
	page, pageSize = paging.Normalize(page, pageSize)
	pattern := utils.ContainsPattern(search)

	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM api_resources WHERE $1 = '' OR name ILIKE $2`,
		search, pattern).Scan(&total)
	if err != nil {
		return paging.PagedList[ApiResource]{}, fmt.Errorf("failed to count api resources: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+resourceColumns+` FROM api_resources WHERE $1 = '' OR name ILIKE $2
		ORDER BY name LIMIT $3 OFFSET $4`,
		search, pattern, pageSize, paging.Offset(page, pageSize))
	if err != nil {
		return paging.PagedList[ApiResource]{}, fmt.Errorf("failed to list api resources: %w", err)
	}
	defer rows.Close()

	var resources []ApiResource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return paging.PagedList[ApiResource]{}, fmt.Errorf("failed to scan api resource: %w", err)
		}
		resources = append(resources, *res)
	}
	if err := rows.Err(); err != nil {
		return paging.PagedList[ApiResource]{}, fmt.Errorf("failed to list api resources: %w", err)
	}
	return paging.New(resources, total, pageSize), nil
}

func (r *PostgresApiResourceRepository) GetApiResource(ctx context.Context, id int) (*ApiResource, error) {
	res, err := scanResource(r.db.QueryRow(ctx, `SELECT `+resourceColumns+` FROM api_resources WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get api resource: %w", err)
	}

	res.UserClaims, err = queryStrings(ctx, r.db, `SELECT type FROM api_resource_claims WHERE api_resource_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load api resource claims: %w", err)
	}
	res.Scopes, err = queryStrings(ctx, r.db, `SELECT scope FROM api_resource_scopes WHERE api_resource_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load api resource scopes: %w", err)
	}
	return res, nil
}

func queryStrings(ctx context.Context, db utils.DBTX, sql string, args ...interface{}) ([]string, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *PostgresApiResourceRepository) GetApiResourceName(ctx context.Context, id int) (string, bool, error) {
	var name string
	err := r.db.QueryRow(ctx, `SELECT name FROM api_resources WHERE id = $1`, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get api resource name: %w", err)
	}
	return name, true, nil
}

func (r *PostgresApiResourceRepository) CanInsertApiResource(ctx context.Context, resource *ApiResource) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM api_resources WHERE name = $1 AND ($2 = 0 OR id <> $2))`,
		resource.Name, resource.ID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check api resource name: %w", err)
	}
	return !exists, nil
}

func (r *PostgresApiResourceRepository) AddApiResource(ctx context.Context, resource *ApiResource) (int, error) {
	err := utils.InTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO api_resources (name, display_name, description, enabled, show_in_discovery_document,
				require_resource_indicator, allowed_access_token_signing_algorithms)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created`,
			resource.Name, utils.NullString(resource.DisplayName), utils.NullString(resource.Description),
			resource.Enabled, resource.ShowInDiscoveryDocument, resource.RequireResourceIndicator,
			utils.NullString(strings.Join(resource.AllowedAccessTokenSigningAlgorithms, ",")),
		).Scan(&resource.ID, &resource.Created)
		if err != nil {
			return fmt.Errorf("failed to insert api resource: %w", err)
		}
		if err := insertCollections(ctx, tx, resource); err != nil {
			return err
		}
		for i := range resource.Secrets {
			if err := insertSecret(ctx, tx, resource.ID, &resource.Secrets[i]); err != nil {
				return err
			}
		}
		for i := range resource.Properties {
			if err := insertProperty(ctx, tx, resource.ID, &resource.Properties[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if utils.IsUniqueViolation(err, nameConstraint) {
		return 0, ErrDuplicateName
	}
	if err != nil {
		return 0, err
	}
	return resource.ID, nil
}

func insertCollections(ctx context.Context, tx pgx.Tx, resource *ApiResource) error {
	for _, claim := range resource.UserClaims {
		if _, err := tx.Exec(ctx, `INSERT INTO api_resource_claims (api_resource_id, type) VALUES ($1, $2)`, resource.ID, claim); err != nil {
			return fmt.Errorf("failed to insert api resource claim: %w", err)
		}
	}
	for _, scope := range resource.Scopes {
		if _, err := tx.Exec(ctx, `INSERT INTO api_resource_scopes (api_resource_id, scope) VALUES ($1, $2)`, resource.ID, scope); err != nil {
			return fmt.Errorf("failed to insert api resource scope: %w", err)
		}
	}
	return nil
}

func (r *PostgresApiResourceRepository) UpdateApiResource(ctx context.Context, resource *ApiResource) (int, error) {
	var affected int
	err := utils.InTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE api_resources SET name = $2, display_name = $3, description = $4, enabled = $5,
				show_in_discovery_document = $6, require_resource_indicator = $7,
				allowed_access_token_signing_algorithms = $8, updated = $9
			WHERE id = $1`,
			resource.ID, resource.Name, utils.NullString(resource.DisplayName), utils.NullString(resource.Description),
			resource.Enabled, resource.ShowInDiscoveryDocument, resource.RequireResourceIndicator,
			utils.NullString(strings.Join(resource.AllowedAccessTokenSigningAlgorithms, ",")), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to update api resource: %w", err)
		}
		affected = utils.RowsAffected(tag)
		if affected == 0 {
			return nil
		}

		if _, err := tx.Exec(ctx, `DELETE FROM api_resource_claims WHERE api_resource_id = $1`, resource.ID); err != nil {
			return fmt.Errorf("failed to clear api resource claims: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM api_resource_scopes WHERE api_resource_id = $1`, resource.ID); err != nil {
			return fmt.Errorf("failed to clear api resource scopes: %w", err)
		}
		return insertCollections(ctx, tx, resource)
	})
	if utils.IsUniqueViolation(err, nameConstraint) {
		return 0, ErrDuplicateName
	}
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (r *PostgresApiResourceRepository) DeleteApiResource(ctx context.Context, id int) (int, error) {
	return r.deleteByID(ctx, `DELETE FROM api_resources WHERE id = $1`, id)
}

func (r *PostgresApiResourceRepository) deleteByID(ctx context.Context, sql string, id int) (int, error) {
	tag, err := r.db.Exec(ctx, sql, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return utils.RowNotFound, nil
	}
	return utils.RowsAffected(tag), nil
}

func (r *PostgresApiResourceRepository) count(ctx context.Context, sql string, args ...interface{}) (int, error) {
	var total int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return total, nil
}

const secretColumns = `id, api_resource_id, description, value, expiration, type, created`

func scanSecret(row pgx.Row) (ApiSecret, error) {
	var s ApiSecret
	var description *string
	err := row.Scan(&s.ID, &s.ApiResourceID, &description, &s.Value, &s.Expiration, &s.Type, &s.Created)
	s.Description = utils.StringValue(description)
	return s, err
}

func (r *PostgresApiResourceRepository) GetApiSecrets(ctx context.Context, resourceID, page, pageSize int) (paging.PagedList[ApiSecret], error) {
	page, pageSize = paging.Normalize(page, pageSize)
	total, err := r.count(ctx, `SELECT COUNT(*) FROM api_resource_secrets WHERE api_resource_id = $1`, resourceID)
	if err != nil {
		return paging.PagedList[ApiSecret]{}, err
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+secretColumns+` FROM api_resource_secrets WHERE api_resource_id = $1
		ORDER BY id LIMIT $2 OFFSET $3`, resourceID, pageSize, paging.Offset(page, pageSize))
	if err != nil {
		return paging.PagedList[ApiSecret]{}, fmt.Errorf("failed to list api secrets: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ApiSecret, error) { return scanSecret(row) })
	if err != nil {
		return paging.PagedList[ApiSecret]{}, fmt.Errorf("failed to scan api secret: %w", err)
	}
	return paging.New(list, total, pageSize), nil
}

func (r *PostgresApiResourceRepository) GetApiSecret(ctx context.Context, id int) (*ApiSecret, error) {
	s, err := scanSecret(r.db.QueryRow(ctx, `SELECT `+secretColumns+` FROM api_resource_secrets WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get api secret: %w", err)
	}
	return &s, nil
}

func insertSecret(ctx context.Context, db utils.DBTX, resourceID int, s *ApiSecret) error {
	err := db.QueryRow(ctx,
		`INSERT INTO api_resource_secrets (api_resource_id, description, value, expiration, type)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created`,
		resourceID, utils.NullString(s.Description), s.Value, s.Expiration, s.Type,
	).Scan(&s.ID, &s.Created)
	if err != nil {
		return fmt.Errorf("failed to insert api secret: %w", err)
	}
	s.ApiResourceID = resourceID
	return nil
}

func (r *PostgresApiResourceRepository) AddApiSecret(ctx context.Context, resourceID int, secret *ApiSecret) (int, error) {
	if err := insertSecret(ctx, r.db, resourceID, secret); err != nil {
		return 0, err
	}
	return 1, nil
}

func (r *PostgresApiResourceRepository) DeleteApiSecret(ctx context.Context, id int) (int, error) {
	return r.deleteByID(ctx, `DELETE FROM api_resource_secrets WHERE id = $1`, id)
}

func scanProperty(row pgx.Row) (ApiResourceProperty, error) {
	var p ApiResourceProperty
	err := row.Scan(&p.ID, &p.ApiResourceID, &p.Key, &p.Value)
	return p, err
}

func (r *PostgresApiResourceRepository) GetApiResourceProperties(ctx context.Context, resourceID, page, pageSize int) (paging.PagedList[ApiResourceProperty], error) {
	page, pageSize = paging.Normalize(page, pageSize)
	total, err := r.count(ctx, `SELECT COUNT(*) FROM api_resource_properties WHERE api_resource_id = $1`, resourceID)
	if err != nil {
		return paging.PagedList[ApiResourceProperty]{}, err
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, api_resource_id, key, value FROM api_resource_properties WHERE api_resource_id = $1
		ORDER BY id LIMIT $2 OFFSET $3`, resourceID, pageSize, paging.Offset(page, pageSize))
	if err != nil {
		return paging.PagedList[ApiResourceProperty]{}, fmt.Errorf("failed to list api resource properties: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ApiResourceProperty, error) { return scanProperty(row) })
	if err != nil {
		return paging.PagedList[ApiResourceProperty]{}, fmt.Errorf("failed to scan api resource property: %w", err)
	}
	return paging.New(list, total, pageSize), nil
}

func (r *PostgresApiResourceRepository) GetApiResourceProperty(ctx context.Context, id int) (*ApiResourceProperty, error) {
	p, err := scanProperty(r.db.QueryRow(ctx,
		`SELECT id, api_resource_id, key, value FROM api_resource_properties WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get api resource property: %w", err)
	}
	return &p, nil
}

func (r *PostgresApiResourceRepository) CanInsertApiResourceProperty(ctx context.Context, property *ApiResourceProperty) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM api_resource_properties WHERE api_resource_id = $1 AND key = $2)`,
		property.ApiResourceID, property.Key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check api resource property: %w", err)
	}
	return !exists, nil
}

func insertProperty(ctx context.Context, db utils.DBTX, resourceID int, p *ApiResourceProperty) error {
	err := db.QueryRow(ctx,
		`INSERT INTO api_resource_properties (api_resource_id, key, value) VALUES ($1, $2, $3) RETURNING id`,
		resourceID, p.Key, p.Value).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to insert api resource property: %w", err)
	}
	p.ApiResourceID = resourceID
	return nil
}

func (r *PostgresApiResourceRepository) AddApiResourceProperty(ctx context.Context, resourceID int, property *ApiResourceProperty) (int, error) {
	err := insertProperty(ctx, r.db, resourceID, property)
	if utils.IsUniqueViolation(err, propertyKeyConstraint) {
		return 0, ErrDuplicatePropertyKey
	}
	if err != nil {
		return 0, err
	}
	return 1, nil
}

func (r *PostgresApiResourceRepository) DeleteApiResourceProperty(ctx context.Context, id int) (int, error) {
	return r.deleteByID(ctx, `DELETE FROM api_resource_properties WHERE id = $1`, id)
}
