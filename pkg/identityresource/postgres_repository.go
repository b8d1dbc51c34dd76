package identityresource

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/identity-admin/pkg/paging"
	"github.com/tendant/identity-admin/pkg/utils"
)

const (
	nameConstraint        = "identity_resources_name_key"
	propertyKeyConstraint = "identity_resource_properties_identity_resource_id_key_key"
)

const resourceColumns = `id, name, display_name, description, enabled, required, emphasize,
	show_in_discovery_document, created, updated`

type PostgresIdentityResourceRepository struct {
	db *pgxpool.Pool
}

func NewPostgresIdentityResourceRepository(db *pgxpool.Pool) *PostgresIdentityResourceRepository {
	return &PostgresIdentityResourceRepository{db: db}
}

func scanResource(row pgx.Row) (IdentityResource, error) {
	var res IdentityResource
	var displayName, description *string
	err := row.Scan(&res.ID, &res.Name, &displayName, &description, &res.Enabled, &res.Required,
		&res.Emphasize, &res.ShowInDiscoveryDocument, &res.Created, &res.Updated)
	res.DisplayName = utils.StringValue(displayName)
	res.Description = utils.StringValue(description)
	return res, err
}

func (r *PostgresIdentityResourceRepository) GetIdentityResources(ctx context.Context, search string, page, pageSize int) (paging.PagedList[IdentityResource], error) {
	page, pageSize = paging.Normalize(page, pageSize)
	pattern := utils.ContainsPattern(search)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM identity_resources WHERE $1 = '' OR name ILIKE $2`,
		search, pattern).Scan(&total); err != nil {
		return paging.PagedList[IdentityResource]{}, fmt.Errorf("failed to count identity resources: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+resourceColumns+` FROM identity_resources WHERE $1 = '' OR name ILIKE $2
		ORDER BY name LIMIT $3 OFFSET $4`,
		search, pattern, pageSize, paging.Offset(page, pageSize))
	if err != nil {
		return paging.PagedList[IdentityResource]{}, fmt.Errorf("failed to list identity resources: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (IdentityResource, error) { return scanResource(row) })
	if err != nil {
		return paging.PagedList[IdentityResource]{}, fmt.Errorf("failed to scan identity resource: %w", err)
	}
	return paging.New(list, total, pageSize), nil
}

func (r *PostgresIdentityResourceRepository) GetIdentityResource(ctx context.Context, id int) (*IdentityResource, error) {
	res, err := scanResource(r.db.QueryRow(ctx, `SELECT `+resourceColumns+` FROM identity_resources WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity resource: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT type FROM identity_resource_claims WHERE identity_resource_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity resource claims: %w", err)
	}
	if res.UserClaims, err = pgx.CollectRows(rows, pgx.RowTo[string]); err != nil {
		return nil, fmt.Errorf("failed to load identity resource claims: %w", err)
	}
	return &res, nil
}

func (r *PostgresIdentityResourceRepository) GetIdentityResourceName(ctx context.Context, id int) (string, bool, error) {
	var name string
	err := r.db.QueryRow(ctx, `SELECT name FROM identity_resources WHERE id = $1`, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get identity resource name: %w", err)
	}
	return name, true, nil
}

func (r *PostgresIdentityResourceRepository) GetIdentityResourcesName(ctx context.Context, search string, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name FROM identity_resources WHERE $1 = '' OR name ILIKE $2 ORDER BY name LIMIT NULLIF($3, 0)`,
		search, utils.ContainsPattern(search), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list identity resource names: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *PostgresIdentityResourceRepository) CanInsertIdentityResource(ctx context.Context, resource *IdentityResource) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM identity_resources WHERE name = $1 AND ($2 = 0 OR id <> $2))`,
		resource.Name, resource.ID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check identity resource name: %w", err)
	}
	return !exists, nil
}

func (r *PostgresIdentityResourceRepository) AddIdentityResource(ctx context.Context, resource *IdentityResource) (int, error) {
	err := utils.InTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO identity_resources (name, display_name, description, enabled, required,
				emphasize, show_in_discovery_document)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created`,
			resource.Name, utils.NullString(resource.DisplayName), utils.NullString(resource.Description),
			resource.Enabled, resource.Required, resource.Emphasize, resource.ShowInDiscoveryDocument,
		).Scan(&resource.ID, &resource.Created)
		if err != nil {
			return fmt.Errorf("failed to insert identity resource: %w", err)
		}
		if err := insertClaims(ctx, tx, resource); err != nil {
			return err
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

func insertClaims(ctx context.Context, tx pgx.Tx, resource *IdentityResource) error {
	for _, claim := range resource.UserClaims {
		_, err := tx.Exec(ctx,
			`INSERT INTO identity_resource_claims (identity_resource_id, type) VALUES ($1, $2)`,
			resource.ID, claim)
		if err != nil {
			return fmt.Errorf("failed to insert identity resource claim: %w", err)
		}
	}
	return nil
}

func (r *PostgresIdentityResourceRepository) UpdateIdentityResource(ctx context.Context, resource *IdentityResource) (int, error) {
	var affected int
	err := utils.InTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE identity_resources SET name = $2, display_name = $3, description = $4, enabled = $5,
				required = $6, emphasize = $7, show_in_discovery_document = $8, updated = NOW()
			WHERE id = $1`,
			resource.ID, resource.Name, utils.NullString(resource.DisplayName), utils.NullString(resource.Description),
			resource.Enabled, resource.Required, resource.Emphasize, resource.ShowInDiscoveryDocument)
		if err != nil {
			return fmt.Errorf("failed to update identity resource: %w", err)
		}
		if affected = utils.RowsAffected(tag); affected == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, `DELETE FROM identity_resource_claims WHERE identity_resource_id = $1`, resource.ID); err != nil {
			return fmt.Errorf("failed to clear identity resource claims: %w", err)
		}
		return insertClaims(ctx, tx, resource)
	})
	if utils.IsUniqueViolation(err, nameConstraint) {
		return 0, ErrDuplicateName
	}
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (r *PostgresIdentityResourceRepository) DeleteIdentityResource(ctx context.Context, id int) (int, error) {
	return r.deleteByID(ctx, `DELETE FROM identity_resources WHERE id = $1`, id)
}

func (r *PostgresIdentityResourceRepository) deleteByID(ctx context.Context, sql string, id int) (int, error) {
	tag, err := r.db.Exec(ctx, sql, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return utils.RowNotFound, nil
	}
	return utils.RowsAffected(tag), nil
}

const propertyColumns = `id, identity_resource_id, key, value`

func scanProperty(row pgx.Row) (IdentityResourceProperty, error) {
	var p IdentityResourceProperty
	err := row.Scan(&p.ID, &p.IdentityResourceID, &p.Key, &p.Value)
	return p, err
}

func (r *PostgresIdentityResourceRepository) GetIdentityResourceProperties(ctx context.Context, resourceID, page, pageSize int) (paging.PagedList[IdentityResourceProperty], error) {
	page, pageSize = paging.Normalize(page, pageSize)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM identity_resource_properties WHERE identity_resource_id = $1`,
		resourceID).Scan(&total); err != nil {
		return paging.PagedList[IdentityResourceProperty]{}, fmt.Errorf("failed to count identity resource properties: %w", err)
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+propertyColumns+` FROM identity_resource_properties WHERE identity_resource_id = $1
		ORDER BY id LIMIT $2 OFFSET $3`, resourceID, pageSize, paging.Offset(page, pageSize))
	if err != nil {
		return paging.PagedList[IdentityResourceProperty]{}, fmt.Errorf("failed to list identity resource properties: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (IdentityResourceProperty, error) { return scanProperty(row) })
	if err != nil {
		return paging.PagedList[IdentityResourceProperty]{}, fmt.Errorf("failed to scan identity resource property: %w", err)
	}
	return paging.New(list, total, pageSize), nil
}

func (r *PostgresIdentityResourceRepository) GetIdentityResourceProperty(ctx context.Context, id int) (*IdentityResourceProperty, error) {
	p, err := scanProperty(r.db.QueryRow(ctx, `SELECT `+propertyColumns+` FROM identity_resource_properties WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity resource property: %w", err)
	}
	return &p, nil
}

func (r *PostgresIdentityResourceRepository) CanInsertIdentityResourceProperty(ctx context.Context, property *IdentityResourceProperty) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM identity_resource_properties WHERE identity_resource_id = $1 AND key = $2)`,
		property.IdentityResourceID, property.Key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check identity resource property: %w", err)
	}
	return !exists, nil
}

func insertProperty(ctx context.Context, db utils.DBTX, resourceID int, p *IdentityResourceProperty) error {
	err := db.QueryRow(ctx,
		`INSERT INTO identity_resource_properties (identity_resource_id, key, value) VALUES ($1, $2, $3) RETURNING id`,
		resourceID, p.Key, p.Value).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to insert identity resource property: %w", err)
	}
	p.IdentityResourceID = resourceID
	return nil
}

func (r *PostgresIdentityResourceRepository) AddIdentityResourceProperty(ctx context.Context, resourceID int, property *IdentityResourceProperty) (int, error) {
	err := insertProperty(ctx, r.db, resourceID, property)
	if utils.IsUniqueViolation(err, propertyKeyConstraint) {
		return 0, ErrDuplicatePropertyKey
	}
	if err != nil {
		return 0, err
	}
	return 1, nil
}

func (r *PostgresIdentityResourceRepository) DeleteIdentityResourceProperty(ctx context.Context, id int) (int, error) {
	return r.deleteByID(ctx, `DELETE FROM identity_resource_properties WHERE id = $1`, id)
}
