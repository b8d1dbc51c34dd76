package apiscope

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
	nameConstraint        = "api_scopes_name_key"
	propertyKeyConstraint = "api_scope_properties_scope_id_key_key"
)

const scopeColumns = `id, name, display_name, description, required, emphasize, show_in_discovery_document, enabled`

type PostgresApiScopeRepository struct {
	db *pgxpool.Pool
}

func NewPostgresApiScopeRepository(db *pgxpool.Pool) *PostgresApiScopeRepository {
	return &PostgresApiScopeRepository{db: db}
}

func scanScope(row pgx.Row) (ApiScope, error) {
	var s ApiScope
	var displayName, description *string
	err := row.Scan(&s.ID, &s.Name, &displayName, &description, &s.Required, &s.Emphasize,
		&s.ShowInDiscoveryDocument, &s.Enabled)
	s.DisplayName = utils.StringValue(displayName)
	s.Description = utils.StringValue(description)
	return s, err
}

func (r *PostgresApiScopeRepository) GetApiScopes(ctx context.Context, search string, page, pageSize int) (paging.PagedList[ApiScope], error) {
	page, pageSize = paging.Normalize(page, pageSize)
	pattern := utils.ContainsPattern(search)

	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM api_scopes WHERE $1 = '' OR name ILIKE $2`,
		search, pattern).Scan(&total)
	if err != nil {
		return paging.PagedList[ApiScope]{}, fmt.Errorf("failed to count api scopes: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+scopeColumns+` FROM api_scopes WHERE $1 = '' OR name ILIKE $2
		ORDER BY name LIMIT $3 OFFSET $4`,
		search, pattern, pageSize, paging.Offset(page, pageSize))
	if err != nil {
		return paging.PagedList[ApiScope]{}, fmt.Errorf("failed to list api scopes: %w", err)
	}
	scopes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ApiScope, error) { return scanScope(row) })
	if err != nil {
		return paging.PagedList[ApiScope]{}, fmt.Errorf("failed to scan api scope: %w", err)
	}
	return paging.New(scopes, total, pageSize), nil
}

func (r *PostgresApiScopeRepository) GetApiScope(ctx context.Context, id int) (*ApiScope, error) {
	s, err := scanScope(r.db.QueryRow(ctx, `SELECT `+scopeColumns+` FROM api_scopes WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get api scope: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT type FROM api_scope_claims WHERE scope_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load api scope claims: %w", err)
	}
	s.UserClaims, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to load api scope claims: %w", err)
	}
	return &s, nil
}

func (r *PostgresApiScopeRepository) GetApiScopeName(ctx context.Context, id int) (string, bool, error) {
	var name string
	err := r.db.QueryRow(ctx, `SELECT name FROM api_scopes WHERE id = $1`, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get api scope name: %w", err)
	}
	return name, true, nil
}

func (r *PostgresApiScopeRepository) GetApiScopesName(ctx context.Context, scope string, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name FROM api_scopes WHERE $1 = '' OR name ILIKE $2 ORDER BY name LIMIT NULLIF($3, 0)`,
		scope, utils.ContainsPattern(scope), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list api scope names: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *PostgresApiScopeRepository) CanInsertApiScope(ctx context.Context, scope *ApiScope) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM api_scopes WHERE name = $1 AND ($2 = 0 OR id <> $2))`,
		scope.Name, scope.ID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check api scope name: %w", err)
	}
	return !exists, nil
}

func (r *PostgresApiScopeRepository) AddApiScope(ctx context.Context, scope *ApiScope) (int, error) {
	err := utils.InTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO api_scopes (name, display_name, description, required, emphasize,
				show_in_discovery_document, enabled)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			scope.Name, utils.NullString(scope.DisplayName), utils.NullString(scope.Description),
			scope.Required, scope.Emphasize, scope.ShowInDiscoveryDocument, scope.Enabled,
		).Scan(&scope.ID)
		if err != nil {
			return fmt.Errorf("failed to insert api scope: %w", err)
		}
		if err := insertClaims(ctx, tx, scope); err != nil {
			return err
		}
		for i := range scope.Properties {
			if err := insertProperty(ctx, tx, scope.ID, &scope.Properties[i]); err != nil {
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
	return scope.ID, nil
}

func insertClaims(ctx context.Context, tx pgx.Tx, scope *ApiScope) error {
	for _, claim := range scope.UserClaims {
		if _, err := tx.Exec(ctx, `INSERT INTO api_scope_claims (scope_id, type) VALUES ($1, $2)`, scope.ID, claim); err != nil {
			return fmt.Errorf("failed to insert api scope claim: %w", err)
		}
	}
	return nil
}

// UpdateApiScope replaces the scope's claims. Properties are left alone.
func (r *PostgresApiScopeRepository) UpdateApiScope(ctx context.Context, scope *ApiScope) (int, error) {
	var affected int
	err := utils.InTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE api_scopes SET name = $2, display_name = $3, description = $4, required = $5,
				emphasize = $6, show_in_discovery_document = $7, enabled = $8
			WHERE id = $1`,
			scope.ID, scope.Name, utils.NullString(scope.DisplayName), utils.NullString(scope.Description),
			scope.Required, scope.Emphasize, scope.ShowInDiscoveryDocument, scope.Enabled)
		if err != nil {
			return fmt.Errorf("failed to update api scope: %w", err)
		}
		affected = utils.RowsAffected(tag)
		if affected == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, `DELETE FROM api_scope_claims WHERE scope_id = $1`, scope.ID); err != nil {
			return fmt.Errorf("failed to clear api scope claims: %w", err)
		}
		return insertClaims(ctx, tx, scope)
	})
	if utils.IsUniqueViolation(err, nameConstraint) {
		return 0, ErrDuplicateName
	}
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (r *PostgresApiScopeRepository) DeleteApiScope(ctx context.Context, id int) (int, error) {
	return r.deleteByID(ctx, `DELETE FROM api_scopes WHERE id = $1`, id)
}

func (r *PostgresApiScopeRepository) deleteByID(ctx context.Context, sql string, id int) (int, error) {
	tag, err := r.db.Exec(ctx, sql, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return utils.RowNotFound, nil
	}
	return utils.RowsAffected(tag), nil
}

func scanProperty(row pgx.Row) (ApiScopeProperty, error) {
	var p ApiScopeProperty
	err := row.Scan(&p.ID, &p.ApiScopeID, &p.Key, &p.Value)
	return p, err
}

func (r *PostgresApiScopeRepository) GetApiScopeProperties(ctx context.Context, scopeID, page, pageSize int) (paging.PagedList[ApiScopeProperty], error) {
	page, pageSize = paging.Normalize(page, pageSize)

	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM api_scope_properties WHERE scope_id = $1`, scopeID).Scan(&total)
	if err != nil {
		return paging.PagedList[ApiScopeProperty]{}, fmt.Errorf("failed to count api scope properties: %w", err)
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, scope_id, key, value FROM api_scope_properties WHERE scope_id = $1
		ORDER BY id LIMIT $2 OFFSET $3`, scopeID, pageSize, paging.Offset(page, pageSize))
	if err != nil {
		return paging.PagedList[ApiScopeProperty]{}, fmt.Errorf("failed to list api scope properties: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ApiScopeProperty, error) { return scanProperty(row) })
	if err != nil {
		return paging.PagedList[ApiScopeProperty]{}, fmt.Errorf("failed to scan api scope property: %w", err)
	}
	return paging.New(list, total, pageSize), nil
}

func (r *PostgresApiScopeRepository) GetApiScopeProperty(ctx context.Context, id int) (*ApiScopeProperty, error) {
	p, err := scanProperty(r.db.QueryRow(ctx, `SELECT id, scope_id, key, value FROM api_scope_properties WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get api scope property: %w", err)
	}
	return &p, nil
}

func (r *PostgresApiScopeRepository) CanInsertApiScopeProperty(ctx context.Context, property *ApiScopeProperty) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM api_scope_properties WHERE scope_id = $1 AND key = $2)`,
		property.ApiScopeID, property.Key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check api scope property: %w", err)
	}
	return !exists, nil
}

func insertProperty(ctx context.Context, db utils.DBTX, scopeID int, p *ApiScopeProperty) error {
	err := db.QueryRow(ctx,
		`INSERT INTO api_scope_properties (scope_id, key, value) VALUES ($1, $2, $3) RETURNING id`,
		scopeID, p.Key, p.Value).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to insert api scope property: %w", err)
	}
	p.ApiScopeID = scopeID
	return nil
}

func (r *PostgresApiScopeRepository) AddApiScopeProperty(ctx context.Context, scopeID int, property *ApiScopeProperty) (int, error) {
	err := insertProperty(ctx, r.db, scopeID, property)
	if utils.IsUniqueViolation(err, propertyKeyConstraint) {
		return 0, ErrDuplicatePropertyKey
	}
	if err != nil {
		return 0, err
	}
	return 1, nil
}

func (r *PostgresApiScopeRepository) DeleteApiScopeProperty(ctx context.Context, id int) (int, error) {
	return r.deleteByID(ctx, `DELETE FROM api_scope_properties WHERE id = $1`, id)
}
