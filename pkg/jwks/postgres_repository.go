package jwks

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

const keyColumns = `id, version, created, use, algorithm, is_x509_certificate, data_protected, data`

// PostgresKeyRepository implements KeyRepository over the keys table
type PostgresKeyRepository struct {
	db *pgxpool.Pool
}

func NewPostgresKeyRepository(db *pgxpool.Pool) *PostgresKeyRepository {
	return &PostgresKeyRepository{db: db}
}

func scanKey(row pgx.Row) (Key, error) {
	var k Key
	var use *string
	err := row.Scan(&k.ID, &k.Version, &k.Created, &use, &k.Algorithm, &k.IsX509Certificate, &k.DataProtected, &k.Data)
	k.Use = utils.StringValue(use)
	return k, err
}

func (r *PostgresKeyRepository) GetKeys(ctx context.Context, page, pageSize int) (paging.PagedList[Key], error) {
	page, pageSize = paging.Normalize(page, pageSize)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM keys`).Scan(&total); err != nil {
		return paging.PagedList[Key]{}, fmt.Errorf("failed to count keys: %w", err)
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+keyColumns+` FROM keys ORDER BY created, id LIMIT $1 OFFSET $2`,
		pageSize, paging.Offset(page, pageSize))
	if err != nil {
		return paging.PagedList[Key]{}, fmt.Errorf("failed to list keys: %w", err)
	}
	keys, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Key, error) { return scanKey(row) })
	if err != nil {
		return paging.PagedList[Key]{}, fmt.Errorf("failed to scan key: %w", err)
	}
	return paging.New(keys, total, pageSize), nil
}

func (r *PostgresKeyRepository) GetKey(ctx context.Context, id string) (*Key, error) {
	k, err := scanKey(r.db.QueryRow(ctx, `SELECT `+keyColumns+` FROM keys WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	return &k, nil
}

func (r *PostgresKeyRepository) ExistsKey(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM keys WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check key: %w", err)
	}
	return exists, nil
}

func (r *PostgresKeyRepository) AddKey(ctx context.Context, key *Key) error {
	if key.Version == 0 {
		key.Version = 1
	}
	if key.Created.IsZero() {
		key.Created = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO keys (id, version, created, use, algorithm, is_x509_certificate, data_protected, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.Version, key.Created, utils.NullString(key.Use), key.Algorithm,
		key.IsX509Certificate, key.DataProtected, key.Data)
	if utils.IsUniqueViolation(err, "keys_pkey") {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to insert key: %w", err)
	}
	return nil
}

func (r *PostgresKeyRepository) DeleteKey(ctx context.Context, id string) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM keys WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return utils.RowNotFound, nil
	}
	return utils.RowsAffected(tag), nil
}
