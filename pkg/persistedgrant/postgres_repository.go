package persistedgrant

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

// Subject names come from the users table when the subject is a local user.
const grantSelect = `
	SELECT g.key, g.type, g.subject_id, u.user_name, g.session_id, g.client_id, g.description,
		g.creation_time, g.expiration, g.consumed_time, g.data
	FROM persisted_grants g
	LEFT JOIN users u ON u.id::text = g.subject_id`

type PostgresPersistedGrantRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPersistedGrantRepository(db *pgxpool.Pool) *PostgresPersistedGrantRepository {
	return &PostgresPersistedGrantRepository{db: db}
}

func scanGrant(row pgx.Row) (PersistedGrant, error) {
	var g PersistedGrant
	var subjectID, subjectName, sessionID, description *string
	err := row.Scan(&g.Key, &g.Type, &subjectID, &subjectName, &sessionID, &g.ClientID, &description,
		&g.CreationTime, &g.Expiration, &g.ConsumedTime, &g.Data)
	g.SubjectID = utils.StringValue(subjectID)
	g.SubjectName = utils.StringValue(subjectName)
	g.SessionID = utils.StringValue(sessionID)
	g.Description = utils.StringValue(description)
	return g, err
}

func (r *PostgresPersistedGrantRepository) GetPersistedGrantsByUsers(ctx context.Context, search string, page, pageSize int) (paging.PagedList[Subject], error) {
	page, pageSize = paging.Normalize(page, pageSize)
	pattern := utils.ContainsPattern(search)

	const subjects = `
		SELECT g.subject_id, MAX(u.user_name) AS subject_name
		FROM persisted_grants g
		LEFT JOIN users u ON u.id::text = g.subject_id
		WHERE g.subject_id IS NOT NULL
		  AND ($1 = '' OR g.subject_id ILIKE $2 OR u.user_name ILIKE $2)
		GROUP BY g.subject_id`

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM (`+subjects+`) s`, search, pattern).Scan(&total); err != nil {
		return paging.PagedList[Subject]{}, fmt.Errorf("failed to count grant subjects: %w", err)
	}
	rows, err := r.db.Query(ctx, subjects+` ORDER BY g.subject_id LIMIT $3 OFFSET $4`,
		search, pattern, pageSize, paging.Offset(page, pageSize))
	if err != nil {
		return paging.PagedList[Subject]{}, fmt.Errorf("failed to list grant subjects: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Subject, error) {
		var s Subject
		var name *string
		err := row.Scan(&s.SubjectID, &name)
		s.SubjectName = utils.StringValue(name)
		return s, err
	})
	if err != nil {
		return paging.PagedList[Subject]{}, fmt.Errorf("failed to scan grant subject: %w", err)
	}
	return paging.New(list, total, pageSize), nil
}

func (r *PostgresPersistedGrantRepository) GetPersistedGrantsByUser(ctx context.Context, subjectID string, page, pageSize int) (paging.PagedList[PersistedGrant], error) {
	page, pageSize = paging.Normalize(page, pageSize)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM persisted_grants WHERE subject_id = $1`, subjectID).Scan(&total); err != nil {
		return paging.PagedList[PersistedGrant]{}, fmt.Errorf("failed to count grants: %w", err)
	}
	rows, err := r.db.Query(ctx, grantSelect+`
		WHERE g.subject_id = $1 ORDER BY g.creation_time DESC, g.key LIMIT $2 OFFSET $3`,
		subjectID, pageSize, paging.Offset(page, pageSize))
	if err != nil {
		return paging.PagedList[PersistedGrant]{}, fmt.Errorf("failed to list grants: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (PersistedGrant, error) { return scanGrant(row) })
	if err != nil {
		return paging.PagedList[PersistedGrant]{}, fmt.Errorf("failed to scan grant: %w", err)
	}
	return paging.New(list, total, pageSize), nil
}

func (r *PostgresPersistedGrantRepository) GetPersistedGrant(ctx context.Context, key string) (*PersistedGrant, error) {
	g, err := scanGrant(r.db.QueryRow(ctx, grantSelect+` WHERE g.key = $1`, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get grant: %w", err)
	}
	return &g, nil
}

func (r *PostgresPersistedGrantRepository) exists(ctx context.Context, sql string, arg string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, sql, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check grant: %w", err)
	}
	return exists, nil
}

func (r *PostgresPersistedGrantRepository) ExistsPersistedGrants(ctx context.Context, subjectID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM persisted_grants WHERE subject_id = $1)`, subjectID)
}

func (r *PostgresPersistedGrantRepository) ExistsPersistedGrant(ctx context.Context, key string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM persisted_grants WHERE key = $1)`, key)
}

func (r *PostgresPersistedGrantRepository) AddPersistedGrant(ctx context.Context, grant *PersistedGrant) error {
	if grant.CreationTime.IsZero() {
		grant.CreationTime = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO persisted_grants (key, type, subject_id, session_id, client_id, description,
			creation_time, expiration, consumed_time, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		grant.Key, grant.Type, utils.NullString(grant.SubjectID), utils.NullString(grant.SessionID), grant.ClientID,
		utils.NullString(grant.Description), grant.CreationTime, grant.Expiration, grant.ConsumedTime, grant.Data)
	if err != nil {
		return fmt.Errorf("failed to insert grant: %w", err)
	}
	return nil
}

func (r *PostgresPersistedGrantRepository) delete(ctx context.Context, sql, arg string) (int, error) {
	tag, err := r.db.Exec(ctx, sql, arg)
	if err != nil {
		return 0, fmt.Errorf("failed to delete grants: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return utils.RowNotFound, nil
	}
	return utils.RowsAffected(tag), nil
}

func (r *PostgresPersistedGrantRepository) DeletePersistedGrant(ctx context.Context, key string) (int, error) {
	return r.delete(ctx, `DELETE FROM persisted_grants WHERE key = $1`, key)
}

func (r *PostgresPersistedGrantRepository) DeletePersistedGrants(ctx context.Context, subjectID string) (int, error) {
	return r.delete(ctx, `DELETE FROM persisted_grants WHERE subject_id = $1`, subjectID)
}
