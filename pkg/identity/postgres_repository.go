package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/identity-admin/pkg/paging"
	"github.com/tendant/identity-admin/pkg/utils"
)

const (
	userNameConstraint = "users_normalized_user_name_key"
	roleNameConstraint = "roles_normalized_name_key"
)

const userColumns = `u.id, u.user_name, u.email, u.email_confirmed, u.phone_number, u.phone_number_confirmed,
	u.lockout_enabled, u.lockout_end, u.access_failed_count, u.two_factor_enabled, u.password_hash, u.security_stamp`

const userSearch = `($1 = '' OR u.user_name ILIKE $2 OR u.email ILIKE $2)`

type PostgresIdentityRepository struct {
	db *pgxpool.Pool
}

func NewPostgresIdentityRepository(db *pgxpool.Pool) *PostgresIdentityRepository {
	return &PostgresIdentityRepository{db: db}
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var email, phone, hash, stamp *string
	var lockoutEnd *time.Time
	err := row.Scan(&u.ID, &u.UserName, &email, &u.EmailConfirmed, &phone, &u.PhoneNumberConfirmed,
		&u.LockoutEnabled, &lockoutEnd, &u.AccessFailedCount, &u.TwoFactorEnabled, &hash, &stamp)
	u.Email = utils.StringValue(email)
	u.PhoneNumber = utils.StringValue(phone)
	u.PasswordHash = utils.StringValue(hash)
	u.SecurityStamp = utils.StringValue(stamp)
	u.LockoutEnd = lockoutEnd
	return u, err
}

func collectUsers(rows pgx.Rows) ([]User, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) { return scanUser(row) })
}

func (r *PostgresIdentityRepository) GetUsers(ctx context.Context, search string, page, pageSize int) (paging.PagedList[User], error) {
	page, pageSize = paging.Normalize(page, pageSize)
	pattern := utils.ContainsPattern(search)

	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users u WHERE `+userSearch, search, pattern).Scan(&total)
	if err != nil {
		return paging.PagedList[User]{}, fmt.Errorf("failed to count users: %w", err)
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users u WHERE `+userSearch+`
		ORDER BY u.user_name LIMIT $3 OFFSET $4`,
		search, pattern, pageSize, paging.Offset(page, pageSize))
	if err != nil {
		return paging.PagedList[User]{}, fmt.Errorf("failed to list users: %w", err)
	}
	users, err := collectUsers(rows)
	if err != nil {
		return paging.PagedList[User]{}, fmt.Errorf("failed to scan user: %w", err)
	}
	return paging.New(users, total, pageSize), nil
}

func (r *PostgresIdentityRepository) getUserWhere(ctx context.Context, where string, arg interface{}) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *PostgresIdentityRepository) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getUserWhere(ctx, `u.id = $1`, id)
}

func (r *PostgresIdentityRepository) FindUserByName(ctx context.Context, userName string) (*User, error) {
	return r.getUserWhere(ctx, `u.normalized_user_name = $1`, Normalize(userName))
}

func (r *PostgresIdentityRepository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, nil
	}
	return r.getUserWhere(ctx, `u.normalized_email = $1 LIMIT 1`, Normalize(email))
}

func (r *PostgresIdentityRepository) CreateUser(ctx context.Context, user *User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, user_name, normalized_user_name, email, normalized_email, email_confirmed,
			password_hash, security_stamp, phone_number, phone_number_confirmed, two_factor_enabled,
			lockout_end, lockout_enabled, access_failed_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		user.ID, user.UserName, Normalize(user.UserName), utils.NullString(user.Email),
		utils.NullString(Normalize(user.Email)), user.EmailConfirmed, utils.NullString(user.PasswordHash),
		utils.NullString(user.SecurityStamp), utils.NullString(user.PhoneNumber), user.PhoneNumberConfirmed,
		user.TwoFactorEnabled, user.LockoutEnd, user.LockoutEnabled, user.AccessFailedCount)
	if utils.IsUniqueViolation(err, userNameConstraint) {
		return ErrDuplicateUserName
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// UpdateUser leaves password_hash and security_stamp untouched
func (r *PostgresIdentityRepository) UpdateUser(ctx context.Context, user *User) (int, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET user_name = $2, normalized_user_name = $3, email = $4, normalized_email = $5,
			email_confirmed = $6, phone_number = $7, phone_number_confirmed = $8, two_factor_enabled = $9,
			lockout_end = $10, lockout_enabled = $11, access_failed_count = $12
		WHERE id = $1`,
		user.ID, user.UserName, Normalize(user.UserName), utils.NullString(user.Email),
		utils.NullString(Normalize(user.Email)), user.EmailConfirmed, utils.NullString(user.PhoneNumber),
		user.PhoneNumberConfirmed, user.TwoFactorEnabled, user.LockoutEnd, user.LockoutEnabled,
		user.AccessFailedCount)
	if utils.IsUniqueViolation(err, userNameConstraint) {
		return 0, ErrDuplicateUserName
	}
	if err != nil {
		return 0, fmt.Errorf("failed to update user: %w", err)
	}
	return utils.RowsAffected(tag), nil
}

func (r *PostgresIdentityRepository) DeleteUser(ctx context.Context, id uuid.UUID) (int, error) {
	return r.delete(ctx, `DELETE FROM users WHERE id = $1`, id)
}

func (r *PostgresIdentityRepository) SetPasswordHash(ctx context.Context, id uuid.UUID, hash, securityStamp string) (int, error) {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2, security_stamp = $3 WHERE id = $1`,
		id, hash, securityStamp)
	if err != nil {
		return 0, fmt.Errorf("failed to set password: %w", err)
	}
	return utils.RowsAffected(tag), nil
}

func (r *PostgresIdentityRepository) delete(ctx context.Context, sql string, args ...interface{}) (int, error) {
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return utils.RowNotFound, nil
	}
	return utils.RowsAffected(tag), nil
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name)
	return role, err
}

func collectRoles(rows pgx.Rows) ([]Role, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Role, error) { return scanRole(row) })
}

func (r *PostgresIdentityRepository) GetRoles(ctx context.Context, search string, page, pageSize int) (paging.PagedList[Role], error) {
	page, pageSize = paging.Normalize(page, pageSize)
	pattern := utils.ContainsPattern(search)

	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM roles WHERE $1 = '' OR name ILIKE $2`, search, pattern).Scan(&total)
	if err != nil {
		return paging.PagedList[Role]{}, fmt.Errorf("failed to count roles: %w", err)
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, name FROM roles WHERE $1 = '' OR name ILIKE $2 ORDER BY name LIMIT $3 OFFSET $4`,
		search, pattern, pageSize, paging.Offset(page, pageSize))
	if err != nil {
		return paging.PagedList[Role]{}, fmt.Errorf("failed to list roles: %w", err)
	}
	roles, err := collectRoles(rows)
	if err != nil {
		return paging.PagedList[Role]{}, fmt.Errorf("failed to scan role: %w", err)
	}
	return paging.New(roles, total, pageSize), nil
}

func (r *PostgresIdentityRepository) getRoleWhere(ctx context.Context, where string, arg interface{}) (*Role, error) {
	role, err := scanRole(r.db.QueryRow(ctx, `SELECT id, name FROM roles WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &role, nil
}

func (r *PostgresIdentityRepository) GetRole(ctx context.Context, id uuid.UUID) (*Role, error) {
	return r.getRoleWhere(ctx, `id = $1`, id)
}

func (r *PostgresIdentityRepository) FindRoleByName(ctx context.Context, name string) (*Role, error) {
	return r.getRoleWhere(ctx, `normalized_name = $1`, Normalize(name))
}

func (r *PostgresIdentityRepository) CreateRole(ctx context.Context, role *Role) error {
	_, err := r.db.Exec(ctx, `INSERT INTO roles (id, name, normalized_name) VALUES ($1, $2, $3)`,
		role.ID, role.Name, Normalize(role.Name))
	if utils.IsUniqueViolation(err, roleNameConstraint) {
		return ErrDuplicateRoleName
	}
	if err != nil {
		return fmt.Errorf("failed to insert role: %w", err)
	}
	return nil
}

func (r *PostgresIdentityRepository) UpdateRole(ctx context.Context, role *Role) (int, error) {
	tag, err := r.db.Exec(ctx, `UPDATE roles SET name = $2, normalized_name = $3 WHERE id = $1`,
		role.ID, role.Name, Normalize(role.Name))
	if utils.IsUniqueViolation(err, roleNameConstraint) {
		return 0, ErrDuplicateRoleName
	}
	if err != nil {
		return 0, fmt.Errorf("failed to update role: %w", err)
	}
	return utils.RowsAffected(tag), nil
}

func (r *PostgresIdentityRepository) DeleteRole(ctx context.Context, id uuid.UUID) (int, error) {
	return r.delete(ctx, `DELETE FROM roles WHERE id = $1`, id)
}

func (r *PostgresIdentityRepository) GetRoleUsers(ctx context.Context, roleID uuid.UUID, search string, page, pageSize int) (paging.PagedList[User], error) {
	page, pageSize = paging.Normalize(page, pageSize)
	pattern := utils.ContainsPattern(search)
	const from = ` FROM users u JOIN user_roles ur ON ur.user_id = u.id WHERE ur.role_id = $3 AND ` + userSearch

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*)`+from, search, pattern, roleID).Scan(&total); err != nil {
		return paging.PagedList[User]{}, fmt.Errorf("failed to count role users: %w", err)
	}
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+from+` ORDER BY u.user_name LIMIT $4 OFFSET $5`,
		search, pattern, roleID, pageSize, paging.Offset(page, pageSize))
	if err != nil {
		return paging.PagedList[User]{}, fmt.Errorf("failed to list role users: %w", err)
	}
	users, err := collectUsers(rows)
	if err != nil {
		return paging.PagedList[User]{}, fmt.Errorf("failed to scan user: %w", err)
	}
	return paging.New(users, total, pageSize), nil
}

func (r *PostgresIdentityRepository) GetUserRoles(ctx context.Context, userID uuid.UUID, page, pageSize int) (paging.PagedList[Role], error) {
	page, pageSize = paging.Normalize(page, pageSize)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM user_roles WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return paging.PagedList[Role]{}, fmt.Errorf("failed to count user roles: %w", err)
	}
	rows, err := r.db.Query(ctx, `
		SELECT r.id, r.name FROM roles r JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1 ORDER BY r.name LIMIT $2 OFFSET $3`,
		userID, pageSize, paging.Offset(page, pageSize))
	if err != nil {
		return paging.PagedList[Role]{}, fmt.Errorf("failed to list user roles: %w", err)
	}
	roles, err := collectRoles(rows)
	if err != nil {
		return paging.PagedList[Role]{}, fmt.Errorf("failed to scan role: %w", err)
	}
	return paging.New(roles, total, pageSize), nil
}

func (r *PostgresIdentityRepository) AddUserToRole(ctx context.Context, userID, roleID uuid.UUID) (int, error) {
	_, err := r.db.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, roleID)
	if err != nil {
		return 0, fmt.Errorf("failed to add user to role: %w", err)
	}
	return 1, nil
}

func (r *PostgresIdentityRepository) RemoveUserFromRole(ctx context.Context, userID, roleID uuid.UUID) (int, error) {
	return r.delete(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
}

func (r *PostgresIdentityRepository) GetUserClaims(ctx context.Context, userID uuid.UUID, page, pageSize int) (paging.PagedList[UserClaim], error) {
	page, pageSize = paging.Normalize(page, pageSize)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM user_claims WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return paging.PagedList[UserClaim]{}, fmt.Errorf("failed to count user claims: %w", err)
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, claim_type, claim_value FROM user_claims WHERE user_id = $1
		ORDER BY id LIMIT $2 OFFSET $3`, userID, pageSize, paging.Offset(page, pageSize))
	if err != nil {
		return paging.PagedList[UserClaim]{}, fmt.Errorf("failed to list user claims: %w", err)
	}
	claims, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (UserClaim, error) {
		var c UserClaim
		err := row.Scan(&c.ID, &c.UserID, &c.Type, &c.Value)
		return c, err
	})
	if err != nil {
		return paging.PagedList[UserClaim]{}, fmt.Errorf("failed to scan user claim: %w", err)
	}
	return paging.New(claims, total, pageSize), nil
}

func (r *PostgresIdentityRepository) GetUserClaim(ctx context.Context, userID uuid.UUID, claimID int) (*UserClaim, error) {
	var c UserClaim
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, claim_type, claim_value FROM user_claims WHERE user_id = $1 AND id = $2`,
		userID, claimID).Scan(&c.ID, &c.UserID, &c.Type, &c.Value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user claim: %w", err)
	}
	return &c, nil
}

func (r *PostgresIdentityRepository) AddUserClaim(ctx context.Context, claim *UserClaim) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO user_claims (user_id, claim_type, claim_value) VALUES ($1, $2, $3) RETURNING id`,
		claim.UserID, claim.Type, claim.Value).Scan(&claim.ID)
	if err != nil {
		return fmt.Errorf("failed to insert user claim: %w", err)
	}
	return nil
}

func (r *PostgresIdentityRepository) DeleteUserClaim(ctx context.Context, userID uuid.UUID, claimID int) (int, error) {
	return r.delete(ctx, `DELETE FROM user_claims WHERE user_id = $1 AND id = $2`, userID, claimID)
}

func (r *PostgresIdentityRepository) GetRoleClaims(ctx context.Context, roleID uuid.UUID, page, pageSize int) (paging.PagedList[RoleClaim], error) {
	page, pageSize = paging.Normalize(page, pageSize)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM role_claims WHERE role_id = $1`, roleID).Scan(&total); err != nil {
		return paging.PagedList[RoleClaim]{}, fmt.Errorf("failed to count role claims: %w", err)
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, role_id, claim_type, claim_value FROM role_claims WHERE role_id = $1
		ORDER BY id LIMIT $2 OFFSET $3`, roleID, pageSize, paging.Offset(page, pageSize))
	if err != nil {
		return paging.PagedList[RoleClaim]{}, fmt.Errorf("failed to list role claims: %w", err)
	}
	claims, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (RoleClaim, error) {
		var c RoleClaim
		err := row.Scan(&c.ID, &c.RoleID, &c.Type, &c.Value)
		return c, err
	})
	if err != nil {
		return paging.PagedList[RoleClaim]{}, fmt.Errorf("failed to scan role claim: %w", err)
	}
	return paging.New(claims, total, pageSize), nil
}

func (r *PostgresIdentityRepository) GetRoleClaim(ctx context.Context, roleID uuid.UUID, claimID int) (*RoleClaim, error) {
	var c RoleClaim
	err := r.db.QueryRow(ctx,
		`SELECT id, role_id, claim_type, claim_value FROM role_claims WHERE role_id = $1 AND id = $2`,
		roleID, claimID).Scan(&c.ID, &c.RoleID, &c.Type, &c.Value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role claim: %w", err)
	}
	return &c, nil
}

func (r *PostgresIdentityRepository) AddRoleClaim(ctx context.Context, claim *RoleClaim) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO role_claims (role_id, claim_type, claim_value) VALUES ($1, $2, $3) RETURNING id`,
		claim.RoleID, claim.Type, claim.Value).Scan(&claim.ID)
	if err != nil {
		return fmt.Errorf("failed to insert role claim: %w", err)
	}
	return nil
}

func (r *PostgresIdentityRepository) DeleteRoleClaim(ctx context.Context, roleID uuid.UUID, claimID int) (int, error) {
	return r.delete(ctx, `DELETE FROM role_claims WHERE role_id = $1 AND id = $2`, roleID, claimID)
}

func scanLogin(row pgx.Row) (UserLogin, error) {
	var l UserLogin
	var display *string
	err := row.Scan(&l.LoginProvider, &l.ProviderKey, &display, &l.UserID)
	l.ProviderDisplayName = utils.StringValue(display)
	return l, err
}

func (r *PostgresIdentityRepository) GetUserProviders(ctx context.Context, userID uuid.UUID) ([]UserLogin, error) {
	rows, err := r.db.Query(ctx, `
		SELECT login_provider, provider_key, provider_display_name, user_id FROM user_logins
		WHERE user_id = $1 ORDER BY login_provider, provider_key`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user providers: %w", err)
	}
	logins, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (UserLogin, error) { return scanLogin(row) })
	if err != nil {
		return nil, fmt.Errorf("failed to scan user provider: %w", err)
	}
	return logins, nil
}

func (r *PostgresIdentityRepository) GetUserProvider(ctx context.Context, userID uuid.UUID, provider, providerKey string) (*UserLogin, error) {
	l, err := scanLogin(r.db.QueryRow(ctx, `
		SELECT login_provider, provider_key, provider_display_name, user_id FROM user_logins
		WHERE user_id = $1 AND login_provider = $2 AND provider_key = $3`, userID, provider, providerKey))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user provider: %w", err)
	}
	return &l, nil
}

func (r *PostgresIdentityRepository) DeleteUserProvider(ctx context.Context, userID uuid.UUID, provider, providerKey string) (int, error) {
	return r.delete(ctx,
		`DELETE FROM user_logins WHERE user_id = $1 AND login_provider = $2 AND provider_key = $3`,
		userID, provider, providerKey)
}
