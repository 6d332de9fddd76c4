package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bemobi-ops/ops-console/internal/platform/db"
	"github.com/bemobi-ops/ops-console/internal/rbac"
	"github.com/bemobi-ops/ops-console/internal/shared"
)

// Repository defines persistence operations for the credential store.
// Lookups return shared.ErrUserNotFound for missing users and Create returns
// shared.ErrDuplicateUser when the email is taken.
type Repository interface {
	rbac.PermissionStore
	Create(ctx context.Context, user User) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context) ([]User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	// Delete removes the user after guard approves it, atomically with
	// respect to other writes on the same user.
	Delete(ctx context.Context, id int64, guard func(User) error) (*User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, email, name, password_hash, role, permissions, created_at, updated_at`

type userRecord struct {
	ID           int64     `db:"id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	Permissions  []string  `db:"permissions"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRecord) user() User {
	return User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		PasswordHash: r.PasswordHash,
		Role:         rbac.Role(r.Role),
		Permissions:  r.Permissions,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (r *PGRepository) one(ctx context.Context, q db.Querier, sql string, args ...any) (*User, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	record, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[userRecord])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrUserNotFound
		}
		return nil, err
	}
	user := record.user()
	return &user, nil
}

// Create inserts a new user.
func (r *PGRepository) Create(ctx context.Context, user User) (*User, error) {
	perms := user.Permissions
	if perms == nil {
		perms = []string{}
	}
	created, err := r.one(ctx, r.pool,
		`INSERT INTO users (email, name, password_hash, role, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING `+userColumns,
		user.Email, user.Name, user.PasswordHash, string(user.Role), perms)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrDuplicateUser
		}
		return nil, err
	}
	return created, nil
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.one(ctx, r.pool, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.one(ctx, r.pool, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// List returns all users ordered by id.
func (r *PGRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[userRecord])
	if err != nil {
		return nil, err
	}
	users := make([]User, len(records))
	for i, rec := range records {
		users[i] = rec.user()
	}
	return users, nil
}

// UpdatePassword replaces the password hash.
func (r *PGRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}
	return nil
}

// UpdatePermissions locks the user row, resolves the final set from its role
// and stores it.
func (r *PGRepository) UpdatePermissions(ctx context.Context, id int64, resolve func(rbac.Role) []string) ([]string, error) {
	var final []string
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		user, err := r.one(ctx, tx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		final = resolve(user.Role)
		if final == nil {
			final = []string{}
		}
		_, err = tx.Exec(ctx, `UPDATE users SET permissions = $2, updated_at = NOW() WHERE id = $1`, id, final)
		return err
	})
	if err != nil {
		return nil, err
	}
	return final, nil
}

// Delete locks the user row, runs guard and deletes it.
func (r *PGRepository) Delete(ctx context.Context, id int64, guard func(User) error) (*User, error) {
	var deleted *User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		user, err := r.one(ctx, tx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(*user); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
			return err
		}
		deleted = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

var _ Repository = (*PGRepository)(nil)
