package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/papeesearch/portal/internal/models"
)

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	base
}

const userColumns = `id, email, name, password_hash, role, permissions, active, created_by, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	var permissions []string
	var createdBy sql.NullInt64
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, pq.Array(&permissions),
		&u.Active, &createdBy, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.CreatedBy = createdBy.Int64
	u.Permissions, err = models.ParsePermissionSet(permissions)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", u.ID, err)
	}
	return u, nil
}

// Create creates a new user. A taken email yields store.ErrDuplicate.
func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (email, name, password_hash, role, permissions, active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id, created_at, updated_at`

	err := s.conn().QueryRowContext(ctx, query,
		u.Email, u.Name, u.PasswordHash, u.Role, pq.Array(u.Permissions.Strings()), u.Active,
		nullID(u.CreatedBy), time.Now().UTC(),
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return writeError("inserting user", err)
	}
	return nil
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.conn().QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, readError("querying user", err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email, ignoring case.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	u, err := scanUser(s.conn().QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, readError("querying user by email", err)
	}
	return u, nil
}

// List retrieves users oldest first, optionally limited to one role.
func (s *UserStore) List(ctx context.Context, role models.Role) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE $1::text = '' OR role = $1
		ORDER BY id`

	rows, err := s.conn().QueryContext(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update updates an existing user's information.
func (s *UserStore) Update(ctx context.Context, u *models.User) error {
	query := `
		UPDATE users
		SET email = $1, name = $2, password_hash = $3, role = $4, permissions = $5, active = $6, updated_at = $7
		WHERE id = $8
		RETURNING created_at, updated_at`

	err := s.conn().QueryRowContext(ctx, query,
		u.Email, u.Name, u.PasswordHash, u.Role, pq.Array(u.Permissions.Strings()), u.Active,
		time.Now().UTC(), u.ID,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return writeError("updating user", err)
		}
		return readError("updating user", err)
	}
	return nil
}

// Delete removes a user.
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	res, err := s.conn().ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return affectedOne(res, "deleting user")
}

// CountByRole returns the number of users holding role.
func (s *UserStore) CountByRole(ctx context.Context, role models.Role) (int, error) {
	var n int
	err := s.conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, string(role)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}
