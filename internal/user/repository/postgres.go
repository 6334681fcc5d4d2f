package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"callerlens/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, name, phone_number, email, password_hash, is_active, last_login_at, created_at, updated_at`

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByPhoneNumber returns the user registered with phoneNumber, or nil if not found.
func (r *PostgresRepository) GetByPhoneNumber(ctx context.Context, phoneNumber string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE phone_number = $1`, phoneNumber)
	return scanUser(row)
}

// GetByEmail returns the user with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// SearchByName returns active users whose name contains q (case-insensitive),
// excluding excludeID, ordered by name ascending, capped at limit.
func (r *PostgresRepository) SearchByName(ctx context.Context, q string, excludeID string, limit int) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+`
		   FROM users
		  WHERE name ILIKE '%' || $1 || '%' AND is_active AND id <> $2
		  ORDER BY name ASC
		  LIMIT $3`,
		q, excludeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Create persists the user. Returns ErrDuplicate when the phone number or
// email is already registered.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Name, u.PhoneNumber, nullString(u.Email), u.PasswordHash,
		u.IsActive, u.LastLoginAt, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// Update persists name, email, password hash, and active flag.
// Returns ErrDuplicate when the new email is already taken.
func (r *PostgresRepository) Update(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users
		    SET name = $2, email = $3, password_hash = $4, is_active = $5, updated_at = $6
		  WHERE id = $1`,
		u.ID, u.Name, nullString(u.Email), u.PasswordHash, u.IsActive, u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// SetLastLogin records a successful login time.
func (r *PostgresRepository) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = $2, updated_at = $2 WHERE id = $1`, id, at)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var email sql.NullString
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.Name, &u.PhoneNumber, &email, &u.PasswordHash,
		&u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if email.Valid {
		u.Email = email.String
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// isUniqueViolation reports whether err is a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
