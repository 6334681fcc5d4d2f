package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"callerlens/internal/contact/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a contact repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const contactColumns = `id, user_id, name, phone_number, email, is_registered_user, registered_user_id, created_at, updated_at`

// GetByOwnerAndID returns the owner's contact for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByOwnerAndID(ctx context.Context, ownerID, id string) (*domain.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1 AND user_id = $2`, id, ownerID)
	return scanContact(row)
}

// GetByOwnerAndPhone returns the owner's contact for phoneNumber, or nil if not found.
func (r *PostgresRepository) GetByOwnerAndPhone(ctx context.Context, ownerID, phoneNumber string) (*domain.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE user_id = $1 AND phone_number = $2`, ownerID, phoneNumber)
	return scanContact(row)
}

// ListByOwner returns the owner's contacts ordered by name, plus the total count.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Contact, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contacts WHERE user_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE user_id = $1 ORDER BY name ASC LIMIT $2 OFFSET $3`,
		ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	contacts, err := collectContacts(rows)
	return contacts, total, err
}

// FindAllByPhone returns contacts for phoneNumber across all owners except excludeOwnerID.
func (r *PostgresRepository) FindAllByPhone(ctx context.Context, phoneNumber, excludeOwnerID string, limit, offset int) ([]*domain.Contact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+`
		   FROM contacts
		  WHERE phone_number = $1 AND user_id <> $2
		  ORDER BY name ASC
		  LIMIT $3 OFFSET $4`,
		phoneNumber, excludeOwnerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContacts(rows)
}

// SearchByName returns contacts matching q by case-insensitive substring,
// excluding rows owned by excludeOwnerID.
func (r *PostgresRepository) SearchByName(ctx context.Context, q string, excludeOwnerID string, limit int) ([]*domain.Contact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+`
		   FROM contacts
		  WHERE name ILIKE '%' || $1 || '%' AND user_id <> $2
		  ORDER BY name ASC
		  LIMIT $3`,
		q, excludeOwnerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContacts(rows)
}

// SavedNamesByPhone returns (contact name, owner name) pairs for every owner
// who has phoneNumber in their address book.
func (r *PostgresRepository) SavedNamesByPhone(ctx context.Context, phoneNumber string) ([]domain.SavedName, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.name, u.name
		   FROM contacts c
		   JOIN users u ON u.id = c.user_id
		  WHERE c.phone_number = $1
		  ORDER BY u.name ASC`,
		phoneNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SavedName
	for rows.Next() {
		var sn domain.SavedName
		if err := rows.Scan(&sn.Name, &sn.AddedBy); err != nil {
			return nil, err
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

// Create persists the contact. Returns ErrDuplicate when the owner already has
// a contact with this phone number.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Contact) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contacts (`+contactColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.UserID, c.Name, c.PhoneNumber, nullString(c.Email),
		c.IsRegisteredUser, nullString(c.RegisteredUserID), c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// Update persists name, phone number, email, and the derived registered-target
// flags. Returns ErrDuplicate when the new phone number collides with another
// of the owner's contacts.
func (r *PostgresRepository) Update(ctx context.Context, c *domain.Contact) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE contacts
		    SET name = $3, phone_number = $4, email = $5,
		        is_registered_user = $6, registered_user_id = $7, updated_at = $8
		  WHERE id = $1 AND user_id = $2`,
		c.ID, c.UserID, c.Name, c.PhoneNumber, nullString(c.Email),
		c.IsRegisteredUser, nullString(c.RegisteredUserID), c.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// Delete removes the owner's contact and reports whether a row was deleted.
func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM contacts WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*domain.Contact, error) {
	var c domain.Contact
	var email, registeredID sql.NullString
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.PhoneNumber, &email,
		&c.IsRegisteredUser, &registeredID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if email.Valid {
		c.Email = email.String
	}
	if registeredID.Valid {
		c.RegisteredUserID = registeredID.String
	}
	return &c, nil
}

func collectContacts(rows *sql.Rows) ([]*domain.Contact, error) {
	var contacts []*domain.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
