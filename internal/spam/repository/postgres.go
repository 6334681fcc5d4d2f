package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"callerlens/internal/spam/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a spam report repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const reportColumns = `id, phone_number, reported_by, reason, description, is_resolved, resolved_at, resolved_by, created_at, updated_at`

// GetByPhoneAndReporter returns the reporter's report for phoneNumber, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByPhoneAndReporter(ctx context.Context, phoneNumber, reporterID string) (*domain.Report, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM spam_reports WHERE phone_number = $1 AND reported_by = $2`,
		phoneNumber, reporterID)
	return scanReport(row)
}

// GetByIDAndReporter returns the report for id if it belongs to reporterID, or nil.
func (r *PostgresRepository) GetByIDAndReporter(ctx context.Context, id, reporterID string) (*domain.Report, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM spam_reports WHERE id = $1 AND reported_by = $2`, id, reporterID)
	return scanReport(row)
}

// GetByID returns the report for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM spam_reports WHERE id = $1`, id)
	return scanReport(row)
}

// Create persists the report. Returns ErrDuplicate when the reporter already
// reported this phone number.
func (r *PostgresRepository) Create(ctx context.Context, rep *domain.Report) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO spam_reports (`+reportColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rep.ID, rep.PhoneNumber, rep.ReportedBy, string(rep.Reason), nullString(rep.Description),
		rep.IsResolved, rep.ResolvedAt, nullString(rep.ResolvedBy), rep.CreatedAt, rep.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// ListByReporter returns the reporter's reports newest first, plus the total count.
func (r *PostgresRepository) ListByReporter(ctx context.Context, reporterID string, limit, offset int) ([]*domain.Report, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM spam_reports WHERE reported_by = $1`, reporterID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reportColumns+`
		   FROM spam_reports
		  WHERE reported_by = $1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		reporterID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var reports []*domain.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, rep)
	}
	return reports, total, rows.Err()
}

// Delete removes the reporter's report and reports whether a row was deleted.
func (r *PostgresRepository) Delete(ctx context.Context, id, reporterID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM spam_reports WHERE id = $1 AND reported_by = $2`, id, reporterID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Resolve marks the report resolved by resolverID at the given time.
func (r *PostgresRepository) Resolve(ctx context.Context, id, resolverID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE spam_reports
		    SET is_resolved = TRUE, resolved_at = $2, resolved_by = $3, updated_at = $2
		  WHERE id = $1`,
		id, at, resolverID)
	return err
}

// CountUnresolved counts open reports for phoneNumber.
func (r *PostgresRepository) CountUnresolved(ctx context.Context, phoneNumber string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM spam_reports WHERE phone_number = $1 AND NOT is_resolved`,
		phoneNumber).Scan(&n)
	return n, err
}

// CountAll counts every report for phoneNumber, resolved included.
func (r *PostgresRepository) CountAll(ctx context.Context, phoneNumber string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM spam_reports WHERE phone_number = $1`, phoneNumber).Scan(&n)
	return n, err
}

// CountSince counts reports for phoneNumber created at or after since.
func (r *PostgresRepository) CountSince(ctx context.Context, phoneNumber string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM spam_reports WHERE phone_number = $1 AND created_at >= $2`,
		phoneNumber, since).Scan(&n)
	return n, err
}

// CountByReason breaks down all reports for phoneNumber per reason.
func (r *PostgresRepository) CountByReason(ctx context.Context, phoneNumber string) ([]domain.ReasonCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT reason, COUNT(*)
		   FROM spam_reports
		  WHERE phone_number = $1
		  GROUP BY reason
		  ORDER BY COUNT(*) DESC`,
		phoneNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ReasonCount
	for rows.Next() {
		var rc domain.ReasonCount
		var reason string
		if err := rows.Scan(&reason, &rc.Count); err != nil {
			return nil, err
		}
		rc.Reason = domain.Reason(reason)
		out = append(out, rc)
	}
	return out, rows.Err()
}

// TrendingSince ranks phone numbers by raw report count within the window
// starting at since, descending, capped at topN. The window bounds only the
// ranking; likelihood is computed separately from all-time unresolved counts.
func (r *PostgresRepository) TrendingSince(ctx context.Context, since time.Time, topN int) ([]domain.PhoneCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT phone_number, COUNT(*)
		   FROM spam_reports
		  WHERE created_at >= $1
		  GROUP BY phone_number
		  ORDER BY COUNT(*) DESC
		  LIMIT $2`,
		since, topN)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PhoneCount
	for rows.Next() {
		var pc domain.PhoneCount
		if err := rows.Scan(&pc.PhoneNumber, &pc.ReportCount); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*domain.Report, error) {
	var rep domain.Report
	var reason string
	var description, resolvedBy sql.NullString
	var resolvedAt sql.NullTime
	err := row.Scan(&rep.ID, &rep.PhoneNumber, &rep.ReportedBy, &reason, &description,
		&rep.IsResolved, &resolvedAt, &resolvedBy, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rep.Reason = domain.Reason(reason)
	if description.Valid {
		rep.Description = description.String
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		rep.ResolvedAt = &t
	}
	if resolvedBy.Valid {
		rep.ResolvedBy = resolvedBy.String
	}
	return &rep, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
