package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/unclebandit/jobmailer-backend/internal/errors"
	"github.com/unclebandit/jobmailer-backend/internal/model"
)

// UnknownCompany is stored when a record arrives without a company label
const UnknownCompany = "Unknown Company"

type SendRecordRepositoryInterface interface {
	Create(ctx context.Context, r *model.SendRecord) error
	GetByID(ctx context.Context, id int64) (*model.SendRecord, error)
	List(ctx context.Context, f model.RecordFilter) ([]*model.SendRecord, error)
	UpdateStatus(ctx context.Context, id int64, status, messageID, lastError string) error
	Stats(ctx context.Context, since string) (*model.Stats, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SendRecordRepository works on both postgres and sqlite; every query uses $n placeholders.
type SendRecordRepository struct {
	DB *sql.DB
	// Now is overridable for tests
	Now func() time.Time
}

func NewSendRecordRepository(db *sql.DB) *SendRecordRepository {
	return &SendRecordRepository{DB: db, Now: time.Now}
}

func (r *SendRecordRepository) now() time.Time {
	if r.Now == nil {
		return time.Now().UTC()
	}
	return r.Now().UTC()
}

const recordColumns = `id, to_email, company_name, subject, body, sent_date, sent_time, status, message_id, last_error, created_at, updated_at`

func (r *SendRecordRepository) Create(ctx context.Context, rec *model.SendRecord) error {
	if rec.ToEmail == "" {
		return appErrors.NewValidation("to_email", "recipient address is required")
	}
	if rec.CompanyName == "" {
		rec.CompanyName = UnknownCompany
	}
	if rec.Status == "" {
		rec.Status = model.StatusPending
	}
	rec.CreatedAt = r.now().Truncate(time.Second)

	query := `
        INSERT INTO send_records (to_email, company_name, subject, body, sent_date, sent_time, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `
	return r.DB.QueryRowContext(ctx, query,
		rec.ToEmail, rec.CompanyName, rec.Subject, rec.Body,
		rec.SentDate, rec.SentTime, rec.Status, rec.CreatedAt,
	).Scan(&rec.ID)
}

func (r *SendRecordRepository) GetByID(ctx context.Context, id int64) (*model.SendRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM send_records WHERE id=$1`
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewRecordNotFound(id)
		}
		return nil, err
	}
	return rec, nil
}

// List returns records newest first
func (r *SendRecordRepository) List(ctx context.Context, f model.RecordFilter) ([]*model.SendRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM send_records WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if f.Company != "" {
		query += fmt.Sprintf(" AND LOWER(company_name) LIKE LOWER($%d)", argPos)
		args = append(args, "%"+f.Company+"%")
		argPos++
	}
	if f.DateFrom != "" {
		query += fmt.Sprintf(" AND sent_date >= $%d", argPos)
		args = append(args, f.DateFrom)
		argPos++
	}
	if f.DateTo != "" {
		query += fmt.Sprintf(" AND sent_date <= $%d", argPos)
		args = append(args, f.DateTo)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*model.SendRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UpdateStatus resolves a pending record. A record leaves pending exactly once.
func (r *SendRecordRepository) UpdateStatus(ctx context.Context, id int64, status, messageID, lastError string) error {
	if status != model.StatusSent && status != model.StatusFailed {
		return fmt.Errorf("invalid target status %q", status)
	}
	query := `
        UPDATE send_records
        SET status=$1, message_id=$2, last_error=$3, updated_at=$4
        WHERE id=$5 AND status=$6
    `
	res, err := r.DB.ExecContext(ctx, query, status, messageID, lastError, r.now(), id, model.StatusPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: record %d", appErrors.ErrNotPending, id)
	}
	return nil
}

// Stats counts all records, groups them by company and status, and by day from since (YYYY-MM-DD) onward
func (r *SendRecordRepository) Stats(ctx context.Context, since string) (*model.Stats, error) {
	stats := &model.Stats{
		EmailsByCompany: []model.CompanyCount{},
		EmailsByDate:    []model.DateCount{},
		EmailsByStatus:  map[string]int{model.StatusPending: 0, model.StatusSent: 0, model.StatusFailed: 0},
	}

	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM send_records`).Scan(&stats.TotalEmails); err != nil {
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, `
        SELECT company_name, COUNT(*) AS count
        FROM send_records
        WHERE company_name IS NOT NULL
        GROUP BY company_name
        ORDER BY count DESC, company_name ASC
    `)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var c model.CompanyCount
		if err := rows.Scan(&c.CompanyName, &c.Count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.EmailsByCompany = append(stats.EmailsByCompany, c)
	}
	rows.Close()

	rows, err = r.DB.QueryContext(ctx, `
        SELECT sent_date, COUNT(*) AS count
        FROM send_records
        WHERE sent_date >= $1
        GROUP BY sent_date
        ORDER BY sent_date DESC
    `, since)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var d model.DateCount
		if err := rows.Scan(&d.SentDate, &d.Count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.EmailsByDate = append(stats.EmailsByDate, d)
	}
	rows.Close()

	rows, err = r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM send_records GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.EmailsByStatus[status] = count
	}
	return stats, rows.Err()
}

// PurgeOlderThan deletes records created before cutoff and returns how many were removed
func (r *SendRecordRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM send_records WHERE created_at < $1`, cutoff.UTC().Truncate(time.Second))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*model.SendRecord, error) {
	var rec model.SendRecord
	var company sql.NullString
	err := row.Scan(
		&rec.ID, &rec.ToEmail, &company, &rec.Subject, &rec.Body,
		&rec.SentDate, &rec.SentTime, &rec.Status, &rec.MessageID, &rec.LastError,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.CompanyName = company.String
	return &rec, nil
}

var _ SendRecordRepositoryInterface = (*SendRecordRepository)(nil)
