package request

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/internal/bloodgroup"
)

type Repository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id string) (*Request, error)
	List(ctx context.Context) ([]Request, error)
	UpdateStatus(ctx context.Context, id string, status Status, remarks string) error
	ListByStatus(ctx context.Context, status Status) ([]Request, error)
	ListByGroupAndStatus(ctx context.Context, group string, status Status) ([]Request, error)
	ListByPriorityAndStatus(ctx context.Context, priority Priority, status Status) ([]Request, error)
	ListByHospital(ctx context.Context, hospital string) ([]Request, error)
	ListByDateRange(ctx context.Context, r DateRange) ([]Request, error)
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

const requestColumns = `id, patient_name, blood_group, units_required, hospital_name,
	contact_number, request_date, required_by, priority, status, remarks`

func (r *repo) Create(ctx context.Context, req *Request) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.RequestDate.IsZero() {
		req.RequestDate = time.Now().UTC()
	}
	if req.RequiredBy.IsZero() {
		req.RequiredBy = req.RequestDate.Add(24 * time.Hour)
	}
	if req.Status == "" {
		req.Status = StatusPending
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO blood_requests (`+requestColumns+`)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		req.ID, req.PatientName, string(req.BloodGroup), req.UnitsRequired, req.HospitalName,
		req.ContactNumber, req.RequestDate, req.RequiredBy, string(req.Priority), string(req.Status), req.Remarks,
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (r *repo) GetByID(ctx context.Context, id string) (*Request, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM blood_requests WHERE id = $1`, id)

	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select request: %w", err)
	}
	return req, nil
}

func (r *repo) UpdateStatus(ctx context.Context, id string, status Status, remarks string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE blood_requests
		SET status = $2,
		    remarks = CASE WHEN $3 = '' THEN remarks ELSE $3 END
		WHERE id = $1`,
		id, string(status), remarks,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) List(ctx context.Context) ([]Request, error) {
	return r.query(ctx, `SELECT `+requestColumns+` FROM blood_requests ORDER BY request_date DESC`)
}

func (r *repo) ListByStatus(ctx context.Context, status Status) ([]Request, error) {
	return r.query(ctx,
		`SELECT `+requestColumns+` FROM blood_requests WHERE status = $1 ORDER BY request_date`,
		string(status))
}

func (r *repo) ListByGroupAndStatus(ctx context.Context, group string, status Status) ([]Request, error) {
	return r.query(ctx,
		`SELECT `+requestColumns+` FROM blood_requests WHERE blood_group = $1 AND status = $2 ORDER BY request_date`,
		group, string(status))
}

func (r *repo) ListByPriorityAndStatus(ctx context.Context, priority Priority, status Status) ([]Request, error) {
	return r.query(ctx,
		`SELECT `+requestColumns+` FROM blood_requests WHERE priority = $1 AND status = $2 ORDER BY request_date`,
		string(priority), string(status))
}

func (r *repo) ListByHospital(ctx context.Context, hospital string) ([]Request, error) {
	return r.query(ctx,
		`SELECT `+requestColumns+` FROM blood_requests WHERE hospital_name = $1 ORDER BY request_date DESC`,
		hospital)
}

func (r *repo) ListByDateRange(ctx context.Context, dr DateRange) ([]Request, error) {
	return r.query(ctx,
		`SELECT `+requestColumns+` FROM blood_requests WHERE request_date >= $1 AND request_date <= $2 ORDER BY request_date`,
		dr.Start, dr.End)
}

func (r *repo) query(ctx context.Context, q string, args ...any) ([]Request, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select requests: %w", err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var req Request
	var group, priority, status string
	err := row.Scan(
		&req.ID, &req.PatientName, &group, &req.UnitsRequired, &req.HospitalName,
		&req.ContactNumber, &req.RequestDate, &req.RequiredBy, &priority, &status, &req.Remarks,
	)
	if err != nil {
		return nil, err
	}
	req.BloodGroup = bloodgroup.Group(group)
	req.Priority = Priority(priority)
	req.Status = Status(status)
	return &req, nil
}
