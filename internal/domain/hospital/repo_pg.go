package hospital

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/records/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFrom(ctx, r.pool)
}

const hospitalCols = `hospital_id, name, license_number, address, contact_email, contact_phone,
	password_hash, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, h *Hospital) error {
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO hospitals (name, license_number, address, contact_email, contact_phone, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+hospitalCols,
		h.Name, h.LicenseNumber, h.Address, h.ContactEmail, h.ContactPhone, h.PasswordHash,
	)
	created, err := scanHospital(row)
	if err != nil {
		return fmt.Errorf("insert hospital: %w", err)
	}
	*h = *created
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	h, err := scanHospital(r.conn(ctx).QueryRow(ctx,
		`SELECT `+hospitalCols+` FROM hospitals WHERE hospital_id = $1`, id))
	return h, db.NotFound(err)
}

func (r *repoPG) GetByLicenseNumber(ctx context.Context, license string) (*Hospital, error) {
	h, err := scanHospital(r.conn(ctx).QueryRow(ctx,
		`SELECT `+hospitalCols+` FROM hospitals WHERE license_number = $1`, license))
	return h, db.NotFound(err)
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hospitals`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count hospitals: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+hospitalCols+` FROM hospitals ORDER BY created_at, hospital_id LIMIT $1 OFFSET $2`,
		db.LimitArg(limit), offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list hospitals: %w", err)
	}
	defer rows.Close()

	hospitals := []*Hospital{}
	for rows.Next() {
		h, err := scanHospital(rows)
		if err != nil {
			return nil, 0, err
		}
		hospitals = append(hospitals, h)
	}
	return hospitals, total, rows.Err()
}

func scanHospital(row pgx.Row) (*Hospital, error) {
	var h Hospital
	err := row.Scan(
		&h.ID, &h.Name, &h.LicenseNumber, &h.Address, &h.ContactEmail, &h.ContactPhone,
		&h.PasswordHash, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}
