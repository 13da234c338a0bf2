package patient

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

const patientCols = `patient_id, user_id, unique_id, dob, gender, contact_phone, emergency_contact,
	created_by_hospital_id, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	created, err := scanPatient(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (user_id, unique_id, dob, gender, contact_phone, emergency_contact, created_by_hospital_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+patientCols,
		p.UserID, p.UniqueID, p.DOB, p.Gender, p.ContactPhone, jsonArg(p.EmergencyContact), p.CreatedByHospitalID,
	))
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	*p = *created
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE patient_id = $1`, id))
	return p, db.NotFound(err)
}

func (r *repoPG) GetByUniqueID(ctx context.Context, uniqueID string) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE unique_id = $1`, uniqueID))
	return p, db.NotFound(err)
}

func (r *repoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE user_id = $1`, userID))
	return p, db.NotFound(err)
}

func (r *repoPG) GetOwned(ctx context.Context, id, hospitalID uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE patient_id = $1 AND created_by_hospital_id = $2`,
		id, hospitalID))
	return p, db.NotFound(err)
}

// UpdateOwned applies upd in a single statement guarded by ownership, so a
// row owned by another hospital is indistinguishable from a missing one.
func (r *repoPG) UpdateOwned(ctx context.Context, id, hospitalID uuid.UUID, upd UpdateRequest) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `
		UPDATE patients SET
			gender            = COALESCE($3, gender),
			contact_phone     = COALESCE($4, contact_phone),
			emergency_contact = COALESCE($5, emergency_contact),
			updated_at        = NOW()
		WHERE patient_id = $1 AND created_by_hospital_id = $2
		RETURNING `+patientCols,
		id, hospitalID, upd.Gender, upd.ContactPhone, jsonArg(upd.EmergencyContact),
	))
	return p, db.NotFound(err)
}

func (r *repoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID, uniqueID string, limit, offset int) ([]*Patient, int, error) {
	where := `WHERE created_by_hospital_id = $1`
	args := []any{hospitalID}
	if uniqueID != "" {
		where += ` AND unique_id = $2`
		args = append(args, uniqueID)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	n := len(args)
	args = append(args, db.LimitArg(limit), offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM patients %s ORDER BY created_at, patient_id LIMIT $%d OFFSET $%d`,
			patientCols, where, n+1, n+2),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	patients := []*Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

// jsonArg passes a nil map as SQL NULL.
func jsonArg(m map[string]interface{}) any {
	if m == nil {
		return nil
	}
	return m
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.UserID, &p.UniqueID, &p.DOB, &p.Gender, &p.ContactPhone, &p.EmergencyContact,
		&p.CreatedByHospitalID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
