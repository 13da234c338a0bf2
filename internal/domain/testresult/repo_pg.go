package testresult

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/records/internal/platform/db"
)

type typeRepoPG struct {
	pool *pgxpool.Pool
}

func NewTypeRepo(pool *pgxpool.Pool) TypeRepository {
	return &typeRepoPG{pool: pool}
}

const typeCols = `test_type_id, name, description, created_at, updated_at`

func (r *typeRepoPG) Create(ctx context.Context, t *TestType) error {
	created, err := scanType(db.QuerierFrom(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO test_types (name, description) VALUES ($1, $2)
		RETURNING `+typeCols,
		t.Name, t.Description,
	))
	if err != nil {
		return fmt.Errorf("insert test type: %w", err)
	}
	*t = *created
	return nil
}

func (r *typeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TestType, error) {
	t, err := scanType(db.QuerierFrom(ctx, r.pool).QueryRow(ctx,
		`SELECT `+typeCols+` FROM test_types WHERE test_type_id = $1`, id))
	return t, db.NotFound(err)
}

func (r *typeRepoPG) List(ctx context.Context) ([]*TestType, error) {
	rows, err := db.QuerierFrom(ctx, r.pool).Query(ctx,
		`SELECT `+typeCols+` FROM test_types ORDER BY name, test_type_id`)
	if err != nil {
		return nil, fmt.Errorf("list test types: %w", err)
	}
	defer rows.Close()

	types := []*TestType{}
	for rows.Next() {
		t, err := scanType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func scanType(row pgx.Row) (*TestType, error) {
	var t TestType
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

type resultRepoPG struct {
	pool *pgxpool.Pool
}

func NewResultRepo(pool *pgxpool.Pool) ResultRepository {
	return &resultRepoPG{pool: pool}
}

const resultCols = `test_result_id, patient_id, test_type_id, result, test_date,
	created_by_hospital_id, created_at, updated_at`

func (r *resultRepoPG) Create(ctx context.Context, tr *TestResult) error {
	created, err := scanResult(db.QuerierFrom(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO test_results (patient_id, test_type_id, result, test_date, created_by_hospital_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+resultCols,
		tr.PatientID, tr.TestTypeID, tr.Result, tr.TestDate, tr.CreatedByHospitalID,
	))
	if err != nil {
		return fmt.Errorf("insert test result: %w", err)
	}
	*tr = *created
	return nil
}

func (r *resultRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*TestResult, int, error) {
	q := db.QuerierFrom(ctx, r.pool)

	var total int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM test_results WHERE patient_id = $1`, patientID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count test results: %w", err)
	}

	rows, err := q.Query(ctx,
		`SELECT `+resultCols+` FROM test_results WHERE patient_id = $1
		 ORDER BY test_date DESC, created_at DESC, test_result_id LIMIT $2 OFFSET $3`,
		patientID, db.LimitArg(limit), offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list test results: %w", err)
	}
	defer rows.Close()

	results := []*TestResult{}
	for rows.Next() {
		tr, err := scanResult(rows)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, tr)
	}
	return results, total, rows.Err()
}

func scanResult(row pgx.Row) (*TestResult, error) {
	var tr TestResult
	err := row.Scan(
		&tr.ID, &tr.PatientID, &tr.TestTypeID, &tr.Result, &tr.TestDate,
		&tr.CreatedByHospitalID, &tr.CreatedAt, &tr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tr, nil
}
