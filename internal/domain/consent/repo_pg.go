package consent

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medlink/medlink/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// =========== Snapshot Repository ===========

type snapshotRepoPG struct{ pool *pgxpool.Pool }

func NewSnapshotRepoPG(pool *pgxpool.Pool) SnapshotRepository {
	return &snapshotRepoPG{pool: pool}
}

func (r *snapshotRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const snapshotCols = `id, user_id, age, sex, activity_level, allergies, health_issues, diet, created_at`

func (r *snapshotRepoPG) scanSnapshot(row pgx.Row) (*ObfuscatedUser, error) {
	var u ObfuscatedUser
	err := row.Scan(&u.ID, &u.UserID, &u.Age, &u.Sex, &u.ActivityLevel,
		&u.Allergies, &u.HealthIssues, &u.Diet, &u.CreatedAt)
	return &u, err
}

func (r *snapshotRepoPG) Create(ctx context.Context, u *ObfuscatedUser) error {
	u.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO obfuscated_users (id, user_id, age, sex, activity_level, allergies, health_issues, diet)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.ID, u.UserID, u.Age, u.Sex, u.ActivityLevel, u.Allergies, u.HealthIssues, u.Diet)
	return err
}

func (r *snapshotRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ObfuscatedUser, error) {
	u, err := r.scanSnapshot(r.conn(ctx).QueryRow(ctx,
		`SELECT `+snapshotCols+` FROM obfuscated_users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *snapshotRepoPG) FindByUser(ctx context.Context, userID string) (*ObfuscatedUser, error) {
	u, err := r.scanSnapshot(r.conn(ctx).QueryRow(ctx,
		`SELECT `+snapshotCols+` FROM obfuscated_users WHERE user_id = $1 ORDER BY created_at LIMIT 1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *snapshotRepoPG) FindByReport(ctx context.Context, reportID uuid.UUID) (*ObfuscatedUser, error) {
	u, err := r.scanSnapshot(r.conn(ctx).QueryRow(ctx, `
		SELECT ou.id, ou.user_id, ou.age, ou.sex, ou.activity_level, ou.allergies, ou.health_issues, ou.diet, ou.created_at
		FROM obfuscated_users ou
		JOIN reports rep ON rep.obfuscated_user_id = ou.id
		WHERE rep.id = $1`, reportID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// =========== Data Request Repository ===========

type dataRequestRepoPG struct{ pool *pgxpool.Pool }

func NewDataRequestRepoPG(pool *pgxpool.Pool) DataRequestRepository {
	return &dataRequestRepoPG{pool: pool}
}

func (r *dataRequestRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const dataRequestCols = `id, field, status, report_id, doctor_id, patient_id, created_at, updated_at`

func (r *dataRequestRepoPG) scanRequest(row pgx.Row) (*DataRequest, error) {
	var dr DataRequest
	err := row.Scan(&dr.ID, &dr.Field, &dr.Status, &dr.ReportID, &dr.DoctorID,
		&dr.PatientID, &dr.CreatedAt, &dr.UpdatedAt)
	return &dr, err
}

func (r *dataRequestRepoPG) Create(ctx context.Context, dr *DataRequest) error {
	dr.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO data_requests (id, field, status, report_id, doctor_id, patient_id)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		dr.ID, dr.Field, dr.Status, dr.ReportID, dr.DoctorID, dr.PatientID)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *dataRequestRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*DataRequest, error) {
	dr, err := r.scanRequest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+dataRequestCols+` FROM data_requests WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return dr, nil
}

func (r *dataRequestRepoPG) FindByTuple(ctx context.Context, reportID uuid.UUID, doctorID, patientID, field string) (*DataRequest, error) {
	dr, err := r.scanRequest(r.conn(ctx).QueryRow(ctx, `
		SELECT `+dataRequestCols+` FROM data_requests
		WHERE report_id = $1 AND doctor_id = $2 AND patient_id = $3 AND field = $4
		ORDER BY created_at LIMIT 1`,
		reportID, doctorID, patientID, field))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return dr, nil
}

func (r *dataRequestRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE data_requests SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *dataRequestRepoPG) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*DataRequestDetail, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM data_requests WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT dr.id, dr.field, dr.status, dr.report_id, dr.doctor_id, dr.patient_id,
			dr.created_at, dr.updated_at,
			d.first_name, d.last_name, d.field_of_study, rp.created_at
		FROM data_requests dr
		JOIN doctors d ON d.id = dr.doctor_id
		JOIN reports rp ON rp.id = dr.report_id
		WHERE dr.patient_id = $1
		ORDER BY dr.created_at DESC
		LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*DataRequestDetail
	for rows.Next() {
		var d DataRequestDetail
		if err := rows.Scan(&d.ID, &d.Field, &d.Status, &d.ReportID, &d.DoctorID,
			&d.PatientID, &d.CreatedAt, &d.UpdatedAt,
			&d.DoctorFirstName, &d.DoctorLastName, &d.DoctorFieldOfStudy, &d.ReportCreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &d)
	}
	return items, total, nil
}

func (r *dataRequestRepoPG) CountPendingByPatient(ctx context.Context, patientID string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM data_requests WHERE patient_id = $1 AND status = $2`,
		patientID, StatusPending).Scan(&n)
	return n, err
}

func (r *dataRequestRepoPG) HasApproved(ctx context.Context, doctorID, patientID, field string) (bool, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM data_requests
		WHERE doctor_id = $1 AND patient_id = $2 AND field = $3 AND status = $4`,
		doctorID, patientID, field, StatusApproved).Scan(&n)
	return n > 0, err
}
