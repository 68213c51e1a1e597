package report

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medlink/medlink/internal/domain/consent"
	"github.com/medlink/medlink/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *repoPG) CreateWithSnapshot(ctx context.Context, rep *Report, snap *consent.ObfuscatedUser) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		snap.ID = uuid.New()
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO obfuscated_users (id, user_id, age, sex, activity_level, allergies, health_issues, diet)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			snap.ID, snap.UserID, snap.Age, snap.Sex, snap.ActivityLevel,
			snap.Allergies, snap.HealthIssues, snap.Diet); err != nil {
			return err
		}

		rep.ID = uuid.New()
		rep.ObfuscatedUserID = snap.ID
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO reports (id, body, status, patient_id, doctor_id, obfuscated_user_id)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			rep.ID, rep.Body, rep.Status, rep.PatientID, rep.DoctorID, rep.ObfuscatedUserID)
		return err
	})
}

const detailCols = `r.id, r.body, r.status, r.patient_id, r.doctor_id, r.obfuscated_user_id,
	r.created_at, r.updated_at,
	o.id, o.user_id, o.age, o.sex, o.activity_level, o.allergies, o.health_issues, o.diet, o.created_at`

func (r *repoPG) scanDetail(row pgx.Row) (*Detail, error) {
	var d Detail
	var snap consent.ObfuscatedUser
	err := row.Scan(&d.ID, &d.Body, &d.Status, &d.PatientID, &d.DoctorID, &d.ObfuscatedUserID,
		&d.CreatedAt, &d.UpdatedAt,
		&snap.ID, &snap.UserID, &snap.Age, &snap.Sex, &snap.ActivityLevel,
		&snap.Allergies, &snap.HealthIssues, &snap.Diet, &snap.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.Snapshot = &snap
	return &d, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Detail, error) {
	d, err := r.scanDetail(r.conn(ctx).QueryRow(ctx, `
		SELECT `+detailCols+` FROM reports r
		JOIN obfuscated_users o ON o.id = r.obfuscated_user_id
		WHERE r.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE reports SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]*Detail, int, error) {
	return r.list(ctx, `r.doctor_id`, doctorID, limit, offset)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Detail, int, error) {
	return r.list(ctx, `r.patient_id`, patientID, limit, offset)
}

func (r *repoPG) list(ctx context.Context, col, id string, limit, offset int) ([]*Detail, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM reports r WHERE `+col+` = $1`, id).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+detailCols+` FROM reports r
		JOIN obfuscated_users o ON o.id = r.obfuscated_user_id
		WHERE `+col+` = $1
		ORDER BY r.created_at DESC
		LIMIT $2 OFFSET $3`, id, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Detail
	for rows.Next() {
		d, err := r.scanDetail(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, nil
}
