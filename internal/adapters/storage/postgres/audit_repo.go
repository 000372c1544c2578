package postgres

import (
	"context"
	"database/sql"

	"consent-records/internal/domain/audit"
)

type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

const auditColumns = `
	id, patient_id, patient_name, actor_id, actor_name, actor_role,
	action, record_id, record_title, details, created_at`

func (r *AuditRepo) Create(ctx context.Context, e audit.Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (`+auditColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		e.ID,
		e.PatientID,
		e.PatientName,
		e.ActorID,
		e.ActorName,
		e.ActorRole,
		string(e.Action),
		e.RecordID,
		e.RecordTitle,
		e.Details,
		e.CreatedAt,
	)
	return err
}

func (r *AuditRepo) ListByPatient(ctx context.Context, patientID string, offset, limit int) ([]audit.Entry, int, error) {
	return r.list(ctx, "patient_id", patientID, offset, limit)
}

func (r *AuditRepo) ListByActor(ctx context.Context, actorID string, offset, limit int) ([]audit.Entry, int, error) {
	return r.list(ctx, "actor_id", actorID, offset, limit)
}

// column viene de las constantes de arriba, nunca del request.
func (r *AuditRepo) list(ctx context.Context, column, value string, offset, limit int) ([]audit.Entry, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs WHERE `+column+` = $1`, value).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = total
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+auditColumns+`
		FROM audit_logs
		WHERE `+column+` = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2 OFFSET $3
	`, value, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]audit.Entry, 0)
	for rows.Next() {
		var e audit.Entry
		var action string
		if err := rows.Scan(
			&e.ID,
			&e.PatientID,
			&e.PatientName,
			&e.ActorID,
			&e.ActorName,
			&e.ActorRole,
			&action,
			&e.RecordID,
			&e.RecordTitle,
			&e.Details,
			&e.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		e.Action = audit.Action(action)
		out = append(out, e)
	}
	return out, total, rows.Err()
}
