package db

import (
	"context"
	"database/sql"
	"errors"

	"prediagnosis/pkg"
)

// ErrNotFound is returned when a session or record does not exist.
var ErrNotFound = errors.New("not found")

// Repository wraps the Postgres persistence of sessions, dialogue turns and
// triage results. The caller owns the sql.DB lifecycle.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a Repository from an existing sql.DB.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// CreateSession inserts a session row. Inserting an id that already exists is
// a no-op so a retried create stays idempotent.
func (r *Repository) CreateSession(ctx context.Context, sessionID string, clientIP, userAgent string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO sessions (id, client_ip, user_agent)
         VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))
         ON CONFLICT (id) DO NOTHING`,
		sessionID, clientIP, userAgent,
	)
	return err
}

// SaveDialogueRecord appends one (patient, doctor) exchange keyed by
// (session_id, turn_id). A replayed turn id overwrites rather than fails so a
// retried persistence attempt cannot error the request path.
func (r *Repository) SaveDialogueRecord(ctx context.Context, sessionID string, turnID int, patientContent, doctorContent string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO dialogue_records (session_id, turn_id, patient_content, doctor_content)
         VALUES ($1, $2, $3, $4)
         ON CONFLICT (session_id, turn_id) DO UPDATE SET
             patient_content = EXCLUDED.patient_content,
             doctor_content  = EXCLUDED.doctor_content`,
		sessionID, turnID, patientContent, doctorContent,
	)
	return err
}

// GetDialogueRecords returns a session's persisted exchanges in turn order.
func (r *Repository) GetDialogueRecords(ctx context.Context, sessionID string) ([]pkg.DialogueRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT session_id, turn_id, patient_content, doctor_content, created_at
         FROM dialogue_records
         WHERE session_id = $1
         ORDER BY turn_id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []pkg.DialogueRecord
	for rows.Next() {
		var rec pkg.DialogueRecord
		if err := rows.Scan(&rec.SessionID, &rec.TurnID, &rec.PatientContent, &rec.DoctorContent, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveTriageRecord upserts the session's department classification.
func (r *Repository) SaveTriageRecord(ctx context.Context, sessionID string, t pkg.TriageResult) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO triage_records
             (session_id, primary_department, secondary_department, candidate_primary, candidate_secondary, reasoning)
         VALUES ($1, $2, $3, $4, $5, $6)
         ON CONFLICT (session_id) DO UPDATE SET
             primary_department   = EXCLUDED.primary_department,
             secondary_department = EXCLUDED.secondary_department,
             candidate_primary    = EXCLUDED.candidate_primary,
             candidate_secondary  = EXCLUDED.candidate_secondary,
             reasoning            = EXCLUDED.reasoning`,
		sessionID, t.PrimaryDept, t.SecondaryDept, t.CandidatePrimary, t.CandidateSecondary, t.Reasoning,
	)
	return err
}

// GetTriageRecord fetches the session's department classification.
func (r *Repository) GetTriageRecord(ctx context.Context, sessionID string) (*pkg.TriageResult, error) {
	var t pkg.TriageResult
	err := r.DB.QueryRowContext(ctx,
		`SELECT primary_department, secondary_department, candidate_primary, candidate_secondary, reasoning
         FROM triage_records
         WHERE session_id = $1`, sessionID,
	).Scan(&t.PrimaryDept, &t.SecondaryDept, &t.CandidatePrimary, &t.CandidateSecondary, &t.Reasoning)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
