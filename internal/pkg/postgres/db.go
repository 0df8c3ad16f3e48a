package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vetscribe/scribe/internal/pkg/persistence"
	"github.com/vetscribe/scribe/internal/pkg/utils"
)

// DB provides operations with postgresql
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	res := &DB{pool: pool}
	return res, nil
}

const consultationFields = `id, owner_id, patient_id, client_name, patient_ident, pet_name, email,
	file_name, audio_path, duration_sec, transcription, ai_soap_note, final_soap_note, finalized,
	status, error, recorded_at, created, updated, version`

// InsertConsultation inserts consultation into DB
func (db *DB) InsertConsultation(ctx context.Context, c *persistence.Consultation) error {
	rows, err := db.pool.Query(ctx, `INSERT INTO consultations(id, owner_id, patient_id, client_name,
	patient_ident, pet_name, email, file_name, audio_path, duration_sec, status, recorded_at, created, updated, version)
	VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13, 0)`,
		c.ID, c.OwnerID, c.PatientID, c.ClientName, c.PatientIdent, c.PetName, c.Email,
		c.FileName, c.AudioPath, c.DurationSec, c.Status, c.RecordedAt, c.Created)
	if err != nil {
		return fmt.Errorf("can't insert consultation: %w", err)
	}
	defer rows.Close()
	return nil
}

// LoadConsultation loads consultation from DB
func (db *DB) LoadConsultation(ctx context.Context, id string) (*persistence.Consultation, error) {
	var res persistence.Consultation
	err := db.pool.QueryRow(ctx, `SELECT `+consultationFields+` FROM consultations
		WHERE id = $1`, id).Scan(&res.ID, &res.OwnerID, &res.PatientID, &res.ClientName,
		&res.PatientIdent, &res.PetName, &res.Email, &res.FileName, &res.AudioPath,
		&res.DurationSec, &res.Transcription, &res.AISoapNote, &res.FinalSoapNote, &res.Finalized,
		&res.Status, &res.Error, &res.RecordedAt, &res.Created, &res.Updated, &res.Version)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, utils.NewErrNoRecord(id)
		}
		return nil, fmt.Errorf("can't load consultation: %w", err)
	}
	return &res, nil
}

// LoadConsultations loads owner's consultations, newest first
func (db *DB) LoadConsultations(ctx context.Context, ownerID string) ([]*persistence.Consultation, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+consultationFields+` FROM consultations
		WHERE owner_id = $1 ORDER BY created DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("can't load consultations: %w", err)
	}
	defer rows.Close()
	res := []*persistence.Consultation{}
	for rows.Next() {
		var c persistence.Consultation
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.PatientID, &c.ClientName,
			&c.PatientIdent, &c.PetName, &c.Email, &c.FileName, &c.AudioPath,
			&c.DurationSec, &c.Transcription, &c.AISoapNote, &c.FinalSoapNote, &c.Finalized,
			&c.Status, &c.Error, &c.RecordedAt, &c.Created, &c.Updated, &c.Version); err != nil {
			return nil, fmt.Errorf("can't scan consultation: %w", err)
		}
		res = append(res, &c)
	}
	return res, nil
}

// UpdateConsultation updates the consultation's mutable fields.
// Identity and media fields never change after creation.
func (db *DB) UpdateConsultation(ctx context.Context, c *persistence.Consultation) error {
	rows, err := db.pool.Exec(ctx, `UPDATE consultations SET
	transcription = $3,
	ai_soap_note = $4,
	final_soap_note = $5,
	finalized = $6,
	status = $7,
	error = $8,
	updated = $9,
	version = $2 + 1
	WHERE id = $1 and version = $2`, c.ID, c.Version, c.Transcription, c.AISoapNote,
		c.FinalSoapNote, c.Finalized, c.Status, c.Error, time.Now())
	if err != nil {
		return fmt.Errorf("can't update consultation: %w", err)
	}
	if rows.RowsAffected() != 1 {
		return fmt.Errorf("can't update consultation, no record for %s v%d", c.ID, c.Version)
	}
	return nil
}

// UpdateFinalNote saves the user's edited note. The pipeline status fields
// are not touched here. The version bump makes a concurrent pipeline update
// fail its optimistic check instead of overwriting the edit.
func (db *DB) UpdateFinalNote(ctx context.Context, id string, note string, finalized bool) error {
	rows, err := db.pool.Exec(ctx, `UPDATE consultations SET
	final_soap_note = $2,
	finalized = $3,
	updated = $4,
	version = version + 1
	WHERE id = $1`, id, utils.ToSQLStr(note), finalized, time.Now())
	if err != nil {
		return fmt.Errorf("can't update note: %w", err)
	}
	if rows.RowsAffected() != 1 {
		return utils.NewErrNoRecord(id)
	}
	return nil
}

// LoadPatient loads patient from DB, read-only for the pipeline
func (db *DB) LoadPatient(ctx context.Context, id, ownerID string) (*persistence.Patient, error) {
	var res persistence.Patient
	err := db.pool.QueryRow(ctx, `SELECT id, owner_id, client_name, patient_ident, pet_name, species, created
		FROM patients WHERE id = $1 and owner_id = $2`, id, ownerID).Scan(&res.ID, &res.OwnerID,
		&res.ClientName, &res.PatientIdent, &res.PetName, &res.Species, &res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, utils.NewErrNoRecord(id)
		}
		return nil, fmt.Errorf("can't load patient: %w", err)
	}
	return &res, nil
}

// LockEmailTable marks email sending started for ID/msgType pair
func (db *DB) LockEmailTable(ctx context.Context, id, msgType string) error {
	rows, err := db.pool.Exec(ctx, `INSERT INTO email_lock(id, msg_type, status) VALUES($1, $2, 1)
	ON CONFLICT (id, msg_type) DO UPDATE SET status = 1 WHERE email_lock.status = 0`, id, msgType)
	if err != nil {
		return fmt.Errorf("can't lock email table: %w", err)
	}
	if rows.RowsAffected() != 1 {
		return fmt.Errorf("can't lock email table for %s/%s", id, msgType)
	}
	return nil
}

// UnLockEmailTable sets the final email sending state
func (db *DB) UnLockEmailTable(ctx context.Context, id, msgType string, value *int) error {
	_, err := db.pool.Exec(ctx, `UPDATE email_lock SET status = $3 WHERE id = $1 and msg_type = $2`,
		id, msgType, *value)
	if err != nil {
		return fmt.Errorf("can't unlock email table: %w", err)
	}
	return nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'gue_jobs')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}
