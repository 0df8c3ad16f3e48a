package persistence

import (
	"database/sql"
	"time"
)

type (

	// Consultation table
	Consultation struct {
		ID           string
		OwnerID      string
		PatientID    sql.NullString
		ClientName   string
		PatientIdent string
		PetName      string
		Email        sql.NullString

		FileName    string
		AudioPath   string
		DurationSec int32

		Transcription sql.NullString
		AISoapNote    sql.NullString
		FinalSoapNote sql.NullString
		Finalized     bool

		Status string
		Error  sql.NullString

		RecordedAt time.Time
		Created    time.Time
		Updated    time.Time
		Version    int32
	}

	// Patient table, read-only for the pipeline
	Patient struct {
		ID           string
		OwnerID      string
		ClientName   string
		PatientIdent string
		PetName      string
		Species      sql.NullString
		Created      time.Time
	}
)
