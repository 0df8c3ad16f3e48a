package api

import (
	"time"

	"github.com/vetscribe/scribe/internal/pkg/persistence"
	"github.com/vetscribe/scribe/internal/pkg/utils"
)

const (
	// PrmFile is audio file form param
	PrmFile = "file"
	// PrmOwner is owner ID form param
	PrmOwner = "ownerID"
	// PrmPatient is patient ID form param
	PrmPatient = "patientID"
	// PrmClientName is ad hoc client display name form param
	PrmClientName = "clientName"
	// PrmDuration is recorded duration (seconds) form param
	PrmDuration = "duration"
	// PrmEmail is notification email form param
	PrmEmail = "email"
)

// Consultation is the JSON view of a consultation record,
// the sole integration surface polled by the rest of the application
type Consultation struct {
	ID           string `json:"id"`
	OwnerID      string `json:"ownerID"`
	PatientID    string `json:"patientID,omitempty"`
	ClientName   string `json:"clientName"`
	PatientIdent string `json:"patientIdent"`
	PetName      string `json:"petName"`

	FileName    string `json:"fileName"`
	AudioPath   string `json:"audioPath"`
	DurationSec int32  `json:"durationSec"`

	Status            string `json:"status"`
	FullTranscription string `json:"fullTranscription,omitempty"`
	AISoapNote        string `json:"aiSoapNote,omitempty"`
	FinalSoapNote     string `json:"finalSoapNote,omitempty"`
	Finalized         bool   `json:"finalized"`
	Error             string `json:"error,omitempty"`

	RecordedAt time.Time `json:"recordedAt"`
	Created    time.Time `json:"created"`
	Updated    time.Time `json:"updated"`
}

// ConsultationFrom maps a persistence record to its JSON view
func ConsultationFrom(c *persistence.Consultation) *Consultation {
	if c == nil {
		return nil
	}
	return &Consultation{
		ID:                c.ID,
		OwnerID:           c.OwnerID,
		PatientID:         utils.FromSQLStr(c.PatientID),
		ClientName:        c.ClientName,
		PatientIdent:      c.PatientIdent,
		PetName:           c.PetName,
		FileName:          c.FileName,
		AudioPath:         c.AudioPath,
		DurationSec:       c.DurationSec,
		Status:            c.Status,
		FullTranscription: utils.FromSQLStr(c.Transcription),
		AISoapNote:        utils.FromSQLStr(c.AISoapNote),
		FinalSoapNote:     utils.FromSQLStr(c.FinalSoapNote),
		Finalized:         c.Finalized,
		Error:             utils.FromSQLStr(c.Error),
		RecordedAt:        c.RecordedAt,
		Created:           c.Created,
		Updated:           c.Updated,
	}
}
