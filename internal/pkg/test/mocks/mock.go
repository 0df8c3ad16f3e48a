package mocks

import (
	"context"
	"io"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/stretchr/testify/mock"
	"github.com/vetscribe/scribe/internal/pkg/audio"
	"github.com/vetscribe/scribe/internal/pkg/notes"
	"github.com/vetscribe/scribe/internal/pkg/persistence"
	tapi "github.com/vetscribe/scribe/internal/pkg/transcriber/api"
)

// Filer is minio filer mock
type Filer struct{ mock.Mock }

func (m *Filer) SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error {
	args := m.Called(ctx, name, r, fileSize)
	return args.Error(0)
}

func (m *Filer) LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error) {
	args := m.Called(ctx, fileName)
	return To[io.ReadSeekCloser](args.Get(0)), args.Error(1)
}

// DB is postgres DB mock
type DB struct{ mock.Mock }

func (m *DB) InsertConsultation(ctx context.Context, c *persistence.Consultation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *DB) LoadConsultation(ctx context.Context, id string) (*persistence.Consultation, error) {
	args := m.Called(ctx, id)
	return To[*persistence.Consultation](args.Get(0)), args.Error(1)
}

func (m *DB) LoadConsultations(ctx context.Context, ownerID string) ([]*persistence.Consultation, error) {
	args := m.Called(ctx, ownerID)
	return To[[]*persistence.Consultation](args.Get(0)), args.Error(1)
}

func (m *DB) UpdateConsultation(ctx context.Context, c *persistence.Consultation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *DB) UpdateFinalNote(ctx context.Context, id string, note string, finalized bool) error {
	args := m.Called(ctx, id, note, finalized)
	return args.Error(0)
}

func (m *DB) LoadPatient(ctx context.Context, id, ownerID string) (*persistence.Patient, error) {
	args := m.Called(ctx, id, ownerID)
	return To[*persistence.Patient](args.Get(0)), args.Error(1)
}

func (m *DB) LockEmailTable(ctx context.Context, id, msgType string) error {
	args := m.Called(ctx, id, msgType)
	return args.Error(0)
}

func (m *DB) UnLockEmailTable(ctx context.Context, id, msgType string, value *int) error {
	args := m.Called(ctx, id, msgType, value)
	return args.Error(0)
}

// Sender is postgres queue mock
type Sender struct{ mock.Mock }

func (m *Sender) SendMessage(ctx context.Context, msg amessages.Message, dest string) error {
	args := m.Called(ctx, msg, dest)
	return args.Error(0)
}

// Transcriber is speech-to-text client mock
type Transcriber struct{ mock.Mock }

func (m *Transcriber) Transcribe(ctx context.Context, name string, r io.Reader) (string, error) {
	args := m.Called(ctx, name, r)
	return args.String(0), args.Error(1)
}

// TranscriberProvider is transcriber provider mock
type TranscriberProvider struct{ mock.Mock }

func (m *TranscriberProvider) Get(current string) (tapi.Transcriber, string, error) {
	args := m.Called(current)
	return To[tapi.Transcriber](args.Get(0)), args.String(1), args.Error(2)
}

// Normalizer is audio normalizer mock
type Normalizer struct{ mock.Mock }

func (m *Normalizer) Normalize(ctx context.Context, input string) (*audio.Result, error) {
	args := m.Called(ctx, input)
	return To[*audio.Result](args.Get(0)), args.Error(1)
}

// NoteGen is note generation client mock
type NoteGen struct{ mock.Mock }

func (m *NoteGen) Summarize(ctx context.Context, transcript string) (*notes.Result, error) {
	args := m.Called(ctx, transcript)
	return To[*notes.Result](args.Get(0)), args.Error(1)
}

// To casts a recorded mock value, mapping nil to the zero value
func To[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
