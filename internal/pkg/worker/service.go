package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/vetscribe/scribe/internal/pkg/audio"
	"github.com/vetscribe/scribe/internal/pkg/messages"
	"github.com/vetscribe/scribe/internal/pkg/notes"
	"github.com/vetscribe/scribe/internal/pkg/persistence"
	"github.com/vetscribe/scribe/internal/pkg/status"
	tapi "github.com/vetscribe/scribe/internal/pkg/transcriber/api"
	"github.com/vetscribe/scribe/internal/pkg/utils"
	"github.com/vetscribe/scribe/internal/pkg/utils/handler"
	"github.com/vgarvardt/gue/v5"
)

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// DB provides persistence functionality
type DB interface {
	LoadConsultation(ctx context.Context, id string) (*persistence.Consultation, error)
	UpdateConsultation(ctx context.Context, c *persistence.Consultation) error
}

// Filer retrieves stored audio
type Filer interface {
	LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error)
}

// Normalizer prepares audio for transcription
type Normalizer interface {
	Normalize(ctx context.Context, input string) (*audio.Result, error)
}

// NoteGen generates the structured clinical note
type NoteGen interface {
	Summarize(ctx context.Context, transcript string) (*notes.Result, error)
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient     *gue.Client
	WorkerCount   int
	MsgSender     MsgSender
	DB            DB
	Filer         Filer
	Normalizer    Normalizer
	TranscriberPr tapi.Provider
	NoteGen       NoteGen
	WorkDir       string
}

// StartWorkerService starts the job queue listener running the consultation pipeline
// returns channel closed when all workers are finished
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Int("workers", data.WorkerCount).Msg("Starting listen for messages")

	wm := gue.WorkMap{
		messages.ProcessType: handler.Create(data, handleProcess,
			handler.DefaultOpts[messages.ProcessMessage]().WithTimeout(time.Minute*30).
				WithFailure(sendFailure(data))),
		messages.FailType: handler.Create(data, handleFailure, handler.DefaultOpts[messages.FailureMessage]()),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.Work),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("scribe-worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}
	res := make(chan struct{}, 1)
	go func() {
		goapp.Log.Info().Msg("Starting workers")
		if err := pool.Run(ctx); err != nil {
			goapp.Log.Error().Err(err).Msg("pool error")
		}
		goapp.Log.Info().Msg("Pool workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

// handleProcess runs the whole pipeline for one consultation:
// fetch audio, normalize, transcribe, generate note, persist the terminal state.
// The record is written exactly once - a repeated job for a terminal record is a no-op.
func handleProcess(ctx context.Context, m *messages.ProcessMessage, data *ServiceData) error {
	goapp.Log.Info().Str("ID", m.ID).Msg("handling consultation")
	c, err := data.DB.LoadConsultation(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("can't load consultation: %w", err)
	}
	if status.IsTerminal(c.Status) {
		goapp.Log.Info().Str("ID", c.ID).Str("status", c.Status).Msg("already terminal - skip")
		return nil
	}
	err = data.MsgSender.SendMessage(ctx, &amessages.InformMessage{
		QueueMessage: *amessages.NewQueueMessageFromM(&m.QueueMessage),
		Type:         amessages.InformTypeStarted, At: time.Now()}, messages.Inform)
	if err != nil {
		return fmt.Errorf("can't send msg: %w", err)
	}

	dir := filepath.Join(data.WorkDir, c.ID)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("can't create work dir: %w", err)
	}
	defer cleanWorkDir(dir)

	input := filepath.Join(dir, filepath.Base(c.AudioPath))
	if err := copyFromFiler(ctx, data.Filer, c.AudioPath, input); err != nil {
		return fmt.Errorf("can't fetch audio: %w", err)
	}

	nRes, err := data.Normalizer.Normalize(ctx, input)
	if err != nil {
		return fmt.Errorf("can't normalize: %w", err)
	}
	goapp.Log.Info().Str("ID", c.ID).Str("strategy", nRes.Strategy).Msg("normalized")

	text, err := transcribe(ctx, data, nRes.Path)
	if err != nil {
		return fmt.Errorf("can't transcribe: %w", err)
	}

	sRes, err := data.NoteGen.Summarize(ctx, text)
	if err != nil {
		return fmt.Errorf("can't summarize: %w", err)
	}
	note := sRes.Render()

	c.Transcription = utils.ToSQLStr(text)
	c.AISoapNote = utils.ToSQLStr(note)
	// final note mirrors the AI note until the user edits it
	c.FinalSoapNote = utils.ToSQLStr(note)
	c.Status = status.Completed.String()
	if err := data.DB.UpdateConsultation(ctx, c); err != nil {
		return fmt.Errorf("can't save result: %w", err)
	}
	goapp.Log.Info().Str("ID", c.ID).Msg("Consultation completed")

	err = data.MsgSender.SendMessage(ctx, &amessages.InformMessage{
		QueueMessage: *amessages.NewQueueMessageFromM(&m.QueueMessage),
		Type:         amessages.InformTypeFinished, At: time.Now()}, messages.Inform)
	if err != nil {
		return fmt.Errorf("can't send msg: %w", err)
	}
	return nil
}

// handleFailure moves the consultation to the terminal failed state.
// Content fields are left untouched - no partial result is ever
// attributed to a failed run.
func handleFailure(ctx context.Context, m *messages.FailureMessage, data *ServiceData) error {
	goapp.Log.Info().Str("ID", m.ID).Msg("handling failure")
	c, err := data.DB.LoadConsultation(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("can't load consultation: %w", err)
	}
	if status.IsTerminal(c.Status) {
		goapp.Log.Info().Str("ID", c.ID).Str("status", c.Status).Msg("already terminal - skip")
		return nil
	}
	c.Status = status.Failed.String()
	c.Error = utils.ToSQLStr(m.Error)
	if err := data.DB.UpdateConsultation(ctx, c); err != nil {
		return fmt.Errorf("can't save status: %w", err)
	}
	goapp.Log.Info().Str("ID", c.ID).Msg("Consultation failed")
	err = data.MsgSender.SendMessage(ctx, &amessages.InformMessage{
		QueueMessage: *amessages.NewQueueMessageFromM(&m.QueueMessage),
		Type:         amessages.InformTypeFailed, At: time.Now()}, messages.Inform)
	if err != nil {
		return fmt.Errorf("can't send msg: %w", err)
	}
	return nil
}

func sendFailure(data *ServiceData) func(context.Context, *messages.ProcessMessage, error) error {
	return func(ctx context.Context, m *messages.ProcessMessage, err error) error {
		return data.MsgSender.SendMessage(ctx, &messages.FailureMessage{
			QueueMessage: amessages.QueueMessage{ID: m.ID}, Error: err.Error()}, messages.Fail)
	}
}

func transcribe(ctx context.Context, data *ServiceData, path string) (string, error) {
	tr, url, err := data.TranscriberPr.Get("")
	if err != nil {
		return "", fmt.Errorf("can't get transcriber: %w", err)
	}
	goapp.Log.Info().Str("srv", url).Msg("transcriber selected")
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("can't open audio: %w", err)
	}
	defer f.Close()
	return tr.Transcribe(ctx, filepath.Base(path), f)
}

func copyFromFiler(ctx context.Context, filer Filer, name, dest string) error {
	r, err := filer.LoadFile(ctx, name)
	if err != nil {
		return fmt.Errorf("can't load file: %w", err)
	}
	defer r.Close()
	f, err := os.OpenFile(dest, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("can't copy file: %w", err)
	}
	return nil
}

func cleanWorkDir(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		goapp.Log.Warn().Err(err).Str("dir", dir).Msg("can't clean work dir")
	}
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.MsgSender == nil {
		return fmt.Errorf("no msg sender")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.Filer == nil {
		return fmt.Errorf("no Filer")
	}
	if data.Normalizer == nil {
		return fmt.Errorf("no Normalizer")
	}
	if data.TranscriberPr == nil {
		return fmt.Errorf("no Transcriber provider")
	}
	if data.NoteGen == nil {
		return fmt.Errorf("no NoteGen")
	}
	if data.WorkDir == "" {
		return fmt.Errorf("no work dir")
	}
	return nil
}
