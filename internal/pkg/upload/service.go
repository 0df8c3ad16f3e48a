package upload

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/vetscribe/scribe/internal/pkg/api"
	"github.com/vetscribe/scribe/internal/pkg/messages"
	"github.com/vetscribe/scribe/internal/pkg/persistence"
	"github.com/vetscribe/scribe/internal/pkg/status"
	"github.com/vetscribe/scribe/internal/pkg/utils"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// adHocPlaceholder fills patient display fields when no registered patient is linked
const adHocPlaceholder = "na"

// FileSaver provides save file functionality
type FileSaver interface {
	SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// DB provides consultation persistence
type DB interface {
	InsertConsultation(ctx context.Context, c *persistence.Consultation) error
	LoadConsultation(ctx context.Context, id string) (*persistence.Consultation, error)
	LoadConsultations(ctx context.Context, ownerID string) ([]*persistence.Consultation, error)
	UpdateFinalNote(ctx context.Context, id string, note string, finalized bool) error
	LoadPatient(ctx context.Context, id, ownerID string) (*persistence.Patient, error)
}

// Data keeps data required for service work
type Data struct {
	Port      int
	Saver     FileSaver
	DB        DB
	MsgSender MsgSender
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Msgf("Starting HTTP SCRIBE upload service at %d", data.Port)
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 180 * time.Second
	e.Server.WriteTimeout = 30 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Saver == nil {
		return errors.New("no file saver")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.MsgSender == nil {
		return fmt.Errorf("no msg sender")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("scribe_upload", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.POST("/consultations", createConsultation(data))
	e.GET("/consultations/:id", getConsultation(data))
	e.GET("/consultations", listConsultations(data))
	e.PATCH("/consultations/:id/note", patchNote(data))
	e.GET("/live", live(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

func createConsultation(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("createConsultation method")()
		ctx := c.Request().Context()

		form, err := c.MultipartForm()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no multipart form data")
		}
		defer cleanFiles(form)
		if err := validateFormParams(form); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		file, fHeader, err := takeFile(form, api.PrmFile)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no file")
		}
		defer file.Close()
		ext := strings.ToLower(filepath.Ext(fHeader.Filename))
		if !utils.SupportAudioExt(ext) {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong file extension: "+ext)
		}
		if fHeader.Size == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "empty file")
		}

		ownerID := c.FormValue(api.PrmOwner)
		if ownerID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no ownerID")
		}
		patientID := c.FormValue(api.PrmPatient)
		clientName := c.FormValue(api.PrmClientName)
		if patientID == "" && clientName == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no patientID nor clientName")
		}
		duration, err := parseDuration(c.FormValue(api.PrmDuration))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		now := time.Now()
		cd := &persistence.Consultation{ID: uuid.New().String(), OwnerID: ownerID,
			ClientName: clientName, DurationSec: duration,
			Email:  utils.ToSQLStr(c.FormValue(api.PrmEmail)),
			Status: status.Processing.String(), RecordedAt: now, Created: now, Updated: now}
		if patientID != "" {
			p, err := data.DB.LoadPatient(ctx, patientID, ownerID)
			if err != nil {
				var errNR *utils.ErrNoRecord
				if errors.As(err, &errNR) {
					return echo.NewHTTPError(http.StatusBadRequest, "unknown patient: "+patientID)
				}
				goapp.Log.Error().Err(err).Send()
				return echo.NewHTTPError(http.StatusInternalServerError)
			}
			cd.PatientID = utils.ToSQLStr(p.ID)
			cd.ClientName = p.ClientName
			cd.PatientIdent = p.PatientIdent
			cd.PetName = p.PetName
		} else {
			// ad-hoc client - no registered patient, keep placeholder display fields
			cd.PatientIdent = adHocPlaceholder
			cd.PetName = adHocPlaceholder
		}

		cd.FileName = utils.MakeRecordingFileName(cd.PatientIdent, cd.PetName, now, ext)
		cd.AudioPath, err = utils.MakeValidateFileName(cd.ID, cd.FileName)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong file name: "+fHeader.Filename)
		}

		// save audio before creating the record - a storage
		// failure must leave no trace in the DB
		if err := data.Saver.SaveFile(ctx, cd.AudioPath, file, fHeader.Size); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if err := data.DB.InsertConsultation(ctx, cd); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		err = data.MsgSender.SendMessage(ctx, &messages.ProcessMessage{
			QueueMessage: amessages.QueueMessage{ID: cd.ID}}, messages.Process)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}

		return c.JSON(http.StatusCreated, api.ConsultationFrom(cd))
	}
}

func getConsultation(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("getConsultation method")()
		ctx := c.Request().Context()
		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no ID")
		}
		cd, err := data.DB.LoadConsultation(ctx, id)
		if err != nil {
			var errNR *utils.ErrNoRecord
			if errors.As(err, &errNR) {
				return echo.NewHTTPError(http.StatusNotFound, "no record: "+id)
			}
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, api.ConsultationFrom(cd))
	}
}

func listConsultations(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("listConsultations method")()
		ctx := c.Request().Context()
		ownerID := c.QueryParam(api.PrmOwner)
		if ownerID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no ownerID")
		}
		cds, err := data.DB.LoadConsultations(ctx, ownerID)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		res := make([]*api.Consultation, 0, len(cds))
		for _, cd := range cds {
			res = append(res, api.ConsultationFrom(cd))
		}
		return c.JSON(http.StatusOK, res)
	}
}

type noteInput struct {
	FinalSoapNote *string `json:"finalSoapNote"`
	Finalized     *bool   `json:"finalized"`
}

func patchNote(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("patchNote method")()
		ctx := c.Request().Context()
		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no ID")
		}
		var input noteInput
		if err := c.Bind(&input); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "can't decode input")
		}
		if input.FinalSoapNote == nil && input.Finalized == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "nothing to update")
		}
		cd, err := data.DB.LoadConsultation(ctx, id)
		if err != nil {
			var errNR *utils.ErrNoRecord
			if errors.As(err, &errNR) {
				return echo.NewHTTPError(http.StatusNotFound, "no record: "+id)
			}
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		note := utils.FromSQLStr(cd.FinalSoapNote)
		if input.FinalSoapNote != nil {
			note = *input.FinalSoapNote
		}
		finalized := cd.Finalized
		if input.Finalized != nil {
			finalized = *input.Finalized
		}
		if err := data.DB.UpdateFinalNote(ctx, id, note, finalized); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		cd.FinalSoapNote = utils.ToSQLStr(note)
		cd.Finalized = finalized
		return c.JSON(http.StatusOK, api.ConsultationFrom(cd))
	}
}

func parseDuration(s string) (int32, error) {
	if s == "" {
		return 0, nil
	}
	res, err := strconv.ParseInt(s, 10, 32)
	if err != nil || res < 0 {
		return 0, fmt.Errorf("wrong duration '%s'", s)
	}
	return int32(res), nil
}

func cleanFiles(f *multipart.Form) {
	if f != nil {
		_ = f.RemoveAll()
	}
}

func validateFormParams(form *multipart.Form) error {
	allowed := map[string]bool{api.PrmOwner: true, api.PrmPatient: true,
		api.PrmClientName: true, api.PrmDuration: true, api.PrmEmail: true}
	for k := range form.Value {
		if !allowed[k] {
			return errors.Errorf("unknown parameter '%s'", k)
		}
	}
	for k := range form.File {
		if k != api.PrmFile {
			return errors.Errorf("unexpected form file parameter '%s'", k)
		}
	}
	return nil
}

func takeFile(form *multipart.Form, paramName string) (multipart.File, *multipart.FileHeader, error) {
	fhs := form.File[paramName]
	if len(fhs) == 0 {
		return nil, nil, http.ErrMissingFile
	}
	file, err := fhs[0].Open()
	return file, fhs[0], err
}
