//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vetscribe/scribe/internal/pkg/api"
	"github.com/vetscribe/scribe/internal/pkg/test"
)

type config struct {
	uploadURL  string
	mediaURL   string
	dbURL      string
	httpclient *http.Client
}

var cfg config

func TestMain(m *testing.M) {
	cfg.uploadURL = GetEnvOrFail("UPLOAD_URL")
	cfg.mediaURL = GetEnvOrFail("MEDIA_URL")
	cfg.dbURL = GetEnvOrFail("DB_URL")
	cfg.httpclient = &http.Client{Timeout: time.Second * 30}

	tCtx, cf := context.WithTimeout(context.Background(), time.Second*20)
	defer cf()
	WaitForOpenOrFail(tCtx, cfg.dbURL)
	WaitForOpenOrFail(tCtx, cfg.uploadURL)
	WaitForOpenOrFail(tCtx, cfg.mediaURL)
	waitForDB(tCtx, cfg.dbURL)

	//start mock service for external deps - not in this docker compose
	l, ts := startMockService(9876)
	defer ts.Close()
	defer l.Close()

	os.Exit(m.Run())
}

func TestUploadLive(t *testing.T) {
	t.Parallel()
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.uploadURL, "/live", nil)), http.StatusOK)
}

func TestMediaLive(t *testing.T) {
	t.Parallel()
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.mediaURL, "/live", nil)), http.StatusOK)
}

func TestCreate(t *testing.T) {
	t.Parallel()
	req := newCreateRequest(t, "audio.ogg", [][2]string{{api.PrmOwner, "o1"},
		{api.PrmClientName, "J. Smith"}, {api.PrmDuration, "30"}})
	resp := test.CheckCode(t, test.Invoke(t, cfg.httpclient, req), http.StatusCreated)
	res := test.Decode[api.Consultation](t, resp.Body)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "processing", res.Status)
	assert.Equal(t, "J. Smith", res.ClientName)
}

func TestCreate_Fail_NoFile(t *testing.T) {
	t.Parallel()
	req := newCreateRequest(t, "", [][2]string{{api.PrmOwner, "o1"}, {api.PrmClientName, "J. Smith"}})
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, req), http.StatusBadRequest)
}

func TestCreate_Fail_NoOwner(t *testing.T) {
	t.Parallel()
	req := newCreateRequest(t, "audio.ogg", [][2]string{{api.PrmClientName, "J. Smith"}})
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, req), http.StatusBadRequest)
}

func TestGet_None(t *testing.T) {
	t.Parallel()
	resp := test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.uploadURL, "consultations/10", nil))
	test.CheckCode(t, resp, http.StatusNotFound)
}

func TestPipeline(t *testing.T) {
	t.Parallel()
	req := newCreateRequest(t, "audio.ogg", [][2]string{{api.PrmOwner, "o1"},
		{api.PrmClientName, "J. Smith"}, {api.PrmDuration, "30"}})
	resp := test.CheckCode(t, test.Invoke(t, cfg.httpclient, req), http.StatusCreated)
	res := test.Decode[api.Consultation](t, resp.Body)
	require.NotEmpty(t, res.ID)

	cd := waitForDone(t, res.ID, time.Second*30)
	assert.Equal(t, "completed", cd.Status)
	assert.NotEmpty(t, cd.FullTranscription)
	assert.NotEmpty(t, cd.AISoapNote)
	assert.Equal(t, cd.AISoapNote, cd.FinalSoapNote)

	aResp := test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.mediaURL, "audio/"+res.ID, nil))
	test.CheckCode(t, aResp, http.StatusOK)
}

func TestPatchNote(t *testing.T) {
	t.Parallel()
	req := newCreateRequest(t, "audio.ogg", [][2]string{{api.PrmOwner, "o1"},
		{api.PrmClientName, "J. Smith"}, {api.PrmDuration, "30"}})
	resp := test.CheckCode(t, test.Invoke(t, cfg.httpclient, req), http.StatusCreated)
	res := test.Decode[api.Consultation](t, resp.Body)
	require.NotEmpty(t, res.ID)
	waitForDone(t, res.ID, time.Second*30)

	note, finalized := "edited note", true
	pReq := NewRequest(t, http.MethodPatch, cfg.uploadURL, "consultations/"+res.ID+"/note",
		map[string]interface{}{"finalSoapNote": note, "finalized": finalized})
	pResp := test.CheckCode(t, test.Invoke(t, cfg.httpclient, pReq), http.StatusOK)
	upd := test.Decode[api.Consultation](t, pResp.Body)
	assert.Equal(t, note, upd.FinalSoapNote)
	assert.True(t, upd.Finalized)
	assert.Equal(t, "completed", upd.Status)
}

func getConsultation(t *testing.T, id string) api.Consultation {
	t.Helper()
	resp := test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.uploadURL, "consultations/"+id, nil))
	test.CheckCode(t, resp, http.StatusOK)
	return test.Decode[api.Consultation](t, resp.Body)
}

func waitForDone(t *testing.T, id string, dur time.Duration) api.Consultation {
	t.Helper()
	tm := time.After(dur)
	for {
		select {
		case <-tm:
			require.Failf(t, "Fail", "Not completed in %v", dur)
		default:
			cd := getConsultation(t, id)
			if cd.Status != "processing" {
				return cd
			}
			time.Sleep(time.Second)
		}
	}
}

func newCreateRequest(t *testing.T, file string, params [][2]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if file != "" {
		part, _ := writer.CreateFormFile(api.PrmFile, file)
		_, _ = io.Copy(part, strings.NewReader("audio bytes"))
	}
	for _, p := range params {
		writer.WriteField(p[0], p[1])
	}
	writer.Close()
	req, err := http.NewRequest(http.MethodPost, cfg.uploadURL+"/consultations", body)
	require.Nil(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func startMockService(port int) (net.Listener, *httptest.Server) {
	// create a listener with the desired port.
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		log.Fatalf("can't start mock service: %v", err)
	}
	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.String() {
		case "/transcribe":
			io.Copy(w, strings.NewReader(`{"text":"owner reports coughing for two days"}`))
		case "/v1/chat/completions":
			io.Copy(w, strings.NewReader(`{"choices":[{"message":{"content":
				"{\"subjective\":\"Coughing for two days\",\"objective\":\"Temp 38.9\",\"assessment\":\"Suspected kennel cough\",\"plan\":\"Rest, recheck in a week\"}"}}]}`))
		default:
			log.Printf("Unknown request to: " + r.URL.String())
		}
	}))

	ts.Listener.Close()
	ts.Listener = l

	// Start the server.
	ts.Start()
	log.Printf("started mock srv on port: %d", port)
	return l, ts
}
