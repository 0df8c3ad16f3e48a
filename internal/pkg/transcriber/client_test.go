package transcriber

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	cl, err := NewClient("http://srv:8080/transcribe")
	assert.Nil(t, err)
	assert.NotNil(t, cl)
}

func TestNewClient_Fail(t *testing.T) {
	_, err := NewClient("")
	assert.NotNil(t, err)
}

func TestTranscribe(t *testing.T) {
	var gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Nil(t, r.ParseMultipartForm(1 << 20))
		_, h, err := r.FormFile("file")
		require.Nil(t, err)
		gotFile = h.Filename
		_, _ = w.Write([]byte(`{"text":"the dog is fine"}`))
	}))
	defer srv.Close()
	cl, err := NewClient(srv.URL)
	require.Nil(t, err)

	res, err := cl.Transcribe(context.Background(), "rec.16k.ogg", strings.NewReader("audio"))

	require.Nil(t, err)
	assert.Equal(t, "the dog is fine", res)
	assert.Equal(t, "rec.16k.ogg", gotFile)
}

func TestTranscribe_FailCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	cl, err := NewClient(srv.URL)
	require.Nil(t, err)

	_, err = cl.Transcribe(context.Background(), "rec.ogg", strings.NewReader("audio"))

	assert.NotNil(t, err)
}

func TestTranscribe_FailEmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":""}`))
	}))
	defer srv.Close()
	cl, err := NewClient(srv.URL)
	require.Nil(t, err)

	_, err = cl.Transcribe(context.Background(), "rec.ogg", strings.NewReader("audio"))

	assert.NotNil(t, err)
}

func TestTranscribe_FailBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`olia`))
	}))
	defer srv.Close()
	cl, err := NewClient(srv.URL)
	require.Nil(t, err)

	_, err = cl.Transcribe(context.Background(), "rec.ogg", strings.NewReader("audio"))

	assert.NotNil(t, err)
}

func TestStaticProvider(t *testing.T) {
	cl, err := NewClient("http://srv:8080/transcribe")
	require.Nil(t, err)
	p, err := NewStaticProvider(cl, "http://srv:8080")
	require.Nil(t, err)

	tr, url, err := p.Get("")

	assert.Nil(t, err)
	assert.Equal(t, cl, tr)
	assert.Equal(t, "http://srv:8080", url)
}

func TestStaticProvider_Fail(t *testing.T) {
	_, err := NewStaticProvider(nil, "")
	assert.NotNil(t, err)
}
