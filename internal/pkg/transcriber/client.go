package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	tapi "github.com/vetscribe/scribe/internal/pkg/transcriber/api"
)

// Client communicates with the speech-to-text service.
// Calls are single attempt - the pipeline does not retry, a failed
// transcription fails the whole consultation run.
type Client struct {
	httpclient *http.Client
	url        string
	timeout    time.Duration
}

// NewClient creates a transcriber client
func NewClient(url string) (*Client, error) {
	res := Client{}
	if url == "" {
		return nil, fmt.Errorf("no url")
	}
	res.url = url
	res.timeout = time.Minute * 10
	res.httpclient = &http.Client{Transport: newTransport()}
	return &res, nil
}

type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe submits the audio file and returns plain transcript text
func (sp *Client) Transcribe(ctx context.Context, name string, r io.Reader) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("can't add file to request: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("can't add file content to request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("can't close form: %w", err)
	}

	ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
	defer cancelF()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sp.url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	goapp.Log.Info().Str("url", req.URL.String()).Str("method", req.Method).Msg("call")
	resp, err := sp.httpclient.Do(req)
	if err != nil {
		return "", fmt.Errorf("can't call: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return "", fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
	}
	var respData transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", fmt.Errorf("can't decode response: %w", err)
	}
	if respData.Text == "" {
		return "", fmt.Errorf("empty transcription")
	}
	return respData.Text, nil
}

// StaticProvider always returns the one configured transcriber
type StaticProvider struct {
	real tapi.Transcriber
	url  string
}

// NewStaticProvider creates the provider
func NewStaticProvider(real tapi.Transcriber, url string) (*StaticProvider, error) {
	if real == nil {
		return nil, fmt.Errorf("no transcriber")
	}
	return &StaticProvider{real: real, url: url}, nil
}

// Get implements api.Provider
func (p *StaticProvider) Get(current string) (tapi.Transcriber, string, error) {
	return p.real, p.url, nil
}

func newTransport() http.RoundTripper {
	// default roundripper is not well suited for our case
	// it has just 2 idle connections per host, so try to tune a bit
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 100
	res.MaxIdleConns = 50
	res.MaxIdleConnsPerHost = 50
	res.IdleConnTimeout = 90 * time.Second
	return res
}
