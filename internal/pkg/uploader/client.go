package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
	"github.com/vetscribe/scribe/internal/pkg/api"
	"github.com/vetscribe/scribe/internal/pkg/recorder"
	"github.com/vetscribe/scribe/internal/pkg/utils"
)

// Client posts finished recordings to the consultation gateway
type Client struct {
	httpclient *http.Client
	url        string
	timeout    time.Duration
	backoff    func() backoff.BackOff
}

// NewClient creates a gateway uploader client
func NewClient(url string) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("no url")
	}
	res := Client{url: url, timeout: time.Minute * 5,
		httpclient: &http.Client{}, backoff: newSimpleBackoff}
	return &res, nil
}

// Upload sends the recording and returns the created consultation record.
// Transient gateway failures are retried with backoff.
func (c *Client) Upload(ctx context.Context, rec *recorder.Capture, ownerID, email string) (*api.Consultation, error) {
	if rec == nil || len(rec.Data) == 0 {
		return nil, fmt.Errorf("no recording data")
	}
	body, contentType, err := makeBody(rec, ownerID, email)
	if err != nil {
		return nil, err
	}

	return goapp.InvokeWithBackoff(ctx, func() (*api.Consultation, bool, error) {
		req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return nil, false, err
		}
		req.Header.Set("Content-Type", contentType)

		ctx, cancelF := context.WithTimeout(ctx, c.timeout)
		defer cancelF()
		req = req.WithContext(ctx)
		goapp.Log.Info().Str("url", req.URL.String()).Str("method", req.Method).Msg("call")
		resp, err := c.httpclient.Do(req)
		if err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
			_ = resp.Body.Close()
		}()
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
			return nil, goapp.IsRetryableCode(resp.StatusCode), err
		}
		br, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't read body: %w", err)
		}
		var respData api.Consultation
		if err := json.Unmarshal(br, &respData); err != nil {
			return nil, true, fmt.Errorf("can't decode response: %w", err)
		}
		if respData.ID == "" {
			return nil, false, fmt.Errorf("can't get ID from response")
		}
		return &respData, false, nil
	}, c.backoff())
}

func makeBody(rec *recorder.Capture, ownerID, email string) ([]byte, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(api.PrmFile, "recording"+utils.ExtForMime(rec.MimeType))
	if err != nil {
		return nil, "", fmt.Errorf("can't add file to request: %w", err)
	}
	if _, err := part.Write(rec.Data); err != nil {
		return nil, "", fmt.Errorf("can't add file content to request: %w", err)
	}
	params := map[string]string{api.PrmOwner: ownerID,
		api.PrmDuration: strconv.Itoa(int(rec.DurationSec))}
	if rec.Patient.ID != "" {
		params[api.PrmPatient] = rec.Patient.ID
	} else {
		params[api.PrmClientName] = rec.Patient.ClientName
	}
	if email != "" {
		params[api.PrmEmail] = email
	}
	for v, k := range params {
		if err := writer.WriteField(v, k); err != nil {
			return nil, "", fmt.Errorf("can't add param: %w", err)
		}
	}
	writer.Close()
	return body.Bytes(), writer.FormDataContentType(), nil
}

func newSimpleBackoff() backoff.BackOff {
	res := backoff.NewExponentialBackOff()
	return backoff.WithMaxRetries(res, 3)
}
