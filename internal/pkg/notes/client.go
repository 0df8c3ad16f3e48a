package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

const prompt = `You are a veterinary scribe. Extract a SOAP note from the consultation transcript.
Return a single JSON object with the keys "subjective", "objective", "assessment", "plan".
Use the exact value "Not mentioned" for any section the transcript does not cover.
Ignore small talk and anything not clinically relevant.`

// Client communicates with the structured note generation service
// using a chat-completions style API
type Client struct {
	httpclient *http.Client
	url        string
	model      string
	timeout    time.Duration
}

// NewClient creates a note generation client
func NewClient(url, model string) (*Client, error) {
	res := Client{}
	if url == "" {
		return nil, fmt.Errorf("no url")
	}
	if model == "" {
		return nil, fmt.Errorf("no model")
	}
	res.url = url
	res.model = model
	res.timeout = time.Minute * 2
	res.httpclient = &http.Client{}
	return &res, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Summarize submits the transcript and returns the tagged parse result.
// Transport or HTTP failures are errors, a malformed reply body is not -
// it degrades to the all-placeholder note.
func (sp *Client) Summarize(ctx context.Context, transcript string) (*Result, error) {
	reqData := chatRequest{Model: sp.model, Temperature: 0,
		Messages: []chatMessage{
			{Role: "system", Content: prompt},
			{Role: "user", Content: transcript},
		}}
	body, err := json.Marshal(reqData)
	if err != nil {
		return nil, fmt.Errorf("can't marshal request: %w", err)
	}

	ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
	defer cancelF()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sp.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	goapp.Log.Info().Str("url", req.URL.String()).Str("method", req.Method).Msg("call")
	resp, err := sp.httpclient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("can't call: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return nil, fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
	}
	br, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("can't read body: %w", err)
	}
	var respData chatResponse
	if err := json.Unmarshal(br, &respData); err != nil || len(respData.Choices) == 0 {
		goapp.Log.Warn().Msg("malformed note service response, using placeholders")
		return Unparseable(), nil
	}
	return Parse(respData.Choices[0].Message.Content), nil
}
