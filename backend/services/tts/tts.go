// Package tts turns lesson text into spoken audio through an HTTP speech API.
package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
)

// MaxChars bounds how much lesson text is sent per request.
const MaxChars = 5000

var ErrNotConfigured = errors.New("text-to-speech is not configured")

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type Client struct {
	BaseURL string
	APIKey  string
	VoiceID string
	ModelID string
}

var _ Synthesizer = (*Client)(nil)

func NewClient(baseURL, apiKey, voiceID, modelID string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		VoiceID: voiceID,
		ModelID: modelID,
	}
}

type speechRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if c == nil || c.APIKey == "" {
		return nil, ErrNotConfigured
	}
	text = Truncate(text, MaxChars)
	if text == "" {
		return nil, errors.New("nothing to synthesize")
	}

	body, err := json.Marshal(speechRequest{Text: text, ModelID: c.ModelID})
	if err != nil {
		return nil, errors.Wrap(err, "encode speech request")
	}

	req := rest.Request{
		Method:  rest.Post,
		BaseURL: c.BaseURL + "/v1/text-to-speech/" + url.PathEscape(c.VoiceID),
		Headers: map[string]string{
			"xi-api-key":   c.APIKey,
			"Content-Type": "application/json",
			"Accept":       "audio/mpeg",
		},
		Body: body,
	}
	resp, err := rest.SendWithContext(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "speech request")
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("speech api returned %d: %s", resp.StatusCode, Truncate(resp.Body, 200))
	}
	return []byte(resp.Body), nil
}

// Truncate cuts s to at most n runes, preferring the last sentence end.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	cut := string(r[:n])
	if i := strings.LastIndexAny(cut, ".!?"); i > n/2 {
		return cut[:i+1]
	}
	return cut
}
