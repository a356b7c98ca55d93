package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// CaptionClient talks to the external AI caption service over HTTP. The
// service itself is an opaque collaborator; this client only shapes the
// request, enforces the retry contract, and maps failures to typed codes.
type CaptionClient struct {
	httpClient *http.Client
	baseURL    string
}

var _ Captioner = (*CaptionClient)(nil)

func NewCaptionClient(baseURL string) *CaptionClient {
	return &CaptionClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    baseURL,
	}
}

func (c *CaptionClient) GenerateCaption(ctx context.Context, req CaptionRequest) (*CaptionResult, error) {
	body, err := json.Marshal(map[string]any{
		"image_url":     req.ImageURL,
		"tone":          req.Tone,
		"max_length":    req.MaxLength,
		"use_emojis":    req.UseEmojis,
		"hashtag_count": req.HashtagCount,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/captions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Code: CodeProviderTimeout, Message: "caption request failed", Transient: true, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &Error{Code: CodeProviderFailure, Message: "read caption response", Transient: true, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, Errf(CodeRateLimited, true, "caption provider rate limited")
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, Errf(CodeContentRejected, false, "caption provider rejected the image")
	case resp.StatusCode >= 500:
		return nil, Errf(CodeProviderFailure, true, "caption provider returned status %d", resp.StatusCode)
	default:
		return nil, Errf(CodeProviderFailure, false, "caption provider returned status %d", resp.StatusCode)
	}

	var result struct {
		Caption  string   `json:"caption"`
		Hashtags []string `json:"hashtags"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, Errf(CodeProviderFailure, true, "decode caption response: %v", err)
	}
	if result.Caption == "" {
		return nil, Errf(CodeProviderFailure, true, "caption provider returned an empty caption")
	}

	return &CaptionResult{Caption: result.Caption, Hashtags: result.Hashtags}, nil
}
