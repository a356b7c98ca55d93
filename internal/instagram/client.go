// Package instagram implements the multi-call publishing protocol against
// the platform's Graph API: media containers are created from remote image
// URLs, polled until the platform finishes processing them, then published.
// Carousels add one child container per image plus a parent container
// referencing the children.
package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/postpilot/postpilot/internal/providers"
)

const (
	defaultBaseURL      = "https://graph.facebook.com/v21.0"
	defaultPollInterval = 2 * time.Second
	defaultPollTimeout  = 90 * time.Second
	defaultChildDelay   = 2 * time.Second

	maxPollInterval = 15 * time.Second

	minCarouselImages = 2
	maxCarouselImages = 10
)

type PublishResult struct {
	PostID  string
	PostURL string
}

type Client struct {
	httpClient   *http.Client
	baseURL      string
	tokens       providers.TokenService
	pollInterval time.Duration
	pollTimeout  time.Duration
	childDelay   time.Duration
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithPollSettings tunes container readiness polling: the initial retry
// interval and the overall deadline.
func WithPollSettings(interval, timeout time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = interval
		c.pollTimeout = timeout
	}
}

// WithChildDelay sets the pause between carousel child container
// creations, respecting the platform's rate limits.
func WithChildDelay(d time.Duration) Option {
	return func(c *Client) { c.childDelay = d }
}

func NewClient(tokens providers.TokenService, opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      defaultBaseURL,
		tokens:       tokens,
		pollInterval: defaultPollInterval,
		pollTimeout:  defaultPollTimeout,
		childDelay:   defaultChildDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PublishSingleImage publishes one remote image with a caption. The
// permalink fetch is best effort: the post counts as published even when
// the permalink cannot be retrieved.
func (c *Client) PublishSingleImage(ctx context.Context, subjectID uint, imageURL, caption string) (*PublishResult, error) {
	creds, err := c.credentials(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("image_url", imageURL)
	form.Set("caption", caption)
	containerID, err := c.createContainer(ctx, creds, form)
	if err != nil {
		return nil, err
	}

	if err := c.waitForContainer(ctx, creds, containerID); err != nil {
		return nil, err
	}

	postID, err := c.publishContainer(ctx, creds, containerID)
	if err != nil {
		return nil, err
	}

	return &PublishResult{PostID: postID, PostURL: c.fetchPermalink(ctx, creds, postID)}, nil
}

// PublishCarousel publishes 2-10 images as a single carousel post. The
// cardinality is validated before any network call. A failure anywhere in
// the sequence aborts it; unpublished containers are left to expire on the
// platform side.
func (c *Client) PublishCarousel(ctx context.Context, subjectID uint, imageURLs []string, caption string) (*PublishResult, error) {
	if len(imageURLs) < minCarouselImages || len(imageURLs) > maxCarouselImages {
		return nil, Errf(CodeInvalidCarouselSize, false,
			"carousel requires between %d and %d images, got %d",
			minCarouselImages, maxCarouselImages, len(imageURLs))
	}

	creds, err := c.credentials(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	childIDs := make([]string, 0, len(imageURLs))
	for i, imageURL := range imageURLs {
		if i > 0 && c.childDelay > 0 {
			select {
			case <-time.After(c.childDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		form := url.Values{}
		form.Set("image_url", imageURL)
		form.Set("is_carousel_item", "true")
		childID, err := c.createContainer(ctx, creds, form)
		if err != nil {
			return nil, err
		}
		childIDs = append(childIDs, childID)
	}

	form := url.Values{}
	form.Set("media_type", "CAROUSEL")
	form.Set("children", strings.Join(childIDs, ","))
	form.Set("caption", caption)
	parentID, err := c.createContainer(ctx, creds, form)
	if err != nil {
		return nil, err
	}

	if err := c.waitForContainer(ctx, creds, parentID); err != nil {
		return nil, err
	}

	postID, err := c.publishContainer(ctx, creds, parentID)
	if err != nil {
		return nil, err
	}

	return &PublishResult{PostID: postID, PostURL: c.fetchPermalink(ctx, creds, postID)}, nil
}

func (c *Client) credentials(ctx context.Context, subjectID uint) (*providers.Credentials, error) {
	creds, err := c.tokens.DecryptedCredentials(ctx, subjectID)
	if err != nil {
		var perr *providers.Error
		if errors.As(err, &perr) && perr.Code == providers.CodeTokenExpired {
			return nil, Errf(CodeTokenExpired, false, "access token expired for subject %d", subjectID)
		}
		return nil, fmt.Errorf("resolve credentials: %w", err)
	}
	if creds == nil {
		return nil, Errf(CodeNotConnected, false, "subject %d has no connected account", subjectID)
	}
	return creds, nil
}

func (c *Client) createContainer(ctx context.Context, creds *providers.Credentials, form url.Values) (string, error) {
	form.Set("access_token", creds.AccessToken)
	var resp struct {
		ID string `json:"id"`
	}
	path := fmt.Sprintf("/%s/media", creds.AccountID)
	if err := c.postForm(ctx, path, form, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", Errf(CodePlatformError, true, "container creation returned no id")
	}
	return resp.ID, nil
}

// waitForContainer polls the container's processing status until the
// platform reports FINISHED, with exponential backoff bounded by the
// configured timeout. Timing out is transient: the job retry path will
// come back for the post.
func (c *Client) waitForContainer(ctx context.Context, creds *providers.Credentials, containerID string) error {
	deadline := time.Now().Add(c.pollTimeout)
	interval := c.pollInterval

	for {
		var resp struct {
			StatusCode string `json:"status_code"`
		}
		query := url.Values{}
		query.Set("fields", "status_code")
		query.Set("access_token", creds.AccessToken)
		if err := c.getJSON(ctx, "/"+containerID, query, &resp); err != nil {
			return err
		}

		switch resp.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR", "EXPIRED":
			return Errf(CodeContainerFailed, false, "container %s processing failed (%s)", containerID, resp.StatusCode)
		}

		if time.Now().Add(interval).After(deadline) {
			return Errf(CodeMediaTimeout, true, "container %s still processing after %v", containerID, c.pollTimeout)
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}

		interval *= 2
		if interval > maxPollInterval {
			interval = maxPollInterval
		}
	}
}

func (c *Client) publishContainer(ctx context.Context, creds *providers.Credentials, containerID string) (string, error) {
	form := url.Values{}
	form.Set("creation_id", containerID)
	form.Set("access_token", creds.AccessToken)

	var resp struct {
		ID string `json:"id"`
	}
	path := fmt.Sprintf("/%s/media_publish", creds.AccountID)
	if err := c.postForm(ctx, path, form, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", Errf(CodePlatformError, true, "publish returned no id")
	}
	return resp.ID, nil
}

// fetchPermalink retrieves the public URL of a published post. Failures
// are logged and swallowed: the permalink is optional metadata.
func (c *Client) fetchPermalink(ctx context.Context, creds *providers.Credentials, postID string) string {
	var resp struct {
		Permalink string `json:"permalink"`
	}
	query := url.Values{}
	query.Set("fields", "permalink")
	query.Set("access_token", creds.AccessToken)
	if err := c.getJSON(ctx, "/"+postID, query, &resp); err != nil {
		log.Printf("[instagram] permalink fetch for post %s failed: %v", postID, err)
		return ""
	}
	return resp.Permalink
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req, dest)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Code: CodePlatformError, Message: "request failed", Transient: true, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Error{Code: CodePlatformError, Message: "read response", Transient: true, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return platformError(resp.StatusCode, body)
	}

	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			return Errf(CodePlatformError, true, "decode response: %v", err)
		}
	}
	return nil
}

// platformError maps an HTTP failure to a protocol error: 429 and 5xx are
// transient, authorization failures mean the token is no longer valid, and
// the remaining 4xx are permanent request errors.
func platformError(status int, body []byte) *Error {
	var payload struct {
		Error struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)
	msg := payload.Error.Message
	if msg == "" {
		msg = fmt.Sprintf("platform returned status %d", status)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return Errf(CodeRateLimited, true, "%s", msg)
	case status >= 500:
		return Errf(CodePlatformError, true, "%s", msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Errf(CodeTokenExpired, false, "%s", msg)
	default:
		return Errf(CodePlatformError, false, "%s", msg)
	}
}
