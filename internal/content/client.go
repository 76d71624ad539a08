// Package content talks to the portfolio content API: typed reads of the profile and blog records,
// and the contact-form submission.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aniketverma/jarvis-portfolio/internal/models"
	"github.com/hashicorp/go-retryablehttp"
)

// ErrStatus is wrapped by every error caused by a non-2xx response.
var ErrStatus = errors.New("unexpected status")

// StatusError carries the status code and the server's error message of a failed call.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %d", ErrStatus, e.Code)
	}
	return fmt.Sprintf("%s: %d: %s", ErrStatus, e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// Client is a content API client. GET calls are retried on connection errors and 5xx responses.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	logger  *slog.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithRetryMax sets how many times a failed GET is retried.
func WithRetryMax(n int) ClientOption {
	return func(c *Client) {
		c.http.RetryMax = n
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http.HTTPClient = hc
	}
}

// WithClientLogger sets the logger retry attempts are reported to.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger.With(slog.String("module", "content"))
		c.http.Logger = c.logger
	}
}

// NewClient creates a client for the API rooted at baseURL, e.g. http://127.0.0.1:8000/api.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.Logger = nil
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    rc,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *retryablehttp.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(body, &apiErr) != nil {
			apiErr.Error = strings.TrimSpace(string(body))
		}
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// PersonalData returns the profile, or nil when the backend has none.
func (c *Client) PersonalData(ctx context.Context) (*models.PersonalData, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/personal-data/", nil, &raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(raw)) == "{}" {
		return nil, nil
	}
	var pd models.PersonalData
	if err := json.Unmarshal(raw, &pd); err != nil {
		return nil, fmt.Errorf("failed to decode personal data: %w", err)
	}
	return &pd, nil
}

// Skills returns every skill category.
func (c *Client) Skills(ctx context.Context) ([]models.SkillCategory, error) {
	var res []models.SkillCategory
	return res, c.get(ctx, "/skills/", nil, &res)
}

// Experience returns the work history.
func (c *Client) Experience(ctx context.Context) ([]models.Experience, error) {
	var res []models.Experience
	return res, c.get(ctx, "/experience/", nil, &res)
}

// Projects returns every project.
func (c *Client) Projects(ctx context.Context) ([]models.Project, error) {
	var res []models.Project
	return res, c.get(ctx, "/projects/", nil, &res)
}

// Achievements returns every achievement.
func (c *Client) Achievements(ctx context.Context) ([]models.Achievement, error) {
	var res []models.Achievement
	return res, c.get(ctx, "/achievements/", nil, &res)
}

// BlogPosts lists published posts. Empty category or "All" and empty search disable the filters.
func (c *Client) BlogPosts(ctx context.Context, category, search string) ([]models.BlogPost, error) {
	q := url.Values{}
	if category != "" && category != "All" {
		q.Set("category", category)
	}
	if search != "" {
		q.Set("search", search)
	}
	var res []models.BlogPost
	return res, c.get(ctx, "/blog/posts/", q, &res)
}

// BlogPost returns one post with its body.
func (c *Client) BlogPost(ctx context.Context, slug string) (models.BlogPost, error) {
	var res models.BlogPost
	return res, c.get(ctx, "/blog/posts/"+url.PathEscape(slug)+"/", nil, &res)
}

// BlogCategories returns the distinct post categories with counts.
func (c *Client) BlogCategories(ctx context.Context) ([]models.BlogCategory, error) {
	var res []models.BlogCategory
	return res, c.get(ctx, "/blog/categories/", nil, &res)
}

// SubmitServiceQuery posts a contact-form submission once; it is never retried.
func (c *Client) SubmitServiceQuery(ctx context.Context, q models.ServiceQuery) (models.ServiceQuery, error) {
	body, err := json.Marshal(struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Subject string `json:"subject"`
		Message string `json:"message"`
	}{q.Name, q.Email, q.Subject, q.Message})
	if err != nil {
		return models.ServiceQuery{}, fmt.Errorf("failed to marshal service query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/service-query/", nil), bytes.NewReader(body))
	if err != nil {
		return models.ServiceQuery{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Submissions are sent exactly once.
	resp, err := c.http.HTTPClient.Do(req)
	if err != nil {
		return models.ServiceQuery{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&apiErr)
		return models.ServiceQuery{}, &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
	}

	var res models.ServiceQuery
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return models.ServiceQuery{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return res, nil
}
