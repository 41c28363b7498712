// Package client talks to the blog API over HTTP. It keeps the session
// cookie in a jar so a signed-in client can read protected data.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/f1blog/internal/apipaths"
	"github.com/f1blog/internal/constants"
	"github.com/f1blog/internal/domain"
	"github.com/f1blog/internal/login"
	"github.com/f1blog/internal/session"
)

// Client handles communication with the blog API
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	circuitBreaker *CircuitBreaker
}

// New creates a client for the API at baseURL
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if timeout <= 0 {
		timeout = constants.HTTPClientTimeout
	}

	return &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
			// Surface redirects to the caller instead of following them
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		circuitBreaker: NewCircuitBreaker(constants.CircuitBreakerFailureThreshold, constants.CircuitBreakerCooldown),
	}, nil
}

// Cookies returns the cookies held for the API
func (c *Client) Cookies() []*http.Cookie {
	return c.httpClient.Jar.Cookies(c.baseURL)
}

// SetCookies restores previously saved cookies
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.httpClient.Jar.SetCookies(c.baseURL, cookies)
}

// StatusError is returned for unexpected response codes
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api returned status %d: %s", e.Code, e.Body)
}

type loginRequest struct {
	User   string `json:"user"`
	Passwd string `json:"passwd"`
}

// SignIn verifies cred with the local provider. Only the session cookie is
// kept; no navigation happens. A 403 is a rejected credential.
func (c *Client) SignIn(ctx context.Context, cred login.Credential) (login.Result, error) {
	body, err := json.Marshal(loginRequest{User: cred.Email, Passwd: string(cred.Secret)})
	if err != nil {
		return login.Result{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, apipaths.LocalLogin, bytes.NewReader(body))
	if err != nil {
		return login.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return login.Result{}, fmt.Errorf("failed to sign in: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return login.Result{Rejected: true}, nil
	case resp.StatusCode != http.StatusOK:
		return login.Result{}, statusError(resp)
	}
	return login.Result{}, nil
}

// SignOut ends the session and drops the cookie
func (c *Client) SignOut(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, apipaths.Logout, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp)
	}
	return nil
}

// Session returns the signed-in principal, or nil when signed out
func (c *Client) Session(ctx context.Context) (*session.Session, error) {
	var s session.Session
	status, err := c.getJSON(ctx, apipaths.Session, &s, http.StatusUnauthorized)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, nil
	}
	return &s, nil
}

// ListPosts fetches the most recent posts
func (c *Client) ListPosts(ctx context.Context) ([]domain.Post, error) {
	var posts []domain.Post
	if _, err := c.getJSON(ctx, apipaths.Posts, &posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	return posts, nil
}

// GetPost fetches a single post
func (c *Client) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	var post domain.Post
	status, err := c.getJSON(ctx, apipaths.PostByID(url.PathEscape(id)), &post, http.StatusNotFound)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, domain.WrapPostNotFound(id, nil)
	}
	return &post, nil
}

// GetSiteStats fetches the aggregate counts
func (c *Client) GetSiteStats(ctx context.Context) (domain.SiteStats, error) {
	var stats domain.SiteStats
	if _, err := c.getJSON(ctx, apipaths.Stats, &stats); err != nil {
		return domain.SiteStats{}, err
	}
	return stats, nil
}

// getJSON decodes a 200 response into out. Statuses listed in tolerated are
// returned without decoding. Network errors, 5xx and undecodable bodies count
// against the endpoint's circuit; any other reply closes it.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}, tolerated ...int) (int, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	if !c.circuitBreaker.Allow(path) {
		return 0, &CircuitOpenError{Endpoint: path}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.circuitBreaker.RecordFailure(path)
		return 0, fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	for _, code := range tolerated {
		if resp.StatusCode == code {
			c.circuitBreaker.RecordSuccess(path)
			return code, nil
		}
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= http.StatusInternalServerError {
			c.circuitBreaker.RecordFailure(path)
		} else {
			// The endpoint answered; the error is the caller's to handle
			c.circuitBreaker.RecordSuccess(path)
		}
		return resp.StatusCode, statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.circuitBreaker.RecordFailure(path)
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}

	c.circuitBreaker.RecordSuccess(path)
	return resp.StatusCode, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return req, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
