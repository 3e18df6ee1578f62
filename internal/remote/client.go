// Package remote is a typed client for the clientdesk HTTP API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clientdesk.org/internal/auth"
	"clientdesk.org/internal/records"
)

// ErrRateLimited is returned when the server answers 429.
var ErrRateLimited = errors.New("remote: rate limited")

// Client talks to one clientdesk server. The zero value is not usable; call New.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("remote: unsupported scheme %q", u.Scheme)
	}
	c := &Client{
		baseURL: u.String(),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithToken returns a copy of c that sends token as its bearer credential.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// APIError is a non-2xx answer. It unwraps to the matching auth or records sentinel.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("remote: %d %s: %s (request %s)", e.Status, e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("remote: %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return mapAPIError(e.Code) }

func mapAPIError(code string) error {
	switch code {
	case "UNAUTHENTICATED":
		return auth.ErrUnauthenticated
	case "INVALID_CREDENTIAL":
		return auth.ErrInvalidCredential
	case "FORBIDDEN":
		return auth.ErrForbidden
	case "NOT_FOUND":
		return records.ErrNotFound
	case "CONFLICT":
		return records.ErrConflict
	case "INVALID_ARGUMENT":
		return records.ErrInvalidArgument
	case "RATE_LIMITED":
		return ErrRateLimited
	default:
		return nil
	}
}

type registerBody struct {
	Type        string `json:"type,omitempty"`
	Name        string `json:"name,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type listBody[T any] struct {
	Items []T `json:"items"`
}

// Register creates a company or normal account.
func (c *Client) Register(ctx context.Context, req auth.RegisterRequest) (auth.PublicAccount, error) {
	var out auth.PublicAccount
	err := c.do(ctx, http.MethodPost, "/v1/auth/register", registerBody{
		Type:        string(req.Type),
		Name:        req.Name,
		CompanyName: req.CompanyName,
		Email:       req.Email,
		Password:    req.Password,
	}, &out)
	return out, err
}

// Login exchanges email and password for a credential.
func (c *Client) Login(ctx context.Context, email, password string) (auth.Credential, error) {
	var out auth.Credential
	err := c.do(ctx, http.MethodPost, "/v1/auth/login", map[string]string{"email": email, "password": password}, &out)
	return out, err
}

// Me returns the authenticated account.
func (c *Client) Me(ctx context.Context) (auth.PublicAccount, error) {
	var out auth.PublicAccount
	err := c.do(ctx, http.MethodGet, "/v1/me", nil, &out)
	return out, err
}

func (c *Client) ListClients(ctx context.Context) ([]records.Client, error) {
	var out listBody[records.Client]
	err := c.do(ctx, http.MethodGet, "/v1/clients", nil, &out)
	return out.Items, err
}

func (c *Client) CreateClient(ctx context.Context, in records.NewClient) (records.Client, error) {
	var out records.Client
	err := c.do(ctx, http.MethodPost, "/v1/clients", in, &out)
	return out, err
}

func (c *Client) GetClient(ctx context.Context, id string) (records.Client, error) {
	var out records.Client
	err := c.do(ctx, http.MethodGet, "/v1/clients/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) UpdateClient(ctx context.Context, id string, patch records.ClientPatch) (records.Client, error) {
	var out records.Client
	err := c.do(ctx, http.MethodPatch, "/v1/clients/"+url.PathEscape(id), patch, &out)
	return out, err
}

func (c *Client) DeleteClient(ctx context.Context, id string) (records.Ack, error) {
	var out records.Ack
	err := c.do(ctx, http.MethodDelete, "/v1/clients/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) ListProjects(ctx context.Context) ([]records.Project, error) {
	var out listBody[records.Project]
	err := c.do(ctx, http.MethodGet, "/v1/projects", nil, &out)
	return out.Items, err
}

func (c *Client) CreateProject(ctx context.Context, in records.NewProject) (records.Project, error) {
	var out records.Project
	err := c.do(ctx, http.MethodPost, "/v1/projects", in, &out)
	return out, err
}

func (c *Client) GetProject(ctx context.Context, id string) (records.Project, error) {
	var out records.Project
	err := c.do(ctx, http.MethodGet, "/v1/projects/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) UpdateProject(ctx context.Context, id string, patch records.ProjectPatch) (records.Project, error) {
	var out records.Project
	err := c.do(ctx, http.MethodPatch, "/v1/projects/"+url.PathEscape(id), patch, &out)
	return out, err
}

func (c *Client) SetProjectStatus(ctx context.Context, id, status string) (records.Project, error) {
	var out records.Project
	err := c.do(ctx, http.MethodPut, "/v1/projects/"+url.PathEscape(id)+"/status", map[string]string{"status": status}, &out)
	return out, err
}

func (c *Client) DeleteProject(ctx context.Context, id string) (records.Ack, error) {
	var out records.Ack
	err := c.do(ctx, http.MethodDelete, "/v1/projects/"+url.PathEscape(id), nil, &out)
	return out, err
}

// Ready reports whether /readyz answers 200.
func (c *Client) Ready(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/readyz", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("remote: encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, RequestID: resp.Header.Get("X-Request-ID")}
		var eb struct {
			Error     string `json:"error"`
			Code      string `json:"code"`
			RequestID string `json:"request_id"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb); err == nil {
			apiErr.Code, apiErr.Message = eb.Code, eb.Error
			if eb.RequestID != "" {
				apiErr.RequestID = eb.RequestID
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	return nil
}

// WithTimeout returns a context with a default timeout useful for CLI tools.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(parent, d)
}
