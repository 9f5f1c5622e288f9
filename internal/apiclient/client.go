// Package apiclient talks to the remote content API that owns users, sessions
// and the menu taxonomy.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/harmonia-web/portal/internal/menu"
	"github.com/harmonia-web/portal/internal/rbac"
)

const maxResponseBytes = 4 << 20

// Remote endpoints consumed by the session and navigation core.
const (
	PathLogin         = "/login"
	PathCurrentUser   = "/user"
	PathLogout        = "/logout"
	PathMenuStructure = "/menu-structure"
)

// Options configures a Client.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	RetryMax    int
	PublicPaths []string
	Logger      *slog.Logger
}

// Client is a JSON client for the remote API.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	logger  *slog.Logger
}

// Session is the result of a successful authentication.
type Session struct {
	Token string
	User  *rbac.User
}

// Request describes an arbitrary call made by collaborating views.
type Request struct {
	Method      string
	Path        string
	Body        io.Reader
	ContentType string
}

// New constructs a Client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("apiclient: base url %q must be absolute", opts.BaseURL)
	}
	public := opts.PublicPaths
	if public == nil {
		public = DefaultPublicPaths
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.HTTPClient.Transport = &authTransport{base: rc.HTTPClient.Transport, public: public, logger: opts.Logger}
	rc.Logger = nil
	if opts.Logger != nil {
		rc.Logger = opts.Logger
	}
	// Only transport failures of retryable calls are retried; a status code
	// is an answer.
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return err != nil && retryAllowed(ctx), nil
	}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL: strings.TrimRight(base.String(), "/"),
		http:    rc,
		logger:  opts.Logger,
	}, nil
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("apiclient: marshal login: %w", err)
	}
	data, err := c.call(ctx, http.MethodPost, PathLogin, bytes.NewReader(body), "")
	if err != nil {
		return nil, err
	}

	var payload struct {
		loginPayload
		Data *loginPayload `json:"data"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("apiclient: decode login: %w", err)
	}
	lp := payload.loginPayload
	if payload.Data != nil && lp.token() == "" {
		lp = *payload.Data
	}
	if lp.token() == "" || len(lp.User) == 0 {
		return nil, errors.New("apiclient: login response missing token or user")
	}
	user, err := rbac.DecodeUser(lp.User)
	if err != nil {
		return nil, err
	}
	return &Session{Token: lp.token(), User: user}, nil
}

// CurrentUser fetches the canonical user for the token carried by ctx.
func (c *Client) CurrentUser(ctx context.Context) (*rbac.User, error) {
	data, err := c.call(ctx, http.MethodGet, PathCurrentUser, nil, "")
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
		User json.RawMessage `json:"user"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil {
		switch {
		case len(envelope.Data) > 0 && !bytes.Equal(envelope.Data, []byte("null")):
			data = envelope.Data
		case len(envelope.User) > 0 && !bytes.Equal(envelope.User, []byte("null")):
			data = envelope.User
		}
	}
	return rbac.DecodeUser(data)
}

// Logout invalidates the token carried by ctx on the server.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodPost, PathLogout, nil, "")
	return err
}

// MenuStructure fetches the nested menu taxonomy.
func (c *Client) MenuStructure(ctx context.Context) ([]menu.MenuType, error) {
	data, err := c.call(ctx, http.MethodGet, PathMenuStructure, nil, "")
	if err != nil {
		return nil, err
	}
	return menu.DecodeTaxonomy(data)
}

// Do performs an arbitrary request and returns the raw response body.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	return c.call(ctx, method, req.Path, req.Body, req.ContentType)
}

func (c *Client) call(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	var raw any
	if body != nil {
		raw = body
	}
	if !retryable(method, path) {
		ctx = withoutRetry(ctx)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, raw)
	if err != nil {
		return nil, fmt.Errorf("apiclient: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	switch {
	case isMultipart(contentType):
		// The boundary belongs to the multipart writer; no default may replace it.
		req.Header.Set("Content-Type", contentType)
	case contentType != "":
		req.Header.Set("Content-Type", contentType)
	case body != nil:
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apiclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("apiclient: read %s: %w", path, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, decodeError(resp.StatusCode, data)
	}
	return data, nil
}

type loginPayload struct {
	Token       string          `json:"token"`
	AccessToken string          `json:"access_token"`
	User        json.RawMessage `json:"user"`
}

func (p loginPayload) token() string {
	if p.Token != "" {
		return p.Token
	}
	return p.AccessToken
}

// retryable reports whether a transport failure may be retried. Writes are
// never replayed, and the menu fetch falls back at once instead.
func retryable(method, path string) bool {
	if method != http.MethodGet && method != http.MethodHead {
		return false
	}
	return !strings.HasPrefix(path, PathMenuStructure)
}

func isMultipart(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}
