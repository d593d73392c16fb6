// Package api is the HTTP client for the blog REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bryan-buckman/blogfront/internal/model"
	"go.uber.org/zap"
)

// DefaultTimeout bounds every backend request.
const DefaultTimeout = 10 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 8 << 20

// Observer is told about every completed backend call. outcome is "ok" or an
// error Kind.
type Observer func(op, outcome string, elapsed time.Duration)

// Client talks to the backend API rooted at baseURL (".../api").
type Client struct {
	baseURL  string
	http     *http.Client
	logger   *zap.Logger
	observer Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithObserver installs a hook for call metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New creates a client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the common backend response shape.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	model.ServerPagination

	raw []byte
}

func (e *envelope) hasData() bool {
	return len(e.Data) > 0 && string(e.Data) != "null"
}

// ListPosts fetches one page of posts.
func (c *Client) ListPosts(ctx context.Context, page, limit int) (*model.ListPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	env, err := c.do(ctx, "list", http.MethodGet, "/posts?"+q.Encode(), nil, "")
	if err != nil {
		return nil, err
	}

	out := &model.ListPage{
		Pagination: env.ServerPagination,
		Message:    env.Message,
		Success:    env.Success,
	}
	if env.hasData() {
		if err := json.Unmarshal(env.Data, &out.Posts); err != nil {
			return nil, &Error{Kind: KindUnknown, Message: "Unexpected response from server.", Err: fmt.Errorf("decode posts: %w", err)}
		}
	}
	return out, nil
}

// GetPost fetches a single post. The backend's message is returned alongside.
func (c *Client) GetPost(ctx context.Context, id string) (*model.Post, string, error) {
	env, err := c.do(ctx, "get", http.MethodGet, "/posts/"+url.PathEscape(id), nil, "")
	if err != nil {
		return nil, "", err
	}
	p, err := decodePost(env)
	return p, env.Message, err
}

// CreatePost submits a new post.
func (c *Client) CreatePost(ctx context.Context, in model.PostInput) (*model.Post, string, error) {
	body, contentType, err := encodeInput(in)
	if err != nil {
		return nil, "", err
	}
	env, err := c.do(ctx, "create", http.MethodPost, "/posts", body, contentType)
	if err != nil {
		return nil, "", err
	}
	p, err := decodePost(env)
	return p, env.Message, err
}

// UpdatePost replaces a post's fields, and its image when one is attached.
func (c *Client) UpdatePost(ctx context.Context, id string, in model.PostInput) (*model.Post, string, error) {
	body, contentType, err := encodeInput(in)
	if err != nil {
		return nil, "", err
	}
	env, err := c.do(ctx, "update", http.MethodPut, "/posts/"+url.PathEscape(id), body, contentType)
	if err != nil {
		return nil, "", err
	}
	p, err := decodePost(env)
	return p, env.Message, err
}

// DeletePost removes a post and returns the backend's message.
func (c *Client) DeletePost(ctx context.Context, id string) (string, error) {
	env, err := c.do(ctx, "delete", http.MethodDelete, "/posts/"+url.PathEscape(id), nil, "")
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// do performs a request and decodes the envelope, normalizing every failure.
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) (env *envelope, err error) {
	start := time.Now()
	defer func() {
		if c.observer == nil {
			return
		}
		outcome := "ok"
		if err != nil {
			outcome = string(KindOf(err))
		}
		c.observer(op, outcome, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Message: "An unexpected error occurred", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.logger.Debug("Making request", zap.String("method", method), zap.String("path", path))

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("Backend unreachable", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, networkError(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := statusError(resp.StatusCode, raw)
		c.logger.Warn("Backend error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message))
		return nil, apiErr
	}

	env = &envelope{raw: raw}
	if len(bytes.TrimSpace(raw)) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(raw, env); err != nil {
		return nil, &Error{Kind: KindUnknown, Message: "Unexpected response from server.", Err: fmt.Errorf("decode response: %w", err)}
	}
	return env, nil
}

// decodePost reads the post from the envelope's data, or from the whole body
// when the backend answered with the bare resource.
func decodePost(env *envelope) (*model.Post, error) {
	src := env.Data
	if !env.hasData() {
		src = env.raw
	}
	if len(bytes.TrimSpace(src)) == 0 {
		return &model.Post{}, nil
	}
	var p model.Post
	if err := json.Unmarshal(src, &p); err != nil {
		return nil, &Error{Kind: KindUnknown, Message: "Unexpected response from server.", Err: fmt.Errorf("decode post: %w", err)}
	}
	return &p, nil
}

// encodeInput builds the request body: multipart when an image is attached,
// JSON otherwise.
func encodeInput(in model.PostInput) (io.Reader, string, error) {
	if in.Image == nil {
		b, err := json.Marshal(map[string]string{
			"title":   in.Title,
			"content": in.Content,
			"author":  in.Author,
		})
		if err != nil {
			return nil, "", fmt.Errorf("encode post: %w", err)
		}
		return bytes.NewReader(b), "application/json", nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range [][2]string{{"title", in.Title}, {"content", in.Content}, {"author", in.Author}} {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f[0], err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, in.Image.Filename))
	ct := in.Image.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(in.Image.Data); err != nil {
		return nil, "", fmt.Errorf("write image part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
