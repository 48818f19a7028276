// Package client is the Go client for the vibestack HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"vibestack/internal/models"
)

const DefaultBaseURL = "http://localhost:8090"

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (s StaticToken) Token() string { return string(s) }

// APIError is returned for every non-success response.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	// Message is the server's error field, or a fallback when absent.
	Message string
	// Detail is the server's message field, if any.
	Detail string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks to the API.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a client for baseURL. tokens may be nil.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("module", "client"))
	return c
}

func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Error("Unauthorized: Please check your ACCESS_TOKEN", slog.String("path", path))
	}
	return resp, nil
}

// apiError builds an APIError from a non-success response and closes its
// body. fallback is used when the body is not JSON.
func apiError(resp *http.Response, fallback string) *APIError {
	defer resp.Body.Close()
	e := &APIError{
		Method:     resp.Request.Method,
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		e.Message = fallback
		return e
	}
	e.Message = body.Error
	e.Detail = body.Message
	if e.Message == "" {
		e.Message = fmt.Sprintf("HTTP error! status: %d", resp.StatusCode)
	}
	return e
}

func doJSON[T any](ctx context.Context, c *Client, method, path string, in any) (*models.Response[T], error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	resp, err := c.do(ctx, method, path, body, "application/json")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError(resp, "Unknown error")
	}
	defer resp.Body.Close()
	var out models.Response[T]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func Get[T any](ctx context.Context, c *Client, path string) (*models.Response[T], error) {
	return doJSON[T](ctx, c, http.MethodGet, path, nil)
}

func Post[T any](ctx context.Context, c *Client, path string, body any) (*models.Response[T], error) {
	return doJSON[T](ctx, c, http.MethodPost, path, body)
}

func Put[T any](ctx context.Context, c *Client, path string, body any) (*models.Response[T], error) {
	return doJSON[T](ctx, c, http.MethodPut, path, body)
}

func Delete[T any](ctx context.Context, c *Client, path string) (*models.Response[T], error) {
	return doJSON[T](ctx, c, http.MethodDelete, path, nil)
}

// Health returns the server's health message.
func (c *Client) Health(ctx context.Context) (string, error) {
	resp, err := Get[any](ctx, c, "/health")
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Client) Hello(ctx context.Context) (models.HelloMessage, error) {
	resp, err := Get[models.HelloMessage](ctx, c, "/hello")
	if err != nil {
		return models.HelloMessage{}, err
	}
	return resp.Data, nil
}

// Analyze runs a non-streaming analysis of text.
func (c *Client) Analyze(ctx context.Context, text, imageURL string) (string, error) {
	resp, err := Post[models.Completion](ctx, c, "/ai/analyze", models.AnalyzeRequest{Text: text, ImageURL: imageURL})
	if err != nil {
		return "", err
	}
	return resp.Data.Content, nil
}

// Chat sends text with the prior conversation and returns the reply.
func (c *Client) Chat(ctx context.Context, text string, history []models.Message) (string, error) {
	if history == nil {
		history = []models.Message{}
	}
	resp, err := Post[models.Completion](ctx, c, "/ai/chat", models.ChatRequest{Text: text, Context: history})
	if err != nil {
		return "", err
	}
	return resp.Data.Content, nil
}

func (c *Client) ListItems(ctx context.Context) ([]models.Item, error) {
	resp, err := Get[[]models.Item](ctx, c, "/items")
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) GetItem(ctx context.Context, id string) (*models.Item, error) {
	resp, err := Get[models.Item](ctx, c, "/items/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) CreateItem(ctx context.Context, in models.ItemInput) (*models.Item, error) {
	resp, err := Post[models.Item](ctx, c, "/items", in)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) UpdateItem(ctx context.Context, id string, in models.ItemInput) error {
	_, err := Put[any](ctx, c, "/items/"+url.PathEscape(id), in)
	return err
}

func (c *Client) DeleteItem(ctx context.Context, id string) error {
	_, err := Delete[any](ctx, c, "/items/"+url.PathEscape(id))
	return err
}

// Upload sends r as the multipart field "file".
func (c *Client) Upload(ctx context.Context, filename, contentType string, r io.Reader) (*models.Upload, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("copy upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/upload", &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError(resp, "Unknown error")
	}
	defer resp.Body.Close()
	var out models.Response[models.Upload]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out.Data, nil
}

// Object is a downloaded upload. Callers must close Body.
type Object struct {
	ContentType string
	ETag        string
	Body        io.ReadCloser
}

func (c *Client) Download(ctx context.Context, key string) (*Object, error) {
	resp, err := c.do(ctx, http.MethodGet, "/upload/"+url.PathEscape(key), nil, "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError(resp, "Unknown error")
	}
	return &Object{
		ContentType: resp.Header.Get("Content-Type"),
		ETag:        resp.Header.Get("ETag"),
		Body:        resp.Body,
	}, nil
}
