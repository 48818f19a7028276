package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibestack/internal/appstate"
	"vibestack/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens TokenSource) (*Client, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	return New(srv.URL, tokens, WithHTTPClient(srv.Client()), WithLogger(logger)), &logs
}

func TestRequestsCarryBearerAndJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = io.WriteString(w, `{"data":{"message":"Hello from Vibe API"}}`)
	}, StaticToken("tok"))

	hello, err := c.Hello(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hello from Vibe API", hello.Message)
}

func TestEmptyTokenSendsNoAuthorization(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"message":"ok"}`)
	}, StaticToken(""))

	msg, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", msg)
}

func TestAPIErrorMessages(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
		detail string
	}{
		{"server error field", 400, `{"error":"name is required"}`, "name is required", ""},
		{"error with detail", 500, `{"error":"Failed to call AI service","message":"Poe API error: boom"}`, "Failed to call AI service", "Poe API error: boom"},
		{"json without error", 502, `{"foo":1}`, "HTTP error! status: 502", ""},
		{"not json", 503, `<html>down</html>`, "Unknown error", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}, nil)

			_, err := c.CreateItem(context.Background(), models.ItemInput{})
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.StatusCode)
			assert.Equal(t, tc.want, apiErr.Message)
			assert.Equal(t, tc.detail, apiErr.Detail)
			assert.Equal(t, http.MethodPost, apiErr.Method)
			assert.True(t, strings.HasSuffix(apiErr.URL, "/items"))
		})
	}
}

func TestUnauthorizedLogsAndKeepsToken(t *testing.T) {
	store, err := appstate.Open(appstate.NewMemoryPersister(appstate.Snapshot{}))
	require.NoError(t, err)
	require.NoError(t, store.SetToken("wrong"))

	c, logs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"Unauthorized","message":"a valid access token is required"}`)
	}, store)

	err = c.DeleteItem(context.Background(), "x")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Unauthorized", apiErr.Message)
	assert.Contains(t, logs.String(), "Unauthorized: Please check your ACCESS_TOKEN")
	assert.Equal(t, "wrong", store.Token())
}

func TestChatSendsHistory(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ai/chat", r.URL.Path)
		var req models.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "next", req.Text)
		require.Len(t, req.Context, 1)
		assert.Equal(t, models.RoleAssistant, req.Context[0].Role)
		_, _ = io.WriteString(w, `{"data":{"content":"reply"}}`)
	}, nil)

	out, err := c.Chat(context.Background(), "next", []models.Message{{Role: models.RoleAssistant, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "reply", out)
}

func TestAnalyzeStream(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("stream"))
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, part := range []string{event("foo"), event("bar"), "data: [DONE]\n\n"} {
			_, _ = io.WriteString(w, part)
			flusher.Flush()
		}
	}, StaticToken("t"))

	var fulls []string
	out, err := c.AnalyzeStream(context.Background(), "x", "", func(_, full string) { fulls = append(fulls, full) })
	require.NoError(t, err)
	assert.Equal(t, "foobar", out)
	assert.Equal(t, "foobar", fulls[len(fulls)-1])
}

func TestAnalyzeStreamErrorFallback(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream exploded")
	}, nil)

	out, err := c.AnalyzeStream(context.Background(), "x", "", nil)
	assert.Empty(t, out)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "AI analysis failed", apiErr.Message)
}

func TestItemsAndUpload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /items", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[{"id":"1","name":"a","imageUrl":"/api/upload/k.png"}]}`)
	})
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		raw, _ := io.ReadAll(file)
		assert.Equal(t, "pic.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		_ = json.NewEncoder(w).Encode(models.Response[models.Upload]{Data: models.Upload{
			URL: "/api/upload/k.png", Key: "k.png", Size: int64(len(raw)), Type: "image/png",
		}})
	})
	mux.HandleFunc("GET /upload/{key}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("ETag", `"abc"`)
		_, _ = io.WriteString(w, "png-bytes")
	})
	c, _ := newTestClient(t, mux.ServeHTTP, nil)
	ctx := context.Background()

	list, err := c.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].ImageURL)
	assert.Equal(t, "/api/upload/k.png", *list[0].ImageURL)

	up, err := c.Upload(ctx, "pic.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "k.png", up.Key)
	assert.Equal(t, int64(9), up.Size)

	obj, err := c.Download(ctx, up.Key)
	require.NoError(t, err)
	defer obj.Body.Close()
	raw, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(raw))
	assert.Equal(t, `"abc"`, obj.ETag)
	assert.Equal(t, "image/png", obj.ContentType)
}
