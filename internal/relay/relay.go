// Package relay forwards an upstream event stream to an HTTP client.
package relay

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

const bufSize = 4 << 10

// Pipe writes the event-stream headers and copies body to w unchanged,
// flushing after every read so events reach the client as they arrive.
// body is closed before Pipe returns.
func Pipe(w http.ResponseWriter, body io.ReadCloser) error {
	defer body.Close()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	buf := make([]byte, bufSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write to client: %w", werr)
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read upstream: %w", err)
		}
	}
}
