package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"vibestack/internal/models"
)

const (
	dataPrefix = "data: "
	doneMarker = "[DONE]"
)

// MaxLineSize is the default limit on a single stream line.
const MaxLineSize = 1 << 20

// ErrLineTooLong is returned when a line grows past the decoder's limit
// without a newline.
var ErrLineTooLong = errors.New("stream line too long")

// LineDecoder splits a byte stream into lines across reads. Bytes after
// the last newline are held until the next Feed, so a line or a multi-byte
// character split between reads is decoded whole.
type LineDecoder struct {
	// MaxLine caps the held partial line; zero means MaxLineSize.
	MaxLine int

	pending []byte
}

// Feed appends p and returns the lines it completed, without the line
// terminator. It fails with ErrLineTooLong once the unterminated remainder
// exceeds the limit; the remainder is dropped.
func (d *LineDecoder) Feed(p []byte) ([]string, error) {
	d.pending = append(d.pending, p...)
	var lines []string
	for {
		i := bytes.IndexByte(d.pending, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, strings.TrimSuffix(string(d.pending[:i]), "\r"))
		d.pending = d.pending[i+1:]
	}
	if len(d.pending) == 0 {
		d.pending = nil
	}
	limit := d.MaxLine
	if limit <= 0 {
		limit = MaxLineSize
	}
	if len(d.pending) > limit {
		d.pending = nil
		return lines, ErrLineTooLong
	}
	return lines, nil
}

// Flush returns whatever is left as a final line.
func (d *LineDecoder) Flush() []string {
	if len(d.pending) == 0 {
		return nil
	}
	line := strings.TrimSuffix(string(d.pending), "\r")
	d.pending = nil
	return []string{line}
}

// ConsumeStream reads OpenAI-format events from r and accumulates the
// content deltas, calling onChunk with each delta and the text so far.
// The [DONE] sentinel ends processing of the lines from the current read
// only; reading continues until EOF. On a read error the text accumulated
// so far is returned with the error.
func ConsumeStream(r io.Reader, onChunk func(delta, full string)) (string, error) {
	var (
		dec  LineDecoder
		full strings.Builder
		buf  = make([]byte, 4<<10)
	)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			lines, ferr := dec.Feed(buf[:n])
			consumeLines(lines, &full, onChunk)
			if ferr != nil {
				return full.String(), fmt.Errorf("read stream: %w", ferr)
			}
		}
		if errors.Is(err, io.EOF) {
			consumeLines(dec.Flush(), &full, onChunk)
			return full.String(), nil
		}
		if err != nil {
			return full.String(), fmt.Errorf("read stream: %w", err)
		}
	}
}

func consumeLines(lines []string, full *strings.Builder, onChunk func(delta, full string)) {
	for _, line := range lines {
		data, ok := strings.CutPrefix(line, dataPrefix)
		if !ok {
			continue
		}
		if data == doneMarker {
			break
		}
		var chunk goopenai.ChatCompletionStreamResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onChunk != nil {
			onChunk(delta, full.String())
		}
	}
}

// AnalyzeStream runs a streaming analysis of text. onChunk may be nil.
func (c *Client) AnalyzeStream(ctx context.Context, text, imageURL string, onChunk func(delta, full string)) (string, error) {
	payload, err := json.Marshal(models.AnalyzeRequest{Text: text, ImageURL: imageURL})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/ai/analyze?stream=1", bytes.NewReader(payload), "application/json")
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apiError(resp, "AI analysis failed")
	}
	defer resp.Body.Close()
	return ConsumeStream(resp.Body, onChunk)
}
