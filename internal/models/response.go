package models

// Response is the envelope used by every JSON endpoint.
type Response[T any] struct {
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ListResponse is the envelope for collection endpoints. Data is always
// present, as [] when empty.
type ListResponse[T any] struct {
	Data    []T    `json:"data"`
	Message string `json:"message,omitempty"`
}

type HelloMessage struct {
	Message string `json:"message"`
}

// AnalyzeRequest is the body of POST /ai/analyze.
type AnalyzeRequest struct {
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// ChatRequest is the body of POST /ai/chat.
type ChatRequest struct {
	Text    string    `json:"text"`
	Context []Message `json:"context,omitempty"`
}

// Completion wraps the text returned by a non-streaming AI call.
type Completion struct {
	Content string `json:"content"`
}
