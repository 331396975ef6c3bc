package models

import (
	"encoding/json"
	"time"
)

// Status is the completion state of a QueryResult.
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusIncomplete Status = "incomplete"
	StatusFailed     Status = "failed"
)

// QueryResult is the normalized outcome of a successful query.
type QueryResult struct {
	Text           string     `json:"text"`
	Citations      []Citation `json:"citations"`
	ContinuationID string     `json:"response_id,omitempty"`
	Status         Status     `json:"status"`
	Usage          *Usage     `json:"usage,omitempty"`
	Model          string     `json:"model,omitempty"`
}

// Citation represents a source citation.
type Citation struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Usage is the token accounting reported by the provider.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ProviderResponse is the raw Responses API payload. Fields the provider may
// omit or reshape are pointers or raw messages.
type ProviderResponse struct {
	ID                string             `json:"id"`
	Model             string             `json:"model,omitempty"`
	Status            string             `json:"status,omitempty"`
	Output            []OutputItem       `json:"output,omitempty"`
	OutputText        string             `json:"output_text,omitempty"`
	Citations         []json.RawMessage  `json:"citations,omitempty"`
	Usage             *ProviderUsage     `json:"usage,omitempty"`
	Error             json.RawMessage    `json:"error,omitempty"`
	Code              json.RawMessage    `json:"code,omitempty"`
	IncompleteDetails *IncompleteDetails `json:"incomplete_details,omitempty"`
}

// OutputItem is an entry of the response output array.
type OutputItem struct {
	Type    string         `json:"type"`
	ID      string         `json:"id,omitempty"`
	Status  string         `json:"status,omitempty"`
	Role    string         `json:"role,omitempty"`
	Content []ContentBlock `json:"content,omitempty"`
	Results []SearchResult `json:"results,omitempty"`
}

// ContentBlock is a piece of message content.
type ContentBlock struct {
	Type        string       `json:"type"`
	Text        string       `json:"text,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Annotation links a span of answer text to a source.
type Annotation struct {
	Type       string `json:"type,omitempty"`
	URL        string `json:"url,omitempty"`
	Title      string `json:"title,omitempty"`
	StartIndex int    `json:"start_index,omitempty"`
	EndIndex   int    `json:"end_index,omitempty"`
}

// SearchResult is an item of a web_search_result or x_search_result output.
type SearchResult struct {
	URL    string `json:"url,omitempty"`
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
}

// ProviderUsage is the wire form of Usage.
type ProviderUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens,omitempty"`
}

// IncompleteDetails explains an incomplete response.
type IncompleteDetails struct {
	Reason string `json:"reason,omitempty"`
}

// APIError is the object form of an embedded provider error.
type APIError struct {
	// Code is a string ("invalid_api_key") or an HTTP-like number (401).
	Code    json.RawMessage `json:"code,omitempty"`
	Type    string          `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}

// HistoryEntry represents a query in the history file.
type HistoryEntry struct {
	ID         string    `json:"id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Query      string    `json:"query"`
	Mode       string    `json:"mode"`
	Model      string    `json:"model,omitempty"`
	Response   string    `json:"response,omitempty"`
	ResponseID string    `json:"response_id,omitempty"`
	Status     string    `json:"status,omitempty"`
}
