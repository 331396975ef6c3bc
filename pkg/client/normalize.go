package client

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/diogo/grok-ask/pkg/models"
)

// Output item and content types of the Responses API.
const (
	outputMessage         = "message"
	outputWebSearchResult = "web_search_result"
	outputXSearchResult   = "x_search_result"

	contentOutputText = "output_text"
	contentText       = "text"
)

// ParseResponse normalizes a raw provider payload into a QueryResult.
func ParseResponse(raw []byte) (*models.QueryResult, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, invalidResponse("response is not a JSON object")
	}

	var resp models.ProviderResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, ClassifyDecodeError(err)
	}

	if code, msg, ok := embeddedError(resp); ok {
		return nil, ClassifyAPIError(code, msg)
	}

	result := &models.QueryResult{
		Text:           extractText(resp),
		Citations:      extractCitations(resp),
		ContinuationID: resp.ID,
		Model:          resp.Model,
	}

	if result.Text == "" && len(result.Citations) == 0 && result.ContinuationID == "" {
		return nil, invalidResponse("response has no text, citations or id")
	}

	truncated := resp.IncompleteDetails != nil && resp.IncompleteDetails.Reason != ""
	result.Status = normalizeStatus(resp.Status, result.Text != "", truncated)

	if resp.Usage != nil {
		result.Usage = &models.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		}
	}

	return result, nil
}

// extractText returns the first text-bearing content block.
func extractText(resp models.ProviderResponse) string {
	for _, item := range resp.Output {
		if item.Type != outputMessage {
			continue
		}
		for _, c := range item.Content {
			if (c.Type == contentOutputText || c.Type == contentText) && c.Text != "" {
				return c.Text
			}
		}
	}
	return resp.OutputText
}

// extractCitations collects sources in the order they appear, deduplicated by
// URL. Entries without a URL are dropped.
func extractCitations(resp models.ProviderResponse) []models.Citation {
	citations := make([]models.Citation, 0)
	seen := make(map[string]bool)

	add := func(url, title string) {
		url = strings.TrimSpace(url)
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		citations = append(citations, models.Citation{
			Index: len(citations) + 1,
			URL:   url,
			Title: strings.TrimSpace(title),
		})
	}

	for _, item := range resp.Output {
		switch item.Type {
		case outputMessage:
			for _, c := range item.Content {
				for _, ann := range c.Annotations {
					add(ann.URL, ann.Title)
				}
			}
		case outputWebSearchResult:
			for _, r := range item.Results {
				add(r.URL, r.Title)
			}
		case outputXSearchResult:
			for _, r := range item.Results {
				title := r.Title
				if title == "" && r.Author != "" {
					title = "@" + strings.TrimPrefix(r.Author, "@")
				}
				add(r.URL, title)
			}
		}
	}

	// Top-level citations are either plain URLs or {url,title} objects.
	for _, rawCite := range resp.Citations {
		var url string
		if err := json.Unmarshal(rawCite, &url); err == nil {
			add(url, "")
			continue
		}
		var obj models.SearchResult
		if err := json.Unmarshal(rawCite, &obj); err == nil {
			add(obj.URL, obj.Title)
		}
	}

	return citations
}

func normalizeStatus(status string, hasText, truncated bool) models.Status {
	var s models.Status
	switch strings.ToLower(status) {
	case "completed":
		s = models.StatusCompleted
	case "incomplete", "in_progress", "queued":
		s = models.StatusIncomplete
	case "failed", "cancelled", "canceled":
		return models.StatusFailed
	default:
		s = models.StatusCompleted
	}
	if !hasText || truncated {
		return models.StatusIncomplete
	}
	return s
}

// embeddedError reports a provider error carried in a response body.
func embeddedError(resp models.ProviderResponse) (code, msg string, ok bool) {
	return parseErrorFields(resp.Error, resp.Code)
}

// decodeAPIError extracts an embedded error from an arbitrary body.
func decodeAPIError(body []byte) (code, msg string, ok bool) {
	var envelope struct {
		Error json.RawMessage `json:"error"`
		Code  json.RawMessage `json:"code"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", "", false
	}
	return parseErrorFields(envelope.Error, envelope.Code)
}

// parseErrorFields understands {"error":{"code","message"}} as well as
// {"error":"message","code":"..."}.
func parseErrorFields(errField, codeField json.RawMessage) (code, msg string, ok bool) {
	if isNull(errField) {
		return "", "", false
	}

	var apiErr models.APIError
	if err := json.Unmarshal(errField, &apiErr); err == nil {
		code = rawCode(apiErr.Code)
		if code == "" {
			code = apiErr.Type
		}
		msg = apiErr.Message
	} else if err := json.Unmarshal(errField, &msg); err != nil {
		msg = string(errField)
	}

	if code == "" {
		code = rawCode(codeField)
	}

	if code == "" && msg == "" {
		return "", "", false
	}
	return code, msg, true
}

// rawCode renders a string or numeric code field as text.
func rawCode(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(bytes.TrimSpace(raw))
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null")) || bytes.Equal(t, []byte(`""`)) || bytes.Equal(t, []byte("{}"))
}
