package ui

import (
	"fmt"
	"strings"

	"github.com/diogo/grok-ask/pkg/models"
)

// FormatResult renders a result as plain text: the answer, a numbered
// markdown list of sources and the follow-up id.
func FormatResult(result *models.QueryResult) string {
	var b strings.Builder
	b.WriteString(result.Text)

	if len(result.Citations) > 0 {
		b.WriteString("\n\nSources:")
		for i, c := range result.Citations {
			index := c.Index
			if index == 0 {
				index = i + 1
			}
			title := c.Title
			if title == "" {
				title = c.URL
			}
			fmt.Fprintf(&b, "\n%d. [%s](%s)", index, title, c.URL)
		}
	}

	switch {
	case result.Status == models.StatusFailed:
		b.WriteString("\n\n(response failed)")
	case result.Text == "" || result.Status == models.StatusIncomplete:
		b.WriteString("\n\n(response incomplete)")
	}

	if result.ContinuationID != "" {
		b.WriteString("\n\n---\nTo follow up, use response_id: ")
		b.WriteString(result.ContinuationID)
	}

	return strings.TrimLeft(b.String(), "\n")
}
