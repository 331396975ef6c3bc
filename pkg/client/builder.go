package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/diogo/grok-ask/pkg/models"
)

const dateLayout = "2006-01-02"

// BuildRequest maps a QueryRequest to the provider request body. It performs
// no I/O; every validation failure is an invalid_request ClientError.
func BuildRequest(req models.QueryRequest) (*models.ProviderRequest, error) {
	if !models.IsValidMode(req.Mode) {
		return nil, invalidRequest("unknown mode %q (valid: %s)", req.Mode, models.ModeNames())
	}
	if strings.TrimSpace(req.Input) == "" {
		return nil, invalidRequest("input text is empty")
	}
	if req.MaxTokens != nil && *req.MaxTokens < 1 {
		return nil, invalidRequest("max tokens must be at least 1, got %d", *req.MaxTokens)
	}

	profile := models.ProfileFor(req.Mode)

	maxTokens := profile.DefaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	messages := make([]models.InputMessage, 0, 2)
	if instruction, err := systemInstruction(profile, req.ResultCount); err != nil {
		return nil, err
	} else if instruction != "" {
		messages = append(messages, models.InputMessage{Role: "system", Content: instruction})
	}
	messages = append(messages, models.InputMessage{Role: "user", Content: req.Input})

	out := &models.ProviderRequest{
		Model:              profile.Model,
		Input:              messages,
		MaxOutputTokens:    maxTokens,
		PreviousResponseID: req.ContinuationID,
		Store:              true,
	}

	if profile.GroundingEnabled {
		tool, err := groundingTool(profile.Tool, req.XFilter)
		if err != nil {
			return nil, err
		}
		out.Tools = []models.Tool{tool}
	}

	return out, nil
}

// systemInstruction renders the profile instruction. The result count is only
// read by result-listing profiles.
func systemInstruction(profile models.ModeProfile, resultCount *int) (string, error) {
	if !profile.ListsResults {
		return profile.Instruction, nil
	}
	count := models.DefaultResultCount
	if resultCount != nil {
		if *resultCount < 1 {
			return "", invalidRequest("result count must be at least 1, got %d", *resultCount)
		}
		count = *resultCount
	}
	return fmt.Sprintf(profile.Instruction, count), nil
}

func groundingTool(toolType models.ToolType, filter *models.XSearchFilter) (models.Tool, error) {
	tool := models.Tool{Type: toolType}
	if toolType != models.ToolXSearch || filter == nil {
		return tool, nil
	}

	for _, d := range []string{filter.FromDate, filter.ToDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			return tool, invalidRequest("invalid date %q (expected YYYY-MM-DD)", d)
		}
	}

	tool.AllowedXHandles = normalizeHandles(filter.AllowedHandles)
	tool.ExcludedXHandles = normalizeHandles(filter.ExcludedHandles)
	tool.FromDate = filter.FromDate
	tool.ToDate = filter.ToDate
	tool.EnableImageUnderstanding = filter.EnableImages
	tool.EnableVideoUnderstanding = filter.EnableVideo
	return tool, nil
}

// normalizeHandles strips "@", drops blanks and keeps at most models.MaxXHandles.
func normalizeHandles(handles []string) []string {
	if len(handles) == 0 {
		return nil
	}
	out := make([]string, 0, len(handles))
	for _, h := range handles {
		h = strings.TrimPrefix(strings.TrimSpace(h), "@")
		if h == "" {
			continue
		}
		out = append(out, h)
		if len(out) == models.MaxXHandles {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
