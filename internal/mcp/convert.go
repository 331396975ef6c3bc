// Package mcp exposes the query modes as tools of an MCP server.
package mcp

import (
	"sort"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/diogo/grok-ask/pkg/models"
)

// ToolName returns the MCP tool name of a mode ("x-search" becomes "x_search").
func ToolName(mode models.QueryMode) string {
	return strings.ReplaceAll(string(mode), "-", "_")
}

// param describes one tool argument.
type param struct {
	typ         string
	description string
	required    bool
	minimum     *int
	format      string
	items       string
	maxItems    int
}

// toolParams derives the arguments of a mode's tool from its profile.
func toolParams(profile models.ModeProfile) map[string]param {
	one := 1
	params := map[string]param{
		"query": {
			typ:         "string",
			description: "The question or search query",
			required:    true,
		},
		"response_id": {
			typ:         "string",
			description: "Pass the response_id from a previous response to continue that conversation",
		},
		"max_tokens": {
			typ:         "integer",
			description: "Maximum response length in tokens",
			minimum:     &one,
		},
	}

	if profile.ListsResults {
		params["max_results"] = param{
			typ:         "integer",
			description: "Maximum number of results to return (default: 10)",
			minimum:     &one,
		}
	}

	if profile.Tool == models.ToolXSearch {
		params["allowed_handles"] = param{
			typ:         "array",
			items:       "string",
			maxItems:    models.MaxXHandles,
			description: "Only include posts from these X handles (max 10, without @)",
		}
		params["excluded_handles"] = param{
			typ:         "array",
			items:       "string",
			maxItems:    models.MaxXHandles,
			description: "Exclude posts from these X handles (max 10, without @)",
		}
		params["from_date"] = param{typ: "string", format: "date", description: "Start date in YYYY-MM-DD format"}
		params["to_date"] = param{typ: "string", format: "date", description: "End date in YYYY-MM-DD format"}
		params["enable_images"] = param{typ: "boolean", description: "Allow the model to analyze images in posts"}
		params["enable_video"] = param{typ: "boolean", description: "Allow the model to analyze videos in posts"}
	}

	return params
}

// toolForMode builds the MCP tool definition of a mode with its JSON Schema.
func toolForMode(mode models.QueryMode) *mcpsdk.Tool {
	profile := models.ProfileFor(mode)
	params := toolParams(profile)

	props := make(map[string]any, len(params))
	var required []string

	for name, p := range params {
		prop := map[string]any{
			"type":        p.typ,
			"description": p.description,
		}
		if p.minimum != nil {
			prop["minimum"] = *p.minimum
		}
		if p.format != "" {
			prop["format"] = p.format
		}
		if p.items != "" {
			prop["items"] = map[string]any{"type": p.items}
		}
		if p.maxItems > 0 {
			prop["maxItems"] = p.maxItems
		}
		props[name] = prop

		if p.required {
			required = append(required, name)
		}
	}

	// Sort required for deterministic output
	sort.Strings(required)

	inputSchema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		inputSchema["required"] = required
	}

	return &mcpsdk.Tool{
		Name:        ToolName(mode),
		Description: toolDescription(profile),
		InputSchema: inputSchema,
	}
}

func toolDescription(profile models.ModeProfile) string {
	var b strings.Builder
	b.WriteString(profile.Description)
	b.WriteString(" (Grok ")
	b.WriteString(profile.Model)
	b.WriteString(").")
	if !profile.ListsResults {
		b.WriteString(" Use the returned response_id to ask follow-up questions.")
	}
	if !profile.GroundingEnabled {
		b.WriteString(" No web search is performed.")
	}
	return b.String()
}
