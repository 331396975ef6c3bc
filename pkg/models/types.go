// Package models defines data structures for grounded Grok queries: the mode
// registry, the canonical request/result shapes and the provider wire format.
package models

import (
	"fmt"
	"strings"
)

// QueryMode selects model, grounding and default token budget for a query.
type QueryMode string

const (
	ModeSearch  QueryMode = "search"
	ModeAsk     QueryMode = "ask"
	ModeThink   QueryMode = "think"
	ModeChat    QueryMode = "chat"
	ModeXSearch QueryMode = "x-search"
	ModeXAsk    QueryMode = "x-ask"
)

// Models served by the provider.
const (
	ModelFast          = "grok-4-1-fast-non-reasoning"
	ModelFastReasoning = "grok-4-1-fast"
)

// ToolType is the grounding tool attached to a request.
type ToolType string

const (
	ToolWebSearch ToolType = "web_search"
	ToolXSearch   ToolType = "x_search"
)

// DefaultResultCount is used by result-listing modes when no count is given.
const DefaultResultCount = 10

// MaxXHandles is the provider's limit per allowed or excluded handle list.
const MaxXHandles = 10

// ModeProfile is the static configuration of a QueryMode.
type ModeProfile struct {
	Model            string
	DefaultMaxTokens int
	GroundingEnabled bool
	// Tool is set iff GroundingEnabled.
	Tool ToolType
	// Instruction is sent as the system message. When ListsResults is set it
	// holds a single %d verb for the result count.
	Instruction  string
	ListsResults bool
	Description  string
}

const webResultsInstruction = `Search for the query and return results in this exact format:

---
TITLE: [page title]
URL: [full url]
SNIPPET: [2-3 sentence excerpt]
---

Return up to %d results. No additional commentary or analysis.`

const xResultsInstruction = `Search X for the query and return results in this exact format:

---
AUTHOR: @[handle]
POST: [post content]
URL: [full x.com url]
---

Return up to %d results. No additional commentary or analysis.`

var registry = map[QueryMode]ModeProfile{
	ModeSearch: {
		Model:            ModelFast,
		DefaultMaxTokens: 4096,
		GroundingEnabled: true,
		Tool:             ToolWebSearch,
		Instruction:      webResultsInstruction,
		ListsResults:     true,
		Description:      "Quick web search returning structured results",
	},
	ModeAsk: {
		Model:            ModelFast,
		DefaultMaxTokens: 8192,
		GroundingEnabled: true,
		Tool:             ToolWebSearch,
		Instruction:      "Be concise and factual. Cite sources when using web information.",
		Description:      "Grounded answer with web search",
	},
	ModeThink: {
		Model:            ModelFastReasoning,
		DefaultMaxTokens: 16384,
		GroundingEnabled: true,
		Tool:             ToolWebSearch,
		Instruction:      "Think step by step. Be thorough and cite sources.",
		Description:      "Deep reasoning with web grounding for complex problems",
	},
	ModeChat: {
		Model:            ModelFast,
		DefaultMaxTokens: 8192,
		Description:      "Chat without web search",
	},
	ModeXSearch: {
		Model:            ModelFast,
		DefaultMaxTokens: 4096,
		GroundingEnabled: true,
		Tool:             ToolXSearch,
		Instruction:      xResultsInstruction,
		ListsResults:     true,
		Description:      "Search X posts returning structured results",
	},
	ModeXAsk: {
		Model:            ModelFast,
		DefaultMaxTokens: 8192,
		GroundingEnabled: true,
		Tool:             ToolXSearch,
		Instruction:      "Be concise and factual. Cite X posts when referencing discussions or opinions.",
		Description:      "Grounded answer using X posts as sources",
	},
}

// AvailableModes lists every registered mode in display order.
var AvailableModes = []QueryMode{
	ModeSearch,
	ModeAsk,
	ModeThink,
	ModeChat,
	ModeXSearch,
	ModeXAsk,
}

// ProfileFor returns the profile of a registered mode. Callers validate the
// mode with IsValidMode first; unknown modes yield the zero profile.
func ProfileFor(m QueryMode) ModeProfile {
	return registry[m]
}

// IsValidMode checks if a mode is registered.
func IsValidMode(m QueryMode) bool {
	_, ok := registry[m]
	return ok
}

// ParseMode converts user input ("Ask", "x_search") to a registered mode.
func ParseMode(s string) (QueryMode, error) {
	m := QueryMode(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	if !IsValidMode(m) {
		return "", fmt.Errorf("invalid mode: %q (valid: %s)", s, ModeNames())
	}
	return m, nil
}

// ModeNames returns the registered mode names joined with ", ".
func ModeNames() string {
	names := make([]string, len(AvailableModes))
	for i, m := range AvailableModes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}
