package models

// QueryRequest is one grounded query as issued by a front end.
type QueryRequest struct {
	Mode  QueryMode
	Input string
	// ContinuationID resumes a provider-side conversation. Empty starts a new one.
	ContinuationID string
	// MaxTokens overrides the profile default when non-nil.
	MaxTokens *int
	// ResultCount only applies to result-listing modes.
	ResultCount *int
	// XFilter only applies to modes grounded on X search.
	XFilter *XSearchFilter
}

// XSearchFilter narrows X search grounding.
type XSearchFilter struct {
	AllowedHandles  []string
	ExcludedHandles []string
	// FromDate and ToDate use YYYY-MM-DD.
	FromDate     string
	ToDate       string
	EnableImages bool
	EnableVideo  bool
}

// NewQueryRequest returns a request for mode and input with profile defaults.
func NewQueryRequest(mode QueryMode, input string) QueryRequest {
	return QueryRequest{Mode: mode, Input: input}
}

// IntPtr returns a pointer to v, for optional request fields.
func IntPtr(v int) *int {
	return &v
}

// ProviderRequest is the JSON body sent to the Responses endpoint.
type ProviderRequest struct {
	Model              string         `json:"model"`
	Input              []InputMessage `json:"input"`
	Tools              []Tool         `json:"tools,omitempty"`
	MaxOutputTokens    int            `json:"max_output_tokens"`
	PreviousResponseID string         `json:"previous_response_id,omitempty"`
	Store              bool           `json:"store"`
}

// InputMessage is a single role/content pair of the request input.
type InputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Tool is a server-side grounding tool directive.
type Tool struct {
	Type                     ToolType `json:"type"`
	AllowedXHandles          []string `json:"allowed_x_handles,omitempty"`
	ExcludedXHandles         []string `json:"excluded_x_handles,omitempty"`
	FromDate                 string   `json:"from_date,omitempty"`
	ToDate                   string   `json:"to_date,omitempty"`
	EnableImageUnderstanding bool     `json:"enable_image_understanding,omitempty"`
	EnableVideoUnderstanding bool     `json:"enable_video_understanding,omitempty"`
}
