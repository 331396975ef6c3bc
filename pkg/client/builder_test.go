package client

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/diogo/grok-ask/pkg/models"
)

func TestBuildRequestRejectsBlankInput(t *testing.T) {
	for _, mode := range models.AvailableModes {
		for _, input := range []string{"", "   ", "\n\t"} {
			_, err := BuildRequest(models.NewQueryRequest(mode, input))
			if KindOf(err) != KindInvalidRequest {
				t.Errorf("BuildRequest(%s, %q) error = %v, want invalid_request", mode, input, err)
			}
		}
	}
}

func TestBuildRequestMaxTokens(t *testing.T) {
	tests := []struct {
		name      string
		mode      models.QueryMode
		maxTokens *int
		want      int
		wantErr   bool
	}{
		{"search default", models.ModeSearch, nil, 4096, false},
		{"ask default", models.ModeAsk, nil, 8192, false},
		{"think default", models.ModeThink, nil, 16384, false},
		{"chat default", models.ModeChat, nil, 8192, false},
		{"override", models.ModeAsk, models.IntPtr(100), 100, false},
		{"minimum", models.ModeThink, models.IntPtr(1), 1, false},
		{"zero", models.ModeAsk, models.IntPtr(0), 0, true},
		{"negative", models.ModeChat, models.IntPtr(-5), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := models.NewQueryRequest(tt.mode, "question")
			req.MaxTokens = tt.maxTokens

			got, err := BuildRequest(req)
			if tt.wantErr {
				if KindOf(err) != KindInvalidRequest {
					t.Fatalf("BuildRequest() error = %v, want invalid_request", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildRequest() error = %v", err)
			}
			if got.MaxOutputTokens != tt.want {
				t.Errorf("MaxOutputTokens = %d, want %d", got.MaxOutputTokens, tt.want)
			}
		})
	}
}

func TestBuildRequestUnknownMode(t *testing.T) {
	_, err := BuildRequest(models.NewQueryRequest(models.QueryMode("deep-research"), "q"))
	if KindOf(err) != KindInvalidRequest {
		t.Errorf("error = %v, want invalid_request", err)
	}
}

func TestBuildRequestGroundingFollowsProfile(t *testing.T) {
	inputs := []string{"latest news", "write a poem", "search the web please"}
	for _, mode := range models.AvailableModes {
		profile := models.ProfileFor(mode)
		for _, input := range inputs {
			got, err := BuildRequest(models.NewQueryRequest(mode, input))
			if err != nil {
				t.Fatalf("BuildRequest(%s) error = %v", mode, err)
			}
			if profile.GroundingEnabled {
				if len(got.Tools) != 1 || got.Tools[0].Type != profile.Tool {
					t.Errorf("%s: Tools = %+v, want one %s tool", mode, got.Tools, profile.Tool)
				}
			} else if got.Tools != nil {
				t.Errorf("%s: Tools = %+v, want none", mode, got.Tools)
			}
		}
	}
}

func TestBuildRequestChatOmitsToolsFromJSON(t *testing.T) {
	got, err := BuildRequest(models.NewQueryRequest(models.ModeChat, "hi"))
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	data, _ := json.Marshal(got)
	if strings.Contains(string(data), `"tools"`) {
		t.Errorf("chat payload %s should not contain tools", data)
	}

	got, err = BuildRequest(models.NewQueryRequest(models.ModeAsk, "hi"))
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	data, _ = json.Marshal(got)
	if !strings.Contains(string(data), `"tools":[{"type":"web_search"}]`) {
		t.Errorf("ask payload %s should contain the web_search tool", data)
	}
}

func TestBuildRequestContinuationID(t *testing.T) {
	req := models.NewQueryRequest(models.ModeAsk, "and then?")
	req.ContinuationID = "resp_abc 123"

	got, err := BuildRequest(req)
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	if got.PreviousResponseID != "resp_abc 123" {
		t.Errorf("PreviousResponseID = %q, want verbatim id", got.PreviousResponseID)
	}

	data, _ := json.Marshal(got)
	if !strings.Contains(string(data), `"previous_response_id":"resp_abc 123"`) {
		t.Errorf("payload %s missing previous_response_id", data)
	}

	got, err = BuildRequest(models.NewQueryRequest(models.ModeAsk, "fresh"))
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	data, _ = json.Marshal(got)
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, ok := fields["previous_response_id"]; ok {
		t.Errorf("payload %s should not contain previous_response_id", data)
	}
}

func TestBuildRequestMessages(t *testing.T) {
	tests := []struct {
		mode       models.QueryMode
		wantSystem string
	}{
		{models.ModeAsk, "Be concise and factual"},
		{models.ModeThink, "Think step by step"},
		{models.ModeSearch, "Return up to 10 results"},
		{models.ModeXSearch, "Search X for the query"},
		{models.ModeChat, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			got, err := BuildRequest(models.NewQueryRequest(tt.mode, "the question"))
			if err != nil {
				t.Fatalf("BuildRequest() error = %v", err)
			}
			last := got.Input[len(got.Input)-1]
			if last.Role != "user" || last.Content != "the question" {
				t.Errorf("last message = %+v, want user question", last)
			}
			if tt.wantSystem == "" {
				if len(got.Input) != 1 {
					t.Errorf("len(Input) = %d, want 1", len(got.Input))
				}
				return
			}
			if len(got.Input) != 2 || got.Input[0].Role != "system" {
				t.Fatalf("Input = %+v, want system + user", got.Input)
			}
			if !strings.Contains(got.Input[0].Content, tt.wantSystem) {
				t.Errorf("system = %q, want it to contain %q", got.Input[0].Content, tt.wantSystem)
			}
		})
	}
}

func TestBuildRequestResultCount(t *testing.T) {
	req := models.NewQueryRequest(models.ModeSearch, "golang")
	req.ResultCount = models.IntPtr(3)
	got, err := BuildRequest(req)
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	if !strings.Contains(got.Input[0].Content, "Return up to 3 results") {
		t.Errorf("system = %q, want result count 3", got.Input[0].Content)
	}

	req.ResultCount = models.IntPtr(0)
	if _, err := BuildRequest(req); KindOf(err) != KindInvalidRequest {
		t.Errorf("zero result count error = %v, want invalid_request", err)
	}

	// Ignored outside result-listing modes, even when invalid.
	for _, mode := range []models.QueryMode{models.ModeAsk, models.ModeThink, models.ModeChat} {
		req := models.NewQueryRequest(mode, "golang")
		req.ResultCount = models.IntPtr(0)
		got, err := BuildRequest(req)
		if err != nil {
			t.Errorf("%s: BuildRequest() error = %v, want result count ignored", mode, err)
			continue
		}
		for _, msg := range got.Input {
			if strings.Contains(msg.Content, "Return up to") {
				t.Errorf("%s: unexpected result instruction %q", mode, msg.Content)
			}
		}
	}
}

func TestBuildRequestXFilter(t *testing.T) {
	handles := []string{"@a", "b", " ", "c", "d", "e", "f", "g", "h", "i", "j", "k"}
	req := models.NewQueryRequest(models.ModeXAsk, "what do people think?")
	req.XFilter = &models.XSearchFilter{
		AllowedHandles:  handles,
		ExcludedHandles: []string{"@spam"},
		FromDate:        "2025-01-01",
		ToDate:          "2025-02-01",
		EnableImages:    true,
	}

	got, err := BuildRequest(req)
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	tool := got.Tools[0]
	if tool.Type != models.ToolXSearch {
		t.Fatalf("Type = %q, want x_search", tool.Type)
	}
	if len(tool.AllowedXHandles) != models.MaxXHandles {
		t.Errorf("len(AllowedXHandles) = %d, want %d", len(tool.AllowedXHandles), models.MaxXHandles)
	}
	if tool.AllowedXHandles[0] != "a" {
		t.Errorf("AllowedXHandles[0] = %q, want %q", tool.AllowedXHandles[0], "a")
	}
	if len(tool.ExcludedXHandles) != 1 || tool.ExcludedXHandles[0] != "spam" {
		t.Errorf("ExcludedXHandles = %v, want [spam]", tool.ExcludedXHandles)
	}
	if tool.FromDate != "2025-01-01" || tool.ToDate != "2025-02-01" {
		t.Errorf("dates = %q..%q", tool.FromDate, tool.ToDate)
	}
	if !tool.EnableImageUnderstanding || tool.EnableVideoUnderstanding {
		t.Errorf("media flags = %v/%v, want true/false", tool.EnableImageUnderstanding, tool.EnableVideoUnderstanding)
	}

	req.XFilter.FromDate = "01/02/2025"
	if _, err := BuildRequest(req); KindOf(err) != KindInvalidRequest {
		t.Errorf("bad date error = %v, want invalid_request", err)
	}
}

func TestBuildRequestXFilterIgnoredOnWebSearch(t *testing.T) {
	req := models.NewQueryRequest(models.ModeAsk, "question")
	req.XFilter = &models.XSearchFilter{AllowedHandles: []string{"a"}, FromDate: "bad"}

	got, err := BuildRequest(req)
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	if got.Tools[0].AllowedXHandles != nil || got.Tools[0].FromDate != "" {
		t.Errorf("web_search tool carries X filters: %+v", got.Tools[0])
	}
}

func TestBuildRequestStore(t *testing.T) {
	got, err := BuildRequest(models.NewQueryRequest(models.ModeChat, "hi"))
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	if !got.Store {
		t.Error("Store should be true so conversations can be continued")
	}
}
