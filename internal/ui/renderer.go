// Package ui handles terminal output and formatting.
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/diogo/grok-ask/pkg/models"
)

// Renderer handles terminal output formatting.
type Renderer struct {
	out       io.Writer
	errOut    io.Writer
	mdRender  *glamour.TermRenderer
	width     int
	useColors bool
}

// Styles for different output elements.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginBottom(1)

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("82"))

	WarningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	CitationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Underline(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	SpinnerChars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
)

// NewRenderer creates a renderer on stdout with errors on stderr.
func NewRenderer() (*Renderer, error) {
	r, err := NewRendererWithOptions(os.Stdout, 80, true)
	if err != nil {
		return nil, err
	}
	r.errOut = os.Stderr
	return r, nil
}

// NewRendererWithOptions creates a renderer with custom options. Errors and
// warnings go to out as well until SetErrorOutput is called.
func NewRendererWithOptions(out io.Writer, width int, useColors bool) (*Renderer, error) {
	style := "dark"
	if !useColors {
		style = "notty"
	}

	mdRender, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
		glamour.WithStylePath(style),
	)
	if err != nil {
		// Fallback to basic renderer
		mdRender, _ = glamour.NewTermRenderer(
			glamour.WithWordWrap(width),
		)
	}

	return &Renderer{
		out:       out,
		errOut:    out,
		mdRender:  mdRender,
		width:     width,
		useColors: useColors,
	}, nil
}

// SetErrorOutput directs errors and warnings to w.
func (r *Renderer) SetErrorOutput(w io.Writer) {
	r.errOut = w
}

// Out returns the primary output writer.
func (r *Renderer) Out() io.Writer {
	return r.out
}

// RenderMarkdown renders markdown content.
func (r *Renderer) RenderMarkdown(content string) error {
	if r.mdRender == nil {
		// Fallback: print raw content
		fmt.Fprintln(r.out, content)
		return nil
	}

	rendered, err := r.mdRender.Render(content)
	if err != nil {
		// Fallback to raw content on error
		fmt.Fprintln(r.out, content)
		return nil
	}

	fmt.Fprint(r.out, rendered)
	return nil
}

// RenderResult renders a query result: the answer, its sources, a note when
// the answer is partial and the follow-up hint. Usage is shown when verbose.
func (r *Renderer) RenderResult(result *models.QueryResult, verbose bool) error {
	if result.Text != "" {
		if err := r.RenderMarkdown(result.Text); err != nil {
			return err
		}
	}

	r.RenderCitations(result.Citations)

	switch {
	case result.Text == "":
		r.RenderWarning("the model returned no answer text")
	case result.Status == models.StatusIncomplete:
		r.RenderWarning("the answer may be truncated (status: incomplete)")
	case result.Status == models.StatusFailed:
		r.RenderWarning("the provider reported the response as failed")
	}

	if result.ContinuationID != "" {
		fmt.Fprintln(r.out)
		r.RenderInfo(fmt.Sprintf("To follow up: grok -r %s \"<question>\"", result.ContinuationID))
	}

	if verbose && result.Usage != nil {
		r.RenderInfo(fmt.Sprintf("Model: %s, tokens: %d in / %d out",
			result.Model, result.Usage.InputTokens, result.Usage.OutputTokens))
	}

	return nil
}

// RenderJSON writes v as indented JSON.
func (r *Renderer) RenderJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// RenderCitations renders source citations.
func (r *Renderer) RenderCitations(citations []models.Citation) {
	if len(citations) == 0 {
		return
	}

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, DimStyle.Render("Sources:"))

	for i, cite := range citations {
		title := cite.Title
		if title == "" {
			title = cite.URL
		}

		index := cite.Index
		if index == 0 {
			index = i + 1
		}

		num := fmt.Sprintf("[%d]", index)
		fmt.Fprintf(r.out, "%s %s\n", DimStyle.Render(num), CitationStyle.Render(title))
		if cite.URL != "" && cite.URL != title {
			fmt.Fprintf(r.out, "    %s\n", DimStyle.Render(cite.URL))
		}
	}
}

// RenderError renders an error message.
func (r *Renderer) RenderError(err error) {
	if r.useColors {
		fmt.Fprintln(r.errOut, ErrorStyle.Render("Error: "+err.Error()))
	} else {
		fmt.Fprintln(r.errOut, "Error: "+err.Error())
	}
}

// RenderSuccess renders a success message.
func (r *Renderer) RenderSuccess(msg string) {
	if r.useColors {
		fmt.Fprintln(r.out, SuccessStyle.Render(msg))
	} else {
		fmt.Fprintln(r.out, msg)
	}
}

// RenderWarning renders a warning message.
func (r *Renderer) RenderWarning(msg string) {
	if r.useColors {
		fmt.Fprintln(r.errOut, WarningStyle.Render("Warning: "+msg))
	} else {
		fmt.Fprintln(r.errOut, "Warning: "+msg)
	}
}

// RenderInfo renders an info message.
func (r *Renderer) RenderInfo(msg string) {
	if r.useColors {
		fmt.Fprintln(r.out, InfoStyle.Render(msg))
	} else {
		fmt.Fprintln(r.out, msg)
	}
}

// RenderTitle renders a title.
func (r *Renderer) RenderTitle(title string) {
	if r.useColors {
		fmt.Fprintln(r.out, TitleStyle.Render(title))
	} else {
		fmt.Fprintln(r.out, strings.ToUpper(title))
		fmt.Fprintln(r.out, strings.Repeat("=", len(title)))
	}
}

// RenderKeyValue renders an aligned "key: value" line.
func (r *Renderer) RenderKeyValue(key, value string, keyWidth int) {
	label := fmt.Sprintf("%-*s", keyWidth+1, key+":")
	if r.useColors {
		label = DimStyle.Render(label)
	}
	fmt.Fprintf(r.out, "%s %s\n", label, value)
}

// RenderSpinner renders a spinner character on the error output so that
// piped answers stay clean.
func (r *Renderer) RenderSpinner(frame int) {
	idx := frame % len(SpinnerChars)
	fmt.Fprintf(r.errOut, "\r%s ", SpinnerChars[idx])
}

// ClearLine clears the current spinner line.
func (r *Renderer) ClearLine() {
	fmt.Fprint(r.errOut, "\r\033[K")
}

// NewLine prints a newline.
func (r *Renderer) NewLine() {
	fmt.Fprintln(r.out)
}
