package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diogo/grok-ask/internal/auth"
	"github.com/diogo/grok-ask/internal/config"
	"github.com/diogo/grok-ask/internal/history"
	"github.com/diogo/grok-ask/internal/logging"
	"github.com/diogo/grok-ask/internal/ui"
	"github.com/diogo/grok-ask/pkg/client"
	"github.com/diogo/grok-ask/pkg/models"
)

// historyResponseLimit bounds the answer text stored per history entry.
const historyResponseLimit = 500

type executor interface {
	Execute(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error)
}

// app carries the state shared by every command of one invocation.
type app struct {
	newConfigManager func() (*config.Manager, error)
	newExecutor      func(client.Config) (executor, error)
	out              io.Writer
	errOut           io.Writer

	cfgMgr *config.Manager
	cfg    *config.Config
	render *ui.Renderer
	logger *zap.Logger

	verbose bool
	apiKey  string
	// reported is set once an error has been shown to the user.
	reported bool
}

// queryFlags holds the flags of one query command.
type queryFlags struct {
	mode            string
	responseID      string
	continueLast    bool
	maxTokens       int
	maxResults      int
	allowedHandles  []string
	excludedHandles []string
	fromDate        string
	toDate          string
	enableImages    bool
	enableVideo     bool
	output          string
	save            string
	incognito       bool
}

func newApp() *app {
	return &app{
		newConfigManager: config.NewManager,
		newExecutor: func(cfg client.Config) (executor, error) {
			return client.New(cfg)
		},
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

// Execute runs the root command.
func Execute() error {
	a := newApp()
	err := newRootCmd(a).Execute()
	if err != nil && !a.reported {
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	client.Version = Version

	flags := &queryFlags{}
	rootCmd := &cobra.Command{
		Use:   "grok [query]",
		Short: "Grok CLI - grounded answers from xAI",
		Long: `grok queries xAI Grok models through the Responses API.

Answers are grounded on live web or X search and come with their sources.
Every answer carries a response id that continues the conversation.

Examples:
  grok "What changed in Go 1.24?"
  grok --mode think "Compare raft and paxos"
  grok -r resp_abc123 "And what about leader leases?"
  grok x-search --allowed-handles golang "release announcements"`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync(a.logger)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			mode := a.cfg.DefaultMode
			if flags.mode != "" {
				m, err := models.ParseMode(flags.mode)
				if err != nil {
					return a.fail(&client.ClientError{Kind: client.KindInvalidRequest, Detail: err.Error()})
				}
				mode = m
			}
			return a.runQuery(cmd, mode, flags, args)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVar(&a.apiKey, "api-key", "", "xAI API key (overrides XAI_API_KEY)")

	rootCmd.Flags().StringVar(&flags.mode, "mode", "", "Query mode ("+models.ModeNames()+")")
	addQueryFlags(rootCmd, flags, true, true)

	rootCmd.SetOut(a.out)
	rootCmd.SetErr(a.errOut)
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &client.ClientError{Kind: client.KindInvalidRequest, Detail: err.Error()}
	})

	for _, mode := range models.AvailableModes {
		rootCmd.AddCommand(newModeCmd(a, mode))
	}
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newHistoryCmd(a))
	rootCmd.AddCommand(newAuthCmd(a))
	rootCmd.AddCommand(newVersionCmd(a))

	return rootCmd
}

// newModeCmd returns a subcommand fixed to one mode. Flags that the mode
// ignores are not offered.
func newModeCmd(a *app, mode models.QueryMode) *cobra.Command {
	profile := models.ProfileFor(mode)
	flags := &queryFlags{}

	cmd := &cobra.Command{
		Use:   string(mode) + " <query>",
		Short: profile.Description,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runQuery(cmd, mode, flags, args)
		},
	}
	if alias := strings.ReplaceAll(string(mode), "-", "_"); alias != string(mode) {
		cmd.Aliases = []string{alias}
	}

	addQueryFlags(cmd, flags, profile.ListsResults, profile.Tool == models.ToolXSearch)
	return cmd
}

func addQueryFlags(cmd *cobra.Command, f *queryFlags, listing, xSearch bool) {
	fs := cmd.Flags()
	fs.StringVarP(&f.responseID, "response-id", "r", "", "Continue the conversation of a previous response")
	fs.BoolVarP(&f.continueLast, "continue", "C", false, "Continue from the last response in history")
	fs.IntVar(&f.maxTokens, "max-tokens", 0, "Maximum output tokens (default depends on the mode)")
	if listing {
		fs.IntVar(&f.maxResults, "max-results", models.DefaultResultCount, "Number of results to list")
	}
	if xSearch {
		fs.StringSliceVar(&f.allowedHandles, "allowed-handles", nil, "Only search these X handles (comma-separated, max 10)")
		fs.StringSliceVar(&f.excludedHandles, "excluded-handles", nil, "Never search these X handles (comma-separated, max 10)")
		fs.StringVar(&f.fromDate, "from-date", "", "Only search posts from this date (YYYY-MM-DD)")
		fs.StringVar(&f.toDate, "to-date", "", "Only search posts up to this date (YYYY-MM-DD)")
		fs.BoolVar(&f.enableImages, "enable-images", false, "Let the model inspect images in posts")
		fs.BoolVar(&f.enableVideo, "enable-video", false, "Let the model inspect videos in posts")
	}
	fs.StringVarP(&f.output, "output", "o", "", "Output format (text, json)")
	fs.StringVar(&f.save, "save", "", "Save the answer to a file")
	fs.BoolVarP(&f.incognito, "incognito", "i", false, "Don't save to history")
}

// setup loads configuration and builds the logger and renderer.
func (a *app) setup() error {
	a.logger = logging.New(a.verbose, a.errOut)

	var err error
	a.cfgMgr, err = a.newConfigManager()
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}
	a.cfg, err = a.cfgMgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	useColors := a.out == os.Stdout
	a.render, err = ui.NewRendererWithOptions(a.out, 80, useColors)
	if err != nil {
		return fmt.Errorf("failed to initialize renderer: %w", err)
	}
	a.render.SetErrorOutput(a.errOut)

	a.logger.Debug("config loaded", zap.String("file", a.cfgMgr.GetConfigFile()))
	return nil
}

// fail renders err and returns it so the exit code reflects its kind.
func (a *app) fail(err error) error {
	a.render.RenderError(err)
	a.reported = true
	return err
}

func (a *app) buildRequest(cmd *cobra.Command, mode models.QueryMode, f *queryFlags, query string) (models.QueryRequest, error) {
	req := models.NewQueryRequest(mode, query)
	req.ContinuationID = strings.TrimSpace(f.responseID)

	if f.continueLast {
		if req.ContinuationID != "" {
			return req, &client.ClientError{Kind: client.KindInvalidRequest, Detail: "--continue and --response-id are mutually exclusive"}
		}
		id, err := history.NewReader(a.cfg.HistoryFile).LastResponseID()
		if err != nil {
			return req, &client.ClientError{Kind: client.KindInvalidRequest, Detail: "no previous response in history to continue", Err: err}
		}
		req.ContinuationID = id
	}

	fs := cmd.Flags()
	if fs.Changed("max-tokens") {
		req.MaxTokens = models.IntPtr(f.maxTokens)
	}
	if fs.Lookup("max-results") != nil && fs.Changed("max-results") {
		req.ResultCount = models.IntPtr(f.maxResults)
	}

	filter := &models.XSearchFilter{
		AllowedHandles:  f.allowedHandles,
		ExcludedHandles: f.excludedHandles,
		FromDate:        f.fromDate,
		ToDate:          f.toDate,
		EnableImages:    f.enableImages,
		EnableVideo:     f.enableVideo,
	}
	if len(filter.AllowedHandles) > 0 || len(filter.ExcludedHandles) > 0 ||
		filter.FromDate != "" || filter.ToDate != "" || filter.EnableImages || filter.EnableVideo {
		req.XFilter = filter
	}

	return req, nil
}

func (a *app) outputFormat(f *queryFlags) (string, error) {
	format := a.cfg.OutputFormat
	if f.output != "" {
		format = strings.ToLower(f.output)
	}
	if format != config.OutputText && format != config.OutputJSON {
		return "", &client.ClientError{Kind: client.KindInvalidRequest, Detail: fmt.Sprintf("invalid output format: %q (valid: text, json)", format)}
	}
	return format, nil
}

func (a *app) runQuery(cmd *cobra.Command, mode models.QueryMode, f *queryFlags, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))

	format, err := a.outputFormat(f)
	if err != nil {
		return a.fail(err)
	}

	req, err := a.buildRequest(cmd, mode, f, query)
	if err != nil {
		return a.fail(err)
	}

	key, source, err := auth.ResolveAPIKey(a.apiKey, a.cfg.APIKey)
	if err != nil {
		return a.fail(&client.ClientError{Kind: client.KindAuth, Detail: err.Error()})
	}

	clientCfg := a.cfg.ClientConfig()
	clientCfg.APIKey = key
	clientCfg.Logger = a.logger
	exec, err := a.newExecutor(clientCfg)
	if err != nil {
		return a.fail(err)
	}
	if closer, ok := exec.(io.Closer); ok {
		defer closer.Close()
	}

	a.logger.Debug("running query",
		zap.String("mode", string(mode)),
		zap.String("key_source", string(source)),
		zap.Bool("continuation", req.ContinuationID != ""),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	var result *models.QueryResult
	if format == config.OutputText && a.out == os.Stdout {
		result, err = a.withSpinner(func() (*models.QueryResult, error) {
			return exec.Execute(ctx, req)
		})
	} else {
		result, err = exec.Execute(ctx, req)
	}
	elapsed := time.Since(start)

	if err != nil {
		var ce *client.ClientError
		if errors.As(err, &ce) && ce.Canceled() {
			a.render.RenderWarning("query cancelled")
			a.reported = true
			return err
		}
		return a.fail(err)
	}

	if format == config.OutputJSON {
		if err := a.render.RenderJSON(result); err != nil {
			return a.fail(err)
		}
	} else {
		if err := a.render.RenderResult(result, a.verbose); err != nil {
			return a.fail(err)
		}
		if a.verbose {
			a.render.RenderInfo(fmt.Sprintf("Elapsed: %s", elapsed.Round(time.Millisecond)))
		}
	}

	if f.save != "" {
		a.saveResult(f.save, format, result)
	}

	if !f.incognito && !a.cfg.Incognito {
		a.recordHistory(query, mode, result)
	}

	return nil
}

func (a *app) withSpinner(run func() (*models.QueryResult, error)) (*models.QueryResult, error) {
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		frame := 0
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				a.render.ClearLine()
				return
			case <-ticker.C:
				a.render.RenderSpinner(frame)
				frame++
			}
		}
	}()

	result, err := run()
	close(done)
	<-stopped
	return result, err
}

func (a *app) saveResult(path, format string, result *models.QueryResult) {
	data := []byte(ui.FormatResult(result) + "\n")
	if format == config.OutputJSON {
		var err error
		data, err = json.MarshalIndent(result, "", "  ")
		if err != nil {
			a.render.RenderError(fmt.Errorf("failed to save output: %w", err))
			return
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		a.render.RenderError(fmt.Errorf("failed to save output: %w", err))
		return
	}
	fmt.Fprintf(a.errOut, "Saved to %s\n", path)
}

func (a *app) recordHistory(query string, mode models.QueryMode, result *models.QueryResult) {
	hw, err := history.NewWriter(a.cfg.HistoryFile)
	if err != nil {
		a.logger.Warn("history unavailable", zap.Error(err))
		return
	}
	_, err = hw.Append(models.HistoryEntry{
		Query:      query,
		Mode:       string(mode),
		Model:      result.Model,
		Response:   history.Truncate(result.Text, historyResponseLimit),
		ResponseID: result.ContinuationID,
		Status:     string(result.Status),
	})
	if err != nil {
		a.logger.Warn("failed to record history", zap.Error(err))
	}
}
