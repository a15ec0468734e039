// Package main is the vidlens CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vidlens/internal/app"
	"github.com/hyperjump/vidlens/internal/cli"
	"github.com/hyperjump/vidlens/internal/config"
	"github.com/hyperjump/vidlens/internal/metrics"
	"github.com/hyperjump/vidlens/internal/models"
	"github.com/hyperjump/vidlens/internal/processor"
	"github.com/hyperjump/vidlens/internal/server"
	"github.com/hyperjump/vidlens/internal/watcher"
	"github.com/hyperjump/vidlens/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/vidlens/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "vidlens server" from the project dir uses the project's config (including debug).
// When no file exists at the default path either, defaults and the environment are used.
// Returns the config and the path that was actually loaded (for saving, etc.).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "analyze":
		runAnalyze()
	case "posts":
		runPosts()
	case "quiz":
		runQuiz()
	case "ask":
		runAsk()
	case "search":
		runSearch()
	case "stats":
		runStats()
	case "version", "--version", "-v":
		fmt.Printf("vidlens version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (requests, polling, drop-folder events)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := app.New(ctx, cfg, app.WithLogger(logger), app.WithMetrics(metrics.New()))
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer svc.Close()

	var watch *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watch = watcher.New(cfg.Watch.Directories, cfg.Watch.Extensions, cfg.Watch.RecursiveOrDefault(), svc.IngestFile, watchOpts...)
		if err := watch.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		go watch.SyncExisting()
		logger.Info("watching drop folders", zap.Strings("directories", watch.Directories()))
	}

	srv := server.NewServer(svc, cfg.Server, logger, resolvedConfigPath)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", zap.Error(err))
		}
	}

	logger.Info("Shutting down...")
	if watch != nil {
		watch.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

// buildQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting (e.g. "heap profile" vs heap profile).
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument, so "vidlens search m-1 heap --output json"
// would otherwise leave --output unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// sourceFromArg classifies the analyze argument as a URL or a local file path.
func sourceFromArg(arg string) (videoURL, filePath string, err error) {
	lower := strings.ToLower(arg)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return arg, "", nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", "", err
	}
	return "", abs, nil
}

// parseAnswers turns "A,c,2" into answers keyed by question index. Letters map
// to A=0..D=3; digits are taken as zero-based option indexes.
func parseAnswers(s string) (map[string]int, error) {
	answers := make(map[string]int)
	if strings.TrimSpace(s) == "" {
		return answers, nil
	}
	for i, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var idx int
		if len(part) == 1 && strings.ContainsAny(strings.ToUpper(part), "ABCD") {
			idx = int(strings.ToUpper(part)[0] - 'A')
		} else {
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("answer %d: %q is not a letter A-D or an option index", i+1, part)
			}
			idx = n
		}
		answers[strconv.Itoa(i)] = idx
	}
	return answers, nil
}

func parseFormatOrExit(s string) cli.OutputFormat {
	format, err := cli.ParseFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s failed: %v\n", what, err)
	os.Exit(1)
}

func runAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for --direct)")
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL")
	direct := fs.Bool("direct", false, "run the pipeline in-process instead of calling the server")
	title := fs.String("title", "", "video title")
	description := fs.String("description", "", "video description")
	session := fs.String("session", "", "RAG session id to index into (default: new id)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: vidlens analyze [flags] <url|file>")
		os.Exit(1)
	}
	format := parseFormatOrExit(*outputFormat)
	videoURL, filePath, err := sourceFromArg(fs.Arg(0))
	if err != nil {
		fail("Analyze", err)
	}

	var result *models.VideoAnalysis
	if *direct {
		result, err = analyzeDirect(*configPath, processor.Input{
			URL: videoURL, FilePath: filePath, Title: *title, Description: *description, SessionID: *session,
		})
	} else {
		c := cli.NewClient(*serverURL, 0)
		result, err = c.Analyze(context.Background(), cli.AnalyzeRequest{
			URL: videoURL, FilePath: filePath, Title: *title, Description: *description, SessionID: *session,
		})
	}
	if err != nil {
		fail("Analyze", err)
	}
	if err := cli.WriteAnalysis(os.Stdout, result, format); err != nil {
		fail("Output", err)
	}
}

func analyzeDirect(configPath string, in processor.Input) (*models.VideoAnalysis, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	svc, err := app.New(ctx, cfg, app.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	// The session workspace is removed on Close; only the analysis outlives the process.
	defer svc.Close()
	return svc.Process(ctx, in)
}

func runPosts() {
	fs := flag.NewFlagSet("posts", flag.ExitOnError)
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL")
	platforms := fs.String("platforms", "", "comma-separated platforms (default: linkedin,twitter,facebook,instagram)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: vidlens posts [flags] <video-id>")
		os.Exit(1)
	}
	format := parseFormatOrExit(*outputFormat)
	var selected []models.Platform
	for _, p := range strings.Split(*platforms, ",") {
		if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
			selected = append(selected, models.Platform(p))
		}
	}
	posts, err := cli.NewClient(*serverURL, 0).Posts(context.Background(), fs.Arg(0), selected)
	if err != nil {
		fail("Posts", err)
	}
	if err := cli.WritePosts(os.Stdout, posts, format); err != nil {
		fail("Output", err)
	}
}

func runQuiz() {
	fs := flag.NewFlagSet("quiz", flag.ExitOnError)
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL")
	num := fs.Int("n", 5, "number of questions")
	showAnswers := fs.Bool("show-answers", false, "print the correct answers")
	answers := fs.String("answers", "", "comma-separated answers to score, e.g. A,C,B")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: vidlens quiz [flags] <video-id>")
		os.Exit(1)
	}
	format := parseFormatOrExit(*outputFormat)
	parsed, err := parseAnswers(*answers)
	if err != nil {
		fail("Quiz", err)
	}

	ctx := context.Background()
	c := cli.NewClient(*serverURL, 0)
	q, err := c.Quiz(ctx, fs.Arg(0), *num)
	if err != nil {
		fail("Quiz", err)
	}
	if err := cli.WriteQuiz(os.Stdout, q, format, *showAnswers); err != nil {
		fail("Output", err)
	}
	if len(parsed) == 0 {
		return
	}
	result, err := c.Score(ctx, q, parsed)
	if err != nil {
		fail("Score", err)
	}
	if err := cli.WriteScore(os.Stdout, result, format); err != nil {
		fail("Output", err)
	}
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL")
	sources := fs.Bool("sources", false, "include the retrieved transcript chunks")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: vidlens ask [flags] <session-id> <question>")
		os.Exit(1)
	}
	format := parseFormatOrExit(*outputFormat)
	question := buildQuery(fs.Args()[1:])
	ans, err := cli.NewClient(*serverURL, 0).Ask(context.Background(), fs.Arg(0), question, *sources)
	if err != nil {
		fail("Ask", err)
	}
	if err := cli.WriteAnswer(os.Stdout, ans, format); err != nil {
		fail("Output", err)
	}
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: vidlens search [flags] <video-id> <query>")
		os.Exit(1)
	}
	format := parseFormatOrExit(*outputFormat)
	query := buildQuery(fs.Args()[1:])
	if query == "" {
		fmt.Fprintln(os.Stderr, "Usage: vidlens search [flags] <video-id> <query>")
		os.Exit(1)
	}
	res, err := cli.NewClient(*serverURL, 0).Search(context.Background(), fs.Arg(0), query)
	if err != nil {
		fail("Search", err)
	}
	if err := cli.WriteSearch(os.Stdout, res, format); err != nil {
		fail("Output", err)
	}
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: vidlens stats [flags] <session-id>")
		os.Exit(1)
	}
	format := parseFormatOrExit(*outputFormat)
	stats, err := cli.NewClient(*serverURL, 30*time.Second).Stats(context.Background(), fs.Arg(0))
	if err != nil {
		fail("Stats", err)
	}
	if err := cli.WriteStats(os.Stdout, stats, format); err != nil {
		fail("Output", err)
	}
}

func printUsage() {
	fmt.Println(`vidlens - Video analysis, social posts, quizzes and transcript Q&A

Usage:
  vidlens server [flags]                         Start the HTTP server
  vidlens analyze [flags] <url|file>             Ingest and analyze a video
  vidlens posts [flags] <video-id>               Generate social media posts
  vidlens quiz [flags] <video-id>                Generate (and optionally score) a quiz
  vidlens ask [flags] <session-id> <question>    Ask a question about a video
  vidlens search [flags] <video-id> <query>      Find the moments matching a query
  vidlens stats [flags] <session-id>             Show a session's Q&A index
  vidlens version                                Show version
  vidlens help                                   Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/vidlens/config.yaml)
  --debug            Enable debug logging

Analyze Flags:
  --direct           Run the pipeline in-process (no server needed)
  --config string    Config file path (for --direct)
  --title string     Video title
  --description      Video description
  --session string   RAG session id (default: new id)

Quiz Flags:
  --n int            Number of questions (default: 5, at most 10)
  --show-answers     Print the correct answers
  --answers string   Comma-separated answers to score, e.g. A,C,B

Ask Flags:
  --sources          Include the retrieved transcript chunks

Common Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)

Environment:
  VIDEODB_API_KEY, GOOGLE_API_KEY, OPENAI_API_KEY, VIDLENS_LLM_PROVIDER,
  VIDLENS_LLM_MODEL and VIDLENS_EMBEDDING_PROVIDER are read from the
  environment or a .env file in the current directory.

Examples:
  vidlens server
  vidlens analyze https://www.youtube.com/watch?v=dQw4w9WgXcQ
  vidlens analyze --direct ./talk.mp4 --output json
  vidlens posts m-1234 --platforms twitter,linkedin
  vidlens quiz m-1234 --n 3 --answers A,C,B
  vidlens ask 7f9c0d2e what is the main argument
  vidlens search m-1234 heap profile`)
}
