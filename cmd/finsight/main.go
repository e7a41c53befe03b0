package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/finsight/internal/api"
	"github.com/zombor/finsight/internal/ocr"
	"github.com/zombor/finsight/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	fs := ff.NewFlagSet("finsight")
	var (
		port         = fs.IntLong("port", 8080, "HTTP server port")
		dbPath       = fs.StringLong("db", "finsight.db", "Database file path")
		storagePath  = fs.StringLong("storage", "./receipts", "Receipt upload directory")
		ocrType      = fs.StringLong("ocr", "gemini", "OCR worker: 'gemini' or 'ollama'")
		geminiKey    = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel  = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL    = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel  = fs.StringLong("ollama-model", "llava", "Ollama vision model name (e.g., llava, llava-phi3, qwen2-vl)")
		ocrLanguage  = fs.StringLong("ocr-language", scanning.DefaultLanguage, "Receipt language code (e.g., eng, deu, fra)")
		ocrWhitelist = fs.StringLong("ocr-whitelist", "", "Characters OCR output is restricted to (empty allows all)")
		ocrCacheSize = fs.IntLong("ocr-cache-size", api.DefaultCacheSize, "Number of OCR transcripts to cache")
		authUser     = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass     = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel     = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		logJSON      = fs.BoolLong("log-json", "Log in JSON format")
		showVersion  = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("FINSIGHT"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := setupLogging(*logLevel, *logJSON); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var loader ocr.Loader
	switch *ocrType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Using Gemini OCR", "model", *geminiModel)
		loader = scanning.NewGeminiLoader(apiKey, *geminiModel)
	case "ollama":
		slog.Info("Using Ollama OCR", "url", *ollamaURL, "model", *ollamaModel)
		loader = scanning.NewOllamaLoader(*ollamaURL, *ollamaModel)
	default:
		slog.Error("Invalid OCR type", "type", *ocrType, "valid", "gemini or ollama")
		os.Exit(1)
	}

	slog.Info("Initializing database...")
	db, err := api.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("Initializing storage...")
	store, err := api.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// The worker loads on the first upload
	engine := ocr.NewEngine(ocr.Config{Language: *ocrLanguage, Whitelist: *ocrWhitelist}, loader)
	defer func() {
		if err := engine.Close(); err != nil {
			slog.Warn("Failed to stop OCR worker", "error", err)
		}
	}()

	transcripts, err := api.NewTranscriptCache(engine, int64(*ocrCacheSize))
	if err != nil {
		slog.Error("Failed to initialize OCR cache", "error", err)
		os.Exit(1)
	}
	defer transcripts.Close()

	service := api.NewService(db, store, transcripts)
	server := api.NewServer(service, api.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	})

	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", *port)
	if err := server.Start(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		return
	}

	slog.Info("Shutting down...")
}

// setupLogging installs the default slog handler on stderr
func setupLogging(level string, asJSON bool) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if asJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
