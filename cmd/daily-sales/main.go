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

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/daily-sales/internal/extraction"
	"github.com/zombor/daily-sales/internal/report"
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

	fs := ff.NewFlagSet("daily-sales")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "daily-sales.db", "Database file path")
		storageType   = fs.StringLong("storage", "local", "Attachment storage: 'local' or 's3'")
		storagePath   = fs.StringLong("storage-path", "./attachments", "Local attachment directory")
		s3Endpoint    = fs.StringLong("s3-endpoint", "", "S3-compatible endpoint URL (empty for AWS)")
		s3Region      = fs.StringLong("s3-region", "us-east-1", "S3 region")
		s3Bucket      = fs.StringLong("s3-bucket", "daily-sales", "S3 bucket for attachments")
		s3Prefix      = fs.StringLong("s3-prefix", "attachments", "Key prefix inside the bucket")
		s3AccessKey   = fs.StringLong("s3-access-key", "", "S3 access key (default AWS credential chain if empty)")
		s3SecretKey   = fs.StringLong("s3-secret-key", "", "S3 secret key")
		s3PathStyle   = fs.BoolLong("s3-path-style", "Use path-style S3 addressing (MinIO and friends)")
		extractorType = fs.StringLong("extractor", "gemini", "Extractor type: 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "qwen2.5vl", "Ollama vision model name")
		aiPerMinute   = fs.IntLong("ai-requests-per-minute", 30, "Extraction request budget, 0 for unlimited")
		aiBurst       = fs.IntLong("ai-burst", 4, "Extraction requests allowed in a burst")
		historyLimit  = fs.IntLong("history-limit", 0, "Undo steps kept per report, 0 for unlimited")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("DAILY_SALES"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	ctx := context.Background()

	slog.Info("Initializing database...", "path", *dbPath)
	db, err := report.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var extractor extraction.Extractor
	switch *extractorType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini extractor...", "model", *geminiModel)
		extractor, err = extraction.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama extractor...", "url", *ollamaURL, "model", *ollamaModel)
		extractor, err = extraction.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid extractor type", "type", *extractorType, "valid", "gemini or ollama")
		os.Exit(1)
	}
	extractor = extraction.NewLimited(extractor, float64(*aiPerMinute)/60, *aiBurst)
	defer extractor.Close()

	var store report.Storage
	switch *storageType {
	case "local":
		slog.Info("Initializing local storage...", "path", *storagePath)
		store, err = report.NewLocalStorage(*storagePath)
		if err != nil {
			slog.Error("Failed to initialize storage", "error", err)
			os.Exit(1)
		}
	case "s3":
		slog.Info("Initializing S3 storage...", "bucket", *s3Bucket, "endpoint", *s3Endpoint)
		s3Store, err := report.NewS3Storage(ctx, report.S3Config{
			Endpoint:     *s3Endpoint,
			Region:       *s3Region,
			Bucket:       *s3Bucket,
			Prefix:       *s3Prefix,
			AccessKey:    *s3AccessKey,
			SecretKey:    *s3SecretKey,
			UsePathStyle: *s3PathStyle,
		})
		if err != nil {
			slog.Error("Failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			slog.Error("Failed to prepare S3 bucket", "error", err)
			os.Exit(1)
		}
		store = s3Store
	default:
		slog.Error("Invalid storage type", "type", *storageType, "valid", "local or s3")
		os.Exit(1)
	}

	service := report.NewService(db, extractor, store, report.WithHistoryLimit(*historyLimit))

	server := report.NewServer(service, report.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	})

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
