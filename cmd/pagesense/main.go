package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/dshills/pagesense/internal/content"
	"github.com/dshills/pagesense/internal/embedder"
	"github.com/dshills/pagesense/internal/mcp"
	"github.com/dshills/pagesense/internal/ranker"
	"github.com/dshills/pagesense/internal/session"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "pagesense",
		Usage: "Semantic in-page search for HTML documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the MCP server on stdio",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "cache-dir",
						Usage: "Directory for the durable page cache (empty disables caching)",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "One-shot semantic search over a page",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "url",
						Usage: "HTTP(S) URL of the page to search",
					},
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Local HTML file to search",
					},
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Maximum number of matches to return",
						Value:   ranker.DefaultTopK,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum similarity score",
						Value: ranker.DefaultThreshold,
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Write the highlighted page HTML to this file",
					},
				},
			},
			{
				Name:   "version",
				Usage:  "Print version information",
				Action: versionCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand(c *cli.Context) error {
	server, err := mcp.NewServer(mcp.Config{
		CacheDir: c.String("cache-dir"),
		Logger:   slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		slog.Info("MCP server ready, listening on stdio", "version", version)
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		slog.Info("shutting down", "signal", sig.String())
		cancel()
		// Wait for Serve to unwind so the page cache closes cleanly.
		if err := <-errChan; err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case err := <-errChan:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query argument is required")
	}

	var (
		doc *content.Document
		err error
	)
	switch {
	case c.String("url") != "" && c.String("file") != "":
		return fmt.Errorf("--url and --file are mutually exclusive")
	case c.String("url") != "":
		doc, err = content.Fetch(ctx, c.String("url"), nil)
	case c.String("file") != "":
		doc, err = content.LoadFile(c.String("file"))
	default:
		return fmt.Errorf("one of --url or --file is required")
	}
	if err != nil {
		return fmt.Errorf("failed to load page: %w", err)
	}

	emb, err := embedder.NewFromEnv(slog.Default())
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}
	defer func() { _ = emb.Close() }()

	threshold := c.Float64("threshold")
	ctrl := session.New(doc, emb, session.Config{
		Ranker: ranker.Options{
			TopK:      c.Int("top-k"),
			Threshold: &threshold,
		},
		Logger: slog.Default(),
	})
	if err := ctrl.Open(ctx); err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}

	results, err := ctrl.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("No matches above threshold.")
		return nil
	}

	for i, r := range results {
		text := r.Chunk.Text
		if len(text) > 160 {
			text = text[:160] + "..."
		}
		marker := " "
		if !r.Navigable() {
			marker = "?" // match no longer locatable in the page
		}
		fmt.Printf("%2d. [%.3f]%s %s\n", i+1, r.Score, marker, text)
	}

	if out := c.String("out"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		if err := doc.Render(f); err != nil {
			return fmt.Errorf("failed to render highlighted page: %w", err)
		}
	}
	return nil
}

func versionCommand(c *cli.Context) error {
	fmt.Printf("pagesense %s (built %s)\n", version, buildTime)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// stdout is reserved for MCP protocol traffic in serve mode.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
