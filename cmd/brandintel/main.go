package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/brandintel/internal/config"
	"git.home.luguber.info/inful/brandintel/internal/daemon"
	"git.home.luguber.info/inful/brandintel/internal/defs"
	"git.home.luguber.info/inful/brandintel/internal/export"
	"git.home.luguber.info/inful/brandintel/internal/livesync"
	"git.home.luguber.info/inful/brandintel/internal/llm"
	"git.home.luguber.info/inful/brandintel/internal/metrics"
	"git.home.luguber.info/inful/brandintel/internal/service"
	"git.home.luguber.info/inful/brandintel/internal/store"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Register struct {
		Name        string `arg:"" help:"Subject display name"`
		ContentFile string `short:"f" required:"" help:"File holding the content snapshot"`
	} `cmd:"" help:"Register a subject and seed its extraction units"`

	Run struct {
		Subject string `arg:"" help:"Subject id"`
	} `cmd:"" help:"Run all extractors for a subject"`

	Generate struct {
		Subject  string `arg:"" help:"Subject id"`
		Template string `arg:"" help:"Template id"`
	} `cmd:"" help:"Generate a document from completed extractor outputs"`

	Export struct {
		Document string `arg:"" help:"Document id"`
	} `cmd:"" help:"Export a completed document to Notion"`

	Status struct {
		Subject string `arg:"" help:"Subject id"`
		Follow  bool   `short:"f" help:"Stay attached and re-print units on every change"`
	} `cmd:"" help:"Show unit, readiness, and document state for a subject"`

	Daemon struct{} `cmd:"" help:"Run continuously: scheduled refresh, snapshot watching, metrics"`
}

func main() {
	kctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("loading .env", slog.Any("error", err))
	}

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fatal("loading configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, kctx.Command(), cfg); err != nil {
		fatal(kctx.Command(), err)
	}
}

func execute(ctx context.Context, command string, cfg *config.Config) error {
	db, err := store.NewSQLiteStore(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := llm.NewAnthropicClient(os.Getenv("ANTHROPIC_API_KEY"), llm.Settings{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		return err
	}

	reg := defs.Load()
	stores := service.Stores{Subjects: db, Units: db, Documents: db}

	opts := []service.Option{}
	var recorder *metrics.PrometheusRecorder
	if command == "daemon" {
		recorder = metrics.NewPrometheusRecorder()
		opts = append(opts, service.WithRecorder(recorder))
	}
	// The change feed doubles as the service's event publisher: NATS when a
	// broker is configured, the in-process bus otherwise.
	var feed livesync.Feed
	if cfg.NATS.Enabled {
		natsFeed, err := livesync.NewNATSFeed(cfg.NATS.URL)
		if err != nil {
			return err
		}
		defer natsFeed.Close()
		feed = natsFeed
		opts = append(opts, service.WithPublisher(natsFeed))
	} else {
		bus := livesync.NewBus()
		feed = bus
		opts = append(opts, service.WithPublisher(bus))
	}
	if token := os.Getenv("NOTION_API_KEY"); token != "" && cfg.Export.NotionParentPage != "" {
		exporter, err := export.NewNotionExporter(token, cfg.Export.NotionParentPage)
		if err != nil {
			return err
		}
		opts = append(opts, service.WithExporter(exporter))
	}

	svc := service.New(stores, reg, client, opts...)

	switch command {
	case "register <name>":
		content, err := os.ReadFile(CLI.Register.ContentFile)
		if err != nil {
			return fmt.Errorf("reading content file: %w", err)
		}
		subject, err := svc.RegisterSubject(ctx, CLI.Register.Name, string(content))
		if err != nil {
			return err
		}
		fmt.Println(subject.ID)
		return nil

	case "run <subject>":
		results, err := svc.RunExtraction(ctx, CLI.Run.Subject)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(results))
		for id := range results {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			r := results[id]
			if r.OK {
				fmt.Printf("%-20s ok      %s\n", id, r.Duration.Round(time.Millisecond))
			} else {
				fmt.Printf("%-20s failed  %s\n", id, r.Err)
			}
		}
		return nil

	case "generate <subject> <template>":
		doc, err := svc.GenerateDocument(ctx, CLI.Generate.Subject, CLI.Generate.Template)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", doc.ID, doc.Status)
		return nil

	case "export <document>":
		ref, err := svc.ExportDocument(ctx, CLI.Export.Document)
		if err != nil {
			return err
		}
		fmt.Println(ref)
		return nil

	case "status <subject>":
		if CLI.Status.Follow {
			fetcher := livesync.StoreFetcher{List: db.ListBySubject}
			return followStatus(ctx, feed, fetcher, cfg.Sync, CLI.Status.Subject, os.Stdout)
		}
		return printStatus(ctx, svc, CLI.Status.Subject)

	case "daemon":
		d, err := daemon.New(svc, cfg.Daemon, recorder)
		if err != nil {
			return err
		}
		return d.Run(ctx)

	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func fatal(what string, err error) {
	slog.Error(what, slog.Any("error", err))
	os.Exit(1)
}
