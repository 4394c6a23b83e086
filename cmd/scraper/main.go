package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/qepting91/plandit-scraper/internal/api"
	"github.com/qepting91/plandit-scraper/internal/collector"
	"github.com/qepting91/plandit-scraper/internal/config"
	"github.com/qepting91/plandit-scraper/internal/dashboard"
	"github.com/qepting91/plandit-scraper/internal/domain"
	"github.com/qepting91/plandit-scraper/internal/ingest"
	"github.com/qepting91/plandit-scraper/internal/publish"
	"github.com/qepting91/plandit-scraper/internal/scrape"
	"github.com/qepting91/plandit-scraper/internal/storage"
)

const shutdownGrace = 10 * time.Second

func main() {
	godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	var (
		targetsFlag = flag.String("targets", "", "comma-separated targets, e.g. golang,u/someone")
		targetsFile = flag.String("targets-file", "", "CSV of name,type target rows")
		dryRun      = flag.Bool("dry-run", false, "run the full pipeline without writing or downloading")
		serveOnly   = flag.Bool("serve", false, "skip scraping, only run the API and dashboard")
	)
	flag.Parse()

	cfg := config.Load()
	if *dryRun {
		cfg.DryRun = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		logger.Error("storage init failed", "err", err)
		os.Exit(1)
	}
	defer store.Close(context.Background())

	var apiSrv *api.Server
	if cfg.API.Enabled {
		apiSrv = api.NewServer(store, cfg.API.Port)
		go func() {
			if err := apiSrv.Start(); err != nil {
				logger.Error("api failed", "err", err)
			}
		}()
	}

	var dashSrv *dashboard.Server
	if cfg.Dashboard.Enabled {
		dashSrv = dashboard.NewServer(store, cfg.Dashboard.Port)
		go func() {
			if err := dashSrv.Start(); err != nil {
				logger.Error("dashboard failed", "err", err)
			}
		}()
	}

	exitCode := 0
	if !*serveOnly {
		exitCode = runScrape(ctx, cfg, store, *targetsFlag, *targetsFile, logger)
	}

	if (cfg.API.Enabled || cfg.Dashboard.Enabled) && ctx.Err() == nil {
		logger.Info("scrape done, serving until shutdown signal")
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if apiSrv != nil {
		apiSrv.Shutdown(shutdownCtx)
	}
	if dashSrv != nil {
		dashSrv.Shutdown(shutdownCtx)
	}
	os.Exit(exitCode)
}

func runScrape(ctx context.Context, cfg config.Config, store storage.Store, targetsFlag, targetsFile string, logger *slog.Logger) int {
	targets, err := loadTargets(targetsFlag, targetsFile)
	if err != nil {
		logger.Error("cannot load targets", "err", err)
		return 1
	}
	if len(targets) == 0 {
		logger.Error("no targets given, use -targets or -targets-file")
		return 1
	}

	sources, err := collector.New(cfg)
	if err != nil {
		logger.Error("collector init failed", "err", err)
		return 1
	}
	logger.Info("collector initialized", "mode", cfg.CollectorMode, "mirrors", len(cfg.Mirrors))

	var pub scrape.Publisher
	natsPub, err := publish.Connect(cfg.NATS)
	if err != nil {
		logger.Warn("nats unavailable, publishing disabled", "err", err)
	} else if natsPub != nil {
		pub = natsPub
		defer natsPub.Close()
	}

	orch, err := scrape.Assemble(cfg, sources, store, pub)
	if err != nil {
		logger.Error("pipeline init failed", "err", err)
		return 1
	}

	records, err := orch.RunAll(ctx, targets)
	for _, rec := range records {
		logger.Info("job record", "summary", rec.Summary())
	}
	if err != nil {
		logger.Error("scrape finished with failures", "err", err)
		return 1
	}
	return 0
}

func loadTargets(targetsFlag, targetsFile string) ([]domain.Target, error) {
	if targetsFile != "" {
		return ingest.LoadTargets(targetsFile)
	}
	if targetsFlag == "" {
		targetsFlag = os.Getenv("TARGETS")
	}
	return ingest.ParseTargets(targetsFlag)
}
