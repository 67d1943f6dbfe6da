package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/elvinvaliyev/karabakh-monitor/internal/config"
	"github.com/elvinvaliyev/karabakh-monitor/internal/db"
	"github.com/elvinvaliyev/karabakh-monitor/internal/imagery"
	"github.com/elvinvaliyev/karabakh-monitor/internal/landcover"
	"github.com/elvinvaliyev/karabakh-monitor/internal/monitor"
	"github.com/elvinvaliyev/karabakh-monitor/internal/pipeline"
	"github.com/elvinvaliyev/karabakh-monitor/internal/units"
	"github.com/elvinvaliyev/karabakh-monitor/internal/version"
)

var (
	listen        = flag.String("listen", ":8080", "Listen address")
	dbPath        = flag.String("db", "monitor.db", "Path to SQLite database file")
	configPath    = flag.String("config", "", "Path to analysis config JSON (default: built-in search)")
	unitsFlag     = flag.String("units", units.KM2, "Area display units (km2, ha, m2)")
	migrationsDir = flag.String("migrations", "migrations", "Path to migrations directory")
	autoMigrate   = flag.Bool("auto-migrate", true, "Apply pending migrations on startup")
	showVersion   = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("karabakh-monitor %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	// Provider credentials come from the environment; .env is optional
	// and only used in development.
	_ = godotenv.Load()

	// 'migrate' subcommand for manual schema control.
	if args := flag.Args(); len(args) > 0 && args[0] == "migrate" {
		db.RunMigrateCommand(args[1:], *dbPath, *migrationsDir)
		return
	}

	if !units.IsValid(*unitsFlag) {
		log.Fatalf("invalid -units %q (valid: %s)", *unitsFlag, units.GetValidUnitsString())
	}

	var cfg *config.AnalysisConfig
	if *configPath != "" {
		loaded, err := config.LoadAnalysisConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config %s: %v", *configPath, err)
		}
		cfg = loaded
	} else {
		cfg = config.MustLoadDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	imageryBase := os.Getenv("IMAGERY_BASE_URL")
	if imageryBase == "" {
		log.Fatal("IMAGERY_BASE_URL is required")
	}
	classifierBase := os.Getenv("CLASSIFIER_BASE_URL")
	if classifierBase == "" {
		log.Fatal("CLASSIFIER_BASE_URL is required")
	}
	model := os.Getenv("CLASSIFIER_MODEL")
	if model == "" {
		model = cfg.GetClassifierModel()
	}

	database, err := db.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if *autoMigrate {
		if err := database.MigrateUp(*migrationsDir); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
	} else {
		if exit, err := database.CheckAndPromptMigrations(*migrationsDir); exit {
			log.Fatalf("%v", err)
		}
	}

	catalog := imagery.NewCatalogClient(imageryBase, os.Getenv("IMAGERY_API_KEY"))
	catalog.Timeout = cfg.GetProviderTimeout()

	compositor := imagery.NewCompositor(catalog)
	compositor.ResolutionM = cfg.GetPixelResolutionM()
	compositor.Window = func(year int) imagery.TimeWindow {
		return imagery.MonthWindow(year, cfg.GetWindowStartMonth(), cfg.GetWindowEndMonth())
	}

	classifier := landcover.NewHTTPClassifier(classifierBase, model)
	classifier.Timeout = cfg.GetClassifierTimeout()

	orchestrator := pipeline.NewOrchestrator(compositor, classifier, cfg)

	server := monitor.NewWebServer(monitor.WebServerConfig{
		Address: *listen,
		Runner:  orchestrator,
		DB:      database,
		Config:  cfg,
		Units:   *unitsFlag,
	})

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(ctx); err != nil {
			log.Printf("web server error: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
