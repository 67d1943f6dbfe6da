// Command analysis runs the change pipeline once from the command line
// and writes the report artifacts to disk, without the web server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/elvinvaliyev/karabakh-monitor/internal/config"
	"github.com/elvinvaliyev/karabakh-monitor/internal/db"
	"github.com/elvinvaliyev/karabakh-monitor/internal/export"
	"github.com/elvinvaliyev/karabakh-monitor/internal/geo"
	"github.com/elvinvaliyev/karabakh-monitor/internal/imagery"
	"github.com/elvinvaliyev/karabakh-monitor/internal/landcover"
	"github.com/elvinvaliyev/karabakh-monitor/internal/pipeline"
	"github.com/elvinvaliyev/karabakh-monitor/internal/units"
	"github.com/elvinvaliyev/karabakh-monitor/internal/version"
)

var (
	preset     = flag.String("region", "agdam-fuzuli", "Region preset name (see -list-regions)")
	bbox       = flag.String("bbox", "", "Custom bounding box min_lon,min_lat,max_lon,max_lat (overrides -region)")
	name       = flag.String("name", "", "Region name for a custom bbox")
	startYear  = flag.Int("start", 2016, "First analysis year")
	endYear    = flag.Int("end", 2024, "Last analysis year")
	baseline   = flag.Int("baseline", 0, "Baseline year for the spatial diff (default: start year)")
	comparison = flag.Int("comparison", 0, "Comparison year for the spatial diff (default: end year)")

	configPath  = flag.String("config", "", "Path to analysis config JSON (default: built-in search)")
	outDir      = flag.String("out", "out", "Output directory for artifacts")
	unitsFlag   = flag.String("units", units.KM2, "Area display units (km2, ha, m2)")
	dbPath      = flag.String("db", "", "Optional SQLite database to record the run in")
	migrations  = flag.String("migrations", "migrations", "Path to migrations directory (used with -db)")
	listRegions = flag.Bool("list-regions", false, "List region presets and exit")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	if *showVersion {
		fmt.Printf("karabakh-monitor %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if *listRegions {
		for _, n := range geo.PresetNames() {
			fmt.Println(n)
		}
		return
	}

	if !units.IsValid(*unitsFlag) {
		log.Fatalf("invalid -units %q (valid: %s)", *unitsFlag, units.GetValidUnitsString())
	}

	region, err := resolveRegion()
	if err != nil {
		log.Fatalf("invalid region: %v", err)
	}

	baselineYear := *baseline
	if baselineYear == 0 {
		baselineYear = region.StartYear
	}
	comparisonYear := *comparison
	if comparisonYear == 0 {
		comparisonYear = region.EndYear
	}

	var cfg *config.AnalysisConfig
	if *configPath != "" {
		cfg, err = config.LoadAnalysisConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config %s: %v", *configPath, err)
		}
	} else {
		cfg = config.MustLoadDefaultConfig()
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("analyzing %s (%s), years %d-%d, diff %d vs %d",
		region.Name, region.Bounds, region.StartYear, region.EndYear, baselineYear, comparisonYear)

	report, err := orchestrator.Run(ctx, region, baselineYear, comparisonYear)
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}

	printReport(report, *unitsFlag)

	exporter := export.NewExporter(*outDir)
	paths, err := exporter.WriteAll(report)
	if err != nil {
		log.Fatalf("failed to write artifacts: %v", err)
	}
	for _, p := range paths {
		log.Printf("wrote %s", p)
	}

	if *dbPath != "" {
		if err := recordRun(report); err != nil {
			log.Fatalf("failed to record run: %v", err)
		}
		log.Printf("recorded run %s in %s", report.ID, *dbPath)
	}
}

func resolveRegion() (geo.RegionSpec, error) {
	if *bbox != "" {
		bounds, err := geo.ParseBBox(*bbox)
		if err != nil {
			return geo.RegionSpec{}, err
		}
		regionName := *name
		if regionName == "" {
			regionName = "custom"
		}
		return geo.Custom(regionName, bounds, *startYear, *endYear)
	}
	return geo.Preset(*preset, *startYear, *endYear)
}

func recordRun(report *pipeline.ReconstructionReport) error {
	database, err := db.Open(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.MigrateUp(*migrations); err != nil {
		return err
	}
	return database.InsertReport(report)
}

func printReport(report *pipeline.ReconstructionReport, unit string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "YEAR\tSTATE\tAREA (%s)\tSCENES\tNOTE\n", unit)
	for _, yr := range report.Years {
		area := "-"
		if yr.Succeeded() {
			area = fmt.Sprintf("%.4f", units.ConvertArea(yr.AreaKm2, unit))
		}
		note := yr.FailureReason
		if yr.RelaxedCloudCeiling {
			note = strings.TrimSpace(note + " (relaxed cloud ceiling)")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", yr.Year, yr.State, area, yr.SceneCount, note)
	}
	w.Flush()

	fmt.Println()
	if report.Trend != nil {
		fmt.Printf("trend: %+.4f %s/yr (R²=%.3f)\n",
			units.ConvertArea(report.Trend.SlopeKm2PerYear, unit), unit, report.Trend.RSquared)
	}
	if report.Diff != nil {
		d := report.Diff
		fmt.Printf("change %d vs %d: built %.4f -> %.4f %s (delta %+.4f, new construction %.4f, regressed %.4f)\n",
			report.BaselineYear, report.ComparisonYear,
			units.ConvertArea(d.BaselineKm2, unit),
			units.ConvertArea(d.ComparisonKm2, unit), unit,
			units.ConvertArea(d.DeltaAreaKm2, unit),
			units.ConvertArea(d.NewConstructionKm2, unit),
			units.ConvertArea(d.RegressedKm2, unit))
	} else {
		fmt.Printf("change summary unavailable: %s\n", report.ChangeUnavailableReason)
	}
}
