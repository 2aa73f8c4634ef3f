// Command salesforecast runs one batch analysis over a supermarket orders
// workbook and writes report.json plus one CSV per monthly series.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/sartorproj/salesforecast/config"
	"github.com/sartorproj/salesforecast/dataset"
	"github.com/sartorproj/salesforecast/logger"
	"github.com/sartorproj/salesforecast/pipeline"
	"github.com/sartorproj/salesforecast/timeseries"
)

func main() {
	os.Exit(realMain())
}

// realMain returns the process exit code so deferred cleanup runs before
// main exits.
func realMain() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	input := flag.String("input", cfg.InputPath, "orders workbook (.xlsx) or CSV")
	sheet := flag.String("sheet", cfg.Sheet, "worksheet name (default: first sheet)")
	out := flag.String("out", cfg.OutputDir, "output directory")
	overrides := flag.String("overrides", cfg.OverridesPath, "TOML model override table")
	quiet := flag.Bool("quiet", false, "disable progress bars")
	flag.Parse()

	cfg.InputPath, cfg.Sheet, cfg.OutputDir, cfg.OverridesPath = *input, *sheet, *out, *overrides
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, !*quiet, log); err != nil {
		log.Error().Err(err).Msg("Run failed")
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg *config.Config, showProgress bool, log zerolog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	policy, err := config.LoadOverrides(cfg.OverridesPath)
	if err != nil {
		return err
	}

	raw, err := dataset.Load(cfg.InputPath, cfg.Sheet)
	if err != nil {
		return fmt.Errorf("load %s: %w", cfg.InputPath, err)
	}
	log.Info().Str("input", cfg.InputPath).Int("rows", len(raw.Rows)).Msg("Input loaded")

	runner := pipeline.NewRunner(cfg, policy, log)
	if showProgress {
		bars := newStageBars()
		runner.OnProgress(bars.update)
		defer bars.finish()
	}

	rep, err := runner.Run(ctx, raw)
	if err != nil {
		return err
	}
	return write(cfg.OutputDir, rep, log)
}

// write stores report.json and a CSV per monthly series and per final
// forecast under dir.
func write(dir string, rep *pipeline.Report, log zerolog.Logger) error {
	seriesDir := filepath.Join(dir, "series")
	if err := os.MkdirAll(seriesDir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	reportPath := filepath.Join(dir, "report.json")
	if err := os.WriteFile(reportPath, data, 0o644); err != nil {
		return err
	}

	files := 0
	save := func(s *timeseries.Series) error {
		path := filepath.Join(seriesDir, fileName(s.Name, s.Metric)+".csv")
		if err := timeseries.SaveCSV(s, path); err != nil {
			return err
		}
		if err := verifyCSV(path, s); err != nil {
			return err
		}
		files++
		return nil
	}
	for _, s := range rep.Series {
		if err := save(s); err != nil {
			return err
		}
	}
	for name, fc := range rep.SeriesForecasts {
		if err := save(fc.Series(name)); err != nil {
			return err
		}
	}

	log.Info().
		Str("report", reportPath).
		Int("csv_files", files).
		Str("run_id", rep.RunID).
		Msg("Outputs written")
	return nil
}

// verifyCSV reads path back and checks it holds the months of want.
func verifyCSV(path string, want *timeseries.Series) error {
	got, err := timeseries.LoadCSV(path)
	if err != nil {
		return fmt.Errorf("verify %s: %w", path, err)
	}
	if got.Len() != want.Len() {
		return fmt.Errorf("verify %s: read %d rows, wrote %d", path, got.Len(), want.Len())
	}
	if got.Len() > 0 && got.Start() != want.Start() {
		return fmt.Errorf("verify %s: starts %s, wrote %s", path, got.Start(), want.Start())
	}
	return nil
}

func fileName(parts ...string) string {
	r := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-")
	for i, p := range parts {
		parts[i] = strings.ToLower(r.Replace(p))
	}
	return strings.Join(parts, "_")
}

// stageBars shows one progress bar per pipeline stage.
type stageBars struct {
	mu      sync.Mutex
	stage   string
	current *progressbar.ProgressBar
}

func newStageBars() *stageBars {
	return &stageBars{}
}

func (b *stageBars) update(stage string, done, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if stage != b.stage || b.current == nil {
		if b.current != nil {
			_ = b.current.Finish()
		}
		b.stage = stage
		b.current = progressbar.Default(int64(total), stage)
	}
	_ = b.current.Set(done)
}

func (b *stageBars) finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current != nil {
		_ = b.current.Finish()
	}
}
