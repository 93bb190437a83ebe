package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/MrWong99/jielong/internal/config"
	"github.com/MrWong99/jielong/internal/lexicon"
	"github.com/MrWong99/jielong/internal/normalize"
	"github.com/MrWong99/jielong/internal/observe"
	"github.com/MrWong99/jielong/internal/phonetic"
)

// BuildIndex loads the data files named in cfg and indexes every vocabulary
// library in order. Missing optional files (phonetic markers, overrides,
// variants) are treated as empty tables.
func BuildIndex(ctx context.Context, cfg config.DataConfig, m *observe.Metrics) (*lexicon.Index, *normalize.Normalizer, error) {
	ctx, span := observe.StartSpan(ctx, "app.build_index")
	defer span.End()
	log := observe.Logger(ctx)
	began := time.Now()

	table, err := loadTable(cfg)
	if err != nil {
		return nil, nil, err
	}

	var normOpts []normalize.Option
	if cfg.Variants != "" {
		variants, err := normalize.LoadVariants(cfg.Variants)
		if err != nil {
			return nil, nil, fmt.Errorf("app: load variants: %w", err)
		}
		normOpts = append(normOpts, normalize.WithVariants(variants))
	}
	norm := normalize.New(normOpts...)

	leading, err := loadOverrides(cfg.Leading)
	if err != nil {
		return nil, nil, err
	}
	trailing, err := loadOverrides(cfg.Trailing)
	if err != nil {
		return nil, nil, err
	}
	ix := lexicon.New(table, lexicon.WithOverrides(leading, trailing))

	for _, path := range cfg.Vocabulary {
		libs, err := lexicon.LoadLibraryFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("app: load vocabulary: %w", err)
		}
		for _, lib := range libs {
			n := ix.AddLibrary(lib, norm)
			log.Debug("library indexed", "file", path, "library", lib.Name, "words", n)
		}
	}

	if cfg.UnknownReport != "" {
		if err := ix.WriteReportFile(cfg.UnknownReport); err != nil {
			log.Warn("failed to write unknown tone report", "path", cfg.UnknownReport, "err", err)
		}
	}

	elapsed := time.Since(began)
	m.IndexBuildDuration.Record(ctx, elapsed.Seconds())
	span.SetAttributes(attribute.Int("words", ix.Len()))
	log.Info("vocabulary indexed",
		"words", ix.Len(),
		"characters", table.Len(),
		"unknown_start", len(ix.Unknown(lexicon.Start)),
		"unknown_end", len(ix.Unknown(lexicon.End)),
		"duration", elapsed,
	)
	return ix, norm, nil
}

func loadTable(cfg config.DataConfig) (*phonetic.Table, error) {
	if cfg.Phonetic != "" {
		t, err := phonetic.LoadFiles(cfg.Pinyin, cfg.Phonetic)
		if err != nil {
			return nil, fmt.Errorf("app: load phonetic table: %w", err)
		}
		return t, nil
	}
	readings, err := loadReadings(cfg.Pinyin)
	if err != nil {
		return nil, err
	}
	return phonetic.NewTable(readings, nil), nil
}

func loadOverrides(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	m, err := lexicon.LoadOverrides(path)
	if err != nil {
		return nil, fmt.Errorf("app: load overrides: %w", err)
	}
	return m, nil
}

func loadReadings(path string) ([]phonetic.Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("app: open readings: %w", err)
	}
	defer f.Close()

	rows, err := phonetic.DecodeReadings(f)
	if err != nil {
		return nil, fmt.Errorf("app: %s: %w", path, err)
	}
	return rows, nil
}
