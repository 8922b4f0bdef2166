// Package strategy builds the configured parse strategies by name.
package strategy

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/parser"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/vision"
)

// Options carries the settings of every strategy.
type Options struct {
	VocabularyFile string // optional YAML override for the table parser
	Vision         vision.Config
}

// Build returns one parser per name, in order. Names are "table" and "vision".
func Build(names []string, opts Options, logger *slog.Logger) ([]epd.Parser, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(names) == 0 {
		return nil, epd.ErrUnsupportedStrategy
	}

	out := make([]epd.Parser, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case epd.StrategyTable:
			p := parser.NewTableParser(logger)
			if opts.VocabularyFile != "" {
				vocab, err := parser.LoadVocabulary(opts.VocabularyFile)
				if err != nil {
					return nil, err
				}
				p.WithVocabulary(vocab)
			}
			out = append(out, p)
		case epd.StrategyVision:
			if opts.Vision.APIKey == "" {
				return nil, fmt.Errorf("vision strategy requires an API key: %w", epd.ErrUnsupportedStrategy)
			}
			out = append(out, vision.NewParser(withDefaults(opts.Vision), logger))
		default:
			return nil, fmt.Errorf("%q: %w", raw, epd.ErrUnsupportedStrategy)
		}
	}

	logger.Info("parse strategies configured", slog.Any("strategies", names))
	return out, nil
}

func withDefaults(cfg vision.Config) vision.Config {
	def := vision.DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.DPI <= 0 {
		cfg.DPI = def.DPI
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = def.Temperature
	}
	return cfg
}
