// Command epdparse parses an EPD bill PDF and prints the result.
//
//	epdparse [-strategy table|vision] [-format json|csv|xlsx|text] [-o out] file.pdf
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/export"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/service"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/strategy"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/vision"
	"github.com/FACorreiaa/epd-parser/pkg/config"
)

var errUsage = errors.New("usage: epdparse [-strategy table|vision] [-format json|csv|xlsx|text] [-o out] file.pdf")

type options struct {
	strategies []string
	format     string
	output     string
	vocabulary string
	verbose    bool
	input      string
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "epdparse: %v\n", err)
		if errors.Is(err, service.ErrParseFailed) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("epdparse", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		opts      options
		strategyF string
	)
	fs.StringVar(&strategyF, "strategy", epd.StrategyTable, "comma-separated strategies tried in order: table, vision")
	fs.StringVar(&opts.format, "format", "json", "output format: json, csv, xlsx, text")
	fs.StringVar(&opts.output, "o", "", "output file (default stdout)")
	fs.StringVar(&opts.vocabulary, "vocabulary", os.Getenv("EPD_VOCABULARY_FILE"), "YAML vocabulary override")
	fs.BoolVar(&opts.verbose, "v", false, "debug logging to stderr")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() != 1 {
		return opts, errUsage
	}
	opts.input = fs.Arg(0)

	for _, s := range strings.Split(strategyF, ",") {
		if s = strings.TrimSpace(s); s != "" {
			opts.strategies = append(opts.strategies, s)
		}
	}

	switch opts.format {
	case "json", "csv", "xlsx", "text":
	default:
		return opts, fmt.Errorf("unknown format %q", opts.format)
	}
	if opts.format == "xlsx" && opts.output == "" {
		return opts, errors.New("-format xlsx requires -o")
	}
	return opts, nil
}

func run(ctx context.Context, opts options) error {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil && containsVision(opts.strategies) {
		return err
	}
	visionCfg := vision.Config{}
	if cfg != nil {
		visionCfg = vision.Config{
			APIKey:  cfg.Vision.APIKey,
			Model:   cfg.Vision.Model,
			BaseURL: cfg.Vision.BaseURL,
			Timeout: cfg.Vision.Timeout,
			DPI:     cfg.Vision.DPI,
		}
	} else {
		visionCfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	strategies, err := strategy.Build(opts.strategies, strategy.Options{
		VocabularyFile: opts.vocabulary,
		Vision:         visionCfg,
	}, logger)
	if err != nil {
		return err
	}

	svc := service.NewImportService(strategies, logger)
	doc, err := svc.ParseFile(ctx, opts.input)
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := write(out, opts.format, doc); err != nil {
		return err
	}
	for _, w := range doc.Warnings {
		logger.Warn("parse warning", slog.String("kind", w.Kind), slog.String("detail", w.Error()))
	}
	return nil
}

func write(w io.Writer, format string, doc *epd.Document) error {
	switch format {
	case "csv":
		return export.WriteCSV(w, doc)
	case "xlsx":
		return export.WriteXLSX(w, doc)
	case "text":
		return export.WriteText(w, doc)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(doc.Output())
	}
}

func containsVision(names []string) bool {
	for _, n := range names {
		if strings.EqualFold(n, epd.StrategyVision) {
			return true
		}
	}
	return false
}
