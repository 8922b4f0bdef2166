// Package parser is the deterministic EPD strategy: it classifies the
// extracted tables, walks their rows and reads the header fields from the
// first page.
package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/extractor"
)

// Config configures the table parser.
type Config struct {
	MinServiceColumns int // cells a row needs for its table to count as a service table
	Extractor         extractor.Config
}

// DefaultConfig returns the settings used for standard EPD bills.
func DefaultConfig() Config {
	return Config{
		MinServiceColumns: 8,
		Extractor:         extractor.DefaultConfig(),
	}
}

// Extractor reads page text and tables from a PDF file.
type Extractor interface {
	Extract(path string) (*extractor.Result, error)
}

// TableParser implements epd.Parser over extracted PDF tables.
type TableParser struct {
	config     Config
	vocab      *Vocabulary
	extractor  Extractor
	classifier *Classifier
	rows       *RowParser
	info       *PersonalInfoExtractor
	logger     *slog.Logger
}

var _ epd.Parser = (*TableParser)(nil)

// NewTableParser creates a parser with the default vocabulary and the
// ledongthuc/pdf extractor.
func NewTableParser(logger *slog.Logger) *TableParser {
	if logger == nil {
		logger = slog.Default()
	}
	p := &TableParser{
		config: DefaultConfig(),
		vocab:  DefaultVocabulary(),
		logger: logger,
	}
	p.extractor = extractor.NewPDFExtractor(p.config.Extractor, logger)
	p.rebuild()
	return p
}

// WithVocabulary replaces the lookup tables.
func (p *TableParser) WithVocabulary(v *Vocabulary) *TableParser {
	p.vocab = v
	p.rebuild()
	return p
}

// WithConfig replaces the configuration and rebuilds the PDF extractor.
func (p *TableParser) WithConfig(cfg Config) *TableParser {
	p.config = cfg
	p.extractor = extractor.NewPDFExtractor(cfg.Extractor, p.logger)
	p.rebuild()
	return p
}

// WithExtractor replaces the PDF extractor.
func (p *TableParser) WithExtractor(e Extractor) *TableParser {
	p.extractor = e
	return p
}

func (p *TableParser) rebuild() {
	p.classifier = NewClassifier(p.vocab, p.config.MinServiceColumns, p.logger)
	p.rows = NewRowParser(p.vocab, p.logger)
	p.info = NewPersonalInfoExtractor(p.vocab)
}

// Name returns the strategy name.
func (p *TableParser) Name() string {
	return epd.StrategyTable
}

// Parse extracts and assembles the document at pdfPath.
func (p *TableParser) Parse(ctx context.Context, pdfPath string) (*epd.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := p.extractor.Extract(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to extract pdf: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return p.Assemble(res.Pages, res.Tables)
}

// Assemble builds a document from already extracted page text and tables.
func (p *TableParser) Assemble(pages []string, tables []extractor.Table) (*epd.Document, error) {
	start := time.Now()

	sel, err := p.classifier.Select(tables)
	if err != nil {
		return nil, err
	}

	var firstPage string
	if len(pages) > 0 {
		firstPage = pages[0]
	}
	header := p.info.Extract(firstPage)
	if header.AccountNumber == "" {
		return nil, epd.ErrMissingAccountNumber
	}

	services := p.rows.ParseServices(sel.Primary)

	doc := &epd.Document{
		ID:             uuid.New(),
		Header:         header,
		Totals:         services.Totals.Totals(),
		Services:       services.Services,
		Recalculations: p.rows.ParseRecalculations(sel.Recalculations),
		Strategy:       epd.StrategyTable,
		Warnings:       services.Warnings,
		CreatedAt:      time.Now().UTC(),
	}
	if sel.Degraded {
		doc.Warnings = append(doc.Warnings, epd.ParseWarning{
			Kind:    epd.WarningDegradedTable,
			Message: "no service table found, first table used",
		})
	}
	doc.Renumber()

	p.logger.Info("document parsed",
		slog.String("strategy", epd.StrategyTable),
		slog.String("account", header.AccountNumber),
		slog.Int("services", len(doc.Services)),
		slog.Int("recalculations", len(doc.Recalculations)),
		slog.Int("warnings", len(doc.Warnings)),
		slog.Duration("duration", time.Since(start)),
	)
	return doc, nil
}
