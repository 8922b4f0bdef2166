// Package extractor reads page text and tables out of PDF files using
// github.com/ledongthuc/pdf. It knows nothing about EPD semantics.
package extractor

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd"
)

// Config holds layout tunables, all in PDF points unless noted.
type Config struct {
	RowTolerance      float64 // max baseline drift within one line
	WordGap           float64 // glyph gap that splits words, as a fraction of font size
	ChunkGap          float64 // word gap that splits aligned columns, as a fraction of font size
	RuleThickness     float64 // max thickness of a drawn border
	GridTolerance     float64 // snapping distance for borders
	ColumnTolerance   float64 // snapping distance for aligned column starts
	MinAlignedColumns int     // chunks needed for a line to count as a table row
}

// DefaultConfig returns tunables that fit A4 utility bills.
func DefaultConfig() Config {
	return Config{
		RowTolerance:      2.0,
		WordGap:           0.3,
		ChunkGap:          1.5,
		RuleThickness:     2.0,
		GridTolerance:     2.0,
		ColumnTolerance:   4.0,
		MinAlignedColumns: 3,
	}
}

// Result is everything extracted from one PDF.
type Result struct {
	// Pages holds the plain text of each page, in page order.
	Pages []string
	// Tables holds the tables of all pages, in reading order.
	Tables []Table
}

// FirstPage returns the text of the first page or "".
func (r *Result) FirstPage() string {
	if len(r.Pages) == 0 {
		return ""
	}
	return r.Pages[0]
}

// PDFExtractor extracts text and tables from PDF files.
type PDFExtractor struct {
	layout *Layout
	logger *slog.Logger
}

// NewPDFExtractor creates an extractor.
func NewPDFExtractor(cfg Config, logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{
		layout: NewLayout(cfg),
		logger: logger,
	}
}

// Extract reads the PDF at path.
func (e *PDFExtractor) Extract(path string) (*Result, error) {
	f, r, err := openPDF(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return e.extract(r)
}

// ExtractBytes reads a PDF held in memory.
func (e *PDFExtractor) ExtractBytes(data []byte) (*Result, error) {
	r, err := newReader(data)
	if err != nil {
		return nil, err
	}
	return e.extract(r)
}

func (e *PDFExtractor) extract(r *pdf.Reader) (res *Result, err error) {
	// the pdf package panics on some malformed content streams
	defer func() {
		if rec := recover(); rec != nil {
			res = nil
			err = fmt.Errorf("%w: %v", epd.ErrUnreadablePDF, rec)
		}
	}()

	start := time.Now()
	numPages := r.NumPage()
	if numPages == 0 {
		return nil, epd.ErrNoPages
	}

	res = &Result{}
	for i := 1; i <= numPages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			res.Pages = append(res.Pages, "")
			continue
		}

		content := p.Content()
		page := e.layout.Analyze(content.Text, content.Rect)
		res.Pages = append(res.Pages, page.Text())
		res.Tables = append(res.Tables, page.Tables()...)
	}

	e.logger.Debug("pdf extracted",
		slog.Int("pages", numPages),
		slog.Int("tables", len(res.Tables)),
		slog.Duration("duration", time.Since(start)),
	)
	return res, nil
}

type closer interface {
	Close() error
}

func openPDF(path string) (f closer, r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", epd.ErrUnreadablePDF, rec)
		}
	}()

	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", epd.ErrUnreadablePDF, err)
	}
	return file, reader, nil
}

func newReader(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", epd.ErrUnreadablePDF, rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", epd.ErrUnreadablePDF, err)
	}
	return reader, nil
}
