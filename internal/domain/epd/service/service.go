// Package service provides the EPD import orchestration logic.
package service

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/repository"
	"github.com/FACorreiaa/epd-parser/pkg/storage"
)

var (
	// ErrNotPDF is returned for uploads without the %PDF- magic.
	ErrNotPDF = errors.New("file is not a PDF")

	// ErrFileTooLarge is returned for uploads over the size limit.
	ErrFileTooLarge = errors.New("file exceeds the upload limit")

	// ErrPersistenceDisabled is returned by storage operations when no
	// repository is configured.
	ErrPersistenceDisabled = errors.New("persistence is not configured")

	// ErrNotFound is returned for an unknown document ID.
	ErrNotFound = errors.New("document not found")

	// ErrParseFailed wraps the errors of every strategy when none of them
	// produced a document.
	ErrParseFailed = errors.New("failed to parse document")
)

var pdfMagic = []byte("%PDF-")

const (
	tracerName         = "github.com/FACorreiaa/epd-parser/internal/domain/epd/service"
	defaultMaxUpload   = 10 << 20
	archiveContentType = "application/pdf"
)

// ImportOptions controls one upload.
type ImportOptions struct {
	// Persist stores the document and archives the original file.
	Persist bool
}

// StrategyFailure records a strategy that did not produce a document.
type StrategyFailure struct {
	Strategy string `json:"strategy"`
	Error    string `json:"error"`
}

// ImportResult contains the result of an import operation
type ImportResult struct {
	Document  *epd.Document     `json:"document"`
	Persisted bool              `json:"persisted"`
	Failures  []StrategyFailure `json:"failures,omitempty"`
}

// ImportService runs the configured parse strategies over uploaded files
// and stores the results.
type ImportService struct {
	strategies []epd.Parser
	repo       repository.DocumentRepository // Optional: nil when persistence is off
	archive    storage.Storage               // Optional
	metrics    *Metrics                      // Optional
	tracer     trace.Tracer
	tempDir    string
	maxBytes   int64
	logger     *slog.Logger
}

// NewImportService creates a service trying strategies in order.
func NewImportService(strategies []epd.Parser, logger *slog.Logger) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportService{
		strategies: strategies,
		tracer:     otel.Tracer(tracerName),
		tempDir:    os.TempDir(),
		maxBytes:   defaultMaxUpload,
		logger:     logger,
	}
}

// WithRepository enables persistence.
func (s *ImportService) WithRepository(repo repository.DocumentRepository) *ImportService {
	s.repo = repo
	return s
}

// WithArchive stores original uploads of persisted documents.
func (s *ImportService) WithArchive(archive storage.Storage) *ImportService {
	s.archive = archive
	return s
}

// WithMetrics records Prometheus metrics.
func (s *ImportService) WithMetrics(m *Metrics) *ImportService {
	s.metrics = m
	return s
}

// WithTempDir sets where uploads are spooled while parsing.
func (s *ImportService) WithTempDir(dir string) *ImportService {
	if dir != "" {
		s.tempDir = dir
	}
	return s
}

// WithMaxUploadBytes sets the upload size limit.
func (s *ImportService) WithMaxUploadBytes(n int64) *ImportService {
	if n > 0 {
		s.maxBytes = n
	}
	return s
}

// MaxUploadBytes returns the upload size limit.
func (s *ImportService) MaxUploadBytes() int64 {
	return s.maxBytes
}

// PersistenceEnabled reports whether a repository is configured.
func (s *ImportService) PersistenceEnabled() bool {
	return s.repo != nil
}

// Import validates an upload, spools it to a temp file, parses it and, when
// asked to, stores the result. The temp file is removed on every path.
func (s *ImportService) Import(ctx context.Context, filename string, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	if opts.Persist && s.repo == nil {
		return nil, ErrPersistenceDisabled
	}

	path, err := s.spool(r)
	if path != "" {
		defer func() {
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				s.logger.Warn("failed to remove temp file", slog.String("path", path), slog.Any("error", rmErr))
			}
		}()
	}
	if err != nil {
		return nil, err
	}

	result, err := s.parse(ctx, path)
	if err != nil {
		return result, err
	}

	if opts.Persist {
		if err := s.persist(ctx, filename, path, result.Document); err != nil {
			return nil, err
		}
		result.Persisted = true
	}
	return result, nil
}

// ParseFile runs the strategies over a PDF already on disk.
func (s *ImportService) ParseFile(ctx context.Context, path string) (*epd.Document, error) {
	result, err := s.parse(ctx, path)
	if err != nil {
		return nil, err
	}
	return result.Document, nil
}

// spool copies r into a fresh epd-*.pdf temp file after checking the magic
// bytes and size limit. The returned path is non-empty whenever a file was
// created, even on error.
func (s *ImportService) spool(r io.Reader) (string, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(pdfMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if !bytes.Equal(head, pdfMagic) {
		return "", ErrNotPDF
	}

	f, err := os.CreateTemp(s.tempDir, "epd-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(br, s.maxBytes+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return f.Name(), fmt.Errorf("failed to write temp file: %w", err)
	}
	if n > s.maxBytes {
		return f.Name(), ErrFileTooLarge
	}
	return f.Name(), nil
}

func (s *ImportService) parse(ctx context.Context, path string) (*ImportResult, error) {
	if len(s.strategies) == 0 {
		return nil, epd.ErrUnsupportedStrategy
	}

	result := &ImportResult{}
	var errs []error
	for _, strategy := range s.strategies {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		doc, err := s.runStrategy(ctx, strategy, path)
		if err == nil {
			result.Document = doc
			return result, nil
		}

		s.logger.Error("strategy failed",
			slog.String("strategy", strategy.Name()),
			slog.Any("error", err),
		)
		result.Failures = append(result.Failures, StrategyFailure{Strategy: strategy.Name(), Error: err.Error()})
		errs = append(errs, fmt.Errorf("%s: %w", strategy.Name(), err))
	}

	return result, fmt.Errorf("%w: %w", ErrParseFailed, errors.Join(errs...))
}

func (s *ImportService) runStrategy(ctx context.Context, strategy epd.Parser, path string) (*epd.Document, error) {
	ctx, span := s.tracer.Start(ctx, "epd.parse",
		trace.WithAttributes(attribute.String("epd.strategy", strategy.Name())),
	)
	defer span.End()

	start := time.Now()
	doc, err := strategy.Parse(ctx, path)
	s.metrics.observe(strategy.Name(), time.Since(start), doc, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("epd.services", len(doc.Services)),
		attribute.Int("epd.warnings", len(doc.Warnings)),
	)
	return doc, nil
}

func (s *ImportService) persist(ctx context.Context, filename, path string, doc *epd.Document) error {
	if s.archive != nil {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to reopen upload: %w", err)
		}
		info, err := s.archive.Upload(ctx, doc.Header.AccountNumber, filename, archiveContentType, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to archive upload: %w", err)
		}
		doc.SourceFileID = &info.ID
	}

	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		if doc.SourceFileID != nil {
			if delErr := s.archive.Delete(ctx, doc.Header.AccountNumber, *doc.SourceFileID); delErr != nil {
				s.logger.Warn("failed to remove orphaned archive file", slog.Any("error", delErr))
			}
			doc.SourceFileID = nil
		}
		return fmt.Errorf("failed to save document: %w", err)
	}

	s.logger.Info("document stored",
		slog.String("document_id", doc.ID.String()),
		slog.String("account", doc.Header.AccountNumber),
	)
	return nil
}

// GetDocument loads a stored document.
func (s *ImportService) GetDocument(ctx context.Context, id uuid.UUID) (*epd.Document, error) {
	if s.repo == nil {
		return nil, ErrPersistenceDisabled
	}
	doc, err := s.repo.GetDocument(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return doc, err
}

// ListDocuments lists stored documents of an account, newest first.
func (s *ImportService) ListDocuments(ctx context.Context, accountNumber string, limit, offset int) ([]*epd.Document, error) {
	if s.repo == nil {
		return nil, ErrPersistenceDisabled
	}
	return s.repo.ListDocuments(ctx, accountNumber, limit, offset)
}

// DeleteDocument removes a stored document and its archived file.
func (s *ImportService) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteDocument(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if s.archive != nil && doc.SourceFileID != nil {
		if err := s.archive.Delete(ctx, doc.Header.AccountNumber, *doc.SourceFileID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("failed to delete archived file",
				slog.String("file_id", doc.SourceFileID.String()),
				slog.Any("error", err),
			)
		}
	}
	return nil
}
