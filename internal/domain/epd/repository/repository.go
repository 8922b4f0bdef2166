// Package repository provides database operations for parsed EPD documents.
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd"
)

// DocumentRepository defines the interface for document persistence operations
type DocumentRepository interface {
	SaveDocument(ctx context.Context, doc *epd.Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (*epd.Document, error)
	// ListDocuments returns headers and totals only, newest first. An empty
	// account number lists every account.
	ListDocuments(ctx context.Context, accountNumber string, limit, offset int) ([]*epd.Document, error)
	DeleteDocument(ctx context.Context, id uuid.UUID) error
}

// DBTX is the subset of *pgxpool.Pool the repository uses.
type DBTX interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
