package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd"
	"github.com/FACorreiaa/epd-parser/pkg/money"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// PostgresRepository implements DocumentRepository using PostgreSQL
type PostgresRepository struct {
	db DBTX
}

// NewPostgresRepository creates a new PostgreSQL document repository
func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// SaveDocument inserts a document with its service lines and recalculations
// in one transaction.
func (r *PostgresRepository) SaveDocument(ctx context.Context, doc *epd.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}

	warnings := doc.Warnings
	if warnings == nil {
		warnings = []epd.ParseWarning{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("failed to encode warnings: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	documentQuery := `
		INSERT INTO epd_documents (
			id, account_number, full_name, address, payment_period, due_date,
			total_without_insurance, total_without_insurance_minor,
			total_with_insurance, total_with_insurance_minor,
			insurance_amount, insurance_amount_minor,
			strategy, warnings, source_file_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	h, t := doc.Header, doc.Totals
	_, err = tx.Exec(ctx, documentQuery,
		doc.ID,
		h.AccountNumber,
		h.FullName,
		h.Address,
		h.PaymentPeriod,
		h.DueDate,
		t.TotalWithoutInsurance, money.Minor(t.TotalWithoutInsurance),
		t.TotalWithInsurance, money.Minor(t.TotalWithInsurance),
		t.InsuranceAmount, money.Minor(t.InsuranceAmount),
		doc.Strategy,
		warningsJSON,
		doc.SourceFileID,
		doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	serviceQuery := `
		INSERT INTO epd_service_charges (
			document_id, service_name, category, volume, unit, tariff,
			amount, amount_minor, amount_by_tariff,
			recalculation, recalculation_minor, debt, debt_minor,
			paid, paid_minor, total, total_minor, sort_order
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	for _, s := range doc.Services {
		_, err = tx.Exec(ctx, serviceQuery,
			doc.ID,
			s.ServiceName,
			s.Category,
			s.Volume,
			s.Unit,
			s.Tariff,
			s.Amount, money.Minor(s.Amount),
			s.AmountByTariff,
			s.Recalculation, money.Minor(s.Recalculation),
			s.Debt, money.Minor(s.Debt),
			s.Paid, money.Minor(s.Paid),
			s.Total, money.Minor(s.Total),
			s.Order,
		)
		if err != nil {
			return fmt.Errorf("failed to insert service %q: %w", s.ServiceName, err)
		}
	}

	recalcQuery := `
		INSERT INTO epd_recalculations (document_id, service_name, reason, amount, amount_minor, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, rc := range doc.Recalculations {
		_, err = tx.Exec(ctx, recalcQuery,
			doc.ID,
			rc.ServiceName,
			rc.Reason,
			rc.Amount, money.Minor(rc.Amount),
			rc.Order,
		)
		if err != nil {
			return fmt.Errorf("failed to insert recalculation %q: %w", rc.ServiceName, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const documentColumns = `
	id, account_number, full_name, address, payment_period, due_date,
	total_without_insurance, total_with_insurance, insurance_amount,
	strategy, warnings, source_file_id, created_at`

func scanDocument(row pgx.Row) (*epd.Document, error) {
	doc := &epd.Document{}
	var warnings []byte
	err := row.Scan(
		&doc.ID,
		&doc.Header.AccountNumber,
		&doc.Header.FullName,
		&doc.Header.Address,
		&doc.Header.PaymentPeriod,
		&doc.Header.DueDate,
		&doc.Totals.TotalWithoutInsurance,
		&doc.Totals.TotalWithInsurance,
		&doc.Totals.InsuranceAmount,
		&doc.Strategy,
		&warnings,
		&doc.SourceFileID,
		&doc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(warnings) > 0 {
		if err := json.Unmarshal(warnings, &doc.Warnings); err != nil {
			return nil, fmt.Errorf("failed to decode warnings: %w", err)
		}
	}
	return doc, nil
}

// GetDocument retrieves a document with its lines.
func (r *PostgresRepository) GetDocument(ctx context.Context, id uuid.UUID) (*epd.Document, error) {
	query := `SELECT` + documentColumns + `
		FROM epd_documents
		WHERE id = $1`

	doc, err := scanDocument(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if doc.Services, err = r.services(ctx, id); err != nil {
		return nil, err
	}
	if doc.Recalculations, err = r.recalculations(ctx, id); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *PostgresRepository) services(ctx context.Context, documentID uuid.UUID) ([]epd.ServiceCharge, error) {
	query := `
		SELECT service_name, category, volume, unit, tariff, amount, amount_by_tariff,
		       recalculation, debt, paid, total, sort_order
		FROM epd_service_charges
		WHERE document_id = $1
		ORDER BY sort_order`

	rows, err := r.db.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	services := []epd.ServiceCharge{}
	for rows.Next() {
		var s epd.ServiceCharge
		err := rows.Scan(
			&s.ServiceName,
			&s.Category,
			&s.Volume,
			&s.Unit,
			&s.Tariff,
			&s.Amount,
			&s.AmountByTariff,
			&s.Recalculation,
			&s.Debt,
			&s.Paid,
			&s.Total,
			&s.Order,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate services: %w", err)
	}
	return services, nil
}

func (r *PostgresRepository) recalculations(ctx context.Context, documentID uuid.UUID) ([]epd.Recalculation, error) {
	query := `
		SELECT service_name, reason, amount, sort_order
		FROM epd_recalculations
		WHERE document_id = $1
		ORDER BY sort_order`

	rows, err := r.db.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recalculations: %w", err)
	}
	defer rows.Close()

	recalcs := []epd.Recalculation{}
	for rows.Next() {
		var rc epd.Recalculation
		if err := rows.Scan(&rc.ServiceName, &rc.Reason, &rc.Amount, &rc.Order); err != nil {
			return nil, fmt.Errorf("failed to scan recalculation: %w", err)
		}
		recalcs = append(recalcs, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recalculations: %w", err)
	}
	return recalcs, nil
}

// ListDocuments retrieves document headers, newest first.
func (r *PostgresRepository) ListDocuments(ctx context.Context, accountNumber string, limit, offset int) ([]*epd.Document, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT` + documentColumns + `
		FROM epd_documents
		WHERE ($1 = '' OR account_number = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, accountNumber, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []*epd.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document. Lines are removed by cascade.
func (r *PostgresRepository) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM epd_documents WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}
