package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/lib/pq"

	"catalog-etl-service/internal/domain"
)

// Predefined errors for store operations
var (
	ErrUnknownCollection = errors.New("store: unknown raw collection")
)

// Warehouse implements the RawStorer, SilverStorer and GoldStorer interfaces
// against PostgreSQL. One instance is shared by every pipeline stage; each
// stage only ever writes the tables it owns.
type Warehouse struct {
	db *sql.DB
}

// NewWarehouse creates a new Warehouse around an open connection pool.
func NewWarehouse(db *sql.DB) *Warehouse {
	return &Warehouse{db: db}
}

// execBatch runs one statement per row inside a single transaction. The batch
// is the transactional unit of the pipeline: every row write is an idempotent
// upsert, so a failed batch is safe to retry from scratch. Returns the number
// of rows written.
func (w *Warehouse) execBatch(ctx context.Context, query string, rows [][]any) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: execBatch failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("store: execBatch failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, args := range rows {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23503" { // Foreign key violation
				return 0, fmt.Errorf("store: execBatch foreign key violation (%s): %w", pqErr.Detail, domain.ErrIntegrity)
			}
			return 0, fmt.Errorf("store: execBatch failed to execute row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: execBatch failed to commit: %w", err)
	}
	return len(rows), nil
}

// CountRows executes a COUNT(*) assertion query and returns the count. Used
// by the data quality gate, whose predicates all must match zero rows.
func (w *Warehouse) CountRows(ctx context.Context, query string) (int, error) {
	var count int
	if err := w.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("store: CountRows failed to scan: %w", err)
	}
	return count, nil
}

func (w *Warehouse) Close() error {
	if w.db != nil {
		if err := w.db.Close(); err != nil {
			log.Printf("ERROR: Failed to close database connection pool: %v", err)
			return err
		}
	}
	return nil
}

// --- RawStorer Implementation ---

// rawSpecs keys each landing table by its source collection. The natural id
// column follows the singular-entity naming of the rest of the warehouse.
var rawSpecs = map[domain.Collection]upsertSpec{
	domain.CollectionProducts: {
		Table:        "raw.products",
		Columns:      []string{"product_id", "payload"},
		ConflictCols: []string{"product_id"},
		UpdateCols:   []string{"payload"},
		TouchCol:     "ingested_at",
	},
	domain.CollectionUsers: {
		Table:        "raw.users",
		Columns:      []string{"user_id", "payload"},
		ConflictCols: []string{"user_id"},
		UpdateCols:   []string{"payload"},
		TouchCol:     "ingested_at",
	},
	domain.CollectionCarts: {
		Table:        "raw.carts",
		Columns:      []string{"cart_id", "payload"},
		ConflictCols: []string{"cart_id"},
		UpdateCols:   []string{"payload"},
		TouchCol:     "ingested_at",
	},
}

// UpsertRawRecords lands one batch of source entities, payload kept verbatim.
func (w *Warehouse) UpsertRawRecords(ctx context.Context, col domain.Collection, records []domain.RawRecord) (int, error) {
	spec, ok := rawSpecs[col]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCollection, col)
	}

	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []any{rec.NaturalID, []byte(rec.Payload)})
	}
	return w.execBatch(ctx, spec.SQL(), rows)
}

// ListRawRecords reads one landing table fully, in natural id order.
func (w *Warehouse) ListRawRecords(ctx context.Context, col domain.Collection) ([]domain.RawRecord, error) {
	spec, ok := rawSpecs[col]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, col)
	}

	query := fmt.Sprintf("SELECT %s, payload, ingested_at FROM %s ORDER BY %s;",
		spec.ConflictCols[0], spec.Table, spec.ConflictCols[0])

	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: ListRawRecords failed to query %s: %w", spec.Table, err)
	}
	defer rows.Close()

	var records []domain.RawRecord
	for rows.Next() {
		var rec domain.RawRecord
		var payload []byte
		if err := rows.Scan(&rec.NaturalID, &payload, &rec.IngestedAt); err != nil {
			return nil, fmt.Errorf("store: ListRawRecords failed to scan row: %w", err)
		}
		rec.Payload = payload
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListRawRecords iteration error: %w", err)
	}
	return records, nil
}
