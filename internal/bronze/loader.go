package bronze

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"catalog-etl-service/internal/domain"
	"catalog-etl-service/internal/store"
)

// Fetcher retrieves one full source collection. Satisfied by fetch.Client.
type Fetcher interface {
	FetchCollection(ctx context.Context, col domain.Collection) ([]json.RawMessage, error)
}

// Loader lands source collections verbatim in the raw schema: one row per
// natural entity, insert-or-replace by natural id.
type Loader struct {
	fetcher Fetcher
	raw     store.RawStorer
	logger  *log.Logger
}

func NewLoader(fetcher Fetcher, raw store.RawStorer, logger *log.Logger) *Loader {
	return &Loader{fetcher: fetcher, raw: raw, logger: logger}
}

func (l *Loader) LoadProducts(ctx context.Context) (int, error) {
	return l.load(ctx, domain.CollectionProducts)
}

func (l *Loader) LoadUsers(ctx context.Context) (int, error) {
	return l.load(ctx, domain.CollectionUsers)
}

func (l *Loader) LoadCarts(ctx context.Context) (int, error) {
	return l.load(ctx, domain.CollectionCarts)
}

func (l *Loader) load(ctx context.Context, col domain.Collection) (int, error) {
	elements, err := l.fetcher.FetchCollection(ctx, col)
	if err != nil {
		return 0, fmt.Errorf("bronze: load %s: %w", col, err)
	}

	records := make([]domain.RawRecord, 0, len(elements))
	for i, element := range elements {
		id, err := naturalID(element)
		if err != nil {
			// An element without its identifier is rejected outright; landing
			// it under a guessed key would poison every downstream layer.
			return 0, fmt.Errorf("bronze: load %s: element %d: %w", col, i, err)
		}
		records = append(records, domain.RawRecord{NaturalID: id, Payload: element})
	}

	count, err := l.raw.UpsertRawRecords(ctx, col, records)
	if err != nil {
		return 0, fmt.Errorf("bronze: load %s: %w", col, err)
	}
	l.logger.Printf("INFO: bronze: landed %d %s records", count, col)
	return count, nil
}

// naturalID extracts the source-assigned identifier from one raw element.
func naturalID(element json.RawMessage) (int64, error) {
	var keyed struct {
		ID *int64 `json:"id"`
	}
	if err := json.Unmarshal(element, &keyed); err != nil {
		return 0, fmt.Errorf("malformed element: %w", err)
	}
	if keyed.ID == nil || *keyed.ID == 0 {
		return 0, fmt.Errorf("element is missing its natural id")
	}
	return *keyed.ID, nil
}
