package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfpix/backend/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ItemRepository persists catalog items in PostgreSQL
type ItemRepository struct {
	pool *pgxpool.Pool
}

var _ domain.ItemRepository = (*ItemRepository)(nil)

// NewItemRepository creates a repository backed by the given pool
func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool}
}

const itemColumns = "id, title, brand, variant, size_value, size_unit, status, image_path, confidence, action, detected_text, brand_match, source_domain, source_url"

// GetByID fetches a single item
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	query, args, err := psql.
		Select(itemColumns).
		From("items").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	item, err := scanItem(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}

	return item, nil
}

// ListIDsByStatus returns the ids of all items in any of the given
// statuses, ordered by title for stable batch snapshots.
func (r *ItemRepository) ListIDsByStatus(ctx context.Context, statuses ...domain.ItemStatus) ([]string, error) {
	query, args, err := psql.
		Select("id").
		From("items").
		Where(sq.Eq{"status": statuses}).
		OrderBy("title", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list item ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ListByStatus returns up to limit items in the given status
func (r *ItemRepository) ListByStatus(ctx context.Context, status domain.ItemStatus, limit int) ([]domain.Item, error) {
	builder := psql.
		Select(itemColumns).
		From("items").
		Where(sq.Eq{"status": status}).
		OrderBy("title", "id")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}

	return items, rows.Err()
}

// UpdateOutcome commits an item's final processing state in one UPDATE.
// An interrupted process therefore never leaves an item half-written.
func (r *ItemRepository) UpdateOutcome(ctx context.Context, outcome domain.ItemOutcome) error {
	query, args, err := psql.
		Update("items").
		Set("status", outcome.Status).
		Set("image_path", nullable(outcome.ImagePath)).
		Set("confidence", outcome.Confidence).
		Set("action", nullable(string(outcome.Action))).
		Set("detected_text", nullable(outcome.DetectedText)).
		Set("brand_match", outcome.BrandMatch).
		Set("source_domain", nullable(outcome.SourceDomain)).
		Set("source_url", nullable(outcome.SourceURL)).
		Set("processed_at", time.Now().UTC()).
		Where(sq.Eq{"id": outcome.ItemID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update outcome for %s: %w", outcome.ItemID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}

	return nil
}

// CountByStatus returns how many items sit in each status
func (r *ItemRepository) CountByStatus(ctx context.Context) (map[domain.ItemStatus]int, error) {
	query, args, err := psql.
		Select("status", "count(*)").
		From("items").
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count items: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ItemStatus]int)
	for rows.Next() {
		var status domain.ItemStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[status] = n
	}

	return counts, rows.Err()
}

// nullable maps the empty string to SQL NULL
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanItem(row pgx.Row) (*domain.Item, error) {
	var (
		item         domain.Item
		brand        *string
		variant      *string
		sizeValue    *float64
		sizeUnit     *string
		imagePath    *string
		action       *string
		detectedText *string
		brandMatch   *bool
		sourceDomain *string
		sourceURL    *string
	)

	err := row.Scan(
		&item.ID, &item.Title, &brand, &variant, &sizeValue, &sizeUnit,
		&item.Status, &imagePath, &item.Confidence, &action, &detectedText,
		&brandMatch, &sourceDomain, &sourceURL,
	)
	if err != nil {
		return nil, err
	}

	item.Brand = deref(brand)
	item.Variant = deref(variant)
	if sizeValue != nil {
		item.SizeValue = *sizeValue
	}
	item.SizeUnit = deref(sizeUnit)
	item.ImagePath = deref(imagePath)
	item.Action = domain.ValidationAction(deref(action))
	item.DetectedText = deref(detectedText)
	if brandMatch != nil {
		item.BrandMatch = *brandMatch
	}
	item.SourceDomain = deref(sourceDomain)
	item.SourceURL = deref(sourceURL)

	return &item, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
