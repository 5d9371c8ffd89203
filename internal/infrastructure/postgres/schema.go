package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS items (
  id            text PRIMARY KEY,
  title         text NOT NULL,
  brand         text,
  variant       text,
  size_value    double precision,
  size_unit     text,
  status        text NOT NULL DEFAULT 'not_processed',
  image_path    text,
  confidence    double precision,
  action        text,
  detected_text text,
  brand_match   boolean NOT NULL DEFAULT false,
  source_domain text,
  source_url    text,
  processed_at  timestamptz
);

CREATE INDEX IF NOT EXISTS items_status_idx ON items (status);
`

// EnsureSchema creates the items table and indexes if missing so a
// fresh database is usable without a separate migration step.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
