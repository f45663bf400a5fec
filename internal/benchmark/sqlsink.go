package benchmark

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dbsmedya/cdr3net/internal/sqlutil"
)

var sqlColumns = []string{"nstrings", "ncores", "spark", "type", "min_ld", "max_ld", "dt", "recorded_at"}

// SQLSink mirrors records into a MySQL table. It does not own the database.
type SQLSink struct {
	db     *sql.DB
	insert string
}

// NewSQLSink creates the results table if needed and prepares the sink.
func NewSQLSink(ctx context.Context, db *sql.DB, table string) (*SQLSink, error) {
	quoted, err := sqlutil.QuoteTableName(table)
	if err != nil {
		return nil, err
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  nstrings BIGINT NOT NULL,
  ncores INT NOT NULL,
  spark BOOLEAN NOT NULL,
  type VARCHAR(16) NOT NULL,
  min_ld INT NOT NULL,
  max_ld INT NOT NULL,
  dt DOUBLE NOT NULL,
  recorded_at DATETIME(6) NOT NULL
)`, quoted)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("failed to create results table %s: %w", table, err)
	}

	quotedCols := make([]string, len(sqlColumns))
	for i, c := range sqlColumns {
		quotedCols[i] = sqlutil.QuoteIdentifier(c)
	}
	return &SQLSink{
		db: db,
		insert: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoted, strings.Join(quotedCols, ", "), sqlutil.Placeholders(len(sqlColumns))),
	}, nil
}

// Write inserts one record.
func (s *SQLSink) Write(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx, s.insert,
		r.NStrings, r.NCores, r.Distributed, r.Type, r.MinLD, r.MaxLD, r.Elapsed.Seconds(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert benchmark record: %w", err)
	}
	return nil
}

// Close is a no-op; the caller owns the database.
func (s *SQLSink) Close() error {
	return nil
}
