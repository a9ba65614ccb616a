package history

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pps-player/tablewatch/internal/table"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

var schema = map[dialect][]string{
	dialectSQLite: {
		`CREATE TABLE IF NOT EXISTS table_status (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			store_id TEXT NOT NULL,
			table_name TEXT NOT NULL,
			user_name TEXT NOT NULL,
			start_time BIGINT NOT NULL,
			end_time BIGINT NOT NULL,
			remaining_seconds BIGINT NOT NULL,
			status TEXT NOT NULL,
			ingested_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS table_status_latest
			ON table_status (store_id, table_name, ingested_at DESC, id DESC)`,
	},
	dialectPostgres: {
		`CREATE TABLE IF NOT EXISTS table_status (
			id BIGSERIAL PRIMARY KEY,
			store_id TEXT NOT NULL,
			table_name TEXT NOT NULL,
			user_name TEXT NOT NULL,
			start_time BIGINT NOT NULL,
			end_time BIGINT NOT NULL,
			remaining_seconds BIGINT NOT NULL,
			status TEXT NOT NULL,
			ingested_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS table_status_latest
			ON table_status (store_id, table_name, ingested_at DESC, id DESC)`,
	},
}

const entryColumns = `id, store_id, table_name, user_name, start_time, end_time, remaining_seconds, status, ingested_at`

const (
	insertEntry = `INSERT INTO table_status
		(store_id, table_name, user_name, start_time, end_time, remaining_seconds, status, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`

	selectLatest = `SELECT ` + entryColumns + ` FROM table_status t
		WHERE t.store_id = ? AND t.id = (
			SELECT s.id FROM table_status s
			WHERE s.store_id = t.store_id AND s.table_name = t.table_name
			ORDER BY s.ingested_at DESC, s.id DESC
			LIMIT 1)
		ORDER BY t.table_name`

	selectHistory = `SELECT ` + entryColumns + ` FROM table_status
		WHERE store_id = ? AND table_name = ?
		ORDER BY ingested_at DESC, id DESC
		LIMIT ?`
)

// SQLStore is a Store on database/sql, backed by SQLite or PostgreSQL.
// Timestamps are stored as unix nanoseconds.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

// Migrate creates the history table and its index if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema[s.dialect] {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Append(ctx context.Context, storeID string, rec table.Record) (table.Entry, error) {
	e := table.Entry{StoreID: storeID, IngestedAt: s.now(), Record: rec}
	err := s.db.QueryRowContext(ctx, s.rebind(insertEntry),
		storeID,
		rec.TableName,
		rec.UserName,
		rec.StartTime.UnixNano(),
		rec.EndTime.UnixNano(),
		rec.RemainingSeconds,
		rec.Status.String(),
		e.IngestedAt.UnixNano(),
	).Scan(&e.ID)
	if err != nil {
		return table.Entry{}, fmt.Errorf("append %s/%s: %w", storeID, rec.TableName, err)
	}
	return e, nil
}

func (s *SQLStore) Latest(ctx context.Context, storeID string) ([]table.Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(selectLatest), storeID)
	if err != nil {
		return nil, fmt.Errorf("latest %s: %w", storeID, err)
	}
	return scanEntries(rows)
}

func (s *SQLStore) LatestByTable(ctx context.Context, storeID string) (table.Snapshot, error) {
	entries, err := s.Latest(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return table.SnapshotOf(entries), nil
}

func (s *SQLStore) History(ctx context.Context, storeID, tableName string, limit int) ([]table.Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(selectHistory), storeID, tableName, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("history %s/%s: %w", storeID, tableName, err)
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]table.Entry, error) {
	defer rows.Close()
	var entries []table.Entry
	for rows.Next() {
		var (
			e                    table.Entry
			start, end, ingested int64
			status               string
		)
		if err := rows.Scan(&e.ID, &e.StoreID, &e.TableName, &e.UserName,
			&start, &end, &e.RemainingSeconds, &status, &ingested); err != nil {
			return nil, err
		}
		st, err := table.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		e.Status = st
		e.StartTime = time.Unix(0, start)
		e.EndTime = time.Unix(0, end)
		e.IngestedAt = time.Unix(0, ingested)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// rebind rewrites ? placeholders to $n for PostgreSQL. The queries above
// contain no literal question marks.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
