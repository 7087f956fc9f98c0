package adapters

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"sheetforge/internal/adapters/migrations"
	"sheetforge/internal/types"
)

const entryColumns = "id, module, system, category, version, metadata, raw_content, file_id"

// SQLiteStore persists content entries and installed modules in SQLite.
// Metadata is stored as JSON text so criteria can be pushed into the query.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path and applies
// migrations. ":memory:" opens a private in-memory database.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("database path is required")
	}
	memory := path == ":memory:"
	dsn := "file::memory:"
	if !memory {
		dsn = "file:" + filepath.Clean(path)
	}
	dsn += "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if !memory {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storeFailure("open sqlite db", err)
	}
	if memory {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, storeFailure("ping sqlite db", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, storeFailure("run migrations", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func storeFailure(action string, err error) error {
	code := errbuilder.CodeInternal
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_NOTNULL, sqlite3lib.SQLITE_CONSTRAINT_CHECK:
			code = errbuilder.CodeInvalidArgument
		}
	}
	return errbuilder.New().
		WithCode(code).
		WithMsg(action).
		WithCause(err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (types.Entry, error) {
	var entry types.Entry
	var category, metadata string
	if err := row.Scan(&entry.ID, &entry.Module, &entry.System, &category, &entry.Version, &metadata, &entry.RawContent, &entry.FileID); err != nil {
		return types.Entry{}, err
	}
	entry.Category = types.Category(category)
	if err := json.Unmarshal([]byte(metadata), &entry.Metadata); err != nil {
		return types.Entry{}, fmt.Errorf("decode metadata of %s: %w", entry.ID, err)
	}
	return entry, nil
}

func (s *SQLiteStore) GetEntry(ctx context.Context, id string) (types.Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM entries WHERE id = ?", id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Entry{}, false, nil
	}
	if err != nil {
		return types.Entry{}, false, storeFailure("get entry", err)
	}
	return entry, true, nil
}

// QueryEntries filters in SQL as far as the criteria allow and finishes in
// memory when the SQL filter is only a superset.
func (s *SQLiteStore) QueryEntries(ctx context.Context, query types.Query) ([]types.Entry, error) {
	var (
		where []string
		args  []any
	)
	if query.System != "" {
		where, args = append(where, "system = ?"), append(args, query.System)
	}
	if query.Category != "" {
		where, args = append(where, "category = ?"), append(args, string(query.Category))
	}
	if query.Module != "" {
		where, args = append(where, "module = ?"), append(args, query.Module)
	}
	switch query.Origin {
	case types.OriginGenerated:
		where, args = append(where, "substr(file_id, 1, ?) = ?"), append(args, len(types.GeneratedFilePrefix), types.GeneratedFilePrefix)
	case types.OriginAuthored:
		where, args = append(where, "substr(file_id, 1, ?) <> ?"), append(args, len(types.GeneratedFilePrefix), types.GeneratedFilePrefix)
	}
	exact := true
	if query.Criteria != nil {
		filter := compileCriteria(*query.Criteria, "$")
		where, args = append(where, "("+filter.clause+")"), append(args, filter.args...)
		exact = filter.exact
	}

	statement := "SELECT " + entryColumns + " FROM entries"
	if len(where) > 0 {
		statement += " WHERE " + strings.Join(where, " AND ")
	}
	statement += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, storeFailure("query entries", err)
	}
	defer rows.Close()

	var out []types.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, storeFailure("scan entry", err)
		}
		if !exact && !query.Criteria.MatchesEntry(entry) {
			continue
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFailure("query entries", err)
	}
	return out, nil
}

func (s *SQLiteStore) Mutate(ctx context.Context, tx types.Transaction) error {
	if tx.Empty() {
		return nil
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeFailure("begin transaction", err)
	}
	if err := mutate(ctx, sqlTx, tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return storeFailure("commit transaction", err)
	}
	return nil
}

func mutate(ctx context.Context, sqlTx *sql.Tx, tx types.Transaction) error {
	for _, id := range tx.Delete {
		if _, err := sqlTx.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id); err != nil {
			return storeFailure("delete entry "+id, err)
		}
	}
	for _, entry := range tx.Put {
		if strings.TrimSpace(entry.ID) == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("entry id is required")
		}
		metadata, err := json.Marshal(entry.Metadata)
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("metadata of %s is not JSON", entry.ID)).
				WithCause(err)
		}
		if _, err := sqlTx.ExecContext(ctx, `
INSERT INTO entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    module = excluded.module,
    system = excluded.system,
    category = excluded.category,
    version = excluded.version,
    metadata = excluded.metadata,
    raw_content = excluded.raw_content,
    file_id = excluded.file_id
`,
			entry.ID, entry.Module, entry.System, string(entry.Category), entry.Version,
			string(metadata), entry.RawContent, entry.FileID,
		); err != nil {
			return storeFailure("put entry "+entry.ID, err)
		}
	}
	return nil
}

func (s *SQLiteStore) GetModule(ctx context.Context, module string, system string) (types.ModuleRecord, bool, error) {
	record := types.ModuleRecord{Module: module, System: system}
	err := s.db.QueryRowContext(ctx,
		"SELECT version FROM modules WHERE module = ? AND system = ?", module, system,
	).Scan(&record.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ModuleRecord{}, false, nil
	}
	if err != nil {
		return types.ModuleRecord{}, false, storeFailure("get module", err)
	}
	return record, true, nil
}

func (s *SQLiteStore) PutModule(ctx context.Context, record types.ModuleRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO modules (module, system, version, installed_at) VALUES (?, ?, ?, ?)
ON CONFLICT(module, system) DO UPDATE SET
    version = excluded.version,
    installed_at = excluded.installed_at
`, record.Module, record.System, record.Version, time.Now().UTC().UnixMilli())
	if err != nil {
		return storeFailure("put module", err)
	}
	return nil
}

func (s *SQLiteStore) ListModules(ctx context.Context, system string) ([]types.ModuleRecord, error) {
	statement := "SELECT module, system, version FROM modules"
	var args []any
	if system != "" {
		statement += " WHERE system = ?"
		args = append(args, system)
	}
	statement += " ORDER BY module, system"
	rows, err := s.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, storeFailure("list modules", err)
	}
	defer rows.Close()
	var out []types.ModuleRecord
	for rows.Next() {
		var record types.ModuleRecord
		if err := rows.Scan(&record.Module, &record.System, &record.Version); err != nil {
			return nil, storeFailure("scan module", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFailure("list modules", err)
	}
	return out, nil
}

// sqlFilter is a criteria predicate over the metadata column. When exact is
// false the clause only narrows the candidates.
type sqlFilter struct {
	clause string
	args   []any
	exact  bool
}

var matchAll = sqlFilter{clause: "1", exact: false}

// leaf wraps a JSON1 test so it never yields NULL, which keeps NOT sound.
func leaf(clause string, args ...any) sqlFilter {
	return sqlFilter{clause: "COALESCE((" + clause + "), 0)", args: args, exact: true}
}

func propertyPath(path string, key string) (string, bool) {
	if key == "" || strings.ContainsAny(key, "\"\\") {
		return "", false
	}
	return path + `."` + key + `"`, true
}

func compileCriteria(c types.Criteria, path string) sqlFilter {
	switch c.Kind {
	case types.CriteriaExact:
		switch value := c.Value.(type) {
		case nil:
			return leaf("json_type(metadata, ?) = 'null'", path)
		case string:
			return leaf("json_type(metadata, ?) = 'text' AND json_extract(metadata, ?) = ?", path, path, value)
		case float64:
			return leaf("json_type(metadata, ?) IN ('integer', 'real') AND json_extract(metadata, ?) = ?", path, path, value)
		case bool:
			return leaf("json_type(metadata, ?) = ?", path, fmt.Sprint(value))
		default:
			return matchAll
		}
	case types.CriteriaContainsSubstring:
		return leaf("json_type(metadata, ?) = 'text' AND instr(json_extract(metadata, ?), ?) > 0", path, path, c.Text)
	case types.CriteriaMissingProperty:
		inner, ok := propertyPath(path, c.Key)
		if !ok {
			return matchAll
		}
		return leaf("json_type(metadata, ?) IS NULL", inner)
	case types.CriteriaContainsProperty:
		inner, ok := propertyPath(path, c.Key)
		if !ok || c.Sub == nil {
			return matchAll
		}
		sub := compileCriteria(*c.Sub, inner)
		present := leaf("json_type(metadata, ?) IS NOT NULL", inner)
		return sqlFilter{
			clause: "(" + present.clause + " AND " + sub.clause + ")",
			args:   append(present.args, sub.args...),
			exact:  sub.exact,
		}
	case types.CriteriaContainsElement:
		filter := leaf("json_type(metadata, ?) = 'array'", path)
		filter.exact = false
		return filter
	case types.CriteriaNot:
		if c.Sub == nil {
			return matchAll
		}
		sub := compileCriteria(*c.Sub, path)
		if !sub.exact {
			return matchAll
		}
		return sqlFilter{clause: "NOT (" + sub.clause + ")", args: sub.args, exact: true}
	case types.CriteriaAll:
		if len(c.Children) == 0 {
			return sqlFilter{clause: "1", exact: true}
		}
		out := sqlFilter{exact: true}
		parts := make([]string, 0, len(c.Children))
		for _, child := range c.Children {
			sub := compileCriteria(child, path)
			parts = append(parts, "("+sub.clause+")")
			out.args = append(out.args, sub.args...)
			out.exact = out.exact && sub.exact
		}
		out.clause = "(" + strings.Join(parts, " AND ") + ")"
		return out
	case types.CriteriaAny:
		if len(c.Children) == 0 {
			return sqlFilter{clause: "0", exact: true}
		}
		out := sqlFilter{exact: true}
		parts := make([]string, 0, len(c.Children))
		for _, child := range c.Children {
			sub := compileCriteria(child, path)
			if !sub.exact {
				return matchAll
			}
			parts = append(parts, "("+sub.clause+")")
			out.args = append(out.args, sub.args...)
		}
		out.clause = "(" + strings.Join(parts, " OR ") + ")"
		return out
	default:
		return matchAll
	}
}
