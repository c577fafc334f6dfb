// Package store persists extraction runs into a SQL definition index so
// definitions can be looked up across runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver ("pgx")
	_ "github.com/lib/pq"              // PostgreSQL driver ("postgres")
	_ "github.com/mattn/go-sqlite3"    // SQLite driver ("sqlite3")

	"github.com/conduit-lang/declmeta/internal/compiler/metadata"
	"github.com/conduit-lang/declmeta/internal/compiler/proptree"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Run is one persisted extraction.
type Run struct {
	ID        uuid.UUID
	Source    string
	CreatedAt time.Time
}

// Definition is one Definition or Import node of a run, flattened.
type Definition struct {
	RunID       uuid.UUID
	FullName    string
	Name        string
	Element     string // Definition or Import
	Type        string
	Line        int
	InheritType string
	Exported    bool
	Shared      bool
	Parent      string // full name of the enclosing definition, empty at top level
}

// Store is a definition index backed by database/sql.
type Store struct {
	db       *sql.DB
	postgres bool
	now      func() time.Time
	newID    func() uuid.UUID
}

// Open opens the index with one of the sqlite3, postgres or pgx drivers.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case "sqlite3", "postgres", "pgx":
	default:
		return nil, fmt.Errorf("unsupported index driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	if driver == "sqlite3" {
		// sqlite serialises writers; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	return New(db, driver), nil
}

// New wraps an open database. driver selects the placeholder dialect.
func New(db *sql.DB, driver string) *Store {
	return &Store{
		db:       db,
		postgres: driver == "postgres" || driver == "pgx",
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.New,
	}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites "?" placeholders as "$n" for PostgreSQL.
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
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

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS definitions (
	run_id TEXT NOT NULL REFERENCES runs(id),
	seq INTEGER NOT NULL,
	fullname TEXT NOT NULL,
	name TEXT NOT NULL,
	element TEXT NOT NULL,
	type TEXT NOT NULL,
	line INTEGER NOT NULL,
	inherit_type TEXT NOT NULL,
	exported BOOLEAN NOT NULL,
	shared BOOLEAN NOT NULL,
	parent TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_definitions_fullname ON definitions(fullname)`,
	`CREATE INDEX IF NOT EXISTS idx_definitions_run ON definitions(run_id)`,
}

// Migrate creates the tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate index: %w", err)
		}
	}
	return nil
}

// Flatten lists the Definition and Import nodes under root in document
// order, each with the full name of its enclosing definition.
func Flatten(root *proptree.Node) []Definition {
	var out []Definition
	var visit func(n *proptree.Node, parent string)
	visit = func(n *proptree.Node, parent string) {
		for _, c := range n.Children() {
			switch c.Name() {
			case metadata.ElemDefinition, metadata.ElemImport:
				d := Definition{
					FullName:    c.String(metadata.AttrFullName),
					Name:        c.String(metadata.AttrName),
					Element:     c.Name(),
					Type:        c.String(metadata.PropType),
					Line:        c.Int(metadata.AttrLine),
					InheritType: c.String(metadata.AttrInheritType),
					Exported:    c.Bool(metadata.AttrExported),
					Shared:      c.Bool(metadata.AttrShared),
					Parent:      parent,
				}
				out = append(out, d)
				visit(c, d.FullName)
			case metadata.ElemDocumentation, metadata.ElemParents, metadata.ElemParams:
				// not definitions
			default:
				visit(c, parent)
			}
		}
	}
	if root != nil {
		visit(root, "")
	}
	return out
}

// SaveRun stores every definition of root as a new run and returns its id.
func (s *Store) SaveRun(ctx context.Context, source string, root *proptree.Node) (uuid.UUID, error) {
	id := s.newID()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO runs (id, source, created_at) VALUES (?, ?, ?)`),
		id.String(), source, s.now()); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert run: %w", err)
	}

	insert := s.rebind(`INSERT INTO definitions
	(run_id, seq, fullname, name, element, type, line, inherit_type, exported, shared, parent)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for i, d := range Flatten(root) {
		if _, err := tx.ExecContext(ctx, insert,
			id.String(), i, d.FullName, d.Name, d.Element, d.Type, d.Line,
			d.InheritType, d.Exported, d.Shared, d.Parent); err != nil {
			return uuid.Nil, fmt.Errorf("failed to insert definition %s: %w", d.FullName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

const definitionColumns = `d.run_id, d.fullname, d.name, d.element, d.type, d.line, d.inherit_type, d.exported, d.shared, d.parent`

// Lookup finds definitions whose full name or identifier equals name,
// ignoring case, newest run first.
func (s *Store) Lookup(ctx context.Context, name string) ([]Definition, error) {
	query := s.rebind(`SELECT ` + definitionColumns + `
FROM definitions d JOIN runs r ON r.id = d.run_id
WHERE LOWER(d.fullname) = LOWER(?) OR LOWER(d.name) = LOWER(?)
ORDER BY r.created_at DESC, d.seq ASC`)
	defs, err := s.queryDefinitions(ctx, query, name, name)
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("definition %q: %w", name, ErrNotFound)
	}
	return defs, nil
}

// Definitions returns the definitions of a run in stored order.
func (s *Store) Definitions(ctx context.Context, runID uuid.UUID) ([]Definition, error) {
	query := s.rebind(`SELECT ` + definitionColumns + `
FROM definitions d
WHERE d.run_id = ?
ORDER BY d.seq ASC`)
	defs, err := s.queryDefinitions(ctx, query, runID.String())
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return defs, nil
}

func (s *Store) queryDefinitions(ctx context.Context, query string, args ...interface{}) ([]Definition, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query definitions: %w", err)
	}
	defer rows.Close()

	var defs []Definition
	for rows.Next() {
		var d Definition
		var runID string
		if err := rows.Scan(&runID, &d.FullName, &d.Name, &d.Element, &d.Type, &d.Line,
			&d.InheritType, &d.Exported, &d.Shared, &d.Parent); err != nil {
			return nil, fmt.Errorf("failed to scan definition: %w", err)
		}
		if d.RunID, err = uuid.Parse(runID); err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", runID, err)
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read definitions: %w", err)
	}
	return defs, nil
}

// Runs lists every run, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, source, created_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var id string
		if err := rows.Scan(&id, &r.Source, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", id, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}
