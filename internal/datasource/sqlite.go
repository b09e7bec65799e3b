package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/zjrosen/vgrid/internal/cachemanager"
	"github.com/zjrosen/vgrid/internal/grid"
	"github.com/zjrosen/vgrid/internal/log"
	"github.com/zjrosen/vgrid/internal/render"
)

const (
	// DefaultPageSize is the number of rows fetched per query.
	DefaultPageSize = 256

	// DefaultPageTTL is how long a fetched page is served from memory.
	DefaultPageTTL = time.Minute
)

var (
	// ErrNoTable is returned when the requested table does not exist.
	ErrNoTable = errors.New("table not found")

	// ErrNoColumns is returned for a table without columns.
	ErrNoColumns = errors.New("table has no columns")
)

// TableColumn is one column as reported by PRAGMA table_info.
type TableColumn struct {
	Name string
	Type string
	PK   bool
}

// PageKey identifies a cached page of rows.
type PageKey string

// Page is a run of rows, each a slice of column values.
type Page [][]any

// SQLiteOptions configures a SQLite source.
type SQLiteOptions struct {
	PageSize int
	PageTTL  time.Duration

	// Pages caches fetched row pages. Nil creates a private in-memory cache.
	Pages cachemanager.CacheManager[PageKey, Page]
}

// SQLite is a read-only table source. Rows are ordered by rowid and fetched
// a page at a time.
type SQLite struct {
	db      *sql.DB
	owned   bool
	table   string
	columns []TableColumn
	query   string

	pageSize int
	ttl      time.Duration
	pages    *cachemanager.ReadThroughCache[PageKey, Page, int]

	mu    sync.RWMutex
	count int
}

// OpenSQLite opens the database at path read-only and wraps table.
func OpenSQLite(ctx context.Context, path, table string, opts SQLiteOptions) (*SQLite, error) {
	log.Debug(log.CatDB, "Opening database", "path", path, "table", table)
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		log.ErrorErr(log.CatDB, "Failed to open database", err, "path", path)
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		log.ErrorErr(log.CatDB, "Failed to ping database", err, "path", path)
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	s, err := NewSQLite(ctx, db, table, opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.owned = true
	log.Info(log.CatDB, "Connected to database", "path", path, "table", table, "rows", s.Len())
	return s, nil
}

// NewSQLite wraps table in an open database. The caller keeps ownership of
// db.
func NewSQLite(ctx context.Context, db *sql.DB, table string, opts SQLiteOptions) (*SQLite, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.PageTTL <= 0 {
		opts.PageTTL = DefaultPageTTL
	}
	if opts.Pages == nil {
		opts.Pages = cachemanager.NewInMemoryCacheManager[PageKey, Page]("sqlite pages", opts.PageTTL, 2*opts.PageTTL)
	}

	columns, err := tableColumns(ctx, db, table)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = quoteIdent(c.Name)
	}

	s := &SQLite{
		db:       db,
		table:    table,
		columns:  columns,
		pageSize: opts.PageSize,
		ttl:      opts.PageTTL,
		//nolint:gosec // G201: identifiers are quoted, paging values are bound
		query: fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid LIMIT ? OFFSET ?",
			strings.Join(names, ", "), quoteIdent(table)),
	}
	s.pages = cachemanager.NewReadThroughCache(opts.Pages, s.fetchPage, false)
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// tableColumns reads the column list of table.
func tableColumns(ctx context.Context, db *sql.DB, table string) ([]TableColumn, error) {
	var name string
	err := db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNoTable, table)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up table %q: %w", table, err)
	}

	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(table)+")")
	if err != nil {
		return nil, fmt.Errorf("reading columns of %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var out []TableColumn
	for rows.Next() {
		var (
			cid     int
			col     TableColumn
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("reading columns of %q: %w", table, err)
		}
		col.PK = pk > 0
		out = append(out, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading columns of %q: %w", table, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoColumns, table)
	}
	return out, nil
}

// Reload recounts the rows and drops every cached page.
func (s *SQLite) Reload(ctx context.Context) error {
	var count int
	//nolint:gosec // G202: table identifier is quoted
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(s.table)).Scan(&count)
	if err != nil {
		return fmt.Errorf("counting rows of %q: %w", s.table, err)
	}
	s.mu.Lock()
	old := s.count
	s.count = count
	s.mu.Unlock()

	keys := make([]PageKey, 0, old/s.pageSize+1)
	for p := 0; p*s.pageSize < max(old, count); p++ {
		keys = append(keys, s.key(p))
	}
	if err := s.pages.Invalidate(ctx, keys...); err != nil {
		return fmt.Errorf("dropping cached pages: %w", err)
	}
	log.Debug(log.CatDB, "table reloaded", "table", s.table, "rows", count)
	return nil
}

func (s *SQLite) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// TableColumns returns the table's columns in declaration order.
func (s *SQLite) TableColumns() []TableColumn { return s.columns }

// Columns maps numeric columns to the number renderer, a status column to
// badges and long-text columns to markdown with auto height.
func (s *SQLite) Columns(width int) []grid.Column {
	out := make([]grid.Column, len(s.columns))
	for i, c := range s.columns {
		col := grid.Column{ID: c.Name, Title: c.Name, Width: width, Field: i}
		switch {
		case isNumeric(c.Type):
			col.Renderer = render.Named("number")
		case strings.EqualFold(c.Name, "status"):
			col.Renderer = render.Named("badge")
		case isLongText(c.Name):
			col.Renderer = render.Named("markdown")
			col.AutoHeight = true
		}
		out[i] = col
	}
	return out
}

// Value returns the value at row, col. Query errors are logged and read as
// nil so one bad page does not stop the frame.
func (s *SQLite) Value(row, col int) any {
	return s.ValueContext(context.Background(), row, col)
}

// ValueContext is Value with a context for the page query.
func (s *SQLite) ValueContext(ctx context.Context, row, col int) any {
	if row < 0 || row >= s.Len() || col < 0 || col >= len(s.columns) {
		return nil
	}
	n := row / s.pageSize
	p, err := s.pages.Get(ctx, s.key(n), n, s.ttl)
	if err != nil {
		log.ErrorErr(log.CatDB, "Failed to fetch page", err, "table", s.table, "page", n)
		return nil
	}
	i := row % s.pageSize
	if i >= len(p) || col >= len(p[i]) {
		return nil
	}
	return p[i][col]
}

func (s *SQLite) fetchPage(ctx context.Context, n int) (Page, error) {
	rows, err := s.db.QueryContext(ctx, s.query, s.pageSize, n*s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("fetching page %d of %q: %w", n, s.table, err)
	}
	defer func() { _ = rows.Close() }()

	out := make(Page, 0, s.pageSize)
	for rows.Next() {
		vals := make([]any, len(s.columns))
		ptrs := make([]any, len(vals))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("fetching page %d of %q: %w", n, s.table, err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetching page %d of %q: %w", n, s.table, err)
	}
	log.Debug(log.CatDB, "page fetched", "table", s.table, "page", n, "rows", len(out))
	return out, nil
}

func (s *SQLite) key(n int) PageKey {
	return PageKey(s.table + "#" + strconv.Itoa(n))
}

// Close closes the database if the source opened it.
func (s *SQLite) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func isNumeric(declared string) bool {
	t := strings.ToUpper(declared)
	return strings.Contains(t, "INT") || strings.Contains(t, "REAL") ||
		strings.Contains(t, "FLOA") || strings.Contains(t, "DOUB") || strings.Contains(t, "NUMERIC")
}

func isLongText(name string) bool {
	switch strings.ToLower(name) {
	case "notes", "description", "body", "content":
		return true
	}
	return false
}
