package testutil

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Builder accumulates records and inserts them in order, so rowid order
// matches the order they were added.
type Builder struct {
	t       *testing.T
	db      *sql.DB
	records []recordData
}

// NewBuilder creates a builder for the given test database.
func NewBuilder(t *testing.T, db *sql.DB) *Builder {
	t.Helper()
	return &Builder{t: t, db: db}
}

// WithRecord adds a record with optional configuration.
func (b *Builder) WithRecord(id string, opts ...RecordOption) *Builder {
	r := defaultRecord(id)
	for _, opt := range opts {
		opt(&r)
	}
	b.records = append(b.records, r)
	return b
}

// WithRecords adds n records with ids "rec-0" through "rec-<n-1>" and
// titles "title <i>".
func (b *Builder) WithRecords(n int) *Builder {
	for i := 0; i < n; i++ {
		b.WithRecord(fmt.Sprintf("rec-%d", i), Title(fmt.Sprintf("title %d", i)), Priority(i%5))
	}
	return b
}

// Build inserts all accumulated records into the database.
func (b *Builder) Build() {
	b.t.Helper()
	for _, r := range b.records {
		b.insertRecord(r)
	}
}

func (b *Builder) insertRecord(r recordData) {
	b.t.Helper()
	_, err := b.db.Exec(
		`INSERT INTO records (id, title, status, priority, score, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.id, r.title, r.status, r.priority, r.score, r.notes, r.createdAt.UTC().Format(time.RFC3339),
	)
	require.NoError(b.t, err)
}
