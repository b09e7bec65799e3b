package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zjrosen/vgrid/internal/log"
)

// SeedTable is the table Seed fills.
const SeedTable = "records"

// Schema creates the demo table.
const Schema = `
CREATE TABLE IF NOT EXISTS records (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'open',
	priority INTEGER NOT NULL DEFAULT 2,
	score REAL NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
`

// Record is one row of the demo table.
type Record struct {
	ID        string
	Title     string
	Status    string
	Priority  int
	Score     float64
	Notes     string
	CreatedAt time.Time
}

// GenerateRecord returns the demo record for position i. Only the id is
// random.
func GenerateRecord(i int, base time.Time) Record {
	return Record{
		ID:        uuid.NewString(),
		Title:     words[i%len(words)] + " " + words[(i/len(words)+1)%len(words)],
		Status:    statuses[(i*7)%len(statuses)],
		Priority:  i % 5,
		Score:     float64((i*37)%1000) / 10,
		Notes:     notes(i),
		CreatedAt: base.Add(time.Duration(i) * time.Minute),
	}
}

// Seed creates the demo table in the database at path, creating the file if
// needed, and appends rows generated records.
func Seed(ctx context.Context, path string, rows int) error {
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	if err := SeedDB(ctx, db, rows); err != nil {
		return err
	}
	log.Info(log.CatDB, "Seeded database", "path", path, "rows", rows)
	return nil
}

// SeedDB creates the demo table in db and appends rows generated records in
// one transaction.
func SeedDB(ctx context.Context, db *sql.DB, rows int) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating %s: %w", SeedTable, err)
	}

	records := make([]Record, rows)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range records {
		records[i] = GenerateRecord(i, base)
	}
	return InsertRecords(ctx, db, records)
}

// InsertRecords appends records to the demo table in one transaction.
func InsertRecords(ctx context.Context, db *sql.DB, records []Record) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seeding %s: %w", SeedTable, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records
		(id, title, status, priority, score, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("seeding %s: %w", SeedTable, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx, r.ID, r.Title, r.Status, r.Priority, r.Score,
			strings.TrimSuffix(r.Notes, "\n"), r.CreatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("seeding %s: record %s: %w", SeedTable, r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seeding %s: %w", SeedTable, err)
	}
	return nil
}
