package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewTestDB_CreatesSchema(t *testing.T) {
	db := NewTestDB(t)

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='records'`).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestBuilder_WithRecord(t *testing.T) {
	db := NewTestDB(t)

	NewBuilder(t, db).WithRecord("rec-1").Build()

	var id, title, status string
	var priority int
	err := db.QueryRow(`SELECT id, title, status, priority FROM records WHERE id = ?`, "rec-1").
		Scan(&id, &title, &status, &priority)
	require.NoError(t, err)
	require.Equal(t, "rec-1", title, "default title is the id")
	require.Equal(t, "open", status)
	require.Equal(t, 2, priority)
}

func TestBuilder_WithRecord_AllOptions(t *testing.T) {
	db := NewTestDB(t)
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	NewBuilder(t, db).
		WithRecord("rec-1",
			Title("My Title"),
			Status("blocked"),
			Priority(0),
			Score(3.5),
			Notes("line one\nline two"),
			CreatedAt(created),
		).
		Build()

	var title, status, notes, createdAt string
	var priority int
	var score float64
	err := db.QueryRow(`SELECT title, status, priority, score, notes, created_at FROM records`).
		Scan(&title, &status, &priority, &score, &notes, &createdAt)
	require.NoError(t, err)
	require.Equal(t, "My Title", title)
	require.Equal(t, "blocked", status)
	require.Equal(t, 0, priority)
	require.InDelta(t, 3.5, score, 1e-9)
	require.Equal(t, "line one\nline two", notes)
	require.Equal(t, "2024-03-01T12:00:00Z", createdAt)
}

func TestBuilder_PreservesOrder(t *testing.T) {
	db := NewTestDB(t)

	NewBuilder(t, db).WithStandardTestData().WithRecords(3).Build()

	rows, err := db.Query(`SELECT id FROM records ORDER BY rowid`)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{"rec-a", "rec-b", "rec-c", "rec-d", "rec-0", "rec-1", "rec-2"}, ids)
}
