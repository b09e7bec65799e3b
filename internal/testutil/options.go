package testutil

import "time"

// recordData holds all data for a record to be inserted.
type recordData struct {
	id        string
	title     string
	status    string
	priority  int
	score     float64
	notes     string
	createdAt time.Time
}

// defaultRecord returns a recordData with sensible defaults.
func defaultRecord(id string) recordData {
	return recordData{
		id:        id,
		title:     id, // Default title is the ID
		status:    "open",
		priority:  2,
		createdAt: time.Now(),
	}
}

// RecordOption configures a record during builder setup.
type RecordOption func(*recordData)

// Title sets the record title.
func Title(title string) RecordOption {
	return func(r *recordData) { r.title = title }
}

// Status sets the record status.
func Status(status string) RecordOption {
	return func(r *recordData) { r.status = status }
}

// Priority sets the record priority (0-4).
func Priority(p int) RecordOption {
	return func(r *recordData) { r.priority = p }
}

// Score sets the record score.
func Score(s float64) RecordOption {
	return func(r *recordData) { r.score = s }
}

// Notes sets the record notes, usually multi-line markdown.
func Notes(n string) RecordOption {
	return func(r *recordData) { r.notes = n }
}

// CreatedAt sets the created_at timestamp.
func CreatedAt(t time.Time) RecordOption {
	return func(r *recordData) { r.createdAt = t }
}
