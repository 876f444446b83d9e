package models

// SnapshotCheckin is a check-in record with its surrogate ID and derived
// columns stripped: the ID is reassigned on insert and the date columns
// are regenerated from the timestamp.
type SnapshotCheckin struct {
	StudentID string    `json:"student_id"`
	EventType EventType `json:"event_type"`
	Timestamp Timestamp `json:"timestamp"`
}

// Snapshot is the interchange form of a whole store, used for backup,
// migration and merge workflows. Ordering matters on import: students,
// then events, then checkins, to satisfy referential dependencies.
type Snapshot struct {
	Students []Student         `json:"students"`
	Events   []Event           `json:"events"`
	Checkins []SnapshotCheckin `json:"checkins"`
}

// Counts summarises entity totals in a snapshot or store.
type Counts struct {
	Students int `json:"students"`
	Events   int `json:"events"`
	Checkins int `json:"checkins"`
}
