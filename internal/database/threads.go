package database

import (
	"database/sql"
	"fmt"
)

// UpsertThread inserts the thread or updates its mutable fields, and sets t.ID
// to the persisted surrogate key. The forum and author must already be
// persisted.
//
// NumResponses never decreases: a partial crawl that collected fewer posts
// keeps the larger stored count.
func (s Store) UpsertThread(t *Thread) (int64, error) {
	if t.Key == "" {
		return 0, &PersistenceError{Op: "upsert thread", Err: fmt.Errorf("empty natural key")}
	}
	err := s.q.QueryRow(
		`INSERT INTO Threads (HLTVID, ForumID, AuthorID, Title, NumResponses, Time)
		VALUES (?, ?, ?, ?, ?, COALESCE(?, datetime('now')))
		ON CONFLICT(HLTVID) DO UPDATE SET
			AuthorID = excluded.AuthorID,
			Title = excluded.Title,
			NumResponses = MAX(Threads.NumResponses, excluded.NumResponses),
			Time = excluded.Time
		RETURNING ThreadID`,
		t.Key, t.ForumID, t.AuthorID, t.Title, t.NumResponses, formatTime(t.Time),
	).Scan(&t.ID)
	if err != nil {
		return 0, &PersistenceError{Op: "upsert thread " + t.Key, Err: err}
	}
	return t.ID, nil
}

// SeedThread inserts the thread if it is new. For an existing thread only the
// title is refreshed; its time, author and response count are kept. t.ID is
// set to the persisted surrogate key.
func (s Store) SeedThread(t *Thread) (int64, error) {
	if t.Key == "" {
		return 0, &PersistenceError{Op: "seed thread", Err: fmt.Errorf("empty natural key")}
	}
	err := s.q.QueryRow(
		`INSERT INTO Threads (HLTVID, ForumID, AuthorID, Title, NumResponses, Time)
		VALUES (?, ?, ?, ?, ?, COALESCE(?, datetime('now')))
		ON CONFLICT(HLTVID) DO UPDATE SET Title = excluded.Title
		RETURNING ThreadID`,
		t.Key, t.ForumID, t.AuthorID, t.Title, t.NumResponses, formatTime(t.Time),
	).Scan(&t.ID)
	if err != nil {
		return 0, &PersistenceError{Op: "seed thread " + t.Key, Err: err}
	}
	return t.ID, nil
}

// ThreadByKey returns the thread with the given natural key, or nil if absent.
func (s Store) ThreadByKey(key string) (*Thread, error) {
	var t Thread
	var ts *string
	err := s.q.QueryRow(
		`SELECT ThreadID, HLTVID, ForumID, AuthorID, Title, NumResponses, Time
		FROM Threads WHERE HLTVID = ?`, key,
	).Scan(&t.ID, &t.Key, &t.ForumID, &t.AuthorID, &t.Title, &t.NumResponses, &ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get thread " + key, Err: err}
	}
	t.Time = parseTime(ts)
	return &t, nil
}
