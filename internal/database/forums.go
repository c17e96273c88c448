package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// UpsertForum inserts the forum or refreshes its name, and sets f.ID to the
// persisted surrogate key.
func (s Store) UpsertForum(f *Forum) (int64, error) {
	if f.Key == "" {
		return 0, &PersistenceError{Op: "upsert forum", Err: fmt.Errorf("empty natural key")}
	}
	err := s.q.QueryRow(
		`INSERT INTO Forums (HLTVID, Name) VALUES (?, ?)
		ON CONFLICT(HLTVID) DO UPDATE SET Name = excluded.Name
		RETURNING ForumID`,
		f.Key, f.Name,
	).Scan(&f.ID)
	if err != nil {
		return 0, &PersistenceError{Op: "upsert forum " + f.Key, Err: err}
	}
	return f.ID, nil
}

// ForumByKey returns the forum with the given natural key, or nil if absent.
func (s Store) ForumByKey(key string) (*Forum, error) {
	var f Forum
	err := s.q.QueryRow(
		"SELECT ForumID, HLTVID, Name FROM Forums WHERE HLTVID = ?", key,
	).Scan(&f.ID, &f.Key, &f.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get forum " + key, Err: err}
	}
	return &f, nil
}

// ObservedForums returns the forums the scraper should crawl, in ForumID
// order. Rows whose natural key has no "/" (chat placeholders, malformed
// entries) are skipped.
func (s Store) ObservedForums() ([]Forum, error) {
	rows, err := s.q.Query("SELECT ForumID, HLTVID, Name FROM Forums ORDER BY ForumID")
	if err != nil {
		return nil, &PersistenceError{Op: "list forums", Err: err}
	}
	defer rows.Close()

	var forums []Forum
	for rows.Next() {
		var f Forum
		if err := rows.Scan(&f.ID, &f.Key, &f.Name); err != nil {
			return nil, &PersistenceError{Op: "list forums", Err: err}
		}
		if !strings.Contains(f.Key, "/") {
			continue
		}
		forums = append(forums, f)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "list forums", Err: err}
	}
	return forums, nil
}
