package database

import (
	"database/sql"
	"fmt"
)

// UpsertAuthor inserts the author or updates the name to the one last seen,
// and sets a.ID to the persisted surrogate key.
func (s Store) UpsertAuthor(a *Author) (int64, error) {
	if a.Key == "" {
		return 0, &PersistenceError{Op: "upsert author", Err: fmt.Errorf("empty natural key")}
	}
	err := s.q.QueryRow(
		`INSERT INTO Authors (HLTVID, Name) VALUES (?, ?)
		ON CONFLICT(HLTVID) DO UPDATE SET Name = excluded.Name
		RETURNING AuthorID`,
		a.Key, a.Name,
	).Scan(&a.ID)
	if err != nil {
		return 0, &PersistenceError{Op: "upsert author " + a.Key, Err: err}
	}
	return a.ID, nil
}

// AuthorByKey returns the author with the given natural key, or nil if absent.
func (s Store) AuthorByKey(key string) (*Author, error) {
	var a Author
	err := s.q.QueryRow(
		"SELECT AuthorID, HLTVID, Name FROM Authors WHERE HLTVID = ?", key,
	).Scan(&a.ID, &a.Key, &a.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get author " + key, Err: err}
	}
	return &a, nil
}
