package database

import (
	"database/sql"
	"fmt"
)

// UpsertPost inserts the post or updates its mutable fields, and sets p.ID to
// the persisted surrogate key. The thread and author must already be
// persisted.
func (s Store) UpsertPost(p *Post) (int64, error) {
	if p.Key == "" {
		return 0, &PersistenceError{Op: "upsert post", Err: fmt.Errorf("empty natural key")}
	}
	err := s.q.QueryRow(
		`INSERT INTO Posts (HLTVID, ThreadID, AuthorID, ReplyNum, Content, Time, HateRating, OffRating)
		VALUES (?, ?, ?, ?, ?, COALESCE(?, datetime('now')), ?, ?)
		ON CONFLICT(HLTVID) DO UPDATE SET
			ThreadID = excluded.ThreadID,
			AuthorID = excluded.AuthorID,
			ReplyNum = excluded.ReplyNum,
			Content = excluded.Content,
			Time = excluded.Time,
			HateRating = excluded.HateRating,
			OffRating = excluded.OffRating
		RETURNING PostID`,
		p.Key, p.ThreadID, p.AuthorID, p.ReplyNum, p.Content, formatTime(p.Time), p.HateRating, p.OffRating,
	).Scan(&p.ID)
	if err != nil {
		return 0, &PersistenceError{Op: "upsert post " + p.Key, Err: err}
	}
	return p.ID, nil
}

// PostByKey returns the post with the given natural key, or nil if absent.
func (s Store) PostByKey(key string) (*Post, error) {
	rows, err := s.q.Query(postSelect+" WHERE HLTVID = ?", key)
	if err != nil {
		return nil, &PersistenceError{Op: "get post " + key, Err: err}
	}
	defer rows.Close()
	posts, err := scanPosts(rows)
	if err != nil {
		return nil, &PersistenceError{Op: "get post " + key, Err: err}
	}
	if len(posts) == 0 {
		return nil, nil
	}
	return &posts[0], nil
}

// PostsForThread returns a thread's posts ordered by ReplyNum.
func (s Store) PostsForThread(threadID int64) ([]Post, error) {
	rows, err := s.q.Query(postSelect+" WHERE ThreadID = ? ORDER BY ReplyNum, PostID", threadID)
	if err != nil {
		return nil, &PersistenceError{Op: "list posts", Err: err}
	}
	defer rows.Close()
	posts, err := scanPosts(rows)
	if err != nil {
		return nil, &PersistenceError{Op: "list posts", Err: err}
	}
	return posts, nil
}

const postSelect = `SELECT PostID, HLTVID, ThreadID, AuthorID, ReplyNum, Content, Time, HateRating, OffRating FROM Posts`

func scanPosts(rows *sql.Rows) ([]Post, error) {
	var posts []Post
	for rows.Next() {
		var p Post
		var ts *string
		if err := rows.Scan(&p.ID, &p.Key, &p.ThreadID, &p.AuthorID, &p.ReplyNum,
			&p.Content, &ts, &p.HateRating, &p.OffRating); err != nil {
			return nil, err
		}
		p.Time = parseTime(ts)
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
