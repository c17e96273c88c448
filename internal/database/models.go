package database

import "time"

// Forum is an observed forum section. Key is the natural key, e.g. "17/off-topic".
type Forum struct {
	ID   int64
	Key  string
	Name string
}

// Author is a forum account or chat user. Name is last-seen-wins.
type Author struct {
	ID   int64
	Key  string
	Name string
}

// Thread is a forum thread. ForumID and AuthorID must reference persisted rows.
type Thread struct {
	ID           int64
	Key          string
	ForumID      int64
	AuthorID     int64
	Title        string
	NumResponses int
	Time         time.Time
}

// Post is a single thread item. The root post has ReplyNum 0 and shares the
// thread's natural key.
type Post struct {
	ID         int64
	Key        string
	ThreadID   int64
	AuthorID   int64
	ReplyNum   int
	Content    string
	Time       time.Time
	HateRating float64
	OffRating  float64
}

// Stats contains aggregate row counts.
type Stats struct {
	Forums  int
	Authors int
	Threads int
	Posts   int
	// FlaggedPosts counts posts whose hate or offensive rating is at least 0.5.
	FlaggedPosts int
}

// timeLayout is how timestamps are stored in TEXT columns, in UTC.
const timeLayout = "2006-01-02 15:04:05"

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s *string) time.Time {
	if s == nil || *s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, *s)
	if err != nil {
		return time.Time{}
	}
	return t
}
