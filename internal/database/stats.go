package database

// GetStats returns aggregate row counts.
func (s Store) GetStats() (*Stats, error) {
	st := &Stats{}
	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM Forums", &st.Forums},
		{"SELECT COUNT(*) FROM Authors", &st.Authors},
		{"SELECT COUNT(*) FROM Threads", &st.Threads},
		{"SELECT COUNT(*) FROM Posts", &st.Posts},
		{"SELECT COUNT(*) FROM Posts WHERE HateRating >= 0.5 OR OffRating >= 0.5", &st.FlaggedPosts},
	}
	for _, q := range queries {
		if err := s.q.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, &PersistenceError{Op: "stats", Err: err}
		}
	}
	return st, nil
}
