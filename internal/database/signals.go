package database

import "database/sql"

// Recognized signal names.
const (
	SignalEnd     = "End"
	SignalRefresh = "Refresh"
)

// DefaultRefreshMinutes applies when the Refresh signal is absent or not positive.
const DefaultRefreshMinutes = 30

// GetSignal reads a signal. ok is false when no row exists.
func (s Store) GetSignal(name string) (value int, ok bool, err error) {
	err = s.q.QueryRow("SELECT Value FROM Signals WHERE SignalName = ?", name).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, &PersistenceError{Op: "get signal " + name, Err: err}
	}
	return value, true, nil
}

// SetSignal writes a signal, creating the row if needed.
func (s Store) SetSignal(name string, value int) error {
	_, err := s.q.Exec(
		`INSERT INTO Signals (SignalName, Value) VALUES (?, ?)
		ON CONFLICT(SignalName) DO UPDATE SET Value = excluded.Value`,
		name, value,
	)
	if err != nil {
		return &PersistenceError{Op: "set signal " + name, Err: err}
	}
	return nil
}

// SeedSignal writes a signal only if it does not exist yet.
func (s Store) SeedSignal(name string, value int) error {
	_, err := s.q.Exec(
		"INSERT INTO Signals (SignalName, Value) VALUES (?, ?) ON CONFLICT(SignalName) DO NOTHING",
		name, value,
	)
	if err != nil {
		return &PersistenceError{Op: "seed signal " + name, Err: err}
	}
	return nil
}

// RequestEnd sets or clears the shutdown request.
func (s Store) RequestEnd(enable bool) error {
	v := 0
	if enable {
		v = 1
	}
	return s.SetSignal(SignalEnd, v)
}

// EndRequested reports whether shutdown was requested. A missing End row is
// treated as a request: the scanner writes the row on startup, so its absence
// means the control table was wiped underneath a running process.
func (s Store) EndRequested() (bool, error) {
	v, ok, err := s.GetSignal(SignalEnd)
	if err != nil {
		return false, err
	}
	return !ok || v != 0, nil
}

// RefreshMinutes returns the configured minutes between refresh cycles.
func (s Store) RefreshMinutes() (int, error) {
	v, ok, err := s.GetSignal(SignalRefresh)
	if err != nil {
		return 0, err
	}
	if !ok || v <= 0 {
		return DefaultRefreshMinutes, nil
	}
	return v, nil
}
