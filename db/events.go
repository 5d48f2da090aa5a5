package db

import "time"

// MarkEventSeen records a webhook event id and reports whether it was new.
// Replayed deliveries of the same id return false.
func (s *Store) MarkEventSeen(id string) (bool, error) {
	res, err := s.Exec(`
		INSERT OR IGNORE INTO events (id, received_at) VALUES (?, ?)
	`, id, time.Now().UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
