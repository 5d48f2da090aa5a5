package db

import (
	"database/sql"
	"time"
)

func (s *Store) UpsertCommand(name, response, createdBy string) error {
	_, err := s.Exec(`
		INSERT INTO commands (name, response, created_by, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			response = excluded.response,
			updated_at = excluded.updated_at
	`, name, response, createdBy, time.Now().UTC())
	return err
}

// GetCommand returns the stored response for name, or "" and false when the
// command does not exist.
func (s *Store) GetCommand(name string) (string, bool, error) {
	var response string
	err := s.QueryRow(`SELECT response FROM commands WHERE name = ?`, name).Scan(&response)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return response, true, nil
}

func (s *Store) DeleteCommand(name string) error {
	_, err := s.Exec(`DELETE FROM commands WHERE name = ?`, name)
	return err
}

func (s *Store) ListCommands() ([]string, error) {
	rows, err := s.Query(`SELECT name FROM commands ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
