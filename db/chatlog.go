package db

import "time"

type LoggedMessage struct {
	ID          string    `json:"id"`
	Channel     string    `json:"channel"`
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Text        string    `json:"text"`
	Whisper     bool      `json:"whisper"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *Store) LogMessage(id, channel, userID, displayName, text string, whisper bool) error {
	_, err := s.Exec(`
		INSERT INTO messages (id, channel, user_id, display_name, text, whisper, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, channel, userID, displayName, text, whisper, time.Now().UTC())
	return err
}

func (s *Store) RecentMessages(channel string, limit int) ([]LoggedMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := s.Query(`
		SELECT id, channel, user_id, display_name, text, whisper, created_at
		FROM messages WHERE channel = ?
		ORDER BY created_at DESC LIMIT ?
	`, channel, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []LoggedMessage
	for rows.Next() {
		var m LoggedMessage
		if err := rows.Scan(&m.ID, &m.Channel, &m.UserID, &m.DisplayName, &m.Text, &m.Whisper, &m.CreatedAt); err != nil {
			continue
		}
		messages = append(messages, m)
	}

	// Reverse to chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
