package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Reminder struct {
	ID        string
	GuildID   string
	ChannelID string
	UserID    string
	Message   string
	DueAt     time.Time
	Sent      bool
	CreatedAt time.Time
}

func (s *Store) AddReminder(ctx context.Context, reminder Reminder) (Reminder, error) {
	if reminder.ID == "" {
		reminder.ID = uuid.NewString()
	}
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO reminders (id, guild_id, channel_id, user_id, message, due_at, sent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), reminder.ID, reminder.GuildID, reminder.ChannelID, reminder.UserID, reminder.Message, reminder.DueAt.Unix(), boolToInt(reminder.Sent), reminder.CreatedAt.Unix())
	if err != nil {
		return Reminder{}, err
	}
	return reminder, nil
}

// DueReminders returns unsent reminders due at or before now, oldest first.
func (s *Store) DueReminders(ctx context.Context, now time.Time, limit int) ([]Reminder, error) {
	return s.queryReminders(ctx, `
		SELECT id, guild_id, channel_id, user_id, message, due_at, sent, created_at
		FROM reminders WHERE sent = 0 AND due_at <= ?
		ORDER BY due_at LIMIT ?
	`, now.Unix(), limit)
}

func (s *Store) ListReminders(ctx context.Context, guildID, userID string) ([]Reminder, error) {
	return s.queryReminders(ctx, `
		SELECT id, guild_id, channel_id, user_id, message, due_at, sent, created_at
		FROM reminders WHERE guild_id = ? AND user_id = ? AND sent = 0
		ORDER BY due_at
	`, guildID, userID)
}

func (s *Store) MarkReminderSent(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`UPDATE reminders SET sent = 1 WHERE id = ?`), id)
	return err
}

// DeleteReminder removes a pending reminder owned by userID.
func (s *Store) DeleteReminder(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM reminders WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) queryReminders(ctx context.Context, query string, args ...any) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		var r Reminder
		var due, created int64
		var sent int
		if err := rows.Scan(&r.ID, &r.GuildID, &r.ChannelID, &r.UserID, &r.Message, &due, &sent, &created); err != nil {
			return nil, err
		}
		r.DueAt = time.Unix(due, 0)
		r.CreatedAt = time.Unix(created, 0)
		r.Sent = sent == 1
		out = append(out, r)
	}
	return out, rows.Err()
}
