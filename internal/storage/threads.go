package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type ThreadStatus string

const (
	ThreadOpen     ThreadStatus = "open"
	ThreadResolved ThreadStatus = "resolved"
	ThreadClosed   ThreadStatus = "closed"
)

type SupportThread struct {
	ThreadID       string
	GuildID        string
	ForumID        string
	OwnerID        string
	Status         ThreadStatus
	CreatedAt      time.Time
	LastActivityAt time.Time
	RemindedAt     *time.Time
	ClosedAt       *time.Time
}

// TrackThread records a new support thread. Tracking an existing thread is a no-op.
func (s *Store) TrackThread(ctx context.Context, thread SupportThread) error {
	if thread.Status == "" {
		thread.Status = ThreadOpen
	}
	if thread.LastActivityAt.IsZero() {
		thread.LastActivityAt = thread.CreatedAt
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO support_threads (thread_id, guild_id, forum_id, owner_id, status, created_at, last_activity_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO NOTHING
	`), thread.ThreadID, thread.GuildID, thread.ForumID, thread.OwnerID, string(thread.Status), thread.CreatedAt.Unix(), thread.LastActivityAt.Unix())
	return err
}

func (s *Store) GetThread(ctx context.Context, threadID string) (SupportThread, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT thread_id, guild_id, forum_id, owner_id, status, created_at, last_activity_at, reminded_at, closed_at
		FROM support_threads WHERE thread_id = ?
	`), threadID)
	thread, err := scanThread(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SupportThread{}, ErrNotFound
	}
	return thread, err
}

// TouchThread moves the activity mark forward and clears a pending reminder.
func (s *Store) TouchThread(ctx context.Context, threadID string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE support_threads SET last_activity_at = ?, reminded_at = NULL
		WHERE thread_id = ? AND status = ? AND last_activity_at < ?
	`), at.Unix(), threadID, string(ThreadOpen), at.Unix())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) SetThreadStatus(ctx context.Context, threadID string, status ThreadStatus, at time.Time) error {
	var closedAt *time.Time
	if status != ThreadOpen {
		closedAt = &at
	}
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE support_threads SET status = ?, closed_at = ? WHERE thread_id = ?
	`), string(status), nullableUnix(closedAt), threadID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) MarkThreadReminded(ctx context.Context, threadID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`UPDATE support_threads SET reminded_at = ? WHERE thread_id = ?`), at.Unix(), threadID)
	return err
}

// ListIdleThreads returns open threads of a guild with no activity since before.
func (s *Store) ListIdleThreads(ctx context.Context, guildID string, before time.Time) ([]SupportThread, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT thread_id, guild_id, forum_id, owner_id, status, created_at, last_activity_at, reminded_at, closed_at
		FROM support_threads
		WHERE guild_id = ? AND status = ? AND last_activity_at < ?
		ORDER BY last_activity_at
	`), guildID, string(ThreadOpen), before.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []SupportThread
	for rows.Next() {
		thread, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		threads = append(threads, thread)
	}
	return threads, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanThread(row scanner) (SupportThread, error) {
	var thread SupportThread
	var status string
	var created, lastActivity int64
	var reminded, closed sql.NullInt64
	if err := row.Scan(&thread.ThreadID, &thread.GuildID, &thread.ForumID, &thread.OwnerID, &status, &created, &lastActivity, &reminded, &closed); err != nil {
		return SupportThread{}, err
	}
	thread.Status = ThreadStatus(status)
	thread.CreatedAt = time.Unix(created, 0)
	thread.LastActivityAt = time.Unix(lastActivity, 0)
	thread.RemindedAt = fromNullUnix(reminded)
	thread.ClosedAt = fromNullUnix(closed)
	return thread, nil
}
