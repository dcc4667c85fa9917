package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

var ErrNotFound = errors.New("not found")

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

type Store struct {
	db      *sql.DB
	dialect dialect
}

type GuildSettings struct {
	GuildID        string
	LogChannel     string
	SupportForumID string
	ResolvedTagID  string
	AutomodEnabled bool
	AuditOnly      bool
	AutoCloseHours int
	ReminderHours  int
}

type AuditLog struct {
	ID        string
	GuildID   string
	UserID    string
	Level     string
	Event     string
	Details   string
	CreatedAt time.Time
}

// New opens the store. postgres:// and postgresql:// URLs use pgx; anything
// else is treated as a SQLite path or DSN.
func New(databaseURL string) (*Store, error) {
	driver, d := "sqlite", dialectSQLite
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		driver, d = "pgx", dialectPostgres
	}

	db, err := sql.Open(driver, databaseURL)
	if err != nil {
		return nil, err
	}
	if d == dialectSQLite {
		// a second connection to ":memory:" would see an empty database
		db.SetMaxOpenConns(1)
	}
	return &Store{db: db, dialect: d}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		for _, stmt := range strings.Split(string(content), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := s.db.Exec(stmt); err != nil {
				if isIgnorableMigrationError(err) {
					continue
				}
				return fmt.Errorf("migration %s failed: %w", file, err)
			}
		}
	}
	return nil
}

func (s *Store) GetGuildSettings(ctx context.Context, guildID string, defaults GuildSettings) (GuildSettings, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT log_channel, support_forum_id, resolved_tag_id, automod_enabled,
		audit_only, auto_close_hours, reminder_hours
		FROM guild_settings WHERE guild_id = ?`), guildID)

	result := defaults
	result.GuildID = guildID

	var automod, auditOnly int
	err := row.Scan(
		&result.LogChannel,
		&result.SupportForumID,
		&result.ResolvedTagID,
		&automod,
		&auditOnly,
		&result.AutoCloseHours,
		&result.ReminderHours,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return GuildSettings{}, err
	}
	result.AutomodEnabled = automod == 1
	result.AuditOnly = auditOnly == 1
	if result.LogChannel == "" {
		result.LogChannel = defaults.LogChannel
	}
	return result, nil
}

func (s *Store) UpsertGuildSettings(ctx context.Context, settings GuildSettings) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO guild_settings (
			guild_id, log_channel, support_forum_id, resolved_tag_id,
			automod_enabled, audit_only, auto_close_hours, reminder_hours
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			log_channel = excluded.log_channel,
			support_forum_id = excluded.support_forum_id,
			resolved_tag_id = excluded.resolved_tag_id,
			automod_enabled = excluded.automod_enabled,
			audit_only = excluded.audit_only,
			auto_close_hours = excluded.auto_close_hours,
			reminder_hours = excluded.reminder_hours
	`),
		settings.GuildID,
		settings.LogChannel,
		settings.SupportForumID,
		settings.ResolvedTagID,
		boolToInt(settings.AutomodEnabled),
		boolToInt(settings.AuditOnly),
		settings.AutoCloseHours,
		settings.ReminderHours,
	)
	return err
}

// ListSupportForums returns every guild with a configured support forum.
func (s *Store) ListSupportForums(ctx context.Context) ([]GuildSettings, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, log_channel, support_forum_id, resolved_tag_id, automod_enabled,
		audit_only, auto_close_hours, reminder_hours
		FROM guild_settings WHERE support_forum_id <> ''
		ORDER BY guild_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GuildSettings
	for rows.Next() {
		var gs GuildSettings
		var automod, auditOnly int
		if err := rows.Scan(&gs.GuildID, &gs.LogChannel, &gs.SupportForumID, &gs.ResolvedTagID, &automod, &auditOnly, &gs.AutoCloseHours, &gs.ReminderHours); err != nil {
			return nil, err
		}
		gs.AutomodEnabled = automod == 1
		gs.AuditOnly = auditOnly == 1
		out = append(out, gs)
	}
	return out, rows.Err()
}

func (s *Store) AddAuditLog(ctx context.Context, log AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO audit_logs (id, guild_id, user_id, level, event, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), log.ID, log.GuildID, log.UserID, log.Level, log.Event, log.Details, log.CreatedAt.Unix())
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]AuditLog, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, guild_id, user_id, level, event, details, created_at
		FROM audit_logs
		WHERE guild_id = ? AND created_at >= ?
		ORDER BY created_at DESC
	`), guildID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var log AuditLog
		var created int64
		if err := rows.Scan(&log.ID, &log.GuildID, &log.UserID, &log.Level, &log.Event, &log.Details, &created); err != nil {
			return nil, err
		}
		log.CreatedAt = time.Unix(created, 0)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func (s *Store) CleanupAuditLogs(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM audit_logs WHERE created_at < ?`), cutoff.Unix())
	return err
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func nullableUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func fromNullUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
