package support

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sentinel-support/internal/config"
	"sentinel-support/internal/modules/audit"
	"sentinel-support/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	ErrNotSupportThread = errors.New("not a tracked support thread")
	ErrAlreadyResolved  = errors.New("thread already resolved")
	ErrInvalidReminder  = errors.New("invalid reminder")
	ErrReminderNotFound = errors.New("reminder not found")
)

// Discord accepts at most this many tags on a forum post.
const maxAppliedTags = 5

const (
	maxReminderDays    = 366
	maxReminderDelay   = 365 * 24 * time.Hour
	maxReminderLength  = 1000
	reminderBatchLimit = 50
)

var threadEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sentinel_support_thread_events_total",
	Help: "Support thread lifecycle events.",
}, []string{"event"})

var remindersSent = promauto.NewCounter(prometheus.CounterOpts{
	Name: "sentinel_support_reminders_sent_total",
	Help: "User reminders delivered.",
})

// Platform is the part of the Discord session the support flow drives.
type Platform interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelEdit(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessagePin(channelID, messageID string, options ...discordgo.RequestOption) error
}

type Service struct {
	store    *storage.Store
	platform Platform
	audit    *audit.Logger
	logger   *zap.Logger
	cfg      config.SupportConfig
	now      func() time.Time
}

func New(store *storage.Store, platform Platform, auditLogger *audit.Logger, cfg config.SupportConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		platform: platform,
		audit:    auditLogger,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// SweepStats summarizes one inactivity sweep.
type SweepStats struct {
	Reminded int
	Closed   int
}

func (s *Service) settings(ctx context.Context, guildID string) storage.GuildSettings {
	defaults := storage.GuildSettings{
		GuildID:        guildID,
		AutomodEnabled: true,
		AutoCloseHours: s.cfg.AutoCloseHours,
		ReminderHours:  s.cfg.ReminderHours,
	}
	settings, err := s.store.GetGuildSettings(ctx, guildID, defaults)
	if err != nil {
		s.logger.Warn("guild settings fallback", zap.String("guild_id", guildID), zap.Error(err))
		return defaults
	}
	return settings
}

// OnThreadCreate starts tracking a new post in the guild's support forum.
// It reports whether the thread was taken over.
func (s *Service) OnThreadCreate(ctx context.Context, thread *discordgo.Channel) (bool, error) {
	if thread == nil || thread.GuildID == "" || thread.ParentID == "" {
		return false, nil
	}
	settings := s.settings(ctx, thread.GuildID)
	if settings.SupportForumID == "" || thread.ParentID != settings.SupportForumID {
		return false, nil
	}

	now := s.now()
	err := s.store.TrackThread(ctx, storage.SupportThread{
		ThreadID:  thread.ID,
		GuildID:   thread.GuildID,
		ForumID:   thread.ParentID,
		OwnerID:   thread.OwnerID,
		CreatedAt: now,
	})
	if err != nil {
		return false, fmt.Errorf("track thread: %w", err)
	}
	threadEvents.WithLabelValues("opened").Inc()

	// the starter message of a forum post shares the thread id
	if err := s.platform.ChannelMessagePin(thread.ID, thread.ID); err != nil {
		s.logger.Warn("pin starter message failed", zap.String("thread_id", thread.ID), zap.Error(err))
	}
	if _, err := s.platform.ChannelMessageSend(thread.ID, welcomeMessage(thread.OwnerID, settings)); err != nil {
		s.logger.Warn("welcome message failed", zap.String("thread_id", thread.ID), zap.Error(err))
	}
	return true, nil
}

// OnMessage records activity in a tracked thread. Unknown channels are ignored.
func (s *Service) OnMessage(ctx context.Context, channelID string) error {
	_, err := s.store.TouchThread(ctx, channelID, s.now())
	return err
}

// Thread returns the tracked thread for channelID.
func (s *Service) Thread(ctx context.Context, channelID string) (storage.SupportThread, error) {
	thread, err := s.store.GetThread(ctx, channelID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.SupportThread{}, ErrNotSupportThread
	}
	return thread, err
}

// Resolve tags the thread as resolved, posts a notice and archives it.
func (s *Service) Resolve(ctx context.Context, guildID, threadID, actorID string) error {
	thread, err := s.Thread(ctx, threadID)
	if err != nil {
		return err
	}
	if thread.GuildID != guildID {
		return ErrNotSupportThread
	}
	if thread.Status != storage.ThreadOpen {
		return ErrAlreadyResolved
	}

	settings := s.settings(ctx, guildID)
	if _, err := s.platform.ChannelMessageSend(threadID, fmt.Sprintf("Marked as resolved by <@%s>. This post is now archived.", actorID)); err != nil {
		s.logger.Warn("resolve notice failed", zap.String("thread_id", threadID), zap.Error(err))
	}

	edit := &discordgo.ChannelEdit{Archived: boolPtr(true)}
	if settings.ResolvedTagID != "" {
		var current []string
		if channel, err := s.platform.Channel(threadID); err == nil && channel != nil {
			current = channel.AppliedTags
		}
		tags := withTag(current, settings.ResolvedTagID)
		edit.AppliedTags = &tags
	}
	if _, err := s.platform.ChannelEdit(threadID, edit); err != nil {
		return fmt.Errorf("archive thread: %w", err)
	}

	if err := s.store.SetThreadStatus(ctx, threadID, storage.ThreadResolved, s.now()); err != nil {
		return fmt.Errorf("update thread: %w", err)
	}
	threadEvents.WithLabelValues("resolved").Inc()
	s.audit.Log(ctx, audit.LevelInfo, guildID, actorID, audit.EventThreadResolved, "thread="+threadID)
	return nil
}

// Sweep closes threads idle past the auto-close limit, then reminds owners of
// threads idle past the reminder limit. Each thread is reminded once per idle
// stretch.
func (s *Service) Sweep(ctx context.Context, now time.Time) (SweepStats, error) {
	var stats SweepStats
	guilds, err := s.store.ListSupportForums(ctx)
	if err != nil {
		return stats, fmt.Errorf("list support forums: %w", err)
	}

	for _, settings := range guilds {
		if settings.AutoCloseHours > 0 {
			idle, err := s.store.ListIdleThreads(ctx, settings.GuildID, now.Add(-hours(settings.AutoCloseHours)))
			if err != nil {
				return stats, fmt.Errorf("list idle threads: %w", err)
			}
			for _, thread := range idle {
				if err := s.close(ctx, thread, settings.AutoCloseHours, now); err != nil {
					s.logger.Warn("auto close failed", zap.String("thread_id", thread.ThreadID), zap.Error(err))
					continue
				}
				stats.Closed++
			}
		}

		if settings.ReminderHours > 0 {
			idle, err := s.store.ListIdleThreads(ctx, settings.GuildID, now.Add(-hours(settings.ReminderHours)))
			if err != nil {
				return stats, fmt.Errorf("list idle threads: %w", err)
			}
			for _, thread := range idle {
				if thread.RemindedAt != nil {
					continue
				}
				if _, err := s.platform.ChannelMessageSend(thread.ThreadID, reminderNotice(thread.OwnerID, settings)); err != nil {
					s.logger.Warn("inactivity reminder failed", zap.String("thread_id", thread.ThreadID), zap.Error(err))
					continue
				}
				if err := s.store.MarkThreadReminded(ctx, thread.ThreadID, now); err != nil {
					return stats, fmt.Errorf("mark reminded: %w", err)
				}
				threadEvents.WithLabelValues("reminded").Inc()
				stats.Reminded++
			}
		}
	}
	return stats, nil
}

func (s *Service) close(ctx context.Context, thread storage.SupportThread, idleHours int, now time.Time) error {
	if _, err := s.platform.ChannelMessageSend(thread.ThreadID, fmt.Sprintf("No activity for %d hours, closing this post. Open a new one if you still need help.", idleHours)); err != nil {
		s.logger.Debug("close notice failed", zap.String("thread_id", thread.ThreadID), zap.Error(err))
	}
	if _, err := s.platform.ChannelEdit(thread.ThreadID, &discordgo.ChannelEdit{Archived: boolPtr(true), Locked: boolPtr(true)}); err != nil && !isGone(err) {
		return err
	}
	if err := s.store.SetThreadStatus(ctx, thread.ThreadID, storage.ThreadClosed, now); err != nil {
		return err
	}
	threadEvents.WithLabelValues("closed").Inc()
	s.audit.Log(ctx, audit.LevelInfo, thread.GuildID, "", audit.EventThreadClosed, "thread="+thread.ThreadID+" reason=inactive")
	return nil
}

// Schedule stores a reminder for userID due after delay.
func (s *Service) Schedule(ctx context.Context, guildID, channelID, userID, message string, delay time.Duration) (storage.Reminder, error) {
	message = strings.TrimSpace(message)
	if message == "" || delay <= 0 || delay > maxReminderDelay {
		return storage.Reminder{}, ErrInvalidReminder
	}
	if runes := []rune(message); len(runes) > maxReminderLength {
		message = string(runes[:maxReminderLength])
	}
	now := s.now()
	return s.store.AddReminder(ctx, storage.Reminder{
		GuildID:   guildID,
		ChannelID: channelID,
		UserID:    userID,
		Message:   message,
		DueAt:     now.Add(delay),
		CreatedAt: now,
	})
}

// Reminders lists the pending reminders userID set in a guild.
func (s *Service) Reminders(ctx context.Context, guildID, userID string) ([]storage.Reminder, error) {
	return s.store.ListReminders(ctx, guildID, userID)
}

// CancelReminder deletes a pending reminder owned by userID.
func (s *Service) CancelReminder(ctx context.Context, id, userID string) error {
	err := s.store.DeleteReminder(ctx, strings.TrimSpace(id), userID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrReminderNotFound
	}
	return err
}

// DispatchReminders posts every reminder due at now. A reminder whose
// channel is gone is dropped; other failures are retried next round.
func (s *Service) DispatchReminders(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.DueReminders(ctx, now, reminderBatchLimit)
	if err != nil {
		return 0, fmt.Errorf("due reminders: %w", err)
	}
	sent := 0
	for _, reminder := range due {
		_, err := s.platform.ChannelMessageSend(reminder.ChannelID, fmt.Sprintf("<@%s> reminder: %s", reminder.UserID, reminder.Message))
		if err != nil && !isGone(err) {
			s.logger.Warn("reminder delivery failed", zap.String("reminder_id", reminder.ID), zap.Error(err))
			continue
		}
		if err := s.store.MarkReminderSent(ctx, reminder.ID); err != nil {
			return sent, fmt.Errorf("mark reminder sent: %w", err)
		}
		if err == nil {
			sent++
			remindersSent.Inc()
		}
	}
	return sent, nil
}

// Run drives the sweep and reminder loops until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	sweepEvery := time.Duration(s.cfg.SweepIntervalSeconds) * time.Second
	remindEvery := time.Duration(s.cfg.ReminderIntervalSeconds) * time.Second
	if sweepEvery <= 0 {
		sweepEvery = 5 * time.Minute
	}
	if remindEvery <= 0 {
		remindEvery = 30 * time.Second
	}

	sweep := time.NewTicker(sweepEvery)
	defer sweep.Stop()
	remind := time.NewTicker(remindEvery)
	defer remind.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sweep.C:
			stats, err := s.Sweep(ctx, s.now())
			if err != nil {
				s.logger.Warn("support sweep failed", zap.Error(err))
				continue
			}
			if stats.Closed > 0 || stats.Reminded > 0 {
				s.logger.Info("support sweep", zap.Int("closed", stats.Closed), zap.Int("reminded", stats.Reminded))
			}
		case <-remind.C:
			if _, err := s.DispatchReminders(ctx, s.now()); err != nil {
				s.logger.Warn("reminder dispatch failed", zap.Error(err))
			}
		}
	}
}

// ParseDelay accepts Go durations plus a trailing day unit, e.g. "90m", "2h30m", "3d".
func ParseDelay(raw string) (time.Duration, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasSuffix(raw, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(raw, "d"))
		if err != nil || days < 0 || days > maxReminderDays {
			return 0, fmt.Errorf("%w: %q", ErrInvalidReminder, raw)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidReminder, raw)
	}
	return d, nil
}

func welcomeMessage(ownerID string, settings storage.GuildSettings) string {
	var b strings.Builder
	if ownerID != "" {
		fmt.Fprintf(&b, "Thanks for reaching out, <@%s>. ", ownerID)
	}
	b.WriteString("A staff member will be with you soon. Use `/resolve` once your question is answered.")
	if settings.AutoCloseHours > 0 {
		fmt.Fprintf(&b, " Posts with no activity for %d hours are closed automatically.", settings.AutoCloseHours)
	}
	return b.String()
}

func reminderNotice(ownerID string, settings storage.GuildSettings) string {
	prefix := ""
	if ownerID != "" {
		prefix = "<@" + ownerID + "> "
	}
	if settings.AutoCloseHours > 0 {
		return fmt.Sprintf("%sis this still an issue? Reply here or use `/resolve`. Inactive posts close after %d hours.", prefix, settings.AutoCloseHours)
	}
	return prefix + "is this still an issue? Reply here or use `/resolve`."
}

func withTag(tags []string, tag string) []string {
	out := make([]string, 0, len(tags)+1)
	out = append(out, tag)
	for _, existing := range tags {
		if existing == tag {
			continue
		}
		if len(out) == maxAppliedTags {
			break
		}
		out = append(out, existing)
	}
	return out
}

func isGone(err error) bool {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		return rest.Response.StatusCode == http.StatusNotFound || rest.Response.StatusCode == http.StatusForbidden
	}
	return false
}

func hours(n int) time.Duration {
	return time.Duration(n) * time.Hour
}

func boolPtr(v bool) *bool {
	return &v
}
