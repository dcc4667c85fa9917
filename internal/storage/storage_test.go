package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)

	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestUpsertGuildSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	defaults := GuildSettings{LogChannel: "fallback", AutomodEnabled: true, AutoCloseHours: 72, ReminderHours: 24}
	got, err := store.GetGuildSettings(ctx, "g1", defaults)
	if err != nil {
		t.Fatalf("get defaults: %v", err)
	}
	if got.GuildID != "g1" || got.LogChannel != "fallback" || !got.AutomodEnabled {
		t.Fatalf("expected defaults for unknown guild, got %+v", got)
	}

	settings := GuildSettings{
		GuildID:        "g1",
		LogChannel:     "c1",
		SupportForumID: "f1",
		ResolvedTagID:  "t1",
		AutomodEnabled: true,
		AuditOnly:      true,
		AutoCloseHours: 48,
		ReminderHours:  12,
	}
	if err := store.UpsertGuildSettings(ctx, settings); err != nil {
		t.Fatalf("upsert guild settings: %v", err)
	}

	settings.LogChannel = "c2"
	if err := store.UpsertGuildSettings(ctx, settings); err != nil {
		t.Fatalf("update guild settings: %v", err)
	}

	got, err = store.GetGuildSettings(ctx, "g1", defaults)
	if err != nil {
		t.Fatalf("get guild settings: %v", err)
	}
	if got != settings {
		t.Fatalf("expected %+v, got %+v", settings, got)
	}

	forums, err := store.ListSupportForums(ctx)
	if err != nil {
		t.Fatalf("list forums: %v", err)
	}
	if len(forums) != 1 || forums[0].SupportForumID != "f1" {
		t.Fatalf("unexpected forums: %+v", forums)
	}
}

func TestBucketRoles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, role := range []string{"r2", "r1", "r1"} {
		if err := store.AddBucketRole(ctx, "g1", BucketStaff, role); err != nil {
			t.Fatalf("add role: %v", err)
		}
	}
	if err := store.AddBucketRole(ctx, "g1", BucketAdmin, "r9"); err != nil {
		t.Fatalf("add admin role: %v", err)
	}

	roles, err := store.ListBucketRoles(ctx, "g1", BucketStaff)
	if err != nil {
		t.Fatalf("list roles: %v", err)
	}
	if len(roles) != 2 || roles[0] != "r1" || roles[1] != "r2" {
		t.Fatalf("unexpected staff roles: %v", roles)
	}

	if err := store.RemoveBucketRole(ctx, "g1", BucketStaff, "r1"); err != nil {
		t.Fatalf("remove role: %v", err)
	}
	roles, _ = store.ListBucketRoles(ctx, "g1", BucketStaff)
	if len(roles) != 1 || roles[0] != "r2" {
		t.Fatalf("unexpected roles after remove: %v", roles)
	}
}

func TestSupportThreadLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	start := time.Unix(1_700_000_000, 0)

	thread := SupportThread{ThreadID: "t1", GuildID: "g1", ForumID: "f1", OwnerID: "u1", CreatedAt: start}
	if err := store.TrackThread(ctx, thread); err != nil {
		t.Fatalf("track: %v", err)
	}
	if err := store.TrackThread(ctx, thread); err != nil {
		t.Fatalf("track twice: %v", err)
	}

	got, err := store.GetThread(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != ThreadOpen || !got.LastActivityAt.Equal(start) || got.ClosedAt != nil {
		t.Fatalf("unexpected thread: %+v", got)
	}

	if _, err := store.GetThread(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	idle, err := store.ListIdleThreads(ctx, "g1", start.Add(time.Hour))
	if err != nil || len(idle) != 1 {
		t.Fatalf("expected one idle thread, got %v (%v)", idle, err)
	}

	if err := store.MarkThreadReminded(ctx, "t1", start.Add(time.Hour)); err != nil {
		t.Fatalf("remind: %v", err)
	}
	touched, err := store.TouchThread(ctx, "t1", start.Add(2*time.Hour))
	if err != nil || !touched {
		t.Fatalf("expected touch to apply, got %v (%v)", touched, err)
	}
	got, _ = store.GetThread(ctx, "t1")
	if got.RemindedAt != nil {
		t.Fatalf("touch should clear reminder mark")
	}

	idle, _ = store.ListIdleThreads(ctx, "g1", start.Add(time.Hour))
	if len(idle) != 0 {
		t.Fatalf("touched thread should not be idle")
	}

	if err := store.SetThreadStatus(ctx, "t1", ThreadResolved, start.Add(3*time.Hour)); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got, _ = store.GetThread(ctx, "t1")
	if got.Status != ThreadResolved || got.ClosedAt == nil {
		t.Fatalf("expected resolved thread, got %+v", got)
	}
	if touched, _ := store.TouchThread(ctx, "t1", start.Add(4*time.Hour)); touched {
		t.Fatalf("resolved thread should not be touched")
	}
	if err := store.SetThreadStatus(ctx, "missing", ThreadClosed, start); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReminders(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	late, err := store.AddReminder(ctx, Reminder{GuildID: "g1", ChannelID: "c1", UserID: "u1", Message: "later", DueAt: now.Add(time.Hour)})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	due, err := store.AddReminder(ctx, Reminder{GuildID: "g1", ChannelID: "c1", UserID: "u1", Message: "now", DueAt: now.Add(-time.Minute)})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if due.ID == "" || due.ID == late.ID {
		t.Fatalf("expected distinct ids")
	}

	pending, err := store.DueReminders(ctx, now, 10)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(pending) != 1 || pending[0].Message != "now" {
		t.Fatalf("unexpected due reminders: %+v", pending)
	}

	if err := store.MarkReminderSent(ctx, due.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	pending, _ = store.DueReminders(ctx, now, 10)
	if len(pending) != 0 {
		t.Fatalf("sent reminder should not be due")
	}

	listed, err := store.ListReminders(ctx, "g1", "u1")
	if err != nil || len(listed) != 1 || listed[0].ID != late.ID {
		t.Fatalf("unexpected listed reminders: %+v (%v)", listed, err)
	}

	if err := store.DeleteReminder(ctx, late.ID, "someone-else"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign delete, got %v", err)
	}
	if err := store.DeleteReminder(ctx, late.ID, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestAuditLogs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := store.AddAuditLog(ctx, AuditLog{GuildID: "g1", Level: "low", Event: "automod_block", CreatedAt: now}); err != nil {
		t.Fatalf("add audit: %v", err)
	}
	if err := store.AddAuditLog(ctx, AuditLog{GuildID: "g1", Level: "low", Event: "old", CreatedAt: now.AddDate(0, 0, -40)}); err != nil {
		t.Fatalf("add audit: %v", err)
	}
	if err := store.CleanupAuditLogs(ctx, 30); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	logs, err := store.ListAuditLogs(ctx, "g1", now.AddDate(0, 0, -90))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 || logs[0].Event != "automod_block" || logs[0].ID == "" {
		t.Fatalf("unexpected logs: %+v", logs)
	}
}
