package audit

import (
	"context"
	"errors"
	"testing"

	"sentinel-support/internal/storage"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type recordingSink struct {
	logs []storage.AuditLog
	err  error
}

func (r *recordingSink) AddAuditLog(_ context.Context, log storage.AuditLog) error {
	r.logs = append(r.logs, log)
	return r.err
}

func TestLogPersistsAndNotifies(t *testing.T) {
	sink := &recordingSink{}
	l := NewLogger(sink, zap.NewNop())

	var notified []string
	l.SetNotifier(func(_ context.Context, entry storage.AuditLog) {
		notified = append(notified, entry.Event)
	})

	l.Log(context.Background(), LevelWarn, "g1", "u1", EventAutomodBlock, "rule=invites")

	assert.Len(t, sink.logs, 1)
	assert.Equal(t, "g1", sink.logs[0].GuildID)
	assert.Equal(t, LevelWarn, sink.logs[0].Level)
	assert.False(t, sink.logs[0].CreatedAt.IsZero())
	assert.Equal(t, []string{EventAutomodBlock}, notified)
}

func TestLogSurvivesSinkFailure(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	l := NewLogger(sink, nil)

	called := false
	l.SetNotifier(func(context.Context, storage.AuditLog) { called = true })
	l.Log(context.Background(), LevelInfo, "g1", "", EventAutomodReload, "")

	assert.True(t, called)

	var nilLogger *Logger
	nilLogger.Log(context.Background(), LevelInfo, "g1", "", EventAutomodReload, "")
}
