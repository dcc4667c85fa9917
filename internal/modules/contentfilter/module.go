package contentfilter

import (
	"context"
	"fmt"

	"sentinel-support/internal/automod"
	"sentinel-support/internal/modules/audit"
	"sentinel-support/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var actions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sentinel_contentfilter_actions_total",
	Help: "Messages acted on by the content filter.",
}, []string{"action"})

// Platform is the part of the Discord session the filter needs.
type Platform interface {
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type Module struct {
	checker *automod.Checker
	audit   *audit.Logger
	logger  *zap.Logger
}

func New(checker *automod.Checker, auditLogger *audit.Logger, logger *zap.Logger) *Module {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Module{checker: checker, audit: auditLogger, logger: logger}
}

// HandleMessage runs the checker over a guild message and acts on a block.
// In audit-only mode the message is kept and only the audit entry is written.
func (m *Module) HandleMessage(ctx context.Context, platform Platform, msg *discordgo.MessageCreate, settings storage.GuildSettings) (automod.CheckResult, bool) {
	if msg == nil || msg.Message == nil || msg.Author == nil || msg.Content == "" {
		return automod.CheckResult{}, false
	}
	if !settings.AutomodEnabled {
		return automod.CheckResult{}, false
	}

	result := m.checker.CheckContent(msg.Content)
	if !result.Blocked {
		return result, false
	}

	detail := fmt.Sprintf("rule=%s pattern=%s type=%s matches=%d", result.MatchedRuleID, result.MatchedPattern, result.MatchType, result.MatchCount)
	if settings.AuditOnly {
		m.audit.Log(ctx, audit.LevelWarn, settings.GuildID, msg.Author.ID, audit.EventAutomodFlag, detail)
		actions.WithLabelValues("flagged").Inc()
		return result, true
	}

	m.audit.Log(ctx, audit.LevelWarn, settings.GuildID, msg.Author.ID, audit.EventAutomodBlock, detail)
	if err := platform.ChannelMessageDelete(msg.ChannelID, msg.ID); err != nil {
		actions.WithLabelValues("delete_failed").Inc()
		m.logger.Warn("automod delete failed", zap.String("channel_id", msg.ChannelID), zap.String("message_id", msg.ID), zap.Error(err))
		return result, true
	}
	actions.WithLabelValues("deleted").Inc()
	notice := fmt.Sprintf("<@%s>, your message was removed by automod (%s).", msg.Author.ID, result.MatchedRule)
	if _, err := platform.ChannelMessageSend(msg.ChannelID, notice); err != nil {
		actions.WithLabelValues("notice_failed").Inc()
		m.logger.Warn("automod notice failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
	}
	return result, true
}
