package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"sentinel-support/internal/analytics"
	"sentinel-support/internal/automod"
	"sentinel-support/internal/config"
	"sentinel-support/internal/modules/audit"
	"sentinel-support/internal/modules/contentfilter"
	"sentinel-support/internal/modules/cooldown"
	"sentinel-support/internal/reputation"
	"sentinel-support/internal/storage"
	"sentinel-support/internal/support"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg        config.Config
	logger     *zap.Logger
	store      *storage.Store
	checker    *automod.Checker
	audit      *audit.Logger
	analytics  *analytics.Service
	reputation *reputation.Client
	support    *support.Service
	filter     *contentfilter.Module
	cooldown   *cooldown.Limiter
	session    *discordgo.Session
	auditAgg   map[string]*auditAggregate
	auditAggMu sync.Mutex
}

type auditAggregate struct {
	channelID string
	messageID string
	count     int
	lastAt    time.Time
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, checker *automod.Checker, auditLogger *audit.Logger, analyticsSvc *analytics.Service, rep *reputation.Client) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		checker:    checker,
		audit:      auditLogger,
		analytics:  analyticsSvc,
		reputation: rep,
		session:    session,
		auditAgg:   make(map[string]*auditAggregate),
	}

	b.support = support.New(store, session, auditLogger, cfg.Support, logger.Named("support"))
	b.filter = contentfilter.New(checker, auditLogger, logger.Named("contentfilter"))
	b.cooldown = cooldown.New(cfg.Cooldown)
	if b.audit != nil {
		b.audit.SetNotifier(b.notifyAudit)
	}

	return b, nil
}

// Support exposes the support thread service so its workers can be run.
func (b *Bot) Support() *support.Service {
	return b.support
}

// Cooldowns exposes the command limiter for periodic pruning.
func (b *Bot) Cooldowns() *cooldown.Limiter {
	return b.cooldown
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onThreadCreate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if b.cfg.RegisterCommands {
		if err := b.registerCommands(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username), zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID == "" {
		return
	}

	ctx := context.Background()
	if err := b.support.OnMessage(ctx, msg.ChannelID); err != nil {
		b.logger.Warn("support activity update failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
	}

	if strings.HasPrefix(msg.Content, b.cfg.CommandPrefix) {
		if b.handleLegacyCommand(ctx, session, msg) {
			return
		}
	}

	if !b.cfg.Automod.Enabled {
		return
	}
	var roles []string
	if msg.Member != nil {
		roles = msg.Member.Roles
	}
	if b.isStaff(ctx, msg.GuildID, msg.Author.ID, roles, 0) {
		return
	}
	settings := b.guildSettings(ctx, msg.GuildID)
	if result, flagged := b.filter.HandleMessage(ctx, session, msg, settings); flagged {
		b.logger.Debug("automod flagged message",
			zap.String("guild_id", msg.GuildID),
			zap.String("user_id", msg.Author.ID),
			zap.String("rule_id", result.MatchedRuleID),
			zap.Bool("audit_only", settings.AuditOnly))
	}
}

func (b *Bot) onThreadCreate(session *discordgo.Session, event *discordgo.ThreadCreate) {
	if event.Channel == nil || !event.NewlyCreated {
		return
	}
	tracked, err := b.support.OnThreadCreate(context.Background(), event.Channel)
	if err != nil {
		b.logger.Warn("support thread tracking failed", zap.String("thread_id", event.ID), zap.Error(err))
		return
	}
	if tracked {
		b.logger.Info("support thread opened", zap.String("guild_id", event.GuildID), zap.String("thread_id", event.ID))
	}
}

func (b *Bot) guildSettings(ctx context.Context, guildID string) storage.GuildSettings {
	defaults := storage.GuildSettings{
		GuildID:        guildID,
		LogChannel:     b.cfg.LogChannel,
		AutomodEnabled: b.cfg.Automod.Enabled,
		AuditOnly:      b.cfg.Automod.AuditOnly,
		AutoCloseHours: b.cfg.Support.AutoCloseHours,
		ReminderHours:  b.cfg.Support.ReminderHours,
	}

	settings, err := b.store.GetGuildSettings(ctx, guildID, defaults)
	if err != nil {
		b.logger.Warn("guild settings fallback", zap.Error(err))
		return defaults
	}
	return settings
}

// isAdmin is true for the guild owner, members with the Administrator
// permission and members holding a role in the admin bucket. perms carries
// the interaction's resolved permissions when available.
func (b *Bot) isAdmin(ctx context.Context, guildID, userID string, roles []string, perms int64) bool {
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	guild, err := b.session.State.Guild(guildID)
	if err != nil || guild == nil {
		guild, _ = b.session.Guild(guildID)
	}
	if guild != nil {
		if guild.OwnerID == userID {
			return true
		}
		if memberHasAdmin(guild, roles) {
			return true
		}
	}
	return b.inBucket(ctx, guildID, storage.BucketAdmin, roles)
}

// isStaff is true for admins and members holding a role in the staff bucket.
func (b *Bot) isStaff(ctx context.Context, guildID, userID string, roles []string, perms int64) bool {
	if b.inBucket(ctx, guildID, storage.BucketStaff, roles) {
		return true
	}
	return b.isAdmin(ctx, guildID, userID, roles, perms)
}

func (b *Bot) inBucket(ctx context.Context, guildID, bucket string, roles []string) bool {
	if len(roles) == 0 {
		return false
	}
	bucketRoles, err := b.store.ListBucketRoles(ctx, guildID, bucket)
	if err != nil {
		b.logger.Warn("role bucket lookup failed", zap.String("bucket", bucket), zap.Error(err))
		return false
	}
	return hasAnyRole(roles, bucketRoles)
}

func hasAnyRole(memberRoles, wanted []string) bool {
	set := make(map[string]struct{}, len(wanted))
	for _, id := range wanted {
		set[id] = struct{}{}
	}
	for _, id := range memberRoles {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

func memberHasAdmin(guild *discordgo.Guild, roles []string) bool {
	if guild == nil {
		return false
	}
	perms := int64(0)
	roleMap := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		roleMap[role.ID] = role
		if role.ID == guild.ID {
			perms |= role.Permissions
		}
	}
	for _, roleID := range roles {
		if role := roleMap[roleID]; role != nil {
			perms |= role.Permissions
		}
	}
	return perms&discordgo.PermissionAdministrator != 0
}

func (b *Bot) buildAuditEmbed(entry storage.AuditLog, count int) *discordgo.MessageEmbed {
	userValue := "<@" + entry.UserID + ">"
	if entry.UserID == "" {
		userValue = "system"
	}
	color := b.cfg.Notifications.EmbedColors.Action
	if entry.Level != audit.LevelInfo {
		color = b.cfg.Notifications.EmbedColors.Warning
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Event", Value: auditEventLabel(entry.Event), Inline: false},
		{Name: "Level", Value: entry.Level, Inline: true},
		{Name: "User", Value: userValue, Inline: true},
	}
	if count > 1 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Count", Value: fmt.Sprintf("%d", count), Inline: true})
	}
	if entry.Details != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Details", Value: truncate(entry.Details, maxFieldValue), Inline: false})
	}
	return &discordgo.MessageEmbed{
		Title:     "Audit log",
		Color:     color,
		Timestamp: entry.CreatedAt.Format(time.RFC3339),
		Fields:    fields,
	}
}

func auditEventLabel(event string) string {
	switch event {
	case audit.EventAutomodBlock:
		return "Message removed by automod"
	case audit.EventAutomodFlag:
		return "Message flagged by automod (audit only)"
	case audit.EventAutomodReload:
		return "Automod rules reloaded"
	case audit.EventThreadResolved:
		return "Support thread resolved"
	case audit.EventThreadClosed:
		return "Support thread closed"
	case audit.EventSettingsChange:
		return "Settings changed"
	case audit.EventRolesChange:
		return "Role buckets changed"
	case audit.EventScanMalicious:
		return "Malicious indicator scanned"
	default:
		return event
	}
}

// notifyAudit mirrors audit entries to the log channel. Repeats of the same
// entry within ten minutes bump a counter on the previous message.
func (b *Bot) notifyAudit(ctx context.Context, entry storage.AuditLog) {
	if b.session == nil || entry.GuildID == "" {
		return
	}
	settings := b.guildSettings(ctx, entry.GuildID)
	channelID := settings.LogChannel
	if channelID == "" {
		return
	}

	key := entry.GuildID + "|" + entry.Level + "|" + entry.Event + "|" + entry.Details + "|" + entry.UserID
	window := 10 * time.Minute

	b.auditAggMu.Lock()
	agg := b.auditAgg[key]
	if agg != nil && agg.channelID == channelID && time.Since(agg.lastAt) <= window {
		agg.count++
		agg.lastAt = time.Now()
		count := agg.count
		messageID := agg.messageID
		b.auditAggMu.Unlock()
		if _, err := b.session.ChannelMessageEditEmbed(channelID, messageID, b.buildAuditEmbed(entry, count)); err == nil {
			return
		}
		b.auditAggMu.Lock()
		delete(b.auditAgg, key)
	}
	b.auditAggMu.Unlock()

	msg, err := b.session.ChannelMessageSendEmbed(channelID, b.buildAuditEmbed(entry, 1))
	if err != nil || msg == nil {
		b.logger.Debug("audit notify failed", zap.String("channel_id", channelID), zap.Error(err))
		return
	}
	b.auditAggMu.Lock()
	b.auditAgg[key] = &auditAggregate{channelID: channelID, messageID: msg.ID, count: 1, lastAt: time.Now()}
	b.auditAggMu.Unlock()
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func (b *Bot) errorEmbed(title, description string) *discordgo.MessageEmbed {
	return b.commandEmbed(title, description, b.cfg.Notifications.EmbedColors.Error, nil)
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	b.respondComplex(session, interaction, embed, nil, ephemeral)
}

func (b *Bot) respondComplex(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No response available.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
			Flags:      flags,
		},
	})
	if err != nil {
		b.logger.Warn("interaction response failed", zap.Error(err))
	}
}

// deferResponse acknowledges a slow command; finish it with editResponse.
func (b *Bot) deferResponse(session *discordgo.Session, interaction *discordgo.InteractionCreate, ephemeral bool) error {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	return session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	})
}

func (b *Bot) editResponse(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	embeds := []*discordgo.MessageEmbed{embed}
	if _, err := session.InteractionResponseEdit(interaction.Interaction, &discordgo.WebhookEdit{Embeds: &embeds}); err != nil {
		b.logger.Warn("interaction edit failed", zap.Error(err))
	}
}
