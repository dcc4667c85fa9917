package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"sentinel-support/internal/automod"
	"sentinel-support/internal/modules/audit"
	"sentinel-support/internal/modules/cooldown"
	"sentinel-support/internal/reputation"
	"sentinel-support/internal/storage"
	"sentinel-support/internal/support"
	"sentinel-support/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type optionMap map[string]*discordgo.ApplicationCommandInteractionDataOption

func toOptionMap(options []*discordgo.ApplicationCommandInteractionDataOption) optionMap {
	out := make(optionMap, len(options))
	for _, opt := range options {
		out[opt.Name] = opt
	}
	return out
}

// caller is the invoking member of an interaction.
type caller struct {
	userID string
	roles  []string
	perms  int64
}

func interactionCaller(interaction *discordgo.InteractionCreate) caller {
	if interaction.Member != nil {
		c := caller{roles: interaction.Member.Roles, perms: interaction.Member.Permissions}
		if interaction.Member.User != nil {
			c.userID = interaction.Member.User.ID
		}
		return c
	}
	if interaction.User != nil {
		return caller{userID: interaction.User.ID}
	}
	return caller{}
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	ctx := context.Background()
	switch interaction.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(ctx, session, interaction)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(ctx, session, interaction)
	}
}

func (b *Bot) handleCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	data := interaction.ApplicationCommandData()
	if interaction.GuildID == "" {
		b.respondEmbed(session, interaction, b.errorEmbed("Sentinel", "This command only works in a server."), true)
		return
	}
	who := interactionCaller(interaction)

	switch data.Name {
	case "automod":
		b.handleAutomodCommand(ctx, session, interaction, who, data.Options)
	case "settings":
		b.handleSettingsCommand(ctx, session, interaction, who, data.Options)
	case "roles":
		b.handleRolesCommand(ctx, session, interaction, who, data.Options)
	case "resolve":
		b.handleResolveCommand(ctx, session, interaction, who)
	case "remind":
		b.handleRemindCommand(ctx, session, interaction, who, toOptionMap(data.Options))
	case "reminders":
		b.handleRemindersCommand(ctx, session, interaction, who, data.Options)
	case "scan":
		b.handleScanCommand(ctx, session, interaction, who, data)
	case "report":
		b.handleReportCommand(ctx, session, interaction, who, toOptionMap(data.Options))
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Sentinel", "Unknown command."), true)
	}
}

// throttled answers and returns true when the caller is over their command budget.
func (b *Bot) throttled(session *discordgo.Session, interaction *discordgo.InteractionCreate, who caller, command string) bool {
	ok, wait := b.cooldown.Allow(cooldown.Key(interaction.GuildID, who.userID, command), time.Now())
	if ok {
		return false
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Slow down", fmt.Sprintf("Try `/%s` again in %s.", command, wait.Round(time.Second)), b.cfg.Notifications.EmbedColors.Warning, nil), true)
	return true
}

func (b *Bot) denied(session *discordgo.Session, interaction *discordgo.InteractionCreate, title string) {
	b.respondEmbed(session, interaction, b.errorEmbed(title, "You do not have permission to use this command."), true)
}

func (b *Bot) handleAutomodCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, who caller, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		b.respondEmbed(session, interaction, b.errorEmbed("Automod", "Missing subcommand."), true)
		return
	}
	sub := options[0]

	switch sub.Name {
	case "check":
		if !b.isStaff(ctx, interaction.GuildID, who.userID, who.roles, who.perms) {
			b.denied(session, interaction, "Automod")
			return
		}
		if b.throttled(session, interaction, who, "automod") {
			return
		}
		content := ""
		if opt, ok := toOptionMap(sub.Options)["content"]; ok {
			content = opt.StringValue()
		}
		if !fitsCheck(content) {
			b.respondEmbed(session, interaction, b.errorEmbed("Automod check", fmt.Sprintf("Content must be between 1 and %d characters.", maxCheckInput)), true)
			return
		}
		embed, components := b.renderCheck(content, 0)
		b.respondComplex(session, interaction, embed, components, true)
	case "rules":
		if !b.isStaff(ctx, interaction.GuildID, who.userID, who.roles, who.perms) {
			b.denied(session, interaction, "Automod")
			return
		}
		b.respondEmbed(session, interaction, b.rulesEmbed(), true)
	case "reload":
		if !b.isAdmin(ctx, interaction.GuildID, who.userID, who.roles, who.perms) {
			b.denied(session, interaction, "Automod")
			return
		}
		if err := b.checker.Reload(b.cfg.Automod.RulesPath); err != nil {
			b.logger.Warn("automod reload failed", zap.Error(err))
			b.respondEmbed(session, interaction, b.errorEmbed("Automod reload", "Reload failed, the previous rules are still active: "+err.Error()), true)
			return
		}
		count := b.checker.Rules().Len()
		b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, who.userID, audit.EventAutomodReload, fmt.Sprintf("rules=%d", count))
		b.respondEmbed(session, interaction, b.commandEmbed("Automod reload", fmt.Sprintf("Loaded %d rules.", count), b.cfg.Notifications.EmbedColors.Action, nil), true)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Automod", "Unknown subcommand."), true)
	}
}

func (b *Bot) renderCheck(content string, page int) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	view := checkView{
		content:     content,
		result:      b.checker.CheckContent(content),
		rulesLoaded: b.checker.Rules().Len(),
		page:        page,
		pageSize:    b.cfg.Automod.PageSize,
	}
	return view.render(b.cfg.Notifications.EmbedColors)
}

func (b *Bot) rulesEmbed() *discordgo.MessageEmbed {
	rules := b.checker.Rules()
	if rules.Len() == 0 {
		return b.commandEmbed("Automod rules", "No rules loaded. Nothing will be blocked.", b.cfg.Notifications.EmbedColors.Warning, nil)
	}
	var fields []*discordgo.MessageEmbedField
	rules.Each(func(id string, rule automod.Rule) {
		if len(fields) == 25 {
			return
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  truncate(fmt.Sprintf("%s (%s)", rule.Name, id), 256),
			Value: fmt.Sprintf("%d blocked, %d regex, %d allowed", len(rule.BlockedWords), len(rule.RegexPatterns), len(rule.AllowedWords)),
		})
	})
	return b.commandEmbed("Automod rules", fmt.Sprintf("%d rules loaded.", rules.Len()), b.cfg.Notifications.EmbedColors.Action, fields)
}

func (b *Bot) handleComponent(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	data := interaction.MessageComponentData()
	page, ok := parseCheckPageID(data.CustomID)
	if !ok {
		return
	}
	who := interactionCaller(interaction)
	if interaction.GuildID == "" || !b.isStaff(ctx, interaction.GuildID, who.userID, who.roles, who.perms) {
		b.denied(session, interaction, "Automod check")
		return
	}
	if interaction.Message == nil || len(interaction.Message.Embeds) == 0 {
		return
	}
	content, err := unquoteContent(interaction.Message.Embeds[0].Description)
	if err != nil {
		b.respondEmbed(session, interaction, b.errorEmbed("Automod check", "This check can no longer be paged, run it again."), true)
		return
	}

	embed, components := b.renderCheck(content, page)
	err = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
	if err != nil {
		b.logger.Warn("check page update failed", zap.Error(err))
	}
}

func (b *Bot) handleSettingsCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, who caller, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if !b.isAdmin(ctx, interaction.GuildID, who.userID, who.roles, who.perms) {
		b.denied(session, interaction, "Settings")
		return
	}
	if len(options) == 0 {
		b.respondEmbed(session, interaction, b.errorEmbed("Settings", "Missing subcommand."), true)
		return
	}
	settings := b.guildSettings(ctx, interaction.GuildID)

	sub := options[0]
	if sub.Name == "set" {
		var changed []string
		for name, opt := range toOptionMap(sub.Options) {
			switch name {
			case "log_channel":
				settings.LogChannel, _ = opt.Value.(string)
			case "support_forum":
				settings.SupportForumID, _ = opt.Value.(string)
			case "resolved_tag":
				settings.ResolvedTagID = strings.TrimSpace(opt.StringValue())
			case "automod":
				settings.AutomodEnabled = opt.BoolValue()
			case "audit_only":
				settings.AuditOnly = opt.BoolValue()
			case "auto_close_hours":
				settings.AutoCloseHours = int(opt.IntValue())
			case "reminder_hours":
				settings.ReminderHours = int(opt.IntValue())
			default:
				continue
			}
			changed = append(changed, name)
		}
		if len(changed) == 0 {
			b.respondEmbed(session, interaction, b.errorEmbed("Settings", "Nothing to change."), true)
			return
		}
		if err := b.store.UpsertGuildSettings(ctx, settings); err != nil {
			b.logger.Warn("settings update failed", zap.Error(err))
			b.respondEmbed(session, interaction, b.errorEmbed("Settings", "Could not save settings."), true)
			return
		}
		sort.Strings(changed)
		b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, who.userID, audit.EventSettingsChange, strings.Join(changed, ","))
	}

	b.respondEmbed(session, interaction, b.commandEmbed("Settings", "", b.cfg.Notifications.EmbedColors.Action, settingsFields(settings)), true)
}

func settingsFields(s storage.GuildSettings) []*discordgo.MessageEmbedField {
	channel := func(id string) string {
		if id == "" {
			return "not set"
		}
		return "<#" + id + ">"
	}
	hours := func(n int) string {
		if n == 0 {
			return "off"
		}
		return fmt.Sprintf("%dh", n)
	}
	tag := s.ResolvedTagID
	if tag == "" {
		tag = "not set"
	}
	return []*discordgo.MessageEmbedField{
		{Name: "Log channel", Value: channel(s.LogChannel), Inline: true},
		{Name: "Support forum", Value: channel(s.SupportForumID), Inline: true},
		{Name: "Resolved tag", Value: tag, Inline: true},
		{Name: "Automod", Value: fmt.Sprintf("%t", s.AutomodEnabled), Inline: true},
		{Name: "Audit only", Value: fmt.Sprintf("%t", s.AuditOnly), Inline: true},
		{Name: "Auto close", Value: hours(s.AutoCloseHours), Inline: true},
		{Name: "Reminder", Value: hours(s.ReminderHours), Inline: true},
	}
}

func (b *Bot) handleRolesCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, who caller, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if !b.isAdmin(ctx, interaction.GuildID, who.userID, who.roles, who.perms) {
		b.denied(session, interaction, "Roles")
		return
	}
	if len(options) == 0 {
		b.respondEmbed(session, interaction, b.errorEmbed("Roles", "Missing subcommand."), true)
		return
	}
	sub := options[0]
	guildID := interaction.GuildID

	if sub.Name == "list" {
		var fields []*discordgo.MessageEmbedField
		for _, bucket := range []string{storage.BucketAdmin, storage.BucketStaff} {
			roles, err := b.store.ListBucketRoles(ctx, guildID, bucket)
			if err != nil {
				b.respondEmbed(session, interaction, b.errorEmbed("Roles", "Could not load roles."), true)
				return
			}
			value := "none"
			if len(roles) > 0 {
				lines := make([]string, 0, len(roles))
				for _, id := range roles {
					lines = append(lines, "<@&"+id+">")
				}
				value = strings.Join(lines, "\n")
			}
			fields = append(fields, &discordgo.MessageEmbedField{Name: bucket, Value: value, Inline: true})
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Roles", "", b.cfg.Notifications.EmbedColors.Action, fields), true)
		return
	}

	opts := toOptionMap(sub.Options)
	bucketOpt, okBucket := opts["bucket"]
	roleOpt, okRole := opts["role"]
	if !okBucket || !okRole {
		b.respondEmbed(session, interaction, b.errorEmbed("Roles", "A bucket and a role are required."), true)
		return
	}
	bucket := bucketOpt.StringValue()
	roleID, _ := roleOpt.Value.(string)

	var err error
	switch sub.Name {
	case "add":
		err = b.store.AddBucketRole(ctx, guildID, bucket, roleID)
	case "remove":
		err = b.store.RemoveBucketRole(ctx, guildID, bucket, roleID)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Roles", "Unknown subcommand."), true)
		return
	}
	if err != nil {
		b.logger.Warn("role bucket update failed", zap.Error(err))
		b.respondEmbed(session, interaction, b.errorEmbed("Roles", "Could not update roles."), true)
		return
	}
	b.audit.Log(ctx, audit.LevelInfo, guildID, who.userID, audit.EventRolesChange, fmt.Sprintf("%s %s role=%s", sub.Name, bucket, roleID))
	fields := []*discordgo.MessageEmbedField{
		{Name: "Bucket", Value: bucket, Inline: true},
		{Name: "Role", Value: "<@&" + roleID + ">", Inline: true},
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Roles", "Updated.", b.cfg.Notifications.EmbedColors.Action, fields), true)
}

func (b *Bot) handleResolveCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, who caller) {
	embed := b.resolveThread(ctx, interaction.GuildID, interaction.ChannelID, who)
	b.respondEmbed(session, interaction, embed, false)
}

// resolveThread closes the support thread in channelID for its owner or staff.
func (b *Bot) resolveThread(ctx context.Context, guildID, channelID string, who caller) *discordgo.MessageEmbed {
	thread, err := b.support.Thread(ctx, channelID)
	if errors.Is(err, support.ErrNotSupportThread) {
		return b.errorEmbed("Resolve", "This is not a support post.")
	}
	if err != nil {
		b.logger.Warn("support thread lookup failed", zap.Error(err))
		return b.errorEmbed("Resolve", "Could not load this post.")
	}
	if thread.OwnerID != who.userID && !b.isStaff(ctx, guildID, who.userID, who.roles, who.perms) {
		return b.errorEmbed("Resolve", "Only the author or staff can resolve this post.")
	}

	err = b.support.Resolve(ctx, guildID, channelID, who.userID)
	switch {
	case errors.Is(err, support.ErrAlreadyResolved):
		return b.commandEmbed("Resolve", "This post is already closed.", b.cfg.Notifications.EmbedColors.Warning, nil)
	case errors.Is(err, support.ErrNotSupportThread):
		return b.errorEmbed("Resolve", "This is not a support post.")
	case err != nil:
		b.logger.Warn("resolve failed", zap.String("thread_id", channelID), zap.Error(err))
		return b.errorEmbed("Resolve", "Could not resolve this post.")
	}
	return b.commandEmbed("Resolved", "Thanks! This post has been marked as resolved.", b.cfg.Notifications.EmbedColors.Action, nil)
}

func (b *Bot) handleRemindCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, who caller, opts optionMap) {
	if b.throttled(session, interaction, who, "remind") {
		return
	}
	inOpt, okIn := opts["in"]
	msgOpt, okMsg := opts["message"]
	if !okIn || !okMsg {
		b.respondEmbed(session, interaction, b.errorEmbed("Reminder", "Both a delay and a message are required."), true)
		return
	}
	delay, err := support.ParseDelay(inOpt.StringValue())
	if err != nil {
		b.respondEmbed(session, interaction, b.errorEmbed("Reminder", "Use a delay like `30m`, `2h` or `3d`."), true)
		return
	}
	reminder, err := b.support.Schedule(ctx, interaction.GuildID, interaction.ChannelID, who.userID, msgOpt.StringValue(), delay)
	if errors.Is(err, support.ErrInvalidReminder) {
		b.respondEmbed(session, interaction, b.errorEmbed("Reminder", "Reminders need a message and a delay of at most a year."), true)
		return
	}
	if err != nil {
		b.logger.Warn("reminder schedule failed", zap.Error(err))
		b.respondEmbed(session, interaction, b.errorEmbed("Reminder", "Could not save the reminder."), true)
		return
	}
	description := fmt.Sprintf("I will remind you <t:%d:R>.", reminder.DueAt.Unix())
	b.respondEmbed(session, interaction, b.commandEmbed("Reminder set", description, b.cfg.Notifications.EmbedColors.Action, nil), true)
}

func (b *Bot) handleRemindersCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, who caller, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		b.respondEmbed(session, interaction, b.errorEmbed("Reminders", "Missing subcommand."), true)
		return
	}
	sub := options[0]

	if sub.Name == "cancel" {
		id := ""
		if opt, ok := toOptionMap(sub.Options)["id"]; ok {
			id = opt.StringValue()
		}
		err := b.support.CancelReminder(ctx, id, who.userID)
		if errors.Is(err, support.ErrReminderNotFound) {
			b.respondEmbed(session, interaction, b.errorEmbed("Reminders", "No pending reminder with that id."), true)
			return
		}
		if err != nil {
			b.logger.Warn("reminder cancel failed", zap.Error(err))
			b.respondEmbed(session, interaction, b.errorEmbed("Reminders", "Could not cancel the reminder."), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Reminders", "Reminder cancelled.", b.cfg.Notifications.EmbedColors.Action, nil), true)
		return
	}

	reminders, err := b.support.Reminders(ctx, interaction.GuildID, who.userID)
	if err != nil {
		b.logger.Warn("reminder list failed", zap.Error(err))
		b.respondEmbed(session, interaction, b.errorEmbed("Reminders", "Could not load reminders."), true)
		return
	}
	if len(reminders) == 0 {
		b.respondEmbed(session, interaction, b.commandEmbed("Reminders", "You have no pending reminders.", b.cfg.Notifications.EmbedColors.Action, nil), true)
		return
	}
	fields := make([]*discordgo.MessageEmbedField, 0, len(reminders))
	for i, r := range reminders {
		if i == 25 {
			break
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("#%d", i+1),
			Value: truncate(fmt.Sprintf("`%s` due <t:%d:R>\n%s", r.ID, r.DueAt.Unix(), r.Message), maxFieldValue),
		})
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Reminders", fmt.Sprintf("%d pending.", len(reminders)), b.cfg.Notifications.EmbedColors.Action, fields), true)
}

func (b *Bot) handleScanCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, who caller, data discordgo.ApplicationCommandInteractionData) {
	if !b.isStaff(ctx, interaction.GuildID, who.userID, who.roles, who.perms) {
		b.denied(session, interaction, "Scan")
		return
	}
	if !b.reputation.Enabled() {
		b.respondEmbed(session, interaction, b.errorEmbed("Scan", "No reputation provider is configured."), true)
		return
	}
	if b.throttled(session, interaction, who, "scan") {
		return
	}

	opts := toOptionMap(data.Options)
	var attachmentURL, target string
	if opt, ok := opts["file"]; ok && data.Resolved != nil {
		if id, ok := opt.Value.(string); ok {
			if att := data.Resolved.Attachments[id]; att != nil {
				attachmentURL = att.URL
			}
		}
	}
	if opt, ok := opts["target"]; ok {
		target = opt.StringValue()
	}
	if attachmentURL == "" && strings.TrimSpace(target) == "" {
		b.respondEmbed(session, interaction, b.errorEmbed("Scan", "Give a target or attach a file."), true)
		return
	}

	if err := b.deferResponse(session, interaction, true); err != nil {
		b.logger.Warn("defer failed", zap.Error(err))
		return
	}
	b.editResponse(session, interaction, b.scan(ctx, interaction.GuildID, who.userID, target, attachmentURL))
}

// scan resolves the indicator, looks it up and renders the outcome.
func (b *Bot) scan(ctx context.Context, guildID, userID, target, attachmentURL string) *discordgo.MessageEmbed {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	var (
		kind  reputation.Kind
		value string
	)
	if attachmentURL != "" {
		sum, err := b.reputation.HashURL(ctx, attachmentURL)
		if errors.Is(err, reputation.ErrTooLarge) {
			return b.errorEmbed("Scan", "That file is too large to scan.")
		}
		if err != nil {
			b.logger.Warn("attachment hash failed", zap.Error(err))
			return b.errorEmbed("Scan", "Could not download the attachment.")
		}
		kind, value = reputation.KindFile, sum
	} else {
		k, v, err := utils.ClassifyIndicator(target)
		if err != nil {
			return b.errorEmbed("Scan", "That does not look like a URL, domain, IP or hash.")
		}
		kind, value = reputation.Kind(k), v
	}

	report, err := b.reputation.Lookup(ctx, kind, value)
	switch {
	case errors.Is(err, reputation.ErrNotFound):
		return b.commandEmbed("Scan", fmt.Sprintf("`%s` is unknown to the provider.", value), b.cfg.Notifications.EmbedColors.Action, nil)
	case errors.Is(err, reputation.ErrRateLimited):
		return b.commandEmbed("Scan", "The provider quota is exhausted, try again later.", b.cfg.Notifications.EmbedColors.Warning, nil)
	case err != nil:
		b.logger.Warn("reputation lookup failed", zap.String("kind", string(kind)), zap.Error(err))
		return b.errorEmbed("Scan", "Lookup failed.")
	}

	if report.Verdict() == reputation.VerdictMalicious {
		b.audit.Log(ctx, audit.LevelWarn, guildID, userID, audit.EventScanMalicious, fmt.Sprintf("%s %s", kind, value))
	}
	return b.reportEmbed(report)
}

func (b *Bot) reportEmbed(report reputation.Report) *discordgo.MessageEmbed {
	color := b.cfg.Notifications.EmbedColors.Action
	if report.Verdict() != reputation.VerdictClean {
		color = b.cfg.Notifications.EmbedColors.Warning
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Verdict", Value: string(report.Verdict()), Inline: true},
		{Name: "Malicious", Value: fmt.Sprintf("%d/%d", report.Malicious, report.Engines()), Inline: true},
		{Name: "Suspicious", Value: fmt.Sprintf("%d", report.Suspicious), Inline: true},
		{Name: "Reputation", Value: fmt.Sprintf("%d", report.Reputation), Inline: true},
	}
	if !report.LastAnalysis.IsZero() {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Last analysis", Value: fmt.Sprintf("<t:%d:R>", report.LastAnalysis.Unix()), Inline: true})
	}
	embed := b.commandEmbed("Scan: "+string(report.Kind), "`"+truncate(report.Value, 200)+"`", color, fields)
	embed.URL = report.Link
	return embed
}

func (b *Bot) handleReportCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, who caller, opts optionMap) {
	if !b.isStaff(ctx, interaction.GuildID, who.userID, who.roles, who.perms) {
		b.denied(session, interaction, "Report")
		return
	}
	start := time.Now().Add(-24 * time.Hour)
	if opt, ok := opts["period"]; ok && opt.StringValue() == "week" {
		start = time.Now().Add(-7 * 24 * time.Hour)
	}
	report, err := b.analytics.Report(ctx, interaction.GuildID, start)
	if err != nil {
		b.logger.Warn("report failed", zap.Error(err))
		b.respondEmbed(session, interaction, b.errorEmbed("Report", "Could not build the report."), true)
		return
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Total", Value: fmt.Sprintf("%d", report.Total), Inline: true},
		{Name: "Info", Value: fmt.Sprintf("%d", report.ByLevel[audit.LevelInfo]), Inline: true},
		{Name: "Warn", Value: fmt.Sprintf("%d", report.ByLevel[audit.LevelWarn]), Inline: true},
	}
	if top := report.TopEvents(5); len(top) > 0 {
		lines := make([]string, 0, len(top))
		for _, ev := range top {
			lines = append(lines, fmt.Sprintf("%s: %d", auditEventLabel(ev.Event), ev.Count))
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Top events", Value: strings.Join(lines, "\n")})
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Report", "Since <t:"+fmt.Sprint(start.Unix())+":f>", b.cfg.Notifications.EmbedColors.Action, fields), true)
}
