package bot

import (
	"context"
	"fmt"
	"strings"

	"sentinel-support/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// handleLegacyCommand runs prefix commands typed in chat. It reports whether
// the message was a recognised command.
func (b *Bot) handleLegacyCommand(ctx context.Context, session *discordgo.Session, msg *discordgo.MessageCreate) bool {
	body := strings.TrimPrefix(msg.Content, b.cfg.CommandPrefix)
	name, args, _ := strings.Cut(body, " ")
	args = strings.TrimSpace(args)

	who := caller{userID: msg.Author.ID}
	if msg.Member != nil {
		who.roles = msg.Member.Roles
	}

	var (
		embed      *discordgo.MessageEmbed
		components []discordgo.MessageComponent
	)
	switch strings.ToLower(name) {
	case "check":
		if !b.isStaff(ctx, msg.GuildID, who.userID, who.roles, 0) {
			return true
		}
		if !fitsCheck(args) {
			embed = b.errorEmbed("Automod check", fmt.Sprintf("Usage: `%scheck <text>` (up to %d characters).", b.cfg.CommandPrefix, maxCheckInput))
			break
		}
		embed, components = b.renderCheck(args, 0)
	case "resolve":
		embed = b.resolveThread(ctx, msg.GuildID, msg.ChannelID, who)
	case "scan":
		if !b.isStaff(ctx, msg.GuildID, who.userID, who.roles, 0) {
			return true
		}
		if !b.reputation.Enabled() {
			embed = b.errorEmbed("Scan", "No reputation provider is configured.")
			break
		}
		attachmentURL := ""
		if len(msg.Attachments) > 0 {
			attachmentURL = msg.Attachments[0].URL
		}
		if args == "" && attachmentURL == "" {
			embed = b.errorEmbed("Scan", fmt.Sprintf("Usage: `%sscan <url|domain|ip|sha256>` or attach a file.", b.cfg.CommandPrefix))
			break
		}
		_ = session.ChannelTyping(msg.ChannelID)
		embed = b.scan(ctx, msg.GuildID, who.userID, scanTarget(args), attachmentURL)
	default:
		return false
	}

	_, err := session.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
		Reference:  msg.Reference(),
	})
	if err != nil {
		b.logger.Warn("legacy command reply failed", zap.String("command", name), zap.Error(err))
	}
	return true
}

// scanTarget picks the first link out of free text, falling back to the
// first word for bare domains, IPs and hashes.
func scanTarget(text string) string {
	if urls := utils.ExtractURLs(text); len(urls) > 0 {
		return urls[0]
	}
	if fields := strings.Fields(text); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
