package bot

import "github.com/bwmarrin/discordgo"

var (
	minCheckLength = 1
	minHours       = 0.0
	maxHours       = 24.0 * 30
	bucketChoices  = []*discordgo.ApplicationCommandOptionChoice{
		{Name: "admin", Value: "admin"},
		{Name: "staff", Value: "staff"},
	}
)

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "automod",
			Description: "Inspect and manage automod rules",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "check",
					Description: "Show which rules a piece of text would trigger",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "content",
							Description: "text to check",
							Required:    true,
							MinLength:   &minCheckLength,
							MaxLength:   maxCheckInput,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "rules",
					Description: "List the loaded rules",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "reload",
					Description: "Reload the rules file",
				},
			},
		},
		{
			Name:        "settings",
			Description: "View or change server settings",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "view",
					Description: "Show current settings",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set",
					Description: "Change one or more settings",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "log_channel",
							Description:  "channel for audit messages",
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
						},
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "support_forum",
							Description:  "forum whose posts are support threads",
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildForum},
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "resolved_tag",
							Description: "forum tag id applied to resolved posts",
						},
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "automod",
							Description: "enable automod",
						},
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "audit_only",
							Description: "log automod hits without deleting",
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "auto_close_hours",
							Description: "close idle support posts after this many hours (0 disables)",
							MinValue:    &minHours,
							MaxValue:    maxHours,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "reminder_hours",
							Description: "remind idle support posts after this many hours (0 disables)",
							MinValue:    &minHours,
							MaxValue:    maxHours,
						},
					},
				},
			},
		},
		{
			Name:        "roles",
			Description: "Manage admin and staff roles",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Add a role to a bucket",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "bucket", Description: "admin or staff", Required: true, Choices: bucketChoices},
						{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "role", Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a role from a bucket",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "bucket", Description: "admin or staff", Required: true, Choices: bucketChoices},
						{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "role", Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List configured roles",
				},
			},
		},
		{
			Name:        "resolve",
			Description: "Mark this support post as resolved",
		},
		{
			Name:        "remind",
			Description: "Set a reminder in this channel",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "in", Description: "delay such as 30m, 2h or 3d", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "message", Description: "what to remind you about", Required: true, MaxLength: 1000},
			},
		},
		{
			Name:        "reminders",
			Description: "Manage your pending reminders",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List your pending reminders",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "cancel",
					Description: "Cancel a pending reminder",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "id", Description: "reminder id from /reminders list", Required: true},
					},
				},
			},
		},
		{
			Name:        "scan",
			Description: "Look up a URL, domain, IP, file hash or attachment",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "target", Description: "url, domain, ip or sha256"},
				{Type: discordgo.ApplicationCommandOptionAttachment, Name: "file", Description: "attachment to hash and look up"},
			},
		},
		{
			Name:        "report",
			Description: "Moderation activity report",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "period",
					Description: "day or week",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "day", Value: "day"},
						{Name: "week", Value: "week"},
					},
				},
			},
		},
	}
}

// registerCommands creates, updates and deletes global commands so the
// registered set matches commandDefinitions. Stale guild commands are removed.
func (b *Bot) registerCommands() error {
	commands := commandDefinitions()

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
	}

	for _, guild := range b.session.State.Guilds {
		if guild == nil {
			continue
		}
		guildID := guild.ID
		guildCmds, err := b.session.ApplicationCommands(appID, guildID)
		if err != nil {
			continue
		}
		for _, cmd := range guildCmds {
			if _, ok := desired[cmd.Name]; ok {
				continue
			}
			_ = b.session.ApplicationCommandDelete(appID, guildID, cmd.ID)
		}
	}
	return nil
}
