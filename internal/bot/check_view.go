package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sentinel-support/internal/automod"
	"sentinel-support/internal/config"

	"github.com/bwmarrin/discordgo"
)

const checkPagePrefix = "automod-check:"

// Discord embed limits.
const (
	maxFieldValue  = 1024
	maxDescription = 4096
	maxCheckInput  = 1900
)

var errNoCheckContent = errors.New("check content missing from message")

type checkView struct {
	content     string
	result      automod.CheckResult
	rulesLoaded int
	page        int
	pageSize    int
}

// render builds the embed and navigation buttons for one page of a check.
func (v checkView) render(colors config.EmbedColors) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	pages := v.result.PageCount(v.pageSize)
	page := v.page
	if page >= pages {
		page = pages - 1
	}
	if page < 0 {
		page = 0
	}

	color := colors.Action
	verdict := "Clean"
	switch {
	case v.result.Allowed:
		verdict = fmt.Sprintf("Allowed by **%s** (`%s`)", v.result.MatchedRule, v.result.AllowedPattern)
	case v.result.Blocked:
		color = colors.Warning
		verdict = fmt.Sprintf("Blocked by **%s** (`%s`, %s)", v.result.MatchedRule, v.result.MatchedPattern, v.result.MatchType)
	case v.rulesLoaded == 0:
		color = colors.Error
		verdict = "No rules loaded, nothing can be blocked"
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Verdict", Value: verdict, Inline: false},
		{Name: "Matches", Value: strconv.Itoa(v.result.MatchCount), Inline: true},
		{Name: "Rules loaded", Value: strconv.Itoa(v.rulesLoaded), Inline: true},
	}
	for i, match := range v.result.Page(page, v.pageSize) {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("#%d %s (%s)", page*v.pageSize+i+1, match.Rule, match.RuleID),
			Value: truncate(fmt.Sprintf("`%s` (%s)", match.Pattern, match.Kind), maxFieldValue),
		})
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Automod check",
		Description: quoteContent(v.content),
		Color:       color,
		Fields:      fields,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if pages <= 1 {
		return embed, nil
	}

	embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Page %d/%d", page+1, pages)}
	return embed, []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Previous", Style: discordgo.SecondaryButton, CustomID: checkPageID(page - 1), Disabled: page == 0},
			discordgo.Button{Label: "Next", Style: discordgo.SecondaryButton, CustomID: checkPageID(page + 1), Disabled: page >= pages-1},
		}},
	}
}

func checkPageID(page int) string {
	return checkPagePrefix + strconv.Itoa(page)
}

func parseCheckPageID(customID string) (int, bool) {
	raw, ok := strings.CutPrefix(customID, checkPagePrefix)
	if !ok {
		return 0, false
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return page, true
}

// quoteContent renders content as a block quote; unquoteContent reverses it
// exactly so page flips can re-run the check on the original text.
func quoteContent(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	return strings.Join(lines, "\n")
}

func unquoteContent(description string) (string, error) {
	if description == "" {
		return "", errNoCheckContent
	}
	lines := strings.Split(description, "\n")
	for i, line := range lines {
		rest, ok := strings.CutPrefix(line, "> ")
		if !ok {
			if line != ">" {
				return "", errNoCheckContent
			}
			rest = ""
		}
		lines[i] = rest
	}
	return strings.Join(lines, "\n"), nil
}

// fitsCheck reports whether content can be carried in a check embed.
func fitsCheck(content string) bool {
	return content != "" && len(content) <= maxCheckInput && len(quoteContent(content)) <= maxDescription
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	cut := limit - 3
	for cut > 0 && !utf8Start(value[cut]) {
		cut--
	}
	return value[:cut] + "..."
}

func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}
