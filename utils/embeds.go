package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// CreateBrandedEmbed creates a base embed with Kringbot branding.
func CreateBrandedEmbed(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: BotName,
		},
	}
}

// ErrorEmbed creates a red error embed with a classified rejection reason.
func ErrorEmbed(message string) *discordgo.MessageEmbed {
	return CreateBrandedEmbed("❌ Error", message, 0xFF0000)
}

// InsufficientTokensEmbed tells the user their balance cannot cover the
// requested amount.
func InsufficientTokensEmbed(required, balance int64) *discordgo.MessageEmbed {
	return CreateBrandedEmbed(
		"Not Enough Ktokens",
		fmt.Sprintf("You only have **%s** %s but that requires **%s** %s.",
			FormatTokens(balance), TokenEmoji,
			FormatTokens(required), TokenEmoji),
		0xFF0000,
	)
}

// FormatTokens formats a token amount for display.
func FormatTokens(amount int64) string {
	return FormatNumber(amount)
}

// FormatNumber adds thousands separators.
func FormatNumber(num int64) string {
	str := strconv.FormatInt(num, 10)
	negative := strings.HasPrefix(str, "-")
	if negative {
		str = str[1:]
	}
	if len(str) > 3 {
		var result strings.Builder
		for i, r := range str {
			if i > 0 && (len(str)-i)%3 == 0 {
				result.WriteString(",")
			}
			result.WriteRune(r)
		}
		str = result.String()
	}
	if negative {
		return "-" + str
	}
	return str
}

// FormatSeconds renders a countdown as "1h 2m 3s", dropping leading zero
// units.
func FormatSeconds(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, secs)
	}
	return fmt.Sprintf("%ds", secs)
}
