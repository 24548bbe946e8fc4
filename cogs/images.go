package cogs

import (
	"fmt"
	"sync"
	"time"

	"kringbot-go/utils"

	"github.com/bwmarrin/discordgo"
)

// refresh-images has one bot-wide cooldown, not a per-user one, so it lives
// here in memory rather than in the preference store.
var (
	refreshMu   sync.Mutex
	lastRefresh time.Time
)

// imageFeatures describes the per-user image cooldowns and their override
// flags.
var imageFeatures = map[string]struct {
	cooldownKeyFmt  string
	overrideKeyFmt  string
	cooldownSeconds int64
}{
	"daily":    {utils.DailyCooldownKeyFmt, utils.NoCdDailyKeyFmt, utils.DailyCooldownSeconds},
	"kringpic": {utils.KringpicCooldownKeyFmt, utils.NoCdKringpicKeyFmt, utils.KringpicCooldownSeconds},
}

// RegisterImageCommands returns the image slash commands.
func RegisterImageCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "daily-kringles",
			Description: "Get your daily dose of Kringle!",
		},
		{
			Name:        "kring-pic",
			Description: "Get a random Kringle pic",
		},
		{
			Name:        "refresh-images",
			Description: "Refresh the image cache from the source folder",
		},
	}
}

// RegisterImageOwnerCommands returns the owner-only cooldown admin group.
func RegisterImageOwnerCommands() *discordgo.ApplicationCommand {
	featureChoices := []*discordgo.ApplicationCommandOptionChoice{
		{Name: "daily", Value: "daily"},
		{Name: "kringpic", Value: "kringpic"},
	}
	targetOpt := &discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionUser, Name: "target",
		Description: "Who to modify", Required: true,
	}
	featureOpt := &discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionString, Name: "feature",
		Description: "Which image cooldown", Required: true, Choices: featureChoices,
	}

	return &discordgo.ApplicationCommand{
		Name:        "kringbot-admin",
		Description: "Owner-only cooldown administration",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "remove-cooldown",
				Description: "Exempt a user from an image cooldown",
				Options:     []*discordgo.ApplicationCommandOption{targetOpt, featureOpt},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "add-cooldown",
				Description: "Re-apply an image cooldown to a user",
				Options:     []*discordgo.ApplicationCommandOption{targetOpt, featureOpt},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "reduce-cooldown",
				Description: "Knock seconds off a user's current image cooldown",
				Options: []*discordgo.ApplicationCommandOption{targetOpt, featureOpt,
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "seconds",
						Description: "Seconds to remove", Required: true, MinValue: &minOne},
				},
			},
		},
	}
}

// HandleDailyKringles serves the 12-hour daily image.
func HandleDailyKringles(s *discordgo.Session, i *discordgo.InteractionCreate) {
	serveImage(s, i, "daily", "🎄 Daily Kringle")
}

// HandleKringPic serves the short-cooldown random image.
func HandleKringPic(s *discordgo.Session, i *discordgo.InteractionCreate) {
	serveImage(s, i, "kringpic", "📸 Kring Pic")
}

// serveImage runs the shared gate-fetch-arm sequence for both image commands.
// The cooldown is armed only after a successful fetch, so a Drive outage never
// burns a user's window.
func serveImage(s *discordgo.Session, i *discordgo.InteractionCreate, feature, title string) {
	userID, err := utils.InteractionUserID(i)
	if err != nil {
		return
	}
	if utils.Images == nil || utils.BotConfig.DailyImageFolderID == "" {
		utils.SendEphemeralText(s, i, "❌ The image feature is not configured.")
		return
	}

	f := imageFeatures[feature]
	exempt := utils.Prefs.GetBool(fmt.Sprintf(f.overrideKeyFmt, userID), false)
	if !exempt {
		if remaining := utils.Prefs.GetInt(fmt.Sprintf(f.cooldownKeyFmt, userID), 0); remaining > 0 {
			utils.SendEphemeralText(s, i, fmt.Sprintf(
				"⏳ You must wait %s before using this again.", utils.FormatSeconds(remaining)))
			return
		}
	}

	if err := utils.DeferInteractionResponse(s, i, false); err != nil {
		utils.BotLogf("IMAGES", "Failed to defer %s response: %v", feature, err)
		return
	}

	imageURL, err := utils.Images.RandomImageURL(utils.BotConfig.DailyImageFolderID)
	if err != nil {
		utils.BotLogf("IMAGES", "Failed to fetch %s image: %v", feature, err)
		utils.EditOriginalInteraction(s, i,
			utils.ErrorEmbed("Couldn't fetch an image right now. Try again later."), nil)
		return
	}

	if !exempt {
		utils.Prefs.Set(fmt.Sprintf(f.cooldownKeyFmt, userID), f.cooldownSeconds, true)
	}

	embed := utils.CreateBrandedEmbed(title,
		fmt.Sprintf("Here you go, **%s**!", utils.InteractionDisplayName(i)), utils.BotColor)
	embed.Image = &discordgo.MessageEmbedImage{URL: imageURL}
	if err := utils.EditOriginalInteraction(s, i, embed, nil); err != nil {
		utils.BotLogf("IMAGES", "Failed to send %s image: %v", feature, err)
	}
}

// HandleRefreshImages refetches the folder listing, at most once per
// RefreshImgCooldownSeconds across all users.
func HandleRefreshImages(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if utils.Images == nil || utils.BotConfig.DailyImageFolderID == "" {
		utils.SendEphemeralText(s, i, "❌ The image feature is not configured.")
		return
	}

	refreshMu.Lock()
	elapsed := time.Since(lastRefresh)
	if elapsed < utils.RefreshImgCooldownSeconds*time.Second {
		remaining := int64((utils.RefreshImgCooldownSeconds*time.Second - elapsed) / time.Second)
		refreshMu.Unlock()
		utils.SendEphemeralText(s, i, fmt.Sprintf(
			"⏳ The cache was refreshed recently. Try again in %s.", utils.FormatSeconds(remaining)))
		return
	}
	lastRefresh = time.Now()
	refreshMu.Unlock()

	if err := utils.DeferInteractionResponse(s, i, true); err != nil {
		return
	}

	if err := utils.Images.RefreshFolderCache(utils.BotConfig.DailyImageFolderID); err != nil {
		utils.BotLogf("IMAGES", "Cache refresh failed: %v", err)
		utils.EditOriginalInteraction(s, i, utils.ErrorEmbed("Cache refresh failed."), nil)
		return
	}
	utils.EditOriginalInteraction(s, i,
		utils.CreateBrandedEmbed("🔄 Images Refreshed", "The image cache has been rebuilt.", utils.BotColor), nil)
}

// HandleImageOwnerCommand dispatches the kringbot-admin subcommands.
func HandleImageOwnerCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID, err := utils.InteractionUserID(i)
	if err != nil || !utils.IsOwner(userID) {
		utils.SendInteractionResponse(s, i, utils.ErrorEmbed("You are not authorized to use owner commands."), nil, true)
		return
	}

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return
	}
	sub := options[0]

	var target *discordgo.User
	var feature string
	var seconds int64
	for _, opt := range sub.Options {
		switch opt.Name {
		case "target":
			target = opt.UserValue(s)
		case "feature":
			feature = opt.StringValue()
		case "seconds":
			seconds = opt.IntValue()
		}
	}
	if target == nil {
		return
	}
	targetID, err := utils.ParseUserID(target.ID)
	if err != nil {
		return
	}
	f, ok := imageFeatures[feature]
	if !ok {
		utils.SendEphemeralText(s, i, "❌ Unknown cooldown type.")
		return
	}

	switch sub.Name {
	case "remove-cooldown":
		utils.Prefs.Set(fmt.Sprintf(f.overrideKeyFmt, targetID), true, false)
		utils.SendEphemeralText(s, i, fmt.Sprintf(
			"✅ **%s** is now exempt from the **%s** cooldown.", target.Username, feature))
	case "add-cooldown":
		utils.Prefs.Set(fmt.Sprintf(f.overrideKeyFmt, targetID), false, false)
		utils.SendEphemeralText(s, i, fmt.Sprintf(
			"✅ **%s** is subject to the **%s** cooldown again.", target.Username, feature))
	case "reduce-cooldown":
		utils.Tokens.AdjustCooldown(feature, targetID, -seconds)
		remaining := utils.Prefs.GetInt(fmt.Sprintf(f.cooldownKeyFmt, targetID), 0)
		utils.SendEphemeralText(s, i, fmt.Sprintf(
			"✅ Reduced **%s**'s **%s** cooldown by %ds. Remaining: %s",
			target.Username, feature, seconds, utils.FormatSeconds(remaining)))
	}
}
