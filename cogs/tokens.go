package cogs

import (
	"fmt"

	"kringbot-go/games/blackjack"
	"kringbot-go/games/dice"
	"kringbot-go/utils"

	"github.com/bwmarrin/discordgo"
)

var minOne = float64(1)

// RegisterTokenCommands returns the ktoken command group.
func RegisterTokenCommands() *discordgo.ApplicationCommand {
	cooldownChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, 3)
	for _, name := range utils.CooldownChoices() {
		cooldownChoices = append(cooldownChoices, &discordgo.ApplicationCommandOptionChoice{
			Name: name, Value: name,
		})
	}

	return &discordgo.ApplicationCommand{
		Name:        "ktoken",
		Description: "Ktoken economy commands",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "claim",
				Description: "Claim your ktokens every hour!",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "balance",
				Description: "Check your ktoken balance",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "spend",
				Description: "Spend ktokens to modify someone's command cooldown",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionUser, Name: "target", Description: "Who to modify the cooldown for", Required: true},
					{Type: discordgo.ApplicationCommandOptionString, Name: "cooldown", Description: "Which cooldown to adjust", Required: true, Choices: cooldownChoices},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "tokens", Description: "Ktokens to spend (1 ktoken = 1 second)", Required: true, MinValue: &minOne},
					{Type: discordgo.ApplicationCommandOptionString, Name: "mode", Description: "Extend or reduce?", Required: true, Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "extend", Value: "extend"},
						{Name: "reduce", Value: "reduce"},
					}},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "gamba",
				Description: "Bet ktokens on a dice roll: higher/lower or an exact number!",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "bet", Description: "How many ktokens to bet", Required: true, MinValue: &minOne},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "blackjack",
				Description: "Play blackjack with ktokens!",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "bet", Description: "How many ktokens to bet", Required: true, MinValue: &minOne},
				},
			},
		},
	}
}

// RegisterTokenOwnerCommands returns the owner-only ktoken-owner group.
func RegisterTokenOwnerCommands() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "ktoken-owner",
		Description: "Owner-only ktoken commands",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "modify",
				Description: "Change a user's ktoken balance",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionUser, Name: "target", Description: "Who to modify the balance of", Required: true},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "tokens", Description: "Tokens to add (negative removes)", Required: true},
				},
			},
		},
	}
}

// HandleTokenCommand dispatches ktoken subcommands.
func HandleTokenCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return
	}
	sub := options[0]

	switch sub.Name {
	case "claim":
		handleClaim(s, i)
	case "balance":
		handleBalance(s, i)
	case "spend":
		handleSpend(s, i, sub.Options)
	case "gamba":
		dice.HandleDiceCommand(s, i, sub.Options[0].IntValue())
	case "blackjack":
		blackjack.HandleBlackjackCommand(s, i, sub.Options[0].IntValue())
	}
}

// HandleTokenOwnerCommand dispatches ktoken-owner subcommands.
func HandleTokenOwnerCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
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

	switch sub.Name {
	case "modify":
		handleOwnerModify(s, i, sub.Options)
	}
}

func handleClaim(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID, err := utils.InteractionUserID(i)
	if err != nil {
		return
	}

	newBalance, remaining, ok := utils.Tokens.Claim(userID)
	if !ok {
		utils.SendEphemeralText(s, i, fmt.Sprintf(
			"⏳ You must wait %s before claiming again.", utils.FormatSeconds(remaining)))
		return
	}

	// The displayed amount always matches the credited amount.
	utils.SendEphemeralText(s, i, fmt.Sprintf(
		"✅ You have claimed %s ktokens! Your new balance: %s",
		utils.FormatTokens(utils.TokensPerClaim), utils.FormatTokens(newBalance)))
}

func handleBalance(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID, err := utils.InteractionUserID(i)
	if err != nil {
		return
	}
	balance := utils.Tokens.Balance(userID)
	utils.SendEphemeralText(s, i, fmt.Sprintf(
		"**%s**: You have **%s** ktokens.", utils.InteractionDisplayName(i), utils.FormatTokens(balance)))
}

func handleSpend(s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	userID, err := utils.InteractionUserID(i)
	if err != nil {
		return
	}

	var target *discordgo.User
	var cooldown, mode string
	var tokens int64
	for _, opt := range opts {
		switch opt.Name {
		case "target":
			target = opt.UserValue(s)
		case "cooldown":
			cooldown = opt.StringValue()
		case "tokens":
			tokens = opt.IntValue()
		case "mode":
			mode = opt.StringValue()
		}
	}
	if target == nil {
		return
	}
	targetID, err := utils.ParseUserID(target.ID)
	if err != nil {
		return
	}

	reduce := mode == "reduce"
	newBalance, err := utils.Tokens.Spend(userID, targetID, cooldown, tokens, reduce)
	if err == utils.ErrInsufficientFunds {
		utils.SendEphemeralText(s, i, fmt.Sprintf(
			"❌ You only have %s tokens, but that requires %s.",
			utils.FormatTokens(utils.Tokens.Balance(userID)), utils.FormatTokens(tokens)))
		return
	}
	if err == utils.ErrUnknownCooldown {
		utils.SendEphemeralText(s, i, "❌ Unknown cooldown type.")
		return
	}

	verb := "extended"
	deltaStr := fmt.Sprintf("+%s tokens → %ds more", utils.FormatTokens(tokens), tokens*utils.SecondsPerToken)
	if reduce {
		verb = "reduced"
		deltaStr = fmt.Sprintf("-%s tokens → %ds less", utils.FormatTokens(tokens), tokens*utils.SecondsPerToken)
	}

	embed := utils.CreateBrandedEmbed(
		"Cooldown "+verb,
		fmt.Sprintf("✅ %s has %s **%s**'s **%s** cooldown.\n**Cooldown change:** %s\n**Your balance:** %s",
			utils.InteractionDisplayName(i), verb, target.Username, cooldown, deltaStr,
			utils.FormatTokens(newBalance)),
		utils.BotColor)
	utils.SendInteractionResponse(s, i, embed, nil, false)
}

func handleOwnerModify(s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	var target *discordgo.User
	var tokens int64
	for _, opt := range opts {
		switch opt.Name {
		case "target":
			target = opt.UserValue(s)
		case "tokens":
			tokens = opt.IntValue()
		}
	}
	if target == nil {
		return
	}
	targetID, err := utils.ParseUserID(target.ID)
	if err != nil {
		return
	}

	newBalance := utils.Tokens.AddTokens(targetID, tokens)

	verb := "increased"
	if tokens < 0 {
		verb = "decreased"
		tokens = -tokens
	}
	utils.SendEphemeralText(s, i, fmt.Sprintf(
		"✅ Successfully %s **%s**'s balance by %s tokens.\n**New balance:** %s",
		verb, target.Username, utils.FormatTokens(tokens), utils.FormatTokens(newBalance)))
}
