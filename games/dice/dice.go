package dice

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"kringbot-go/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

const (
	customIDPrefix = "kdice_"
	roundTimeout   = 60 * time.Second
)

// Press rejections, mapped to user-facing messages by the handler.
var (
	errNotYourRound = errors.New("round belongs to another player")
	errAlreadyActed = errors.New("round already resolved")
)

// Active rounds (owner userID -> round)
var (
	activeRounds   = map[int64]*Round{}
	activeRoundsMu sync.RWMutex
)

// Outcome describes a resolved dice guess.
type Outcome struct {
	Roll  int
	Won   bool
	Delta int64 // net balance change, before the ledger clamps at zero
}

// Resolve applies the payout table for a guess against a roll. Higher wins on
// 4-6 and Lower on 1-3, both at 1:1; an exact digit pays DiceExactPayout:1;
// everything else loses the bet.
func Resolve(guess string, roll int, bet int64) Outcome {
	switch guess {
	case "higher":
		if roll >= 4 {
			return Outcome{Roll: roll, Won: true, Delta: bet}
		}
	case "lower":
		if roll <= 3 {
			return Outcome{Roll: roll, Won: true, Delta: bet}
		}
	default:
		if chosen, err := strconv.Atoi(guess); err == nil && roll == chosen {
			return Outcome{Roll: roll, Won: true, Delta: bet * utils.DiceExactPayout}
		}
	}
	return Outcome{Roll: roll, Won: false, Delta: -bet}
}

// Round is a single pending dice bet. It transitions exactly once, on the
// first accepted guess; the resolved flag is the double-click guard.
type Round struct {
	ID        string
	UserID    int64
	Bet       int64
	ChannelID string
	MessageID string

	mu       sync.Mutex
	resolved bool
}

// guessCustomID embeds the round owner in the button ID so a press always
// routes back to the round it was rendered for.
func guessCustomID(ownerID int64, guess string) string {
	return fmt.Sprintf("%s%d_%s", customIDPrefix, ownerID, guess)
}

func parseGuessCustomID(id string) (ownerID int64, guess string, ok bool) {
	rest := strings.TrimPrefix(id, customIDPrefix)
	parts := strings.SplitN(rest, "_", 2)
	if len(parts) != 2 {
		return 0, "", false
	}
	owner, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return owner, parts[1], true
}

// reserveRound claims the per-user round slot before any I/O suspension, so
// two overlapping commands cannot both open a round. Returns false when the
// user already holds the slot.
func reserveRound(r *Round) bool {
	activeRoundsMu.Lock()
	defer activeRoundsMu.Unlock()
	if _, exists := activeRounds[r.UserID]; exists {
		return false
	}
	activeRounds[r.UserID] = r
	return true
}

func releaseRound(userID int64) {
	activeRoundsMu.Lock()
	delete(activeRounds, userID)
	activeRoundsMu.Unlock()
}

// claimRound resolves a press against the round the button belongs to. A
// foreign presser is rejected without touching the round; the owner wins the
// one-shot transition exactly once, and any later press (including after the
// round left the table) reads as already-acted.
func claimRound(presserID, ownerID int64) (*Round, error) {
	if presserID != ownerID {
		return nil, errNotYourRound
	}

	activeRoundsMu.RLock()
	round, ok := activeRounds[ownerID]
	activeRoundsMu.RUnlock()
	if !ok {
		return nil, errAlreadyActed
	}

	round.mu.Lock()
	defer round.mu.Unlock()
	if round.resolved {
		return nil, errAlreadyActed
	}
	round.resolved = true
	return round, nil
}

// HandleDiceCommand starts a round for the ktoken gamba subcommand.
func HandleDiceCommand(s *discordgo.Session, i *discordgo.InteractionCreate, bet int64) {
	userID, err := utils.InteractionUserID(i)
	if err != nil {
		utils.SendInteractionResponse(s, i, utils.ErrorEmbed("Failed to identify user."), nil, true)
		return
	}

	if bet <= 0 {
		utils.SendInteractionResponse(s, i, utils.ErrorEmbed("Bet amount must be at least 1."), nil, true)
		return
	}
	balance := utils.Tokens.Balance(userID)
	if bet > balance {
		utils.SendInteractionResponse(s, i, utils.InsufficientTokensEmbed(bet, balance), nil, true)
		return
	}

	round := &Round{
		ID:     uuid.NewString(),
		UserID: userID,
		Bet:    bet,
	}
	if !reserveRound(round) {
		utils.SendInteractionResponse(s, i, utils.ErrorEmbed("You already have an open dice bet."), nil, true)
		return
	}

	embed := betEmbed(utils.InteractionDisplayName(i), bet)
	if err := utils.SendInteractionResponse(s, i, embed, guessButtons(userID, false), false); err != nil {
		utils.BotLogf("DICE", "Failed to open round %s: %v", round.ID, err)
		releaseRound(userID)
		return
	}
	if msg, err := s.InteractionResponse(i.Interaction); err == nil {
		round.ChannelID = msg.ChannelID
		round.MessageID = msg.ID
	}

	go round.watchTimeout(s)
}

// HandleDiceInteraction processes a guess button press.
func HandleDiceInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID, err := utils.InteractionUserID(i)
	if err != nil {
		return
	}

	ownerID, guess, ok := parseGuessCustomID(i.MessageComponentData().CustomID)
	if !ok {
		return
	}

	round, err := claimRound(userID, ownerID)
	if err == errNotYourRound {
		utils.SendInteractionResponse(s, i, utils.ErrorEmbed("You're not the one gambling here!"), nil, true)
		return
	}
	if err == errAlreadyActed {
		utils.SendInteractionResponse(s, i, utils.ErrorEmbed("You've already bet once!"), nil, true)
		return
	}

	roll := rand.Intn(6) + 1

	oldBalance := utils.Tokens.Balance(userID)
	outcome := Resolve(guess, roll, round.Bet)
	newBalance := utils.Tokens.AddTokens(userID, outcome.Delta)

	embed := resultEmbed(guess, outcome, oldBalance, newBalance)
	if err := utils.UpdateComponentInteraction(s, i, embed, guessButtons(ownerID, true)); err != nil {
		utils.BotLogf("DICE", "Failed to update round %s: %v", round.ID, err)
	}

	releaseRound(ownerID)
}

// watchTimeout expires the round if no guess arrives in time. Expiry moves no
// tokens.
func (r *Round) watchTimeout(s *discordgo.Session) {
	time.Sleep(roundTimeout)

	r.mu.Lock()
	if r.resolved {
		r.mu.Unlock()
		return
	}
	r.resolved = true
	r.mu.Unlock()

	releaseRound(r.UserID)

	if r.MessageID == "" {
		return
	}
	embed := utils.CreateBrandedEmbed("🎲 Dice Gamble", utils.DiceTimeoutMessage, 0x95A5A6)
	if err := utils.EditChannelMessage(s, r.ChannelID, r.MessageID, embed, guessButtons(r.UserID, true)); err != nil {
		utils.BotLogf("DICE", "Failed to expire round %s: %v", r.ID, err)
	}
}

func guessButtons(ownerID int64, disabled bool) []discordgo.MessageComponent {
	rows := []discordgo.MessageComponent{
		utils.CreateActionRow(
			utils.CreateButton(guessCustomID(ownerID, "higher"), "Higher", discordgo.PrimaryButton, disabled),
			utils.CreateButton(guessCustomID(ownerID, "lower"), "Lower", discordgo.PrimaryButton, disabled),
		),
	}
	for row := 0; row < 2; row++ {
		buttons := make([]discordgo.MessageComponent, 0, 3)
		for n := row*3 + 1; n <= row*3+3; n++ {
			label := strconv.Itoa(n)
			buttons = append(buttons, utils.CreateButton(guessCustomID(ownerID, label), label, discordgo.SecondaryButton, disabled))
		}
		rows = append(rows, utils.CreateActionRow(buttons...))
	}
	return rows
}

func betEmbed(displayName string, bet int64) *discordgo.MessageEmbed {
	description := fmt.Sprintf(
		"**%s** is betting **%s** %s.\n"+
			"Choose **Higher**, **Lower**, or a specific number 1-6.\n"+
			"**Higher** wins if the roll is 4-6 (1:1 payout).\n"+
			"**Lower** wins if the roll is 1-3 (1:1 payout).\n"+
			"An exact number pays 1:%d.\n"+
			"Kringbot collects your entire bet if you lose.",
		displayName, utils.FormatTokens(bet), utils.TokenEmoji, utils.DiceExactPayout)
	return utils.CreateBrandedEmbed("🎲 Dice Gamble!", description, utils.BotColor)
}

func resultEmbed(guess string, outcome Outcome, oldBalance, newBalance int64) *discordgo.MessageEmbed {
	var outcomeLine string
	color := 0xE74C3C
	if outcome.Won {
		outcomeLine = fmt.Sprintf("**WIN** +%s", utils.FormatTokens(outcome.Delta))
		color = 0x2ECC71
	} else {
		outcomeLine = "You lose your bet!"
	}
	description := fmt.Sprintf(
		"🎲 Rolled **%d**\n**Guess**: %s → %s\n**Balance**: %s → %s",
		outcome.Roll, guess, outcomeLine,
		utils.FormatTokens(oldBalance), utils.FormatTokens(newBalance))
	return utils.CreateBrandedEmbed("🎲 Dice Gamble - Result", description, color)
}
