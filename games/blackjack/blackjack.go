package blackjack

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"kringbot-go/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

const (
	customIDPrefix      = "kbj_"
	inactivityThreshold = 180 * time.Second
	checkInterval       = 15 * time.Second
)

// Engine errors, surfaced to the player as classified rejections.
var (
	ErrGameFinished = errors.New("game is already over")
	ErrCannotSplit  = errors.New("cannot split this hand")
)

// Press rejections, mapped to user-facing messages by the handler.
var (
	errNotYourSession = errors.New("session belongs to another player")
	errSessionOver    = errors.New("session already finished")
)

// Game holds the state of one blackjack session: the shoe, the dealer hand
// and one or two player hands. It only touches the ledger through the session
// layer; every method here is a pure state transition.
type Game struct {
	ID           string
	UserID       int64
	BaseBet      int64
	Shoe         *utils.Shoe
	PlayerHands  []*utils.Hand
	DealerHand   *utils.Hand
	CurrentHand  int
	HasSplit     bool
	TotalWagered int64
	Finished     bool
}

// NewGame builds a fresh shoe and deals two cards each to player and dealer.
func NewGame(userID, bet int64) *Game {
	g := &Game{
		ID:           uuid.NewString(),
		UserID:       userID,
		BaseBet:      bet,
		Shoe:         utils.NewShoe(utils.DeckCount),
		DealerHand:   utils.NewHand(),
		TotalWagered: bet,
	}

	hand := utils.NewHand()
	hand.AddCard(g.Shoe.Draw())
	hand.AddCard(g.Shoe.Draw())
	g.PlayerHands = []*utils.Hand{hand}

	g.DealerHand.AddCard(g.Shoe.Draw())
	g.DealerHand.AddCard(g.Shoe.Draw())

	return g
}

// Hit draws one card into the active hand. A bust advances to the next hand;
// done reports that no hands remain and settlement should run.
func (g *Game) Hit() (done bool, err error) {
	if g.Finished {
		return false, ErrGameFinished
	}
	hand := g.PlayerHands[g.CurrentHand]
	hand.AddCard(g.Shoe.Draw())
	if hand.IsBust() {
		return g.advance(), nil
	}
	return false, nil
}

// Stand ends play on the active hand.
func (g *Game) Stand() (done bool, err error) {
	if g.Finished {
		return false, ErrGameFinished
	}
	return g.advance(), nil
}

func (g *Game) advance() bool {
	g.CurrentHand++
	return g.CurrentHand >= len(g.PlayerHands)
}

// CanSplit reports split eligibility from game shape alone: exactly one hand
// of exactly two cards sharing a rank, and no prior split. The session layer
// checks the balance.
func (g *Game) CanSplit() bool {
	return !g.Finished && !g.HasSplit &&
		len(g.PlayerHands) == 1 && g.PlayerHands[0].CanSplit()
}

// Split turns the pair into two one-card hands, deals one card to each and
// resets play to the first hand. The caller must have debited the extra bet
// already.
func (g *Game) Split() error {
	if g.Finished {
		return ErrGameFinished
	}
	if !g.CanSplit() {
		return ErrCannotSplit
	}

	first := g.PlayerHands[0].Cards[0]
	second := g.PlayerHands[0].Cards[1]

	hand1 := utils.NewHand()
	hand1.AddCard(first)
	hand1.AddCard(g.Shoe.Draw())

	hand2 := utils.NewHand()
	hand2.AddCard(second)
	hand2.AddCard(g.Shoe.Draw())

	g.PlayerHands = []*utils.Hand{hand1, hand2}
	g.HasSplit = true
	g.TotalWagered += g.BaseBet
	g.CurrentHand = 0
	return nil
}

// HandResult is the payout for a single player hand.
type HandResult struct {
	HandIndex int
	Label     string
	Payout    int64
}

// Settlement is the final accounting for a session. TotalPayout is credited
// to the ledger in one update; Net is payout minus everything wagered.
type Settlement struct {
	DealerValue int
	Results     []HandResult
	TotalPayout int64
	Net         int64
}

// Settle is entered once and is irreversible: the dealer draws to
// DealerStandValue, then every player hand is scored independently.
func (g *Game) Settle() Settlement {
	g.Finished = true

	for g.DealerHand.Value() < utils.DealerStandValue {
		g.DealerHand.AddCard(g.Shoe.Draw())
	}
	dealerValue := g.DealerHand.Value()

	st := Settlement{DealerValue: dealerValue}
	for idx, hand := range g.PlayerHands {
		result := scoreHand(hand, idx, g.BaseBet, dealerValue)
		st.Results = append(st.Results, result)
		st.TotalPayout += result.Payout
	}
	st.Net = st.TotalPayout - g.TotalWagered
	return st
}

// scoreHand applies the payout table: bust pays 0; beating the dealer (or a
// dealer bust) pays 2x the bet, or 2.5x for a two-card 21; a push returns the
// bet; a dealer win pays 0.
func scoreHand(hand *utils.Hand, idx int, bet int64, dealerValue int) HandResult {
	value := hand.Value()

	if value > 21 {
		return HandResult{HandIndex: idx, Label: "❌ Bust!", Payout: 0}
	}
	if dealerValue > 21 || value > dealerValue {
		if hand.IsBlackjack() {
			payout := bet + int64(float64(bet)*utils.BlackjackPayout)
			return HandResult{
				HandIndex: idx,
				Label:     fmt.Sprintf("🂡 Blackjack! +%s", utils.FormatTokens(payout-bet)),
				Payout:    payout,
			}
		}
		return HandResult{
			HandIndex: idx,
			Label:     fmt.Sprintf("✅ Win! +%s", utils.FormatTokens(bet)),
			Payout:    bet * 2,
		}
	}
	if value == dealerValue {
		return HandResult{HandIndex: idx, Label: "🤝 Push! Bet returned.", Payout: bet}
	}
	return HandResult{HandIndex: idx, Label: "❌ Loss.", Payout: 0}
}

// activeSession pairs a game with its rendered message. The acting flag is a
// one-shot guard against rapid double-clicks: disabling buttons is not enough
// because the disabling render itself suspends.
type activeSession struct {
	Game       *Game
	ChannelID  string
	MessageID  string
	LastAction time.Time

	mu     sync.Mutex
	acting bool
}

var (
	activeSessions   = map[int64]*activeSession{}
	activeSessionsMu sync.RWMutex
)

// actionCustomID embeds the session owner in the button ID so a press always
// routes back to the game it was rendered for.
func actionCustomID(ownerID int64, action string) string {
	return fmt.Sprintf("%s%d_%s", customIDPrefix, ownerID, action)
}

func parseActionCustomID(id string) (ownerID int64, action string, ok bool) {
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

// reserveSession claims the per-user session slot before the wager is debited
// and before any I/O suspension, so two overlapping commands cannot both open
// a game. Returns false when the user already holds the slot.
func reserveSession(session *activeSession) bool {
	userID := session.Game.UserID
	activeSessionsMu.Lock()
	defer activeSessionsMu.Unlock()
	if _, exists := activeSessions[userID]; exists {
		return false
	}
	activeSessions[userID] = session
	return true
}

func releaseSession(userID int64) {
	activeSessionsMu.Lock()
	delete(activeSessions, userID)
	activeSessionsMu.Unlock()
}

// lookupSession resolves a press against the session the button belongs to. A
// foreign presser is rejected; the owner pressing after the session left the
// table reads as finished, not foreign.
func lookupSession(presserID, ownerID int64) (*activeSession, error) {
	if presserID != ownerID {
		return nil, errNotYourSession
	}
	activeSessionsMu.RLock()
	session, ok := activeSessions[ownerID]
	activeSessionsMu.RUnlock()
	if !ok {
		return nil, errSessionOver
	}
	return session, nil
}

// settle finalizes the game under the session lock so the timeout watcher
// never observes a half-settled state.
func (as *activeSession) settle() Settlement {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.Game.Settle()
}

// HandleBlackjackCommand starts a session for the ktoken blackjack
// subcommand. The wager is debited up front, after the session slot is
// reserved.
func HandleBlackjackCommand(s *discordgo.Session, i *discordgo.InteractionCreate, bet int64) {
	userID, err := utils.InteractionUserID(i)
	if err != nil {
		utils.SendInteractionResponse(s, i, utils.ErrorEmbed("Failed to identify user."), nil, true)
		return
	}

	if bet <= 0 {
		utils.SendInteractionResponse(s, i, utils.ErrorEmbed("Bet amount must be at least 1."), nil, true)
		return
	}

	game := NewGame(userID, bet)
	session := &activeSession{Game: game, LastAction: time.Now()}
	if !reserveSession(session) {
		utils.SendInteractionResponse(s, i, utils.ErrorEmbed("You already have an active blackjack game."), nil, true)
		return
	}

	if err := utils.Tokens.TryDebit(userID, bet); err != nil {
		releaseSession(userID)
		utils.SendInteractionResponse(s, i, utils.InsufficientTokensEmbed(bet, utils.Tokens.Balance(userID)), nil, true)
		return
	}

	embed := gameEmbed(game, false, nil, 0)
	if err := utils.SendInteractionResponse(s, i, embed, actionButtons(game, userID, false), false); err != nil {
		utils.BotLogf("BLACKJACK", "Failed to start game %s: %v", game.ID, err)
		utils.Tokens.AddTokens(userID, bet)
		releaseSession(userID)
		return
	}
	if msg, err := s.InteractionResponse(i.Interaction); err == nil {
		session.ChannelID = msg.ChannelID
		session.MessageID = msg.ID
	}

	go session.watchTimeout(s)
}

// HandleBlackjackInteraction processes hit/stand/split button presses.
func HandleBlackjackInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID, err := utils.InteractionUserID(i)
	if err != nil {
		return
	}

	ownerID, action, ok := parseActionCustomID(i.MessageComponentData().CustomID)
	if !ok {
		return
	}

	session, err := lookupSession(userID, ownerID)
	if err == errNotYourSession {
		utils.SendInteractionResponse(s, i, utils.ErrorEmbed("You are not the player of this blackjack session!"), nil, true)
		return
	}
	if err == errSessionOver {
		utils.SendInteractionResponse(s, i, utils.ErrorEmbed("This game is already over."), nil, true)
		return
	}

	session.mu.Lock()
	if session.Game.Finished {
		session.mu.Unlock()
		utils.SendInteractionResponse(s, i, utils.ErrorEmbed("This game is already over."), nil, true)
		return
	}
	if session.acting {
		session.mu.Unlock()
		utils.AcknowledgeComponentInteraction(s, i)
		return
	}
	session.acting = true
	session.LastAction = time.Now()
	session.mu.Unlock()

	defer func() {
		session.mu.Lock()
		session.acting = false
		session.mu.Unlock()
	}()

	game := session.Game
	switch action {
	case "hit":
		done, err := game.Hit()
		if err != nil {
			utils.SendInteractionResponse(s, i, utils.ErrorEmbed(err.Error()), nil, true)
			return
		}
		if done {
			finishGame(s, i, session)
			return
		}
		utils.UpdateComponentInteraction(s, i, gameEmbed(game, false, nil, 0), actionButtons(game, userID, false))

	case "stand":
		done, err := game.Stand()
		if err != nil {
			utils.SendInteractionResponse(s, i, utils.ErrorEmbed(err.Error()), nil, true)
			return
		}
		if done {
			finishGame(s, i, session)
			return
		}
		utils.UpdateComponentInteraction(s, i, gameEmbed(game, false, nil, 0), actionButtons(game, userID, false))

	case "split":
		if !game.CanSplit() {
			utils.SendInteractionResponse(s, i, utils.ErrorEmbed("You can't split this hand."), nil, true)
			return
		}
		if err := utils.Tokens.TryDebit(userID, game.BaseBet); err != nil {
			utils.SendInteractionResponse(s, i, utils.ErrorEmbed("Not enough ktokens to split."), nil, true)
			return
		}
		if err := game.Split(); err != nil {
			utils.Tokens.AddTokens(userID, game.BaseBet)
			utils.SendInteractionResponse(s, i, utils.ErrorEmbed(err.Error()), nil, true)
			return
		}
		utils.UpdateComponentInteraction(s, i, gameEmbed(game, false, nil, 0), actionButtons(game, userID, false))
	}
}

// finishGame settles the session, credits the total payout in one ledger
// update and renders the final state.
func finishGame(s *discordgo.Session, i *discordgo.InteractionCreate, session *activeSession) {
	game := session.Game
	st := session.settle()
	newBalance := utils.Tokens.AddTokens(game.UserID, st.TotalPayout)

	embed := gameEmbed(game, true, &st, newBalance)
	if err := utils.UpdateComponentInteraction(s, i, embed, actionButtons(game, game.UserID, true)); err != nil {
		utils.BotLogf("BLACKJACK", "Failed to render settlement for game %s: %v", game.ID, err)
	}

	releaseSession(game.UserID)
}

// watchTimeout disables the session after sustained inactivity. The wager is
// forfeited: no settlement runs and nothing is credited back.
func (as *activeSession) watchTimeout(s *discordgo.Session) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for range ticker.C {
		as.mu.Lock()
		if as.Game.Finished {
			as.mu.Unlock()
			return
		}
		if time.Since(as.LastAction) <= inactivityThreshold {
			as.mu.Unlock()
			continue
		}
		as.Game.Finished = true
		as.mu.Unlock()

		releaseSession(as.Game.UserID)

		if as.MessageID != "" {
			embed := utils.CreateBrandedEmbed(
				"🃏 Blackjack - Timed Out",
				fmt.Sprintf(utils.BlackjackTimeoutMessage, utils.FormatTokens(as.Game.TotalWagered)),
				0x95A5A6)
			if err := utils.EditChannelMessage(s, as.ChannelID, as.MessageID, embed, actionButtons(as.Game, as.Game.UserID, true)); err != nil {
				utils.BotLogf("BLACKJACK", "Failed to expire game %s: %v", as.Game.ID, err)
			}
		}
		return
	}
}

func actionButtons(game *Game, userID int64, disabled bool) []discordgo.MessageComponent {
	splitDisabled := disabled || !game.CanSplit() || utils.Tokens.Balance(userID) < game.BaseBet
	return []discordgo.MessageComponent{utils.CreateActionRow(
		utils.CreateButton(actionCustomID(game.UserID, "hit"), "Hit", discordgo.SuccessButton, disabled),
		utils.CreateButton(actionCustomID(game.UserID, "stand"), "Stand", discordgo.DangerButton, disabled),
		utils.CreateButton(actionCustomID(game.UserID, "split"), "Split", discordgo.SecondaryButton, splitDisabled),
	)}
}

func gameEmbed(game *Game, gameOver bool, st *Settlement, newBalance int64) *discordgo.MessageEmbed {
	embed := utils.CreateBrandedEmbed("🃏 Blackjack", "", 0x2ECC71)

	for idx, hand := range game.PlayerHands {
		label := "Your hand"
		if len(game.PlayerHands) > 1 {
			label = fmt.Sprintf("Hand %d", idx+1)
		}
		marker := ""
		if idx == game.CurrentHand && !gameOver && !game.Finished {
			marker = " ← Playing"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s (%d)%s", label, hand.Value(), marker),
			Value: hand.String(),
		})
	}

	if gameOver {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("Kringbot's hand (%d)", game.DealerHand.Value()),
			Value: game.DealerHand.String(),
		})
	} else {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Kringbot's hand (?)",
			Value: fmt.Sprintf("%s, ??", game.DealerHand.Cards[0].String()),
		})
	}

	if st != nil {
		resultLines := ""
		for _, result := range st.Results {
			if len(game.PlayerHands) > 1 {
				resultLines += fmt.Sprintf("Hand %d: %s\n", result.HandIndex+1, result.Label)
			} else {
				resultLines += result.Label + "\n"
			}
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Results",
			Value: resultLines,
		})

		netLine := "You broke even!"
		if st.Net > 0 {
			netLine = fmt.Sprintf("You gained **%s** ktokens overall!", utils.FormatTokens(st.Net))
		} else if st.Net < 0 {
			netLine = fmt.Sprintf("You lost **%s** ktokens overall!", utils.FormatTokens(-st.Net))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Net Change",
			Value: netLine,
		})
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "New Balance",
			Value: fmt.Sprintf("%s %s", utils.FormatTokens(newBalance), utils.TokenEmoji),
		})
	}

	return embed
}
