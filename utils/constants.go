package utils

// General Configuration
const (
	BotName  = "Kringbot"
	BotColor = 0x5865F2
)

// Token Economy
const (
	ClaimCooldownSeconds = 3600 // How often a user can claim tokens
	TokensPerClaim       = 3600
	SecondsPerToken      = 1 // 1 ktoken = 1 second of cooldown modification
)

// Image Cooldowns
const (
	RefreshImgCooldownSeconds = 300
	DailyCooldownSeconds      = 12 * 60 * 60
	KringpicCooldownSeconds   = 65
)

// Preference key formats. The image and token cogs share cooldown keys, so the
// formats live here rather than in either cog.
const (
	BalanceKeyFmt          = "ktoken_balance_%d"
	ClaimCooldownKeyFmt    = "ktoken_claim_cd_%d"
	DailyCooldownKeyFmt    = "daily_img_cd_%d"
	KringpicCooldownKeyFmt = "kringpic_img_cd_%d"
	NoCdDailyKeyFmt        = "no_cd_daily_%d"
	NoCdKringpicKeyFmt     = "no_cd_kringpic_%d"
)

// Card System
var (
	CardSuits = []string{"♠️", "♥️", "♦️", "♣️"}
	CardRanks = map[string]int{
		"2": 2, "3": 3, "4": 4, "5": 5, "6": 6, "7": 7, "8": 8, "9": 9, "10": 10,
		"J": 10, "Q": 10, "K": 10, "A": 11,
	}
)

// Blackjack Game Constants
const (
	DeckCount        = 5 // Shoe size in standard decks
	DealerStandValue = 17
	BlackjackPayout  = 1.5 // Profit multiplier for a two-card 21
)

// Dice Game Constants
const (
	DiceExactPayout = 5 // Exact-number guesses pay 5:1
)

// UI Messages
const (
	DiceTimeoutMessage      = "Bet timed out! No tokens were moved."
	BlackjackTimeoutMessage = "Your game has timed out and you have forfeited your wager of %s ktokens."
	TokenEmoji              = "🪙"
)
