package utils

import (
	"errors"
	"fmt"
)

// Errors surfaced to command handlers as classified rejections.
var (
	ErrInsufficientFunds = errors.New("insufficient token balance")
	ErrUnknownCooldown   = errors.New("unknown cooldown type")
)

// cooldownKeyFormats maps the cooldown names users can spend tokens on to
// their preference key formats.
var cooldownKeyFormats = map[string]string{
	"daily":    DailyCooldownKeyFmt,
	"kringpic": KringpicCooldownKeyFmt,
	"claim":    ClaimCooldownKeyFmt,
}

// CooldownChoices returns the recognized cooldown names for slash command
// option choices.
func CooldownChoices() []string {
	return []string{"daily", "kringpic", "claim"}
}

// Ledger tracks per-user token balances and cooldown records on top of the
// preference store. Balances are never negative: SetBalance is the single
// chokepoint that clamps, and every mutation routes through it or through an
// Update transaction that applies the same clamp.
type Ledger struct {
	Store *PrefStore
}

// Tokens is the global ledger over the global preference store.
var Tokens = NewLedger(Prefs)

// NewLedger creates a ledger backed by store.
func NewLedger(store *PrefStore) *Ledger {
	return &Ledger{Store: store}
}

// Balance returns how many tokens the user currently has.
func (l *Ledger) Balance(userID int64) int64 {
	return l.Store.GetInt(fmt.Sprintf(BalanceKeyFmt, userID), 0)
}

// SetBalance stores a new balance, clamping negative input to zero.
func (l *Ledger) SetBalance(userID, balance int64) {
	if balance < 0 {
		balance = 0
	}
	l.Store.Set(fmt.Sprintf(BalanceKeyFmt, userID), balance, false)
}

// AddTokens credits (or, for a negative delta, debits) a user's balance
// atomically and returns the new balance after clamping.
func (l *Ledger) AddTokens(userID, delta int64) int64 {
	key := fmt.Sprintf(BalanceKeyFmt, userID)
	var newBalance int64
	l.Store.Update(func(tx *PrefTx) {
		balance := ToInt64(tx.Get(key, int64(0))) + delta
		if balance < 0 {
			balance = 0
		}
		tx.Set(key, balance, false)
		newBalance = balance
	})
	return newBalance
}

// TryDebit removes amount from the user's balance only when the balance
// covers it, in one transaction. Wager debits use this so two overlapping
// bets cannot both pass a stale balance check.
func (l *Ledger) TryDebit(userID, amount int64) error {
	key := fmt.Sprintf(BalanceKeyFmt, userID)
	var err error
	l.Store.Update(func(tx *PrefTx) {
		balance := ToInt64(tx.Get(key, int64(0)))
		if balance < amount {
			err = ErrInsufficientFunds
			return
		}
		tx.Set(key, balance-amount, false)
	})
	return err
}

// ClaimCooldownRemaining returns how many seconds remain before the user can
// claim again.
func (l *Ledger) ClaimCooldownRemaining(userID int64) int64 {
	return l.Store.GetInt(fmt.Sprintf(ClaimCooldownKeyFmt, userID), 0)
}

// Claim awards TokensPerClaim if the user's claim cooldown has lapsed. On
// success it returns the new balance; otherwise it reports the seconds
// remaining until the next claim.
func (l *Ledger) Claim(userID int64) (newBalance, remaining int64, ok bool) {
	balanceKey := fmt.Sprintf(BalanceKeyFmt, userID)
	cooldownKey := fmt.Sprintf(ClaimCooldownKeyFmt, userID)
	l.Store.Update(func(tx *PrefTx) {
		remaining = ToInt64(tx.Get(cooldownKey, int64(0)))
		if remaining > 0 {
			return
		}
		newBalance = ToInt64(tx.Get(balanceKey, int64(0))) + TokensPerClaim
		tx.Set(balanceKey, newBalance, false)
		tx.Set(cooldownKey, int64(ClaimCooldownSeconds), true)
		ok = true
	})
	return
}

// AdjustCooldown modifies a user's named cooldown by deltaSeconds (negative
// reduces). The result is clamped at zero and re-stored as a fresh countdown
// anchored at the current instant. Returns false for an unrecognized name,
// with no write.
func (l *Ledger) AdjustCooldown(feature string, targetID, deltaSeconds int64) bool {
	format, ok := cooldownKeyFormats[feature]
	if !ok {
		return false
	}
	key := fmt.Sprintf(format, targetID)
	l.Store.Update(func(tx *PrefTx) {
		current := ToInt64(tx.Get(key, int64(0)))
		next := current + deltaSeconds
		if next < 0 {
			next = 0
		}
		tx.Set(key, next, true)
	})
	return true
}

// Spend spends tokens to extend or reduce a target user's named cooldown at
// SecondsPerToken. The whole sequence runs in one store transaction: verify
// the spender's balance, convert tokens to seconds, adjust the target
// cooldown, debit the spender. An unknown cooldown name aborts before any
// debit; an insufficient balance aborts with no side effects at all.
func (l *Ledger) Spend(spenderID, targetID int64, feature string, tokens int64, reduce bool) (newBalance int64, err error) {
	format, ok := cooldownKeyFormats[feature]
	if !ok {
		return 0, ErrUnknownCooldown
	}
	targetKey := fmt.Sprintf(format, targetID)
	balanceKey := fmt.Sprintf(BalanceKeyFmt, spenderID)

	l.Store.Update(func(tx *PrefTx) {
		balance := ToInt64(tx.Get(balanceKey, int64(0)))
		if balance < tokens {
			err = ErrInsufficientFunds
			return
		}

		seconds := tokens * SecondsPerToken
		if reduce {
			seconds = -seconds
		}

		current := ToInt64(tx.Get(targetKey, int64(0)))
		next := current + seconds
		if next < 0 {
			next = 0
		}
		tx.Set(targetKey, next, true)

		newBalance = balance - tokens
		tx.Set(balanceKey, newBalance, false)
	})
	return
}
