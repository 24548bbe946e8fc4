package utils

import (
	"fmt"
	"testing"
	"time"
)

func newTestLedger() (*Ledger, *PrefStore) {
	ps := NewPrefStore()
	return NewLedger(ps), ps
}

func TestLedgerBalanceNeverNegative(t *testing.T) {
	l, _ := newTestLedger()

	l.SetBalance(1, -5)
	if got := l.Balance(1); got != 0 {
		t.Errorf("Expected negative set to clamp to 0, got %d", got)
	}

	l.SetBalance(1, 10)
	if got := l.AddTokens(1, -25); got != 0 {
		t.Errorf("Expected oversized debit to clamp to 0, got %d", got)
	}
}

func TestLedgerTryDebit(t *testing.T) {
	l, _ := newTestLedger()
	l.SetBalance(1, 100)

	if err := l.TryDebit(1, 60); err != nil {
		t.Fatalf("Expected debit to succeed, got %v", err)
	}
	if got := l.Balance(1); got != 40 {
		t.Errorf("Expected balance 40 after debit, got %d", got)
	}

	// A debit the balance cannot cover leaves it untouched
	if err := l.TryDebit(1, 41); err != ErrInsufficientFunds {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}
	if got := l.Balance(1); got != 40 {
		t.Errorf("Expected balance unchanged at 40, got %d", got)
	}
}

func TestLedgerClaimCooldownGate(t *testing.T) {
	l, ps := newTestLedger()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	ps.now = func() time.Time { return now }

	newBalance, _, ok := l.Claim(1)
	if !ok {
		t.Fatal("Expected first claim to succeed")
	}
	if newBalance != TokensPerClaim {
		t.Errorf("Expected balance %d after first claim, got %d", TokensPerClaim, newBalance)
	}

	// A second claim inside the window is rejected with the remaining time
	// and moves no tokens
	now = base.Add(10 * time.Minute)
	_, remaining, ok := l.Claim(1)
	if ok {
		t.Fatal("Expected claim inside the cooldown to be rejected")
	}
	if remaining != ClaimCooldownSeconds-600 {
		t.Errorf("Expected %d seconds remaining, got %d", ClaimCooldownSeconds-600, remaining)
	}
	if got := l.Balance(1); got != TokensPerClaim {
		t.Errorf("Expected balance unchanged at %d, got %d", TokensPerClaim, got)
	}

	// After the window lapses the claim succeeds again
	now = base.Add(ClaimCooldownSeconds*time.Second + time.Second)
	newBalance, _, ok = l.Claim(1)
	if !ok {
		t.Fatal("Expected claim after the cooldown to succeed")
	}
	if newBalance != 2*TokensPerClaim {
		t.Errorf("Expected balance %d after second claim, got %d", 2*TokensPerClaim, newBalance)
	}
}

func TestLedgerSpendReduce(t *testing.T) {
	l, ps := newTestLedger()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ps.now = func() time.Time { return base }

	l.SetBalance(1, 500)
	targetKey := fmt.Sprintf(DailyCooldownKeyFmt, 2)
	ps.Set(targetKey, int64(1000), true)

	newBalance, err := l.Spend(1, 2, "daily", 300, true)
	if err != nil {
		t.Fatalf("Expected spend to succeed, got %v", err)
	}
	if newBalance != 200 {
		t.Errorf("Expected spender balance 200, got %d", newBalance)
	}
	if got := ps.GetInt(targetKey, -1); got != 700 {
		t.Errorf("Expected target cooldown 700, got %d", got)
	}
}

func TestLedgerSpendReduceClampsAtZero(t *testing.T) {
	l, ps := newTestLedger()
	l.SetBalance(1, 500)
	targetKey := fmt.Sprintf(KringpicCooldownKeyFmt, 2)
	ps.Set(targetKey, int64(30), true)

	if _, err := l.Spend(1, 2, "kringpic", 200, true); err != nil {
		t.Fatalf("Expected spend to succeed, got %v", err)
	}
	if got := ps.GetInt(targetKey, -1); got != 0 {
		t.Errorf("Expected over-reduced cooldown to clamp to 0, got %d", got)
	}
	// The full token amount is spent even when the reduction clamps
	if got := l.Balance(1); got != 300 {
		t.Errorf("Expected balance 300, got %d", got)
	}
}

func TestLedgerSpendExtend(t *testing.T) {
	l, ps := newTestLedger()
	l.SetBalance(1, 500)
	targetKey := fmt.Sprintf(DailyCooldownKeyFmt, 2)
	ps.Set(targetKey, int64(100), true)

	if _, err := l.Spend(1, 2, "daily", 50, false); err != nil {
		t.Fatalf("Expected spend to succeed, got %v", err)
	}
	if got := ps.GetInt(targetKey, -1); got != 150 {
		t.Errorf("Expected extended cooldown 150, got %d", got)
	}
}

func TestLedgerSpendInsufficientFunds(t *testing.T) {
	l, ps := newTestLedger()
	l.SetBalance(1, 10)
	targetKey := fmt.Sprintf(DailyCooldownKeyFmt, 2)
	ps.Set(targetKey, int64(100), true)

	_, err := l.Spend(1, 2, "daily", 50, true)
	if err != ErrInsufficientFunds {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	// An aborted spend leaves both sides untouched
	if got := l.Balance(1); got != 10 {
		t.Errorf("Expected spender balance unchanged at 10, got %d", got)
	}
	if got := ps.GetInt(targetKey, -1); got != 100 {
		t.Errorf("Expected target cooldown unchanged at 100, got %d", got)
	}
}

func TestLedgerSpendUnknownCooldown(t *testing.T) {
	l, _ := newTestLedger()
	l.SetBalance(1, 100)

	_, err := l.Spend(1, 2, "weekly", 50, true)
	if err != ErrUnknownCooldown {
		t.Fatalf("Expected ErrUnknownCooldown, got %v", err)
	}
	if got := l.Balance(1); got != 100 {
		t.Errorf("Expected no debit for an unknown cooldown, got balance %d", got)
	}
}

func TestLedgerAdjustCooldown(t *testing.T) {
	l, ps := newTestLedger()
	key := fmt.Sprintf(DailyCooldownKeyFmt, 7)
	ps.Set(key, int64(120), true)

	if !l.AdjustCooldown("daily", 7, -200) {
		t.Fatal("Expected adjustment of a known cooldown to succeed")
	}
	if got := ps.GetInt(key, -1); got != 0 {
		t.Errorf("Expected over-reduced cooldown to clamp to 0, got %d", got)
	}

	if l.AdjustCooldown("weekly", 7, -10) {
		t.Error("Expected adjustment of an unknown cooldown to report false")
	}
}
