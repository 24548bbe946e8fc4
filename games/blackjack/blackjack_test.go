package blackjack

import (
	"sync"
	"testing"
	"time"

	"kringbot-go/utils"
)

func hand(ranks ...string) *utils.Hand {
	h := utils.NewHand()
	for _, r := range ranks {
		h.AddCard(utils.NewCard(r, "♠️"))
	}
	return h
}

// stackedShoe builds a shoe whose draws come out in the given order.
func stackedShoe(ranks ...string) *utils.Shoe {
	cards := make([]utils.Card, len(ranks))
	for i, r := range ranks {
		// Draw pops from the end, so reverse the order
		cards[len(ranks)-1-i] = utils.NewCard(r, "♥️")
	}
	return &utils.Shoe{Cards: cards}
}

func testGame(bet int64, player, dealer *utils.Hand, shoe *utils.Shoe) *Game {
	return &Game{
		UserID:       1,
		BaseBet:      bet,
		Shoe:         shoe,
		PlayerHands:  []*utils.Hand{player},
		DealerHand:   dealer,
		TotalWagered: bet,
	}
}

func TestDealerDrawsToStandValue(t *testing.T) {
	g := testGame(100, hand("K", "Q"), hand("10", "2"), stackedShoe("3", "2", "9"))

	st := g.Settle()

	// 12 -> 15 -> 17, then stop without touching the third card
	if st.DealerValue != 17 {
		t.Errorf("Expected dealer to stop at 17, got %d", st.DealerValue)
	}
	if g.Shoe.Remaining() != 1 {
		t.Errorf("Expected one card left in the shoe, got %d", g.Shoe.Remaining())
	}
}

func TestDealerStandsOnSeventeen(t *testing.T) {
	g := testGame(100, hand("K", "Q"), hand("10", "7"), stackedShoe("5"))

	st := g.Settle()
	if st.DealerValue != 17 {
		t.Errorf("Expected dealer to stand pat on 17, got %d", st.DealerValue)
	}
	if g.Shoe.Remaining() != 1 {
		t.Error("Expected dealer not to draw on 17")
	}
}

func TestSettlementPayouts(t *testing.T) {
	cases := []struct {
		name       string
		player     *utils.Hand
		dealer     *utils.Hand
		wantPayout int64
	}{
		{"win pays double", hand("K", "Q"), hand("10", "9"), 200},
		{"blackjack pays 2.5x", hand("A", "K"), hand("K", "Q"), 250},
		{"push returns bet", hand("K", "9"), hand("10", "9"), 100},
		{"loss pays nothing", hand("K", "8"), hand("10", "9"), 0},
		{"bust pays nothing", hand("K", "Q", "5"), hand("10", "9"), 0},
		{"dealer bust pays double", hand("K", "8"), hand("10", "6", "K"), 200},
	}

	for _, c := range cases {
		g := testGame(100, c.player, c.dealer, stackedShoe())
		st := g.Settle()
		if st.TotalPayout != c.wantPayout {
			t.Errorf("%s: expected payout %d, got %d", c.name, c.wantPayout, st.TotalPayout)
		}
		if want := c.wantPayout - 100; st.Net != want {
			t.Errorf("%s: expected net %d, got %d", c.name, want, st.Net)
		}
	}
}

func TestSettleIsIrreversible(t *testing.T) {
	g := testGame(100, hand("K", "Q"), hand("10", "9"), stackedShoe())
	g.Settle()

	if !g.Finished {
		t.Fatal("Expected game to be finished after settlement")
	}
	if _, err := g.Hit(); err != ErrGameFinished {
		t.Errorf("Expected Hit after settlement to return ErrGameFinished, got %v", err)
	}
	if _, err := g.Stand(); err != ErrGameFinished {
		t.Errorf("Expected Stand after settlement to return ErrGameFinished, got %v", err)
	}
	if err := g.Split(); err != ErrGameFinished {
		t.Errorf("Expected Split after settlement to return ErrGameFinished, got %v", err)
	}
}

func TestHitBustAdvances(t *testing.T) {
	g := testGame(100, hand("K", "Q"), hand("10", "9"), stackedShoe("5"))

	done, err := g.Hit()
	if err != nil {
		t.Fatalf("Hit failed: %v", err)
	}
	if !done {
		t.Error("Expected busting the only hand to end play")
	}
	if !g.PlayerHands[0].IsBust() {
		t.Error("Expected the hand to be bust")
	}
}

func TestStandEndsSingleHand(t *testing.T) {
	g := testGame(100, hand("K", "9"), hand("10", "9"), stackedShoe())

	done, err := g.Stand()
	if err != nil {
		t.Fatalf("Stand failed: %v", err)
	}
	if !done {
		t.Error("Expected standing the only hand to end play")
	}
}

func TestSplitEligibility(t *testing.T) {
	pair := testGame(100, hand("8", "8"), hand("10", "9"), stackedShoe("2", "3"))
	if !pair.CanSplit() {
		t.Error("Expected a two-card pair to be splittable")
	}

	noPair := testGame(100, hand("8", "9"), hand("10", "9"), stackedShoe())
	if noPair.CanSplit() {
		t.Error("Expected a non-pair not to be splittable")
	}

	threeCards := testGame(100, hand("8", "8", "2"), hand("10", "9"), stackedShoe())
	if threeCards.CanSplit() {
		t.Error("Expected a three-card hand not to be splittable")
	}
}

func TestSplitMechanics(t *testing.T) {
	g := testGame(100, hand("8", "8"), hand("10", "9"), stackedShoe("2", "3"))

	if err := g.Split(); err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if len(g.PlayerHands) != 2 {
		t.Fatalf("Expected 2 hands after split, got %d", len(g.PlayerHands))
	}
	for idx, h := range g.PlayerHands {
		if h.Size() != 2 {
			t.Errorf("Expected hand %d to have 2 cards, got %d", idx, h.Size())
		}
		if h.Cards[0].Rank != "8" {
			t.Errorf("Expected hand %d to keep an 8, got %s", idx, h.Cards[0].Rank)
		}
	}
	if !g.HasSplit {
		t.Error("Expected HasSplit to be set")
	}
	if g.TotalWagered != 200 {
		t.Errorf("Expected total wagered 200 after split, got %d", g.TotalWagered)
	}
	if g.CurrentHand != 0 {
		t.Errorf("Expected play to restart at hand 0, got %d", g.CurrentHand)
	}

	// Only one split per session
	if g.CanSplit() {
		t.Error("Expected a second split to be ineligible")
	}
}

func TestSplitSettlementSumsHands(t *testing.T) {
	g := testGame(100, hand("8", "8"), hand("10", "9"), stackedShoe("K", "2"))

	if err := g.Split(); err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	// Hand 0: 8,K = 18 (loses to 19); hand 1: 8,2 = 10, hit to 20 (wins)
	if _, err := g.Stand(); err != nil {
		t.Fatalf("Stand failed: %v", err)
	}
	g.PlayerHands[1].AddCard(utils.NewCard("Q", "♦️"))

	st := g.Settle()
	if st.TotalPayout != 200 {
		t.Errorf("Expected payout 200 (one win, one loss), got %d", st.TotalPayout)
	}
	if st.Net != 0 {
		t.Errorf("Expected net 0 against 200 wagered, got %d", st.Net)
	}
}

func TestActionCustomIDRoundtrip(t *testing.T) {
	id := actionCustomID(42, "hit")
	owner, action, ok := parseActionCustomID(id)
	if !ok {
		t.Fatalf("Expected %q to parse", id)
	}
	if owner != 42 || action != "hit" {
		t.Errorf("Expected owner 42 / action 'hit', got %d / %q", owner, action)
	}

	if _, _, ok := parseActionCustomID("kbj_stand"); ok {
		t.Error("Expected an ownerless ID not to parse")
	}
}

func TestLookupSessionRejectsForeignPresser(t *testing.T) {
	session := &activeSession{Game: &Game{UserID: 5}, LastAction: time.Now()}
	if !reserveSession(session) {
		t.Fatal("Expected reservation to succeed")
	}
	defer releaseSession(5)

	if _, err := lookupSession(6, 5); err != errNotYourSession {
		t.Errorf("Expected errNotYourSession for a foreign presser, got %v", err)
	}

	got, err := lookupSession(5, 5)
	if err != nil {
		t.Fatalf("Expected the owner's press to find the session, got %v", err)
	}
	if got != session {
		t.Error("Expected the looked-up session to be the reserved one")
	}

	// The owner pressing after the session leaves the table reads as
	// finished, not foreign
	releaseSession(5)
	if _, err := lookupSession(5, 5); err != errSessionOver {
		t.Errorf("Expected errSessionOver for an absent session, got %v", err)
	}
}

func TestReserveSessionIsExclusive(t *testing.T) {
	first := &activeSession{Game: &Game{UserID: 9}, LastAction: time.Now()}
	second := &activeSession{Game: &Game{UserID: 9}, LastAction: time.Now()}

	if !reserveSession(first) {
		t.Fatal("Expected first reservation to succeed")
	}
	defer releaseSession(9)

	if reserveSession(second) {
		t.Fatal("Expected second reservation for the same user to be rejected")
	}

	got, err := lookupSession(9, 9)
	if err != nil {
		t.Fatalf("Expected lookup to succeed, got %v", err)
	}
	if got != first {
		t.Error("Expected the slot to still hold the first session")
	}
}

func TestSettleUnderSessionLock(t *testing.T) {
	g := testGame(100, hand("K", "Q"), hand("10", "9"), stackedShoe())
	session := &activeSession{Game: g, LastAction: time.Now()}

	// The finished flag is only ever read and written under the session
	// mutex, so a settling action and the timeout watcher cannot race
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		session.settle()
	}()
	go func() {
		defer wg.Done()
		for n := 0; n < 1000; n++ {
			session.mu.Lock()
			_ = session.Game.Finished
			session.mu.Unlock()
		}
	}()
	wg.Wait()

	if !g.Finished {
		t.Error("Expected the game to be finished after settle")
	}
}

func TestNewGameDealsTwoEach(t *testing.T) {
	g := NewGame(1, 100)

	if len(g.PlayerHands) != 1 || g.PlayerHands[0].Size() != 2 {
		t.Error("Expected one player hand of two cards")
	}
	if g.DealerHand.Size() != 2 {
		t.Errorf("Expected dealer to hold two cards, got %d", g.DealerHand.Size())
	}
	if g.Shoe.Remaining() != utils.DeckCount*52-4 {
		t.Errorf("Expected %d cards left after the deal, got %d", utils.DeckCount*52-4, g.Shoe.Remaining())
	}
	if g.TotalWagered != 100 {
		t.Errorf("Expected total wagered 100, got %d", g.TotalWagered)
	}
}
