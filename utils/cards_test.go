package utils

import "testing"

func TestHandValueSoftAces(t *testing.T) {
	cases := []struct {
		ranks []string
		want  int
	}{
		{[]string{"A", "K"}, 21},
		{[]string{"A", "A", "9"}, 21},
		{[]string{"A", "A"}, 12},
		{[]string{"A", "5"}, 16},
		{[]string{"A", "5", "10"}, 16},
		{[]string{"K", "Q", "5"}, 25},
		{[]string{"A", "A", "A", "K"}, 13},
	}

	for _, c := range cases {
		hand := NewHand()
		for _, rank := range c.ranks {
			hand.AddCard(NewCard(rank, "♠️"))
		}
		if got := hand.Value(); got != c.want {
			t.Errorf("Hand %v: expected value %d, got %d", c.ranks, c.want, got)
		}
	}
}

func TestHandBlackjackDetection(t *testing.T) {
	natural := NewHand()
	natural.AddCard(NewCard("A", "♠️"))
	natural.AddCard(NewCard("K", "♥️"))
	if !natural.IsBlackjack() {
		t.Error("Expected A,K to be blackjack")
	}

	// A three-card 21 is not a blackjack
	drawn := NewHand()
	drawn.AddCard(NewCard("7", "♠️"))
	drawn.AddCard(NewCard("7", "♥️"))
	drawn.AddCard(NewCard("7", "♦️"))
	if drawn.IsBlackjack() {
		t.Error("Expected three-card 21 not to be blackjack")
	}
}

func TestHandCanSplit(t *testing.T) {
	pair := NewHand()
	pair.AddCard(NewCard("8", "♠️"))
	pair.AddCard(NewCard("8", "♥️"))
	if !pair.CanSplit() {
		t.Error("Expected a pair of 8s to be splittable")
	}

	// Same value, different rank: not splittable
	tens := NewHand()
	tens.AddCard(NewCard("K", "♠️"))
	tens.AddCard(NewCard("Q", "♥️"))
	if tens.CanSplit() {
		t.Error("Expected K,Q not to be splittable")
	}
}

func TestShoeSizeAndDraw(t *testing.T) {
	shoe := NewShoe(5)
	if got := shoe.Remaining(); got != 5*52 {
		t.Fatalf("Expected %d cards in a 5-deck shoe, got %d", 5*52, got)
	}

	last := shoe.Cards[len(shoe.Cards)-1]
	if drawn := shoe.Draw(); drawn != last {
		t.Errorf("Expected Draw to remove the last card %v, got %v", last, drawn)
	}
	if got := shoe.Remaining(); got != 5*52-1 {
		t.Errorf("Expected %d cards after one draw, got %d", 5*52-1, got)
	}
}

func TestShoeRefillsWhenEmpty(t *testing.T) {
	shoe := &Shoe{Cards: []Card{}}
	card := shoe.Draw()
	if card.Rank == "" {
		t.Error("Expected a real card from a refilled shoe")
	}
	if got := shoe.Remaining(); got != 51 {
		t.Errorf("Expected 51 cards after refill and draw, got %d", got)
	}
}
