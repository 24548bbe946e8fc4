package utils

import (
	"math/rand"
	"strings"
	"time"
)

// Card represents a playing card.
type Card struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

// NewCard creates a new card.
func NewCard(rank, suit string) Card {
	return Card{Rank: rank, Suit: suit}
}

// String returns the string representation of a card.
func (c Card) String() string {
	return c.Rank + c.Suit
}

// Value returns the blackjack value of the card (ace counts 11 here; the
// hand applies soft-ace reduction).
func (c Card) Value() int {
	if value, exists := CardRanks[c.Rank]; exists {
		return value
	}
	return 0
}

// IsAce checks if the card is an Ace.
func (c Card) IsAce() bool {
	return c.Rank == "A"
}

// Shoe is a multi-deck pool of cards shuffled once at creation. Cards are
// drawn by removing from the end.
type Shoe struct {
	Cards []Card
	rng   *rand.Rand
}

// NewShoe builds numDecks standard 52-card decks, concatenated and shuffled.
func NewShoe(numDecks int) *Shoe {
	shoe := &Shoe{
		Cards: make([]Card, 0, numDecks*52),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	ranks := []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}
	for d := 0; d < numDecks; d++ {
		for _, suit := range CardSuits {
			for _, rank := range ranks {
				shoe.Cards = append(shoe.Cards, NewCard(rank, suit))
			}
		}
	}

	shoe.Shuffle()
	return shoe
}

// Shuffle shuffles the remaining cards in place.
func (s *Shoe) Shuffle() {
	s.rng.Shuffle(len(s.Cards), func(i, j int) {
		s.Cards[i], s.Cards[j] = s.Cards[j], s.Cards[i]
	})
}

// Draw removes and returns the last card of the shoe. A 5-deck shoe cannot
// run out within one session, but an empty shoe rebuilds itself rather than
// panic.
func (s *Shoe) Draw() Card {
	if len(s.Cards) == 0 {
		refill := NewShoe(1)
		s.Cards = refill.Cards
	}
	card := s.Cards[len(s.Cards)-1]
	s.Cards = s.Cards[:len(s.Cards)-1]
	return card
}

// Remaining returns the number of cards left in the shoe.
func (s *Shoe) Remaining() int {
	return len(s.Cards)
}

// Hand represents a blackjack hand.
type Hand struct {
	Cards []Card
}

// NewHand creates an empty hand.
func NewHand() *Hand {
	return &Hand{Cards: make([]Card, 0, 4)}
}

// AddCard adds a card to the hand.
func (h *Hand) AddCard(card Card) {
	h.Cards = append(h.Cards, card)
}

// Value calculates the hand value with soft-ace reduction: aces count 11
// until the total exceeds 21, then drop to 1 one at a time.
func (h *Hand) Value() int {
	total := 0
	aces := 0
	for _, card := range h.Cards {
		if card.IsAce() {
			aces++
		}
		total += card.Value()
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// IsBlackjack checks for a natural two-card 21.
func (h *Hand) IsBlackjack() bool {
	return len(h.Cards) == 2 && h.Value() == 21
}

// IsBust checks if the hand is over 21.
func (h *Hand) IsBust() bool {
	return h.Value() > 21
}

// CanSplit checks if the hand is two cards of the same rank.
func (h *Hand) CanSplit() bool {
	return len(h.Cards) == 2 && h.Cards[0].Rank == h.Cards[1].Rank
}

// Size returns the number of cards in the hand.
func (h *Hand) Size() int {
	return len(h.Cards)
}

// String returns the cards joined for display.
func (h *Hand) String() string {
	parts := make([]string, len(h.Cards))
	for i, card := range h.Cards {
		parts[i] = card.String()
	}
	return strings.Join(parts, ", ")
}
