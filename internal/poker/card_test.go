package poker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCardID(t *testing.T) {
	card := NewCard(RankA, SuitSpades)
	assert.Equal(t, 51, card.ID())
	assert.Equal(t, card, CardFromID(51))
}

func TestNewDeckHasAllCards(t *testing.T) {
	deck := NewDeck()
	assert.Len(t, deck, 52)

	seen := make(map[int]bool, 52)
	for _, c := range deck {
		seen[c.ID()] = true
	}
	assert.Len(t, seen, 52)
}

func TestCardString(t *testing.T) {
	assert.Equal(t, "A♠", NewCard(RankA, SuitSpades).String())
	assert.Equal(t, "10♣", NewCard(Rank10, SuitClubs).String())
}
