package poker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func c(r Rank, s Suit) Card { return NewCard(r, s) }

func TestEvaluateInvalidCount(t *testing.T) {
	_, err := Evaluate([]Card{c(RankA, SuitSpades)})
	assert.ErrorIs(t, err, ErrInvalidCardCount)

	eight := make([]Card, 8)
	_, err = Evaluate(eight)
	assert.ErrorIs(t, err, ErrInvalidCardCount)
}

func TestEvaluateCategories(t *testing.T) {
	tests := []struct {
		name  string
		cards []Card
		want  HandRank
	}{
		{
			"royal flush",
			[]Card{c(RankA, SuitSpades), c(RankK, SuitSpades), c(RankQ, SuitSpades), c(RankJ, SuitSpades), c(Rank10, SuitSpades)},
			RoyalFlush,
		},
		{
			"steel wheel straight flush",
			[]Card{c(RankA, SuitHearts), c(Rank2, SuitHearts), c(Rank3, SuitHearts), c(Rank4, SuitHearts), c(Rank5, SuitHearts)},
			StraightFlush,
		},
		{
			"quads",
			[]Card{c(RankK, SuitClubs), c(RankK, SuitDiamonds), c(RankK, SuitHearts), c(RankK, SuitSpades), c(Rank2, SuitClubs)},
			FourOfAKind,
		},
		{
			"full house from 7 with two trips",
			[]Card{c(RankA, SuitClubs), c(RankA, SuitDiamonds), c(RankA, SuitHearts), c(RankK, SuitClubs), c(RankK, SuitDiamonds), c(RankK, SuitHearts), c(Rank2, SuitClubs)},
			FullHouse,
		},
		{
			"flush beats straight",
			[]Card{c(RankA, SuitClubs), c(Rank9, SuitClubs), c(Rank7, SuitClubs), c(Rank5, SuitClubs), c(Rank3, SuitClubs), c(Rank4, SuitHearts), c(Rank6, SuitDiamonds)},
			Flush,
		},
		{
			"six high straight",
			[]Card{c(Rank6, SuitClubs), c(Rank5, SuitDiamonds), c(Rank4, SuitHearts), c(Rank3, SuitSpades), c(Rank2, SuitClubs)},
			Straight,
		},
		{
			"trips",
			[]Card{c(Rank9, SuitClubs), c(Rank9, SuitDiamonds), c(Rank9, SuitHearts), c(RankK, SuitSpades), c(Rank2, SuitClubs)},
			ThreeOfAKind,
		},
		{
			"two pair",
			[]Card{c(RankJ, SuitClubs), c(RankJ, SuitDiamonds), c(Rank4, SuitHearts), c(Rank4, SuitSpades), c(Rank2, SuitClubs)},
			TwoPair,
		},
		{
			"pair",
			[]Card{c(Rank8, SuitClubs), c(Rank8, SuitDiamonds), c(RankK, SuitHearts), c(Rank4, SuitSpades), c(Rank2, SuitClubs)},
			Pair,
		},
		{
			"high card",
			[]Card{c(RankA, SuitClubs), c(RankK, SuitDiamonds), c(RankQ, SuitHearts), c(RankJ, SuitSpades), c(Rank9, SuitClubs)},
			HighCard,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.cards)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Ranking)
			assert.Len(t, got.FiveCards, 5)
		})
	}
}

func TestWheelLowerThanSixHigh(t *testing.T) {
	wheel, err := Evaluate([]Card{c(RankA, SuitSpades), c(Rank2, SuitHearts), c(Rank3, SuitDiamonds), c(Rank4, SuitClubs), c(Rank5, SuitSpades)})
	require.NoError(t, err)
	assert.Equal(t, Rank5, wheel.HighCard)

	sixHigh, err := Evaluate([]Card{c(Rank2, SuitHearts), c(Rank3, SuitDiamonds), c(Rank4, SuitClubs), c(Rank5, SuitSpades), c(Rank6, SuitClubs)})
	require.NoError(t, err)
	assert.Equal(t, Rank6, sixHigh.HighCard)

	assert.Equal(t, Straight, wheel.Ranking)
	assert.Equal(t, Straight, sixHigh.Ranking)
	assert.Equal(t, -1, Compare(wheel, sixHigh))
	assert.Equal(t, 1, Compare(sixHigh, wheel))
}

func TestCompareTotalOrder(t *testing.T) {
	aces, err := Evaluate([]Card{c(RankA, SuitClubs), c(RankA, SuitDiamonds), c(RankK, SuitHearts), c(RankQ, SuitSpades), c(RankJ, SuitClubs)})
	require.NoError(t, err)
	kings, err := Evaluate([]Card{c(RankK, SuitClubs), c(RankK, SuitDiamonds), c(RankQ, SuitHearts), c(RankJ, SuitSpades), c(Rank10, SuitClubs)})
	require.NoError(t, err)

	assert.Equal(t, 1, Compare(aces, kings))
	assert.Equal(t, -1, Compare(kings, aces))
	assert.Equal(t, 0, Compare(aces, aces))
}

func TestCompareMissingKickerIsLower(t *testing.T) {
	withKicker := &HandEvaluation{Ranking: Pair, HighCard: RankK, Kickers: []Rank{RankA}}
	withoutKicker := &HandEvaluation{Ranking: Pair, HighCard: RankK, Kickers: nil}
	assert.Equal(t, 1, Compare(withKicker, withoutKicker))
	assert.Equal(t, -1, Compare(withoutKicker, withKicker))
}

func TestFullHouseBeatsFlush(t *testing.T) {
	fh, err := Evaluate([]Card{c(Rank7, SuitClubs), c(Rank7, SuitDiamonds), c(Rank7, SuitHearts), c(Rank3, SuitSpades), c(Rank3, SuitClubs)})
	require.NoError(t, err)
	flush, err := Evaluate([]Card{c(RankA, SuitClubs), c(Rank9, SuitClubs), c(Rank7, SuitClubs), c(Rank5, SuitClubs), c(Rank3, SuitClubs)})
	require.NoError(t, err)

	assert.Equal(t, 1, Compare(fh, flush))
}
