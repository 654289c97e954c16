package deck

import (
	"context"
	"sync"
	"time"

	"poker-platform/internal/poker"
)

// Client wraps an Oracle and tracks shuffle history locally, per
// spec.md §2 ("Deck Oracle Client ... tracks shuffle history
// locally"). It is safe for concurrent use, though a single table
// only ever calls it from its own task loop.
type Client struct {
	oracle Oracle

	mu      sync.Mutex
	history []ShuffleRecord
}

// NewClient builds a deck oracle client over the given oracle
// implementation.
func NewClient(oracle Oracle) *Client {
	return &Client{oracle: oracle}
}

// NewShuffledDeck requests a fresh deck, commits it, and shuffles it,
// recording the resulting proof in local history. The handle
// identifies the deck for subsequent Deal/Burn/Reveal calls.
func (c *Client) NewShuffledDeck(ctx context.Context, gameID string) (Handle, ShuffleProof, error) {
	handle, err := c.oracle.CreateDeck(ctx, gameID)
	if err != nil {
		return "", ShuffleProof{}, err
	}
	if _, err := c.oracle.Commit(ctx, handle, gameID); err != nil {
		return "", ShuffleProof{}, err
	}
	proof, err := c.oracle.Shuffle(ctx, handle, gameID)
	if err != nil {
		return "", ShuffleProof{}, err
	}

	c.mu.Lock()
	c.history = append(c.history, ShuffleRecord{GameID: gameID, Handle: handle, Proof: proof, Timestamp: time.Now()})
	c.mu.Unlock()

	return handle, proof, nil
}

// Deal draws the next count cards from the shuffled deck. Dealing is
// atomic from the caller's point of view: either all count cards are
// returned or none are (the deal fails as a whole).
func (c *Client) Deal(ctx context.Context, handle Handle, count int) ([]poker.Card, error) {
	return c.oracle.Deal(ctx, handle, count)
}

// Burn discards the next card in the deck, as done before each
// post-flop community card round.
func (c *Client) Burn(ctx context.Context, handle Handle) (poker.Card, error) {
	return c.oracle.Burn(ctx, handle)
}

// VerifyReveal asks the oracle to reveal the shuffle seed and checks
// it against the attested shuffle hash.
func (c *Client) VerifyReveal(ctx context.Context, handle Handle, gameID string) error {
	result, err := c.oracle.Reveal(ctx, handle, gameID)
	if err != nil {
		return err
	}
	if !result.MatchesShuffled {
		return ErrIntegrityMismatch
	}
	return nil
}

// History returns a copy of the recorded shuffle history.
func (c *Client) History() []ShuffleRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ShuffleRecord, len(c.history))
	copy(out, c.history)
	return out
}
