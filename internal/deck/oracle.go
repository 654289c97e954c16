// Package deck is the client side of the external commit/reveal
// shuffle oracle named in spec.md §6. The core never shuffles cards
// itself; it requests a shuffled deck, deals from it, and verifies
// integrity on reveal by hash equality. The oracle implementation
// (the RNG service) is an external collaborator — only its contract
// and an in-memory reference double live here.
package deck

import (
	"context"
	"errors"
	"time"

	"poker-platform/internal/poker"
)

// Handle identifies one shuffled deck instance held by the oracle.
type Handle string

// ShuffleProof is the attestation the oracle returns for a shuffle:
// hashes of the deck before and after, the entropy consumed, and the
// algorithm used. entropy_used must be >=256 bits per spec.md §6.
type ShuffleProof struct {
	OriginalHash string
	ShuffledHash string
	EntropyBits  int
	Algorithm    string
}

// RevealResult is returned when the oracle reveals the seed used for
// a shuffle, for post-hoc integrity verification.
type RevealResult struct {
	Seed            []byte
	RevealedHash    string
	MatchesShuffled bool
}

// ErrIntegrityMismatch is returned when a reveal's hash disagrees with
// the shuffle's attested hash — the deck must be treated as untrusted.
var ErrIntegrityMismatch = errors.New("deck: reveal hash does not match shuffle proof")

// Oracle is the external shuffle/commit/reveal service contract
// (spec.md §6). The core treats it as opaque.
type Oracle interface {
	CreateDeck(ctx context.Context, gameID string) (Handle, error)
	Commit(ctx context.Context, handle Handle, gameID string) (string, error)
	Shuffle(ctx context.Context, handle Handle, gameID string) (ShuffleProof, error)
	Deal(ctx context.Context, handle Handle, count int) ([]poker.Card, error)
	Burn(ctx context.Context, handle Handle) (poker.Card, error)
	Reveal(ctx context.Context, handle Handle, gameID string) (RevealResult, error)
}

// ShuffleRecord is one entry in a client's local shuffle history.
type ShuffleRecord struct {
	GameID    string
	Handle    Handle
	Proof     ShuffleProof
	Timestamp time.Time
}
