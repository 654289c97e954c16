package deck

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"poker-platform/internal/poker"
)

// MemoryOracle is a reference Oracle implementation for local
// development and tests, adapted from an AES-CTR counter-mode CSPRNG:
// a hardware seed drives an AES block cipher used as a keystream
// generator for the Fisher-Yates shuffle. A production deployment
// talks to the real external RNG service over the network instead of
// this package.
type MemoryOracle struct {
	mu     sync.Mutex
	decks  map[Handle]*managedDeck
	cipher cipher.Block
	seed   []byte
	ctr    uint64
}

type managedDeck struct {
	original []poker.Card
	shuffled []poker.Card
	cursor   int
	proof    ShuffleProof
}

// NewMemoryOracle builds a reference oracle seeded from the system
// CSPRNG.
func NewMemoryOracle() (*MemoryOracle, error) {
	seed := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, seed); err != nil {
		return nil, fmt.Errorf("deck: failed to seed memory oracle: %w", err)
	}
	block, err := aes.NewCipher(seed)
	if err != nil {
		return nil, fmt.Errorf("deck: failed to init cipher: %w", err)
	}
	return &MemoryOracle{
		decks:  make(map[Handle]*managedDeck),
		cipher: block,
		seed:   seed,
	}, nil
}

func (m *MemoryOracle) randomUint64() uint64 {
	block := make([]byte, 16)
	binary.BigEndian.PutUint64(block[:8], m.ctr)
	m.ctr++
	out := make([]byte, 16)
	m.cipher.Encrypt(out, block)
	return binary.BigEndian.Uint64(out[:8])
}

func (m *MemoryOracle) randomInt(n int) int {
	if n <= 0 {
		return 0
	}
	return int(m.randomUint64() % uint64(n))
}

func hashDeck(cards []poker.Card) string {
	h := sha256.New()
	for _, c := range cards {
		h.Write([]byte{byte(c.ID())})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (m *MemoryOracle) CreateDeck(ctx context.Context, gameID string) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	handle := Handle(fmt.Sprintf("%s-%d", gameID, len(m.decks)+1))
	m.decks[handle] = &managedDeck{original: poker.NewDeck()}
	return handle, nil
}

func (m *MemoryOracle) Commit(ctx context.Context, handle Handle, gameID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.decks[handle]
	if !ok {
		return "", fmt.Errorf("deck: unknown handle %q", handle)
	}
	return hashDeck(d.original), nil
}

func (m *MemoryOracle) Shuffle(ctx context.Context, handle Handle, gameID string) (ShuffleProof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.decks[handle]
	if !ok {
		return ShuffleProof{}, fmt.Errorf("deck: unknown handle %q", handle)
	}

	originalHash := hashDeck(d.original)
	shuffled := make([]poker.Card, len(d.original))
	copy(shuffled, d.original)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := m.randomInt(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	proof := ShuffleProof{
		OriginalHash: originalHash,
		ShuffledHash: hashDeck(shuffled),
		EntropyBits:  256,
		Algorithm:    "fisher-yates/aes-ctr-256",
	}
	d.shuffled = shuffled
	d.cursor = 0
	d.proof = proof
	return proof, nil
}

func (m *MemoryOracle) Deal(ctx context.Context, handle Handle, count int) ([]poker.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.decks[handle]
	if !ok {
		return nil, fmt.Errorf("deck: unknown handle %q", handle)
	}
	if d.cursor+count > len(d.shuffled) {
		return nil, fmt.Errorf("deck: not enough cards remaining (have %d, want %d)", len(d.shuffled)-d.cursor, count)
	}
	cards := make([]poker.Card, count)
	copy(cards, d.shuffled[d.cursor:d.cursor+count])
	d.cursor += count
	return cards, nil
}

func (m *MemoryOracle) Burn(ctx context.Context, handle Handle) (poker.Card, error) {
	cards, err := m.Deal(ctx, handle, 1)
	if err != nil {
		return poker.Card{}, err
	}
	return cards[0], nil
}

func (m *MemoryOracle) Reveal(ctx context.Context, handle Handle, gameID string) (RevealResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.decks[handle]
	if !ok {
		return RevealResult{}, fmt.Errorf("deck: unknown handle %q", handle)
	}
	revealedHash := hashDeck(d.shuffled)
	return RevealResult{
		Seed:            append([]byte(nil), m.seed...),
		RevealedHash:    revealedHash,
		MatchesShuffled: revealedHash == d.proof.ShuffledHash,
	}, nil
}
