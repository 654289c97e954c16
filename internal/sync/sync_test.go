package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poker-platform/internal/domain"
)

func stateWithPot(pot int64, phase domain.GamePhase) *domain.TableState {
	return &domain.TableState{
		TableID:       "t1",
		Phase:         phase,
		Pot:           pot,
		PlayersBySeat: map[int]*domain.Player{0: {ID: "a", Seat: 0, Chips: 1000}},
	}
}

// TestSnapshotHashMatchesCanonicalEncoding covers invariant 2: for any
// snapshot, hash == H(canonical_encoding(state)).
func TestSnapshotHashMatchesCanonicalEncoding(t *testing.T) {
	snap := NewSnapshot(1, stateWithPot(0, domain.PhasePreFlop))
	expected := hashOf(canonicalEncode(snap.Version, snap.GameState, snap.PlayerStates))
	assert.Equal(t, expected, snap.Hash)
	assert.True(t, snap.Validate())
}

// TestHistoryVersionsStrictlyIncreasing covers invariant 3.
func TestHistoryVersionsStrictlyIncreasing(t *testing.T) {
	s := New(DefaultConfig())
	state := stateWithPot(0, domain.PhasePreFlop)

	var versions []uint64
	for i := 0; i < 5; i++ {
		state.Pot = int64(i * 10)
		snap := s.CreateSnapshot(state)
		versions = append(versions, snap.Version)
	}

	for i := 1; i < len(versions); i++ {
		assert.Greater(t, versions[i], versions[i-1])
	}
}

// TestDeltaApplyRoundTrip is scenario S3 from spec.md §8: snapshot v1
// from {pot:0, phase:PRE_FLOP}; v2 changes pot to 30; delta v1->v2
// applied to a copy of v1 reproduces v2's hash (invariant 4).
func TestDeltaApplyRoundTrip(t *testing.T) {
	s := New(DefaultConfig())
	state := stateWithPot(0, domain.PhasePreFlop)
	v1 := s.CreateSnapshot(state)

	state.Pot = 30
	v2 := s.CreateSnapshot(state)

	delta := GenerateDelta(v1, v2)
	assert.Equal(t, v1.Version, delta.FromVersion)
	assert.Equal(t, v2.Version, delta.ToVersion)

	applied, err := ApplyDelta(v1, delta)
	require.NoError(t, err)
	assert.Equal(t, v2.Hash, applied.Hash)
	assert.Equal(t, v2.Version, applied.Version)
}

func TestApplyDeltaRejectsVersionMismatch(t *testing.T) {
	snap := NewSnapshot(1, stateWithPot(0, domain.PhasePreFlop))
	badDelta := StateDelta{FromVersion: 99, ToVersion: 100}

	_, err := ApplyDelta(snap, badDelta)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestSyncProtocolPrefersDeltaWithinThreshold(t *testing.T) {
	s := New(Config{VersionDiffThreshold: 10, MaxDeltaBytes: DefaultMaxDeltaBytes, HistoryCap: 50})
	state := stateWithPot(0, domain.PhasePreFlop)

	first := s.CreateSnapshot(state)
	state.Pot = 5
	s.CreateSnapshot(state)

	resp := s.Sync(first.Version)
	assert.Equal(t, SyncDelta, resp.Kind)
}

func TestSyncProtocolFallsBackToSnapshotBeyondThreshold(t *testing.T) {
	s := New(Config{VersionDiffThreshold: 1, MaxDeltaBytes: DefaultMaxDeltaBytes, HistoryCap: 50})
	state := stateWithPot(0, domain.PhasePreFlop)

	first := s.CreateSnapshot(state)
	for i := 1; i <= 5; i++ {
		state.Pot = int64(i)
		s.CreateSnapshot(state)
	}

	resp := s.Sync(first.Version)
	assert.Equal(t, SyncSnapshot, resp.Kind)
}

func TestRecoverRejectsUnknownOrHashMismatchedClient(t *testing.T) {
	s := New(DefaultConfig())
	state := stateWithPot(0, domain.PhasePreFlop)
	s.CreateSnapshot(state)

	_, _, err := s.Recover(999, "bogus")
	assert.ErrorIs(t, err, ErrInvalidClientState)
}

func TestRecoverReturnsDeltaAndBufferedActions(t *testing.T) {
	s := New(DefaultConfig())
	state := stateWithPot(0, domain.PhasePreFlop)
	v1 := s.CreateSnapshot(state)

	s.RecordAction(domain.PlayerActionRequest{PlayerID: "a", Kind: domain.ActionCheck, Timestamp: time.Now()})

	state.Pot = 10
	v2 := s.CreateSnapshot(state)

	delta, buffered, err := s.Recover(v1.Version, v1.Hash)
	require.NoError(t, err)
	assert.Equal(t, v2.Version, delta.ToVersion)
	assert.Len(t, buffered, 1)
}

func TestResolveAuthorityBasedPrefersAdmin(t *testing.T) {
	now := time.Now()
	records := []ActionRecord{
		{domain.PlayerActionRequest{PlayerID: "b", Authority: domain.RolePlayer.AuthorityLevel(), Timestamp: now}},
		{domain.PlayerActionRequest{PlayerID: "a", Authority: domain.RoleAdmin.AuthorityLevel(), Timestamp: now}},
	}

	resolved := Resolve(records, AuthorityBased)
	require.Len(t, resolved, 1)
	assert.Equal(t, "a", resolved[0].PlayerID)
}

func TestResolveTimestampFirstDropsDuplicates(t *testing.T) {
	now := time.Now()
	records := []ActionRecord{
		{domain.PlayerActionRequest{PlayerID: "a", Timestamp: now}},
		{domain.PlayerActionRequest{PlayerID: "a", Timestamp: now}},
		{domain.PlayerActionRequest{PlayerID: "b", Timestamp: now.Add(time.Second)}},
	}

	resolved := Resolve(records, TimestampFirst)
	assert.Len(t, resolved, 2)
}

func TestDetectConflictsFlagsOutOfTurnAndDuplicates(t *testing.T) {
	now := time.Now()
	records := []ActionRecord{
		{domain.PlayerActionRequest{PlayerID: "b", Timestamp: now}},
		{domain.PlayerActionRequest{PlayerID: "b", Timestamp: now}},
	}

	conflicts := DetectConflicts(records, 0, "a")
	require.Len(t, conflicts, 2)
	assert.Equal(t, ConflictOutOfTurn, conflicts[0].Kind)
	assert.Equal(t, ConflictDuplicateAction, conflicts[1].Kind)
}
