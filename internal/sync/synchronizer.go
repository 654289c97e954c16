package sync

import (
	"errors"
	"sync"

	"poker-platform/internal/domain"
	"poker-platform/internal/metrics"
)

const (
	// DefaultVersionDiffThreshold is the sync protocol's full-snapshot
	// trigger (spec.md §4.4, §6).
	DefaultVersionDiffThreshold = 10
	// DefaultMaxDeltaBytes is the sync protocol's other full-snapshot
	// trigger (spec.md §6).
	DefaultMaxDeltaBytes = 10 * 1024
	// DefaultHistoryCap is the default snapshot history ring capacity
	// (spec.md §6, §9); the action log ring uses defaultActionCap.
	DefaultHistoryCap = 50
	defaultActionCap  = 200
)

// ErrInvalidClientState is returned by Recover when the client's
// claimed version/hash cannot be reconciled against history.
var ErrInvalidClientState = errors.New("sync: invalid client state")

// ActionRecord is one buffered action used for conflict detection and
// post-recovery replay.
type ActionRecord struct {
	domain.PlayerActionRequest
}

// Config holds the synchronizer's tunable thresholds, mirroring
// internal/config's sync.* entries (spec.md §6: sync.version_diff_threshold,
// sync.max_delta_bytes, sync.history_cap). table.New builds its
// synchronizer from DefaultConfig, not from the loaded envelope.
type Config struct {
	VersionDiffThreshold int
	MaxDeltaBytes        int
	HistoryCap           int
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		VersionDiffThreshold: DefaultVersionDiffThreshold,
		MaxDeltaBytes:        DefaultMaxDeltaBytes,
		HistoryCap:           DefaultHistoryCap,
	}
}

// Synchronizer owns one table's snapshot/delta history and version
// counter. A Table Engine exclusively owns one Synchronizer instance
// (spec.md §3 "Ownership").
type Synchronizer struct {
	cfg     Config
	tableID string // set via SetTableID, used only to label metrics

	mu        sync.Mutex // serializes version assignment, per spec.md §5
	counter   uint64
	snapshots *ring[Snapshot]
	actions   *ring[ActionRecord]
}

// SetTableID attaches the owning table's id, used to label the
// synchronizer's metrics. Safe to call once before the synchronizer
// starts serving Sync calls.
func (s *Synchronizer) SetTableID(tableID string) {
	s.tableID = tableID
}

// New creates a Synchronizer with cfg (zero fields fall back to
// spec.md defaults).
func New(cfg Config) *Synchronizer {
	if cfg.VersionDiffThreshold <= 0 {
		cfg.VersionDiffThreshold = DefaultVersionDiffThreshold
	}
	if cfg.MaxDeltaBytes <= 0 {
		cfg.MaxDeltaBytes = DefaultMaxDeltaBytes
	}
	if cfg.HistoryCap <= 0 {
		cfg.HistoryCap = DefaultHistoryCap
	}
	return &Synchronizer{
		cfg:       cfg,
		snapshots: newRing[Snapshot](cfg.HistoryCap),
		actions:   newRing[ActionRecord](defaultActionCap),
	}
}

// CreateSnapshot deep-clones state, assigns the next version under the
// synchronizer's serializing lock, computes its hash, and inserts it
// into history.
func (s *Synchronizer) CreateSnapshot(state *domain.TableState) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter++
	snap := NewSnapshot(s.counter, state)
	s.snapshots.add(snap)
	return snap.clone()
}

func (s *Synchronizer) latestLocked() (Snapshot, bool) {
	all := s.snapshots.all()
	if len(all) == 0 {
		return Snapshot{}, false
	}
	return all[len(all)-1], true
}

// Latest returns the most recent snapshot, deep-cloned.
func (s *Synchronizer) Latest() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.latestLocked()
	if !ok {
		return Snapshot{}, false
	}
	return snap.clone(), true
}

func (s *Synchronizer) findLocked(version uint64) (Snapshot, bool) {
	for _, snap := range s.snapshots.all() {
		if snap.Version == version {
			return snap, true
		}
	}
	return Snapshot{}, false
}

// RecordAction appends an action to the bounded action log used for
// conflict detection and post-recovery replay.
func (s *Synchronizer) RecordAction(req domain.PlayerActionRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions.add(ActionRecord{req})
}

// SyncResponseKind distinguishes a full-snapshot response from a
// delta response in the sync protocol.
type SyncResponseKind int

const (
	SyncSnapshot SyncResponseKind = iota
	SyncDelta
)

// SyncResponse is what Sync returns: either a full Snapshot or a
// StateDelta, tagged by Kind.
type SyncResponse struct {
	Kind     SyncResponseKind
	Snapshot Snapshot
	Delta    StateDelta
}

// Sync implements the sync protocol (spec.md §4.4): given a client's
// known version, decide whether to send a full snapshot or a delta.
func (s *Synchronizer) Sync(clientVersion uint64) SyncResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest, ok := s.latestLocked()
	if !ok {
		return SyncResponse{Kind: SyncSnapshot}
	}

	diff := latest.Version - clientVersion
	encoded := canonicalEncode(latest.Version, latest.GameState, latest.PlayerStates)
	metrics.DeltaBytes.WithLabelValues(s.tableID).Observe(float64(len(encoded)))

	if diff > uint64(s.cfg.VersionDiffThreshold) || len(encoded) > s.cfg.MaxDeltaBytes {
		metrics.SyncFallbackToSnapshot.WithLabelValues(s.tableID).Inc()
		return SyncResponse{Kind: SyncSnapshot, Snapshot: latest.clone()}
	}

	if client, ok := s.findLocked(clientVersion); ok {
		delta := GenerateDelta(client, latest)
		return SyncResponse{Kind: SyncDelta, Delta: delta}
	}

	metrics.SyncFallbackToSnapshot.WithLabelValues(s.tableID).Inc()
	return SyncResponse{Kind: SyncSnapshot, Snapshot: latest.clone()}
}

// Recover implements spec.md §4.4's recovery contract: given a
// client's claimed version and hash, either reject it as invalid or
// return the delta to the current snapshot plus all buffered actions
// newer than the client's snapshot.
func (s *Synchronizer) Recover(clientVersion uint64, clientHash string) (StateDelta, []ActionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, ok := s.findLocked(clientVersion)
	if !ok || client.Hash != clientHash {
		return StateDelta{}, nil, ErrInvalidClientState
	}

	latest, ok := s.latestLocked()
	if !ok {
		return StateDelta{}, nil, ErrInvalidClientState
	}

	delta := GenerateDelta(client, latest)

	var buffered []ActionRecord
	for _, rec := range s.actions.all() {
		if rec.Timestamp.After(client.Timestamp) {
			buffered = append(buffered, rec)
		}
	}
	return delta, buffered, nil
}
