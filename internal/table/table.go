// Package table implements the Table Engine (spec.md §4.3): a single
// table's state-machine lifecycle, orchestrating the betting engine,
// hand evaluator, deck oracle client, state synchronizer, and error
// recovery fabric. Generalizes the teacher's internal/game.Table
// (goroutine-per-table actor, tick-driven loop, channel-based action
// submission) from a single hardcoded table into the full
// WAITING -> PRE_FLOP -> FLOP -> TURN -> RIVER -> SHOWDOWN -> FINISHED
// state machine.
package table

import (
	"context"
	"fmt"
	"sync"
	"time"

	"poker-platform/internal/betting"
	"poker-platform/internal/deck"
	"poker-platform/internal/domain"
	"poker-platform/internal/metrics"
	"poker-platform/internal/recovery"
	tsync "poker-platform/internal/sync"
)

var (
	ErrTableFull        = fmt.Errorf("table: table is full")
	ErrNoSeatsAvailable = fmt.Errorf("table: no seats available")
	ErrPlayerNotFound   = fmt.Errorf("table: player not found")
)

// minPlayersToStart is the fewest actionable seated players needed to
// begin a hand (heads-up or more).
const minPlayersToStart = 2

// Table is a single poker table's engine: a single-owner actor whose
// hand is advanced only by its own task loop (spec.md §5). Actions
// reach the loop through SubmitAction; PlayerJoins and PlayerLeaves
// update seating directly under the table's mutex; Events, Start,
// Stop, Snapshot, Sync and Recover are for ingress.
type Table struct {
	cfg domain.TableConfig

	mu    sync.RWMutex
	state *domain.TableState

	bettingEngine *betting.Engine
	deckClient    *deck.Client
	synchronizer  *tsync.Synchronizer
	breakers      *recovery.Registry
	variant       VariantSpec

	deckBreaker *recovery.CircuitBreaker
	deckRetry   recovery.RetryPolicy

	actions  chan domain.PlayerActionRequest
	events   chan Event
	stopChan chan struct{}
	wg       sync.WaitGroup
	tickRate time.Duration

	handStartedAt time.Time
}

// New creates a Table for cfg, backed by oracle for card shuffling and
// breakers for the shared process-wide circuit-breaker registry
// (spec.md §5: breakers are process-wide, keyed by resource name).
func New(cfg domain.TableConfig, oracle deck.Oracle, breakers *recovery.Registry) *Table {
	if cfg.MaxSeats == 0 {
		cfg.MaxSeats = 9
	}
	if cfg.SmallBlind == 0 {
		cfg.SmallBlind = 5
	}
	if cfg.BigBlind == 0 {
		cfg.BigBlind = 10
	}

	deckPolicy, deckBreakerParams, _ := recovery.StrategyFor(recovery.ClassExternalService)

	synchronizer := tsync.New(tsync.DefaultConfig())
	synchronizer.SetTableID(cfg.TableID)

	return &Table{
		cfg: cfg,
		state: &domain.TableState{
			TableID:       cfg.TableID,
			Phase:         domain.PhaseWaiting,
			PlayersBySeat: make(map[int]*domain.Player),
		},
		bettingEngine: betting.NewEngine(),
		deckClient:    deck.NewClient(oracle),
		synchronizer:  synchronizer,
		breakers:      breakers,
		variant:       variantFor(cfg.GameType),
		deckBreaker:   breakers.Get("deck-oracle", deckBreakerParams),
		deckRetry:     deckPolicy,
		actions:       make(chan domain.PlayerActionRequest, 16),
		events:        make(chan Event, 64),
		stopChan:      make(chan struct{}),
		tickRate:      50 * time.Millisecond,
	}
}

// Events returns the channel event consumers should drain; ingress is
// expected to fan events out to clients.
func (t *Table) Events() <-chan Event {
	return t.events
}

// Start begins the table's game loop in its own goroutine.
func (t *Table) Start(ctx context.Context) {
	t.wg.Add(1)
	go t.gameLoop(ctx)
}

// Stop gracefully shuts down the table's loop.
func (t *Table) Stop() {
	close(t.stopChan)
	t.wg.Wait()
}

// Snapshot returns the latest authoritative snapshot, if any has been
// created yet.
func (t *Table) Snapshot() (tsync.Snapshot, bool) {
	return t.synchronizer.Latest()
}

// Sync runs the state synchronizer's delta-vs-snapshot protocol for a
// client reporting clientVersion (spec.md §4.4).
func (t *Table) Sync(clientVersion uint64) tsync.SyncResponse {
	return t.synchronizer.Sync(clientVersion)
}

// Recover runs the synchronizer's recovery contract for a client
// reporting clientVersion/clientHash (spec.md §4.4), returning the
// delta to the current snapshot plus every buffered action newer than
// the client's last known snapshot.
func (t *Table) Recover(clientVersion uint64, clientHash string) (tsync.StateDelta, []tsync.ActionRecord, error) {
	return t.synchronizer.Recover(clientVersion, clientHash)
}

// SubmitAction enqueues a player action for processing by the table's
// own loop.
func (t *Table) SubmitAction(ctx context.Context, req domain.PlayerActionRequest) error {
	select {
	case t.actions <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.stopChan:
		return fmt.Errorf("table: %s is stopped", t.cfg.TableID)
	}
}

// PlayerJoins seats a player, or reconnects them if already seated.
func (t *Table) PlayerJoins(playerID string, chips int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, p := range t.state.PlayersBySeat {
		if p.ID == playerID {
			p.Connected = true
			return nil
		}
	}

	if chips < t.cfg.MinBuyIn || chips > t.cfg.MaxBuyIn {
		return domain.ErrInvalidBuyIn
	}

	if len(t.state.PlayersBySeat) >= t.cfg.MaxSeats {
		return ErrTableFull
	}

	for seat := 0; seat < t.cfg.MaxSeats; seat++ {
		if _, occupied := t.state.PlayersBySeat[seat]; !occupied {
			t.state.PlayersBySeat[seat] = &domain.Player{
				ID: playerID, Seat: seat, Chips: chips, Connected: true,
			}
			t.emit(EventPlayerJoined, nil)
			return nil
		}
	}
	return ErrNoSeatsAvailable
}

// PlayerLeaves marks a player disconnected; the seat is retained so an
// in-progress hand can still resolve.
func (t *Table) PlayerLeaves(playerID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, p := range t.state.PlayersBySeat {
		if p.ID == playerID {
			p.Connected = false
			t.emit(EventPlayerLeft, nil)
			return nil
		}
	}
	return ErrPlayerNotFound
}

func (t *Table) emit(kind EventKind, payload interface{}) {
	snap := t.synchronizer.CreateSnapshot(t.state)
	metrics.RecordEvent(t.cfg.TableID, string(kind))
	metrics.SnapshotsCreated.WithLabelValues(t.cfg.TableID).Inc()
	select {
	case t.events <- newEvent(kind, t.cfg.TableID, t.state.HandNumber, snap, payload):
	default:
		// events channel full: drop rather than block the table's own loop.
	}
}

func (t *Table) gameLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.tickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopChan:
			return
		case req := <-t.actions:
			t.handleAction(ctx, req)
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

func (t *Table) tick(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state.Phase {
	case domain.PhasePreFlop, domain.PhaseFlop, domain.PhaseTurn, domain.PhaseRiver:
		if betting.RoundComplete(t.state) {
			t.completeBettingRound(ctx)
		}
	case domain.PhaseWaiting:
		if t.countActionable() >= minPlayersToStart {
			t.startNewHand(ctx)
		}
	case domain.PhaseShowdown:
		t.runShowdown()
	case domain.PhaseFinished:
		t.advanceAfterHand(ctx)
	}
}
