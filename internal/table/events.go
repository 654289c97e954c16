package table

import (
	"time"

	"poker-platform/internal/domain"
	"poker-platform/internal/sync"
)

// EventKind names one of the externally visible transitions the
// engine publishes (spec.md §4.3).
type EventKind string

const (
	EventPlayerJoined        EventKind = "PLAYER_JOINED"
	EventPlayerLeft          EventKind = "PLAYER_LEFT"
	EventGameStarted         EventKind = "GAME_STARTED"
	EventCardsDealt          EventKind = "CARDS_DEALT"
	EventBlindsPosted        EventKind = "BLINDS_POSTED"
	EventActionPerformed     EventKind = "ACTION_PERFORMED"
	EventCommunityCardsDealt EventKind = "COMMUNITY_CARDS_DEALT"
	EventNewBettingRound     EventKind = "NEW_BETTING_ROUND"
	EventHandCompleted       EventKind = "HAND_COMPLETED"
	EventGameEnded           EventKind = "GAME_ENDED"
	EventActionRejected      EventKind = "ACTION_REJECTED"
)

// Event is one published transition, paired with the new authoritative
// snapshot per spec.md §4.3 ("Each event is paired with the new
// authoritative snapshot").
type Event struct {
	Kind            EventKind
	Timestamp       time.Time
	TableID         string
	HandNumber      int
	SnapshotVersion uint64
	SnapshotHash    string
	Payload         interface{}
}

// ActionPerformedPayload is ACTION_PERFORMED's payload schema.
type ActionPerformedPayload struct {
	PlayerID        string
	Kind            string
	Amount          int64
	PotContribution int64
}

// ActionRejectedPayload is ACTION_REJECTED's payload schema: the
// client-visible counterpart to a *domain.ActionError (spec.md §7),
// identifying which submitted action was rejected and why.
type ActionRejectedPayload struct {
	PlayerID string
	Kind     string
	Reason   string
	Hints    domain.Hint
}

// CommunityCardsPayload is COMMUNITY_CARDS_DEALT's payload schema.
type CommunityCardsPayload struct {
	Phase string
	Cards []string
}

// HandWinner is one entry of HAND_COMPLETED's winners list.
type HandWinner struct {
	PlayerID string
	PotIndex int
	Amount   int64
	Ranking  string
}

// HandCompletedPayload is HAND_COMPLETED's payload schema.
type HandCompletedPayload struct {
	Winners []HandWinner
}

func newEvent(kind EventKind, tableID string, handNumber int, snap sync.Snapshot, payload interface{}) Event {
	return Event{
		Kind:            kind,
		Timestamp:       time.Now(),
		TableID:         tableID,
		HandNumber:      handNumber,
		SnapshotVersion: snap.Version,
		SnapshotHash:    snap.Hash,
		Payload:         payload,
	}
}
