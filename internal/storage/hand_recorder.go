package storage

import (
	"context"

	"github.com/google/uuid"

	"poker-platform/internal/table"
)

// HandRecorder adapts table.Event values onto the teacher's
// AnalyticsRepository (clickhouse.go), fulfilling spec.md §6's
// record_hand persistence collaborator without touching the
// ClickHouse schema or query code the teacher already wrote for
// hand_analytics — only HAND_COMPLETED events produce a row, one per
// winner, since that is what the event payload carries.
type HandRecorder struct {
	repo        AnalyticsRepository
	gameType    string
	bettingType string
}

// NewHandRecorder builds a recorder that forwards HAND_COMPLETED
// events for one table's game type to repo.
func NewHandRecorder(repo AnalyticsRepository, gameType, bettingType string) *HandRecorder {
	return &HandRecorder{repo: repo, gameType: gameType, bettingType: bettingType}
}

// Record persists evt if it is a HAND_COMPLETED event; any other kind
// is a no-op. Errors are returned for the caller to treat as non-fatal
// per spec.md §6.
func (r *HandRecorder) Record(ctx context.Context, evt table.Event) error {
	if evt.Kind != table.EventHandCompleted {
		return nil
	}
	payload, ok := evt.Payload.(table.HandCompletedPayload)
	if !ok {
		return nil
	}

	events := make([]*HandAnalyticsEvent, 0, len(payload.Winners))
	for _, w := range payload.Winners {
		events = append(events, &HandAnalyticsEvent{
			EventID:     uuid.NewString(),
			EventType:   AnalyticsEventHandCompleted,
			HandID:      uuid.NewString(),
			TableID:     evt.TableID,
			GameType:    r.gameType,
			BettingType: r.bettingType,
			PlayerID:    w.PlayerID,
			ChipsAfter:  w.Amount,
			TotalPot:    w.Amount,
			ActionType:  "win",
			Timestamp:   evt.Timestamp,
		})
	}
	if len(events) == 0 {
		return nil
	}
	return r.repo.RecordHandEvents(ctx, events)
}
