package recovery

import "time"

// ConnectionType distinguishes a spectator connection (eligible for
// polling degrade) from a player connection.
type ConnectionType int

const (
	ConnTypePlayer ConnectionType = iota
	ConnTypeSpectator
)

// ConnectionDecision is the outcome of the connection-failure decision
// procedure (spec.md §4.5).
type ConnectionDecision struct {
	Terminate bool
	Degrade   bool // to polling
	RetryIn   time.Duration
}

// DecideConnectionFailure implements spec.md §4.5's connection-failure
// decision procedure: terminate after 5 attempts or 5 minutes of
// disconnection, degrade spectators to polling, otherwise reconnect
// with exponential backoff capped at 30s.
func DecideConnectionFailure(attemptCount int, disconnectedAt, now time.Time, connType ConnectionType) ConnectionDecision {
	if attemptCount >= 5 || now.Sub(disconnectedAt) > 5*time.Minute {
		return ConnectionDecision{Terminate: true}
	}
	if connType == ConnTypeSpectator {
		return ConnectionDecision{Degrade: true}
	}

	delay := time.Second * time.Duration(1<<uint(attemptCount-1))
	if attemptCount <= 0 {
		delay = time.Second
	}
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return ConnectionDecision{RetryIn: delay}
}

// GameErrorKind names the game-error classes spec.md §4.5 assigns a
// decision to.
type GameErrorKind int

const (
	ErrorPlayerDisconnected GameErrorKind = iota
	ErrorStateCorruption
	ErrorInvalidAction
	ErrorPlayerTimeout
)

// GameErrorAction is the action the fabric takes in response to a
// game-error decision.
type GameErrorAction string

const (
	ActionAutoFold          GameErrorAction = "auto-fold"
	ActionRemoveFromTable   GameErrorAction = "remove-from-table"
	ActionPauseGame         GameErrorAction = "pause-game"
	ActionRollback          GameErrorAction = "rollback"
	ActionSkipTurn          GameErrorAction = "skip-turn"
)

// GameErrorDecision is the outcome of DecideGameError.
type GameErrorDecision struct {
	Action        GameErrorAction
	NotifyOthers  bool
	AdminAlert    bool
	RollbackTo    string // "lastValidState" for ErrorInvalidAction
	DefaultAction string // "check-or-fold" for ErrorPlayerTimeout
}

// DecideGameError implements spec.md §4.5's game-error decision table.
func DecideGameError(kind GameErrorKind, inHand bool) GameErrorDecision {
	switch kind {
	case ErrorPlayerDisconnected:
		if inHand {
			return GameErrorDecision{Action: ActionAutoFold, NotifyOthers: true}
		}
		return GameErrorDecision{Action: ActionRemoveFromTable}
	case ErrorStateCorruption:
		return GameErrorDecision{Action: ActionPauseGame, AdminAlert: true}
	case ErrorInvalidAction:
		return GameErrorDecision{Action: ActionRollback, RollbackTo: "lastValidState"}
	case ErrorPlayerTimeout:
		return GameErrorDecision{Action: ActionSkipTurn, DefaultAction: "check-or-fold"}
	default:
		return GameErrorDecision{}
	}
}

// conflictCriticalFields are the fields whose conflict always escalates
// to manual intervention, per spec.md §4.5.
var conflictCriticalFields = map[string]bool{
	"gamePhase":      true,
	"pot":            true,
	"playerBalances": true,
	"deck":           true,
}

// ConflictResolutionKind names the three state-conflict outcomes.
type ConflictResolutionKind int

const (
	ManualIntervention ConflictResolutionKind = iota
	DeepMerge
	LastWriteWins
)

// ConflictResolutionDecision is the outcome of DecideStateConflict.
type ConflictResolutionDecision struct {
	Kind          ConflictResolutionKind
	AdminRequired bool
}

// DecideStateConflict implements spec.md §4.5's state-conflict
// resolution table: critical fields or an invalid-state-transition
// always require manual intervention; otherwise mergeable states deep
// merge, and anything else falls back to last-write-wins.
func DecideStateConflict(field string, invalidStateTransition, mergeable bool) ConflictResolutionDecision {
	if invalidStateTransition || conflictCriticalFields[field] {
		return ConflictResolutionDecision{Kind: ManualIntervention, AdminRequired: true}
	}
	if mergeable {
		return ConflictResolutionDecision{Kind: DeepMerge}
	}
	return ConflictResolutionDecision{Kind: LastWriteWins}
}
