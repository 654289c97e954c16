package sync

import (
	"errors"
	"fmt"
	"reflect"
)

// Change is one field-level mutation in a StateDelta. A NewValue of
// nil with Removed set denotes deletion (spec.md §4.4: "new_value ==
// ⊥ denotes removal").
type Change struct {
	Path     string
	OldValue interface{}
	NewValue interface{}
	Removed  bool
}

// StateDelta is the minimal change list between two snapshot versions.
type StateDelta struct {
	FromVersion uint64
	ToVersion   uint64
	Changes     []Change
}

// ErrVersionMismatch is returned by ApplyDelta when the target
// snapshot's version does not equal the delta's FromVersion.
var ErrVersionMismatch = errors.New("sync: snapshot version does not match delta.from_version")

// compareCache skips revisiting the same (path, old, new) triple
// within a single diff, per spec.md §4.4 ("comparison cache keyed by
// (path, identity_of_old, identity_of_new)").
type compareCache struct {
	seen map[string]bool
}

func newCompareCache() *compareCache {
	return &compareCache{seen: make(map[string]bool)}
}

func (c *compareCache) visited(path string, oldV, newV interface{}) bool {
	key := fmt.Sprintf("%s|%p|%p", path, &oldV, &newV)
	if c.seen[key] {
		return true
	}
	c.seen[key] = true
	return false
}

// GenerateDelta produces the minimal change list from "from" to "to".
// Per spec.md §4.4, arrays (and any non-object value) are compared by
// value equality of their serialization and emitted as a single
// replace change — no positional diff; maps of players are diffed per
// player and per field.
func GenerateDelta(from, to Snapshot) StateDelta {
	cache := newCompareCache()
	var changes []Change

	changes = append(changes, diffObject("game_state", from.GameState, to.GameState, cache)...)
	changes = append(changes, diffPlayers(from.PlayerStates, to.PlayerStates, cache)...)

	return StateDelta{FromVersion: from.Version, ToVersion: to.Version, Changes: changes}
}

func diffObject(prefix string, oldObj, newObj map[string]interface{}, cache *compareCache) []Change {
	var changes []Change

	keys := make(map[string]bool)
	for k := range oldObj {
		keys[k] = true
	}
	for k := range newObj {
		keys[k] = true
	}

	for k := range keys {
		path := prefix + "." + k
		oldV, hadOld := oldObj[k]
		newV, hasNew := newObj[k]

		if cache.visited(path, oldV, newV) {
			continue
		}

		switch {
		case !hasNew && hadOld:
			changes = append(changes, Change{Path: path, OldValue: oldV, Removed: true})
		case hasNew && !hadOld:
			changes = append(changes, Change{Path: path, NewValue: newV})
		case !valueEqual(oldV, newV):
			oldNested, oldIsObj := oldV.(map[string]interface{})
			newNested, newIsObj := newV.(map[string]interface{})
			if oldIsObj && newIsObj {
				changes = append(changes, diffObject(path, oldNested, newNested, cache)...)
			} else {
				changes = append(changes, Change{Path: path, OldValue: oldV, NewValue: newV})
			}
		}
	}
	return changes
}

// diffPlayers compares player maps per player and per field, using
// the "playerStates.<id>.<field>" path grammar from spec.md §4.4,
// treating player ids as opaque segments (see DESIGN.md's Open
// Question on the delta path grammar).
func diffPlayers(oldPlayers, newPlayers map[string]map[string]interface{}, cache *compareCache) []Change {
	var changes []Change

	ids := make(map[string]bool)
	for id := range oldPlayers {
		ids[id] = true
	}
	for id := range newPlayers {
		ids[id] = true
	}

	for id := range ids {
		oldFields, hadOld := oldPlayers[id]
		newFields, hasNew := newPlayers[id]
		base := "playerStates." + id

		switch {
		case !hasNew && hadOld:
			changes = append(changes, Change{Path: base, OldValue: oldFields, Removed: true})
		case hasNew && !hadOld:
			changes = append(changes, Change{Path: base, NewValue: newFields})
		default:
			changes = append(changes, diffObject(base, oldFields, newFields, cache)...)
		}
	}
	return changes
}

func valueEqual(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}

// ApplyDelta applies d to target, returning the resulting snapshot.
// Requires target.Version == d.FromVersion (spec.md §4.4); after
// applying all changes the hash is recomputed and version is set to
// d.ToVersion.
func ApplyDelta(target Snapshot, d StateDelta) (Snapshot, error) {
	if target.Version != d.FromVersion {
		return Snapshot{}, ErrVersionMismatch
	}

	result := target.clone()
	for _, change := range d.Changes {
		applyChange(&result, change)
	}
	result.Version = d.ToVersion
	result.Hash = hashOf(canonicalEncode(result.Version, result.GameState, result.PlayerStates))
	return result, nil
}

func applyChange(s *Snapshot, change Change) {
	if len(change.Path) >= len("playerStates.") && change.Path[:len("playerStates.")] == "playerStates." {
		applyPlayerChange(s, change)
		return
	}
	// game_state.<field...>
	applyObjectChange(s.GameState, stripPrefix(change.Path, "game_state."), change)
}

func applyPlayerChange(s *Snapshot, change Change) {
	rest := stripPrefix(change.Path, "playerStates.")
	id, field := splitFirst(rest)

	if field == "" {
		if change.Removed {
			delete(s.PlayerStates, id)
		} else if fields, ok := change.NewValue.(map[string]interface{}); ok {
			s.PlayerStates[id] = fields
		}
		return
	}

	fields, ok := s.PlayerStates[id]
	if !ok {
		fields = make(map[string]interface{})
		s.PlayerStates[id] = fields
	}
	applyObjectChange(fields, field, change)
}

func applyObjectChange(obj map[string]interface{}, path string, change Change) {
	if path == "" {
		return
	}
	key, rest := splitFirst(path)
	if rest == "" {
		if change.Removed {
			delete(obj, key)
		} else {
			obj[key] = change.NewValue
		}
		return
	}
	nested, ok := obj[key].(map[string]interface{})
	if !ok {
		nested = make(map[string]interface{})
		obj[key] = nested
	}
	applyObjectChange(nested, rest, change)
}

func stripPrefix(s, prefix string) string {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):]
	}
	return s
}

func splitFirst(path string) (head, rest string) {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i], path[i+1:]
		}
	}
	return path, ""
}
