package sync

import (
	"sort"

	"poker-platform/internal/domain"
)

// ConflictKind names why an action record was flagged during
// conflict detection (spec.md §4.4).
type ConflictKind int

const (
	ConflictDuplicateAction ConflictKind = iota
	ConflictOutOfTurn
)

// Conflict pairs a flagged record with the reason it was flagged.
type Conflict struct {
	Record ActionRecord
	Kind   ConflictKind
}

// DetectConflicts scans a batch of actions against the current
// snapshot for duplicates (same player, same integer-second timestamp)
// and out-of-turn actions (wrong seat, insufficient authority).
func DetectConflicts(records []ActionRecord, toActSeat int, toActPlayerID string) []Conflict {
	var conflicts []Conflict

	seen := make(map[string]bool)
	for _, rec := range records {
		key := rec.PlayerID + "|" + rec.Timestamp.Truncate(1e9).String()
		if seen[key] {
			conflicts = append(conflicts, Conflict{Record: rec, Kind: ConflictDuplicateAction})
			continue
		}
		seen[key] = true

		if rec.PlayerID != toActPlayerID && rec.Authority < domain.RoleAdmin.AuthorityLevel() {
			conflicts = append(conflicts, Conflict{Record: rec, Kind: ConflictOutOfTurn})
		}
	}
	return conflicts
}

// ResolutionStrategy names one of the three conflict-resolution
// strategies from spec.md §4.4.
type ResolutionStrategy int

const (
	TimestampFirst ResolutionStrategy = iota
	Sequential
	AuthorityBased
)

// Resolve applies strategy to records, returning the records that
// survive in causal order.
func Resolve(records []ActionRecord, strategy ResolutionStrategy) []ActionRecord {
	sorted := append([]ActionRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	switch strategy {
	case Sequential:
		return sorted

	case TimestampFirst:
		seen := make(map[string]bool)
		var out []ActionRecord
		for _, rec := range sorted {
			key := rec.PlayerID + "|" + rec.Timestamp.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, rec)
		}
		return out

	case AuthorityBased:
		return resolveByAuthority(sorted)

	default:
		return sorted
	}
}

// resolveByAuthority groups records by integer-second timestamp; each
// group keeps only the record with the highest authority level,
// breaking ties by earlier sub-second timestamp and finally by
// lexicographically smallest player id (spec.md §4.4, deterministic).
func resolveByAuthority(sorted []ActionRecord) []ActionRecord {
	groups := make(map[int64][]ActionRecord)
	var order []int64
	for _, rec := range sorted {
		bucket := rec.Timestamp.Unix()
		if _, ok := groups[bucket]; !ok {
			order = append(order, bucket)
		}
		groups[bucket] = append(groups[bucket], rec)
	}

	var out []ActionRecord
	for _, bucket := range order {
		group := groups[bucket]
		best := group[0]
		for _, rec := range group[1:] {
			if better(rec, best) {
				best = rec
			}
		}
		out = append(out, best)
	}
	return out
}

func better(a, b ActionRecord) bool {
	if a.Authority != b.Authority {
		return a.Authority > b.Authority
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.PlayerID < b.PlayerID
}
