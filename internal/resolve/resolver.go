package resolve

import (
	"sort"
	"time"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
	"github.com/raolivei/swimTO-sub000/pkg/logger"
)

// Resolver removes time-overlap conflicts between sessions at the same
// facility and date. Resolution is deterministic and total: every
// overlapping pair has exactly one winner.
type Resolver struct {
	logger *logger.Logger
}

// New creates a Resolver
func New(log *logger.Logger) *Resolver {
	return &Resolver{logger: log.WithField("component", "resolver")}
}

type groupKey struct {
	facilityID string
	date       time.Time
}

// Resolve partitions sessions by (facility, date), removes losing
// sessions from every overlapping pair, and reports each affected group
// with reason codes for the removals. The surviving set is returned in
// canonical order.
func (r *Resolver) Resolve(sessions []contracts.Session) ([]contracts.Session, []contracts.ConflictGroup) {
	groups := make(map[groupKey][]contracts.Session)
	for _, s := range sessions {
		key := groupKey{s.FacilityID, s.Date}
		groups[key] = append(groups[key], s)
	}

	keys := make([]groupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].facilityID != keys[j].facilityID {
			return keys[i].facilityID < keys[j].facilityID
		}
		return keys[i].date.Before(keys[j].date)
	})

	var kept []contracts.Session
	var conflicts []contracts.ConflictGroup

	for _, key := range keys {
		survivors, removed := resolveGroup(groups[key])
		kept = append(kept, survivors...)

		if len(removed) > 0 {
			conflicts = append(conflicts, contracts.ConflictGroup{
				FacilityID: key.facilityID,
				Date:       key.date,
				Kept:       survivors,
				Removed:    removed,
			})
		}
	}

	if len(conflicts) > 0 {
		r.logger.WithField("groups", len(conflicts)).Info("Resolved schedule conflicts")
	}

	contracts.SortSessions(kept)
	return kept, conflicts
}

// resolveGroup ranks the group's sessions by priority and keeps each
// session only if it does not overlap an already-kept stronger one.
func resolveGroup(group []contracts.Session) ([]contracts.Session, []contracts.RemovedSession) {
	if len(group) < 2 {
		return group, nil
	}

	ranked := make([]contracts.Session, len(group))
	copy(ranked, group)
	sort.Slice(ranked, func(i, j int) bool {
		return stronger(ranked[i], ranked[j])
	})

	var kept []contracts.Session
	var removed []contracts.RemovedSession

	for _, s := range ranked {
		winner, overlaps := overlapping(s, kept)
		if !overlaps {
			kept = append(kept, s)
			continue
		}
		removed = append(removed, contracts.RemovedSession{
			Session: s,
			Reason:  removalReason(winner, s),
		})
	}

	contracts.SortSessions(kept)
	return kept, removed
}

// stronger orders sessions by resolution priority: lane swim first, then
// longer duration, then earlier start. The dedup hash is the final key
// so the order is total.
func stronger(a, b contracts.Session) bool {
	aLane := a.SwimType == contracts.LaneSwim
	bLane := b.SwimType == contracts.LaneSwim
	if aLane != bLane {
		return aLane
	}
	if a.Duration() != b.Duration() {
		return a.Duration() > b.Duration()
	}
	if a.StartTime != b.StartTime {
		return a.StartTime < b.StartTime
	}
	return a.DedupHash < b.DedupHash
}

func overlapping(s contracts.Session, kept []contracts.Session) (contracts.Session, bool) {
	for _, k := range kept {
		if s.Overlaps(k) {
			return k, true
		}
	}
	return contracts.Session{}, false
}

// removalReason names the rule that decided the pair
func removalReason(winner, loser contracts.Session) contracts.ConflictReason {
	switch {
	case winner.SwimType == contracts.LaneSwim && loser.SwimType != contracts.LaneSwim:
		return contracts.ReasonLowerPriorityType
	case winner.Duration() > loser.Duration():
		return contracts.ReasonShorterDuration
	default:
		return contracts.ReasonLaterStart
	}
}
