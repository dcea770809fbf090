package events

import (
	"sort"
)

// replayPriority breaks ties between events sharing a timestamp.
//
// Deposits land before fee receipts and fee receipts before withdrawals, so a
// fee distributed in the same block sees the largest staked base and a
// staker's own withdrawal never shrinks their share of it.
var replayPriority = map[Kind]int{
	Kind_Deposit:    0,
	Kind_FeeReceipt: 1,
	Kind_Withdrawal: 2,
}

// Partition splits claims out of the event set. Both slices keep input order.
func Partition(evs []*Event) (replay []*Event, claims []*Event) {
	replay = make([]*Event, 0, len(evs))
	claims = make([]*Event, 0)
	for _, e := range evs {
		if e.Kind == Kind_Claim {
			claims = append(claims, e)
			continue
		}
		replay = append(replay, e)
	}
	return replay, claims
}

// compareForReplay returns:
//   - negative if a replays before b
//   - zero if the order between a and b is undefined
//   - positive if a replays after b
//
// Order: (time ASC, kind priority ASC)
func compareForReplay(a, b *Event) int {
	if a.Time != b.Time {
		if a.Time < b.Time {
			return -1
		}
		return 1
	}
	return replayPriority[a.Kind] - replayPriority[b.Kind]
}

// SortForReplay returns a new slice holding deposits, fee receipts and
// withdrawals in replay order and assigns each event's Sequence. The sort is
// stable: events whose order is undefined keep their input order.
//
// Claims are skipped; they are ordered separately by SortClaims.
func SortForReplay(evs []*Event) []*Event {
	ordered, _ := Partition(evs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return compareForReplay(ordered[i], ordered[j]) < 0
	})
	for i, e := range ordered {
		e.Sequence = i
	}
	return ordered
}

// SortClaims returns a new slice of the claims in evs ordered by time, stable
// for equal times, and assigns each claim's Sequence.
func SortClaims(evs []*Event) []*Event {
	_, claims := Partition(evs)
	sort.SliceStable(claims, func(i, j int) bool {
		return claims[i].Time < claims[j].Time
	})
	for i, e := range claims {
		e.Sequence = i
	}
	return claims
}

// IsReplayOrdered reports whether evs is already in replay order.
func IsReplayOrdered(evs []*Event) bool {
	for i := 1; i < len(evs); i++ {
		if compareForReplay(evs[i-1], evs[i]) > 0 {
			return false
		}
	}
	return true
}

// GroupByVault splits an ordered log into per-vault logs, preserving relative
// order. The returned vault ids are in order of first appearance.
func GroupByVault(evs []*Event) ([]string, map[string][]*Event) {
	order := make([]string, 0)
	groups := make(map[string][]*Event)
	for _, e := range evs {
		if _, ok := groups[e.Vault]; !ok {
			order = append(order, e.Vault)
		}
		groups[e.Vault] = append(groups[e.Vault], e)
	}
	return order, groups
}
