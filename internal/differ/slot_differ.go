// Package differ classifies freshly fetched slots against the stored state of a
// tracked resource. Everything here is pure and allocation-bounded by the
// size of its inputs.
package differ

import "github.com/aleister1102/slotwatch/internal/models"

// slotIndex maps a stored slot's full (start, end) value to its notified flag.
type slotIndex map[models.SlotPair]bool

func indexStored(stored []models.Slot) slotIndex {
	idx := make(slotIndex, len(stored))
	for _, s := range stored {
		idx[s.Pair()] = s.Notified
	}
	return idx
}

// uniqueByStart drops fetched slots whose StartTime was already seen, keeping the
// first. StartTime is the slot identity, so later duplicates would overwrite the
// earlier one on write anyway.
func uniqueByStart(fetched []models.Slot) []models.Slot {
	seen := make(map[string]struct{}, len(fetched))
	out := make([]models.Slot, 0, len(fetched))
	for _, s := range fetched {
		if _, dup := seen[s.StartTime]; dup {
			continue
		}
		seen[s.StartTime] = struct{}{}
		out = append(out, s)
	}
	return out
}

// NewOrChanged returns the fetched slots whose (StartTime, EndTime) pair is absent
// from stored. A known start with a different end counts as changed.
func NewOrChanged(stored, fetched []models.Slot) []models.Slot {
	idx := indexStored(stored)
	var out []models.Slot
	for _, s := range uniqueByStart(fetched) {
		if _, ok := idx[s.Pair()]; !ok {
			out = append(out, s)
		}
	}
	return out
}

// PendingUnnotified returns the fetched slots whose pair is stored but has never
// been marked notified.
func PendingUnnotified(stored, fetched []models.Slot) []models.Slot {
	idx := indexStored(stored)
	var out []models.Slot
	for _, s := range uniqueByStart(fetched) {
		if notified, ok := idx[s.Pair()]; ok && !notified {
			out = append(out, s)
		}
	}
	return out
}

// Result splits one fetch into the slots needing a notification.
type Result struct {
	// Changed slots are absent from the store by full value.
	Changed []models.Slot
	// Pending slots are stored unchanged but were never confirmed as sent.
	Pending []models.Slot
}

// Empty reports whether nothing needs to be written or sent.
func (r Result) Empty() bool {
	return len(r.Changed) == 0 && len(r.Pending) == 0
}

// Classify computes both sets in one pass over stored.
func Classify(stored, fetched []models.Slot) Result {
	idx := indexStored(stored)
	var res Result
	for _, s := range uniqueByStart(fetched) {
		notified, ok := idx[s.Pair()]
		switch {
		case !ok:
			res.Changed = append(res.Changed, s)
		case !notified:
			res.Pending = append(res.Pending, s)
		}
	}
	return res
}
