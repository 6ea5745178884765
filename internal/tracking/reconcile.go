package tracking

import (
	"sort"
	"time"

	"carriersync/internal/model"
)

// Change is what a reconciliation pass wants to persist for one order.
type Change struct {
	// History holds the new entries in ascending time order.
	History []model.HistoryEntry
	// StatusID is non-nil when the order status has to change.
	StatusID *int
}

func (c Change) Empty() bool { return len(c.History) == 0 && c.StatusID == nil }

// Reconcile merges the carrier's operations into the order's history. Operations
// already present as an entry with the same status and second are skipped, so
// repeated passes over an unchanged feed produce nothing. Operations are visited in
// feed order; the status of the latest new operation wins.
func Reconcile(order model.Order, ops []Operation) Change {
	history := make([]model.HistoryEntry, len(order.History))
	copy(history, order.History)
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].PostDate.Unix() > history[j].PostDate.Unix()
	})

	var lastHistoryTime int64
	if len(history) > 0 {
		lastHistoryTime = history[0].PostDate.Unix()
	}
	lastStatusID := order.StatusID

	type key struct {
		status int
		time   int64
	}
	queued := make(map[key]bool, len(ops))

	var res Change
	for _, op := range ops {
		entry, exact := findEntry(history, op)
		if exact || queued[key{op.StatusID, op.Time}] {
			continue
		}
		queued[key{op.StatusID, op.Time}] = true
		paid := false
		if entry != nil {
			paid = entry.Paid
		}
		res.History = append(res.History, model.HistoryEntry{
			Actor:       model.SystemActor,
			OrderID:     order.ID,
			StatusID:    op.StatusID,
			Paid:        paid,
			PostDate:    time.Unix(op.Time, 0).UTC(),
			Description: op.Description,
		})
		if op.Time > lastHistoryTime {
			lastHistoryTime = op.Time
			lastStatusID = op.StatusID
		}
	}

	if lastStatusID != order.StatusID {
		res.StatusID = &lastStatusID
	}
	sort.SliceStable(res.History, func(i, j int) bool {
		return res.History[i].PostDate.Before(res.History[j].PostDate)
	})
	return res
}

// findEntry scans history sorted newest first for the entry recording op, or for the
// first entry strictly older than op.
func findEntry(history []model.HistoryEntry, op Operation) (entry *model.HistoryEntry, exact bool) {
	for i := range history {
		t := history[i].PostDate.Unix()
		if history[i].StatusID == op.StatusID && t == op.Time {
			return &history[i], true
		}
		if t < op.Time {
			return &history[i], false
		}
	}
	return nil, false
}
