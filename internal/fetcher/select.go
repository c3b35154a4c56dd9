package fetcher

import (
	"sort"
	"time"

	"github.com/0x0BSoD/chatfeed/internal/model"
)

type Decision struct {
	Entry         model.Entry
	ShouldDeliver bool
}

// Select orders entries by publication time and marks the ones that are new
// relative to cursor. A digest entry is only deliverable when it is the newest
// entry of the fetch and carries a body.
func Select(cursor model.FeedCursor, entries []model.Entry) []Decision {
	sorted := make([]model.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Published.Before(sorted[j].Published)
	})

	decisions := make([]Decision, 0, len(sorted))
	for i, entry := range sorted {
		deliver := isNew(cursor, entry)
		if entry.Digest {
			deliver = deliver && i == len(sorted)-1 && entry.RichBody != ""
		}
		decisions = append(decisions, Decision{Entry: entry, ShouldDeliver: deliver})
	}

	return decisions
}

func isNew(cursor model.FeedCursor, entry model.Entry) bool {
	return entry.Published.After(cursor.LastSeenTime) && entry.Link != cursor.LastSeenLink
}

// since returns the lower publication bound to fetch with. It reaches back
// before the cursor to pick up items that show up late in the source.
func since(cursor model.FeedCursor, lookback time.Duration) time.Time {
	if cursor.LastSeenTime.IsZero() || cursor.LastSeenTime.Unix() <= 0 {
		return time.Time{}
	}
	return cursor.LastSeenTime.Add(-lookback)
}
