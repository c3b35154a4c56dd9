package fetcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/0x0BSoD/chatfeed/internal/model"
)

var t0 = time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

func generic(link string, offset time.Duration) model.Entry {
	return model.Entry{Published: t0.Add(offset), Link: link, Title: "title " + link}
}

func digest(link string, offset time.Duration, body string) model.Entry {
	return model.Entry{Published: t0.Add(offset), Link: link, Title: "title " + link, RichBody: body, Digest: true}
}

func delivered(decisions []Decision) []string {
	var links []string
	for _, d := range decisions {
		if d.ShouldDeliver {
			links = append(links, d.Entry.Link)
		}
	}
	return links
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		cursor   model.FeedCursor
		entries  []model.Entry
		expected []string
	}{
		{
			name:     "new entries in publication order",
			cursor:   model.FeedCursor{LastSeenTime: t0},
			entries:  []model.Entry{generic("b", 2*time.Minute), generic("a", time.Minute)},
			expected: []string{"a", "b"},
		},
		{
			name:     "entries not newer than cursor are skipped",
			cursor:   model.FeedCursor{LastSeenTime: t0.Add(time.Minute), LastSeenLink: "a"},
			entries:  []model.Entry{generic("old", 0), generic("a", time.Minute), generic("b", 2*time.Minute)},
			expected: []string{"b"},
		},
		{
			name:     "same link as cursor is skipped even when republished later",
			cursor:   model.FeedCursor{LastSeenTime: t0, LastSeenLink: "a"},
			entries:  []model.Entry{generic("a", time.Hour)},
			expected: nil,
		},
		{
			name:     "only the newest digest with a body",
			cursor:   model.FeedCursor{LastSeenTime: t0},
			entries:  []model.Entry{digest("c", 3*time.Minute, "body"), digest("a", time.Minute, "body"), digest("b", 2*time.Minute, "body")},
			expected: []string{"c"},
		},
		{
			name:     "newest digest without a body",
			cursor:   model.FeedCursor{LastSeenTime: t0},
			entries:  []model.Entry{digest("a", time.Minute, "body"), digest("b", 2*time.Minute, "")},
			expected: nil,
		},
		{
			name:     "newest digest already seen",
			cursor:   model.FeedCursor{LastSeenTime: t0.Add(2 * time.Minute), LastSeenLink: "b"},
			entries:  []model.Entry{digest("a", time.Minute, "body"), digest("b", 2*time.Minute, "body")},
			expected: nil,
		},
		{
			name:     "empty fetch",
			cursor:   model.FeedCursor{LastSeenTime: t0},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decisions := Select(tt.cursor, tt.entries)
			assert.Len(t, decisions, len(tt.entries))
			assert.Equal(t, tt.expected, delivered(decisions))
		})
	}
}

func TestSelect_DoesNotReorderInput(t *testing.T) {
	entries := []model.Entry{generic("b", 2*time.Minute), generic("a", time.Minute)}

	Select(model.FeedCursor{}, entries)

	assert.Equal(t, "b", entries[0].Link)
}

func TestSince(t *testing.T) {
	assert.True(t, since(model.NewFeedCursor("u"), time.Hour).IsZero())
	assert.True(t, since(model.FeedCursor{}, time.Hour).IsZero())
	assert.Equal(t, t0.Add(-time.Hour), since(model.FeedCursor{LastSeenTime: t0}, time.Hour))
}
