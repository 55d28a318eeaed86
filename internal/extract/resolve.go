package extract

import (
	"context"

	"github.com/justestif/go-sparkify-etl/internal/records"
)

// Resolver matches a play's song title, artist name and duration to song and
// artist identifiers. Both identifiers are nil when there is no single match.
type Resolver interface {
	ResolveSong(ctx context.Context, title, artist string, duration float64) (songID, artistID *string, err error)
}

type songKey struct {
	title    string
	artist   string
	duration float64
}

type songIDs struct {
	songID   string
	artistID string
	// ambiguous is set once a second, different pair is seen for the same key.
	ambiguous bool
}

// Index is an in-memory Resolver built once per run from the song catalog.
// Durations are compared exactly.
type Index struct {
	entries map[songKey]songIDs
}

// NewIndex builds an index from catalog entries.
func NewIndex(matches []records.SongMatch) *Index {
	idx := &Index{entries: make(map[songKey]songIDs, len(matches))}
	for _, m := range matches {
		idx.Add(m)
	}
	return idx
}

// Add inserts a catalog entry. Adding a different pair under an existing key
// makes that key ambiguous.
func (idx *Index) Add(m records.SongMatch) {
	key := songKey{title: m.Title, artist: m.ArtistName, duration: m.Duration}
	existing, ok := idx.entries[key]
	if !ok {
		idx.entries[key] = songIDs{songID: m.SongID, artistID: m.ArtistID}
		return
	}
	if existing.songID != m.SongID || existing.artistID != m.ArtistID {
		existing.ambiguous = true
		idx.entries[key] = existing
	}
}

// Len returns the number of distinct keys.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// ResolveSong implements Resolver.
func (idx *Index) ResolveSong(_ context.Context, title, artist string, duration float64) (*string, *string, error) {
	ids, ok := idx.entries[songKey{title: title, artist: artist, duration: duration}]
	if !ok || ids.ambiguous {
		return nil, nil, nil
	}
	songID, artistID := ids.songID, ids.artistID
	return &songID, &artistID, nil
}
