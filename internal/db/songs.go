package db

import (
	"context"
	"fmt"

	"github.com/justestif/go-sparkify-etl/internal/records"
)

// InsertArtist inserts an artist. An existing artist_id is left as-is.
func (t *Tx) InsertArtist(ctx context.Context, artist records.Artist) error {
	_, err := t.tx.Exec(ctx, t.catalog.Artists.Insert, artist.Args()...)
	if err != nil {
		return fmt.Errorf("inserting artist: %w", err)
	}
	return nil
}

// InsertSong inserts a song. An existing song_id is left as-is.
func (t *Tx) InsertSong(ctx context.Context, song records.Song) error {
	_, err := t.tx.Exec(ctx, t.catalog.Songs.Insert, song.Args()...)
	if err != nil {
		return fmt.Errorf("inserting song: %w", err)
	}
	return nil
}

// ResolveSong looks up the song and artist matching title, artist name and
// duration exactly. It returns nil identifiers unless exactly one row matches.
func (t *Tx) ResolveSong(ctx context.Context, title, artist string, duration float64) (*string, *string, error) {
	rows, err := t.tx.Query(ctx, t.catalog.SongSelect, title, artist, duration)
	if err != nil {
		return nil, nil, fmt.Errorf("querying song: %w", err)
	}
	defer rows.Close()

	var songID, artistID string
	matches := 0
	for rows.Next() {
		if err := rows.Scan(&songID, &artistID); err != nil {
			return nil, nil, fmt.Errorf("scanning song: %w", err)
		}
		matches++
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("querying song: %w", err)
	}

	if matches != 1 {
		return nil, nil, nil
	}
	return &songID, &artistID, nil
}

// SongIndex returns every (title, artist name, duration) entry of the catalog
// with its identifiers.
func (db *DB) SongIndex(ctx context.Context) ([]records.SongMatch, error) {
	rows, err := db.pool.Query(ctx, db.catalog.SongIndex)
	if err != nil {
		return nil, fmt.Errorf("querying song index: %w", err)
	}
	defer rows.Close()

	var matches []records.SongMatch
	for rows.Next() {
		var m records.SongMatch
		if err := rows.Scan(
			&m.Title,
			&m.ArtistName,
			&m.Duration,
			&m.SongID,
			&m.ArtistID,
		); err != nil {
			return nil, fmt.Errorf("scanning song index: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
