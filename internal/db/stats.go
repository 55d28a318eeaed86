package db

import (
	"context"
	"fmt"

	"github.com/justestif/go-sparkify-etl/internal/records"
)

// Stats returns the row count of every table and the number of songplays
// that could not be resolved to a song.
func (db *DB) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	for _, table := range db.catalog.CreateOrder() {
		var n int64
		// Table names come from the catalog, never from input.
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table.Name)
		if err := db.pool.QueryRow(ctx, query).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table.Name, err)
		}
		stats.Tables = append(stats.Tables, TableCount{Table: table.Name, Rows: n})
	}

	query := `SELECT COUNT(*) FROM songplays WHERE song_id IS NULL`
	if err := db.pool.QueryRow(ctx, query).Scan(&stats.UnresolvedPlays); err != nil {
		return nil, fmt.Errorf("counting unresolved songplays: %w", err)
	}
	return stats, nil
}

// TopSongs returns the most played resolved songs, most played first.
func (db *DB) TopSongs(ctx context.Context, limit int) ([]TopSong, error) {
	query := `
		SELECT s.song_id, s.title, a.name, COUNT(*) AS plays
		FROM songplays p
		JOIN songs s ON p.song_id = s.song_id
		JOIN artists a ON p.artist_id = a.artist_id
		GROUP BY s.song_id, s.title, a.name
		ORDER BY plays DESC, s.song_id
		LIMIT $1
	`
	rows, err := db.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top songs: %w", err)
	}
	defer rows.Close()

	songs := []TopSong{}
	for rows.Next() {
		var s TopSong
		if err := rows.Scan(&s.SongID, &s.Title, &s.Artist, &s.Plays); err != nil {
			return nil, fmt.Errorf("scanning top song: %w", err)
		}
		songs = append(songs, s)
	}
	return songs, rows.Err()
}

// EachSongPlay calls fn for every songplay ordered by start time.
// Iteration stops at the first error fn returns.
func (db *DB) EachSongPlay(ctx context.Context, fn func(records.SongPlay) error) error {
	query := `
		SELECT songplay_id, start_time, user_id, level, song_id, artist_id, session_id,
			COALESCE(location, ''), COALESCE(user_agent, '')
		FROM songplays
		ORDER BY start_time, songplay_id
	`
	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("querying songplays: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p records.SongPlay
		if err := rows.Scan(
			&p.ID,
			&p.StartTime,
			&p.UserID,
			&p.Level,
			&p.SongID,
			&p.ArtistID,
			&p.SessionID,
			&p.Location,
			&p.UserAgent,
		); err != nil {
			return fmt.Errorf("scanning songplay: %w", err)
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return rows.Err()
}
