// Package schema defines the star schema the loader writes to: one fact table
// (songplays) and four dimension tables (songs, artists, users, time).
package schema

import (
	"fmt"
	"strings"
)

// Table names.
const (
	SongPlays = "songplays"
	Users     = "users"
	Songs     = "songs"
	Artists   = "artists"
	Time      = "time"
)

// Table holds the statements for a single table.
//
// Insert binds $1 to Key and $2..$n to Columns, in order. Row types expose their
// non-key values in exactly the order of Columns.
type Table struct {
	Name    string
	Key     string
	Columns []string
	Create  string
	Drop    string
	Insert  string
}

// Catalog is the read-only set of table definitions.
type Catalog struct {
	SongPlays Table
	Users     Table
	Songs     Table
	Artists   Table
	Time      Table

	// SongSelect resolves (title, artist name, duration) to (song_id, artist_id).
	// It returns at most two rows so callers can detect ambiguous matches.
	SongSelect string

	// SongIndex lists every (title, artist name, duration, song_id, artist_id) pair.
	SongIndex string
}

// New builds the catalog.
func New() *Catalog {
	return &Catalog{
		Artists: Table{
			Name:    Artists,
			Key:     "artist_id",
			Columns: []string{"name", "location", "latitude", "longitude"},
			Create: `
				CREATE TABLE IF NOT EXISTS artists (
					artist_id TEXT PRIMARY KEY,
					name      TEXT NOT NULL,
					location  TEXT,
					latitude  DOUBLE PRECISION,
					longitude DOUBLE PRECISION
				)`,
			Drop:   `DROP TABLE IF EXISTS artists`,
			Insert: insert(Artists, "artist_id", []string{"name", "location", "latitude", "longitude"}, "ON CONFLICT (artist_id) DO NOTHING"),
		},
		Songs: Table{
			Name:    Songs,
			Key:     "song_id",
			Columns: []string{"title", "artist_id", "year", "duration"},
			Create: `
				CREATE TABLE IF NOT EXISTS songs (
					song_id   TEXT PRIMARY KEY,
					title     TEXT NOT NULL,
					artist_id TEXT REFERENCES artists (artist_id),
					year      INT,
					duration  DOUBLE PRECISION NOT NULL
				)`,
			Drop:   `DROP TABLE IF EXISTS songs`,
			Insert: insert(Songs, "song_id", []string{"title", "artist_id", "year", "duration"}, "ON CONFLICT (song_id) DO NOTHING"),
		},
		Users: Table{
			Name:    Users,
			Key:     "user_id",
			Columns: []string{"first_name", "last_name", "gender", "level"},
			Create: `
				CREATE TABLE IF NOT EXISTS users (
					user_id    BIGINT PRIMARY KEY,
					first_name TEXT,
					last_name  TEXT,
					gender     CHAR(1),
					level      TEXT NOT NULL
				)`,
			Drop: `DROP TABLE IF EXISTS users`,
			Insert: insert(Users, "user_id", []string{"first_name", "last_name", "gender", "level"}, `ON CONFLICT (user_id) DO UPDATE SET
					first_name = EXCLUDED.first_name,
					last_name = EXCLUDED.last_name,
					gender = EXCLUDED.gender,
					level = EXCLUDED.level`),
		},
		Time: Table{
			Name:    Time,
			Key:     "start_time",
			Columns: []string{"hour", "day", "week", "month", "year", "weekday"},
			Create: `
				CREATE TABLE IF NOT EXISTS time (
					start_time TIMESTAMPTZ PRIMARY KEY,
					hour       INT NOT NULL,
					day        INT NOT NULL,
					week       INT NOT NULL,
					month      INT NOT NULL,
					year       INT NOT NULL,
					weekday    INT NOT NULL
				)`,
			Drop:   `DROP TABLE IF EXISTS time`,
			Insert: insert(Time, "start_time", []string{"hour", "day", "week", "month", "year", "weekday"}, "ON CONFLICT (start_time) DO NOTHING"),
		},
		SongPlays: Table{
			Name:    SongPlays,
			Key:     "songplay_id",
			Columns: []string{"start_time", "user_id", "level", "song_id", "artist_id", "session_id", "location", "user_agent"},
			Create: `
				CREATE TABLE IF NOT EXISTS songplays (
					songplay_id UUID PRIMARY KEY,
					start_time  TIMESTAMPTZ NOT NULL REFERENCES time (start_time),
					user_id     BIGINT NOT NULL REFERENCES users (user_id),
					level       TEXT NOT NULL,
					song_id     TEXT REFERENCES songs (song_id),
					artist_id   TEXT REFERENCES artists (artist_id),
					session_id  BIGINT NOT NULL,
					location    TEXT,
					user_agent  TEXT
				)`,
			Drop:   `DROP TABLE IF EXISTS songplays`,
			Insert: insert(SongPlays, "songplay_id", []string{"start_time", "user_id", "level", "song_id", "artist_id", "session_id", "location", "user_agent"}, ""),
		},
		SongSelect: `
			SELECT s.song_id, a.artist_id
			FROM songs s
			JOIN artists a ON s.artist_id = a.artist_id
			WHERE s.title = $1 AND a.name = $2 AND s.duration = $3
			LIMIT 2
		`,
		SongIndex: `
			SELECT s.title, a.name, s.duration, s.song_id, a.artist_id
			FROM songs s
			JOIN artists a ON s.artist_id = a.artist_id
		`,
	}
}

// CreateOrder returns the tables in the order their references require.
func (c *Catalog) CreateOrder() []Table {
	return []Table{c.Artists, c.Songs, c.Users, c.Time, c.SongPlays}
}

// DropOrder returns the tables in the reverse of CreateOrder.
func (c *Catalog) DropOrder() []Table {
	tables := c.CreateOrder()
	for i, j := 0, len(tables)-1; i < j; i, j = i+1, j-1 {
		tables[i], tables[j] = tables[j], tables[i]
	}
	return tables
}

func insert(table, key string, columns []string, conflict string) string {
	all := append([]string{key}, columns...)
	placeholders := make([]string, len(all))
	for i := range all {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(all, ", "), strings.Join(placeholders, ", "))
	if conflict != "" {
		stmt += " " + conflict
	}
	return stmt
}
