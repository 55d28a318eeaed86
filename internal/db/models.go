package db

// TableCount is the number of rows in a table.
type TableCount struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// Stats summarizes the loaded star schema.
type Stats struct {
	Tables          []TableCount `json:"tables"`
	UnresolvedPlays int64        `json:"unresolved_plays"`
}

// TopSong is a song ranked by number of plays.
type TopSong struct {
	SongID string `json:"song_id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Plays  int64  `json:"plays"`
}
