package records

import (
	"time"

	"github.com/google/uuid"
)

// Artist is a row of the artists table.
type Artist struct {
	ID        string
	Name      string
	Location  *string
	Latitude  *float64
	Longitude *float64
}

// Values returns the non-key columns in catalog order.
func (a Artist) Values() []any {
	return []any{a.Name, a.Location, a.Latitude, a.Longitude}
}

// Args returns the insert arguments: key first, then Values.
func (a Artist) Args() []any {
	return append([]any{a.ID}, a.Values()...)
}

// Song is a row of the songs table.
type Song struct {
	ID       string
	Title    string
	ArtistID string
	Year     int
	Duration float64
}

// Values returns the non-key columns in catalog order.
func (s Song) Values() []any {
	return []any{s.Title, s.ArtistID, s.Year, s.Duration}
}

// Args returns the insert arguments: key first, then Values.
func (s Song) Args() []any {
	return append([]any{s.ID}, s.Values()...)
}

// User is a row of the users table.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	Gender    string
	Level     string
}

// Values returns the non-key columns in catalog order.
func (u User) Values() []any {
	return []any{u.FirstName, u.LastName, u.Gender, u.Level}
}

// Args returns the insert arguments: key first, then Values.
func (u User) Args() []any {
	return append([]any{u.ID}, u.Values()...)
}

// Time is a row of the time table.
type Time struct {
	StartTime time.Time
	Hour      int
	Day       int
	Week      int // ISO 8601 week number
	Month     int
	Year      int
	Weekday   int // Monday is 0, Sunday is 6
}

// Values returns the non-key columns in catalog order.
func (t Time) Values() []any {
	return []any{t.Hour, t.Day, t.Week, t.Month, t.Year, t.Weekday}
}

// Args returns the insert arguments: key first, then Values.
func (t Time) Args() []any {
	return append([]any{t.StartTime}, t.Values()...)
}

// SongPlay is a row of the songplays fact table.
type SongPlay struct {
	ID        uuid.UUID
	StartTime time.Time
	UserID    int64
	Level     string
	SongID    *string // nil when the play could not be resolved
	ArtistID  *string // nil when the play could not be resolved
	SessionID int64
	Location  string
	UserAgent string
}

// Values returns the non-key columns in catalog order.
func (p SongPlay) Values() []any {
	return []any{p.StartTime, p.UserID, p.Level, p.SongID, p.ArtistID, p.SessionID, p.Location, p.UserAgent}
}

// Args returns the insert arguments: key first, then Values.
func (p SongPlay) Args() []any {
	return append([]any{p.ID}, p.Values()...)
}

// Resolved reports whether the play was matched to a song and artist.
func (p SongPlay) Resolved() bool {
	return p.SongID != nil && p.ArtistID != nil
}

// SongMatch is one entry of the song/artist catalog used to resolve plays.
type SongMatch struct {
	Title      string
	ArtistName string
	Duration   float64
	SongID     string
	ArtistID   string
}
