// Package records defines the source records read from song and log files and the
// rows written to the star schema.
package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedRecord is returned when a source record is missing a required field
// or carries a value of the wrong type.
var ErrMalformedRecord = errors.New("malformed record")

// PageNextSong is the page value of a song play event.
const PageNextSong = "NextSong"

// Field is a JSON value that remembers whether its key was present and non-null.
type Field[T any] struct {
	Value   T
	Present bool // key appeared in the object, possibly as null
	Valid   bool // key appeared with a non-null value
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Present = true
	if string(b) == "null" {
		return nil
	}
	if err := json.Unmarshal(b, &f.Value); err != nil {
		return err
	}
	f.Valid = true
	return nil
}

// Ptr returns a pointer to the value, or nil when the field was null or absent.
func (f Field[T]) Ptr() *T {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// Valued returns a Field holding v, for building records in code.
func Valued[T any](v T) Field[T] {
	return Field[T]{Value: v, Present: true, Valid: true}
}

// Null returns a Field whose key is present with a null value.
func Null[T any]() Field[T] {
	return Field[T]{Present: true}
}

// Flex is a scalar that may be encoded as a JSON string or number.
// Log files carry userId as a string and sessionId as a number.
type Flex string

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flex) UnmarshalJSON(b []byte) error {
	s := string(b)
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = Flex(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = Flex(n.String())
	return nil
}

// Int64 parses the value as a base-10 integer.
func (f Flex) Int64() (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(string(f)), 10, 64)
}

// SongRecord is the single JSON object held by a song metadata file.
type SongRecord struct {
	ArtistID        Field[string]  `json:"artist_id"`
	ArtistName      Field[string]  `json:"artist_name"`
	ArtistLocation  Field[string]  `json:"artist_location"`
	ArtistLatitude  Field[float64] `json:"artist_latitude"`
	ArtistLongitude Field[float64] `json:"artist_longitude"`
	SongID          Field[string]  `json:"song_id"`
	Title           Field[string]  `json:"title"`
	Year            Field[int]     `json:"year"`
	Duration        Field[float64] `json:"duration"`
}

// Validate checks that every required field is present. Location and coordinates
// may be null; identifiers, names, year and duration may not.
func (r SongRecord) Validate() error {
	checks := []struct {
		name     string
		present  bool
		valid    bool
		nullable bool
	}{
		{"artist_id", r.ArtistID.Present, r.ArtistID.Valid, false},
		{"artist_name", r.ArtistName.Present, r.ArtistName.Valid, false},
		{"artist_location", r.ArtistLocation.Present, r.ArtistLocation.Valid, true},
		{"artist_latitude", r.ArtistLatitude.Present, r.ArtistLatitude.Valid, true},
		{"artist_longitude", r.ArtistLongitude.Present, r.ArtistLongitude.Valid, true},
		{"song_id", r.SongID.Present, r.SongID.Valid, false},
		{"title", r.Title.Present, r.Title.Valid, false},
		{"year", r.Year.Present, r.Year.Valid, false},
		{"duration", r.Duration.Present, r.Duration.Valid, false},
	}
	for _, c := range checks {
		if !c.present || (!c.nullable && !c.valid) {
			return fmt.Errorf("%w: missing %s", ErrMalformedRecord, c.name)
		}
	}
	return nil
}

// EventRecord is one line of an event log file.
type EventRecord struct {
	Page      Field[string]  `json:"page"`
	Ts        Field[int64]   `json:"ts"`
	UserID    Field[Flex]    `json:"userId"`
	FirstName Field[string]  `json:"firstName"`
	LastName  Field[string]  `json:"lastName"`
	Gender    Field[string]  `json:"gender"`
	Level     Field[string]  `json:"level"`
	Song      Field[string]  `json:"song"`
	Artist    Field[string]  `json:"artist"`
	Length    Field[float64] `json:"length"`
	SessionID Field[Flex]    `json:"sessionId"`
	Location  Field[string]  `json:"location"`
	UserAgent Field[string]  `json:"userAgent"`

	decodeErr error
}

// IsPlay reports whether the record is a song play event.
func (r EventRecord) IsPlay() bool {
	return r.Page.Valid && r.Page.Value == PageNextSong
}

// Validate checks the fields a play event needs. Only play events are validated;
// other pages legitimately omit song, artist and length. A record read from a
// line that did not decode is always invalid.
func (r EventRecord) Validate() error {
	if r.decodeErr != nil {
		return r.decodeErr
	}
	if !r.Page.Valid {
		return fmt.Errorf("%w: missing page", ErrMalformedRecord)
	}
	if !r.IsPlay() {
		return nil
	}
	checks := []struct {
		name  string
		valid bool
	}{
		{"ts", r.Ts.Valid},
		{"userId", r.UserID.Valid},
		{"firstName", r.FirstName.Valid},
		{"lastName", r.LastName.Valid},
		{"gender", r.Gender.Valid},
		{"level", r.Level.Valid},
		{"song", r.Song.Valid},
		{"artist", r.Artist.Valid},
		{"length", r.Length.Valid},
		{"sessionId", r.SessionID.Valid},
		{"location", r.Location.Valid},
		{"userAgent", r.UserAgent.Valid},
	}
	for _, c := range checks {
		if !c.valid {
			return fmt.Errorf("%w: missing %s", ErrMalformedRecord, c.name)
		}
	}
	if _, err := r.UserID.Value.Int64(); err != nil {
		return fmt.Errorf("%w: userId %q is not an integer", ErrMalformedRecord, r.UserID.Value)
	}
	if _, err := r.SessionID.Value.Int64(); err != nil {
		return fmt.Errorf("%w: sessionId %q is not an integer", ErrMalformedRecord, r.SessionID.Value)
	}
	return nil
}
