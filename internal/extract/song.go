// Package extract turns source records into star schema rows and writes them.
package extract

import (
	"context"
	"fmt"

	"github.com/justestif/go-sparkify-etl/internal/records"
)

// SongWriter persists the rows produced from a song metadata file.
type SongWriter interface {
	InsertArtist(ctx context.Context, artist records.Artist) error
	InsertSong(ctx context.Context, song records.Song) error
}

// ExtractSong converts a song record into its artist and song rows.
func ExtractSong(rec records.SongRecord) (records.Artist, records.Song, error) {
	if err := rec.Validate(); err != nil {
		return records.Artist{}, records.Song{}, err
	}

	artist := records.Artist{
		ID:        rec.ArtistID.Value,
		Name:      rec.ArtistName.Value,
		Location:  rec.ArtistLocation.Ptr(),
		Latitude:  rec.ArtistLatitude.Ptr(),
		Longitude: rec.ArtistLongitude.Ptr(),
	}
	song := records.Song{
		ID:       rec.SongID.Value,
		Title:    rec.Title.Value,
		ArtistID: rec.ArtistID.Value,
		Year:     rec.Year.Value,
		Duration: rec.Duration.Value,
	}
	return artist, song, nil
}

// LoadSong extracts a song record and writes the artist row, then the song row.
// songs.artist_id references artists, so the artist must be written first.
// Nothing is written when the record is malformed.
func LoadSong(ctx context.Context, w SongWriter, rec records.SongRecord) error {
	artist, song, err := ExtractSong(rec)
	if err != nil {
		return err
	}
	if err := w.InsertArtist(ctx, artist); err != nil {
		return fmt.Errorf("inserting artist %s: %w", artist.ID, err)
	}
	if err := w.InsertSong(ctx, song); err != nil {
		return fmt.Errorf("inserting song %s: %w", song.ID, err)
	}
	return nil
}
