// Package export writes the songplays fact table to Parquet files.
package export

import (
	"context"
	"fmt"
	"os"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"go.uber.org/zap"

	"github.com/justestif/go-sparkify-etl/internal/records"
)

// Source streams songplay rows.
type Source interface {
	EachSongPlay(ctx context.Context, fn func(records.SongPlay) error) error
}

// songPlayRow is the Parquet layout of a songplay.
type songPlayRow struct {
	SongPlayID string  `parquet:"name=songplay_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	StartTime  int64   `parquet:"name=start_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	UserID     int64   `parquet:"name=user_id, type=INT64"`
	Level      string  `parquet:"name=level, type=BYTE_ARRAY, convertedtype=UTF8"`
	SongID     *string `parquet:"name=song_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	ArtistID   *string `parquet:"name=artist_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	SessionID  int64   `parquet:"name=session_id, type=INT64"`
	Location   string  `parquet:"name=location, type=BYTE_ARRAY, convertedtype=UTF8"`
	UserAgent  string  `parquet:"name=user_agent, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func toRow(p records.SongPlay) songPlayRow {
	return songPlayRow{
		SongPlayID: p.ID.String(),
		StartTime:  p.StartTime.UnixMilli(),
		UserID:     p.UserID,
		Level:      p.Level,
		SongID:     p.SongID,
		ArtistID:   p.ArtistID,
		SessionID:  p.SessionID,
		Location:   p.Location,
		UserAgent:  p.UserAgent,
	}
}

// SongPlays writes every songplay from src to a Snappy-compressed Parquet file
// at path and returns the number of rows written. The file is removed on error.
func SongPlays(ctx context.Context, src Source, path string, logger *zap.Logger) (int, error) {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", path, err)
	}

	pw, err := writer.NewParquetWriter(fw, new(songPlayRow), 4)
	if err != nil {
		fw.Close()
		os.Remove(path)
		return 0, fmt.Errorf("creating parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	n := 0
	err = src.EachSongPlay(ctx, func(p records.SongPlay) error {
		if err := pw.Write(toRow(p)); err != nil {
			return fmt.Errorf("writing songplay %s: %w", p.ID, err)
		}
		n++
		return nil
	})
	if err != nil {
		fw.Close()
		os.Remove(path)
		return 0, err
	}

	if err := pw.WriteStop(); err != nil {
		fw.Close()
		os.Remove(path)
		return 0, fmt.Errorf("finishing parquet file: %w", err)
	}
	if err := fw.Close(); err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("closing %s: %w", path, err)
	}

	logger.Info("Exported songplays", zap.String("path", path), zap.Int("rows", n))
	return n, nil
}
