package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/justestif/go-sparkify-etl/internal/records"
)

// InsertTimes inserts time rows in a single batch. Timestamps already present
// are skipped.
func (t *Tx) InsertTimes(ctx context.Context, rows []records.Time) error {
	args := make([][]any, len(rows))
	for i, r := range rows {
		args[i] = r.Args()
	}
	if err := t.execBatch(ctx, t.catalog.Time.Insert, args); err != nil {
		return fmt.Errorf("batch inserting time rows: %w", err)
	}
	return nil
}

// InsertUsers inserts user rows in a single batch. A user seen again replaces
// the stored name, gender and level.
func (t *Tx) InsertUsers(ctx context.Context, rows []records.User) error {
	args := make([][]any, len(rows))
	for i, r := range rows {
		args[i] = r.Args()
	}
	if err := t.execBatch(ctx, t.catalog.Users.Insert, args); err != nil {
		return fmt.Errorf("batch inserting users: %w", err)
	}
	return nil
}

// InsertSongPlay inserts a songplay row.
func (t *Tx) InsertSongPlay(ctx context.Context, row records.SongPlay) error {
	_, err := t.tx.Exec(ctx, t.catalog.SongPlays.Insert, row.Args()...)
	if err != nil {
		return fmt.Errorf("inserting songplay: %w", err)
	}
	return nil
}

// execBatch runs one statement per argument list in a single round trip.
func (t *Tx) execBatch(ctx context.Context, query string, args [][]any) error {
	if len(args) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range args {
		batch.Queue(query, a...)
	}

	results := t.tx.SendBatch(ctx, batch)
	for i := range args {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return results.Close()
}
