package extract

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justestif/go-sparkify-etl/internal/records"
)

// EventWriter persists the rows produced from an event log file.
type EventWriter interface {
	InsertTimes(ctx context.Context, rows []records.Time) error
	InsertUsers(ctx context.Context, rows []records.User) error
	InsertSongPlay(ctx context.Context, row records.SongPlay) error
}

// EventBatch holds the rows derived from one event log, in file order.
type EventBatch struct {
	Times     []records.Time
	Users     []records.User
	SongPlays []records.SongPlay

	// Skipped counts malformed play events dropped under WithSkipMalformed.
	Skipped int

	plays []playKey
}

// playKey is the denormalized song reference carried by a play event.
type playKey struct {
	title    string
	artist   string
	duration float64
}

// Unresolved returns the number of plays without song and artist identifiers.
func (b *EventBatch) Unresolved() int {
	n := 0
	for _, p := range b.SongPlays {
		if !p.Resolved() {
			n++
		}
	}
	return n
}

// EventExtractor derives time, user and songplay rows from event logs.
type EventExtractor struct {
	logger        *zap.Logger
	newID         func() uuid.UUID
	skipMalformed bool
}

// EventOption configures an EventExtractor.
type EventOption func(*EventExtractor)

// WithSkipMalformed drops malformed play events with a warning instead of
// failing the whole log.
func WithSkipMalformed(skip bool) EventOption {
	return func(e *EventExtractor) {
		e.skipMalformed = skip
	}
}

// WithIDGenerator sets the songplay id generator.
func WithIDGenerator(fn func() uuid.UUID) EventOption {
	return func(e *EventExtractor) {
		e.newID = fn
	}
}

// NewEventExtractor creates an EventExtractor.
func NewEventExtractor(logger *zap.Logger, opts ...EventOption) *EventExtractor {
	e := &EventExtractor{
		logger: logger,
		newID:  uuid.New,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract filters play events and derives their rows. Song plays are returned
// unresolved; Load fills in song and artist identifiers.
func (e *EventExtractor) Extract(events []records.EventRecord) (*EventBatch, error) {
	batch := &EventBatch{}

	for i, ev := range events {
		if err := ev.Validate(); err != nil {
			if !e.skipMalformed {
				return nil, fmt.Errorf("event %d: %w", i+1, err)
			}
			e.logger.Warn("Skipping malformed event", zap.Int("event", i+1), zap.Error(err))
			batch.Skipped++
			continue
		}
		if !ev.IsPlay() {
			continue
		}

		// Validate has checked both ids parse.
		userID, _ := ev.UserID.Value.Int64()
		sessionID, _ := ev.SessionID.Value.Int64()

		t := TimeFromMillis(ev.Ts.Value)
		batch.Times = append(batch.Times, t)
		batch.Users = append(batch.Users, records.User{
			ID:        userID,
			FirstName: ev.FirstName.Value,
			LastName:  ev.LastName.Value,
			Gender:    ev.Gender.Value,
			Level:     ev.Level.Value,
		})
		batch.SongPlays = append(batch.SongPlays, records.SongPlay{
			ID:        e.newID(),
			StartTime: t.StartTime,
			UserID:    userID,
			Level:     ev.Level.Value,
			SessionID: sessionID,
			Location:  ev.Location.Value,
			UserAgent: ev.UserAgent.Value,
		})
		batch.plays = append(batch.plays, playKey{
			title:    ev.Song.Value,
			artist:   ev.Artist.Value,
			duration: ev.Length.Value,
		})
	}

	return batch, nil
}

// Load extracts the rows of an event log and writes them: all time rows, then
// all user rows, then for each play a resolution followed by its insert.
func (e *EventExtractor) Load(ctx context.Context, w EventWriter, resolver Resolver, events []records.EventRecord) (*EventBatch, error) {
	batch, err := e.Extract(events)
	if err != nil {
		return nil, err
	}

	if err := w.InsertTimes(ctx, batch.Times); err != nil {
		return nil, fmt.Errorf("inserting time rows: %w", err)
	}
	if err := w.InsertUsers(ctx, batch.Users); err != nil {
		return nil, fmt.Errorf("inserting user rows: %w", err)
	}

	for i := range batch.SongPlays {
		key := batch.plays[i]
		songID, artistID, err := resolver.ResolveSong(ctx, key.title, key.artist, key.duration)
		if err != nil {
			return nil, fmt.Errorf("resolving %q by %q: %w", key.title, key.artist, err)
		}
		batch.SongPlays[i].SongID = songID
		batch.SongPlays[i].ArtistID = artistID

		if err := w.InsertSongPlay(ctx, batch.SongPlays[i]); err != nil {
			return nil, fmt.Errorf("inserting songplay: %w", err)
		}
	}

	return batch, nil
}
