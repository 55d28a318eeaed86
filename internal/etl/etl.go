// Package etl drives a load run: it walks the song and log directories and
// loads each file in its own transaction.
package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justestif/go-sparkify-etl/internal/db"
	"github.com/justestif/go-sparkify-etl/internal/extract"
	"github.com/justestif/go-sparkify-etl/internal/metrics"
	"github.com/justestif/go-sparkify-etl/internal/records"
	"github.com/justestif/go-sparkify-etl/internal/schema"
)

// Tx is the per-file transaction handlers write through.
type Tx interface {
	extract.SongWriter
	extract.EventWriter
	extract.Resolver
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store opens per-file transactions and exposes the song catalog.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	SongIndex(ctx context.Context) ([]records.SongMatch, error)
}

// Handler loads one file inside tx.
type Handler func(ctx context.Context, tx Tx, path string) error

// NewStore adapts a database to Store.
func NewStore(database *db.DB) Store {
	return dbStore{database}
}

type dbStore struct {
	*db.DB
}

func (s dbStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Driver runs the load.
type Driver struct {
	store         Store
	logger        *zap.Logger
	metrics       *metrics.Metrics
	events        *extract.EventExtractor
	skipMalformed bool
	useIndex      bool
	index         *extract.Index
	progress      io.Writer
}

// Option configures a Driver.
type Option func(*Driver)

// WithQueryResolver resolves each play with a database query inside the file's
// transaction instead of the in-memory index.
func WithQueryResolver() Option {
	return func(d *Driver) {
		d.useIndex = false
	}
}

// WithSkipMalformed skips malformed records with a warning instead of failing.
// A malformed song file is skipped whole; in a log file only the bad event is.
func WithSkipMalformed(skip bool) Option {
	return func(d *Driver) {
		d.skipMalformed = skip
	}
}

// WithProgress writes "<i>/<n> files processed." lines to w after each file.
func WithProgress(w io.Writer) Option {
	return func(d *Driver) {
		d.progress = w
	}
}

// New creates a Driver.
func New(store Store, logger *zap.Logger, m *metrics.Metrics, opts ...Option) *Driver {
	d := &Driver{
		store:    store,
		logger:   logger,
		metrics:  m,
		useIndex: true,
		progress: io.Discard,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.events = extract.NewEventExtractor(logger, extract.WithSkipMalformed(d.skipMalformed))
	return d
}

// Result contains the outcome of a run.
type Result struct {
	RunID           uuid.UUID
	SongFiles       int
	LogFiles        int
	SongPlays       int
	UnresolvedPlays int
	Duration        time.Duration
}

// Run loads every song file under songDir, then every log file under logDir.
// The first failure aborts the run; files committed before it stay committed.
func (d *Driver) Run(ctx context.Context, songDir, logDir string) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: uuid.New()}
	logger := d.logger.With(zap.String("run_id", result.RunID.String()))
	logger.Info("Starting load", zap.String("song_dir", songDir), zap.String("log_dir", logDir))

	n, err := d.Process(ctx, songDir, d.SongFile)
	result.SongFiles = n
	if err != nil {
		return result, fmt.Errorf("loading song data: %w", err)
	}

	// The song catalog is complete now; log files never add songs.
	d.index = nil
	logHandler := func(ctx context.Context, tx Tx, path string) error {
		batch, err := d.LogFile(ctx, tx, path)
		if err != nil {
			return err
		}
		result.SongPlays += len(batch.SongPlays)
		result.UnresolvedPlays += batch.Unresolved()
		return nil
	}
	n, err = d.Process(ctx, logDir, logHandler)
	result.LogFiles = n
	if err != nil {
		return result, fmt.Errorf("loading log data: %w", err)
	}

	result.Duration = time.Since(start)
	d.metrics.LastRunSeconds.Set(result.Duration.Seconds())
	logger.Info("Load complete",
		zap.Int("song_files", result.SongFiles),
		zap.Int("log_files", result.LogFiles),
		zap.Int("songplays", result.SongPlays),
		zap.Int("unresolved", result.UnresolvedPlays),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// Process runs handler on every JSON file under root, committing after each
// file, including files that produce no rows. It returns the number of files
// committed.
func (d *Driver) Process(ctx context.Context, root string, handler Handler) (int, error) {
	files, err := FindFiles(root)
	if err != nil {
		return 0, err
	}
	d.logger.Info("Files found", zap.Int("count", len(files)), zap.String("root", root))

	for i, path := range files {
		if err := d.processFile(ctx, path, handler); err != nil {
			return i, fmt.Errorf("processing %s: %w", path, err)
		}
		d.logger.Debug("File committed", zap.String("file", path), zap.Int("done", i+1), zap.Int("total", len(files)))
		fmt.Fprintf(d.progress, "%d/%d files processed.\n", i+1, len(files))
	}
	return len(files), nil
}

func (d *Driver) processFile(ctx context.Context, path string, handler Handler) error {
	tx, err := d.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := handler(ctx, tx, path); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			d.logger.Warn("Rollback failed", zap.String("file", path), zap.Error(rbErr))
		}
		return err
	}
	return tx.Commit(ctx)
}

// SongFile loads a song metadata file.
func (d *Driver) SongFile(ctx context.Context, tx Tx, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening song file: %w", err)
	}
	defer f.Close()

	rec, err := records.DecodeSong(f)
	if err == nil {
		err = extract.LoadSong(ctx, tx, rec)
	}
	if err != nil {
		if d.skipMalformed && isMalformed(err) {
			d.logger.Warn("Skipping malformed song file", zap.String("file", path), zap.Error(err))
			d.metrics.SkippedRecords.WithLabelValues(metrics.KindSong).Inc()
			return nil
		}
		return err
	}

	d.metrics.AddRows(schema.Artists, 1)
	d.metrics.AddRows(schema.Songs, 1)
	d.metrics.FilesProcessed.WithLabelValues("song").Inc()
	return nil
}

// LogFile loads an event log file.
func (d *Driver) LogFile(ctx context.Context, tx Tx, path string) (*extract.EventBatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	events, err := records.DecodeEvents(f)
	if err != nil {
		return nil, err
	}

	resolver, err := d.resolver(ctx, tx)
	if err != nil {
		return nil, err
	}

	batch, err := d.events.Load(ctx, tx, resolver, events)
	if err != nil {
		return nil, err
	}

	d.metrics.AddRows(schema.Time, len(batch.Times))
	d.metrics.AddRows(schema.Users, len(batch.Users))
	d.metrics.AddRows(schema.SongPlays, len(batch.SongPlays))
	d.metrics.UnresolvedPlays.Add(float64(batch.Unresolved()))
	d.metrics.SkippedRecords.WithLabelValues(metrics.KindEvent).Add(float64(batch.Skipped))
	d.metrics.FilesProcessed.WithLabelValues("log").Inc()
	return batch, nil
}

// resolver returns the in-memory index, building it on first use, or tx when
// the query resolver is selected.
func (d *Driver) resolver(ctx context.Context, tx Tx) (extract.Resolver, error) {
	if !d.useIndex {
		return tx, nil
	}
	if d.index == nil {
		matches, err := d.store.SongIndex(ctx)
		if err != nil {
			return nil, fmt.Errorf("building song index: %w", err)
		}
		d.index = extract.NewIndex(matches)
		d.logger.Info("Song index built", zap.Int("entries", d.index.Len()))
	}
	return d.index, nil
}

// FindFiles returns the absolute paths of all .json files under root, sorted
// so runs over the same tree are reproducible.
func FindFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		files = append(files, abs)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func isMalformed(err error) bool {
	return errors.Is(err, records.ErrMalformedRecord)
}
