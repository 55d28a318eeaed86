package etl

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/justestif/go-sparkify-etl/internal/metrics"
	"github.com/justestif/go-sparkify-etl/internal/records"
	"github.com/justestif/go-sparkify-etl/internal/schema"
)

// fakeTx keeps writes in memory and resolves against the songs written so far.
type fakeTx struct {
	store     *fakeStore
	artists   []records.Artist
	songs     []records.Song
	times     []records.Time
	users     []records.User
	songPlays []records.SongPlay
}

func (t *fakeTx) InsertArtist(_ context.Context, a records.Artist) error {
	t.artists = append(t.artists, a)
	return nil
}

func (t *fakeTx) InsertSong(_ context.Context, s records.Song) error {
	t.songs = append(t.songs, s)
	return nil
}

func (t *fakeTx) InsertTimes(_ context.Context, rows []records.Time) error {
	t.times = append(t.times, rows...)
	return nil
}

func (t *fakeTx) InsertUsers(_ context.Context, rows []records.User) error {
	t.users = append(t.users, rows...)
	return nil
}

func (t *fakeTx) InsertSongPlay(_ context.Context, row records.SongPlay) error {
	if t.store.failPlay {
		return errors.New("constraint violation")
	}
	t.songPlays = append(t.songPlays, row)
	return nil
}

func (t *fakeTx) ResolveSong(_ context.Context, title, artist string, duration float64) (*string, *string, error) {
	t.store.queries++
	for _, m := range t.store.matches() {
		if m.Title == title && m.ArtistName == artist && m.Duration == duration {
			songID, artistID := m.SongID, m.ArtistID
			return &songID, &artistID, nil
		}
	}
	return nil, nil, nil
}

func (t *fakeTx) Commit(context.Context) error {
	t.store.commits++
	t.store.committed = append(t.store.committed, t)
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.store.rollbacks++
	return nil
}

type fakeStore struct {
	commits    int
	rollbacks  int
	queries    int
	indexLoads int
	failPlay   bool
	committed  []*fakeTx
}

func (s *fakeStore) Begin(context.Context) (Tx, error) {
	return &fakeTx{store: s}, nil
}

func (s *fakeStore) matches() []records.SongMatch {
	var matches []records.SongMatch
	for _, tx := range s.committed {
		for i, song := range tx.songs {
			matches = append(matches, records.SongMatch{
				Title: song.Title, ArtistName: tx.artists[i].Name, Duration: song.Duration,
				SongID: song.ID, ArtistID: song.ArtistID,
			})
		}
	}
	return matches
}

func (s *fakeStore) SongIndex(context.Context) ([]records.SongMatch, error) {
	s.indexLoads++
	return s.matches(), nil
}

func (s *fakeStore) songPlays() []records.SongPlay {
	var plays []records.SongPlay
	for _, tx := range s.committed {
		plays = append(plays, tx.songPlays...)
	}
	return plays
}

const song = `{"artist_id":"AR1","artist_name":"X","artist_location":"LA","artist_latitude":34.0,"artist_longitude":-118.0,"song_id":"S1","title":"T1","year":2000,"duration":200.5}`

const events = `{"page":"Home","ts":1542837400000,"userId":"10","sessionId":1}
{"page":"NextSong","ts":1542837407796,"userId":10,"firstName":"A","lastName":"B","gender":"F","level":"free","song":"T1","artist":"X","length":200.5,"sessionId":1,"location":"LA","userAgent":"UA"}
{"page":"NextSong","ts":1542837607796,"userId":"10","firstName":"A","lastName":"B","gender":"F","level":"free","song":"Nope","artist":"X","length":1.0,"sessionId":1,"location":"LA","userAgent":"UA"}
`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func setupData(t *testing.T) (songDir, logDir string) {
	t.Helper()
	root := t.TempDir()
	songDir = filepath.Join(root, "song_data")
	logDir = filepath.Join(root, "log_data")

	writeFile(t, filepath.Join(songDir, "A", "B", "TRAAAAW128F429D538.json"), song)
	writeFile(t, filepath.Join(logDir, "2018", "11", "2018-11-21-events.json"), events)
	writeFile(t, filepath.Join(logDir, "2018", "11", "2018-11-22-events.json"), `{"page":"Home"}`)
	writeFile(t, filepath.Join(logDir, "README.txt"), "not json")
	return songDir, logDir
}

func TestFindFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b", "2.json"), "{}")
	writeFile(t, filepath.Join(root, "a", "1.json"), "{}")
	writeFile(t, filepath.Join(root, "a", "notes.txt"), "")
	writeFile(t, filepath.Join(root, "c.json"), "{}")

	files, err := FindFiles(root)
	require.NoError(t, err)

	want := []string{
		filepath.Join(root, "a", "1.json"),
		filepath.Join(root, "b", "2.json"),
		filepath.Join(root, "c.json"),
	}
	assert.Equal(t, want, files)
}

func TestFindFiles_MissingRoot(t *testing.T) {
	_, err := FindFiles(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	songDir, logDir := setupData(t)
	store := &fakeStore{}
	m := metrics.New()
	var progress bytes.Buffer

	d := New(store, zap.NewNop(), m, WithProgress(&progress))
	result, err := d.Run(context.Background(), songDir, logDir)
	require.NoError(t, err)

	assert.Equal(t, 1, result.SongFiles)
	assert.Equal(t, 2, result.LogFiles)
	assert.Equal(t, 2, result.SongPlays)
	assert.Equal(t, 1, result.UnresolvedPlays)

	// One commit per file, including the log file with no plays.
	assert.Equal(t, 3, store.commits)
	assert.Zero(t, store.rollbacks)
	assert.Equal(t, 1, store.indexLoads)
	assert.Zero(t, store.queries)
	assert.Equal(t, "1/1 files processed.\n1/2 files processed.\n2/2 files processed.\n", progress.String())

	plays := store.songPlays()
	require.Len(t, plays, 2)
	require.NotNil(t, plays[0].SongID)
	assert.Equal(t, "S1", *plays[0].SongID)
	assert.Equal(t, "AR1", *plays[0].ArtistID)
	assert.Nil(t, plays[1].SongID)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsInserted.WithLabelValues(schema.SongPlays)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UnresolvedPlays))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FilesProcessed.WithLabelValues("log")))
}

func TestRun_QueryResolver(t *testing.T) {
	songDir, logDir := setupData(t)
	store := &fakeStore{}

	d := New(store, zap.NewNop(), metrics.New(), WithQueryResolver())
	result, err := d.Run(context.Background(), songDir, logDir)
	require.NoError(t, err)

	assert.Equal(t, 1, result.UnresolvedPlays)
	assert.Equal(t, 2, store.queries)
	assert.Zero(t, store.indexLoads)
}

func TestProcess_EmptyFileStillCommits(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "empty.json"), "")
	store := &fakeStore{}

	d := New(store, zap.NewNop(), metrics.New())
	n, err := d.Process(context.Background(), root, func(ctx context.Context, tx Tx, path string) error {
		_, err := d.LogFile(ctx, tx, path)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, store.commits)
}

func TestProcess_FailureAbortsRun(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "1.json"), "{}")
	writeFile(t, filepath.Join(root, "2.json"), "{}")
	writeFile(t, filepath.Join(root, "3.json"), "{}")
	store := &fakeStore{}

	calls := 0
	d := New(store, zap.NewNop(), metrics.New())
	n, err := d.Process(context.Background(), root, func(_ context.Context, _ Tx, path string) error {
		calls++
		if filepath.Base(path) == "2.json" {
			return errors.New("boom")
		}
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "2.json")
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, store.commits)
	assert.Equal(t, 1, store.rollbacks)
}

func TestRun_WriteFailureIsFatal(t *testing.T) {
	songDir, logDir := setupData(t)
	store := &fakeStore{failPlay: true}

	d := New(store, zap.NewNop(), metrics.New())
	result, err := d.Run(context.Background(), songDir, logDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constraint violation")
	assert.Equal(t, 1, result.SongFiles)
	assert.Zero(t, result.LogFiles)
	assert.Equal(t, 1, store.rollbacks)
}

func TestSongFile_Malformed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "bad.json"), `{"artist_id":"AR1"}`)

	store := &fakeStore{}
	strict := New(store, zap.NewNop(), metrics.New())
	_, err := strict.Process(context.Background(), root, strict.SongFile)
	require.ErrorIs(t, err, records.ErrMalformedRecord)
	assert.Equal(t, 1, store.rollbacks)

	m := metrics.New()
	d := New(store, zap.NewNop(), m, WithSkipMalformed(true))
	n, err := d.Process(context.Background(), root, d.SongFile)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SkippedRecords.WithLabelValues(metrics.KindSong)))
}

func TestLogFile_SkipsUndecodableLine(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "log.json"),
		`{"page":"NextSong","ts":1542837407796,"userId":10,"firstName":"A","lastName":"B","gender":"F","level":"free","song":"T1","artist":"X","length":"oops","sessionId":1,"location":"LA","userAgent":"UA"}
{"page":"NextSong","ts":1542837607796,"userId":10,"firstName":"A","lastName":"B","gender":"F","level":"free","song":"T1","artist":"X","length":200.5,"sessionId":1,"location":"LA","userAgent":"UA"}
`)
	handler := func(d *Driver) Handler {
		return func(ctx context.Context, tx Tx, path string) error {
			_, err := d.LogFile(ctx, tx, path)
			return err
		}
	}

	strictStore := &fakeStore{}
	strict := New(strictStore, zap.NewNop(), metrics.New(), WithQueryResolver())
	_, err := strict.Process(context.Background(), root, handler(strict))
	require.ErrorIs(t, err, records.ErrMalformedRecord)
	assert.Contains(t, err.Error(), "line 1")
	assert.Zero(t, strictStore.commits)
	assert.Equal(t, 1, strictStore.rollbacks)

	store := &fakeStore{}
	m := metrics.New()
	d := New(store, zap.NewNop(), m, WithQueryResolver(), WithSkipMalformed(true))
	n, err := d.Process(context.Background(), root, handler(d))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, store.commits)

	plays := store.songPlays()
	require.Len(t, plays, 1)
	assert.Equal(t, int64(10), plays[0].UserID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SkippedRecords.WithLabelValues(metrics.KindEvent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RowsInserted.WithLabelValues(schema.SongPlays)))
}
