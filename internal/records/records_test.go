package records

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const songJSON = `{"num_songs": 1, "artist_id": "ARD7TVE1187B99BFB1", "artist_latitude": null, "artist_longitude": null, "artist_location": "California - LA", "artist_name": "Casual", "song_id": "SOMZWCG12A8C13C480", "title": "I Didn't Mean To", "duration": 218.93179, "year": 0}`

func TestDecodeSong(t *testing.T) {
	rec, err := DecodeSong(strings.NewReader(songJSON))
	require.NoError(t, err)
	require.NoError(t, rec.Validate())

	assert.Equal(t, "ARD7TVE1187B99BFB1", rec.ArtistID.Value)
	assert.Equal(t, "I Didn't Mean To", rec.Title.Value)
	assert.Equal(t, 218.93179, rec.Duration.Value)
	assert.True(t, rec.ArtistLatitude.Present)
	assert.Nil(t, rec.ArtistLatitude.Ptr())
	assert.Equal(t, "California - LA", *rec.ArtistLocation.Ptr())
}

func TestDecodeSong_InvalidJSON(t *testing.T) {
	_, err := DecodeSong(strings.NewReader(`{"artist_id": `))
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestSongRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr string
	}{
		{
			name:    "missing duration",
			json:    `{"artist_id": "A", "artist_name": "N", "artist_location": "", "artist_latitude": null, "artist_longitude": null, "song_id": "S", "title": "T", "year": 1}`,
			wantErr: "missing duration",
		},
		{
			name:    "missing location key",
			json:    `{"artist_id": "A", "artist_name": "N", "artist_latitude": 1, "artist_longitude": 2, "song_id": "S", "title": "T", "year": 1, "duration": 1.5}`,
			wantErr: "missing artist_location",
		},
		{
			name:    "null song id",
			json:    `{"artist_id": "A", "artist_name": "N", "artist_location": "", "artist_latitude": 1, "artist_longitude": 2, "song_id": null, "title": "T", "year": 1, "duration": 1.5}`,
			wantErr: "missing song_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := DecodeSong(strings.NewReader(tt.json))
			require.NoError(t, err)

			err = rec.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedRecord))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

const logJSON = `{"artist":null,"auth":"Logged In","firstName":"Walter","gender":"M","itemInSession":0,"lastName":"Frye","length":null,"level":"free","location":"San Francisco-Oakland-Hayward, CA","method":"GET","page":"Home","registration":1540919166796.0,"sessionId":38,"song":null,"status":200,"ts":1541105830796,"userAgent":"Mozilla\/5.0","userId":"39"}
{"artist":"Des'ree","auth":"Logged In","firstName":"Kaylee","gender":"F","itemInSession":1,"lastName":"Summers","length":246.30812,"level":"free","location":"Phoenix-Mesa-Scottsdale, AZ","method":"PUT","page":"NextSong","registration":1540344794796.0,"sessionId":139,"song":"You Gotta Be","status":200,"ts":1541106106796,"userAgent":"Mozilla\/5.0","userId":"8"}
{"artist":null,"auth":"Logged Out","firstName":null,"gender":null,"itemInSession":0,"lastName":null,"length":null,"level":"paid","location":null,"method":"PUT","page":"Login","registration":null,"sessionId":52,"song":null,"status":307,"ts":1541207073796,"userAgent":null,"userId":""}
`

func TestDecodeEvents(t *testing.T) {
	events, err := DecodeEvents(strings.NewReader(logJSON))
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.False(t, events[0].IsPlay())
	assert.True(t, events[1].IsPlay())
	assert.False(t, events[2].IsPlay())

	for i, ev := range events {
		assert.NoError(t, ev.Validate(), "event %d", i)
	}

	play := events[1]
	userID, err := play.UserID.Value.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(8), userID)
	sessionID, err := play.SessionID.Value.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(139), sessionID)
	assert.Equal(t, int64(1541106106796), play.Ts.Value)
	assert.Equal(t, 246.30812, play.Length.Value)
}

func TestDecodeEvents_Empty(t *testing.T) {
	events, err := DecodeEvents(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestDecodeEvents_BrokenLines(t *testing.T) {
	input := `{"page":"Home"}

{"page":"NextSong","length":"oops"}
{"page":
{"page":"Logout"}
`
	events, err := DecodeEvents(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.NoError(t, events[0].Validate())
	assert.NoError(t, events[3].Validate())

	err = events[1].Validate()
	require.ErrorIs(t, err, ErrMalformedRecord)
	assert.Contains(t, err.Error(), "line 3")

	err = events[2].Validate()
	require.ErrorIs(t, err, ErrMalformedRecord)
	assert.Contains(t, err.Error(), "line 4")
	assert.False(t, events[2].IsPlay())
}

func TestEventRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr string
	}{
		{
			name:    "missing page",
			json:    `{"ts": 1}`,
			wantErr: "missing page",
		},
		{
			name:    "play without length",
			json:    `{"page":"NextSong","ts":1,"userId":"1","firstName":"A","lastName":"B","gender":"F","level":"free","song":"S","artist":"X","sessionId":1,"location":"L","userAgent":"UA"}`,
			wantErr: "missing length",
		},
		{
			name:    "play with non numeric user",
			json:    `{"page":"NextSong","ts":1,"userId":"abc","firstName":"A","lastName":"B","gender":"F","level":"free","song":"S","artist":"X","length":1.5,"sessionId":1,"location":"L","userAgent":"UA"}`,
			wantErr: "userId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := DecodeEvents(strings.NewReader(tt.json))
			require.NoError(t, err)
			require.Len(t, events, 1)

			err = events[0].Validate()
			require.ErrorIs(t, err, ErrMalformedRecord)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFlex(t *testing.T) {
	events, err := DecodeEvents(strings.NewReader(`{"page":"Home","userId":10,"sessionId":"7"}`))
	require.NoError(t, err)

	id, err := events[0].UserID.Value.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(10), id)

	session, err := events[0].SessionID.Value.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(7), session)
}

func TestRowValuesMatchArgs(t *testing.T) {
	loc := "LA"
	lat, lon := 34.0, -118.0
	a := Artist{ID: "AR1", Name: "X", Location: &loc, Latitude: &lat, Longitude: &lon}

	assert.Equal(t, []any{"AR1", "X", &loc, &lat, &lon}, a.Args())
	assert.Equal(t, []any{"T1", "AR1", 2000, 200.5}, Song{ID: "S1", Title: "T1", ArtistID: "AR1", Year: 2000, Duration: 200.5}.Values())
	assert.False(t, SongPlay{}.Resolved())
}
