package records

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// DecodeSong reads the single song object held by a song metadata file.
func DecodeSong(r io.Reader) (SongRecord, error) {
	var rec SongRecord
	dec := json.NewDecoder(r)
	if err := dec.Decode(&rec); err != nil {
		return SongRecord{}, fmt.Errorf("%w: decoding song: %v", ErrMalformedRecord, err)
	}
	return rec, nil
}

// maxLineSize bounds one event log line.
const maxLineSize = 1 << 20

// DecodeEvents reads a JSON-lines event log. Records are returned in file order.
// A line that does not decode yields a record whose Validate reports
// ErrMalformedRecord with the line number, so callers decide whether it is fatal.
func DecodeEvents(r io.Reader) ([]EventRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var events []EventRecord
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		var rec EventRecord
		if err := json.Unmarshal(b, &rec); err != nil {
			rec = EventRecord{decodeErr: fmt.Errorf("%w: decoding line %d: %v", ErrMalformedRecord, line, err)}
		}
		events = append(events, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading events after line %d: %w", line, err)
	}
	return events, nil
}
