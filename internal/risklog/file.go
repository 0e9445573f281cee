package risklog

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// FileStore keeps risk events as a JSON array of {"timestamp": ...}
// records in a single flat file. It assumes a single writer; a lost
// prune from a concurrent process is acceptable.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at path. The file does not
// need to exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// record keeps the raw JSON alongside the parsed timestamp so that
// pruning preserves any extra fields a record carries.
type record struct {
	raw json.RawMessage
	ts  int64
}

// Append adds an event to the end of the queue file.
func (s *FileStore) Append(ctx context.Context, e Entry) error {
	records, _, readErr := s.load()
	if readErr != nil {
		return readErr
	}

	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	records = append(records, record{raw: raw, ts: e.Timestamp})
	return s.write(records)
}

// RecentSince returns entries younger than window. A missing or
// malformed file yields no entries and no error; only a genuine read
// failure is surfaced. When stale entries were dropped the pruned
// sequence is written back best-effort.
func (s *FileStore) RecentSince(ctx context.Context, now time.Time, window time.Duration) ([]Entry, error) {
	records, ok, err := s.load()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	cutoff := now.Add(-window).UnixMilli()

	var kept []record
	var recent []Entry
	for _, r := range records {
		if r.ts <= cutoff {
			continue
		}
		kept = append(kept, r)
		recent = append(recent, Entry{Timestamp: r.ts})
	}

	if len(kept) < len(records) {
		if werr := s.write(kept); werr != nil {
			log.Warn().Err(werr).Str("path", s.path).Msg("Prune write-back failed")
		}
	}

	return recent, nil
}

// load reads and parses the queue file. The second return is false
// when the file is absent or its content is not a usable sequence.
func (s *FileStore) load() ([]record, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		log.Warn().Str("path", s.path).Msg("Risk queue file malformed, treating as empty")
		return nil, false, nil
	}

	records := make([]record, 0, len(raws))
	for _, raw := range raws {
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		records = append(records, record{raw: raw, ts: e.Timestamp})
	}
	return records, true, nil
}

func (s *FileStore) write(records []record) error {
	raws := make([]json.RawMessage, len(records))
	for i, r := range records {
		raws[i] = r.raw
	}
	data, err := json.Marshal(raws)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
