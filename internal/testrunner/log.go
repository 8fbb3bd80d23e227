package testrunner

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// LogRecord is one line of a run's log.
type LogRecord struct {
	ID      int64
	At      time.Time
	Level   slog.Level
	Message string
}

// LogStore is an append-only run log safe for concurrent use. IDs start at 1
// and are never reused, not even after Reset.
type LogStore struct {
	mu      sync.Mutex
	records []LogRecord
	lastID  int64
	now     func() time.Time
}

// Append adds a record and returns it.
func (s *LogStore) Append(level slog.Level, message string) LogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	s.lastID++
	rec := LogRecord{ID: s.lastID, At: now(), Level: level, Message: message}
	s.records = append(s.records, rec)
	return rec
}

// After returns the records with ID greater than id, in ID order. The result
// is a copy.
func (s *LogStore) After(id int64) []LogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	lo := sort.Search(len(s.records), func(i int) bool { return s.records[i].ID > id })
	out := make([]LogRecord, len(s.records)-lo)
	copy(out, s.records[lo:])
	return out
}

// Reset drops all records.
func (s *LogStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}

// LastID is the ID of the most recent record, or 0.
func (s *LogStore) LastID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastID
}
