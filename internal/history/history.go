// Package history keeps the most recently loaded reports in a bounded, newest-first list.
//
// The list is stored as one JSON document under a fixed key of a key-value backend, so it can be
// shared between the command line and the web viewer.
package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/reporteria/reportviewer/internal/constants"
	"github.com/ubuntu/decorate"
)

var (
	// ErrOutOfRange is returned when a history index does not exist.
	ErrOutOfRange = errors.New("history index out of range")

	// ErrInvalidData is returned when the data to store is not valid JSON.
	ErrInvalidData = errors.New("report data is not valid JSON")
)

// KV is a key-value persistence backend.
type KV interface {
	// Get returns the value under key, or nil without error if there is none.
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// Record is one entry of the history.
type Record struct {
	Date time.Time       `json:"date"`
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// Store is the bounded report history. It is safe for concurrent use.
type Store struct {
	kv       KV
	key      string
	capacity int
	now      func() time.Time

	mu sync.Mutex
}

type options struct {
	key      string
	capacity int
	now      func() time.Time
}

// Options represents an optional function to override Store default values.
type Options func(*options)

// WithCapacity overrides the maximum number of records kept.
func WithCapacity(n int) Options {
	return func(o *options) {
		o.capacity = n
	}
}

// WithKey overrides the key the history is stored under.
func WithKey(key string) Options {
	return func(o *options) {
		o.key = key
	}
}

// WithNow overrides the clock used to date new records.
func WithNow(now func() time.Time) Options {
	return func(o *options) {
		o.now = now
	}
}

// New returns a Store persisted in kv.
func New(kv KV, args ...Options) *Store {
	opts := options{
		key:      constants.HistoryKey,
		capacity: constants.HistoryCapacity,
		now:      time.Now,
	}
	for _, opt := range args {
		opt(&opts)
	}

	return &Store{
		kv:       kv,
		key:      opts.key,
		capacity: max(opts.capacity, 1),
		now:      opts.now,
	}
}

// Add puts a report at the front of the history, evicting the oldest records above capacity.
// data must be the JSON text of the report.
func (s *Store) Add(name string, data []byte) (err error) {
	defer decorate.OnError(&err, "could not add %q to history", name)

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		slog.Warn("Discarding unreadable history", "error", err)
		records = nil
	}

	r := Record{Date: s.now().UTC(), Name: name, Data: compact.Bytes()}
	records = append([]Record{r}, records...)
	if len(records) > s.capacity {
		slog.Debug("Evicting old history records", "count", len(records)-s.capacity)
		records = records[:s.capacity]
	}

	return s.save(records)
}

// List returns the records, newest first.
func (s *Store) List() (records []Record, err error) {
	defer decorate.OnError(&err, "could not list history")

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

// Get returns the record at index i, 0 being the newest.
func (s *Store) Get(i int) (r Record, err error) {
	defer decorate.OnError(&err, "could not get history record %d", i)

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return Record{}, err
	}
	if i < 0 || i >= len(records) {
		return Record{}, fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, i, len(records))
	}
	return records[i], nil
}

// Clear removes every record.
func (s *Store) Clear() (err error) {
	defer decorate.OnError(&err, "could not clear history")

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.kv.Delete(s.key)
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.kv.Close()
}

func (s *Store) load() ([]Record, error) {
	data, err := s.kv.Get(s.key)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []Record{}, nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("stored history is not valid JSON: %v", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func (s *Store) save(records []Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("could not marshal history: %v", err)
	}
	return s.kv.Set(s.key, data)
}
