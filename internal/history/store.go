package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble/v2"
	"github.com/cockroachdb/pebble/v2/vfs"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/portal-chat/internal/chat"
)

// SlotKey is the single key holding the serialized history.
const SlotKey = "chatMessages"

// Store persists the message history in a PebbleDB key-value store.
// The whole sequence lives under SlotKey as a JSON array; Append rewrites it.
// Pebble locks its directory, so a second process cannot open the same path.
type Store struct {
	db *pebble.DB
	mu sync.Mutex
}

// Open opens (or creates) a store rooted at dir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("history: empty data path")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data path: %w", err)
	}
	return open(filepath.Clean(dir), &pebble.Options{Logger: pebbleLogger{}})
}

// OpenFS opens a store on the given filesystem, typically vfs.NewMem() in tests.
func OpenFS(fs vfs.FS, dir string) (*Store, error) {
	return open(dir, &pebble.Options{FS: fs, Logger: pebbleLogger{}})
}

func open(dir string, opts *pebble.Options) (*Store, error) {
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	return &Store{db: db}, nil
}

// LoadAll returns the stored sequence in append order.
// Absent or malformed data yields an empty sequence, not an error.
func (s *Store) LoadAll() ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]chat.Message, error) {
	val, closer, err := s.db.Get([]byte(SlotKey))
	if errors.Is(err, pebble.ErrNotFound) {
		return []chat.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	defer func() { _ = closer.Close() }()

	var out []chat.Message
	if err := json.Unmarshal(val, &out); err != nil || out == nil {
		if err != nil {
			log.Warn().Err(err).Msg("[history] discarding malformed history")
		}
		return []chat.Message{}, nil
	}
	return out, nil
}

// Append adds one message at the end of the stored sequence.
func (s *Store) Append(m chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs, err := s.load()
	if err != nil {
		return err
	}
	msgs = append(msgs, m)
	val, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.db.Set([]byte(SlotKey), val, pebble.Sync); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// pebbleLogger routes pebble's own diagnostics through zerolog so they
// never land on a terminal owned by the UI.
type pebbleLogger struct{}

func (pebbleLogger) Infof(format string, args ...interface{}) {
	log.Debug().Msgf("[pebble] "+format, args...)
}

func (pebbleLogger) Errorf(format string, args ...interface{}) {
	log.Error().Msgf("[pebble] "+format, args...)
}

func (pebbleLogger) Fatalf(format string, args ...interface{}) {
	log.Fatal().Msgf("[pebble] "+format, args...)
}
