package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ethereum/go-ethereum/log"
)

// Record is the flat key/value configuration persisted between runs.
type Record map[string]string

// Get returns the value for key, or "" when absent.
func (r Record) Get(key string) string {
	if r == nil {
		return ""
	}
	return r[key]
}

// Set stores value under key. Setting on a nil record is a no-op.
func (r Record) Set(key, value string) {
	if r == nil {
		return
	}
	r[key] = value
}

// Has reports whether key holds a non-empty value.
func (r Record) Has(key string) bool {
	return r.Get(key) != ""
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge copies the non-empty values of other into r, other winning on conflict.
func (r Record) Merge(other Record) {
	for k, v := range other {
		if v == "" {
			continue
		}
		r[k] = v
	}
}

// Keys returns the record keys in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Store persists a Record as a single JSON object on disk.
type Store struct {
	path   string
	logger log.Logger
}

func NewStore(path string, logger log.Logger) *Store {
	if logger == nil {
		logger = log.Root()
	}
	return &Store{
		path:   path,
		logger: logger,
	}
}

// Path returns the location of the persisted record.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted record. A missing file yields an empty record.
// A corrupt file is removed and also yields an empty record.
func (s *Store) Load() (Record, error) {
	rec, err := s.read()
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, os.ErrNotExist):
		return Record{}, nil
	case errors.Is(err, ErrConfigCorrupt):
		s.logger.Warn("Unable to parse configuration, deleting and continuing", "path", s.path, "err", err)
		if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.logger.Warn("Failed to remove corrupt configuration", "path", s.path, "err", rmErr)
		}
		return Record{}, nil
	default:
		return nil, err
	}
}

// Save merges partial onto the persisted record and writes the result back.
// Empty values in partial never erase persisted ones.
func (s *Store) Save(partial Record) error {
	current, err := s.read()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) && !errors.Is(err, ErrConfigCorrupt) {
			return err
		}
		current = Record{}
	}
	current.Merge(partial)

	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create configuration directory: %w", err)
		}
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace configuration: %w", err)
	}

	s.logger.Debug("Configuration saved", "path", s.path, "keys", len(current))
	return nil
}

func (s *Store) read() (Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigCorrupt, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrConfigCorrupt)
	}

	rec := make(Record, len(raw))
	for k, v := range raw {
		value, err := scalarString(v)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrConfigCorrupt, k, err)
		}
		if value != "" {
			rec[k] = value
		}
	}
	return rec, nil
}

// scalarString renders a JSON scalar as the string a hand edit meant:
// strings are unquoted, numbers and booleans keep their literal text and
// null is empty. Objects and arrays are rejected.
func scalarString(v json.RawMessage) (string, error) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 {
		return "", nil
	}
	switch v[0] {
	case '"':
		var str string
		if err := json.Unmarshal(v, &str); err != nil {
			return "", err
		}
		return str, nil
	case '{', '[':
		return "", errors.New("nested values are not supported")
	case 'n':
		return "", nil
	default:
		return string(v), nil
	}
}
