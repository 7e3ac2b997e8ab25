package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/arthur-debert/nanoquery/internal/logging"
	"github.com/arthur-debert/nanoquery/nanoquery/filter"
	"github.com/arthur-debert/nanoquery/types"
)

const dataVersion = "1.0"

// fileData is the on-disk layout of a JSON file store
type fileData struct {
	Records  []types.Record `json:"records"`
	Metadata Metadata       `json:"metadata"`
}

// Metadata contains storage metadata
type Metadata struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JSONFileStore keeps records in a JSON file. Every operation reads the file
// under a file lock, so several processes may share it. Within a process the
// file lock is paired with a mutex, since one flock handle does not exclude
// goroutines sharing it.
type JSONFileStore struct {
	path     string
	mu       sync.RWMutex
	locker   Locker
	schema   *types.Schema
	timeFunc func() time.Time
}

// JSONFileStoreOption configures a JSONFileStore
type JSONFileStoreOption func(*JSONFileStore)

// WithLockerFactory replaces the flock based locker
func WithLockerFactory(factory LockerFactory) JSONFileStoreOption {
	return func(s *JSONFileStore) {
		s.locker = factory(s.path + ".lock")
	}
}

// WithSchema makes the store read date fields as times, so that they order
// chronologically whatever offset or precision they were written with
func WithSchema(schema *types.Schema) JSONFileStoreOption {
	return func(s *JSONFileStore) {
		s.schema = schema
	}
}

// WithTimeFunc overrides the clock used for metadata timestamps
func WithTimeFunc(fn func() time.Time) JSONFileStoreOption {
	return func(s *JSONFileStore) {
		s.timeFunc = fn
	}
}

// NewJSONFileStore opens the store at path. A missing file is an empty store.
func NewJSONFileStore(path string, opts ...JSONFileStoreOption) *JSONFileStore {
	s := &JSONFileStore{
		path:     path,
		locker:   NewFlockLocker(path + ".lock"),
		timeFunc: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Find implements types.Store
func (s *JSONFileStore) Find(ctx context.Context, opts types.FindOptions) ([]types.Record, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return execute(data.Records, opts), nil
}

// Count implements types.Store
func (s *JSONFileStore) Count(ctx context.Context, f filter.Node) (int, error) {
	data, err := s.read(ctx)
	if err != nil {
		return 0, err
	}
	return count(data.Records, f), nil
}

// Append adds records to the file. Records without an id get a new UUID.
// The stored records are returned.
func (s *JSONFileStore) Append(ctx context.Context, records ...types.Record) ([]types.Record, error) {
	log := logging.GetLogger("store.json")

	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.locker.Lock(ctx, false); err != nil {
		return nil, err
	}
	defer func() { _ = s.locker.Unlock() }()

	data, err := s.load()
	if err != nil {
		return nil, err
	}

	added := make([]types.Record, 0, len(records))
	for _, r := range records {
		rec := make(types.Record, len(r)+1)
		for k, v := range r {
			rec[k] = v
		}
		if id := rec.ID(); id == nil || id == "" {
			rec[types.IDField] = uuid.New().String()
		}
		added = append(added, rec)
	}
	data.Records = append(data.Records, added...)

	now := s.timeFunc().UTC()
	if data.Metadata.CreatedAt.IsZero() {
		data.Metadata.CreatedAt = now
	}
	data.Metadata.UpdatedAt = now
	data.Metadata.Version = dataVersion

	if err := s.save(data); err != nil {
		return nil, err
	}

	log.Debug().Str("path", s.path).Int("added", len(added)).Int("total", len(data.Records)).Msg("appended records")
	return added, nil
}

// Metadata returns the storage metadata of the file
func (s *JSONFileStore) Metadata(ctx context.Context) (Metadata, error) {
	data, err := s.read(ctx)
	if err != nil {
		return Metadata{}, err
	}
	return data.Metadata, nil
}

// read loads the file under a shared lock
func (s *JSONFileStore) read(ctx context.Context) (*fileData, error) {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.locker.Lock(ctx, true); err != nil {
		return nil, err
	}
	defer func() { _ = s.locker.Unlock() }()

	return s.load()
}

// load reads the file; the caller holds the lock. Numbers are kept as
// json.Number so large integers survive.
func (s *JSONFileStore) load() (*fileData, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &fileData{Metadata: Metadata{Version: dataVersion}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &fileData{Metadata: Metadata{Version: dataVersion}}, nil
	}

	var data fileData
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse data file %s: %w", s.path, err)
	}
	s.parseDates(data.Records)
	return &data, nil
}

// parseDates replaces date strings of the schema's date fields with UTC
// times. Values that do not parse are left as they are.
func (s *JSONFileStore) parseDates(records []types.Record) {
	if s.schema == nil {
		return
	}
	for _, f := range s.schema.Fields() {
		if f.Type != types.Date {
			continue
		}
		if _, ok := f.Transformer(); ok {
			continue
		}
		path := f.StorePath()
		for _, r := range records {
			updatePath(r, path, func(v any) any {
				if items, ok := v.([]any); ok {
					for i, item := range items {
						items[i] = parseDate(item)
					}
					return items
				}
				return parseDate(v)
			})
		}
	}
}

func parseDate(v any) any {
	str, ok := v.(string)
	if !ok {
		return v
	}
	t, err := cast.ToTimeInDefaultLocationE(strings.TrimSpace(str), time.UTC)
	if err != nil {
		return v
	}
	return t.UTC()
}

// updatePath rewrites the value at path, resolved the way Record.Lookup
// resolves it. Missing paths are left alone.
func updatePath(r types.Record, path string, fn func(any) any) {
	if v, ok := r[path]; ok {
		r[path] = fn(v)
		return
	}
	parts := strings.Split(path, ".")
	current := map[string]any(r)
	for i, part := range parts {
		v, ok := current[part]
		if !ok {
			return
		}
		if i == len(parts)-1 {
			current[part] = fn(v)
			return
		}
		switch next := v.(type) {
		case map[string]any:
			current = next
		case types.Record:
			current = next
		default:
			return
		}
	}
}

// save writes the file atomically; the caller holds the lock
func (s *JSONFileStore) save(data *fileData) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("failed to write data file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("failed to write data file: %w", err)
	}
	if err := os.Chmod(name, 0644); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("failed to write data file: %w", err)
	}
	if err := os.Rename(name, s.path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("failed to replace data file: %w", err)
	}
	return nil
}
