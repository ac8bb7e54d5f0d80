// Package manifest persists the outcome of each build so it can be
// listed, inspected and served later.
package manifest

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"revhash/internal/asset"
	"revhash/internal/errors"
	"revhash/internal/storage"
)

const prefix = "build"

// Manifest records one build: every hashed file's output path plus the
// batch report.
type Manifest struct {
	ID          string            `json:"id"`
	CreatedAt   time.Time         `json:"created_at"`
	Source      string            `json:"source"`
	Salt        string            `json:"salt"`
	Algorithm   string            `json:"algorithm"`
	Entries     map[string]string `json:"entries"`
	TotalHashed int               `json:"total_hashed"`
	Warnings    []asset.Warning   `json:"warnings"`
}

func (m *Manifest) GetID() string { return m.ID }

// New builds an unsaved manifest from a finalized batch.
func New(records []*asset.Record, report asset.Report) *Manifest {
	return &Manifest{
		Entries:     asset.Entries(records),
		TotalHashed: report.TotalHashed,
		Warnings:    report.Warnings,
	}
}

// IsOutput reports whether rel is the output path of a hashed file.
func (m *Manifest) IsOutput(rel string) bool {
	for _, out := range m.Entries {
		if out == rel {
			return true
		}
	}
	return false
}

// Store keeps manifests in badger with an LRU of decoded manifests. The
// newest build is loaded once and then tracked by Save, so Latest does not
// scan the history.
type Store struct {
	store *storage.BadgerStore
	cache *lru.Cache[string, *Manifest]

	mu     sync.Mutex
	latest *Manifest
	loaded bool
}

func NewStore(db *badger.DB, cacheSize int) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = 64
	}
	cache, err := lru.New[string, *Manifest](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	return &Store{
		store: storage.NewBadgerStore(db, prefix),
		cache: cache,
	}, nil
}

// Save assigns m an ID and timestamp if missing and stores it.
func (s *Store) Save(m *Manifest) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	if err := s.store.Create(m); err != nil {
		return fmt.Errorf("saving manifest %s: %w", m.ID, err)
	}
	s.cache.Add(m.ID, m)

	s.mu.Lock()
	if s.loaded && (s.latest == nil || !m.CreatedAt.Before(s.latest.CreatedAt)) {
		s.latest = m
	}
	s.mu.Unlock()
	return nil
}

// Get returns the manifest with id, or a NOT_FOUND error.
func (s *Store) Get(id string) (*Manifest, error) {
	if m, ok := s.cache.Get(id); ok {
		return m, nil
	}

	var m Manifest
	if err := s.store.Get(id, &m); err != nil {
		if errors.Is(err, errors.ErrorTypeNotFound) {
			return nil, errors.NotFound(fmt.Sprintf("build not found: %s", id))
		}
		return nil, fmt.Errorf("getting manifest %s: %w", id, err)
	}

	s.cache.Add(id, &m)
	return &m, nil
}

// List returns every manifest, newest first.
func (s *Store) List() ([]*Manifest, error) {
	var out []*Manifest
	err := s.store.Each(func(id string, val []byte) error {
		var m Manifest
		if err := json.Unmarshal(val, &m); err != nil {
			return fmt.Errorf("decoding manifest %s: %w", id, err)
		}
		out = append(out, &m)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Latest returns the newest manifest, or a NOT_FOUND error if none exist.
func (s *Store) Latest() (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		all, err := s.List()
		if err != nil {
			return nil, err
		}
		if len(all) > 0 {
			s.latest = all[0]
		}
		s.loaded = true
	}
	if s.latest == nil {
		return nil, errors.NotFound("no builds recorded")
	}
	return s.latest, nil
}
