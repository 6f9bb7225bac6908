package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/shorturl/internal/shortener"
)

// MemoryStore is an in-memory implementation of shortener.Repository.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	records map[int64]*shortener.ShortURL
	codes   map[shortener.Code]int64
	hashes  map[shortener.URLHash]int64
}

// NewMemoryStore creates a new in-memory URL store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[int64]*shortener.ShortURL),
		codes:   make(map[shortener.Code]int64),
		hashes:  make(map[shortener.URLHash]int64),
	}
}

func (m *MemoryStore) Insert(_ context.Context, shortURL *shortener.ShortURL) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.hashes[shortURL.URLHash]; ok {
		return shortener.ErrHashTaken
	}

	if shortURL.Code != "" {
		if _, ok := m.codes[shortURL.Code]; ok {
			return shortener.ErrCodeTaken
		}
	}

	m.nextID++
	shortURL.ID = m.nextID

	stored := *shortURL
	m.records[stored.ID] = &stored
	m.hashes[stored.URLHash] = stored.ID

	if stored.Code != "" {
		m.codes[stored.Code] = stored.ID
	}

	return nil
}

func (m *MemoryStore) AssignCode(_ context.Context, id int64, code shortener.Code, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[id]
	if !ok {
		return shortener.ErrRecordNotFound
	}

	if owner, taken := m.codes[code]; taken && owner != id {
		return shortener.ErrCodeTaken
	}

	if record.Code != "" {
		delete(m.codes, record.Code)
	}

	record.Code = code
	record.UpdatedAt = updatedAt
	m.codes[code] = id

	return nil
}

func (m *MemoryStore) ExistsByHash(_ context.Context, hash shortener.URLHash) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.hashes[hash]

	return ok, nil
}

func (m *MemoryStore) ExistsByCode(_ context.Context, code shortener.Code) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.codes[code]

	return ok, nil
}

func (m *MemoryStore) GetByCode(_ context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.codes[code]
	if !ok {
		return nil, shortener.ErrRecordNotFound
	}

	found := *m.records[id]

	return &found, nil
}

func (m *MemoryStore) Discard(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[id]
	if !ok || !record.Provisional() {
		return shortener.ErrRecordNotFound
	}

	m.remove(record)

	return nil
}

// PurgeProvisional removes provisional records created before the cutoff.
func (m *MemoryStore) PurgeProvisional(_ context.Context, createdBefore time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int64

	for _, record := range m.records {
		if record.Provisional() && record.CreatedAt.Before(createdBefore) {
			m.remove(record)
			purged++
		}
	}

	return purged, nil
}

// Len returns the number of stored records, provisional ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.records)
}

func (m *MemoryStore) remove(record *shortener.ShortURL) {
	delete(m.records, record.ID)
	delete(m.hashes, record.URLHash)

	if record.Code != "" {
		delete(m.codes, record.Code)
	}
}

// Compile-time checks.
var (
	_ shortener.Repository        = (*MemoryStore)(nil)
	_ shortener.ProvisionalPurger = (*MemoryStore)(nil)
)
