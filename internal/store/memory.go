package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Memory keeps records in a process-local go-cache instance. Records never expire.
type Memory struct {
	mu    sync.Mutex
	cache *cache.Cache
	seq   uint64
	now   func() time.Time
}

type memoryEntry struct {
	seq    uint64
	record Record
}

func NewMemory() *Memory {
	return &Memory{
		cache: cache.New(cache.NoExpiration, 0),
		now:   time.Now,
	}
}

func memoryKey(collection, id string) string {
	return collection + "/" + id
}

func (m *Memory) Insert(_ context.Context, collection string, rec Record) (Record, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	prepared, err := prepareInsert(rec, m.now())
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoryKey(collection, prepared.ID())
	if _, exists := m.cache.Get(key); exists {
		return nil, fmt.Errorf("%s: record %s already exists", collection, prepared.ID())
	}

	m.seq++
	m.cache.Set(key, memoryEntry{seq: m.seq, record: prepared}, cache.NoExpiration)

	return prepared.clone(), nil
}

func (m *Memory) Get(_ context.Context, collection, id string) (Record, error) {
	item, ok := m.cache.Get(memoryKey(collection, id))
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", collection, id, ErrNotFound)
	}
	return item.(memoryEntry).record.clone(), nil
}

func (m *Memory) Query(_ context.Context, collection string, filter Filter, order *Order) ([]Record, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	prefix := collection + "/"
	entries := make([]memoryEntry, 0)
	for key, item := range m.cache.Items() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		entries = append(entries, item.Object.(memoryEntry))
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		ok, err := matches(entry.record, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			records = append(records, entry.record.clone())
		}
	}

	applyOrder(records, order)
	return records, nil
}

func (m *Memory) Update(_ context.Context, collection, id string, patch Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoryKey(collection, id)
	item, ok := m.cache.Get(key)
	if !ok {
		return fmt.Errorf("%s %s: %w", collection, id, ErrNotFound)
	}

	entry := item.(memoryEntry)
	merged, err := merge(entry.record, patch)
	if err != nil {
		return err
	}

	m.cache.Set(key, memoryEntry{seq: entry.seq, record: merged}, cache.NoExpiration)
	return nil
}

func (m *Memory) Close() error {
	m.cache.Flush()
	return nil
}
