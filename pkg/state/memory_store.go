package state

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/goliatone/go-decisions"
)

// MemoryStore is an in-memory Store intended for tests and short-lived
// processes. Records are kept encoded so loads never alias saved state.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
}

type memoryRecord struct {
	payload []byte
	meta    Meta
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}}
}

func (s *MemoryStore) Load(ctx context.Context, ref Ref) (decisions.ContextRecord, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return decisions.ContextRecord{}, Meta{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return decisions.ContextRecord{}, Meta{}, false, WrapError("load", key, err)
	}

	s.mu.RLock()
	stored, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return decisions.ContextRecord{}, Meta{}, false, nil
	}
	var record decisions.ContextRecord
	if err := json.Unmarshal(stored.payload, &record); err != nil {
		return decisions.ContextRecord{}, Meta{}, false, WrapError("decode", key, err)
	}
	return record, cloneMeta(stored.meta), true, nil
}

func (s *MemoryStore) Save(ctx context.Context, ref Ref, record decisions.ContextRecord, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}
	if err := ctx.Err(); err != nil {
		return Meta{}, WrapError("save", key, err)
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return Meta{}, WrapError("encode", key, err)
	}

	s.mu.Lock()
	if s.records == nil {
		s.records = map[string]memoryRecord{}
	}
	s.records[key] = memoryRecord{payload: payload, meta: cloneMeta(meta)}
	s.mu.Unlock()
	return cloneMeta(meta), nil
}
