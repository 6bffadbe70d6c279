// Package memory is a mutex-guarded in-process ledger backend. It keeps
// nothing on disk and is used for tests and the "memory" data backend.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"costledger/internal/core"
	"costledger/internal/ledger"
)

type Store struct {
	mu       sync.Mutex
	loc      *time.Location
	nextID   int64
	items    []core.StoredRecord
	settings map[string]string
}

var _ ledger.Store = (*Store)(nil)

// New returns an empty store deriving calendar fields in loc (time.Local
// when nil).
func New(loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{
		loc:      loc,
		nextID:   1,
		settings: make(map[string]string),
	}
}

// AddCost stores rec under the next ID.
func (s *Store) AddCost(_ context.Context, rec core.CostRecord) (core.StoredRecord, error) {
	if err := rec.Validate(); err != nil {
		return core.StoredRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := core.NewStoredRecord(s.nextID, rec, s.loc)
	s.nextID++
	s.items = append(s.items, stored)
	return stored, nil
}

// GetAllRaw returns a copy of every record in insertion order.
func (s *Store) GetAllRaw(_ context.Context) ([]core.StoredRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.StoredRecord{}, s.items...), nil
}

// ListCostsByDate filters on DateISO in [from, to).
func (s *Store) ListCostsByDate(_ context.Context, from, to time.Time) ([]core.StoredRecord, error) {
	s.mu.Lock()
	out := make([]core.StoredRecord, 0)
	for _, r := range s.items {
		if !r.DateISO.Before(from) && r.DateISO.Before(to) {
			out = append(out, r)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DateISO.Equal(out[j].DateISO) {
			return out[i].ID < out[j].ID
		}
		return out[i].DateISO.Before(out[j].DateISO)
	})
	return out, nil
}

func (s *Store) GetSetting(_ context.Context, key string) (any, bool, error) {
	s.mu.Lock()
	raw, ok := s.settings[key]
	s.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	v, err := ledger.DecodeSetting(raw)
	if err != nil {
		return nil, false, core.ReadError("get setting", err)
	}
	return v, true, nil
}

func (s *Store) SetSetting(_ context.Context, key string, value any) error {
	raw, err := ledger.EncodeSetting(value)
	if err != nil {
		return core.WriteError("set setting", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = raw
	return nil
}

func (s *Store) Close() error { return nil }
