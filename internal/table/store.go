package table

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned for an unknown table id.
var ErrNotFound = errors.New("table: not found")

type TableStore struct {
	mu     sync.Mutex
	tables map[uuid.UUID]*Table
}

func NewTableStore() *TableStore {
	return &TableStore{
		tables: make(map[uuid.UUID]*Table),
	}
}

func (s *TableStore) Add(t *Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.ID] = t
}

func (s *TableStore) Get(id uuid.UUID) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

// Delete removes the table and closes it.
func (s *TableStore) Delete(id uuid.UUID) {
	s.mu.Lock()
	t, ok := s.tables[id]
	delete(s.tables, id)
	s.mu.Unlock()
	if ok {
		t.Close()
	}
}

// List returns every table, oldest first.
func (s *TableStore) List() []*Table {
	s.mu.Lock()
	out := make([]*Table, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *TableStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tables)
}
