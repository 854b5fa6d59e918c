// Package memory keeps published sheets in process, for local runs without
// Google credentials and for tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	ports "budgetbook/internal/sheets"
)

var _ ports.Publisher = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	sheets map[string][][]string
}

func New() *Store {
	return &Store{sheets: make(map[string][][]string)}
}

func (s *Store) Publish(_ context.Context, sheet string, rows [][]string) (string, error) {
	cp := make([][]string, len(rows))
	for i, r := range rows {
		cp[i] = slices.Clone(r)
	}
	s.mu.Lock()
	s.sheets[sheet] = cp
	s.mu.Unlock()
	return fmt.Sprintf("mem:%s!%d", sheet, len(rows)), nil
}

// Sheet returns the rows last published to name.
func (s *Store) Sheet(name string) ([][]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[name]
	return rows, ok
}
