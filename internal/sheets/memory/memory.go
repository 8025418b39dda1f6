package memory

import (
	"context"
	"sync"

	"finance/internal/sheets"
)

// Store keeps reports in memory. It backs the report sync when no
// spreadsheet is configured and is used in tests.
type Store struct {
	mu      sync.Mutex
	reports map[int]sheets.YearReport
	writes  int
}

var _ sheets.ReportWriter = (*Store)(nil)

func New() *Store {
	return &Store{reports: make(map[int]sheets.YearReport)}
}

func (s *Store) WriteYearReport(_ context.Context, r sheets.YearReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.Year] = r
	s.writes++
	return nil
}

// Report returns the last report written for year.
func (s *Store) Report(year int) (sheets.YearReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[year]
	return r, ok
}

// Writes counts WriteYearReport calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
