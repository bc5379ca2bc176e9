package sheets

import (
	"context"
	"sync"
)

// MemoryGateway is an in-memory Gateway used in tests and local development,
// where a real spreadsheet is not available.
type MemoryGateway struct {
	mu   sync.Mutex
	rows [][]string
}

// NewMemoryGateway creates a MemoryGateway pre-seeded with the given rows
func NewMemoryGateway(rows [][]string) *MemoryGateway {
	return &MemoryGateway{rows: rows}
}

// ReadRows returns a copy of all stored rows; the range is ignored
func (m *MemoryGateway) ReadRows(_ context.Context, _ string) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]string, len(m.rows))
	for i, row := range m.rows {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

// AppendRow stores one row
func (m *MemoryGateway) AppendRow(_ context.Context, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows = append(m.rows, append([]string(nil), row...))
	return nil
}

// Rows returns the current contents, for assertions in tests
func (m *MemoryGateway) Rows() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]string, len(m.rows))
	for i, row := range m.rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}
