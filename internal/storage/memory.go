package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryBackend provides an in-memory implementation of Backend
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]map[string]Record // entity -> id -> record
	order   map[string][]string          // entity -> ids in insertion order
	lastNow time.Time
	now     func() time.Time
}

// NewMemoryBackend creates a new in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records: map[string]map[string]Record{
			EntityTestSuite: {},
			EntityTestCase:  {},
		},
		order: map[string][]string{},
		now:   time.Now,
	}
}

// timestamp returns a strictly increasing creation time so that
// CreatedOn ordering matches insertion order
func (m *MemoryBackend) timestamp() time.Time {
	now := m.now().UTC()
	if !now.After(m.lastNow) {
		now = m.lastNow.Add(time.Nanosecond)
	}
	m.lastNow = now
	return now
}

func (m *MemoryBackend) table(entity string) (map[string]Record, error) {
	table, ok := m.records[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	return table, nil
}

// FetchRecords lists records of an entity
func (m *MemoryBackend) FetchRecords(ctx context.Context, entity string, query Query) (*FetchResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	table, err := m.table(entity)
	if err != nil {
		return nil, err
	}

	data := make([]Record, 0, len(table))
	for _, id := range m.order[entity] {
		rec, ok := table[id]
		if !ok || !Matches(rec, query.Where) {
			continue
		}
		data = append(data, Project(rec, query.Fields))
	}
	SortRecords(data, query.OrderBy)

	return &FetchResponse{Success: true, Data: data}, nil
}

// GetRecordByID retrieves one non-deleted record
func (m *MemoryBackend) GetRecordByID(ctx context.Context, entity string, id string) (*GetResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	table, err := m.table(entity)
	if err != nil {
		return nil, err
	}

	rec, exists := table[id]
	if !exists || rec[FieldIsDeleted] == true {
		return &GetResponse{Success: true}, nil
	}

	return &GetResponse{Success: true, Data: Project(rec, nil)}, nil
}

// CreateRecord stores new records
func (m *MemoryBackend) CreateRecord(ctx context.Context, entity string, params RecordsParams) (*MutateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	table, err := m.table(entity)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(params.Records))
	for _, in := range params.Records {
		rec := cloneRecord(in)
		id := uuid.NewString()
		rec[FieldID] = id
		rec[FieldCreatedOn] = FormatTime(m.timestamp())
		rec[FieldIsDeleted] = false

		table[id] = rec
		m.order[entity] = append(m.order[entity], id)
		results = append(results, Result{Success: true, Data: Project(rec, nil)})
	}

	return &MutateResponse{Success: true, Results: results}, nil
}

// UpdateRecord replaces the given fields of existing records
func (m *MemoryBackend) UpdateRecord(ctx context.Context, entity string, params RecordsParams) (*MutateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	table, err := m.table(entity)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(params.Records))
	for _, in := range params.Records {
		id := fmt.Sprint(in[FieldID])
		existing, exists := table[id]
		if !exists || existing[FieldIsDeleted] == true {
			results = append(results, Result{Success: false, Message: fmt.Sprintf("record %s not found", id)})
			continue
		}

		updated := cloneRecord(existing)
		for k, v := range in {
			switch k {
			case FieldID, FieldCreatedOn, FieldIsDeleted:
				// system fields are not writable
			default:
				updated[k] = v
			}
		}
		table[id] = updated
		results = append(results, Result{Success: true, Data: Project(updated, nil)})
	}

	return &MutateResponse{Success: true, Results: results}, nil
}

// DeleteRecord soft-deletes records. Deleting an unknown id fails the call.
func (m *MemoryBackend) DeleteRecord(ctx context.Context, entity string, params DeleteParams) (*DeleteResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	table, err := m.table(entity)
	if err != nil {
		return nil, err
	}

	for _, id := range params.RecordIDs {
		rec, exists := table[id]
		if !exists || rec[FieldIsDeleted] == true {
			return &DeleteResponse{Success: false, Message: fmt.Sprintf("record %s not found", id)}, nil
		}
	}

	for _, id := range params.RecordIDs {
		rec := cloneRecord(table[id])
		rec[FieldIsDeleted] = true
		table[id] = rec
	}

	return &DeleteResponse{Success: true}, nil
}
