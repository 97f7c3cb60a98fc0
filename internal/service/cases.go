package service

import (
	"context"

	"github.com/testforge/suite-service/internal/domain"
	"github.com/testforge/suite-service/internal/storage"
)

// Cases is the service for the test_case entity
type Cases struct {
	client *entityClient
}

// NewCases creates a case service on the given backend
func NewCases(backend storage.Backend) *Cases {
	return &Cases{
		client: &entityClient{
			backend: backend,
			entity:  storage.EntityTestCase,
			label:   "test case",
			plural:  "test cases",
			fields:  caseFields,
		},
	}
}

// ListForSuite returns the non-deleted cases of a suite, newest first
func (c *Cases) ListForSuite(ctx context.Context, suiteID string) ([]domain.TestCase, error) {
	records, err := c.client.list(ctx, storage.Condition{
		FieldName: fieldTestSuite,
		Operator:  storage.OperatorExactMatch,
		Values:    []interface{}{suiteID},
	})
	if err != nil {
		return nil, err
	}

	cases := make([]domain.TestCase, 0, len(records))
	for _, rec := range records {
		cases = append(cases, caseFromRecord(rec))
	}
	return cases, nil
}

// Get returns one case. A missing case matches ErrNotFound.
func (c *Cases) Get(ctx context.Context, id string) (domain.TestCase, error) {
	rec, err := c.client.get(ctx, id)
	if err != nil {
		return domain.TestCase{}, err
	}
	return caseFromRecord(rec), nil
}

// Create stores a case. An empty status is stored as active.
func (c *Cases) Create(ctx context.Context, tc domain.TestCase) (domain.TestCase, error) {
	rec, err := c.client.create(ctx, caseToRecord(tc))
	if err != nil {
		return domain.TestCase{}, err
	}
	return caseFromRecord(rec), nil
}

// Update replaces the mapped fields of the case with the given id
func (c *Cases) Update(ctx context.Context, id string, tc domain.TestCase) (domain.TestCase, error) {
	rec, err := c.client.update(ctx, id, caseToRecord(tc))
	if err != nil {
		return domain.TestCase{}, err
	}
	return caseFromRecord(rec), nil
}

// Delete removes the case with the given id and reports true on success
func (c *Cases) Delete(ctx context.Context, id string) (bool, error) {
	return c.client.delete(ctx, id)
}
