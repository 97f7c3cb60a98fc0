// Package service maps test suites and test cases onto backend records and
// wraps the backend data provider calls for both entities.
//
// Every operation logs the underlying failure and returns a *Error whose
// message is fixed per operation, so callers can show it to users as-is.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/testforge/suite-service/internal/domain"
	"github.com/testforge/suite-service/internal/storage"
)

// Suites is the service for the test_suite entity
type Suites struct {
	client *entityClient
}

// NewSuites creates a suite service on the given backend
func NewSuites(backend storage.Backend) *Suites {
	return &Suites{
		client: &entityClient{
			backend: backend,
			entity:  storage.EntityTestSuite,
			label:   "test suite",
			plural:  "test suites",
			fields:  suiteFields,
		},
	}
}

// List returns every non-deleted suite, newest first. No data is an empty
// list, not an error.
func (s *Suites) List(ctx context.Context) ([]domain.TestSuite, error) {
	return s.list(ctx)
}

// ListOwnedBy is List restricted to the suites owned by owner
func (s *Suites) ListOwnedBy(ctx context.Context, owner string) ([]domain.TestSuite, error) {
	return s.list(ctx, storage.Condition{
		FieldName: storage.FieldOwner,
		Operator:  storage.OperatorExactMatch,
		Values:    []interface{}{owner},
	})
}

func (s *Suites) list(ctx context.Context, where ...storage.Condition) ([]domain.TestSuite, error) {
	records, err := s.client.list(ctx, where...)
	if err != nil {
		return nil, err
	}

	suites := make([]domain.TestSuite, 0, len(records))
	for _, rec := range records {
		suites = append(suites, suiteFromRecord(rec))
	}
	return suites, nil
}

// Get returns one suite. A missing suite matches ErrNotFound.
func (s *Suites) Get(ctx context.Context, id string) (domain.TestSuite, error) {
	rec, err := s.client.get(ctx, id)
	if err != nil {
		return domain.TestSuite{}, err
	}
	return suiteFromRecord(rec), nil
}

// Create stores a suite together with its embedded cases
func (s *Suites) Create(ctx context.Context, suite domain.TestSuite) (domain.TestSuite, error) {
	rec, err := s.client.create(ctx, suiteToRecord(suite))
	if err != nil {
		return domain.TestSuite{}, err
	}
	return suiteFromRecord(rec), nil
}

// Update replaces the mapped fields of the suite with the given id
func (s *Suites) Update(ctx context.Context, id string, suite domain.TestSuite) (domain.TestSuite, error) {
	rec, err := s.client.update(ctx, id, suiteToRecord(suite))
	if err != nil {
		return domain.TestSuite{}, err
	}
	return suiteFromRecord(rec), nil
}

// Delete removes the suite with the given id and reports true on success
func (s *Suites) Delete(ctx context.Context, id string) (bool, error) {
	return s.client.delete(ctx, id)
}

// DeleteOwnedBy is Delete for a suite that must belong to owner. A suite
// owned by someone else is reported like a missing one and left in place.
func (s *Suites) DeleteOwnedBy(ctx context.Context, id, owner string) (bool, error) {
	suite, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, s.client.fail(OpDelete, id, fmt.Errorf("test suite not found: %w", errNoData))
		}
		return false, s.client.fail(OpDelete, id, err)
	}
	if suite.CreatedBy != owner {
		log.Printf("SECURITY: %s tried to delete test suite %s owned by %s", owner, id, suite.CreatedBy)
		return false, s.client.fail(OpDelete, id, fmt.Errorf("test suite not owned by %s: %w", owner, errNoData))
	}
	return s.client.delete(ctx, id)
}
