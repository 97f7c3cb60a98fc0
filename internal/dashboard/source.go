package dashboard

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/testforge/suite-service/internal/domain"
	"github.com/testforge/suite-service/internal/localstore"
	"github.com/testforge/suite-service/internal/service"
)

// NetworkSource keeps suites on the backend through the service layer,
// scoped to one owner
type NetworkSource struct {
	suites *service.Suites
	owner  string
}

// NewNetworkSource creates a source for the suites owned by owner
func NewNetworkSource(suites *service.Suites, owner string) *NetworkSource {
	return &NetworkSource{suites: suites, owner: owner}
}

// List returns the owner's suites, newest first
func (n *NetworkSource) List(ctx context.Context) ([]domain.TestSuite, error) {
	return n.suites.ListOwnedBy(ctx, n.owner)
}

// Save validates the suite and creates it on the backend as the owner's
func (n *NetworkSource) Save(ctx context.Context, suite domain.TestSuite) (domain.TestSuite, error) {
	if err := suite.Validate(); err != nil {
		return domain.TestSuite{}, err
	}
	suite.CreatedBy = n.owner
	return n.suites.Create(ctx, suite)
}

// Delete removes one of the owner's suites. Suites of other users are
// reported as not found and left untouched.
func (n *NetworkSource) Delete(ctx context.Context, id string) error {
	_, err := n.suites.DeleteOwnedBy(ctx, id, n.owner)
	return err
}

// SuitesKey is the local store key holding the offline suite list
const SuitesKey = "testSuites"

// LocalSource keeps the whole suite list of one user under SuitesKey and
// rewrites it on every change. Order is insertion order.
type LocalSource struct {
	store  localstore.Store
	userID uuid.UUID
}

// NewLocalSource creates a source over the local store of userID
func NewLocalSource(store localstore.Store, userID uuid.UUID) *LocalSource {
	return &LocalSource{store: store, userID: userID}
}

// List returns the stored suites in insertion order; nothing stored is an
// empty list
func (l *LocalSource) List(ctx context.Context) ([]domain.TestSuite, error) {
	suites := []domain.TestSuite{}
	if _, err := localstore.GetJSON(ctx, l.store, l.userID, SuitesKey, &suites); err != nil {
		return nil, fmt.Errorf("failed to read local test suites: %w", err)
	}
	return suites, nil
}

// Save validates the suite, gives it an id when it has none and appends it
func (l *LocalSource) Save(ctx context.Context, suite domain.TestSuite) (domain.TestSuite, error) {
	if err := suite.Validate(); err != nil {
		return domain.TestSuite{}, err
	}

	suites, err := l.List(ctx)
	if err != nil {
		return domain.TestSuite{}, err
	}
	if suite.ID == "" {
		suite.ID = uuid.NewString()
	}
	suites = append(suites, suite)

	if err := localstore.SetJSON(ctx, l.store, l.userID, SuitesKey, suites); err != nil {
		return domain.TestSuite{}, fmt.Errorf("failed to write local test suites: %w", err)
	}
	return suite, nil
}

// Delete drops the suite with id; an unknown id leaves the list as is
func (l *LocalSource) Delete(ctx context.Context, id string) error {
	suites, err := l.List(ctx)
	if err != nil {
		return err
	}

	kept := make([]domain.TestSuite, 0, len(suites))
	for _, s := range suites {
		if s.ID != id {
			kept = append(kept, s)
		}
	}

	if err := localstore.SetJSON(ctx, l.store, l.userID, SuitesKey, kept); err != nil {
		return fmt.Errorf("failed to write local test suites: %w", err)
	}
	return nil
}
