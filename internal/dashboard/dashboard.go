// Package dashboard holds the suite list of one user's dashboard page.
//
// The collection changes only after its Source confirms a change, so a
// failed call never leaves the list out of sync with what was persisted.
// A Dashboard is not safe for concurrent use.
package dashboard

import (
	"context"
	"log"

	"github.com/testforge/suite-service/internal/domain"
	"github.com/testforge/suite-service/internal/notify"
	"github.com/testforge/suite-service/internal/service"
)

// Toast texts
const (
	MsgCreated      = "Test suite created successfully!"
	MsgDeleted      = "Test suite deleted successfully!"
	MsgLoadFailed   = "Failed to load test suites: "
	MsgCreateFailed = "Failed to create test suite: "
	MsgDeleteFailed = "Failed to delete test suite: "
)

// Source persists the suites shown on a dashboard
type Source interface {
	List(ctx context.Context) ([]domain.TestSuite, error)
	Save(ctx context.Context, suite domain.TestSuite) (domain.TestSuite, error)
	Delete(ctx context.Context, id string) error
}

// Dashboard is the list state machine
type Dashboard struct {
	source   Source
	notifier notify.Notifier
	suites   []domain.TestSuite
	loading  bool
	loaded   bool
}

// New creates a dashboard that has not loaded yet
func New(source Source, notifier notify.Notifier) *Dashboard {
	return &Dashboard{
		source:   source,
		notifier: notifier,
		suites:   []domain.TestSuite{},
		loading:  true,
	}
}

// Load replaces the collection with the source's list. On failure the
// previous collection is kept.
func (d *Dashboard) Load(ctx context.Context) error {
	d.loading = true
	defer func() {
		d.loading = false
		d.loaded = true
	}()

	suites, err := d.source.List(ctx)
	if err != nil {
		d.notifier.Error(MsgLoadFailed + service.Message(err))
		return err
	}
	if suites == nil {
		suites = []domain.TestSuite{}
	}
	d.suites = suites
	return nil
}

// EnsureLoaded loads the list the first time it is called
func (d *Dashboard) EnsureLoaded(ctx context.Context) error {
	if d.loaded {
		return nil
	}
	return d.Load(ctx)
}

// Add persists a new suite and appends what the source stored
func (d *Dashboard) Add(ctx context.Context, suite domain.TestSuite) (domain.TestSuite, error) {
	saved, err := d.source.Save(ctx, suite)
	if err != nil {
		d.notifier.Error(MsgCreateFailed + service.Message(err))
		return domain.TestSuite{}, err
	}

	d.suites = append(d.suites, saved)
	log.Printf("DATA: Test suite %s created by %s", saved.ID, saved.CreatedBy)
	d.notifier.Success(MsgCreated)
	return saved, nil
}

// Delete removes a suite from the source and then from the collection
func (d *Dashboard) Delete(ctx context.Context, id string) error {
	if err := d.source.Delete(ctx, id); err != nil {
		d.notifier.Error(MsgDeleteFailed + service.Message(err))
		return err
	}

	kept := d.suites[:0:0]
	for _, s := range d.suites {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	d.suites = kept
	log.Printf("DATA: Test suite %s deleted", id)
	d.notifier.Success(MsgDeleted)
	return nil
}

// Suites returns a copy of the collection in display order
func (d *Dashboard) Suites() []domain.TestSuite {
	out := make([]domain.TestSuite, 0, len(d.suites))
	for _, s := range d.suites {
		out = append(out, s.Clone())
	}
	return out
}

// Empty reports whether the empty-state call to action should be shown
func (d *Dashboard) Empty() bool {
	return len(d.suites) == 0
}

// Loading reports whether a list request is outstanding or the first one
// has not been made yet
func (d *Dashboard) Loading() bool {
	return d.loading
}
