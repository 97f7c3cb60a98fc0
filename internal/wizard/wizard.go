// Package wizard implements the two-step form that builds a test suite.
//
// Step 1 collects the suite fields, step 2 the list of test cases. The
// wizard never persists anything itself: a successful Submit hands the
// finished suite to the OnSubmit callback and resets the form.
//
// A Wizard is not safe for concurrent use.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/testforge/suite-service/internal/domain"
	"github.com/testforge/suite-service/internal/notify"
)

// Steps of the form
const (
	StepSuite = 1
	StepCases = 2
)

// Draft case fields accepted by UpdateTestCase
const (
	FieldName        = "name"
	FieldDescription = "description"
)

// Toast texts
const (
	MsgNameRequired     = "Please enter a test suite name"
	MsgCaseNameRequired = "All test cases must have a name"
	MsgLastCase         = "You must have at least one test case"
	MsgRunNotAvailable  = "This would run your test in a real implementation!"
)

var (
	// ErrValidation is matched by every refused operation. The error text
	// is the toast that explains the refusal.
	ErrValidation = errors.New("validation failed")
	// ErrCaseNotFound is returned for an unknown draft case id
	ErrCaseNotFound = errors.New("test case not found")
	// ErrUnknownField is returned by UpdateTestCase for fields other than
	// name and description
	ErrUnknownField = errors.New("unknown test case field")
)

// refusal is a validation error whose text is the toast shown for it
type refusal string

func (r refusal) Error() string        { return string(r) }
func (r refusal) Is(target error) bool { return target == ErrValidation }

// refuse toasts msg and returns it as an error matching ErrValidation
func (w *Wizard) refuse(msg string) error {
	w.notifier.Error(msg)
	return refusal(msg)
}

// Draft is a test case being edited
type Draft struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// State is a copy of the form for rendering
type State struct {
	Step        int                `json:"step"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Environment domain.Environment `json:"environment"`
	Priority    domain.Priority    `json:"priority"`
	TestCases   []Draft            `json:"testCases"`
}

// SubmitFunc receives every successfully submitted suite
type SubmitFunc func(ctx context.Context, suite domain.TestSuite)

// Wizard is the form state machine
type Wizard struct {
	state    State
	owner    string
	notifier notify.Notifier
	now      func() time.Time

	// OnSubmit is called with the built suite before the form resets
	OnSubmit SubmitFunc
}

// New creates a wizard in its initial state. owner becomes CreatedBy of
// every submitted suite.
func New(owner string, notifier notify.Notifier) *Wizard {
	w := &Wizard{
		owner:    owner,
		notifier: notifier,
		now:      time.Now,
	}
	w.reset()
	return w
}

func (w *Wizard) reset() {
	w.state = State{
		Step:        StepSuite,
		Environment: domain.EnvironmentWeb,
		Priority:    domain.PriorityMedium,
		TestCases:   []Draft{newDraft()},
	}
}

func newDraft() Draft {
	return Draft{ID: uuid.NewString()}
}

// Snapshot returns a copy of the current state
func (w *Wizard) Snapshot() State {
	s := w.state
	s.TestCases = append([]Draft(nil), w.state.TestCases...)
	return s
}

// SetName sets the suite name; it is checked on NextStep and Submit
func (w *Wizard) SetName(name string) { w.state.Name = name }

// SetDescription sets the optional suite description
func (w *Wizard) SetDescription(description string) { w.state.Description = description }

// SetEnvironment sets the target environment. Unknown values are refused
// and leave the form unchanged.
func (w *Wizard) SetEnvironment(value string) error {
	env, err := domain.ParseEnvironment(value)
	if err != nil {
		return err
	}
	w.state.Environment = env
	return nil
}

// SetPriority sets the suite priority, which submitted cases inherit.
// Unknown values are refused and leave the form unchanged.
func (w *Wizard) SetPriority(value string) error {
	p, err := domain.ParsePriority(value)
	if err != nil {
		return err
	}
	w.state.Priority = p
	return nil
}

func (w *Wizard) checkName() error {
	if strings.TrimSpace(w.state.Name) == "" {
		return w.refuse(MsgNameRequired)
	}
	return nil
}

// NextStep moves to the test case step once the suite has a name
func (w *Wizard) NextStep() error {
	if err := w.checkName(); err != nil {
		return err
	}
	w.state.Step = StepCases
	return nil
}

// PreviousStep returns to the suite step
func (w *Wizard) PreviousStep() {
	w.state.Step = StepSuite
}

// AddTestCase appends an empty draft case
func (w *Wizard) AddTestCase() Draft {
	d := newDraft()
	w.state.TestCases = append(w.state.TestCases, d)
	return d
}

func (w *Wizard) indexOf(id string) int {
	for i, d := range w.state.TestCases {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// RemoveTestCase deletes a draft case. The last remaining case is kept.
func (w *Wizard) RemoveTestCase(id string) error {
	if len(w.state.TestCases) == 1 {
		return w.refuse(MsgLastCase)
	}

	i := w.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrCaseNotFound, id)
	}
	w.state.TestCases = append(w.state.TestCases[:i:i], w.state.TestCases[i+1:]...)
	return nil
}

// UpdateTestCase sets the name or description of a draft case
func (w *Wizard) UpdateTestCase(id, field, value string) error {
	i := w.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrCaseNotFound, id)
	}

	switch field {
	case FieldName:
		w.state.TestCases[i].Name = value
	case FieldDescription:
		w.state.TestCases[i].Description = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

// RunTestCase only tells the user that running tests is not available
func (w *Wizard) RunTestCase(id string) error {
	if w.indexOf(id) < 0 {
		return fmt.Errorf("%w: %s", ErrCaseNotFound, id)
	}
	w.notifier.Info(MsgRunNotAvailable)
	return nil
}

// Submit validates the form, passes the suite to OnSubmit and resets the
// form. A refused submit emits exactly one toast and leaves the form as is.
func (w *Wizard) Submit(ctx context.Context) (domain.TestSuite, error) {
	if err := w.checkName(); err != nil {
		return domain.TestSuite{}, err
	}
	for _, d := range w.state.TestCases {
		if strings.TrimSpace(d.Name) == "" {
			return domain.TestSuite{}, w.refuse(MsgCaseNameRequired)
		}
	}

	suite := w.build()
	if w.OnSubmit != nil {
		w.OnSubmit(ctx, suite.Clone())
	}
	w.reset()
	return suite, nil
}

func (w *Wizard) build() domain.TestSuite {
	now := w.now().UTC()
	suite := domain.TestSuite{
		ID:          uuid.NewString(),
		Name:        w.state.Name,
		Description: w.state.Description,
		Environment: w.state.Environment,
		Priority:    w.state.Priority,
		Tags:        []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatedBy:   w.owner,
		TestCases:   make([]domain.TestCase, 0, len(w.state.TestCases)),
	}

	for _, d := range w.state.TestCases {
		suite.TestCases = append(suite.TestCases, domain.TestCase{
			ID:          d.ID,
			SuiteID:     suite.ID,
			Name:        d.Name,
			Description: d.Description,
			Priority:    suite.Priority,
			Status:      domain.StatusActive,
			Tags:        []string{string(suite.Environment)},
			Steps:       []string{},
			CreatedAt:   now,
			CreatedBy:   w.owner,
		})
	}
	return suite
}
