package wizard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testforge/suite-service/internal/domain"
	"github.com/testforge/suite-service/internal/notify"
)

// recorder keeps toasts in the order they were emitted
type recorder struct {
	toasts []notify.Toast
}

func (r *recorder) Success(m string) { r.toasts = append(r.toasts, notify.Toast{Level: notify.LevelSuccess, Message: m}) }
func (r *recorder) Error(m string)   { r.toasts = append(r.toasts, notify.Toast{Level: notify.LevelError, Message: m}) }
func (r *recorder) Info(m string)    { r.toasts = append(r.toasts, notify.Toast{Level: notify.LevelInfo, Message: m}) }

func newWizard(t *testing.T) (*Wizard, *recorder, *[]domain.TestSuite) {
	t.Helper()

	rec := &recorder{}
	submitted := &[]domain.TestSuite{}
	w := New("user-1", rec)
	w.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	w.OnSubmit = func(ctx context.Context, s domain.TestSuite) {
		*submitted = append(*submitted, s)
	}
	return w, rec, submitted
}

func assertInitial(t *testing.T, s State) {
	t.Helper()

	assert.Equal(t, StepSuite, s.Step)
	assert.Empty(t, s.Name)
	assert.Empty(t, s.Description)
	assert.Equal(t, domain.EnvironmentWeb, s.Environment)
	assert.Equal(t, domain.PriorityMedium, s.Priority)
	require.Len(t, s.TestCases, 1)
	assert.NotEmpty(t, s.TestCases[0].ID)
	assert.Empty(t, s.TestCases[0].Name)
	assert.Empty(t, s.TestCases[0].Description)
}

func TestNewWizardInitialState(t *testing.T) {
	w, _, _ := newWizard(t)
	assertInitial(t, w.Snapshot())
}

func TestNextStep(t *testing.T) {
	tests := []struct {
		name     string
		suite    string
		wantStep int
		wantErr  bool
	}{
		{name: "blank name", suite: "", wantStep: StepSuite, wantErr: true},
		{name: "whitespace name", suite: "   ", wantStep: StepSuite, wantErr: true},
		{name: "named suite", suite: "Login Flow", wantStep: StepCases},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, rec, _ := newWizard(t)
			w.SetName(tt.suite)

			err := w.NextStep()
			assert.Equal(t, tt.wantStep, w.Snapshot().Step)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				require.Len(t, rec.toasts, 1)
				assert.Equal(t, MsgNameRequired, rec.toasts[0].Message)
				assert.Equal(t, notify.LevelError, rec.toasts[0].Level)
			} else {
				assert.NoError(t, err)
				assert.Empty(t, rec.toasts)
			}
		})
	}
}

func TestPreviousStep(t *testing.T) {
	w, _, _ := newWizard(t)
	w.SetName("Login Flow")
	require.NoError(t, w.NextStep())

	w.PreviousStep()
	assert.Equal(t, StepSuite, w.Snapshot().Step)

	w.PreviousStep()
	assert.Equal(t, StepSuite, w.Snapshot().Step)
}

func TestSetEnvironmentAndPriority(t *testing.T) {
	w, rec, _ := newWizard(t)

	require.NoError(t, w.SetEnvironment("api"))
	require.NoError(t, w.SetPriority("low"))
	assert.Error(t, w.SetEnvironment("desktop"))
	assert.Error(t, w.SetPriority("urgent"))

	s := w.Snapshot()
	assert.Equal(t, domain.EnvironmentAPI, s.Environment)
	assert.Equal(t, domain.PriorityLow, s.Priority)
	assert.Empty(t, rec.toasts)
}

func TestAddTestCaseGeneratesUniqueIDs(t *testing.T) {
	w, _, _ := newWizard(t)

	a := w.AddTestCase()
	b := w.AddTestCase()

	s := w.Snapshot()
	require.Len(t, s.TestCases, 3)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, s.TestCases[0].ID, a.ID)
	assert.Equal(t, b, s.TestCases[2])
	assert.Empty(t, b.Name)
}

func TestRemoveLastTestCaseIsRefused(t *testing.T) {
	w, rec, _ := newWizard(t)
	only := w.Snapshot().TestCases[0]

	err := w.RemoveTestCase(only.ID)
	assert.ErrorIs(t, err, ErrValidation)
	assert.EqualError(t, err, MsgLastCase)
	assert.Len(t, w.Snapshot().TestCases, 1)
	require.Len(t, rec.toasts, 1)
	assert.Equal(t, MsgLastCase, rec.toasts[0].Message)
}

func TestRemoveTestCase(t *testing.T) {
	w, rec, _ := newWizard(t)
	first := w.Snapshot().TestCases[0]
	second := w.AddTestCase()
	third := w.AddTestCase()

	require.NoError(t, w.RemoveTestCase(second.ID))

	s := w.Snapshot()
	require.Len(t, s.TestCases, 2)
	assert.Equal(t, first.ID, s.TestCases[0].ID)
	assert.Equal(t, third.ID, s.TestCases[1].ID)

	assert.ErrorIs(t, w.RemoveTestCase("missing"), ErrCaseNotFound)
	assert.Empty(t, rec.toasts)
}

func TestUpdateTestCase(t *testing.T) {
	w, _, _ := newWizard(t)
	id := w.Snapshot().TestCases[0].ID

	require.NoError(t, w.UpdateTestCase(id, FieldName, "Valid login"))
	require.NoError(t, w.UpdateTestCase(id, FieldDescription, ""))
	assert.ErrorIs(t, w.UpdateTestCase(id, "steps", "x"), ErrUnknownField)
	assert.ErrorIs(t, w.UpdateTestCase("missing", FieldName, "x"), ErrCaseNotFound)

	d := w.Snapshot().TestCases[0]
	assert.Equal(t, "Valid login", d.Name)
	assert.Empty(t, d.Description)
}

func TestSnapshotIsACopy(t *testing.T) {
	w, _, _ := newWizard(t)

	s := w.Snapshot()
	s.TestCases[0].Name = "changed"

	assert.Empty(t, w.Snapshot().TestCases[0].Name)
}

func TestRunTestCase(t *testing.T) {
	w, rec, _ := newWizard(t)
	before := w.Snapshot()

	require.NoError(t, w.RunTestCase(before.TestCases[0].ID))
	assert.Equal(t, before, w.Snapshot())
	require.Len(t, rec.toasts, 1)
	assert.Equal(t, notify.LevelInfo, rec.toasts[0].Level)
	assert.Equal(t, MsgRunNotAvailable, rec.toasts[0].Message)

	assert.ErrorIs(t, w.RunTestCase("missing"), ErrCaseNotFound)
}

func TestSubmitWithoutNameNeverCallsBack(t *testing.T) {
	w, rec, submitted := newWizard(t)
	require.NoError(t, w.UpdateTestCase(w.Snapshot().TestCases[0].ID, FieldName, "Valid login"))

	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, *submitted)
	require.Len(t, rec.toasts, 1)
	assert.Equal(t, MsgNameRequired, rec.toasts[0].Message)
}

func TestSubmitWithBlankCaseNameNeverCallsBack(t *testing.T) {
	w, rec, submitted := newWizard(t)
	w.SetName("Login Flow")
	first := w.Snapshot().TestCases[0]
	require.NoError(t, w.UpdateTestCase(first.ID, FieldName, "Valid login"))
	second := w.AddTestCase()
	require.NoError(t, w.UpdateTestCase(second.ID, FieldName, "  "))

	before := w.Snapshot()
	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, *submitted)
	require.Len(t, rec.toasts, 1)
	assert.Equal(t, MsgCaseNameRequired, rec.toasts[0].Message)
	assert.Equal(t, before, w.Snapshot())
}

func TestSubmitLoginFlow(t *testing.T) {
	w, rec, submitted := newWizard(t)
	w.SetName("Login Flow")
	w.SetDescription("Sign in paths")
	require.NoError(t, w.SetEnvironment("web"))
	require.NoError(t, w.SetPriority("high"))
	require.NoError(t, w.NextStep())
	caseID := w.Snapshot().TestCases[0].ID
	require.NoError(t, w.UpdateTestCase(caseID, FieldName, "Valid login"))

	suite, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rec.toasts)

	require.Len(t, *submitted, 1)
	got := (*submitted)[0]
	assert.Equal(t, suite.ID, got.ID)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "Login Flow", got.Name)
	assert.Equal(t, "Sign in paths", got.Description)
	assert.Equal(t, domain.EnvironmentWeb, got.Environment)
	assert.Equal(t, domain.PriorityHigh, got.Priority)
	assert.Equal(t, "user-1", got.CreatedBy)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), got.CreatedAt)
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)

	require.Len(t, got.TestCases, 1)
	tc := got.TestCases[0]
	assert.Equal(t, caseID, tc.ID)
	assert.Equal(t, got.ID, tc.SuiteID)
	assert.Equal(t, "Valid login", tc.Name)
	assert.Equal(t, domain.PriorityHigh, tc.Priority)
	assert.Equal(t, []string{"web"}, tc.Tags)
	assert.Equal(t, domain.StatusActive, tc.Status)
	assert.Empty(t, tc.Steps)

	assertInitial(t, w.Snapshot())
	assert.NotEqual(t, caseID, w.Snapshot().TestCases[0].ID)
}

func TestSubmitWithoutCallback(t *testing.T) {
	w := New("user-1", &recorder{})
	w.SetName("Checkout")
	require.NoError(t, w.UpdateTestCase(w.Snapshot().TestCases[0].ID, FieldName, "Pay"))

	suite, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Checkout", suite.Name)
	assertInitial(t, w.Snapshot())
}
