package domain

import (
	"fmt"
	"strings"
	"time"
)

// Environment is the target platform of a test suite
type Environment string

const (
	EnvironmentWeb    Environment = "web"
	EnvironmentMobile Environment = "mobile"
	EnvironmentAPI    Environment = "api"
)

// Environments lists the accepted environments in display order
var Environments = []Environment{EnvironmentWeb, EnvironmentMobile, EnvironmentAPI}

// ParseEnvironment converts a string into an Environment
func ParseEnvironment(s string) (Environment, error) {
	for _, env := range Environments {
		if string(env) == s {
			return env, nil
		}
	}
	return "", fmt.Errorf("invalid environment %q: must be one of web, mobile, api", s)
}

// Title returns the capitalized form used by the pages
func (e Environment) Title() string {
	return capitalize(string(e))
}

// Priority is the urgency tag of a suite, copied onto its cases
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists the accepted priorities in display order
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// ParsePriority converts a string into a Priority
func ParsePriority(s string) (Priority, error) {
	for _, p := range Priorities {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid priority %q: must be one of low, medium, high", s)
}

// Title returns the capitalized form used by the pages
func (p Priority) Title() string {
	return capitalize(string(p))
}

// Status is the lifecycle status of a test case
type Status string

const (
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusDeprecated Status = "deprecated"
)

// ParseStatus converts a string into a Status. An empty string means active.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case "":
		return StatusActive, nil
	case StatusActive, StatusInactive, StatusDeprecated:
		return Status(s), nil
	}
	return "", fmt.Errorf("invalid status %q: must be one of active, inactive, deprecated", s)
}

// TestSuite is a named collection of test cases sharing environment and priority
type TestSuite struct {
	ID          string      `json:"id" yaml:"id,omitempty"`
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description,omitempty"`
	Environment Environment `json:"environment" yaml:"environment"`
	Priority    Priority    `json:"priority" yaml:"priority"`
	Tags        []string    `json:"tags" yaml:"tags,omitempty"`
	CreatedAt   time.Time   `json:"createdAt" yaml:"created_at,omitempty"`
	UpdatedAt   time.Time   `json:"updatedAt" yaml:"updated_at,omitempty"`
	CreatedBy   string      `json:"createdBy" yaml:"created_by,omitempty"`
	TestCases   []TestCase  `json:"testCases" yaml:"test_cases,omitempty"`
}

// TestCase is a single named scenario belonging to one suite
type TestCase struct {
	ID          string    `json:"id" yaml:"id,omitempty"`
	SuiteID     string    `json:"testSuiteId,omitempty" yaml:"test_suite_id,omitempty"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description,omitempty"`
	Priority    Priority  `json:"priority,omitempty" yaml:"priority,omitempty"`
	Status      Status    `json:"status,omitempty" yaml:"status,omitempty"`
	Tags        []string  `json:"tags" yaml:"tags,omitempty"`
	Steps       []string  `json:"steps" yaml:"steps,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty" yaml:"created_at,omitempty"`
	CreatedBy   string    `json:"createdBy,omitempty" yaml:"created_by,omitempty"`
}

// Validate checks the invariants a suite must hold before persistence
func (s *TestSuite) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("test suite name is required")
	}
	if _, err := ParseEnvironment(string(s.Environment)); err != nil {
		return err
	}
	if _, err := ParsePriority(string(s.Priority)); err != nil {
		return err
	}
	for i := range s.TestCases {
		if strings.TrimSpace(s.TestCases[i].Name) == "" {
			return fmt.Errorf("test case %d has no name", i+1)
		}
	}
	return nil
}

// ApplyDefaults fills the unset fields of a suite and of its cases
func (s *TestSuite) ApplyDefaults() {
	if s.Environment == "" {
		s.Environment = EnvironmentWeb
	}
	if s.Priority == "" {
		s.Priority = PriorityMedium
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	for i := range s.TestCases {
		s.TestCases[i].InheritFrom(*s)
	}
}

// InheritFrom fills the unset fields of a case from its suite. Tags
// default to the suite's environment.
func (c *TestCase) InheritFrom(s TestSuite) {
	if c.Status == "" {
		c.Status = StatusActive
	}
	if c.Priority == "" {
		c.Priority = s.Priority
	}
	if c.Tags == nil {
		c.Tags = []string{string(s.Environment)}
	}
	if c.Steps == nil {
		c.Steps = []string{}
	}
}

// Clone returns a deep copy of the suite
func (s TestSuite) Clone() TestSuite {
	s.Tags = copyStrings(s.Tags)
	if s.TestCases != nil {
		cases := make([]TestCase, len(s.TestCases))
		for i, tc := range s.TestCases {
			cases[i] = tc.Clone()
		}
		s.TestCases = cases
	}
	return s
}

// Clone returns a deep copy of the case
func (c TestCase) Clone() TestCase {
	c.Tags = copyStrings(c.Tags)
	c.Steps = copyStrings(c.Steps)
	return c
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
