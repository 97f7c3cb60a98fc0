package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/testforge/suite-service/internal/domain"
	"github.com/testforge/suite-service/internal/storage"
)

// Backend field names that are specific to this application's entities
const (
	fieldDescription = "description"
	fieldEnvironment = "environment"
	fieldPriority    = "priority"
	fieldStatus      = "status"
	fieldTestSuite   = "test_suite"
	fieldTestCases   = "test_cases"
)

// suiteFields is the field selection used when listing suites
var suiteFields = []string{
	storage.FieldID,
	storage.FieldName,
	storage.FieldTags,
	storage.FieldOwner,
	storage.FieldCreatedOn,
	fieldDescription,
	fieldEnvironment,
	fieldPriority,
	fieldTestCases,
}

// caseFields is the field selection used when listing cases
var caseFields = []string{
	storage.FieldID,
	storage.FieldName,
	storage.FieldTags,
	storage.FieldOwner,
	storage.FieldCreatedOn,
	fieldDescription,
	fieldTestSuite,
	fieldPriority,
	fieldStatus,
}

// suiteToRecord maps a suite onto backend field names. Cases travel inside
// the suite record so a suite and its cases are stored as one payload; the
// backend assigns the suite id, so embedded cases carry no test_suite.
func suiteToRecord(s domain.TestSuite) storage.Record {
	cases := make([]storage.Record, 0, len(s.TestCases))
	for _, tc := range s.TestCases {
		rec := caseToRecord(tc)
		delete(rec, fieldTestSuite)
		if tc.ID != "" {
			rec[storage.FieldID] = tc.ID
		}
		cases = append(cases, rec)
	}

	rec := storage.Record{
		storage.FieldName: s.Name,
		fieldDescription:  s.Description,
		fieldEnvironment:  string(s.Environment),
		fieldPriority:     string(s.Priority),
		storage.FieldTags: nonNil(s.Tags),
		fieldTestCases:    cases,
	}
	if s.CreatedBy != "" {
		rec[storage.FieldOwner] = s.CreatedBy
	}
	return rec
}

// suiteFromRecord maps a backend record back onto a suite. Embedded cases
// always belong to the suite they were read from.
func suiteFromRecord(rec storage.Record) domain.TestSuite {
	created := timeField(rec, storage.FieldCreatedOn)
	s := domain.TestSuite{
		ID:          stringField(rec, storage.FieldID),
		Name:        stringField(rec, storage.FieldName),
		Description: stringField(rec, fieldDescription),
		Environment: domain.Environment(stringField(rec, fieldEnvironment)),
		Priority:    domain.Priority(stringField(rec, fieldPriority)),
		Tags:        stringsField(rec, storage.FieldTags),
		CreatedAt:   created,
		UpdatedAt:   created,
		CreatedBy:   stringField(rec, storage.FieldOwner),
		TestCases:   []domain.TestCase{},
	}

	for _, item := range recordsField(rec, fieldTestCases) {
		tc := caseFromRecord(item)
		tc.SuiteID = s.ID
		if tc.CreatedAt.IsZero() {
			tc.CreatedAt = created
		}
		s.TestCases = append(s.TestCases, tc)
	}
	return s
}

// caseToRecord maps a case onto backend field names
func caseToRecord(c domain.TestCase) storage.Record {
	status := c.Status
	if status == "" {
		status = domain.StatusActive
	}
	rec := storage.Record{
		storage.FieldName: c.Name,
		fieldDescription:  c.Description,
		fieldPriority:     string(c.Priority),
		fieldStatus:       string(status),
		storage.FieldTags: nonNil(c.Tags),
	}
	if c.SuiteID != "" {
		rec[fieldTestSuite] = c.SuiteID
	}
	if c.CreatedBy != "" {
		rec[storage.FieldOwner] = c.CreatedBy
	}
	return rec
}

// caseFromRecord maps a backend record back onto a case
func caseFromRecord(rec storage.Record) domain.TestCase {
	return domain.TestCase{
		ID:          stringField(rec, storage.FieldID),
		SuiteID:     stringField(rec, fieldTestSuite),
		Name:        stringField(rec, storage.FieldName),
		Description: stringField(rec, fieldDescription),
		Priority:    domain.Priority(stringField(rec, fieldPriority)),
		Status:      domain.Status(stringField(rec, fieldStatus)),
		Tags:        stringsField(rec, storage.FieldTags),
		Steps:       []string{},
		CreatedAt:   timeField(rec, storage.FieldCreatedOn),
		CreatedBy:   stringField(rec, storage.FieldOwner),
	}
}

func stringField(rec storage.Record, key string) string {
	switch v := rec[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		// JSON numbers, e.g. numeric ids from a hosted backend
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// stringsField accepts string slices, JSON arrays and comma-separated strings
func stringsField(rec storage.Record, key string) []string {
	switch v := rec[key].(type) {
	case []string:
		return nonNil(append([]string(nil), v...))
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		out := []string{}
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return []string{}
}

func recordsField(rec storage.Record, key string) []storage.Record {
	switch v := rec[key].(type) {
	case []storage.Record:
		return v
	case []map[string]interface{}:
		out := make([]storage.Record, 0, len(v))
		for _, m := range v {
			out = append(out, storage.Record(m))
		}
		return out
	case []interface{}:
		out := make([]storage.Record, 0, len(v))
		for _, item := range v {
			switch m := item.(type) {
			case map[string]interface{}:
				out = append(out, storage.Record(m))
			case storage.Record:
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

func timeField(rec storage.Record, key string) time.Time {
	t, _ := storage.ParseTime(rec[key])
	return t
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
