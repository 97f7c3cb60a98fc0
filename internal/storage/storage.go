package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrUnknownEntity = errors.New("unknown entity")
)

// Entity names known to the backend
const (
	EntityTestSuite = "test_suite"
	EntityTestCase  = "test_case"
)

// System fields maintained by every backend
const (
	FieldID        = "Id"
	FieldName      = "Name"
	FieldTags      = "Tags"
	FieldOwner     = "Owner"
	FieldCreatedOn = "CreatedOn"
	FieldIsDeleted = "IsDeleted"
)

// Operators and directions understood by FetchRecords
const (
	OperatorExactMatch = "ExactMatch"

	DirectionAsc  = "asc"
	DirectionDesc = "desc"
)

// Record is a single backend record keyed by backend field name
type Record map[string]interface{}

// Condition restricts fetched records to those whose field matches one of values
type Condition struct {
	FieldName string        `json:"fieldName"`
	Operator  string        `json:"Operator"`
	Values    []interface{} `json:"values"`
}

// OrderBy sorts fetched records by field
type OrderBy struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// Query selects, filters and orders records
type Query struct {
	Fields  []string    `json:"Fields"`
	Where   []Condition `json:"where"`
	OrderBy []OrderBy   `json:"orderBy"`
}

// RecordsParams carries the records of a create or update call
type RecordsParams struct {
	Records []Record `json:"records"`
}

// DeleteParams carries the ids of a delete call
type DeleteParams struct {
	RecordIDs []string `json:"RecordIds"`
}

// FetchResponse is returned by FetchRecords
type FetchResponse struct {
	Success bool     `json:"success"`
	Data    []Record `json:"data"`
	Message string   `json:"message,omitempty"`
}

// GetResponse is returned by GetRecordByID. Data is nil when no record matched.
type GetResponse struct {
	Success bool   `json:"success"`
	Data    Record `json:"data"`
	Message string `json:"message,omitempty"`
}

// Result is the per-record outcome of a create or update call
type Result struct {
	Success bool   `json:"success"`
	Data    Record `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// MutateResponse is returned by CreateRecord and UpdateRecord
type MutateResponse struct {
	Success bool     `json:"success"`
	Results []Result `json:"results"`
	Message string   `json:"message,omitempty"`
}

// DeleteResponse is returned by DeleteRecord
type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Backend is the client of the backend data provider. Responses carry the
// provider's own success flag; a returned error means the call itself failed.
type Backend interface {
	// FetchRecords lists records of an entity
	FetchRecords(ctx context.Context, entity string, query Query) (*FetchResponse, error)

	// GetRecordByID retrieves one record
	GetRecordByID(ctx context.Context, entity string, id string) (*GetResponse, error)

	// CreateRecord stores new records, assigning ids and creation times
	CreateRecord(ctx context.Context, entity string, params RecordsParams) (*MutateResponse, error)

	// UpdateRecord replaces fields of existing records keyed by Id
	UpdateRecord(ctx context.Context, entity string, params RecordsParams) (*MutateResponse, error)

	// DeleteRecord soft-deletes records
	DeleteRecord(ctx context.Context, entity string, params DeleteParams) (*DeleteResponse, error)
}

// KnownEntity reports whether entity is served by the backends
func KnownEntity(entity string) bool {
	return entity == EntityTestSuite || entity == EntityTestCase
}
