package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/testforge/suite-service/internal/metrics"
	"github.com/testforge/suite-service/internal/storage"
)

// Operation names used for errors, logs and metrics
const (
	OpList   = "list"
	OpGet    = "get"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// entityClient runs the generic record operations for one entity and
// enforces the failure contract shared by suites and cases
type entityClient struct {
	backend storage.Backend
	entity  string
	label   string // singular, e.g. "test suite"
	plural  string
	fields  []string
}

// backendError is a failure reported by the backend in its response body
type backendError struct {
	message string
}

func (e *backendError) Error() string {
	return e.message
}

var errNoData = errors.New("no data returned")

func (c *entityClient) fixedMessage(op string) string {
	switch op {
	case OpList:
		return fmt.Sprintf("Failed to fetch %s", c.plural)
	case OpGet:
		return fmt.Sprintf("Failed to fetch %s details", c.label)
	default:
		return fmt.Sprintf("Failed to %s %s", op, c.label)
	}
}

// fail logs the original error and collapses it into a *Error
func (c *entityClient) fail(op, id string, err error) error {
	if id != "" {
		log.Printf("ERROR: Failed to %s %s with ID %s: %v", op, c.label, id, err)
	} else {
		log.Printf("ERROR: Failed to %s %s: %v", op, c.label, err)
	}
	metrics.RecordServiceOperation(c.entity, op, metrics.ResultError)

	serr := &Error{
		Entity:   c.entity,
		Op:       op,
		Message:  c.fixedMessage(op),
		notFound: errors.Is(err, errNoData),
	}
	var berr *backendError
	if errors.As(err, &berr) {
		serr.Detail = berr.message
	}
	return serr
}

func (c *entityClient) ok(op string) {
	metrics.RecordServiceOperation(c.entity, op, metrics.ResultSuccess)
}

func (c *entityClient) list(ctx context.Context, where ...storage.Condition) ([]storage.Record, error) {
	query := storage.Query{
		Fields: c.fields,
		Where: append([]storage.Condition{{
			FieldName: storage.FieldIsDeleted,
			Operator:  storage.OperatorExactMatch,
			Values:    []interface{}{false},
		}}, where...),
		OrderBy: []storage.OrderBy{{Field: storage.FieldCreatedOn, Direction: storage.DirectionDesc}},
	}

	resp, err := c.backend.FetchRecords(ctx, c.entity, query)
	if err != nil {
		return nil, c.fail(OpList, "", err)
	}
	c.ok(OpList)

	if resp == nil || resp.Data == nil {
		return []storage.Record{}, nil
	}
	return resp.Data, nil
}

func (c *entityClient) get(ctx context.Context, id string) (storage.Record, error) {
	resp, err := c.backend.GetRecordByID(ctx, c.entity, id)
	if err != nil {
		return nil, c.fail(OpGet, id, err)
	}
	if resp == nil || resp.Data == nil {
		return nil, c.fail(OpGet, id, fmt.Errorf("%s not found: %w", c.label, errNoData))
	}
	c.ok(OpGet)
	return resp.Data, nil
}

// mutate checks a create or update response and returns the first result
func (c *entityClient) mutate(op string, resp *storage.MutateResponse) (storage.Record, error) {
	if resp == nil || !resp.Success {
		msg := c.fixedMessage(op)
		if resp != nil && resp.Message != "" {
			msg = resp.Message
		}
		return nil, &backendError{message: msg}
	}

	if len(resp.Results) == 0 || !resp.Results[0].Success {
		msg := fmt.Sprintf("Unknown error %s %s", progressive(op), c.label)
		if len(resp.Results) > 0 && resp.Results[0].Message != "" {
			msg = resp.Results[0].Message
		}
		return nil, &backendError{message: msg}
	}

	return resp.Results[0].Data, nil
}

func (c *entityClient) create(ctx context.Context, rec storage.Record) (storage.Record, error) {
	resp, err := c.backend.CreateRecord(ctx, c.entity, storage.RecordsParams{Records: []storage.Record{rec}})
	if err != nil {
		return nil, c.fail(OpCreate, "", err)
	}
	data, err := c.mutate(OpCreate, resp)
	if err != nil {
		return nil, c.fail(OpCreate, "", err)
	}
	c.ok(OpCreate)
	return data, nil
}

func (c *entityClient) update(ctx context.Context, id string, rec storage.Record) (storage.Record, error) {
	rec[storage.FieldID] = id
	resp, err := c.backend.UpdateRecord(ctx, c.entity, storage.RecordsParams{Records: []storage.Record{rec}})
	if err != nil {
		return nil, c.fail(OpUpdate, id, err)
	}
	data, err := c.mutate(OpUpdate, resp)
	if err != nil {
		return nil, c.fail(OpUpdate, id, err)
	}
	c.ok(OpUpdate)
	return data, nil
}

func (c *entityClient) delete(ctx context.Context, id string) (bool, error) {
	resp, err := c.backend.DeleteRecord(ctx, c.entity, storage.DeleteParams{RecordIDs: []string{id}})
	if err != nil {
		return false, c.fail(OpDelete, id, err)
	}
	if resp == nil || !resp.Success {
		msg := c.fixedMessage(OpDelete)
		if resp != nil && resp.Message != "" {
			msg = resp.Message
		}
		return false, c.fail(OpDelete, id, &backendError{message: msg})
	}
	c.ok(OpDelete)
	return true, nil
}

func progressive(op string) string {
	switch op {
	case OpCreate:
		return "creating"
	case OpUpdate:
		return "updating"
	}
	return op
}
