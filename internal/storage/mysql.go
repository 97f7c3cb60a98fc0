package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// MySQLBackend implements Backend on MySQL. Each entity gets one table whose
// rows hold the system fields in columns and the remaining fields as a JSON
// document.
type MySQLBackend struct {
	db         *sql.DB
	tableMutex sync.Mutex // Protects table creation
	tablesOK   map[string]bool
}

// NewMySQLBackend creates a new MySQL backend with retry logic for startup
func NewMySQLBackend(dsn string) (*MySQLBackend, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	// Test connection with retry logic (for Docker startup delays)
	maxRetries := 30
	retryDelay := 1 * time.Second

	for i := 0; i < maxRetries; i++ {
		err = db.Ping()
		if err == nil {
			break
		}

		if i < maxRetries-1 {
			log.Printf("MySQL not ready yet (attempt %d/%d), retrying in %v...", i+1, maxRetries, retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL after %d attempts: %w", maxRetries, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return NewMySQLBackendFromDB(db), nil
}

// NewMySQLBackendFromDB wraps an already opened database handle
func NewMySQLBackendFromDB(db *sql.DB) *MySQLBackend {
	return &MySQLBackend{
		db:       db,
		tablesOK: make(map[string]bool),
	}
}

// ensureTable creates the entity table if it doesn't exist
func (s *MySQLBackend) ensureTable(ctx context.Context, entity string) error {
	if !KnownEntity(entity) {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}

	s.tableMutex.Lock()
	defer s.tableMutex.Unlock()

	if s.tablesOK[entity] {
		return nil
	}

	// entity is one of the known constants, safe to interpolate
	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq BIGINT AUTO_INCREMENT PRIMARY KEY,
			id VARCHAR(36) NOT NULL UNIQUE,
			created_on DATETIME(6) NOT NULL,
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			data JSON NOT NULL,
			INDEX idx_created_on (created_on)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`, entity)

	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", entity, err)
	}

	s.tablesOK[entity] = true
	return nil
}

func scanRecord(id string, createdOn time.Time, isDeleted bool, dataJSON []byte) (Record, error) {
	rec := Record{}
	if err := json.Unmarshal(dataJSON, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", id, err)
	}
	rec[FieldID] = id
	rec[FieldCreatedOn] = FormatTime(createdOn)
	rec[FieldIsDeleted] = isDeleted
	return rec, nil
}

// documentOf strips the column-backed fields from a record
func documentOf(rec Record) ([]byte, error) {
	doc := cloneRecord(rec)
	delete(doc, FieldID)
	delete(doc, FieldCreatedOn)
	delete(doc, FieldIsDeleted)
	return json.Marshal(doc)
}

// whereClause turns the exact-match conditions MySQL can evaluate into a
// WHERE clause: the id and deleted columns, and string fields of the JSON
// document. Every condition is still checked on the decoded rows, so the
// clause only narrows what is read.
func whereClause(where []Condition) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	for _, cond := range where {
		if cond.Operator != OperatorExactMatch || len(cond.Values) == 0 {
			continue
		}

		switch cond.FieldName {
		case FieldIsDeleted:
			if len(cond.Values) != 1 {
				continue
			}
			deleted, ok := cond.Values[0].(bool)
			if !ok {
				continue
			}
			clauses = append(clauses, "is_deleted = ?")
			args = append(args, deleted)
		case FieldCreatedOn:
			continue
		default:
			values, ok := stringValues(cond.Values)
			if !ok {
				continue
			}
			column := "JSON_UNQUOTE(JSON_EXTRACT(data, ?))"
			columnArgs := []interface{}{`$."` + cond.FieldName + `"`}
			if cond.FieldName == FieldID {
				column, columnArgs = "id", nil
			} else if strings.ContainsAny(cond.FieldName, `"\`) {
				continue
			}
			clauses = append(clauses, column+" IN (?"+strings.Repeat(", ?", len(values)-1)+")")
			args = append(args, columnArgs...)
			args = append(args, values...)
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func stringValues(in []interface{}) ([]interface{}, bool) {
	out := make([]interface{}, 0, len(in))
	for _, v := range in {
		str, ok := v.(string)
		if !ok {
			return nil, false
		}
		out = append(out, str)
	}
	return out, true
}

// FetchRecords lists records of an entity. Conditions MySQL can evaluate
// are pushed into the query; projection and ordering happen after the rows
// are decoded.
func (s *MySQLBackend) FetchRecords(ctx context.Context, entity string, query Query) (*FetchResponse, error) {
	if err := s.ensureTable(ctx, entity); err != nil {
		return nil, err
	}

	where, args := whereClause(query.Where)
	querySQL := fmt.Sprintf(`SELECT id, created_on, is_deleted, data FROM %s%s ORDER BY seq ASC`, entity, where)
	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", entity, err)
	}
	defer rows.Close()

	data := make([]Record, 0)
	for rows.Next() {
		var id string
		var createdOn time.Time
		var isDeleted bool
		var dataJSON []byte

		if err := rows.Scan(&id, &createdOn, &isDeleted, &dataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", entity, err)
		}

		rec, err := scanRecord(id, createdOn, isDeleted, dataJSON)
		if err != nil {
			log.Printf("WARNING: Skipping unreadable %s record: %v", entity, err)
			continue
		}
		if !Matches(rec, query.Where) {
			continue
		}
		data = append(data, Project(rec, query.Fields))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	SortRecords(data, query.OrderBy)
	return &FetchResponse{Success: true, Data: data}, nil
}

// GetRecordByID retrieves one non-deleted record
func (s *MySQLBackend) GetRecordByID(ctx context.Context, entity string, id string) (*GetResponse, error) {
	if err := s.ensureTable(ctx, entity); err != nil {
		return nil, err
	}

	querySQL := fmt.Sprintf(`SELECT created_on, is_deleted, data FROM %s WHERE id = ? AND is_deleted = FALSE`, entity)

	var createdOn time.Time
	var isDeleted bool
	var dataJSON []byte
	err := s.db.QueryRowContext(ctx, querySQL, id).Scan(&createdOn, &isDeleted, &dataJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return &GetResponse{Success: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", entity, id, err)
	}

	rec, err := scanRecord(id, createdOn, isDeleted, dataJSON)
	if err != nil {
		return nil, err
	}
	return &GetResponse{Success: true, Data: Project(rec, nil)}, nil
}

// CreateRecord inserts every record in one transaction
func (s *MySQLBackend) CreateRecord(ctx context.Context, entity string, params RecordsParams) (*MutateResponse, error) {
	if err := s.ensureTable(ctx, entity); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertSQL := fmt.Sprintf(`INSERT INTO %s (id, created_on, is_deleted, data) VALUES (?, ?, FALSE, ?)`, entity)

	results := make([]Result, 0, len(params.Records))
	for _, in := range params.Records {
		doc, err := documentOf(in)
		if err != nil {
			results = append(results, Result{Success: false, Message: fmt.Sprintf("invalid record: %v", err)})
			continue
		}

		id := uuid.NewString()
		createdOn := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, insertSQL, id, createdOn, doc); err != nil {
			return nil, fmt.Errorf("failed to insert into %s: %w", entity, err)
		}

		rec := cloneRecord(in)
		rec[FieldID] = id
		rec[FieldCreatedOn] = FormatTime(createdOn)
		results = append(results, Result{Success: true, Data: rec})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit %s insert: %w", entity, err)
	}

	return &MutateResponse{Success: true, Results: results}, nil
}

// UpdateRecord merges the given fields into existing records
func (s *MySQLBackend) UpdateRecord(ctx context.Context, entity string, params RecordsParams) (*MutateResponse, error) {
	if err := s.ensureTable(ctx, entity); err != nil {
		return nil, err
	}

	updateSQL := fmt.Sprintf(`UPDATE %s SET data = ? WHERE id = ? AND is_deleted = FALSE`, entity)

	results := make([]Result, 0, len(params.Records))
	for _, in := range params.Records {
		id := fmt.Sprint(in[FieldID])

		current, err := s.GetRecordByID(ctx, entity, id)
		if err != nil {
			return nil, err
		}
		if current.Data == nil {
			results = append(results, Result{Success: false, Message: fmt.Sprintf("record %s not found", id)})
			continue
		}

		merged := cloneRecord(current.Data)
		for k, v := range in {
			merged[k] = v
		}
		merged[FieldCreatedOn] = current.Data[FieldCreatedOn]

		doc, err := documentOf(merged)
		if err != nil {
			results = append(results, Result{Success: false, Message: fmt.Sprintf("invalid record: %v", err)})
			continue
		}
		if _, err := s.db.ExecContext(ctx, updateSQL, doc, id); err != nil {
			return nil, fmt.Errorf("failed to update %s %s: %w", entity, id, err)
		}
		results = append(results, Result{Success: true, Data: merged})
	}

	return &MutateResponse{Success: true, Results: results}, nil
}

// DeleteRecord soft-deletes records
func (s *MySQLBackend) DeleteRecord(ctx context.Context, entity string, params DeleteParams) (*DeleteResponse, error) {
	if err := s.ensureTable(ctx, entity); err != nil {
		return nil, err
	}

	deleteSQL := fmt.Sprintf(`UPDATE %s SET is_deleted = TRUE WHERE id = ? AND is_deleted = FALSE`, entity)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range params.RecordIDs {
		res, err := tx.ExecContext(ctx, deleteSQL, id)
		if err != nil {
			return nil, fmt.Errorf("failed to delete %s %s: %w", entity, id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &DeleteResponse{Success: false, Message: fmt.Sprintf("record %s not found", id)}, nil
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit %s delete: %w", entity, err)
	}
	return &DeleteResponse{Success: true}, nil
}

// Close closes the database connection
func (s *MySQLBackend) Close() error {
	return s.db.Close()
}
