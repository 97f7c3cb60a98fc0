package localstore

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// CSVStore keeps one CSV file per user in dataDir with "key,value" rows.
// Every write rewrites the whole file through a temporary file and rename.
type CSVStore struct {
	dataDir string
	mu      sync.RWMutex
}

// NewCSVStore creates the data directory if needed
func NewCSVStore(dataDir string) (*CSVStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for data directory: %w", err)
	}

	return &CSVStore{dataDir: absDataDir}, nil
}

// sanitizeFilePath returns the file of a user and refuses anything that
// would resolve outside the data directory
func (s *CSVStore) sanitizeFilePath(userID uuid.UUID) (string, error) {
	id := userID.String()
	if strings.ContainsAny(id, "/\\.") {
		return "", fmt.Errorf("invalid user ID: contains path traversal characters")
	}

	absPath, err := filepath.Abs(filepath.Join(s.dataDir, id+".csv"))
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	if !strings.HasPrefix(absPath, s.dataDir+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid path: attempted directory traversal")
	}

	return absPath, nil
}

// readAll loads a user's file; a missing file is an empty map
func (s *CSVStore) readAll(path string) (map[string]string, []string, error) {
	values := make(map[string]string)

	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return values, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV file: %w", err)
	}

	order := make([]string, 0, len(rows))
	for i, row := range rows {
		if i == 0 && len(row) == 2 && row[0] == "key" && row[1] == "value" {
			continue
		}
		if len(row) < 2 {
			continue
		}
		if _, seen := values[row[0]]; !seen {
			order = append(order, row[0])
		}
		values[row[0]] = row[1]
	}
	return values, order, nil
}

func (s *CSVStore) writeAll(path string, values map[string]string, order []string) error {
	tmp, err := os.CreateTemp(s.dataDir, ".localstore-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)
	if err := writer.Write([]string{"key", "value"}); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, key := range order {
		value, ok := values[key]
		if !ok {
			continue
		}
		if err := writer.Write([]string{key, value}); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush CSV file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace CSV file: %w", err)
	}
	return nil
}

// Get reads the user's file and returns the value of key or ErrNotFound
func (s *CSVStore) Get(ctx context.Context, userID uuid.UUID, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, err := s.sanitizeFilePath(userID)
	if err != nil {
		return "", fmt.Errorf("invalid user ID for file path: %w", err)
	}

	values, _, err := s.readAll(path)
	if err != nil {
		return "", err
	}
	value, ok := values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set rewrites the user's file with key set to value
func (s *CSVStore) Set(ctx context.Context, userID uuid.UUID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.sanitizeFilePath(userID)
	if err != nil {
		return fmt.Errorf("invalid user ID for file path: %w", err)
	}

	values, order, err := s.readAll(path)
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		order = append(order, key)
	}
	values[key] = value

	return s.writeAll(path, values, order)
}

func (s *CSVStore) Delete(ctx context.Context, userID uuid.UUID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.sanitizeFilePath(userID)
	if err != nil {
		return fmt.Errorf("invalid user ID for file path: %w", err)
	}

	values, order, err := s.readAll(path)
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)

	return s.writeAll(path, values, order)
}
