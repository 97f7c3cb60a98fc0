// Package testutil builds users files and accounts for authentication tests
package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultBcryptCost is the default bcrypt cost for test fixtures
	DefaultBcryptCost = 4 // Lower cost for faster tests

	// ProductionBcryptCost is the production bcrypt cost
	ProductionBcryptCost = 12
)

// UserConfig is one account of a users file, with its plaintext password
type UserConfig struct {
	ID        uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// TestFixture provides a users file in a temporary directory
type TestFixture struct {
	TempDir   string
	UsersFile string
	Users     []UserConfig
	t         *testing.T
}

// NewTestFixture creates a new test fixture with temporary files
func NewTestFixture(t *testing.T) *TestFixture {
	t.Helper()

	tmpDir := t.TempDir()
	return &TestFixture{
		TempDir:   tmpDir,
		UsersFile: filepath.Join(tmpDir, "users.cfg"),
		Users:     []UserConfig{},
		t:         t,
	}
}

// AddUser adds an account to the fixture
func (f *TestFixture) AddUser(u UserConfig) *TestFixture {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.Users = append(f.Users, u)
	return f
}

// AddRandomUser adds an account with a generated id and email
func (f *TestFixture) AddRandomUser(password string) *TestFixture {
	id := uuid.New()
	return f.AddUser(UserConfig{
		ID:        id,
		Email:     fmt.Sprintf("user-%s@example.com", id.String()[:8]),
		FirstName: "Test",
		Password:  password,
	})
}

// WriteUsersFile writes the users file with hashed passwords
func (f *TestFixture) WriteUsersFile(bcryptCost int) error {
	return WriteUsersFile(f.UsersFile, f.Users, bcryptCost)
}

// WriteUsersFileDefault writes the users file with the default test cost
func (f *TestFixture) WriteUsersFileDefault() error {
	return f.WriteUsersFile(DefaultBcryptCost)
}

// WriteUsersFile writes a users file with bcrypt password hashes
func WriteUsersFile(path string, users []UserConfig, bcryptCost int) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create users file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	defer writer.Flush()

	fmt.Fprintf(writer, "# Auto-generated users file\n")
	fmt.Fprintf(writer, "# Generated for testing\n\n")

	for i, u := range users {
		if i > 0 {
			fmt.Fprintf(writer, "\n")
		}

		hash, err := HashPassword(u.Password, bcryptCost)
		if err != nil {
			return err
		}
		fmt.Fprintf(writer, "[%s]\n", u.ID.String())
		fmt.Fprintf(writer, "email = %s\n", u.Email)
		fmt.Fprintf(writer, "first_name = %s\n", u.FirstName)
		fmt.Fprintf(writer, "last_name = %s\n", u.LastName)
		fmt.Fprintf(writer, "password = %s\n", hash)
	}

	return nil
}

// CreateSimpleUsersFile creates a users file with one account
func CreateSimpleUsersFile(t *testing.T, u UserConfig) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "users.cfg")
	if err := WriteUsersFile(path, []UserConfig{u}, DefaultBcryptCost); err != nil {
		t.Fatalf("Failed to create simple users file: %v", err)
	}
	return path
}

// HashPassword hashes a password with the given bcrypt cost
func HashPassword(password string, cost int) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// MustHashPassword hashes a password or panics (for test setup)
func MustHashPassword(password string, cost int) string {
	hash, err := HashPassword(password, cost)
	if err != nil {
		panic(err)
	}
	return hash
}

// CreateCorruptedUsersFile creates an intentionally broken users file
func CreateCorruptedUsersFile(t *testing.T, corruptionType string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "users.cfg")

	var content string
	switch corruptionType {
	case "invalid-uuid":
		content = "[not-a-uuid]\nemail = a@example.com\npassword = x\n"
	case "missing-password":
		content = "[11111111-2222-3333-4444-555555555555]\nemail = a@example.com\n"
	case "duplicate-email":
		content = "[11111111-2222-3333-4444-555555555555]\nemail = a@example.com\npassword = x\n\n" +
			"[22222222-3333-4444-5555-666666666666]\nemail = A@example.com\npassword = y\n"
	default:
		t.Fatalf("Unknown corruption type: %s", corruptionType)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write corrupted users file: %v", err)
	}
	return path
}

// AssertFileContains checks if a file contains a substring
func AssertFileContains(t *testing.T, path, substring string) {
	t.Helper()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}

	if !contains(string(content), substring) {
		t.Errorf("File %s does not contain %q", path, substring)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// Common test accounts
var (
	TestUUID1 = uuid.MustParse("11111111-2222-3333-4444-555555555555")
	TestUUID2 = uuid.MustParse("22222222-3333-4444-5555-666666666666")

	Ada = UserConfig{
		ID:        TestUUID1,
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Password:  "analytical-engine",
	}
	Grace = UserConfig{
		ID:        TestUUID2,
		Email:     "grace@example.com",
		FirstName: "Grace",
		LastName:  "Hopper",
		Password:  "compiler-first",
	}
)
