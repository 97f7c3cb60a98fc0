package auth

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/ini.v1"

	"github.com/testforge/suite-service/internal/domain"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned by Register when the email already has an account
	ErrEmailTaken = errors.New("an account with this email already exists")
)

// DefaultBcryptCost is the cost used for new password hashes
const DefaultBcryptCost = 12

// reloadDebounce is how long the watcher waits for writes to settle
const reloadDebounce = 500 * time.Millisecond

// dummyHash is compared against when the email is unknown so both failure
// paths cost one bcrypt comparison
var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z5ybnQK5h3eWvFEM.7dQ3sUe")

// UserStore authenticates and registers users
type UserStore interface {
	Authenticate(email, password string) (domain.User, error)
	Register(email, firstName, lastName, password string) (domain.User, error)
	Lookup(id uuid.UUID) (domain.User, bool)
}

type account struct {
	user domain.User
	hash []byte
}

// users indexes accounts by id and by normalized email
type users struct {
	byID    map[uuid.UUID]account
	byEmail map[string]uuid.UUID
}

func newUsers() users {
	return users{
		byID:    make(map[uuid.UUID]account),
		byEmail: make(map[string]uuid.UUID),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u users) add(a account) error {
	key := normalizeEmail(a.user.Email)
	if _, exists := u.byEmail[key]; exists {
		return fmt.Errorf("%w: %s", ErrEmailTaken, key)
	}
	u.byID[a.user.ID] = a
	u.byEmail[key] = a.user.ID
	return nil
}

func (u users) authenticate(email, password string) (domain.User, error) {
	id, exists := u.byEmail[normalizeEmail(email)]
	if !exists {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return domain.User{}, ErrInvalidCredentials
	}

	a := u.byID[id]
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return a.user, nil
}

// InMemoryStore keeps accounts in process memory
type InMemoryStore struct {
	mu    sync.RWMutex
	users users
	cost  int
}

// NewInMemoryStore creates an empty store. cost is the bcrypt cost of new
// password hashes; zero means DefaultBcryptCost.
func NewInMemoryStore(cost int) *InMemoryStore {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	return &InMemoryStore{users: newUsers(), cost: cost}
}

// Authenticate checks the password of the user with the given email
func (s *InMemoryStore) Authenticate(email, password string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.authenticate(email, password)
}

// Register adds a user with a freshly hashed password
func (s *InMemoryStore) Register(email, firstName, lastName, password string) (domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := domain.User{ID: uuid.New(), Email: strings.TrimSpace(email), FirstName: firstName, LastName: lastName}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.users.add(account{user: user, hash: hash}); err != nil {
		return domain.User{}, ErrEmailTaken
	}
	return user, nil
}

// Lookup returns the user with the given id
func (s *InMemoryStore) Lookup(id uuid.UUID) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.users.byID[id]
	return a.user, ok
}

// FileStore reads accounts from an INI users file and reloads it when the
// file changes on disk. Each account is a section named by the user id:
//
//	[11111111-2222-3333-4444-555555555555]
//	email      = ada@example.com
//	first_name = Ada
//	last_name  = Lovelace
//	password   = $2a$12$...
type FileStore struct {
	mu       sync.RWMutex
	users    users
	filePath string
	cost     int

	// writeMu serializes appends to the file
	writeMu sync.Mutex

	watcher   *fsnotify.Watcher
	closeOnce sync.Once
	done      chan struct{}
}

// NewFileStore loads the users file and starts watching it. A missing file
// is created empty.
func NewFileStore(filePath string, cost int) (*FileStore, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if err := os.WriteFile(filePath, []byte("# TestForge users\n"), 0600); err != nil {
			return nil, fmt.Errorf("failed to create users file: %w", err)
		}
	}

	store := &FileStore{
		users:    newUsers(),
		filePath: filePath,
		cost:     cost,
		done:     make(chan struct{}),
	}

	if err := store.LoadFromFile(); err != nil {
		return nil, fmt.Errorf("failed to load users from file: %w", err)
	}

	if err := store.watch(); err != nil {
		return nil, err
	}

	return store, nil
}

// LoadFromFile replaces the accounts with the file's content. On error the
// previous accounts are kept.
func (s *FileStore) LoadFromFile() error {
	loaded, err := readUsersFile(s.filePath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.users = loaded
	s.mu.Unlock()
	return nil
}

// Reload reloads accounts from the file
func (s *FileStore) Reload() error {
	return s.LoadFromFile()
}

func readUsersFile(path string) (users, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, path)
	if err != nil {
		return users{}, fmt.Errorf("failed to open users file: %w", err)
	}

	loaded := newUsers()
	for _, section := range cfg.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}

		id, err := uuid.Parse(section.Name())
		if err != nil {
			return users{}, fmt.Errorf("invalid user ID section [%s]", section.Name())
		}

		email := section.Key("email").String()
		hash := section.Key("password").String()
		if email == "" || hash == "" {
			return users{}, fmt.Errorf("user %s is missing email or password", id)
		}

		a := account{
			user: domain.User{
				ID:        id,
				Email:     email,
				FirstName: section.Key("first_name").String(),
				LastName:  section.Key("last_name").String(),
			},
			hash: []byte(hash),
		}
		if err := loaded.add(a); err != nil {
			return users{}, err
		}
	}
	return loaded, nil
}

// watch reloads the file on changes. The directory is watched so editors
// that replace the file by rename are noticed too.
func (s *FileStore) watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch users file: %w", err)
	}
	s.watcher = watcher

	go s.watchLoop()
	return nil
}

func (s *FileStore) watchLoop() {
	target := filepath.Clean(s.filePath)
	var debounce *time.Timer

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if err := s.LoadFromFile(); err != nil {
					log.Printf("WARNING: Failed to reload users file %s: %v", s.filePath, err)
					return
				}
				log.Printf("Users reloaded from %s", s.filePath)
			})
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("WARNING: Users file watcher error: %v", err)
		case <-s.done:
			if debounce != nil {
				debounce.Stop()
			}
			return
		}
	}
}

// Close stops watching the file. It is safe to call more than once.
func (s *FileStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.watcher != nil {
			err = s.watcher.Close()
		}
	})
	return err
}

// Authenticate checks the password against the users loaded from the file
func (s *FileStore) Authenticate(email, password string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.authenticate(email, password)
}

// Lookup returns the loaded user with the given id
func (s *FileStore) Lookup(id uuid.UUID) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.users.byID[id]
	return a.user, ok
}

// Register appends a new account to the users file and makes it usable
// immediately
func (s *FileStore) Register(email, firstName, lastName, password string) (domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}
	user := domain.User{ID: uuid.New(), Email: strings.TrimSpace(email), FirstName: firstName, LastName: lastName}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	_, taken := s.users.byEmail[normalizeEmail(user.Email)]
	s.mu.RUnlock()
	if taken {
		return domain.User{}, ErrEmailTaken
	}

	entry, err := FormatUser(user, string(hash))
	if err != nil {
		return domain.User{}, err
	}

	file, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to open users file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append([]byte("\n"), entry...)); err != nil {
		return domain.User{}, fmt.Errorf("failed to append user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.users.add(account{user: user, hash: hash}); err != nil {
		return domain.User{}, ErrEmailTaken
	}
	return user, nil
}

// FormatUser renders one users file section
func FormatUser(user domain.User, passwordHash string) ([]byte, error) {
	cfg := ini.Empty()
	section, err := cfg.NewSection(user.ID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create user section: %w", err)
	}
	section.Key("email").SetValue(user.Email)
	section.Key("first_name").SetValue(user.FirstName)
	section.Key("last_name").SetValue(user.LastName)
	section.Key("password").SetValue(passwordHash)

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to render user section: %w", err)
	}
	return buf.Bytes(), nil
}
