package auth

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testforge/suite-service/internal/auth/testutil"
)

const bcryptCost = testutil.DefaultBcryptCost

func newFileStore(t *testing.T, users ...testutil.UserConfig) (*FileStore, *testutil.TestFixture) {
	t.Helper()

	f := testutil.NewTestFixture(t)
	for _, u := range users {
		f.AddUser(u)
	}
	require.NoError(t, f.WriteUsersFileDefault())

	store, err := NewFileStore(f.UsersFile, bcryptCost)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, f
}

func TestInMemoryStore(t *testing.T) {
	store := NewInMemoryStore(bcryptCost)

	user, err := store.Register("ada@example.com", "Ada", "Lovelace", "analytical-engine")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)

	got, err := store.Authenticate("ADA@example.com ", "analytical-engine")
	require.NoError(t, err)
	assert.Equal(t, user, got)

	_, err = store.Authenticate("ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = store.Authenticate("nobody@example.com", "analytical-engine")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = store.Register("ada@example.com", "Ada", "", "another-password")
	assert.ErrorIs(t, err, ErrEmailTaken)

	looked, ok := store.Lookup(user.ID)
	assert.True(t, ok)
	assert.Equal(t, "Ada", looked.FirstName)

	_, ok = store.Lookup(uuid.New())
	assert.False(t, ok)
}

func TestInMemoryStoreConcurrency(t *testing.T) {
	store := NewInMemoryStore(bcryptCost)
	_, err := store.Register("ada@example.com", "Ada", "", "analytical-engine")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, err := store.Authenticate("ada@example.com", "analytical-engine")
				errs <- err
				return
			}
			_, err := store.Register(fmt.Sprintf("user%d@example.com", i), "U", "", "password-123")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestFileStoreLoadFromFile(t *testing.T) {
	store, _ := newFileStore(t, testutil.Ada, testutil.Grace)

	user, err := store.Authenticate("ada@example.com", testutil.Ada.Password)
	require.NoError(t, err)
	assert.Equal(t, testutil.TestUUID1, user.ID)
	assert.Equal(t, "Ada", user.FirstName)
	assert.Equal(t, "Lovelace", user.LastName)

	user, err = store.Authenticate("grace@example.com", testutil.Grace.Password)
	require.NoError(t, err)
	assert.Equal(t, testutil.TestUUID2, user.ID)

	_, err = store.Authenticate("grace@example.com", testutil.Ada.Password)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestFileStoreCreatesMissingFile(t *testing.T) {
	path := t.TempDir() + "/users.cfg"

	store, err := NewFileStore(path, bcryptCost)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFileStoreCorruptedFiles(t *testing.T) {
	for _, kind := range []string{"invalid-uuid", "missing-password", "duplicate-email"} {
		t.Run(kind, func(t *testing.T) {
			_, err := NewFileStore(testutil.CreateCorruptedUsersFile(t, kind), bcryptCost)
			assert.Error(t, err)
		})
	}
}

func TestFileStoreMalformedHash(t *testing.T) {
	path := t.TempDir() + "/users.cfg"
	content := fmt.Sprintf("[%s]\nemail = ada@example.com\npassword = $2a$invalid$hash\n", testutil.TestUUID1)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	store, err := NewFileStore(path, bcryptCost)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Authenticate("ada@example.com", "anything")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestFileStoreRegisterAppends(t *testing.T) {
	store, f := newFileStore(t, testutil.Ada)

	user, err := store.Register("linus@example.com", "Linus", "Torvalds", "penguin-power")
	require.NoError(t, err)

	testutil.AssertFileContains(t, f.UsersFile, "["+user.ID.String()+"]")
	testutil.AssertFileContains(t, f.UsersFile, "linus@example.com")
	testutil.AssertFileContains(t, f.UsersFile, "["+testutil.TestUUID1.String()+"]")

	got, err := store.Authenticate("linus@example.com", "penguin-power")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	// a fresh store reads the appended section
	reread, err := NewFileStore(f.UsersFile, bcryptCost)
	require.NoError(t, err)
	defer reread.Close()
	got, err = reread.Authenticate("linus@example.com", "penguin-power")
	require.NoError(t, err)
	assert.Equal(t, "Torvalds", got.LastName)

	_, err = store.Register("ada@example.com", "Ada", "", "whatever-123")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestFileStoreRegisterQuotesValues(t *testing.T) {
	store, f := newFileStore(t)

	_, err := store.Register("hash@example.com", "Name; with # marks", "", "password-123")
	require.NoError(t, err)

	reread, err := NewFileStore(f.UsersFile, bcryptCost)
	require.NoError(t, err)
	defer reread.Close()

	got, err := reread.Authenticate("hash@example.com", "password-123")
	require.NoError(t, err)
	assert.Equal(t, "Name; with # marks", got.FirstName)
}

func TestFileStoreReload(t *testing.T) {
	store, f := newFileStore(t, testutil.Ada)

	f.AddUser(testutil.Grace)
	require.NoError(t, f.WriteUsersFileDefault())
	require.NoError(t, store.Reload())

	_, err := store.Authenticate("grace@example.com", testutil.Grace.Password)
	assert.NoError(t, err)
}

func TestFileStoreReloadKeepsUsersOnError(t *testing.T) {
	store, f := newFileStore(t, testutil.Ada)

	require.NoError(t, os.WriteFile(f.UsersFile, []byte("[not-a-uuid]\nemail = x\npassword = y\n"), 0600))
	assert.Error(t, store.Reload())

	_, err := store.Authenticate("ada@example.com", testutil.Ada.Password)
	assert.NoError(t, err)
}

func TestFileStoreClose(t *testing.T) {
	store, _ := newFileStore(t, testutil.Ada)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestFileStoreWatchFile(t *testing.T) {
	store, f := newFileStore(t, testutil.Ada)

	_, err := store.Authenticate("grace@example.com", testutil.Grace.Password)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	f.AddUser(testutil.Grace)
	require.NoError(t, f.WriteUsersFileDefault())

	assert.Eventually(t, func() bool {
		_, err := store.Authenticate("grace@example.com", testutil.Grace.Password)
		return err == nil
	}, 5*time.Second, 100*time.Millisecond)
}

func TestFileStoreWatchFileDebounce(t *testing.T) {
	store, f := newFileStore(t, testutil.Ada)

	for i := 0; i < 5; i++ {
		f.Users[0].Password = fmt.Sprintf("password-%d", i)
		require.NoError(t, f.WriteUsersFileDefault())
		time.Sleep(50 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		_, err := store.Authenticate("ada@example.com", "password-4")
		return err == nil
	}, 5*time.Second, 100*time.Millisecond)
}

func TestFormatUser(t *testing.T) {
	out, err := FormatUser(testutilUser(), "$2a$04$hash")
	require.NoError(t, err)
	assert.Contains(t, string(out), "["+testutil.TestUUID1.String()+"]")
	assert.Contains(t, string(out), "ada@example.com")
	assert.Contains(t, string(out), "$2a$04$hash")
}

func TestErrorsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrInvalidCredentials, ErrEmailTaken))
	assert.False(t, errors.Is(ErrSessionNotFound, ErrInvalidCredentials))
}
