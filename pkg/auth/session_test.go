package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"igcrawler/pkg/config"
)

func session(profile string) *Session {
	return &Session{
		Profile:   profile,
		SessionID: "1234567890%3Aabcdefgh",
		CSRFToken: "YTQHujAgMhyveLvvuwCfw9CPI8ROAHoy",
		UserAgent: "Mozilla/5.0 test",
	}
}

// failingStore rejects every write
type failingStore struct{}

func (failingStore) Name() string                  { return "broken" }
func (failingStore) Save(*Session) error           { return errors.New("locked") }
func (failingStore) Load(string) (*Session, error) { return nil, ErrNotFound }
func (failingStore) Delete(string) error           { return ErrNotFound }

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	ks, err := NewKeyringStore()
	require.NoError(t, err)

	_, err = ks.Load("default")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, ks.Save(session("default")))
	got, err := ks.Load("default")
	require.NoError(t, err)
	assert.Equal(t, session("default").SessionID, got.SessionID)

	require.NoError(t, ks.Delete("default"))
	assert.ErrorIs(t, ks.Delete("default"), ErrNotFound)
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "sessions.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, ".passphrase"))

	_, err = store.Load("default")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(session("default")))
	require.NoError(t, store.Save(session("alt")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "YTQHujAg", "tokens must not be stored in clear text")

	// A second store over the same file shares the generated passphrase
	again, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	got, err := again.Load("alt")
	require.NoError(t, err)
	assert.Equal(t, "Mozilla/5.0 test", got.UserAgent)

	require.NoError(t, again.Delete("alt"))
	require.NoError(t, again.Delete("default"))
	assert.NoFileExists(t, path)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.enc")

	t.Setenv(PassphraseEnv, "first")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(session("default")))

	t.Setenv(PassphraseEnv, "second")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Load("default")
	assert.ErrorContains(t, err, "decrypt")
}

func TestChainFallsBack(t *testing.T) {
	t.Setenv(PassphraseEnv, "secret")
	file, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "sessions.enc"))
	require.NoError(t, err)

	chain := NewChain(nil, failingStore{}, file)

	name, err := chain.Save(session("default"))
	require.NoError(t, err)
	assert.Equal(t, "encrypted-file", name)

	s, source, err := chain.Load("default")
	require.NoError(t, err)
	assert.Equal(t, "encrypted-file", source)
	assert.False(t, s.SavedAt.IsZero())

	require.NoError(t, chain.Delete("default"))
	assert.ErrorIs(t, chain.Delete("default"), ErrNotFound)
}

func TestChainRejectsInvalidSession(t *testing.T) {
	chain := NewChain(nil, failingStore{})

	_, err := chain.Save(&Session{Profile: "default"})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = chain.Save(session("default"))
	assert.ErrorContains(t, err, "locked")
}

func TestApply(t *testing.T) {
	keyring.MockInit()
	ks, err := NewKeyringStore()
	require.NoError(t, err)
	chain := NewChain(nil, ks)

	cfg := config.DefaultConfig().Instagram
	used, err := Apply(&cfg, chain, DefaultProfile)
	require.NoError(t, err)
	assert.False(t, used)
	assert.Empty(t, cfg.SessionID)

	_, err = chain.Save(session(DefaultProfile))
	require.NoError(t, err)

	used, err = Apply(&cfg, chain, DefaultProfile)
	require.NoError(t, err)
	assert.True(t, used)
	assert.Equal(t, "1234567890%3Aabcdefgh", cfg.SessionID)
	assert.Equal(t, "Mozilla/5.0 test", cfg.UserAgent)

	configured := config.DefaultConfig().Instagram
	configured.SessionID = "from-env"
	used, err = Apply(&configured, chain, DefaultProfile)
	require.NoError(t, err)
	assert.False(t, used)
	assert.Equal(t, "from-env", configured.SessionID)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "********", Mask("short"))
	assert.Equal(t, "1234...efgh", Mask("1234567890%3Aabcdefgh"))

	m := session("x").Masked()
	assert.Equal(t, "YTQH...AHoy", m.CSRFToken)
}
