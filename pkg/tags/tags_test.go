package tags

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igcrawler/pkg/logger"
)

func TestParse(t *testing.T) {
	input := strings.Join([]string{
		"sunset",
		"  beach  ",
		"",
		"# a comment",
		"// another comment",
		"#travel",
		"sunset",
		"../escape",
		"two words",
		"서울",
	}, "\n")

	log := logger.NewTestLogger()
	got, err := Parse(strings.NewReader(input), log)
	require.NoError(t, err)

	assert.Equal(t, []string{"sunset", "beach", "travel", "서울"}, got)
	assert.Len(t, log.GetMessagesByLevel("WARN"), 3)
	assert.True(t, log.HasMessage("Skipping duplicate tag"))
}

func TestParseEmpty(t *testing.T) {
	got, err := Parse(strings.NewReader("\n\n"), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tags.txt")
	require.NoError(t, os.WriteFile(path, []byte("food\r\ncats\n"), 0644))

	got, err := Load(path, logger.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"food", "cats"}, got)

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"), nil)
	assert.Error(t, err)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("golden_hour"))
	assert.False(t, Valid(""))
	assert.False(t, Valid(".."))
	assert.False(t, Valid("a/b"))
	assert.False(t, Valid("a#b"))
}
