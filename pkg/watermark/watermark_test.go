package watermark

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igcrawler/pkg/logger"
)

func TestReadMissingIsZero(t *testing.T) {
	l, err := NewLog(filepath.Join(t.TempDir(), "lastupdate"), nil)
	require.NoError(t, err)

	assert.True(t, l.Read("sunset").IsZero())
}

func TestEnsureCreatesEmptyEntries(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLog(dir, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "kept"), []byte("1700000000"), 0644))
	require.NoError(t, l.Ensure([]string{"fresh", "kept"}))

	data, err := os.ReadFile(filepath.Join(dir, "fresh"))
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.True(t, l.Read("fresh").IsZero())
	assert.Equal(t, int64(1700000000), l.Read("kept").Unix())
}

func TestWriteThenRead(t *testing.T) {
	l, err := NewLog(t.TempDir(), nil)
	require.NoError(t, err)

	at := time.Date(2024, 3, 1, 12, 0, 0, 900_000_000, time.UTC)
	require.NoError(t, l.Write("beach", at))

	got := l.Read("beach")
	assert.Equal(t, at.Unix(), got.Unix())

	data, err := os.ReadFile(filepath.Join(l.Dir(), "beach"))
	require.NoError(t, err)
	assert.Equal(t, "1709294400", string(data))
}

func TestCorruptWatermarkIsZero(t *testing.T) {
	dir := t.TempDir()
	log := logger.NewTestLogger()
	l, err := NewLog(dir, log)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad"), []byte("yesterday"), 0644))
	assert.True(t, l.Read("bad").IsZero())
	assert.True(t, log.HasMessage("Ignoring corrupt watermark"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "far"), []byte("Inf"), 0644))
	assert.True(t, l.Read("far").IsZero())
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		zero    bool
		wantErr bool
	}{
		{"1700000000", 1700000000, false, false},
		{"1700000000.75\n", 1700000000, false, false},
		{"", 0, true, false},
		{"0", 0, true, false},
		{"abc", 0, true, true},
		{"NaN", 0, true, true},
		{"Inf", 0, true, true},
		{"1e30", 0, true, true},
		{"-Inf", 0, true, false},
		{"253402300799", 253402300799, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.zero, got.IsZero())
			if !tt.zero {
				assert.Equal(t, tt.want, got.Unix())
			}
		})
	}

	assert.Equal(t, "0", Format(time.Time{}))
}

func TestOpenDoesNotCreateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "absent")
	l := Open(dir, nil)

	assert.True(t, l.Read("sun").IsZero())
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}
