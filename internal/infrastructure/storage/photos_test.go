package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taller/internal/core/apperror"
)

// pngHeader is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newStore(t *testing.T, max int64) *LocalPhotoStore {
	t.Helper()
	s, err := NewLocalPhotoStore(t.TempDir(), max)
	require.NoError(t, err)
	return s
}

func TestSaveAndDelete(t *testing.T) {
	s := newStore(t, 1024)
	ctx := context.Background()

	path, err := s.Save(ctx, "t1/wo/in", "front.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "t1/wo/in/"))
	assert.True(t, strings.HasSuffix(path, ".png"))

	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(path)))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	require.NoError(t, s.Delete(ctx, path))
	require.NoError(t, s.Delete(ctx, path), "deleting twice is fine")
}

func TestSaveRejections(t *testing.T) {
	s := newStore(t, 32)
	ctx := context.Background()

	tests := []struct {
		name string
		body []byte
	}{
		{"empty", nil},
		{"not an image", []byte("%PDF-1.7 hello")},
		{"too large", append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Save(ctx, "t1/wo/in", "x", bytes.NewReader(tt.body))
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
		})
	}

	entries, _ := os.ReadDir(filepath.Join(s.root, "t1", "wo", "in"))
	assert.Empty(t, entries, "rejected files are not left behind")
}

func TestPathsStayUnderRoot(t *testing.T) {
	s := newStore(t, 1024)
	ctx := context.Background()

	path, err := s.Save(ctx, "../../etc", "x.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "etc/"))

	err = s.Delete(ctx, "../outside.png")
	require.Error(t, err)
}
