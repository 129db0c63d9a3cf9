package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/citywatch/incident_reporting_system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Minimal valid PNG header plus IHDR chunk, enough for sniffing.
var pngBytes = []byte{
	0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R',
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00,
}

func newTestStore(t *testing.T) *LocalStore {
	store, err := NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)
	return store
}

func TestLocalStore_StorePNG(t *testing.T) {
	store := newTestStore(t)

	stored, err := store.Store(context.Background(), pngBytes, "incidents")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.True(t, strings.HasPrefix(stored.URL, "/media/incidents/"))
	assert.True(t, strings.HasSuffix(stored.URL, ".png"))

	// The file must exist on disk under the folder.
	path := filepath.Join(store.baseDir, "incidents", stored.ID+".png")
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLocalStore_RejectsUnsupportedType(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Store(context.Background(), []byte("plain text is not media"), "incidents")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMediaRejected)
}

func TestLocalStore_RejectsOversizedPayload(t *testing.T) {
	store := newTestStore(t)

	big := make([]byte, MaxMediaBytes+1)
	copy(big, pngBytes)

	_, err := store.Store(context.Background(), big, "incidents")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMediaRejected)
}

func TestLocalStore_RejectsEmptyPayload(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Store(context.Background(), nil, "incidents")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMediaRejected)
}
