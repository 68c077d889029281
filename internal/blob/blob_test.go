package blob

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocator(t *testing.T) {
	assert.Equal(t,
		"keccak256:c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		Locator(nil), "keccak256 of the empty input")
	assert.Equal(t, Locator([]byte("mix design v1")), Locator([]byte("mix design v1")))
	assert.NotEqual(t, Locator([]byte("a")), Locator([]byte("b")))
}

func TestParseLocator(t *testing.T) {
	digest, err := ParseLocator(Locator([]byte("x")))
	require.NoError(t, err)
	assert.Len(t, digest, 64)

	for _, bad := range []string{"", "sha256:abcd", "keccak256:xyz", "keccak256:" + string(make([]byte, 64))} {
		_, err := ParseLocator(bad)
		assert.True(t, errors.Is(err, ErrInvalidLocator), bad)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(16)

	info, err := store.Put(ctx, []byte("print file"), "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, Locator([]byte("print file")), info.Locator)
	assert.EqualValues(t, 10, info.Size)

	again, err := store.Put(ctx, []byte("print file"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, info, again, "same bytes keep the first upload")

	got, data, err := store.Get(ctx, info.Locator)
	require.NoError(t, err)
	assert.Equal(t, []byte("print file"), data)
	assert.Equal(t, "application/octet-stream", got.ContentType)

	ok, err := store.Exists(ctx, Locator([]byte("missing")))
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = store.Get(ctx, Locator([]byte("missing")))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Put(ctx, make([]byte, 17), "")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, _, err = store.Get(ctx, "not-a-locator")
	assert.ErrorIs(t, err, ErrInvalidLocator)
}
