package archive

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutConfigIsNop(t *testing.T) {
	a, err := New(COSConfig{Bucket: "b"})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, a)

	url, err := a.Store(context.Background(), "u1", "Rosa canina", []byte("x"), "image/jpeg")
	require.NoError(t, err)
	assert.Empty(t, url)

	_, err = NewCOS(COSConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewCOSWhenConfigured(t *testing.T) {
	a, err := New(COSConfig{
		SecretID:     "id",
		SecretKey:    "key",
		Bucket:       "jardin-1250000000",
		PublicDomain: "https://fotos.example.com/",
	})
	require.NoError(t, err)
	c, ok := a.(*COS)
	require.True(t, ok)
	assert.Equal(t, "https://fotos.example.com", c.publicDomain)

	_, err = c.Store(context.Background(), "u1", "x", nil, "image/png")
	assert.ErrorIs(t, err, ErrEmptyPhoto)
}

func TestObjectKey(t *testing.T) {
	now := time.Unix(1700000000, 0)
	key := objectKey("capturas", "user/42", "Quercus robur", "image/png", now)
	assert.Regexp(t, regexp.MustCompile(`^capturas/42/1700000000_[0-9a-f]{8}_Quercus_robur\.png$`), key)

	key = objectKey("", "", "../..", "", now)
	assert.Regexp(t, regexp.MustCompile(`^upload/1700000000_[0-9a-f]{8}_upload\.jpg$`), key)
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "Bellis_perennis", sanitizeFileName("Bellis perennis"))
	assert.Equal(t, "upload", sanitizeFileName(" "))
	assert.Equal(t, "a.b-c", sanitizeFileName("dir/a.b-c"))
}
