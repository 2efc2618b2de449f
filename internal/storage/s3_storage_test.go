package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImageKey(t *testing.T) {
	key := ImageKey("U1", "../../etc/My Cat (1).jpg")
	assert.True(t, strings.HasPrefix(key, "listings/U1/"), key)
	assert.True(t, strings.HasSuffix(key, "_My_Cat_1_.jpg"), key)
	assert.NotContains(t, key, "..")

	assert.True(t, strings.HasPrefix(ImageKey("", "a.png"), "listings/anonymous/"))
}

func TestKeyFromImageURL(t *testing.T) {
	base := "https://cdn.example/bucket"

	key, ok := KeyFromImageURL(base, ImageURL(base+"/", "listings/U1/x.jpg"))
	assert.True(t, ok)
	assert.Equal(t, "listings/U1/x.jpg", key)

	_, ok = KeyFromImageURL(base, "https://elsewhere.example/x.jpg")
	assert.False(t, ok)
	_, ok = KeyFromImageURL(base, base+"/")
	assert.False(t, ok)
	_, ok = KeyFromImageURL("", "https://cdn.example/bucket/x.jpg")
	assert.False(t, ok)
}
