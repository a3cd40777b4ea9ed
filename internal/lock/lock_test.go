package lock

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLock() *Lock {
	l := New()
	b := l.AddVersion("1.20.1")
	b.Set("2062", Artifact{URL: "https://api.purpurmc.org/v2/purpur/1.20.1/2062/download", SHA256: "aa"})
	b.Set("2060", Artifact{URL: "https://api.purpurmc.org/v2/purpur/1.20.1/2060/download", SHA256: "bb"})
	l.AddVersion("1.19.4")
	return l
}

func TestLock_Encode(t *testing.T) {
	b, err := newTestLock().Encode()
	require.NoError(t, err)

	want := `{
  "1.20.1": {
    "2062": {
      "url": "https://api.purpurmc.org/v2/purpur/1.20.1/2062/download",
      "sha256": "aa"
    },
    "2060": {
      "url": "https://api.purpurmc.org/v2/purpur/1.20.1/2060/download",
      "sha256": "bb"
    }
  },
  "1.19.4": {}
}
`
	assert.Equal(t, want, string(b))
}

func TestLock_EncodeEmpty(t *testing.T) {
	b, err := New().Encode()
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(b))
}

func TestLock_EncodeNoHTMLEscape(t *testing.T) {
	l := New()
	l.AddVersion("1.20").Set("1", Artifact{URL: "https://example.com/a?b=1&c=<d>"})

	b, err := l.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"https://example.com/a?b=1&c=<d>"`)
}

func TestLock_EncodeEscapesNonASCII(t *testing.T) {
	l := New()
	l.AddVersion("1.20-é").Set("🐟", Artifact{URL: "https://example.com/\u2028"})

	b, err := l.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"1.20-\u00e9"`)
	assert.Contains(t, string(b), `"\ud83d\udc1f"`)
	for _, c := range b {
		assert.Less(t, c, byte(0x80))
	}

	got := New()
	require.NoError(t, json.Unmarshal(b, got))
	builds, ok := got.Version("1.20-é")
	require.True(t, ok)
	assert.Equal(t, []string{"🐟"}, builds.Keys())
}

func TestLock_AddVersion(t *testing.T) {
	l := New()
	first := l.AddVersion("1.20.1")
	first.Set("1", Artifact{SHA256: "aa"})

	again := l.AddVersion("1.20.1")
	assert.Same(t, first, again)
	assert.Equal(t, []string{"1.20.1"}, l.Versions())
	assert.Equal(t, 1, l.Len())
}

func TestBuilds_SetKeepsOrder(t *testing.T) {
	var b Builds
	b.Set("3", Artifact{SHA256: "c"})
	b.Set("1", Artifact{SHA256: "a"})
	b.Set("3", Artifact{SHA256: "d"})

	assert.Equal(t, []string{"3", "1"}, b.Keys())
	got, ok := b.Get("3")
	require.True(t, ok)
	assert.Equal(t, "d", got.SHA256)

	_, ok = b.Get("2")
	assert.False(t, ok)
}

func TestLock_UnmarshalKeepsOrder(t *testing.T) {
	data := []byte(`{"b":{"9":{"url":"u9","sha256":"s9"},"1":{"url":"u1","sha256":"s1"}},"a":{}}`)

	l := New()
	require.NoError(t, json.Unmarshal(data, l))

	assert.Equal(t, []string{"b", "a"}, l.Versions())
	builds, ok := l.Version("b")
	require.True(t, ok)
	assert.Equal(t, []string{"9", "1"}, builds.Keys())

	a, _ := builds.Get("1")
	assert.Equal(t, Artifact{URL: "u1", SHA256: "s1"}, a)
}

func TestLock_UnmarshalInvalid(t *testing.T) {
	for _, data := range []string{`[]`, `{"a":[]}`, `{"a":`} {
		assert.Error(t, json.Unmarshal([]byte(data), New()), data)
	}
}

func TestRead(t *testing.T) {
	want := newTestLock()
	b, err := want.Encode()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "lock.json")
	require.NoError(t, os.WriteFile(path, b, 0644))

	got, err := Read(path)
	require.NoError(t, err)

	rb, err := got.Encode()
	require.NoError(t, err)
	assert.Equal(t, string(b), string(rb))

	_, err = Read(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
