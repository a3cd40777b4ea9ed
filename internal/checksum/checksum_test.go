package checksum

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const emptySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "artifact.jar")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestSHA256(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "empty", content: "", want: emptySHA256},
		{name: "abc", content: "abc", want: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{name: "larger than block", content: strings.Repeat("a", blockSize*3+17)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SHA256(strings.NewReader(tt.content))
			require.NoError(t, err)
			assert.Len(t, got, 64)
			if tt.want != "" {
				assert.Equal(t, tt.want, got)
			}

			fromFile, err := SHA256File(writeFile(t, tt.content))
			require.NoError(t, err)
			assert.Equal(t, got, fromFile)
		})
	}
}

func TestSHA256File_Missing(t *testing.T) {
	_, err := SHA256File(filepath.Join(t.TempDir(), "missing.jar"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestVerify(t *testing.T) {
	path := writeFile(t, "")

	require.NoError(t, Verify(path, emptySHA256))

	err := Verify(path, strings.Repeat("0", 64))
	require.ErrorIs(t, err, ErrChecksumMismatch)
	assert.Contains(t, err.Error(), emptySHA256)
}
